// Package preprocess implements the preprocessor: mirror/flip,
// color-space conversion, resize or letterbox, and optional normalization
// ahead of hand-landmark extraction.
package preprocess

import (
	"image"
	"image/color"
	"time"

	"golang.org/x/image/draw"

	"gesturesrv/internal/capture"
)

// Result is a frame after the fixed-order transform chain, plus the scale
// factor the extractor needs to translate landmark coordinates back to the
// original frame if ever required.
type Result struct {
	Pixels        []byte
	Normalized    []float32
	OriginalWidth int
	OriginalHeight int
	Width         int
	Height        int
	ScaleX        float64
	ScaleY        float64
	IsNormalized  bool
	CapturedAt    time.Time
	LatencyMs     float64
}

// Options configures the transform chain. Zero values mean "disabled"
// except TargetWidth/TargetHeight, which default to the input size.
type Options struct {
	Mirror       bool
	SwapBGR      bool
	TargetWidth  int
	TargetHeight int
	Letterbox    bool
	Normalize    bool
}

// Preprocessor runs the fixed-order transform chain: mirror, color swap,
// resize/letterbox, optional normalize.
type Preprocessor struct {
	opts Options
}

// New creates a Preprocessor with the given options.
func New(opts Options) *Preprocessor {
	return &Preprocessor{opts: opts}
}

// Process runs the transform chain over a captured frame.
func (p *Preprocessor) Process(f *capture.Frame) (*Result, error) {
	start := time.Now()

	img := pixelsToImage(f.Pixels, f.Width, f.Height, f.Channels)

	if p.opts.Mirror {
		img = mirrorHorizontal(img)
	}
	if p.opts.SwapBGR {
		swapRB(img)
	}

	targetW, targetH := p.opts.TargetWidth, p.opts.TargetHeight
	if targetW <= 0 {
		targetW = f.Width
	}
	if targetH <= 0 {
		targetH = f.Height
	}

	var out *image.RGBA
	var scaleX, scaleY float64

	if p.opts.Letterbox {
		out, scaleX, scaleY = letterbox(img, targetW, targetH)
	} else {
		out = image.NewRGBA(image.Rect(0, 0, targetW, targetH))
		draw.ApproxBiLinear.Scale(out, out.Bounds(), img, img.Bounds(), draw.Over, nil)
		scaleX = float64(targetW) / float64(f.Width)
		scaleY = float64(targetH) / float64(f.Height)
	}

	res := &Result{
		OriginalWidth:  f.Width,
		OriginalHeight: f.Height,
		Width:          targetW,
		Height:         targetH,
		ScaleX:         scaleX,
		ScaleY:         scaleY,
		CapturedAt:     f.CapturedAt,
	}

	if p.opts.Normalize {
		res.Normalized = toFloat32(out)
		res.IsNormalized = true
	} else {
		res.Pixels = toRGBBytes(out)
	}

	res.LatencyMs = float64(time.Since(start).Microseconds()) / 1000.0
	return res, nil
}

func pixelsToImage(pixels []byte, width, height, channels int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	if channels == 3 && len(pixels) >= width*height*3 {
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				i := (y*width + x) * 3
				img.Set(x, y, color.RGBA{pixels[i], pixels[i+1], pixels[i+2], 255})
			}
		}
		return img
	}
	// Best effort for other encodings: leave transparent/black.
	return img
}

func mirrorHorizontal(src *image.RGBA) *image.RGBA {
	b := src.Bounds()
	out := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			out.Set(b.Max.X-1-x, y, src.At(x, y))
		}
	}
	return out
}

func swapRB(img *image.RGBA) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := img.At(x, y).RGBA()
			img.Set(x, y, color.RGBA{byte(bl >> 8), byte(g >> 8), byte(r >> 8), byte(a >> 8)})
		}
	}
}

// letterbox scales the source to fit within (targetW, targetH) preserving
// aspect ratio, centers it, and zero-fills the remaining border.
func letterbox(src *image.RGBA, targetW, targetH int) (*image.RGBA, float64, float64) {
	srcB := src.Bounds()
	srcW, srcH := srcB.Dx(), srcB.Dy()

	scale := float64(targetW) / float64(srcW)
	if alt := float64(targetH) / float64(srcH); alt < scale {
		scale = alt
	}

	scaledW := int(float64(srcW) * scale)
	scaledH := int(float64(srcH) * scale)

	out := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
	draw.Draw(out, out.Bounds(), image.Black, image.Point{}, draw.Src)

	offX := (targetW - scaledW) / 2
	offY := (targetH - scaledH) / 2
	dstRect := image.Rect(offX, offY, offX+scaledW, offY+scaledH)
	draw.BiLinear.Scale(out, dstRect, src, srcB, draw.Over, nil)

	return out, scale, scale
}

func toRGBBytes(img *image.RGBA) []byte {
	b := img.Bounds()
	out := make([]byte, 0, b.Dx()*b.Dy()*3)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			out = append(out, byte(r>>8), byte(g>>8), byte(bl>>8))
		}
	}
	return out
}

func toFloat32(img *image.RGBA) []float32 {
	b := img.Bounds()
	out := make([]float32, 0, b.Dx()*b.Dy()*3)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			out = append(out, float32(r>>8)/255.0, float32(g>>8)/255.0, float32(bl>>8)/255.0)
		}
	}
	return out
}
