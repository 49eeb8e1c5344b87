// Package mouse implements the virtual-mouse classifier, using the 2-D
// One-Euro filter from internal/classify/oneeuro for cursor smoothing.
package mouse

import (
	"math"
	"time"

	"gesturesrv/internal/classify"
	"gesturesrv/internal/classify/oneeuro"
	"gesturesrv/internal/extract"
)

// state is the classifier's internal mouse state: Idle until the first
// pinch, Moving once a pinch starts or is released, Dragging once a pinch
// is held for DragStartDelayMs. A transient pinch emits a click without
// entering a separate clicking state.
type state int

const (
	stateIdle state = iota
	stateMoving
	stateDragging
)

// Zone describes the gesture-zone sub-rectangle (normalized coordinates)
// mapped into screen space.
type Zone struct {
	MinX, MinY, MaxX, MaxY float64
}

// Config holds the classifier's tunables.
type Config struct {
	RequirePointing bool
	Zone            Zone
	ScreenWidth     float64
	ScreenHeight    float64
	EdgeMargin      float64
	ClickThreshold  float64
	DragStartDelayMs float64
	FilterParams    oneeuro.Params
	Now             func() time.Time
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		RequirePointing:  true,
		Zone:             Zone{MinX: 0.2, MinY: 0.2, MaxX: 0.8, MaxY: 0.8},
		ScreenWidth:      1920,
		ScreenHeight:     1080,
		EdgeMargin:       0,
		ClickThreshold:   0.05,
		DragStartDelayMs: 200,
		FilterParams:     oneeuro.Params{Freq: 30, MinCutoff: 1.0, Beta: 0.5, DCutoff: 1.0},
	}
}

// Classifier implements classify.Classifier for cursor control.
type Classifier struct {
	cfg    Config
	filter *oneeuro.Filter2D

	st             state
	pinchStart     *time.Time
	lastClickAt    *time.Time
	isDragging     bool
}

// New creates a virtual-mouse Classifier.
func New(cfg Config) *Classifier {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Classifier{cfg: cfg, filter: oneeuro.New2D(cfg.FilterParams), st: stateIdle}
}

func (c *Classifier) Name() string { return "virtual_mouse" }

func (c *Classifier) Supported() []classify.GestureTag {
	return []classify.GestureTag{classify.None, classify.Pointing, classify.Pinch}
}

func (c *Classifier) Reset() {
	c.filter.Reset()
	c.st = stateIdle
	c.pinchStart = nil
	c.lastClickAt = nil
	c.isDragging = false
}

func (c *Classifier) Classify(in *extract.Result) (*classify.Result, error) {
	if len(in.Hands) == 0 {
		return classify.Empty(), nil
	}
	hand := in.Hands[0]
	lm := hand.Landmarks

	if c.cfg.RequirePointing && !isPointing(hand) {
		return classify.Empty(), nil
	}

	now := c.cfg.Now()
	screenX, screenY := c.mapToScreen(lm[extract.IndexTip].X, lm[extract.IndexTip].Y)
	fx, fy := c.filter.Filter(screenX, screenY, float64(now.UnixNano())/1e9)

	pinchDist := distance(lm[extract.ThumbTip], lm[extract.IndexTip])

	res := &classify.Result{
		GestureType:   classify.Pointing,
		Confidence:    hand.Confidence,
		PinchDistance: pinchDist,
		Cursor:        &classify.CursorTarget{X: fx, Y: fy},
		Aux:           map[string]any{},
	}

	c.updateState(pinchDist, now, res)

	return res, nil
}

// updateState runs the click/drag state machine: a transient pinch below
// DragStartDelayMs emits a single click, a sustained pinch starts a drag
// that ends on release.
func (c *Classifier) updateState(pinchDist float64, now time.Time, res *classify.Result) {
	pinching := pinchDist < c.cfg.ClickThreshold

	if pinching {
		if c.pinchStart == nil {
			t := now
			c.pinchStart = &t
			c.st = stateMoving
		}
		holdMs := now.Sub(*c.pinchStart).Seconds() * 1000
		if holdMs >= c.cfg.DragStartDelayMs && !c.isDragging {
			c.isDragging = true
			c.st = stateDragging
			res.Aux["drag"] = true
		}
		return
	}

	// Pinch released (or was never engaged).
	if c.pinchStart != nil {
		holdMs := now.Sub(*c.pinchStart).Seconds() * 1000
		if c.isDragging {
			res.Aux["release"] = true
			c.isDragging = false
		} else if holdMs < c.cfg.DragStartDelayMs {
			res.Aux["click"] = true
			if c.lastClickAt != nil {
				res.Aux["last_click_interval_ms"] = now.Sub(*c.lastClickAt).Seconds() * 1000
			}
			t := now
			c.lastClickAt = &t
		}
		c.pinchStart = nil
		c.st = stateMoving
	}
}

func (c *Classifier) mapToScreen(normX, normY float64) (float64, float64) {
	z := c.cfg.Zone
	clampedX := math.Max(z.MinX, math.Min(z.MaxX, normX))
	clampedY := math.Max(z.MinY, math.Min(z.MaxY, normY))

	width := z.MaxX - z.MinX
	height := z.MaxY - z.MinY
	if width <= 0 {
		width = 1
	}
	if height <= 0 {
		height = 1
	}

	fracX := (clampedX - z.MinX) / width
	fracY := (clampedY - z.MinY) / height

	usableW := c.cfg.ScreenWidth - 2*c.cfg.EdgeMargin
	usableH := c.cfg.ScreenHeight - 2*c.cfg.EdgeMargin

	return c.cfg.EdgeMargin + fracX*usableW, c.cfg.EdgeMargin + fracY*usableH
}

func isPointing(hand extract.HandLandmarks) bool {
	lm := hand.Landmarks
	indexUp := lm[extract.IndexTip].Y < lm[extract.IndexPIP].Y
	middleDown := lm[extract.MiddleTip].Y >= lm[extract.MiddlePIP].Y
	ringDown := lm[extract.RingTip].Y >= lm[extract.RingPIP].Y
	pinkyDown := lm[extract.PinkyTip].Y >= lm[extract.PinkyPIP].Y
	return indexUp && middleDown && ringDown && pinkyDown
}

func distance(a, b extract.Landmark) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}
