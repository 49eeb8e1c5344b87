// Package volume implements the volume-control classifier: pinch
// distance mapped to a volume level, plus a sustained-fist mute toggle.
package volume

import (
	"math"
	"time"

	"gesturesrv/internal/classify"
	"gesturesrv/internal/extract"
)

// Config holds the classifier's tunables.
type Config struct {
	PreferredHand   string // "Left", "Right", or "Any"
	PinchMin        float64
	PinchMax        float64
	VolumeMin       float64
	VolumeMax       float64
	SmoothingAlpha  float64
	MuteHoldMs      float64
	Now             func() time.Time
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		PreferredHand:  "Any",
		PinchMin:       0.03,
		PinchMax:       0.15,
		VolumeMin:      0,
		VolumeMax:      1,
		SmoothingAlpha: 0.3,
		MuteHoldMs:     1000,
	}
}

// Classifier implements classify.Classifier for volume control.
type Classifier struct {
	cfg Config

	currentVolume   float64
	hasVolume       bool
	fistStart       *time.Time
	fistToggled     bool
	isMuted         bool
	lastPinchDist   float64
}

// New creates a volume Classifier.
func New(cfg Config) *Classifier {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Classifier{cfg: cfg}
}

func (c *Classifier) Name() string { return "volume_control" }

func (c *Classifier) Supported() []classify.GestureTag {
	return []classify.GestureTag{classify.None, classify.Pinch, classify.Fist}
}

func (c *Classifier) Reset() {
	c.currentVolume = 0
	c.hasVolume = false
	c.fistStart = nil
	c.fistToggled = false
	c.isMuted = false
	c.lastPinchDist = 0
}

func (c *Classifier) Classify(in *extract.Result) (*classify.Result, error) {
	hand, ok := preferredHand(in.Hands, c.cfg.PreferredHand)
	if !ok {
		c.fistStart = nil
		return classify.Empty(), nil
	}

	lm := hand.Landmarks
	dist := distance(lm[extract.ThumbTip], lm[extract.IndexTip])
	c.lastPinchDist = dist

	target := mapPinchToVolume(dist, c.cfg)
	c.currentVolume = c.smoothVolume(target)
	c.hasVolume = true

	muteToggled := c.handleFist(hand)

	res := &classify.Result{
		GestureType:   classify.Pinch,
		Confidence:    hand.Confidence,
		PinchDistance: dist,
		Aux: map[string]any{
			"volume_level": c.currentVolume,
			"is_muted":     c.isMuted,
		},
	}
	if muteToggled {
		res.Aux["mute_toggled"] = true
		res.GestureType = classify.Fist
	}
	return res, nil
}

func (c *Classifier) smoothVolume(target float64) float64 {
	if !c.hasVolume {
		return target
	}
	return c.cfg.SmoothingAlpha*target + (1-c.cfg.SmoothingAlpha)*c.currentVolume
}

// handleFist tracks a sustained fist hold and toggles mute exactly once
// per sustained hold: once toggled, further holding (without releasing
// the fist) must not re-toggle.
func (c *Classifier) handleFist(hand extract.HandLandmarks) bool {
	if !isFist(hand) {
		c.fistStart = nil
		c.fistToggled = false
		return false
	}

	now := c.cfg.Now()
	if c.fistStart == nil {
		c.fistStart = &now
		c.fistToggled = false
		return false
	}

	if c.fistToggled {
		return false
	}

	holdMs := now.Sub(*c.fistStart).Seconds() * 1000
	if holdMs >= c.cfg.MuteHoldMs {
		c.isMuted = !c.isMuted
		c.fistToggled = true
		return true
	}
	return false
}

func isFist(hand extract.HandLandmarks) bool {
	lm := hand.Landmarks
	tips := []int{extract.IndexTip, extract.MiddleTip, extract.RingTip, extract.PinkyTip}
	pips := []int{extract.IndexPIP, extract.MiddlePIP, extract.RingPIP, extract.PinkyPIP}
	for i := range tips {
		if lm[tips[i]].Y < lm[pips[i]].Y {
			return false
		}
	}
	return true
}

func mapPinchToVolume(dist float64, cfg Config) float64 {
	clamped := math.Max(cfg.PinchMin, math.Min(cfg.PinchMax, dist))
	t := (clamped - cfg.PinchMin) / (cfg.PinchMax - cfg.PinchMin)
	return cfg.VolumeMin + t*(cfg.VolumeMax-cfg.VolumeMin)
}

func distance(a, b extract.Landmark) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

func preferredHand(hands []extract.HandLandmarks, preferred string) (extract.HandLandmarks, bool) {
	if len(hands) == 0 {
		return extract.HandLandmarks{}, false
	}
	if preferred == "Left" || preferred == "Right" {
		for _, h := range hands {
			if h.Handedness == preferred {
				return h, true
			}
		}
	}
	return hands[0], true
}
