// Package fingercount implements the finger-count classifier, with a
// pose table extended by the `call` and `shaka` patterns.
package fingercount

import (
	"gesturesrv/internal/classify"
	"gesturesrv/internal/extract"
)

// Config holds the classifier's tunables. Smoothing enforces a
// stable-vote (mode) over the last SmoothingFrames samples.
type Config struct {
	SmoothingFrames int
	DisableThumb    bool
}

// DefaultConfig returns the documented default knobs.
func DefaultConfig() Config {
	return Config{SmoothingFrames: 3, DisableThumb: false}
}

// pose names, keyed by the canonical 5-tuple (thumb,index,middle,ring,pinky).
type poseKey [5]bool

var posePatterns = map[poseKey]classify.GestureTag{
	{false, false, false, false, false}: classify.Fist,
	{true, true, true, true, true}:      classify.OpenPalm,
	{false, true, true, false, false}:   classify.Peace,
	{true, false, false, false, false}:  classify.ThumbsUp,
	{false, true, false, false, false}:  classify.Pointing,
}

// Extra poses not part of the stable wire gesture tag enum, carried
// instead in the auxiliary map under "pose".
const (
	poseCall  = "call"
	poseShaka = "shaka"
)

var extraPosePatterns = map[poseKey]string{
	{true, true, false, false, true}: poseCall,
	{true, false, false, false, true}: poseShaka,
}

// Classifier implements classify.Classifier for the finger-count gesture.
type Classifier struct {
	cfg     Config
	history []int
}

// New creates a finger-count Classifier with the given config.
func New(cfg Config) *Classifier {
	if cfg.SmoothingFrames <= 0 {
		cfg.SmoothingFrames = 3
	}
	return &Classifier{cfg: cfg}
}

func (c *Classifier) Name() string { return "finger_count" }

func (c *Classifier) Supported() []classify.GestureTag {
	return []classify.GestureTag{
		classify.None, classify.FingerCount, classify.Fist, classify.OpenPalm,
		classify.Peace, classify.ThumbsUp, classify.Pointing,
	}
}

func (c *Classifier) Reset() {
	c.history = nil
}

func (c *Classifier) Classify(in *extract.Result) (*classify.Result, error) {
	if len(in.Hands) == 0 {
		c.history = nil
		return classify.Empty(), nil
	}

	var states []classify.FingerStates
	total := 0
	var lastPose string
	for _, hand := range in.Hands {
		fs := c.detectFingerStates(hand)
		states = append(states, fs)
		total += fs.Count()

		if pose, ok := c.poseFor(fs); ok {
			lastPose = pose
		}
	}

	smoothed := c.smooth(total)

	res := &classify.Result{
		GestureType:  c.gestureFor(states),
		Confidence:   confidenceFor(in.Hands),
		FingerCount:  smoothed,
		FingerStates: states,
		Aux:          map[string]any{},
	}
	if lastPose != "" {
		res.Aux["pose"] = lastPose
	}
	return res, nil
}

// gestureFor maps the dominant hand's finger-state 5-tuple to a pose tag;
// anything not in the canonical table falls back to the generic
// finger_count tag.
func (c *Classifier) gestureFor(states []classify.FingerStates) classify.GestureTag {
	if len(states) == 0 {
		return classify.None
	}
	key := poseKey{states[0].Thumb, states[0].Index, states[0].Middle, states[0].Ring, states[0].Pinky}
	if tag, ok := posePatterns[key]; ok {
		return tag
	}
	return classify.FingerCount
}

func (c *Classifier) poseFor(fs classify.FingerStates) (string, bool) {
	key := poseKey{fs.Thumb, fs.Index, fs.Middle, fs.Ring, fs.Pinky}
	if name, ok := extraPosePatterns[key]; ok {
		return name, true
	}
	if _, ok := posePatterns[key]; ok {
		return "", false
	}
	return "", false
}

// detectFingerStates determines per-finger up/down state for one hand.
// Non-thumb fingers: tip.y < PIP.y is up (image Y grows downward). Thumb
// polarity is handedness-dependent: for a Right hand, tip.x < IP.x means
// up; for a Left hand, tip.x > IP.x means up.
func (c *Classifier) detectFingerStates(hand extract.HandLandmarks) classify.FingerStates {
	lm := hand.Landmarks

	fs := classify.FingerStates{
		Index:  lm[extract.IndexTip].Y < lm[extract.IndexPIP].Y,
		Middle: lm[extract.MiddleTip].Y < lm[extract.MiddlePIP].Y,
		Ring:   lm[extract.RingTip].Y < lm[extract.RingPIP].Y,
		Pinky:  lm[extract.PinkyTip].Y < lm[extract.PinkyPIP].Y,
	}

	if c.cfg.DisableThumb {
		fs.Thumb = false
	} else if hand.Handedness == extract.Right {
		fs.Thumb = lm[extract.ThumbTip].X < lm[extract.ThumbIP].X
	} else {
		fs.Thumb = lm[extract.ThumbTip].X > lm[extract.ThumbIP].X
	}

	return fs
}

// smooth applies stable-vote (mode) smoothing over the last
// SmoothingFrames raw counts, with most-recent-wins tie-breaking.
func (c *Classifier) smooth(raw int) int {
	c.history = append(c.history, raw)
	if len(c.history) > c.cfg.SmoothingFrames {
		c.history = c.history[len(c.history)-c.cfg.SmoothingFrames:]
	}
	return mode(c.history)
}

// mode returns the most frequent value in samples, breaking ties toward
// the most recently seen value among the tied candidates.
func mode(samples []int) int {
	counts := make(map[int]int, len(samples))
	for _, v := range samples {
		counts[v]++
	}

	best := samples[len(samples)-1]
	bestCount := 0
	// Iterate from most recent to oldest so ties favor recency.
	for i := len(samples) - 1; i >= 0; i-- {
		v := samples[i]
		if counts[v] > bestCount {
			bestCount = counts[v]
			best = v
		}
	}
	return best
}

func confidenceFor(hands []extract.HandLandmarks) float64 {
	if len(hands) == 0 {
		return 0
	}
	sum := 0.0
	for _, h := range hands {
		sum += h.Confidence
	}
	return sum / float64(len(hands))
}
