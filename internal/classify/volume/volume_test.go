package volume

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gesturesrv/internal/extract"
)

func pinchHand(dist float64) extract.HandLandmarks {
	var lm [extract.LandmarkCount]extract.Landmark
	lm[extract.ThumbTip] = extract.Landmark{X: 0, Y: 0}
	lm[extract.IndexTip] = extract.Landmark{X: dist, Y: 0}
	// Keep non-thumb tips above their PIPs so isFist() is false.
	lm[extract.IndexPIP] = extract.Landmark{Y: 0.1}
	lm[extract.MiddleTip] = extract.Landmark{Y: 0}
	lm[extract.MiddlePIP] = extract.Landmark{Y: 0.1}
	lm[extract.RingTip] = extract.Landmark{Y: 0}
	lm[extract.RingPIP] = extract.Landmark{Y: 0.1}
	lm[extract.PinkyTip] = extract.Landmark{Y: 0}
	lm[extract.PinkyPIP] = extract.Landmark{Y: 0.1}
	return extract.HandLandmarks{Landmarks: lm, Handedness: extract.Right, Confidence: 1}
}

func TestClassifier_VolumeMapping_Scenario3(t *testing.T) {
	c := New(DefaultConfig())

	res, err := c.Classify(&extract.Result{Hands: []extract.HandLandmarks{pinchHand(0.03)}})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, res.Aux["volume_level"], 1e-9)

	// Seed the smoothing state with a prior of 0.5 so 0.09 (=> target 0.5)
	// goes through the smoothing path rather than the first-sample path.
	c2 := New(DefaultConfig())
	c2.currentVolume = 0.5
	c2.hasVolume = true
	res, err = c2.Classify(&extract.Result{Hands: []extract.HandLandmarks{pinchHand(0.09)}})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, res.Aux["volume_level"], 0.01)

	c3 := New(DefaultConfig())
	res, err = c3.Classify(&extract.Result{Hands: []extract.HandLandmarks{pinchHand(0.15)}})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, res.Aux["volume_level"], 1e-9)
}

func TestClassifier_MuteHold_Scenario4(t *testing.T) {
	now := time.Now()
	clock := now
	cfg := DefaultConfig()
	cfg.Now = func() time.Time { return clock }
	c := New(cfg)

	fist := func() extract.HandLandmarks {
		var lm [extract.LandmarkCount]extract.Landmark
		for _, p := range [][2]int{
			{extract.IndexTip, extract.IndexPIP},
			{extract.MiddleTip, extract.MiddlePIP},
			{extract.RingTip, extract.RingPIP},
			{extract.PinkyTip, extract.PinkyPIP},
		} {
			lm[p[0]] = extract.Landmark{Y: 0.6}
			lm[p[1]] = extract.Landmark{Y: 0.5}
		}
		return extract.HandLandmarks{Landmarks: lm, Handedness: extract.Right, Confidence: 1}
	}

	res, err := c.Classify(&extract.Result{Hands: []extract.HandLandmarks{fist()}})
	require.NoError(t, err)
	assert.Nil(t, res.Aux["mute_toggled"])

	clock = now.Add(1000 * time.Millisecond)
	res, err = c.Classify(&extract.Result{Hands: []extract.HandLandmarks{fist()}})
	require.NoError(t, err)
	assert.Equal(t, true, res.Aux["mute_toggled"])

	clock = now.Add(2000 * time.Millisecond)
	res, err = c.Classify(&extract.Result{Hands: []extract.HandLandmarks{fist()}})
	require.NoError(t, err)
	assert.Nil(t, res.Aux["mute_toggled"], "second sustained hold without release must not re-toggle")
}
