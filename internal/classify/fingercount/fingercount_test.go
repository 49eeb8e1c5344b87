package fingercount

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gesturesrv/internal/extract"
)

// handWithCount builds a Right/Left hand with `count` fingers raised, in
// order thumb,index,middle,ring,pinky, so count may range 0..5.
func handWithCount(handedness string, count int) extract.HandLandmarks {
	var lm [extract.LandmarkCount]extract.Landmark
	pairs := [][2]int{
		{extract.IndexTip, extract.IndexPIP},
		{extract.MiddleTip, extract.MiddlePIP},
		{extract.RingTip, extract.RingPIP},
		{extract.PinkyTip, extract.PinkyPIP},
	}
	for _, p := range pairs {
		lm[p[0]] = extract.Landmark{Y: 0.6} // down
		lm[p[1]] = extract.Landmark{Y: 0.5}
	}
	// Thumb down by default (Right: tip.x > ip.x is down).
	lm[extract.ThumbTip] = extract.Landmark{X: 0.45}
	lm[extract.ThumbIP] = extract.Landmark{X: 0.40}

	remaining := count
	if remaining > 0 {
		// Raise thumb first.
		lm[extract.ThumbTip] = extract.Landmark{X: 0.40}
		lm[extract.ThumbIP] = extract.Landmark{X: 0.45}
		remaining--
	}
	for _, p := range pairs {
		if remaining <= 0 {
			break
		}
		lm[p[0]] = extract.Landmark{Y: 0.4} // up
		remaining--
	}
	return extract.HandLandmarks{Landmarks: lm, Handedness: handedness, Confidence: 0.9}
}

func TestClassifier_StableVoteSmoothing_Scenario1(t *testing.T) {
	c := New(DefaultConfig())
	raw := []int{5, 5, 4, 5, 5, 5}
	var got []int
	for _, n := range raw {
		res, err := c.Classify(&extract.Result{Hands: []extract.HandLandmarks{handWithCount(extract.Right, n)}})
		require.NoError(t, err)
		got = append(got, res.FingerCount)
	}
	assert.Equal(t, []int{5, 5, 5, 5, 5, 5}, got)
}

func TestClassifier_ThumbHandedness_Scenario2(t *testing.T) {
	c := New(DefaultConfig())

	var rightLm [extract.LandmarkCount]extract.Landmark
	rightLm[extract.ThumbTip] = extract.Landmark{X: 0.40}
	rightLm[extract.ThumbIP] = extract.Landmark{X: 0.45}
	right := extract.HandLandmarks{Landmarks: rightLm, Handedness: extract.Right}
	fsRight := c.detectFingerStates(right)
	assert.True(t, fsRight.Thumb, "right hand tip.x < ip.x should be up")

	c2 := New(DefaultConfig())
	left := extract.HandLandmarks{Landmarks: rightLm, Handedness: extract.Left}
	fsLeft := c2.detectFingerStates(left)
	assert.False(t, fsLeft.Thumb, "left hand with same coordinates should be down")
}

func TestClassifier_ZeroHands_EmitsNoneResult(t *testing.T) {
	c := New(DefaultConfig())
	res, err := c.Classify(&extract.Result{})
	require.NoError(t, err)
	assert.EqualValues(t, "none", res.GestureType)
	assert.Equal(t, 0, res.FingerCount)
	assert.Equal(t, 0.0, res.Confidence)
}

func TestClassifier_NoFingersUp_EmitsFist(t *testing.T) {
	c := New(DefaultConfig())
	res, err := c.Classify(&extract.Result{Hands: []extract.HandLandmarks{handWithCount(extract.Right, 0)}})
	require.NoError(t, err)
	assert.EqualValues(t, "fist", res.GestureType)
}
