package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_ClampsOutOfRangeValues(t *testing.T) {
	c := Default()
	c.CameraWidth = 10
	c.TargetFPS = 500
	c.MaxHands = 0
	c.GestureUpdateInterval = 0.9

	require.NoError(t, c.Validate())
	assert.Equal(t, 320, c.CameraWidth)
	assert.Equal(t, 120, c.TargetFPS)
	assert.Equal(t, 1, c.MaxHands)
	assert.Equal(t, 0.5, c.GestureUpdateInterval)
}

func TestValidate_RejectsNegativeCameraIndex(t *testing.T) {
	c := Default()
	c.CameraIndex = -1
	assert.Error(t, c.Validate())
}

func TestLoadFromFile_MissingFileIsNotAnError(t *testing.T) {
	c := Default()
	err := c.LoadFromFile("/nonexistent/path/config.yaml")
	assert.NoError(t, err)
}
