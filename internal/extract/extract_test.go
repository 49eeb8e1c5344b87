package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gesturesrv/internal/preprocess"
)

func TestNopExtractor_AlwaysReportsZeroHands(t *testing.T) {
	e := NewNop(2)
	res, err := e.Extract(&preprocess.Result{CapturedAt: time.Now()})
	require.NoError(t, err)
	assert.Empty(t, res.Hands)
}
