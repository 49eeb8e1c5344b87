package infer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gesturesrv/internal/classify"
	"gesturesrv/internal/extract"
)

type stubClassifier struct {
	name        string
	resetCalled int
}

func (s *stubClassifier) Name() string                      { return s.name }
func (s *stubClassifier) Supported() []classify.GestureTag   { return []classify.GestureTag{classify.None} }
func (s *stubClassifier) Reset()                             { s.resetCalled++ }
func (s *stubClassifier) Classify(in *extract.Result) (*classify.Result, error) {
	return classify.Empty(), nil
}

func TestEngine_SetActiveResetsBeforeFirstClassify(t *testing.T) {
	reg := classify.NewRegistry()
	c := &stubClassifier{name: "a"}
	reg.Register(c)

	e := New(reg)
	require.NoError(t, e.SetActive("a"))
	assert.Equal(t, 1, c.resetCalled)

	_, err := e.Infer(&extract.Result{})
	require.NoError(t, err)
	assert.Equal(t, 1, c.resetCalled, "classify must not itself trigger another reset")
}

func TestEngine_InferWithNoActiveReturnsEmpty(t *testing.T) {
	e := New(classify.NewRegistry())
	res, err := e.Infer(&extract.Result{})
	require.NoError(t, err)
	assert.EqualValues(t, classify.None, res.GestureType)
}

func TestEngine_UnregisterActiveIsRejected(t *testing.T) {
	reg := classify.NewRegistry()
	c := &stubClassifier{name: "a"}
	reg.Register(c)

	e := New(reg)
	require.NoError(t, e.SetActive("a"))

	err := e.Unregister("a")
	assert.Error(t, err)
}

func TestEngine_SetActiveTwiceIsNoOpAsideFromExtraReset(t *testing.T) {
	reg := classify.NewRegistry()
	c := &stubClassifier{name: "a"}
	reg.Register(c)

	e := New(reg)
	require.NoError(t, e.SetActive("a"))
	require.NoError(t, e.SetActive("a"))
	assert.Equal(t, 2, c.resetCalled)
	assert.Equal(t, "a", e.ActiveName())
}
