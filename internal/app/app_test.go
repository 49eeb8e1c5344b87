package app

import (
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gesturesrv/internal/config"
	"gesturesrv/internal/extract"
)

func TestNew_WiresAllComponentsAndSeedsDefaultProjects(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())

	a, err := New(cfg, Options{
		DBPath:    filepath.Join(t.TempDir(), "app.db"),
		Extractor: extract.NewNop(cfg.MaxHands),
	})
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	projects, err := a.Store.ListProjects()
	require.NoError(t, err)
	assert.Len(t, projects, 3)

	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	a.Handler().ServeHTTP(w, req)
	assert.Equal(t, 200, w.Code)
}

func TestNew_SeedIsIdempotentAcrossRestarts(t *testing.T) {
	cfg := config.Default()
	dbPath := filepath.Join(t.TempDir(), "app.db")

	a1, err := New(cfg, Options{DBPath: dbPath, Extractor: extract.NewNop(cfg.MaxHands)})
	require.NoError(t, err)
	a1.Close()

	a2, err := New(cfg, Options{DBPath: dbPath, Extractor: extract.NewNop(cfg.MaxHands)})
	require.NoError(t, err)
	t.Cleanup(func() { a2.Close() })

	projects, err := a2.Store.ListProjects()
	require.NoError(t, err)
	assert.Len(t, projects, 3, "reopening must not duplicate seeded projects")
}
