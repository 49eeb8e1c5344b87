package projectstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "projects.db")
	s, err := New(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_SaveAndGetProjectRoundTrips(t *testing.T) {
	s := newTestStore(t)

	p := &ProjectRecord{
		ID:        "finger_count",
		Name:      "Finger Count",
		Settings:  `{"smoothing_frames":3}`,
		Enabled:   true,
		CreatedAt: time.Now(),
	}
	require.NoError(t, s.SaveProject(p))

	got, err := s.GetProject("finger_count")
	require.NoError(t, err)
	assert.Equal(t, p.Name, got.Name)
	assert.Equal(t, p.Settings, got.Settings)
	assert.True(t, got.Enabled)
}

func TestStore_SaveProjectUpsertsOnConflict(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.SaveProject(&ProjectRecord{ID: "p1", Name: "One", Settings: "{}", Enabled: true, CreatedAt: time.Now()}))
	require.NoError(t, s.SaveProject(&ProjectRecord{ID: "p1", Name: "One Renamed", Settings: `{"x":1}`, Enabled: false, CreatedAt: time.Now()}))

	got, err := s.GetProject("p1")
	require.NoError(t, err)
	assert.Equal(t, "One Renamed", got.Name)
	assert.Equal(t, `{"x":1}`, got.Settings)
	assert.False(t, got.Enabled)

	all, err := s.ListProjects()
	require.NoError(t, err)
	assert.Len(t, all, 1, "conflict must update in place, not insert a duplicate row")
}

func TestStore_ListProjectsOrdersByCreation(t *testing.T) {
	s := newTestStore(t)

	first := time.Now().Add(-time.Hour)
	second := time.Now()
	require.NoError(t, s.SaveProject(&ProjectRecord{ID: "b", Name: "B", Settings: "{}", CreatedAt: second}))
	require.NoError(t, s.SaveProject(&ProjectRecord{ID: "a", Name: "A", Settings: "{}", CreatedAt: first}))

	all, err := s.ListProjects()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].ID)
	assert.Equal(t, "b", all[1].ID)
}

func TestStore_UpdateProjectSettingsRejectsUnknownID(t *testing.T) {
	s := newTestStore(t)
	err := s.UpdateProjectSettings("missing", map[string]any{"x": 1})
	assert.Error(t, err)
}

func TestStore_UpdateProjectSettingsEncodesJSON(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveProject(&ProjectRecord{ID: "p1", Name: "One", Settings: "{}", CreatedAt: time.Now()}))

	require.NoError(t, s.UpdateProjectSettings("p1", map[string]any{"volume_min": 0.0, "volume_max": 1.0}))

	got, err := s.GetProject("p1")
	require.NoError(t, err)
	assert.Contains(t, got.Settings, "volume_min")
}

func TestStore_DeleteProjectRemovesRow(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveProject(&ProjectRecord{ID: "p1", Name: "One", Settings: "{}", CreatedAt: time.Now()}))
	require.NoError(t, s.DeleteProject("p1"))

	_, err := s.GetProject("p1")
	assert.Error(t, err)
}

func TestStore_ConfigRoundTrips(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveConfig("active_project", "finger_count"))

	got, err := s.GetConfig("active_project")
	require.NoError(t, err)
	assert.Equal(t, "finger_count", got.Value)

	require.NoError(t, s.SaveConfig("active_project", "volume"))
	got, err = s.GetConfig("active_project")
	require.NoError(t, err)
	assert.Equal(t, "volume", got.Value, "upsert must overwrite, not duplicate")
}

func TestStore_MigrateIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "projects.db")
	s1, err := New(path)
	require.NoError(t, err)
	s1.Close()

	s2, err := New(path)
	require.NoError(t, err, "reopening an already-migrated database must not fail")
	s2.Close()
}
