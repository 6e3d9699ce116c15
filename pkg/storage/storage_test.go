package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtnitsch/lunch-bot/models"
)

func TestSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Södra Porten", "sodra-porten"},
		{"Nya Etage", "nya-etage"},
		{"  Café & Bar  ", "cafe-bar"},
		{"Kök 24/7", "kok-24-7"},
		{"!!!", "restaurant"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slug(tt.in))
		})
	}
}

func TestSnapshot(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "snapshots"))
	require.NoError(t, err)

	date := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

	html := &models.Document{Content: []byte("<h3>Onsdag</h3>"), Format: models.FormatMarkup}
	path, err := s.Snapshot("Södra Porten", date, html)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Dir, "2025-01-15-sodra-porten.html"), path)
	assert.True(t, s.HasFile(path))

	data, err := s.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<h3>Onsdag</h3>", string(data))

	feed := &models.Document{Content: []byte(`[]`), Format: models.FormatFeed}
	path, err = s.Snapshot("Feed Place", date, feed)
	require.NoError(t, err)
	assert.Equal(t, "2025-01-15-feed-place.json", filepath.Base(path))

	data, err = s.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	_, err = s.Snapshot("x", date, nil)
	assert.Error(t, err)
}

func TestShouldSnapshot(t *testing.T) {
	assert.True(t, ShouldSnapshot(models.MenuResult{Status: models.StatusParseFailed}))
	assert.True(t, ShouldSnapshot(models.MenuResult{Status: models.StatusEmpty}))
	assert.False(t, ShouldSnapshot(models.MenuResult{Status: models.StatusOK}))
	assert.False(t, ShouldSnapshot(models.MenuResult{Status: models.StatusFetchFailed}))
}
