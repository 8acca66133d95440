package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotStore_LoadMissingFile(t *testing.T) {
	s := NewSnapshotStore(filepath.Join(t.TempDir(), "last_checked.json"))

	snap, err := s.Load()
	require.NoError(t, err)
	assert.True(t, snap.IsEmpty())
	assert.NotNil(t, snap.Articles)
}

func TestSnapshotStore_LoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last_checked.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	snap, err := NewSnapshotStore(path).Load()
	assert.Error(t, err)
	require.NotNil(t, snap)
	assert.True(t, snap.IsEmpty())
}

func TestSnapshotStore_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "last_checked.json")
	s := NewSnapshotStore(path)

	checked := time.Date(2025, 5, 1, 10, 30, 0, 0, time.UTC)
	articles := []*Article{
		{Title: "新曲リリース", URL: "https://www.yukiweb.net/info/123", Date: "2025/05/01", DiscoveredAt: checked},
		{Title: "Live <tour> & more", URL: "https://www.yukiweb.net/info/122", DiscoveredAt: checked},
	}
	require.NoError(t, s.Save(articles, checked))

	snap, err := s.Load()
	require.NoError(t, err)
	require.Len(t, snap.Articles, 2)
	assert.True(t, snap.LastCheck.Equal(checked))
	assert.Equal(t, "新曲リリース", snap.Articles[0].Title)
	assert.Equal(t, "https://www.yukiweb.net/info/122", snap.Articles[1].URL)
	assert.Equal(t, "", snap.Articles[1].Date)
	assert.True(t, snap.Articles[0].DiscoveredAt.Equal(checked))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "新曲リリース", "non-ASCII must not be escaped")
	assert.Contains(t, string(raw), "Live <tour> & more")
	assert.Contains(t, string(raw), `"last_articles"`)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Contains(t, doc, "last_check")
}

func TestSnapshotStore_SaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s := NewSnapshotStore(filepath.Join(dir, "last_checked.json"))

	require.NoError(t, s.Save([]*Article{{Title: "a", URL: "https://x/1"}}, time.Now()))
	require.NoError(t, s.Save([]*Article{{Title: "b", URL: "https://x/2"}}, time.Now()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "last_checked.json", entries[0].Name())

	snap, err := s.Load()
	require.NoError(t, err)
	require.Len(t, snap.Articles, 1)
	assert.Equal(t, "https://x/2", snap.Articles[0].URL)
}

func TestSnapshotStore_LoadZonelessTimestamps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last_checked.json")
	legacy := `{
  "last_check": "2025-01-02T03:04:05.123456",
  "last_articles": [
    {"title": "お知らせ", "url": "https://www.yukiweb.net/info/9", "date": "", "timestamp": "2025-01-02T03:04:05"},
    {"title": "odd", "url": "https://www.yukiweb.net/info/8", "date": "", "timestamp": "yesterday"}
  ]
}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	snap, err := NewSnapshotStore(path).Load()
	require.NoError(t, err)
	require.Len(t, snap.Articles, 2)
	assert.Equal(t, 2025, snap.LastCheck.Year())
	assert.Equal(t, 5, snap.Articles[0].DiscoveredAt.Second())
	assert.True(t, snap.Articles[1].DiscoveredAt.IsZero())
}

func TestSnapshotStore_SaveEmptyList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last_checked.json")
	s := NewSnapshotStore(path)

	require.NoError(t, s.Save(nil, time.Now()))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(raw), `"last_articles": []`))

	snap, err := s.Load()
	require.NoError(t, err)
	assert.True(t, snap.IsEmpty())
}
