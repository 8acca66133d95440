package search

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/infowatch/internal/storage"
)

func seededStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	seen := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.ArchiveArticles([]*storage.Article{
		{Title: "Anniversary concert tickets", URL: "https://www.yukiweb.net/info/120", Date: "2024.02.01"},
		{Title: "New single release", URL: "https://www.yukiweb.net/info/121", Date: "2024.02.15"},
		{Title: "ライブ配信のお知らせ", URL: "https://www.yukiweb.net/info/122"},
	}, seen))
	return store
}

func TestNewEngine(t *testing.T) {
	store := &storage.Store{}
	engine := NewEngine(store)
	assert.NotNil(t, engine)
	assert.Equal(t, store, engine.store)
}

func TestSearchMinLength(t *testing.T) {
	engine := NewEngine(&storage.Store{})

	tests := []struct {
		name  string
		query string
	}{
		{name: "Empty query", query: ""},
		{name: "Single character query", query: "a"},
		{name: "Whitespace only", query: "   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := engine.Search(tt.query, 10)
			assert.NoError(t, err)
			assert.NotNil(t, results)
			assert.Equal(t, 0, len(results), "short queries should return empty results")
		})
	}
}

func TestEngine_Search(t *testing.T) {
	engine := NewEngine(seededStore(t))

	results, err := engine.Search("concert", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "https://www.yukiweb.net/info/120", results[0].Article.URL)
	assert.Equal(t, "title", results[0].Matches[0].Field)

	results, err = engine.Search("sing", 10)
	require.NoError(t, err)
	require.Len(t, results, 1, "prefix matches count")
	assert.Equal(t, "New single release", results[0].Article.Title)

	results, err = engine.Search("ライブ", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "https://www.yukiweb.net/info/122", results[0].Article.URL)

	results, err = engine.Search("yukiweb", 2)
	require.NoError(t, err)
	assert.Len(t, results, 2, "limit applies")

	results, err = engine.Search("nothing matches", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestEngine_TitleOutranksURL(t *testing.T) {
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.ArchiveArticles([]*storage.Article{
		{Title: "Unrelated", URL: "https://x/info/tour"},
		{Title: "Tour announced", URL: "https://x/info/9"},
	}, time.Now()))

	results, err := NewEngine(store).Search("tour", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Tour announced", results[0].Article.Title)
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"hello", "world"}, tokenize("Hello, World!"))
	assert.Equal(t, []string{"2024", "03"}, tokenize("2024.03.1"))
	assert.Equal(t, []string{"歌"}, tokenize("歌"))
	assert.Empty(t, tokenize("a - b"))
}

func TestEngine_AllTermsMustMatch(t *testing.T) {
	engine := NewEngine(seededStore(t))

	results, err := engine.Search("concert 2024.02", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Anniversary concert tickets", results[0].Article.Title)

	results, err = engine.Search("concert release", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestTermScore(t *testing.T) {
	tests := []struct {
		text string
		term string
		want float64
	}{
		{"New single release", "single", 3},
		{"New single release", "sing", 2},
		{"New single release", "ngle", 1},
		{"ライブ配信のお知らせ", "ライブ", 2},
		{"New single release", "tour", 0},
		{"", "tour", 0},
	}
	for _, tt := range tests {
		t.Run(tt.text+"/"+tt.term, func(t *testing.T) {
			assert.Equal(t, tt.want, termScore(tt.text, tt.term))
		})
	}
}
