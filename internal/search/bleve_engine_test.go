package search

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/infowatch/internal/storage"
)

func TestBleveEngineIndexesAndSearches(t *testing.T) {
	store := seededStore(t)

	idxPath := filepath.Join(t.TempDir(), "index", "index.bleve")
	eng, err := NewBleveEngine(store, idxPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })

	count, err := eng.DocCount()
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	res, err := eng.Search("concert", 10)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(res), 1)
	assert.Equal(t, "https://www.yukiweb.net/info/120", res[0].Article.URL)
	assert.Equal(t, "Anniversary concert tickets", res[0].Article.Title)
	assert.Equal(t, "2024.02.01", res[0].Article.Date)
	require.NotEmpty(t, res[0].Matches)
	assert.Equal(t, "title", res[0].Matches[0].Field)

	res, err = eng.Search("singl", 10)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(res), 1, "prefix query should hit")

	res, err = eng.Search("x", 10)
	require.NoError(t, err)
	assert.Empty(t, res)

	fi, err := os.Stat(idxPath)
	require.NoError(t, err)
	require.True(t, fi.IsDir())
}

func TestBleveEngineIncrementalAndReopen(t *testing.T) {
	idxPath := filepath.Join(t.TempDir(), "index.bleve")

	eng, err := NewBleveEngine(nil, idxPath)
	require.NoError(t, err)

	a := &storage.ArchivedArticle{
		Article:   storage.Article{Title: "Fan club renewal", URL: "https://www.yukiweb.net/info/130"},
		FirstSeen: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, eng.IndexArticles([]*storage.ArchivedArticle{a, nil, {}}))
	// Re-indexing the same URL replaces the document.
	require.NoError(t, eng.IndexArticles([]*storage.ArchivedArticle{a}))

	count, err := eng.DocCount()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.NoError(t, eng.Close())

	reopened, err := NewBleveEngine(nil, idxPath)
	require.NoError(t, err)
	defer reopened.Close()

	res, err := reopened.Search("renewal", 5)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, a.URL, res[0].Article.URL)
	assert.Equal(t, a.Title, res[0].Article.Title)
}
