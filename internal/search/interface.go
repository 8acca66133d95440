package search

import "github.com/pders01/infowatch/internal/storage"

// Searcher defines the search API used by the CLI.
type Searcher interface {
	Search(query string, limit int) ([]*Result, error)
}

// Indexer is implemented by engines that maintain an external index and
// must be told about newly seen articles.
type Indexer interface {
	IndexArticles(articles []*storage.ArchivedArticle) error
}

// DebugStatser provides lightweight stats for visibility/debugging.
type DebugStatser interface {
	DocCount() (int, error)
}

// Result is a single hit.
type Result struct {
	Article *storage.ArchivedArticle
	Score   float64
	Matches []Match
}

// Match represents where text was found
type Match struct {
	Field  string // "title", "date", "url"
	Text   string
	Weight float64
}
