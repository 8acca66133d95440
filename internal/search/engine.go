package search

import (
	"sort"
	"strings"
	"unicode"

	"github.com/pders01/infowatch/internal/storage"
)

// Field weights; a title hit outranks any number of URL hits for one term.
var fieldWeights = []struct {
	name   string
	weight float64
	value  func(*storage.ArchivedArticle) string
}{
	{"title", 4.0, func(a *storage.ArchivedArticle) string { return a.Title }},
	{"date", 1.0, func(a *storage.ArchivedArticle) string { return a.Date }},
	{"url", 0.5, func(a *storage.ArchivedArticle) string { return a.URL }},
}

// Engine scans the bbolt archive directly. It serves searches when no
// Bleve index is configured.
type Engine struct {
	store *storage.Store
}

func NewEngine(store *storage.Store) *Engine {
	return &Engine{store: store}
}

// Search returns archived articles containing every query term, best first.
// Equal scores keep the archive order, newest first seen first.
func (e *Engine) Search(query string, limit int) ([]*Result, error) {
	if len(strings.TrimSpace(query)) < 2 {
		return []*Result{}, nil
	}
	terms := tokenize(query)
	if len(terms) == 0 {
		return []*Result{}, nil
	}

	archived, err := e.store.GetArchivedArticles(0)
	if err != nil {
		return nil, err
	}

	results := []*Result{}
	for _, a := range archived {
		if r := matchArticle(a, terms); r != nil {
			results = append(results, r)
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func matchArticle(a *storage.ArchivedArticle, terms []string) *Result {
	r := &Result{Article: a}
	for _, term := range terms {
		got := 0.0
		for _, f := range fieldWeights {
			text := f.value(a)
			if s := termScore(text, term); s > 0 {
				got += s * f.weight
				r.Matches = append(r.Matches, Match{Field: f.name, Text: text, Weight: s * f.weight})
			}
		}
		if got == 0 {
			return nil
		}
		r.Score += got
	}
	return r
}

// termScore grades how term occurs in text: 3 for a whole word, 2 for a
// word prefix, 1 anywhere else, 0 when absent.
func termScore(text, term string) float64 {
	if text == "" || !strings.Contains(strings.ToLower(text), term) {
		return 0
	}
	best := 1.0
	for _, word := range tokenize(text) {
		switch {
		case word == term:
			return 3
		case strings.HasPrefix(word, term):
			best = 2
		}
	}
	return best
}

// tokenize splits text into lower-cased runs of letters and digits. Single
// ASCII characters are dropped; a single CJK character is a word.
func tokenize(text string) []string {
	var (
		terms   []string
		current strings.Builder
	)
	flush := func() {
		if current.Len() == 0 {
			return
		}
		term := current.String()
		current.Reset()
		if len([]rune(term)) == 1 && term[0] < 0x80 {
			return
		}
		terms = append(terms, term)
	}

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			current.WriteRune(unicode.ToLower(r))
			continue
		}
		flush()
	}
	flush()
	return terms
}
