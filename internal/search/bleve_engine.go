package search

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevesearch "github.com/blevesearch/bleve/v2/search"
	bleveQuery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/pders01/infowatch/internal/storage"
)

// BleveEngine is a full-text index over every archived article.
type BleveEngine struct {
	idx bleve.Index
}

// NewBleveEngine creates or opens a Bleve index at indexPath and indexes
// the current archive of store, when given.
func NewBleveEngine(store *storage.Store, indexPath string) (*BleveEngine, error) {
	if err := os.MkdirAll(filepath.Dir(indexPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	idx, err := bleve.Open(indexPath)
	if err != nil {
		idx, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("creating index: %w", err)
		}
	}

	be := &BleveEngine{idx: idx}
	if store != nil {
		archived, err := store.GetArchivedArticles(0)
		if err != nil {
			_ = idx.Close()
			return nil, fmt.Errorf("loading archive: %w", err)
		}
		if err := be.IndexArticles(archived); err != nil {
			_ = idx.Close()
			return nil, err
		}
	}
	return be, nil
}

func buildIndexMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = standard.Name

	dm := bleve.NewDocumentMapping()

	title := bleve.NewTextFieldMapping()
	title.Analyzer = standard.Name
	title.Store = true
	title.IncludeTermVectors = true

	date := bleve.NewTextFieldMapping()
	date.Analyzer = keyword.Name
	date.Store = true

	url := bleve.NewTextFieldMapping()
	url.Analyzer = standard.Name
	url.Store = true

	firstSeen := bleve.NewDateTimeFieldMapping()
	firstSeen.Store = true

	dm.AddFieldMappingsAt("title", title)
	dm.AddFieldMappingsAt("date", date)
	dm.AddFieldMappingsAt("url", url)
	dm.AddFieldMappingsAt("first_seen", firstSeen)

	im.DefaultMapping = dm
	return im
}

// IndexArticles adds or replaces the documents of articles.
func (b *BleveEngine) IndexArticles(articles []*storage.ArchivedArticle) error {
	batch := b.idx.NewBatch()
	for _, a := range articles {
		if a == nil || a.URL == "" {
			continue
		}
		if err := batch.Index(docIDForArticle(a.URL), map[string]any{
			"title":      a.Title,
			"date":       a.Date,
			"url":        a.URL,
			"first_seen": a.FirstSeen,
		}); err != nil {
			return fmt.Errorf("indexing %s: %w", a.URL, err)
		}
	}
	if err := b.idx.Batch(batch); err != nil {
		return fmt.Errorf("writing index batch: %w", err)
	}
	return nil
}

// Search runs a weighted OR of title matches, title prefixes and URL
// matches for every query term.
func (b *BleveEngine) Search(query string, limit int) ([]*Result, error) {
	if len(strings.TrimSpace(query)) < 2 {
		return []*Result{}, nil
	}
	q := articleQuery(tokenize(query))
	if q == nil {
		return []*Result{}, nil
	}

	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	req.Fields = []string{"title", "date", "url", "first_seen"}
	req.IncludeLocations = true
	res, err := b.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	out := make([]*Result, 0, len(res.Hits))
	for _, hit := range res.Hits {
		out = append(out, hitResult(hit))
	}
	return out, nil
}

func articleQuery(terms []string) bleveQuery.Query {
	if len(terms) == 0 {
		return nil
	}
	var clauses []bleveQuery.Query
	for _, term := range terms {
		title := bleve.NewMatchQuery(term)
		title.SetField("title")
		title.SetBoost(4.0)

		prefix := bleve.NewPrefixQuery(term)
		prefix.SetField("title")
		prefix.SetBoost(3.5)

		url := bleve.NewMatchQuery(term)
		url.SetField("url")
		url.SetBoost(0.5)

		clauses = append(clauses, title, prefix, url)
	}
	return bleve.NewDisjunctionQuery(clauses...)
}

func hitResult(hit *blevesearch.DocumentMatch) *Result {
	a := &storage.ArchivedArticle{}
	a.URL = strings.TrimPrefix(hit.ID, docIDPrefix)
	a.Title, _ = hit.Fields["title"].(string)
	a.Date, _ = hit.Fields["date"].(string)
	if s, ok := hit.Fields["first_seen"].(string); ok {
		a.FirstSeen, _ = time.Parse(time.RFC3339Nano, s)
	}

	r := &Result{Article: a, Score: hit.Score}
	for field := range hit.Locations {
		var text string
		switch field {
		case "title":
			text = a.Title
		case "url":
			text = a.URL
		default:
			continue
		}
		r.Matches = append(r.Matches, Match{Field: field, Text: text})
	}
	sort.Slice(r.Matches, func(i, j int) bool { return r.Matches[i].Field < r.Matches[j].Field })
	return r
}

// DocCount reports total documents in the index.
func (b *BleveEngine) DocCount() (int, error) {
	n, err := b.idx.DocCount()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (b *BleveEngine) Close() error {
	return b.idx.Close()
}

const docIDPrefix = "article:"

func docIDForArticle(url string) string { return docIDPrefix + url }
