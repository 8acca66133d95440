// Package extract pulls announcement articles out of a listing page whose
// markup is not guaranteed to be consistent, trying progressively looser
// strategies until one of them recognises something.
package extract

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/pders01/infowatch/internal/storage"
)

const (
	StageExactMarker     = "exact-marker"
	StageFoldedMarker    = "folded-marker"
	StageSubstringMarker = "substring-marker"
	StageLinkInference   = "link-inference"
)

// Options describes the watched site.
type Options struct {
	BaseURL     string
	ListingURL  string
	Marker      string
	LinkPattern string
}

// Match is what a single strategy found: the number of elements it
// recognised and the articles it could build from them.
type Match struct {
	Elements int
	Articles []*storage.Article
}

// Strategy is one step of the cascade.
type Strategy interface {
	Name() string
	Apply(doc *goquery.Document) Match
}

// Result is the outcome of a cascade run. Stage is empty when no strategy
// matched anything.
type Result struct {
	Stage    string
	Elements int
	Articles []*storage.Article
}

// Cascade runs strategies in order and stops at the first that matched at
// least one element, even if none of those elements produced an article.
func Cascade(doc *goquery.Document, strategies ...Strategy) Result {
	for _, s := range strategies {
		m := s.Apply(doc)
		if m.Elements > 0 {
			return Result{Stage: s.Name(), Elements: m.Elements, Articles: m.Articles}
		}
	}
	return Result{}
}

// Extractor turns a listing page into articles through the strategy cascade.
type Extractor struct {
	opts       Options
	resolver   resolver
	strategies []Strategy
	now        func() time.Time
	logger     *zap.Logger
}

// New builds an Extractor for opts. BaseURL must be an absolute URL.
func New(opts Options, logger *zap.Logger) (*Extractor, error) {
	base, err := url.Parse(opts.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", opts.BaseURL)
	}
	listing, err := url.Parse(opts.ListingURL)
	if err != nil {
		return nil, fmt.Errorf("invalid listing URL %q: %w", opts.ListingURL, err)
	}

	e := &Extractor{
		opts: opts,
		resolver: resolver{
			origin:  base.Scheme + "://" + base.Host,
			listing: opts.ListingURL,
		},
		now:    time.Now,
		logger: logger,
	}

	b := builder{resolver: e.resolver, now: e.clock}
	marker := strings.ToLower(opts.Marker)
	e.strategies = []Strategy{
		markerStrategy{name: StageExactMarker, builder: b, match: func(token string) bool {
			return token == opts.Marker
		}},
		markerStrategy{name: StageFoldedMarker, builder: b, match: func(token string) bool {
			return strings.EqualFold(token, opts.Marker)
		}},
		markerStrategy{name: StageSubstringMarker, builder: b, match: func(token string) bool {
			return strings.Contains(strings.ToLower(token), marker)
		}},
		linkStrategy{
			builder:     b,
			pattern:     opts.LinkPattern,
			listingPath: listing.Path,
			listingURL:  opts.ListingURL,
		},
	}
	return e, nil
}

// SetClock overrides the time source stamped into DiscoveredAt.
func (e *Extractor) SetClock(now func() time.Time) {
	e.now = now
}

func (e *Extractor) clock() time.Time {
	return e.now()
}

// MarkerCount reports how many elements carry the exact marker class. A
// zero count is the signal that the page may need rendering.
func (e *Extractor) MarkerCount(doc *goquery.Document) int {
	return e.strategies[0].Apply(doc).Elements
}

// Run executes the cascade. When nothing is found it logs a diagnostics
// report of the page structure.
func (e *Extractor) Run(doc *goquery.Document) Result {
	res := Cascade(doc, e.strategies...)
	if len(res.Articles) > 0 {
		e.logger.Debug("Extracted articles",
			zap.String("stage", res.Stage),
			zap.Int("elements", res.Elements),
			zap.Int("articles", len(res.Articles)),
		)
		return res
	}

	diag := e.Diagnose(doc)
	e.logger.Warn("No articles found",
		zap.String("stage", res.Stage),
		zap.Int("elements", res.Elements),
		zap.Object("diagnostics", diag),
	)
	if res.Articles == nil {
		res.Articles = []*storage.Article{}
	}
	return res
}

// Extract returns the ordered articles found in doc, possibly none.
func (e *Extractor) Extract(doc *goquery.Document) []*storage.Article {
	return e.Run(doc).Articles
}
