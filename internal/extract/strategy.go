package extract

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/pders01/infowatch/internal/storage"
)

const (
	maxFallbackTitle = 100
	minInferredTitle = 5
)

// builder turns a recognised element into an article.
type builder struct {
	resolver resolver
	now      func() time.Time
}

func (b builder) fromElement(sel *goquery.Selection) *storage.Article {
	title := strippedText(sel)
	if title == "" {
		return nil
	}

	link := sel.Find("a[href]").First()
	if link.Length() == 0 {
		link = sel.Parent().Closest("a[href]")
	}
	if link.Length() == 0 {
		return nil
	}
	href, _ := link.Attr("href")
	resolved := b.resolver.resolve(href)
	if resolved == "" {
		return nil
	}

	return &storage.Article{
		Title:        title,
		URL:          resolved,
		Date:         findDate(sel),
		DiscoveredAt: b.now(),
	}
}

// markerStrategy selects elements with a class token accepted by match.
type markerStrategy struct {
	name    string
	builder builder
	match   func(token string) bool
}

func (s markerStrategy) Name() string { return s.name }

func (s markerStrategy) Apply(doc *goquery.Document) Match {
	var m Match
	doc.Find("[class]").Each(func(_ int, sel *goquery.Selection) {
		if !hasClassToken(sel, s.match) {
			return
		}
		m.Elements++
		if a := s.builder.fromElement(sel); a != nil {
			m.Articles = append(m.Articles, a)
		}
	})
	return m
}

func hasClassToken(sel *goquery.Selection, match func(string) bool) bool {
	class, _ := sel.Attr("class")
	for _, token := range strings.Fields(class) {
		if match(token) {
			return true
		}
	}
	return false
}

// linkStrategy infers articles from anchors pointing into the listing's
// section when no marker is present at all.
type linkStrategy struct {
	builder     builder
	pattern     string
	listingPath string
	listingURL  string
}

func (s linkStrategy) Name() string { return StageLinkInference }

func (s linkStrategy) Apply(doc *goquery.Document) Match {
	var m Match
	doc.Find("a[href]").Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		if !strings.Contains(href, s.pattern) || href == s.listingPath || href == s.listingURL {
			return
		}
		m.Elements++

		title := strippedText(link)
		if title == "" {
			if parent := link.Parent().Closest("li, div, article"); parent.Length() > 0 {
				title = truncateRunes(strippedText(parent), maxFallbackTitle)
			}
		}
		if len([]rune(title)) <= minInferredTitle {
			return
		}

		resolved := s.builder.resolver.resolve(href)
		if resolved == "" {
			return
		}
		m.Articles = append(m.Articles, &storage.Article{
			Title:        title,
			URL:          resolved,
			DiscoveredAt: s.builder.now(),
		})
	})
	return m
}
