// Package page turns the announcement listing into a parsed document, either
// by a plain HTTP fetch or by rendering it in a headless browser.
package page

import (
	"context"
	"fmt"
	"io"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
)

// Source yields the parsed document found at a URL.
type Source interface {
	Document(ctx context.Context, url string) (*goquery.Document, error)
}

// Normalize decodes r to UTF-8 using the Content-Type header and any
// <meta charset> in the first kilobyte, then parses it.
func Normalize(r io.Reader, contentType string) (*goquery.Document, error) {
	utf8Reader, err := charset.NewReader(r, contentType)
	if err != nil {
		return nil, fmt.Errorf("detecting charset: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(utf8Reader)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	return doc, nil
}
