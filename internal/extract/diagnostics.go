package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap/zapcore"
)

const (
	maxClassSamples = 5
	maxLinkSamples  = 3
	sampleTextLen   = 50
)

type ElementSample struct {
	Classes []string
	Text    string
}

type LinkSample struct {
	Text string
	Href string
}

// Diagnostics summarises page structure when extraction came up empty. Hint
// is the fragment searched for in class names.
type Diagnostics struct {
	MarkerElements int
	Hint           string
	HintElements   int
	ClassSamples   []ElementSample
	PatternLinks   int
	LinkSamples    []LinkSample
}

// Diagnose inspects doc for near misses of the configured marker and link
// pattern.
func (e *Extractor) Diagnose(doc *goquery.Document) Diagnostics {
	d := Diagnostics{
		MarkerElements: e.MarkerCount(doc),
		Hint:           classHint(e.opts),
	}

	doc.Find("[class]").Each(func(_ int, sel *goquery.Selection) {
		class, _ := sel.Attr("class")
		if !strings.Contains(strings.ToLower(class), d.Hint) {
			return
		}
		d.HintElements++
		if len(d.ClassSamples) < maxClassSamples {
			d.ClassSamples = append(d.ClassSamples, ElementSample{
				Classes: strings.Fields(class),
				Text:    truncateRunes(strippedText(sel), sampleTextLen),
			})
		}
	})

	doc.Find("a[href]").Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		if !strings.Contains(href, e.opts.LinkPattern) {
			return
		}
		d.PatternLinks++
		if len(d.LinkSamples) < maxLinkSamples {
			d.LinkSamples = append(d.LinkSamples, LinkSample{
				Text: truncateRunes(strippedText(link), sampleTextLen),
				Href: href,
			})
		}
	})

	return d
}

// classHint derives the class fragment to look for from the link pattern,
// so "/info/" yields "info".
func classHint(opts Options) string {
	if hint := strings.ToLower(strings.Trim(opts.LinkPattern, "/")); hint != "" {
		return hint
	}
	return strings.ToLower(opts.Marker)
}

func (d Diagnostics) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt("marker_elements", d.MarkerElements)
	enc.AddString("hint", d.Hint)
	enc.AddInt("hint_elements", d.HintElements)
	enc.AddInt("pattern_links", d.PatternLinks)
	if err := enc.AddArray("class_samples", zapcore.ArrayMarshalerFunc(func(arr zapcore.ArrayEncoder) error {
		for _, s := range d.ClassSamples {
			arr.AppendString(strings.Join(s.Classes, " ") + ": " + s.Text)
		}
		return nil
	})); err != nil {
		return err
	}
	return enc.AddArray("link_samples", zapcore.ArrayMarshalerFunc(func(arr zapcore.ArrayEncoder) error {
		for _, s := range d.LinkSamples {
			arr.AppendString(s.Text + " -> " + s.Href)
		}
		return nil
	}))
}
