package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var datePattern = regexp.MustCompile(`\d{4}[/\-年]\d{1,2}[/\-月]\d{1,2}日?`)

// strippedText concatenates every text node under sel, each trimmed of
// surrounding whitespace. Script, style and comment content is ignored.
func strippedText(sel *goquery.Selection) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(strings.TrimSpace(n.Data))
			return
		case html.CommentNode:
			return
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return b.String()
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// findDate looks for a date near sel: first an element in the enclosing
// container whose class mentions date or time, then a date-shaped string in
// the container text.
func findDate(sel *goquery.Selection) string {
	container := sel.Parent().Closest("li, div, article, section")
	if container.Length() == 0 {
		return ""
	}

	var date string
	container.Find("[class]").EachWithBreak(func(_ int, candidate *goquery.Selection) bool {
		if hasClassToken(candidate, isDateClass) {
			date = strippedText(candidate)
			return false
		}
		return true
	})
	if date != "" {
		return date
	}

	return datePattern.FindString(container.Text())
}

func isDateClass(token string) bool {
	token = strings.ToLower(token)
	return strings.Contains(token, "date") || strings.Contains(token, "time")
}

// resolver makes extracted hrefs absolute.
type resolver struct {
	// origin is scheme://host of the site, without a trailing slash.
	origin string
	// listing is prepended verbatim to hrefs that are neither rooted nor absolute.
	listing string
}

func (r resolver) resolve(href string) string {
	href = strings.TrimSpace(href)
	switch {
	case href == "":
		return ""
	case strings.HasPrefix(href, "/"):
		return r.origin + href
	case strings.HasPrefix(href, "http"):
		return href
	default:
		return r.listing + href
	}
}
