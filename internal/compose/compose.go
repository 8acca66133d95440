// Package compose renders an article into a length-bounded announcement post.
package compose

import (
	"strings"

	"github.com/pders01/infowatch/internal/storage"
)

const (
	DefaultMaxLength = 280
	DefaultSlack     = 20
	DefaultHeader    = "【YUKI INFO更新】"

	ellipsis = "..."
	// separatorCost accounts for the line break and spacing around a line.
	separatorCost = 3
)

// Composer builds post bodies. Lengths are counted in Unicode code points.
type Composer struct {
	MaxLength int
	Slack     int
	Header    string
}

func New(maxLength, slack int, header string) *Composer {
	return &Composer{MaxLength: maxLength, Slack: slack, Header: header}
}

func Default() *Composer {
	return New(DefaultMaxLength, DefaultSlack, DefaultHeader)
}

// Available is the number of characters left for the title of a.
func (c *Composer) Available(a *storage.Article) int {
	available := c.MaxLength - (runeLen(a.URL) + separatorCost) - c.Slack
	if a.Date != "" {
		available -= runeLen(a.Date) + separatorCost
	}
	return available
}

// Compose returns the post body for a, truncating the title with an
// ellipsis when it does not fit.
func (c *Composer) Compose(a *storage.Article) string {
	title := a.Title
	available := c.Available(a)
	if runeLen(title) > available {
		keep := max(available-len(ellipsis), 0)
		title = string([]rune(title)[:keep]) + ellipsis
	}

	lines := []string{c.Header, title}
	if a.Date != "" {
		lines = append(lines, a.Date)
	}
	lines = append(lines, a.URL)
	return strings.Join(lines, "\n")
}

func runeLen(s string) int {
	return len([]rune(s))
}
