// Package detect decides which extracted articles have not been seen before.
package detect

import "github.com/pders01/infowatch/internal/storage"

// Result holds the articles not seen on the previous pass, in page order.
type Result struct {
	// FirstRun is set when there was no previous snapshot to compare with.
	FirstRun bool
	// New holds unseen articles in extraction order.
	New []*storage.Article
}

// Detect compares current against the articles of the previous pass. URLs
// are compared by exact string equality.
func Detect(current, previous []*storage.Article) Result {
	if len(previous) == 0 {
		return Result{FirstRun: true, New: []*storage.Article{}}
	}

	seen := make(map[string]struct{}, len(previous))
	for _, a := range previous {
		seen[a.URL] = struct{}{}
	}

	fresh := []*storage.Article{}
	for _, a := range current {
		if a.URL == "" {
			continue
		}
		if _, ok := seen[a.URL]; ok {
			continue
		}
		fresh = append(fresh, a)
	}
	return Result{New: fresh}
}
