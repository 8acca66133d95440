package storage

import (
	"time"
)

// Article is a single announcement discovered on the watched page.
// Two articles are the same article iff their URLs are equal.
type Article struct {
	Title        string    `json:"title"`
	URL          string    `json:"url"`
	Date         string    `json:"date"`
	DiscoveredAt time.Time `json:"discovered_at"`
}

// Snapshot is the complete extraction result of the most recent pass.
type Snapshot struct {
	LastCheck time.Time
	Articles  []*Article
}

// IsEmpty reports whether the snapshot holds no articles, which marks a first run.
func (s *Snapshot) IsEmpty() bool {
	return s == nil || len(s.Articles) == 0
}

type ArchivedArticle struct {
	Article
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}

type Delivery struct {
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	PostID      string    `json:"post_id"`
	Delivered   bool      `json:"delivered"`
	Error       string    `json:"error,omitempty"`
	AttemptedAt time.Time `json:"attempted_at"`
}

// PassReport summarises one check-and-notify pass.
type PassReport struct {
	Started   time.Time `json:"started"`
	Finished  time.Time `json:"finished"`
	Stage     string    `json:"stage"`
	Outcome   string    `json:"outcome"`
	Extracted int       `json:"extracted"`
	New       int       `json:"new"`
	Delivered int       `json:"delivered"`
	Failed    int       `json:"failed"`
	FirstRun  bool      `json:"first_run"`
}
