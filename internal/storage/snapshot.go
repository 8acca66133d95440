package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// timestampLayouts are tried in order when reading persisted timestamps. The
// zone-less layouts accept files written by older tooling.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

type snapshotFile struct {
	LastCheck    string          `json:"last_check"`
	LastArticles []snapshotEntry `json:"last_articles"`
}

type snapshotEntry struct {
	Title     string `json:"title"`
	URL       string `json:"url"`
	Date      string `json:"date"`
	Timestamp string `json:"timestamp"`
}

// SnapshotStore persists the last-seen article set as a JSON document.
type SnapshotStore struct {
	path string
}

func NewSnapshotStore(path string) *SnapshotStore {
	return &SnapshotStore{path: path}
}

func (s *SnapshotStore) Path() string {
	return s.path
}

// Load reads the snapshot. A missing file yields an empty snapshot and a nil
// error. A malformed file also yields an empty snapshot, together with an
// error describing the problem so callers can log it; the snapshot is always
// usable.
func (s *SnapshotStore) Load() (*Snapshot, error) {
	empty := &Snapshot{Articles: []*Article{}}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return empty, nil
		}
		return empty, fmt.Errorf("reading snapshot: %w", err)
	}

	var file snapshotFile
	if err := json.Unmarshal(data, &file); err != nil {
		return empty, fmt.Errorf("decoding snapshot %s: %w", s.path, err)
	}

	snap := &Snapshot{
		LastCheck: parseTimestamp(file.LastCheck),
		Articles:  make([]*Article, 0, len(file.LastArticles)),
	}
	for _, e := range file.LastArticles {
		snap.Articles = append(snap.Articles, &Article{
			Title:        e.Title,
			URL:          e.URL,
			Date:         e.Date,
			DiscoveredAt: parseTimestamp(e.Timestamp),
		})
	}
	return snap, nil
}

func (s *Snapshot) encode() ([]byte, error) {
	file := snapshotFile{
		LastCheck:    formatTimestamp(s.LastCheck),
		LastArticles: make([]snapshotEntry, 0, len(s.Articles)),
	}
	for _, a := range s.Articles {
		file.LastArticles = append(file.LastArticles, snapshotEntry{
			Title:     a.Title,
			URL:       a.URL,
			Date:      a.Date,
			Timestamp: formatTimestamp(a.DiscoveredAt),
		})
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(file); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes articles as the new snapshot stamped with checkedAt. The
// document goes to a temporary file in the same directory which is then
// renamed over the previous snapshot.
func (s *SnapshotStore) Save(articles []*Article, checkedAt time.Time) error {
	snap := &Snapshot{LastCheck: checkedAt, Articles: articles}
	data, err := snap.encode()
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp snapshot: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replacing snapshot: %w", err)
	}
	return nil
}

func parseTimestamp(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, v, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}
