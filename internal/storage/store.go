package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"
)

var ErrNotFound = errors.New("not found")

var (
	articlesBucket   = []byte("articles")
	deliveriesBucket = []byte("deliveries")
	metaBucket       = []byte("metadata")

	lastPassKey = []byte("last_pass")
)

// Store keeps the long-lived history: every article ever seen and every
// delivery attempt. It never participates in new-article detection.
type Store struct {
	db *bolt.DB
}

func NewStore(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{articlesBucket, deliveriesBucket, metaBucket} {
			if _, createErr := tx.CreateBucketIfNotExists(bucket); createErr != nil {
				return createErr
			}
		}
		return nil
	})

	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// ArchiveArticles upserts articles keyed by URL, keeping the first-seen time
// of articles already present.
func (s *Store) ArchiveArticles(articles []*Article, seenAt time.Time) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(articlesBucket)
		for _, a := range articles {
			if a.URL == "" {
				continue
			}
			rec := ArchivedArticle{Article: *a, FirstSeen: seenAt, LastSeen: seenAt}
			if existing := b.Get([]byte(a.URL)); existing != nil {
				var prev ArchivedArticle
				if err := json.Unmarshal(existing, &prev); err == nil && !prev.FirstSeen.IsZero() {
					rec.FirstSeen = prev.FirstSeen
				}
			}
			data, err := json.Marshal(rec)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(a.URL), data); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) GetArchivedArticle(url string) (*ArchivedArticle, error) {
	var rec ArchivedArticle
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(articlesBucket).Get([]byte(url))
		if data == nil {
			return fmt.Errorf("article %q: %w", url, ErrNotFound)
		}
		return json.Unmarshal(data, &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetArchivedArticles returns archived articles, most recently first seen
// first. A limit of 0 returns everything.
func (s *Store) GetArchivedArticles(limit int) ([]*ArchivedArticle, error) {
	var articles []*ArchivedArticle
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(articlesBucket).ForEach(func(_ []byte, v []byte) error {
			var rec ArchivedArticle
			if err := json.Unmarshal(v, &rec); err != nil {
				return nil
			}
			articles = append(articles, &rec)
			return nil
		})
	})
	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].FirstSeen.After(articles[j].FirstSeen)
	})
	if limit > 0 && len(articles) > limit {
		articles = articles[:limit]
	}
	return articles, err
}

// RecordDelivery appends a delivery attempt to the log.
func (s *Store) RecordDelivery(d *Delivery) error {
	if d.AttemptedAt.IsZero() {
		d.AttemptedAt = time.Now()
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(d)
		if err != nil {
			return err
		}
		return tx.Bucket(deliveriesBucket).Put(deliveryKey(d), data)
	})
}

// GetDeliveries returns the newest deliveries first.
func (s *Store) GetDeliveries(limit int) ([]*Delivery, error) {
	var deliveries []*Delivery
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(deliveriesBucket).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var d Delivery
			if err := json.Unmarshal(v, &d); err != nil {
				continue
			}
			deliveries = append(deliveries, &d)
			if limit > 0 && len(deliveries) >= limit {
				break
			}
		}
		return nil
	})
	return deliveries, err
}

func (s *Store) SavePassReport(r *PassReport) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(r)
		if err != nil {
			return err
		}
		return tx.Bucket(metaBucket).Put(lastPassKey, data)
	})
}

func (s *Store) LastPassReport() (*PassReport, error) {
	var r PassReport
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(metaBucket).Get(lastPassKey)
		if data == nil {
			return fmt.Errorf("last pass: %w", ErrNotFound)
		}
		return json.Unmarshal(data, &r)
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// deliveryKey orders entries chronologically; the URL suffix keeps two
// attempts in the same nanosecond apart.
func deliveryKey(d *Delivery) []byte {
	key := make([]byte, 8, 8+len(d.URL))
	binary.BigEndian.PutUint64(key, uint64(d.AttemptedAt.UnixNano()))
	return append(key, d.URL...)
}
