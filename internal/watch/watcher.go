// Package watch runs check-and-notify passes over the announcement listing,
// once or on a schedule.
package watch

import (
	"context"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/pders01/infowatch/internal/compose"
	"github.com/pders01/infowatch/internal/config"
	"github.com/pders01/infowatch/internal/detect"
	"github.com/pders01/infowatch/internal/extract"
	"github.com/pders01/infowatch/internal/notify"
	"github.com/pders01/infowatch/internal/page"
	"github.com/pders01/infowatch/internal/search"
	"github.com/pders01/infowatch/internal/storage"
)

// Pass outcomes. An interrupted pass was cut short by context cancellation.
const (
	OutcomeCompleted   = "completed"
	OutcomeBaseline    = "baseline"
	OutcomeNoArticles  = "no-articles"
	OutcomeFailed      = "failed"
	OutcomeInterrupted = "interrupted"
)

// Watcher performs one pass at a time: fetch, extract, detect, notify and
// persist the new snapshot.
type Watcher struct {
	listingURL string
	primary    page.Source
	renderer   page.Source
	extractor  *extract.Extractor
	snapshots  *storage.SnapshotStore
	history    *storage.Store
	index      search.Indexer
	composer   *compose.Composer
	notifier   notify.Notifier
	delay      time.Duration
	now        func() time.Time
	wait       func(ctx context.Context, d time.Duration) error
	logger     *zap.Logger
}

type Option func(*Watcher)

// WithRenderer sets the source used when the plain fetch shows no marker.
func WithRenderer(r page.Source) Option {
	return func(w *Watcher) { w.renderer = r }
}

// WithHistory records deliveries, archived articles and pass reports.
func WithHistory(s *storage.Store) Option {
	return func(w *Watcher) { w.history = s }
}

// WithIndex keeps a search index up to date with every archived article.
func WithIndex(i search.Indexer) Option {
	return func(w *Watcher) { w.index = i }
}

func WithClock(now func() time.Time) Option {
	return func(w *Watcher) { w.now = now }
}

func New(cfg *config.Config, primary page.Source, notifier notify.Notifier, logger *zap.Logger, opts ...Option) (*Watcher, error) {
	extractor, err := extract.New(extract.Options{
		BaseURL:     cfg.Site.BaseURL,
		ListingURL:  cfg.Site.ListingURL,
		Marker:      cfg.Site.Marker,
		LinkPattern: cfg.Site.LinkPattern,
	}, logger.Named("extract"))
	if err != nil {
		return nil, fmt.Errorf("building extractor: %w", err)
	}

	w := &Watcher{
		listingURL: cfg.Site.ListingURL,
		primary:    primary,
		extractor:  extractor,
		snapshots:  storage.NewSnapshotStore(cfg.State.Path),
		composer:   compose.New(cfg.Message.MaxLength, cfg.Message.Slack, cfg.Message.Header),
		notifier:   notifier,
		delay:      cfg.Schedule.DeliveryDelay,
		now:        time.Now,
		wait:       sleep,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(w)
	}
	extractor.SetClock(w.now)
	return w, nil
}

// Extractor exposes the configured extractor, for previews.
func (w *Watcher) Extractor() *extract.Extractor {
	return w.extractor
}

// Composer exposes the configured composer, for previews.
func (w *Watcher) Composer() *compose.Composer {
	return w.composer
}

// Snapshots exposes the snapshot store.
func (w *Watcher) Snapshots() *storage.SnapshotStore {
	return w.snapshots
}

// Fetch loads the listing, falling back to the renderer when the exact
// marker is absent from the fetched page.
func (w *Watcher) Fetch(ctx context.Context) (*goquery.Document, error) {
	doc, err := w.primary.Document(ctx, w.listingURL)
	if err != nil {
		return nil, fmt.Errorf("fetching listing: %w", err)
	}

	if w.renderer != nil && w.extractor.MarkerCount(doc) == 0 {
		w.logger.Info("Marker not found in fetched page, rendering", zap.String("url", w.listingURL))
		rendered, renderErr := w.renderer.Document(ctx, w.listingURL)
		switch {
		case renderErr == nil:
			doc = rendered
		case ctx.Err() != nil:
			return nil, ctx.Err()
		default:
			w.logger.Warn("Rendering failed, using fetched page", zap.Error(renderErr))
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return doc, nil
}

// Scan fetches the listing and extracts articles without touching any state.
func (w *Watcher) Scan(ctx context.Context) (extract.Result, error) {
	doc, err := w.Fetch(ctx)
	if err != nil {
		return extract.Result{}, err
	}
	return w.extractor.Run(doc), nil
}

// RunPass executes one pass. A page that cannot be fetched counts as a page
// with no articles. Context cancellation aborts the pass before the snapshot
// is written, so an interrupted pass is repeated in full.
func (w *Watcher) RunPass(ctx context.Context) (*storage.PassReport, error) {
	report := &storage.PassReport{Started: w.now()}

	res, err := w.Scan(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return w.interrupt(report, ctx.Err())
		}
		w.logger.Warn("Fetching listing failed, treating as no articles",
			zap.String("url", w.listingURL),
			zap.Error(err),
		)
		report.Outcome = OutcomeNoArticles
		w.finish(report)
		return report, nil
	}
	report.Stage = res.Stage
	report.Extracted = len(res.Articles)

	if len(res.Articles) == 0 {
		w.logger.Warn("No articles extracted, leaving state untouched")
		report.Outcome = OutcomeNoArticles
		w.finish(report)
		return report, nil
	}

	snapshot, err := w.snapshots.Load()
	if err != nil {
		w.logger.Warn("Snapshot unreadable, treating as empty",
			zap.String("path", w.snapshots.Path()),
			zap.Error(err),
		)
	}

	detected := detect.Detect(res.Articles, snapshot.Articles)
	report.FirstRun = detected.FirstRun
	report.New = len(detected.New)

	if detected.FirstRun {
		if err := w.snapshots.Save(res.Articles, w.now()); err != nil {
			report.Outcome = OutcomeFailed
			w.finish(report)
			return report, fmt.Errorf("saving snapshot: %w", err)
		}
		w.logger.Info("Baseline recorded, no notifications on first run",
			zap.Int("articles", len(res.Articles)),
		)
		w.archive(res.Articles)
		report.Outcome = OutcomeBaseline
		w.finish(report)
		return report, nil
	}

	w.logger.Info("Checked listing",
		zap.Int("articles", len(res.Articles)),
		zap.Int("new", len(detected.New)),
	)

	for _, a := range detected.New {
		if err := ctx.Err(); err != nil {
			return w.interrupt(report, err)
		}

		id, notifyErr := w.notifier.Notify(ctx, w.composer.Compose(a))
		if notifyErr != nil && ctx.Err() != nil {
			return w.interrupt(report, ctx.Err())
		}
		w.record(a, id, notifyErr)
		if notifyErr != nil {
			report.Failed++
			w.logger.Error("Delivery failed",
				zap.String("url", a.URL),
				zap.String("title", a.Title),
				zap.Error(notifyErr),
			)
		} else {
			report.Delivered++
			w.logger.Info("Delivered", zap.String("url", a.URL), zap.String("id", id))
		}

		if err := w.wait(ctx, w.delay); err != nil {
			return w.interrupt(report, err)
		}
	}

	if err := w.snapshots.Save(res.Articles, w.now()); err != nil {
		report.Outcome = OutcomeFailed
		w.finish(report)
		return report, fmt.Errorf("saving snapshot: %w", err)
	}
	w.archive(res.Articles)

	report.Outcome = OutcomeCompleted
	w.finish(report)
	return report, nil
}

func (w *Watcher) record(a *storage.Article, id string, deliveryErr error) {
	if w.history == nil {
		return
	}
	d := &storage.Delivery{
		URL:         a.URL,
		Title:       a.Title,
		PostID:      id,
		Delivered:   deliveryErr == nil,
		AttemptedAt: w.now(),
	}
	if deliveryErr != nil {
		d.Error = deliveryErr.Error()
	}
	if err := w.history.RecordDelivery(d); err != nil {
		w.logger.Warn("Recording delivery failed", zap.Error(err))
	}
}

// archive updates the history store and search index. Failures are logged
// only; neither takes part in detection.
func (w *Watcher) archive(articles []*storage.Article) {
	seenAt := w.now()
	archived := make([]*storage.ArchivedArticle, 0, len(articles))

	if w.history != nil {
		if err := w.history.ArchiveArticles(articles, seenAt); err != nil {
			w.logger.Warn("Archiving articles failed", zap.Error(err))
		}
		for _, a := range articles {
			rec, err := w.history.GetArchivedArticle(a.URL)
			if err != nil {
				rec = &storage.ArchivedArticle{Article: *a, FirstSeen: seenAt, LastSeen: seenAt}
			}
			archived = append(archived, rec)
		}
	} else {
		for _, a := range articles {
			archived = append(archived, &storage.ArchivedArticle{Article: *a, FirstSeen: seenAt, LastSeen: seenAt})
		}
	}

	if w.index != nil {
		if err := w.index.IndexArticles(archived); err != nil {
			w.logger.Warn("Indexing articles failed", zap.Error(err))
		}
	}
}

func (w *Watcher) interrupt(report *storage.PassReport, err error) (*storage.PassReport, error) {
	w.logger.Warn("Pass interrupted, snapshot not written", zap.Error(err))
	report.Outcome = OutcomeInterrupted
	w.finish(report)
	return report, err
}

func (w *Watcher) finish(report *storage.PassReport) {
	report.Finished = w.now()
	if w.history == nil {
		return
	}
	if err := w.history.SavePassReport(report); err != nil {
		w.logger.Warn("Saving pass report failed", zap.Error(err))
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
