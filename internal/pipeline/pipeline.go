// Package pipeline reconciles the catalog and link sheet into snapshots and
// keeps the current one available to readers.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/facility-freshness/internal/domain"
	"github.com/couchcryptid/facility-freshness/internal/observability"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrSuperseded is returned by Refresh when a newer refresh started before
	// this one finished. Its result is discarded.
	ErrSuperseded = errors.New("refresh superseded by a newer one")

	// ErrNoSnapshot is returned by Current before the first refresh completes.
	ErrNoSnapshot = errors.New("no snapshot loaded yet")
)

// CatalogFetcher retrieves the facility catalog.
type CatalogFetcher interface {
	FetchCatalog(ctx context.Context) ([]domain.CatalogRecord, error)
}

// LinkSheetFetcher retrieves the document link sheet.
type LinkSheetFetcher interface {
	FetchLinkSheet(ctx context.Context) ([]domain.LinkRecord, error)
}

// SnapshotPublisher receives every successfully reconciled snapshot.
type SnapshotPublisher interface {
	PublishSnapshot(ctx context.Context, snap *domain.Snapshot) error
}

// state is what readers observe: either a snapshot or the error of the last
// failed refresh, never both.
type state struct {
	snapshot *domain.Snapshot
	err      error
}

// Reconciler runs refresh cycles and holds the current state.
type Reconciler struct {
	catalog    CatalogFetcher
	links      LinkSheetFetcher
	publisher  SnapshotPublisher
	classifier domain.Classifier
	clock      clockwork.Clock
	interval   time.Duration
	logger     *slog.Logger
	metrics    *observability.Metrics

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc

	current atomic.Pointer[state]
}

// New creates a Reconciler over the two sources. It refreshes only when asked
// until an interval is set with WithInterval.
func New(catalog CatalogFetcher, links LinkSheetFetcher, classifier domain.Classifier, logger *slog.Logger, metrics *observability.Metrics) *Reconciler {
	return &Reconciler{
		catalog:    catalog,
		links:      links,
		classifier: classifier,
		clock:      domain.Clock(),
		logger:     logger,
		metrics:    metrics,
	}
}

// WithPublisher sets a publisher for new snapshots.
func (r *Reconciler) WithPublisher(p SnapshotPublisher) *Reconciler {
	r.publisher = p
	return r
}

// WithClock replaces the clock used for classification and the refresh ticker.
func (r *Reconciler) WithClock(c clockwork.Clock) *Reconciler {
	r.clock = c
	return r
}

// WithInterval sets the periodic refresh interval used by Run. Zero or negative
// disables periodic refreshes.
func (r *Reconciler) WithInterval(d time.Duration) *Reconciler {
	r.interval = d
	return r
}

// Current returns the current snapshot, the error of the last failed refresh,
// or ErrNoSnapshot before any refresh has finished.
func (r *Reconciler) Current() (*domain.Snapshot, error) {
	st := r.current.Load()
	if st == nil {
		return nil, ErrNoSnapshot
	}
	return st.snapshot, st.err
}

// CheckReadiness returns nil once a healthy snapshot is current.
func (r *Reconciler) CheckReadiness(_ context.Context) error {
	if _, err := r.Current(); err != nil {
		return fmt.Errorf("no healthy snapshot: %w", err)
	}
	return nil
}

// Refresh runs one reload cycle. Both sources are fetched concurrently; if
// either fails the cycle fails and the current state becomes that error with
// no records. Starting a refresh cancels any refresh still in flight, and only
// the newest one may replace the current state.
func (r *Reconciler) Refresh(ctx context.Context) (*domain.Snapshot, error) {
	gen, fetchCtx, done := r.begin(ctx)
	defer done()

	start := r.clock.Now()
	r.logger.Debug("refresh started", "generation", gen)

	var (
		catalog []domain.CatalogRecord
		links   []domain.LinkRecord
	)
	g, gctx := errgroup.WithContext(fetchCtx)
	g.Go(func() error {
		recs, err := r.catalog.FetchCatalog(gctx)
		if err != nil {
			return fmt.Errorf("fetch catalog: %w", err)
		}
		catalog = recs
		return nil
	})
	g.Go(func() error {
		recs, err := r.links.FetchLinkSheet(gctx)
		if err != nil {
			return fmt.Errorf("fetch link sheet: %w", err)
		}
		links = recs
		return nil
	})
	err := g.Wait()

	if !r.isCurrent(gen) {
		return nil, r.superseded(gen)
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !r.commit(gen, &state{err: err}) {
			return nil, r.superseded(gen)
		}
		r.metrics.Refreshes.WithLabelValues("error").Inc()
		r.logger.Error("refresh failed", "generation", gen, "error", err)
		return nil, err
	}

	snap := domain.BuildSnapshot(gen, catalog, links, r.clock.Now(), r.classifier)
	if !r.commit(gen, &state{snapshot: snap}) {
		return nil, r.superseded(gen)
	}
	r.recordSuccess(snap)
	r.logger.Info("refresh completed",
		"generation", gen,
		"snapshot_id", snap.ID,
		"catalog", snap.CatalogCount,
		"links", snap.LinkCount,
		"duration", r.clock.Since(start),
	)

	r.publish(ctx, snap)
	return snap, nil
}

// Run refreshes once, then on every tick of the configured interval, until ctx
// is cancelled. Refresh failures are logged and do not stop the loop.
func (r *Reconciler) Run(ctx context.Context) error {
	r.logger.Info("reconciler started", "interval", r.interval)
	_, _ = r.Refresh(ctx)

	if r.interval <= 0 {
		<-ctx.Done()
		r.logger.Info("reconciler stopping", "reason", ctx.Err())
		return nil
	}

	ticker := r.clock.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reconciler stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			_, _ = r.Refresh(ctx)
		}
	}
}

// begin claims a new generation and cancels the previous refresh, if any.
func (r *Reconciler) begin(ctx context.Context) (uint64, context.Context, func()) {
	fetchCtx, cancel := context.WithCancel(ctx)

	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	r.generation++
	gen := r.generation
	r.cancel = cancel
	r.mu.Unlock()

	return gen, fetchCtx, func() {
		r.mu.Lock()
		if r.generation == gen {
			r.cancel = nil
		}
		r.mu.Unlock()
		cancel()
	}
}

func (r *Reconciler) isCurrent(gen uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generation == gen
}

// commit stores st if gen is still the newest generation.
func (r *Reconciler) commit(gen uint64, st *state) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.generation != gen {
		return false
	}
	r.current.Store(st)
	return true
}

func (r *Reconciler) superseded(gen uint64) error {
	r.metrics.Refreshes.WithLabelValues("superseded").Inc()
	r.logger.Debug("refresh superseded", "generation", gen)
	return ErrSuperseded
}

func (r *Reconciler) recordSuccess(snap *domain.Snapshot) {
	r.metrics.Refreshes.WithLabelValues("success").Inc()
	r.metrics.SnapshotGeneration.Set(float64(snap.Generation))
	r.metrics.LastSuccess.Set(float64(snap.FetchedAt.Unix()))
	r.metrics.SnapshotRecords.WithLabelValues("catalog").Set(float64(snap.CatalogCount))
	r.metrics.SnapshotRecords.WithLabelValues("links").Set(float64(snap.LinkCount))
	r.metrics.SnapshotRecords.WithLabelValues("merged").Set(float64(len(snap.Records)))

	counts := map[string]int{
		string(domain.StatusFresh):   0,
		string(domain.StatusWarning): 0,
		string(domain.StatusStale):   0,
		domain.LabelUnclassified:     0,
		domain.LabelMissing:          0,
	}
	for _, rec := range snap.Records {
		counts[domain.FreshnessLabel(rec)]++
	}
	for label, n := range counts {
		r.metrics.FreshnessRecords.WithLabelValues(label).Set(float64(n))
	}
}

func (r *Reconciler) publish(ctx context.Context, snap *domain.Snapshot) {
	if r.publisher == nil {
		return
	}
	if err := r.publisher.PublishSnapshot(ctx, snap); err != nil {
		r.metrics.SnapshotsPublished.WithLabelValues("error").Inc()
		r.logger.Error("publish snapshot failed", "snapshot_id", snap.ID, "error", err)
		return
	}
	r.metrics.SnapshotsPublished.WithLabelValues("success").Inc()
}
