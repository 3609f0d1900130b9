package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/facility-freshness/internal/domain"
	"github.com/couchcryptid/facility-freshness/internal/observability"
	"github.com/couchcryptid/facility-freshness/internal/pipeline"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockCatalog struct {
	calls atomic.Int64
	fetch func(ctx context.Context, call int64) ([]domain.CatalogRecord, error)
}

func (m *mockCatalog) FetchCatalog(ctx context.Context) ([]domain.CatalogRecord, error) {
	return m.fetch(ctx, m.calls.Add(1))
}

type mockLinks struct {
	calls atomic.Int64
	fetch func(ctx context.Context) ([]domain.LinkRecord, error)
}

func (m *mockLinks) FetchLinkSheet(ctx context.Context) ([]domain.LinkRecord, error) {
	m.calls.Add(1)
	return m.fetch(ctx)
}

type mockPublisher struct {
	mu        sync.Mutex
	published []*domain.Snapshot
	err       error
}

func (m *mockPublisher) PublishSnapshot(_ context.Context, snap *domain.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, snap)
	return m.err
}

// --- fixtures ---

var testNow = time.Date(2024, time.February, 15, 0, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func staticCatalog(records ...domain.CatalogRecord) *mockCatalog {
	return &mockCatalog{fetch: func(ctx context.Context, _ int64) ([]domain.CatalogRecord, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return records, nil
	}}
}

func staticLinks(records ...domain.LinkRecord) *mockLinks {
	return &mockLinks{fetch: func(ctx context.Context) ([]domain.LinkRecord, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return records, nil
	}}
}

func failingLinks(err error) *mockLinks {
	return &mockLinks{fetch: func(context.Context) ([]domain.LinkRecord, error) {
		return nil, err
	}}
}

func defaultCatalog() *mockCatalog {
	return staticCatalog(
		domain.CatalogRecord{ID: " ab-01 ", Name: "Hospital A", Entity: "SONORA"},
		domain.CatalogRecord{ID: "AB-02", Name: "Hospital B", Entity: "SONORA"},
	)
}

func defaultLinks() *mockLinks {
	return staticLinks(
		domain.LinkRecord{ID: "AB-01", DocumentURL: strPtr("http://x/doc"), DocumentDate: strPtr("01-01-2024")},
		domain.LinkRecord{ID: "ZZ-99", DocumentURL: strPtr("http://x/orphan"), DocumentDate: strPtr("01-02-2024")},
	)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newReconciler(c pipeline.CatalogFetcher, l pipeline.LinkSheetFetcher) (*pipeline.Reconciler, *observability.Metrics, *clockwork.FakeClock) {
	metrics := observability.NewMetricsForTesting()
	clock := clockwork.NewFakeClockAt(testNow)
	r := pipeline.New(c, l, domain.NewClassifier(domain.DatePolicyStrict), discardLogger(), metrics).
		WithClock(clock)
	return r, metrics, clock
}

// --- tests ---

func TestReconciler_Refresh_Success(t *testing.T) {
	r, metrics, _ := newReconciler(defaultCatalog(), defaultLinks())

	snap, err := r.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, uint64(1), snap.Generation)
	assert.Equal(t, testNow, snap.FetchedAt)
	assert.Equal(t, 2, snap.CatalogCount)
	assert.Equal(t, 2, snap.LinkCount)
	require.Len(t, snap.Records, 2)
	assert.Equal(t, &domain.Freshness{Status: domain.StatusStale, AgeDays: 45}, snap.Records[0].Freshness)
	assert.Nil(t, snap.Records[1].DocumentURL)

	current, err := r.Current()
	require.NoError(t, err)
	assert.Same(t, snap, current)
	require.NoError(t, r.CheckReadiness(context.Background()))

	assert.InDelta(t, 1, testutil.ToFloat64(metrics.Refreshes.WithLabelValues("success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.SnapshotGeneration), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.SnapshotRecords.WithLabelValues("merged")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.FreshnessRecords.WithLabelValues("STALE")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.FreshnessRecords.WithLabelValues("MISSING")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.FreshnessRecords.WithLabelValues("FRESH")), 0)
	assert.InDelta(t, float64(testNow.Unix()), testutil.ToFloat64(metrics.LastSuccess), 0)
}

func TestReconciler_NotReadyBeforeFirstRefresh(t *testing.T) {
	r, _, _ := newReconciler(defaultCatalog(), defaultLinks())

	_, err := r.Current()
	require.ErrorIs(t, err, pipeline.ErrNoSnapshot)
	require.ErrorIs(t, r.CheckReadiness(context.Background()), pipeline.ErrNoSnapshot)
}

func TestReconciler_Refresh_UsesClockForClassification(t *testing.T) {
	r, _, _ := newReconciler(defaultCatalog(), defaultLinks())
	r.WithClock(clockwork.NewFakeClockAt(time.Date(2024, time.January, 6, 12, 0, 0, 0, time.UTC)))

	snap, err := r.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.StatusFresh, snap.Records[0].Freshness.Status)
	assert.Equal(t, 6, snap.Records[0].Freshness.AgeDays)
}

func TestReconciler_Refresh_CatalogFailureClearsRecords(t *testing.T) {
	healthy := true
	catalog := &mockCatalog{fetch: func(context.Context, int64) ([]domain.CatalogRecord, error) {
		if healthy {
			return []domain.CatalogRecord{{ID: "AB-01"}}, nil
		}
		return nil, errors.New("status 500")
	}}
	r, metrics, _ := newReconciler(catalog, defaultLinks())

	_, err := r.Refresh(context.Background())
	require.NoError(t, err)

	healthy = false
	snap, err := r.Refresh(context.Background())
	require.Error(t, err)
	assert.Nil(t, snap)
	assert.Contains(t, err.Error(), "fetch catalog")

	current, currentErr := r.Current()
	assert.Nil(t, current, "a failed cycle must not leave the previous records visible")
	require.Error(t, currentErr)
	assert.Contains(t, currentErr.Error(), "status 500")
	require.Error(t, r.CheckReadiness(context.Background()))

	assert.InDelta(t, 1, testutil.ToFloat64(metrics.Refreshes.WithLabelValues("error")), 0)
}

func TestReconciler_Refresh_LinkFailureCancelsCatalog(t *testing.T) {
	catalogCancelled := make(chan struct{})
	catalog := &mockCatalog{fetch: func(ctx context.Context, _ int64) ([]domain.CatalogRecord, error) {
		<-ctx.Done()
		close(catalogCancelled)
		return nil, ctx.Err()
	}}
	linkErr := errors.New("sheet unavailable")
	r, _, _ := newReconciler(catalog, failingLinks(linkErr))

	_, err := r.Refresh(context.Background())
	require.ErrorIs(t, err, linkErr)

	select {
	case <-catalogCancelled:
	case <-time.After(time.Second):
		t.Fatal("catalog fetch was not cancelled")
	}
}

func TestReconciler_Refresh_NewerRefreshSupersedesOlder(t *testing.T) {
	firstStarted := make(chan struct{})
	catalog := &mockCatalog{fetch: func(ctx context.Context, call int64) ([]domain.CatalogRecord, error) {
		if call == 1 {
			close(firstStarted)
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return []domain.CatalogRecord{{ID: "AB-01"}}, nil
	}}
	r, metrics, _ := newReconciler(catalog, defaultLinks())

	firstErr := make(chan error, 1)
	go func() {
		_, err := r.Refresh(context.Background())
		firstErr <- err
	}()
	<-firstStarted

	snap, err := r.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), snap.Generation)

	select {
	case err := <-firstErr:
		require.ErrorIs(t, err, pipeline.ErrSuperseded)
	case <-time.After(time.Second):
		t.Fatal("first refresh did not return")
	}

	current, err := r.Current()
	require.NoError(t, err)
	assert.Same(t, snap, current)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.Refreshes.WithLabelValues("superseded")), 0)
}

func TestReconciler_Refresh_CallerCancelledKeepsState(t *testing.T) {
	r, _, _ := newReconciler(defaultCatalog(), defaultLinks())
	snap, err := r.Refresh(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = r.Refresh(ctx)
	require.ErrorIs(t, err, context.Canceled)

	current, err := r.Current()
	require.NoError(t, err)
	assert.Same(t, snap, current)
}

func TestReconciler_Refresh_Publishes(t *testing.T) {
	pub := &mockPublisher{}
	r, metrics, _ := newReconciler(defaultCatalog(), defaultLinks())
	r.WithPublisher(pub)

	snap, err := r.Refresh(context.Background())
	require.NoError(t, err)

	require.Len(t, pub.published, 1)
	assert.Same(t, snap, pub.published[0])
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.SnapshotsPublished.WithLabelValues("success")), 0)
}

func TestReconciler_Refresh_PublishErrorIsNotFatal(t *testing.T) {
	pub := &mockPublisher{err: errors.New("broker down")}
	r, metrics, _ := newReconciler(defaultCatalog(), defaultLinks())
	r.WithPublisher(pub)

	snap, err := r.Refresh(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, snap)

	_, err = r.Current()
	require.NoError(t, err)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.SnapshotsPublished.WithLabelValues("error")), 0)
}

func TestReconciler_Refresh_FailureDoesNotPublish(t *testing.T) {
	pub := &mockPublisher{}
	r, _, _ := newReconciler(defaultCatalog(), failingLinks(errors.New("boom")))
	r.WithPublisher(pub)

	_, err := r.Refresh(context.Background())
	require.Error(t, err)
	assert.Empty(t, pub.published)
}

func TestReconciler_Run_RefreshesOnInterval(t *testing.T) {
	catalog := defaultCatalog()
	r, _, clock := newReconciler(catalog, defaultLinks())
	r.WithInterval(15 * time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool { return catalog.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	blockCtx, blockCancel := context.WithTimeout(ctx, time.Second)
	defer blockCancel()
	require.NoError(t, clock.BlockUntilContext(blockCtx, 1))

	clock.Advance(15 * time.Minute)
	require.Eventually(t, func() bool { return catalog.calls.Load() == 2 }, time.Second, 5*time.Millisecond)

	snap, err := r.Current()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), snap.Generation)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}

func TestReconciler_Run_ZeroIntervalRefreshesOnce(t *testing.T) {
	catalog := defaultCatalog()
	r, _, _ := newReconciler(catalog, defaultLinks())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, err := r.Current()
		return err == nil
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, int64(1), catalog.calls.Load())
}

func TestReconciler_Run_KeepsGoingAfterFailure(t *testing.T) {
	catalog := &mockCatalog{fetch: func(_ context.Context, call int64) ([]domain.CatalogRecord, error) {
		if call == 1 {
			return nil, errors.New("temporarily down")
		}
		return []domain.CatalogRecord{{ID: "AB-01"}}, nil
	}}
	r, _, clock := newReconciler(catalog, defaultLinks())
	r.WithInterval(time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = r.Run(ctx) }()

	require.Eventually(t, func() bool { return catalog.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	blockCtx, blockCancel := context.WithTimeout(ctx, time.Second)
	defer blockCancel()
	require.NoError(t, clock.BlockUntilContext(blockCtx, 1))

	clock.Advance(time.Minute)
	require.Eventually(t, func() bool {
		_, err := r.Current()
		return err == nil
	}, time.Second, 5*time.Millisecond)
}
