package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dyike/ivy/internal/discovery"
	"github.com/dyike/ivy/internal/models"
	"github.com/dyike/ivy/internal/storage"
	"github.com/dyike/ivy/internal/storage/sqlite"
)

type recordingPublisher struct {
	mu       sync.Mutex
	swipes   []models.SwipeData
	rankings []models.RecommendationData
	fail     error
}

func (p *recordingPublisher) PublishSwipe(_ context.Context, d models.SwipeData) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return p.fail
	}
	p.swipes = append(p.swipes, d)
	return nil
}

func (p *recordingPublisher) PublishRecommendations(_ context.Context, d models.RecommendationData) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rankings = append(p.rankings, d)
	return nil
}

// failingStore fails every Save while delegating the rest.
type failingStore struct {
	storage.CandidateStore
}

func (failingStore) Save(context.Context, ...*models.StockCandidate) error {
	return errors.New("disk full")
}

// brokenQueryStore fails Query once broken is set.
type brokenQueryStore struct {
	storage.CandidateStore
	broken bool
}

func (s *brokenQueryStore) Query(ctx context.Context, q storage.Query) ([]*models.StockCandidate, error) {
	if s.broken {
		return nil, errors.New("query broken")
	}
	return s.CandidateStore.Query(ctx, q)
}

var fixedNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, opts ...DiscoveryOption) (*DiscoveryService, *sqlite.Store) {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "ivy.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	gen := discovery.NewGenerator(discovery.WithRand(rand.New(rand.NewPCG(3, 4))))
	opts = append([]DiscoveryOption{WithClock(func() time.Time { return fixedNow })}, opts...)
	svc := NewDiscoveryService(store, gen, opts...)
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return svc, store
}

func TestLoadSeedsOnce(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	if n, _ := store.Count(ctx, ""); n != discovery.DefaultBatchSize {
		t.Fatalf("expected %d seeded candidates, got %d", discovery.DefaultBatchSize, n)
	}
	if got := len(svc.Recommendations()); got != discovery.DefaultRecommendLimit {
		t.Fatalf("expected %d recommendations, got %d", discovery.DefaultRecommendLimit, got)
	}

	if err := svc.Load(ctx); err != nil {
		t.Fatalf("second Load: %v", err)
	}
	if n, _ := store.Count(ctx, ""); n != discovery.DefaultBatchSize {
		t.Fatalf("Load reseeded a non-empty store: %d", n)
	}
}

func TestLikeMovesCandidateToPortfolio(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc, _ := newTestService(t, WithPublisher(pub))

	top := svc.Recommendations()[0]
	if err := svc.Like(ctx, top.Symbol); err != nil {
		t.Fatalf("Like: %v", err)
	}

	for _, c := range svc.Recommendations() {
		if c.Symbol == top.Symbol {
			t.Fatalf("liked %s still recommended", top.Symbol)
		}
	}
	portfolio, err := svc.Portfolio(ctx)
	if err != nil {
		t.Fatalf("Portfolio: %v", err)
	}
	if len(portfolio) != 1 || portfolio[0].Symbol != top.Symbol || !portfolio[0].LikedAt.Equal(fixedNow) {
		t.Fatalf("unexpected portfolio %+v", portfolio)
	}
	if len(pub.swipes) != 1 || pub.swipes[0].Action != models.ActionLiked || pub.swipes[0].Symbol != top.Symbol {
		t.Fatalf("unexpected swipe events %+v", pub.swipes)
	}
	last := pub.rankings[len(pub.rankings)-1]
	if last.TotalUnviewed != discovery.DefaultBatchSize-1 || last.Rankings[0].Rank != 1 {
		t.Fatalf("unexpected recommendation event %+v", last)
	}
}

func TestPortfolioOrderedByLikedAt(t *testing.T) {
	ctx := context.Background()
	clock := fixedNow
	svc, _ := newTestService(t, WithClock(func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}))

	for _, sym := range []string{"PLTR", "NVDA", "AMD"} {
		if err := svc.Like(ctx, sym); err != nil {
			t.Fatalf("Like %s: %v", sym, err)
		}
	}
	portfolio, _ := svc.Portfolio(ctx)
	want := []string{"AMD", "NVDA", "PLTR"}
	for i, w := range want {
		if portfolio[i].Symbol != w {
			t.Fatalf("portfolio[%d] = %s, want %s", i, portfolio[i].Symbol, w)
		}
	}
}

func TestDislikeAndStats(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	if err := svc.Dislike(ctx, "oklo"); err != nil {
		t.Fatalf("Dislike: %v", err)
	}
	if err := svc.Like(ctx, "PLTR"); err != nil {
		t.Fatalf("Like: %v", err)
	}
	st, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Total != 12 || st.Liked != 1 || st.Disliked != 1 || st.Unviewed != 10 {
		t.Fatalf("unexpected stats %+v", st)
	}
	disliked, _ := svc.Disliked(ctx)
	if len(disliked) != 1 || disliked[0].Symbol != "OKLO" || disliked[0].DislikedAt == nil {
		t.Fatalf("unexpected disliked %+v", disliked)
	}
}

func TestInvalidTransitions(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	if err := svc.Dislike(ctx, "NVDA"); err != nil {
		t.Fatalf("Dislike: %v", err)
	}
	if err := svc.Like(ctx, "NVDA"); !errors.Is(err, discovery.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if err := svc.Unlike(ctx, "AMD"); !errors.Is(err, discovery.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for unlike of unviewed, got %v", err)
	}
	if err := svc.Like(ctx, "ZZZZ"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUnlikeReturnsCandidateToPool(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	if err := svc.Like(ctx, "TSLA"); err != nil {
		t.Fatalf("Like: %v", err)
	}
	if err := svc.Unlike(ctx, "TSLA"); err != nil {
		t.Fatalf("Unlike: %v", err)
	}
	c, _ := store.Get(ctx, "TSLA")
	if !c.IsUnviewed() || c.LikedAt != nil || c.ViewedAt == nil {
		t.Fatalf("unexpected state after unlike %+v", c)
	}
	if portfolio, _ := svc.Portfolio(ctx); len(portfolio) != 0 {
		t.Fatalf("portfolio not empty: %d", len(portfolio))
	}
}

func TestPersistFailureLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "ivy.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	svc := NewDiscoveryService(failingStore{store}, nil)
	if err := svc.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	before := svc.Recommendations()

	if err := svc.Like(ctx, before[0].Symbol); err == nil {
		t.Fatal("expected persistence error")
	}
	c, _ := store.Get(ctx, before[0].Symbol)
	if !c.IsUnviewed() {
		t.Fatalf("failed save changed stored status to %s", c.Status)
	}
	if got := svc.Recommendations(); len(got) != len(before) || got[0].Symbol != before[0].Symbol {
		t.Fatal("recommendations changed after failed save")
	}
}

func TestPublishFailureKeepsSwipe(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc, store := newTestService(t, WithPublisher(pub))
	pub.fail = errors.New("broker down")

	err := svc.Like(ctx, "NVDA")
	if !errors.Is(err, ErrPublish) {
		t.Fatalf("expected ErrPublish, got %v", err)
	}
	if c, _ := store.Get(ctx, "NVDA"); !c.IsLiked() {
		t.Fatal("swipe lost after publish failure")
	}
}

func TestGenerateMoreUntilExhausted(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	var batches []int
	for {
		batch, err := svc.GenerateMore(ctx)
		if err != nil {
			t.Fatalf("GenerateMore: %v", err)
		}
		if len(batch) == 0 {
			break
		}
		batches = append(batches, len(batch))
	}
	if len(batches) != 2 || batches[0] != 12 || batches[1] != 6 {
		t.Fatalf("unexpected batch sizes %v", batches)
	}
	syms, _ := store.Symbols(ctx)
	if len(syms) != len(discovery.ReferenceSymbols()) {
		t.Fatalf("expected the full pool, got %d symbols", len(syms))
	}
}

func TestSubscribeAndSetLimits(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	var got [][]*models.StockCandidate
	cancel := svc.Subscribe(func(recs []*models.StockCandidate) { got = append(got, recs) })

	svc.SetLimits(0, 3)
	if err := svc.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if len(got) != 1 || len(got[0]) != 3 {
		t.Fatalf("expected one notification with 3 recommendations, got %v", got)
	}

	cancel()
	if err := svc.Dislike(ctx, got[0][0].Symbol); err != nil {
		t.Fatalf("Dislike: %v", err)
	}
	if len(got) != 1 {
		t.Fatal("notified after unsubscribe")
	}
}

func TestRecommendationsAreCopies(t *testing.T) {
	svc, _ := newTestService(t)
	recs := svc.Recommendations()
	recs[0].Status = models.StatusLiked
	if !svc.Recommendations()[0].IsUnviewed() {
		t.Fatal("caller mutation leaked into service state")
	}
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	_ = svc.Like(ctx, "NVDA")
	if _, err := svc.GenerateMore(ctx); err != nil {
		t.Fatalf("GenerateMore: %v", err)
	}

	if err := svc.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if n, _ := store.Count(ctx, ""); n != discovery.DefaultBatchSize {
		t.Fatalf("expected reseeded pool of %d, got %d", discovery.DefaultBatchSize, n)
	}
	if n, _ := store.Count(ctx, models.StatusLiked); n != 0 {
		t.Fatalf("liked survived reset: %d", n)
	}
}

func TestConcurrentSwipes(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- svc.Like(ctx, "PLTR")
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, discovery.ErrInvalidTransition) {
			t.Fatalf("unexpected error %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one successful like, got %d", succeeded)
	}
}

func TestRecomputeFailureIsNotPublishOnly(t *testing.T) {
	ctx := context.Background()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "ivy.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	wrapped := &brokenQueryStore{CandidateStore: store}
	pub := &recordingPublisher{}
	svc := NewDiscoveryService(wrapped, nil, WithPublisher(pub))
	if err := svc.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	top := svc.Recommendations()[0].Symbol

	wrapped.broken = true
	pub.fail = errors.New("broker down")
	err = svc.Like(ctx, top)
	if err == nil {
		t.Fatal("expected an error")
	}
	if PublishOnly(err) {
		t.Fatalf("recompute failure reported as publish-only: %v", err)
	}
	for _, c := range svc.Recommendations() {
		if c.Symbol == top {
			t.Fatalf("liked %s still recommended after failed recompute", top)
		}
	}
	if c, _ := store.Get(ctx, top); !c.IsLiked() {
		t.Fatal("swipe not persisted")
	}
}

func TestPublishOnly(t *testing.T) {
	pubErr := fmt.Errorf("%w: swipe X: down", ErrPublish)
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"publish", pubErr, true},
		{"joined publishes", errors.Join(pubErr, fmt.Errorf("%w: recommendations", ErrPublish)), true},
		{"joined with nil", errors.Join(nil, pubErr), true},
		{"store failure", errors.New("disk full"), false},
		{"store and publish", errors.Join(errors.New("query broken"), pubErr), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PublishOnly(tt.err); got != tt.want {
				t.Fatalf("PublishOnly(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
