package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dyike/ivy/internal/discovery"
	"github.com/dyike/ivy/internal/logger"
	"github.com/dyike/ivy/internal/models"
	"github.com/dyike/ivy/internal/notify"
	"github.com/dyike/ivy/internal/storage"
)

var log = logger.New("service")

// ErrPublish marks an error that happened after the state change was
// persisted: the swipe stands, only its event was lost.
var ErrPublish = errors.New("event publish failed")

// Publisher receives domain events. events.NopPublisher satisfies it when no
// broker is configured.
type Publisher interface {
	PublishSwipe(ctx context.Context, data models.SwipeData) error
	PublishRecommendations(ctx context.Context, data models.RecommendationData) error
}

type nopPublisher struct{}

func (nopPublisher) PublishSwipe(context.Context, models.SwipeData) error { return nil }
func (nopPublisher) PublishRecommendations(context.Context, models.RecommendationData) error {
	return nil
}

// Stats counts candidates per status.
type Stats struct {
	Total    int
	Liked    int
	Disliked int
	Unviewed int
}

// DiscoveryService owns the candidate pool: it seeds and extends it, applies
// swipe transitions and keeps the recommendation list current. All mutations
// are serialized.
type DiscoveryService struct {
	store     storage.CandidateStore
	generator *discovery.Generator
	publisher Publisher
	now       func() time.Time

	mu              sync.Mutex
	limit           int
	recommendations []*models.StockCandidate

	subs notify.Registry[[]*models.StockCandidate]
}

type DiscoveryOption func(*DiscoveryService)

func WithPublisher(p Publisher) DiscoveryOption {
	return func(s *DiscoveryService) {
		if p != nil {
			s.publisher = p
		}
	}
}

func WithClock(now func() time.Time) DiscoveryOption {
	return func(s *DiscoveryService) {
		if now != nil {
			s.now = now
		}
	}
}

func WithRecommendLimit(n int) DiscoveryOption {
	return func(s *DiscoveryService) {
		if n > 0 {
			s.limit = n
		}
	}
}

func NewDiscoveryService(store storage.CandidateStore, generator *discovery.Generator, opts ...DiscoveryOption) *DiscoveryService {
	if generator == nil {
		generator = discovery.NewGenerator()
	}
	s := &DiscoveryService{
		store:     store,
		generator: generator,
		publisher: nopPublisher{},
		now:       time.Now,
		limit:     discovery.DefaultRecommendLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load seeds the pool with a first batch when the store is empty and
// computes the initial recommendations.
func (s *DiscoveryService) Load(ctx context.Context) error {
	recs, err := s.load(ctx)
	if recs != nil {
		s.subs.Notify(recs)
	}
	return err
}

func (s *DiscoveryService) load(ctx context.Context) ([]*models.StockCandidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.store.Count(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}
	if n == 0 {
		batch := s.generator.Generate(nil)
		if err := s.store.Insert(ctx, batch...); err != nil {
			return nil, fmt.Errorf("seed candidates: %w", err)
		}
		log.Info().Int("count", len(batch)).Msg("seeded candidate pool")
	}
	return s.recomputeLocked(ctx)
}

// GenerateMore appends a batch of candidates whose symbols are new to the
// pool. An empty result means the reference pool is exhausted.
func (s *DiscoveryService) GenerateMore(ctx context.Context) ([]*models.StockCandidate, error) {
	batch, recs, err := s.generateMore(ctx)
	if recs != nil {
		s.subs.Notify(recs)
	}
	return batch, err
}

func (s *DiscoveryService) generateMore(ctx context.Context) ([]*models.StockCandidate, []*models.StockCandidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	known, err := s.store.Symbols(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("generate candidates: %w", err)
	}
	batch := s.generator.Generate(known)
	if len(batch) == 0 {
		log.Info().Int("known", len(known)).Msg("no more unique candidates")
		return []*models.StockCandidate{}, nil, nil
	}
	if err := s.store.Insert(ctx, batch...); err != nil {
		return nil, nil, fmt.Errorf("store generated candidates: %w", err)
	}
	log.Debug().Int("count", len(batch)).Msg("generated candidates")

	recs, err := s.recomputeLocked(ctx)
	return cloneAll(batch), recs, err
}

func (s *DiscoveryService) Like(ctx context.Context, symbol string) error {
	return s.Apply(ctx, symbol, models.ActionLiked)
}

func (s *DiscoveryService) Dislike(ctx context.Context, symbol string) error {
	return s.Apply(ctx, symbol, models.ActionDisliked)
}

// Unlike removes a liked stock from the portfolio.
func (s *DiscoveryService) Unlike(ctx context.Context, symbol string) error {
	return s.Apply(ctx, symbol, models.ActionUnliked)
}

// Apply runs one swipe transition: load, transition, persist, recompute,
// publish. A transition that fails validation or persistence leaves the
// stored candidate unchanged.
func (s *DiscoveryService) Apply(ctx context.Context, symbol string, action models.SwipeAction) error {
	recs, err := s.apply(ctx, symbol, action)
	if recs != nil {
		s.subs.Notify(recs)
	}
	return err
}

func (s *DiscoveryService) apply(ctx context.Context, symbol string, action models.SwipeAction) ([]*models.StockCandidate, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.store.Get(ctx, symbol)
	if err != nil {
		return nil, err
	}
	at := s.now()
	if err := discovery.Apply(c, action, at); err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, c); err != nil {
		log.Error().Err(err).Str("symbol", symbol).Str("action", string(action)).Msg("persist swipe failed")
		return nil, fmt.Errorf("persist %s %s: %w", action, symbol, err)
	}
	log.Debug().Str("symbol", symbol).Str("action", string(action)).Msg("swipe applied")

	recs, recErr := s.recomputeLocked(ctx)

	if err := s.publisher.PublishSwipe(ctx, models.SwipeData{Symbol: symbol, Action: action, At: at}); err != nil {
		log.Error().Err(err).Str("symbol", symbol).Msg("publish swipe failed")
		return recs, errors.Join(recErr, fmt.Errorf("%w: swipe %s: %v", ErrPublish, symbol, err))
	}
	return recs, recErr
}

// PublishOnly reports whether err consists solely of lost events. A joined
// error that also carries a store or recompute failure is not publish-only.
func PublishOnly(err error) bool {
	if err == nil {
		return false
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			if !PublishOnly(e) {
				return false
			}
		}
		return true
	}
	return errors.Is(err, ErrPublish)
}

// recomputeLocked refreshes the recommendation list from the store and
// returns a snapshot for subscribers. Callers hold s.mu.
func (s *DiscoveryService) recomputeLocked(ctx context.Context) ([]*models.StockCandidate, error) {
	all, err := s.store.Query(ctx, storage.Query{Sort: storage.SortInsertion})
	if err != nil {
		// Drop the stale list.
		s.recommendations = nil
		log.Error().Err(err).Msg("recompute recommendations failed")
		return []*models.StockCandidate{}, fmt.Errorf("recompute recommendations: %w", err)
	}
	liked, disliked, unviewed := discovery.Partition(all)
	s.recommendations = discovery.RecommendN(liked, disliked, all, s.limit)
	snapshot := cloneAll(s.recommendations)

	rankings := make([]models.RecommendedSymbol, len(s.recommendations))
	for i, c := range s.recommendations {
		rankings[i] = models.RecommendedSymbol{Symbol: c.Symbol, Rank: i + 1, DiscoveryScore: c.DiscoveryScore}
	}
	data := models.RecommendationData{TotalUnviewed: len(unviewed), Rankings: rankings}
	if err := s.publisher.PublishRecommendations(ctx, data); err != nil {
		log.Error().Err(err).Msg("publish recommendations failed")
		return snapshot, fmt.Errorf("%w: recommendations: %v", ErrPublish, err)
	}
	return snapshot, nil
}

// Refresh recomputes recommendations without changing the pool.
func (s *DiscoveryService) Refresh(ctx context.Context) error {
	s.mu.Lock()
	recs, err := s.recomputeLocked(ctx)
	s.mu.Unlock()
	if recs != nil {
		s.subs.Notify(recs)
	}
	return err
}

// Recommendations returns a copy of the current list, best first.
func (s *DiscoveryService) Recommendations() []*models.StockCandidate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.recommendations)
}

// Portfolio lists liked stocks, most recently liked first.
func (s *DiscoveryService) Portfolio(ctx context.Context) ([]*models.StockCandidate, error) {
	return s.store.Query(ctx, storage.Query{Status: models.StatusLiked, Sort: storage.SortLikedAtDesc})
}

func (s *DiscoveryService) Unviewed(ctx context.Context) ([]*models.StockCandidate, error) {
	return s.store.Query(ctx, storage.Query{Status: models.StatusUnviewed})
}

func (s *DiscoveryService) Disliked(ctx context.Context) ([]*models.StockCandidate, error) {
	return s.store.Query(ctx, storage.Query{Status: models.StatusDisliked})
}

// Candidates returns the whole pool in insertion order.
func (s *DiscoveryService) Candidates(ctx context.Context) ([]*models.StockCandidate, error) {
	return s.store.Query(ctx, storage.Query{})
}

func (s *DiscoveryService) Candidate(ctx context.Context, symbol string) (*models.StockCandidate, error) {
	return s.store.Get(ctx, symbol)
}

func (s *DiscoveryService) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	var err error
	if st.Liked, err = s.store.Count(ctx, models.StatusLiked); err != nil {
		return st, err
	}
	if st.Disliked, err = s.store.Count(ctx, models.StatusDisliked); err != nil {
		return st, err
	}
	if st.Unviewed, err = s.store.Count(ctx, models.StatusUnviewed); err != nil {
		return st, err
	}
	st.Total = st.Liked + st.Disliked + st.Unviewed
	return st, nil
}

// SetLimits changes the batch size and recommendation limit. Non-positive
// values leave the current setting. The new limit applies on the next
// recomputation.
func (s *DiscoveryService) SetLimits(batchSize, recommendLimit int) {
	s.generator.SetBatchSize(batchSize)
	if recommendLimit <= 0 {
		return
	}
	s.mu.Lock()
	s.limit = recommendLimit
	s.mu.Unlock()
	log.Info().Int("batch_size", batchSize).Int("recommend_limit", recommendLimit).Msg("limits updated")
}

// SetJitter changes the price jitter range of future batches. Candidates
// already in the store keep their prices.
func (s *DiscoveryService) SetJitter(lo, hi float64) {
	s.generator.SetJitter(lo, hi)
}

// Reset drops every candidate and reseeds the pool.
func (s *DiscoveryService) Reset(ctx context.Context) error {
	s.mu.Lock()
	err := s.store.Reset(ctx)
	if err == nil {
		s.recommendations = nil
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.Load(ctx)
}

// Subscribe registers fn for every recomputed recommendation list. The
// returned func unsubscribes.
func (s *DiscoveryService) Subscribe(fn func([]*models.StockCandidate)) func() {
	return s.subs.Add(fn)
}

func cloneAll(in []*models.StockCandidate) []*models.StockCandidate {
	out := make([]*models.StockCandidate, len(in))
	for i, c := range in {
		out[i] = c.Clone()
	}
	return out
}
