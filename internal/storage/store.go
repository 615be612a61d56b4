package storage

import (
	"context"
	"errors"

	"github.com/dyike/ivy/internal/models"
)

// ErrNotFound is returned when no candidate has the requested symbol.
var ErrNotFound = errors.New("candidate not found")

type SortOrder int

const (
	// SortInsertion returns candidates in the order they were first stored.
	SortInsertion SortOrder = iota
	// SortLikedAtDesc puts the most recently liked first.
	SortLikedAtDesc
	// SortScoreDesc orders by discovery score, ties by insertion.
	SortScoreDesc
)

// Query selects candidates. A zero Status matches every status; Limit <= 0
// means no limit.
type Query struct {
	Status models.SwipeStatus
	Sort   SortOrder
	Limit  int
}

// CandidateStore persists the candidate pool. Implementations keep one
// record per symbol.
type CandidateStore interface {
	// Insert adds new candidates. Symbols already stored are left untouched.
	Insert(ctx context.Context, candidates ...*models.StockCandidate) error
	// Save writes the full state of each candidate, inserting when missing.
	Save(ctx context.Context, candidates ...*models.StockCandidate) error
	Get(ctx context.Context, symbol string) (*models.StockCandidate, error)
	Query(ctx context.Context, q Query) ([]*models.StockCandidate, error)
	Symbols(ctx context.Context) (map[string]struct{}, error)
	Count(ctx context.Context, status models.SwipeStatus) (int, error)
	// Reset removes every candidate.
	Reset(ctx context.Context) error
	Close() error
}
