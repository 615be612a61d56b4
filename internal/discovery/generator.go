package discovery

import (
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/dyike/ivy/internal/models"
)

const (
	DefaultBatchSize  = 12
	DefaultJitterMin  = 0.95
	DefaultJitterMax  = 1.05
	MaxDiscoveryScore = 100.0
)

// Generator mints candidate batches from a reference pool.
//
// Selection is deterministic: the first BatchSize pool entries whose symbol
// is not excluded, in pool order. Only prices and scores are random. The
// discovery score is a uniform draw in [0,100) and carries no market
// meaning; it is a placeholder until a real scoring model exists.
type Generator struct {
	pool      []ReferenceStock
	batchSize int
	jitterMin float64
	jitterMax float64

	mu  sync.Mutex
	rng *rand.Rand
}

type GeneratorOption func(*Generator)

// WithPool replaces the built-in reference pool.
func WithPool(pool []ReferenceStock) GeneratorOption {
	return func(g *Generator) {
		g.pool = append([]ReferenceStock(nil), pool...)
	}
}

func WithBatchSize(n int) GeneratorOption {
	return func(g *Generator) {
		if n > 0 {
			g.batchSize = n
		}
	}
}

// WithJitter sets the multiplicative price jitter range.
func WithJitter(lo, hi float64) GeneratorOption {
	return func(g *Generator) {
		if lo > 0 && hi >= lo {
			g.jitterMin, g.jitterMax = lo, hi
		}
	}
}

// WithRand injects the random source, mostly for tests.
func WithRand(r *rand.Rand) GeneratorOption {
	return func(g *Generator) {
		if r != nil {
			g.rng = r
		}
	}
}

func NewGenerator(opts ...GeneratorOption) *Generator {
	g := &Generator{
		pool:      ReferencePool(),
		batchSize: DefaultBatchSize,
		jitterMin: DefaultJitterMin,
		jitterMax: DefaultJitterMax,
		rng:       rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// SetBatchSize changes the batch size for subsequent calls.
func (g *Generator) SetBatchSize(n int) {
	if n <= 0 {
		return
	}
	g.mu.Lock()
	g.batchSize = n
	g.mu.Unlock()
}

// SetJitter changes the price jitter range for subsequent calls. An invalid
// range is ignored.
func (g *Generator) SetJitter(lo, hi float64) {
	if lo <= 0 || hi < lo {
		return
	}
	g.mu.Lock()
	g.jitterMin, g.jitterMax = lo, hi
	g.mu.Unlock()
}

// Generate returns up to BatchSize fresh candidates whose symbols are not in
// excluding. An empty result means the pool is exhausted.
func (g *Generator) Generate(excluding map[string]struct{}) []*models.StockCandidate {
	g.mu.Lock()
	defer g.mu.Unlock()

	selected := g.selectLocked(excluding)
	out := make([]*models.StockCandidate, 0, len(selected))
	for _, ref := range selected {
		j := decimal.NewFromFloat(g.jitterMin + g.rng.Float64()*(g.jitterMax-g.jitterMin))
		current := decimal.NewFromFloat(ref.BasePrice).Mul(j).Round(4)
		previous := decimal.NewFromFloat(ref.BasePreviousClose).Mul(j).Round(4)

		c := models.NewStockCandidate(ref.Symbol, ref.CompanyName, current, previous)
		c.Sector = string(ref.Sector)
		c.DiscoveryScore = g.rng.Float64() * MaxDiscoveryScore
		out = append(out, c)
	}
	return out
}

func (g *Generator) selectLocked(excluding map[string]struct{}) []ReferenceStock {
	skip := make(map[string]struct{}, len(excluding))
	for s := range excluding {
		skip[strings.ToUpper(s)] = struct{}{}
	}

	selected := make([]ReferenceStock, 0, g.batchSize)
	for _, ref := range g.pool {
		if len(selected) == g.batchSize {
			break
		}
		if _, ok := skip[strings.ToUpper(ref.Symbol)]; ok {
			continue
		}
		selected = append(selected, ref)
	}
	return selected
}
