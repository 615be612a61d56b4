package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SwipeStatus is the review state of a candidate. A candidate is exactly one
// of unviewed, liked or disliked.
type SwipeStatus string

const (
	StatusUnviewed SwipeStatus = "unviewed"
	StatusLiked    SwipeStatus = "liked"
	StatusDisliked SwipeStatus = "disliked"
)

func (s SwipeStatus) Valid() bool {
	switch s {
	case StatusUnviewed, StatusLiked, StatusDisliked:
		return true
	}
	return false
}

var hundred = decimal.NewFromInt(100)

// StockCandidate is a stock presented for discovery.
type StockCandidate struct {
	Symbol             string `json:"symbol"`
	CompanyName        string `json:"company_name"`
	Sector             string `json:"sector,omitempty"`
	Industry           string `json:"industry,omitempty"`
	CompanyDescription string `json:"company_description,omitempty"`
	LogoURL            string `json:"logo_url,omitempty"`
	Website            string `json:"website,omitempty"`

	CurrentPrice  decimal.Decimal `json:"current_price"`
	PreviousClose decimal.Decimal `json:"previous_close"`

	// Descriptive metrics; not used for ranking.
	MarketCap     *float64 `json:"market_cap,omitempty"`
	PERatio       *float64 `json:"pe_ratio,omitempty"`
	DividendYield *float64 `json:"dividend_yield,omitempty"`
	WeekLow52     *float64 `json:"week_low_52,omitempty"`
	WeekHigh52    *float64 `json:"week_high_52,omitempty"`
	Volume        *int64   `json:"volume,omitempty"`
	AverageVolume *int64   `json:"average_volume,omitempty"`

	Status     SwipeStatus `json:"status"`
	ViewedAt   *time.Time  `json:"viewed_at,omitempty"`
	LikedAt    *time.Time  `json:"liked_at,omitempty"`
	DislikedAt *time.Time  `json:"disliked_at,omitempty"`

	// DiscoveryScore in [0,100] drives recommendation order.
	DiscoveryScore float64 `json:"discovery_score"`

	// Reserved ranking signals, carried but not scored yet.
	Momentum   float64 `json:"momentum"`
	Volatility float64 `json:"volatility"`
	Sentiment  float64 `json:"sentiment"`
}

// NewStockCandidate builds an unviewed candidate with an upper-cased symbol.
func NewStockCandidate(symbol, companyName string, currentPrice, previousClose decimal.Decimal) *StockCandidate {
	return &StockCandidate{
		Symbol:        strings.ToUpper(strings.TrimSpace(symbol)),
		CompanyName:   companyName,
		CurrentPrice:  currentPrice,
		PreviousClose: previousClose,
		Status:        StatusUnviewed,
	}
}

func (s *StockCandidate) IsLiked() bool    { return s.Status == StatusLiked }
func (s *StockCandidate) IsDisliked() bool { return s.Status == StatusDisliked }

// IsUnviewed reports whether the candidate has been neither liked nor disliked.
func (s *StockCandidate) IsUnviewed() bool {
	return !s.IsLiked() && !s.IsDisliked()
}

func (s *StockCandidate) PriceChange() decimal.Decimal {
	return s.CurrentPrice.Sub(s.PreviousClose)
}

// PriceChangePercent is 0 when the previous close is not positive.
func (s *StockCandidate) PriceChangePercent() decimal.Decimal {
	if !s.PreviousClose.IsPositive() {
		return decimal.Zero
	}
	return s.PriceChange().Div(s.PreviousClose).Mul(hundred)
}

func (s *StockCandidate) IsGaining() bool {
	return s.PriceChange().IsPositive()
}

// Clone returns a deep copy; pointer fields are copied, not shared.
func (s *StockCandidate) Clone() *StockCandidate {
	if s == nil {
		return nil
	}
	c := *s
	c.MarketCap = cloneFloat(s.MarketCap)
	c.PERatio = cloneFloat(s.PERatio)
	c.DividendYield = cloneFloat(s.DividendYield)
	c.WeekLow52 = cloneFloat(s.WeekLow52)
	c.WeekHigh52 = cloneFloat(s.WeekHigh52)
	c.Volume = cloneInt(s.Volume)
	c.AverageVolume = cloneInt(s.AverageVolume)
	c.ViewedAt = cloneTime(s.ViewedAt)
	c.LikedAt = cloneTime(s.LikedAt)
	c.DislikedAt = cloneTime(s.DislikedAt)
	return &c
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneInt(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
