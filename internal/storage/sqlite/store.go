package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dyike/ivy/internal/logger"
	"github.com/dyike/ivy/internal/models"
	"github.com/dyike/ivy/internal/storage"
)

var log = logger.New("storage")

// Fixed-width UTC layout so stored timestamps sort lexicographically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type Store struct {
	db *sql.DB
}

var _ storage.CandidateStore = (*Store)(nil)

func Open(dbPath string) (*Store, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("db path is required")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=3000;",
		"PRAGMA synchronous=NORMAL;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma %s: %w", p, err)
		}
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	log.Debug().Str("path", dbPath).Msg("candidate store opened")
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func initSchema(db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS candidates (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    symbol TEXT NOT NULL UNIQUE,
    company_name TEXT NOT NULL,
    sector TEXT NOT NULL DEFAULT '',
    industry TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    logo_url TEXT NOT NULL DEFAULT '',
    website TEXT NOT NULL DEFAULT '',
    current_price TEXT NOT NULL,
    previous_close TEXT NOT NULL,
    market_cap REAL,
    pe_ratio REAL,
    dividend_yield REAL,
    week_low_52 REAL,
    week_high_52 REAL,
    volume INTEGER,
    average_volume INTEGER,
    status TEXT NOT NULL,
    viewed_at TEXT,
    liked_at TEXT,
    disliked_at TEXT,
    discovery_score REAL NOT NULL DEFAULT 0,
    momentum REAL NOT NULL DEFAULT 0,
    volatility REAL NOT NULL DEFAULT 0,
    sentiment REAL NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_candidates_status ON candidates(status);
`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

const columns = `symbol, company_name, sector, industry, description, logo_url, website,
    current_price, previous_close, market_cap, pe_ratio, dividend_yield, week_low_52, week_high_52,
    volume, average_volume, status, viewed_at, liked_at, disliked_at,
    discovery_score, momentum, volatility, sentiment`

const insertSQL = `
INSERT INTO candidates (` + columns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func (s *Store) Insert(ctx context.Context, candidates ...*models.StockCandidate) error {
	return s.write(ctx, insertSQL+"ON CONFLICT(symbol) DO NOTHING", "insert", candidates)
}

func (s *Store) Save(ctx context.Context, candidates ...*models.StockCandidate) error {
	return s.write(ctx, insertSQL+`ON CONFLICT(symbol) DO UPDATE SET
    company_name=excluded.company_name,
    sector=excluded.sector,
    industry=excluded.industry,
    description=excluded.description,
    logo_url=excluded.logo_url,
    website=excluded.website,
    current_price=excluded.current_price,
    previous_close=excluded.previous_close,
    market_cap=excluded.market_cap,
    pe_ratio=excluded.pe_ratio,
    dividend_yield=excluded.dividend_yield,
    week_low_52=excluded.week_low_52,
    week_high_52=excluded.week_high_52,
    volume=excluded.volume,
    average_volume=excluded.average_volume,
    status=excluded.status,
    viewed_at=excluded.viewed_at,
    liked_at=excluded.liked_at,
    disliked_at=excluded.disliked_at,
    discovery_score=excluded.discovery_score,
    momentum=excluded.momentum,
    volatility=excluded.volatility,
    sentiment=excluded.sentiment,
    updated_at=CURRENT_TIMESTAMP`, "save", candidates)
}

func (s *Store) write(ctx context.Context, query, op string, candidates []*models.StockCandidate) error {
	if len(candidates) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s candidates: begin: %w", op, err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("%s candidates: prepare: %w", op, err)
	}
	defer stmt.Close()

	for _, c := range candidates {
		if c == nil {
			continue
		}
		if strings.TrimSpace(c.Symbol) == "" {
			return fmt.Errorf("%s candidates: symbol is required", op)
		}
		if !c.Status.Valid() {
			return fmt.Errorf("%s candidate %s: invalid status %q", op, c.Symbol, c.Status)
		}
		if _, err := stmt.ExecContext(ctx, args(c)...); err != nil {
			return fmt.Errorf("%s candidate %s: %w", op, c.Symbol, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s candidates: commit: %w", op, err)
	}
	log.Debug().Str("op", op).Int("count", len(candidates)).Msg("candidates written")
	return nil
}

func args(c *models.StockCandidate) []any {
	return []any{
		c.Symbol, c.CompanyName, c.Sector, c.Industry, c.CompanyDescription, c.LogoURL, c.Website,
		c.CurrentPrice, c.PreviousClose,
		nullFloat(c.MarketCap), nullFloat(c.PERatio), nullFloat(c.DividendYield),
		nullFloat(c.WeekLow52), nullFloat(c.WeekHigh52),
		nullInt(c.Volume), nullInt(c.AverageVolume),
		string(c.Status), nullTime(c.ViewedAt), nullTime(c.LikedAt), nullTime(c.DislikedAt),
		c.DiscoveryScore, c.Momentum, c.Volatility, c.Sentiment,
	}
}

func (s *Store) Get(ctx context.Context, symbol string) (*models.StockCandidate, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+columns+` FROM candidates WHERE symbol = ? LIMIT 1`, symbol)
	c, err := scanCandidate(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", symbol, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("get candidate: %w", err)
	}
	return c, nil
}

func (s *Store) Query(ctx context.Context, q storage.Query) ([]*models.StockCandidate, error) {
	var (
		sb     strings.Builder
		params []any
	)
	sb.WriteString(`SELECT ` + columns + ` FROM candidates`)
	if q.Status != "" {
		sb.WriteString(` WHERE status = ?`)
		params = append(params, string(q.Status))
	}
	switch q.Sort {
	case storage.SortLikedAtDesc:
		sb.WriteString(` ORDER BY liked_at IS NULL, liked_at DESC, seq ASC`)
	case storage.SortScoreDesc:
		sb.WriteString(` ORDER BY discovery_score DESC, seq ASC`)
	default:
		sb.WriteString(` ORDER BY seq ASC`)
	}
	if q.Limit > 0 {
		sb.WriteString(` LIMIT ?`)
		params = append(params, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), params...)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	var out []*models.StockCandidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query candidates rows: %w", err)
	}
	return out, nil
}

func (s *Store) Symbols(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT symbol FROM candidates`)
	if err != nil {
		return nil, fmt.Errorf("list symbols: %w", err)
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		out[symbol] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list symbols rows: %w", err)
	}
	return out, nil
}

func (s *Store) Count(ctx context.Context, status models.SwipeStatus) (int, error) {
	var n int
	var err error
	if status == "" {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM candidates`).Scan(&n)
	} else {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM candidates WHERE status = ?`, string(status)).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("count candidates: %w", err)
	}
	return n, nil
}

func (s *Store) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM candidates`); err != nil {
		return fmt.Errorf("reset candidates: %w", err)
	}
	log.Debug().Msg("candidate store reset")
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCandidate(row scanner) (*models.StockCandidate, error) {
	var (
		c                 models.StockCandidate
		status            string
		marketCap, pe     sql.NullFloat64
		dividend, weekLow sql.NullFloat64
		weekHigh          sql.NullFloat64
		volume, avgVolume sql.NullInt64
		viewedAt, likedAt sql.NullString
		dislikedAt        sql.NullString
	)
	err := row.Scan(
		&c.Symbol, &c.CompanyName, &c.Sector, &c.Industry, &c.CompanyDescription, &c.LogoURL, &c.Website,
		&c.CurrentPrice, &c.PreviousClose,
		&marketCap, &pe, &dividend, &weekLow, &weekHigh,
		&volume, &avgVolume,
		&status, &viewedAt, &likedAt, &dislikedAt,
		&c.DiscoveryScore, &c.Momentum, &c.Volatility, &c.Sentiment,
	)
	if err != nil {
		return nil, err
	}

	c.Status = models.SwipeStatus(status)
	c.MarketCap = floatPtr(marketCap)
	c.PERatio = floatPtr(pe)
	c.DividendYield = floatPtr(dividend)
	c.WeekLow52 = floatPtr(weekLow)
	c.WeekHigh52 = floatPtr(weekHigh)
	c.Volume = intPtr(volume)
	c.AverageVolume = intPtr(avgVolume)
	if c.ViewedAt, err = timePtr(viewedAt); err != nil {
		return nil, err
	}
	if c.LikedAt, err = timePtr(likedAt); err != nil {
		return nil, err
	}
	if c.DislikedAt, err = timePtr(dislikedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullTime(v *time.Time) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: v.UTC().Format(timeLayout), Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func intPtr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	i := v.Int64
	return &i
}

func timePtr(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	t, err := time.Parse(timeLayout, v.String)
	if err != nil {
		return nil, fmt.Errorf("parse timestamp %q: %w", v.String, err)
	}
	return &t, nil
}
