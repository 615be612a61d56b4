// Package search keeps an in-memory full-text index over the candidate pool.
package search

import (
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/dyike/ivy/internal/logger"
	"github.com/dyike/ivy/internal/models"
)

var log = logger.New("search")

const DefaultLimit = 10

// Hit is one search result.
type Hit struct {
	Symbol string
	Name   string
	Sector string
	Score  float64
}

type Index struct {
	index bleve.Index
}

type document struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Sector string `json:"sector"`
	Status string `json:"status"`
}

func NewIndex() (*Index, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create search index: %w", err)
	}
	return &Index{index: idx}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	doc := bleve.NewDocumentMapping()

	text := bleve.NewTextFieldMapping()
	text.Store = true
	text.Index = true
	doc.AddFieldMappingsAt("symbol", text)
	doc.AddFieldMappingsAt("name", text)
	doc.AddFieldMappingsAt("sector", text)

	keyword := bleve.NewKeywordFieldMapping()
	keyword.Store = true
	doc.AddFieldMappingsAt("status", keyword)

	indexMapping.DefaultMapping = doc
	return indexMapping
}

// Index adds or replaces candidates, keyed by symbol.
func (i *Index) Index(candidates ...*models.StockCandidate) error {
	batch := i.index.NewBatch()
	for _, c := range candidates {
		if c == nil {
			continue
		}
		err := batch.Index(c.Symbol, document{
			Symbol: c.Symbol,
			Name:   c.CompanyName,
			Sector: c.Sector,
			Status: string(c.Status),
		})
		if err != nil {
			return fmt.Errorf("index %s: %w", c.Symbol, err)
		}
	}
	if err := i.index.Batch(batch); err != nil {
		return fmt.Errorf("index batch: %w", err)
	}
	log.Debug().Int("count", batch.Size()).Msg("indexed candidates")
	return nil
}

func (i *Index) Remove(symbol string) error {
	return i.index.Delete(strings.ToUpper(symbol))
}

func (i *Index) Count() (uint64, error) {
	return i.index.DocCount()
}

// Search ranks symbols by relevance: exact symbol, symbol prefix, company
// name, sector, then substring of the name. limit <= 0 uses DefaultLimit.
func (i *Index) Search(text string, limit int) ([]Hit, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	lower := strings.ToLower(text)

	exact := bleve.NewTermQuery(lower)
	exact.SetField("symbol")
	exact.SetBoost(10.0)

	prefix := bleve.NewPrefixQuery(lower)
	prefix.SetField("symbol")
	prefix.SetBoost(5.0)

	name := bleve.NewMatchQuery(text)
	name.SetField("name")
	name.SetBoost(3.0)

	sector := bleve.NewMatchQuery(text)
	sector.SetField("sector")
	sector.SetBoost(2.0)

	queries := []query.Query{exact, prefix, name, sector}
	if !strings.ContainsAny(lower, " *?") {
		wildcard := bleve.NewWildcardQuery("*" + lower + "*")
		wildcard.SetField("name")
		wildcard.SetBoost(1.5)
		queries = append(queries, wildcard)
	}

	req := bleve.NewSearchRequest(bleve.NewDisjunctionQuery(queries...))
	req.Fields = []string{"symbol", "name", "sector"}
	req.Size = limit

	res, err := i.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", text, err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hits = append(hits, Hit{
			Symbol: h.ID,
			Name:   field(h.Fields, "name"),
			Sector: field(h.Fields, "sector"),
			Score:  h.Score,
		})
	}
	return hits, nil
}

func (i *Index) Close() error {
	return i.index.Close()
}

func field(fields map[string]interface{}, key string) string {
	if v, ok := fields[key].(string); ok {
		return v
	}
	return ""
}
