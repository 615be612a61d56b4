package discovery

import (
	"sort"

	"github.com/dyike/ivy/internal/models"
)

const DefaultRecommendLimit = 10

// Recommend ranks the unviewed candidates of all by discovery score, highest
// first, and keeps at most DefaultRecommendLimit of them.
//
// liked and disliked are not consulted yet. They stay in the signature as the
// entry point for a content-based or collaborative signal.
func Recommend(liked, disliked, all []*models.StockCandidate) []*models.StockCandidate {
	return RecommendN(liked, disliked, all, DefaultRecommendLimit)
}

// RecommendN is Recommend with an explicit limit. Ties keep input order.
func RecommendN(liked, disliked, all []*models.StockCandidate, limit int) []*models.StockCandidate {
	_, _ = liked, disliked

	unviewed := make([]*models.StockCandidate, 0, len(all))
	for _, c := range all {
		if c == nil || !c.IsUnviewed() {
			continue
		}
		unviewed = append(unviewed, c)
	}

	sort.SliceStable(unviewed, func(i, j int) bool {
		return unviewed[i].DiscoveryScore > unviewed[j].DiscoveryScore
	})

	if limit >= 0 && len(unviewed) > limit {
		unviewed = unviewed[:limit]
	}
	return unviewed
}

// Partition splits a pool into liked, disliked and unviewed candidates,
// keeping input order within each group.
func Partition(all []*models.StockCandidate) (liked, disliked, unviewed []*models.StockCandidate) {
	for _, c := range all {
		switch {
		case c == nil:
			continue
		case c.IsLiked():
			liked = append(liked, c)
		case c.IsDisliked():
			disliked = append(disliked, c)
		default:
			unviewed = append(unviewed, c)
		}
	}
	return liked, disliked, unviewed
}

// Symbols returns the set of symbols in pool.
func Symbols(pool []*models.StockCandidate) map[string]struct{} {
	out := make(map[string]struct{}, len(pool))
	for _, c := range pool {
		out[c.Symbol] = struct{}{}
	}
	return out
}
