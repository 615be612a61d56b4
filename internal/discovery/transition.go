package discovery

import (
	"errors"
	"fmt"
	"time"

	"github.com/dyike/ivy/internal/models"
)

// ErrInvalidTransition is returned when an action is not defined for the
// candidate's current status. Defined moves:
//
//	unviewed -> liked     (MarkLiked)
//	unviewed -> disliked  (MarkDisliked)
//	liked    -> unviewed  (Unlike)
var ErrInvalidTransition = errors.New("invalid swipe transition")

func transitionError(c *models.StockCandidate, action models.SwipeAction) error {
	return fmt.Errorf("%w: cannot apply %s to %s in status %s", ErrInvalidTransition, action, c.Symbol, c.Status)
}

// MarkLiked moves an unviewed candidate to liked and stamps likedAt and viewedAt.
func MarkLiked(c *models.StockCandidate, now time.Time) error {
	if !c.IsUnviewed() {
		return transitionError(c, models.ActionLiked)
	}
	liked, viewed := now, now
	c.Status = models.StatusLiked
	c.LikedAt = &liked
	c.ViewedAt = &viewed
	return nil
}

// MarkDisliked moves an unviewed candidate to disliked and stamps dislikedAt and viewedAt.
func MarkDisliked(c *models.StockCandidate, now time.Time) error {
	if !c.IsUnviewed() {
		return transitionError(c, models.ActionDisliked)
	}
	disliked, viewed := now, now
	c.Status = models.StatusDisliked
	c.DislikedAt = &disliked
	c.ViewedAt = &viewed
	return nil
}

// Unlike removes a liked candidate from the portfolio. viewedAt is kept.
func Unlike(c *models.StockCandidate) error {
	if !c.IsLiked() {
		return transitionError(c, models.ActionUnliked)
	}
	c.Status = models.StatusUnviewed
	c.LikedAt = nil
	return nil
}

// Apply dispatches action to the matching transition.
func Apply(c *models.StockCandidate, action models.SwipeAction, now time.Time) error {
	switch action {
	case models.ActionLiked:
		return MarkLiked(c, now)
	case models.ActionDisliked:
		return MarkDisliked(c, now)
	case models.ActionUnliked:
		return Unlike(c)
	default:
		return fmt.Errorf("%w: unknown action %q", ErrInvalidTransition, action)
	}
}
