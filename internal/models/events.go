package models

import "time"

// Event types
const (
	EventSwipe           = "discovery.swipe"
	EventRecommendations = "discovery.recommendations"
	EventSwipeRequest    = "discovery.swipe_request"
)

const EventSchemaVersion = "1.0"

// SwipeAction is the user action behind a status transition.
type SwipeAction string

const (
	ActionLiked    SwipeAction = "liked"
	ActionDisliked SwipeAction = "disliked"
	ActionUnliked  SwipeAction = "unliked"
)

// SwipeEvent is published after every transition.
type SwipeEvent struct {
	EventID       string    `json:"event_id"`
	EventType     string    `json:"event_type"`
	Source        string    `json:"source"`
	SchemaVersion string    `json:"schema_version"`
	Timestamp     time.Time `json:"timestamp"`
	Data          SwipeData `json:"data"`
}

type SwipeData struct {
	Symbol string      `json:"symbol"`
	Action SwipeAction `json:"action"`
	At     time.Time   `json:"at"`
}

// RecommendationEvent is published after every recomputation.
type RecommendationEvent struct {
	EventID       string             `json:"event_id"`
	EventType     string             `json:"event_type"`
	Source        string             `json:"source"`
	SchemaVersion string             `json:"schema_version"`
	Timestamp     time.Time          `json:"timestamp"`
	Data          RecommendationData `json:"data"`
}

type RecommendationData struct {
	TotalUnviewed int                 `json:"total_unviewed"`
	Rankings      []RecommendedSymbol `json:"rankings"`
}

type RecommendedSymbol struct {
	Symbol         string  `json:"symbol"`
	Rank           int     `json:"rank"`
	DiscoveryScore float64 `json:"discovery_score"`
}

// SwipeRequest asks the service to apply an action on behalf of another actor.
type SwipeRequest struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	Source    string           `json:"source"`
	Timestamp time.Time        `json:"timestamp"`
	Data      SwipeRequestData `json:"data"`
}

type SwipeRequestData struct {
	Symbol string      `json:"symbol"`
	Action SwipeAction `json:"action"`
}
