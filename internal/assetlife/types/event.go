package types

import "time"

// LifecycleEvent is one committed transition. Events are never modified once
// written; ID order is commit order.
type LifecycleEvent struct {
	ID        int64     `json:"id"`
	AssetID   string    `json:"assetId"`
	FromStage Stage     `json:"fromStage"`
	ToStage   Stage     `json:"toStage"`
	Notes     string    `json:"notes"`
	ActorID   string    `json:"actorId"`
	Timestamp time.Time `json:"timestamp"`
}

// TransitionRequest is the body of POST /lifecycle.
type TransitionRequest struct {
	AssetID string `json:"assetId"`
	Stage   string `json:"stage"`
	Notes   string `json:"notes,omitempty"`
}
