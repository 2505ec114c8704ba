package domain

import "time"

// Message is one persisted conversation turn. The messages table is an
// append-only audit trail; rows are never mutated or deleted by this system.
type Message struct {
	ID          string    `json:"id"`
	Role        string    `json:"role"`
	Content     string    `json:"content"`
	GuideID     string    `json:"guide_id,omitempty"`
	CompanionID string    `json:"companion_id,omitempty"`
	ThreadID    string    `json:"thread_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Companion is a registered account. Note: the name column carries no
// uniqueness constraint at this layer, so repeated registrations with the
// same name produce independent rows.
type Companion struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	HashedPassword string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}
