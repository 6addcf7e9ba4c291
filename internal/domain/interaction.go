package domain

import "time"

// InteractionKind identifies which endpoint produced an interaction.
type InteractionKind string

const (
	KindWelcome  InteractionKind = "welcome"
	KindQuestion InteractionKind = "question"
)

// Interaction statuses.
const (
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

// Interaction is a single welcome or question exchange, kept for the
// optional interaction log.
type Interaction struct {
	ID        string
	Kind      InteractionKind
	Name      string
	Role      string
	Question  string
	Answer    string
	Status    string
	CreatedAt time.Time
}
