package secondary

import (
	"context"
	"errors"
	"time"
)

// Event directory failures. Callers must never treat a transport failure
// as proof an event does not exist, so the two cases carry distinct
// sentinels; both not-found cases are non-retriable without new input.
var (
	// ErrEventNotFound means the directory has no such event (404).
	ErrEventNotFound = errors.New("event not found")

	// ErrInvalidIdentifier means no event ID could be extracted from the
	// input. Treated identically to ErrEventNotFound by callers.
	ErrInvalidIdentifier = errors.New("invalid event identifier")
)

// EventDescriptor is a structured event record from the directory.
type EventDescriptor struct {
	ID           string
	Title        string
	Description  string
	URL          string
	LogoURL      string
	InviteURL    string
	Start        time.Time
	Finish       time.Time
	Participants int
}

// EventDirectory resolves loosely-formatted identifiers against the
// external event-metadata provider. Pure lookups, no side effects.
type EventDirectory interface {
	// Resolve extracts an event ID from the identifier and fetches its
	// descriptor. Transport failures are returned as-is, distinct from
	// ErrEventNotFound.
	Resolve(ctx context.Context, identifier string) (*EventDescriptor, error)

	// Upcoming lists events starting within the given window.
	Upcoming(ctx context.Context, within time.Duration) ([]*EventDescriptor, error)
}
