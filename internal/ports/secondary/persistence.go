// Package secondary defines the secondary ports (driven adapters) for the
// application: persistence, the chat platform, and the event directory.
package secondary

import (
	"context"
	"time"
)

// CtfRepository is the secondary port for CTF persistence.
//
// GetByChannel and GetByJoinMarker return (nil, nil) when no record
// matches; callers treat that as "not registered", not as a failure.
type CtfRepository interface {
	// Create persists a new CTF record.
	Create(ctx context.Context, ctf *CtfRecord) error

	// GetByID retrieves a CTF by its ID.
	GetByID(ctx context.Context, id string) (*CtfRecord, error)

	// GetByChannel retrieves the CTF bound to a channel, if any.
	GetByChannel(ctx context.Context, channelRef string) (*CtfRecord, error)

	// GetByJoinMarker retrieves the CTF owning a join marker, if any.
	GetByJoinMarker(ctx context.Context, markerRef string) (*CtfRecord, error)

	// ListOpen retrieves all CTFs that have not ended or been archived,
	// in creation order.
	ListOpen(ctx context.Context) ([]*CtfRecord, error)

	// UpdatePhase advances a CTF to the given phase.
	UpdatePhase(ctx context.Context, id string, phase string) error

	// Delete removes a CTF; owned challenges cascade.
	Delete(ctx context.Context, id string) error
}

// CtfRecord represents a CTF as stored in persistence.
type CtfRecord struct {
	ID                string
	GuildRef          string
	EventID           string
	TeamName          string
	Title             string
	Description       string
	URL               string
	LogoURL           string
	InviteURL         string
	ChannelRef        string
	JoinMarkerRef     string
	ScheduledEventRef string
	Phase             string
	StartAt           time.Time
	FinishAt          time.Time
	CreatedAt         string
	UpdatedAt         string
}

// ChallengeRepository is the secondary port for challenge persistence.
//
// GetByName and GetByThread return (nil, nil) when no record matches.
// Records returned by Get/List methods carry their worker and solver
// sets loaded.
type ChallengeRepository interface {
	// Create persists a new challenge.
	Create(ctx context.Context, ch *ChallengeRecord) error

	// GetByName retrieves a challenge by its name within a CTF, if any.
	GetByName(ctx context.Context, ctfID, name string) (*ChallengeRecord, error)

	// GetByThread retrieves the challenge owning a discussion thread, if any.
	GetByThread(ctx context.Context, threadRef string) (*ChallengeRecord, error)

	// ListByCtf retrieves a CTF's challenges ordered by category, then
	// insertion order within a category.
	ListByCtf(ctx context.Context, ctfID string) ([]*ChallengeRecord, error)

	// ListSolved retrieves a CTF's solved challenges for the final summary.
	ListSolved(ctx context.Context, ctfID string) ([]*ChallengeRecord, error)

	// AddWorker appends a user to the challenge's working set.
	AddWorker(ctx context.Context, challengeID, userRef string) error

	// AddSolver appends a user to the challenge's solver set.
	AddSolver(ctx context.Context, challengeID, userRef string) error

	// MarkSolved transitions a challenge to solved, setting its flag,
	// point value and solver set in one atomic write. The flag is never
	// overwritten once set, and a solved challenge is never observable
	// with an empty solver set.
	MarkSolved(ctx context.Context, challengeID, flag string, points int, solvers []string) error

	// SetThreadRef stores the discussion thread reference.
	SetThreadRef(ctx context.Context, challengeID, threadRef string) error

	// Delete removes a challenge; worker and solver rows cascade.
	Delete(ctx context.Context, challengeID string) error
}

// ChallengeRecord represents a challenge as stored in persistence.
type ChallengeRecord struct {
	ID        string
	CtfID     string
	Name      string
	Category  string
	ThreadRef string
	Points    int
	Solved    bool
	Flag      string
	Workers   []string
	Solvers   []string
	CreatedAt string
	UpdatedAt string
}
