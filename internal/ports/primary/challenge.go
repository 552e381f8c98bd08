package primary

import "context"

// Challenge is a single scored problem within a CTF.
type Challenge struct {
	ID        string
	CtfID     string
	Name      string
	Category  string
	ThreadRef string
	Points    int
	Solved    bool
	Flag      string
	WorkingOn []string
	SolvedBy  []string
}

// WorkOnRequest marks a challenge as in progress for an actor, creating
// the challenge (and its discussion thread) if it does not exist yet.
type WorkOnRequest struct {
	ChannelRef string
	Name       string
	Category   string
	Actor      string
}

// SolveRequest marks a challenge solved. When ThreadRef is set and
// resolves to a challenge, thread-scoped resolution wins and Name is
// ignored.
type SolveRequest struct {
	ChannelRef string
	ThreadRef  string
	Name       string
	Category   string
	Flag       string
	Points     int
	Actor      string
}

// ChallengeService is the ledger of challenges per CTF.
type ChallengeService interface {
	// WorkOn appends the actor to the challenge's working set, creating
	// the challenge first if needed (Category then mandatory).
	WorkOn(ctx context.Context, req WorkOnRequest) (*Challenge, error)

	// Solve transitions a challenge to solved, crediting everyone in the
	// working set plus the actor. Solving an already-solved challenge
	// appends the actor as an additional solver; the flag never changes
	// after the first solve.
	Solve(ctx context.Context, req SolveRequest) (*Challenge, error)

	// Remove deletes a challenge and (best-effort) its thread.
	Remove(ctx context.Context, channelRef, name string) error

	// List returns the CTF's challenges grouped by category in insertion
	// order.
	List(ctx context.Context, channelRef string) ([]*Challenge, error)

	// ListPages renders the challenge list into pages, each under the
	// page character budget, splitting at category boundaries when
	// possible and never splitting a single challenge line.
	ListPages(ctx context.Context, channelRef string) ([]string, error)
}
