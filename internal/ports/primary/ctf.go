// Package primary defines the primary ports (driving interfaces) for the
// application: the services a command surface calls into.
package primary

import (
	"context"
	"time"
)

// Phase is the lifecycle stage of a registered CTF. Transitions are
// monotonic and forward-only; a phase never regresses.
type Phase string

const (
	PhaseUpcoming          Phase = "upcoming"
	PhaseRemindedDayBefore Phase = "reminded_day_before"
	PhaseActive            Phase = "active"
	PhaseEnded             Phase = "ended"
	PhaseArchived          Phase = "archived"
)

// Ctf is a registered competition bound to a dedicated channel.
type Ctf struct {
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
	Phase             Phase
	StartAt           time.Time
	FinishAt          time.Time
}

// EventDetails is a resolved event descriptor for display, without
// registering anything.
type EventDetails struct {
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

// RegisterRequest carries everything needed to register a CTF.
type RegisterRequest struct {
	GuildRef   string
	TeamName   string
	Identifier string
	Actor      string

	// AnnounceChannelRef is the channel the join-marker announcement is
	// posted into (normally the invoking channel).
	AnnounceChannelRef string

	// ParentGroupRef optionally places the new channel under the group of
	// the invoking channel.
	ParentGroupRef string
}

// RegisterResponse returns the created record and the generated team
// credential (already posted into the channel; returned for the caller's
// confirmation message only).
type RegisterResponse struct {
	Ctf         *Ctf
	Credentials string
}

// CtfService manages the CTF lifecycle: registration, lookup, and the
// periodic phase sweep.
type CtfService interface {
	// Register resolves the identifier, provisions the channel and join
	// marker, and persists the CTF. The whole sequence is one logical
	// unit: nothing is persisted if channel provisioning fails.
	Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error)

	// Unregister deletes the CTF resolved from the invoking channel,
	// its channel (best-effort) and its scheduled event (best-effort).
	Unregister(ctx context.Context, channelRef string) error

	// Details resolves an identifier for display without side effects.
	Details(ctx context.Context, identifier string) (*EventDetails, error)

	// GetByChannel resolves the CTF registered for a channel.
	GetByChannel(ctx context.Context, channelRef string) (*Ctf, error)

	// Tick runs one lifecycle sweep: at most one phase transition per
	// record. Concurrent ticks are skipped, not queued.
	Tick(ctx context.Context) error

	// Digest posts the upcoming-events digest to the configured channel,
	// if one is configured.
	Digest(ctx context.Context) error
}
