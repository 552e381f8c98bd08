package app

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/ctfcord/internal/ports/primary"
	"github.com/example/ctfcord/internal/ports/secondary"
)

const (
	// startSafetyMargin pushes an already-started event's recorded start
	// slightly into the future so the start transition still fires once.
	startSafetyMargin = 10 * time.Second

	// dayBeforeWindow is how far ahead of the start the reminder fires.
	dayBeforeWindow = 24 * time.Hour

	// credentialBytes is the entropy of a generated team credential.
	credentialBytes = 20

	defaultDigestWindow = 7 * 24 * time.Hour
)

// CtfServiceOptions carries the platform-facing knobs of the CTF
// lifecycle. Zero values fall back to sensible defaults.
type CtfServiceOptions struct {
	JoinEmoji     string
	ArchivedGroup string
	DigestChannel string
	DigestWindow  time.Duration
}

// CtfService implements the CTF lifecycle: registration, lookup, the
// periodic phase sweep and the upcoming-events digest.
type CtfService struct {
	ctfs          secondary.CtfRepository
	challenges    secondary.ChallengeRepository
	directory     secondary.EventDirectory
	channels      secondary.ChannelService
	announcements secondary.AnnouncementService
	events        secondary.ScheduledEventService
	locks         *RecordLocks
	opts          CtfServiceOptions

	// sweepMu makes Tick single-flight: an overlapping tick is skipped,
	// never queued.
	sweepMu sync.Mutex

	now func() time.Time
}

// NewCtfService creates a new CTF lifecycle service.
func NewCtfService(
	ctfs secondary.CtfRepository,
	challenges secondary.ChallengeRepository,
	directory secondary.EventDirectory,
	channels secondary.ChannelService,
	announcements secondary.AnnouncementService,
	events secondary.ScheduledEventService,
	locks *RecordLocks,
	opts CtfServiceOptions,
) *CtfService {
	if opts.JoinEmoji == "" {
		opts.JoinEmoji = "✋"
	}
	if opts.ArchivedGroup == "" {
		opts.ArchivedGroup = "Archived"
	}
	if opts.DigestWindow <= 0 {
		opts.DigestWindow = defaultDigestWindow
	}
	return &CtfService{
		ctfs:          ctfs,
		challenges:    challenges,
		directory:     directory,
		channels:      channels,
		announcements: announcements,
		events:        events,
		locks:         locks,
		opts:          opts,
		now:           time.Now,
	}
}

// Register resolves the identifier, provisions the channel and join
// marker, and persists the CTF. Nothing is persisted if provisioning
// fails.
func (s *CtfService) Register(ctx context.Context, req primary.RegisterRequest) (*primary.RegisterResponse, error) {
	desc, err := s.resolve(ctx, req.Identifier)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !desc.Finish.IsZero() && now.After(desc.Finish) {
		return nil, primary.ErrEventOver
	}
	start := desc.Start
	if start.Before(now) {
		start = now.Add(startSafetyMargin)
		// The clamp must not push the start past the finish; an event
		// ending within the margin is as good as over.
		if !desc.Finish.IsZero() && !start.Before(desc.Finish) {
			return nil, primary.ErrEventOver
		}
	}

	channelRef, err := s.channels.CreateChannel(ctx, req.GuildRef, desc.Title, desc.URL, req.ParentGroupRef)
	if err != nil {
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	markerRef, err := s.announcements.PostMessage(ctx, req.AnnounceChannelRef,
		renderAnnouncement(desc, req.TeamName, s.opts.JoinEmoji))
	if err != nil {
		s.rollbackChannel(ctx, channelRef)
		return nil, fmt.Errorf("failed to post announcement: %w", err)
	}
	if err := s.announcements.AddReaction(ctx, req.AnnounceChannelRef, markerRef, s.opts.JoinEmoji); err != nil {
		log.Printf("could not add join reaction to %s: %v", markerRef, err)
	}
	if err := s.announcements.PinMessage(ctx, req.AnnounceChannelRef, markerRef); err != nil {
		log.Printf("could not pin announcement %s: %v", markerRef, err)
	}

	scheduledRef := ""
	if s.events != nil {
		scheduledRef, err = s.events.CreateScheduledEvent(ctx, req.GuildRef,
			desc.Title, desc.Description, start, desc.Finish, desc.URL)
		if err != nil {
			log.Printf("could not create scheduled event for %q: %v", desc.Title, err)
			scheduledRef = ""
		}
	}

	creds, err := generateCredentials()
	if err != nil {
		s.rollbackChannel(ctx, channelRef)
		return nil, fmt.Errorf("failed to generate credentials: %w", err)
	}

	record := &secondary.CtfRecord{
		ID:                uuid.NewString(),
		GuildRef:          req.GuildRef,
		EventID:           desc.ID,
		TeamName:          req.TeamName,
		Title:             desc.Title,
		Description:       desc.Description,
		URL:               desc.URL,
		LogoURL:           desc.LogoURL,
		InviteURL:         desc.InviteURL,
		ChannelRef:        channelRef,
		JoinMarkerRef:     markerRef,
		ScheduledEventRef: scheduledRef,
		Phase:             string(primary.PhaseUpcoming),
		StartAt:           start,
		FinishAt:          desc.Finish,
	}
	if err := s.ctfs.Create(ctx, record); err != nil {
		s.rollbackChannel(ctx, channelRef)
		return nil, fmt.Errorf("failed to persist ctf: %w", err)
	}

	credsMsg := fmt.Sprintf("Team credentials for **%s**\nusername: `%s`\npassword: `%s`",
		desc.Title, req.TeamName, creds)
	if msgRef, err := s.announcements.PostMessage(ctx, channelRef, credsMsg); err != nil {
		log.Printf("could not post credentials into %s: %v", channelRef, err)
	} else if err := s.announcements.PinMessage(ctx, channelRef, msgRef); err != nil {
		log.Printf("could not pin credentials in %s: %v", channelRef, err)
	}

	return &primary.RegisterResponse{Ctf: toCtf(record), Credentials: creds}, nil
}

// Unregister deletes the CTF bound to the invoking channel. The channel
// and scheduled event are removed best-effort after the record is gone.
func (s *CtfService) Unregister(ctx context.Context, channelRef string) error {
	record, err := s.ctfs.GetByChannel(ctx, channelRef)
	if err != nil {
		return fmt.Errorf("failed to resolve ctf: %w", err)
	}
	if record == nil {
		return primary.ErrCtfNotFound
	}

	unlock := s.locks.Acquire(record.ID)
	err = s.ctfs.Delete(ctx, record.ID)
	unlock()
	if err != nil {
		return fmt.Errorf("failed to delete ctf: %w", err)
	}
	s.locks.Forget(record.ID)

	if err := s.channels.DeleteChannel(ctx, record.ChannelRef); err != nil {
		log.Printf("could not delete channel %s: %v", record.ChannelRef, err)
	}
	if record.ScheduledEventRef != "" && s.events != nil {
		if err := s.events.DeleteScheduledEvent(ctx, record.GuildRef, record.ScheduledEventRef); err != nil {
			log.Printf("could not delete scheduled event %s: %v", record.ScheduledEventRef, err)
		}
	}
	return nil
}

// Details resolves an identifier for display without side effects.
func (s *CtfService) Details(ctx context.Context, identifier string) (*primary.EventDetails, error) {
	desc, err := s.resolve(ctx, identifier)
	if err != nil {
		return nil, err
	}
	return &primary.EventDetails{
		ID:           desc.ID,
		Title:        desc.Title,
		Description:  desc.Description,
		URL:          desc.URL,
		LogoURL:      desc.LogoURL,
		InviteURL:    desc.InviteURL,
		Start:        desc.Start,
		Finish:       desc.Finish,
		Participants: desc.Participants,
	}, nil
}

// GetByChannel resolves the CTF registered for a channel.
func (s *CtfService) GetByChannel(ctx context.Context, channelRef string) (*primary.Ctf, error) {
	record, err := s.ctfs.GetByChannel(ctx, channelRef)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve ctf: %w", err)
	}
	if record == nil {
		return nil, primary.ErrCtfNotFound
	}
	return toCtf(record), nil
}

// Tick runs one lifecycle sweep over all open CTFs, applying at most
// one transition per record. A tick that would overlap a running one
// returns immediately.
func (s *CtfService) Tick(ctx context.Context) error {
	if !s.sweepMu.TryLock() {
		return nil
	}
	defer s.sweepMu.Unlock()

	records, err := s.ctfs.ListOpen(ctx)
	if err != nil {
		return fmt.Errorf("failed to list open ctfs: %w", err)
	}

	now := s.now()
	for _, record := range records {
		if err := s.sweepOne(ctx, record, now); err != nil {
			log.Printf("sweep of ctf %s failed: %v", record.ID, err)
		}
	}
	return nil
}

// sweepOne applies at most one phase transition to a record. Platform
// lookups and posts run outside the record lock; only the persistence
// transition itself is serialized against the ledger.
func (s *CtfService) sweepOne(ctx context.Context, record *secondary.CtfRecord, now time.Time) error {
	exists, err := s.channels.ChannelExists(ctx, record.ChannelRef)
	if err != nil {
		// Transient lookup failure: never grounds for destroying state.
		return fmt.Errorf("failed to check channel %s: %w", record.ChannelRef, err)
	}
	if !exists {
		if err := s.tombstone(ctx, record.ID); err != nil {
			return fmt.Errorf("failed to tombstone ctf: %w", err)
		}
		log.Printf("channel %s gone, removed ctf %q", record.ChannelRef, record.Title)
		return nil
	}

	// One step per record per tick: a record that slept through its whole
	// window announces its start on one tick and ends on the next, never
	// jumping straight to Ended.
	phase := primary.Phase(record.Phase)
	switch {
	case now.After(record.StartAt) && phase != primary.PhaseActive:
		if err := s.transition(ctx, record.ID, primary.PhaseActive); err != nil {
			return fmt.Errorf("failed to activate ctf: %w", err)
		}
		s.post(ctx, record.ChannelRef, fmt.Sprintf("**%s** has started. Good luck!", record.Title))
	case phase == primary.PhaseUpcoming && now.After(record.StartAt.Add(-dayBeforeWindow)):
		if err := s.transition(ctx, record.ID, primary.PhaseRemindedDayBefore); err != nil {
			return fmt.Errorf("failed to mark reminder sent: %w", err)
		}
		s.post(ctx, record.ChannelRef, fmt.Sprintf("**%s** starts in less than a day.", record.Title))
	case now.After(record.FinishAt):
		return s.endCtf(ctx, record)
	}
	return nil
}

// transition applies a phase update under the record lock.
func (s *CtfService) transition(ctx context.Context, id string, phase primary.Phase) error {
	unlock := s.locks.Acquire(id)
	defer unlock()
	return s.ctfs.UpdatePhase(ctx, id, string(phase))
}

// tombstone deletes a record under its lock and drops the lock entry.
func (s *CtfService) tombstone(ctx context.Context, id string) error {
	unlock := s.locks.Acquire(id)
	err := s.ctfs.Delete(ctx, id)
	unlock()
	if err != nil {
		return err
	}
	s.locks.Forget(id)
	return nil
}

// endCtf marks the CTF ended, posts the score summary and archives the
// channel under the archive group.
func (s *CtfService) endCtf(ctx context.Context, record *secondary.CtfRecord) error {
	if err := s.transition(ctx, record.ID, primary.PhaseEnded); err != nil {
		return fmt.Errorf("failed to end ctf: %w", err)
	}

	solved, err := s.challenges.ListSolved(ctx, record.ID)
	if err != nil {
		log.Printf("could not build summary for %q: %v", record.Title, err)
	} else {
		s.post(ctx, record.ChannelRef, renderSummary(record.Title, solved))
	}

	groupRef, err := s.channels.EnsureGroup(ctx, record.GuildRef, s.opts.ArchivedGroup)
	if err != nil {
		log.Printf("could not resolve archive group: %v", err)
		return nil
	}
	if err := s.channels.MoveChannel(ctx, record.ChannelRef, groupRef); err != nil {
		log.Printf("could not archive channel %s: %v", record.ChannelRef, err)
		return nil
	}
	if err := s.transition(ctx, record.ID, primary.PhaseArchived); err != nil {
		return fmt.Errorf("failed to archive ctf: %w", err)
	}
	return nil
}

// Digest posts the upcoming-events digest to the configured channel.
// A service without a digest channel configured does nothing.
func (s *CtfService) Digest(ctx context.Context) error {
	if s.opts.DigestChannel == "" {
		return nil
	}

	events, err := s.directory.Upcoming(ctx, s.opts.DigestWindow)
	if err != nil {
		return fmt.Errorf("failed to fetch upcoming events: %w", err)
	}
	if len(events) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("Upcoming CTFs:\n")
	for _, ev := range events {
		fmt.Fprintf(&b, "%s starts %s\n%s\n", ev.Title, ev.Start.Format("Mon Jan 2 15:04 MST"), ev.URL)
	}
	if _, err := s.announcements.PostMessage(ctx, s.opts.DigestChannel, b.String()); err != nil {
		return fmt.Errorf("failed to post digest: %w", err)
	}
	return nil
}

func (s *CtfService) resolve(ctx context.Context, identifier string) (*secondary.EventDescriptor, error) {
	desc, err := s.directory.Resolve(ctx, identifier)
	if err != nil {
		if errors.Is(err, secondary.ErrEventNotFound) || errors.Is(err, secondary.ErrInvalidIdentifier) {
			return nil, primary.ErrInvalidEvent
		}
		return nil, fmt.Errorf("failed to resolve event: %w", err)
	}
	return desc, nil
}

func (s *CtfService) rollbackChannel(ctx context.Context, channelRef string) {
	if err := s.channels.DeleteChannel(ctx, channelRef); err != nil {
		log.Printf("could not roll back channel %s: %v", channelRef, err)
	}
}

func (s *CtfService) post(ctx context.Context, channelRef, content string) {
	if _, err := s.announcements.PostMessage(ctx, channelRef, content); err != nil {
		log.Printf("could not post to %s: %v", channelRef, err)
	}
}

func renderAnnouncement(desc *secondary.EventDescriptor, teamName, joinEmoji string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s**\n", desc.Title)
	if desc.Description != "" {
		b.WriteString(desc.Description + "\n")
	}
	fmt.Fprintf(&b, "Starts: %s\nEnds: %s\n",
		desc.Start.Format(time.RFC1123), desc.Finish.Format(time.RFC1123))
	if desc.URL != "" {
		b.WriteString(desc.URL + "\n")
	}
	if desc.InviteURL != "" {
		fmt.Fprintf(&b, "Event server: %s\n", desc.InviteURL)
	}
	fmt.Fprintf(&b, "React with %s to join team **%s**.", joinEmoji, teamName)
	return b.String()
}

// renderSummary credits each solver with the full point value of every
// challenge they are credited on. Points are not split.
func renderSummary(title string, solved []*secondary.ChallengeRecord) string {
	points := make(map[string]int)
	solves := make(map[string]int)
	for _, ch := range solved {
		for _, u := range ch.Solvers {
			points[u] += ch.Points
			solves[u]++
		}
	}

	users := make([]string, 0, len(points))
	for u := range points {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool {
		if points[users[i]] != points[users[j]] {
			return points[users[i]] > points[users[j]]
		}
		return users[i] < users[j]
	})

	var b strings.Builder
	fmt.Fprintf(&b, "**%s** is over. %d challenges solved.\n", title, len(solved))
	if len(users) == 0 {
		b.WriteString("No solves recorded.")
		return b.String()
	}
	for _, u := range users {
		fmt.Fprintf(&b, "<@%s>: %d solves, %d points\n", u, solves[u], points[u])
	}
	return b.String()
}

func generateCredentials() (string, error) {
	buf := make([]byte, credentialBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Ensure CtfService implements the interface
var _ primary.CtfService = (*CtfService)(nil)
