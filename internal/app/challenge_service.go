package app

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/example/ctfcord/internal/ports/primary"
	"github.com/example/ctfcord/internal/ports/secondary"
)

// pageCharBudget caps a rendered challenge-list page. Pages split at
// category boundaries when possible; a single challenge line is never
// split.
const pageCharBudget = 3000

// ChallengeService implements the challenge ledger on top of the CTF
// and challenge repositories.
type ChallengeService struct {
	ctfs       secondary.CtfRepository
	challenges secondary.ChallengeRepository
	channels   secondary.ChannelService
	locks      *RecordLocks
}

// NewChallengeService creates a new challenge service.
func NewChallengeService(
	ctfs secondary.CtfRepository,
	challenges secondary.ChallengeRepository,
	channels secondary.ChannelService,
	locks *RecordLocks,
) *ChallengeService {
	return &ChallengeService{
		ctfs:       ctfs,
		challenges: challenges,
		channels:   channels,
		locks:      locks,
	}
}

// WorkOn appends the actor to the challenge's working set, creating the
// challenge and its discussion thread first if needed.
func (s *ChallengeService) WorkOn(ctx context.Context, req primary.WorkOnRequest) (*primary.Challenge, error) {
	ctf, err := s.resolveCtf(ctx, req.ChannelRef)
	if err != nil {
		return nil, err
	}

	record, created, err := s.workOnLocked(ctx, ctf.ID, req)
	if err != nil {
		return nil, err
	}
	if !created {
		return toChallenge(record), nil
	}

	// Thread creation is best-effort and runs outside the record lock: a
	// stalled platform call must not block other ledger operations or
	// the sweep. The ledger entry stands even when the platform refuses
	// the sub-channel.
	threadRef, err := s.channels.CreateThread(ctx, ctf.ChannelRef, req.Name)
	if err != nil {
		log.Printf("could not create thread for challenge %q: %v", req.Name, err)
		return toChallenge(record), nil
	}
	if err := s.challenges.SetThreadRef(ctx, record.ID, threadRef); err != nil {
		// The challenge may have been removed while the thread was being
		// created; the thread is then orphaned but harmless.
		log.Printf("could not store thread ref for challenge %q: %v", req.Name, err)
		return toChallenge(record), nil
	}
	record.ThreadRef = threadRef
	return toChallenge(record), nil
}

// workOnLocked is the persistence half of WorkOn: everything under the
// record lock, no platform calls.
func (s *ChallengeService) workOnLocked(ctx context.Context, ctfID string, req primary.WorkOnRequest) (*secondary.ChallengeRecord, bool, error) {
	unlock := s.locks.Acquire(ctfID)
	defer unlock()

	existing, err := s.challenges.GetByName(ctx, ctfID, req.Name)
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up challenge: %w", err)
	}
	if existing != nil {
		if existing.Solved {
			return nil, false, primary.ErrAlreadySolved
		}
		if contains(existing.Workers, req.Actor) {
			return nil, false, primary.ErrAlreadyJoined
		}
		if err := s.challenges.AddWorker(ctx, existing.ID, req.Actor); err != nil {
			return nil, false, fmt.Errorf("failed to add worker: %w", err)
		}
		existing.Workers = append(existing.Workers, req.Actor)
		return existing, false, nil
	}

	if req.Category == "" {
		return nil, false, primary.ErrCategoryRequired
	}

	record := &secondary.ChallengeRecord{
		ID:       uuid.NewString(),
		CtfID:    ctfID,
		Name:     req.Name,
		Category: req.Category,
		Workers:  []string{req.Actor},
	}
	if err := s.challenges.Create(ctx, record); err != nil {
		return nil, false, fmt.Errorf("failed to create challenge: %w", err)
	}
	return record, true, nil
}

// Solve transitions a challenge to solved, crediting the working set
// plus the actor. When req.ThreadRef resolves to a challenge, that
// binding wins and req.Name is ignored.
func (s *ChallengeService) Solve(ctx context.Context, req primary.SolveRequest) (*primary.Challenge, error) {
	ctf, err := s.resolveCtf(ctx, req.ChannelRef)
	if err != nil {
		return nil, err
	}

	record, transitioned, err := s.solveLocked(ctx, ctf.ID, req)
	if err != nil {
		return nil, err
	}

	// The cosmetic rename runs after the lock is released.
	if transitioned && record.ThreadRef != "" {
		if err := s.channels.RenameThread(ctx, record.ThreadRef, solvedTitle(record.Name)); err != nil {
			log.Printf("could not rename thread for challenge %q: %v", record.Name, err)
		}
	}
	return toChallenge(record), nil
}

// solveLocked is the persistence half of Solve: everything under the
// record lock, no platform calls. transitioned reports whether this call
// performed the unsolved-to-solved transition.
func (s *ChallengeService) solveLocked(ctx context.Context, ctfID string, req primary.SolveRequest) (*secondary.ChallengeRecord, bool, error) {
	unlock := s.locks.Acquire(ctfID)
	defer unlock()

	var record *secondary.ChallengeRecord
	var err error
	if req.ThreadRef != "" {
		record, err = s.challenges.GetByThread(ctx, req.ThreadRef)
		if err != nil {
			return nil, false, fmt.Errorf("failed to look up challenge by thread: %w", err)
		}
	}
	if record == nil {
		if req.Name == "" {
			return nil, false, primary.ErrChallengeNotFound
		}
		record, err = s.challenges.GetByName(ctx, ctfID, req.Name)
		if err != nil {
			return nil, false, fmt.Errorf("failed to look up challenge: %w", err)
		}
	}

	switch {
	case record == nil:
		if req.Category == "" {
			return nil, false, primary.ErrCategoryRequired
		}
		record = &secondary.ChallengeRecord{
			ID:       uuid.NewString(),
			CtfID:    ctfID,
			Name:     req.Name,
			Category: req.Category,
			Points:   req.Points,
			Solved:   true,
			Flag:     req.Flag,
			Workers:  []string{req.Actor},
			Solvers:  []string{req.Actor},
		}
		if err := s.challenges.Create(ctx, record); err != nil {
			return nil, false, fmt.Errorf("failed to create solved challenge: %w", err)
		}
		return record, false, nil
	case record.Solved:
		if contains(record.Solvers, req.Actor) {
			return nil, false, primary.ErrAlreadyCredited
		}
		if err := s.challenges.AddSolver(ctx, record.ID, req.Actor); err != nil {
			return nil, false, fmt.Errorf("failed to add solver: %w", err)
		}
		record.Solvers = append(record.Solvers, req.Actor)
		return record, false, nil
	default:
		solvers := append([]string(nil), record.Workers...)
		if !contains(solvers, req.Actor) {
			solvers = append(solvers, req.Actor)
		}
		if err := s.challenges.MarkSolved(ctx, record.ID, req.Flag, req.Points, solvers); err != nil {
			return nil, false, fmt.Errorf("failed to mark challenge solved: %w", err)
		}
		record.Solved = true
		record.Flag = req.Flag
		record.Points = req.Points
		record.Solvers = solvers
		return record, true, nil
	}
}

// Remove deletes a challenge and, best-effort, its discussion thread.
// The thread deletion runs outside the record lock.
func (s *ChallengeService) Remove(ctx context.Context, channelRef, name string) error {
	ctf, err := s.resolveCtf(ctx, channelRef)
	if err != nil {
		return err
	}

	record, err := s.removeLocked(ctx, ctf.ID, name)
	if err != nil {
		return err
	}

	if record.ThreadRef != "" {
		if err := s.channels.DeleteThread(ctx, record.ThreadRef); err != nil {
			log.Printf("could not delete thread for challenge %q: %v", name, err)
		}
	}
	return nil
}

func (s *ChallengeService) removeLocked(ctx context.Context, ctfID, name string) (*secondary.ChallengeRecord, error) {
	unlock := s.locks.Acquire(ctfID)
	defer unlock()

	record, err := s.challenges.GetByName(ctx, ctfID, name)
	if err != nil {
		return nil, fmt.Errorf("failed to look up challenge: %w", err)
	}
	if record == nil {
		return nil, primary.ErrChallengeNotFound
	}
	if err := s.challenges.Delete(ctx, record.ID); err != nil {
		return nil, fmt.Errorf("failed to delete challenge: %w", err)
	}
	return record, nil
}

// List returns the CTF's challenges grouped by category in insertion
// order.
func (s *ChallengeService) List(ctx context.Context, channelRef string) ([]*primary.Challenge, error) {
	ctf, err := s.resolveCtf(ctx, channelRef)
	if err != nil {
		return nil, err
	}

	records, err := s.challenges.ListByCtf(ctx, ctf.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list challenges: %w", err)
	}

	challenges := make([]*primary.Challenge, len(records))
	for i, record := range records {
		challenges[i] = toChallenge(record)
	}
	return challenges, nil
}

// ListPages renders the challenge list into pages under the page
// character budget.
func (s *ChallengeService) ListPages(ctx context.Context, channelRef string) ([]string, error) {
	challenges, err := s.List(ctx, channelRef)
	if err != nil {
		return nil, err
	}
	return renderPages(challenges), nil
}

func (s *ChallengeService) resolveCtf(ctx context.Context, channelRef string) (*secondary.CtfRecord, error) {
	record, err := s.ctfs.GetByChannel(ctx, channelRef)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve ctf: %w", err)
	}
	if record == nil {
		return nil, primary.ErrCtfNotFound
	}
	return record, nil
}

func solvedTitle(name string) string {
	return name + " [SOLVED]"
}

func renderChallengeLine(ch *primary.Challenge) string {
	label := fmt.Sprintf("`%s/%s`", ch.Category, ch.Name)
	users := ch.WorkingOn
	if ch.Solved {
		label = fmt.Sprintf("`%s/%s [SOLVED]`", ch.Category, ch.Name)
		users = ch.SolvedBy
	}
	if len(users) == 0 {
		return label + "\n"
	}
	mentions := make([]string, len(users))
	for i, u := range users {
		mentions[i] = "<@" + u + ">"
	}
	return label + " " + strings.Join(mentions, " + ") + "\n"
}

func renderPages(challenges []*primary.Challenge) []string {
	if len(challenges) == 0 {
		return []string{"No challenges yet."}
	}

	var pages []string
	var page strings.Builder
	category := ""
	for _, ch := range challenges {
		header := ""
		if ch.Category != category {
			category = ch.Category
			header = "\n**" + category + "**\n"
		}
		line := renderChallengeLine(ch)

		if page.Len() > 0 && page.Len()+len(header)+len(line) > pageCharBudget {
			pages = append(pages, page.String())
			page.Reset()
			// A category split mid-way repeats its header on the next page.
			header = "\n**" + category + "**\n"
		}
		page.WriteString(header)
		page.WriteString(line)
	}
	return append(pages, page.String())
}

// Ensure ChallengeService implements the interface
var _ primary.ChallengeService = (*ChallengeService)(nil)
