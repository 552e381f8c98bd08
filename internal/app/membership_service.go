package app

import (
	"context"
	"fmt"
	"log"

	"github.com/example/ctfcord/internal/ports/primary"
	"github.com/example/ctfcord/internal/ports/secondary"
)

// MembershipService binds join-marker reactions to channel visibility.
type MembershipService struct {
	ctfs     secondary.CtfRepository
	channels secondary.ChannelService
	locks    *RecordLocks
}

// NewMembershipService creates a new membership service.
func NewMembershipService(ctfs secondary.CtfRepository, channels secondary.ChannelService, locks *RecordLocks) *MembershipService {
	return &MembershipService{ctfs: ctfs, channels: channels, locks: locks}
}

// HandleJoin grants the actor visibility on the channel owned by the CTF
// whose join marker matches markerRef.
func (s *MembershipService) HandleJoin(ctx context.Context, markerRef, actor string) error {
	return s.setMembership(ctx, markerRef, actor, true)
}

// HandleLeave revokes the actor's visibility. Revoking access that was
// never granted is a no-op on the platform side, so a leave arriving
// before its join degrades safely.
func (s *MembershipService) HandleLeave(ctx context.Context, markerRef, actor string) error {
	return s.setMembership(ctx, markerRef, actor, false)
}

func (s *MembershipService) setMembership(ctx context.Context, markerRef, actor string, visible bool) error {
	record, err := s.ctfs.GetByJoinMarker(ctx, markerRef)
	if err != nil {
		return fmt.Errorf("failed to resolve join marker: %w", err)
	}
	if record == nil {
		// Reaction on an unrelated message.
		return nil
	}

	exists, err := s.channels.ChannelExists(ctx, record.ChannelRef)
	if err != nil {
		return fmt.Errorf("failed to check channel %s: %w", record.ChannelRef, err)
	}
	if !exists {
		// The channel was deleted out from under us. Drop the orphaned
		// record instead of granting access to nothing.
		unlock := s.locks.Acquire(record.ID)
		err := s.ctfs.Delete(ctx, record.ID)
		unlock()
		if err != nil {
			return fmt.Errorf("failed to remove orphaned ctf %s: %w", record.ID, err)
		}
		s.locks.Forget(record.ID)
		log.Printf("channel %s gone, removed ctf %q", record.ChannelRef, record.Title)
		return nil
	}

	if err := s.channels.SetVisibility(ctx, record.ChannelRef, actor, visible); err != nil {
		return fmt.Errorf("failed to update visibility on %s: %w", record.ChannelRef, err)
	}
	return nil
}

// Ensure MembershipService implements the interface
var _ primary.MembershipService = (*MembershipService)(nil)
