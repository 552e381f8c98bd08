package primary

import "context"

// MembershipService binds reaction signals on a CTF's join marker to the
// channel's access list. Both operations are idempotent and tolerate
// reordered delivery: a leave arriving before its join degrades to a
// no-op revoke.
type MembershipService interface {
	// HandleJoin grants the actor visibility on the channel owned by the
	// CTF whose join marker matches markerRef. Unknown markers are
	// ignored; an unresolvable channel tombstones the CTF.
	HandleJoin(ctx context.Context, markerRef, actor string) error

	// HandleLeave revokes visibility. Same unknown-marker and tombstone
	// handling as HandleJoin.
	HandleLeave(ctx context.Context, markerRef, actor string) error
}
