package primary

import "errors"

// User-facing operation errors. The command layer matches these with
// errors.Is and turns them into replies; none of them is fatal to the
// process. Anything not in this taxonomy is an internal failure and is
// surfaced as a wrapped error instead.
var (
	// ErrInvalidEvent means the identifier did not resolve to an event
	// (bad input or nonexistent ID). Retrying without new input is useless.
	ErrInvalidEvent = errors.New("not a valid event link or id")

	// ErrEventOver rejects registration of an event whose finish is past.
	ErrEventOver = errors.New("this CTF is already over")

	// ErrCtfNotFound means the invoking channel has no registered CTF.
	ErrCtfNotFound = errors.New("no CTF registered for this channel")

	// ErrChallengeNotFound means no challenge with that name exists.
	ErrChallengeNotFound = errors.New("challenge not found")

	// ErrAlreadySolved rejects working on a challenge that is solved.
	ErrAlreadySolved = errors.New("challenge is already solved")

	// ErrAlreadyJoined signals the actor is already in the working set.
	// Idempotent no-op signal rather than a hard failure.
	ErrAlreadyJoined = errors.New("already working on this challenge")

	// ErrAlreadyCredited signals the actor is already in the solver set.
	ErrAlreadyCredited = errors.New("already credited for this challenge")

	// ErrCategoryRequired means a new challenge was named without a category.
	ErrCategoryRequired = errors.New("category is required for a new challenge")
)
