package game

import "errors"

// Sentinel errors for the precondition and lookup failures the command layer
// turns into user-visible replies. None of these represent process faults;
// they abort the invoking command with no state change.
var (
	// ErrNotStarted means no cycle exists yet (cycle number is 0).
	ErrNotStarted = errors.New("game has not started")

	// ErrDeclined means the requester answered "no" to a confirmation
	// prompt. The operation performed no external mutations.
	ErrDeclined = errors.New("confirmation declined")

	// ErrNoVotingChannel means neither an explicit channel argument nor the
	// cycle's recorded voting channel is available.
	ErrNoVotingChannel = errors.New("no voting channel recorded for the current cycle")

	// Per-channel resolution failures during the night transition. Each maps
	// to its own user-facing message.
	ErrNoDayChannel   = errors.New("day channel is not recorded or no longer exists")
	ErrNoVotesChannel = errors.New("votes channel is not recorded or no longer exists")
	ErrNoNightChannel = errors.New("night channel is not recorded or no longer exists")
)
