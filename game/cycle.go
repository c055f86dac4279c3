// Package game drives the day/night cycle state machine and the vote-count
// orchestration around the vote core. All durable state lives in the config
// store; the engine holds no cross-invocation state of its own.
package game

// Phase is the explicit day/night tag on a cycle. It is the source of truth
// for phase queries; channel permission overwrites are applied as effects of
// a transition and are never read back to infer phase.
type Phase string

const (
	PhaseDay   Phase = "day"
	PhaseNight Phase = "night"
)

// Cycle is one day/night round: a number and the channels provisioned for it.
// Number 0 means the game has not started. Once a cycle is created all three
// channel IDs are expected to be populated, but each remains independently
// optional since external channel creation can partially fail; callers must
// check each before use.
//
// A new cycle replaces the stored value wholesale; fields are never mutated
// piecemeal across invocations.
type Cycle struct {
	Number         int    `json:"number"`
	Phase          Phase  `json:"phase,omitempty"`
	DayChannelID   string `json:"day,omitempty"`
	NightChannelID string `json:"night,omitempty"`
	VotesChannelID string `json:"votes,omitempty"`
}

// Started reports whether a game is underway.
func (c Cycle) Started() bool { return c.Number > 0 }

// VotingChannel returns the recorded voting channel for the cycle, if any.
// It is the default target for vote counting when no channel argument is
// supplied.
func (c Cycle) VotingChannel() (string, bool) {
	return c.VotesChannelID, c.VotesChannelID != ""
}
