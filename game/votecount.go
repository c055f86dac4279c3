package game

import (
	"context"
	"fmt"
	"time"

	"github.com/hexlocke/tvm-warden/vote"
)

// DefaultScanLimit is how many recent messages a vote count replays when the
// request does not say otherwise.
const DefaultScanLimit = 100

// VoteCountRequest parameterises a tally. ChannelID, when set, overrides the
// cycle's recorded voting channel. ActiveVoters keys are author display tags;
// only their messages count.
type VoteCountRequest struct {
	GuildID      string
	ChannelID    string
	ActiveVoters map[string]bool
	Limit        int
}

// VoteCountResult is a finished tally plus the channel it was computed over.
type VoteCountResult struct {
	ChannelID string
	Buckets   []vote.Bucket
}

// VoteCount replays the channel's recent history oldest-first and aggregates
// the resulting ledger. With no explicit channel and no recorded voting
// channel it fails with ErrNoVotingChannel before fetching anything.
func (e *Engine) VoteCount(ctx context.Context, req VoteCountRequest) (VoteCountResult, error) {
	channel := req.ChannelID
	if channel == "" {
		cycle, err := e.store.Cycle(ctx, req.GuildID)
		if err != nil {
			return VoteCountResult{}, fmt.Errorf("read cycle: %w", err)
		}
		ch, ok := cycle.VotingChannel()
		if !ok {
			return VoteCountResult{}, ErrNoVotingChannel
		}
		channel = ch
	}

	limit := req.Limit
	if limit <= 0 {
		limit = DefaultScanLimit
	}
	history, err := e.messages.RecentMessages(ctx, channel, limit)
	if err != nil {
		return VoteCountResult{}, fmt.Errorf("fetch voting history: %w", err)
	}

	// RecentMessages is newest-first; the ledger replays oldest-first.
	msgs := make([]vote.Message, 0, len(history))
	for i := len(history) - 1; i >= 0; i-- {
		msgs = append(msgs, vote.Message{Author: history[i].AuthorTag, Content: history[i].Content})
	}

	ledger := vote.BuildLedger(msgs, req.ActiveVoters)
	return VoteCountResult{ChannelID: channel, Buckets: vote.Tally(ledger)}, nil
}

// HistoryEntry is one parsed vote directive from a single voter's history.
type HistoryEntry struct {
	Action vote.Action
	When   time.Time
}

// VoteHistory returns, oldest-first, every vote directive a single author
// posted in the channel's recent history. Channel selection follows the same
// policy as VoteCount.
func (e *Engine) VoteHistory(ctx context.Context, req VoteCountRequest, authorTag string) (string, []HistoryEntry, error) {
	channel := req.ChannelID
	if channel == "" {
		cycle, err := e.store.Cycle(ctx, req.GuildID)
		if err != nil {
			return "", nil, fmt.Errorf("read cycle: %w", err)
		}
		ch, ok := cycle.VotingChannel()
		if !ok {
			return "", nil, ErrNoVotingChannel
		}
		channel = ch
	}

	limit := req.Limit
	if limit <= 0 {
		limit = DefaultScanLimit
	}
	history, err := e.messages.RecentMessages(ctx, channel, limit)
	if err != nil {
		return "", nil, fmt.Errorf("fetch voting history: %w", err)
	}

	var entries []HistoryEntry
	for i := len(history) - 1; i >= 0; i-- {
		m := history[i]
		if m.AuthorTag != authorTag {
			continue
		}
		action, ok := vote.Parse(m.Content)
		if !ok {
			continue
		}
		entries = append(entries, HistoryEntry{Action: action, When: m.Timestamp})
	}
	return channel, entries, nil
}
