package vote

// Message is one attributed chat message, already cleaned of platform mention
// tokens. Author is an opaque voter identity; callers decide what it is (the
// bot layer uses the member's display tag) as long as it is unique per voter.
type Message struct {
	Author  string
	Content string
}

// Ledger maps each active voter to their standing vote. A nil value means the
// voter is explicitly not voting: either they retracted, or they never issued
// a directive. Every active voter has exactly one entry.
type Ledger map[string]*Action

// BuildLedger replays messages in the order given, which must be
// chronological oldest-first, and returns the resulting ledger. Replaying the
// full history forward and letting later messages win is equivalent to
// "most recent directive per voter" and much easier to reason about than a
// newest-first scan with first-seen dedup, so that is the canonical
// algorithm here.
//
// Messages from authors outside voters are skipped, as are messages that
// parse to no directive. Votes and abstains overwrite the author's entry
// unconditionally. An un-vote clears the entry unconditionally, regardless of
// whether its optional target names the standing vote.
func BuildLedger(messages []Message, voters map[string]bool) Ledger {
	ledger := make(Ledger, len(voters))

	for _, msg := range messages {
		if !voters[msg.Author] {
			continue
		}
		action, ok := Parse(msg.Content)
		if !ok {
			continue
		}
		switch action.Kind {
		case KindVote, KindAbstain:
			a := action
			ledger[msg.Author] = &a
		case KindUnvote:
			ledger[msg.Author] = nil
		}
	}

	// Completeness: voters with no directive are explicitly "not voting".
	for v := range voters {
		if _, ok := ledger[v]; !ok {
			ledger[v] = nil
		}
	}
	return ledger
}
