// Package vote implements the vote-tallying core: parsing freeform chat
// messages into structured vote actions, replaying an ordered message stream
// into a per-voter ledger, and aggregating the ledger into ranked buckets for
// display.
//
// Messages are expected to be pre-cleaned (platform mention tokens replaced by
// plain display names) before they reach Parse.
package vote

import (
	"regexp"
	"strings"
	"sync"
	"unicode"
)

// Kind discriminates the three recognized vote directives.
type Kind int

const (
	// KindVote is a vote against a named target ("VTL <target>").
	KindVote Kind = iota
	// KindUnvote retracts the voter's standing vote ("UNVTL [target]").
	KindUnvote
	// KindAbstain is a vote for no elimination ("VTNL").
	KindAbstain
)

// Action is a single parsed vote directive. Target is the capitalized display
// name for votes, the optional name given with an un-vote, and always empty
// for abstains. Two Actions are the same bucket key when Kind and Target both
// match; targets are case-normalized at parse time so no further folding is
// needed.
type Action struct {
	Kind   Kind
	Target string
}

// String renders the directive the way voters type it.
func (a Action) String() string {
	switch a.Kind {
	case KindVote:
		return "VTL " + a.Target
	case KindUnvote:
		if a.Target != "" {
			return "UNVTL " + a.Target
		}
		return "UNVTL"
	default:
		return "VTNL"
	}
}

// Directives must open the message. An unanchored match would light up on any
// prose that merely contains "vtl", so mid-sentence mentions are ignored.
// Surrounding markdown emphasis (*, _, ~, |) is tolerated around the keyword
// and the target.
type patterns struct {
	vote    *regexp.Regexp
	unvote  *regexp.Regexp
	abstain *regexp.Regexp
}

var votePatterns = sync.OnceValue(func() *patterns {
	return &patterns{
		vote:    regexp.MustCompile(`^[*_~|]*(?i:VTL)[*_~|]*[\s*_~|]+([^*_~|]+)`),
		unvote:  regexp.MustCompile(`^[*_~|]*(?i:UN-?VTL)[*_~|]*(?:[\s*_~|]+([^*_~|]+))?`),
		abstain: regexp.MustCompile(`^[*_~|]*(?i:VTNL)[*_~|]*`),
	}
})

// Parse converts one cleaned message into at most one vote action. The bool
// reports whether the message was a vote directive at all; non-directives are
// simply not vote-related and must not affect a ledger.
//
// Patterns are tried in fixed precedence: vote, then un-vote, then abstain.
func Parse(content string) (Action, bool) {
	p := votePatterns()

	if m := p.vote.FindStringSubmatch(content); m != nil {
		return Action{Kind: KindVote, Target: Capitalize(m[1])}, true
	}
	if m := p.unvote.FindStringSubmatch(content); m != nil {
		return Action{Kind: KindUnvote, Target: Capitalize(m[1])}, true
	}
	if p.abstain.MatchString(content) {
		return Action{Kind: KindAbstain}, true
	}
	return Action{}, false
}

// Capitalize normalizes a vote target: each whitespace-separated word gets an
// upper-cased first letter and lower-cased remainder, words are rejoined with
// single spaces, and outer whitespace is trimmed. Matching is ASCII-only, so
// case mapping on other scripts is a no-op by construction.
func Capitalize(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
