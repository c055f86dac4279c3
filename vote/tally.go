package vote

import (
	"fmt"
	"sort"
	"strings"
)

// Bucket groups the voters sharing one standing vote. Action nil is the
// "not voting" bucket.
type Bucket struct {
	Action *Action
	Voters []string
}

// bucketKey gives Actions value equality for grouping. Targets were
// case-normalized at parse time, so plain comparison is enough.
type bucketKey struct {
	novote bool
	kind   Kind
	target string
}

func keyFor(a *Action) bucketKey {
	if a == nil {
		return bucketKey{novote: true}
	}
	return bucketKey{kind: a.Kind, target: a.Target}
}

// Tally groups a ledger into buckets and ranks them for display: descending
// voter count with a stable, deterministic tie-break, then the abstain bucket
// forced to second-to-last and the "not voting" bucket to last regardless of
// their counts. Voters within a bucket are sorted by identity so the output
// is reproducible for a given ledger.
func Tally(ledger Ledger) []Bucket {
	// Deterministic grouping order: iterate voters sorted by identity.
	names := make([]string, 0, len(ledger))
	for v := range ledger {
		names = append(names, v)
	}
	sort.Strings(names)

	index := make(map[bucketKey]int)
	var buckets []Bucket
	for _, v := range names {
		action := ledger[v]
		k := keyFor(action)
		i, ok := index[k]
		if !ok {
			i = len(buckets)
			index[k] = i
			buckets = append(buckets, Bucket{Action: action})
		}
		buckets[i].Voters = append(buckets[i].Voters, v)
	}

	sort.SliceStable(buckets, func(i, j int) bool {
		return len(buckets[i].Voters) > len(buckets[j].Voters)
	})

	// Pull abstain and no-vote out and re-append in that fixed order.
	var abstain, novote *Bucket
	kept := buckets[:0]
	for i := range buckets {
		b := buckets[i]
		switch {
		case b.Action == nil:
			novote = &b
		case b.Action.Kind == KindAbstain:
			abstain = &b
		default:
			kept = append(kept, b)
		}
	}
	buckets = kept
	if abstain != nil {
		buckets = append(buckets, *abstain)
	}
	if novote != nil {
		buckets = append(buckets, *novote)
	}
	return buckets
}

// RenderTally formats ranked buckets the way the vote-count reply displays
// them: numbered lines for vote targets, unranked trailing lines for the
// abstain and not-voting groups.
func RenderTally(buckets []Bucket) string {
	var b strings.Builder
	for i, bucket := range buckets {
		voters := strings.Join(bucket.Voters, ", ")
		switch {
		case bucket.Action == nil:
			fmt.Fprintf(&b, "\n\n**Not voting** - %d (%s)", len(bucket.Voters), voters)
		case bucket.Action.Kind == KindAbstain:
			fmt.Fprintf(&b, "\n\n**VTNL** - %d (%s)", len(bucket.Voters), voters)
		default:
			fmt.Fprintf(&b, "\n%d. **%s** - %d (%s)", i+1, bucket.Action.Target, len(bucket.Voters), voters)
		}
	}
	return strings.TrimSpace(b.String())
}
