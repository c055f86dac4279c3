package vote

import (
	"reflect"
	"testing"
)

func voters(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

func TestBuildLedgerOverride(t *testing.T) {
	// A later vote always replaces an earlier one from the same voter.
	msgs := []Message{
		{Author: "A", Content: "VTL B"},
		{Author: "A", Content: "VTL C"},
	}
	ledger := BuildLedger(msgs, voters("A", "B", "C"))
	got := ledger["A"]
	if got == nil || got.Kind != KindVote || got.Target != "C" {
		t.Fatalf("ledger[A] = %+v, want vote for C", got)
	}
}

func TestBuildLedgerUnvoteClearsUnconditionally(t *testing.T) {
	// An un-vote clears the standing vote even when its target doesn't
	// match the voted name.
	msgs := []Message{
		{Author: "A", Content: "VTL B"},
		{Author: "A", Content: "UNVTL C"},
	}
	ledger := BuildLedger(msgs, voters("A", "B", "C"))
	if ledger["A"] != nil {
		t.Fatalf("ledger[A] = %+v, want nil after un-vote", ledger["A"])
	}

	// Bare un-vote with no standing vote is a recorded "not voting".
	ledger = BuildLedger([]Message{{Author: "B", Content: "UNVTL"}}, voters("A", "B"))
	if v, ok := ledger["B"]; !ok || v != nil {
		t.Fatalf("ledger[B] = %+v (present=%v), want explicit nil", v, ok)
	}
}

func TestBuildLedgerSkipsNonVotersAndProse(t *testing.T) {
	msgs := []Message{
		{Author: "Spectator", Content: "VTL A"},
		{Author: "A", Content: "good morning"},
		{Author: "A", Content: "I will VTL B"}, // not anchored, not a directive
	}
	ledger := BuildLedger(msgs, voters("A"))
	if len(ledger) != 1 {
		t.Fatalf("ledger has %d entries, want 1", len(ledger))
	}
	if ledger["A"] != nil {
		t.Fatalf("ledger[A] = %+v, want nil", ledger["A"])
	}
}

func TestBuildLedgerCompleteness(t *testing.T) {
	// Every active voter gets exactly one entry, directive or not.
	msgs := []Message{{Author: "A", Content: "VTL B"}}
	active := voters("A", "B", "C", "D")
	ledger := BuildLedger(msgs, active)
	if len(ledger) != len(active) {
		t.Fatalf("ledger has %d entries, want %d", len(ledger), len(active))
	}
	for v := range active {
		if _, ok := ledger[v]; !ok {
			t.Errorf("voter %s missing from ledger", v)
		}
	}
}

func TestBuildLedgerIdempotent(t *testing.T) {
	msgs := []Message{
		{Author: "A", Content: "VTL B"},
		{Author: "B", Content: "VTNL"},
		{Author: "C", Content: "vtl a"},
		{Author: "A", Content: "unvtl"},
	}
	active := voters("A", "B", "C")
	first := BuildLedger(msgs, active)
	second := BuildLedger(msgs, active)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("ledgers differ between runs: %+v vs %+v", first, second)
	}
}

func TestBuildLedgerScenario(t *testing.T) {
	// Canonical scenario: A votes B, B votes C, C abstains, A retracts.
	msgs := []Message{
		{Author: "A", Content: "VTL B"},
		{Author: "B", Content: "VTL C"},
		{Author: "C", Content: "VTNL"},
		{Author: "A", Content: "UNVTL"},
	}
	ledger := BuildLedger(msgs, voters("A", "B", "C"))

	if ledger["A"] != nil {
		t.Errorf("ledger[A] = %+v, want nil", ledger["A"])
	}
	if b := ledger["B"]; b == nil || b.Kind != KindVote || b.Target != "C" {
		t.Errorf("ledger[B] = %+v, want vote for C", b)
	}
	if c := ledger["C"]; c == nil || c.Kind != KindAbstain {
		t.Errorf("ledger[C] = %+v, want abstain", c)
	}
}
