package vote

import (
	"strings"
	"testing"
)

func mkLedger(entries map[string]*Action) Ledger {
	l := make(Ledger, len(entries))
	for k, v := range entries {
		l[k] = v
	}
	return l
}

func vote(target string) *Action { return &Action{Kind: KindVote, Target: target} }
func abstainAction() *Action     { return &Action{Kind: KindAbstain} }

func TestTallyOrdering(t *testing.T) {
	// Vote buckets of sizes 3, 1 and 5, plus non-empty abstain and no-vote
	// buckets. Count order is 5, 3, 1; abstain and no-vote always trail.
	ledger := mkLedger(map[string]*Action{
		"p1": vote("Big"), "p2": vote("Big"), "p3": vote("Big"), "p4": vote("Big"), "p5": vote("Big"),
		"q1": vote("Mid"), "q2": vote("Mid"), "q3": vote("Mid"),
		"r1": vote("Small"),
		"s1": abstainAction(), "s2": abstainAction(), "s3": abstainAction(), "s4": abstainAction(),
		"t1": nil, "t2": nil, "t3": nil, "t4": nil, "t5": nil, "t6": nil,
	})

	buckets := Tally(ledger)
	if len(buckets) != 5 {
		t.Fatalf("got %d buckets, want 5", len(buckets))
	}
	wantTargets := []string{"Big", "Mid", "Small"}
	for i, want := range wantTargets {
		if buckets[i].Action == nil || buckets[i].Action.Target != want {
			t.Errorf("bucket %d = %+v, want vote for %s", i, buckets[i].Action, want)
		}
	}
	if buckets[3].Action == nil || buckets[3].Action.Kind != KindAbstain {
		t.Errorf("bucket 3 = %+v, want abstain", buckets[3].Action)
	}
	if buckets[4].Action != nil {
		t.Errorf("bucket 4 = %+v, want no-vote", buckets[4].Action)
	}
}

func TestTallyEveryVoterInExactlyOneBucket(t *testing.T) {
	ledger := mkLedger(map[string]*Action{
		"A": vote("B"), "B": vote("C"), "C": abstainAction(), "D": nil,
	})
	seen := map[string]int{}
	for _, b := range Tally(ledger) {
		for _, v := range b.Voters {
			seen[v]++
		}
	}
	if len(seen) != len(ledger) {
		t.Fatalf("saw %d voters, want %d", len(seen), len(ledger))
	}
	for v, n := range seen {
		if n != 1 {
			t.Errorf("voter %s appears in %d buckets", v, n)
		}
	}
}

func TestTallyScenario(t *testing.T) {
	// Ledger from the canonical replay scenario: A not voting, B votes C,
	// C abstains. Expected bucket order: Vote(C), abstain, no-vote.
	ledger := mkLedger(map[string]*Action{
		"A": nil,
		"B": vote("C"),
		"C": abstainAction(),
	})
	buckets := Tally(ledger)
	if len(buckets) != 3 {
		t.Fatalf("got %d buckets, want 3", len(buckets))
	}
	if a := buckets[0].Action; a == nil || a.Kind != KindVote || a.Target != "C" {
		t.Fatalf("bucket 0 = %+v, want vote for C", a)
	}
	if got := buckets[0].Voters; len(got) != 1 || got[0] != "B" {
		t.Errorf("bucket 0 voters = %v, want [B]", got)
	}
	if a := buckets[1].Action; a == nil || a.Kind != KindAbstain {
		t.Errorf("bucket 1 = %+v, want abstain", a)
	}
	if a := buckets[2].Action; a != nil {
		t.Errorf("bucket 2 = %+v, want no-vote", a)
	}
}

func TestTallyDeterministic(t *testing.T) {
	ledger := mkLedger(map[string]*Action{
		"A": vote("X"), "B": vote("Y"), "C": vote("X"), "D": vote("Y"), "E": nil,
	})
	first := RenderTally(Tally(ledger))
	for i := 0; i < 20; i++ {
		if got := RenderTally(Tally(ledger)); got != first {
			t.Fatalf("run %d differs:\n%s\nvs\n%s", i, got, first)
		}
	}
}

func TestRenderTally(t *testing.T) {
	ledger := mkLedger(map[string]*Action{
		"Arius": vote("Craw"), "Ligi": vote("Craw"),
		"Craw": vote("Arius"),
		"Mole": abstainAction(),
		"Idle": nil,
	})
	out := RenderTally(Tally(ledger))

	wantLines := []string{
		"1. **Craw** - 2 (Arius, Ligi)",
		"2. **Arius** - 1 (Craw)",
		"**VTNL** - 1 (Mole)",
		"**Not voting** - 1 (Idle)",
	}
	for _, want := range wantLines {
		if !strings.Contains(out, want) {
			t.Errorf("rendered tally missing %q:\n%s", want, out)
		}
	}
	// Ranked lines precede the unranked trailers.
	if strings.Index(out, "**VTNL**") < strings.Index(out, "**Arius**") {
		t.Errorf("abstain bucket rendered before vote buckets:\n%s", out)
	}
}
