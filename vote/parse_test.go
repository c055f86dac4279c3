package vote

import "testing"

func TestParseVote(t *testing.T) {
	cases := []struct {
		in     string
		target string
	}{
		{"VTL Arius", "Arius"},
		{"vtl arius", "Arius"},
		{"Vtl ARIUS", "Arius"},
		{"**VTL** _Arius_", "Arius"},
		{"*vtl* craw", "Craw"},
		{"VTL john doe", "John Doe"},
		{"vtl|target", "Target"},
		{"~~VTL~~ ~~Ligi~~", "Ligi"},
	}
	for _, c := range cases {
		got, ok := Parse(c.in)
		if !ok {
			t.Errorf("Parse(%q): no directive recognized", c.in)
			continue
		}
		if got.Kind != KindVote || got.Target != c.target {
			t.Errorf("Parse(%q) = %+v, want vote for %q", c.in, got, c.target)
		}
	}
}

func TestParseUnvote(t *testing.T) {
	cases := []struct {
		in     string
		target string
	}{
		{"UNVTL", ""},
		{"unvtl", ""},
		{"un-vtl Arius", "Arius"},
		{"UNVTL arius", "Arius"},
		{"**unvtl**", ""},
		{"Un-Vtl craw", "Craw"},
	}
	for _, c := range cases {
		got, ok := Parse(c.in)
		if !ok {
			t.Errorf("Parse(%q): no directive recognized", c.in)
			continue
		}
		if got.Kind != KindUnvote || got.Target != c.target {
			t.Errorf("Parse(%q) = %+v, want un-vote for %q", c.in, got, c.target)
		}
	}
}

func TestParseAbstain(t *testing.T) {
	for _, in := range []string{"VTNL", "vtnl", "**VTNL**", "~vtnl~ no lynch today"} {
		got, ok := Parse(in)
		if !ok || got.Kind != KindAbstain {
			t.Errorf("Parse(%q) = %+v, %v, want abstain", in, got, ok)
		}
	}
}

func TestParseAnchoring(t *testing.T) {
	// A directive must open the message; "vtl" buried in prose is not a vote.
	for _, in := range []string{
		"I will VTL Arius",
		"thinking about whether to vtl",
		"maybe VTNL later",
		"don't unvtl yet",
	} {
		if got, ok := Parse(in); ok {
			t.Errorf("Parse(%q) = %+v, want no directive", in, got)
		}
	}
}

func TestParsePrecedence(t *testing.T) {
	// "UNVTL x" must not be read as a vote for "x" even though it contains
	// the vote keyword, and "VTNL" must not be read as a vote.
	got, ok := Parse("UNVTL Arius")
	if !ok || got.Kind != KindUnvote {
		t.Fatalf("Parse(UNVTL Arius) = %+v, %v, want un-vote", got, ok)
	}
	got, ok = Parse("VTNL")
	if !ok || got.Kind != KindAbstain {
		t.Fatalf("Parse(VTNL) = %+v, %v, want abstain", got, ok)
	}
}

func TestParseNonDirectives(t *testing.T) {
	for _, in := range []string{"", "hello", "vt arius", "vtll arius", "VT L Arius"} {
		if got, ok := Parse(in); ok {
			t.Errorf("Parse(%q) = %+v, want no directive", in, got)
		}
	}
}

func TestCapitalize(t *testing.T) {
	cases := map[string]string{
		"arius":       "Arius",
		"ARIUS":       "Arius",
		"  arius  ":   "Arius",
		"john doe":    "John Doe",
		"jOhN   dOe":  "John Doe",
		"":            "",
		"   ":         "",
		"x":           "X",
		"mcDONALD jr": "Mcdonald Jr",
	}
	for in, want := range cases {
		if got := Capitalize(in); got != want {
			t.Errorf("Capitalize(%q) = %q, want %q", in, got, want)
		}
	}
}
