package bot

import (
	"errors"
	"testing"
	"time"
	"unicode/utf8"
)

func TestSplitCommand(t *testing.T) {
	tests := []struct {
		content string
		prefix  string
		name    string
		args    []string
		raw     string
		ok      bool
	}{
		{"-votecount", "-", "votecount", nil, "", true},
		{"-vc day-3-voting", "-", "vc", []string{"day-3-voting"}, "day-3-voting", true},
		{"-vh  #day-1-voting   alice", "-", "vh", []string{"#day-1-voting", "alice"}, "#day-1-voting   alice", true},
		{"-NA kill the doctor", "-", "na", []string{"kill", "the", "doctor"}, "kill the doctor", true},
		{"votecount", "-", "", nil, "", false},
		{"-", "-", "", nil, "", false},
		{"!!cycle 2", "!!", "cycle", []string{"2"}, "2", true},
	}
	for _, tc := range tests {
		name, args, raw, ok := splitCommand(tc.content, tc.prefix)
		if ok != tc.ok {
			t.Errorf("splitCommand(%q, %q) ok = %v, want %v", tc.content, tc.prefix, ok, tc.ok)
			continue
		}
		if !ok {
			continue
		}
		if name != tc.name {
			t.Errorf("splitCommand(%q) name = %q, want %q", tc.content, name, tc.name)
		}
		if len(args) != len(tc.args) {
			t.Errorf("splitCommand(%q) args = %v, want %v", tc.content, args, tc.args)
			continue
		}
		for i := range args {
			if args[i] != tc.args[i] {
				t.Errorf("splitCommand(%q) args[%d] = %q, want %q", tc.content, i, args[i], tc.args[i])
			}
		}
		if raw != tc.raw {
			t.Errorf("splitCommand(%q) raw = %q, want %q", tc.content, raw, tc.raw)
		}
	}
}

func TestLookupCommandAliases(t *testing.T) {
	aliases := map[string]string{
		"votecount":     "votecount",
		"vc":            "votecount",
		"vh":            "votehistory",
		"ts":            "timesince",
		"repl":          "repl",
		"spectator":     "spec",
		"randomise":     "rand",
		"randomize":     "rand",
		"plist":         "playerlist",
		"pl":            "playerlist",
		"mafchat":       "mafiachat",
		"spectatorchat": "specchat",
		"na":            "nightaction",
	}
	for input, want := range aliases {
		cmd, ok := lookupCommand(input)
		if !ok {
			t.Errorf("lookupCommand(%q) not found", input)
			continue
		}
		if cmd.name != want {
			t.Errorf("lookupCommand(%q).name = %q, want %q", input, cmd.name, want)
		}
	}
	if _, ok := lookupCommand("bogus"); ok {
		t.Error("lookupCommand(bogus) should not resolve")
	}
}

func TestSetupCommandsAreLockable(t *testing.T) {
	for _, name := range []string{"host", "player", "spec", "replrole", "dead", "nachannel", "signups", "signopen", "signclose", "changena", "totalplayers", "useroster", "prefix"} {
		cmd, ok := lookupCommand(name)
		if !ok {
			t.Fatalf("lookupCommand(%q) not found", name)
		}
		if !cmd.hostOnly || !cmd.lockable {
			t.Errorf("%s: hostOnly=%v lockable=%v, want both true", name, cmd.hostOnly, cmd.lockable)
		}
	}
	// unlock must work while settings are locked.
	if cmd, ok := lookupCommand("unlock"); !ok || cmd.lockable {
		t.Error("unlock must not be lockable")
	}
}

func TestHumanDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{30 * time.Second, ""},
		{time.Minute, "1 minute"},
		{5 * time.Minute, "5 minutes"},
		{time.Hour + 2*time.Minute, "1 hour, 2 minutes"},
		{26 * time.Hour, "1 day, 2 hours"},
		{8 * 24 * time.Hour, "1 week, 1 day"},
		{15*24*time.Hour + 3*time.Hour + time.Minute, "2 weeks, 1 day, 3 hours, 1 minute"},
	}
	for _, tc := range tests {
		if got := humanDuration(tc.d); got != tc.want {
			t.Errorf("humanDuration(%v) = %q, want %q", tc.d, got, tc.want)
		}
	}
}

func TestJumpURL(t *testing.T) {
	got := jumpURL("1", "2", "3")
	want := "https://discord.com/channels/1/2/3"
	if got != want {
		t.Fatalf("jumpURL = %q, want %q", got, want)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("hello", 10); got != "hello" {
		t.Errorf("truncate short = %q", got)
	}
	if got := truncate("hello world", 5); got != "hello…" {
		t.Errorf("truncate long = %q", got)
	}
	// Cutting inside a multibyte rune must back off to the rune boundary.
	if got := truncate("日本語", 4); got != "日…" {
		t.Errorf("truncate multibyte = %q", got)
	}
	if got := truncate("aé bc", 2); got != "a…" {
		t.Errorf("truncate multibyte boundary = %q", got)
	}
	if !utf8.ValidString(truncate("日本語テスト", 7)) {
		t.Error("truncate produced invalid UTF-8")
	}
}

func TestChannelFromArgs(t *testing.T) {
	resolve := func(arg string) (string, error) {
		if arg == "#day-1" {
			return "111", nil
		}
		return "", errors.New("no channel found")
	}

	ch, _, ok := channelFromArgs(nil, "invoking", resolve)
	if !ok || ch != "invoking" {
		t.Fatalf("no args: ch=%q ok=%v, want invoking channel", ch, ok)
	}

	ch, _, ok = channelFromArgs([]string{"#day-1"}, "invoking", resolve)
	if !ok || ch != "111" {
		t.Fatalf("resolvable arg: ch=%q ok=%v, want 111", ch, ok)
	}

	// An unresolvable argument must not fall back to the invoking channel.
	_, badArg, ok := channelFromArgs([]string{"#nope"}, "invoking", resolve)
	if ok || badArg != "#nope" {
		t.Fatalf("bad arg: badArg=%q ok=%v, want lookup failure", badArg, ok)
	}
}

func TestSplitCommaList(t *testing.T) {
	got := splitCommaList("Mafia, Doctor ,Cop,, Town")
	want := []string{"Mafia", "Doctor", "Cop", "Town"}
	if len(got) != len(want) {
		t.Fatalf("splitCommaList = %v, want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("splitCommaList[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestCapitalizeError(t *testing.T) {
	if got := capitalizeError(errors.New("no member found matching `x`")); got != "No member found matching `x`." {
		t.Errorf("capitalizeError = %q", got)
	}
	if got := capitalizeError(errors.New("")); got != "Something went wrong." {
		t.Errorf("capitalizeError empty = %q", got)
	}
}
