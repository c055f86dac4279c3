package game

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/hexlocke/tvm-warden/platform"
	"github.com/hexlocke/tvm-warden/vote"
)

// fakeWorld implements every engine collaborator and records mutations so
// tests can assert both outcomes and call ordering.
type fakeWorld struct {
	cycle        Cycle
	cycleErr     error
	naChannel    string
	naResets     int
	storedCycles []Cycle

	confirmAnswer bool
	confirmErr    error
	confirmCalls  int
	prompts       []string

	createdCategories []string
	createdChannels   []string
	createErr         error
	nextID            int
	existing          map[string]bool
	overwrites        map[string][]platform.Overwrite
	deletedOverwrites []string // "channel/principal"

	sent    []string
	sendErr error

	messages    []platform.Message
	messagesErr error
	fetched     []string

	calls int // every external call, for the no-side-effects assertions
}

func newFakeWorld() *fakeWorld {
	return &fakeWorld{
		confirmAnswer: true,
		existing:      map[string]bool{},
		overwrites:    map[string][]platform.Overwrite{},
	}
}

func (f *fakeWorld) Cycle(ctx context.Context, guildID string) (Cycle, error) {
	return f.cycle, f.cycleErr
}

func (f *fakeWorld) SetCycle(ctx context.Context, guildID string, c Cycle) error {
	f.calls++
	f.cycle = c
	f.storedCycles = append(f.storedCycles, c)
	return nil
}

func (f *fakeWorld) ResetNightActions(ctx context.Context, guildID string) error {
	f.calls++
	f.naResets++
	return nil
}

func (f *fakeWorld) NightActionsChannel(ctx context.Context, guildID string) (string, error) {
	return f.naChannel, nil
}

func (f *fakeWorld) SetNightActionsChannel(ctx context.Context, guildID, channelID string) error {
	f.calls++
	f.naChannel = channelID
	return nil
}

func (f *fakeWorld) CreateCategory(ctx context.Context, guildID, name string, overwrites []platform.Overwrite) (string, error) {
	f.calls++
	if f.createErr != nil {
		return "", f.createErr
	}
	f.createdCategories = append(f.createdCategories, name)
	return f.newID(name), nil
}

func (f *fakeWorld) CreateChannel(ctx context.Context, guildID, name, parentID string, overwrites []platform.Overwrite) (string, error) {
	f.calls++
	if f.createErr != nil {
		return "", f.createErr
	}
	f.createdChannels = append(f.createdChannels, name)
	id := f.newID(name)
	f.overwrites[id] = overwrites
	return id, nil
}

func (f *fakeWorld) newID(name string) string {
	f.nextID++
	id := fmt.Sprintf("id-%s-%d", name, f.nextID)
	f.existing[id] = true
	return id
}

func (f *fakeWorld) Overwrites(ctx context.Context, channelID string) ([]platform.Overwrite, error) {
	f.calls++
	return f.overwrites[channelID], nil
}

func (f *fakeWorld) DeleteOverwrite(ctx context.Context, channelID, principalID string) error {
	f.calls++
	f.deletedOverwrites = append(f.deletedOverwrites, channelID+"/"+principalID)
	return nil
}

func (f *fakeWorld) ChannelExists(ctx context.Context, channelID string) bool {
	return f.existing[channelID]
}

func (f *fakeWorld) Send(ctx context.Context, channelID, content string) error {
	f.calls++
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, channelID+": "+content)
	return nil
}

func (f *fakeWorld) Confirm(ctx context.Context, channelID, requesterID, prompt string) (bool, error) {
	f.confirmCalls++
	f.prompts = append(f.prompts, prompt)
	return f.confirmAnswer, f.confirmErr
}

func (f *fakeWorld) RecentMessages(ctx context.Context, channelID string, limit int) ([]platform.Message, error) {
	f.fetched = append(f.fetched, channelID)
	return f.messages, f.messagesErr
}

func newTestEngine(f *fakeWorld) *Engine {
	return New(f, f, f, f, f)
}

func intPtr(n int) *int { return &n }

func TestCreateCycleAutoNumbers(t *testing.T) {
	tests := []struct {
		name    string
		current int
		want    int
	}{
		{"fresh guild", 0, 1},
		{"mid game", 4, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeWorld()
			f.cycle = Cycle{Number: tt.current}
			cycle, err := newTestEngine(f).CreateCycle(context.Background(), CycleRequest{
				GuildID: "g1", ChannelID: "lobby", RequesterID: "host",
				PlayerRoleID: "role-alive", BotID: "bot",
			})
			if err != nil {
				t.Fatalf("CreateCycle: %v", err)
			}
			if cycle.Number != tt.want {
				t.Errorf("cycle number = %d, want %d", cycle.Number, tt.want)
			}
		})
	}
}

func TestCreateCycleExplicitNumber(t *testing.T) {
	f := newFakeWorld()
	f.cycle = Cycle{Number: 7, Phase: PhaseNight}
	cycle, err := newTestEngine(f).CreateCycle(context.Background(), CycleRequest{
		GuildID: "g1", ChannelID: "lobby", RequesterID: "host",
		Number: intPtr(2), PlayerRoleID: "role-alive", BotID: "bot",
	})
	if err != nil {
		t.Fatalf("CreateCycle: %v", err)
	}
	if cycle.Number != 2 {
		t.Errorf("cycle number = %d, want 2", cycle.Number)
	}
	wantCategory := "Day 2"
	if len(f.createdCategories) != 1 || f.createdCategories[0] != wantCategory {
		t.Errorf("created categories = %v, want [%q]", f.createdCategories, wantCategory)
	}
}

func TestCreateCycleProvisionsChannels(t *testing.T) {
	f := newFakeWorld()
	cycle, err := newTestEngine(f).CreateCycle(context.Background(), CycleRequest{
		GuildID: "g1", ChannelID: "lobby", RequesterID: "host",
		PlayerRoleID: "role-alive", BotID: "bot",
	})
	if err != nil {
		t.Fatalf("CreateCycle: %v", err)
	}

	want := []string{"day-1", "day-1-voting", "night-1"}
	if len(f.createdChannels) != len(want) {
		t.Fatalf("created channels = %v, want %v", f.createdChannels, want)
	}
	for i, name := range want {
		if f.createdChannels[i] != name {
			t.Errorf("channel %d = %q, want %q", i, f.createdChannels[i], name)
		}
	}

	if cycle.Phase != PhaseDay {
		t.Errorf("phase = %q, want %q", cycle.Phase, PhaseDay)
	}
	if cycle.DayChannelID == "" || cycle.VotesChannelID == "" || cycle.NightChannelID == "" {
		t.Errorf("cycle channel IDs incomplete: %+v", cycle)
	}
	if len(f.storedCycles) != 1 {
		t.Fatalf("stored %d cycles, want 1", len(f.storedCycles))
	}
	if f.storedCycles[0] != cycle {
		t.Errorf("stored cycle %+v, returned %+v", f.storedCycles[0], cycle)
	}
	if f.naResets != 1 {
		t.Errorf("night-action resets = %d, want 1", f.naResets)
	}
}

func TestCreateCycleNightPermissions(t *testing.T) {
	f := newFakeWorld()
	cycle, err := newTestEngine(f).CreateCycle(context.Background(), CycleRequest{
		GuildID: "g1", ChannelID: "lobby", RequesterID: "host",
		PlayerRoleID: "role-alive", BotID: "bot",
	})
	if err != nil {
		t.Fatalf("CreateCycle: %v", err)
	}

	night := f.overwrites[cycle.NightChannelID]
	if len(night) != 2 {
		t.Fatalf("night overwrites = %v, want everyone+bot", night)
	}
	if night[0].PrincipalID != "g1" || night[0].Deny&platform.PermView == 0 {
		t.Errorf("everyone overwrite does not hide the night channel: %+v", night[0])
	}
	if night[1].PrincipalID != "bot" || night[1].Allow&platform.PermView == 0 {
		t.Errorf("bot overwrite does not grant night channel access: %+v", night[1])
	}
}

func TestCreateCycleDeclined(t *testing.T) {
	f := newFakeWorld()
	f.confirmAnswer = false
	_, err := newTestEngine(f).CreateCycle(context.Background(), CycleRequest{
		GuildID: "g1", ChannelID: "lobby", RequesterID: "host",
		PlayerRoleID: "role-alive", BotID: "bot",
	})
	if !errors.Is(err, ErrDeclined) {
		t.Fatalf("err = %v, want ErrDeclined", err)
	}
	if f.calls != 0 {
		t.Errorf("made %d external mutations after decline, want 0", f.calls)
	}
}

func TestCreateCycleConfirmTimeout(t *testing.T) {
	f := newFakeWorld()
	f.confirmErr = platform.ErrConfirmTimeout
	_, err := newTestEngine(f).CreateCycle(context.Background(), CycleRequest{
		GuildID: "g1", ChannelID: "lobby", RequesterID: "host",
		PlayerRoleID: "role-alive", BotID: "bot",
	})
	if !errors.Is(err, platform.ErrConfirmTimeout) {
		t.Fatalf("err = %v, want ErrConfirmTimeout", err)
	}
	if f.calls != 0 {
		t.Errorf("made %d external mutations after timeout, want 0", f.calls)
	}
}

func TestCreateCycleCategoryFailureAborts(t *testing.T) {
	f := newFakeWorld()
	f.createErr = errors.New("missing manage-channels permission")
	_, err := newTestEngine(f).CreateCycle(context.Background(), CycleRequest{
		GuildID: "g1", ChannelID: "lobby", RequesterID: "host",
		PlayerRoleID: "role-alive", BotID: "bot",
	})
	if err == nil || !strings.Contains(err.Error(), "create cycle category") {
		t.Fatalf("err = %v, want category creation failure", err)
	}
	if len(f.storedCycles) != 0 {
		t.Errorf("stored cycle despite aborted provisioning: %v", f.storedCycles)
	}
}

func TestAdvanceToNightRequiresCycle(t *testing.T) {
	f := newFakeWorld()
	_, err := newTestEngine(f).AdvanceToNight(context.Background(), NightRequest{
		GuildID: "g1", ChannelID: "lobby", RequesterID: "host",
		PlayerRoleID: "role-alive", BotID: "bot",
	})
	if !errors.Is(err, ErrNotStarted) {
		t.Fatalf("err = %v, want ErrNotStarted", err)
	}
	if f.confirmCalls != 0 || f.calls != 0 {
		t.Errorf("touched collaborators before the started check: confirms=%d calls=%d", f.confirmCalls, f.calls)
	}
}

func startedWorld() *fakeWorld {
	f := newFakeWorld()
	f.cycle = Cycle{
		Number: 3, Phase: PhaseDay,
		DayChannelID: "day-ch", VotesChannelID: "votes-ch", NightChannelID: "night-ch",
	}
	for _, id := range []string{"day-ch", "votes-ch", "night-ch"} {
		f.existing[id] = true
	}
	f.overwrites["night-ch"] = []platform.Overwrite{
		{PrincipalID: "g1", Kind: platform.PrincipalRole, Deny: platform.PermView},
		{PrincipalID: "bot", Kind: platform.PrincipalMember, Allow: platform.PermView},
	}
	return f
}

func TestAdvanceToNight(t *testing.T) {
	f := startedWorld()
	res, err := newTestEngine(f).AdvanceToNight(context.Background(), NightRequest{
		GuildID: "g1", ChannelID: "lobby", RequesterID: "host",
		PlayerRoleID: "role-alive", BotID: "bot",
	})
	if err != nil {
		t.Fatalf("AdvanceToNight: %v", err)
	}
	if res.AnnounceErr != nil {
		t.Fatalf("announce err = %v", res.AnnounceErr)
	}
	if res.Cycle.Phase != PhaseNight {
		t.Errorf("phase = %q, want %q", res.Cycle.Phase, PhaseNight)
	}
	if f.cycle.Phase != PhaseNight {
		t.Errorf("stored phase = %q, want %q", f.cycle.Phase, PhaseNight)
	}

	want := []string{
		"day-ch/role-alive",
		"votes-ch/role-alive",
		"night-ch/g1",
		"night-ch/bot",
	}
	if len(f.deletedOverwrites) != len(want) {
		t.Fatalf("deleted overwrites = %v, want %v", f.deletedOverwrites, want)
	}
	for i, d := range want {
		if f.deletedOverwrites[i] != d {
			t.Errorf("deletion %d = %q, want %q", i, f.deletedOverwrites[i], d)
		}
	}
	if f.naResets != 1 {
		t.Errorf("night-action resets = %d, want 1", f.naResets)
	}

	// A night-actions channel did not exist, so one is created and the
	// announcement lands there.
	if len(f.createdChannels) != 1 || f.createdChannels[0] != "night-actions" {
		t.Fatalf("created channels = %v, want [night-actions]", f.createdChannels)
	}
	if len(f.sent) != 1 || !strings.Contains(f.sent[0], "**Night 3 begins!**") {
		t.Errorf("announcements = %v, want night 3 banner", f.sent)
	}
	if f.naChannel == "" {
		t.Errorf("night-actions channel ID not persisted")
	}
}

func TestAdvanceToNightReusesNightActionsChannel(t *testing.T) {
	f := startedWorld()
	f.naChannel = "na-ch"
	f.existing["na-ch"] = true
	_, err := newTestEngine(f).AdvanceToNight(context.Background(), NightRequest{
		GuildID: "g1", ChannelID: "lobby", RequesterID: "host",
		PlayerRoleID: "role-alive", BotID: "bot",
	})
	if err != nil {
		t.Fatalf("AdvanceToNight: %v", err)
	}
	if len(f.createdChannels) != 0 {
		t.Errorf("created channels = %v, want none", f.createdChannels)
	}
	if len(f.sent) != 1 || !strings.HasPrefix(f.sent[0], "na-ch: ") {
		t.Errorf("announcements = %v, want one in na-ch", f.sent)
	}
}

func TestAdvanceToNightMissingChannels(t *testing.T) {
	cases := []struct {
		name string
		drop string
		want error
	}{
		{"day gone", "day-ch", ErrNoDayChannel},
		{"voting gone", "votes-ch", ErrNoVotesChannel},
		{"night gone", "night-ch", ErrNoNightChannel},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			f := startedWorld()
			delete(f.existing, tt.drop)
			_, err := newTestEngine(f).AdvanceToNight(context.Background(), NightRequest{
				GuildID: "g1", ChannelID: "lobby", RequesterID: "host",
				PlayerRoleID: "role-alive", BotID: "bot",
			})
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if len(f.deletedOverwrites) != 0 {
				t.Errorf("mutated overwrites despite missing channel: %v", f.deletedOverwrites)
			}
		})
	}
}

func TestAdvanceToNightAnnounceFailureReported(t *testing.T) {
	f := startedWorld()
	f.naChannel = "na-ch"
	f.existing["na-ch"] = true
	f.sendErr = errors.New("channel is rate limited")
	res, err := newTestEngine(f).AdvanceToNight(context.Background(), NightRequest{
		GuildID: "g1", ChannelID: "lobby", RequesterID: "host",
		PlayerRoleID: "role-alive", BotID: "bot",
	})
	if err != nil {
		t.Fatalf("AdvanceToNight: %v", err)
	}
	if res.AnnounceErr == nil {
		t.Fatal("announce error not surfaced")
	}
	// Permission changes stay applied.
	if f.cycle.Phase != PhaseNight {
		t.Errorf("stored phase = %q, want %q after announce failure", f.cycle.Phase, PhaseNight)
	}
}

func TestVoteCountChannelPolicy(t *testing.T) {
	f := newFakeWorld()
	f.cycle = Cycle{Number: 1, VotesChannelID: "votes-ch"}
	eng := newTestEngine(f)

	res, err := eng.VoteCount(context.Background(), VoteCountRequest{GuildID: "g1", ChannelID: "explicit-ch"})
	if err != nil {
		t.Fatalf("VoteCount explicit: %v", err)
	}
	if res.ChannelID != "explicit-ch" {
		t.Errorf("channel = %q, want explicit-ch", res.ChannelID)
	}

	res, err = eng.VoteCount(context.Background(), VoteCountRequest{GuildID: "g1"})
	if err != nil {
		t.Fatalf("VoteCount default: %v", err)
	}
	if res.ChannelID != "votes-ch" {
		t.Errorf("channel = %q, want votes-ch", res.ChannelID)
	}

	f.cycle = Cycle{}
	if _, err := eng.VoteCount(context.Background(), VoteCountRequest{GuildID: "g1"}); !errors.Is(err, ErrNoVotingChannel) {
		t.Fatalf("err = %v, want ErrNoVotingChannel", err)
	}
	if len(f.fetched) != 2 {
		t.Errorf("fetched %d times, want 2 (none after the missing-channel error)", len(f.fetched))
	}
}

func TestVoteCountReplaysOldestFirst(t *testing.T) {
	f := newFakeWorld()
	// Newest-first, as the platform returns them: the un-vote is the most
	// recent message and must win the replay.
	f.messages = []platform.Message{
		{AuthorTag: "alice#1", Content: "UNVTL"},
		{AuthorTag: "bob#2", Content: "VTL carol"},
		{AuthorTag: "alice#1", Content: "VTL bob"},
	}
	res, err := newTestEngine(f).VoteCount(context.Background(), VoteCountRequest{
		GuildID:      "g1",
		ChannelID:    "votes-ch",
		ActiveVoters: map[string]bool{"alice#1": true, "bob#2": true},
	})
	if err != nil {
		t.Fatalf("VoteCount: %v", err)
	}
	if len(res.Buckets) != 2 {
		t.Fatalf("buckets = %+v, want vote bucket + not-voting bucket", res.Buckets)
	}
	if res.Buckets[0].Action == nil || res.Buckets[0].Action.Target != "Carol" {
		t.Errorf("leading bucket = %+v, want vote for Carol", res.Buckets[0])
	}
	if res.Buckets[1].Action != nil || len(res.Buckets[1].Voters) != 1 || res.Buckets[1].Voters[0] != "alice#1" {
		t.Errorf("trailing bucket = %+v, want alice not voting", res.Buckets[1])
	}
}

func TestVoteHistoryFiltersAuthor(t *testing.T) {
	f := newFakeWorld()
	now := time.Now()
	f.messages = []platform.Message{
		{AuthorTag: "alice#1", Content: "VTNL", Timestamp: now},
		{AuthorTag: "bob#2", Content: "VTL carol", Timestamp: now.Add(-time.Minute)},
		{AuthorTag: "alice#1", Content: "thinking about it", Timestamp: now.Add(-2 * time.Minute)},
		{AuthorTag: "alice#1", Content: "VTL bob", Timestamp: now.Add(-3 * time.Minute)},
	}
	channel, entries, err := newTestEngine(f).VoteHistory(context.Background(),
		VoteCountRequest{GuildID: "g1", ChannelID: "votes-ch"}, "alice#1")
	if err != nil {
		t.Fatalf("VoteHistory: %v", err)
	}
	if channel != "votes-ch" {
		t.Errorf("channel = %q, want votes-ch", channel)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %+v, want alice's two directives", entries)
	}
	if entries[0].Action.Target != "Bob" {
		t.Errorf("first entry = %+v, want the older vote for Bob", entries[0])
	}
	if entries[1].Action.Kind != vote.KindAbstain {
		t.Errorf("second entry = %+v, want the abstain", entries[1])
	}
}
