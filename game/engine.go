package game

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hexlocke/tvm-warden/platform"
)

// Store persists the per-guild game state the engine owns. Implementations
// are expected to replace the Cycle value wholesale on write.
type Store interface {
	Cycle(ctx context.Context, guildID string) (Cycle, error)
	SetCycle(ctx context.Context, guildID string, c Cycle) error
	ResetNightActions(ctx context.Context, guildID string) error
	NightActionsChannel(ctx context.Context, guildID string) (string, error)
	SetNightActionsChannel(ctx context.Context, guildID, channelID string) error
}

// Channels provisions categories/channels and mutates permission overwrites.
type Channels interface {
	CreateCategory(ctx context.Context, guildID, name string, overwrites []platform.Overwrite) (string, error)
	CreateChannel(ctx context.Context, guildID, name, parentID string, overwrites []platform.Overwrite) (string, error)
	Overwrites(ctx context.Context, channelID string) ([]platform.Overwrite, error)
	DeleteOverwrite(ctx context.Context, channelID, principalID string) error
	ChannelExists(ctx context.Context, channelID string) bool
}

// Messenger posts plain announcements.
type Messenger interface {
	Send(ctx context.Context, channelID, content string) error
}

// Confirmer asks the requester a yes/no question with a bounded wait. A
// timeout surfaces as platform.ErrConfirmTimeout, distinct from an explicit
// "no" (false, nil).
type Confirmer interface {
	Confirm(ctx context.Context, channelID, requesterID, prompt string) (bool, error)
}

// MessageSource fetches recent channel history, newest-first.
type MessageSource interface {
	RecentMessages(ctx context.Context, channelID string, limit int) ([]platform.Message, error)
}

// Engine ties the cycle state machine and vote orchestration to the external
// collaborators. Each command invocation constructs its requests
// independently; the engine holds no mutable state, so concurrent
// invocations for different guilds need no locking.
type Engine struct {
	store     Store
	channels  Channels
	messenger Messenger
	confirmer Confirmer
	messages  MessageSource
}

// New assembles an engine from its collaborators.
func New(store Store, channels Channels, messenger Messenger, confirmer Confirmer, messages MessageSource) *Engine {
	return &Engine{
		store:     store,
		channels:  channels,
		messenger: messenger,
		confirmer: confirmer,
		messages:  messages,
	}
}

// Cycle returns the guild's current cycle.
func (e *Engine) Cycle(ctx context.Context, guildID string) (Cycle, error) {
	return e.store.Cycle(ctx, guildID)
}

// CurrentVotingChannel returns the cycle's recorded voting channel, the
// default target for vote counting when no explicit channel is given.
func (e *Engine) CurrentVotingChannel(ctx context.Context, guildID string) (string, error) {
	cycle, err := e.store.Cycle(ctx, guildID)
	if err != nil {
		return "", err
	}
	ch, ok := cycle.VotingChannel()
	if !ok {
		return "", ErrNoVotingChannel
	}
	return ch, nil
}

// CycleRequest carries everything CreateCycle needs. Number, when non-nil,
// overrides the auto-detected cycle number (previous number + 1).
type CycleRequest struct {
	GuildID      string
	ChannelID    string // where the confirmation prompt is posted
	RequesterID  string
	Number       *int
	PlayerRoleID string
	BotID        string
}

// CreateCycle provisions a "Day N" category with day, voting and night
// channels, then replaces the stored cycle and clears night-action
// submissions. The requester must confirm before any channel is created;
// a decline returns ErrDeclined with zero external mutations performed.
//
// Category creation failure aborts cleanly. Failures creating the three
// child channels after the category succeeded propagate as-is: the category
// is not cleaned up, so a partial cycle can be left on the platform. There
// is deliberately no compensating rollback here.
func (e *Engine) CreateCycle(ctx context.Context, req CycleRequest) (Cycle, error) {
	current, err := e.store.Cycle(ctx, req.GuildID)
	if err != nil {
		return Cycle{}, fmt.Errorf("read cycle: %w", err)
	}

	number := current.Number + 1
	if req.Number != nil {
		number = *req.Number
	}

	prompt := fmt.Sprintf(
		"Are you sure you want to create cycle `%d` channels? Make sure you have the day text ready. "+
			"Users will be able to talk in the day and vote channels as soon as they are created.", number)
	ok, err := e.confirmer.Confirm(ctx, req.ChannelID, req.RequesterID, prompt)
	if err != nil {
		return Cycle{}, err
	}
	if !ok {
		return Cycle{}, ErrDeclined
	}

	everyone := req.GuildID // the guild-default role shares the guild's ID

	dayPerms := []platform.Overwrite{
		{PrincipalID: everyone, Kind: platform.PrincipalRole, Allow: platform.PermView | platform.PermAddReactions, Deny: platform.PermSend},
		{PrincipalID: req.PlayerRoleID, Kind: platform.PrincipalRole, Allow: platform.PermSend, Deny: platform.PermAttachFiles},
		{PrincipalID: req.BotID, Kind: platform.PrincipalMember, Allow: platform.PermSend | platform.PermEmbedLinks},
	}
	nightPerms := []platform.Overwrite{
		{PrincipalID: everyone, Kind: platform.PrincipalRole, Deny: platform.PermView},
		{PrincipalID: req.BotID, Kind: platform.PrincipalMember, Allow: platform.PermView | platform.PermSend | platform.PermEmbedLinks},
	}

	category, err := e.channels.CreateCategory(ctx, req.GuildID, fmt.Sprintf("Day %d", number), dayPerms)
	if err != nil {
		return Cycle{}, fmt.Errorf("create cycle category: %w", err)
	}

	// The category just got created, so permission trouble is unlikely for
	// the children; failures from here on propagate without cleanup.
	day, err := e.channels.CreateChannel(ctx, req.GuildID, fmt.Sprintf("day-%d", number), category, nil)
	if err != nil {
		return Cycle{}, fmt.Errorf("create day channel: %w", err)
	}
	votes, err := e.channels.CreateChannel(ctx, req.GuildID, fmt.Sprintf("day-%d-voting", number), category, nil)
	if err != nil {
		return Cycle{}, fmt.Errorf("create voting channel: %w", err)
	}
	night, err := e.channels.CreateChannel(ctx, req.GuildID, fmt.Sprintf("night-%d", number), category, nightPerms)
	if err != nil {
		return Cycle{}, fmt.Errorf("create night channel: %w", err)
	}

	cycle := Cycle{
		Number:         number,
		Phase:          PhaseDay,
		DayChannelID:   day,
		VotesChannelID: votes,
		NightChannelID: night,
	}
	if err := e.store.SetCycle(ctx, req.GuildID, cycle); err != nil {
		return Cycle{}, fmt.Errorf("store cycle: %w", err)
	}
	if err := e.store.ResetNightActions(ctx, req.GuildID); err != nil {
		return Cycle{}, fmt.Errorf("reset night actions: %w", err)
	}

	slog.Info("cycle created",
		slog.String("component", "game"),
		slog.String("guild", req.GuildID),
		slog.Int("cycle", number))
	return cycle, nil
}

// NightRequest carries everything AdvanceToNight needs.
type NightRequest struct {
	GuildID      string
	ChannelID    string // where the confirmation prompt is posted
	RequesterID  string
	PlayerRoleID string
	BotID        string
}

// NightResult reports a completed night transition. AnnounceErr is non-nil
// when the night-actions announcement could not be sent; the permission
// changes already applied are not rolled back in that case, the caller just
// reports it.
type NightResult struct {
	Cycle       Cycle
	AnnounceErr error
}

// AdvanceToNight closes the day and voting channels to players, opens the
// night channel by stripping all of its overwrites, flips the stored phase to
// night, clears night-action submissions, and announces the night in the
// night-actions channel (created on demand).
//
// Requires an existing cycle; ErrNotStarted is returned before any external
// call otherwise. Each unresolvable cycle channel aborts with its own
// sentinel so the user learns exactly which one is missing.
func (e *Engine) AdvanceToNight(ctx context.Context, req NightRequest) (NightResult, error) {
	cycle, err := e.store.Cycle(ctx, req.GuildID)
	if err != nil {
		return NightResult{}, fmt.Errorf("read cycle: %w", err)
	}
	if !cycle.Started() {
		return NightResult{}, ErrNotStarted
	}

	prompt := fmt.Sprintf(
		"Are you sure you want to start night `%d`? Make sure you have already posted the night-starting text. "+
			"Users will be able to talk in the night channel as soon as the channel is opened.", cycle.Number)
	ok, err := e.confirmer.Confirm(ctx, req.ChannelID, req.RequesterID, prompt)
	if err != nil {
		return NightResult{}, err
	}
	if !ok {
		return NightResult{}, ErrDeclined
	}

	if cycle.DayChannelID == "" || !e.channels.ChannelExists(ctx, cycle.DayChannelID) {
		return NightResult{}, ErrNoDayChannel
	}
	if cycle.VotesChannelID == "" || !e.channels.ChannelExists(ctx, cycle.VotesChannelID) {
		return NightResult{}, ErrNoVotesChannel
	}
	if cycle.NightChannelID == "" || !e.channels.ChannelExists(ctx, cycle.NightChannelID) {
		return NightResult{}, ErrNoNightChannel
	}

	// Close day channels to players.
	if err := e.channels.DeleteOverwrite(ctx, cycle.DayChannelID, req.PlayerRoleID); err != nil {
		return NightResult{}, fmt.Errorf("close day channel: %w", err)
	}
	if err := e.channels.DeleteOverwrite(ctx, cycle.VotesChannelID, req.PlayerRoleID); err != nil {
		return NightResult{}, fmt.Errorf("close voting channel: %w", err)
	}

	// Open the night channel by removing every overwrite, restoring default
	// guild visibility.
	overwrites, err := e.channels.Overwrites(ctx, cycle.NightChannelID)
	if err != nil {
		return NightResult{}, fmt.Errorf("list night channel overwrites: %w", err)
	}
	for _, o := range overwrites {
		if err := e.channels.DeleteOverwrite(ctx, cycle.NightChannelID, o.PrincipalID); err != nil {
			return NightResult{}, fmt.Errorf("open night channel: %w", err)
		}
	}

	cycle.Phase = PhaseNight
	if err := e.store.SetCycle(ctx, req.GuildID, cycle); err != nil {
		return NightResult{}, fmt.Errorf("store cycle: %w", err)
	}
	if err := e.store.ResetNightActions(ctx, req.GuildID); err != nil {
		return NightResult{}, fmt.Errorf("reset night actions: %w", err)
	}

	res := NightResult{Cycle: cycle}
	if err := e.announceNight(ctx, req, cycle); err != nil {
		// Permissions are already applied; report, don't roll back.
		slog.Warn("night announcement failed",
			slog.String("component", "game"),
			slog.String("guild", req.GuildID),
			slog.Any("err", err))
		res.AnnounceErr = err
	}

	slog.Info("advanced to night",
		slog.String("component", "game"),
		slog.String("guild", req.GuildID),
		slog.Int("cycle", cycle.Number))
	return res, nil
}

func (e *Engine) announceNight(ctx context.Context, req NightRequest, cycle Cycle) error {
	naChannel, err := e.EnsureNightActionsChannel(ctx, req.GuildID, req.BotID)
	if err != nil {
		return err
	}
	return e.messenger.Send(ctx, naChannel, fmt.Sprintf("**Night %d begins!**", cycle.Number))
}

// EnsureNightActionsChannel returns the guild's night-actions channel,
// creating a host-only "night-actions" channel and persisting its ID when
// none is recorded or the recorded one no longer exists.
func (e *Engine) EnsureNightActionsChannel(ctx context.Context, guildID, botID string) (string, error) {
	id, err := e.store.NightActionsChannel(ctx, guildID)
	if err != nil {
		return "", fmt.Errorf("read night-actions channel: %w", err)
	}
	if id != "" && e.channels.ChannelExists(ctx, id) {
		return id, nil
	}

	perms := []platform.Overwrite{
		{PrincipalID: guildID, Kind: platform.PrincipalRole, Deny: platform.PermView},
		{PrincipalID: botID, Kind: platform.PrincipalMember, Allow: platform.PermView | platform.PermSend | platform.PermAddReactions},
	}
	id, err = e.channels.CreateChannel(ctx, guildID, "night-actions", "", perms)
	if err != nil {
		return "", fmt.Errorf("create night-actions channel: %w", err)
	}
	if err := e.store.SetNightActionsChannel(ctx, guildID, id); err != nil {
		return "", fmt.Errorf("store night-actions channel: %w", err)
	}
	return id, nil
}
