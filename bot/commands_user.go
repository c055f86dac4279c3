package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hexlocke/tvm-warden/game"
	"github.com/hexlocke/tvm-warden/platform"
	"github.com/hexlocke/tvm-warden/telemetry"
	"github.com/hexlocke/tvm-warden/vote"
)

func (b *Bot) cmdSignIn(ctx context.Context, inv *invocation) error {
	settings := inv.settings
	if settings.Cycle.Started() {
		b.reply(ctx, inv.channelID(), "You can't do that now. The game has started.")
		return nil
	}
	if !settings.SignupsOpen {
		b.reply(ctx, inv.channelID(), "Sign-ups are closed.")
		return nil
	}
	if settings.TotalSignups >= settings.TotalPlayers {
		b.reply(ctx, inv.channelID(), "Maximum allowed players already signed up.")
		return nil
	}
	if settings.SignupsChannelID == "" {
		b.reply(ctx, inv.channelID(), "The sign-ups channel has not been set up.")
		return nil
	}
	if inv.channelID() != settings.SignupsChannelID {
		b.reply(ctx, inv.channelID(), "This command can only be used in the sign-ups channel.")
		return nil
	}
	if settings.PlayerRoleID == "" {
		b.reply(ctx, inv.channelID(), "Player role has not been set up.")
		return nil
	}

	if err := b.dc.AddRole(ctx, inv.guildID(), inv.authorID(), settings.PlayerRoleID); err != nil {
		return fmt.Errorf("add player role: %w", err)
	}
	for _, extra := range []string{settings.SpecRoleID, settings.ReplRoleID} {
		if extra == "" {
			continue
		}
		if err := b.dc.RemoveRole(ctx, inv.guildID(), inv.authorID(), extra); err != nil {
			return fmt.Errorf("remove extra role: %w", err)
		}
	}

	if err := b.store.AdjustTotalSignups(ctx, inv.guildID(), 1); err != nil {
		return err
	}
	if err := b.store.AddToRoster(ctx, inv.guildID(), platform.DisplayTag(inv.m.Author)); err != nil {
		return err
	}

	b.dc.React(inv.channelID(), inv.m.ID, "✅")
	return nil
}

func (b *Bot) cmdSignOut(ctx context.Context, inv *invocation) error {
	settings := inv.settings
	member, err := b.dc.ResolveMember(ctx, inv.guildID(), inv.authorID())
	if err != nil {
		return fmt.Errorf("resolve author: %w", err)
	}

	if settings.PlayerRoleID != "" && member.HasRole(settings.PlayerRoleID) {
		if err := b.dc.RemoveRole(ctx, inv.guildID(), inv.authorID(), settings.PlayerRoleID); err != nil {
			return fmt.Errorf("remove player role: %w", err)
		}
		if err := b.store.AdjustTotalSignups(ctx, inv.guildID(), -1); err != nil {
			return err
		}
		if err := b.store.RemoveFromRoster(ctx, inv.guildID(), member.Tag); err != nil {
			return err
		}
	}
	if settings.ReplRoleID != "" && member.HasRole(settings.ReplRoleID) {
		if err := b.dc.RemoveRole(ctx, inv.guildID(), inv.authorID(), settings.ReplRoleID); err != nil {
			return fmt.Errorf("remove replacement role: %w", err)
		}
	}
	if settings.SpecRoleID != "" {
		if err := b.dc.AddRole(ctx, inv.guildID(), inv.authorID(), settings.SpecRoleID); err != nil {
			return fmt.Errorf("add spectator role: %w", err)
		}
	}

	b.dc.React(inv.channelID(), inv.m.ID, "✅")
	return nil
}

func (b *Bot) cmdSignRepl(ctx context.Context, inv *invocation) error {
	settings := inv.settings
	if settings.ReplRoleID == "" {
		b.reply(ctx, inv.channelID(), "Replacement role has not been set up.")
		return nil
	}
	member, err := b.dc.ResolveMember(ctx, inv.guildID(), inv.authorID())
	if err != nil {
		return fmt.Errorf("resolve author: %w", err)
	}
	if settings.PlayerRoleID != "" && member.HasRole(settings.PlayerRoleID) {
		b.reply(ctx, inv.channelID(), "You are signed up as a player. Sign out first.")
		return nil
	}

	if err := b.dc.AddRole(ctx, inv.guildID(), inv.authorID(), settings.ReplRoleID); err != nil {
		return fmt.Errorf("add replacement role: %w", err)
	}
	if settings.SpecRoleID != "" && member.HasRole(settings.SpecRoleID) {
		if err := b.dc.RemoveRole(ctx, inv.guildID(), inv.authorID(), settings.SpecRoleID); err != nil {
			return fmt.Errorf("remove spectator role: %w", err)
		}
	}

	b.dc.React(inv.channelID(), inv.m.ID, "✅")
	return nil
}

func (b *Bot) cmdPlayers(ctx context.Context, inv *invocation) error {
	members, err := b.playerMembers(ctx, inv.settings)
	if err != nil {
		b.reply(ctx, inv.channelID(), "Player role has not been set up.")
		return nil
	}
	if len(members) == 0 {
		b.reply(ctx, inv.channelID(), "No players!")
		return nil
	}
	b.reply(ctx, inv.channelID(), renderMemberList("Players", members))
	return nil
}

func (b *Bot) cmdReplacements(ctx context.Context, inv *invocation) error {
	if inv.settings.ReplRoleID == "" {
		b.reply(ctx, inv.channelID(), "Replacement role has not been set up.")
		return nil
	}
	members, err := b.dc.RoleMembers(ctx, inv.guildID(), inv.settings.ReplRoleID)
	if err != nil {
		return fmt.Errorf("list replacements: %w", err)
	}
	if len(members) == 0 {
		b.reply(ctx, inv.channelID(), "No replacements!")
		return nil
	}
	b.reply(ctx, inv.channelID(), renderMemberList("Replacements", members))
	return nil
}

func renderMemberList(title string, members []platform.Member) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**%s (%d)**", title, len(members))
	for i, m := range members {
		fmt.Fprintf(&sb, "\n%d. %s", i+1, displayName(m))
	}
	return sb.String()
}

func (b *Bot) cmdTotal(ctx context.Context, inv *invocation) error {
	b.reply(ctx, inv.channelID(), fmt.Sprintf(
		"**%d** out of **%d** players have signed up.",
		inv.settings.TotalSignups, inv.settings.TotalPlayers))
	return nil
}

func (b *Bot) cmdSyncTotal(ctx context.Context, inv *invocation) error {
	members, err := b.playerMembers(ctx, inv.settings)
	if err != nil {
		b.reply(ctx, inv.channelID(), "Player role has not been set up.")
		return nil
	}
	if err := b.store.SetTotalSignups(ctx, inv.guildID(), len(members)); err != nil {
		return err
	}
	b.reply(ctx, inv.channelID(), fmt.Sprintf("Synced total sign-ups: **%d**.", len(members)))
	return nil
}

// voteCountRequest builds the engine request shared by votecount and
// votehistory: optional explicit channel argument, active voter set, scan
// limit.
func (b *Bot) voteCountRequest(ctx context.Context, inv *invocation, channelArg string) (game.VoteCountRequest, error) {
	req := game.VoteCountRequest{
		GuildID: inv.guildID(),
		Limit:   b.scanLimit,
	}
	if channelArg != "" {
		ch, err := b.dc.ResolveChannel(ctx, inv.guildID(), channelArg)
		if err != nil {
			return game.VoteCountRequest{}, fmt.Errorf("no channel found from %q", channelArg)
		}
		req.ChannelID = ch
	}
	voters, err := b.activeVoters(ctx, inv.settings)
	if err != nil {
		return game.VoteCountRequest{}, err
	}
	req.ActiveVoters = voters
	return req, nil
}

func (b *Bot) cmdVoteCount(ctx context.Context, inv *invocation) error {
	channelArg := ""
	if len(inv.args) > 0 {
		channelArg = inv.args[0]
	}
	req, err := b.voteCountRequest(ctx, inv, channelArg)
	if err != nil {
		b.reply(ctx, inv.channelID(), capitalizeError(err))
		return nil
	}

	res, err := b.engine.VoteCount(ctx, req)
	if errors.Is(err, game.ErrNoVotingChannel) {
		b.reply(ctx, inv.channelID(), "There is no voting channel. Supply one or create a cycle first.")
		return nil
	}
	if err != nil {
		return err
	}

	telemetry.VoteCounts.Inc()
	body := "**Vote Count**\n\n" + renderTallyOrEmpty(res)
	b.reply(ctx, inv.channelID(), body)
	return nil
}

func (b *Bot) cmdVoteHistory(ctx context.Context, inv *invocation) error {
	// Last argument is the user; an optional channel precedes it.
	channelArg := ""
	userArg := inv.args[len(inv.args)-1]
	if len(inv.args) > 1 {
		channelArg = inv.args[0]
	}

	member, err := b.dc.ResolveMember(ctx, inv.guildID(), userArg)
	if err != nil {
		b.reply(ctx, inv.channelID(), fmt.Sprintf("No member found from `%s`.", userArg))
		return nil
	}

	req, err := b.voteCountRequest(ctx, inv, channelArg)
	if err != nil {
		b.reply(ctx, inv.channelID(), capitalizeError(err))
		return nil
	}
	_, entries, err := b.engine.VoteHistory(ctx, req, member.Tag)
	if errors.Is(err, game.ErrNoVotingChannel) {
		b.reply(ctx, inv.channelID(), "There is no voting channel. Supply one or create a cycle first.")
		return nil
	}
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		b.reply(ctx, inv.channelID(), fmt.Sprintf("**%s** has not voted recently.", member.Tag))
		return nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "**%s's recent votes**", member.Tag)
	for i, e := range entries {
		fmt.Fprintf(&sb, "\n%d. %s (%s)", i+1, e.Action, e.When.UTC().Format("Jan 2 15:04 UTC"))
	}
	b.reply(ctx, inv.channelID(), sb.String())
	return nil
}

func (b *Bot) cmdTimeSince(ctx context.Context, inv *invocation) error {
	cycle := inv.settings.Cycle
	if !cycle.Started() {
		b.reply(ctx, inv.channelID(), "Game doesn't appear to have started.")
		return nil
	}

	channelID := cycle.DayChannelID
	phase := fmt.Sprintf("Day %d", cycle.Number)
	if cycle.Phase == game.PhaseNight {
		channelID = cycle.NightChannelID
		phase = fmt.Sprintf("Night %d", cycle.Number)
	}
	if channelID == "" {
		b.reply(ctx, inv.channelID(), "The phase channel is not recorded for this cycle.")
		return nil
	}

	first, err := b.dc.FirstMessage(ctx, channelID)
	if errors.Is(err, platform.ErrEmptyChannel) {
		b.reply(ctx, inv.channelID(), fmt.Sprintf("The <#%s> channel seems empty.", channelID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("fetch first message: %w", err)
	}

	elapsed := humanDuration(time.Since(first.Timestamp))
	if elapsed == "" {
		b.reply(ctx, inv.channelID(), fmt.Sprintf("%s began a few seconds ago.", phase))
		return nil
	}
	b.reply(ctx, inv.channelID(), fmt.Sprintf("%s began about %s ago.", phase, elapsed))
	return nil
}

// channelFromArgs picks the channel a command operates on: the resolved
// first argument when one is given, else the invoking channel. A channel
// argument that fails to resolve is a lookup failure, not a fallback; ok is
// false and badArg carries the offending input.
func channelFromArgs(args []string, invoking string, resolve func(string) (string, error)) (channelID, badArg string, ok bool) {
	if len(args) == 0 {
		return invoking, "", true
	}
	ch, err := resolve(args[0])
	if err != nil {
		return "", args[0], false
	}
	return ch, "", true
}

func (b *Bot) cmdTop(ctx context.Context, inv *invocation) error {
	channelID, badArg, ok := channelFromArgs(inv.args, inv.channelID(), func(arg string) (string, error) {
		return b.dc.ResolveChannel(ctx, inv.guildID(), arg)
	})
	if !ok {
		b.reply(ctx, inv.channelID(), fmt.Sprintf("No channel found from `%s`.", badArg))
		return nil
	}

	first, err := b.dc.FirstMessage(ctx, channelID)
	if errors.Is(err, platform.ErrEmptyChannel) {
		b.reply(ctx, inv.channelID(), fmt.Sprintf("The <#%s> channel seems to be empty.", channelID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("fetch first message: %w", err)
	}

	b.reply(ctx, inv.channelID(), fmt.Sprintf("Jump to the top: %s", jumpURL(inv.guildID(), channelID, first.ID)))
	return nil
}

func (b *Bot) cmdNightAction(ctx context.Context, inv *invocation) error {
	// The command only works in the author's private channel: one where the
	// author has an explicit send-messages overwrite.
	overwrites, err := b.dc.Overwrites(ctx, inv.channelID())
	if err != nil {
		b.reply(ctx, inv.channelID(), "Unable to get details of this channel.")
		return nil
	}
	private := false
	for _, o := range overwrites {
		if o.Kind == platform.PrincipalMember && o.PrincipalID == inv.authorID() && o.Allow&platform.PermSend != 0 {
			private = true
			break
		}
	}
	if !private {
		b.reply(ctx, inv.channelID(),
			"This doesn't look like your private channel. This command can only be used in your private channel.")
		return nil
	}

	submitted, err := b.store.NASubmitted(ctx, inv.guildID())
	if err != nil {
		return err
	}
	already := false
	for _, id := range submitted {
		if id == inv.authorID() {
			already = true
			break
		}
	}

	title := fmt.Sprintf("%s's Night Action", inv.m.Author.Username)
	if already {
		if !inv.settings.CanChangeNA {
			b.reply(ctx, inv.channelID(), "You've already submitted a night action.")
			return nil
		}
		title += " (Updated)"
	}

	naChannel, err := b.engine.EnsureNightActionsChannel(ctx, inv.guildID(), inv.botID())
	if err != nil {
		return err
	}
	if err := b.dc.Send(ctx, naChannel, fmt.Sprintf("**%s**\n%s", title, inv.raw)); err != nil {
		return fmt.Errorf("forward night action: %w", err)
	}
	if !already {
		if _, err := b.store.AddNASubmitted(ctx, inv.guildID(), inv.authorID()); err != nil {
			return err
		}
	}

	b.reply(ctx, inv.channelID(), "Submitted night action!")
	return nil
}

func renderTallyOrEmpty(res game.VoteCountResult) string {
	rendered := vote.RenderTally(res.Buckets)
	if rendered == "" {
		return "No votes yet!"
	}
	return rendered
}

// capitalizeError turns a handler error into a user-facing sentence.
func capitalizeError(err error) string {
	msg := err.Error()
	if msg == "" {
		return "Something went wrong."
	}
	return strings.ToUpper(msg[:1]) + msg[1:] + "."
}
