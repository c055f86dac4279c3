package bot

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"github.com/hexlocke/tvm-warden/game"
	"github.com/hexlocke/tvm-warden/platform"
	"github.com/hexlocke/tvm-warden/telemetry"
)

func (b *Bot) cmdCycle(ctx context.Context, inv *invocation) error {
	if inv.settings.PlayerRoleID == "" {
		b.reply(ctx, inv.channelID(), "Player role has not been set up.")
		return nil
	}

	req := game.CycleRequest{
		GuildID:      inv.guildID(),
		ChannelID:    inv.channelID(),
		RequesterID:  inv.authorID(),
		PlayerRoleID: inv.settings.PlayerRoleID,
		BotID:        inv.botID(),
	}
	if len(inv.args) > 0 {
		n, err := strconv.Atoi(inv.args[0])
		if err != nil || n < 1 {
			b.reply(ctx, inv.channelID(), "The cycle number must be a positive integer.")
			return nil
		}
		req.Number = &n
	}

	cycle, err := b.engine.CreateCycle(ctx, req)
	switch {
	case errors.Is(err, game.ErrDeclined):
		b.reply(ctx, inv.channelID(), "Cancelled cycle creation.")
		return nil
	case errors.Is(err, platform.ErrConfirmTimeout):
		b.reply(ctx, inv.channelID(), "You took too long to answer. Cancelled cycle creation.")
		return nil
	case err != nil:
		return err
	}

	telemetry.CyclesCreated.Inc()
	b.reply(ctx, inv.channelID(), fmt.Sprintf(
		"Created cycle `%d` channels: <#%s>, <#%s> and <#%s>.",
		cycle.Number, cycle.DayChannelID, cycle.VotesChannelID, cycle.NightChannelID))
	return nil
}

func (b *Bot) cmdNight(ctx context.Context, inv *invocation) error {
	if inv.settings.PlayerRoleID == "" {
		b.reply(ctx, inv.channelID(), "Player role has not been set up.")
		return nil
	}

	res, err := b.engine.AdvanceToNight(ctx, game.NightRequest{
		GuildID:      inv.guildID(),
		ChannelID:    inv.channelID(),
		RequesterID:  inv.authorID(),
		PlayerRoleID: inv.settings.PlayerRoleID,
		BotID:        inv.botID(),
	})
	switch {
	case errors.Is(err, game.ErrNotStarted):
		b.reply(ctx, inv.channelID(), "Game doesn't appear to have started.")
		return nil
	case errors.Is(err, game.ErrDeclined):
		b.reply(ctx, inv.channelID(), "Cancelled night start.")
		return nil
	case errors.Is(err, platform.ErrConfirmTimeout):
		b.reply(ctx, inv.channelID(), "You took too long to answer. Cancelled night start.")
		return nil
	case errors.Is(err, game.ErrNoDayChannel):
		b.reply(ctx, inv.channelID(), "Day channel couldn't be fetched.")
		return nil
	case errors.Is(err, game.ErrNoVotesChannel):
		b.reply(ctx, inv.channelID(), "Voting channel couldn't be fetched.")
		return nil
	case errors.Is(err, game.ErrNoNightChannel):
		b.reply(ctx, inv.channelID(), "Night channel couldn't be fetched.")
		return nil
	case err != nil:
		return err
	}

	telemetry.NightsStarted.Inc()
	msg := fmt.Sprintf("Night %d has begun.", res.Cycle.Number)
	if res.AnnounceErr != nil {
		msg += " I couldn't post the night-actions announcement, though."
	}
	b.reply(ctx, inv.channelID(), msg)
	return nil
}

func (b *Bot) cmdKill(ctx context.Context, inv *invocation) error {
	settings := inv.settings
	member, err := b.dc.ResolveMember(ctx, inv.guildID(), inv.raw)
	if err != nil {
		b.reply(ctx, inv.channelID(), fmt.Sprintf("No member found from `%s`.", inv.raw))
		return nil
	}
	if _, err := b.dc.RoleByID(ctx, inv.guildID(), settings.PlayerRoleID); err != nil {
		b.reply(ctx, inv.channelID(), "I couldn't find the player role.")
		return nil
	}
	if _, err := b.dc.RoleByID(ctx, inv.guildID(), settings.DeadRoleID); err != nil {
		b.reply(ctx, inv.channelID(), "I couldn't find the dead player role.")
		return nil
	}
	if !member.HasRole(settings.PlayerRoleID) {
		b.reply(ctx, inv.channelID(), "User doesn't have the player role!")
		return nil
	}

	if err := b.dc.RemoveRole(ctx, inv.guildID(), member.ID, settings.PlayerRoleID); err != nil {
		b.reply(ctx, inv.channelID(), "I couldn't remove player role from the user.")
		return nil
	}
	if err := b.dc.AddRole(ctx, inv.guildID(), member.ID, settings.DeadRoleID); err != nil {
		b.reply(ctx, inv.channelID(), "I couldn't add the dead player role to the user.")
		return nil
	}
	if err := b.store.RemoveFromRoster(ctx, inv.guildID(), member.Tag); err != nil {
		return err
	}

	b.reply(ctx, inv.channelID(), "Removed player role and added dead player role to the user!")
	return nil
}

func (b *Bot) cmdRand(ctx context.Context, inv *invocation) error {
	roles := splitCommaList(inv.raw)
	if len(roles) == 0 {
		b.reply(ctx, inv.channelID(), "Supply a comma-separated list of game roles.")
		return nil
	}

	members, err := b.playerMembers(ctx, inv.settings)
	if err != nil {
		b.reply(ctx, inv.channelID(), "Player role has not been set up.")
		return nil
	}
	if len(members) != len(roles) {
		b.reply(ctx, inv.channelID(), "Number of members with `Player` role is not equal to number of roles.")
		return nil
	}

	var sb strings.Builder
	for _, m := range members {
		i := rand.Intn(len(roles))
		fmt.Fprintf(&sb, "\n%s: %s", displayName(m), roles[i])
		roles = append(roles[:i], roles[i+1:]...)
	}
	b.reply(ctx, inv.channelID(), strings.TrimSpace(sb.String()))
	return nil
}

func splitCommaList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (b *Bot) cmdPlayerList(ctx context.Context, inv *invocation) error {
	channelID, err := b.dc.ResolveChannel(ctx, inv.guildID(), inv.raw)
	if err != nil {
		b.reply(ctx, inv.channelID(), fmt.Sprintf("No channel found from `%s`.", inv.raw))
		return nil
	}

	members, err := b.playerMembers(ctx, inv.settings)
	if err != nil {
		b.reply(ctx, inv.channelID(), "Player role has not been set up.")
		return nil
	}
	if len(members) == 0 {
		b.reply(ctx, inv.channelID(), "No players!")
		return nil
	}

	var sb strings.Builder
	sb.WriteString("**Player List**")
	for i, m := range members {
		fmt.Fprintf(&sb, "\n%d. <@%s>", i+1, m.ID)
	}
	fmt.Fprintf(&sb, "\n\nTotal Players: %d", len(members))

	if err := b.dc.Send(ctx, channelID, sb.String()); err != nil {
		b.reply(ctx, inv.channelID(), fmt.Sprintf(
			"I couldn't send the player list. Please check my permissions in <#%s>.", channelID))
		return nil
	}
	return nil
}

func (b *Bot) cmdPlayerChats(ctx context.Context, inv *invocation) error {
	categoryName := inv.raw
	if categoryName == "" {
		categoryName = "Private Chats"
	}

	if inv.settings.PlayerRoleID == "" {
		b.reply(ctx, inv.channelID(), "Either the Player role is not set, or it got deleted.")
		return nil
	}

	ok, err := b.dc.Confirm(ctx, inv.channelID(), inv.authorID(), "Are you sure you want to create player chats?")
	if err != nil && !errors.Is(err, platform.ErrConfirmTimeout) {
		return err
	}
	if !ok {
		b.reply(ctx, inv.channelID(), "Cancelled player chats creation.")
		return nil
	}

	members, err := b.dc.RoleMembers(ctx, inv.guildID(), inv.settings.PlayerRoleID)
	if err != nil {
		return fmt.Errorf("list players: %w", err)
	}

	everyone := inv.guildID()
	catPerms := []platform.Overwrite{
		{PrincipalID: everyone, Kind: platform.PrincipalRole, Deny: platform.PermView},
		{PrincipalID: inv.botID(), Kind: platform.PrincipalMember, Allow: platform.PermView | platform.PermSend},
	}
	category, err := b.dc.CreateCategory(ctx, inv.guildID(), categoryName, catPerms)
	if err != nil {
		b.reply(ctx, inv.channelID(), "Could not create a category.")
		return nil
	}

	memberPerms := platform.PermView | platform.PermSend | platform.PermAddReactions |
		platform.PermEmbedLinks | platform.PermHistory | platform.PermAttachFiles

	for _, m := range members {
		overwrites := []platform.Overwrite{
			{PrincipalID: everyone, Kind: platform.PrincipalRole, Deny: platform.PermView},
			{PrincipalID: inv.botID(), Kind: platform.PrincipalMember, Allow: platform.PermView | platform.PermSend | platform.PermAddReactions},
			{PrincipalID: m.ID, Kind: platform.PrincipalMember, Allow: memberPerms},
		}
		if inv.settings.HostRoleID != "" {
			overwrites = append(overwrites, platform.Overwrite{
				PrincipalID: inv.settings.HostRoleID, Kind: platform.PrincipalRole, Allow: memberPerms,
			})
		}
		if _, err := b.dc.CreateChannel(ctx, inv.guildID(), channelNameFor(m), category, overwrites); err != nil {
			b.reply(ctx, inv.channelID(), "I couldn't create a channel. Please check my permissions.")
			return nil
		}
	}

	b.reply(ctx, inv.channelID(), "Created player chats.")
	return nil
}

// channelNameFor derives a private channel name from a member's username
// portion of their tag.
func channelNameFor(m platform.Member) string {
	name, _, _ := strings.Cut(m.Tag, "#")
	return name
}

func (b *Bot) cmdMafiaChat(ctx context.Context, inv *invocation) error {
	var members []platform.Member
	for _, arg := range inv.args {
		m, err := b.dc.ResolveMember(ctx, inv.guildID(), arg)
		if err != nil {
			b.reply(ctx, inv.channelID(), fmt.Sprintf("No member found from %s.", arg))
			return nil
		}
		members = append(members, m)
	}

	memberPerms := platform.PermView | platform.PermSend | platform.PermAddReactions |
		platform.PermEmbedLinks | platform.PermHistory | platform.PermAttachFiles

	perms := []platform.Overwrite{
		{PrincipalID: inv.guildID(), Kind: platform.PrincipalRole, Deny: platform.PermView},
	}
	for _, m := range members {
		perms = append(perms, platform.Overwrite{
			PrincipalID: m.ID, Kind: platform.PrincipalMember, Allow: memberPerms,
		})
	}

	channel, err := b.dc.CreateChannel(ctx, inv.guildID(), "mafia-chat", "", perms)
	if err != nil {
		b.reply(ctx, inv.channelID(), "I'm unable to create a channel.")
		return nil
	}
	b.reply(ctx, inv.channelID(), fmt.Sprintf("Created <#%s>.", channel))
	return nil
}

func (b *Bot) cmdSpecChat(ctx context.Context, inv *invocation) error {
	if inv.settings.SpecRoleID == "" {
		b.reply(ctx, inv.channelID(), "Spectator role doesn't exist.")
		return nil
	}

	perms := []platform.Overwrite{
		{PrincipalID: inv.guildID(), Kind: platform.PrincipalRole, Deny: platform.PermView},
		{PrincipalID: inv.settings.SpecRoleID, Kind: platform.PrincipalRole, Allow: platform.PermView | platform.PermSend},
	}
	channel, err := b.dc.CreateChannel(ctx, inv.guildID(), "spectator-chat", "", perms)
	if err != nil {
		b.reply(ctx, inv.channelID(), "I'm unable to create a channel.")
		return nil
	}
	b.reply(ctx, inv.channelID(), fmt.Sprintf("Created <#%s>.", channel))
	return nil
}
