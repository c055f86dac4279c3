package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hexlocke/tvm-warden/platform"
)

// setRole resolves a role argument, asks for confirmation, and persists it
// through save. The flow is shared by all five role setters.
func (b *Bot) setRole(ctx context.Context, inv *invocation, label string,
	save func(context.Context, string, string) error) error {

	role, err := b.dc.ResolveRole(ctx, inv.guildID(), inv.raw)
	if err != nil {
		b.reply(ctx, inv.channelID(), fmt.Sprintf("No role found from `%s`.", inv.raw))
		return nil
	}

	prompt := fmt.Sprintf("Are you sure you want to set `%s` as the %s role?", role.Name, label)
	ok, err := b.dc.Confirm(ctx, inv.channelID(), inv.authorID(), prompt)
	if err != nil && !errors.Is(err, platform.ErrConfirmTimeout) {
		return err
	}
	if !ok {
		b.reply(ctx, inv.channelID(), fmt.Sprintf("Cancelled setting the %s role.", label))
		return nil
	}

	if err := save(ctx, inv.guildID(), role.ID); err != nil {
		return err
	}
	b.reply(ctx, inv.channelID(), fmt.Sprintf("Set `%s` as the %s role.", role.Name, label))
	return nil
}

func (b *Bot) cmdSetHostRole(ctx context.Context, inv *invocation) error {
	return b.setRole(ctx, inv, "Host", b.store.SetHostRole)
}

func (b *Bot) cmdSetPlayerRole(ctx context.Context, inv *invocation) error {
	return b.setRole(ctx, inv, "Player", b.store.SetPlayerRole)
}

func (b *Bot) cmdSetSpecRole(ctx context.Context, inv *invocation) error {
	return b.setRole(ctx, inv, "Spectator", b.store.SetSpecRole)
}

func (b *Bot) cmdSetReplRole(ctx context.Context, inv *invocation) error {
	return b.setRole(ctx, inv, "Replacement", b.store.SetReplRole)
}

func (b *Bot) cmdSetDeadRole(ctx context.Context, inv *invocation) error {
	return b.setRole(ctx, inv, "Dead", b.store.SetDeadRole)
}

// setChannel mirrors setRole for channel-valued settings, minus the
// confirmation prompt.
func (b *Bot) setChannel(ctx context.Context, inv *invocation, label string,
	save func(context.Context, string, string) error) error {

	channelID, err := b.dc.ResolveChannel(ctx, inv.guildID(), inv.raw)
	if err != nil {
		b.reply(ctx, inv.channelID(), fmt.Sprintf("No channel found from `%s`.", inv.raw))
		return nil
	}
	if err := save(ctx, inv.guildID(), channelID); err != nil {
		return err
	}
	b.reply(ctx, inv.channelID(), fmt.Sprintf("Set <#%s> as the %s channel.", channelID, label))
	return nil
}

func (b *Bot) cmdSetNAChannel(ctx context.Context, inv *invocation) error {
	return b.setChannel(ctx, inv, "night actions", b.store.SetNightActionsChannel)
}

func (b *Bot) cmdSetSignupsChannel(ctx context.Context, inv *invocation) error {
	return b.setChannel(ctx, inv, "sign-ups", b.store.SetSignupsChannel)
}

func (b *Bot) cmdSignOpen(ctx context.Context, inv *invocation) error {
	if err := b.store.SetSignupsOpen(ctx, inv.guildID(), true); err != nil {
		return err
	}
	b.reply(ctx, inv.channelID(), "Sign-ups are now open.")
	return nil
}

func (b *Bot) cmdSignClose(ctx context.Context, inv *invocation) error {
	if err := b.store.SetSignupsOpen(ctx, inv.guildID(), false); err != nil {
		return err
	}
	b.reply(ctx, inv.channelID(), "Sign-ups are now closed.")
	return nil
}

func (b *Bot) cmdChangeNA(ctx context.Context, inv *invocation) error {
	next := !inv.settings.CanChangeNA
	if err := b.store.SetCanChangeNA(ctx, inv.guildID(), next); err != nil {
		return err
	}
	if next {
		b.reply(ctx, inv.channelID(), "Players can now change their submitted night actions.")
	} else {
		b.reply(ctx, inv.channelID(), "Night actions are now final once submitted.")
	}
	return nil
}

func (b *Bot) cmdTotalPlayers(ctx context.Context, inv *invocation) error {
	n, err := strconv.Atoi(inv.args[0])
	if err != nil || n < 1 {
		b.reply(ctx, inv.channelID(), "The player cap must be a positive integer.")
		return nil
	}
	if err := b.store.SetTotalPlayers(ctx, inv.guildID(), n); err != nil {
		return err
	}
	b.reply(ctx, inv.channelID(), fmt.Sprintf("Set maximum players to **%d**.", n))
	return nil
}

func (b *Bot) cmdUseRoster(ctx context.Context, inv *invocation) error {
	var v bool
	switch strings.ToLower(inv.args[0]) {
	case "on", "true", "yes":
		v = true
	case "off", "false", "no":
		v = false
	default:
		b.reply(ctx, inv.channelID(), "Say `on` or `off`.")
		return nil
	}
	if err := b.store.SetUseRoster(ctx, inv.guildID(), v); err != nil {
		return err
	}
	if v {
		b.reply(ctx, inv.channelID(), "Vote counts now use the stored sign-up roster.")
	} else {
		b.reply(ctx, inv.channelID(), "Vote counts now use members holding the Player role.")
	}
	return nil
}

func (b *Bot) cmdSetPrefix(ctx context.Context, inv *invocation) error {
	prefix := inv.args[0]
	if len(prefix) > 5 {
		b.reply(ctx, inv.channelID(), "The prefix must be at most 5 characters.")
		return nil
	}
	if err := b.store.SetPrefix(ctx, inv.guildID(), prefix); err != nil {
		return err
	}
	b.reply(ctx, inv.channelID(), fmt.Sprintf("Set the command prefix to `%s`.", prefix))
	return nil
}

func (b *Bot) cmdLock(ctx context.Context, inv *invocation) error {
	if err := b.store.SetLocked(ctx, inv.guildID(), true); err != nil {
		return err
	}
	b.reply(ctx, inv.channelID(), "Locked the game settings.")
	return nil
}

func (b *Bot) cmdUnlock(ctx context.Context, inv *invocation) error {
	if err := b.store.SetLocked(ctx, inv.guildID(), false); err != nil {
		return err
	}
	b.reply(ctx, inv.channelID(), "Unlocked the game settings.")
	return nil
}

func (b *Bot) cmdSettings(ctx context.Context, inv *invocation) error {
	s := inv.settings
	var sb strings.Builder
	sb.WriteString("**Game Settings**")
	fmt.Fprintf(&sb, "\nHost role: %s", roleRef(s.HostRoleID))
	fmt.Fprintf(&sb, "\nPlayer role: %s", roleRef(s.PlayerRoleID))
	fmt.Fprintf(&sb, "\nSpectator role: %s", roleRef(s.SpecRoleID))
	fmt.Fprintf(&sb, "\nReplacement role: %s", roleRef(s.ReplRoleID))
	fmt.Fprintf(&sb, "\nDead role: %s", roleRef(s.DeadRoleID))
	fmt.Fprintf(&sb, "\nSign-ups channel: %s", channelRef(s.SignupsChannelID))
	fmt.Fprintf(&sb, "\nNight actions channel: %s", channelRef(s.NAChannelID))
	fmt.Fprintf(&sb, "\nSign-ups open: %s", onOff(s.SignupsOpen))
	fmt.Fprintf(&sb, "\nNight action changes: %s", onOff(s.CanChangeNA))
	fmt.Fprintf(&sb, "\nRoster-based vote counts: %s", onOff(s.UseRoster))
	fmt.Fprintf(&sb, "\nSettings locked: %s", onOff(s.Locked))
	fmt.Fprintf(&sb, "\nSign-ups: %d/%d", s.TotalSignups, s.TotalPlayers)
	if s.Cycle.Started() {
		fmt.Fprintf(&sb, "\nCurrent cycle: %d (%s)", s.Cycle.Number, s.Cycle.Phase)
	} else {
		sb.WriteString("\nCurrent cycle: game not started")
	}
	b.reply(ctx, inv.channelID(), sb.String())
	return nil
}

func roleRef(id string) string {
	if id == "" {
		return "not set"
	}
	return fmt.Sprintf("<@&%s>", id)
}

func channelRef(id string) string {
	if id == "" {
		return "not set"
	}
	return fmt.Sprintf("<#%s>", id)
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
