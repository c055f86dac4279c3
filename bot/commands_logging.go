package bot

import (
	"context"
	"fmt"
	"strings"
)

func (b *Bot) cmdLogChannel(ctx context.Context, inv *invocation) error {
	channelID, err := b.dc.ResolveChannel(ctx, inv.guildID(), inv.raw)
	if err != nil {
		b.reply(ctx, inv.channelID(), fmt.Sprintf("No channel found from `%s`.", inv.raw))
		return nil
	}
	if err := b.store.SetLogChannel(ctx, inv.guildID(), channelID); err != nil {
		return err
	}
	b.reply(ctx, inv.channelID(), fmt.Sprintf("Set <#%s> as the log channel.", channelID))
	return nil
}

// logListEdit resolves a channel argument and applies one of the
// whitelist/blacklist mutations.
func (b *Bot) logListEdit(ctx context.Context, inv *invocation, verb, list string,
	apply func(context.Context, string, string) error) error {

	channelID, err := b.dc.ResolveChannel(ctx, inv.guildID(), inv.raw)
	if err != nil {
		b.reply(ctx, inv.channelID(), fmt.Sprintf("No channel found from `%s`.", inv.raw))
		return nil
	}
	if err := apply(ctx, inv.guildID(), channelID); err != nil {
		return err
	}
	b.reply(ctx, inv.channelID(), fmt.Sprintf("%s <#%s> %s the logging %s.", verb, channelID, verbPreposition(verb), list))
	return nil
}

func verbPreposition(verb string) string {
	if verb == "Removed" {
		return "from"
	}
	return "to"
}

func (b *Bot) cmdLogWhitelist(ctx context.Context, inv *invocation) error {
	return b.logListEdit(ctx, inv, "Added", "whitelist", b.store.AddLogWhitelist)
}

func (b *Bot) cmdLogBlacklist(ctx context.Context, inv *invocation) error {
	return b.logListEdit(ctx, inv, "Added", "blacklist", b.store.AddLogBlacklist)
}

func (b *Bot) cmdRemoveLogWhitelist(ctx context.Context, inv *invocation) error {
	return b.logListEdit(ctx, inv, "Removed", "whitelist", b.store.RemoveLogWhitelist)
}

func (b *Bot) cmdRemoveLogBlacklist(ctx context.Context, inv *invocation) error {
	return b.logListEdit(ctx, inv, "Removed", "blacklist", b.store.RemoveLogBlacklist)
}

func (b *Bot) cmdLogSettings(ctx context.Context, inv *invocation) error {
	ls, err := b.store.LogSettings(ctx, inv.guildID())
	if err != nil {
		return err
	}

	var sb strings.Builder
	sb.WriteString("**Logging Settings**")
	fmt.Fprintf(&sb, "\nLog channel: %s", channelRef(ls.LogChannelID))
	fmt.Fprintf(&sb, "\nWhitelist: %s", channelList(ls.Whitelist))
	fmt.Fprintf(&sb, "\nBlacklist: %s", channelList(ls.Blacklist))
	b.reply(ctx, inv.channelID(), sb.String())
	return nil
}

func channelList(ids []string) string {
	if len(ids) == 0 {
		return "none"
	}
	refs := make([]string, len(ids))
	for i, id := range ids {
		refs[i] = fmt.Sprintf("<#%s>", id)
	}
	return strings.Join(refs, ", ")
}
