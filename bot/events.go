package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	"github.com/hexlocke/tvm-warden/db"
	"github.com/hexlocke/tvm-warden/platform"
	"github.com/hexlocke/tvm-warden/telemetry"
)

const auditTimeout = 15 * time.Second

func (b *Bot) onMessageUpdate(s *discordgo.Session, u *discordgo.MessageUpdate) {
	if u.GuildID == "" || u.Author == nil || u.Author.Bot {
		return
	}

	oldContent := ""
	if u.BeforeUpdate != nil {
		oldContent = u.BeforeUpdate.Content
	}
	if oldContent == u.Content {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), auditTimeout)
	defer cancel()

	settings, ok := b.auditTarget(ctx, u.GuildID, u.ChannelID)
	if !ok {
		return
	}

	body := fmt.Sprintf("📝 **%s** (%s) edited a message in <#%s>.",
		platform.DisplayTag(u.Author), u.Author.ID, u.ChannelID)
	if oldContent != "" {
		body += "\n**Before:** " + truncate(oldContent, 900)
	} else {
		body += "\n**Before:** (not cached)"
	}
	body += "\n**After:** " + truncate(u.Content, 900)
	body += "\n" + jumpURL(u.GuildID, u.ChannelID, u.ID)

	b.postAudit(ctx, settings, body)
}

func (b *Bot) onMessageDelete(s *discordgo.Session, d *discordgo.MessageDelete) {
	if d.GuildID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), auditTimeout)
	defer cancel()

	settings, ok := b.auditTarget(ctx, d.GuildID, d.ChannelID)
	if !ok {
		return
	}

	var body string
	if before := d.BeforeDelete; before != nil && before.Author != nil {
		if before.Author.Bot {
			return
		}
		body = fmt.Sprintf("🗑️ A message by **%s** (%s) was deleted in <#%s>.\n**Content:** %s",
			platform.DisplayTag(before.Author), before.Author.ID, d.ChannelID,
			truncate(before.Content, 1200))
	} else {
		body = fmt.Sprintf("🗑️ An uncached message (`%s`) was deleted in <#%s>.", d.ID, d.ChannelID)
	}

	b.postAudit(ctx, settings, body)
}

// auditTarget decides whether events from the channel should be logged and
// returns the guild's logging settings when so. The whitelist takes
// precedence over everything; the blacklist over the public-channel default.
func (b *Bot) auditTarget(ctx context.Context, guildID, channelID string) (db.LogSettings, bool) {
	settings, err := b.store.LogSettings(ctx, guildID)
	if err != nil {
		slog.Error("failed to load log settings",
			slog.String("component", "bot"),
			slog.String("guild", guildID),
			slog.Any("error", err))
		return db.LogSettings{}, false
	}
	if settings.LogChannelID == "" || channelID == settings.LogChannelID {
		return db.LogSettings{}, false
	}

	for _, id := range settings.Whitelist {
		if id == channelID {
			return settings, true
		}
	}
	for _, id := range settings.Blacklist {
		if id == channelID {
			return db.LogSettings{}, false
		}
	}
	if !b.isPublicChannel(ctx, guildID, channelID) {
		return db.LogSettings{}, false
	}
	return settings, true
}

// isPublicChannel reports whether the guild-default role can still view the
// channel, which is what makes an unlisted channel eligible for logging.
func (b *Bot) isPublicChannel(ctx context.Context, guildID, channelID string) bool {
	overwrites, err := b.dc.Overwrites(ctx, channelID)
	if err != nil {
		return false
	}
	for _, o := range overwrites {
		if o.Kind == platform.PrincipalRole && o.PrincipalID == guildID && o.Deny&platform.PermView != 0 {
			return false
		}
	}
	return true
}

func (b *Bot) postAudit(ctx context.Context, settings db.LogSettings, body string) {
	if err := b.dc.Send(ctx, settings.LogChannelID, body); err != nil {
		slog.Warn("failed to post audit log entry",
			slog.String("component", "bot"),
			slog.String("channel", settings.LogChannelID),
			slog.Any("error", err))
		return
	}
	telemetry.AuditEvents.Inc()
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	// Back off to a rune boundary so the cut never leaves invalid UTF-8.
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}
