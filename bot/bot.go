// Package bot wires the Discord gateway to the game engine: a prefix command
// router, the command handlers, and the audit-log event handlers.
package bot

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/hexlocke/tvm-warden/db"
	"github.com/hexlocke/tvm-warden/game"
	"github.com/hexlocke/tvm-warden/platform"
	"github.com/hexlocke/tvm-warden/telemetry"
)

// Bot holds the collaborators shared by all command handlers.
type Bot struct {
	dc        *platform.Discord
	store     *db.Store
	engine    *game.Engine
	sqlDB     *sql.DB
	prefix    string
	scanLimit int
}

// New assembles a Bot. prefix is the global default; guilds can override it
// with the prefix command. scanLimit bounds vote-count history replays.
func New(dc *platform.Discord, store *db.Store, engine *game.Engine, sqlDB *sql.DB, prefix string, scanLimit int) *Bot {
	return &Bot{
		dc:        dc,
		store:     store,
		engine:    engine,
		sqlDB:     sqlDB,
		prefix:    prefix,
		scanLimit: scanLimit,
	}
}

// RegisterHandlers attaches the gateway event handlers to the session.
func (b *Bot) RegisterHandlers(s *discordgo.Session) {
	s.AddHandler(b.onReady)
	s.AddHandler(b.onMessageCreate)
	s.AddHandler(b.onMessageUpdate)
	s.AddHandler(b.onMessageDelete)
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	slog.Info("gateway session ready",
		slog.String("component", "bot"),
		slog.String("user", r.User.Username),
		slog.Int("guilds", len(r.Guilds)))
	telemetry.SetGuilds(len(r.Guilds))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.SetKV(ctx, b.sqlDB, "last_ready", time.Now().UTC().Format(time.RFC3339)); err != nil {
		slog.Warn("failed to record ready heartbeat", slog.Any("error", err), slog.String("component", "bot"))
	}
}

// reply sends plain text to the invoking channel, logging send failures
// instead of propagating them (the command already ran).
func (b *Bot) reply(ctx context.Context, channelID, content string) {
	if err := b.dc.Send(ctx, channelID, content); err != nil {
		slog.Warn("failed to send reply",
			slog.String("component", "bot"),
			slog.String("channel", channelID),
			slog.Any("error", err))
	}
}

// activeVoters resolves the set of ledger identities whose messages count in
// a tally: the persisted roster when the guild opted into roster mode,
// otherwise everyone currently holding the player role.
func (b *Bot) activeVoters(ctx context.Context, settings db.Settings) (map[string]bool, error) {
	if settings.UseRoster {
		roster, err := b.store.Roster(ctx, settings.GuildID)
		if err != nil {
			return nil, err
		}
		voters := make(map[string]bool, len(roster))
		for _, tag := range roster {
			voters[tag] = true
		}
		return voters, nil
	}

	if settings.PlayerRoleID == "" {
		return nil, fmt.Errorf("player role has not been set up")
	}
	members, err := b.dc.RoleMembers(ctx, settings.GuildID, settings.PlayerRoleID)
	if err != nil {
		return nil, fmt.Errorf("list player role members: %w", err)
	}
	voters := make(map[string]bool, len(members))
	for _, m := range members {
		voters[m.Tag] = true
	}
	return voters, nil
}

// playerMembers returns the guild members holding the player role, sorted by
// display name for stable listings.
func (b *Bot) playerMembers(ctx context.Context, settings db.Settings) ([]platform.Member, error) {
	if settings.PlayerRoleID == "" {
		return nil, fmt.Errorf("player role has not been set up")
	}
	members, err := b.dc.RoleMembers(ctx, settings.GuildID, settings.PlayerRoleID)
	if err != nil {
		return nil, err
	}
	sort.Slice(members, func(i, j int) bool {
		return displayName(members[i]) < displayName(members[j])
	})
	return members, nil
}

func displayName(m platform.Member) string {
	if m.Nick != "" {
		return m.Nick
	}
	return m.Tag
}

// humanDuration renders a duration the way phase timers read in chat,
// dropping units that are zero: "2 days, 3 hours, 10 minutes".
func humanDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Minute)
	weeks := total / (7 * 24 * 60)
	total -= weeks * 7 * 24 * 60
	days := total / (24 * 60)
	total -= days * 24 * 60
	hours := total / 60
	minutes := total % 60

	var parts []string
	for _, u := range []struct {
		value int
		name  string
	}{
		{weeks, "week"},
		{days, "day"},
		{hours, "hour"},
		{minutes, "minute"},
	} {
		if u.value == 0 {
			continue
		}
		name := u.name
		if u.value > 1 {
			name += "s"
		}
		parts = append(parts, fmt.Sprintf("%d %s", u.value, name))
	}
	if len(parts) == 0 {
		return ""
	}
	out := parts[0]
	for _, p := range parts[1:] {
		out += ", " + p
	}
	return out
}

// jumpURL builds the message permalink Discord clients open in place.
func jumpURL(guildID, channelID, messageID string) string {
	return fmt.Sprintf("https://discord.com/channels/%s/%s/%s", guildID, channelID, messageID)
}
