package bot

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"

	"github.com/hexlocke/tvm-warden/db"
	"github.com/hexlocke/tvm-warden/telemetry"
)

// commandTimeout bounds one command invocation end to end, including
// confirmation prompts and channel provisioning.
const commandTimeout = 2 * time.Minute

// invocation carries the per-message state every handler needs.
type invocation struct {
	s        *discordgo.Session
	m        *discordgo.MessageCreate
	args     []string
	raw      string // args joined as typed, for free-text commands
	settings db.Settings
	corrID   string
}

func (inv *invocation) guildID() string   { return inv.m.GuildID }
func (inv *invocation) channelID() string { return inv.m.ChannelID }
func (inv *invocation) authorID() string  { return inv.m.Author.ID }
func (inv *invocation) botID() string     { return inv.s.State.User.ID }

type handlerFunc func(b *Bot, ctx context.Context, inv *invocation) error

type command struct {
	name     string
	aliases  []string
	hostOnly bool
	lockable bool // refused while the guild's settings are locked
	minArgs  int
	run      handlerFunc
}

// commands is the full dispatch table. Lookup is by primary name or alias.
var commands = []command{
	// Sign-ups and player info
	{name: "in", run: (*Bot).cmdSignIn},
	{name: "out", run: (*Bot).cmdSignOut},
	{name: "repl", aliases: []string{"replacement"}, run: (*Bot).cmdSignRepl},
	{name: "players", run: (*Bot).cmdPlayers},
	{name: "replacements", run: (*Bot).cmdReplacements},
	{name: "total", run: (*Bot).cmdTotal},
	{name: "synctotal", hostOnly: true, run: (*Bot).cmdSyncTotal},

	// Votes and phase
	{name: "votecount", aliases: []string{"vc"}, run: (*Bot).cmdVoteCount},
	{name: "votehistory", aliases: []string{"vh"}, minArgs: 1, run: (*Bot).cmdVoteHistory},
	{name: "timesince", aliases: []string{"ts"}, run: (*Bot).cmdTimeSince},
	{name: "top", run: (*Bot).cmdTop},
	{name: "nightaction", aliases: []string{"na"}, minArgs: 1, run: (*Bot).cmdNightAction},

	// Host utility
	{name: "cycle", hostOnly: true, run: (*Bot).cmdCycle},
	{name: "night", hostOnly: true, run: (*Bot).cmdNight},
	{name: "kill", hostOnly: true, minArgs: 1, run: (*Bot).cmdKill},
	{name: "rand", aliases: []string{"randomise", "randomize"}, hostOnly: true, minArgs: 1, run: (*Bot).cmdRand},
	{name: "playerlist", aliases: []string{"plist", "pl"}, hostOnly: true, minArgs: 1, run: (*Bot).cmdPlayerList},
	{name: "playerchats", aliases: []string{"pc"}, hostOnly: true, run: (*Bot).cmdPlayerChats},
	{name: "mafiachat", aliases: []string{"mafchat"}, hostOnly: true, minArgs: 1, run: (*Bot).cmdMafiaChat},
	{name: "specchat", aliases: []string{"spectatorchat"}, hostOnly: true, run: (*Bot).cmdSpecChat},

	// Setup
	{name: "host", hostOnly: true, lockable: true, minArgs: 1, run: (*Bot).cmdSetHostRole},
	{name: "player", hostOnly: true, lockable: true, minArgs: 1, run: (*Bot).cmdSetPlayerRole},
	{name: "spec", aliases: []string{"spectator"}, hostOnly: true, lockable: true, minArgs: 1, run: (*Bot).cmdSetSpecRole},
	{name: "replrole", hostOnly: true, lockable: true, minArgs: 1, run: (*Bot).cmdSetReplRole},
	{name: "dead", hostOnly: true, lockable: true, minArgs: 1, run: (*Bot).cmdSetDeadRole},
	{name: "nachannel", hostOnly: true, lockable: true, minArgs: 1, run: (*Bot).cmdSetNAChannel},
	{name: "signups", hostOnly: true, lockable: true, minArgs: 1, run: (*Bot).cmdSetSignupsChannel},
	{name: "signopen", hostOnly: true, lockable: true, run: (*Bot).cmdSignOpen},
	{name: "signclose", hostOnly: true, lockable: true, run: (*Bot).cmdSignClose},
	{name: "changena", hostOnly: true, lockable: true, run: (*Bot).cmdChangeNA},
	{name: "totalplayers", hostOnly: true, lockable: true, minArgs: 1, run: (*Bot).cmdTotalPlayers},
	{name: "useroster", hostOnly: true, lockable: true, minArgs: 1, run: (*Bot).cmdUseRoster},
	{name: "prefix", hostOnly: true, lockable: true, minArgs: 1, run: (*Bot).cmdSetPrefix},
	{name: "lock", hostOnly: true, run: (*Bot).cmdLock},
	{name: "unlock", hostOnly: true, run: (*Bot).cmdUnlock},
	{name: "settings", hostOnly: true, run: (*Bot).cmdSettings},

	// Audit logging
	{name: "logchannel", hostOnly: true, minArgs: 1, run: (*Bot).cmdLogChannel},
	{name: "logwhitelist", hostOnly: true, minArgs: 1, run: (*Bot).cmdLogWhitelist},
	{name: "logblacklist", hostOnly: true, minArgs: 1, run: (*Bot).cmdLogBlacklist},
	{name: "rwhitelist", hostOnly: true, minArgs: 1, run: (*Bot).cmdRemoveLogWhitelist},
	{name: "rblacklist", hostOnly: true, minArgs: 1, run: (*Bot).cmdRemoveLogBlacklist},
	{name: "logsettings", hostOnly: true, run: (*Bot).cmdLogSettings},
}

// lookupCommand resolves a name or alias; ok is false for unknown commands.
func lookupCommand(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
		for _, a := range c.aliases {
			if a == name {
				return c, true
			}
		}
	}
	return command{}, false
}

// splitCommand strips the prefix and splits the remainder into the command
// name, its fields, and the raw argument string.
func splitCommand(content, prefix string) (name string, args []string, raw string, ok bool) {
	if !strings.HasPrefix(content, prefix) {
		return "", nil, "", false
	}
	rest := strings.TrimSpace(content[len(prefix):])
	if rest == "" {
		return "", nil, "", false
	}
	name, raw, _ = strings.Cut(rest, " ")
	raw = strings.TrimSpace(raw)
	return strings.ToLower(name), strings.Fields(raw), raw, true
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	settings, err := b.store.Settings(ctx, m.GuildID)
	if err != nil {
		slog.Error("failed to load guild settings",
			slog.String("component", "bot"),
			slog.String("guild", m.GuildID),
			slog.Any("error", err))
		return
	}

	prefix := settings.Prefix
	if prefix == "" {
		prefix = b.prefix
	}
	name, args, raw, ok := splitCommand(m.Content, prefix)
	if !ok {
		return
	}
	cmd, ok := lookupCommand(name)
	if !ok {
		return
	}

	inv := &invocation{
		s:        s,
		m:        m,
		args:     args,
		raw:      raw,
		settings: settings,
		corrID:   uuid.NewString(),
	}

	logger := slog.With(
		slog.String("component", "bot"),
		slog.String("command", cmd.name),
		slog.String("guild", m.GuildID),
		slog.String("correlation_id", inv.corrID))

	if cmd.hostOnly && !b.isHost(s, m, settings) {
		b.reply(ctx, m.ChannelID, "Only hosts can use that command.")
		return
	}
	if cmd.lockable && settings.Locked {
		b.reply(ctx, m.ChannelID, "The game settings are locked.")
		return
	}
	if len(args) < cmd.minArgs {
		b.reply(ctx, m.ChannelID, "Missing required arguments. Check the command usage.")
		return
	}

	telemetry.CommandsTotal.WithLabelValues(cmd.name).Inc()
	start := time.Now()
	if err := cmd.run(b, ctx, inv); err != nil {
		telemetry.CommandErrors.WithLabelValues(cmd.name).Inc()
		logger.Error("command failed", slog.Any("error", err))
		b.reply(ctx, m.ChannelID, "Something went wrong running that command.")
		return
	}
	telemetry.CommandDuration.Observe(time.Since(start).Seconds())
	logger.Debug("command handled", slog.Duration("elapsed", time.Since(start)))
}

// isHost reports whether the author holds the configured host role or has
// administrator permissions in the channel.
func (b *Bot) isHost(s *discordgo.Session, m *discordgo.MessageCreate, settings db.Settings) bool {
	if m.Member != nil && settings.HostRoleID != "" {
		for _, r := range m.Member.Roles {
			if r == settings.HostRoleID {
				return true
			}
		}
	}
	perms, err := s.UserChannelPermissions(m.Author.ID, m.ChannelID)
	if err != nil {
		return false
	}
	return perms&discordgo.PermissionAdministrator != 0
}
