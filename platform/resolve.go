package platform

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// StripMention extracts the bare ID from a mention token (<@id>, <@!id>,
// <@&id>, <#id>) or returns the input trimmed if it isn't a mention.
func StripMention(arg string) string {
	arg = strings.TrimSpace(arg)
	if !strings.HasPrefix(arg, "<") || !strings.HasSuffix(arg, ">") {
		return arg
	}
	inner := arg[1 : len(arg)-1]
	inner = strings.TrimPrefix(inner, "@")
	inner = strings.TrimPrefix(inner, "!")
	inner = strings.TrimPrefix(inner, "&")
	inner = strings.TrimPrefix(inner, "#")
	return inner
}

func isSnowflake(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ResolveRole finds a guild role from a mention, an ID, or a
// case-insensitive name.
func (d *Discord) ResolveRole(ctx context.Context, guildID, arg string) (*discordgo.Role, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	arg = StripMention(arg)
	if arg == "" {
		return nil, fmt.Errorf("no role given")
	}
	roles, err := d.s.GuildRoles(guildID)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	for _, r := range roles {
		if r.ID == arg || strings.EqualFold(r.Name, arg) {
			return r, nil
		}
	}
	return nil, fmt.Errorf("no role found from %q", arg)
}

// RoleByID resolves a stored role ID, failing when the role was deleted.
func (d *Discord) RoleByID(ctx context.Context, guildID, roleID string) (*discordgo.Role, error) {
	if roleID == "" {
		return nil, fmt.Errorf("role not configured")
	}
	return d.ResolveRole(ctx, guildID, roleID)
}

// ResolveMember finds a guild member from a mention, an ID, a name#discr tag,
// a username, or a nickname (case-insensitive).
func (d *Discord) ResolveMember(ctx context.Context, guildID, arg string) (Member, error) {
	arg = StripMention(arg)
	if arg == "" {
		return Member{}, fmt.Errorf("no member given")
	}
	if isSnowflake(arg) {
		if m, err := d.s.GuildMember(guildID, arg); err == nil {
			return toMember(m), nil
		}
	}
	members, err := d.GuildMembers(ctx, guildID)
	if err != nil {
		return Member{}, err
	}
	for _, m := range members {
		if strings.EqualFold(m.Tag, arg) || strings.EqualFold(m.Nick, arg) {
			return m, nil
		}
		// Bare username without the discriminator part.
		name, _, _ := strings.Cut(m.Tag, "#")
		if strings.EqualFold(name, arg) {
			return m, nil
		}
	}
	return Member{}, fmt.Errorf("no member found from %q", arg)
}

// ResolveChannel finds a guild text channel ID from a mention, an ID, or a
// case-insensitive name.
func (d *Discord) ResolveChannel(ctx context.Context, guildID, arg string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	arg = StripMention(arg)
	if arg == "" {
		return "", fmt.Errorf("no channel given")
	}
	channels, err := d.s.GuildChannels(guildID)
	if err != nil {
		return "", fmt.Errorf("list channels: %w", err)
	}
	for _, c := range channels {
		if c.ID == arg || strings.EqualFold(c.Name, arg) {
			return c.ID, nil
		}
	}
	return "", fmt.Errorf("no channel found from %q", arg)
}
