package platform

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

const (
	yesEmoji = "✅" // white check mark
	noEmoji  = "❌" // cross mark

	// Discord caps a single history request at 100 messages.
	historyPageSize = 100
)

// Discord adapts a discordgo session to the collaborator contracts the game
// core consumes: message history, channel/permission mutation, plain sends,
// and yes/no reaction prompts.
type Discord struct {
	s              *discordgo.Session
	confirmTimeout time.Duration
}

// NewDiscord wraps an open session. confirmTimeout bounds how long Confirm
// waits for the requester's reaction; zero means the 30s default.
func NewDiscord(s *discordgo.Session, confirmTimeout time.Duration) *Discord {
	if confirmTimeout <= 0 {
		confirmTimeout = 30 * time.Second
	}
	return &Discord{s: s, confirmTimeout: confirmTimeout}
}

// RecentMessages fetches up to limit messages from a channel, newest-first,
// paging through the history API as needed. Mention tokens are cleaned before
// the messages are returned.
func (d *Discord) RecentMessages(ctx context.Context, channelID string, limit int) ([]Message, error) {
	var out []Message
	before := ""
	for limit > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := limit
		if page > historyPageSize {
			page = historyPageSize
		}
		msgs, err := d.s.ChannelMessages(channelID, page, before, "", "")
		if err != nil {
			return nil, fmt.Errorf("fetch channel history: %w", err)
		}
		for _, m := range msgs {
			out = append(out, toMessage(m))
		}
		if len(msgs) < page {
			break
		}
		before = msgs[len(msgs)-1].ID
		limit -= len(msgs)
	}
	return out, nil
}

// FirstMessage returns the oldest message in a channel. Passing the channel's
// own ID as the "after" cursor works because IDs are snowflakes older than
// any message in the channel.
func (d *Discord) FirstMessage(ctx context.Context, channelID string) (Message, error) {
	if err := ctx.Err(); err != nil {
		return Message{}, err
	}
	msgs, err := d.s.ChannelMessages(channelID, 1, "", channelID, "")
	if err != nil {
		return Message{}, fmt.Errorf("fetch first message: %w", err)
	}
	if len(msgs) == 0 {
		return Message{}, fmt.Errorf("channel %s: %w", channelID, ErrEmptyChannel)
	}
	return toMessage(msgs[0]), nil
}

func toMessage(m *discordgo.Message) Message {
	return Message{
		ID:        m.ID,
		AuthorID:  m.Author.ID,
		AuthorTag: DisplayTag(m.Author),
		Content:   CleanMentions(m.Content, m.Mentions),
		Timestamp: m.Timestamp,
	}
}

// CleanMentions replaces raw user mention tokens (<@id> and <@!id>) with the
// mentioned user's plain username, so the vote parser sees readable names.
func CleanMentions(content string, mentions []*discordgo.User) string {
	for _, u := range mentions {
		content = strings.ReplaceAll(content, "<@"+u.ID+">", u.Username)
		content = strings.ReplaceAll(content, "<@!"+u.ID+">", u.Username)
	}
	return content
}

// DisplayTag renders a user's unique display identity. Legacy accounts keep
// the name#discriminator form; migrated accounts are just the username.
func DisplayTag(u *discordgo.User) string {
	if u.Discriminator != "" && u.Discriminator != "0" {
		return u.Username + "#" + u.Discriminator
	}
	return u.Username
}

// Send posts a plain text message.
func (d *Discord) Send(ctx context.Context, channelID, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := d.s.ChannelMessageSend(channelID, content); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// CreateCategory creates a channel category with the given overwrites and
// returns its ID.
func (d *Discord) CreateCategory(ctx context.Context, guildID, name string, overwrites []Overwrite) (string, error) {
	return d.createChannel(ctx, guildID, name, "", discordgo.ChannelTypeGuildCategory, overwrites)
}

// CreateChannel creates a text channel, optionally under a parent category,
// and returns its ID. Nil overwrites inherit from the category.
func (d *Discord) CreateChannel(ctx context.Context, guildID, name, parentID string, overwrites []Overwrite) (string, error) {
	return d.createChannel(ctx, guildID, name, parentID, discordgo.ChannelTypeGuildText, overwrites)
}

func (d *Discord) createChannel(ctx context.Context, guildID, name, parentID string, kind discordgo.ChannelType, overwrites []Overwrite) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data := discordgo.GuildChannelCreateData{
		Name:                 name,
		Type:                 kind,
		ParentID:             parentID,
		PermissionOverwrites: toOverwrites(overwrites),
	}
	ch, err := d.s.GuildChannelCreateComplex(guildID, data)
	if err != nil {
		return "", fmt.Errorf("create channel %q: %w", name, err)
	}
	return ch.ID, nil
}

func toOverwrites(in []Overwrite) []*discordgo.PermissionOverwrite {
	out := make([]*discordgo.PermissionOverwrite, 0, len(in))
	for _, o := range in {
		kind := discordgo.PermissionOverwriteTypeRole
		if o.Kind == PrincipalMember {
			kind = discordgo.PermissionOverwriteTypeMember
		}
		out = append(out, &discordgo.PermissionOverwrite{
			ID:    o.PrincipalID,
			Type:  kind,
			Allow: o.Allow,
			Deny:  o.Deny,
		})
	}
	return out
}

// Overwrites lists a channel's current permission overwrites.
func (d *Discord) Overwrites(ctx context.Context, channelID string) ([]Overwrite, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ch, err := d.s.Channel(channelID)
	if err != nil {
		return nil, fmt.Errorf("fetch channel: %w", err)
	}
	out := make([]Overwrite, 0, len(ch.PermissionOverwrites))
	for _, o := range ch.PermissionOverwrites {
		kind := PrincipalRole
		if o.Type == discordgo.PermissionOverwriteTypeMember {
			kind = PrincipalMember
		}
		out = append(out, Overwrite{PrincipalID: o.ID, Kind: kind, Allow: o.Allow, Deny: o.Deny})
	}
	return out, nil
}

// DeleteOverwrite removes one principal's permission overwrite from a channel.
func (d *Discord) DeleteOverwrite(ctx context.Context, channelID, principalID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := d.s.ChannelPermissionDelete(channelID, principalID); err != nil {
		return fmt.Errorf("delete overwrite: %w", err)
	}
	return nil
}

// ChannelExists reports whether a channel ID still resolves.
func (d *Discord) ChannelExists(ctx context.Context, channelID string) bool {
	if channelID == "" {
		return false
	}
	if err := ctx.Err(); err != nil {
		return false
	}
	_, err := d.s.Channel(channelID)
	return err == nil
}

// Confirm sends a yes/no prompt and waits for the requester to react. It
// returns false with a nil error on an explicit "no" and ErrConfirmTimeout
// when the wait expires. No game state is mutated before this resolves.
func (d *Discord) Confirm(ctx context.Context, channelID, requesterID, prompt string) (bool, error) {
	msg, err := d.s.ChannelMessageSend(channelID, prompt)
	if err != nil {
		return false, fmt.Errorf("send confirmation prompt: %w", err)
	}
	for _, emoji := range []string{yesEmoji, noEmoji} {
		if err := d.s.MessageReactionAdd(channelID, msg.ID, emoji); err != nil {
			return false, fmt.Errorf("add reaction: %w", err)
		}
	}

	answer := make(chan bool, 1)
	remove := d.s.AddHandler(func(_ *discordgo.Session, r *discordgo.MessageReactionAdd) {
		if r.MessageID != msg.ID || r.UserID != requesterID {
			return
		}
		switch r.Emoji.Name {
		case yesEmoji:
			select {
			case answer <- true:
			default:
			}
		case noEmoji:
			select {
			case answer <- false:
			default:
			}
		}
	})
	defer remove()

	timer := time.NewTimer(d.confirmTimeout)
	defer timer.Stop()
	select {
	case v := <-answer:
		return v, nil
	case <-timer.C:
		return false, ErrConfirmTimeout
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// RoleMembers returns all guild members holding the given role, paging
// through the member list.
func (d *Discord) RoleMembers(ctx context.Context, guildID, roleID string) ([]Member, error) {
	members, err := d.GuildMembers(ctx, guildID)
	if err != nil {
		return nil, err
	}
	out := members[:0]
	for _, m := range members {
		if m.HasRole(roleID) {
			out = append(out, m)
		}
	}
	return out, nil
}

// GuildMembers returns every member of the guild.
func (d *Discord) GuildMembers(ctx context.Context, guildID string) ([]Member, error) {
	var out []Member
	after := ""
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := d.s.GuildMembers(guildID, after, 1000)
		if err != nil {
			return nil, fmt.Errorf("list guild members: %w", err)
		}
		for _, m := range page {
			out = append(out, toMember(m))
		}
		if len(page) < 1000 {
			return out, nil
		}
		after = page[len(page)-1].User.ID
	}
}

func toMember(m *discordgo.Member) Member {
	return Member{
		ID:      m.User.ID,
		Tag:     DisplayTag(m.User),
		Nick:    m.Nick,
		RoleIDs: m.Roles,
	}
}

// AddRole grants a role to a member.
func (d *Discord) AddRole(ctx context.Context, guildID, userID, roleID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.s.GuildMemberRoleAdd(guildID, userID, roleID)
}

// RemoveRole revokes a role from a member. Missing-role removals are treated
// as success by the API, which is what the sign-up flows want.
func (d *Discord) RemoveRole(ctx context.Context, guildID, userID, roleID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.s.GuildMemberRoleRemove(guildID, userID, roleID)
}

// React adds a reaction to a message, logging instead of failing: reactions
// are cosmetic acknowledgements.
func (d *Discord) React(channelID, messageID, emoji string) {
	if err := d.s.MessageReactionAdd(channelID, messageID, emoji); err != nil {
		slog.Debug("reaction failed", slog.Any("err", err), slog.String("channel", channelID))
	}
}
