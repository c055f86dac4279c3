// Package platform wraps the chat platform behind small data types and a
// Discord-backed client. The vote/game core never talks to the platform SDK
// directly; it consumes these types through interfaces it defines itself.
package platform

import (
	"errors"
	"time"

	"github.com/bwmarrin/discordgo"
)

// ErrConfirmTimeout reports that a yes/no confirmation prompt expired before
// the requester reacted. It is distinct from an explicit "no".
var ErrConfirmTimeout = errors.New("confirmation timed out")

// ErrEmptyChannel reports that a channel has no messages to inspect.
var ErrEmptyChannel = errors.New("channel is empty")

// Message is one channel message with mention tokens already replaced by
// plain display names.
type Message struct {
	ID        string
	AuthorID  string
	AuthorTag string
	Content   string
	Timestamp time.Time
}

// Member is a guild member with their role set.
type Member struct {
	ID      string
	Tag     string
	Nick    string
	RoleIDs []string
}

// HasRole reports whether the member holds the given role.
func (m Member) HasRole(roleID string) bool {
	for _, id := range m.RoleIDs {
		if id == roleID {
			return true
		}
	}
	return false
}

// PrincipalKind distinguishes role and member permission overwrites.
type PrincipalKind int

const (
	PrincipalRole PrincipalKind = iota
	PrincipalMember
)

// Overwrite is a channel permission overwrite for one principal.
type Overwrite struct {
	PrincipalID string
	Kind        PrincipalKind
	Allow       int64
	Deny        int64
}

// Permission bits, aliased from the SDK so callers outside this package
// don't import it just for constants. Typed int64 to match Overwrite's
// Allow/Deny fields, so combined masks infer the right type.
const (
	PermView         int64 = discordgo.PermissionViewChannel
	PermSend         int64 = discordgo.PermissionSendMessages
	PermAddReactions int64 = discordgo.PermissionAddReactions
	PermEmbedLinks   int64 = discordgo.PermissionEmbedLinks
	PermHistory      int64 = discordgo.PermissionReadMessageHistory
	PermAttachFiles  int64 = discordgo.PermissionAttachFiles
)
