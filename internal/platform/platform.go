// Package platform describes the chat-platform capability the onboarding bot
// consumes. The discord package implements it against the real gateway and
// platformtest implements it in memory.
package platform

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a community, role, member or channel does not exist.
var ErrNotFound = errors.New("platform: not found")

// Permission is a bitset of channel/community permissions.
type Permission int64

const (
	PermViewChannel Permission = 1 << iota
	PermSendMessages
	PermManageChannels
	PermAdministrator
)

// Has reports whether p contains every bit of want. Administrator implies everything.
func (p Permission) Has(want Permission) bool {
	if p&PermAdministrator != 0 {
		return true
	}
	return p&want == want
}

// Presence is a member's online status.
type Presence string

const (
	PresenceOnline  Presence = "online"
	PresenceOffline Presence = "offline"
)

type ChannelKind string

const (
	ChannelText     ChannelKind = "text"
	ChannelCategory ChannelKind = "category"
)

type OverwriteTarget string

const (
	TargetRole   OverwriteTarget = "role"
	TargetMember OverwriteTarget = "member"
)

type Community struct {
	ID          string
	Name        string
	IconURL     string
	MemberCount int
	// DefaultRoleID is the role every member implicitly holds.
	DefaultRoleID string
}

type Member struct {
	ID          string
	CommunityID string
	Username    string
	DisplayName string
	Bot         bool
	Presence    Presence
	AvatarURL   string
	RoleIDs     []string
}

// Mention renders the platform mention markup for the member.
func (m Member) Mention() string {
	return "<@" + m.ID + ">"
}

// Online reports whether the member is anything other than offline.
func (m Member) Online() bool {
	return m.Presence != "" && m.Presence != PresenceOffline
}

type Role struct {
	ID   string
	Name string
}

func (r Role) Mention() string {
	return "<@&" + r.ID + ">"
}

type Channel struct {
	ID          string
	CommunityID string
	Name        string
	Kind        ChannelKind
	ParentID    string
	Topic       string
	CreatedAt   time.Time
}

type Overwrite struct {
	ID     string
	Target OverwriteTarget
	Allow  Permission
	Deny   Permission
}

type CreateChannelParams struct {
	Name       string
	Topic      string
	ParentID   string
	Overwrites []Overwrite
}

type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

type Embed struct {
	Title         string
	Description   string
	Color         int
	Fields        []EmbedField
	ThumbnailURL  string
	FooterText    string
	FooterIconURL string
	Timestamp     time.Time
}

type ButtonStyle string

const (
	ButtonPrimary ButtonStyle = "primary"
	ButtonSuccess ButtonStyle = "success"
	ButtonDanger  ButtonStyle = "danger"
)

type Button struct {
	CustomID string
	Label    string
	Style    ButtonStyle
}

// Prompt is a row of interactive buttons attached to a message.
type Prompt struct {
	Buttons []Button
}

type Message struct {
	Content string
	Embed   *Embed
	Prompt  *Prompt
}

// Interaction is a member pressing a button on a prompt.
type Interaction struct {
	ID          string
	CommunityID string
	ChannelID   string
	UserID      string
	CustomID    string
	// Raw carries the adapter's native interaction so it can respond to it.
	Raw any
}

type InteractionResponse struct {
	Content   string
	Ephemeral bool
}

// Client is the chat-platform capability. Implementations must be safe for
// concurrent use; every call is a potential suspension point.
type Client interface {
	SelfID() string
	GetCommunity(ctx context.Context, communityID string) (*Community, error)
	GetRole(ctx context.Context, communityID, name string) (*Role, error)
	RoleMembers(ctx context.Context, communityID, roleID string) ([]Member, error)
	ListMembers(ctx context.Context, communityID string) ([]Member, error)
	GetMember(ctx context.Context, communityID, memberID string) (*Member, error)
	ListChannels(ctx context.Context, communityID string) ([]Channel, error)
	GetChannel(ctx context.Context, channelID string) (*Channel, error)
	CreateChannel(ctx context.Context, communityID string, params CreateChannelParams) (*Channel, error)
	DeleteChannel(ctx context.Context, channelID string) error
	SendMessage(ctx context.Context, channelID string, msg Message) error
	RespondInteraction(ctx context.Context, in Interaction, resp InteractionResponse) error
	Permissions(ctx context.Context, communityID, memberID string) (Permission, error)
}
