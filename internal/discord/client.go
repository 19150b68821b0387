// Package discord implements platform.Client on top of a discordgo session and
// dispatches gateway events to the onboarding service.
package discord

import (
	"context"
	"fmt"

	"github.com/Marga-Ghale/ora-onboarding-bot/internal/platform"
	"github.com/bwmarrin/discordgo"
)

// Discord caps guild member listing at 1000 per page.
const memberPageSize = 1000

type Client struct {
	session *discordgo.Session
}

func NewClient(session *discordgo.Session) *Client {
	return &Client{session: session}
}

func (c *Client) SelfID() string {
	if c.session.State == nil || c.session.State.User == nil {
		return ""
	}
	return c.session.State.User.ID
}

func (c *Client) guild(ctx context.Context, guildID string) (*discordgo.Guild, error) {
	if g, err := c.session.State.Guild(guildID); err == nil {
		return g, nil
	}
	g, err := c.session.GuildWithCounts(guildID, discordgo.WithContext(ctx))
	return g, mapError(err)
}

func (c *Client) GetCommunity(ctx context.Context, guildID string) (*platform.Community, error) {
	g, err := c.guild(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("get guild %s: %w", guildID, err)
	}
	return toCommunity(g), nil
}

func (c *Client) roles(ctx context.Context, guildID string) ([]*discordgo.Role, error) {
	roles, err := c.session.GuildRoles(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", mapError(err))
	}
	return roles, nil
}

func (c *Client) GetRole(ctx context.Context, guildID, name string) (*platform.Role, error) {
	roles, err := c.roles(ctx, guildID)
	if err != nil {
		return nil, err
	}
	for _, r := range roles {
		if r.Name == name {
			return &platform.Role{ID: r.ID, Name: r.Name}, nil
		}
	}
	return nil, platform.ErrNotFound
}

func (c *Client) presence(guildID, userID string) discordgo.Status {
	p, err := c.session.State.Presence(guildID, userID)
	if err != nil {
		return discordgo.StatusOffline
	}
	return p.Status
}

func (c *Client) ListMembers(ctx context.Context, guildID string) ([]platform.Member, error) {
	var out []platform.Member
	after := ""
	for {
		page, err := c.session.GuildMembers(guildID, after, memberPageSize, discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("list members: %w", mapError(err))
		}
		for _, m := range page {
			if m.User == nil {
				continue
			}
			out = append(out, toMember(guildID, m, c.presence(guildID, m.User.ID)))
			after = m.User.ID
		}
		if len(page) < memberPageSize {
			return out, nil
		}
	}
}

func (c *Client) RoleMembers(ctx context.Context, guildID, roleID string) ([]platform.Member, error) {
	members, err := c.ListMembers(ctx, guildID)
	if err != nil {
		return nil, err
	}
	var out []platform.Member
	for _, m := range members {
		for _, id := range m.RoleIDs {
			if id == roleID {
				out = append(out, m)
				break
			}
		}
	}
	return out, nil
}

func (c *Client) GetMember(ctx context.Context, guildID, userID string) (*platform.Member, error) {
	m, err := c.session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("get member %s: %w", userID, mapError(err))
	}
	member := toMember(guildID, m, c.presence(guildID, userID))
	return &member, nil
}

func (c *Client) ListChannels(ctx context.Context, guildID string) ([]platform.Channel, error) {
	channels, err := c.session.GuildChannels(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", mapError(err))
	}
	out := make([]platform.Channel, 0, len(channels))
	for _, ch := range channels {
		switch ch.Type {
		case discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildCategory:
			out = append(out, toChannel(ch))
		}
	}
	return out, nil
}

func (c *Client) GetChannel(ctx context.Context, channelID string) (*platform.Channel, error) {
	ch, err := c.session.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("get channel %s: %w", channelID, mapError(err))
	}
	out := toChannel(ch)
	return &out, nil
}

func (c *Client) CreateChannel(ctx context.Context, guildID string, params platform.CreateChannelParams) (*platform.Channel, error) {
	ch, err := c.session.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:                 params.Name,
		Type:                 discordgo.ChannelTypeGuildText,
		Topic:                params.Topic,
		ParentID:             params.ParentID,
		PermissionOverwrites: toOverwrites(params.Overwrites),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("create channel %s: %w", params.Name, mapError(err))
	}
	out := toChannel(ch)
	return &out, nil
}

func (c *Client) DeleteChannel(ctx context.Context, channelID string) error {
	if _, err := c.session.ChannelDelete(channelID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("delete channel %s: %w", channelID, mapError(err))
	}
	return nil
}

func (c *Client) SendMessage(ctx context.Context, channelID string, msg platform.Message) error {
	if _, err := c.session.ChannelMessageSendComplex(channelID, toMessageSend(msg), discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("send message to %s: %w", channelID, mapError(err))
	}
	return nil
}

func (c *Client) RespondInteraction(ctx context.Context, in platform.Interaction, resp platform.InteractionResponse) error {
	raw, ok := in.Raw.(*discordgo.Interaction)
	if !ok {
		return fmt.Errorf("interaction %s has no gateway payload", in.ID)
	}
	data := &discordgo.InteractionResponseData{Content: resp.Content}
	if resp.Ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	err := c.session.InteractionRespond(raw, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("respond to interaction: %w", mapError(err))
	}
	return nil
}

func (c *Client) Permissions(ctx context.Context, guildID, userID string) (platform.Permission, error) {
	g, err := c.guild(ctx, guildID)
	if err != nil {
		return 0, fmt.Errorf("get guild %s: %w", guildID, err)
	}
	roles, err := c.roles(ctx, guildID)
	if err != nil {
		return 0, err
	}
	m, err := c.session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return 0, fmt.Errorf("get member %s: %w", userID, mapError(err))
	}
	return fromDiscordPermissions(memberPermissions(g, roles, m)), nil
}

var _ platform.Client = (*Client)(nil)
