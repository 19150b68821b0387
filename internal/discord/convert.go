package discord

import (
	"errors"
	"net/http"
	"time"

	"github.com/Marga-Ghale/ora-onboarding-bot/internal/platform"
	"github.com/bwmarrin/discordgo"
)

var permissionBits = []struct {
	ours   platform.Permission
	theirs int64
}{
	{platform.PermViewChannel, discordgo.PermissionViewChannel},
	{platform.PermSendMessages, discordgo.PermissionSendMessages},
	{platform.PermManageChannels, discordgo.PermissionManageChannels},
	{platform.PermAdministrator, discordgo.PermissionAdministrator},
}

func toDiscordPermissions(p platform.Permission) int64 {
	var out int64
	for _, b := range permissionBits {
		if p&b.ours != 0 {
			out |= b.theirs
		}
	}
	return out
}

func fromDiscordPermissions(p int64) platform.Permission {
	var out platform.Permission
	for _, b := range permissionBits {
		if p&b.theirs != 0 {
			out |= b.ours
		}
	}
	return out
}

// memberPermissions folds the @everyone role and the member's roles into one
// community-level permission set. The owner holds everything.
func memberPermissions(guild *discordgo.Guild, roles []*discordgo.Role, member *discordgo.Member) int64 {
	if member.User != nil && member.User.ID == guild.OwnerID {
		return discordgo.PermissionAll
	}

	held := make(map[string]bool, len(member.Roles)+1)
	held[guild.ID] = true
	for _, id := range member.Roles {
		held[id] = true
	}

	var perms int64
	for _, r := range roles {
		if held[r.ID] {
			perms |= r.Permissions
		}
	}
	if perms&discordgo.PermissionAdministrator != 0 {
		return discordgo.PermissionAll
	}
	return perms
}

func toOverwrites(in []platform.Overwrite) []*discordgo.PermissionOverwrite {
	out := make([]*discordgo.PermissionOverwrite, 0, len(in))
	for _, o := range in {
		kind := discordgo.PermissionOverwriteTypeRole
		if o.Target == platform.TargetMember {
			kind = discordgo.PermissionOverwriteTypeMember
		}
		out = append(out, &discordgo.PermissionOverwrite{
			ID:    o.ID,
			Type:  kind,
			Allow: toDiscordPermissions(o.Allow),
			Deny:  toDiscordPermissions(o.Deny),
		})
	}
	return out
}

func toCommunity(g *discordgo.Guild) *platform.Community {
	count := g.MemberCount
	if count == 0 {
		count = g.ApproximateMemberCount
	}
	return &platform.Community{
		ID:            g.ID,
		Name:          g.Name,
		IconURL:       g.IconURL("256"),
		MemberCount:   count,
		DefaultRoleID: g.ID,
	}
}

func toMember(guildID string, m *discordgo.Member, presence discordgo.Status) platform.Member {
	out := platform.Member{
		CommunityID: guildID,
		RoleIDs:     append([]string(nil), m.Roles...),
		Presence:    platform.PresenceOffline,
	}
	if m.User != nil {
		out.ID = m.User.ID
		out.Username = m.User.Username
		out.Bot = m.User.Bot
		out.AvatarURL = m.User.AvatarURL("256")
		out.DisplayName = m.User.GlobalName
	}
	if m.Nick != "" {
		out.DisplayName = m.Nick
	}
	if out.DisplayName == "" {
		out.DisplayName = out.Username
	}
	switch presence {
	case discordgo.StatusOnline, discordgo.StatusIdle, discordgo.StatusDoNotDisturb:
		out.Presence = platform.PresenceOnline
	}
	return out
}

func toChannel(c *discordgo.Channel) platform.Channel {
	kind := platform.ChannelText
	if c.Type == discordgo.ChannelTypeGuildCategory {
		kind = platform.ChannelCategory
	}
	created, err := discordgo.SnowflakeTimestamp(c.ID)
	if err != nil {
		created = time.Time{}
	}
	return platform.Channel{
		ID:          c.ID,
		CommunityID: c.GuildID,
		Name:        c.Name,
		Kind:        kind,
		ParentID:    c.ParentID,
		Topic:       c.Topic,
		CreatedAt:   created,
	}
}

func toEmbed(e *platform.Embed) *discordgo.MessageEmbed {
	out := &discordgo.MessageEmbed{
		Title:       e.Title,
		Description: e.Description,
		Color:       e.Color,
	}
	for _, f := range e.Fields {
		out.Fields = append(out.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	if e.ThumbnailURL != "" {
		out.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: e.ThumbnailURL}
	}
	if e.FooterText != "" {
		out.Footer = &discordgo.MessageEmbedFooter{Text: e.FooterText, IconURL: e.FooterIconURL}
	}
	if !e.Timestamp.IsZero() {
		out.Timestamp = e.Timestamp.Format(time.RFC3339)
	}
	return out
}

var buttonStyles = map[platform.ButtonStyle]discordgo.ButtonStyle{
	platform.ButtonPrimary: discordgo.PrimaryButton,
	platform.ButtonSuccess: discordgo.SuccessButton,
	platform.ButtonDanger:  discordgo.DangerButton,
}

func toMessageSend(msg platform.Message) *discordgo.MessageSend {
	out := &discordgo.MessageSend{Content: msg.Content}
	if msg.Embed != nil {
		out.Embeds = []*discordgo.MessageEmbed{toEmbed(msg.Embed)}
	}
	if msg.Prompt != nil && len(msg.Prompt.Buttons) > 0 {
		row := discordgo.ActionsRow{}
		for _, b := range msg.Prompt.Buttons {
			style, ok := buttonStyles[b.Style]
			if !ok {
				style = discordgo.SecondaryButton
			}
			row.Components = append(row.Components, discordgo.Button{Label: b.Label, Style: style, CustomID: b.CustomID})
		}
		out.Components = []discordgo.MessageComponent{row}
	}
	return out
}

// toInteraction returns false for anything other than a button press inside a guild.
func toInteraction(i *discordgo.Interaction) (platform.Interaction, bool) {
	if i.Type != discordgo.InteractionMessageComponent || i.GuildID == "" || i.Member == nil || i.Member.User == nil {
		return platform.Interaction{}, false
	}
	return platform.Interaction{
		ID:          i.ID,
		CommunityID: i.GuildID,
		ChannelID:   i.ChannelID,
		UserID:      i.Member.User.ID,
		CustomID:    i.MessageComponentData().CustomID,
		Raw:         i,
	}, true
}

// mapError turns REST 404s and state misses into platform.ErrNotFound.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, discordgo.ErrStateNotFound) {
		return platform.ErrNotFound
	}
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Response != nil && rest.Response.StatusCode == http.StatusNotFound {
		return errors.Join(platform.ErrNotFound, err)
	}
	return err
}
