package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/Marga-Ghale/ora-onboarding-bot/internal/commands"
	"github.com/Marga-Ghale/ora-onboarding-bot/internal/onboarding"
	"github.com/Marga-Ghale/ora-onboarding-bot/internal/platform"
	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermissionRoundTrip(t *testing.T) {
	p := platform.PermViewChannel | platform.PermManageChannels
	bits := toDiscordPermissions(p)
	assert.Equal(t, int64(discordgo.PermissionViewChannel|discordgo.PermissionManageChannels), bits)
	assert.Equal(t, p, fromDiscordPermissions(bits))
}

func TestMemberPermissions(t *testing.T) {
	guild := &discordgo.Guild{ID: "g1", OwnerID: "owner"}
	roles := []*discordgo.Role{
		{ID: "g1", Permissions: discordgo.PermissionViewChannel},
		{ID: "mods", Permissions: discordgo.PermissionManageChannels},
		{ID: "admins", Permissions: discordgo.PermissionAdministrator},
	}

	cases := []struct {
		name   string
		member *discordgo.Member
		want   platform.Permission
	}{
		{"everyone only", &discordgo.Member{User: &discordgo.User{ID: "u"}}, platform.PermViewChannel},
		{"moderator", &discordgo.Member{User: &discordgo.User{ID: "u"}, Roles: []string{"mods"}}, platform.PermViewChannel | platform.PermManageChannels},
		{"owner", &discordgo.Member{User: &discordgo.User{ID: "owner"}}, platform.PermViewChannel | platform.PermSendMessages | platform.PermManageChannels | platform.PermAdministrator},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, fromDiscordPermissions(memberPermissions(guild, roles, tc.member)))
		})
	}

	admin := fromDiscordPermissions(memberPermissions(guild, roles, &discordgo.Member{User: &discordgo.User{ID: "u"}, Roles: []string{"admins"}}))
	assert.True(t, admin.Has(platform.PermManageChannels))
}

func TestToOverwrites(t *testing.T) {
	out := toOverwrites([]platform.Overwrite{
		{ID: "g1", Target: platform.TargetRole, Deny: platform.PermViewChannel},
		{ID: "u1", Target: platform.TargetMember, Allow: platform.PermViewChannel | platform.PermSendMessages},
	})
	require.Len(t, out, 2)
	assert.Equal(t, discordgo.PermissionOverwriteTypeRole, out[0].Type)
	assert.Equal(t, int64(discordgo.PermissionViewChannel), out[0].Deny)
	assert.Equal(t, discordgo.PermissionOverwriteTypeMember, out[1].Type)
	assert.Equal(t, int64(discordgo.PermissionViewChannel|discordgo.PermissionSendMessages), out[1].Allow)
}

func TestToMember(t *testing.T) {
	m := toMember("g1", &discordgo.Member{
		User:  &discordgo.User{ID: "u1", Username: "mina_k", GlobalName: "Mina"},
		Nick:  "Mina (new)",
		Roles: []string{"r1"},
	}, discordgo.StatusIdle)

	assert.Equal(t, "u1", m.ID)
	assert.Equal(t, "g1", m.CommunityID)
	assert.Equal(t, "Mina (new)", m.DisplayName)
	assert.Equal(t, platform.PresenceOnline, m.Presence)
	assert.Equal(t, []string{"r1"}, m.RoleIDs)

	plain := toMember("g1", &discordgo.Member{User: &discordgo.User{ID: "u2", Username: "bob", Bot: true}}, discordgo.StatusOffline)
	assert.Equal(t, "bob", plain.DisplayName)
	assert.True(t, plain.Bot)
	assert.False(t, plain.Online())
}

func TestToChannelUsesSnowflakeTime(t *testing.T) {
	ch := toChannel(&discordgo.Channel{ID: "175928847299117063", GuildID: "g1", Name: "welcome", Type: discordgo.ChannelTypeGuildCategory})
	assert.Equal(t, platform.ChannelCategory, ch.Kind)
	assert.Equal(t, 2016, ch.CreatedAt.Year())
}

func TestToMessageSend(t *testing.T) {
	msg := toMessageSend(platform.Message{
		Content: "hi",
		Embed:   &platform.Embed{Title: "Welcome", Fields: []platform.EmbedField{{Name: "a", Value: "b"}}, FooterText: "f"},
		Prompt: &platform.Prompt{Buttons: []platform.Button{
			{CustomID: "onboarding:ack:1", Label: "All good", Style: platform.ButtonSuccess},
			{CustomID: "onboarding:escalate:1", Label: "Help", Style: platform.ButtonDanger},
		}},
	})

	assert.Equal(t, "hi", msg.Content)
	require.Len(t, msg.Embeds, 1)
	assert.Equal(t, "f", msg.Embeds[0].Footer.Text)
	assert.Nil(t, msg.Embeds[0].Thumbnail)
	require.Len(t, msg.Components, 1)
	row := msg.Components[0].(discordgo.ActionsRow)
	require.Len(t, row.Components, 2)
	assert.Equal(t, discordgo.SuccessButton, row.Components[0].(discordgo.Button).Style)
	assert.Equal(t, "onboarding:escalate:1", row.Components[1].(discordgo.Button).CustomID)

	assert.Empty(t, toMessageSend(platform.Message{Content: "x"}).Components)
}

func TestMapError(t *testing.T) {
	notFound := &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusNotFound}}
	forbidden := &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusForbidden}}

	assert.ErrorIs(t, mapError(fmt.Errorf("wrapped: %w", notFound)), platform.ErrNotFound)
	assert.ErrorIs(t, mapError(discordgo.ErrStateNotFound), platform.ErrNotFound)
	assert.NotErrorIs(t, mapError(forbidden), platform.ErrNotFound)
	assert.NoError(t, mapError(nil))
}

type fakeLifecycle struct {
	mu      sync.Mutex
	resets  int
	joins   []platform.Member
	leaves  []platform.Member
	presses []platform.Interaction
}

func (f *fakeLifecycle) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
}

func (f *fakeLifecycle) HandleJoin(_ context.Context, m platform.Member) onboarding.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joins = append(f.joins, m)
	return onboarding.OutcomeCreated
}

func (f *fakeLifecycle) HandleLeave(_ context.Context, m platform.Member) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leaves = append(f.leaves, m)
	return 0
}

func (f *fakeLifecycle) HandleInteraction(_ context.Context, in platform.Interaction) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.presses = append(f.presses, in)
	return true
}

type fakeCommands struct{ got []commands.Message }

func (f *fakeCommands) Handle(_ context.Context, msg commands.Message) bool {
	f.got = append(f.got, msg)
	return true
}

func newTestGateway(t *testing.T) (*Gateway, *fakeLifecycle, *fakeCommands) {
	t.Helper()
	session, err := NewSession("test-token")
	require.NoError(t, err)
	life := &fakeLifecycle{}
	cmds := &fakeCommands{}
	return NewGateway(session, life, cmds), life, cmds
}

func TestGatewayDispatch(t *testing.T) {
	g, life, cmds := newTestGateway(t)
	s := g.session
	user := &discordgo.User{ID: "u1", Username: "mina"}

	g.onReady(s, &discordgo.Ready{User: &discordgo.User{Username: "bot"}})
	assert.Equal(t, 1, life.resets)
	assert.True(t, g.Connected())

	g.onMemberAdd(s, &discordgo.GuildMemberAdd{Member: &discordgo.Member{GuildID: "g1", User: user}})
	g.onMemberAdd(s, &discordgo.GuildMemberAdd{})
	require.Len(t, life.joins, 1)
	assert.Equal(t, "u1", life.joins[0].ID)
	assert.Equal(t, platform.PresenceOffline, life.joins[0].Presence)

	g.onMemberRemove(s, &discordgo.GuildMemberRemove{Member: &discordgo.Member{GuildID: "g1", User: user}})
	require.Len(t, life.leaves, 1)

	g.onMessage(s, &discordgo.MessageCreate{Message: &discordgo.Message{GuildID: "g1", ChannelID: "c1", Content: "!status", Author: user}})
	require.Len(t, cmds.got, 1)
	assert.Equal(t, "!status", cmds.got[0].Content)

	g.onDisconnect(s, &discordgo.Disconnect{})
	assert.False(t, g.Connected())
}

func TestGatewayResetsOnFirstReadyOnly(t *testing.T) {
	g, life, _ := newTestGateway(t)
	ready := &discordgo.Ready{User: &discordgo.User{Username: "bot"}}

	g.onReady(g.session, ready)
	g.onDisconnect(g.session, &discordgo.Disconnect{})
	g.onReady(g.session, ready)

	assert.Equal(t, 1, life.resets)
	assert.True(t, g.Connected())
}

func TestGatewayIgnoresNonButtonInteractions(t *testing.T) {
	g, life, _ := newTestGateway(t)

	g.onInteraction(g.session, &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type:    discordgo.InteractionApplicationCommand,
		GuildID: "g1",
		Member:  &discordgo.Member{User: &discordgo.User{ID: "u1"}},
	}})
	g.onInteraction(g.session, &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type: discordgo.InteractionMessageComponent,
		User: &discordgo.User{ID: "u1"},
	}})
	assert.Empty(t, life.presses)
}

func TestRespondInteractionNeedsGatewayPayload(t *testing.T) {
	session, err := NewSession("test-token")
	require.NoError(t, err)
	err = NewClient(session).RespondInteraction(context.Background(), platform.Interaction{ID: "i1"}, platform.InteractionResponse{Content: "x"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, platform.ErrNotFound))
}
