package onboarding

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcknowledgeClosesChannel(t *testing.T) {
	f := newFixture(t)
	ch := f.onboard()

	handled := f.press(ch.ID, f.member.ID, f.promptButton(ch.ID, ActionAcknowledge))

	require.True(t, handled)
	replies := f.client.Replies()
	require.Len(t, replies, 1)
	assert.False(t, replies[0].Response.Ephemeral)
	assert.Empty(t, f.client.Channels(communityID, "welcome-mina-"))
	assert.Equal(t, 0, f.registry.PendingCount(""), "acknowledging cancels the follow-up")
	assert.Equal(t, 1, f.sink.Count(EventAcknowledged))

	f.clock.Advance(49 * time.Hour)
	assert.Equal(t, 0, f.svc.RunFollowUps(f.ctx))
}

func TestEscalateNotifiesHelpers(t *testing.T) {
	f := newFixture(t)
	ch := f.onboard()

	require.True(t, f.press(ch.ID, f.member.ID, f.promptButton(ch.ID, ActionEscalate)))

	replies := f.client.Replies()
	require.Len(t, replies, 1)
	assert.True(t, replies[0].Response.Ephemeral)

	sent := f.client.Sent(ch.ID)
	require.Len(t, sent, 3)
	assert.Contains(t, sent[2].Content, f.role.Mention())
	assert.Contains(t, sent[2].Content, f.member.Mention())
	assert.Len(t, f.client.Channels(communityID, "welcome-mina-"), 1)
	assert.Equal(t, 1, f.registry.PendingCount(""), "escalating keeps the follow-up")
	assert.Equal(t, 1, f.sink.Count(EventEscalated))
}

func TestEscalateWithoutHelperRole(t *testing.T) {
	f := newFixture(t)
	ch := f.onboard()
	require.NoError(t, f.svc.SetHelperRoleName("mentors"))

	require.True(t, f.press(ch.ID, f.member.ID, f.promptButton(ch.ID, ActionEscalate)))

	sent := f.client.Sent(ch.ID)
	require.Len(t, sent, 3)
	assert.NotContains(t, sent[2].Content, "<@&")
	assert.Contains(t, sent[2].Content, "admin")
}

func TestInteractionFromOtherUserIsDenied(t *testing.T) {
	f := newFixture(t)
	ch := f.onboard()

	require.True(t, f.press(ch.ID, f.helper.ID, f.promptButton(ch.ID, ActionAcknowledge)))

	replies := f.client.Replies()
	require.Len(t, replies, 1)
	assert.True(t, replies[0].Response.Ephemeral)
	assert.Len(t, f.client.Channels(communityID, "welcome-mina-"), 1)
	assert.Equal(t, 1, f.registry.PendingCount(""))
	assert.Equal(t, 1, f.sink.Count(EventDenied))
}

func TestInitialPromptExpires(t *testing.T) {
	f := newFixture(t)
	ch := f.onboard()
	ack := f.promptButton(ch.ID, ActionAcknowledge)

	f.clock.Advance(5 * time.Minute)
	require.True(t, f.press(ch.ID, f.member.ID, ack))

	replies := f.client.Replies()
	require.Len(t, replies, 1)
	assert.True(t, replies[0].Response.Ephemeral)
	assert.Len(t, f.client.Channels(communityID, "welcome-mina-"), 1)
}

func TestFollowUpPromptAcknowledge(t *testing.T) {
	f := newFixture(t)
	ch := f.onboard()
	f.clock.Advance(49 * time.Hour)
	require.Equal(t, 1, f.svc.RunFollowUps(f.ctx))

	f.clock.Advance(3 * 24 * time.Hour)
	require.True(t, f.press(ch.ID, f.member.ID, f.promptButton(ch.ID, ActionAcknowledge)))
	assert.Empty(t, f.client.Channels(communityID, "welcome-mina-"))
}

func TestForeignInteractionIsIgnored(t *testing.T) {
	f := newFixture(t)
	ch := f.onboard()

	assert.False(t, f.press(ch.ID, f.member.ID, "poll:vote:1"))
	assert.False(t, f.press(ch.ID, f.member.ID, "onboarding:dance:abc"))
	assert.Empty(t, f.client.Replies())
}
