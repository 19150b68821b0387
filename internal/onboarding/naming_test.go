package onboarding

import (
	"testing"
	"time"

	"github.com/Marga-Ghale/ora-onboarding-bot/internal/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	cases := map[string]string{
		"Mina":            "mina",
		"  John  Smith  ": "john-smith",
		"Zoë!!":           "zoë",
		"dash--name":      "dash-name",
		"under_score":     "under_score",
		"Trailing -":      "trailing",
		"🎉":               "",
	}
	for in, want := range cases {
		assert.Equal(t, want, sanitize(in), in)
	}
}

func TestChannelNameUsesLocalDate(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	n := NewNamer("welcome", tokyo)
	m := platform.Member{ID: "1", Username: "john", DisplayName: "John Smith"}

	// 20:00 UTC on March 9 is already March 10 in Tokyo.
	got := n.ChannelName(m, time.Date(2026, 3, 9, 20, 0, 0, 0, time.UTC))
	assert.Equal(t, "welcome-john-smith-0310", got)

	m.DisplayName = ""
	assert.Equal(t, "welcome-john-0310", n.ChannelName(m, time.Date(2026, 3, 9, 20, 0, 0, 0, time.UTC)))
}

func TestMatchesMember(t *testing.T) {
	n := NewNamer("welcome", time.UTC)
	mina := platform.Member{DisplayName: "Mina"}

	assert.True(t, n.MatchesMember("welcome-mina-0310", mina))
	assert.True(t, n.MatchesMember("welcome-mina-1231", mina))
	assert.False(t, n.MatchesMember("welcome-mina-k-0310", mina))
	assert.False(t, n.MatchesMember("welcome-mina-031", mina))
	assert.False(t, n.MatchesMember("welcome-mina-03a0", mina))
	assert.False(t, n.MatchesMember("general", mina))

	assert.True(t, n.IsOnboardingChannel("welcome-anyone-0101"))
	assert.False(t, n.IsOnboardingChannel("welcomers"))
}

func TestFindExistingOrdersExactMatchFirst(t *testing.T) {
	f := newFixture(t)
	stale := f.client.AddChannel(communityID, "welcome-mina-0301", platform.ChannelText)
	exact := f.client.AddChannel(communityID, "welcome-mina-0310", platform.ChannelText)
	f.client.AddChannel(communityID, "welcome-mina-0302", platform.ChannelCategory)
	f.client.AddChannel(communityID, "welcome-minaret-0310", platform.ChannelText)

	got, err := NewNamer("welcome", time.UTC).FindExisting(f.ctx, f.client, f.member, t0)

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, exact.ID, got[0].ID)
	assert.Equal(t, stale.ID, got[1].ID)
}

func TestParseCustomID(t *testing.T) {
	p := newPrompt(PromptInitial, Key{CommunityID: "c", MemberID: "m"}, "ch", t0, time.Minute)

	action, id, ok := ParseCustomID(p.CustomID(ActionEscalate))
	require.True(t, ok)
	assert.Equal(t, ActionEscalate, action)
	assert.Equal(t, p.ID, id)

	for _, bad := range []string{"", "onboarding", "onboarding:ack:", "other:ack:1", "onboarding:close:1"} {
		_, _, ok := ParseCustomID(bad)
		assert.False(t, ok, bad)
	}
}

func TestPromptExpiry(t *testing.T) {
	p := newPrompt(PromptFollowUp, Key{}, "ch", t0, 6*24*time.Hour)

	assert.False(t, p.Expired(t0.Add(6*24*time.Hour-time.Second)))
	assert.True(t, p.Expired(t0.Add(6*24*time.Hour)))

	buttons := p.Buttons()
	require.Len(t, buttons.Buttons, 2)
	assert.Equal(t, platform.ButtonSuccess, buttons.Buttons[0].Style)
	assert.Equal(t, platform.ButtonDanger, buttons.Buttons[1].Style)
}

func TestChannelNameNeverEmptyForSymbolNames(t *testing.T) {
	n := NewNamer("welcome", time.UTC)

	fire := platform.Member{ID: "a1", Username: "🔥", DisplayName: "🔥🔥"}
	drop := platform.Member{ID: "b2", Username: "💧", DisplayName: "💧"}
	named := platform.Member{ID: "c3", Username: "star_gazer", DisplayName: "★"}

	assert.Equal(t, "welcome-member-a1-0310", n.ChannelName(fire, t0))
	assert.Equal(t, "welcome-member-b2-0310", n.ChannelName(drop, t0))
	assert.Equal(t, "welcome-star_gazer-0310", n.ChannelName(named, t0))
	assert.False(t, n.MatchesMember(n.ChannelName(fire, t0), drop))
}

func TestSymbolNamedMembersKeepSeparateChannels(t *testing.T) {
	f := newFixture(t)
	fire := platform.Member{ID: "a1", CommunityID: communityID, Username: "🔥", DisplayName: "🔥🔥"}
	drop := platform.Member{ID: "b2", CommunityID: communityID, Username: "💧", DisplayName: "💧"}
	f.client.AddMember(fire)
	f.client.AddMember(drop)

	assert.Equal(t, OutcomeCreated, f.svc.HandleJoin(f.ctx, fire))
	assert.Equal(t, OutcomeCreated, f.svc.HandleJoin(f.ctx, drop))
	require.Len(t, f.client.Channels(communityID, "welcome-member-"), 2)

	assert.Equal(t, 1, f.svc.HandleLeave(f.ctx, drop))
	remaining := f.client.Channels(communityID, "welcome-member-")
	require.Len(t, remaining, 1)
	assert.Equal(t, "welcome-member-a1-0310", remaining[0].Name)

	pending, ok := f.registry.Pending(KeyFor(fire))
	require.True(t, ok)
	assert.Equal(t, remaining[0].ID, pending.ChannelID)
}
