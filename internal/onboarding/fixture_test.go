package onboarding

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Marga-Ghale/ora-onboarding-bot/internal/notification"
	"github.com/Marga-Ghale/ora-onboarding-bot/internal/platform"
	"github.com/Marga-Ghale/ora-onboarding-bot/internal/platform/platformtest"
	"github.com/stretchr/testify/require"
)

const (
	communityID = "c1"
	botID       = "bot"
)

var t0 = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingSink) Publish(_ context.Context, e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingSink) Types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

func (r *recordingSink) Count(t EventType) int {
	n := 0
	for _, got := range r.Types() {
		if got == t {
			n++
		}
	}
	return n
}

type fixture struct {
	t        *testing.T
	ctx      context.Context
	client   *platformtest.Client
	registry *Registry
	svc      *Service
	clock    *fakeClock
	sink     *recordingSink
	role     platform.Role
	category platform.Channel
	member   platform.Member
	helper   platform.Member
}

func defaultSettings() Settings {
	return Settings{
		HelperRoleName:    "helpers",
		WelcomeCategory:   "welcome",
		FollowUpDelay:     48 * time.Hour,
		InitialPromptTTL:  5 * time.Minute,
		FollowUpPromptTTL: 6 * 24 * time.Hour,
	}
}

// newFixture builds a community with a welcome category, a helper role held by
// two humans and one bot, and a newcomer named Mina who has not joined yet.
func newFixture(t *testing.T, mutate ...func(*Settings)) *fixture {
	t.Helper()

	settings := defaultSettings()
	for _, m := range mutate {
		m(&settings)
	}

	client := platformtest.New(botID)
	client.AddCommunity(communityID, "Test Server")
	category := client.AddChannel(communityID, "welcome", platform.ChannelCategory)
	role := client.AddRole(communityID, "helpers")

	helper := platform.Member{ID: "h1", CommunityID: communityID, Username: "helga", Presence: platform.PresenceOnline, RoleIDs: []string{role.ID}}
	client.AddMember(helper)
	client.AddMember(platform.Member{ID: "h2", CommunityID: communityID, Username: "hank", Presence: platform.PresenceOffline, RoleIDs: []string{role.ID}})
	client.AddMember(platform.Member{ID: "helperbot", CommunityID: communityID, Username: "helperbot", Bot: true, RoleIDs: []string{role.ID}})

	member := platform.Member{ID: "m1", CommunityID: communityID, Username: "mina_k", DisplayName: "Mina"}
	client.AddMember(member)
	client.SetPermissions(communityID, botID, platform.PermManageChannels|platform.PermViewChannel)

	clock := &fakeClock{now: t0}
	sink := &recordingSink{}
	registry := NewRegistry(5 * time.Minute)
	svc := NewService(client, registry, NewNamer("welcome", time.UTC), notification.NewComposer(), settings,
		WithClock(clock.Now),
		WithSleep(func(ctx context.Context, _ time.Duration) error { return ctx.Err() }),
		WithEventSink(sink),
	)

	return &fixture{
		t:        t,
		ctx:      context.Background(),
		client:   client,
		registry: registry,
		svc:      svc,
		clock:    clock,
		sink:     sink,
		role:     role,
		category: category,
		member:   member,
		helper:   helper,
	}
}

// onboard joins the newcomer and returns the created channel.
func (f *fixture) onboard() platform.Channel {
	f.t.Helper()
	require.Equal(f.t, OutcomeCreated, f.svc.HandleJoin(f.ctx, f.member))
	channels := f.client.Channels(communityID, "welcome-mina-")
	require.Len(f.t, channels, 1)
	return channels[0]
}

// promptButton returns the custom id of action on the latest prompt sent to channelID.
func (f *fixture) promptButton(channelID string, action Action) string {
	f.t.Helper()
	sent := f.client.Sent(channelID)
	for i := len(sent) - 1; i >= 0; i-- {
		if sent[i].Prompt == nil {
			continue
		}
		for _, b := range sent[i].Prompt.Buttons {
			if a, _, ok := ParseCustomID(b.CustomID); ok && a == action {
				return b.CustomID
			}
		}
	}
	f.t.Fatalf("no %s button in channel %s", action, channelID)
	return ""
}

func (f *fixture) press(channelID, userID, customID string) bool {
	return f.svc.HandleInteraction(f.ctx, platform.Interaction{
		ID:          "i-" + userID,
		CommunityID: communityID,
		ChannelID:   channelID,
		UserID:      userID,
		CustomID:    customID,
	})
}
