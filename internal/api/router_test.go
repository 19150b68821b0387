package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Marga-Ghale/ora-onboarding-bot/internal/api/handlers"
	"github.com/Marga-Ghale/ora-onboarding-bot/internal/api/middleware"
	"github.com/Marga-Ghale/ora-onboarding-bot/internal/auth"
	"github.com/Marga-Ghale/ora-onboarding-bot/internal/metrics"
	"github.com/Marga-Ghale/ora-onboarding-bot/internal/notification"
	"github.com/Marga-Ghale/ora-onboarding-bot/internal/onboarding"
	"github.com/Marga-Ghale/ora-onboarding-bot/internal/platform"
	"github.com/Marga-Ghale/ora-onboarding-bot/internal/platform/platformtest"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type routerFixture struct {
	router *gin.Engine
	client *platformtest.Client
	token  string
}

func newRouterFixture(t *testing.T, rps, burst int) *routerFixture {
	t.Helper()

	client := platformtest.New("bot")
	client.AddCommunity("c1", "Test Server")
	client.AddChannel("c1", "welcome", platform.ChannelCategory)
	role := client.AddRole("c1", "helpers")
	client.AddMember(platform.Member{ID: "h1", CommunityID: "c1", Username: "helga", Presence: platform.PresenceOnline, RoleIDs: []string{role.ID}})
	client.AddMember(platform.Member{ID: "m1", CommunityID: "c1", Username: "mina"})
	client.SetPermissions("c1", "bot", platform.PermManageChannels|platform.PermViewChannel)

	registry := onboarding.NewRegistry(5 * time.Minute)
	recorder := metrics.NewRecorder(registry.Stats)
	svc := onboarding.NewService(client, registry, onboarding.NewNamer("welcome", time.UTC), notification.NewComposer(),
		onboarding.Settings{
			HelperRoleName:    "helpers",
			WelcomeCategory:   "welcome",
			FollowUpDelay:     48 * time.Hour,
			InitialPromptTTL:  5 * time.Minute,
			FollowUpPromptTTL: 144 * time.Hour,
		},
		onboarding.WithSleep(func(ctx context.Context, _ time.Duration) error { return ctx.Err() }),
		onboarding.WithEventSink(recorder),
	)

	tokens := auth.NewTokenService("secret")
	token, err := tokens.IssueToken("alice", time.Hour)
	require.NoError(t, err)

	limiter := middleware.NewRateLimiter(rps, burst)
	t.Cleanup(limiter.Shutdown)

	router := NewRouter(RouterDeps{
		Handlers: &handlers.Handlers{
			Admin:  handlers.NewAdminHandler(svc, nil, nil),
			Health: handlers.NewHealthHandler(func() bool { return true }, nil, func() int { return 0 }, registry.Stats),
		},
		Tokens:  tokens,
		Limiter: limiter,
		Metrics: recorder.Handler(),
	})
	return &routerFixture{router: router, client: client, token: token}
}

func (f *routerFixture) do(method, path string, authed bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if authed {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestHealthIsPublic(t *testing.T) {
	f := newRouterFixture(t, 10, 10)
	w := f.do(http.MethodGet, "/health", false)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"gateway":"connected"`)
}

func TestAdminRequiresToken(t *testing.T) {
	f := newRouterFixture(t, 10, 10)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/api/admin/communities/c1/status", false).Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/admin/communities/c1/status", true).Code)
}

func TestOnboardThroughAdminAPI(t *testing.T) {
	f := newRouterFixture(t, 10, 10)

	w := f.do(http.MethodPost, "/api/admin/communities/c1/members/m1/onboard", true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"memberId":"m1","outcome":"created"}`, w.Body.String())
	require.Len(t, f.client.Channels("c1", "welcome-mina-"), 1)

	w = f.do(http.MethodGet, "/api/admin/communities/c1/follow-ups", true)
	var pending []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pending))
	require.Len(t, pending, 1)
	assert.Equal(t, "m1", pending[0]["memberId"])

	w = f.do(http.MethodPost, "/api/admin/communities/c1/members/ghost/onboard", true)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(http.MethodGet, "/metrics", false)
	assert.Contains(t, w.Body.String(), `onboarding_events_total{type="onboarded"} 1`)
}

func TestAdminIsRateLimited(t *testing.T) {
	f := newRouterFixture(t, 1, 1)

	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/admin/helper-role", true).Code)
	w := f.do(http.MethodGet, "/api/admin/helper-role", true)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}
