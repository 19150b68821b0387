// Package onboarding drives the lifecycle of a new member's private welcome
// channel: creation on join, the delayed follow-up, member responses and
// cleanup on departure.
package onboarding

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/Marga-Ghale/ora-onboarding-bot/internal/config"
	"github.com/Marga-Ghale/ora-onboarding-bot/internal/notification"
	"github.com/Marga-Ghale/ora-onboarding-bot/internal/platform"
)

var (
	ErrNotOnboardingChannel = errors.New("not an onboarding channel")
	ErrNoOnboardingChannel  = errors.New("member has no onboarding channel")
	ErrEmptyRoleName        = errors.New("helper role name must not be empty")
)

// Outcome is the terminal state of one join-handling attempt.
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeRejoined  Outcome = "rejoined"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
	OutcomeAborted   Outcome = "aborted"
	OutcomeIgnored   Outcome = "ignored"
)

// Settings are the tunables of the lifecycle.
type Settings struct {
	HelperRoleName      string
	WelcomeCategory     string
	RequireCategory     bool
	HardenedPrivacy     bool
	FollowUpDelay       time.Duration
	InitialPromptTTL    time.Duration
	FollowUpPromptTTL   time.Duration
	DuplicateSweepDelay time.Duration
	DeleteGraceDelay    time.Duration
}

// SettingsFromConfig copies the onboarding tunables out of cfg.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		HelperRoleName:      cfg.HelperRoleName,
		WelcomeCategory:     cfg.WelcomeCategory,
		RequireCategory:     cfg.RequireCategory,
		HardenedPrivacy:     cfg.HardenedPrivacy,
		FollowUpDelay:       cfg.FollowUpDelay,
		InitialPromptTTL:    cfg.InitialPromptTTL,
		FollowUpPromptTTL:   cfg.FollowUpPromptTTL,
		DuplicateSweepDelay: cfg.DuplicateSweepDelay,
		DeleteGraceDelay:    cfg.DeleteGraceDelay,
	}
}

// Service is the onboarding core. All entry points are safe to call
// concurrently from gateway event goroutines.
type Service struct {
	client   platform.Client
	registry *Registry
	namer    *Namer
	composer *notification.Composer
	sink     EventSink
	settings Settings

	roleMu     sync.RWMutex
	helperRole string

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithSleep replaces the context-aware sleep used for the fixed delays.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Service) { s.sleep = sleep }
}

func WithEventSink(sink EventSink) Option {
	return func(s *Service) { s.sink = sink }
}

func NewService(client platform.Client, registry *Registry, namer *Namer, composer *notification.Composer, settings Settings, opts ...Option) *Service {
	s := &Service{
		client:     client,
		registry:   registry,
		namer:      namer,
		composer:   composer,
		settings:   settings,
		helperRole: settings.HelperRoleName,
		now:        time.Now,
		sleep:      sleepContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry exposes the shared state, for metrics and status reporting.
func (s *Service) Registry() *Registry {
	return s.registry
}

// HelperRoleName returns the current helper role name.
func (s *Service) HelperRoleName() string {
	s.roleMu.RLock()
	defer s.roleMu.RUnlock()
	return s.helperRole
}

// SetHelperRoleName changes the helper role for every later lifecycle step.
func (s *Service) SetHelperRoleName(name string) error {
	if name == "" {
		return ErrEmptyRoleName
	}
	s.roleMu.Lock()
	s.helperRole = name
	s.roleMu.Unlock()
	log.Printf("[Onboarding] Helper role set to %q", name)
	return nil
}

// Reset clears the join ledger. Called once, when the gateway first becomes ready.
func (s *Service) Reset() {
	s.registry.ResetAll()
	log.Println("[Onboarding] Registry reset")
}

// KeyFor is the lifecycle key of a member.
func KeyFor(m platform.Member) Key {
	return Key{CommunityID: m.CommunityID, MemberID: m.ID}
}

func (s *Service) publish(ctx context.Context, t EventType, key Key, channelID, detail string) {
	if s.sink == nil {
		return
	}
	s.sink.Publish(ctx, Event{
		Type:        t,
		CommunityID: key.CommunityID,
		MemberID:    key.MemberID,
		ChannelID:   channelID,
		Detail:      detail,
		At:          s.now(),
	})
}

func (s *Service) reply(ctx context.Context, in platform.Interaction, content string, ephemeral bool) {
	resp := platform.InteractionResponse{Content: content, Ephemeral: ephemeral}
	if err := s.client.RespondInteraction(ctx, in, resp); err != nil {
		log.Printf("[Onboarding] Failed to respond to interaction %s: %v", in.ID, err)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
