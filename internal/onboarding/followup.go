package onboarding

import (
	"context"
	"fmt"
	"log"
	"time"
)

// RunFollowUps fires every follow-up that is due and returns how many were
// delivered. Due entries leave the registry before any platform call, so a
// concurrent or repeated sweep never fires them twice.
func (s *Service) RunFollowUps(ctx context.Context) int {
	now := s.now()
	due := s.registry.TakeDue(now)
	if len(due) == 0 {
		return 0
	}
	log.Printf("[FollowUp] %d follow-up(s) due", len(due))

	fired := 0
	for _, f := range due {
		if s.fireIsolated(ctx, f, now) {
			fired++
		}
	}
	return fired
}

func (s *Service) fireIsolated(ctx context.Context, f PendingFollowUp, now time.Time) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[FollowUp] ❌ Panic firing follow-up for %s: %v", f.Key, r)
			ok = false
		}
	}()

	if err := s.fire(ctx, f, now); err != nil {
		log.Printf("[FollowUp] Dropped follow-up for %s: %v", f.Key, err)
		s.publish(ctx, EventFollowUpDropped, f.Key, f.ChannelID, err.Error())
		return false
	}
	return true
}

// fire sends the follow-up check with a fresh long-lived prompt.
func (s *Service) fire(ctx context.Context, f PendingFollowUp, now time.Time) error {
	ch, err := s.client.GetChannel(ctx, f.ChannelID)
	if err != nil {
		return fmt.Errorf("resolve channel %s: %w", f.ChannelID, err)
	}
	member, err := s.client.GetMember(ctx, f.Key.CommunityID, f.Key.MemberID)
	if err != nil {
		return fmt.Errorf("resolve member %s: %w", f.Key.MemberID, err)
	}

	ttl := s.settings.FollowUpPromptTTL
	prompt := newPrompt(PromptFollowUp, f.Key, ch.ID, now, ttl)
	s.registry.RegisterPrompt(prompt)

	if err := s.client.SendMessage(ctx, ch.ID, s.composer.FollowUp(*member, prompt.Buttons(), now, ttl)); err != nil {
		return fmt.Errorf("send follow-up: %w", err)
	}

	log.Printf("[FollowUp] ✅ Sent follow-up to %s in %s", member.DisplayName, ch.Name)
	s.publish(ctx, EventFollowUpSent, f.Key, ch.ID, ch.Name)
	return nil
}

// Prune drops expired ledger stamps and prompts.
func (s *Service) Prune() {
	stamps, prompts := s.registry.Prune(s.now())
	if stamps > 0 || prompts > 0 {
		log.Printf("[Onboarding] Pruned %d join stamp(s) and %d expired prompt(s)", stamps, prompts)
	}
}
