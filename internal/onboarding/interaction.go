package onboarding

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/Marga-Ghale/ora-onboarding-bot/internal/platform"
)

// HandleInteraction processes a button press on an onboarding prompt. It
// returns false for interactions that belong to something else.
func (s *Service) HandleInteraction(ctx context.Context, in platform.Interaction) (handled bool) {
	action, promptID, ok := ParseCustomID(in.CustomID)
	if !ok {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Interaction] ❌ Panic handling %s: %v", in.CustomID, r)
			handled = true
		}
	}()

	prompt, ok := s.registry.LookupPrompt(promptID, s.now())
	if !ok {
		s.reply(ctx, in, s.composer.PromptExpired(), true)
		return true
	}

	if in.UserID != prompt.MemberID {
		log.Printf("[Interaction] Denied %s on %s for user %s", action, prompt.ChannelID, in.UserID)
		s.reply(ctx, in, s.composer.Denied(), true)
		s.publish(ctx, EventDenied, prompt.Key(), prompt.ChannelID, "user "+in.UserID)
		return true
	}

	switch action {
	case ActionAcknowledge:
		s.acknowledge(ctx, in, prompt)
	case ActionEscalate:
		s.escalate(ctx, in, prompt)
	}
	return true
}

// acknowledge closes the channel after a grace delay so the reply can render.
func (s *Service) acknowledge(ctx context.Context, in platform.Interaction, prompt FollowUpPrompt) {
	grace := s.settings.DeleteGraceDelay
	s.registry.CancelFollowUpsForChannel(prompt.ChannelID)
	s.registry.DropPrompts(prompt.ChannelID)
	s.reply(ctx, in, s.composer.ClosingChannel(grace), false)

	if err := s.sleep(ctx, grace); err != nil {
		log.Printf("[Interaction] Channel %s not deleted: %v", prompt.ChannelID, err)
		return
	}
	if err := s.client.DeleteChannel(ctx, prompt.ChannelID); err != nil && !errors.Is(err, platform.ErrNotFound) {
		log.Printf("[Interaction] Failed to delete channel %s: %v", prompt.ChannelID, err)
		return
	}

	log.Printf("[Interaction] ✅ Member %s closed channel %s", prompt.MemberID, prompt.ChannelID)
	s.publish(ctx, EventAcknowledged, prompt.Key(), prompt.ChannelID, string(prompt.Kind))
}

func (s *Service) escalate(ctx context.Context, in platform.Interaction, prompt FollowUpPrompt) {
	s.reply(ctx, in, s.composer.HelpersNotified(), true)

	role, err := s.client.GetRole(ctx, prompt.CommunityID, s.HelperRoleName())
	if err != nil {
		if !errors.Is(err, platform.ErrNotFound) {
			log.Printf("[Interaction] Failed to look up helper role: %v", err)
		}
		role = nil
	}

	member := platform.Member{ID: prompt.MemberID, CommunityID: prompt.CommunityID}
	if err := s.client.SendMessage(ctx, prompt.ChannelID, s.composer.Escalation(role, member)); err != nil {
		log.Printf("[Interaction] Failed to post escalation in %s: %v", prompt.ChannelID, err)
		s.publish(ctx, EventFailed, prompt.Key(), prompt.ChannelID, fmt.Sprintf("escalation: %v", err))
		return
	}

	log.Printf("[Interaction] 🙋 Member %s escalated in %s", prompt.MemberID, prompt.ChannelID)
	s.publish(ctx, EventEscalated, prompt.Key(), prompt.ChannelID, string(prompt.Kind))
}
