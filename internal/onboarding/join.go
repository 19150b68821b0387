package onboarding

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Marga-Ghale/ora-onboarding-bot/internal/platform"
)

// HandleJoin runs the onboarding lifecycle for a member who just joined. It
// never panics and never returns an error; failures are logged and reported
// as events.
func (s *Service) HandleJoin(ctx context.Context, member platform.Member) (outcome Outcome) {
	if member.Bot {
		return OutcomeIgnored
	}

	key := KeyFor(member)
	lease, ok := s.registry.TryBegin(key, s.now())
	if !ok {
		log.Printf("[Onboarding] %s (%s) is already being handled, skipping", member.DisplayName, key)
		s.publish(ctx, EventDuplicate, key, "", "join already handled")
		return OutcomeDuplicate
	}
	defer s.registry.End(lease)
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Onboarding] ❌ Panic while onboarding %s: %v", key, r)
			s.publish(ctx, EventFailed, key, "", fmt.Sprint(r))
			outcome = OutcomeFailed
		}
	}()

	return s.onboard(ctx, lease, member)
}

func (s *Service) onboard(ctx context.Context, lease Lease, member platform.Member) Outcome {
	key := lease.Key

	existing, err := s.namer.FindExisting(ctx, s.client, member, s.now())
	if err != nil {
		return s.failed(ctx, key, "", err)
	}
	if len(existing) > 0 {
		return s.rejoin(ctx, lease, member, existing[0])
	}

	community, err := s.client.GetCommunity(ctx, key.CommunityID)
	if err != nil {
		return s.failed(ctx, key, "", fmt.Errorf("get community: %w", err))
	}

	roleName := s.HelperRoleName()
	role, err := s.client.GetRole(ctx, key.CommunityID, roleName)
	if errors.Is(err, platform.ErrNotFound) {
		return s.skipped(ctx, key, fmt.Sprintf("helper role %q not found", roleName))
	}
	if err != nil {
		return s.failed(ctx, key, "", fmt.Errorf("get helper role: %w", err))
	}

	helpers, err := s.helpers(ctx, key.CommunityID, role.ID)
	if err != nil {
		return s.failed(ctx, key, "", err)
	}
	if len(helpers) == 0 {
		return s.skipped(ctx, key, fmt.Sprintf("no members hold helper role %q", roleName))
	}

	parentID, err := s.categoryID(ctx, key.CommunityID)
	if err != nil {
		return s.failed(ctx, key, "", err)
	}
	if parentID == "" && s.settings.WelcomeCategory != "" {
		if s.settings.RequireCategory {
			return s.skipped(ctx, key, fmt.Sprintf("category %q not found", s.settings.WelcomeCategory))
		}
		log.Printf("[Onboarding] ⚠️ Category %q not found, creating channel at top level", s.settings.WelcomeCategory)
	}

	overwrites, err := s.overwrites(ctx, community, member, *role, helpers)
	if err != nil {
		return s.failed(ctx, key, "", err)
	}

	// Another join for the same member may have created the channel while we
	// were suspended above.
	now := s.now()
	existing, err = s.namer.FindExisting(ctx, s.client, member, now)
	if err != nil {
		return s.failed(ctx, key, "", err)
	}
	if len(existing) > 0 {
		log.Printf("[Onboarding] Channel %s appeared before creation, skipping", existing[0].Name)
		s.publish(ctx, EventDuplicate, key, existing[0].ID, "channel appeared before creation")
		return OutcomeDuplicate
	}
	if !s.registry.Held(lease) {
		return s.aborted(ctx, key, "")
	}

	name := s.namer.ChannelName(member, now)
	ch, err := s.client.CreateChannel(ctx, key.CommunityID, platform.CreateChannelParams{
		Name:       name,
		Topic:      s.composer.ChannelTopic(member),
		ParentID:   parentID,
		Overwrites: overwrites,
	})
	if err != nil {
		return s.failed(ctx, key, "", fmt.Errorf("create channel %s: %w", name, err))
	}
	createdAt := s.now()
	log.Printf("[Onboarding] ✅ Channel created: %s (%s)", ch.Name, ch.ID)

	s.removeDuplicates(ctx, key, *ch)

	if !s.registry.Held(lease) {
		return s.abandon(ctx, key, ch.ID)
	}
	if err := s.notify(ctx, key, member, community, *role, helpers, *ch, createdAt); err != nil {
		if !s.registry.Held(lease) {
			return s.abandon(ctx, key, ch.ID)
		}
		return s.failed(ctx, key, ch.ID, err)
	}

	due := createdAt.Add(s.settings.FollowUpDelay)
	if !s.registry.Schedule(lease, PendingFollowUp{ChannelID: ch.ID, DueAt: due}) {
		return s.abandon(ctx, key, ch.ID)
	}

	log.Printf("[Onboarding] 🎉 Welcome channel ready for %s: %s, follow-up due %s",
		member.DisplayName, ch.Name, due.Format(time.RFC3339))
	s.publish(ctx, EventOnboarded, key, ch.ID, ch.Name)
	return OutcomeCreated
}

// rejoin handles a member whose onboarding channel already exists. The
// lifecycle gets a fresh follow-up only when none is pending.
func (s *Service) rejoin(ctx context.Context, lease Lease, member platform.Member, ch platform.Channel) Outcome {
	log.Printf("[Onboarding] Channel %s already exists for %s", ch.Name, member.DisplayName)

	if err := s.client.SendMessage(ctx, ch.ID, s.composer.Rejoined(member)); err != nil {
		log.Printf("[Onboarding] Failed to post re-join notice in %s: %v", ch.Name, err)
	}

	due := s.now().Add(s.settings.FollowUpDelay)
	if s.registry.ScheduleIfAbsent(lease, PendingFollowUp{ChannelID: ch.ID, DueAt: due}) {
		log.Printf("[Onboarding] Re-armed follow-up for %s, due %s", member.DisplayName, due.Format(time.RFC3339))
	}

	s.publish(ctx, EventRejoined, lease.Key, ch.ID, ch.Name)
	return OutcomeRejoined
}

// helpers returns the non-bot members of the helper role.
func (s *Service) helpers(ctx context.Context, communityID, roleID string) ([]platform.Member, error) {
	members, err := s.client.RoleMembers(ctx, communityID, roleID)
	if err != nil {
		return nil, fmt.Errorf("list helper role members: %w", err)
	}
	out := make([]platform.Member, 0, len(members))
	for _, m := range members {
		if !m.Bot {
			out = append(out, m)
		}
	}
	return out, nil
}

// categoryID resolves the welcome category; empty when it is not configured or missing.
func (s *Service) categoryID(ctx context.Context, communityID string) (string, error) {
	if s.settings.WelcomeCategory == "" {
		return "", nil
	}
	channels, err := s.client.ListChannels(ctx, communityID)
	if err != nil {
		return "", fmt.Errorf("list channels: %w", err)
	}
	for _, ch := range channels {
		if ch.Kind == platform.ChannelCategory && ch.Name == s.settings.WelcomeCategory {
			return ch.ID, nil
		}
	}
	return "", nil
}

// overwrites hides the channel from everyone except the member, the helpers and the bot.
func (s *Service) overwrites(ctx context.Context, community *platform.Community, member platform.Member, role platform.Role, helpers []platform.Member) ([]platform.Overwrite, error) {
	rw := platform.PermViewChannel | platform.PermSendMessages
	selfID := s.client.SelfID()

	out := []platform.Overwrite{
		{ID: community.DefaultRoleID, Target: platform.TargetRole, Deny: rw},
		{ID: member.ID, Target: platform.TargetMember, Allow: rw},
		{ID: role.ID, Target: platform.TargetRole, Allow: rw},
	}
	seen := map[string]bool{member.ID: true, selfID: true}

	// Role overwrites do not always reach every holder, so helpers get their own.
	for _, h := range helpers {
		if seen[h.ID] {
			continue
		}
		seen[h.ID] = true
		out = append(out, platform.Overwrite{ID: h.ID, Target: platform.TargetMember, Allow: rw})
	}
	out = append(out, platform.Overwrite{ID: selfID, Target: platform.TargetMember, Allow: rw})

	if !s.settings.HardenedPrivacy {
		return out, nil
	}
	everyone, err := s.client.ListMembers(ctx, community.ID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	for _, m := range everyone {
		if seen[m.ID] {
			continue
		}
		out = append(out, platform.Overwrite{ID: m.ID, Target: platform.TargetMember, Deny: rw})
	}
	return out, nil
}

// removeDuplicates deletes channels that share the created channel's name.
// These come from the platform accepting the same create twice.
func (s *Service) removeDuplicates(ctx context.Context, key Key, created platform.Channel) {
	if err := s.sleep(ctx, s.settings.DuplicateSweepDelay); err != nil {
		return
	}
	channels, err := s.client.ListChannels(ctx, key.CommunityID)
	if err != nil {
		log.Printf("[Onboarding] Duplicate sweep for %s skipped: %v", created.Name, err)
		return
	}
	for _, ch := range channels {
		if ch.ID == created.ID || ch.Name != created.Name || ch.Kind == platform.ChannelCategory {
			continue
		}
		if err := s.client.DeleteChannel(ctx, ch.ID); err != nil {
			log.Printf("[Onboarding] Failed to delete duplicate channel %s: %v", ch.ID, err)
			continue
		}
		log.Printf("[Onboarding] 🧹 Deleted duplicate channel %s (%s)", ch.Name, ch.ID)
		s.publish(ctx, EventDuplicateRemoved, key, ch.ID, ch.Name)
	}
}

func (s *Service) notify(ctx context.Context, key Key, member platform.Member, community *platform.Community, role platform.Role, helpers []platform.Member, ch platform.Channel, now time.Time) error {
	prompt := newPrompt(PromptInitial, key, ch.ID, now, s.settings.InitialPromptTTL)
	s.registry.RegisterPrompt(prompt)

	if err := s.client.SendMessage(ctx, ch.ID, s.composer.Welcome(member, community, role, prompt.Buttons(), now)); err != nil {
		return fmt.Errorf("send welcome: %w", err)
	}

	online := 0
	for _, h := range helpers {
		if h.Online() {
			online++
		}
	}
	if err := s.client.SendMessage(ctx, ch.ID, s.composer.HelperCall(role, member, online, len(helpers))); err != nil {
		return fmt.Errorf("send helper notice: %w", err)
	}
	return nil
}

func (s *Service) failed(ctx context.Context, key Key, channelID string, err error) Outcome {
	log.Printf("[Onboarding] ❌ Onboarding %s failed: %v", key, err)
	s.publish(ctx, EventFailed, key, channelID, err.Error())
	return OutcomeFailed
}

func (s *Service) skipped(ctx context.Context, key Key, reason string) Outcome {
	log.Printf("[Onboarding] ⚠️ Skipping onboarding of %s: %s", key, reason)
	s.publish(ctx, EventSkipped, key, "", reason)
	return OutcomeSkipped
}

// abandon removes a channel created for a member who left mid-flight.
func (s *Service) abandon(ctx context.Context, key Key, channelID string) Outcome {
	s.registry.DropPrompts(channelID)
	if err := s.client.DeleteChannel(ctx, channelID); err != nil && !errors.Is(err, platform.ErrNotFound) {
		log.Printf("[Onboarding] Failed to remove channel %s of departed member: %v", channelID, err)
	}
	return s.aborted(ctx, key, channelID)
}

func (s *Service) aborted(ctx context.Context, key Key, channelID string) Outcome {
	log.Printf("[Onboarding] Member %s left during onboarding, aborting", key)
	s.publish(ctx, EventAborted, key, channelID, "member left during onboarding")
	return OutcomeAborted
}
