package onboarding

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/Marga-Ghale/ora-onboarding-bot/internal/platform"
)

// StatusReport summarises one community for the status command.
type StatusReport struct {
	CommunityID      string
	CommunityName    string
	MemberCount      int
	HelperRole       string
	HelperRoleFound  bool
	HelperCount      int
	PendingFollowUps int
	Registry         RegistryStats
}

// Diagnostics is the result of the configuration sanity check.
type Diagnostics struct {
	HelperRole      string
	HelperRoleFound bool
	Category        string
	CategoryFound   bool
	ManageChannels  bool
}

// Healthy reports whether onboarding can run in the community.
func (d Diagnostics) Healthy() bool {
	return d.HelperRoleFound && d.ManageChannels && (d.CategoryFound || d.Category == "")
}

func (s *Service) Status(ctx context.Context, communityID string) (*StatusReport, error) {
	community, err := s.client.GetCommunity(ctx, communityID)
	if err != nil {
		return nil, fmt.Errorf("get community: %w", err)
	}

	report := &StatusReport{
		CommunityID:      community.ID,
		CommunityName:    community.Name,
		MemberCount:      community.MemberCount,
		HelperRole:       s.HelperRoleName(),
		PendingFollowUps: s.registry.PendingCount(communityID),
		Registry:         s.registry.Stats(),
	}

	role, err := s.client.GetRole(ctx, communityID, report.HelperRole)
	switch {
	case errors.Is(err, platform.ErrNotFound):
		return report, nil
	case err != nil:
		return nil, fmt.Errorf("get helper role: %w", err)
	}
	report.HelperRoleFound = true

	helpers, err := s.helpers(ctx, communityID, role.ID)
	if err != nil {
		return nil, err
	}
	report.HelperCount = len(helpers)
	return report, nil
}

// DeleteOnboardingChannel removes an onboarding channel and any follow-up bound to it.
func (s *Service) DeleteOnboardingChannel(ctx context.Context, channelID string) (*platform.Channel, error) {
	ch, err := s.client.GetChannel(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("get channel: %w", err)
	}
	if !s.namer.IsOnboardingChannel(ch.Name) {
		return nil, ErrNotOnboardingChannel
	}

	s.registry.CancelFollowUpsForChannel(ch.ID)
	s.registry.DropPrompts(ch.ID)
	if err := s.client.DeleteChannel(ctx, ch.ID); err != nil {
		return nil, fmt.Errorf("delete channel: %w", err)
	}
	log.Printf("[Admin] Deleted onboarding channel %s", ch.Name)
	return ch, nil
}

// CleanupDuplicates keeps the oldest onboarding channel of each name and
// deletes the rest, moving their follow-ups to the survivor.
func (s *Service) CleanupDuplicates(ctx context.Context, communityID string) (int, error) {
	channels, err := s.client.ListChannels(ctx, communityID)
	if err != nil {
		return 0, fmt.Errorf("list channels: %w", err)
	}

	groups := make(map[string][]platform.Channel)
	for _, ch := range channels {
		if ch.Kind == platform.ChannelCategory || !s.namer.IsOnboardingChannel(ch.Name) {
			continue
		}
		groups[ch.Name] = append(groups[ch.Name], ch)
	}

	removed := 0
	for name, group := range groups {
		if len(group) < 2 {
			continue
		}
		sort.SliceStable(group, func(i, j int) bool { return group[i].CreatedAt.Before(group[j].CreatedAt) })
		keep := group[0]
		for _, dup := range group[1:] {
			s.registry.RebindChannel(dup.ID, keep.ID)
			s.registry.DropPrompts(dup.ID)
			if err := s.client.DeleteChannel(ctx, dup.ID); err != nil {
				log.Printf("[Admin] Failed to delete duplicate %s (%s): %v", name, dup.ID, err)
				continue
			}
			removed++
		}
		log.Printf("[Admin] Kept %s (%s), removed %d duplicate(s)", name, keep.ID, len(group)-1)
	}
	return removed, nil
}

// TriggerOnboarding runs the join lifecycle for an existing member, ignoring
// the suppression window but not an in-flight join.
func (s *Service) TriggerOnboarding(ctx context.Context, communityID, memberID string) (Outcome, error) {
	member, err := s.client.GetMember(ctx, communityID, memberID)
	if err != nil {
		return "", fmt.Errorf("get member: %w", err)
	}
	s.registry.ClearRecent(KeyFor(*member))
	return s.HandleJoin(ctx, *member), nil
}

// TriggerFollowUp fires the follow-up for a member now. A pending entry is
// consumed; without one the member's existing channel is used.
func (s *Service) TriggerFollowUp(ctx context.Context, communityID, memberID string) error {
	key := Key{CommunityID: communityID, MemberID: memberID}

	f, ok := s.registry.Take(key)
	if !ok {
		member, err := s.client.GetMember(ctx, communityID, memberID)
		if err != nil {
			return fmt.Errorf("get member: %w", err)
		}
		existing, err := s.namer.FindExisting(ctx, s.client, *member, s.now())
		if err != nil {
			return err
		}
		if len(existing) == 0 {
			return ErrNoOnboardingChannel
		}
		f = PendingFollowUp{Key: key, ChannelID: existing[0].ID, DueAt: s.now()}
	}
	return s.fire(ctx, f, s.now())
}

// Diagnose checks that the helper role and category exist and that the bot
// may manage channels.
func (s *Service) Diagnose(ctx context.Context, communityID string) (*Diagnostics, error) {
	d := &Diagnostics{HelperRole: s.HelperRoleName(), Category: s.settings.WelcomeCategory}

	_, err := s.client.GetRole(ctx, communityID, d.HelperRole)
	switch {
	case err == nil:
		d.HelperRoleFound = true
	case !errors.Is(err, platform.ErrNotFound):
		return nil, fmt.Errorf("get helper role: %w", err)
	}

	parentID, err := s.categoryID(ctx, communityID)
	if err != nil {
		return nil, err
	}
	d.CategoryFound = parentID != ""

	perms, err := s.client.Permissions(ctx, communityID, s.client.SelfID())
	if err != nil {
		return nil, fmt.Errorf("get bot permissions: %w", err)
	}
	d.ManageChannels = perms.Has(platform.PermManageChannels)
	return d, nil
}

// PendingFollowUps lists the community's scheduled follow-ups, earliest first.
func (s *Service) PendingFollowUps(communityID string) []PendingFollowUp {
	return s.registry.PendingIn(communityID)
}
