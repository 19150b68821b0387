package onboarding

import (
	"context"
	"errors"
	"log"
	"sort"

	"github.com/Marga-Ghale/ora-onboarding-bot/internal/platform"
)

// HandleLeave tears down everything tied to a departed member and returns the
// number of channels deleted. Registry state goes first, in one step each, so
// no scheduled work outlives this call even when channel deletion fails.
func (s *Service) HandleLeave(ctx context.Context, member platform.Member) (removed int) {
	if member.Bot {
		return 0
	}
	key := KeyFor(member)
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Departure] ❌ Panic cleaning up %s: %v", key, r)
		}
	}()

	pending, hadPending := s.registry.Take(key)
	s.registry.Forget(key)

	targets := make(map[string]string)
	if hadPending {
		targets[pending.ChannelID] = pending.ChannelID
	}
	channels, err := s.client.ListChannels(ctx, key.CommunityID)
	if err != nil {
		log.Printf("[Departure] Failed to list channels for %s: %v", key, err)
	}
	for _, ch := range channels {
		if ch.Kind != platform.ChannelCategory && s.namer.MatchesMember(ch.Name, member) {
			targets[ch.ID] = ch.Name
		}
	}

	ids := make([]string, 0, len(targets))
	for id := range targets {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		s.registry.DropPrompts(id)
		if err := s.client.DeleteChannel(ctx, id); err != nil {
			if !errors.Is(err, platform.ErrNotFound) {
				log.Printf("[Departure] Failed to delete channel %s: %v", targets[id], err)
			}
			continue
		}
		removed++
		log.Printf("[Departure] 🧹 Deleted channel %s of departed member %s", targets[id], member.DisplayName)
	}

	s.publish(ctx, EventDeparted, key, "", "")
	return removed
}
