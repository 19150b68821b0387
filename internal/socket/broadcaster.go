package socket

import (
	"context"
	"fmt"

	"github.com/Marga-Ghale/ora-onboarding-bot/internal/onboarding"
)

// Broadcaster provides high-level methods for broadcasting events
type Broadcaster struct {
	hub *Hub
}

// NewBroadcaster creates a new Broadcaster
func NewBroadcaster(hub *Hub) *Broadcaster {
	return &Broadcaster{hub: hub}
}

// CommunityRoom is the room that receives a community's lifecycle events.
func CommunityRoom(communityID string) string {
	return fmt.Sprintf("%s%s", roomPrefix, communityID)
}

// ============================================
// Lifecycle Broadcasting
// ============================================

// Publish forwards an onboarding event to the community's room.
func (b *Broadcaster) Publish(_ context.Context, e onboarding.Event) {
	payload := map[string]interface{}{
		"communityId": e.CommunityID,
		"at":          e.At,
	}
	if e.MemberID != "" {
		payload["memberId"] = e.MemberID
	}
	if e.ChannelID != "" {
		payload["channelId"] = e.ChannelID
	}
	if e.Detail != "" {
		payload["detail"] = e.Detail
	}

	b.hub.SendToRoom(CommunityRoom(e.CommunityID), MessageType(e.Type), payload)
}

// Subscribers returns how many clients watch a community.
func (b *Broadcaster) Subscribers(communityID string) int {
	return b.hub.GetRoomClients(CommunityRoom(communityID))
}

var _ onboarding.EventSink = (*Broadcaster)(nil)
