package onboarding

import (
	"context"
	"time"
)

// EventType names a lifecycle transition worth reporting.
type EventType string

const (
	EventOnboarded        EventType = "onboarded"
	EventRejoined         EventType = "rejoined"
	EventDuplicate        EventType = "duplicate"
	EventSkipped          EventType = "skipped"
	EventFailed           EventType = "failed"
	EventAborted          EventType = "aborted"
	EventDuplicateRemoved EventType = "duplicate_removed"
	EventFollowUpSent     EventType = "follow_up_sent"
	EventFollowUpDropped  EventType = "follow_up_dropped"
	EventAcknowledged     EventType = "acknowledged"
	EventEscalated        EventType = "escalated"
	EventDenied           EventType = "denied"
	EventDeparted         EventType = "departed"
)

type Event struct {
	Type        EventType `json:"type"`
	CommunityID string    `json:"communityId"`
	MemberID    string    `json:"memberId,omitempty"`
	ChannelID   string    `json:"channelId,omitempty"`
	Detail      string    `json:"detail,omitempty"`
	At          time.Time `json:"at"`
}

// EventSink receives lifecycle events. Implementations must not block for long
// and must swallow their own failures.
type EventSink interface {
	Publish(ctx context.Context, e Event)
}

// Sinks fans an event out to every sink in order.
type Sinks []EventSink

func (s Sinks) Publish(ctx context.Context, e Event) {
	for _, sink := range s {
		if sink != nil {
			sink.Publish(ctx, e)
		}
	}
}
