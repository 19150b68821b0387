package onboarding

import (
	"strings"
	"time"

	"github.com/Marga-Ghale/ora-onboarding-bot/internal/platform"
	"github.com/google/uuid"
)

// PromptKind distinguishes the welcome prompt from the 48-hour check.
type PromptKind string

const (
	PromptInitial  PromptKind = "initial"
	PromptFollowUp PromptKind = "follow_up"
)

// Action is what a button press asks for.
type Action string

const (
	ActionAcknowledge Action = "ack"
	ActionEscalate    Action = "escalate"
)

const customIDPrefix = "onboarding"

// FollowUpPrompt is an interactive prompt bound to one member and one channel.
type FollowUpPrompt struct {
	ID          string
	Kind        PromptKind
	CommunityID string
	MemberID    string
	ChannelID   string
	ExpiresAt   time.Time
}

func newPrompt(kind PromptKind, key Key, channelID string, now time.Time, ttl time.Duration) FollowUpPrompt {
	return FollowUpPrompt{
		ID:          uuid.New().String(),
		Kind:        kind,
		CommunityID: key.CommunityID,
		MemberID:    key.MemberID,
		ChannelID:   channelID,
		ExpiresAt:   now.Add(ttl),
	}
}

func (p FollowUpPrompt) Key() Key {
	return Key{CommunityID: p.CommunityID, MemberID: p.MemberID}
}

func (p FollowUpPrompt) Expired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}

// CustomID is the button payload for action on this prompt.
func (p FollowUpPrompt) CustomID(a Action) string {
	return customIDPrefix + ":" + string(a) + ":" + p.ID
}

// Buttons renders the prompt's acknowledge and escalate buttons.
func (p FollowUpPrompt) Buttons() *platform.Prompt {
	ackLabel := "I'm settled in, close this channel"
	if p.Kind == PromptFollowUp {
		ackLabel = "All good, close this channel"
	}
	return &platform.Prompt{Buttons: []platform.Button{
		{CustomID: p.CustomID(ActionAcknowledge), Label: ackLabel, Style: platform.ButtonSuccess},
		{CustomID: p.CustomID(ActionEscalate), Label: "I need a helper", Style: platform.ButtonDanger},
	}}
}

// ParseCustomID splits a button payload. ok is false for payloads that do not
// belong to onboarding prompts.
func ParseCustomID(customID string) (action Action, promptID string, ok bool) {
	parts := strings.SplitN(customID, ":", 3)
	if len(parts) != 3 || parts[0] != customIDPrefix || parts[2] == "" {
		return "", "", false
	}
	switch Action(parts[1]) {
	case ActionAcknowledge, ActionEscalate:
		return Action(parts[1]), parts[2], true
	}
	return "", "", false
}
