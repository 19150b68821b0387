package notification

import (
	"fmt"
	"strings"
	"time"

	"github.com/Marga-Ghale/ora-onboarding-bot/internal/platform"
	"github.com/dustin/go-humanize"
)

// Embed colours
const (
	ColorWelcome  = 0x00ff00
	ColorFollowUp = 0xffa500
	ColorStatus   = 0x0099ff
	ColorAlert    = 0xff0000
)

// Composer renders every message the bot sends. Content is opaque to the
// onboarding lifecycle; only the shape (embed, prompt, mentions) matters there.
type Composer struct{}

func NewComposer() *Composer {
	return &Composer{}
}

// ============================================
// Onboarding messages
// ============================================

// ChannelTopic is the topic of a freshly created onboarding channel.
func (c *Composer) ChannelTopic(member platform.Member) string {
	return fmt.Sprintf("Welcome channel for %s.", member.Mention())
}

// Welcome is the first message in a new onboarding channel.
func (c *Composer) Welcome(member platform.Member, community *platform.Community, helperRole platform.Role, prompt *platform.Prompt, now time.Time) platform.Message {
	embed := &platform.Embed{
		Title:       "🎉 Welcome aboard!",
		Description: fmt.Sprintf("%s, welcome to the server!", member.Mention()),
		Color:       ColorWelcome,
		Timestamp:   now,
		Fields: []platform.EmbedField{
			{
				Name:  "👋 Getting help",
				Value: fmt.Sprintf("Members with the %s role will be helping you out.\nAsk anything, any time!", helperRole.Mention()),
			},
			{
				Name:  "📋 Next steps",
				Value: "• Read the server rules\n• Introduce yourself\n• Ask whatever is on your mind",
			},
		},
		ThumbnailURL: member.AvatarURL,
	}
	if community != nil && community.IconURL != "" {
		embed.FooterText = "Channel created"
		embed.FooterIconURL = community.IconURL
	}
	return platform.Message{Embed: embed, Prompt: prompt}
}

// HelperCall pings the helper role inside the new channel.
func (c *Composer) HelperCall(helperRole platform.Role, member platform.Member, online, total int) platform.Message {
	content := fmt.Sprintf("%s please help our new member %s get settled! 😊", helperRole.Mention(), member.Mention())
	if online > 0 {
		content += fmt.Sprintf(" (%d of %d helpers online)", online, total)
	}
	return platform.Message{Content: content}
}

// Rejoined is posted into an existing channel when the member joins again.
func (c *Composer) Rejoined(member platform.Member) platform.Message {
	return platform.Message{Content: fmt.Sprintf("👋 %s re-joined the server. Welcome back!", member.Mention())}
}

// FollowUp is the 48-hour adaptation check.
func (c *Composer) FollowUp(member platform.Member, prompt *platform.Prompt, now time.Time, window time.Duration) platform.Message {
	return platform.Message{
		Embed: &platform.Embed{
			Title:       "📅 How are you settling in?",
			Description: fmt.Sprintf("%s, it's been a couple of days since you joined. How is it going?", member.Mention()),
			Color:       ColorFollowUp,
			Timestamp:   now,
			Fields: []platform.EmbedField{
				{
					Name:  "Let us know",
					Value: fmt.Sprintf("Close this channel if you're all set, or call a helper if you need a hand.\nThese buttons stay active for %s.", humanDuration(window)),
				},
			},
		},
		Prompt: prompt,
	}
}

// Escalation asks helpers to step in. role is nil when the helper role no longer exists.
func (c *Composer) Escalation(role *platform.Role, member platform.Member) platform.Message {
	if role == nil {
		return platform.Message{Content: fmt.Sprintf("🙋 %s asked for help. An admin will be with you shortly.", member.Mention())}
	}
	return platform.Message{Content: fmt.Sprintf("🙋 %s %s asked for help!", role.Mention(), member.Mention())}
}

// ============================================
// Interaction replies
// ============================================

func (c *Composer) ClosingChannel(grace time.Duration) string {
	if grace <= 0 {
		return "✅ Glad you're settled in! Closing this channel now."
	}
	return fmt.Sprintf("✅ Glad you're settled in! This channel will close in %s.", humanDuration(grace))
}

func (c *Composer) HelpersNotified() string {
	return "🙋 Helpers have been notified."
}

func (c *Composer) Denied() string {
	return "❌ Only the member this channel was created for can use these buttons."
}

func (c *Composer) PromptExpired() string {
	return "⌛ These buttons have expired."
}

// ============================================
// Command replies
// ============================================

// StatusReport renders the status command output.
func (c *Composer) StatusReport(community string, members, helpers, pending int, helperRole string, roleFound bool) platform.Message {
	fields := []platform.EmbedField{
		{Name: "Server", Value: community, Inline: true},
		{Name: "Members", Value: humanize.Comma(int64(members)), Inline: true},
	}
	if roleFound {
		fields = append(fields, platform.EmbedField{Name: fmt.Sprintf("%s members", helperRole), Value: fmt.Sprint(helpers), Inline: true})
	} else {
		fields = append(fields, platform.EmbedField{Name: "Helper role", Value: fmt.Sprintf("role %q not found", helperRole), Inline: true})
	}
	fields = append(fields, platform.EmbedField{Name: "Pending follow-ups", Value: fmt.Sprint(pending), Inline: true})
	return platform.Message{Embed: &platform.Embed{Title: "Bot status", Color: ColorStatus, Fields: fields}}
}

// Diagnostics renders the configuration sanity check.
func (c *Composer) Diagnostics(checks map[string]bool, order []string) platform.Message {
	lines := make([]string, 0, len(order))
	healthy := true
	for _, name := range order {
		mark := "✅"
		if !checks[name] {
			mark = "❌"
			healthy = false
		}
		lines = append(lines, mark+" "+name)
	}
	color := ColorStatus
	if !healthy {
		color = ColorAlert
	}
	return platform.Message{Embed: &platform.Embed{Title: "Configuration check", Description: strings.Join(lines, "\n"), Color: color}}
}

func (c *Composer) PermissionDenied() string {
	return "❌ You don't have permission to use this command."
}

func humanDuration(d time.Duration) string {
	var epoch time.Time
	return strings.TrimSpace(humanize.RelTime(epoch, epoch.Add(d), "", ""))
}
