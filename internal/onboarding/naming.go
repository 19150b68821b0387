package onboarding

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/Marga-Ghale/ora-onboarding-bot/internal/platform"
)

const dateSuffixLen = 4

// Namer derives onboarding channel names and finds channels that already exist.
type Namer struct {
	prefix string
	loc    *time.Location
}

func NewNamer(prefix string, loc *time.Location) *Namer {
	if loc == nil {
		loc = time.Local
	}
	return &Namer{prefix: sanitize(prefix), loc: loc}
}

// ChannelName is deterministic for a member within one calendar day.
func (n *Namer) ChannelName(m platform.Member, now time.Time) string {
	return n.memberPrefix(m) + now.In(n.loc).Format("0102")
}

// memberPrefix falls back from the display name to the username, and to the
// member id when neither leaves anything after sanitizing, so that members
// with emoji-only names never share a channel.
func (n *Namer) memberPrefix(m platform.Member) string {
	name := sanitize(m.DisplayName)
	if name == "" {
		name = sanitize(m.Username)
	}
	if name == "" {
		name = "member-" + sanitize(m.ID)
	}
	return n.prefix + "-" + name + "-"
}

// IsOnboardingChannel reports whether name carries the onboarding prefix.
func (n *Namer) IsOnboardingChannel(name string) bool {
	return strings.HasPrefix(name, n.prefix+"-")
}

// MatchesMember reports whether name is an onboarding channel for m from any day.
func (n *Namer) MatchesMember(name string, m platform.Member) bool {
	rest, ok := strings.CutPrefix(name, n.memberPrefix(m))
	if !ok || len(rest) != dateSuffixLen {
		return false
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// FindExisting returns the member's onboarding channels, today's exact name first.
func (n *Namer) FindExisting(ctx context.Context, client platform.Client, m platform.Member, now time.Time) ([]platform.Channel, error) {
	channels, err := client.ListChannels(ctx, m.CommunityID)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}

	exact := n.ChannelName(m, now)
	var matches, stale []platform.Channel
	for _, ch := range channels {
		if ch.Kind == platform.ChannelCategory {
			continue
		}
		switch {
		case ch.Name == exact:
			matches = append(matches, ch)
		case n.MatchesMember(ch.Name, m):
			stale = append(stale, ch)
		}
	}
	return append(matches, stale...), nil
}

// sanitize follows the text-channel naming rules of the platform: lowercase,
// whitespace becomes a dash, punctuation other than dash and underscore is dropped.
func sanitize(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsSpace(r) || r == '-':
			if !dash && b.Len() > 0 {
				b.WriteRune('-')
				dash = true
			}
		case r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
