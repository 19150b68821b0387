// Package commands routes prefixed chat messages to the onboarding admin
// operations.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/Marga-Ghale/ora-onboarding-bot/internal/notification"
	"github.com/Marga-Ghale/ora-onboarding-bot/internal/onboarding"
	"github.com/Marga-Ghale/ora-onboarding-bot/internal/platform"
)

var ErrMissingPermission = errors.New("missing required permission")

// Service is the part of the onboarding service the commands drive.
type Service interface {
	Status(ctx context.Context, communityID string) (*onboarding.StatusReport, error)
	Diagnose(ctx context.Context, communityID string) (*onboarding.Diagnostics, error)
	DeleteOnboardingChannel(ctx context.Context, channelID string) (*platform.Channel, error)
	CleanupDuplicates(ctx context.Context, communityID string) (int, error)
	TriggerOnboarding(ctx context.Context, communityID, memberID string) (onboarding.Outcome, error)
	TriggerFollowUp(ctx context.Context, communityID, memberID string) error
	HelperRoleName() string
	SetHelperRoleName(name string) error
}

// Message is a chat message that may carry a command.
type Message struct {
	CommunityID string
	ChannelID   string
	AuthorID    string
	AuthorBot   bool
	Content     string
}

type invocation struct {
	Message
	args []string
}

type handlerFunc func(ctx context.Context, in invocation) error

// command pairs a handler with the permission its author needs. A zero
// permission leaves the command open to every member.
type command struct {
	run  handlerFunc
	perm platform.Permission
}

type Router struct {
	svc      Service
	client   platform.Client
	composer *notification.Composer
	prefix   string
	commands map[string]command
}

func NewRouter(svc Service, client platform.Client, composer *notification.Composer, prefix string) *Router {
	r := &Router{svc: svc, client: client, composer: composer, prefix: prefix}
	r.commands = map[string]command{
		"delete-channel":     {r.deleteChannel, platform.PermManageChannels},
		"set-helper-role":    {r.setHelperRole, platform.PermAdministrator},
		"status":             {r.status, 0},
		"cleanup-duplicates": {r.cleanupDuplicates, platform.PermManageChannels},
		"test-welcome":       {r.testWelcome, platform.PermManageChannels},
		"test-followup":      {r.testFollowUp, platform.PermManageChannels},
		"check-config":       {r.checkConfig, platform.PermManageChannels},
	}
	return r
}

// Handle runs the command carried by msg. It reports false for messages that
// are not a known command. Failures are logged and answered in the channel.
func (r *Router) Handle(ctx context.Context, msg Message) (handled bool) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("❌ [Commands] Panic handling %q: %v", msg.Content, rec)
			handled = true
		}
	}()

	if msg.AuthorBot || msg.CommunityID == "" || !strings.HasPrefix(msg.Content, r.prefix) {
		return false
	}
	fields := strings.Fields(strings.TrimPrefix(msg.Content, r.prefix))
	if len(fields) == 0 {
		return false
	}
	name := strings.ToLower(fields[0])
	cmd, ok := r.commands[name]
	if !ok {
		return false
	}

	in := invocation{Message: msg, args: fields[1:]}
	if err := r.authorize(ctx, in, cmd.perm); err != nil {
		log.Printf("⚠️ [Commands] %s denied %s: %v", msg.AuthorID, name, err)
		r.reply(ctx, in, r.composer.PermissionDenied())
		return true
	}

	if err := cmd.run(ctx, in); err != nil {
		log.Printf("❌ [Commands] %s failed: %v", name, err)
		r.reply(ctx, in, fmt.Sprintf("❌ `%s%s` failed: %s", r.prefix, name, describe(err)))
	}
	return true
}

func (r *Router) authorize(ctx context.Context, in invocation, want platform.Permission) error {
	if want == 0 {
		return nil
	}
	perms, err := r.client.Permissions(ctx, in.CommunityID, in.AuthorID)
	if err != nil {
		return fmt.Errorf("get permissions: %w", err)
	}
	if !perms.Has(want) {
		return ErrMissingPermission
	}
	return nil
}

func (r *Router) reply(ctx context.Context, in invocation, content string) {
	r.send(ctx, in, platform.Message{Content: content})
}

func (r *Router) send(ctx context.Context, in invocation, msg platform.Message) {
	if err := r.client.SendMessage(ctx, in.ChannelID, msg); err != nil {
		log.Printf("⚠️ [Commands] Failed to reply in %s: %v", in.ChannelID, err)
	}
}

func describe(err error) string {
	switch {
	case errors.Is(err, platform.ErrNotFound):
		return "not found"
	case errors.Is(err, onboarding.ErrNotOnboardingChannel):
		return "that is not an onboarding channel"
	case errors.Is(err, onboarding.ErrNoOnboardingChannel):
		return "that member has no onboarding channel"
	case errors.Is(err, onboarding.ErrEmptyRoleName):
		return "the role name must not be empty"
	default:
		return "internal error, see logs"
	}
}

// target resolves the first argument as a member mention or id, defaulting to the author.
func (in invocation) target() string {
	if len(in.args) == 0 {
		return in.AuthorID
	}
	id := strings.TrimSuffix(strings.TrimPrefix(in.args[0], "<@"), ">")
	return strings.TrimPrefix(id, "!")
}

// ============================================
// Commands
// ============================================

func (r *Router) deleteChannel(ctx context.Context, in invocation) error {
	channelID := in.ChannelID
	if len(in.args) > 0 {
		channelID = strings.TrimSuffix(strings.TrimPrefix(in.args[0], "<#"), ">")
	}

	ch, err := r.svc.DeleteOnboardingChannel(ctx, channelID)
	if err != nil {
		return err
	}
	if ch.ID != in.ChannelID {
		r.reply(ctx, in, fmt.Sprintf("🗑️ Deleted `#%s`.", ch.Name))
	}
	return nil
}

func (r *Router) setHelperRole(ctx context.Context, in invocation) error {
	name := strings.Join(in.args, " ")
	if err := r.svc.SetHelperRoleName(name); err != nil {
		return err
	}
	r.reply(ctx, in, fmt.Sprintf("✅ Helper role set to **%s**.", r.svc.HelperRoleName()))
	return nil
}

func (r *Router) status(ctx context.Context, in invocation) error {
	report, err := r.svc.Status(ctx, in.CommunityID)
	if err != nil {
		return err
	}
	r.send(ctx, in, r.composer.StatusReport(report.CommunityName, report.MemberCount, report.HelperCount,
		report.PendingFollowUps, report.HelperRole, report.HelperRoleFound))
	return nil
}

func (r *Router) cleanupDuplicates(ctx context.Context, in invocation) error {
	removed, err := r.svc.CleanupDuplicates(ctx, in.CommunityID)
	if err != nil {
		return err
	}
	if removed == 0 {
		r.reply(ctx, in, "✅ No duplicate onboarding channels found.")
		return nil
	}
	r.reply(ctx, in, fmt.Sprintf("🧹 Removed %d duplicate onboarding channel(s).", removed))
	return nil
}

func (r *Router) testWelcome(ctx context.Context, in invocation) error {
	memberID := in.target()
	outcome, err := r.svc.TriggerOnboarding(ctx, in.CommunityID, memberID)
	if err != nil {
		return err
	}
	r.reply(ctx, in, fmt.Sprintf("🧪 Onboarding for <@%s>: **%s**", memberID, outcome))
	return nil
}

func (r *Router) testFollowUp(ctx context.Context, in invocation) error {
	memberID := in.target()
	if err := r.svc.TriggerFollowUp(ctx, in.CommunityID, memberID); err != nil {
		return err
	}
	r.reply(ctx, in, fmt.Sprintf("🧪 Follow-up sent for <@%s>.", memberID))
	return nil
}

func (r *Router) checkConfig(ctx context.Context, in invocation) error {
	d, err := r.svc.Diagnose(ctx, in.CommunityID)
	if err != nil {
		return err
	}

	roleCheck := fmt.Sprintf("Helper role %q exists", d.HelperRole)
	categoryCheck := fmt.Sprintf("Category %q exists", d.Category)
	manageCheck := "Bot can manage channels"

	checks := map[string]bool{
		roleCheck:   d.HelperRoleFound,
		manageCheck: d.ManageChannels,
	}
	order := []string{roleCheck}
	if d.Category != "" {
		checks[categoryCheck] = d.CategoryFound
		order = append(order, categoryCheck)
	}
	order = append(order, manageCheck)

	r.send(ctx, in, r.composer.Diagnostics(checks, order))
	return nil
}
