package handlers

import (
	"context"

	"github.com/Marga-Ghale/ora-onboarding-bot/internal/models"
	"github.com/Marga-Ghale/ora-onboarding-bot/internal/onboarding"
	"github.com/Marga-Ghale/ora-onboarding-bot/internal/platform"
)

// AdminService is the part of the onboarding service the admin API drives.
type AdminService interface {
	Status(ctx context.Context, communityID string) (*onboarding.StatusReport, error)
	Diagnose(ctx context.Context, communityID string) (*onboarding.Diagnostics, error)
	PendingFollowUps(communityID string) []onboarding.PendingFollowUp
	DeleteOnboardingChannel(ctx context.Context, channelID string) (*platform.Channel, error)
	CleanupDuplicates(ctx context.Context, communityID string) (int, error)
	TriggerOnboarding(ctx context.Context, communityID, memberID string) (onboarding.Outcome, error)
	TriggerFollowUp(ctx context.Context, communityID, memberID string) error
	HelperRoleName() string
	SetHelperRoleName(name string) error
}

// EventHistory serves recently published lifecycle events.
type EventHistory interface {
	RecentEvents(ctx context.Context, communityID string, limit int) ([]onboarding.Event, error)
}

// JobTrigger runs a scheduled job on demand.
type JobTrigger interface {
	ManualTrigger(job string) bool
}

// Handlers contains all HTTP handlers
type Handlers struct {
	Admin  *AdminHandler
	Health *HealthHandler
}

// ============================================
// Response Mappers
// ============================================

func toStatusResponse(r *onboarding.StatusReport) models.StatusResponse {
	return models.StatusResponse{
		CommunityID:      r.CommunityID,
		CommunityName:    r.CommunityName,
		MemberCount:      r.MemberCount,
		HelperRole:       r.HelperRole,
		HelperRoleFound:  r.HelperRoleFound,
		HelperCount:      r.HelperCount,
		PendingFollowUps: r.PendingFollowUps,
		Registry:         toRegistryStatsResponse(r.Registry),
	}
}

func toRegistryStatsResponse(s onboarding.RegistryStats) models.RegistryStatsResponse {
	return models.RegistryStatsResponse{
		Processing: s.Processing,
		Recent:     s.Recent,
		Pending:    s.Pending,
		Prompts:    s.Prompts,
	}
}

func toDiagnosticsResponse(d *onboarding.Diagnostics) models.DiagnosticsResponse {
	return models.DiagnosticsResponse{
		Healthy:         d.Healthy(),
		HelperRole:      d.HelperRole,
		HelperRoleFound: d.HelperRoleFound,
		Category:        d.Category,
		CategoryFound:   d.CategoryFound,
		ManageChannels:  d.ManageChannels,
	}
}

func toFollowUpResponses(in []onboarding.PendingFollowUp) []models.FollowUpResponse {
	out := make([]models.FollowUpResponse, len(in))
	for i, f := range in {
		out[i] = models.FollowUpResponse{
			MemberID:  f.Key.MemberID,
			ChannelID: f.ChannelID,
			DueAt:     f.DueAt,
		}
	}
	return out
}

func toEventResponses(in []onboarding.Event) []models.EventResponse {
	out := make([]models.EventResponse, len(in))
	for i, e := range in {
		out[i] = models.EventResponse{
			Type:      string(e.Type),
			MemberID:  e.MemberID,
			ChannelID: e.ChannelID,
			Detail:    e.Detail,
			At:        e.At,
		}
	}
	return out
}
