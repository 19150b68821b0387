package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/Marga-Ghale/ora-onboarding-bot/internal/api/middleware"
	"github.com/Marga-Ghale/ora-onboarding-bot/internal/models"
	"github.com/Marga-Ghale/ora-onboarding-bot/internal/onboarding"
	"github.com/Marga-Ghale/ora-onboarding-bot/internal/platform"
	"github.com/gin-gonic/gin"
)

// handleServiceError maps service errors to HTTP responses
func handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, platform.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Resource not found"})
	case errors.Is(err, onboarding.ErrNoOnboardingChannel):
		c.JSON(http.StatusNotFound, gin.H{"error": "Member has no onboarding channel"})
	case errors.Is(err, onboarding.ErrNotOnboardingChannel):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Not an onboarding channel"})
	case errors.Is(err, onboarding.ErrEmptyRoleName):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Printf("❌ [Admin] %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// AdminHandler handles onboarding administration requests
type AdminHandler struct {
	svc     AdminService
	history EventHistory
	jobs    JobTrigger
}

// NewAdminHandler creates a new admin handler. history and jobs may be nil.
func NewAdminHandler(svc AdminService, history EventHistory, jobs JobTrigger) *AdminHandler {
	return &AdminHandler{svc: svc, history: history, jobs: jobs}
}

// Status reports the community's onboarding state
func (h *AdminHandler) Status(c *gin.Context) {
	report, err := h.svc.Status(c.Request.Context(), c.Param("communityId"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toStatusResponse(report))
}

// Diagnostics runs the configuration sanity check
func (h *AdminHandler) Diagnostics(c *gin.Context) {
	d, err := h.svc.Diagnose(c.Request.Context(), c.Param("communityId"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDiagnosticsResponse(d))
}

// FollowUps lists scheduled follow-ups
func (h *AdminHandler) FollowUps(c *gin.Context) {
	c.JSON(http.StatusOK, toFollowUpResponses(h.svc.PendingFollowUps(c.Param("communityId"))))
}

// Events lists recent lifecycle events
func (h *AdminHandler) Events(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Event history requires Redis"})
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	events, err := h.history.RecentEvents(c.Request.Context(), c.Param("communityId"), limit)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toEventResponses(events))
}

// DeleteChannel removes an onboarding channel
func (h *AdminHandler) DeleteChannel(c *gin.Context) {
	ch, err := h.svc.DeleteOnboardingChannel(c.Request.Context(), c.Param("channelId"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	if ch.CommunityID != c.Param("communityId") {
		log.Printf("⚠️ [Admin] Channel %s belonged to %s, not %s", ch.ID, ch.CommunityID, c.Param("communityId"))
	}
	log.Printf("✅ [Admin] %s deleted channel %s", middleware.GetOperator(c), ch.Name)
	c.JSON(http.StatusOK, models.DeleteChannelResponse{ChannelID: ch.ID, Name: ch.Name})
}

// CleanupDuplicates removes duplicate onboarding channels
func (h *AdminHandler) CleanupDuplicates(c *gin.Context) {
	removed, err := h.svc.CleanupDuplicates(c.Request.Context(), c.Param("communityId"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	log.Printf("✅ [Admin] %s removed %d duplicate channel(s)", middleware.GetOperator(c), removed)
	c.JSON(http.StatusOK, models.CleanupResponse{Removed: removed})
}

// Onboard runs the join lifecycle for an existing member
func (h *AdminHandler) Onboard(c *gin.Context) {
	memberID := c.Param("memberId")
	outcome, err := h.svc.TriggerOnboarding(c.Request.Context(), c.Param("communityId"), memberID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.OnboardResponse{MemberID: memberID, Outcome: string(outcome)})
}

// FollowUp sends a member's follow-up now
func (h *AdminHandler) FollowUp(c *gin.Context) {
	if err := h.svc.TriggerFollowUp(c.Request.Context(), c.Param("communityId"), c.Param("memberId")); err != nil {
		handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetHelperRole returns the current helper role name
func (h *AdminHandler) GetHelperRole(c *gin.Context) {
	c.JSON(http.StatusOK, models.HelperRoleResponse{Name: h.svc.HelperRoleName()})
}

// SetHelperRole changes the helper role name
func (h *AdminHandler) SetHelperRole(c *gin.Context) {
	var req models.HelperRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.SetHelperRoleName(req.Name); err != nil {
		handleServiceError(c, err)
		return
	}
	log.Printf("✅ [Admin] %s set helper role to %q", middleware.GetOperator(c), req.Name)
	c.JSON(http.StatusOK, models.HelperRoleResponse{Name: h.svc.HelperRoleName()})
}

// RunJob triggers a scheduled job
func (h *AdminHandler) RunJob(c *gin.Context) {
	if h.jobs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Scheduler not running"})
		return
	}
	job := c.Param("job")
	if !h.jobs.ManualTrigger(job) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown job"})
		return
	}
	c.JSON(http.StatusAccepted, models.JobResponse{Job: job, Triggered: time.Now()})
}
