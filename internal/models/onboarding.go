package models

import "time"

// ============================================
// Status DTOs
// ============================================

type RegistryStatsResponse struct {
	Processing int `json:"processing"`
	Recent     int `json:"recent"`
	Pending    int `json:"pending"`
	Prompts    int `json:"prompts"`
}

type StatusResponse struct {
	CommunityID      string                `json:"communityId"`
	CommunityName    string                `json:"communityName"`
	MemberCount      int                   `json:"memberCount"`
	HelperRole       string                `json:"helperRole"`
	HelperRoleFound  bool                  `json:"helperRoleFound"`
	HelperCount      int                   `json:"helperCount"`
	PendingFollowUps int                   `json:"pendingFollowUps"`
	Registry         RegistryStatsResponse `json:"registry"`
}

type DiagnosticsResponse struct {
	Healthy         bool   `json:"healthy"`
	HelperRole      string `json:"helperRole"`
	HelperRoleFound bool   `json:"helperRoleFound"`
	Category        string `json:"category,omitempty"`
	CategoryFound   bool   `json:"categoryFound"`
	ManageChannels  bool   `json:"manageChannels"`
}

type FollowUpResponse struct {
	MemberID  string    `json:"memberId"`
	ChannelID string    `json:"channelId"`
	DueAt     time.Time `json:"dueAt"`
}

type EventResponse struct {
	Type      string    `json:"type"`
	MemberID  string    `json:"memberId,omitempty"`
	ChannelID string    `json:"channelId,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	At        time.Time `json:"at"`
}

// ============================================
// Admin operation DTOs
// ============================================

type HelperRoleRequest struct {
	Name string `json:"name" binding:"required"`
}

type HelperRoleResponse struct {
	Name string `json:"name"`
}

type DeleteChannelResponse struct {
	ChannelID string `json:"channelId"`
	Name      string `json:"name"`
}

type CleanupResponse struct {
	Removed int `json:"removed"`
}

type OnboardResponse struct {
	MemberID string `json:"memberId"`
	Outcome  string `json:"outcome"`
}

type JobResponse struct {
	Job       string    `json:"job"`
	Triggered time.Time `json:"triggered"`
}
