package models

import (
	"fmt"
	"time"
)

// DefaultFollowUpIntervals is used when a campaign is created without an
// explicit interval list.
var DefaultFollowUpIntervals = []int{2, 5, 10}

// Campaign groups leads under a shared follow-up schedule and sender identity.
// The scheduler never reads campaigns at run time; intervals are copied onto
// each lead's follow-up steps at initial send.
type Campaign struct {
	ID                string `json:"id"`
	UserID            string `json:"user_id"`
	Name              string `json:"name" binding:"required"`
	FollowUpIntervals []int  `json:"followUpIntervals"` // ordered day offsets
	SenderName        string `json:"senderName"`
	SenderCompany     string `json:"senderCompany"`
	CreatedAt         int64  `json:"createdAt"`

	// Aggregates loaded separately, not stored on the campaign row
	TotalLeads  int `json:"totalLeads"`
	SentCount   int `json:"sentCount"`
	OpenedCount int `json:"openedCount"`
}

// NewCampaign creates a campaign with defaulted sender identity and intervals
func NewCampaign(userID, name, senderName, senderCompany string, intervals []int) *Campaign {
	if len(intervals) == 0 {
		intervals = append([]int{}, DefaultFollowUpIntervals...)
	}
	if senderName == "" {
		senderName = "Unknown"
	}
	if senderCompany == "" {
		senderCompany = "Unknown"
	}
	return &Campaign{
		ID:                fmt.Sprintf("campaign_%d", time.Now().UnixMilli()),
		UserID:            userID,
		Name:              name,
		FollowUpIntervals: intervals,
		SenderName:        senderName,
		SenderCompany:     senderCompany,
		CreatedAt:         time.Now().Unix(),
	}
}

// CreateCampaignRequest represents the request body for creating a campaign
type CreateCampaignRequest struct {
	Name              string `json:"name" binding:"required"`
	FollowUpIntervals []int  `json:"followUpIntervals"`
	SenderName        string `json:"senderName"`
	SenderCompany     string `json:"senderCompany"`
	UserEmail         string `json:"userEmail"`
}
