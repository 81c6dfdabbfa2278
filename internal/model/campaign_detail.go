// internal/model/campaign_detail.go
package model

import "time"

// Delivery statuses of a campaign detail.
const (
	DetailStatusPending   = "Pending"
	DetailStatusSent      = "Sent"
	DetailStatusFailed    = "Failed"
	DetailStatusDelivered = "Delivered"
	DetailStatusRead      = "Read"
)

// DetailStatuses lists every valid delivery status.
var DetailStatuses = []string{
	DetailStatusPending,
	DetailStatusSent,
	DetailStatusFailed,
	DetailStatusDelivered,
	DetailStatusRead,
}

// CampaignDetail is one rendered message per campaign recipient, created at
// most once per recipient.
type CampaignDetail struct {
	ID         string     `db:"id" json:"id"`
	CampaignID string     `db:"campaign_id" json:"campaign_id"`
	Name       string     `db:"name" json:"name"`
	Recipient  string     `db:"recipient" json:"recipient"`
	Region     string     `db:"region" json:"region"`
	Message    string     `db:"message" json:"message"`
	Status     string     `db:"status" json:"status"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}
