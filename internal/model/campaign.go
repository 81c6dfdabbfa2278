// internal/model/campaign.go
package model

import "time"

const CampaignStatusCreated = "created"

// Recipient is one entry of a campaign's audience.
type Recipient struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// Campaign lives inside its owning account's store, never in the global one.
type Campaign struct {
	ID          string      `db:"id" json:"id"`
	Name        string      `db:"name" json:"name"`
	Recipients  []Recipient `db:"recipients" json:"recipients"`
	Status      string      `db:"status" json:"status"`
	Template    string      `db:"template" json:"template"`
	Schedule    *time.Time  `db:"schedule" json:"schedule,omitempty"`
	PhoneSender string      `db:"phone_sender" json:"phone_sender,omitempty"`
	CreatedBy   string      `db:"created_by" json:"created_by"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	DeletedAt   *time.Time  `db:"deleted_at" json:"deleted_at,omitempty"`
}
