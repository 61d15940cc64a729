package model

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// BillingEvent is an audit row for every verified webhook delivery.
// StripeEventID is unique so redeliveries insert nothing new.
type BillingEvent struct {
	gorm.Model
	StripeEventID string         `json:"stripe_event_id" gorm:"uniqueIndex;not null"`
	Type          string         `json:"type" gorm:"index"`
	Payload       datatypes.JSON `json:"payload"`
}
