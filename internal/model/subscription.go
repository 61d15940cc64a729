package model

import (
	"time"

	"gorm.io/gorm"
)

// Plan is a purchasable subscription plan mapped to a Stripe price.
type Plan struct {
	gorm.Model
	Name            string  `json:"name" gorm:"not null"`
	Description     string  `json:"description"`
	Price           float64 `json:"price" gorm:"not null"`
	Interval        string  `json:"interval" gorm:"default:'month'"`
	UserType        string  `json:"user_type" gorm:"not null;default:'patient'"`
	TrialDays       int     `json:"trial_days" gorm:"default:0"`
	StripeProductID string  `json:"stripe_product_id"`
	StripePriceID   string  `json:"stripe_price_id" gorm:"uniqueIndex"`
	Active          bool    `json:"active" gorm:"default:true"`
}

// Subscription mirrors one Stripe subscription. Stripe owns the state;
// rows here are overwritten on every webhook or manual sync, keyed by
// StripeSubscriptionID. Rows are never hard-deleted.
type Subscription struct {
	gorm.Model
	UserID               uint       `json:"user_id" gorm:"index;not null"`
	UserType             string     `json:"user_type" gorm:"default:'patient'"`
	StripeCustomerID     string     `json:"stripe_customer_id"`
	StripeSubscriptionID string     `json:"stripe_subscription_id" gorm:"uniqueIndex;not null"`
	Status               string     `json:"status" gorm:"default:'inactive'"`
	StripePriceID        string     `json:"stripe_price_id"`
	CurrentPeriodStart   *time.Time `json:"current_period_start"`
	CurrentPeriodEnd     *time.Time `json:"current_period_end"`
	TrialStart           *time.Time `json:"trial_start"`
	TrialEnd             *time.Time `json:"trial_end"`
	CancelAtPeriodEnd    bool       `json:"cancel_at_period_end" gorm:"default:false"`
	CanceledAt           *time.Time `json:"canceled_at"`

	// Stripe event timestamp of the last applied update. Older events
	// are skipped so out-of-order deliveries cannot regress the mirror.
	LastEventAt *time.Time `json:"-"`

	User User `json:"-" gorm:"foreignKey:UserID"`
}

// Trial is a patient's one-time free-trial window. One row per patient;
// once TrialUsed is set it is never reset.
type Trial struct {
	gorm.Model
	UserID               uint       `json:"user_id" gorm:"uniqueIndex;not null"`
	TrialStart           *time.Time `json:"trial_start"`
	TrialEnd             *time.Time `json:"trial_end"`
	TrialUsed            bool       `json:"trial_used" gorm:"default:false"`
	StripeSubscriptionID string     `json:"stripe_subscription_id"`

	User User `json:"-" gorm:"foreignKey:UserID"`
}
