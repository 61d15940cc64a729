package billing

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/stripe/stripe-go/v74"
	"gorm.io/gorm"

	"github.com/ValenBorras/nutritional-coach-sub001/internal/model"
)

// ErrMalformed marks subscription objects that cannot be attributed to a
// user. The webhook boundary rejects these instead of defaulting.
var ErrMalformed = errors.New("malformed subscription object")

// SyncStripeSubscription upserts the local mirror of a Stripe subscription.
// Fully idempotent: replaying the same object converges to the same row.
// Events older than the row's last applied event are skipped so redeliveries
// cannot regress the mirror. eventTime is the Stripe event timestamp for
// webhook pushes, or the retrieval time for manual syncs.
func SyncStripeSubscription(db *gorm.DB, sub *stripe.Subscription, eventTime time.Time) (*model.Subscription, error) {
	if sub == nil || sub.ID == "" {
		return nil, fmt.Errorf("billing: missing subscription id: %w", ErrMalformed)
	}

	var row model.Subscription
	err := db.Where("stripe_subscription_id = ?", sub.ID).First(&row).Error
	isNew := false
	switch {
	case err == nil:
		if row.LastEventAt != nil && eventTime.Before(*row.LastEventAt) {
			log.Printf("Skipping stale billing event for subscription %s (%s < %s)",
				sub.ID, eventTime.Format(time.RFC3339), row.LastEventAt.Format(time.RFC3339))
			return &row, nil
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		isNew = true
		row = model.Subscription{StripeSubscriptionID: sub.ID}
	default:
		return nil, err
	}

	if uid := sub.Metadata["user_id"]; uid != "" {
		n, convErr := strconv.ParseUint(uid, 10, 64)
		if convErr != nil {
			return nil, fmt.Errorf("billing: invalid user_id metadata %q on subscription %s: %w", uid, sub.ID, ErrMalformed)
		}
		row.UserID = uint(n)
	}
	if row.UserID == 0 {
		return nil, fmt.Errorf("billing: subscription %s carries no user_id metadata: %w", sub.ID, ErrMalformed)
	}

	userType := sub.Metadata["user_type"]
	if userType == "" {
		userType = model.RolePatient
	}
	row.UserType = userType

	if sub.Customer != nil {
		row.StripeCustomerID = sub.Customer.ID
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		row.StripePriceID = sub.Items.Data[0].Price.ID
	}

	row.Status = NormalizeStatus(string(sub.Status))
	row.CurrentPeriodStart = unixPtr(sub.CurrentPeriodStart)
	row.CurrentPeriodEnd = unixPtr(sub.CurrentPeriodEnd)
	row.TrialStart = unixPtr(sub.TrialStart)
	row.TrialEnd = unixPtr(sub.TrialEnd)
	row.CancelAtPeriodEnd = sub.CancelAtPeriodEnd

	// Stripe does not always carry canceled_at on the final event.
	if row.Status == StatusCanceled && row.CanceledAt == nil {
		if t := unixPtr(sub.CanceledAt); t != nil {
			row.CanceledAt = t
		} else {
			now := time.Now()
			row.CanceledAt = &now
		}
	}

	row.LastEventAt = &eventTime

	if isNew {
		err = db.Create(&row).Error
	} else {
		err = db.Save(&row).Error
	}
	if err != nil {
		return nil, err
	}

	// Trial mirroring is best-effort relative to the subscription mirror:
	// a failure here is logged, not returned.
	if userType == model.RolePatient && row.TrialEnd != nil {
		if trialErr := upsertTrial(db, &row); trialErr != nil {
			log.Printf("Could not mirror trial for user %d (subscription %s): %v",
				row.UserID, row.StripeSubscriptionID, trialErr)
		}
	}

	return &row, nil
}

func upsertTrial(db *gorm.DB, sub *model.Subscription) error {
	var trial model.Trial
	err := db.Where("user_id = ?", sub.UserID).First(&trial).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		trial = model.Trial{UserID: sub.UserID}
	} else if err != nil {
		return err
	}

	trial.TrialStart = sub.TrialStart
	trial.TrialEnd = sub.TrialEnd
	trial.TrialUsed = true
	trial.StripeSubscriptionID = sub.StripeSubscriptionID

	if trial.ID == 0 {
		return db.Create(&trial).Error
	}
	return db.Save(&trial).Error
}

func unixPtr(sec int64) *time.Time {
	if sec == 0 {
		return nil
	}
	t := time.Unix(sec, 0)
	return &t
}
