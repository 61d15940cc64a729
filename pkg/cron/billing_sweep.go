package cron

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ValenBorras/nutritional-coach-sub001/internal/model"
	"github.com/ValenBorras/nutritional-coach-sub001/pkg/billing"
	"github.com/ValenBorras/nutritional-coach-sub001/pkg/database"
	"github.com/ValenBorras/nutritional-coach-sub001/pkg/email"
)

// Grace window before an active-like row with a long-past period end is
// considered stale. The mirror never expires rows itself; staleness only
// means webhook processing should be checked.
const staleMirrorWindow = 48 * time.Hour

func InitBillingSweepCron() {
	c := cron.New()

	_, err := c.AddFunc("0 9 * * *", func() {
		warnEndingTrials()
		logStaleMirrors()
	})

	if err != nil {
		log.Printf("Could not initialize billing sweep cron: %v", err)
		return
	}

	c.Start()
}

func warnEndingTrials() {
	log.Println("Checking for ending trials...")

	warningDays := []int{3, 1}

	for _, days := range warningDays {
		var trials []model.Trial
		from := time.Now().AddDate(0, 0, days)
		to := from.Add(24 * time.Hour)

		err := database.GetDB().
			Where("trial_used = ? AND trial_end >= ? AND trial_end < ?", true, from, to).
			Preload("User").
			Find(&trials).Error
		if err != nil {
			log.Printf("Error fetching ending trials: %v", err)
			continue
		}

		log.Printf("Found %d trials ending in %d days", len(trials), days)

		for _, trial := range trials {
			if email.GlobalEmailService == nil || trial.TrialEnd == nil {
				continue
			}

			// Skip patients who already converted to a paid plan.
			active, err := billing.HasActiveSubscription(database.GetDB(), trial.UserID, time.Now())
			if err != nil {
				log.Printf("Error checking subscription for user %d: %v", trial.UserID, err)
				continue
			}
			if active {
				continue
			}

			err = email.GlobalEmailService.SendTrialEndingEmail(
				trial.User.Email,
				trial.User.Name,
				days,
				*trial.TrialEnd,
			)
			if err != nil {
				log.Printf("Error sending trial warning to %s: %v", trial.User.Email, err)
			} else {
				log.Printf("Sent trial warning to %s (%d days left)", trial.User.Email, days)
			}
		}
	}
}

func logStaleMirrors() {
	cutoff := time.Now().Add(-staleMirrorWindow)

	var subs []model.Subscription
	err := database.GetDB().
		Where("status IN ? AND current_period_end IS NOT NULL AND current_period_end < ?",
			billing.ActiveLikeStatuses, cutoff).
		Find(&subs).Error
	if err != nil {
		log.Printf("Error scanning for stale subscription mirrors: %v", err)
		return
	}

	for _, sub := range subs {
		log.Printf("Stale subscription mirror: %s (user %d, status %s, period ended %s) - check webhook delivery",
			sub.StripeSubscriptionID, sub.UserID, sub.Status, sub.CurrentPeriodEnd.Format(time.RFC3339))
	}
}
