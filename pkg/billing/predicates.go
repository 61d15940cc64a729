package billing

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/ValenBorras/nutritional-coach-sub001/internal/model"
)

// HasActiveSubscription reports whether the user holds a subscription row
// in an access-granting state. A row already marked canceled still counts
// while cancel_at_period_end is set and the paid period has not ended; the
// mirror does not expire rows on its own, the next webhook does.
func HasActiveSubscription(db *gorm.DB, userID uint, now time.Time) (bool, error) {
	var count int64
	if err := db.Model(&model.Subscription{}).
		Where("user_id = ? AND status IN ?", userID, ActiveLikeStatuses).
		Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return true, nil
	}

	var sub model.Subscription
	err := db.Where("user_id = ? AND status = ? AND cancel_at_period_end = ?",
		userID, StatusCanceled, true).
		Order("updated_at DESC").
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return sub.CurrentPeriodEnd != nil && sub.CurrentPeriodEnd.After(now), nil
}

// HasActiveTrial reports whether the user's trial window is still open.
// A trial only counts while the user has no fully active (paid)
// subscription; a trialing subscription does not suppress it.
func HasActiveTrial(db *gorm.DB, userID uint, now time.Time) (bool, error) {
	var trial model.Trial
	if err := db.Where("user_id = ?", userID).First(&trial).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	if trial.TrialEnd == nil || !trial.TrialEnd.After(now) {
		return false, nil
	}

	var paid int64
	if err := db.Model(&model.Subscription{}).
		Where("user_id = ? AND status = ?", userID, StatusActive).
		Count(&paid).Error; err != nil {
		return false, err
	}
	return paid == 0, nil
}

// TrialDaysRemaining returns the whole days left in the user's trial
// window, 0 when no trial row exists or the window has closed.
func TrialDaysRemaining(db *gorm.DB, userID uint, now time.Time) (int, error) {
	var trial model.Trial
	if err := db.Where("user_id = ?", userID).First(&trial).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	if trial.TrialEnd == nil {
		return 0, nil
	}
	return TrialDaysLeft(*trial.TrialEnd, now), nil
}
