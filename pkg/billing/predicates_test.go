package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ValenBorras/nutritional-coach-sub001/internal/model"
)

func TestPredicates_NoRows(t *testing.T) {
	db := testDB(t)
	now := time.Now()

	active, err := HasActiveSubscription(db, 42, now)
	require.NoError(t, err)
	assert.False(t, active)

	trial, err := HasActiveTrial(db, 42, now)
	require.NoError(t, err)
	assert.False(t, trial)

	days, err := TrialDaysRemaining(db, 42, now)
	require.NoError(t, err)
	assert.Equal(t, 0, days)
}

func TestHasActiveSubscription_CanceledKeepsAccessUntilPeriodEnd(t *testing.T) {
	db := testDB(t)
	now := time.Now()

	periodEnd := now.AddDate(0, 0, 10)
	require.NoError(t, db.Create(&model.Subscription{
		UserID:               1,
		StripeSubscriptionID: "sub_cape",
		Status:               StatusCanceled,
		CancelAtPeriodEnd:    true,
		CurrentPeriodEnd:     &periodEnd,
	}).Error)

	active, err := HasActiveSubscription(db, 1, now)
	require.NoError(t, err)
	assert.True(t, active, "canceled at period end still grants access while the period runs")

	active, err = HasActiveSubscription(db, 1, periodEnd.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, active, "access ends once the paid period has passed")
}

func TestHasActiveSubscription_PlainCanceledDeniesAccess(t *testing.T) {
	db := testDB(t)
	now := time.Now()

	periodEnd := now.AddDate(0, 0, 10)
	require.NoError(t, db.Create(&model.Subscription{
		UserID:               1,
		StripeSubscriptionID: "sub_done",
		Status:               StatusCanceled,
		CancelAtPeriodEnd:    false,
		CurrentPeriodEnd:     &periodEnd,
	}).Error)

	active, err := HasActiveSubscription(db, 1, now)
	require.NoError(t, err)
	assert.False(t, active)
}

func TestHasActiveTrial_SuppressedByPaidSubscription(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	end := now.AddDate(0, 0, 5)

	require.NoError(t, db.Create(&model.Trial{
		UserID:    6,
		TrialEnd:  &end,
		TrialUsed: true,
	}).Error)

	// Trialing subscription does not suppress the trial window.
	require.NoError(t, db.Create(&model.Subscription{
		UserID:               6,
		StripeSubscriptionID: "sub_t",
		Status:               StatusTrialing,
	}).Error)

	active, err := HasActiveTrial(db, 6, now)
	require.NoError(t, err)
	assert.True(t, active)

	// A fully active (paid) subscription does.
	require.NoError(t, db.Create(&model.Subscription{
		UserID:               6,
		StripeSubscriptionID: "sub_p",
		Status:               StatusActive,
	}).Error)

	active, err = HasActiveTrial(db, 6, now)
	require.NoError(t, err)
	assert.False(t, active)
}

func TestHasActiveTrial_ExpiredWindow(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	end := now.AddDate(0, 0, -1)

	require.NoError(t, db.Create(&model.Trial{
		UserID:    8,
		TrialEnd:  &end,
		TrialUsed: true,
	}).Error)

	active, err := HasActiveTrial(db, 8, now)
	require.NoError(t, err)
	assert.False(t, active)
}
