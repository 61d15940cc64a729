package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"active", StatusActive},
		{"trialing", StatusTrialing},
		{"past_due", StatusPastDue},
		{"canceled", StatusCanceled},
		{"inactive", StatusInactive},
		{"unpaid", StatusPastDue},
		{"incomplete", StatusInactive},
		{"incomplete_expired", StatusInactive},
		{"paused", StatusInactive},
		{"", StatusInactive},
		{"something_new_from_stripe", StatusInactive},
		{"ACTIVE", StatusInactive},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeStatus(tt.raw))
		})
	}
}

func TestNormalizeStatus_Total(t *testing.T) {
	known := map[string]bool{
		StatusActive:   true,
		StatusTrialing: true,
		StatusPastDue:  true,
		StatusCanceled: true,
		StatusInactive: true,
	}

	inputs := []string{
		"active", "trialing", "past_due", "canceled", "inactive",
		"unpaid", "incomplete", "incomplete_expired", "paused",
		"", "garbage", "trialing ", "past-due", "deleted", "x",
	}
	for _, in := range inputs {
		got := NormalizeStatus(in)
		assert.True(t, known[got], "input %q mapped outside the enumeration: %q", in, got)
	}
}

func TestIsActiveLike(t *testing.T) {
	assert.True(t, IsActiveLike(StatusActive))
	assert.True(t, IsActiveLike(StatusTrialing))
	assert.True(t, IsActiveLike(StatusPastDue))
	assert.False(t, IsActiveLike(StatusCanceled))
	assert.False(t, IsActiveLike(StatusInactive))
	assert.False(t, IsActiveLike("unpaid"))
}

func TestTrialDaysLeft(t *testing.T) {
	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	end := t0.AddDate(0, 0, 15)

	assert.Equal(t, 15, TrialDaysLeft(end, t0))
	assert.Equal(t, 1, TrialDaysLeft(end, t0.AddDate(0, 0, 14)))
	assert.Equal(t, 0, TrialDaysLeft(end, end))
	assert.Equal(t, 0, TrialDaysLeft(end, end.Add(time.Hour)))
	assert.Equal(t, 0, TrialDaysLeft(end, end.AddDate(0, 0, 30)))
}

func TestTrialDaysLeft_Monotonic(t *testing.T) {
	end := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	now := end.AddDate(0, 0, -20)

	prev := TrialDaysLeft(end, now)
	for i := 0; i < 25*4; i++ {
		now = now.Add(6 * time.Hour)
		got := TrialDaysLeft(end, now)
		assert.LessOrEqual(t, got, prev, "days remaining increased as time advanced")
		prev = got
	}
	assert.Equal(t, 0, prev)
}
