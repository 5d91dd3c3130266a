package services

import (
	"errors"
	"testing"

	"vocab-api/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDaysForAmount(t *testing.T) {
	cases := map[int]int{1: 7, 129: 90, 219: 180, 349: 365}
	for amount, days := range cases {
		got, ok := DaysForAmount(amount)
		assert.True(t, ok, "amount %d", amount)
		assert.Equal(t, days, got, "amount %d", amount)
	}

	got, ok := DaysForAmount(199)
	assert.False(t, ok)
	assert.Equal(t, FallbackDays, got)
}

func TestValidatePlan(t *testing.T) {
	plan, err := ValidatePlan("6months", 219)
	require.NoError(t, err)
	assert.Equal(t, 180, plan.Days)

	_, err = ValidatePlan("6months", 199)
	assert.True(t, errors.Is(err, errAmountMismatch))

	_, err = ValidatePlan("lifetime", 999)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeInvalidPlan, appErr.Code)

	_, err = ValidatePlan("", 0)
	assert.True(t, errors.Is(err, errPlanAmountRequired))
}

func TestPlansSortedByPrice(t *testing.T) {
	plans := Plans()
	require.Len(t, plans, 4)
	assert.Equal(t, "trial", plans[0].ID)
	assert.Equal(t, "1year", plans[3].ID)
}
