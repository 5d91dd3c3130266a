package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"vocab-api/internal/database"
	"vocab-api/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger(t *testing.T) (*EntitlementLedger, *fakeClock, *recordingAlerter) {
	db := openTestDB(t)
	clock := &fakeClock{t: time.Date(2025, 1, 10, 9, 30, 0, 0, time.UTC)}
	alerter := &recordingAlerter{}
	ledger := NewEntitlementLedger(db, alerter)
	ledger.now = clock.Now
	return ledger, clock, alerter
}

func TestApplyPaymentScenarioStacksOntoRemainingDays(t *testing.T) {
	ledger, clock, _ := newTestLedger(t)
	ctx := context.Background()
	user := seedUser(t, ledger.db, "a@example.com")

	seedOrder(t, ledger.db, user.ID, "3months_1", "3months", 129, models.OrderPending)
	update, err := ledger.ApplyPayment(ctx, "3months_1")
	require.NoError(t, err)
	assert.True(t, update.Applied)
	assert.Equal(t, 90, update.Subscription.RemainingDays)
	assert.Equal(t, models.SubscriptionActive, update.Subscription.Status)

	clock.Advance(2 * models.Day)
	seedOrder(t, ledger.db, user.ID, "6months_1", "6months", 219, models.OrderPending)
	update, err = ledger.ApplyPayment(ctx, "6months_1")
	require.NoError(t, err)
	assert.Equal(t, 268, update.Subscription.RemainingDays)
	assert.Equal(t, 180, update.DaysAdded)
	assert.Equal(t, "6months", update.Subscription.CurrentPlan)

	history, err := database.GetPurchaseHistory(ledger.db, user.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "3months", history[0].Plan)
	assert.Equal(t, 90, history[0].DaysAdded)
	assert.Equal(t, "6 Months Plan", history[1].PlanName)
	assert.Equal(t, 219, history[1].Price)
}

func TestApplyPaymentPartialDayIsNotGrantedBack(t *testing.T) {
	ledger, clock, _ := newTestLedger(t)
	ctx := context.Background()
	user := seedUser(t, ledger.db, "a@example.com")
	start := clock.Now()

	seedOrder(t, ledger.db, user.ID, "3months_1", "3months", 129, models.OrderPending)
	_, err := ledger.ApplyPayment(ctx, "3months_1")
	require.NoError(t, err)

	clock.Advance(36 * time.Hour)
	seedOrder(t, ledger.db, user.ID, "6months_1", "6months", 219, models.OrderPending)
	update, err := ledger.ApplyPayment(ctx, "6months_1")
	require.NoError(t, err)
	assert.Equal(t, 269, update.Subscription.RemainingDays)
	require.NotNil(t, update.Subscription.ExpiresAt)
	assert.True(t, start.Add(270*models.Day).Equal(*update.Subscription.ExpiresAt))
}

func TestApplyPaymentStackingIgnoresSpacing(t *testing.T) {
	ledger, clock, _ := newTestLedger(t)
	ctx := context.Background()
	user := seedUser(t, ledger.db, "a@example.com")
	start := clock.Now()

	amounts := []int{1, 129, 349, 219, 1}
	gaps := []time.Duration{0, 3*time.Hour + 17*time.Minute, 40 * models.Day, 5 * time.Minute, 200 * models.Day}
	total := 0
	for i, amount := range amounts {
		clock.Advance(gaps[i])
		id := fmt.Sprintf("order_%d", i)
		seedOrder(t, ledger.db, user.ID, id, "any", amount, models.OrderInitiated)
		_, err := ledger.ApplyPayment(ctx, id)
		require.NoError(t, err)
		days, _ := DaysForAmount(amount)
		total += days
	}

	reloaded, err := database.GetUserByID(ledger.db, user.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.Subscription.ExpiresAt)
	assert.True(t, start.Add(time.Duration(total)*models.Day).Equal(*reloaded.Subscription.ExpiresAt))
	assert.Equal(t, int64(len(amounts)), reloaded.Subscription.LedgerVersion)
}

func TestApplyPaymentIsIdempotent(t *testing.T) {
	ledger, clock, _ := newTestLedger(t)
	ctx := context.Background()
	user := seedUser(t, ledger.db, "a@example.com")
	seedOrder(t, ledger.db, user.ID, "trial_1", "trial", 1, models.OrderPending)

	first, err := ledger.ApplyPayment(ctx, "trial_1")
	require.NoError(t, err)
	clock.Advance(time.Hour)
	second, err := ledger.ApplyPayment(ctx, "trial_1")
	require.NoError(t, err)

	assert.True(t, first.Applied)
	assert.False(t, second.Applied)
	assert.True(t, first.Subscription.ExpiresAt.Equal(*second.Subscription.ExpiresAt))
	assert.Equal(t, first.Subscription.LedgerVersion, second.Subscription.LedgerVersion)

	history, err := database.GetPurchaseHistory(ledger.db, user.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestApplyPaymentConcurrentCallersApplyOnce(t *testing.T) {
	ledger, _, _ := newTestLedger(t)
	user := seedUser(t, ledger.db, "a@example.com")
	seedOrder(t, ledger.db, user.ID, "1year_1", "1year", 349, models.OrderPending)

	var wg sync.WaitGroup
	var mu sync.Mutex
	applied := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			update, err := ledger.ApplyPayment(context.Background(), "1year_1")
			if err != nil {
				t.Error(err)
				return
			}
			if update.Applied {
				mu.Lock()
				applied++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, applied)
	reloaded, err := database.GetUserByID(ledger.db, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 365, reloaded.Subscription.RemainingDays)
}

func TestApplyPaymentUnmappedAmountIsConservativeAndAlerts(t *testing.T) {
	ledger, _, alerter := newTestLedger(t)
	user := seedUser(t, ledger.db, "a@example.com")
	seedOrder(t, ledger.db, user.ID, "odd_1", "3months", 199, models.OrderPending)

	update, err := ledger.ApplyPayment(context.Background(), "odd_1")
	require.NoError(t, err)
	assert.Equal(t, FallbackDays, update.DaysAdded)
	assert.True(t, update.UnmappedAmount)
	assert.Equal(t, []string{AlertUnmappedAmount}, alerter.events())
}

func TestApplyPaymentAfterLapseStartsFromNow(t *testing.T) {
	ledger, clock, _ := newTestLedger(t)
	ctx := context.Background()
	user := seedUser(t, ledger.db, "a@example.com")

	seedOrder(t, ledger.db, user.ID, "trial_1", "trial", 1, models.OrderPending)
	_, err := ledger.ApplyPayment(ctx, "trial_1")
	require.NoError(t, err)

	clock.Advance(30 * models.Day)
	seedOrder(t, ledger.db, user.ID, "3months_1", "3months", 129, models.OrderPending)
	update, err := ledger.ApplyPayment(ctx, "3months_1")
	require.NoError(t, err)
	assert.True(t, clock.Now().Add(90*models.Day).Equal(*update.Subscription.ExpiresAt))
	assert.Equal(t, 90, update.Subscription.RemainingDays)
}

func TestApplyPaymentRejectsFailedOrder(t *testing.T) {
	ledger, _, _ := newTestLedger(t)
	user := seedUser(t, ledger.db, "a@example.com")
	seedOrder(t, ledger.db, user.ID, "trial_1", "trial", 1, models.OrderFailed)

	_, err := ledger.ApplyPayment(context.Background(), "trial_1")
	assert.True(t, errors.Is(err, ErrIllegalTransition))

	reloaded, err := database.GetUserByID(ledger.db, user.ID)
	require.NoError(t, err)
	assert.Nil(t, reloaded.Subscription.ExpiresAt)
	assert.Equal(t, int64(0), reloaded.Subscription.LedgerVersion)
}

func TestApplyPaymentUnknownOrder(t *testing.T) {
	ledger, _, _ := newTestLedger(t)
	_, err := ledger.ApplyPayment(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrOrderNotFound))
}

func TestRefreshPersistsExpiry(t *testing.T) {
	ledger, clock, _ := newTestLedger(t)
	ctx := context.Background()
	user := seedUser(t, ledger.db, "a@example.com")
	seedOrder(t, ledger.db, user.ID, "trial_1", "trial", 1, models.OrderPending)
	_, err := ledger.ApplyPayment(ctx, "trial_1")
	require.NoError(t, err)

	clock.Advance(7*models.Day + time.Millisecond)
	loaded, err := database.GetUserByID(ledger.db, user.ID)
	require.NoError(t, err)
	require.NoError(t, ledger.Refresh(ctx, loaded))
	assert.Equal(t, models.SubscriptionExpired, loaded.Subscription.Status)
	assert.Equal(t, 0, loaded.Subscription.RemainingDays)

	reloaded, err := database.GetUserByID(ledger.db, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionExpired, reloaded.Subscription.Status)
	assert.Equal(t, int64(2), reloaded.Subscription.LedgerVersion)
}

func TestRefreshLosesToConcurrentLedgerWrite(t *testing.T) {
	ledger, clock, _ := newTestLedger(t)
	ctx := context.Background()
	user := seedUser(t, ledger.db, "a@example.com")
	seedOrder(t, ledger.db, user.ID, "trial_1", "trial", 1, models.OrderPending)
	_, err := ledger.ApplyPayment(ctx, "trial_1")
	require.NoError(t, err)

	clock.Advance(8 * models.Day)
	stale, err := database.GetUserByID(ledger.db, user.ID)
	require.NoError(t, err)

	// a purchase lands between the read and the refresh
	seedOrder(t, ledger.db, user.ID, "3months_1", "3months", 129, models.OrderPending)
	_, err = ledger.ApplyPayment(ctx, "3months_1")
	require.NoError(t, err)

	require.NoError(t, ledger.Refresh(ctx, stale))
	assert.Equal(t, models.SubscriptionActive, stale.Subscription.Status)
	assert.Equal(t, 90, stale.Subscription.RemainingDays)
}
