package database

import (
	"testing"
	"time"

	"vocab-api/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Connect("", MemoryDSN(t.Name()))
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func createUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{Name: "Asha", Email: email, PasswordHash: "x"}
	require.NoError(t, CreateUser(db, user))
	return user
}

func TestCreateUserNormalizesEmail(t *testing.T) {
	db := openTestDB(t)
	createUser(t, db, "  Asha@Example.COM ")

	user, err := GetUserByEmail(db, "asha@example.com")
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", user.Email)
	assert.Equal(t, models.SubscriptionInactive, user.Subscription.Status)

	_, err = GetUserByEmail(db, "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveSubscriptionIsVersionGuarded(t *testing.T) {
	db := openTestDB(t)
	user := createUser(t, db, "asha@example.com")

	expires := time.Now().Add(5 * models.Day)
	sub := models.Subscription{CurrentPlan: "trial", Status: models.SubscriptionActive, ExpiresAt: &expires, RemainingDays: 5}

	ok, err := SaveSubscription(db, user.ID, sub, 0)
	require.NoError(t, err)
	assert.True(t, ok)

	// a stale writer loses
	ok, err = SaveSubscription(db, user.ID, models.Subscription{Status: models.SubscriptionInactive}, 0)
	require.NoError(t, err)
	assert.False(t, ok)

	reloaded, err := GetUserByID(db, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), reloaded.Subscription.LedgerVersion)
	assert.Equal(t, "trial", reloaded.Subscription.CurrentPlan)
}

func TestTransitionOrderOnlyFromExpectedStates(t *testing.T) {
	db := openTestDB(t)
	user := createUser(t, db, "asha@example.com")
	require.NoError(t, CreateOrder(db, &models.Order{UserID: user.ID, MerchantTransactionID: "m1", Plan: "trial", Amount: 1, Status: models.OrderPending}))

	ok, err := TransitionOrder(db, "m1", []string{models.OrderInitiated, models.OrderPending}, models.OrderSuccess, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = TransitionOrder(db, "m1", []string{models.OrderInitiated, models.OrderPending}, models.OrderFailed, map[string]interface{}{"failure_reason": "late"})
	require.NoError(t, err)
	assert.False(t, ok)

	order, err := GetOrderByMerchantID(db, "m1")
	require.NoError(t, err)
	assert.Equal(t, models.OrderSuccess, order.Status)
	assert.Empty(t, order.FailureReason)
}

func TestRecordWebhookEventOncePerType(t *testing.T) {
	db := openTestDB(t)
	user := createUser(t, db, "asha@example.com")
	order := &models.Order{UserID: user.ID, MerchantTransactionID: "m1", Plan: "trial", Amount: 1, Status: models.OrderPending}
	require.NoError(t, CreateOrder(db, order))

	inserted, err := RecordWebhookEvent(db, &models.WebhookEvent{OrderID: order.ID, EventType: "payment_success", Processed: true})
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = RecordWebhookEvent(db, &models.WebhookEvent{OrderID: order.ID, EventType: "payment_success", Processed: true})
	require.NoError(t, err)
	assert.False(t, inserted)

	events, err := ListWebhookEvents(db, order.ID)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestPracticeQueueDeduplicates(t *testing.T) {
	db := openTestDB(t)
	user := createUser(t, db, "asha@example.com")

	created, err := AddPracticeItem(db, &models.PracticeItem{UserID: user.ID, Term: "Ubiquitous", Source: "synonyms"})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = AddPracticeItem(db, &models.PracticeItem{UserID: user.ID, Term: "Ubiquitous", Source: "ows"})
	require.NoError(t, err)
	assert.False(t, created)

	items, err := ListPracticeItems(db, user.ID)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	removed, err := RemovePracticeItem(db, user.ID, "Ubiquitous")
	require.NoError(t, err)
	assert.True(t, removed)

	_, err = AddPracticeItem(db, &models.PracticeItem{UserID: user.ID, Term: "Ubiquitous"})
	require.NoError(t, err)
	_, err = AddPracticeItem(db, &models.PracticeItem{UserID: user.ID, Term: "Ephemeral"})
	require.NoError(t, err)
	cleared, err := ClearPracticeQueue(db, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), cleared)
}

func TestListStalePendingOrders(t *testing.T) {
	db := openTestDB(t)
	user := createUser(t, db, "asha@example.com")
	require.NoError(t, CreateOrder(db, &models.Order{UserID: user.ID, MerchantTransactionID: "old", Plan: "trial", Amount: 1, Status: models.OrderPending}))
	require.NoError(t, CreateOrder(db, &models.Order{UserID: user.ID, MerchantTransactionID: "done", Plan: "trial", Amount: 1, Status: models.OrderSuccess}))

	now := time.Now()
	orders, err := ListStalePendingOrders(db, now.Add(-time.Hour), now.Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "old", orders[0].MerchantTransactionID)
}
