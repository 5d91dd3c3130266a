package services

import (
	"context"
	"testing"
	"time"

	"vocab-api/internal/database"
	"vocab-api/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcileSettlesStaleOrders(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()
	seedOrder(t, f.svc.db, f.user.ID, "3months_paid", "3months", 129, models.OrderPending)
	seedOrder(t, f.svc.db, f.user.ID, "trial_failed", "trial", 1, models.OrderPending)
	seedOrder(t, f.svc.db, f.user.ID, "trial_waiting", "trial", 1, models.OrderPending)
	f.gateway.setState("3months_paid", GatewayStateSuccess)
	f.gateway.setState("trial_failed", GatewayStateFailed)

	r := NewReconciler(f.svc.db, f.svc)
	r.now = func() time.Time { return time.Now().Add(10 * time.Minute) }

	settled, err := r.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, settled)

	user, err := database.GetUserByID(f.svc.db, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 90, user.Subscription.RemainingDays)

	waiting, err := database.GetOrderByMerchantID(f.svc.db, "trial_waiting")
	require.NoError(t, err)
	assert.Equal(t, models.OrderPending, waiting.Status)
}

func TestReconcileIgnoresFreshOrders(t *testing.T) {
	f := newPaymentFixture(t)
	seedOrder(t, f.svc.db, f.user.ID, "trial_new", "trial", 1, models.OrderPending)
	f.gateway.setState("trial_new", GatewayStateSuccess)

	settled, err := NewReconciler(f.svc.db, f.svc).Reconcile(context.Background())
	require.NoError(t, err)
	assert.Zero(t, settled)
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	s := NewScheduler()
	assert.Error(t, s.AddJob("broken", "not a spec", func() {}))
	assert.NoError(t, s.AddJob("noop", "@every 1h", func() {}))
	s.Start()
	<-s.Stop().Done()
}
