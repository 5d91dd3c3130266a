package services

import (
	"context"
	"fmt"
	"time"

	"vocab-api/internal/database"
	"vocab-api/pkg/logging"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// Reconciler polls orders whose gateway outcome never reached us
type Reconciler struct {
	db       *gorm.DB
	payments *PaymentService
	minAge   time.Duration
	maxAge   time.Duration
	batch    int
	now      func() time.Time
}

// NewReconciler creates a reconciler for orders between 2 minutes and 48 hours old
func NewReconciler(db *gorm.DB, payments *PaymentService) *Reconciler {
	return &Reconciler{
		db:       db,
		payments: payments,
		minAge:   2 * time.Minute,
		maxAge:   48 * time.Hour,
		batch:    50,
		now:      time.Now,
	}
}

// Reconcile syncs one batch of stale orders and returns how many changed state
func (r *Reconciler) Reconcile(ctx context.Context) (int, error) {
	now := r.now()
	orders, err := database.ListStalePendingOrders(r.db.WithContext(ctx), now.Add(-r.maxAge), now.Add(-r.minAge), r.batch)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending orders: %w", err)
	}

	settled := 0
	for i := range orders {
		order := &orders[i]
		synced, err := r.payments.SyncOrder(ctx, order)
		if err != nil {
			logging.Warnf("Reconcile skipped order %s: %v", order.MerchantTransactionID, err)
			continue
		}
		if synced.Status != order.Status {
			settled++
			logging.Infof("Reconciled order %s: %s -> %s", order.MerchantTransactionID, order.Status, synced.Status)
		}
	}
	return settled, nil
}

// Run is the scheduled entry point
func (r *Reconciler) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	settled, err := r.Reconcile(ctx)
	if err != nil {
		logging.Errorf("Order reconciliation failed: %v", err)
		return
	}
	if settled > 0 {
		logging.Infof("Order reconciliation settled %d orders", settled)
	}
}

// Scheduler runs periodic maintenance jobs
type Scheduler struct {
	cron *cron.Cron
}

type cronLogger struct{}

func (cronLogger) Printf(format string, args ...interface{}) {
	logging.Infof(format, args...)
}

// NewScheduler creates a scheduler that recovers from job panics
func NewScheduler() *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithChain(cron.Recover(cron.PrintfLogger(cronLogger{})))),
	}
}

// AddJob registers a job on a cron spec such as "@every 5m"
func (s *Scheduler) AddJob(name, spec string, job func()) error {
	if _, err := s.cron.AddFunc(spec, job); err != nil {
		return fmt.Errorf("failed to schedule %s: %w", name, err)
	}
	logging.Infof("Scheduled job %s (%s)", name, spec)
	return nil
}

// Start begins running jobs in the background
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the scheduler; the returned context is done when running jobs finish
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
