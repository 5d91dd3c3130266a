package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"vocab-api/internal/database"
	"vocab-api/internal/models"
	"vocab-api/pkg/apperrors"
	"vocab-api/pkg/logging"

	"gorm.io/gorm"
)

var (
	ErrOrderNotFound     = apperrors.New(apperrors.CodeOrderNotFound, "Order not found", http.StatusNotFound)
	ErrIllegalTransition = apperrors.New(apperrors.CodeIllegalTransition, "Order can no longer change to this state", http.StatusConflict)
	errLedgerConflict    = errors.New("subscription changed concurrently")
)

// SubscriptionUpdate is the outcome of applying one paid order
type SubscriptionUpdate struct {
	UserID                uint                   `json:"user_id"`
	MerchantTransactionID string                 `json:"merchant_transaction_id"`
	Applied               bool                   `json:"applied"` // false when the order had already been applied
	Plan                  string                 `json:"plan"`
	DaysAdded             int                    `json:"days_added"`
	UnmappedAmount        bool                   `json:"-"`
	Amount                int                    `json:"-"`
	Subscription          models.Subscription    `json:"subscription"`
	Record                *models.PurchaseRecord `json:"purchase,omitempty"`
}

// EntitlementLedger turns confirmed payments into subscription time
type EntitlementLedger struct {
	db      *gorm.DB
	alerter Alerter
	now     func() time.Time
}

// NewEntitlementLedger creates a ledger
func NewEntitlementLedger(db *gorm.DB, alerter Alerter) *EntitlementLedger {
	return &EntitlementLedger{db: db, alerter: alerter, now: time.Now}
}

// ApplyPayment records a gateway-confirmed success for the order in its own
// transaction. Repeated calls for the same order are no-ops.
func (l *EntitlementLedger) ApplyPayment(ctx context.Context, merchantTransactionID string) (*SubscriptionUpdate, error) {
	var update *SubscriptionUpdate
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		update, err = l.ApplyPaymentTx(tx, merchantTransactionID, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	l.AfterCommit(update)
	return update, nil
}

// ApplyPaymentTx applies the payment inside the caller's transaction.
// extra is written on the order together with the status change.
// Callers must invoke AfterCommit once the transaction commits.
func (l *EntitlementLedger) ApplyPaymentTx(tx *gorm.DB, merchantTransactionID string, extra map[string]interface{}) (*SubscriptionUpdate, error) {
	now := l.now()

	fields := map[string]interface{}{"ledger_applied_at": now}
	for k, v := range extra {
		fields[k] = v
	}

	// The compare-and-swap on the order row is the idempotency guard: only
	// one caller can move it into success.
	won, err := database.TransitionOrder(tx, merchantTransactionID,
		[]string{models.OrderInitiated, models.OrderPending}, models.OrderSuccess, fields)
	if err != nil {
		return nil, fmt.Errorf("failed to mark order paid: %w", err)
	}

	order, err := database.GetOrderByMerchantID(tx, merchantTransactionID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	if !won {
		return l.alreadySettled(tx, order)
	}

	user, err := database.LockUser(tx, order.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock user %d: %w", order.UserID, err)
	}

	days, mapped := DaysForAmount(order.Amount)
	if !mapped {
		logging.Errorf("Unmapped payment amount %d for order %s, granting %d days", order.Amount, order.MerchantTransactionID, days)
	}

	// Days stack onto the exact remaining time, not onto ceil(remainingDays).
	// The ceiling shown to users is the same either way, but a partial day
	// already consumed is not granted back.
	sub := user.Subscription
	base := now
	if sub.ExpiresAt != nil && sub.ExpiresAt.After(now) {
		base = *sub.ExpiresAt
	}
	expiresAt := base.Add(time.Duration(days) * models.Day)
	sub.CurrentPlan = order.Plan
	sub.ExpiresAt = &expiresAt
	sub.Refresh(now)

	saved, err := database.SaveSubscription(tx, user.ID, sub, user.Subscription.LedgerVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to save subscription: %w", err)
	}
	if !saved {
		return nil, errLedgerConflict
	}
	sub.LedgerVersion = user.Subscription.LedgerVersion + 1

	planName := order.Plan
	if p, ok := LookupPlan(order.Plan); ok {
		planName = p.Name
	}
	record := &models.PurchaseRecord{
		UserID:                user.ID,
		MerchantTransactionID: order.MerchantTransactionID,
		Plan:                  order.Plan,
		PlanName:              planName,
		Price:                 order.Amount,
		DaysAdded:             days,
		PurchaseDate:          now,
		ExpiresAt:             expiresAt,
	}
	if err := tx.Create(record).Error; err != nil {
		return nil, fmt.Errorf("failed to append purchase history: %w", err)
	}

	logging.Infof("Entitlement applied - user: %d, order: %s, days: %d, expires: %s",
		user.ID, order.MerchantTransactionID, days, expiresAt.Format(time.RFC3339))

	return &SubscriptionUpdate{
		UserID:                user.ID,
		MerchantTransactionID: order.MerchantTransactionID,
		Applied:               true,
		Plan:                  order.Plan,
		DaysAdded:             days,
		UnmappedAmount:        !mapped,
		Amount:                order.Amount,
		Subscription:          sub,
		Record:                record,
	}, nil
}

// alreadySettled handles an order another caller has moved out of a payable state
func (l *EntitlementLedger) alreadySettled(tx *gorm.DB, order *models.Order) (*SubscriptionUpdate, error) {
	if order.Status != models.OrderSuccess {
		logging.Warnf("Success reported for order %s in state %s, ignoring", order.MerchantTransactionID, order.Status)
		return nil, ErrIllegalTransition
	}

	user, err := database.GetUserByID(tx, order.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %d: %w", order.UserID, err)
	}
	sub := user.Subscription
	sub.Refresh(l.now())
	return &SubscriptionUpdate{
		UserID:                user.ID,
		MerchantTransactionID: order.MerchantTransactionID,
		Plan:                  order.Plan,
		Amount:                order.Amount,
		Subscription:          sub,
	}, nil
}

// AfterCommit raises the alerts a committed update calls for
func (l *EntitlementLedger) AfterCommit(update *SubscriptionUpdate) {
	if update == nil || !update.Applied || !update.UnmappedAmount || l.alerter == nil {
		return
	}
	l.alerter.Alert(OperatorAlert{
		Event:                 AlertUnmappedAmount,
		MerchantTransactionID: update.MerchantTransactionID,
		UserID:                update.UserID,
		Amount:                update.Amount,
		Message:               fmt.Sprintf("paid amount matches no plan, granted %d days", update.DaysAdded),
	})
}

// Refresh recomputes the cached subscription fields on read and persists
// them unless a ledger write got there first
func (l *EntitlementLedger) Refresh(ctx context.Context, user *models.User) error {
	sub := user.Subscription
	if !sub.Refresh(l.now()) {
		return nil
	}

	saved, err := database.SaveSubscription(l.db.WithContext(ctx), user.ID, sub, sub.LedgerVersion)
	if err != nil {
		return fmt.Errorf("failed to refresh subscription: %w", err)
	}
	if saved {
		sub.LedgerVersion++
		user.Subscription = sub
		return nil
	}

	fresh, err := database.GetUserByID(l.db.WithContext(ctx), user.ID)
	if err != nil {
		return fmt.Errorf("failed to reload user %d: %w", user.ID, err)
	}
	fresh.Subscription.Refresh(l.now())
	user.Subscription = fresh.Subscription
	return nil
}
