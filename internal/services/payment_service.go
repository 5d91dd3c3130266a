package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"vocab-api/internal/database"
	"vocab-api/internal/models"
	"vocab-api/pkg/apperrors"
	"vocab-api/pkg/logging"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	errTooManyOrders     = apperrors.New(apperrors.CodeTooManyRequests, "Too many payment attempts, please try again later", http.StatusTooManyRequests)
	errInitiationFailed  = apperrors.New(apperrors.CodeInitiationFailed, apperrors.PaymentRetryMessage, http.StatusBadGateway)
	errMissingWebhookTx  = apperrors.Validation(apperrors.CodeMissingTransaction, "Transaction ID not found in webhook payload")
	errMalformedWebhook  = apperrors.Validation(apperrors.CodeValidationFailed, "Malformed webhook payload")
	errMobileNumberShape = apperrors.Validation(apperrors.CodeValidationFailed, "Mobile number must be 10 digits")
)

// Webhook outcomes
const (
	OutcomeSuccess      = "success"
	OutcomeFailure      = "failure"
	OutcomeRefund       = "refund"
	OutcomeRefundFailed = "refund_failed"
	OutcomeUnknown      = "unknown"
)

var webhookOutcomes = map[string]string{
	"checkout.order.completed": OutcomeSuccess,
	"payment.success":          OutcomeSuccess,
	"payment_success":          OutcomeSuccess,
	"checkout.order.failed":    OutcomeFailure,
	"payment.failed":           OutcomeFailure,
	"payment_failed":           OutcomeFailure,
	"pg.refund.completed":      OutcomeRefund,
	"refund.success":           OutcomeRefund,
	"pg.refund.failed":         OutcomeRefundFailed,
	"refund.failed":            OutcomeRefundFailed,
}

// ClassifyWebhookEvent maps a gateway event name onto an outcome
func ClassifyWebhookEvent(eventType string) string {
	if outcome, ok := webhookOutcomes[strings.ToLower(strings.TrimSpace(eventType))]; ok {
		return outcome
	}
	return OutcomeUnknown
}

// PaymentConfig holds the payment flow limits and URLs
type PaymentConfig struct {
	ClientOrigin        string
	OrdersPerUserLimit  int
	OrdersPerUserWindow time.Duration
}

// InitiateRequest is a client's request to buy a plan
type InitiateRequest struct {
	Plan         string `json:"plan" binding:"required"`
	Amount       int    `json:"amount" binding:"required"`
	MobileNumber string `json:"mobileNumber"`
}

// InitiateResult tells the client where to complete payment
type InitiateResult struct {
	MerchantTransactionID string               `json:"merchantTransactionId"`
	RedirectURL           string               `json:"redirectUrl"`
	Plan                  string               `json:"plan"`
	Amount                int                  `json:"amount"`
	Status                string               `json:"status"`
	Subscription          *models.Subscription `json:"subscription,omitempty"`
}

// PaymentStatusResult is the polled state of an order
type PaymentStatusResult struct {
	MerchantTransactionID string               `json:"merchantTransactionId"`
	Status                string               `json:"status"`
	Plan                  string               `json:"plan"`
	Amount                int                  `json:"amount"`
	AlreadyProcessed      bool                 `json:"alreadyProcessed"`
	Subscription          *models.Subscription `json:"subscription,omitempty"`
}

// WebhookResult summarizes how a callback was handled
type WebhookResult struct {
	MerchantTransactionID string `json:"merchantTransactionId"`
	EventType             string `json:"eventType"`
	Outcome               string `json:"outcome"`
	AlreadyProcessed      bool   `json:"alreadyProcessed"`
	OrderStatus           string `json:"orderStatus"`
}

// PaymentService runs the checkout flow and feeds confirmed payments to the ledger
type PaymentService struct {
	db      *gorm.DB
	gateway PaymentGateway
	ledger  *EntitlementLedger
	alerter Alerter
	mailer  Mailer
	cfg     PaymentConfig
	now     func() time.Time
	wg      sync.WaitGroup
}

// NewPaymentService creates a payment service
func NewPaymentService(db *gorm.DB, gateway PaymentGateway, ledger *EntitlementLedger, alerter Alerter, mailer Mailer, cfg PaymentConfig) *PaymentService {
	if cfg.OrdersPerUserLimit <= 0 {
		cfg.OrdersPerUserLimit = 3
	}
	if cfg.OrdersPerUserWindow <= 0 {
		cfg.OrdersPerUserWindow = 5 * time.Minute
	}
	return &PaymentService{
		db:      db,
		gateway: gateway,
		ledger:  ledger,
		alerter: alerter,
		mailer:  mailer,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Wait blocks until background notifications finish
func (s *PaymentService) Wait() {
	s.wg.Wait()
}

// NewMerchantTransactionID builds a unique order id of the form plan_millis_random
func NewMerchantTransactionID(plan string, now time.Time) string {
	random := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("%s_%d_%s", plan, now.UnixMilli(), random)
}

// InitiatePayment validates the plan, records an order and opens a gateway checkout
func (s *PaymentService) InitiatePayment(ctx context.Context, user *models.User, req InitiateRequest) (*InitiateResult, error) {
	plan, err := ValidatePlan(req.Plan, req.Amount)
	if err != nil {
		return nil, err
	}
	mobile := strings.TrimSpace(req.MobileNumber)
	if mobile != "" && !isMobileNumber(mobile) {
		return nil, errMobileNumberShape
	}

	db := s.db.WithContext(ctx)
	now := s.now()

	recent, err := database.CountRecentOrders(db, user.ID, now.Add(-s.cfg.OrdersPerUserWindow))
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if recent >= int64(s.cfg.OrdersPerUserLimit) {
		return nil, errTooManyOrders
	}

	order := &models.Order{
		UserID:                user.ID,
		MerchantTransactionID: NewMerchantTransactionID(plan.ID, now),
		Plan:                  plan.ID,
		Amount:                plan.Price,
		MobileNumber:          mobile,
		Status:                models.OrderInitiated,
	}
	if err := database.CreateOrder(db, order); err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to create order: %w", err))
	}

	redirectURL := fmt.Sprintf("%s/payment/validate/%s", s.cfg.ClientOrigin, order.MerchantTransactionID)
	resp, err := s.gateway.CreatePayment(ctx, PaymentRequest{
		MerchantTransactionID: order.MerchantTransactionID,
		AmountPaise:           int64(plan.Price) * 100,
		UserID:                user.ID,
		RedirectURL:           redirectURL,
		MobileNumber:          mobile,
	})
	if err != nil {
		logging.Errorf("Payment initiation failed - order: %s, error: %v", order.MerchantTransactionID, err)
		if _, terr := database.TransitionOrder(db, order.MerchantTransactionID,
			[]string{models.OrderInitiated}, models.OrderFailed,
			map[string]interface{}{"failure_reason": truncate(err.Error(), 500)}); terr != nil {
			logging.Errorf("Failed to mark order %s failed: %v", order.MerchantTransactionID, terr)
		}
		return nil, apperrors.Wrap(errInitiationFailed, err)
	}

	result := &InitiateResult{
		MerchantTransactionID: order.MerchantTransactionID,
		RedirectURL:           resp.RedirectURL,
		Plan:                  plan.ID,
		Amount:                plan.Price,
		Status:                models.OrderPending,
	}
	gatewayFields := map[string]interface{}{
		"gateway_order_id": resp.GatewayOrderID,
		"redirect_url":     resp.RedirectURL,
		"gateway_state":    resp.State,
	}

	if resp.State == GatewayStateSuccess {
		update, err := s.applySuccess(ctx, order.MerchantTransactionID, gatewayFields)
		if err != nil {
			return nil, err
		}
		result.Status = models.OrderSuccess
		result.Subscription = &update.Subscription
		return result, nil
	}

	if _, err := database.TransitionOrder(db, order.MerchantTransactionID,
		[]string{models.OrderInitiated}, models.OrderPending, gatewayFields); err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to mark order pending: %w", err))
	}

	logging.Infof("Payment initiated - user: %d, order: %s, plan: %s", user.ID, order.MerchantTransactionID, plan.ID)
	return result, nil
}

// CheckPaymentStatus polls the gateway for a user's order and applies the outcome
func (s *PaymentService) CheckPaymentStatus(ctx context.Context, userID uint, merchantTransactionID string) (*PaymentStatusResult, error) {
	order, err := database.GetOrderByMerchantID(s.db.WithContext(ctx), merchantTransactionID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, apperrors.Internal(err)
	}
	if order.UserID != userID {
		return nil, ErrOrderNotFound
	}

	if models.IsTerminalOrderStatus(order.Status) {
		return s.statusResult(ctx, order, true)
	}

	synced, err := s.SyncOrder(ctx, order)
	if err != nil {
		return nil, err
	}
	return s.statusResult(ctx, synced, false)
}

// SyncOrder asks the gateway for the order state and applies it. A gateway
// error leaves the order untouched and is returned as retryable.
func (s *PaymentService) SyncOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	status, err := s.gateway.CheckStatus(ctx, order.MerchantTransactionID)
	if err != nil {
		logging.Warnf("Status check failed - order: %s, error: %v", order.MerchantTransactionID, err)
		if appErr, ok := apperrors.As(err); ok && appErr.Retryable {
			return nil, err
		}
		return nil, apperrors.Wrap(ErrGatewayUnavailable, err)
	}

	db := s.db.WithContext(ctx)
	switch status.State {
	case GatewayStateSuccess:
		if _, err := s.applySuccess(ctx, order.MerchantTransactionID, map[string]interface{}{"gateway_state": status.State}); err != nil {
			return nil, err
		}
	case GatewayStateFailed:
		reason := "gateway reported failure"
		if status.ErrorCode != "" {
			reason = status.ErrorCode
		}
		if _, err := database.TransitionOrder(db, order.MerchantTransactionID,
			[]string{models.OrderInitiated, models.OrderPending}, models.OrderFailed,
			map[string]interface{}{"failure_reason": reason, "gateway_state": status.State}); err != nil {
			return nil, apperrors.Internal(err)
		}
	default:
		if _, err := database.TransitionOrder(db, order.MerchantTransactionID,
			[]string{models.OrderInitiated}, models.OrderPending,
			map[string]interface{}{"gateway_state": status.State}); err != nil {
			return nil, apperrors.Internal(err)
		}
	}

	fresh, err := database.GetOrderByMerchantID(db, order.MerchantTransactionID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return fresh, nil
}

// applySuccess runs the ledger in its own transaction and schedules follow-ups
func (s *PaymentService) applySuccess(ctx context.Context, merchantTransactionID string, fields map[string]interface{}) (*SubscriptionUpdate, error) {
	var update *SubscriptionUpdate
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		update, err = s.ledger.ApplyPaymentTx(tx, merchantTransactionID, fields)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrIllegalTransition) {
			s.alertIllegal(merchantTransactionID, "success reported for an order that can no longer be paid")
		}
		if _, ok := apperrors.As(err); ok {
			return nil, err
		}
		return nil, apperrors.Internal(err)
	}
	s.afterCommit(update)
	return update, nil
}

func (s *PaymentService) statusResult(ctx context.Context, order *models.Order, alreadyProcessed bool) (*PaymentStatusResult, error) {
	result := &PaymentStatusResult{
		MerchantTransactionID: order.MerchantTransactionID,
		Status:                order.Status,
		Plan:                  order.Plan,
		Amount:                order.Amount,
		AlreadyProcessed:      alreadyProcessed,
	}
	if order.Status == models.OrderSuccess {
		user, err := database.GetUserByID(s.db.WithContext(ctx), order.UserID)
		if err != nil {
			return nil, apperrors.Internal(err)
		}
		if err := s.ledger.Refresh(ctx, user); err != nil {
			return nil, apperrors.Internal(err)
		}
		result.Subscription = &user.Subscription
	}
	return result, nil
}

// HandleWebhook applies an authenticated gateway callback exactly once
func (s *PaymentService) HandleWebhook(ctx context.Context, body []byte) (*WebhookResult, error) {
	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, apperrors.Wrap(errMalformedWebhook, err)
	}

	eventType := firstString(payload, "event", "type", "eventType")
	txID := ExtractTransactionID(payload)
	if txID == "" {
		return nil, errMissingWebhookTx
	}

	db := s.db.WithContext(ctx)
	order, err := database.GetOrderByMerchantID(db, txID)
	if errors.Is(err, database.ErrNotFound) {
		order, err = s.orderByGatewayID(db, txID)
	}
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			logging.Warnf("Webhook for unknown order %s, event: %s", txID, eventType)
			return nil, ErrOrderNotFound
		}
		return nil, apperrors.Internal(err)
	}

	outcome := ClassifyWebhookEvent(eventType)
	result := &WebhookResult{
		MerchantTransactionID: order.MerchantTransactionID,
		EventType:             eventType,
		Outcome:               outcome,
	}

	var (
		update   *SubscriptionUpdate
		alerts   []OperatorAlert
		now      = s.now()
		eventKey = strings.ToLower(strings.TrimSpace(eventType))
	)
	if eventKey == "" {
		eventKey = OutcomeUnknown
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		event := &models.WebhookEvent{
			OrderID:   order.ID,
			EventType: eventKey,
			Processed: outcome != OutcomeUnknown,
			Payload:   truncate(string(body), 8000),
		}
		if event.Processed {
			event.ProcessedAt = &now
		}
		inserted, err := database.RecordWebhookEvent(tx, event)
		if err != nil {
			return fmt.Errorf("failed to record webhook event: %w", err)
		}
		if !inserted {
			existing, err := database.LockWebhookEvent(tx, order.ID, eventKey)
			if err != nil {
				return fmt.Errorf("failed to load webhook event: %w", err)
			}
			if existing.Processed {
				result.AlreadyProcessed = true
				return nil
			}
			// an earlier delivery was recorded but not applied; try again
			event.ID = existing.ID
			if err := database.ReplayWebhookEvent(tx, event); err != nil {
				return fmt.Errorf("failed to update webhook event: %w", err)
			}
		}

		switch outcome {
		case OutcomeSuccess:
			update, err = s.ledger.ApplyPaymentTx(tx, order.MerchantTransactionID,
				map[string]interface{}{"gateway_state": "COMPLETED"})
			if errors.Is(err, ErrIllegalTransition) {
				alerts = append(alerts, s.illegalAlert(order, "success webhook for an order that can no longer be paid"))
				return markEventUnprocessed(tx, event.ID)
			}
			return err

		case OutcomeFailure:
			won, err := database.TransitionOrder(tx, order.MerchantTransactionID,
				[]string{models.OrderInitiated, models.OrderPending}, models.OrderFailed,
				map[string]interface{}{"failure_reason": "webhook: " + eventKey, "gateway_state": "FAILED"})
			if err != nil {
				return err
			}
			if !won {
				current, err := database.GetOrderByMerchantID(tx, order.MerchantTransactionID)
				if err != nil {
					return err
				}
				if current.Status != models.OrderFailed {
					alerts = append(alerts, s.illegalAlert(current, "failure webhook for an order in state "+current.Status))
					return markEventUnprocessed(tx, event.ID)
				}
			}
			return nil

		case OutcomeRefund:
			won, err := database.TransitionOrder(tx, order.MerchantTransactionID,
				[]string{models.OrderSuccess}, models.OrderRefunded, nil)
			if err != nil {
				return err
			}
			if won {
				// entitlement is left untouched; the operator decides on clawback
				alerts = append(alerts, OperatorAlert{
					Event:                 AlertRefundReceived,
					MerchantTransactionID: order.MerchantTransactionID,
					UserID:                order.UserID,
					Amount:                order.Amount,
					Message:               "refund completed, subscription not reduced",
				})
				return nil
			}
			current, err := database.GetOrderByMerchantID(tx, order.MerchantTransactionID)
			if err != nil {
				return err
			}
			if current.Status != models.OrderRefunded {
				alerts = append(alerts, s.illegalAlert(current, "refund webhook for an order in state "+current.Status))
				return markEventUnprocessed(tx, event.ID)
			}
			return nil

		case OutcomeRefundFailed:
			logging.Warnf("Refund failed for order %s", order.MerchantTransactionID)
			return nil

		default:
			logging.Warnf("Unhandled webhook event %q for order %s", eventType, order.MerchantTransactionID)
			return nil
		}
	})
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	s.afterCommit(update)
	for _, alert := range alerts {
		if s.alerter != nil {
			s.alerter.Alert(alert)
		}
	}

	current, err := database.GetOrderByMerchantID(db, order.MerchantTransactionID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	result.OrderStatus = current.Status
	return result, nil
}

// ExtractTransactionID finds the merchant order id in a loosely structured callback
func ExtractTransactionID(payload map[string]interface{}) string {
	for _, container := range []string{"payload", "data"} {
		if nested, ok := payload[container].(map[string]interface{}); ok {
			if id := firstString(nested, "merchantOrderId", "merchantTransactionId", "transactionId", "orderId"); id != "" {
				return id
			}
		}
	}
	return firstString(payload, "merchantOrderId", "merchantTransactionId", "id")
}

func (s *PaymentService) orderByGatewayID(db *gorm.DB, gatewayOrderID string) (*models.Order, error) {
	var order models.Order
	if err := db.Where("gateway_order_id = ?", gatewayOrderID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, database.ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// afterCommit sends the receipt and ledger alerts without blocking the caller
func (s *PaymentService) afterCommit(update *SubscriptionUpdate) {
	if update == nil || !update.Applied {
		return
	}
	s.ledger.AfterCommit(update)
	if s.mailer == nil || update.Record == nil {
		return
	}

	record := *update.Record
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		user, err := database.GetUserByID(s.db.WithContext(ctx), update.UserID)
		if err != nil {
			logging.Errorf("Receipt skipped for order %s: %v", record.MerchantTransactionID, err)
			return
		}
		if err := s.mailer.SendPurchaseReceipt(ctx, user.Email, user.Name, record); err != nil {
			logging.Errorf("Receipt email failed for order %s: %v", record.MerchantTransactionID, err)
		}
	}()
}

func (s *PaymentService) illegalAlert(order *models.Order, message string) OperatorAlert {
	logging.Warnf("Illegal order transition - order: %s, %s", order.MerchantTransactionID, message)
	return OperatorAlert{
		Event:                 AlertIllegalTransition,
		MerchantTransactionID: order.MerchantTransactionID,
		UserID:                order.UserID,
		Amount:                order.Amount,
		Message:               message,
	}
}

func (s *PaymentService) alertIllegal(merchantTransactionID, message string) {
	logging.Warnf("Illegal order transition - order: %s, %s", merchantTransactionID, message)
	if s.alerter != nil {
		s.alerter.Alert(OperatorAlert{
			Event:                 AlertIllegalTransition,
			MerchantTransactionID: merchantTransactionID,
			Message:               message,
		})
	}
}

func markEventUnprocessed(tx *gorm.DB, eventID uint) error {
	return tx.Model(&models.WebhookEvent{}).Where("id = ?", eventID).
		Updates(map[string]interface{}{"processed": false, "processed_at": nil}).Error
}

func firstString(m map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if v, ok := m[key].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func isMobileNumber(s string) bool {
	if len(s) != 10 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// truncate caps s at max bytes without splitting a multi-byte rune
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return strings.ToValidUTF8(s[:max], "")
}
