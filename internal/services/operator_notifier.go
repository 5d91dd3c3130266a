package services

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"vocab-api/pkg/logging"
)

// Operator alert events
const (
	AlertUnmappedAmount    = "unmapped_amount"
	AlertRefundReceived    = "refund_received"
	AlertIllegalTransition = "illegal_transition"
)

// OperatorAlert is a data anomaly that needs human review
type OperatorAlert struct {
	Event                 string `json:"event"`
	MerchantTransactionID string `json:"merchant_transaction_id"`
	UserID                uint   `json:"user_id,omitempty"`
	Amount                int    `json:"amount,omitempty"`
	Message               string `json:"message"`
	Timestamp             string `json:"timestamp"` // ISO 8601 format
}

// Alerter receives operator alerts
type Alerter interface {
	Alert(alert OperatorAlert)
}

// OperatorNotifier logs alerts and posts them to an operator webhook
type OperatorNotifier struct {
	url         string
	secret      string
	httpClient  *http.Client
	retryDelays []time.Duration
	wg          sync.WaitGroup
}

// NewOperatorNotifier creates a notifier. An empty url means log only.
func NewOperatorNotifier(url, secret string) *OperatorNotifier {
	return &OperatorNotifier{
		url:    url,
		secret: secret,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		retryDelays: []time.Duration{1 * time.Second, 5 * time.Second, 30 * time.Second},
	}
}

// Alert logs the anomaly and delivers it asynchronously
func (n *OperatorNotifier) Alert(alert OperatorAlert) {
	if alert.Timestamp == "" {
		alert.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	logging.Warnf("Operator alert - event: %s, order: %s, user: %d, amount: %d, message: %s",
		alert.Event, alert.MerchantTransactionID, alert.UserID, alert.Amount, alert.Message)

	if n.url == "" {
		return
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.sendWithRetry(alert)
	}()
}

// Wait blocks until in-flight deliveries finish
func (n *OperatorNotifier) Wait() {
	n.wg.Wait()
}

// sendWithRetry sends the alert, retrying after each configured delay
func (n *OperatorNotifier) sendWithRetry(alert OperatorAlert) {
	maxAttempts := len(n.retryDelays)

	for attempt := 0; attempt < maxAttempts; attempt++ {
		err := n.send(alert)
		if err == nil {
			logging.Infof("Operator alert delivered - event: %s, order: %s, attempt: %d",
				alert.Event, alert.MerchantTransactionID, attempt+1)
			return
		}

		logging.Errorf("Operator alert delivery failed - event: %s, order: %s, attempt: %d, error: %v",
			alert.Event, alert.MerchantTransactionID, attempt+1, err)

		if attempt < maxAttempts-1 {
			time.Sleep(n.retryDelays[attempt])
		}
	}

	logging.Errorf("Operator alert dropped after %d attempts - event: %s, order: %s",
		maxAttempts, alert.Event, alert.MerchantTransactionID)
}

func (n *OperatorNotifier) send(alert OperatorAlert) error {
	jsonData, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, n.url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "VocabAPI-Alerts/1.0")
	if n.secret != "" {
		req.Header.Set("X-Vocab-Signature", signPayload(jsonData, n.secret))
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return nil
}

// signPayload generates the HMAC-SHA256 signature of a payload
func signPayload(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
