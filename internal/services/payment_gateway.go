package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"vocab-api/pkg/apperrors"
	"vocab-api/pkg/logging"
)

// Normalized gateway states
const (
	GatewayStateSuccess = "SUCCESS"
	GatewayStateFailed  = "FAILED"
	GatewayStatePending = "PENDING"
)

// MinimumAmountPaise is the smallest amount the gateway accepts
const MinimumAmountPaise = 100

// ErrGatewayUnavailable marks a gateway call whose outcome is unknown
var ErrGatewayUnavailable = &apperrors.AppError{
	Code:      apperrors.CodeGatewayUnavailable,
	Message:   apperrors.PaymentRetryMessage,
	HTTPCode:  http.StatusBadGateway,
	Retryable: true,
}

// PaymentRequest asks the gateway to open a checkout session
type PaymentRequest struct {
	MerchantTransactionID string
	AmountPaise           int64
	UserID                uint
	RedirectURL           string
	MobileNumber          string
}

// PaymentResponse is the gateway's answer to a checkout request
type PaymentResponse struct {
	GatewayOrderID string
	RedirectURL    string
	State          string
}

// GatewayStatus is the normalized result of a status check
type GatewayStatus struct {
	State          string
	GatewayOrderID string
	ErrorCode      string
	Raw            json.RawMessage
}

// PaymentGateway is the external payment provider
type PaymentGateway interface {
	CreatePayment(ctx context.Context, req PaymentRequest) (*PaymentResponse, error)
	CheckStatus(ctx context.Context, merchantTransactionID string) (*GatewayStatus, error)
}

// PhonePeConfig holds Standard Checkout credentials and endpoints
type PhonePeConfig struct {
	ClientID      string
	ClientSecret  string
	ClientVersion string
	AuthURL       string
	BaseURL       string
	Timeout       time.Duration
}

// PhonePeClient talks to the PhonePe Standard Checkout v2 API
type PhonePeClient struct {
	cfg        PhonePeConfig
	httpClient *http.Client
	now        func() time.Time

	mu          sync.Mutex
	token       string
	tokenType   string
	tokenExpiry time.Time
}

// NewPhonePeClient creates a gateway client
func NewPhonePeClient(cfg PhonePeConfig) *PhonePeClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &PhonePeClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		now:        time.Now,
	}
}

type phonePeTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresAt   int64  `json:"expires_at"`
}

type phonePePayRequest struct {
	MerchantOrderID string             `json:"merchantOrderId"`
	Amount          int64              `json:"amount"`
	MetaInfo        map[string]string  `json:"metaInfo,omitempty"`
	PaymentFlow     phonePePaymentFlow `json:"paymentFlow"`
}

type phonePePaymentFlow struct {
	Type         string              `json:"type"`
	Message      string              `json:"message,omitempty"`
	MerchantUrls phonePeMerchantUrls `json:"merchantUrls"`
}

type phonePeMerchantUrls struct {
	RedirectURL string `json:"redirectUrl"`
}

type phonePePayResponse struct {
	OrderID     string `json:"orderId"`
	State       string `json:"state"`
	RedirectURL string `json:"redirectUrl"`
}

type phonePeStatusResponse struct {
	OrderID   string `json:"orderId"`
	State     string `json:"state"`
	ErrorCode string `json:"errorCode"`
}

type phonePeErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CreatePayment opens a checkout session and returns the hosted page URL
func (c *PhonePeClient) CreatePayment(ctx context.Context, req PaymentRequest) (*PaymentResponse, error) {
	if req.AmountPaise < MinimumAmountPaise {
		return nil, fmt.Errorf("amount %d paise is below the gateway minimum", req.AmountPaise)
	}

	body := phonePePayRequest{
		MerchantOrderID: req.MerchantTransactionID,
		Amount:          req.AmountPaise,
		MetaInfo: map[string]string{
			"udf1": fmt.Sprintf("%d", req.UserID),
			"udf2": req.MobileNumber,
		},
		PaymentFlow: phonePePaymentFlow{
			Type:         "PG_CHECKOUT",
			Message:      "Subscription payment",
			MerchantUrls: phonePeMerchantUrls{RedirectURL: req.RedirectURL},
		},
	}

	var resp phonePePayResponse
	if _, err := c.do(ctx, http.MethodPost, "/checkout/v2/pay", body, &resp); err != nil {
		return nil, err
	}
	if resp.RedirectURL == "" {
		return nil, fmt.Errorf("gateway returned no redirect url for order %s", req.MerchantTransactionID)
	}

	return &PaymentResponse{
		GatewayOrderID: resp.OrderID,
		RedirectURL:    resp.RedirectURL,
		State:          normalizeGatewayState(resp.State),
	}, nil
}

// CheckStatus fetches the order state from the gateway
func (c *PhonePeClient) CheckStatus(ctx context.Context, merchantTransactionID string) (*GatewayStatus, error) {
	path := fmt.Sprintf("/checkout/v2/order/%s/status", url.PathEscape(merchantTransactionID))

	var resp phonePeStatusResponse
	raw, err := c.do(ctx, http.MethodGet, path, nil, &resp)
	if err != nil {
		return nil, err
	}

	return &GatewayStatus{
		State:          normalizeGatewayState(resp.State),
		GatewayOrderID: resp.OrderID,
		ErrorCode:      resp.ErrorCode,
		Raw:            raw,
	}, nil
}

// normalizeGatewayState folds provider states into SUCCESS, FAILED or PENDING
func normalizeGatewayState(state string) string {
	switch strings.ToUpper(state) {
	case "COMPLETED", "SUCCESS", "PAYMENT_SUCCESS":
		return GatewayStateSuccess
	case "FAILED", "PAYMENT_ERROR", "PAYMENT_DECLINED":
		return GatewayStateFailed
	default:
		return GatewayStatePending
	}
}

func (c *PhonePeClient) do(ctx context.Context, method, path string, body interface{}, out interface{}) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	authHeader, err := c.authorization(ctx)
	if err != nil {
		return nil, apperrors.Wrap(ErrGatewayUnavailable, err)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", authHeader)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Wrap(ErrGatewayUnavailable, err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.invalidateToken()
	}
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusTooManyRequests {
		return nil, apperrors.Wrap(ErrGatewayUnavailable, fmt.Errorf("gateway %s %s returned %d", method, path, resp.StatusCode))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var gwErr phonePeErrorResponse
		_ = json.Unmarshal(raw, &gwErr)
		logging.Errorf("PhonePe %s %s rejected - status: %d, code: %s, message: %s", method, path, resp.StatusCode, gwErr.Code, gwErr.Message)
		return nil, fmt.Errorf("gateway rejected request: %d %s", resp.StatusCode, gwErr.Code)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return nil, apperrors.Wrap(ErrGatewayUnavailable, fmt.Errorf("failed to decode gateway response: %w", err))
	}
	return raw, nil
}

// authorization returns a cached O-Bearer header, fetching a token when needed
func (c *PhonePeClient) authorization(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Add(time.Minute).Before(c.tokenExpiry) {
		return c.tokenType + " " + c.token, nil
	}

	form := url.Values{}
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_version", c.cfg.ClientVersion)
	form.Set("client_secret", c.cfg.ClientSecret)
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.AuthURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch gateway token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gateway token request returned %d", resp.StatusCode)
	}

	var token phonePeTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("failed to decode gateway token: %w", err)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("gateway token response has no access token")
	}

	c.token = token.AccessToken
	c.tokenType = token.TokenType
	if c.tokenType == "" {
		c.tokenType = "O-Bearer"
	}
	c.tokenExpiry = time.Unix(token.ExpiresAt, 0)
	return c.tokenType + " " + c.token, nil
}

func (c *PhonePeClient) invalidateToken() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
}
