package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"vocab-api/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePhonePe struct {
	tokenCalls int32
	state      string
	statusCode int
}

func (f *fakePhonePe) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.tokenCalls, 1)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "tok",
			"token_type":   "O-Bearer",
			"expires_at":   time.Now().Add(time.Hour).Unix(),
		})
	})
	mux.HandleFunc("/checkout/v2/pay", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "O-Bearer tok", r.Header.Get("Authorization"))
		var body phonePePayRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, int64(12900), body.Amount)
		assert.Equal(t, "PG_CHECKOUT", body.PaymentFlow.Type)
		json.NewEncoder(w).Encode(map[string]string{
			"orderId":     "OMO123",
			"state":       "PENDING",
			"redirectUrl": "https://mercury.phonepe.com/transact/abc",
		})
	})
	mux.HandleFunc("/checkout/v2/order/3months_1/status", func(w http.ResponseWriter, r *http.Request) {
		if f.statusCode != 0 {
			w.WriteHeader(f.statusCode)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"orderId": "OMO123", "state": f.state})
	})
	return mux
}

func newFakePhonePeClient(t *testing.T, fake *fakePhonePe) *PhonePeClient {
	server := httptest.NewServer(fake.handler(t))
	t.Cleanup(server.Close)
	return NewPhonePeClient(PhonePeConfig{
		ClientID:      "id",
		ClientSecret:  "secret",
		ClientVersion: "1",
		AuthURL:       server.URL + "/oauth/token",
		BaseURL:       server.URL,
		Timeout:       2 * time.Second,
	})
}

func TestPhonePeCreatePaymentCachesToken(t *testing.T) {
	fake := &fakePhonePe{state: "COMPLETED"}
	client := newFakePhonePeClient(t, fake)
	ctx := context.Background()

	resp, err := client.CreatePayment(ctx, PaymentRequest{MerchantTransactionID: "3months_1", AmountPaise: 12900, RedirectURL: "http://localhost/payment/validate/3months_1"})
	require.NoError(t, err)
	assert.Equal(t, "https://mercury.phonepe.com/transact/abc", resp.RedirectURL)
	assert.Equal(t, GatewayStatePending, resp.State)

	status, err := client.CheckStatus(ctx, "3months_1")
	require.NoError(t, err)
	assert.Equal(t, GatewayStateSuccess, status.State)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fake.tokenCalls))
}

func TestPhonePeCreatePaymentRejectsTinyAmount(t *testing.T) {
	client := newFakePhonePeClient(t, &fakePhonePe{})
	_, err := client.CreatePayment(context.Background(), PaymentRequest{MerchantTransactionID: "x", AmountPaise: 99})
	assert.Error(t, err)
}

func TestPhonePeStatusServerErrorIsRetryable(t *testing.T) {
	client := newFakePhonePeClient(t, &fakePhonePe{statusCode: http.StatusBadGateway})
	_, err := client.CheckStatus(context.Background(), "3months_1")
	require.Error(t, err)
	assert.True(t, apperrors.IsRetryable(err))
}

func TestNormalizeGatewayState(t *testing.T) {
	assert.Equal(t, GatewayStateSuccess, normalizeGatewayState("COMPLETED"))
	assert.Equal(t, GatewayStateFailed, normalizeGatewayState("FAILED"))
	assert.Equal(t, GatewayStatePending, normalizeGatewayState("PENDING"))
	assert.Equal(t, GatewayStatePending, normalizeGatewayState(""))
}
