package services

import (
	"bytes"
	"context"
	"log"
	"testing"
	"time"

	"vocab-api/internal/models"
	"vocab-api/pkg/logging"

	"github.com/stretchr/testify/assert"
)

func TestMailBodiesEscapeUserInput(t *testing.T) {
	name := `<script>alert("x")</script>`

	body, text := passwordResetBody(name, "http://localhost:5173/reset-password/abc?x=1&y=2")
	assert.NotContains(t, body, "<script>")
	assert.Contains(t, body, "&lt;script&gt;")
	assert.Contains(t, body, "abc?x=1&amp;y=2")
	assert.Contains(t, text, name)

	record := models.PurchaseRecord{
		PlanName:              "3 Months Plan",
		Price:                 129,
		DaysAdded:             90,
		ExpiresAt:             time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC),
		MerchantTransactionID: "3months_1",
	}
	body, _ = purchaseReceiptBody(name, record)
	assert.NotContains(t, body, "<script>")
	assert.Contains(t, body, "10 Apr 2025")
}

func TestLogMailerKeepsResetTokenOutOfLogs(t *testing.T) {
	var buf bytes.Buffer
	previous := logging.InfoLogger
	logging.InfoLogger = log.New(&buf, "", 0)
	t.Cleanup(func() { logging.InfoLogger = previous })

	err := LogMailer{}.SendPasswordReset(context.Background(), "a@example.com", "Asha", "http://localhost:5173/reset-password/deadbeef")
	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "a@example.com")
	assert.NotContains(t, buf.String(), "deadbeef")
}
