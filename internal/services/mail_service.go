package services

import (
	"context"
	"fmt"
	"html"
	"time"

	"vocab-api/internal/models"
	"vocab-api/pkg/logging"

	brevo "github.com/getbrevo/brevo-go/lib"
)

// Mailer sends account and billing emails
type Mailer interface {
	SendPasswordReset(ctx context.Context, to, name, resetURL string) error
	SendPurchaseReceipt(ctx context.Context, to, name string, record models.PurchaseRecord) error
}

// BrevoMailer sends transactional email through Brevo
type BrevoMailer struct {
	client    *brevo.APIClient
	fromEmail string
	fromName  string
}

// NewMailer returns a Brevo mailer, or a log-only mailer without an API key
func NewMailer(apiKey, fromEmail, fromName string) Mailer {
	if apiKey == "" || fromEmail == "" {
		logging.Warnf("BREVO_API_KEY or BREVO_FROM_EMAIL not set, emails will only be logged")
		return LogMailer{}
	}

	cfg := brevo.NewConfiguration()
	cfg.AddDefaultHeader("api-key", apiKey)
	return &BrevoMailer{
		client:    brevo.NewAPIClient(cfg),
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

// SendPasswordReset emails the password reset link
func (m *BrevoMailer) SendPasswordReset(ctx context.Context, to, name, resetURL string) error {
	body, text := passwordResetBody(name, resetURL)
	return m.send(ctx, to, name, "Reset your password", body, text)
}

// SendPurchaseReceipt confirms a completed purchase
func (m *BrevoMailer) SendPurchaseReceipt(ctx context.Context, to, name string, record models.PurchaseRecord) error {
	body, text := purchaseReceiptBody(name, record)
	return m.send(ctx, to, name, fmt.Sprintf("Payment received - %s", record.PlanName), body, text)
}

func passwordResetBody(name, resetURL string) (string, string) {
	body := fmt.Sprintf(`
		<!DOCTYPE html>
		<html>
		<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
			<h2 style="color: #333;">Hi %s,</h2>
			<p style="color: #666; font-size: 16px;">We received a request to reset your password.</p>
			<p><a href="%s" style="background-color: #007bff; color: white; padding: 12px 24px; border-radius: 6px; text-decoration: none;">Reset password</a></p>
			<p style="color: #999; font-size: 14px;">This link is valid for 10 minutes. If you did not ask for it, ignore this email.</p>
		</body>
		</html>
	`, html.EscapeString(name), html.EscapeString(resetURL))
	text := fmt.Sprintf("Hi %s,\n\nReset your password: %s\n\nThis link is valid for 10 minutes.", name, resetURL)
	return body, text
}

func purchaseReceiptBody(name string, record models.PurchaseRecord) (string, string) {
	expires := record.ExpiresAt.Format("2 Jan 2006")
	body := fmt.Sprintf(`
		<!DOCTYPE html>
		<html>
		<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
			<h2 style="color: #333;">Thank you, %s!</h2>
			<p style="color: #666; font-size: 16px;">Your payment of &#8377;%d for the %s was successful.</p>
			<p style="color: #666; font-size: 16px;">%d days were added. Your subscription is valid until %s.</p>
			<p style="color: #999; font-size: 12px;">Order reference: %s</p>
		</body>
		</html>
	`, html.EscapeString(name), record.Price, html.EscapeString(record.PlanName), record.DaysAdded, expires,
		html.EscapeString(record.MerchantTransactionID))
	text := fmt.Sprintf("Thank you, %s!\n\nPayment of Rs.%d for the %s was successful. %d days were added, valid until %s.\nOrder reference: %s",
		name, record.Price, record.PlanName, record.DaysAdded, expires, record.MerchantTransactionID)
	return body, text
}

func (m *BrevoMailer) send(ctx context.Context, to, name, subject, htmlContent, text string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	email := brevo.SendSmtpEmail{
		Sender: &brevo.SendSmtpEmailSender{
			Name:  m.fromName,
			Email: m.fromEmail,
		},
		To: []brevo.SendSmtpEmailTo{
			{Email: to, Name: name},
		},
		Subject:     subject,
		HtmlContent: htmlContent,
		TextContent: text,
	}

	result, _, err := m.client.TransactionalEmailsApi.SendTransacEmail(ctx, email)
	if err != nil {
		logging.Errorf("Failed to send email to %s: %v", to, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	logging.Infof("Email sent successfully to %s, message id: %s", to, result.MessageId)
	return nil
}

// LogMailer writes emails to the log instead of sending them
type LogMailer struct{}

// SendPasswordReset logs that a reset was requested; the link carries a live token and stays out of the log
func (LogMailer) SendPasswordReset(_ context.Context, to, _, _ string) error {
	logging.Infof("Password reset email for %s not sent, mail is not configured", to)
	return nil
}

// SendPurchaseReceipt logs the receipt
func (LogMailer) SendPurchaseReceipt(_ context.Context, to, _ string, record models.PurchaseRecord) error {
	logging.Infof("Purchase receipt for %s: order %s, %d days", to, record.MerchantTransactionID, record.DaysAdded)
	return nil
}
