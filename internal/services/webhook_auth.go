package services

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// WebhookAuthenticator checks the gateway's callback credential, which is
// sha256("username:password") in hex, optionally prefixed by "SHA256 "
type WebhookAuthenticator struct {
	expected string
}

// NewWebhookAuthenticator creates an authenticator for the configured credentials
func NewWebhookAuthenticator(username, password string) *WebhookAuthenticator {
	if username == "" || password == "" {
		return &WebhookAuthenticator{}
	}
	sum := sha256.Sum256([]byte(username + ":" + password))
	return &WebhookAuthenticator{expected: hex.EncodeToString(sum[:])}
}

// Verify reports whether the Authorization header value is valid.
// Unconfigured credentials reject every request.
func (a *WebhookAuthenticator) Verify(header string) bool {
	if a.expected == "" {
		return false
	}
	value := strings.TrimSpace(header)
	if len(value) > 7 && strings.EqualFold(value[:7], "SHA256 ") {
		value = strings.TrimSpace(value[7:])
	}
	value = strings.ToLower(value)
	return subtle.ConstantTimeCompare([]byte(value), []byte(a.expected)) == 1
}
