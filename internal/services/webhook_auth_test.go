package services

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWebhookAuthenticator(t *testing.T) {
	sum := sha256.Sum256([]byte("merchant:pa55"))
	digest := hex.EncodeToString(sum[:])
	auth := NewWebhookAuthenticator("merchant", "pa55")

	assert.True(t, auth.Verify(digest))
	assert.True(t, auth.Verify("SHA256 "+digest))
	assert.True(t, auth.Verify("sha256 "+digest))
	assert.False(t, auth.Verify(""))
	assert.False(t, auth.Verify("SHA256 deadbeef"))
}

func TestWebhookAuthenticatorUnconfiguredRejects(t *testing.T) {
	auth := NewWebhookAuthenticator("", "")
	sum := sha256.Sum256([]byte(":"))
	assert.False(t, auth.Verify(hex.EncodeToString(sum[:])))
}
