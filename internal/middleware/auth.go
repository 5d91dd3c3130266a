package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"vocab-api/internal/database"
	"vocab-api/internal/models"
	"vocab-api/internal/response"
	"vocab-api/internal/services"
	"vocab-api/pkg/apperrors"
	"vocab-api/pkg/logging"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// TokenCookie is the session cookie name
const TokenCookie = "token"

const userContextKey = "user"

// Authenticator resolves the session token into a user
type Authenticator struct {
	db     *gorm.DB
	auth   *services.AuthService
	ledger *services.EntitlementLedger
	now    func() time.Time
}

// NewAuthenticator creates an authenticator
func NewAuthenticator(db *gorm.DB, auth *services.AuthService, ledger *services.EntitlementLedger) *Authenticator {
	return &Authenticator{db: db, auth: auth, ledger: ledger, now: time.Now}
}

// RequireAuth rejects requests without a valid session
func (a *Authenticator) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			response.AbortJSON(c, http.StatusUnauthorized, apperrors.CodeUnauthenticated, "Please log in to continue")
			return
		}

		user, err := a.resolve(c, token)
		if err != nil {
			response.HandleError(c, err)
			return
		}

		c.Set(userContextKey, user)
		c.Next()
	}
}

// OptionalAuth attaches the user when a valid session is present
func (a *Authenticator) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := extractToken(c); token != "" {
			if user, err := a.resolve(c, token); err == nil {
				c.Set(userContextKey, user)
			}
		}
		c.Next()
	}
}

// RequireActiveSubscription must run after RequireAuth or OptionalAuth
func RequireActiveSubscription() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			response.AbortJSON(c, http.StatusUnauthorized, apperrors.CodeSubscriptionRequired, "Please subscribe to access this feature")
			return
		}

		switch user.Subscription.StatusAt(time.Now()) {
		case models.SubscriptionActive:
			c.Next()
		case models.SubscriptionInactive:
			response.AbortJSON(c, http.StatusForbidden, apperrors.CodeSubscriptionRequired, "This feature requires an active subscription")
		default:
			response.AbortJSON(c, http.StatusForbidden, apperrors.CodeSubscriptionExpired, "Your subscription has expired. Please renew to continue using premium features.")
		}
	}
}

// CurrentUser returns the user attached by the auth middleware
func CurrentUser(c *gin.Context) (*models.User, bool) {
	value, exists := c.Get(userContextKey)
	if !exists {
		return nil, false
	}
	user, ok := value.(*models.User)
	return user, ok && user != nil
}

// HasActiveSubscription reports whether the current user, if any, is subscribed
func HasActiveSubscription(c *gin.Context) bool {
	user, ok := CurrentUser(c)
	return ok && user.Subscription.IsActive(time.Now())
}

func (a *Authenticator) resolve(c *gin.Context, token string) (*models.User, error) {
	claims, err := a.auth.ParseToken(token)
	if err != nil {
		return nil, err
	}

	ctx := c.Request.Context()
	user, err := database.GetUserByID(a.db.WithContext(ctx), claims.UserID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, services.ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}

	if err := a.ledger.Refresh(ctx, user); err != nil {
		// cached fields are recomputed on the next read
		logging.Warnf("Failed to refresh subscription for user %d: %v", user.ID, err)
		user.Subscription.Refresh(a.now())
	}
	return user, nil
}

func extractToken(c *gin.Context) string {
	if token, err := c.Cookie(TokenCookie); err == nil && token != "" {
		return token
	}
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return ""
}
