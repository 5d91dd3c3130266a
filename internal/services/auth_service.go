package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"vocab-api/internal/database"
	"vocab-api/internal/models"
	"vocab-api/pkg/apperrors"
	"vocab-api/pkg/logging"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	passwordCost     = 12
	minPasswordLen   = 8
	resetTokenTTL    = 10 * time.Minute
	resetTokenLength = 32
)

var (
	ErrInvalidToken       = apperrors.New(apperrors.CodeInvalidToken, "Invalid or expired session", http.StatusUnauthorized)
	errUserExists         = apperrors.New(apperrors.CodeUserExists, "An account with this email already exists", http.StatusConflict)
	errInvalidCredentials = apperrors.New(apperrors.CodeInvalidCredentials, "Invalid email or password", http.StatusUnauthorized)
	errResetTokenInvalid  = apperrors.Validation(apperrors.CodeResetTokenInvalid, "Reset link is invalid or has expired")
)

// Claims is the session token payload
type Claims struct {
	UserID uint   `json:"uid"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// RegisterRequest is the signup form
type RegisterRequest struct {
	Name            string `json:"name" binding:"required"`
	Email           string `json:"email" binding:"required"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
}

// AuthService handles accounts, passwords and session tokens
type AuthService struct {
	db           *gorm.DB
	mailer       Mailer
	secret       []byte
	tokenTTL     time.Duration
	clientOrigin string
	now          func() time.Time
}

// NewAuthService creates an auth service
func NewAuthService(db *gorm.DB, mailer Mailer, secret string, tokenTTL time.Duration, clientOrigin string) *AuthService {
	return &AuthService{
		db:           db,
		mailer:       mailer,
		secret:       []byte(secret),
		tokenTTL:     tokenTTL,
		clientOrigin: clientOrigin,
		now:          time.Now,
	}
}

// TokenTTL is how long issued session tokens stay valid
func (s *AuthService) TokenTTL() time.Duration {
	return s.tokenTTL
}

// Register creates an account and returns a session token for it
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*models.User, string, error) {
	name := strings.TrimSpace(req.Name)
	email := database.NormalizeEmail(req.Email)
	if name == "" {
		return nil, "", apperrors.Validation(apperrors.CodeValidationFailed, "Name is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, "", apperrors.Validation(apperrors.CodeValidationFailed, "Please provide a valid email")
	}
	if err := validatePassword(req.Password, req.ConfirmPassword); err != nil {
		return nil, "", err
	}

	db := s.db.WithContext(ctx)
	if _, err := database.GetUserByEmail(db, email); err == nil {
		return nil, "", errUserExists
	} else if !errors.Is(err, database.ErrNotFound) {
		return nil, "", apperrors.Internal(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), passwordCost)
	if err != nil {
		return nil, "", apperrors.Internal(fmt.Errorf("failed to hash password: %w", err))
	}

	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Subscription: models.Subscription{Status: models.SubscriptionInactive},
	}
	if err := database.CreateUser(db, user); err != nil {
		// lost a race with a concurrent signup
		if _, lookupErr := database.GetUserByEmail(db, email); lookupErr == nil {
			return nil, "", errUserExists
		}
		return nil, "", apperrors.Internal(err)
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return nil, "", apperrors.Internal(err)
	}
	logging.Infof("User registered: %d", user.ID)
	return user, token, nil
}

// Login checks credentials and returns a session token
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := database.GetUserByEmail(s.db.WithContext(ctx), email)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, "", errInvalidCredentials
		}
		return nil, "", apperrors.Internal(err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, "", errInvalidCredentials
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return nil, "", apperrors.Internal(err)
	}
	return user, token, nil
}

// IssueToken signs an HS256 session token for the user
func (s *AuthService) IssueToken(user *models.User) (string, error) {
	now := s.now()
	claims := Claims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// ParseToken validates a session token
func (s *AuthService) ParseToken(tokenString string) (*Claims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}), jwt.WithTimeFunc(s.now))
	claims := &Claims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil || !token.Valid || claims.UserID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ForgotPassword emails a reset link when the account exists. Unknown
// addresses succeed silently so the endpoint cannot be used to probe accounts.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	db := s.db.WithContext(ctx)
	user, err := database.GetUserByEmail(db, email)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil
		}
		return apperrors.Internal(err)
	}

	raw := make([]byte, resetTokenLength)
	if _, err := rand.Read(raw); err != nil {
		return apperrors.Internal(err)
	}
	token := hex.EncodeToString(raw)
	expires := s.now().Add(resetTokenTTL)

	if err := db.Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
		"reset_password_token_hash": hashResetToken(token),
		"reset_password_expires_at": expires,
	}).Error; err != nil {
		return apperrors.Internal(err)
	}

	resetURL := fmt.Sprintf("%s/reset-password/%s", s.clientOrigin, token)
	if err := s.mailer.SendPasswordReset(ctx, user.Email, user.Name, resetURL); err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

// ResetPassword sets a new password using an emailed token
func (s *AuthService) ResetPassword(ctx context.Context, token, password, confirmPassword string) error {
	if err := validatePassword(password, confirmPassword); err != nil {
		return err
	}

	db := s.db.WithContext(ctx)
	user, err := database.GetUserByResetTokenHash(db, hashResetToken(token), s.now())
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return errResetTokenInvalid
		}
		return apperrors.Internal(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), passwordCost)
	if err != nil {
		return apperrors.Internal(err)
	}

	return db.Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
		"password_hash":             string(hash),
		"reset_password_token_hash": "",
		"reset_password_expires_at": nil,
	}).Error
}

func validatePassword(password, confirm string) error {
	if len(password) < minPasswordLen {
		return apperrors.Validation(apperrors.CodeValidationFailed, fmt.Sprintf("Password must be at least %d characters long", minPasswordLen))
	}
	if password != confirm {
		return apperrors.Validation(apperrors.CodeValidationFailed, "Passwords do not match")
	}
	return nil
}

func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
