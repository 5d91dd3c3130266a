package api

import (
	"net/http"

	"vocab-api/internal/middleware"
	"vocab-api/internal/models"
	"vocab-api/internal/response"
	"vocab-api/internal/services"
	"vocab-api/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

// LoginRequest represents login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// ForgotPasswordRequest represents forgot password request
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required"`
}

// ResetPasswordRequest represents reset password request
type ResetPasswordRequest struct {
	Token           string `json:"token" binding:"required"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
}

// AccountResponse is returned by register, login and me
type AccountResponse struct {
	User         *AccountUser         `json:"user"`
	Subscription *models.Subscription `json:"subscription"`
}

// AccountUser is the public part of a user
type AccountUser struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func accountResponse(user *models.User) AccountResponse {
	if user == nil {
		return AccountResponse{}
	}
	sub := user.Subscription
	return AccountResponse{
		User:         &AccountUser{ID: user.ID, Name: user.Name, Email: user.Email},
		Subscription: &sub,
	}
}

// Register creates an account and starts a session
func (h *Handler) Register(c *gin.Context) {
	var req services.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, apperrors.CodeValidationFailed, "Name, email, password and confirmPassword are required")
		return
	}

	user, token, err := h.auth.Register(c.Request.Context(), req)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	h.setSessionCookie(c, token)
	response.JSON(c, http.StatusCreated, response.Success(accountResponse(user)))
}

// Login starts a session
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, apperrors.CodeValidationFailed, "Email and password are required")
		return
	}

	user, token, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	h.setSessionCookie(c, token)
	response.SuccessJSON(c, accountResponse(user))
}

// Logout clears the session cookie
func (h *Handler) Logout(c *gin.Context) {
	c.SetSameSite(h.sameSite())
	c.SetCookie(middleware.TokenCookie, "", -1, "/", "", h.opts.CookieSecure, true)
	response.MessageJSON(c, "Logged out")
}

// Me returns the current account or nulls for anonymous callers
func (h *Handler) Me(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	response.SuccessJSON(c, accountResponse(user))
}

// ForgotPassword emails a reset link; the reply is the same whether or not the account exists
func (h *Handler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, apperrors.CodeValidationFailed, "Email is required")
		return
	}

	if err := h.auth.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		response.HandleError(c, err)
		return
	}
	response.MessageJSON(c, "If an account exists for this email, a reset link has been sent")
}

// ResetPassword sets a new password from an emailed token
func (h *Handler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, apperrors.CodeValidationFailed, "Token, password and confirmPassword are required")
		return
	}

	if err := h.auth.ResetPassword(c.Request.Context(), req.Token, req.Password, req.ConfirmPassword); err != nil {
		response.HandleError(c, err)
		return
	}
	response.MessageJSON(c, "Password reset successful")
}

func (h *Handler) setSessionCookie(c *gin.Context, token string) {
	c.SetSameSite(h.sameSite())
	c.SetCookie(middleware.TokenCookie, token, int(h.auth.TokenTTL().Seconds()), "/", "", h.opts.CookieSecure, true)
}

// cross-site cookies need SameSite=None, which browsers only accept with Secure
func (h *Handler) sameSite() http.SameSite {
	if h.opts.CookieSecure {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}
