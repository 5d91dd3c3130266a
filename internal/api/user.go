package api

import (
	"net/http"
	"strings"

	"vocab-api/internal/database"
	"vocab-api/internal/middleware"
	"vocab-api/internal/models"
	"vocab-api/internal/response"
	"vocab-api/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

// PracticeItemRequest represents a term saved for review
type PracticeItemRequest struct {
	Word       string `json:"word"`
	Phrase     string `json:"phrase"`
	Definition string `json:"definition"`
	Meaning    string `json:"meaning"`
	Type       string `json:"type"`
}

// ProfileResponse is the account with its subscription and purchases
type ProfileResponse struct {
	User            AccountUser             `json:"user"`
	Subscription    models.Subscription     `json:"subscription"`
	PurchaseHistory []models.PurchaseRecord `json:"purchaseHistory"`
}

// Profile returns subscription details and purchase history
func (h *Handler) Profile(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	history, err := database.GetPurchaseHistory(h.db.WithContext(c.Request.Context()), user.ID)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	if history == nil {
		history = []models.PurchaseRecord{}
	}

	response.SuccessJSON(c, ProfileResponse{
		User:            AccountUser{ID: user.ID, Name: user.Name, Email: user.Email},
		Subscription:    user.Subscription,
		PurchaseHistory: history,
	})
}

// ListPracticeQueue returns the saved terms
func (h *Handler) ListPracticeQueue(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	items, err := database.ListPracticeItems(h.db.WithContext(c.Request.Context()), user.ID)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	if items == nil {
		items = []models.PracticeItem{}
	}
	response.SuccessJSON(c, gin.H{"items": items})
}

// AddToPracticeQueue saves a word or phrase; saving the same term twice is a no-op
func (h *Handler) AddToPracticeQueue(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	var req PracticeItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, apperrors.CodeValidationFailed, "Invalid request format")
		return
	}

	term := strings.TrimSpace(req.Word)
	source := "ows"
	if term == "" {
		term = strings.TrimSpace(req.Phrase)
		source = "iph"
	}
	if term == "" {
		response.ErrorJSON(c, http.StatusBadRequest, apperrors.CodeValidationFailed, "Word or phrase is required")
		return
	}
	if req.Type != "" {
		source = req.Type
	}
	definition := req.Definition
	if definition == "" {
		definition = req.Meaning
	}

	created, err := database.AddPracticeItem(h.db.WithContext(c.Request.Context()), &models.PracticeItem{
		UserID:     user.ID,
		Term:       term,
		Definition: definition,
		Source:     source,
	})
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.SuccessJSON(c, gin.H{"added": created})
}

// RemoveFromPracticeQueue removes one term when ?term= is given, otherwise clears the queue
func (h *Handler) RemoveFromPracticeQueue(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	db := h.db.WithContext(c.Request.Context())

	if term := strings.TrimSpace(c.Query("term")); term != "" {
		removed, err := database.RemovePracticeItem(db, user.ID, term)
		if err != nil {
			response.HandleError(c, err)
			return
		}
		response.SuccessJSON(c, gin.H{"removed": removed})
		return
	}

	cleared, err := database.ClearPracticeQueue(db, user.ID)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.SuccessJSON(c, gin.H{"removed": cleared})
}
