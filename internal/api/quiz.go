package api

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"

	"vocab-api/internal/middleware"
	"vocab-api/internal/quiz"
	"vocab-api/internal/response"
	"vocab-api/pkg/apperrors"
	"vocab-api/pkg/logging"

	"github.com/gin-gonic/gin"
)

// SubmitQuizRequest represents a finished quiz
type SubmitQuizRequest struct {
	Letter string `json:"letter"`
	Type   string `json:"type"`
	Score  int    `json:"score"`
	Total  int    `json:"total"`
}

// rotatingQuiz serves one rotating quiz type. The client sends back the
// wordAttempts map it received last time as a JSON query parameter.
func (h *Handler) rotatingQuiz(quizType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, _ := middleware.CurrentUser(c)

		result, err := h.quiz.Rotating(c.Request.Context(), quiz.RotationRequest{
			UserID:       user.ID,
			Type:         quizType,
			Letter:       c.DefaultQuery("letter", "A"),
			WordAttempts: parseWordAttempts(c.Query("wordAttempts")),
			Reset:        c.Query("reset") == "true",
		})
		if err != nil {
			response.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// FreeQuiz serves the free top-200 quiz
func (h *Handler) FreeQuiz(c *gin.Context) {
	c.JSON(http.StatusOK, h.quiz.Free())
}

// GenerateQuiz serves a non-rotating quiz; premium types need a subscription
// GET /api/quiz/generate?type=ows&letter=A&pageSize=20
func (h *Handler) GenerateQuiz(c *gin.Context) {
	quizType := c.DefaultQuery("type", quiz.TypeOWS)
	if quiz.IsPremium(quizType) && !middleware.HasActiveSubscription(c) {
		c.JSON(http.StatusForbidden, gin.H{
			"success":        false,
			"error":          apperrors.CodeSubscriptionRequired,
			"message":        "This quiz type requires an active subscription. Please upgrade to access premium features.",
			"premiumFeature": true,
		})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("pageSize"))
	result, err := h.quiz.Generate(quiz.GenerateRequest{
		Type:     quizType,
		Letter:   c.DefaultQuery("letter", "A"),
		Page:     page,
		PageSize: pageSize,
		Random:   c.Query("random") != "",
	})
	if err != nil {
		response.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// SubmitQuiz acknowledges a finished quiz; scores are not stored
func (h *Handler) SubmitQuiz(c *gin.Context) {
	var req SubmitQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, apperrors.CodeValidationFailed, "Invalid request format")
		return
	}
	logging.Infof("Quiz submitted - type: %s, letter: %s, score: %d/%d", req.Type, req.Letter, req.Score, req.Total)
	response.MessageJSON(c, "Quiz results saved")
}

// parseWordAttempts decodes the client echo; anything malformed is dropped
func parseWordAttempts(raw string) map[string]int {
	if raw == "" {
		return nil
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil
	}
	attempts := make(map[string]int, len(decoded))
	for key, value := range decoded {
		n, ok := value.(float64)
		if !ok || n != math.Trunc(n) {
			continue
		}
		attempts[key] = int(n)
	}
	return attempts
}
