package api

import (
	"net/http"

	"vocab-api/internal/middleware"
	"vocab-api/internal/response"
	"vocab-api/internal/services"
	"vocab-api/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

// ListPlans returns the plan catalogue
func (h *Handler) ListPlans(c *gin.Context) {
	response.SuccessJSON(c, services.Plans())
}

// InitiatePayment creates an order and returns the gateway redirect
// POST /api/pay/initiate {plan, amount, mobileNumber}
func (h *Handler) InitiatePayment(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.ErrorJSON(c, http.StatusUnauthorized, apperrors.CodeUnauthenticated, "Please log in to continue")
		return
	}

	var req services.InitiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, apperrors.CodePlanAmountRequired, "Plan and amount are required")
		return
	}

	result, err := h.payments.InitiatePayment(c.Request.Context(), user, req)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.SuccessJSON(c, result)
}

// PaymentStatus reports an order's state, confirming it with the gateway when still open
// GET /api/pay/status/:merchantTransactionId
func (h *Handler) PaymentStatus(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.ErrorJSON(c, http.StatusUnauthorized, apperrors.CodeUnauthenticated, "Please log in to continue")
		return
	}

	result, err := h.payments.CheckPaymentStatus(c.Request.Context(), user.ID, c.Param("merchantTransactionId"))
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.SuccessJSON(c, result)
}
