package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thereayou/sneakyspeak/internal/handlers/dto"
	"github.com/thereayou/sneakyspeak/internal/middleware"
	"github.com/thereayou/sneakyspeak/internal/payment"
)

type PaymentHandler struct {
	settlement *payment.Service
}

func NewPaymentHandler(settlement *payment.Service) *PaymentHandler {
	return &PaymentHandler{settlement: settlement}
}

// VerifyPayment settles a gateway reference into a coin credit.
func (h *PaymentHandler) VerifyPayment(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uint64)

	reference := c.Param("reference")
	if reference == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reference is required"})
		return
	}

	var req dto.SettleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	newBalance, err := h.settlement.Settle(c.Request.Context(), userID, reference, req.Coins)
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrDuplicateReference):
			c.JSON(http.StatusBadRequest, gin.H{"error": "this payment reference has already been used"})
		case errors.Is(err, payment.ErrAmountMismatch):
			c.JSON(http.StatusBadRequest, gin.H{"error": "payment amount mismatch"})
		case errors.Is(err, payment.ErrVerificationFailed):
			c.JSON(http.StatusBadRequest, gin.H{"error": "payment verification failed"})
		case errors.Is(err, payment.ErrVerifierUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "payment gateway unavailable, try again later"})
		default:
			log.Printf("settlement of %s for user %d failed: %v", reference, userID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify payment"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.SettleResponse{
		Success: true,
		Message: fmt.Sprintf("successfully added %d coins to your balance", req.Coins),
		Coins:   newBalance,
	})
}
