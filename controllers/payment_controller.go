package controllers

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gymease/backend/config"
	"github.com/gymease/backend/services"
	"github.com/gymease/backend/utils"
)

// PaymentController receives payment provider callbacks
type PaymentController struct {
	transactions *services.TransactionService
	cfg          *config.Config
}

func NewPaymentController(transactions *services.TransactionService, cfg *config.Config) *PaymentController {
	return &PaymentController{transactions: transactions, cfg: cfg}
}

// XenditCallback confirms the transaction referenced by a settled QR payment.
// Non-success events are acknowledged and ignored.
func (pc *PaymentController) XenditCallback(c *gin.Context) {
	expected := pc.cfg.Payment.XenditCallbackToken
	got := c.GetHeader("x-callback-token")
	if expected == "" || subtle.ConstantTimeCompare([]byte(expected), []byte(got)) != 1 {
		utils.LogError("Rejected Xendit callback from %s: bad callback token", c.ClientIP())
		utils.Unauthorized(c, "Invalid callback token")
		return
	}

	var cb services.XenditCallback
	if err := c.ShouldBindJSON(&cb); err != nil {
		utils.BadRequest(c, "Invalid callback payload", err.Error())
		return
	}
	if cb.Data.ReferenceID == "" {
		utils.BadRequest(c, "Missing reference_id", nil)
		return
	}

	if !cb.Succeeded() {
		utils.LogInfo("Ignoring Xendit %s callback for %s with status %s", cb.Event, cb.Data.ReferenceID, cb.Data.Status)
		c.JSON(http.StatusOK, utils.StandardResponse{Status: "success", Message: "Callback ignored"})
		return
	}

	trx, err := pc.transactions.AcknowledgePayment(c.Request.Context(), cb.Data.ReferenceID, cb.Data.Amount)
	if err != nil {
		utils.LogError("Payment callback for %s could not be applied: %v", cb.Data.ReferenceID, err)
		utils.RespondError(c, err)
		return
	}
	utils.LogInfo("Payment callback applied to %s (qr %s)", trx.Code, cb.Data.QRID)
	utils.Success(c, "Payment confirmed", gin.H{"code": trx.Code, "status": trx.Status})
}
