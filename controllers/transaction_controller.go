package controllers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gymease/backend/config"
	"github.com/gymease/backend/middleware"
	"github.com/gymease/backend/models"
	"github.com/gymease/backend/services"
	"github.com/gymease/backend/utils"
)

type TransactionController struct {
	transactions *services.TransactionService
	cfg          *config.Config
}

func NewTransactionController(transactions *services.TransactionService, cfg *config.Config) *TransactionController {
	return &TransactionController{transactions: transactions, cfg: cfg}
}

type CreateTransactionRequest struct {
	ProductID uint  `json:"product_id" binding:"required"`
	SlotID    *uint `json:"slot_id"`
	PromoID   *uint `json:"promo_id"`
}

// respondWithTransaction reports err, attaching trx when the row was committed before the failure
func respondWithTransaction(c *gin.Context, trx *models.Transaction, err error) {
	if trx != nil {
		if appErr := utils.GetAppError(err); appErr != nil && utils.IsUpstreamError(err) {
			utils.ErrorWithData(c, appErr.Code, appErr.Message, gin.H{"transaction": trx})
			return
		}
	}
	utils.RespondError(c, err)
}

func (tc *TransactionController) Create(c *gin.Context) {
	claims := middleware.Claims(c)
	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError("Transaction creation failed - Invalid request format: %v", err)
		utils.BadRequest(c, "product_id is required", err.Error())
		return
	}

	trx, err := tc.transactions.Create(c.Request.Context(), services.CreateTransactionInput{
		MemberID:  claims.UserID,
		ProductID: req.ProductID,
		SlotID:    req.SlotID,
		PromoID:   req.PromoID,
	})
	if err != nil {
		utils.LogError("Transaction creation failed for member %d: %v", claims.UserID, err)
		respondWithTransaction(c, trx, err)
		return
	}
	utils.Created(c, "Transaction created successfully", gin.H{"transaction": trx})
}

func (tc *TransactionController) IssueQR(c *gin.Context) {
	trx, err := tc.transactions.IssueQR(c.Request.Context(), c.Param("code"), middleware.Claims(c))
	if err != nil {
		respondWithTransaction(c, trx, err)
		return
	}
	utils.Success(c, "Payment QR issued successfully", gin.H{"transaction": trx})
}

func (tc *TransactionController) Cancel(c *gin.Context) {
	trx, err := tc.transactions.Cancel(c.Request.Context(), c.Param("code"), middleware.Claims(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Transaction cancelled successfully", gin.H{"transaction": trx})
}

// GetByCode is public: the code itself is the secret shown on the payment page
func (tc *TransactionController) GetByCode(c *gin.Context) {
	trx, err := tc.transactions.GetByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Transaction retrieved successfully", gin.H{"transaction": trx})
}

func (tc *TransactionController) filter(c *gin.Context) (services.TransactionFilter, bool) {
	var f services.TransactionFilter
	if raw := c.Query("status"); raw != "" {
		status, ok := models.ParseTransactionStatus(raw)
		if !ok {
			utils.BadRequest(c, "Invalid status", raw)
			return f, false
		}
		f.Status = status
	}

	loc := tc.cfg.Location()
	from, ok := queryDate(c, "from", loc)
	if !ok {
		return f, false
	}
	to, ok := queryDate(c, "to", loc)
	if !ok {
		return f, false
	}
	f.From = from
	if to != nil {
		// inclusive end day
		end := to.AddDate(0, 0, 1)
		f.To = &end
	}
	f.Search = c.Query("search")
	return f, true
}

func (tc *TransactionController) Mine(c *gin.Context) {
	f, ok := tc.filter(c)
	if !ok {
		return
	}
	claims := middleware.Claims(c)
	f.MemberID = &claims.UserID
	f.Search = ""

	p := utils.NewPagination(c)
	trxs, err := tc.transactions.List(c.Request.Context(), f, p)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessWithPagination(c, "Transactions retrieved successfully", trxs, p)
}

func (tc *TransactionController) List(c *gin.Context) {
	f, ok := tc.filter(c)
	if !ok {
		return
	}
	memberID, ok := queryUint(c, "member_id")
	if !ok {
		return
	}
	f.MemberID = memberID

	p := utils.NewPagination(c)
	trxs, err := tc.transactions.List(c.Request.Context(), f, p)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessWithPagination(c, "Transactions retrieved successfully", trxs, p)
}

func (tc *TransactionController) Confirm(c *gin.Context) {
	code := c.Param("code")
	trx, err := tc.transactions.ConfirmByCode(c.Request.Context(), code)
	if err != nil {
		utils.LogError("Manual confirmation of %s failed: %v", code, err)
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Transaction confirmed successfully", gin.H{"transaction": trx})
}

func (tc *TransactionController) Statistics(c *gin.Context) {
	f, ok := tc.filter(c)
	if !ok {
		return
	}
	stats, err := tc.transactions.Statistics(c.Request.Context(), f)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Transaction statistics retrieved successfully", stats)
}

// Export downloads an xlsx report, defaulting to the current month
func (tc *TransactionController) Export(c *gin.Context) {
	f, ok := tc.filter(c)
	if !ok {
		return
	}
	now := time.Now().In(tc.cfg.Location())
	if f.From == nil {
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		f.From = &start
	}
	if f.To == nil {
		end := utils.StartOfDay(now).AddDate(0, 0, 1)
		f.To = &end
	}

	trxs, err := tc.transactions.All(c.Request.Context(), f)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	stats, err := tc.transactions.Statistics(c.Request.Context(), f)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	var buf bytes.Buffer
	lastDay := f.To.AddDate(0, 0, -1)
	if err := services.WriteTransactionsXLSX(&buf, trxs, stats, *f.From, lastDay); err != nil {
		utils.LogError("Failed to build transaction report: %v", err)
		utils.InternalServerError(c, "Failed to generate report", err.Error())
		return
	}

	filename := fmt.Sprintf("transactions_%s_%s.xlsx", f.From.Format("20060102"), lastDay.Format("20060102"))
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func (tc *TransactionController) Invoice(c *gin.Context) {
	trx, err := tc.transactions.GetByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	claims := middleware.Claims(c)
	if claims.Role != models.RoleAdmin && trx.MemberID != claims.UserID {
		utils.Forbidden(c, "You do not own this transaction")
		return
	}

	var buf bytes.Buffer
	if err := services.WriteInvoicePDF(&buf, trx); err != nil {
		utils.RespondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=invoice_%s.pdf", trx.Code))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
