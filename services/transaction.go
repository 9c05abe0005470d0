package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gymease/backend/config"
	"github.com/gymease/backend/models"
	"github.com/gymease/backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CreateTransactionInput is a member's purchase request
type CreateTransactionInput struct {
	MemberID  uint
	ProductID uint
	SlotID    *uint
	PromoID   *uint
}

// TransactionFilter narrows transaction listings. Zero values mean no filter.
type TransactionFilter struct {
	MemberID *uint
	Status   models.TransactionStatus
	From     *time.Time
	To       *time.Time
	Search   string
}

// TransactionStats summarises transactions over a date range
type TransactionStats struct {
	Total       int64                              `json:"total"`
	ByStatus    map[models.TransactionStatus]int64 `json:"by_status"`
	PaidRevenue decimal.Decimal                    `json:"paid_revenue"`
}

type TransactionService struct {
	db     *gorm.DB
	cfg    *config.Config
	qr     QRProvider
	outbox *Outbox
	now    func() time.Time
}

func NewTransactionService(db *gorm.DB, cfg *config.Config, qr QRProvider, outbox *Outbox) *TransactionService {
	loc := cfg.Location()
	return &TransactionService{
		db:     db,
		cfg:    cfg,
		qr:     qr,
		outbox: outbox,
		now:    func() time.Time { return time.Now().In(loc) },
	}
}

func (s *TransactionService) preloaded(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Preload("Member.Profile").
		Preload("Product").
		Preload("Promo").
		Preload("Trainer").
		Preload("Slot")
}

// Create prices and stores an unpaid transaction, then asks the QR provider for a
// payment code. When the provider fails the stored transaction is still returned,
// together with an upstream error.
func (s *TransactionService) Create(ctx context.Context, in CreateTransactionInput) (*models.Transaction, error) {
	db := s.db.WithContext(ctx)

	var member models.User
	if err := db.Preload("Profile").First(&member, in.MemberID).Error; err != nil {
		return nil, lookupError(err, "Member")
	}
	if member.Profile.Role != models.RoleMember {
		return nil, utils.ForbiddenError("Only members can purchase packages", nil)
	}

	var product models.Product
	if err := db.First(&product, in.ProductID).Error; err != nil {
		return nil, lookupError(err, "Product")
	}
	if !product.IsActive {
		return nil, utils.ValidationFailedError("Product is not available for purchase", nil)
	}

	var slot *models.TrainerSlot
	if in.SlotID != nil {
		slot = &models.TrainerSlot{}
		if err := db.First(slot, *in.SlotID).Error; err != nil {
			return nil, lookupError(err, "Trainer schedule")
		}
		if !slot.IsAvailable {
			return nil, utils.ValidationFailedError("Trainer schedule is not available", nil)
		}
	}

	now := s.now()

	var promo *models.Promo
	if in.PromoID != nil {
		promo = &models.Promo{}
		if err := db.First(promo, *in.PromoID).Error; err != nil {
			return nil, lookupError(err, "Promo")
		}
		if promo.ProductID != product.ID {
			return nil, utils.ValidationFailedError("Promo does not apply to this product", nil)
		}
		if !promo.AppliesAt(now) {
			return nil, utils.ValidationFailedError("Promo is not active today", nil)
		}
	}

	code, err := utils.UniqueCode(db, "transactions", "code", utils.TransactionCodePrefix, utils.TransactionCodeLength)
	if err != nil {
		return nil, utils.WrapError(err, "failed to generate transaction code")
	}

	window := utils.MembershipWindow(now, product.DurationDays)
	trx := models.Transaction{
		Code:            code,
		MemberID:        member.ID,
		ProductID:       product.ID,
		BasePrice:       product.Price,
		DiscountPercent: decimal.Zero,
		TotalAmount:     utils.RupiahAmount(utils.EffectivePrice(product.Price, promo)),
		Status:          models.StatusUnpaid,
		MembershipStart: window.Start,
		MembershipEnd:   window.End,
		ExpiresAt:       now.Add(s.cfg.Payment.UnpaidTTL),
	}
	if promo != nil {
		trx.PromoID = &promo.ID
		trx.DiscountPercent = promo.DiscountPercent
	}
	if slot != nil {
		trx.SlotID = &slot.ID
		trx.TrainerID = &slot.TrainerID
	}

	if err := db.Create(&trx).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, utils.ConflictError("Transaction code collision, please retry", err)
		}
		return nil, utils.WrapError(err, "failed to create transaction")
	}
	utils.TransactionsCreated.Inc()
	utils.LogInfo("Transaction %s created for member %d: product %d, total %s", trx.Code, member.ID, product.ID, trx.TotalAmount)

	trx.Member = &member
	trx.Product = &product
	trx.Promo = promo

	if err := s.attachQR(ctx, &trx); err != nil {
		return s.reload(ctx, &trx), err
	}

	s.notify(ctx, models.ChannelWhatsApp, member.Profile.Phone, "", paymentLinkMessage(&trx), trx.Code)
	return s.reload(ctx, &trx), nil
}

// attachQR mints a QR for trx and stores it. The transaction row is left untouched on failure.
func (s *TransactionService) attachQR(ctx context.Context, trx *models.Transaction) error {
	qrCtx, cancel := context.WithTimeout(ctx, s.cfg.Payment.Timeout)
	defer cancel()

	qr, err := s.qr.CreateQR(qrCtx, QRRequest{
		ReferenceID: trx.Code,
		Amount:      trx.TotalAmount,
		Description: fmt.Sprintf("%s %s", utils.AppName, trx.Code),
		ExpiresAt:   trx.ExpiresAt,
	})
	if err != nil {
		utils.PaymentQRFailures.WithLabelValues(s.qr.Name()).Inc()
		utils.LogError("QR creation via %s failed for transaction %s: %v", s.qr.Name(), trx.Code, err)
		return utils.UpstreamError("Payment provider is unavailable, transaction saved as unpaid", err)
	}

	updates := map[string]interface{}{
		"payment_provider":  s.qr.Name(),
		"payment_qr_id":     qr.ID,
		"payment_qr_string": qr.QRString,
		"payment_qr_url":    qr.ImageURL,
	}
	if !qr.ExpiresAt.IsZero() {
		updates["expires_at"] = qr.ExpiresAt
	}
	if err := s.db.WithContext(ctx).Model(trx).Updates(updates).Error; err != nil {
		return utils.WrapError(err, "failed to store payment qr")
	}

	trx.PaymentProvider = s.qr.Name()
	trx.PaymentQRID = qr.ID
	trx.PaymentQRString = qr.QRString
	trx.PaymentQRURL = qr.ImageURL
	if !qr.ExpiresAt.IsZero() {
		trx.ExpiresAt = qr.ExpiresAt
	}
	utils.LogInfo("QR %s attached to transaction %s", qr.ID, trx.Code)
	return nil
}

// IssueQR retries QR creation for an unpaid transaction that has none
func (s *TransactionService) IssueQR(ctx context.Context, code string, actor *utils.TokenClaims) (*models.Transaction, error) {
	trx, err := s.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := authorizeOwner(trx, actor); err != nil {
		return nil, err
	}
	if trx.Status != models.StatusUnpaid {
		return nil, utils.ConflictError(fmt.Sprintf("Transaction is %s", trx.Status), nil)
	}
	if trx.HasQR() {
		return trx, nil
	}
	if err := s.attachQR(ctx, trx); err != nil {
		return trx, err
	}
	phone, _ := contactOf(trx)
	s.notify(ctx, models.ChannelWhatsApp, phone, "", paymentLinkMessage(trx), trx.Code)
	return trx, nil
}

// Confirm moves an unpaid transaction to paid and records its membership window.
// The status change is a compare-and-set, so concurrent confirmations produce
// exactly one paid transition and one history row.
func (s *TransactionService) Confirm(ctx context.Context, id uint) (*models.Transaction, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var trx models.Transaction
		if err := tx.First(&trx, id).Error; err != nil {
			return lookupError(err, "Transaction")
		}

		paidAt := s.now()
		res := tx.Model(&models.Transaction{}).
			Where("id = ? AND status = ?", id, models.StatusUnpaid).
			Updates(map[string]interface{}{
				"status":  models.StatusPaid,
				"paid_at": paidAt,
			})
		if res.Error != nil {
			return utils.WrapError(res.Error, "failed to mark transaction paid")
		}
		if res.RowsAffected == 0 {
			return utils.ConflictError(fmt.Sprintf("Transaction %s is already %s", trx.Code, trx.Status), nil)
		}

		history := models.MembershipHistory{
			MemberID:      trx.MemberID,
			TransactionID: trx.ID,
			StartDate:     trx.MembershipStart,
			EndDate:       trx.MembershipEnd,
			IsActive:      true,
		}
		if err := tx.Create(&history).Error; err != nil {
			if isUniqueViolation(err) {
				return utils.ConflictError("Membership already recorded for this transaction", err)
			}
			return utils.WrapError(err, "failed to create membership history")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.TransactionsConfirmed.Inc()

	trx := &models.Transaction{}
	if err := s.preloaded(ctx).First(trx, id).Error; err != nil {
		return nil, lookupError(err, "Transaction")
	}
	utils.LogInfo("Transaction %s confirmed as paid", trx.Code)

	phone, email := contactOf(trx)
	s.notify(ctx, models.ChannelWhatsApp, phone, "", paidMessage(trx), trx.Code)
	s.notify(ctx, models.ChannelEmail, email, fmt.Sprintf("%s receipt %s", utils.AppName, trx.Code), receiptEmail(trx), trx.Code)
	return trx, nil
}

// ConfirmByCode confirms the transaction identified by its public code
func (s *TransactionService) ConfirmByCode(ctx context.Context, code string) (*models.Transaction, error) {
	var trx models.Transaction
	if err := s.db.WithContext(ctx).Select("id").Where("code = ?", normalizeCode(code)).First(&trx).Error; err != nil {
		return nil, lookupError(err, "Transaction")
	}
	return s.Confirm(ctx, trx.ID)
}

// AcknowledgePayment confirms a provider-reported payment of amount, which must equal
// the stored total. A transaction that is already paid is acknowledged without error
// so provider retries are harmless.
func (s *TransactionService) AcknowledgePayment(ctx context.Context, code string, amount decimal.Decimal) (*models.Transaction, error) {
	current, err := s.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !amount.Equal(current.TotalAmount) {
		utils.LogError("Payment for %s reported amount %s, expected %s", current.Code, amount, current.TotalAmount)
		return nil, utils.ValidationFailedError(
			fmt.Sprintf("Paid amount %s does not match transaction total %s", amount, current.TotalAmount), nil)
	}
	if current.Status == models.StatusPaid {
		utils.LogInfo("Duplicate payment callback for %s acknowledged", current.Code)
		return current, nil
	}

	trx, err := s.Confirm(ctx, current.ID)
	if utils.IsConflictError(err) {
		// a concurrent callback may have won the compare-and-set
		if again, getErr := s.GetByCode(ctx, code); getErr == nil && again.Status == models.StatusPaid {
			return again, nil
		}
	}
	return trx, err
}

// Cancel withdraws an unpaid transaction. Members may only cancel their own.
func (s *TransactionService) Cancel(ctx context.Context, code string, actor *utils.TokenClaims) (*models.Transaction, error) {
	trx, err := s.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := authorizeOwner(trx, actor); err != nil {
		return nil, err
	}

	res := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("id = ? AND status = ?", trx.ID, models.StatusUnpaid).
		Update("status", models.StatusCancelled)
	if res.Error != nil {
		return nil, utils.WrapError(res.Error, "failed to cancel transaction")
	}
	if res.RowsAffected == 0 {
		return nil, utils.ConflictError(fmt.Sprintf("Transaction %s is already %s", trx.Code, trx.Status), nil)
	}

	trx.Status = models.StatusCancelled
	utils.LogInfo("Transaction %s cancelled by user %d", trx.Code, actor.UserID)
	return trx, nil
}

// ExpireStale marks unpaid transactions whose payment deadline passed before now
func (s *TransactionService) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("status = ? AND expires_at < ?", models.StatusUnpaid, now).
		Update("status", models.StatusExpired)
	if res.Error != nil {
		return 0, utils.WrapError(res.Error, "failed to expire transactions")
	}
	if res.RowsAffected > 0 {
		utils.TransactionsExpired.Add(float64(res.RowsAffected))
	}
	return res.RowsAffected, nil
}

func (s *TransactionService) GetByCode(ctx context.Context, code string) (*models.Transaction, error) {
	var trx models.Transaction
	if err := s.preloaded(ctx).Where("code = ?", normalizeCode(code)).First(&trx).Error; err != nil {
		return nil, lookupError(err, "Transaction")
	}
	return &trx, nil
}

// normalizeCode accepts codes as members type them
func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (s *TransactionService) filtered(ctx context.Context, f TransactionFilter) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&models.Transaction{})
	if f.MemberID != nil {
		q = q.Where("transactions.member_id = ?", *f.MemberID)
	}
	if f.Status != "" {
		q = q.Where("transactions.status = ?", f.Status)
	}
	if f.From != nil {
		q = q.Where("transactions.created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("transactions.created_at < ?", *f.To)
	}
	if search := strings.ToLower(strings.TrimSpace(f.Search)); search != "" {
		like := "%" + search + "%"
		q = q.Where(
			"LOWER(transactions.code) LIKE ? OR transactions.member_id IN (SELECT id FROM users WHERE LOWER(username) LIKE ? OR LOWER(first_name) LIKE ?)",
			like, like, like,
		)
	}
	return q
}

// List returns one page of transactions, newest first
func (s *TransactionService) List(ctx context.Context, f TransactionFilter, p *utils.Pagination) ([]models.Transaction, error) {
	q, err := p.Paginate(s.filtered(ctx, f), &models.Transaction{})
	if err != nil {
		return nil, utils.WrapError(err, "failed to count transactions")
	}

	var trxs []models.Transaction
	err = q.Preload("Member.Profile").
		Preload("Product").
		Preload("Promo").
		Order("transactions.created_at DESC").
		Find(&trxs).Error
	if err != nil {
		return nil, utils.WrapError(err, "failed to list transactions")
	}
	return trxs, nil
}

// All returns every transaction matching f, used by report exports
func (s *TransactionService) All(ctx context.Context, f TransactionFilter) ([]models.Transaction, error) {
	var trxs []models.Transaction
	err := s.filtered(ctx, f).
		Preload("Member.Profile").
		Preload("Product").
		Preload("Promo").
		Order("transactions.created_at ASC").
		Find(&trxs).Error
	if err != nil {
		return nil, utils.WrapError(err, "failed to load transactions")
	}
	return trxs, nil
}

func (s *TransactionService) Statistics(ctx context.Context, f TransactionFilter) (*TransactionStats, error) {
	var rows []struct {
		Status models.TransactionStatus
		Count  int64
	}
	if err := s.filtered(ctx, f).Select("transactions.status AS status, COUNT(*) AS count").Group("transactions.status").Scan(&rows).Error; err != nil {
		return nil, utils.WrapError(err, "failed to count transactions by status")
	}

	stats := &TransactionStats{
		ByStatus: map[models.TransactionStatus]int64{
			models.StatusUnpaid:    0,
			models.StatusPaid:      0,
			models.StatusExpired:   0,
			models.StatusCancelled: 0,
		},
		PaidRevenue: decimal.Zero,
	}
	for _, r := range rows {
		stats.ByStatus[r.Status] = r.Count
		stats.Total += r.Count
	}

	paid := f
	paid.Status = models.StatusPaid
	var revenue decimal.NullDecimal
	if err := s.filtered(ctx, paid).Select("SUM(transactions.total_amount)").Row().Scan(&revenue); err != nil {
		return nil, utils.WrapError(err, "failed to sum revenue")
	}
	if revenue.Valid {
		stats.PaidRevenue = revenue.Decimal.Round(2)
	}
	return stats, nil
}

func (s *TransactionService) reload(ctx context.Context, trx *models.Transaction) *models.Transaction {
	fresh := &models.Transaction{}
	if err := s.preloaded(ctx).First(fresh, trx.ID).Error; err != nil {
		utils.LogError("Failed to reload transaction %s: %v", trx.Code, err)
		return trx
	}
	return fresh
}

func (s *TransactionService) notify(ctx context.Context, channel models.NotificationChannel, recipient, subject, body, reference string) {
	if s.outbox == nil {
		return
	}
	// Delivery must outlive the request that triggered it
	ctx = context.WithoutCancel(ctx)
	if _, err := s.outbox.Enqueue(ctx, Message{Channel: channel, Recipient: recipient, Subject: subject, Body: body}, reference); err != nil {
		utils.LogError("Failed to enqueue %s notification for %s: %v", channel, reference, err)
	}
}

// authorizeOwner lets admins act on any transaction and members only on their own
func authorizeOwner(trx *models.Transaction, actor *utils.TokenClaims) error {
	if actor == nil {
		return utils.UnauthorizedError(utils.ErrUnauthorized, nil)
	}
	if actor.Role == models.RoleAdmin || trx.MemberID == actor.UserID {
		return nil
	}
	return utils.ForbiddenError("You do not own this transaction", nil)
}
