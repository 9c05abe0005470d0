package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gymease/backend/models"
	"github.com/gymease/backend/testutil"
	"github.com/gymease/backend/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCreateTransactionWithPromo(t *testing.T) {
	f := newFixture(t)
	promo := testutil.CreatePromo(t, f.db, f.product, "10", fixedNow.AddDate(0, 0, -1), fixedNow.AddDate(0, 0, 1))

	trx := f.create(t, CreateTransactionInput{PromoID: &promo.ID})

	assert.Regexp(t, `^TRX[0-9A-F]{8}$`, trx.Code)
	assert.Equal(t, models.StatusUnpaid, trx.Status)
	assert.True(t, trx.BasePrice.Equal(dec("100000")))
	assert.True(t, trx.DiscountPercent.Equal(dec("10")))
	assert.True(t, trx.TotalAmount.Equal(dec("90000")), trx.TotalAmount.String())
	require.NotNil(t, trx.PromoID)
	assert.Equal(t, promo.ID, *trx.PromoID)

	assert.True(t, trx.MembershipStart.Equal(time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)))
	assert.True(t, trx.MembershipEnd.Equal(time.Date(2026, 11, 18, 0, 0, 0, 0, time.UTC)))
	assert.True(t, trx.ExpiresAt.Equal(fixedNow.Add(24*time.Hour)))

	assert.True(t, trx.HasQR())
	assert.Equal(t, "fake", trx.PaymentProvider)
	assert.Equal(t, "qr_"+trx.Code, trx.PaymentQRID)
	require.Equal(t, 1, f.qr.calls())
	assert.True(t, f.qr.requests[0].Amount.Equal(dec("90000")))
	assert.Equal(t, trx.Code, f.qr.requests[0].ReferenceID)

	sent := f.wa.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "6281234567890", sent[0].Recipient)
	assert.Contains(t, sent[0].Body, trx.Code)
	assert.Contains(t, sent[0].Body, "Rp 90.000")
}

func TestCreateTransactionRoundsTotalToWholeRupiah(t *testing.T) {
	f := newFixture(t)
	product := testutil.CreateProduct(t, f.db, models.PackageStandard, "99999", 30)
	promo := testutil.CreatePromo(t, f.db, product, "10", fixedNow, fixedNow)

	trx := f.create(t, CreateTransactionInput{ProductID: product.ID, PromoID: &promo.ID})

	// 99999 - 9999.90
	assert.True(t, trx.TotalAmount.Equal(dec("89999")), trx.TotalAmount.String())
	require.Equal(t, 1, f.qr.calls())
	assert.True(t, f.qr.requests[0].Amount.Equal(trx.TotalAmount))
}

func TestCreateTransactionSurvivesMessagingFailure(t *testing.T) {
	f := newFixture(t)
	f.wa.failures = 1

	trx, err := f.trx.Create(context.Background(), CreateTransactionInput{MemberID: f.member.ID, ProductID: f.product.ID})
	require.NoError(t, err)
	assert.True(t, trx.HasQR())
	assert.Empty(t, f.wa.messages())

	var n models.Notification
	require.NoError(t, f.db.Where("reference = ?", trx.Code).First(&n).Error)
	assert.Equal(t, models.NotificationPending, n.Status)
	assert.Equal(t, 1, n.Attempts)
	assert.Equal(t, "gateway unavailable", n.LastError)
}

func TestCreateTransactionWithoutPromo(t *testing.T) {
	f := newFixture(t)

	trx := f.create(t, CreateTransactionInput{})

	assert.Nil(t, trx.PromoID)
	assert.True(t, trx.DiscountPercent.IsZero())
	assert.True(t, trx.TotalAmount.Equal(f.product.Price))
	require.NotNil(t, trx.Member)
	assert.Equal(t, "budi", trx.Member.Username)
}

func TestCreateTransactionWithTrainerSlot(t *testing.T) {
	f := newFixture(t)
	trainer := testutil.CreateUser(t, f.db, "coach", models.RoleTrainer)
	slot := testutil.CreateSlot(t, f.db, trainer, models.Monday, "07:00", "08:00")

	trx := f.create(t, CreateTransactionInput{SlotID: &slot.ID})

	require.NotNil(t, trx.SlotID)
	require.NotNil(t, trx.TrainerID)
	assert.Equal(t, slot.ID, *trx.SlotID)
	assert.Equal(t, trainer.ID, *trx.TrainerID)
}

func TestCreateTransactionRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	other := testutil.CreateProduct(t, f.db, models.PackagePremium, "300000", 90)
	otherPromo := testutil.CreatePromo(t, f.db, other, "20", fixedNow.AddDate(0, 0, -1), fixedNow.AddDate(0, 0, 1))
	expired := testutil.CreatePromo(t, f.db, f.product, "20", fixedNow.AddDate(0, 0, -10), fixedNow.AddDate(0, 0, -1))
	inactivePromo := testutil.CreatePromo(t, f.db, f.product, "20", fixedNow.AddDate(0, 0, -1), fixedNow.AddDate(0, 0, 1))
	require.NoError(t, f.db.Model(inactivePromo).Update("is_active", false).Error)

	hidden := testutil.CreateProduct(t, f.db, models.PackageStandard, "200000", 60)
	require.NoError(t, f.db.Model(hidden).Update("is_active", false).Error)

	trainer := testutil.CreateUser(t, f.db, "coach", models.RoleTrainer)
	closed := testutil.CreateSlot(t, f.db, trainer, models.Friday, "18:00", "19:00")
	require.NoError(t, f.db.Model(closed).Update("is_available", false).Error)

	missing := uint(9999)
	tests := []struct {
		name  string
		in    CreateTransactionInput
		check func(error) bool
	}{
		{"unknown product", CreateTransactionInput{MemberID: f.member.ID, ProductID: missing}, utils.IsNotFoundError},
		{"inactive product", CreateTransactionInput{MemberID: f.member.ID, ProductID: hidden.ID}, utils.IsValidationError},
		{"unknown promo", CreateTransactionInput{MemberID: f.member.ID, ProductID: f.product.ID, PromoID: &missing}, utils.IsNotFoundError},
		{"promo of another product", CreateTransactionInput{MemberID: f.member.ID, ProductID: f.product.ID, PromoID: &otherPromo.ID}, utils.IsValidationError},
		{"promo window over", CreateTransactionInput{MemberID: f.member.ID, ProductID: f.product.ID, PromoID: &expired.ID}, utils.IsValidationError},
		{"inactive promo", CreateTransactionInput{MemberID: f.member.ID, ProductID: f.product.ID, PromoID: &inactivePromo.ID}, utils.IsValidationError},
		{"unknown slot", CreateTransactionInput{MemberID: f.member.ID, ProductID: f.product.ID, SlotID: &missing}, utils.IsNotFoundError},
		{"unavailable slot", CreateTransactionInput{MemberID: f.member.ID, ProductID: f.product.ID, SlotID: &closed.ID}, utils.IsValidationError},
		{"trainer cannot buy", CreateTransactionInput{MemberID: trainer.ID, ProductID: f.product.ID}, func(err error) bool { return errors.Is(err, utils.ErrForbidden) }},
		{"unknown member", CreateTransactionInput{MemberID: missing, ProductID: f.product.ID}, utils.IsNotFoundError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trx, err := f.trx.Create(ctx, tt.in)
			require.Error(t, err)
			assert.Nil(t, trx)
			assert.True(t, tt.check(err), "unexpected error: %v", err)
		})
	}

	var count int64
	require.NoError(t, f.db.Model(&models.Transaction{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Zero(t, f.qr.calls())
}

func TestCreateTransactionHonoursRecordsCreatedInactive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	catalog := NewCatalogService(f.db, f.cfg)
	schedules := NewScheduleService(f.db, f.cfg)

	hidden, err := catalog.CreateProduct(ctx, ProductInput{Tier: strPtr("C"), Price: decPtr("900000"), DurationDays: intPtr(90), IsActive: boolPtr(false)})
	require.NoError(t, err)
	draft, err := catalog.CreatePromo(ctx, PromoInput{
		Name:            strPtr("Draft"),
		DiscountPercent: decPtr("10"),
		StartDate:       strPtr("2026-10-01"),
		EndDate:         strPtr("2026-10-31"),
		ProductID:       &f.product.ID,
		IsActive:        boolPtr(false),
	})
	require.NoError(t, err)
	trainer := testutil.CreateUser(t, f.db, "coach", models.RoleTrainer)
	closed, err := schedules.CreateSlot(ctx, SlotInput{TrainerID: &trainer.ID, Day: strPtr("SENIN"), StartTime: strPtr("07:00"), EndTime: strPtr("08:00"), IsAvailable: boolPtr(false)})
	require.NoError(t, err)

	var product models.Product
	require.NoError(t, f.db.First(&product, hidden.ID).Error)
	assert.False(t, product.IsActive)
	var promo models.Promo
	require.NoError(t, f.db.First(&promo, draft.ID).Error)
	assert.False(t, promo.IsActive)
	var slot models.TrainerSlot
	require.NoError(t, f.db.First(&slot, closed.ID).Error)
	assert.False(t, slot.IsAvailable)

	_, err = f.trx.Create(ctx, CreateTransactionInput{MemberID: f.member.ID, ProductID: hidden.ID})
	assert.True(t, utils.IsValidationError(err), "inactive product: %v", err)
	_, err = f.trx.Create(ctx, CreateTransactionInput{MemberID: f.member.ID, ProductID: f.product.ID, PromoID: &draft.ID})
	assert.True(t, utils.IsValidationError(err), "inactive promo: %v", err)
	_, err = f.trx.Create(ctx, CreateTransactionInput{MemberID: f.member.ID, ProductID: f.product.ID, SlotID: &closed.ID})
	assert.True(t, utils.IsValidationError(err), "unavailable slot: %v", err)
	assert.Zero(t, f.qr.calls())
}

func TestCreateTransactionProviderFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.qr.setErr(errors.New("connection refused"))

	trx, err := f.trx.Create(ctx, CreateTransactionInput{MemberID: f.member.ID, ProductID: f.product.ID})

	require.Error(t, err)
	assert.True(t, utils.IsUpstreamError(err))
	require.NotNil(t, trx)
	assert.Equal(t, models.StatusUnpaid, trx.Status)
	assert.False(t, trx.HasQR())
	assert.Empty(t, f.wa.messages())

	stored, err := f.trx.GetByCode(ctx, trx.Code)
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnpaid, stored.Status)
	assert.True(t, stored.TotalAmount.Equal(dec("100000")))

	// a later retry attaches the QR to the same transaction
	f.qr.setErr(nil)
	owner := &utils.TokenClaims{UserID: f.member.ID, Role: models.RoleMember}
	retried, err := f.trx.IssueQR(ctx, strings.ToLower(trx.Code), owner)
	require.NoError(t, err)
	assert.True(t, retried.HasQR())
	assert.Equal(t, trx.ID, retried.ID)
	assert.Len(t, f.wa.messages(), 1)

	again, err := f.trx.IssueQR(ctx, trx.Code, owner)
	require.NoError(t, err)
	assert.Equal(t, retried.PaymentQRID, again.PaymentQRID)
	assert.Equal(t, 2, f.qr.calls())
}

func TestIssueQRRequiresOwner(t *testing.T) {
	f := newFixture(t)
	f.qr.setErr(errors.New("timeout"))
	trx, err := f.trx.Create(context.Background(), CreateTransactionInput{MemberID: f.member.ID, ProductID: f.product.ID})
	require.Error(t, err)
	f.qr.setErr(nil)

	stranger := testutil.CreateUser(t, f.db, "siti", models.RoleMember)
	_, err = f.trx.IssueQR(context.Background(), trx.Code, &utils.TokenClaims{UserID: stranger.ID, Role: models.RoleMember})
	assert.True(t, errors.Is(err, utils.ErrForbidden))
}

func TestConfirmCreatesSingleHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	trx := f.create(t, CreateTransactionInput{})

	paid, err := f.trx.Confirm(ctx, trx.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, paid.Status)
	require.NotNil(t, paid.PaidAt)
	assert.EqualValues(t, 1, f.historyCount(t))

	var history models.MembershipHistory
	require.NoError(t, f.db.Where("transaction_id = ?", trx.ID).First(&history).Error)
	assert.Equal(t, f.member.ID, history.MemberID)
	assert.True(t, history.StartDate.Equal(trx.MembershipStart))
	assert.True(t, history.EndDate.Equal(trx.MembershipEnd))
	assert.True(t, history.IsActive)

	_, err = f.trx.Confirm(ctx, trx.ID)
	assert.True(t, utils.IsConflictError(err))
	assert.EqualValues(t, 1, f.historyCount(t))

	wa := f.wa.messages()
	require.Len(t, wa, 2)
	assert.Contains(t, wa[1].Body, "berhasil")
	mail := f.mail.messages()
	require.Len(t, mail, 1)
	assert.Equal(t, "budi@example.com", mail[0].Recipient)
	assert.Contains(t, mail[0].Subject, trx.Code)
}

func TestConfirmConcurrently(t *testing.T) {
	f := newFixture(t)
	trx := f.create(t, CreateTransactionInput{})

	var (
		wg        sync.WaitGroup
		succeeded int32
		conflicts int32
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.trx.Confirm(context.Background(), trx.ID)
			switch {
			case err == nil:
				atomic.AddInt32(&succeeded, 1)
			case utils.IsConflictError(err):
				atomic.AddInt32(&conflicts, 1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, succeeded)
	assert.EqualValues(t, 7, conflicts)
	assert.EqualValues(t, 1, f.historyCount(t))
}

func TestConfirmDoesNotTrustItsEarlierRead(t *testing.T) {
	f := newFixture(t)
	trx := f.create(t, CreateTransactionInput{})

	// a competing confirmation commits after Confirm has read the row as unpaid
	// but before its guarded update runs
	raced := false
	require.NoError(t, f.db.Callback().Update().Before("gorm:update").Register("test:competing_confirm", func(db *gorm.DB) {
		if raced || db.Statement.Table != "transactions" {
			return
		}
		raced = true
		db.Session(&gorm.Session{NewDB: true}).Exec("UPDATE transactions SET status = ? WHERE id = ?", models.StatusPaid, trx.ID)
	}))
	t.Cleanup(func() { f.db.Callback().Update().Remove("test:competing_confirm") })

	_, err := f.trx.Confirm(context.Background(), trx.ID)
	require.True(t, raced)
	assert.True(t, utils.IsConflictError(err), "unexpected error: %v", err)
	assert.Zero(t, f.historyCount(t))
}

func TestConfirmUnknownTransaction(t *testing.T) {
	f := newFixture(t)
	_, err := f.trx.Confirm(context.Background(), 4242)
	assert.True(t, utils.IsNotFoundError(err))
	_, err = f.trx.ConfirmByCode(context.Background(), "TRXDEADBEEF")
	assert.True(t, utils.IsNotFoundError(err))
}

func TestStoredTotalSurvivesPriceChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	trx := f.create(t, CreateTransactionInput{})

	require.NoError(t, f.db.Model(f.product).Update("price", dec("250000")).Error)

	stored, err := f.trx.GetByCode(ctx, trx.Code)
	require.NoError(t, err)
	assert.True(t, stored.TotalAmount.Equal(dec("100000")))
	assert.True(t, stored.BasePrice.Equal(dec("100000")))

	paid, err := f.trx.Confirm(ctx, trx.ID)
	require.NoError(t, err)
	assert.True(t, paid.TotalAmount.Equal(dec("100000")))
}

func TestExpireStale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	stale := f.create(t, CreateTransactionInput{})
	paid := f.create(t, CreateTransactionInput{})
	_, err := f.trx.Confirm(ctx, paid.ID)
	require.NoError(t, err)

	n, err := f.trx.ExpireStale(ctx, fixedNow.Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = f.trx.ExpireStale(ctx, fixedNow.Add(25*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := f.trx.GetByCode(ctx, stale.Code)
	require.NoError(t, err)
	assert.Equal(t, models.StatusExpired, got.Status)

	got, err = f.trx.GetByCode(ctx, paid.Code)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, got.Status)

	_, err = f.trx.Confirm(ctx, stale.ID)
	assert.True(t, utils.IsConflictError(err))
	_, err = f.trx.AcknowledgePayment(ctx, stale.Code, stale.TotalAmount)
	assert.True(t, utils.IsConflictError(err))
	assert.EqualValues(t, 1, f.historyCount(t))
}

func TestExpiryJobRunOnce(t *testing.T) {
	f := newFixture(t)
	f.create(t, CreateTransactionInput{})
	f.trx.now = func() time.Time { return fixedNow.Add(48 * time.Hour) }

	n, err := NewExpiryJob(f.trx).RunOnce(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestAcknowledgePaymentIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	trx := f.create(t, CreateTransactionInput{})

	first, err := f.trx.AcknowledgePayment(ctx, trx.Code, dec("100000"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, first.Status)

	second, err := f.trx.AcknowledgePayment(ctx, strings.ToLower(trx.Code), dec("100000"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, second.Status)
	assert.EqualValues(t, 1, f.historyCount(t))

	_, err = f.trx.AcknowledgePayment(ctx, "TRX00000000", dec("100000"))
	assert.True(t, utils.IsNotFoundError(err))
}

func TestAcknowledgePaymentRejectsAmountMismatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	trx := f.create(t, CreateTransactionInput{})

	_, err := f.trx.AcknowledgePayment(ctx, trx.Code, dec("1000"))
	require.Error(t, err)
	assert.True(t, utils.IsValidationError(err))

	got, err := f.trx.GetByCode(ctx, trx.Code)
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnpaid, got.Status)
	assert.Zero(t, f.historyCount(t))
}

func TestConfirmByCodeNormalizesCode(t *testing.T) {
	f := newFixture(t)
	trx := f.create(t, CreateTransactionInput{})

	paid, err := f.trx.ConfirmByCode(context.Background(), "  "+strings.ToLower(trx.Code)+" ")
	require.NoError(t, err)
	assert.Equal(t, trx.ID, paid.ID)
	assert.Equal(t, models.StatusPaid, paid.Status)
}

func TestCancelTransaction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	trx := f.create(t, CreateTransactionInput{})

	stranger := testutil.CreateUser(t, f.db, "siti", models.RoleMember)
	_, err := f.trx.Cancel(ctx, trx.Code, &utils.TokenClaims{UserID: stranger.ID, Role: models.RoleMember})
	assert.True(t, errors.Is(err, utils.ErrForbidden))

	cancelled, err := f.trx.Cancel(ctx, trx.Code, &utils.TokenClaims{UserID: f.member.ID, Role: models.RoleMember})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)

	_, err = f.trx.Cancel(ctx, trx.Code, &utils.TokenClaims{UserID: f.member.ID, Role: models.RoleMember})
	assert.True(t, utils.IsConflictError(err))

	_, err = f.trx.Confirm(ctx, trx.ID)
	assert.True(t, utils.IsConflictError(err))

	// admins may cancel any unpaid transaction
	admin := testutil.CreateUser(t, f.db, "boss", models.RoleAdmin)
	other := f.create(t, CreateTransactionInput{})
	_, err = f.trx.Cancel(ctx, other.Code, &utils.TokenClaims{UserID: admin.ID, Role: models.RoleAdmin})
	assert.NoError(t, err)
}

func TestListAndStatistics(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := &utils.TokenClaims{UserID: f.member.ID, Role: models.RoleMember}

	paid := f.create(t, CreateTransactionInput{})
	_, err := f.trx.Confirm(ctx, paid.ID)
	require.NoError(t, err)
	cancelled := f.create(t, CreateTransactionInput{})
	_, err = f.trx.Cancel(ctx, cancelled.Code, owner)
	require.NoError(t, err)
	f.create(t, CreateTransactionInput{})

	siti := testutil.CreateUser(t, f.db, "siti", models.RoleMember)
	f.create(t, CreateTransactionInput{MemberID: siti.ID})

	p := &utils.Pagination{Page: 1, Limit: 2}
	page, err := f.trx.List(ctx, TransactionFilter{MemberID: &f.member.ID}, p)
	require.NoError(t, err)
	assert.Len(t, page, 2)
	assert.EqualValues(t, 3, p.Total)
	assert.Equal(t, 2, p.LastPage)

	unpaid, err := f.trx.All(ctx, TransactionFilter{Status: models.StatusUnpaid})
	require.NoError(t, err)
	assert.Len(t, unpaid, 2)

	found, err := f.trx.All(ctx, TransactionFilter{Search: "SITI"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, siti.ID, found[0].MemberID)

	stats, err := f.trx.Statistics(ctx, TransactionFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 4, stats.Total)
	assert.EqualValues(t, 1, stats.ByStatus[models.StatusPaid])
	assert.EqualValues(t, 1, stats.ByStatus[models.StatusCancelled])
	assert.EqualValues(t, 2, stats.ByStatus[models.StatusUnpaid])
	assert.EqualValues(t, 0, stats.ByStatus[models.StatusExpired])
	assert.True(t, stats.PaidRevenue.Equal(dec("100000")), stats.PaidRevenue.String())
}
