package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gymease/backend/config"
	"github.com/gymease/backend/models"
	"github.com/gymease/backend/testutil"
	"gorm.io/gorm"
)

// fakeQR mints deterministic codes, or fails with err when set
type fakeQR struct {
	mu       sync.Mutex
	err      error
	requests []QRRequest
}

func (f *fakeQR) Name() string { return "fake" }

func (f *fakeQR) CreateQR(ctx context.Context, req QRRequest) (*QRCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &QRCode{
		ID:       "qr_" + req.ReferenceID,
		QRString: "00020101021226" + req.ReferenceID,
		Status:   "ACTIVE",
	}, nil
}

func (f *fakeQR) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeQR) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

// fakeNotifier records messages and fails the first `failures` deliveries
type fakeNotifier struct {
	channel  models.NotificationChannel
	mu       sync.Mutex
	failures int
	sent     []Message
}

func (f *fakeNotifier) Channel() models.NotificationChannel { return f.channel }

func (f *fakeNotifier) Notify(ctx context.Context, msg Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failures > 0 {
		f.failures--
		return errors.New("gateway unavailable")
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeNotifier) messages() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Message(nil), f.sent...)
}

var fixedNow = time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)

type fixture struct {
	db      *gorm.DB
	cfg     *config.Config
	qr      *fakeQR
	wa      *fakeNotifier
	mail    *fakeNotifier
	outbox  *Outbox
	trx     *TransactionService
	member  *models.User
	product *models.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewTestDB(t)
	cfg := testutil.TestConfig()
	f := &fixture{
		db:   db,
		cfg:  cfg,
		qr:   &fakeQR{},
		wa:   &fakeNotifier{channel: models.ChannelWhatsApp},
		mail: &fakeNotifier{channel: models.ChannelEmail},
	}
	f.outbox = NewOutbox(db, cfg.Jobs, f.wa, f.mail)
	f.outbox.now = func() time.Time { return fixedNow }
	f.trx = NewTransactionService(db, cfg, f.qr, f.outbox)
	f.trx.now = func() time.Time { return fixedNow }

	f.member = testutil.CreateUser(t, db, "budi", models.RoleMember)
	f.product = testutil.CreateProduct(t, db, models.PackageBasic, "100000", 30)
	return f
}

func (f *fixture) create(t *testing.T, in CreateTransactionInput) *models.Transaction {
	t.Helper()
	if in.MemberID == 0 {
		in.MemberID = f.member.ID
	}
	if in.ProductID == 0 {
		in.ProductID = f.product.ID
	}
	trx, err := f.trx.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}
	return trx
}

func (f *fixture) historyCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	if err := f.db.Model(&models.MembershipHistory{}).Count(&n).Error; err != nil {
		t.Fatalf("count history: %v", err)
	}
	return n
}
