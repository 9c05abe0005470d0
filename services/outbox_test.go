package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gymease/backend/models"
	"github.com/gymease/backend/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOutbox(t *testing.T, notifiers ...Notifier) (*Outbox, *time.Time) {
	t.Helper()
	db := testutil.NewTestDB(t)
	cfg := testutil.TestConfig()

	clock := fixedNow
	o := NewOutbox(db, cfg.Jobs, notifiers...)
	o.now = func() time.Time { return clock }
	return o, &clock
}

func TestOutboxDeliversImmediately(t *testing.T) {
	wa := &fakeNotifier{channel: models.ChannelWhatsApp}
	o, _ := newTestOutbox(t, wa)

	n, err := o.Enqueue(context.Background(), Message{Channel: models.ChannelWhatsApp, Recipient: "081234567890", Body: "halo"}, "TRX1")
	require.NoError(t, err)
	require.NotNil(t, n)

	assert.Equal(t, models.NotificationSent, n.Status)
	assert.Equal(t, 1, n.Attempts)
	assert.NotNil(t, n.SentAt)
	require.Len(t, wa.messages(), 1)
	assert.Equal(t, "halo", wa.messages()[0].Body)
}

func TestOutboxSkipsUndeliverable(t *testing.T) {
	wa := &fakeNotifier{channel: models.ChannelWhatsApp}
	o, _ := newTestOutbox(t, wa)
	ctx := context.Background()

	n, err := o.Enqueue(ctx, Message{Channel: models.ChannelWhatsApp, Body: "no phone"}, "TRX1")
	assert.NoError(t, err)
	assert.Nil(t, n)

	n, err = o.Enqueue(ctx, Message{Channel: models.ChannelEmail, Recipient: "a@b.co", Body: "no smtp"}, "TRX1")
	assert.NoError(t, err)
	assert.Nil(t, n)

	var count int64
	require.NoError(t, o.db.Model(&models.Notification{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestOutboxRetriesPendingWithBackoff(t *testing.T) {
	wa := &fakeNotifier{channel: models.ChannelWhatsApp, failures: 1}
	o, clock := newTestOutbox(t, wa)
	ctx := context.Background()

	n, err := o.Enqueue(ctx, Message{Channel: models.ChannelWhatsApp, Recipient: "081234567890", Body: "halo"}, "TRX1")
	require.NoError(t, err)
	assert.Equal(t, models.NotificationPending, n.Status)
	assert.Equal(t, 1, n.Attempts)
	assert.Equal(t, "gateway unavailable", n.LastError)
	assert.True(t, n.NextAttemptAt.Equal(fixedNow.Add(time.Second)))

	// not due yet
	sent, err := o.ProcessPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, sent)

	*clock = fixedNow.Add(2 * time.Second)
	sent, err = o.ProcessPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	var stored models.Notification
	require.NoError(t, o.db.First(&stored, n.ID).Error)
	assert.Equal(t, models.NotificationSent, stored.Status)
	assert.Equal(t, 2, stored.Attempts)
	assert.Empty(t, stored.LastError)
}

func TestOutboxMarksFailedAfterMaxAttempts(t *testing.T) {
	wa := &fakeNotifier{channel: models.ChannelWhatsApp, failures: 100}
	o, clock := newTestOutbox(t, wa)
	ctx := context.Background()

	n, err := o.Enqueue(ctx, Message{Channel: models.ChannelWhatsApp, Recipient: "081234567890", Body: "halo"}, "TRX1")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		*clock = clock.Add(time.Hour)
		_, err := o.ProcessPending(ctx)
		require.NoError(t, err)
	}

	var stored models.Notification
	require.NoError(t, o.db.First(&stored, n.ID).Error)
	assert.Equal(t, models.NotificationFailed, stored.Status)
	assert.Equal(t, o.cfg.OutboxMaxAttempts, stored.Attempts)
	assert.Empty(t, wa.messages())
}

func TestOutboxBackoff(t *testing.T) {
	o, _ := newTestOutbox(t)
	o.cfg.OutboxInterval = 30 * time.Second

	assert.Equal(t, 30*time.Second, o.backoff(1))
	assert.Equal(t, time.Minute, o.backoff(2))
	assert.Equal(t, 4*time.Minute, o.backoff(4))
	assert.Equal(t, time.Hour, o.backoff(20))
}

// blockingNotifier holds each delivery until release is closed
type blockingNotifier struct {
	entered chan struct{}
	release chan struct{}
	calls   int32
}

func (b *blockingNotifier) Channel() models.NotificationChannel { return models.ChannelWhatsApp }

func (b *blockingNotifier) Notify(ctx context.Context, msg Message) error {
	atomic.AddInt32(&b.calls, 1)
	b.entered <- struct{}{}
	<-b.release
	return nil
}

func TestOutboxSweepSkipsDeliveryInFlight(t *testing.T) {
	gw := &blockingNotifier{entered: make(chan struct{}, 4), release: make(chan struct{})}
	o, _ := newTestOutbox(t, gw)
	ctx := context.Background()

	done := make(chan *models.Notification, 1)
	go func() {
		n, err := o.Enqueue(ctx, Message{Channel: models.ChannelWhatsApp, Recipient: "081234567890", Body: "halo"}, "TRX1")
		assert.NoError(t, err)
		done <- n
	}()
	<-gw.entered

	sent, err := o.ProcessPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, sent)

	close(gw.release)
	n := <-done
	require.NotNil(t, n)
	assert.Equal(t, models.NotificationSent, n.Status)
	assert.EqualValues(t, 1, atomic.LoadInt32(&gw.calls))
}

func TestOutboxReclaimsLapsedClaim(t *testing.T) {
	wa := &fakeNotifier{channel: models.ChannelWhatsApp}
	o, clock := newTestOutbox(t, wa)
	ctx := context.Background()

	// left behind by a worker that died mid-delivery
	stuck := &models.Notification{
		Channel:       models.ChannelWhatsApp,
		Recipient:     "081234567890",
		Body:          "halo",
		Reference:     "TRX1",
		Status:        models.NotificationSending,
		NextAttemptAt: fixedNow.Add(time.Minute),
	}
	require.NoError(t, o.db.Create(stuck).Error)

	sent, err := o.ProcessPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, sent)

	*clock = fixedNow.Add(2 * time.Minute)
	sent, err = o.ProcessPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Len(t, wa.messages(), 1)
}

func TestOutboxClaimIsExclusive(t *testing.T) {
	o, _ := newTestOutbox(t, &fakeNotifier{channel: models.ChannelWhatsApp})
	ctx := context.Background()

	row := &models.Notification{
		Channel:       models.ChannelWhatsApp,
		Recipient:     "081234567890",
		Body:          "halo",
		Status:        models.NotificationPending,
		NextAttemptAt: fixedNow,
	}
	require.NoError(t, o.db.Create(row).Error)

	first, second := *row, *row
	ok, err := o.claim(ctx, &first)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, models.NotificationSending, first.Status)

	ok, err = o.claim(ctx, &second)
	require.NoError(t, err)
	assert.False(t, ok)
}
