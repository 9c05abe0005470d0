package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go"
	"github.com/gymease/backend/config"
	"github.com/gymease/backend/models"
	"github.com/gymease/backend/utils"
	"gorm.io/gorm"
)

var errNoNotifier = errors.New("no notifier for channel")

// Outbox persists notifications before delivering them so a gateway outage never
// loses a message or fails the request that produced it.
type Outbox struct {
	db        *gorm.DB
	cfg       config.JobsConfig
	notifiers map[models.NotificationChannel]Notifier
	now       func() time.Time
}

func NewOutbox(db *gorm.DB, cfg config.JobsConfig, notifiers ...Notifier) *Outbox {
	o := &Outbox{
		db:        db,
		cfg:       cfg,
		notifiers: make(map[models.NotificationChannel]Notifier, len(notifiers)),
		now:       time.Now,
	}
	for _, n := range notifiers {
		o.notifiers[n.Channel()] = n
	}
	return o
}

// Enqueue stores msg and makes a single immediate delivery attempt.
// Delivery failures are recorded on the row; only storage errors are returned.
func (o *Outbox) Enqueue(ctx context.Context, msg Message, reference string) (*models.Notification, error) {
	if msg.Recipient == "" {
		utils.LogDebug("Skipping %s notification for %s: no recipient", msg.Channel, reference)
		return nil, nil
	}
	if _, ok := o.notifiers[msg.Channel]; !ok {
		utils.LogDebug("Skipping %s notification for %s: channel disabled", msg.Channel, reference)
		return nil, nil
	}

	// stored already claimed so the sweep leaves it alone while this attempt runs
	n := &models.Notification{
		Channel:       msg.Channel,
		Recipient:     msg.Recipient,
		Subject:       msg.Subject,
		Body:          msg.Body,
		Reference:     reference,
		Status:        models.NotificationSending,
		NextAttemptAt: o.now().Add(o.lease()),
	}
	if err := o.db.WithContext(ctx).Create(n).Error; err != nil {
		utils.LogError("Failed to store %s notification for %s: %v", msg.Channel, reference, err)
		return nil, err
	}

	if err := o.deliver(ctx, n, 1); err != nil {
		utils.LogError("Immediate %s delivery for %s failed: %v", n.Channel, reference, err)
	}
	return n, nil
}

func (o *Outbox) lease() time.Duration {
	if o.cfg.OutboxLease > 0 {
		return o.cfg.OutboxLease
	}
	return 5 * time.Minute
}

// claim takes n for this worker with a compare-and-set on its status. It returns
// false when another worker holds a live claim or the row is no longer due.
func (o *Outbox) claim(ctx context.Context, n *models.Notification) (bool, error) {
	now := o.now()
	until := now.Add(o.lease())
	res := o.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND status IN ? AND next_attempt_at <= ?",
			n.ID, []models.NotificationStatus{models.NotificationPending, models.NotificationSending}, now).
		Updates(map[string]interface{}{
			"status":          models.NotificationSending,
			"next_attempt_at": until,
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	n.Status = models.NotificationSending
	n.NextAttemptAt = until
	return true, nil
}

// Deliver attempts n with the configured retry policy and records the outcome
func (o *Outbox) Deliver(ctx context.Context, n *models.Notification) error {
	return o.deliver(ctx, n, o.cfg.RetryAttempts)
}

func (o *Outbox) deliver(ctx context.Context, n *models.Notification, attempts uint) error {
	if attempts == 0 {
		attempts = 1
	}

	notifier, ok := o.notifiers[n.Channel]
	var sendErr error
	if !ok {
		sendErr = fmt.Errorf("%w %s", errNoNotifier, n.Channel)
	} else {
		msg := Message{Channel: n.Channel, Recipient: n.Recipient, Subject: n.Subject, Body: n.Body}
		sendErr = retry.Do(
			func() error {
				return notifier.Notify(ctx, msg)
			},
			retry.Attempts(attempts),
			retry.Delay(o.cfg.RetryDelay),
			retry.MaxDelay(o.cfg.RetryMaxDelay),
			retry.LastErrorOnly(true),
			retry.Context(ctx),
			retry.RetryIf(func(err error) bool {
				return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
			}),
		)
	}

	now := o.now()
	n.Attempts++
	if sendErr == nil {
		n.Status = models.NotificationSent
		n.SentAt = &now
		n.LastError = ""
		utils.Notifications.WithLabelValues(string(n.Channel), "sent").Inc()
	} else {
		n.LastError = sendErr.Error()
		if !ok || n.Attempts >= o.cfg.OutboxMaxAttempts {
			n.Status = models.NotificationFailed
			utils.Notifications.WithLabelValues(string(n.Channel), "failed").Inc()
		} else {
			n.Status = models.NotificationPending
			n.NextAttemptAt = now.Add(o.backoff(n.Attempts))
			utils.Notifications.WithLabelValues(string(n.Channel), "retry").Inc()
		}
	}

	if err := o.db.Save(n).Error; err != nil {
		return fmt.Errorf("failed to record delivery of notification %d: %w", n.ID, err)
	}
	return sendErr
}

// backoff doubles the outbox interval per failed attempt, capped at one hour
func (o *Outbox) backoff(attempts int) time.Duration {
	d := o.cfg.OutboxInterval
	for i := 1; i < attempts && d < time.Hour; i++ {
		d *= 2
	}
	if d > time.Hour {
		d = time.Hour
	}
	return d
}

// ProcessPending redelivers due notifications and returns how many were sent.
// Rows claimed by another worker are skipped, as are sending rows whose claim has
// not lapsed.
func (o *Outbox) ProcessPending(ctx context.Context) (int, error) {
	var due []models.Notification
	err := o.db.WithContext(ctx).
		Where("status IN ? AND next_attempt_at <= ?",
			[]models.NotificationStatus{models.NotificationPending, models.NotificationSending}, o.now()).
		Order("next_attempt_at ASC").
		Limit(o.cfg.OutboxBatchSize).
		Find(&due).Error
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range due {
		if ctx.Err() != nil {
			break
		}
		claimed, err := o.claim(ctx, &due[i])
		if err != nil {
			return sent, fmt.Errorf("failed to claim notification %d: %w", due[i].ID, err)
		}
		if !claimed {
			continue
		}
		if err := o.Deliver(ctx, &due[i]); err != nil {
			utils.LogError("Redelivery of notification %d (%s) failed: %v", due[i].ID, due[i].Reference, err)
			continue
		}
		sent++
	}
	return sent, nil
}

// Sweep runs one ProcessPending pass and logs the outcome
func (o *Outbox) Sweep(ctx context.Context) {
	sent, err := o.ProcessPending(ctx)
	if err != nil {
		utils.LogError("Outbox sweep failed: %v", err)
		return
	}
	if sent > 0 {
		utils.LogInfo("Outbox delivered %d notifications", sent)
	}
}
