package models

import "time"

type NotificationChannel string

const (
	ChannelWhatsApp NotificationChannel = "whatsapp"
	ChannelEmail    NotificationChannel = "email"
)

type NotificationStatus string

const (
	NotificationPending NotificationStatus = "pending"
	NotificationSending NotificationStatus = "sending"
	NotificationSent    NotificationStatus = "sent"
	NotificationFailed  NotificationStatus = "failed"
)

// Notification is an outbox row. Rows stay pending until a delivery succeeds
// or the attempt budget runs out. A sending row is claimed by one worker until
// NextAttemptAt, after which another worker may reclaim it.
type Notification struct {
	ID            uint                `gorm:"primaryKey" json:"id"`
	Channel       NotificationChannel `gorm:"type:varchar(16);not null" json:"channel"`
	Recipient     string              `gorm:"not null" json:"recipient"`
	Subject       string              `json:"subject,omitempty"`
	Body          string              `gorm:"type:text;not null" json:"body"`
	Reference     string              `gorm:"index" json:"reference"`
	Status        NotificationStatus  `gorm:"type:varchar(16);not null;index;default:pending" json:"status"`
	Attempts      int                 `gorm:"not null;default:0" json:"attempts"`
	LastError     string              `json:"last_error,omitempty"`
	NextAttemptAt time.Time           `gorm:"index" json:"next_attempt_at"`
	SentAt        *time.Time          `json:"sent_at,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}
