package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gymease/backend/config"
	"github.com/gymease/backend/models"
	"github.com/gymease/backend/utils"
	"gopkg.in/gomail.v2"
)

// Message is one outbound notification
type Message struct {
	Channel   models.NotificationChannel
	Recipient string
	Subject   string
	Body      string
}

// Notifier delivers messages of a single channel
type Notifier interface {
	Channel() models.NotificationChannel
	Notify(ctx context.Context, msg Message) error
}

// WhatsAppNotifier posts messages to the WhatsApp broadcast gateway
type WhatsAppNotifier struct {
	url    string
	client *http.Client
}

func NewWhatsAppNotifier(cfg config.WhatsAppConfig) *WhatsAppNotifier {
	return &WhatsAppNotifier{
		url:    cfg.URL,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (n *WhatsAppNotifier) Channel() models.NotificationChannel {
	return models.ChannelWhatsApp
}

func (n *WhatsAppNotifier) Notify(ctx context.Context, msg Message) error {
	phone, err := utils.NormalizePhone(msg.Recipient)
	if err != nil {
		return fmt.Errorf("invalid recipient %q: %w", msg.Recipient, err)
	}

	body, err := json.Marshal(map[string]string{
		"phone":   phone,
		"message": msg.Body,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("whatsapp gateway returned %d: %s", resp.StatusCode, bytes.TrimSpace(raw))
	}
	return nil
}

// EmailNotifier sends HTML receipts over SMTP
type EmailNotifier struct {
	cfg    config.SMTPConfig
	dialer *gomail.Dialer
}

func NewEmailNotifier(cfg config.SMTPConfig) *EmailNotifier {
	return &EmailNotifier{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

func (n *EmailNotifier) Channel() models.NotificationChannel {
	return models.ChannelEmail
}

// Notify sends the message. gomail has no context support, so ctx only gates the start.
func (n *EmailNotifier) Notify(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.From)
	m.SetHeader("To", msg.Recipient)
	m.SetHeader("Subject", msg.Subject)
	m.SetDateHeader("Date", time.Now())
	m.SetBody("text/html", msg.Body)

	if err := n.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %v", err)
	}
	return nil
}
