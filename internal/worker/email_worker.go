// Package worker contains the out-of-process consumers: the email
// worker drains the notification queue and delivers messages over SMTP.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"tally/internal/amqp"
	"tally/internal/core"
	"tally/internal/store"
)

// SMTPConfig is the mail relay configuration.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

func (c SMTPConfig) addr() string { return c.Host + ":" + c.Port }

// Sender delivers one rendered email.
type Sender func(to string, subject, body string) error

// EmailWorker resolves queued notification messages to full records and
// emails the recipients.
type EmailWorker struct {
	stores store.Stores
	send   Sender
}

func NewEmailWorker(stores store.Stores, cfg SMTPConfig) *EmailWorker {
	return &EmailWorker{stores: stores, send: smtpSender(cfg)}
}

// NewEmailWorkerWithSender injects the delivery function, for tests.
func NewEmailWorkerWithSender(stores store.Stores, send Sender) *EmailWorker {
	return &EmailWorker{stores: stores, send: send}
}

func smtpSender(cfg SMTPConfig) Sender {
	return func(to, subject, body string) error {
		msg := strings.Join([]string{
			"From: " + cfg.From,
			"To: " + to,
			"Subject: " + subject,
			"MIME-Version: 1.0",
			"Content-Type: text/plain; charset=utf-8",
			"",
			body,
		}, "\r\n")

		var auth smtp.Auth
		if cfg.Username != "" {
			auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
		}
		return smtp.SendMail(cfg.addr(), auth, cfg.From, []string{to}, []byte(msg))
	}
}

// HandleMessage delivers a single queued notification. A missing
// notification or recipient is dropped, not retried; only transport
// failures are worth requeueing.
func (w *EmailWorker) HandleMessage(ctx context.Context, msg *amqp.NotificationMessage) error {
	notes, err := w.stores.Notifications().ByUser(ctx, msg.UserID, false)
	if err != nil {
		return fmt.Errorf("load notifications: %w", err)
	}
	var note *core.Notification
	for i := range notes {
		if notes[i].ID == msg.NotificationID {
			note = &notes[i]
			break
		}
	}
	if note == nil {
		slog.WarnContext(ctx, "Notification vanished before delivery",
			"notification_id", msg.NotificationID)
		return nil
	}

	user, err := w.stores.Users().FindByID(ctx, msg.UserID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			slog.WarnContext(ctx, "Notification recipient not found",
				"notification_id", msg.NotificationID,
				"user_id", msg.UserID)
			return nil
		}
		return fmt.Errorf("load recipient: %w", err)
	}
	if user.Email == "" {
		slog.WarnContext(ctx, "Recipient has no email address",
			"user_id", user.ID)
		return nil
	}

	if err := w.send(user.Email, note.Title, note.Message); err != nil {
		return fmt.Errorf("send email to %s: %w", user.Email, err)
	}

	slog.InfoContext(ctx, "Sent notification email",
		"notification_id", note.ID,
		"user_id", user.ID,
		"type", note.Type)
	return nil
}
