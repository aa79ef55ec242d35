// Package verification turns an issued passcode into an outgoing email and hands it
// to whichever transport is configured.
package verification

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"notehd/internal/lib/logger/sl"
	"notehd/internal/models"
)

const PurposeOTP = "otp"

type Publisher interface {
	SendMessage(ctx context.Context, msg models.EmailMessage) error
}

type Notifier struct {
	log         *slog.Logger
	pub         Publisher
	senderName  string
	senderEmail string
	validFor    time.Duration
}

func New(
	log *slog.Logger,
	pub Publisher,
	senderName, senderEmail string,
	validFor time.Duration,
) *Notifier {
	return &Notifier{
		log:         log,
		pub:         pub,
		senderName:  senderName,
		senderEmail: senderEmail,
		validFor:    validFor,
	}
}

// * SendChallenge builds the passcode email and publishes it
func (n *Notifier) SendChallenge(ctx context.Context, email, code string) error {
	const op = "verification.SendChallenge"

	log := n.log.With(
		slog.String("op", op),
	)

	msg := ChallengeMessage(n.senderName, n.senderEmail, email, code, n.validFor)
	msg.QueuedAt = time.Now().Unix()

	if err := n.pub.SendMessage(ctx, msg); err != nil {
		log.Error("failed to publish passcode email", sl.Err(err))

		return fmt.Errorf("%s: %w", op, err)
	}

	log.Debug("passcode email published")

	return nil
}

func ChallengeMessage(senderName, senderEmail, to, code string, validFor time.Duration) models.EmailMessage {
	minutes := int(math.Round(validFor.Minutes()))

	from := senderEmail
	if senderName != "" && senderEmail != "" {
		from = fmt.Sprintf("%q <%s>", senderName, senderEmail)
	}

	return models.EmailMessage{
		Email:   to,
		From:    from,
		Subject: "Your OTP for " + senderName,
		Text:    fmt.Sprintf("Your One-Time Password is: %s. It is valid for %d minutes.", code, minutes),
		HTML:    fmt.Sprintf("<b>Your One-Time Password is: %s</b>. It is valid for %d minutes.", code, minutes),
		Purpose: PurposeOTP,
	}
}

// LogPublisher writes messages to the log instead of delivering them.
// Meant for local runs; the message text, passcode included, goes out at debug level.
type LogPublisher struct {
	log *slog.Logger
}

func NewLogPublisher(log *slog.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) SendMessage(_ context.Context, msg models.EmailMessage) error {
	p.log.Info("email not delivered, log notifier in use",
		slog.String("to", msg.Email),
		slog.String("subject", msg.Subject),
	)
	p.log.Debug("email body", slog.String("text", msg.Text))

	return nil
}
