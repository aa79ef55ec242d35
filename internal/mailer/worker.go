package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/textproto"
	"regexp"

	"notehd/internal/lib/logger/sl"
	"notehd/internal/models"
	"notehd/internal/rabbitmq"
)

// * Consume returns the queue handler that decodes a queued email and delivers it
func (m *Mailer) Consume(log *slog.Logger) rabbitmq.Handler {
	const op = "mailer.Consume"

	log = log.With(
		slog.String("op", op),
	)

	return func(_ context.Context, body []byte) error {
		var msg models.EmailMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			log.Error("failed to unmarshal message", sl.Err(err))

			return fmt.Errorf("%w: %v", rabbitmq.ErrDrop, err)
		}

		if msg.Email == "" {
			log.Error("message has no recipient")

			return rabbitmq.ErrDrop
		}

		if err := m.Send(msg); err != nil {
			if isPermanent(err) {
				log.Error("message rejected by smtp server", sl.Err(err))

				return fmt.Errorf("%w: %v", rabbitmq.ErrDrop, err)
			}

			log.Error("failed to send message", sl.Err(err))

			return err
		}

		log.Info("message sent successfully", slog.String("purpose", msg.Purpose))

		return nil
	}
}

// gomail flattens smtp errors into text, so the reply code is matched in the message too.
var permanentReply = regexp.MustCompile(`(^|: )5\d\d[ -]`)

// isPermanent reports whether the smtp server answered with a 5xx reply.
func isPermanent(err error) bool {
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		return tpErr.Code >= 500 && tpErr.Code < 600
	}

	return permanentReply.MatchString(err.Error())
}
