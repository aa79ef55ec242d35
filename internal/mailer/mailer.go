package mailer

import (
	"context"
	"fmt"

	"notehd/internal/models"

	"gopkg.in/gomail.v2"
)

type Mailer struct {
	Host     string
	Port     int
	Username string
	Password string

	send func(msgs ...*gomail.Message) error
}

func New(host string, port int, username, password string) *Mailer {
	m := &Mailer{
		Host:     host,
		Port:     port,
		Username: username,
		Password: password,
	}

	dialer := gomail.NewDialer(host, port, username, password)
	m.send = dialer.DialAndSend

	return m
}

// NewWithSender routes messages through s instead of dialing SMTP.
func NewWithSender(username string, s gomail.Sender) *Mailer {
	return &Mailer{
		Username: username,
		send: func(msgs ...*gomail.Message) error {
			return gomail.Send(s, msgs...)
		},
	}
}

func (m *Mailer) Send(msg models.EmailMessage) error {
	const op = "mailer.Send"

	if err := m.send(m.build(msg)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// SendMessage delivers synchronously so the mailer can stand in for the queue publisher.
func (m *Mailer) SendMessage(_ context.Context, msg models.EmailMessage) error {
	return m.Send(msg)
}

func (m *Mailer) build(msg models.EmailMessage) *gomail.Message {
	from := msg.From
	if from == "" {
		from = m.Username
	}

	gm := gomail.NewMessage()
	gm.SetHeader("To", msg.Email)
	gm.SetHeader("From", from)
	gm.SetHeader("Subject", msg.Subject)

	gm.SetBody("text/plain", msg.Text)
	if msg.HTML != "" {
		gm.AddAlternative("text/html", msg.HTML)
	}

	return gm
}
