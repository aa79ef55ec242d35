package verification

import (
	"context"
	"errors"
	"testing"
	"time"

	"notehd/internal/lib/logger/sl"
	"notehd/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	msgs []models.EmailMessage
	err  error
}

func (p *capturePublisher) SendMessage(_ context.Context, msg models.EmailMessage) error {
	if p.err != nil {
		return p.err
	}

	p.msgs = append(p.msgs, msg)

	return nil
}

func TestSendChallenge(t *testing.T) {
	t.Parallel()

	pub := &capturePublisher{}
	n := New(sl.NewDiscardLogger(), pub, "NoteHD", "no-reply@notehd.app", 10*time.Minute)

	require.NoError(t, n.SendChallenge(context.Background(), "jonas@example.com", "482913"))
	require.Len(t, pub.msgs, 1)

	msg := pub.msgs[0]
	assert.Equal(t, "jonas@example.com", msg.Email)
	assert.Equal(t, `"NoteHD" <no-reply@notehd.app>`, msg.From)
	assert.Equal(t, "Your OTP for NoteHD", msg.Subject)
	assert.Equal(t, "Your One-Time Password is: 482913. It is valid for 10 minutes.", msg.Text)
	assert.Contains(t, msg.HTML, "<b>Your One-Time Password is: 482913</b>")
	assert.Equal(t, PurposeOTP, msg.Purpose)
	assert.NotZero(t, msg.QueuedAt)
}

func TestSendChallenge_PublishError(t *testing.T) {
	t.Parallel()

	boom := errors.New("channel closed")
	n := New(sl.NewDiscardLogger(), &capturePublisher{err: boom}, "NoteHD", "", 10*time.Minute)

	err := n.SendChallenge(context.Background(), "jonas@example.com", "482913")
	assert.ErrorIs(t, err, boom)
}

func TestChallengeMessage_NoSenderName(t *testing.T) {
	t.Parallel()

	msg := ChallengeMessage("", "no-reply@notehd.app", "a@example.com", "123456", 5*time.Minute)
	assert.Equal(t, "no-reply@notehd.app", msg.From)
	assert.Contains(t, msg.Text, "valid for 5 minutes")
}

func TestLogPublisher(t *testing.T) {
	t.Parallel()

	p := NewLogPublisher(sl.NewDiscardLogger())
	assert.NoError(t, p.SendMessage(context.Background(), models.EmailMessage{Email: "a@example.com"}))
}
