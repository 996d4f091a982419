package notification

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMailer_DeliversQueuedMessages(t *testing.T) {
	rec := &Recorder{}
	m := NewMailer(rec, zerolog.Nop(), 2, 10)

	for i := 0; i < 5; i++ {
		require.True(t, m.Enqueue(Message{To: "a@b.np", Subject: "s", Body: "b"}))
	}
	require.NoError(t, m.Shutdown(context.Background()))

	assert.Len(t, rec.Sent(), 5)
}

func TestMailer_LogsFailures(t *testing.T) {
	var buf bytes.Buffer
	rec := &Recorder{Err: errors.New("relay refused")}
	m := NewMailer(rec, zerolog.New(&buf), 1, 1)

	require.True(t, m.Enqueue(Message{To: "a@b.np", Subject: "Appointment Confirmation"}))
	require.NoError(t, m.Shutdown(context.Background()))

	assert.Contains(t, buf.String(), "email delivery failed")
	assert.Contains(t, buf.String(), "relay refused")
	assert.Empty(t, rec.Sent())
}

type blockingSender struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingSender) SendEmail(ctx context.Context, _, _, _ string) error {
	b.once.Do(func() { close(b.started) })
	select {
	case <-b.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestMailer_DropsWhenQueueFull(t *testing.T) {
	s := &blockingSender{started: make(chan struct{}), release: make(chan struct{})}
	m := NewMailer(s, zerolog.Nop(), 1, 1)

	require.True(t, m.Enqueue(Message{To: "1@x.np"}))
	<-s.started
	require.True(t, m.Enqueue(Message{To: "2@x.np"}))
	assert.False(t, m.Enqueue(Message{To: "3@x.np"}))

	close(s.release)
	require.NoError(t, m.Shutdown(context.Background()))
}

func TestMailer_ShutdownHonoursContext(t *testing.T) {
	s := &blockingSender{started: make(chan struct{}), release: make(chan struct{})}
	m := NewMailer(s, zerolog.Nop(), 1, 1)
	require.True(t, m.Enqueue(Message{To: "1@x.np"}))
	<-s.started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, m.Shutdown(ctx), context.DeadlineExceeded)

	assert.False(t, m.Enqueue(Message{To: "late@x.np"}))
	close(s.release)
	require.NoError(t, m.Shutdown(context.Background()))
}

func TestTemplates(t *testing.T) {
	c := Credentials("sita@hospital.np", "Sita", "sita", "ab12cd34")
	assert.Equal(t, "sita@hospital.np", c.To)
	assert.Equal(t, "HMS Login Credentials", c.Subject)
	assert.Equal(t, "Welcome Sita,\n\nUsername: sita\nPassword: ab12cd34\n\nLog in as a 'New User' first.", c.Body)

	assert.Equal(t, "Appointment Confirmation", AppointmentConfirmation("a@b.np", "slip").Subject)
	assert.Equal(t, "Prescription from Dr. Sita", PrescriptionNotice("a@b.np", "Dr. Sita", "rx").Subject)
	inv := InvoiceNotice("a@b.np", 12, "text")
	assert.Equal(t, "Hospital Invoice #12", inv.Subject)
	assert.Equal(t, "text", inv.Body)
}

func TestDefaultMailer(t *testing.T) {
	SetDefault(nil)
	assert.False(t, Send(Message{To: "a@b.np"}))

	rec := &Recorder{}
	m := NewMailer(rec, zerolog.Nop(), 1, 5)
	SetDefault(m)
	defer SetDefault(nil)

	assert.True(t, Send(Message{To: "a@b.np", Subject: "hi"}))
	require.NoError(t, m.Shutdown(context.Background()))
	require.Len(t, rec.Sent(), 1)
	assert.Equal(t, "hi", rec.Sent()[0].Subject)
}

func TestNewSenderFromConfig(t *testing.T) {
	_, isLog := NewSenderFromConfig(SMTPConfig{}, zerolog.Nop()).(LogSender)
	assert.True(t, isLog)

	s, isSMTP := NewSenderFromConfig(SMTPConfig{Host: "smtp.example.com", Username: "desk@example.com"}, zerolog.Nop()).(*SMTPSender)
	require.True(t, isSMTP)
	assert.Equal(t, 587, s.cfg.Port)
	assert.Equal(t, "desk@example.com", s.cfg.From)
}

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	err := LogSender{Logger: zerolog.New(&buf)}.SendEmail(context.Background(), "a@b.np", "HMS Login Credentials", "secret body")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "HMS Login Credentials")
	assert.False(t, strings.Contains(buf.String(), "secret body"))
}

func TestSMTPSender_BuildMessage(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "smtp.example.com", From: "desk@example.com"})

	msg, err := s.buildMessage("ram@gmail.com", "Appointment Confirmation", "slip")
	require.NoError(t, err)
	assert.Equal(t, []string{"Appointment Confirmation"}, msg.GetGenHeader("Subject"))

	_, err = s.buildMessage("not an address", "x", "y")
	assert.Error(t, err)
}
