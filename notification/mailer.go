package notification

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultQueueSize = 100
	sendTimeout      = 30 * time.Second
)

// Message is one queued email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer sends queued messages on a fixed pool of workers. Failed sends are
// logged, never returned to the caller.
type Mailer struct {
	sender EmailSender
	logger zerolog.Logger
	queue  chan Message
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewMailer starts workers goroutines reading from a queue of queueSize.
func NewMailer(sender EmailSender, logger zerolog.Logger, workers, queueSize int) *Mailer {
	if workers <= 0 {
		workers = 2
	}
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	m := &Mailer{
		sender: sender,
		logger: logger.With().Str("component", "mailer").Logger(),
		queue:  make(chan Message, queueSize),
	}
	for i := 0; i < workers; i++ {
		m.wg.Add(1)
		go m.work()
	}
	return m
}

func (m *Mailer) work() {
	defer m.wg.Done()
	for msg := range m.queue {
		m.deliver(msg)
	}
}

func (m *Mailer) deliver(msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	if err := m.sender.SendEmail(ctx, msg.To, msg.Subject, msg.Body); err != nil {
		m.logger.Error().Err(err).Str("to", msg.To).Str("subject", msg.Subject).Msg("email delivery failed")
		return
	}
	m.logger.Debug().Str("to", msg.To).Str("subject", msg.Subject).Msg("email sent")
}

// Enqueue hands msg to the workers. It reports false when the queue is full
// or the mailer is shut down; the message is then dropped.
func (m *Mailer) Enqueue(msg Message) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		m.logger.Warn().Str("to", msg.To).Str("subject", msg.Subject).Msg("mailer is shut down, email dropped")
		return false
	}
	select {
	case m.queue <- msg:
		return true
	default:
		m.logger.Warn().Str("to", msg.To).Str("subject", msg.Subject).Msg("mail queue full, email dropped")
		return false
	}
}

// Shutdown stops accepting mail and waits for queued messages to be sent or
// for ctx to end.
func (m *Mailer) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if !m.closed {
		m.closed = true
		close(m.queue)
	}
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
