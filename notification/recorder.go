package notification

import (
	"context"
	"sync"
)

// Recorder is an EmailSender that keeps every message in memory. Tests use
// it in place of SMTP.
type Recorder struct {
	mu   sync.Mutex
	sent []Message
	Err  error
}

func (r *Recorder) SendEmail(_ context.Context, to, subject, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.sent = append(r.sent, Message{To: to, Subject: subject, Body: body})
	return nil
}

// Sent returns a copy of the messages delivered so far.
func (r *Recorder) Sent() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.sent...)
}
