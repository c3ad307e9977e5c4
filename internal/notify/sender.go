package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// Send failures are classified so callers can decide whether a retry could help.
var (
	ErrTransient = errors.New("transient mail failure")
	ErrPermanent = errors.New("permanent mail failure")
)

// Sender delivers a plain-text message.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogSender logs messages instead of delivering them.
type LogSender struct {
	Logger *slog.Logger
}

func (l LogSender) Send(_ context.Context, to, subject, body string) error {
	log := l.Logger
	if log == nil {
		log = slog.Default()
	}
	log.Info("mail not sent: no SMTP host configured", "to", to, "subject", subject, "bytes", len(body))
	return nil
}

// Message is one recorded send.
type Message struct {
	To, Subject, Body string
}

// Recorder keeps every message in memory. Err, when set, is returned from
// Send after recording.
type Recorder struct {
	mu   sync.Mutex
	sent []Message
	Err  error
}

func (r *Recorder) Send(_ context.Context, to, subject, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, Message{To: to, Subject: subject, Body: body})
	return r.Err
}

// Sent returns a copy of the recorded messages.
func (r *Recorder) Sent() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.sent))
	copy(out, r.sent)
	return out
}
