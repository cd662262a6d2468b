package notification

import (
	"errors"
	"log/slog"
)

// ErrNotConfigured is returned by the log sender: nothing actually left the process.
var ErrNotConfigured = errors.New("email transport is not configured")

type logEmailSender struct {
	log *slog.Logger
}

// NewLogEmailSender returns a sender for environments without SMTP. It logs
// the recipient and subject, then reports ErrNotConfigured so callers treat
// the code as undelivered.
func NewLogEmailSender(log *slog.Logger) EmailSender {
	return &logEmailSender{log: log}
}

func (s *logEmailSender) Send(msg Message) error {
	s.log.Warn("smtp not configured, email not sent", "recipient", msg.To, "subject", msg.Subject)
	return ErrNotConfigured
}
