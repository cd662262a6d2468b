package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/delordemm1/notes-api/internal/notification/templates"
)

// Purpose says why a one-time code is being sent.
type Purpose string

const (
	PurposeSignup Purpose = "signup"
	PurposeLogin  Purpose = "login"
)

// Message is one rendered email.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// EmailSender delivers a rendered message. Implementations may block; Service
// bounds them with the caller's context.
type EmailSender interface {
	Send(msg Message) error
}

// Service delivers one-time codes by email.
type Service interface {
	DeliverCode(ctx context.Context, to, name, code string, purpose Purpose) error
}

// Config holds the dependencies for the notification service.
type Config struct {
	Sender       EmailSender
	Templates    *templates.Engine
	Logger       *slog.Logger
	AppName      string
	ValidMinutes int
}

type service struct {
	sender       EmailSender
	templates    *templates.Engine
	log          *slog.Logger
	appName      string
	validMinutes int
}

// NewService creates a notification service.
func NewService(cfg *Config) Service {
	return &service{
		sender:       cfg.Sender,
		templates:    cfg.Templates,
		log:          cfg.Logger,
		appName:      cfg.AppName,
		validMinutes: cfg.ValidMinutes,
	}
}

// DeliverCode renders the template for purpose and sends it to the address.
// It returns once the sender finishes or ctx is done, whichever comes first;
// a sender still running after ctx ends is left to finish on its own timeouts.
func (s *service) DeliverCode(ctx context.Context, to, name, code string, purpose Purpose) error {
	var handle templates.Handle[templates.CodeData]
	switch purpose {
	case PurposeSignup:
		handle = templates.SignupCode
	case PurposeLogin:
		handle = templates.LoginCode
	default:
		return fmt.Errorf("unknown code purpose %q", purpose)
	}

	rendered, err := templates.Render(s.templates, handle, templates.CodeData{
		Name:         name,
		Code:         code,
		ValidMinutes: s.validMinutes,
		AppName:      s.appName,
	})
	if err != nil {
		return fmt.Errorf("render %s code: %w", purpose, err)
	}

	msg := Message{To: to, Subject: rendered.Subject, Text: rendered.EmailText, HTML: rendered.EmailHTML}
	done := make(chan error, 1)
	go func() { done <- s.sender.Send(msg) }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send %s code: %w", purpose, err)
		}
		s.log.Info("code delivered", "purpose", purpose, "recipient", to)
		return nil
	case <-ctx.Done():
		return fmt.Errorf("send %s code: %w", purpose, context.Cause(ctx))
	}
}
