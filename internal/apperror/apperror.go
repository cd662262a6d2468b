// Package apperror provides the structured error type shared by the domain
// modules. Each module declares its own sentinels; httpx formats them as
// RFC 7807 problems through the accessor methods.
package apperror

import (
	"fmt"
	"net/http"
)

// DomainError is a structured, self-describing domain error.
type DomainError struct {
	// Code is a stable, machine-readable business code (e.g., "ErrInvalidOrExpired").
	Code string

	// HTTPStatus is the HTTP status suggested for this error.
	HTTPStatus int

	// Title is a short human summary; if empty the formatter uses StatusText(HTTPStatus).
	Title string

	// Message is primarily for logs. When Detail is empty it doubles as the public detail.
	Message string

	// Detail is a safe explanation for clients.
	Detail string

	// TypeURI is an RFC 7807 type URI, e.g., "urn:problem:auth/err-conflict".
	TypeURI string

	// Context is an optional extension payload for clients.
	Context any

	cause error
}

// New returns a sentinel DomainError. The type URI is derived from module and code.
func New(module, code string, status int, message string) *DomainError {
	return &DomainError{
		Code:       code,
		HTTPStatus: status,
		Title:      http.StatusText(status),
		Message:    message,
		TypeURI:    "urn:problem:" + module + "/" + kebab(code),
	}
}

func (e *DomainError) Error() string {
	msg := e.Detail
	if msg == "" {
		msg = e.Message
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.cause)
	}
	return msg
}

func (e *DomainError) Unwrap() error {
	return e.cause
}

// Is compares by Code so copies made through WithCause still match their sentinel.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithCause returns a copy wrapping err. The cause is never shown to clients.
func (e *DomainError) WithCause(err error) *DomainError {
	if err == nil {
		return e
	}
	cp := *e
	cp.cause = err
	return &cp
}

// WithDetail returns a copy with a client-facing detail message.
func (e *DomainError) WithDetail(detail string) *DomainError {
	cp := *e
	cp.Detail = detail
	return &cp
}

// WithContext returns a copy carrying an extension payload for clients.
func (e *DomainError) WithContext(ctx any) *DomainError {
	cp := *e
	cp.Context = ctx
	return &cp
}

// --- RFC 7807 accessors (satisfy httpx.DomainProblem) ---

func (e *DomainError) ProblemCode() string { return e.Code }

func (e *DomainError) ProblemStatus() int {
	if e.HTTPStatus == 0 {
		return http.StatusInternalServerError
	}
	return e.HTTPStatus
}

func (e *DomainError) ProblemTitle() string { return e.Title }

func (e *DomainError) ProblemDetail() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.Message
}

func (e *DomainError) ProblemTypeURI() string { return e.TypeURI }
func (e *DomainError) ProblemContext() any    { return e.Context }

// kebab turns ErrInvalidOrExpired into err-invalid-or-expired.
func kebab(code string) string {
	out := make([]rune, 0, len(code)+4)
	for i, r := range code {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				out = append(out, '-')
			}
			r += 'a' - 'A'
		}
		out = append(out, r)
	}
	return string(out)
}
