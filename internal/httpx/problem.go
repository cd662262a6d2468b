package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"unicode"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5/middleware"
)

const problemContentType = "application/problem+json"

// Problem is an RFC 9457/7807 problem+json body with three extensions:
//   - code: stable business code (e.g., ErrInvalidOrExpired)
//   - context: extra payload (e.g., validation fields map)
//   - requestId: propagated from chi middleware.RequestID
type Problem struct {
	Type     string `json:"type,omitempty"`
	Title    string `json:"title,omitempty"`
	Status   int    `json:"status,omitempty"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	Errors []*huma.ErrorDetail `json:"errors,omitempty"`

	Code      string `json:"code,omitempty"`
	Context   any    `json:"context,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func (p *Problem) Error() string {
	if p.Detail != "" {
		return p.Detail
	}
	if p.Title != "" {
		return p.Title
	}
	return http.StatusText(p.GetStatus())
}

// GetStatus implements huma.StatusError.
func (p *Problem) GetStatus() int {
	if p.Status == 0 {
		return http.StatusInternalServerError
	}
	return p.Status
}

// ContentType implements huma.ContentTypeFilter.
func (p *Problem) ContentType(ct string) string {
	switch ct {
	case "application/json":
		return problemContentType
	case "application/cbor":
		return "application/problem+cbor"
	}
	return ct
}

// DomainProblem is the method set a domain error exposes so it can be
// rendered without this package knowing its concrete type.
type DomainProblem interface {
	ProblemCode() string
	ProblemStatus() int
	ProblemTitle() string
	ProblemDetail() string
	ProblemTypeURI() string
	ProblemContext() any
}

// ToProblem converts any error into a *Problem. huma status errors pass
// through, domain problems are formatted, anything else becomes a generic
// internal problem so causes never reach the client.
func ToProblem(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if se, ok := err.(huma.StatusError); ok {
		return se
	}

	var dp DomainProblem
	if errors.As(err, &dp) {
		return FromDomain(ctx, dp)
	}
	return InternalProblem(ctx, "")
}

// FromDomain formats a domain problem, filling defaults for blank fields.
func FromDomain(ctx context.Context, dp DomainProblem) *Problem {
	status := dp.ProblemStatus()
	typeURI := dp.ProblemTypeURI()
	if typeURI == "" {
		typeURI = "urn:problem:" + toKebab(dp.ProblemCode())
	}
	title := dp.ProblemTitle()
	if title == "" {
		title = http.StatusText(status)
	}
	detail := dp.ProblemDetail()
	if detail == "" {
		detail = http.StatusText(status)
	}
	return &Problem{
		Type:      typeURI,
		Title:     title,
		Status:    status,
		Detail:    detail,
		Code:      dp.ProblemCode(),
		Context:   dp.ProblemContext(),
		RequestID: middleware.GetReqID(ctx),
	}
}

// InternalProblem builds a generic 500 problem with a safe default detail.
func InternalProblem(ctx context.Context, detail string) *Problem {
	if detail == "" {
		detail = "Something went wrong. Please try again later."
	}
	return &Problem{
		Type:      "urn:problem:internal",
		Title:     http.StatusText(http.StatusInternalServerError),
		Status:    http.StatusInternalServerError,
		Detail:    detail,
		Code:      "ErrInternal",
		RequestID: middleware.GetReqID(ctx),
	}
}

// UnauthorizedProblem builds the 401 returned when a bearer token is missing or invalid.
func UnauthorizedProblem(ctx context.Context, detail string) *Problem {
	return &Problem{
		Type:      "urn:problem:auth/err-unauthorized",
		Title:     http.StatusText(http.StatusUnauthorized),
		Status:    http.StatusUnauthorized,
		Detail:    detail,
		Code:      "ErrUnauthorized",
		RequestID: middleware.GetReqID(ctx),
	}
}

// TooManyRequestsProblem builds the 429 returned by the rate limiter.
func TooManyRequestsProblem(ctx context.Context) *Problem {
	return &Problem{
		Type:      "urn:problem:err-rate-limited",
		Title:     http.StatusText(http.StatusTooManyRequests),
		Status:    http.StatusTooManyRequests,
		Detail:    "Too many requests, please try again later.",
		Code:      "ErrRateLimited",
		RequestID: middleware.GetReqID(ctx),
	}
}

// Write renders p from inside a huma middleware, where there is no handler
// return value to carry the error.
func Write(ctx huma.Context, p *Problem) {
	ctx.SetHeader("Content-Type", problemContentType)
	ctx.SetStatus(p.GetStatus())
	_ = json.NewEncoder(ctx.BodyWriter()).Encode(p)
}

// toKebab converts codes like ErrInvalidOrExpired or USER_NOT_FOUND to
// err-invalid-or-expired and user-not-found.
func toKebab(s string) string {
	var b strings.Builder
	prevLowerOrDigit := false
	for _, r := range s {
		if r == '_' || r == ' ' || r == '-' {
			if b.Len() > 0 && !strings.HasSuffix(b.String(), "-") {
				b.WriteByte('-')
			}
			prevLowerOrDigit = false
			continue
		}
		if unicode.IsUpper(r) && prevLowerOrDigit {
			b.WriteByte('-')
		}
		b.WriteRune(unicode.ToLower(r))
		prevLowerOrDigit = unicode.IsLower(r) || unicode.IsDigit(r)
	}
	return b.String()
}
