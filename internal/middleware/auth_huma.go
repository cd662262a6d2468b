package middleware

import (
	"log/slog"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/delordemm1/notes-api/internal/contextx"
	"github.com/delordemm1/notes-api/internal/httpx"
)

// TokenParser resolves a bearer token to the account id it was issued for.
type TokenParser interface {
	Parse(token string) (string, error)
}

// BearerAuth is a router-agnostic huma middleware that validates the bearer
// token and stores the account id under contextx.AccountIDKey. Requests
// without a valid token get a 401 problem and never reach the handler.
func BearerAuth(tokens TokenParser, logger *slog.Logger) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		header := ctx.Header("Authorization")
		if header == "" {
			httpx.Write(ctx, httpx.UnauthorizedProblem(ctx.Context(), "missing authorization header"))
			return
		}

		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(token) == "" {
			httpx.Write(ctx, httpx.UnauthorizedProblem(ctx.Context(), "invalid authorization header format"))
			return
		}

		accountID, err := tokens.Parse(strings.TrimSpace(token))
		if err != nil {
			logger.Warn("rejected bearer token", "operation", ctx.Operation().OperationID, "error", err)
			httpx.Write(ctx, httpx.UnauthorizedProblem(ctx.Context(), "invalid or expired token"))
			return
		}

		next(huma.WithValue(ctx, contextx.AccountIDKey, accountID))
	}
}
