package auth

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// Handler holds the dependencies for the auth module's HTTP handlers.
type Handler struct {
	service     Service
	logger      *slog.Logger
	requireAuth func(huma.Context, func(huma.Context))
	throttle    func(huma.Context, func(huma.Context))
}

// HandlerConfig holds the dependencies for the auth handlers. Throttle may be nil.
type HandlerConfig struct {
	Service     Service
	Logger      *slog.Logger
	RequireAuth func(huma.Context, func(huma.Context))
	Throttle    func(huma.Context, func(huma.Context))
}

// NewHandler creates a new handler for the auth module.
func NewHandler(cfg *HandlerConfig) *Handler {
	return &Handler{
		service:     cfg.Service,
		logger:      cfg.Logger,
		requireAuth: cfg.RequireAuth,
		throttle:    cfg.Throttle,
	}
}

// RegisterRoutes mounts the auth endpoints under /api/auth.
func (h *Handler) RegisterRoutes(api huma.API) {
	var public huma.Middlewares
	if h.throttle != nil {
		public = append(public, h.throttle)
	}
	private := huma.Middlewares{h.requireAuth}
	bearer := []map[string][]string{{"bearer": {}}}

	huma.Register(api, huma.Operation{
		OperationID:   "auth-signup",
		Method:        http.MethodPost,
		Path:          "/api/auth/signup",
		Summary:       "Start a signup",
		Description:   "Creates a pending account and emails it a six digit verification code.",
		Tags:          []string{"Auth"},
		DefaultStatus: http.StatusCreated,
		Middlewares:   public,
	}, h.SignupHandler)

	huma.Register(api, huma.Operation{
		OperationID: "auth-verify-signup",
		Method:      http.MethodPost,
		Path:        "/api/auth/verify-otp",
		Summary:     "Verify a signup code",
		Tags:        []string{"Auth"},
		Middlewares: public,
	}, h.VerifySignupHandler)

	huma.Register(api, huma.Operation{
		OperationID: "auth-login",
		Method:      http.MethodPost,
		Path:        "/api/auth/login",
		Summary:     "Log in with email and password",
		Tags:        []string{"Auth"},
		Middlewares: public,
	}, h.LoginHandler)

	huma.Register(api, huma.Operation{
		OperationID: "auth-request-login-code",
		Method:      http.MethodPost,
		Path:        "/api/auth/send-login-otp",
		Summary:     "Email a login code",
		Tags:        []string{"Auth"},
		Middlewares: public,
	}, h.RequestLoginCodeHandler)

	huma.Register(api, huma.Operation{
		OperationID: "auth-verify-login-code",
		Method:      http.MethodPost,
		Path:        "/api/auth/verify-login-otp",
		Summary:     "Log in with an emailed code",
		Tags:        []string{"Auth"},
		Middlewares: public,
	}, h.VerifyLoginCodeHandler)

	huma.Register(api, huma.Operation{
		OperationID: "auth-google",
		Method:      http.MethodPost,
		Path:        "/api/auth/google",
		Summary:     "Log in with a Google ID token",
		Tags:        []string{"Auth"},
		Middlewares: public,
	}, h.GoogleLoginHandler)

	huma.Register(api, huma.Operation{
		OperationID: "auth-me",
		Method:      http.MethodGet,
		Path:        "/api/auth/me",
		Summary:     "Get the current account",
		Tags:        []string{"Auth"},
		Security:    bearer,
		Middlewares: private,
	}, h.MeHandler)

	huma.Register(api, huma.Operation{
		OperationID:   "auth-set-secret",
		Method:        http.MethodPut,
		Path:          "/api/auth/secret",
		Summary:       "Set or replace the account password",
		Tags:          []string{"Auth"},
		DefaultStatus: http.StatusNoContent,
		Security:      bearer,
		Middlewares:   private,
	}, h.SetSecretHandler)
}
