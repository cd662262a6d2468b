package auth

import (
	"context"

	"github.com/delordemm1/notes-api/internal/contextx"
	"github.com/delordemm1/notes-api/internal/httpx"
)

// --- DTOs ---
// Body fields are optional in the schema so missing values reach the
// service and come back as our own validation problems.

type SignupRequest struct {
	Body struct {
		Email string `json:"email,omitempty" doc:"Email address to register"`
		Name  string `json:"name,omitempty" doc:"Display name, at least 2 characters"`
	}
}

type SignupResponse struct {
	Body struct {
		Message       string `json:"message"`
		PendingUserID string `json:"pendingUserId"`
	}
}

type VerifySignupRequest struct {
	Body struct {
		PendingUserID string `json:"pendingUserId,omitempty"`
		OTP           string `json:"otp,omitempty"`
	}
}

type LoginRequest struct {
	Body struct {
		Email    string `json:"email,omitempty"`
		Password string `json:"password,omitempty"`
	}
}

type RequestLoginCodeRequest struct {
	Body struct {
		Email string `json:"email,omitempty"`
	}
}

type RequestLoginCodeResponse struct {
	Body struct {
		Message      string `json:"message"`
		LoginSession string `json:"loginSession"`
	}
}

type VerifyLoginCodeRequest struct {
	Body struct {
		LoginSession string `json:"loginSession,omitempty"`
		OTP          string `json:"otp,omitempty"`
	}
}

type GoogleLoginRequest struct {
	Body struct {
		Token string `json:"token,omitempty" doc:"Google ID token obtained by the client"`
	}
}

// AuthResponse is returned by every flow that ends in a bearer token.
type AuthResponse struct {
	Body struct {
		Message string        `json:"message"`
		Token   string        `json:"token"`
		User    PublicAccount `json:"user"`
	}
}

type MeResponse struct {
	Body struct {
		User PublicAccount `json:"user"`
	}
}

type SetSecretRequest struct {
	Body struct {
		Password string `json:"password,omitempty"`
	}
}

func toAuthResponse(message string, res *AuthResult) *AuthResponse {
	out := &AuthResponse{}
	out.Body.Message = message
	out.Body.Token = res.Token
	out.Body.User = res.Account
	return out
}

// --- Handlers ---

func (h *Handler) SignupHandler(ctx context.Context, input *SignupRequest) (*SignupResponse, error) {
	id, err := h.service.Signup(ctx, input.Body.Email, input.Body.Name)
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	out := &SignupResponse{}
	out.Body.Message = "Verification code sent to your email"
	out.Body.PendingUserID = id
	return out, nil
}

func (h *Handler) VerifySignupHandler(ctx context.Context, input *VerifySignupRequest) (*AuthResponse, error) {
	res, err := h.service.VerifySignup(ctx, input.Body.PendingUserID, input.Body.OTP)
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	return toAuthResponse("Email verified successfully", res), nil
}

func (h *Handler) LoginHandler(ctx context.Context, input *LoginRequest) (*AuthResponse, error) {
	res, err := h.service.Login(ctx, input.Body.Email, input.Body.Password)
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	return toAuthResponse("Login successful", res), nil
}

func (h *Handler) RequestLoginCodeHandler(ctx context.Context, input *RequestLoginCodeRequest) (*RequestLoginCodeResponse, error) {
	session, err := h.service.RequestLoginCode(ctx, input.Body.Email)
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	out := &RequestLoginCodeResponse{}
	out.Body.Message = "Login code sent to your email"
	out.Body.LoginSession = session
	return out, nil
}

func (h *Handler) VerifyLoginCodeHandler(ctx context.Context, input *VerifyLoginCodeRequest) (*AuthResponse, error) {
	res, err := h.service.VerifyLoginCode(ctx, input.Body.LoginSession, input.Body.OTP)
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	return toAuthResponse("Login successful", res), nil
}

func (h *Handler) GoogleLoginHandler(ctx context.Context, input *GoogleLoginRequest) (*AuthResponse, error) {
	res, err := h.service.GoogleLogin(ctx, input.Body.Token)
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	return toAuthResponse("Google authentication successful", res), nil
}

func (h *Handler) MeHandler(ctx context.Context, _ *struct{}) (*MeResponse, error) {
	accountID, ok := contextx.AccountID(ctx)
	if !ok {
		return nil, httpx.UnauthorizedProblem(ctx, "missing authenticated account")
	}
	view, err := h.service.Me(ctx, accountID)
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	out := &MeResponse{}
	out.Body.User = *view
	return out, nil
}

func (h *Handler) SetSecretHandler(ctx context.Context, input *SetSecretRequest) (*struct{}, error) {
	accountID, ok := contextx.AccountID(ctx)
	if !ok {
		return nil, httpx.UnauthorizedProblem(ctx, "missing authenticated account")
	}
	if err := h.service.SetSecret(ctx, accountID, input.Body.Password); err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	return &struct{}{}, nil
}
