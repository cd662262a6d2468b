package auth

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/delordemm1/notes-api/internal/identity"
	"github.com/delordemm1/notes-api/internal/notification"
)

// Service implements the authentication flows: two-step signup, legacy
// password login, passwordless code login and Google sign-in.
type Service interface {
	// Signup starts a signup and returns the pending handle used to verify it.
	Signup(ctx context.Context, email, name string) (string, error)
	// VerifySignup promotes the pending signup to an account once the code matches.
	VerifySignup(ctx context.Context, pendingID, code string) (*AuthResult, error)

	Login(ctx context.Context, email, secret string) (*AuthResult, error)

	// RequestLoginCode issues a login code and returns the login session handle.
	RequestLoginCode(ctx context.Context, email string) (string, error)
	VerifyLoginCode(ctx context.Context, sessionID, code string) (*AuthResult, error)

	GoogleLogin(ctx context.Context, assertion string) (*AuthResult, error)

	SetSecret(ctx context.Context, accountID, secret string) error
	Me(ctx context.Context, accountID string) (*PublicAccount, error)
}

// TokenIssuer mints bearer tokens for an account id.
type TokenIssuer interface {
	Issue(accountID string) (string, error)
}

// IdentityVerifier validates a third-party identity assertion.
type IdentityVerifier interface {
	Verify(ctx context.Context, assertion string) (*identity.Identity, error)
}

// CodeDeliverer sends a one-time code to an email address.
type CodeDeliverer interface {
	DeliverCode(ctx context.Context, to, name, code string, purpose notification.Purpose) error
}

type service struct {
	repo            Repository
	logger          *slog.Logger
	tokens          TokenIssuer
	identity        IdentityVerifier
	deliverer       CodeDeliverer
	hasher          SecretHasher
	now             func() time.Time
	deliveryTimeout time.Duration
	logFallback     bool

	dummyOnce sync.Once
	dummyHash string
}

// Config holds the dependencies for the auth service.
type Config struct {
	Repo      Repository
	Logger    *slog.Logger
	Tokens    TokenIssuer
	Identity  IdentityVerifier
	Deliverer CodeDeliverer
	Hasher    SecretHasher
	// Now defaults to time.Now.
	Now func() time.Time
	// DeliveryTimeout bounds how long a request waits on code delivery.
	DeliveryTimeout time.Duration
	// LogFallback writes undelivered codes to the log so an operator can relay them.
	LogFallback bool
}

// NewService creates a new auth service with the given dependencies.
func NewService(cfg *Config) Service {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	timeout := cfg.DeliveryTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &service{
		repo:            cfg.Repo,
		logger:          cfg.Logger,
		tokens:          cfg.Tokens,
		identity:        cfg.Identity,
		deliverer:       cfg.Deliverer,
		hasher:          cfg.Hasher,
		now:             now,
		deliveryTimeout: timeout,
		logFallback:     cfg.LogFallback,
	}
}
