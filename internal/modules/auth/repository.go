package auth

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/delordemm1/notes-api/internal/database"
	"github.com/jackc/pgx/v5"
)

// Repository is the durable store behind the auth flows. Methods that
// consume a code do so in a single conditional statement, so two concurrent
// callers can never both succeed.
type Repository interface {
	// CreateAccount inserts a. A duplicate email or Google subject yields ErrConflict.
	CreateAccount(ctx context.Context, a *Account) error
	FindAccountByID(ctx context.Context, id string) (*Account, error)
	FindAccountByEmail(ctx context.Context, email string) (*Account, error)
	// FindAccountBySubjectOrEmail prefers a subject match over an email match.
	FindAccountBySubjectOrEmail(ctx context.Context, subject, email string) (*Account, error)
	// LinkGoogleSubject sets the subject and marks the account verified, only
	// if no subject is linked yet. Otherwise it returns ErrNotFound.
	LinkGoogleSubject(ctx context.Context, id, subject string) error
	SetLoginChallenge(ctx context.Context, id string, c LoginChallenge) error
	// ConsumeLoginChallenge clears the challenge if it matches codeHash and is
	// still valid at now. Otherwise it returns ErrNotFound.
	ConsumeLoginChallenge(ctx context.Context, id, codeHash string, now time.Time) error
	UpdateSecretHash(ctx context.Context, id, hash string) error

	// UpsertPendingAccount stores p, replacing any pending signup for the same email.
	UpsertPendingAccount(ctx context.Context, p *PendingAccount) error
	FindPendingAccountByID(ctx context.Context, id string) (*PendingAccount, error)
	// ConsumePendingAccount deletes and returns the pending signup if codeHash
	// matches and the code is still valid at now. Otherwise it returns ErrNotFound.
	ConsumePendingAccount(ctx context.Context, id, codeHash string, now time.Time) (*PendingAccount, error)
	DeletePendingAccount(ctx context.Context, id string) error
	DeleteExpiredPendingAccounts(ctx context.Context, createdBefore time.Time) (int64, error)

	// WithTx runs fn against a repository bound to one transaction.
	WithTx(ctx context.Context, fn func(Repository) error) error
}

type repository struct {
	db   database.DBTX
	psql squirrel.StatementBuilderType
}

// NewRepository creates a Postgres-backed auth repository.
func NewRepository(db database.DBTX) Repository {
	return &repository{
		db:   db,
		psql: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *repository) WithTx(ctx context.Context, fn func(Repository) error) error {
	return database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(&repository{db: tx, psql: r.psql})
	})
}
