package auth

import (
	"context"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/delordemm1/notes-api/internal/database"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
)

var accountColumns = []string{
	"id", "email", "display_name", "secret_hash", "google_subject", "verified",
	"login_code_hash", "login_code_expires_at", "created_at", "updated_at",
}

func (r *repository) CreateAccount(ctx context.Context, a *Account) error {
	var loginHash *string
	var loginExpires *time.Time
	if a.Login != nil {
		loginHash, loginExpires = &a.Login.CodeHash, &a.Login.ExpiresAt
	}

	sql, args, err := r.psql.Insert("accounts").
		Columns(accountColumns...).
		Values(a.ID, a.Email, a.Name, a.SecretHash, a.GoogleSubject, a.Verified,
			loginHash, loginExpires, a.CreatedAt, a.UpdatedAt).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		if database.IsUniqueViolation(err, "") {
			return ErrConflict.WithCause(err)
		}
		return err
	}
	return nil
}

func (r *repository) FindAccountByID(ctx context.Context, id string) (*Account, error) {
	return r.findAccount(ctx, r.psql.Select(accountColumns...).From("accounts").
		Where(squirrel.Eq{"id": id}))
}

func (r *repository) FindAccountByEmail(ctx context.Context, email string) (*Account, error) {
	return r.findAccount(ctx, r.psql.Select(accountColumns...).From("accounts").
		Where(squirrel.Eq{"email": email}))
}

func (r *repository) FindAccountBySubjectOrEmail(ctx context.Context, subject, email string) (*Account, error) {
	return r.findAccount(ctx, r.psql.Select(accountColumns...).From("accounts").
		Where(squirrel.Or{
			squirrel.Eq{"google_subject": subject},
			squirrel.Eq{"email": email},
		}).
		OrderByClause("(google_subject IS NOT DISTINCT FROM ?) DESC", subject).
		Limit(1))
}

func (r *repository) findAccount(ctx context.Context, q squirrel.SelectBuilder) (*Account, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	var row accountRow
	if err := pgxscan.Get(ctx, r.db, &row, sql, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound.WithCause(err)
		}
		return nil, err
	}
	return row.toAccount(), nil
}

func (r *repository) LinkGoogleSubject(ctx context.Context, id, subject string) error {
	sql, args, err := r.psql.Update("accounts").
		Set("google_subject", subject).
		Set("verified", true).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		Where("google_subject IS NULL").
		ToSql()
	if err != nil {
		return err
	}
	return r.execOne(ctx, sql, args)
}

func (r *repository) SetLoginChallenge(ctx context.Context, id string, c LoginChallenge) error {
	sql, args, err := r.psql.Update("accounts").
		Set("login_code_hash", c.CodeHash).
		Set("login_code_expires_at", c.ExpiresAt).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	return r.execOne(ctx, sql, args)
}

func (r *repository) ConsumeLoginChallenge(ctx context.Context, id, codeHash string, now time.Time) error {
	sql, args, err := r.psql.Update("accounts").
		Set("login_code_hash", nil).
		Set("login_code_expires_at", nil).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id, "login_code_hash": codeHash}).
		Where(squirrel.Gt{"login_code_expires_at": now}).
		ToSql()
	if err != nil {
		return err
	}
	return r.execOne(ctx, sql, args)
}

func (r *repository) UpdateSecretHash(ctx context.Context, id, hash string) error {
	sql, args, err := r.psql.Update("accounts").
		Set("secret_hash", hash).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	return r.execOne(ctx, sql, args)
}

// execOne runs an update that must touch a row, mapping "no rows" to ErrNotFound.
func (r *repository) execOne(ctx context.Context, sql string, args []any) error {
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		if database.IsUniqueViolation(err, "") {
			return ErrConflict.WithCause(err)
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
