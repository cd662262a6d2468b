package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
)

var pendingColumns = []string{"id", "email", "display_name", "code_hash", "code_expires_at", "created_at"}

// A new signup for an email replaces the old row wholesale, including its id,
// so the previous verification handle stops resolving in the same statement.
const supersedePending = `ON CONFLICT (email) DO UPDATE SET
	id = EXCLUDED.id,
	display_name = EXCLUDED.display_name,
	code_hash = EXCLUDED.code_hash,
	code_expires_at = EXCLUDED.code_expires_at,
	created_at = EXCLUDED.created_at`

func (r *repository) UpsertPendingAccount(ctx context.Context, p *PendingAccount) error {
	sql, args, err := r.psql.Insert("pending_accounts").
		Columns(pendingColumns...).
		Values(p.ID, p.Email, p.Name, p.CodeHash, p.CodeExpiresAt, p.CreatedAt).
		Suffix(supersedePending).
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *repository) FindPendingAccountByID(ctx context.Context, id string) (*PendingAccount, error) {
	sql, args, err := r.psql.Select(pendingColumns...).
		From("pending_accounts").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}
	var p PendingAccount
	if err := pgxscan.Get(ctx, r.db, &p, sql, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound.WithCause(err)
		}
		return nil, err
	}
	return &p, nil
}

func (r *repository) ConsumePendingAccount(ctx context.Context, id, codeHash string, now time.Time) (*PendingAccount, error) {
	sql, args, err := r.psql.Delete("pending_accounts").
		Where(squirrel.Eq{"id": id, "code_hash": codeHash}).
		Where(squirrel.Gt{"code_expires_at": now}).
		Suffix("RETURNING " + strings.Join(pendingColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, err
	}
	var p PendingAccount
	if err := pgxscan.Get(ctx, r.db, &p, sql, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound.WithCause(err)
		}
		return nil, err
	}
	return &p, nil
}

func (r *repository) DeletePendingAccount(ctx context.Context, id string) error {
	sql, args, err := r.psql.Delete("pending_accounts").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *repository) DeleteExpiredPendingAccounts(ctx context.Context, createdBefore time.Time) (int64, error) {
	sql, args, err := r.psql.Delete("pending_accounts").
		Where(squirrel.LtOrEq{"created_at": createdBefore}).
		ToSql()
	if err != nil {
		return 0, err
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
