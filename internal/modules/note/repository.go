package note

import (
	"context"
	"errors"

	"github.com/Masterminds/squirrel"
	"github.com/delordemm1/notes-api/internal/database"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
)

// Repository stores notes. Every method is scoped to the owning account; a
// note belonging to someone else behaves as if it did not exist.
type Repository interface {
	ListByAccount(ctx context.Context, accountID string) ([]*Note, error)
	Create(ctx context.Context, n *Note) error
	// Update replaces title and content and returns the stored note.
	Update(ctx context.Context, accountID, id, title, content string) (*Note, error)
	Delete(ctx context.Context, accountID, id string) error
}

var noteColumns = []string{"id", "account_id", "title", "content", "created_at", "updated_at"}

type repository struct {
	db   database.DBTX
	psql squirrel.StatementBuilderType
}

// NewRepository creates a Postgres-backed note repository.
func NewRepository(db database.DBTX) Repository {
	return &repository{
		db:   db,
		psql: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *repository) ListByAccount(ctx context.Context, accountID string) ([]*Note, error) {
	sql, args, err := r.psql.Select(noteColumns...).
		From("notes").
		Where(squirrel.Eq{"account_id": accountID}).
		OrderBy("created_at DESC", "id DESC").
		ToSql()
	if err != nil {
		return nil, err
	}
	notes := []*Note{}
	if err := pgxscan.Select(ctx, r.db, &notes, sql, args...); err != nil {
		return nil, err
	}
	return notes, nil
}

func (r *repository) Create(ctx context.Context, n *Note) error {
	sql, args, err := r.psql.Insert("notes").
		Columns(noteColumns...).
		Values(n.ID, n.AccountID, n.Title, n.Content, n.CreatedAt, n.UpdatedAt).
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *repository) Update(ctx context.Context, accountID, id, title, content string) (*Note, error) {
	sql, args, err := r.psql.Update("notes").
		Set("title", title).
		Set("content", content).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id, "account_id": accountID}).
		Suffix("RETURNING id, account_id, title, content, created_at, updated_at").
		ToSql()
	if err != nil {
		return nil, err
	}
	var n Note
	if err := pgxscan.Get(ctx, r.db, &n, sql, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound.WithCause(err)
		}
		return nil, err
	}
	return &n, nil
}

func (r *repository) Delete(ctx context.Context, accountID, id string) error {
	sql, args, err := r.psql.Delete("notes").
		Where(squirrel.Eq{"id": id, "account_id": accountID}).
		ToSql()
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
