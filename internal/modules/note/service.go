package note

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/delordemm1/notes-api/internal/validation"
	"github.com/google/uuid"
)

// Service manages an account's notes.
type Service interface {
	// List returns the account's notes, newest first.
	List(ctx context.Context, accountID string) ([]*Note, error)
	Create(ctx context.Context, accountID, title, content string) (*Note, error)
	Update(ctx context.Context, accountID, id, title, content string) (*Note, error)
	Delete(ctx context.Context, accountID, id string) error
}

type noteInput struct {
	Title   string `json:"title" validate:"required,max=200"`
	Content string `json:"content" validate:"required,max=5000"`
}

type service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a note service.
func NewService(repo Repository, logger *slog.Logger) Service {
	return &service{repo: repo, logger: logger, now: time.Now}
}

func (s *service) List(ctx context.Context, accountID string) ([]*Note, error) {
	notes, err := s.repo.ListByAccount(ctx, accountID)
	if err != nil {
		s.logger.Error("failed to list notes", "account_id", accountID, "error", err)
		return nil, ErrInternal.WithCause(err)
	}
	return notes, nil
}

func (s *service) Create(ctx context.Context, accountID, title, content string) (*Note, error) {
	in := noteInput{Title: strings.TrimSpace(title), Content: strings.TrimSpace(content)}
	if err := validation.ValidateStruct(in); err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, ErrInternal.WithCause(err)
	}
	now := s.now()
	n := &Note{
		ID:        id.String(),
		AccountID: accountID,
		Title:     in.Title,
		Content:   in.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		s.logger.Error("failed to create note", "account_id", accountID, "error", err)
		return nil, ErrInternal.WithCause(err)
	}
	return n, nil
}

func (s *service) Update(ctx context.Context, accountID, id, title, content string) (*Note, error) {
	in := noteInput{Title: strings.TrimSpace(title), Content: strings.TrimSpace(content)}
	if err := validation.ValidateStruct(in); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	n, err := s.repo.Update(ctx, accountID, id, in.Title, in.Content)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		s.logger.Error("failed to update note", "note_id", id, "error", err)
		return nil, ErrInternal.WithCause(err)
	}
	return n, nil
}

func (s *service) Delete(ctx context.Context, accountID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	if err := s.repo.Delete(ctx, accountID, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		s.logger.Error("failed to delete note", "note_id", id, "error", err)
		return ErrInternal.WithCause(err)
	}
	return nil
}
