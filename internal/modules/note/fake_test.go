package note

import (
	"context"
	"sort"
	"sync"
	"time"
)

type fakeRepository struct {
	mu    sync.Mutex
	notes map[string]*Note
	err   error
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{notes: map[string]*Note{}}
}

func (f *fakeRepository) ListByAccount(_ context.Context, accountID string) ([]*Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := []*Note{}
	for _, n := range f.notes {
		if n.AccountID == accountID {
			cp := *n
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (f *fakeRepository) Create(_ context.Context, n *Note) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	cp := *n
	f.notes[n.ID] = &cp
	return nil
}

func (f *fakeRepository) Update(_ context.Context, accountID, id, title, content string) (*Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.notes[id]
	if !ok || n.AccountID != accountID {
		return nil, ErrNotFound
	}
	n.Title, n.Content, n.UpdatedAt = title, content, time.Now()
	cp := *n
	return &cp, nil
}

func (f *fakeRepository) Delete(_ context.Context, accountID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.notes[id]
	if !ok || n.AccountID != accountID {
		return ErrNotFound
	}
	delete(f.notes, id)
	return nil
}
