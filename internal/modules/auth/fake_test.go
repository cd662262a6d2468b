package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/delordemm1/notes-api/internal/identity"
	"github.com/delordemm1/notes-api/internal/notification"
)

// fakeRepository is an in-memory Repository with the same conditional
// semantics as the Postgres one.
type fakeRepository struct {
	mu       sync.Mutex
	txMu     sync.Mutex
	accounts map[string]*Account
	pending  map[string]*PendingAccount

	// failCreate, when set, is returned by the next CreateAccount call.
	failCreate error
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		accounts: map[string]*Account{},
		pending:  map[string]*PendingAccount{},
	}
}

func cloneAccount(a *Account) *Account {
	cp := *a
	if a.Login != nil {
		l := *a.Login
		cp.Login = &l
	}
	return &cp
}

func (f *fakeRepository) CreateAccount(_ context.Context, a *Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failCreate; err != nil {
		f.failCreate = nil
		return err
	}
	for _, existing := range f.accounts {
		if existing.Email == a.Email {
			return ErrConflict
		}
		if a.GoogleSubject != nil && existing.GoogleSubject != nil && *existing.GoogleSubject == *a.GoogleSubject {
			return ErrConflict
		}
	}
	f.accounts[a.ID] = cloneAccount(a)
	return nil
}

func (f *fakeRepository) FindAccountByID(_ context.Context, id string) (*Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneAccount(a), nil
}

func (f *fakeRepository) FindAccountByEmail(_ context.Context, email string) (*Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.Email == email {
			return cloneAccount(a), nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeRepository) FindAccountBySubjectOrEmail(_ context.Context, subject, email string) (*Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var byEmail *Account
	for _, a := range f.accounts {
		if a.GoogleSubject != nil && *a.GoogleSubject == subject {
			return cloneAccount(a), nil
		}
		if a.Email == email {
			byEmail = a
		}
	}
	if byEmail == nil {
		return nil, ErrNotFound
	}
	return cloneAccount(byEmail), nil
}

func (f *fakeRepository) LinkGoogleSubject(_ context.Context, id, subject string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok || a.GoogleSubject != nil {
		return ErrNotFound
	}
	for _, other := range f.accounts {
		if other.GoogleSubject != nil && *other.GoogleSubject == subject {
			return ErrConflict
		}
	}
	a.GoogleSubject = &subject
	a.Verified = true
	return nil
}

func (f *fakeRepository) SetLoginChallenge(_ context.Context, id string, c LoginChallenge) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return ErrNotFound
	}
	a.Login = &c
	return nil
}

func (f *fakeRepository) ConsumeLoginChallenge(_ context.Context, id, codeHash string, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok || a.Login == nil || a.Login.CodeHash != codeHash || !now.Before(a.Login.ExpiresAt) {
		return ErrNotFound
	}
	a.Login = nil
	return nil
}

func (f *fakeRepository) UpdateSecretHash(_ context.Context, id, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return ErrNotFound
	}
	a.SecretHash = &hash
	return nil
}

func (f *fakeRepository) UpsertPendingAccount(_ context.Context, p *PendingAccount) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, existing := range f.pending {
		if existing.Email == p.Email {
			delete(f.pending, id)
		}
	}
	cp := *p
	f.pending[p.ID] = &cp
	return nil
}

func (f *fakeRepository) FindPendingAccountByID(_ context.Context, id string) (*PendingAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pending[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeRepository) ConsumePendingAccount(_ context.Context, id, codeHash string, now time.Time) (*PendingAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pending[id]
	if !ok || p.CodeHash != codeHash || !now.Before(p.CodeExpiresAt) {
		return nil, ErrNotFound
	}
	delete(f.pending, id)
	return p, nil
}

func (f *fakeRepository) DeletePendingAccount(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.pending, id)
	return nil
}

func (f *fakeRepository) DeleteExpiredPendingAccounts(_ context.Context, createdBefore time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, p := range f.pending {
		if !p.CreatedAt.After(createdBefore) {
			delete(f.pending, id)
			n++
		}
	}
	return n, nil
}

// WithTx runs transactions one at a time and restores the previous state
// when fn fails.
func (f *fakeRepository) WithTx(_ context.Context, fn func(Repository) error) error {
	f.txMu.Lock()
	defer f.txMu.Unlock()

	f.mu.Lock()
	accounts := make(map[string]*Account, len(f.accounts))
	for k, v := range f.accounts {
		accounts[k] = cloneAccount(v)
	}
	pending := make(map[string]*PendingAccount, len(f.pending))
	for k, v := range f.pending {
		cp := *v
		pending[k] = &cp
	}
	f.mu.Unlock()

	if err := fn(f); err != nil {
		f.mu.Lock()
		f.accounts, f.pending = accounts, pending
		f.mu.Unlock()
		return err
	}
	return nil
}

func (f *fakeRepository) pendingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

func (f *fakeRepository) accountCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.accounts)
}

// fakeDeliverer records every code it is asked to send.
type fakeDeliverer struct {
	mu    sync.Mutex
	sent  []sentCode
	err   error
	block bool
}

type sentCode struct {
	to      string
	code    string
	purpose notification.Purpose
}

func (d *fakeDeliverer) DeliverCode(ctx context.Context, to, _, code string, purpose notification.Purpose) error {
	d.mu.Lock()
	d.sent = append(d.sent, sentCode{to: to, code: code, purpose: purpose})
	err, block := d.err, d.block
	d.mu.Unlock()
	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}

func (d *fakeDeliverer) last() sentCode {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.sent) == 0 {
		return sentCode{}
	}
	return d.sent[len(d.sent)-1]
}

// fakeIdentity maps assertion strings to identities.
type fakeIdentity map[string]*identity.Identity

func (f fakeIdentity) Verify(_ context.Context, assertion string) (*identity.Identity, error) {
	id, ok := f[assertion]
	if !ok {
		return nil, errors.New("bad assertion")
	}
	cp := *id
	return &cp, nil
}

// plainHasher keeps tests fast; bcrypt is covered separately.
type plainHasher struct{}

func (plainHasher) Hash(secret string) (string, error) { return "hashed:" + secret, nil }
func (plainHasher) Compare(secret, hash string) bool   { return hash == "hashed:"+secret }

// fakeTokens issues "token:<id>".
type fakeTokens struct{}

func (fakeTokens) Issue(accountID string) (string, error) { return "token:" + accountID, nil }

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
