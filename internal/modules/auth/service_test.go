package auth

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/delordemm1/notes-api/internal/identity"
	"github.com/delordemm1/notes-api/internal/notification"
	"github.com/delordemm1/notes-api/internal/validation"
	"github.com/stretchr/testify/require"
)

type harness struct {
	svc   Service
	repo  *fakeRepository
	mail  *fakeDeliverer
	clock *clock
	ids   fakeIdentity
	logs  *bytes.Buffer
}

type harnessOption func(*Config)

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	h := &harness{
		repo:  newFakeRepository(),
		mail:  &fakeDeliverer{},
		clock: &clock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)},
		ids:   fakeIdentity{},
		logs:  &bytes.Buffer{},
	}
	cfg := &Config{
		Repo:            h.repo,
		Logger:          slog.New(slog.NewTextHandler(&syncWriter{w: h.logs}, nil)),
		Tokens:          fakeTokens{},
		Identity:        h.ids,
		Deliverer:       h.mail,
		Hasher:          plainHasher{},
		Now:             h.clock.Now,
		DeliveryTimeout: 50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	h.svc = NewService(cfg)
	return h
}

type syncWriter struct {
	mu sync.Mutex
	w  *bytes.Buffer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// seedAccount stores a verified account directly.
func (h *harness) seedAccount(t *testing.T, email, name string, secret *string) *Account {
	t.Helper()
	id, err := newID()
	require.NoError(t, err)
	a := &Account{ID: id, Email: email, Name: name, Verified: true, CreatedAt: h.clock.Now()}
	if secret != nil {
		hash, _ := plainHasher{}.Hash(*secret)
		a.SecretHash = &hash
	}
	require.NoError(t, h.repo.CreateAccount(context.Background(), a))
	return a
}

// signup starts a signup and returns the handle and the delivered code.
func (h *harness) signup(t *testing.T, email, name string) (string, string) {
	t.Helper()
	handle, err := h.svc.Signup(context.Background(), email, name)
	require.NoError(t, err)
	sent := h.mail.last()
	require.Equal(t, notification.PurposeSignup, sent.purpose)
	return handle, sent.code
}

func wrongCode(code string) string {
	if code == "111111" {
		return "222222"
	}
	return "111111"
}

func strPtr(s string) *string { return &s }

// --- Signup ---

func TestSignup_Validation(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name  string
		email string
		dname string
		field string
	}{
		{name: "invalid email", email: "not-an-email", dname: "Ann", field: "email"},
		{name: "missing email", email: "", dname: "Ann", field: "email"},
		{name: "short name", email: "a@x.com", dname: "A", field: "name"},
		{name: "blank name", email: "a@x.com", dname: "   ", field: "name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.svc.Signup(context.Background(), tt.email, tt.dname)
			var verr *validation.ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			require.Contains(t, verr.Fields(), tt.field)
		})
	}
	require.Zero(t, h.repo.pendingCount())
}

func TestSignup_NormalizesEmail(t *testing.T) {
	h := newHarness(t)

	handle, code := h.signup(t, "  Ann@X.COM ", "Ann")
	require.Equal(t, "ann@x.com", h.mail.last().to)

	res, err := h.svc.VerifySignup(context.Background(), handle, code)
	require.NoError(t, err)
	require.Equal(t, "ann@x.com", res.Account.Email)
}

func TestSignup_ConflictWhenAccountExists(t *testing.T) {
	h := newHarness(t)
	h.seedAccount(t, "a@x.com", "Ann", nil)

	_, err := h.svc.Signup(context.Background(), "A@x.com", "Ann")
	require.ErrorIs(t, err, ErrConflict)
	require.Zero(t, h.repo.pendingCount())
}

func TestSignup_SupersedesPending(t *testing.T) {
	h := newHarness(t)

	first, firstCode := h.signup(t, "a@x.com", "Ann")
	second, secondCode := h.signup(t, "a@x.com", "Annie")
	require.NotEqual(t, first, second)
	require.Equal(t, 1, h.repo.pendingCount())

	_, err := h.svc.VerifySignup(context.Background(), first, firstCode)
	require.ErrorIs(t, err, ErrNotFound)

	res, err := h.svc.VerifySignup(context.Background(), second, secondCode)
	require.NoError(t, err)
	require.Equal(t, "Annie", res.Account.Name)
}

func TestSignup_DeliveryFailureStillSucceeds(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.LogFallback = true })
	h.mail.err = errors.New("smtp down")

	handle, code := h.signup(t, "a@x.com", "Ann")
	require.NotEmpty(t, handle)
	require.Contains(t, h.logs.String(), "code delivery failed")
	require.Contains(t, h.logs.String(), code)

	_, err := h.svc.VerifySignup(context.Background(), handle, code)
	require.NoError(t, err)
}

func TestSignup_NoFallbackLeavesCodeOutOfLogs(t *testing.T) {
	h := newHarness(t)
	h.mail.err = errors.New("smtp down")

	_, code := h.signup(t, "a@x.com", "Ann")
	require.Contains(t, h.logs.String(), "code delivery failed")
	require.NotContains(t, h.logs.String(), code)
}

func TestSignup_DeliveryIsBounded(t *testing.T) {
	h := newHarness(t)
	h.mail.block = true

	start := time.Now()
	_, err := h.svc.Signup(context.Background(), "a@x.com", "Ann")
	require.NoError(t, err)
	require.Less(t, time.Since(start), 2*time.Second)
}

// --- Verify signup ---

func TestScenarioA_SignupLifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	handle, code := h.signup(t, "a@x.com", "Ann")

	_, err := h.svc.VerifySignup(ctx, handle, wrongCode(code))
	require.ErrorIs(t, err, ErrInvalidOrExpired)

	res, err := h.svc.VerifySignup(ctx, handle, code)
	require.NoError(t, err)
	require.Equal(t, "token:"+res.Account.ID, res.Token)
	require.Equal(t, "a@x.com", res.Account.Email)
	require.Equal(t, "Ann", res.Account.Name)

	stored, err := h.repo.FindAccountByID(ctx, res.Account.ID)
	require.NoError(t, err)
	require.True(t, stored.Verified)
	require.Nil(t, stored.SecretHash)

	_, err = h.svc.VerifySignup(ctx, handle, code)
	require.ErrorIs(t, err, ErrNotFound)
	require.Zero(t, h.repo.pendingCount())
}

func TestVerifySignup_UnknownHandle(t *testing.T) {
	h := newHarness(t)

	for _, handle := range []string{"", "not-a-uuid", "0190d5a4-7b1e-7c3a-9d2f-3e4b5a6c7d8e"} {
		_, err := h.svc.VerifySignup(context.Background(), handle, "123456")
		require.ErrorIs(t, err, ErrNotFound, "handle %q", handle)
	}
}

func TestVerifySignup_MissingCode(t *testing.T) {
	h := newHarness(t)
	handle, _ := h.signup(t, "a@x.com", "Ann")

	_, err := h.svc.VerifySignup(context.Background(), handle, "")
	require.ErrorIs(t, err, ErrInvalidOrExpired)
}

func TestVerifySignup_Expired(t *testing.T) {
	h := newHarness(t)
	handle, code := h.signup(t, "a@x.com", "Ann")

	h.clock.Advance(CodeTTL)
	_, err := h.svc.VerifySignup(context.Background(), handle, code)
	require.ErrorIs(t, err, ErrInvalidOrExpired)
	require.Zero(t, h.repo.accountCount())
}

func TestVerifySignup_ConflictRemovesPending(t *testing.T) {
	h := newHarness(t)
	handle, code := h.signup(t, "a@x.com", "Ann")

	// another path created the account while the code was outstanding
	existing := h.seedAccount(t, "a@x.com", "Other", nil)

	_, err := h.svc.VerifySignup(context.Background(), handle, code)
	require.ErrorIs(t, err, ErrConflict)
	require.Zero(t, h.repo.pendingCount())
	require.Equal(t, 1, h.repo.accountCount())

	stored, err := h.repo.FindAccountByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	require.Equal(t, existing.ID, stored.ID)
}

func TestVerifySignup_StoreUniqueViolationIsConflict(t *testing.T) {
	h := newHarness(t)
	handle, code := h.signup(t, "a@x.com", "Ann")
	h.repo.failCreate = ErrConflict.WithCause(errors.New("duplicate key value violates unique constraint"))

	_, err := h.svc.VerifySignup(context.Background(), handle, code)
	require.ErrorIs(t, err, ErrConflict)
	require.Zero(t, h.repo.pendingCount())
	require.Zero(t, h.repo.accountCount())
}

func TestVerifySignup_StoreFailureRollsBack(t *testing.T) {
	h := newHarness(t)
	handle, code := h.signup(t, "a@x.com", "Ann")
	h.repo.failCreate = errors.New("connection reset")

	_, err := h.svc.VerifySignup(context.Background(), handle, code)
	require.ErrorIs(t, err, ErrInternal)
	require.Equal(t, 1, h.repo.pendingCount(), "pending signup survives a failed promotion")

	_, err = h.svc.VerifySignup(context.Background(), handle, code)
	require.NoError(t, err)
}

func TestVerifySignup_ConcurrentSingleUse(t *testing.T) {
	h := newHarness(t)
	handle, code := h.signup(t, "a@x.com", "Ann")

	const workers = 8
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.svc.VerifySignup(context.Background(), handle, code)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	successes := 0
	for err := range results {
		if err == nil {
			successes++
			continue
		}
		require.True(t, errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict), "unexpected %v", err)
	}
	require.Equal(t, 1, successes)
	require.Equal(t, 1, h.repo.accountCount())
}

// --- Legacy login ---

func TestLogin(t *testing.T) {
	h := newHarness(t)
	withSecret := h.seedAccount(t, "a@x.com", "Ann", strPtr("hunter22"))
	h.seedAccount(t, "p@x.com", "Pat", nil)

	res, err := h.svc.Login(context.Background(), " A@x.com", "hunter22")
	require.NoError(t, err)
	require.Equal(t, withSecret.ID, res.Account.ID)
	require.Equal(t, "token:"+withSecret.ID, res.Token)

	tests := []struct {
		name   string
		email  string
		secret string
	}{
		{name: "unknown email", email: "nobody@x.com", secret: "hunter22"},
		{name: "wrong secret", email: "a@x.com", secret: "hunter23"},
		{name: "passwordless account", email: "p@x.com", secret: "anything"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.svc.Login(context.Background(), tt.email, tt.secret)
			require.ErrorIs(t, err, ErrInvalidCredentials)
			require.Equal(t, ErrInvalidCredentials.Error(), err.Error(), "failures must be indistinguishable")
		})
	}
}

func TestLogin_MissingFields(t *testing.T) {
	h := newHarness(t)

	for _, in := range [][2]string{{"", "x"}, {"a@x.com", ""}, {"", ""}} {
		_, err := h.svc.Login(context.Background(), in[0], in[1])
		var verr *validation.ValidationError
		require.True(t, errors.As(err, &verr), "input %v", in)
	}
}

func TestLogin_UnverifiedAccount(t *testing.T) {
	h := newHarness(t)
	a := h.seedAccount(t, "a@x.com", "Ann", strPtr("hunter22"))
	h.repo.accounts[a.ID].Verified = false

	_, err := h.svc.Login(context.Background(), "a@x.com", "hunter22")
	require.ErrorIs(t, err, ErrNotVerified)
}

// --- Code login ---

func TestScenarioB_CodeLogin(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.RequestLoginCode(ctx, "ghost@x.com")
	require.ErrorIs(t, err, ErrNotFound)

	a := h.seedAccount(t, "a@x.com", "Ann", nil)

	session, err := h.svc.RequestLoginCode(ctx, "a@x.com")
	require.NoError(t, err)
	require.Equal(t, a.ID, session)
	stale := h.mail.last().code
	require.Equal(t, notification.PurposeLogin, h.mail.last().purpose)

	_, err = h.svc.RequestLoginCode(ctx, "a@x.com")
	require.NoError(t, err)
	latest := h.mail.last().code
	if latest == stale {
		t.Skip("two random codes collided")
	}

	_, err = h.svc.VerifyLoginCode(ctx, session, stale)
	require.ErrorIs(t, err, ErrInvalidOrExpired)

	res, err := h.svc.VerifyLoginCode(ctx, session, latest)
	require.NoError(t, err)
	require.Equal(t, "token:"+a.ID, res.Token)

	// single use
	_, err = h.svc.VerifyLoginCode(ctx, session, latest)
	require.ErrorIs(t, err, ErrInvalidOrExpired)

	stored, err := h.repo.FindAccountByID(ctx, a.ID)
	require.NoError(t, err)
	require.Nil(t, stored.Login)
}

func TestVerifyLoginCode_Expired(t *testing.T) {
	h := newHarness(t)
	h.seedAccount(t, "a@x.com", "Ann", nil)

	session, err := h.svc.RequestLoginCode(context.Background(), "a@x.com")
	require.NoError(t, err)
	code := h.mail.last().code

	h.clock.Advance(CodeTTL + time.Second)
	_, err = h.svc.VerifyLoginCode(context.Background(), session, code)
	require.ErrorIs(t, err, ErrInvalidOrExpired)
}

func TestVerifyLoginCode_Errors(t *testing.T) {
	h := newHarness(t)
	a := h.seedAccount(t, "a@x.com", "Ann", nil)

	var verr *validation.ValidationError
	_, err := h.svc.VerifyLoginCode(context.Background(), "", "123456")
	require.True(t, errors.As(err, &verr))
	_, err = h.svc.VerifyLoginCode(context.Background(), a.ID, "")
	require.True(t, errors.As(err, &verr))

	_, err = h.svc.VerifyLoginCode(context.Background(), "0190d5a4-7b1e-7c3a-9d2f-3e4b5a6c7d8e", "123456")
	require.ErrorIs(t, err, ErrNotFound)

	// no code was ever requested
	_, err = h.svc.VerifyLoginCode(context.Background(), a.ID, "123456")
	require.ErrorIs(t, err, ErrInvalidOrExpired)
}

func TestRequestLoginCode_Unverified(t *testing.T) {
	h := newHarness(t)
	a := h.seedAccount(t, "a@x.com", "Ann", nil)
	h.repo.accounts[a.ID].Verified = false

	_, err := h.svc.RequestLoginCode(context.Background(), "a@x.com")
	require.ErrorIs(t, err, ErrNotVerified)
}

func TestVerifyLoginCode_ConcurrentSingleUse(t *testing.T) {
	h := newHarness(t)
	h.seedAccount(t, "a@x.com", "Ann", nil)
	session, err := h.svc.RequestLoginCode(context.Background(), "a@x.com")
	require.NoError(t, err)
	code := h.mail.last().code

	const workers = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := h.svc.VerifyLoginCode(context.Background(), session, code); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, successes)
}

// --- Google login ---

func TestGoogleLogin_CreatesAccount(t *testing.T) {
	h := newHarness(t)
	h.ids["t1"] = &identity.Identity{Subject: "g1", Email: "b@x.com", Name: "Bea"}

	res, err := h.svc.GoogleLogin(context.Background(), "t1")
	require.NoError(t, err)
	require.Equal(t, "b@x.com", res.Account.Email)

	stored, err := h.repo.FindAccountByID(context.Background(), res.Account.ID)
	require.NoError(t, err)
	require.True(t, stored.Verified)
	require.Equal(t, "g1", *stored.GoogleSubject)
	require.Nil(t, stored.SecretHash)
}

func TestGoogleLogin_Idempotent(t *testing.T) {
	h := newHarness(t)
	h.ids["t1"] = &identity.Identity{Subject: "g1", Email: "b@x.com", Name: "Bea"}
	h.ids["t2"] = &identity.Identity{Subject: "g1", Email: "b@x.com", Name: "Bea"}

	first, err := h.svc.GoogleLogin(context.Background(), "t1")
	require.NoError(t, err)
	second, err := h.svc.GoogleLogin(context.Background(), "t2")
	require.NoError(t, err)

	require.Equal(t, first.Account.ID, second.Account.ID)
	require.Equal(t, 1, h.repo.accountCount())
}

func TestScenarioC_GoogleLinksExistingAccount(t *testing.T) {
	h := newHarness(t)
	existing := h.seedAccount(t, "b@x.com", "Bea", nil)
	h.repo.accounts[existing.ID].Verified = false
	h.ids["t1"] = &identity.Identity{Subject: "g1", Email: "b@x.com", Name: "Bea G"}

	res, err := h.svc.GoogleLogin(context.Background(), "t1")
	require.NoError(t, err)
	require.Equal(t, existing.ID, res.Account.ID)
	require.Equal(t, 1, h.repo.accountCount())

	stored, err := h.repo.FindAccountByID(context.Background(), existing.ID)
	require.NoError(t, err)
	require.Equal(t, "g1", *stored.GoogleSubject)
	require.True(t, stored.Verified)
}

func TestGoogleLogin_PrefersSubjectMatch(t *testing.T) {
	h := newHarness(t)
	linked := h.seedAccount(t, "old@x.com", "Bea", nil)
	require.NoError(t, h.repo.LinkGoogleSubject(context.Background(), linked.ID, "g1"))
	h.seedAccount(t, "new@x.com", "Other", nil)
	h.ids["t1"] = &identity.Identity{Subject: "g1", Email: "new@x.com", Name: "Bea"}

	res, err := h.svc.GoogleLogin(context.Background(), "t1")
	require.NoError(t, err)
	require.Equal(t, linked.ID, res.Account.ID)
}

func TestGoogleLogin_EmailMatchWithOtherSubjectKeepsLink(t *testing.T) {
	h := newHarness(t)
	a := h.seedAccount(t, "b@x.com", "Bea", nil)
	require.NoError(t, h.repo.LinkGoogleSubject(context.Background(), a.ID, "g-old"))
	h.ids["t1"] = &identity.Identity{Subject: "g-new", Email: "b@x.com", Name: "Bea"}

	res, err := h.svc.GoogleLogin(context.Background(), "t1")
	require.NoError(t, err)
	require.Equal(t, a.ID, res.Account.ID)

	stored, err := h.repo.FindAccountByID(context.Background(), a.ID)
	require.NoError(t, err)
	require.Equal(t, "g-old", *stored.GoogleSubject, "a linked subject is never replaced")
}

func TestGoogleLogin_InvalidAssertion(t *testing.T) {
	h := newHarness(t)

	for _, token := range []string{"", "   ", "forged"} {
		_, err := h.svc.GoogleLogin(context.Background(), token)
		require.ErrorIs(t, err, ErrInvalidAssertion)
	}
	require.Zero(t, h.repo.accountCount())
}

func TestGoogleLogin_CreateRaceFallsBackToLookup(t *testing.T) {
	h := newHarness(t)
	h.ids["t1"] = &identity.Identity{Subject: "g1", Email: "b@x.com", Name: "Bea"}

	// a concurrent request wins the insert
	winner := &Account{ID: "0190d5a4-0000-7000-8000-000000000001", Email: "b@x.com", Name: "Bea", GoogleSubject: strPtr("g1"), Verified: true}
	repo := &raceRepository{fakeRepository: h.repo, winner: winner}
	svc := NewService(&Config{
		Repo:      repo,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Tokens:    fakeTokens{},
		Identity:  h.ids,
		Deliverer: h.mail,
		Hasher:    plainHasher{},
		Now:       h.clock.Now,
	})

	res, err := svc.GoogleLogin(context.Background(), "t1")
	require.NoError(t, err)
	require.Equal(t, winner.ID, res.Account.ID)
}

// raceRepository inserts winner right before the first CreateAccount call.
type raceRepository struct {
	*fakeRepository
	winner *Account
	once   sync.Once
}

func (r *raceRepository) CreateAccount(ctx context.Context, a *Account) error {
	r.once.Do(func() {
		r.fakeRepository.mu.Lock()
		r.fakeRepository.accounts[r.winner.ID] = cloneAccount(r.winner)
		r.fakeRepository.mu.Unlock()
	})
	return r.fakeRepository.CreateAccount(ctx, a)
}

// --- Account helpers ---

func TestSetSecretThenLogin(t *testing.T) {
	h := newHarness(t)
	h.ids["t1"] = &identity.Identity{Subject: "g1", Email: "b@x.com", Name: "Bea"}
	res, err := h.svc.GoogleLogin(context.Background(), "t1")
	require.NoError(t, err)

	_, err = h.svc.Login(context.Background(), "b@x.com", "s3cret!")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, h.svc.SetSecret(context.Background(), res.Account.ID, "s3cret!"))

	login, err := h.svc.Login(context.Background(), "b@x.com", "s3cret!")
	require.NoError(t, err)
	require.Equal(t, res.Account.ID, login.Account.ID)
}

func TestSetSecret_Validation(t *testing.T) {
	h := newHarness(t)
	a := h.seedAccount(t, "a@x.com", "Ann", nil)

	for _, secret := range []string{
		"",
		"short",
		string(bytes.Repeat([]byte("a"), 73)),
		string(bytes.Repeat([]byte("é"), 40)), // 40 runes, 80 bytes
	} {
		err := h.svc.SetSecret(context.Background(), a.ID, secret)
		var verr *validation.ValidationError
		require.True(t, errors.As(err, &verr), "secret %q", secret)
		require.Contains(t, verr.Fields(), "password")
	}

	require.NoError(t, h.svc.SetSecret(context.Background(), a.ID, string(bytes.Repeat([]byte("a"), 72))))

	err := h.svc.SetSecret(context.Background(), "0190d5a4-7b1e-7c3a-9d2f-3e4b5a6c7d8e", "longenough")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMe(t *testing.T) {
	h := newHarness(t)
	a := h.seedAccount(t, "a@x.com", "Ann", nil)

	view, err := h.svc.Me(context.Background(), a.ID)
	require.NoError(t, err)
	require.Equal(t, &PublicAccount{ID: a.ID, Email: "a@x.com", Name: "Ann"}, view)

	_, err = h.svc.Me(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}
