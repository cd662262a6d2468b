package auth

import (
	"time"
)

// Account is a verified user. Accounts are only ever created already
// verified: signup promotes a PendingAccount after its code is confirmed and
// Google sign-in is verified by the provider.
type Account struct {
	ID    string
	Email string
	Name  string
	// SecretHash is set only for accounts that use the legacy password login.
	SecretHash *string
	// GoogleSubject links the account to a Google identity; set at most once.
	GoogleSubject *string
	Verified      bool
	// Login is the outstanding passwordless login challenge, if any.
	Login     *LoginChallenge
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LoginChallenge is a one-time login code issued to an existing account.
// Only the most recent challenge is kept, and it is cleared when consumed.
type LoginChallenge struct {
	CodeHash  string
	ExpiresAt time.Time
}

// PendingAccount is a signup waiting for its verification code.
type PendingAccount struct {
	ID            string    `db:"id"`
	Email         string    `db:"email"`
	Name          string    `db:"display_name"`
	CodeHash      string    `db:"code_hash"`
	CodeExpiresAt time.Time `db:"code_expires_at"`
	CreatedAt     time.Time `db:"created_at"`
}

// PublicAccount is the account view returned to clients.
type PublicAccount struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Public returns the client-facing view of a.
func (a *Account) Public() PublicAccount {
	return PublicAccount{ID: a.ID, Email: a.Email, Name: a.Name}
}

// AuthResult is what every successful login flow returns.
type AuthResult struct {
	Token   string
	Account PublicAccount
}

// accountRow mirrors the accounts table for scanning.
type accountRow struct {
	ID                 string     `db:"id"`
	Email              string     `db:"email"`
	DisplayName        string     `db:"display_name"`
	SecretHash         *string    `db:"secret_hash"`
	GoogleSubject      *string    `db:"google_subject"`
	Verified           bool       `db:"verified"`
	LoginCodeHash      *string    `db:"login_code_hash"`
	LoginCodeExpiresAt *time.Time `db:"login_code_expires_at"`
	CreatedAt          time.Time  `db:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at"`
}

func (r accountRow) toAccount() *Account {
	a := &Account{
		ID:            r.ID,
		Email:         r.Email,
		Name:          r.DisplayName,
		SecretHash:    r.SecretHash,
		GoogleSubject: r.GoogleSubject,
		Verified:      r.Verified,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if r.LoginCodeHash != nil && r.LoginCodeExpiresAt != nil {
		a.Login = &LoginChallenge{CodeHash: *r.LoginCodeHash, ExpiresAt: *r.LoginCodeExpiresAt}
	}
	return a
}
