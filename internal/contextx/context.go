package contextx

import "context"

// Key is a private type to avoid collisions in request context keys.
type Key string

// AccountIDKey holds the authenticated account's id (string).
const AccountIDKey Key = "accountID"

// WithAccountID returns a copy of ctx carrying the authenticated account id.
func WithAccountID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, AccountIDKey, id)
}

// AccountID returns the authenticated account id, if the request carries one.
func AccountID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(AccountIDKey).(string)
	return id, ok && id != ""
}
