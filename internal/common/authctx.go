package common

import "context"

type ctxKey string

const sessionKey ctxKey = "auth/session"

// Session carries the authenticated caller's identity through a request. It is
// attached explicitly by the auth middleware; handlers never read ambient storage.
type Session struct {
	UserID       int64
	Email        string
	Role         string
	EmployeeCode string
}

// IsAdmin reports whether the session belongs to an admin account.
func (s Session) IsAdmin() bool { return s.Role == "admin" }

// WithSession stores the authenticated session on the provided context.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// SessionFrom extracts the authenticated session from the context if present.
func SessionFrom(ctx context.Context) (Session, bool) {
	v := ctx.Value(sessionKey)
	if v == nil {
		return Session{}, false
	}
	s, ok := v.(Session)
	return s, ok
}
