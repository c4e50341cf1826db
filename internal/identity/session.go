package identity

import "context"

// Session is the authenticated identity for a request. It is built once by
// the auth middleware and passed explicitly to whatever needs current-user
// data; handlers must not reach for token internals.
type Session struct {
	Email    string
	Username string
	Groups   []string
}

// NewSession constructs a session. Email may be empty for access tokens that
// omit the claim; groups are the Cognito group claims.
func NewSession(email, username string, groups []string) *Session {
	return &Session{
		Email:    email,
		Username: username,
		Groups:   groups,
	}
}

// InGroup reports whether the identity carries the named group claim.
func (s *Session) InGroup(name string) bool {
	if s == nil || name == "" {
		return false
	}
	for _, g := range s.Groups {
		if g == name {
			return true
		}
	}
	return false
}

type contextKey string

const sessionKey contextKey = "identitySession"

// WithSession returns a context carrying the session.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// FromContext retrieves the session placed by the auth middleware.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey).(*Session)
	return s, ok && s != nil
}
