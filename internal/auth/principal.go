package auth

// Principal is the caller identity attached to a request: either Anonymous
// or Authenticated. Use a type switch or AsAuthenticated to branch on it.
type Principal interface {
	isPrincipal()
}

// Anonymous is a caller that presented no credentials.
type Anonymous struct{}

// Authenticated is a caller with a validated token.
type Authenticated struct {
	ID   int64
	Role string
}

func (Anonymous) isPrincipal()     {}
func (Authenticated) isPrincipal() {}

// AsAuthenticated reports whether p is an authenticated principal.
// A nil Principal is treated as anonymous.
func AsAuthenticated(p Principal) (Authenticated, bool) {
	a, ok := p.(Authenticated)
	return a, ok
}

// FromClaims builds the principal described by validated token claims.
func FromClaims(c *Claims) Principal {
	if c == nil {
		return Anonymous{}
	}
	return Authenticated{ID: c.UserID, Role: c.Role}
}
