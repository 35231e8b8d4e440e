// Package auth verifies the bearer tokens issued by the identity provider.
// Issuing identities (sign-up, passwords) happens elsewhere; this service only
// consumes them.
package auth

// Identity is the authenticated caller.
type Identity struct {
	PersonID string
	Admin    bool
}

// Verifier turns a bearer token into an Identity.
type Verifier interface {
	Verify(token string) (Identity, error)
}
