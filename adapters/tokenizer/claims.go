package tokenizer

import "github.com/golang-jwt/jwt/v5"

// SessionClaims carries the session identity inside the wire token. The jti
// is the session id; everything time-related in the token is advisory, the
// store record decides.
type SessionClaims struct {
	jwt.RegisteredClaims
}
