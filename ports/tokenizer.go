package ports

import "github.com/snipvault/snipvault/core"

// Tokenizer converts between session records and wire tokens. A parsed token
// only identifies a session; the store record decides whether it is still
// valid.
type Tokenizer interface {
	SessionToToken(session *core.Session) (string, error)
	TokenToSession(token string) (*core.Session, error)
}
