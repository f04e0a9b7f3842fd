// Package didkey provides a trimmed verification-key type for endpoint
// verkeys: enough to validate and compare multibase/base58 encoded ed25519
// public keys without carrying the full DID document and resolver stack.
package didkey

import (
	"github.com/mr-tron/base58"

	"go.bryk.io/mediator/internal/xerrors"
)

// ed25519PubKeySize is the byte length of a raw ed25519 public key.
const ed25519PubKeySize = 32

// Verkey is an endpoint's recipient key, stored either multibase-encoded
// (leading "z", per https://datatracker.ietf.org/doc/html/draft-multiformats-multibase-03)
// or as plain base58, matching how the upstream DID document model
// represents ed25519 verification keys.
type Verkey string

// Bytes decodes the verkey to its raw public key material.
func (v Verkey) Bytes() ([]byte, error) {
	s := string(v)
	if len(s) > 0 && s[0] == 'z' {
		s = s[1:]
	}
	b, err := base58.Decode(s)
	if err != nil {
		return nil, xerrors.Wrap(err, "decode verkey")
	}
	return b, nil
}

// Valid reports whether the verkey decodes to a well-formed ed25519
// public key.
func (v Verkey) Valid() bool {
	b, err := v.Bytes()
	return err == nil && len(b) == ed25519PubKeySize
}

// String returns the verkey's textual representation.
func (v Verkey) String() string {
	return string(v)
}
