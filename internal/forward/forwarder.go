// Package forward builds the DIDComm forward envelope used to relay a
// message through an endpoint's routing keys before it reaches the
// dispatch engine's publish step.
package forward

import "encoding/json"

// ForwardType identifies a forward envelope, matching the namespace
// used for PushRequest/Ack.
const ForwardType = "https://didcomm.org/indilynx/1.0/forward"

// envelope is the default, crypto-free forward wrapper. Real deployments
// replace WrapFunc with the actual pack/unpack primitive; this shape only
// fixes the contract the core calls into.
type envelope struct {
	Type string          `json:"@type"`
	To   string          `json:"to"`
	Msg  json.RawMessage `json:"msg"`
}

// WrapFunc is the external crypto contract: produce the bytes to publish
// given the plaintext payload, the innermost recipient verkey, and the
// ordered routing keys. The core uses its output verbatim.
type WrapFunc func(payload []byte, to string, routingKeys []string) ([]byte, error)

// DefaultWrap is a pass-through stand-in for the real crypto pack
// primitive: it nests payload in an unencrypted forward envelope. It
// exists so the dispatch pipeline is exercisable without a crypto
// dependency wired in; production deployments must supply their own
// WrapFunc via New.
func DefaultWrap(payload []byte, to string, _ []string) ([]byte, error) {
	return json.Marshal(envelope{Type: ForwardType, To: to, Msg: payload})
}

// Forwarder optionally wraps an outbound payload into a forward envelope
// when the destination endpoint has routing keys configured.
type Forwarder struct {
	wrap WrapFunc
}

// New returns a Forwarder using wrap as its crypto contract. A nil wrap
// defaults to DefaultWrap.
func New(wrap WrapFunc) *Forwarder {
	if wrap == nil {
		wrap = DefaultWrap
	}
	return &Forwarder{wrap: wrap}
}

// Wrap returns payload wrapped for delivery through routingKeys keyed to
// verkey, or payload unchanged when routingKeys is empty -- the identity
// property the core relies on for endpoints with no routing keys.
func (f *Forwarder) Wrap(payload []byte, verkey string, routingKeys []string) ([]byte, error) {
	if len(routingKeys) == 0 {
		return payload, nil
	}
	return f.wrap(payload, verkey, routingKeys)
}
