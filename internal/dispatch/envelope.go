// Package dispatch implements the push/pull message dispatch engine:
// resolving an endpoint's live transport, correlating a published
// request with its acknowledgement, and exposing the camped-listener
// subscription side that produces requests and emits acks.
package dispatch

import "encoding/json"

// PushType and AckType identify the two envelope kinds exchanged over a
// broker channel pair.
const (
	PushType = "https://didcomm.org/indilynx/1.0/push"
	AckType  = "https://didcomm.org/indilynx/1.0/ack"
)

// PushRequest is published on the forward channel. ExpireAt is an
// absolute unix timestamp, computed once by the publisher and carried
// verbatim so every hop derives the same remaining-time deadline.
type PushRequest struct {
	ID             string          `json:"@id"`
	Type           string          `json:"@type"`
	ReverseChannel string          `json:"reverse_channel"`
	ExpireAt       float64         `json:"expire_at"`
	Message        json.RawMessage `json:"message"`
}

// Ack is published on the reverse channel once a camped listener has
// processed a PushRequest.
type Ack struct {
	ID     string `json:"@id"`
	Type   string `json:"@type"`
	Status bool   `json:"status"`
}
