package sse

import (
	"bytes"
	"encoding/json"
	"fmt"

	"go.bryk.io/mediator/internal/xerrors"
)

// Event is the minimal communication unit between a Stream and its
// subscribers.
// https://developer.mozilla.org/en-US/docs/Web/API/Server-sent_events/Using_server-sent_events#fields
type Event struct {
	id    int
	name  string
	data  interface{}
	retry uint
}

// ID returns the event's unique identifier.
func (e Event) ID() int { return e.id }

// Data returns the event's payload.
func (e Event) Data() interface{} { return e.data }

// Encode the event in the wire format clients expect.
func (e Event) Encode() ([]byte, error) {
	if e.name == "" && e.data == nil {
		return nil, xerrors.New("invalid event")
	}
	buf := bytes.NewBuffer(nil)
	buf.WriteString(fmt.Sprintf("id: %d\n", e.id))
	if e.data != nil {
		js, err := json.Marshal(e.data)
		if err != nil {
			return nil, err
		}
		buf.WriteString(fmt.Sprintf("data: %s\n", js))
	}
	if e.retry != 0 {
		buf.WriteString(fmt.Sprintf("retry: %d\n", e.retry))
	}
	if e.name != "" {
		buf.WriteString("event: " + e.name + "\n")
	}
	buf.WriteString("\n\n")
	return buf.Bytes(), nil
}
