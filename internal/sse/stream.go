// Package sse is a trimmed, adapted copy of go.bryk.io/pkg/net/sse: a
// server-sent-events broadcast stream used by the long-polling endpoint
// to relay inbound requests to a subscribed client.
package sse

import (
	"context"
	"sync"
	"time"

	"go.bryk.io/mediator/internal/xlog"
)

// Stream provides a one-directional pub/sub mechanism broadcasting
// events from a sender to one or more subscribers.
type Stream struct {
	id      string
	counter int
	clients map[string]*Subscription
	timeout time.Duration
	retry   uint
	log     xlog.Logger
	done    bool
	wg      *sync.WaitGroup
	mu      sync.Mutex
}

// NewStream returns a new stream operator identified by name.
func NewStream(name string, opts ...StreamOption) (*Stream, error) {
	st := &Stream{
		id:      name,
		timeout: 2 * time.Second,
		retry:   2000,
		clients: make(map[string]*Subscription),
		log:     xlog.Discard(),
		wg:      new(sync.WaitGroup),
	}
	for _, opt := range opts {
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	return st, nil
}

// SendMessage broadcasts payload, with no event name, to the stream's
// subscribers.
func (st *Stream) SendMessage(payload interface{}) {
	st.push(Event{data: payload, retry: st.retry})
}

// Close the stream and release its subscribers. Once closed, further
// sends are no-ops.
func (st *Stream) Close() {
	st.log.WithField("sse.stream.id", st.id).Info("closing stream")
	st.mu.Lock()
	st.done = true
	st.mu.Unlock()
	st.wg.Wait()
	for id := range st.clients {
		st.Unsubscribe(id)
	}
}

// Subscribe registers a new client for the stream. id MUST be unique; an
// existing subscription for id is returned as-is.
func (st *Stream) Subscribe(ctx context.Context, id string) *Subscription {
	st.mu.Lock()
	defer st.mu.Unlock()

	if cl, ok := st.clients[id]; ok {
		return cl
	}

	ctx, halt := context.WithCancel(ctx)
	sub := &Subscription{id: id, sink: make(chan Event), ctx: ctx, halt: halt, wg: new(sync.WaitGroup)}
	st.clients[id] = sub
	st.log.WithFields(xlog.Fields{"sse.stream.id": st.id, "sse.client": id}).Info("adding subscriber")

	go func(sb *Subscription) {
		<-sb.ctx.Done()
		st.Unsubscribe(sb.id)
	}(sub)
	return sub
}

// Unsubscribe terminates and removes the client identified by id.
func (st *Stream) Unsubscribe(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	sub, ok := st.clients[id]
	if !ok {
		return false
	}
	st.log.WithFields(xlog.Fields{"sse.stream.id": st.id, "sse.client": sub.id}).Info("removing subscriber")
	sub.close()
	delete(st.clients, sub.id)
	return true
}

func (st *Stream) push(ev Event) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.done {
		return
	}
	st.counter++
	ev.id = st.counter

	for _, cl := range st.clients {
		st.wg.Add(1)
		cl.wg.Add(1)
		go func(cl *Subscription, ev Event) {
			defer cl.wg.Done()
			defer st.wg.Done()
			select {
			case <-cl.Done():
			case cl.sink <- ev:
			case <-time.After(st.timeout):
				st.log.WithFields(xlog.Fields{"sse.stream.id": st.id, "sse.client": cl.id}).Warning("push operation timeout")
			}
		}(cl, ev)
	}
}
