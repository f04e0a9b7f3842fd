package sse

import (
	"context"
	"sync"
)

// Subscription receives events published by its originating Stream.
type Subscription struct {
	id   string
	ctx  context.Context
	halt context.CancelFunc
	sink chan Event
	wg   *sync.WaitGroup
}

// ID returns the subscriber's unique identifier.
func (sb *Subscription) ID() string {
	return sb.id
}

// Receive the stream's published events.
func (sb *Subscription) Receive() <-chan Event {
	return sb.sink
}

// Done returns a channel closed when the subscription is terminated.
func (sb *Subscription) Done() <-chan struct{} {
	return sb.ctx.Done()
}

func (sb *Subscription) close() {
	sb.halt()
	sb.wg.Wait()
	close(sb.sink)
}
