package httpapi

import (
	"context"

	"go.bryk.io/mediator/internal/dispatch"
)

// pumpListener drains listener.Next() until the listener is closed, the
// context is cancelled, or a transport error occurs, handing each
// message to deliver. The request is acked with deliver's result: per
// the WebSocket contract, a frame successfully sent to the client IS
// the delivery acknowledgement.
func (f *Facade) pumpListener(ctx context.Context, listener *dispatch.PullListener, deliver func(msg []byte) bool) {
	defer func() { _ = listener.Close() }()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		ok, req, err := listener.Next()
		if err != nil {
			f.log.Errorf("pull listener read failed: %v", err)
			return
		}
		if !ok {
			return
		}

		delivered := deliver(req.Message)
		req.Ack(delivered)
	}
}
