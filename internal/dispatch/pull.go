package dispatch

import (
	"encoding/json"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"go.bryk.io/mediator/internal/broker"
	"go.bryk.io/mediator/internal/xerrors"
	"go.bryk.io/mediator/internal/xlog"
)

// ackCacheTTL and ackCacheMaxEntries bound the small reverse-channel
// cache a listener keeps to avoid reconnecting for every ack.
const (
	ackCacheTTL        = 5 * time.Minute
	ackCacheMaxEntries = 5
)

// Request is one inbound PushRequest handed to a camped listener, with a
// bound Ack operation back to the publisher.
type Request struct {
	ID      string
	Message json.RawMessage

	reverseChannel string
	listener       *PullListener
}

// Ack publishes the acknowledgement for this request on its reverse
// channel. It returns false, evicting the reverse-channel cache entry,
// if the ack publish itself fails.
func (r *Request) Ack(status bool) bool {
	return r.listener.ack(r.reverseChannel, r.ID, status)
}

// PullListener subscribes to one endpoint's pub/sub address and yields
// the inbound PushRequests addressed to it. It is not restartable after
// Close.
type PullListener struct {
	ch       *broker.Channel
	log      xlog.Logger
	ackCache *ristretto.Cache[string, *broker.Channel]
}

// NewPullListener subscribes to address.
func NewPullListener(address string, log xlog.Logger) (*PullListener, error) {
	if log == nil {
		log = xlog.Discard()
	}
	ch, err := broker.NewChannel(address, log)
	if err != nil {
		return nil, err
	}
	ackCache, err := ristretto.NewCache(&ristretto.Config[string, *broker.Channel]{
		NumCounters: ackCacheMaxEntries * 10,
		MaxCost:     ackCacheMaxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, xerrors.Wrap(err, "build ack channel cache")
	}
	return &PullListener{ch: ch, log: log, ackCache: ackCache}, nil
}

// Next blocks until the next PushRequest envelope arrives, the listener
// is closed (ok=false, err=nil), or a transport error occurs.
func (l *PullListener) Next() (bool, *Request, error) {
	for {
		ok, body, err := l.ch.Read(nil)
		if err != nil {
			return false, nil, err
		}
		if !ok {
			return false, nil, nil
		}

		var req PushRequest
		if err := json.Unmarshal(body, &req); err != nil {
			l.log.WithField("error", err.Error()).Warning("malformed push request frame, skipping")
			continue
		}
		if req.Type != PushType {
			continue
		}
		return true, &Request{
			ID:             req.ID,
			Message:        req.Message,
			reverseChannel: req.ReverseChannel,
			listener:       l,
		}, nil
	}
}

// Close publishes the in-band close sentinel so a concurrent Next call
// unwinds cleanly.
func (l *PullListener) Close() error {
	return l.ch.Close()
}

func (l *PullListener) ack(reverseAddr, id string, status bool) bool {
	ch, err := l.reverseChannelFor(reverseAddr)
	if err != nil {
		return false
	}
	_, err = ch.Publish(Ack{ID: id, Type: AckType, Status: status})
	if err != nil {
		l.ackCache.Del(reverseAddr)
		return false
	}
	return true
}

func (l *PullListener) reverseChannelFor(addr string) (*broker.Channel, error) {
	if ch, ok := l.ackCache.Get(addr); ok {
		return ch, nil
	}
	ch, err := broker.NewChannel(addr, l.log)
	if err != nil {
		return nil, err
	}
	l.ackCache.SetWithTTL(addr, ch, 1, ackCacheTTL)
	l.ackCache.Wait()
	return ch, nil
}
