package dispatch

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"go.bryk.io/mediator/internal/cache"
	"go.bryk.io/mediator/internal/fcm"
	"go.bryk.io/mediator/internal/metrics"
	"go.bryk.io/mediator/internal/xerrors"
	"go.bryk.io/mediator/internal/xlog"
)

// directory is the subset of store.Directory the dispatcher needs.
type directory interface {
	Resolve(uid string, ignoreCache bool) (string, error)
	Rebind(uid, newAddress string) error
	RoutingKeys(uid string) ([]string, error)
	Invalidate(uid string)
	FCMDeviceID(uid string) (string, error)
}

// channelCache is the subset of cache.ChannelCache the dispatcher needs.
type channelCache interface {
	Lookup(address string) (*cache.Pair, error)
	Invalidate(address string)
}

// Status is the outcome of a Deliver call, carrying enough information
// for the HTTP facade to pick a response code without knowing dispatch
// internals.
type Status int

const (
	// Delivered means the camped listener acknowledged the message.
	Delivered Status = iota
	// Inactive means no listener and no working fallback accepted it.
	Inactive
	// Unknown means the endpoint uid has no persisted row.
	Unknown
	// FCMUnconfigured means only a push fallback could have worked, but
	// none is configured.
	FCMUnconfigured
)

// String renders the status as the label used on the dispatch outcome
// counter.
func (s Status) String() string {
	switch s {
	case Delivered:
		return "delivered"
	case Unknown:
		return "unknown"
	case FCMUnconfigured:
		return "fcm_unconfigured"
	default:
		return "inactive"
	}
}

// PushDispatcher resolves an endpoint's live transport, publishes a
// request, and waits for its acknowledgement -- the central delivery
// algorithm of the mediator.
type PushDispatcher struct {
	directory directory
	cache     channelCache
	fcm       *fcm.Bridge
	log       xlog.Logger
}

// NewPushDispatcher builds a dispatcher over the given directory and
// channel cache. bridge may be nil, in which case the FCM fallback
// reports FCMUnconfigured for endpoints that have an FCM device id.
func NewPushDispatcher(dir directory, cc channelCache, bridge *fcm.Bridge, log xlog.Logger) *PushDispatcher {
	if log == nil {
		log = xlog.Discard()
	}
	return &PushDispatcher{directory: dir, cache: cc, fcm: bridge, log: log}
}

// Deliver resolves uid, attempts a push, and falls back to FCM when the
// push did not land, mirroring the status codes the HTTP facade exposes.
func (d *PushDispatcher) Deliver(uid string, message json.RawMessage, ttl time.Duration) (Status, error) {
	status, err := d.deliver(uid, message, ttl)
	metrics.DispatchOutcomes.WithLabelValues(status.String()).Inc()
	return status, err
}

func (d *PushDispatcher) deliver(uid string, message json.RawMessage, ttl time.Duration) (Status, error) {
	addr, err := d.directory.Resolve(uid, false)
	if err != nil {
		if xerrors.Is(err, xerrors.ErrEndpointUnknown) {
			return Unknown, nil
		}
		return Inactive, err
	}

	if addr != "" {
		ok, err := d.push(uid, addr, message, ttl)
		if err != nil {
			return Inactive, err
		}
		if ok {
			return Delivered, nil
		}
	}

	return d.fallback(uid, message)
}

func (d *PushDispatcher) fallback(uid string, message json.RawMessage) (Status, error) {
	deviceID, err := d.directory.FCMDeviceID(uid)
	if err != nil {
		return Inactive, err
	}
	if deviceID == "" {
		return Inactive, nil
	}
	if d.fcm == nil {
		return FCMUnconfigured, nil
	}

	ok, err := d.fcm.Send(deviceID, message)
	if err != nil {
		if xerrors.Is(err, xerrors.ErrFCMDisabled) {
			return FCMUnconfigured, nil
		}
		return Inactive, nil
	}
	if !ok {
		return Inactive, nil
	}
	return Delivered, nil
}

// push implements the retry/ACK-correlation algorithm against a single
// resolved address.
func (d *PushDispatcher) push(uid, addr string, message json.RawMessage, ttl time.Duration) (bool, error) {
	expireAt := time.Now().Add(ttl)

	ok, err := d.attempt(addr, message, expireAt)
	if err != nil {
		if xerrors.Is(err, xerrors.ErrBrokerConnection) {
			d.directory.Invalidate(uid)
			d.cache.Invalidate(addr)
		}
		return false, err
	}
	return ok, nil
}

// attempt tries the cached channel pair for addr, rebuilding it once
// (fresh=true) if the first lookup yields no usable pair, then publishes
// and waits for the matching ack.
func (d *PushDispatcher) attempt(addr string, message json.RawMessage, expireAt time.Time) (bool, error) {
	for _, fresh := range []bool{false, true} {
		if fresh {
			d.cache.Invalidate(addr)
		}
		pair, err := d.cache.Lookup(addr)
		if err != nil {
			return false, err
		}
		if pair == nil || pair.Forward == nil || pair.Reverse == nil {
			continue
		}
		return d.publishAndAwaitAck(pair, message, expireAt)
	}
	return false, nil
}

func (d *PushDispatcher) publishAndAwaitAck(pair *cache.Pair, message json.RawMessage, expireAt time.Time) (bool, error) {
	id := uuid.NewString()
	req := PushRequest{
		ID:             id,
		Type:           PushType,
		ReverseChannel: pair.Reverse.Address(),
		ExpireAt:       float64(expireAt.UnixNano()) / 1e9,
		Message:        message,
	}

	delivered, err := pair.Forward.Publish(req)
	if err != nil {
		return false, err
	}
	if delivered == 0 {
		return false, nil
	}

	for time.Now().Before(expireAt) {
		remaining := time.Until(expireAt)
		ok, body, err := pair.Reverse.Read(&remaining)
		if err != nil {
			if xerrors.Is(err, xerrors.ErrReadWriteTimeout) {
				return false, nil
			}
			return false, err
		}
		if !ok {
			return false, nil
		}

		var ack Ack
		if err := json.Unmarshal(body, &ack); err != nil {
			d.log.WithField("error", err.Error()).Warning("malformed ack frame, ignoring")
			continue
		}
		if ack.Type == AckType && ack.ID == id {
			return ack.Status, nil
		}
		d.log.WithField("expected", id).WithField("got", ack.ID).Warning("stale ack id mismatch, continuing to wait")
	}
	return false, nil
}
