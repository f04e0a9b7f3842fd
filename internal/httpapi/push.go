package httpapi

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"

	"go.bryk.io/mediator/internal/broker"
	"go.bryk.io/mediator/internal/didkey"
	"go.bryk.io/mediator/internal/dispatch"
	"go.bryk.io/mediator/internal/metrics"
	"go.bryk.io/mediator/internal/xerrors"
)

// handlePush serves "POST /{endpoints-prefix}/{uid}": it validates the
// content type, wraps the envelope through the configured Forwarder, and
// hands it to the dispatcher. On a broker-connection error it performs
// the local recovery pass (rotate to a fresh broker, rebind the
// endpoint) before reporting 410, so the next POST lands on the new
// address.
func (f *Facade) handlePush(w http.ResponseWriter, r *http.Request) {
	uid := r.PathValue("uid")

	ct, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || !acceptedContentTypes[ct] {
		http.Error(w, xerrors.ErrUnsupportedContentType.Error(), http.StatusUnsupportedMediaType)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "failed reading request body", http.StatusBadRequest)
		return
	}

	keys, err := f.directory.RoutingKeys(uid)
	if err != nil {
		f.replyStoreError(w, uid, err)
		return
	}
	verkey, err := f.directory.Verkey(uid)
	if err != nil {
		f.replyStoreError(w, uid, err)
		return
	}
	if len(keys) > 0 && !didkey.Verkey(verkey).Valid() {
		f.log.WithField("endpoint", uid).Error("endpoint has routing keys but a malformed verkey")
		http.Error(w, "endpoint misconfigured: invalid verkey", http.StatusInternalServerError)
		return
	}

	wrapped, err := f.forwarder.Wrap(body, verkey, keys)
	if err != nil {
		f.log.WithField("endpoint", uid).Errorf("forward wrap failed: %v", err)
		http.Error(w, "failed wrapping envelope", http.StatusInternalServerError)
		return
	}

	status, err := f.dispatcher.Deliver(uid, json.RawMessage(wrapped), f.cfg.DeliveryTTL)
	if err != nil {
		if xerrors.Is(err, xerrors.ErrBrokerConnection) {
			f.rotate(uid)
			w.WriteHeader(http.StatusGone)
			return
		}
		f.log.WithField("endpoint", uid).Errorf("delivery failed: %v", err)
		http.Error(w, "delivery failed", http.StatusInternalServerError)
		return
	}

	switch status {
	case dispatch.Delivered:
		w.WriteHeader(http.StatusAccepted)
	case dispatch.Unknown:
		w.WriteHeader(http.StatusNotFound)
	case dispatch.FCMUnconfigured:
		w.WriteHeader(http.StatusMisdirectedRequest)
	default: // dispatch.Inactive
		w.WriteHeader(http.StatusGone)
	}
}

// rotate performs the broker-failover recovery pass: select a live
// broker, trying the endpoint's current one last, and rebind the
// endpoint to the same channel name on the selected broker.
func (f *Facade) rotate(uid string) {
	current, err := f.directory.Resolve(uid, true)
	if err != nil || current == "" {
		return
	}
	addr, err := broker.ParseAddress(current)
	if err != nil {
		return
	}
	newBroker, err := f.registry.Select([]string{addr.Broker})
	if err != nil {
		f.log.WithField("endpoint", uid).Warning("broker rotation failed: no broker reachable")
		return
	}
	newAddr := broker.Join(newBroker, addr.Channel)
	if err := f.directory.Rebind(uid, newAddr); err != nil {
		f.log.WithField("endpoint", uid).Errorf("failed rebinding endpoint: %v", err)
		return
	}
	metrics.BrokerRotations.Inc()
}

func (f *Facade) replyStoreError(w http.ResponseWriter, uid string, err error) {
	if xerrors.Is(err, xerrors.ErrEndpointUnknown) {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	f.log.WithField("endpoint", uid).Errorf("store lookup failed: %v", err)
	http.Error(w, "store lookup failed", http.StatusInternalServerError)
}
