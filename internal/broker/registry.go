// Package broker implements the pub/sub fabric the dispatch engine rides
// on: named channels multiplexed over AMQP connections, and a registry
// that selects a live broker endpoint out of a configured pool.
package broker

import (
	"math/rand"
	"sync"

	"go.bryk.io/mediator/internal/xerrors"
	"go.bryk.io/mediator/internal/xlog"
)

// Registry holds the pool of configured broker endpoints and selects a
// live one on demand, biasing away from endpoints the caller already
// knows are bad.
type Registry struct {
	log xlog.Logger

	mu        sync.RWMutex
	endpoints []string
}

// NewRegistry builds a registry over the given broker endpoints, each of
// the form "<scheme>://<host>".
func NewRegistry(endpoints []string, log xlog.Logger) *Registry {
	if log == nil {
		log = xlog.Discard()
	}
	cp := make([]string, len(endpoints))
	copy(cp, endpoints)
	return &Registry{log: log, endpoints: cp}
}

// Endpoints returns the configured broker pool.
func (r *Registry) Endpoints() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cp := make([]string, len(r.endpoints))
	copy(cp, r.endpoints)
	return cp
}

// Select returns a live broker endpoint, preferring one not present in
// unwanted. Candidates are shuffled, unwanted endpoints are tried last,
// and each candidate is liveness-probed before being returned.
// ErrNoBrokerReachable is returned if every configured endpoint fails
// its probe.
func (r *Registry) Select(unwanted []string) (string, error) {
	candidates := r.Endpoints()
	if len(candidates) == 0 {
		return "", xerrors.ErrNoBrokerReachable
	}

	bad := make(map[string]bool, len(unwanted))
	for _, u := range unwanted {
		bad[u] = true
	}

	preferred := make([]string, 0, len(candidates))
	deferred := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if bad[c] {
			deferred = append(deferred, c)
		} else {
			preferred = append(preferred, c)
		}
	}
	shuffle(preferred)
	shuffle(deferred)
	ordered := append(preferred, deferred...)

	for _, addr := range ordered {
		if Probe(addr, r.log) {
			return addr, nil
		}
		r.log.WithField("broker", addr).Warning("broker failed liveness probe")
	}
	return "", xerrors.ErrNoBrokerReachable
}

func shuffle(s []string) {
	rand.Shuffle(len(s), func(i, j int) { s[i], s[j] = s[j], s[i] })
}
