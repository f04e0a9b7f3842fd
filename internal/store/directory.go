package store

import (
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"go.bryk.io/mediator/internal/xerrors"
	"go.bryk.io/mediator/internal/xlog"
)

// directoryCacheTTL bounds how long a resolved address stays cached;
// once it expires, the next Resolve reads the persistent row again.
const directoryCacheTTL = 5 * time.Minute

// backend is the persistence seam Directory relies on; *SQLStore
// satisfies it, and tests substitute a fake.
type backend interface {
	Endpoint(uid string) (*Endpoint, error)
	Rebind(uid, newAddress string) error
	RoutingKeys(uid string) ([]string, error)
}

// Directory resolves endpoint_uid -> pub_sub_address with a
// memcached-style write-through cache in front of a SQL backend.
type Directory struct {
	sql   backend
	cache *ristretto.Cache[string, string]
	log   xlog.Logger
}

// NewDirectory wraps sql with a bounded address cache.
func NewDirectory(sql backend, log xlog.Logger) (*Directory, error) {
	if log == nil {
		log = xlog.Discard()
	}
	cache, err := ristretto.NewCache(&ristretto.Config[string, string]{
		NumCounters: 1e5,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, xerrors.Wrap(err, "build directory cache")
	}
	return &Directory{sql: sql, cache: cache, log: log}, nil
}

// Resolve returns the endpoint's pub_sub_address. A cache hit is
// returned as-is unless ignoreCache is set, in which case the cache
// entry is dropped first and the persistent row is read fresh. A
// present-but-empty address (no listener ever bound) resolves to "".
func (d *Directory) Resolve(uid string, ignoreCache bool) (string, error) {
	if ignoreCache {
		d.cache.Del(uid)
	} else if addr, ok := d.cache.Get(uid); ok {
		return addr, nil
	}

	e, err := d.sql.Endpoint(uid)
	if err != nil {
		return "", err
	}
	if e.PubSubAddress == "" {
		return "", nil
	}
	d.cache.SetWithTTL(uid, e.PubSubAddress, 1, directoryCacheTTL)
	d.cache.Wait()
	return e.PubSubAddress, nil
}

// Rebind persists newAddress for uid and invalidates the cache entry.
func (d *Directory) Rebind(uid, newAddress string) error {
	if err := d.sql.Rebind(uid, newAddress); err != nil {
		return err
	}
	d.cache.Del(uid)
	d.log.WithField("endpoint", uid).Info("endpoint rebound")
	return nil
}

// RoutingKeys proxies to the persistent store; routing keys are rarely
// read relative to address resolution and are not cached.
func (d *Directory) RoutingKeys(uid string) ([]string, error) {
	return d.sql.RoutingKeys(uid)
}

// FCMDeviceID returns the endpoint's configured push-fallback device
// identifier, or "" if none is set.
func (d *Directory) FCMDeviceID(uid string) (string, error) {
	e, err := d.sql.Endpoint(uid)
	if err != nil {
		return "", err
	}
	return e.FCMDeviceID, nil
}

// Verkey returns the endpoint's recipient verkey, used to address the
// innermost hop of a forward envelope.
func (d *Directory) Verkey(uid string) (string, error) {
	e, err := d.sql.Endpoint(uid)
	if err != nil {
		return "", err
	}
	return e.Verkey, nil
}

// Invalidate drops any cached address for uid without touching the
// persisted row, used after an observed broker-connection error.
func (d *Directory) Invalidate(uid string) {
	d.cache.Del(uid)
}
