package store

import (
	"sync"
	"testing"

	tdd "github.com/stretchr/testify/assert"

	"go.bryk.io/mediator/internal/xerrors"
	"go.bryk.io/mediator/internal/xlog"
)

// fakeBackend is an in-memory stand-in for SQLStore.
type fakeBackend struct {
	mu    sync.Mutex
	rows  map[string]*Endpoint
	reads int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{rows: map[string]*Endpoint{}}
}

func (f *fakeBackend) Endpoint(uid string) (*Endpoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	e, ok := f.rows[uid]
	if !ok {
		return nil, xerrors.ErrEndpointUnknown
	}
	cp := *e
	return &cp, nil
}

func (f *fakeBackend) Rebind(uid, newAddress string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.rows[uid]
	if !ok {
		return xerrors.ErrEndpointUnknown
	}
	e.PubSubAddress = newAddress
	return nil
}

func (f *fakeBackend) RoutingKeys(uid string) ([]string, error) {
	return nil, nil
}

func TestDirectoryResolveCaching(t *testing.T) {
	assert := tdd.New(t)
	fb := newFakeBackend()
	fb.rows["E1"] = &Endpoint{UID: "E1", PubSubAddress: "amqp://broker1/e1"}

	dir, err := NewDirectory(fb, xlog.Discard())
	assert.Nil(err)

	addr, err := dir.Resolve("E1", false)
	assert.Nil(err)
	assert.Equal("amqp://broker1/e1", addr)
	assert.Equal(1, fb.reads, "first resolve reads through")

	addr, err = dir.Resolve("E1", false)
	assert.Nil(err)
	assert.Equal("amqp://broker1/e1", addr)
	assert.Equal(1, fb.reads, "second resolve is served from cache")
}

func TestDirectoryResolveIgnoreCache(t *testing.T) {
	assert := tdd.New(t)
	fb := newFakeBackend()
	fb.rows["E1"] = &Endpoint{UID: "E1", PubSubAddress: "amqp://broker1/e1"}

	dir, err := NewDirectory(fb, xlog.Discard())
	assert.Nil(err)

	_, err = dir.Resolve("E1", false)
	assert.Nil(err)
	assert.Equal(1, fb.reads)

	_, err = dir.Resolve("E1", true)
	assert.Nil(err)
	assert.Equal(2, fb.reads, "ignore_cache forces a fresh read")
}

func TestDirectoryResolveUnknown(t *testing.T) {
	assert := tdd.New(t)
	fb := newFakeBackend()
	dir, err := NewDirectory(fb, xlog.Discard())
	assert.Nil(err)

	_, err = dir.Resolve("missing", false)
	assert.True(xerrors.Is(err, xerrors.ErrEndpointUnknown))
}

func TestDirectoryRebindInvalidatesCache(t *testing.T) {
	assert := tdd.New(t)
	fb := newFakeBackend()
	fb.rows["E1"] = &Endpoint{UID: "E1", PubSubAddress: "amqp://broker1/e1"}

	dir, err := NewDirectory(fb, xlog.Discard())
	assert.Nil(err)

	_, err = dir.Resolve("E1", false)
	assert.Nil(err)

	assert.Nil(dir.Rebind("E1", "amqp://broker2/e1"))

	addr, err := dir.Resolve("E1", false)
	assert.Nil(err)
	assert.Equal("amqp://broker2/e1", addr, "resolve after rebind observes the new address")
	assert.Equal(2, fb.reads, "rebind invalidation forces a fresh read")
}
