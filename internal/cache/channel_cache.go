// Package cache holds the short-TTL, bounded cache of forward/reverse
// broker channel pairs the dispatcher reuses across pushes to the same
// pub/sub address.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"go.bryk.io/mediator/internal/broker"
	"go.bryk.io/mediator/internal/xerrors"
	"go.bryk.io/mediator/internal/xlog"
)

// defaultTTL and defaultMaxEntries match the documented defaults for
// the channel-pair cache.
const (
	defaultTTL        = 60 * time.Second
	defaultMaxEntries = 1000
)

// Pair bundles the forward channel a publisher writes to and the
// reverse channel it reads an ACK from. In the default profile the two
// are the same channel instance.
type Pair struct {
	Forward *broker.Channel
	Reverse *broker.Channel
}

// Options configure a ChannelCache.
type Options struct {
	TTL        time.Duration
	MaxEntries int64
	// SeparateReverseChannel disables the default "reverse == forward"
	// profile, selecting a fresh broker for the reverse channel instead.
	SeparateReverseChannel bool
	Log                    xlog.Logger
}

// ChannelCache maps a pub/sub address to a lazily constructed Pair,
// bounded in size and entry lifetime.
type ChannelCache struct {
	registry             *broker.Registry
	cache                *ristretto.Cache[string, *Pair]
	ttl                  time.Duration
	reverseEqualsForward bool
	log                  xlog.Logger
}

// New builds a ChannelCache. registry is only consulted when the
// reverse-equals-forward profile is disabled, to select a broker for
// the standalone reverse channel.
func New(registry *broker.Registry, opts Options) (*ChannelCache, error) {
	if opts.Log == nil {
		opts.Log = xlog.Discard()
	}
	if opts.TTL == 0 {
		opts.TTL = defaultTTL
	}
	maxEntries := opts.MaxEntries
	if maxEntries == 0 {
		maxEntries = defaultMaxEntries
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, *Pair]{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
		OnEvict: func(item *ristretto.Item[*Pair]) {
			if item.Value != nil {
				teardown(item.Value)
			}
		},
	})
	if err != nil {
		return nil, xerrors.Wrap(err, "build channel cache")
	}
	return &ChannelCache{
		registry:             registry,
		cache:                c,
		ttl:                  opts.TTL,
		reverseEqualsForward: !opts.SeparateReverseChannel,
		log:                  opts.Log,
	}, nil
}

// Lookup returns the cached Pair for address, building one on miss.
func (c *ChannelCache) Lookup(address string) (*Pair, error) {
	if p, ok := c.cache.Get(address); ok {
		return p, nil
	}
	p, err := c.build(address)
	if err != nil {
		return nil, err
	}
	c.cache.SetWithTTL(address, p, 1, c.ttl)
	c.cache.Wait()
	return p, nil
}

func (c *ChannelCache) build(address string) (*Pair, error) {
	forward, err := broker.NewChannel(address, c.log)
	if err != nil {
		return nil, err
	}
	if c.reverseEqualsForward {
		return &Pair{Forward: forward, Reverse: forward}, nil
	}

	brokerAddr, err := c.registry.Select(nil)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256([]byte(address))
	reverseAddr := broker.Join(brokerAddr, hex.EncodeToString(sum[:]))
	reverse, err := broker.NewChannel(reverseAddr, c.log)
	if err != nil {
		return nil, err
	}
	return &Pair{Forward: forward, Reverse: reverse}, nil
}

// Invalidate drops the cache entry for address, e.g. after an observed
// broker-connection error, without waiting for TTL expiry.
func (c *ChannelCache) Invalidate(address string) {
	c.cache.Del(address)
}

func teardown(p *Pair) {
	_ = p.Forward.Close()
	if p.Reverse != p.Forward {
		_ = p.Reverse.Close()
	}
}
