package broker

import (
	"encoding/json"
	"sync"
	"time"

	driver "github.com/rabbitmq/amqp091-go"
	"go.bryk.io/mediator/internal/metrics"
	"go.bryk.io/mediator/internal/xerrors"
	"go.bryk.io/mediator/internal/xlog"
)

// connState tracks a Channel's position in the
// DISCONNECTED -> CONNECTED -> SUBSCRIBED state machine described for
// BrokerChannel.
type connState int

const (
	stateDisconnected connState = iota
	stateConnected
	stateSubscribed
)

// frame is the in-band envelope used for every message placed on a
// channel's underlying queue, allowing a graceful close to be signaled
// alongside regular data without a side-channel.
type frame struct {
	Kind string          `json:"kind"`
	Body json.RawMessage `json:"body,omitempty"`
}

// sessions pools one AMQP session per broker endpoint so that multiple
// Channel instances on the same broker reuse a single connection.
var (
	sessionsMu sync.Mutex
	sessions   = map[string]*session{}
)

func sessionFor(brokerAddr string, log xlog.Logger) *session {
	sessionsMu.Lock()
	defer sessionsMu.Unlock()
	s, ok := sessions[brokerAddr]
	if !ok {
		s = newSession(brokerAddr, log)
		sessions[brokerAddr] = s
	}
	return s
}

// Channel encapsulates a single named pub/sub topic on one broker. It
// provides publish, subscribe, read-with-deadline, close, and a static
// liveness probe. At most one live subscription per (broker, channel)
// is maintained by a single Channel instance; callers must not run two
// concurrent reads on the same instance.
type Channel struct {
	addr Address
	log  xlog.Logger
	sess *session

	mu          sync.Mutex
	state       connState
	consumerTag string
	deliveries  <-chan driver.Delivery
}

// NewChannel returns a channel bound to the given broker pub/sub
// address. The underlying connection is established lazily on first
// publish or read.
func NewChannel(addr string, log xlog.Logger) (*Channel, error) {
	if log == nil {
		log = xlog.Discard()
	}
	a, err := ParseAddress(addr)
	if err != nil {
		return nil, err
	}
	return &Channel{
		addr: a,
		log:  log.WithField("channel", a.Channel),
		sess: sessionFor(a.Broker, log),
	}, nil
}

// Address returns the channel's full pub/sub address.
func (c *Channel) Address() string {
	return c.addr.Full
}

// ensureQueue declares the channel's backing queue. Declarations are
// idempotent so this is safe to call on every publish/subscribe.
func (c *Channel) ensureQueue(ch *driver.Channel) error {
	_, err := ch.QueueDeclare(c.addr.Channel, false, false, false, false, nil)
	if err != nil {
		return xerrors.Wrap(xerrors.ErrBrokerConnection, err.Error())
	}
	return nil
}

// Publish sends payload as a "data" frame and returns the number of
// active consumers the broker reports for the channel's queue -- the
// delivered_count used to detect whether a camped listener exists.
func (c *Channel) Publish(payload any) (int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}
	delivered, err := c.publishFrame(frame{Kind: "data", Body: body})
	metrics.BrokerPublishes.WithLabelValues(publishResult(err)).Inc()
	return delivered, err
}

func publishResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case xerrors.Is(err, xerrors.ErrBrokerConnection):
		return "broker_error"
	default:
		return "error"
	}
}

// Close publishes the in-band close sentinel, allowing a concurrent
// reader to unwind cleanly.
func (c *Channel) Close() error {
	_, err := c.publishFrame(frame{Kind: "close"})
	return err
}

func (c *Channel) publishFrame(f frame) (int, error) {
	ch, err := c.sess.getChannel()
	if err != nil {
		c.markDisconnected()
		return 0, err
	}
	if err := c.ensureQueue(ch); err != nil {
		c.markDisconnected()
		return 0, err
	}
	body, err := json.Marshal(f)
	if err != nil {
		return 0, err
	}
	err = ch.Publish("", c.addr.Channel, false, false, driver.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
	if err != nil {
		c.markDisconnected()
		return 0, xerrors.Wrap(xerrors.ErrBrokerConnection, err.Error())
	}

	c.mu.Lock()
	if c.state == stateDisconnected {
		c.state = stateConnected
	}
	c.mu.Unlock()

	q, err := ch.QueueInspect(c.addr.Channel)
	if err != nil {
		c.markDisconnected()
		return 0, xerrors.Wrap(xerrors.ErrBrokerConnection, err.Error())
	}
	c.log.WithField("consumers", q.Consumers).Debug("published frame")
	return q.Consumers, nil
}

// Read waits for the next inbound frame, up to deadline when non-nil
// (a nil deadline blocks indefinitely, used by PullListener). It returns
// (true, body) for a data frame, (false, nil) when the channel was
// closed cooperatively, ErrReadWriteTimeout when the deadline elapses,
// and ErrBrokerConnection -- after self-terminating -- on transport
// failure.
func (c *Channel) Read(deadline *time.Duration) (bool, json.RawMessage, error) {
	ok, body, err := c.read(deadline)
	metrics.BrokerReads.WithLabelValues(readResult(ok, err)).Inc()
	return ok, body, err
}

func readResult(ok bool, err error) string {
	switch {
	case err == nil && ok:
		return "ok"
	case err == nil:
		return "closed"
	case xerrors.Is(err, xerrors.ErrReadWriteTimeout):
		return "timeout"
	case xerrors.Is(err, xerrors.ErrBrokerConnection):
		return "broker_error"
	default:
		return "error"
	}
}

func (c *Channel) read(deadline *time.Duration) (bool, json.RawMessage, error) {
	deliveries, err := c.subscribe()
	if err != nil {
		return false, nil, err
	}

	var timeout <-chan time.Time
	if deadline != nil {
		d := *deadline
		if d < 0 {
			d = 0
		}
		timer := time.NewTimer(d)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case msg, ok := <-deliveries:
		if !ok {
			c.markDisconnected()
			return false, nil, xerrors.Wrap(xerrors.ErrBrokerConnection, "delivery channel closed")
		}
		var f frame
		if err := json.Unmarshal(msg.Body, &f); err != nil {
			return false, nil, err
		}
		switch f.Kind {
		case "close":
			c.teardown()
			return false, nil, nil
		default:
			return true, f.Body, nil
		}
	case <-timeout:
		return false, nil, xerrors.ErrReadWriteTimeout
	}
}

// subscribe lazily starts consuming the channel's queue.
func (c *Channel) subscribe() (<-chan driver.Delivery, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == stateSubscribed && c.deliveries != nil {
		return c.deliveries, nil
	}

	ch, err := c.sess.getChannel()
	if err != nil {
		c.state = stateDisconnected
		return nil, err
	}
	if err := c.ensureQueue(ch); err != nil {
		c.state = stateDisconnected
		return nil, err
	}
	tag := "mediator-" + c.addr.Channel
	deliveries, err := ch.Consume(c.addr.Channel, tag, true, false, false, false, nil)
	if err != nil {
		c.state = stateDisconnected
		return nil, xerrors.Wrap(xerrors.ErrBrokerConnection, err.Error())
	}
	c.consumerTag = tag
	c.deliveries = deliveries
	c.state = stateSubscribed
	return deliveries, nil
}

func (c *Channel) markDisconnected() {
	c.mu.Lock()
	c.state = stateDisconnected
	c.deliveries = nil
	c.mu.Unlock()
}

// teardown releases the subscription following a cooperative close.
func (c *Channel) teardown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == stateSubscribed {
		if ch, err := c.sess.getChannel(); err == nil && c.consumerTag != "" {
			_ = ch.Cancel(c.consumerTag, false)
		}
	}
	c.state = stateDisconnected
	c.deliveries = nil
	c.consumerTag = ""
}

// Probe connects to the broker endpoint embedded in address and checks
// liveness within a 3s timeout. Any failure yields false.
func Probe(brokerAddr string, log xlog.Logger) bool {
	s := newSession(brokerAddr, log)
	defer s.close()
	done := make(chan bool, 1)
	go func() {
		done <- s.ensure() == nil
	}()
	select {
	case ok := <-done:
		return ok
	case <-time.After(connectTimeout):
		return false
	}
}
