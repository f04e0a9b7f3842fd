package broker

import (
	"sync"
	"time"

	driver "github.com/rabbitmq/amqp091-go"
	"go.bryk.io/mediator/internal/xerrors"
	"go.bryk.io/mediator/internal/xlog"
)

// connectTimeout bounds how long a session waits to establish a new
// broker connection before giving up.
const connectTimeout = 3 * time.Second

// session owns a single AMQP connection and channel to one broker
// endpoint. It lazily connects on first use and tears itself down on any
// transport error, mirroring the DISCONNECTED -> CONNECTED state machine
// described for BrokerChannel: a session with no live connection is
// DISCONNECTED, one with a connection and channel but no consumer is
// CONNECTED (publish-only).
type session struct {
	addr string
	log  xlog.Logger

	mu      sync.RWMutex
	conn    *driver.Connection
	channel *driver.Channel

	notifyConnClose chan *driver.Error
	notifyChanClose chan *driver.Error
}

func newSession(addr string, log xlog.Logger) *session {
	if log == nil {
		log = xlog.Discard()
	}
	return &session{addr: addr, log: log}
}

// ready reports whether the session currently holds a live connection
// and channel.
func (s *session) ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn != nil && !s.conn.IsClosed() && s.channel != nil
}

// ensure lazily (re)establishes the connection and channel when not
// already live. Any transport error at this stage is reported as
// ErrBrokerConnection.
func (s *session) ensure() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil && !s.conn.IsClosed() && s.channel != nil {
		select {
		case <-s.notifyConnClose:
			s.release()
		case <-s.notifyChanClose:
			s.release()
		default:
			return nil
		}
	}

	dialCfg := driver.Config{Dial: driver.DefaultDial(connectTimeout)}
	conn, err := driver.DialConfig(s.addr, dialCfg)
	if err != nil {
		return xerrors.Wrap(xerrors.ErrBrokerConnection, err.Error())
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return xerrors.Wrap(xerrors.ErrBrokerConnection, err.Error())
	}

	s.conn = conn
	s.channel = ch
	s.notifyConnClose = make(chan *driver.Error, 1)
	s.notifyChanClose = make(chan *driver.Error, 1)
	conn.NotifyClose(s.notifyConnClose)
	ch.NotifyClose(s.notifyChanClose)
	s.log.WithField("broker", s.addr).Debug("session connected")
	return nil
}

// terminated reports whether the session's connection or channel
// reported a close event since the last ensure() call, releasing
// resources if so.
func (s *session) terminated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.notifyConnClose:
		s.release()
		return true
	case <-s.notifyChanClose:
		s.release()
		return true
	default:
		return false
	}
}

func (s *session) release() {
	if s.channel != nil {
		_ = s.channel.Close()
	}
	if s.conn != nil {
		_ = s.conn.Close()
	}
	s.channel = nil
	s.conn = nil
}

// close tears down the session's underlying connection unconditionally.
func (s *session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.release()
}

func (s *session) getChannel() (*driver.Channel, error) {
	if err := s.ensure(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.channel, nil
}
