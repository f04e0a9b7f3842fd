// Package fcm implements the mobile push fallback used when an
// endpoint has no camped pub/sub listener: either a real Firebase Cloud
// Messaging send, or -- when the configured device identifier is itself
// a pub/sub address -- a publish to that channel, used as a test/mock
// sink in integration scenarios.
package fcm

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"go.bryk.io/mediator/internal/broker"
	"go.bryk.io/mediator/internal/xerrors"
	"go.bryk.io/mediator/internal/xlog"
)

// maxConnections bounds the number of concurrent sends through the
// single shared FCM client, replacing the one-client-per-execution-context
// pattern of the source implementation with a single shared pool.
const maxConnections = 1000

// Bridge dispatches a message to a mobile device when no live pub/sub
// listener is camped on an endpoint.
type Bridge struct {
	log    xlog.Logger
	mu     sync.Mutex
	client *messaging.Client
	sem    chan struct{}
}

// Option configures a Bridge.
type Option func(*Bridge) error

// WithLogger attaches a logger to the bridge.
func WithLogger(log xlog.Logger) Option {
	return func(b *Bridge) error {
		b.log = log
		return nil
	}
}

// WithCredentials loads Firebase service-account credentials from the
// given JSON file path, enabling the real-send path. Without it, the
// bridge only serves pub/sub-address device identifiers and returns
// ErrFCMDisabled for everything else.
func WithCredentials(credentialsFile string) Option {
	return func(b *Bridge) error {
		app, err := firebase.NewApp(context.Background(), nil, option.WithCredentialsFile(credentialsFile))
		if err != nil {
			return xerrors.Wrap(err, "init firebase app")
		}
		client, err := app.Messaging(context.Background())
		if err != nil {
			return xerrors.Wrap(err, "init firebase messaging client")
		}
		b.client = client
		return nil
	}
}

// New builds a Bridge. With no WithCredentials option, only test/mock
// pub/sub-address device identifiers will succeed.
func New(opts ...Option) (*Bridge, error) {
	b := &Bridge{log: xlog.Discard(), sem: make(chan struct{}, maxConnections)}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// isPubSubAddress reports whether deviceID looks like a broker pub/sub
// address rather than a real FCM device token.
func isPubSubAddress(deviceID string) bool {
	return strings.Contains(deviceID, "://")
}

// Send delivers message to deviceID. A pub/sub-address device id is
// treated as a test sink: success is delivered_count > 0. Otherwise a
// high-priority data message is submitted through the pooled Firebase
// client; ErrFCMDisabled is returned when no credentials are configured,
// ErrFCMFailed when the provider rejects the send.
func (b *Bridge) Send(deviceID string, message json.RawMessage) (bool, error) {
	if isPubSubAddress(deviceID) {
		return b.sendToChannel(deviceID, message)
	}
	return b.sendToDevice(deviceID, message)
}

func (b *Bridge) sendToChannel(address string, message json.RawMessage) (bool, error) {
	ch, err := broker.NewChannel(address, b.log)
	if err != nil {
		return false, err
	}
	delivered, err := ch.Publish(message)
	if err != nil {
		return false, err
	}
	return delivered > 0, nil
}

func (b *Bridge) sendToDevice(deviceToken string, message json.RawMessage) (bool, error) {
	b.mu.Lock()
	client := b.client
	b.mu.Unlock()
	if client == nil {
		return false, xerrors.ErrFCMDisabled
	}

	b.sem <- struct{}{}
	defer func() { <-b.sem }()

	msg := &messaging.Message{
		Token: deviceToken,
		Data: map[string]string{
			"message":    string(message),
			"message_id": uuid.NewString(),
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{"apns-priority": "10"},
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := client.Send(ctx, msg); err != nil {
		return false, xerrors.Wrap(xerrors.ErrFCMFailed, err.Error())
	}
	return true, nil
}
