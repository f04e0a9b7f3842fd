package xlog

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	tdd "github.com/stretchr/testify/assert"
)

// recordingTransport captures events instead of sending them over the
// network, letting the test assert on what WithSentry would have reported.
type recordingTransport struct {
	mu     sync.Mutex
	events []*sentry.Event
}

func (rt *recordingTransport) Configure(sentry.ClientOptions) {}
func (rt *recordingTransport) SendEvent(event *sentry.Event) {
	rt.mu.Lock()
	rt.events = append(rt.events, event)
	rt.mu.Unlock()
}
func (rt *recordingTransport) Flush(time.Duration) bool              { return true }
func (rt *recordingTransport) FlushWithContext(context.Context) bool { return true }
func (rt *recordingTransport) Close()                                {}

func TestWithSentryReportsErrorsOnly(t *testing.T) {
	assert := tdd.New(t)

	transport := &recordingTransport{}
	log, err := WithSentry(SentryOptions{DSN: "https://public@example.com/1", Transport: transport}, Discard())
	assert.Nil(err)

	log.WithField("endpoint", "abc123").Error("broker publish failed")
	log.Info("this should not be reported")

	assert.Equal(1, len(transport.events))
	assert.Equal("broker publish failed", transport.events[0].Message)
	assert.Equal("abc123", transport.events[0].Extra["endpoint"])
}
