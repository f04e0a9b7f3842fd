package sse

import (
	"context"
	"testing"
	"time"

	tdd "github.com/stretchr/testify/assert"
)

func TestStreamSendMessage(t *testing.T) {
	assert := tdd.New(t)
	st, err := NewStream("test-stream", WithSendTimeout(time.Second))
	assert.Nil(err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub := st.Subscribe(ctx, "client-1")

	st.SendMessage(map[string]string{"hello": "world"})

	select {
	case ev := <-sub.Receive():
		assert.Equal(1, ev.ID())
		data, err := ev.Encode()
		assert.Nil(err)
		assert.Contains(string(data), `"hello":"world"`)
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber never received the message")
	}

	st.Close()
}

func TestStreamUnsubscribe(t *testing.T) {
	assert := tdd.New(t)
	st, err := NewStream("test-stream-2")
	assert.Nil(err)

	ctx := context.Background()
	sub := st.Subscribe(ctx, "client-1")
	assert.True(st.Unsubscribe("client-1"))
	assert.False(st.Unsubscribe("client-1"), "second unsubscribe is a no-op")

	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatal("subscription was not marked done")
	}
}
