package httpapi

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gws "github.com/gorilla/websocket"
	tdd "github.com/stretchr/testify/assert"

	"go.bryk.io/mediator/internal/broker"
	"go.bryk.io/mediator/internal/xlog"
)

func TestHandleRawEventsPassthrough(t *testing.T) {
	server := brokerAvailable(t)
	assert := tdd.New(t)

	dir := newFakeDirectory()
	f := newTestFacade(t, server, dir)

	srv := httptest.NewServer(f.Routes())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/events?stream=httpapi-ws-test"
	conn, _, err := gws.DefaultDialer.Dial(wsURL, nil)
	assert.Nil(err)
	defer conn.Close()

	time.Sleep(200 * time.Millisecond)

	pub, err := broker.NewChannel(broker.Join(server, "httpapi-ws-test"), xlog.Discard())
	assert.Nil(err)
	_, err = pub.Publish(map[string]string{"hi": "there"})
	assert.Nil(err)

	assert.Nil(conn.SetReadDeadline(time.Now().Add(3 * time.Second)))
	_, body, err := conn.ReadMessage()
	assert.Nil(err)
	assert.JSONEq(`{"hi":"there"}`, string(body))
}

func TestHandleWebSocketCampedListener(t *testing.T) {
	server := brokerAvailable(t)
	assert := tdd.New(t)

	dir := newFakeDirectory()
	addr := broker.Join(server, "httpapi-ws-camp-test")
	dir.addrs["E1"] = addr
	f := newTestFacade(t, server, dir)

	srv := httptest.NewServer(f.Routes())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?endpoint=E1"
	conn, _, err := gws.DefaultDialer.Dial(wsURL, nil)
	assert.Nil(err)
	defer conn.Close()

	time.Sleep(200 * time.Millisecond)

	pub, err := broker.NewChannel(addr, xlog.Discard())
	assert.Nil(err)
	_, err = pub.Publish(map[string]string{"@id": "x", "@type": "push"})
	assert.Nil(err)

	assert.Nil(conn.SetReadDeadline(time.Now().Add(3 * time.Second)))
	_, _, err = conn.ReadMessage()
	assert.NotNil(err, "raw publish on the camping address is not a PushRequest and must not be forwarded")
}
