package httpapi

import (
	"bufio"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	tdd "github.com/stretchr/testify/assert"

	"go.bryk.io/mediator/internal/broker"
	"go.bryk.io/mediator/internal/dispatch"
	"go.bryk.io/mediator/internal/xlog"
)

func TestHandleLongPollEmitsPushedMessages(t *testing.T) {
	server := brokerAvailable(t)
	assert := tdd.New(t)

	dir := newFakeDirectory()
	addr := broker.Join(server, "httpapi-lp-test")
	dir.addrs["E1"] = addr
	f := newTestFacade(t, server, dir)

	srv := httptest.NewServer(f.Routes())
	defer srv.Close()

	client := &http.Client{Timeout: 3 * time.Second}
	type result struct {
		res *http.Response
		err error
	}
	done := make(chan result, 1)
	go func() {
		res, err := client.Get(srv.URL + "/lp?endpoint=E1")
		done <- result{res, err}
	}()

	time.Sleep(200 * time.Millisecond)

	pub, err := broker.NewChannel(addr, xlog.Discard())
	assert.Nil(err)
	_, err = pub.Publish(map[string]any{
		"@id":             "abc",
		"@type":           dispatch.PushType,
		"reverse_channel": addr,
		"expire_at":       float64(time.Now().Add(2 * time.Second).Unix()),
		"message":         "hello",
	})
	assert.Nil(err)

	r := <-done
	assert.Nil(r.err)
	if r.res != nil {
		scanner := bufio.NewScanner(r.res.Body)
		assert.True(scanner.Scan())
		assert.Contains(scanner.Text(), "id:")
		_ = r.res.Body.Close()
	}
}
