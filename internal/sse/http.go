package sse

import "net/http"

// Handler provides a basic server-sent-events HTTP handler. setup
// inspects the request (query params, auth) and returns the
// subscription to stream back to the client.
func Handler(setup func(req *http.Request) (*Subscription, error)) http.HandlerFunc {
	return func(res http.ResponseWriter, req *http.Request) {
		rf, ok := res.(http.Flusher)
		if !ok {
			http.Error(res, "SSE is not supported", http.StatusInternalServerError)
			return
		}

		sub, err := setup(req)
		if err != nil {
			http.Error(res, err.Error(), http.StatusBadRequest)
			return
		}

		res.Header().Set("Content-Type", "text/event-stream")
		res.Header().Set("Cache-Control", "no-cache")
		res.Header().Set("Connection", "keep-alive")
		res.WriteHeader(http.StatusOK)
		rf.Flush()

		for {
			select {
			case ev := <-sub.Receive():
				data, err := ev.Encode()
				if err == nil {
					_, _ = res.Write(data)
					rf.Flush()
				}
			case <-sub.Done():
				return
			case <-req.Context().Done():
				return
			}
		}
	}
}
