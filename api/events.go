package api

import (
	"fmt"
	"net/http"

	"parkgo/events"
	"parkgo/status"
)

// SSEHandler streams every published record. The current record is sent as
// soon as the client connects.
func SSEHandler(broker *events.Broker, src StatusSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			internalError(w, r, fmt.Errorf("streaming unsupported"))
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		client := broker.Subscribe()
		defer broker.Unsubscribe(client)

		initial, err := events.Format(status.EventStatus, src.Current())
		if err != nil {
			return
		}
		fmt.Fprint(w, initial)
		flusher.Flush()

		for {
			select {
			case message, open := <-client:
				if !open {
					return
				}
				fmt.Fprint(w, message)
				flusher.Flush()
			case <-r.Context().Done():
				return
			}
		}
	}
}
