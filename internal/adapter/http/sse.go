package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bnema/mediasrv/internal/service"
)

const keepAliveInterval = 15 * time.Second

// EventSource is the subscription side of the session event bus.
type EventSource interface {
	Subscribe(sessionID string) chan service.Event
	Unsubscribe(sessionID string, ch chan service.Event)
}

type SSEHandler struct {
	events    EventSource
	handlers  *Handlers
	keepAlive time.Duration
}

func NewSSEHandler(events EventSource, handlers *Handlers) *SSEHandler {
	return &SSEHandler{
		events:    events,
		handlers:  handlers,
		keepAlive: keepAliveInterval,
	}
}

// sseWrite writes an SSE event, handling multi-line data correctly.
func sseWrite(w http.ResponseWriter, eventName string, data string) {
	_, _ = fmt.Fprintf(w, "event: %s\n", eventName)
	for _, line := range strings.Split(data, "\n") {
		_, _ = fmt.Fprintf(w, "data: %s\n", line)
	}
	_, _ = fmt.Fprint(w, "\n")
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// sendKeepAlive writes an SSE comment to keep the connection active.
func sendKeepAlive(w http.ResponseWriter) {
	_, _ = fmt.Fprint(w, ": keep-alive\n\n")
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func sendEvent(w http.ResponseWriter, event service.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	sseWrite(w, event.Type, string(data))
	return nil
}

// Events streams the job lifecycle events of one session until the client
// goes away or the session is closed.
func (h *SSEHandler) Events() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := h.handlers.session(r)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		ch := h.events.Subscribe(s.ID)
		defer h.events.Unsubscribe(s.ID, ch)

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)

		// A session closed between lookup and subscribe would otherwise
		// leave the stream open forever.
		if _, err := h.handlers.sessions.Get(s.ID); err != nil {
			_ = sendEvent(w, service.Event{Type: service.EventClosed, Message: "closed"})
			return
		}
		sendKeepAlive(w)

		ctx := r.Context()
		keepAlive := time.NewTicker(h.keepAlive)
		defer keepAlive.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-keepAlive.C:
				sendKeepAlive(w)
			case event, ok := <-ch:
				if !ok {
					return
				}
				if err := sendEvent(w, event); err != nil {
					return
				}
				if event.Type == service.EventClosed {
					return
				}
			}
		}
	}
}
