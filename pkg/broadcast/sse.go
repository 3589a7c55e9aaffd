package broadcast

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// EventName is the SSE event type used for progress messages.
const EventName = "progress"

// Stream returns a handler that writes messages from src as server-sent
// events. When greet is non-nil its result is sent first so a client
// that connects mid-run sees the current state. The stream ends when the
// client disconnects or the subscription is closed.
func Stream(src Source, greet func() string, keepAlive time.Duration, logger *slog.Logger) http.HandlerFunc {
	logger = logger.With("handler", "events")

	return func(w http.ResponseWriter, r *http.Request) {
		rc := http.NewResponseController(w)
		// Streams outlive the server write timeout.
		_ = rc.SetWriteDeadline(time.Time{})

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)

		ch, unsubscribe := src.Subscribe()
		defer unsubscribe()

		if greet != nil {
			writeEvent(w, greet())
		}
		if err := rc.Flush(); err != nil {
			logger.Error("streaming unsupported", "error", err)
			return
		}

		var tick <-chan time.Time
		if keepAlive > 0 {
			ticker := time.NewTicker(keepAlive)
			defer ticker.Stop()
			tick = ticker.C
		}

		for {
			select {
			case <-r.Context().Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				writeEvent(w, msg)
			case <-tick:
				fmt.Fprint(w, ": keep-alive\n\n")
			}

			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, msg string) {
	fmt.Fprintf(w, "event: %s\n", EventName)
	for line := range strings.SplitSeq(msg, "\n") {
		fmt.Fprintf(w, "data: %s\n", line)
	}
	fmt.Fprint(w, "\n")
}
