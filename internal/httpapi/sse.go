package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// events streams every mutation as a Server-Sent Event named after the
// mutation, with the resulting record as data.
func (h *Handler) events(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)

	// Subscribe before the headers go out so a client that has seen the
	// response cannot miss a mutation made right after.
	sub := h.subs.Subscribe(h.cfg.EventBuffer)
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		h.logger.Error("event stream does not support flushing", zap.Error(err))
		return
	}

	h.logger.Info("event stream opened", zap.String("subscriber_id", sub.ID))
	defer h.logger.Info("event stream closed", zap.String("subscriber_id", sub.ID))

	var heartbeat <-chan time.Time
	if h.cfg.SSEHeartbeat > 0 {
		ticker := time.NewTicker(h.cfg.SSEHeartbeat)
		defer ticker.Stop()
		heartbeat = ticker.C
	}

	var seq uint64
	for {
		select {
		case <-r.Context().Done():
			return

		case <-heartbeat:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}

		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			data, err := json.Marshal(ev.Todo)
			if err != nil {
				h.logger.Error("failed to encode event", zap.Error(err))
				continue
			}
			seq++
			if _, err := fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", seq, ev.Method, data); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}
