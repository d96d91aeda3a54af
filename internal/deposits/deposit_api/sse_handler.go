package deposit_api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// StreamDeposits streams deposit changes, optionally for a single owner.
func (h *Handler) StreamDeposits(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}
	owner := strings.TrimSpace(r.URL.Query().Get("owner"))

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	ctx := r.Context()
	eventChan := h.Events.Subscribe(ctx, owner)

	connected, _ := json.Marshal(map[string]string{"status": "connected", "owner": owner})
	fmt.Fprintf(w, "event: connected\ndata: %s\n\n", connected)
	flusher.Flush()

	h.Logger.Info("SSE", fmt.Sprintf("Client connected to deposit stream (owner=%q)", owner))

	for {
		select {
		case event, ok := <-eventChan:
			if !ok {
				return
			}

			jsonData, err := json.Marshal(event)
			if err != nil {
				h.Logger.Error("SSE", fmt.Sprintf("Failed to serialize deposit event: %v", err))
				continue
			}

			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, jsonData)
			flusher.Flush()

		case <-ctx.Done():
			h.Logger.Debug("SSE", fmt.Sprintf("Client disconnected from deposit stream (owner=%q)", owner))
			return
		}
	}
}
