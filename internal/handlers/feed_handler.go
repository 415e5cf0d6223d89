package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/akunflix/backend/internal/database"
	"github.com/akunflix/backend/internal/services"
)

// feedChannels are the collections a dashboard may stream.
var feedChannels = map[string]bool{
	"inventory":  true,
	"orders":     true,
	"users":      true,
	"broadcasts": true,
	"settings":   true,
}

// EventSource is the subscription surface of database.Feed.
type EventSource interface {
	Subscribe(channel string) <-chan database.Event
	Unsubscribe(channel string, sub <-chan database.Event)
}

// FeedHandler streams change notifications to dashboard clients over
// Server-Sent Events. Events are hints that a collection changed, not
// payloads to render; the client re-fetches the affected list.
type FeedHandler struct {
	feed EventSource
}

func NewFeedHandler(feed EventSource) *FeedHandler {
	return &FeedHandler{feed: feed}
}

// Stream streams change events for one channel
// @Summary Event stream
// @Description Server-Sent Events stream of change notifications
// @Tags feed
// @Produce text/event-stream
// @Security BearerAuth
// @Param channel query string true "Channel (inventory, orders, users, broadcasts, settings)"
// @Success 200 {string} string "event stream"
// @Failure 400 {object} services.ErrorResponse
// @Router /feed [get]
func (h *FeedHandler) Stream(w http.ResponseWriter, r *http.Request) {
	channel := r.URL.Query().Get("channel")
	if !feedChannels[channel] {
		services.SendErrorResponse(w, "Unknown feed channel", http.StatusBadRequest, nil)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		services.SendErrorResponse(w, "Streaming not supported", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sub := h.feed.Subscribe(channel)
	defer h.feed.Unsubscribe(channel, sub)

	log.Printf("[FEED] Client subscribed to %s", channel)
	keepalive := time.NewTicker(30 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case ev, ok := <-sub:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: change\ndata: %s\n\n", data)
			flusher.Flush()
		case <-keepalive.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		case <-r.Context().Done():
			log.Printf("[FEED] Client left %s", channel)
			return
		}
	}
}
