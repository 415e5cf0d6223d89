package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"

	"github.com/akunflix/backend/internal/database"
)

// fakeFeed is an in-memory EventSource for exercising the SSE handler.
type fakeFeed struct {
	mu           sync.Mutex
	subs         map[string][]chan database.Event
	unsubscribes int
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{subs: make(map[string][]chan database.Event)}
}

func (f *fakeFeed) Subscribe(channel string) <-chan database.Event {
	ch := make(chan database.Event, 16)
	f.mu.Lock()
	f.subs[channel] = append(f.subs[channel], ch)
	f.mu.Unlock()
	return ch
}

func (f *fakeFeed) Unsubscribe(channel string, sub <-chan database.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsubscribes++
	subs := f.subs[channel]
	for i, ch := range subs {
		if ch == sub {
			f.subs[channel] = append(subs[:i], subs[i+1:]...)
			close(ch)
			return
		}
	}
}

func (f *fakeFeed) publish(channel string, ev database.Event) {
	f.mu.Lock()
	subs := append([]chan database.Event(nil), f.subs[channel]...)
	f.mu.Unlock()
	for _, ch := range subs {
		ch <- ev
	}
}

func (f *fakeFeed) subscribers(channel string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs[channel])
}

// pending reports buffered events not yet read by the handler.
func (f *fakeFeed) pending(channel string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, ch := range f.subs[channel] {
		n += len(ch)
	}
	return n
}

func TestFeedHandler_Stream(t *testing.T) {
	t.Run("unknown channel rejected", func(t *testing.T) {
		handler := NewFeedHandler(newFakeFeed())

		w := httptest.NewRecorder()
		handler.Stream(w, httptest.NewRequest(http.MethodGet, "/feed?channel=payments", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("streams events until the client leaves", func(t *testing.T) {
		feed := newFakeFeed()
		handler := NewFeedHandler(feed)

		ctx, cancel := context.WithCancel(context.Background())
		req := httptest.NewRequest(http.MethodGet, "/feed?channel=orders", nil).WithContext(ctx)
		w := httptest.NewRecorder()

		done := make(chan struct{})
		go func() {
			handler.Stream(w, req)
			close(done)
		}()

		assert.Eventually(t, func() bool { return feed.subscribers("orders") == 1 },
			time.Second, 5*time.Millisecond)

		feed.publish("orders", database.Event{Channel: "orders", Payload: `{"id":"o1"}`})
		assert.Eventually(t, func() bool { return feed.pending("orders") == 0 },
			time.Second, 5*time.Millisecond)

		cancel()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("stream did not stop on client disconnect")
		}

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
		assert.Contains(t, w.Body.String(), "event: change")
		assert.Contains(t, w.Body.String(), `\"id\":\"o1\"`)
		assert.Equal(t, 1, feed.unsubscribes)
	})
}

// The feed route is mounted outside the router's request timeout; a stream
// must keep delivering events after sibling routes have been cut off.
func TestFeedStreamOutlivesRequestTimeout(t *testing.T) {
	feed := newFakeFeed()
	handler := NewFeedHandler(feed)

	const requestTimeout = 20 * time.Millisecond

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Get("/feed", handler.Stream)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		r.Get("/slow", func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		})
	})

	// A route under the timeout is cut off.
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/slow", nil))
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)

	// The feed keeps streaming well past the request timeout.
	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/feed?channel=inventory", nil).WithContext(ctx)
	sw := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		r.ServeHTTP(sw, req)
		close(done)
	}()

	assert.Eventually(t, func() bool { return feed.subscribers("inventory") == 1 },
		time.Second, 5*time.Millisecond)

	time.Sleep(3 * requestTimeout)
	feed.publish("inventory", database.Event{Channel: "inventory", Payload: `{"id":"rec1"}`})
	assert.Eventually(t, func() bool { return feed.pending("inventory") == 0 },
		time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stream did not stop on client disconnect")
	}

	assert.Equal(t, http.StatusOK, sw.Code)
	assert.Contains(t, sw.Body.String(), "event: change")
}
