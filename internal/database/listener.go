package database

import (
	"log"
	"sync"
	"time"

	"github.com/lib/pq"
)

// Event is a single change notification emitted by a mutating service via
// pg_notify. Payload is a small JSON document describing the change.
type Event struct {
	Channel string `json:"channel"`
	Payload string `json:"payload"`
}

// Feed fans out Postgres LISTEN/NOTIFY events to in-process subscribers.
// It is the subscribe-to-collection primitive consumed by the dashboard
// live views and by the pricing service's settings reload.
type Feed struct {
	listener *pq.Listener

	mu   sync.Mutex
	subs map[string][]chan Event

	stop     chan struct{}
	stopOnce sync.Once
}

// NewFeed connects a listener and subscribes to the given channels.
func NewFeed(conninfo string, channels ...string) (*Feed, error) {
	l := pq.NewListener(conninfo, 10*time.Second, time.Minute,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				log.Printf("[FEED] Listener event %v: %v", ev, err)
			}
		})

	for _, ch := range channels {
		if err := l.Listen(ch); err != nil {
			l.Close()
			return nil, err
		}
	}

	f := &Feed{
		listener: l,
		subs:     make(map[string][]chan Event),
		stop:     make(chan struct{}),
	}
	go f.run()
	return f, nil
}

func (f *Feed) run() {
	for {
		select {
		case n := <-f.listener.Notify:
			if n == nil {
				// Connection was re-established; notifications may have
				// been lost. Subscribers treat events as hints and re-read.
				continue
			}
			f.dispatch(Event{Channel: n.Channel, Payload: n.Extra})
		case <-time.After(90 * time.Second):
			go f.listener.Ping()
		case <-f.stop:
			return
		}
	}
}

func (f *Feed) dispatch(ev Event) {
	f.mu.Lock()
	subs := append([]chan Event(nil), f.subs[ev.Channel]...)
	f.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- ev:
		default:
			// Slow subscriber; drop rather than block the feed.
		}
	}
}

// Subscribe returns a channel receiving events for the given notify channel.
func (f *Feed) Subscribe(channel string) <-chan Event {
	ch := make(chan Event, 16)
	f.mu.Lock()
	f.subs[channel] = append(f.subs[channel], ch)
	f.mu.Unlock()
	return ch
}

// Unsubscribe removes a previously subscribed channel.
func (f *Feed) Unsubscribe(channel string, sub <-chan Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	subs := f.subs[channel]
	for i, ch := range subs {
		if ch == sub {
			f.subs[channel] = append(subs[:i], subs[i+1:]...)
			close(ch)
			return
		}
	}
}

// Close stops the dispatch loop and the underlying listener.
func (f *Feed) Close() error {
	f.stopOnce.Do(func() { close(f.stop) })
	return f.listener.Close()
}
