package core

import (
	"sync"
	"sync/atomic"
)

// Client is one live connection as seen by the core layer.
type Client struct {
	ID string

	events    chan *Event
	done      chan struct{}
	closeOnce sync.Once
	silent    atomic.Bool
}

// NewClient constructs a client with an initialized outbound queue.
func NewClient(id string) *Client {
	return &Client{
		ID:     id,
		events: make(chan *Event, 64),
		done:   make(chan struct{}),
	}
}

// Events is the outbound queue drained by the transport write loop.
func (c *Client) Events() <-chan *Event {
	return c.events
}

// Done is closed once the client has been closed by either side.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Notify queues a server push. Pushes to a slow or closed client are dropped.
func (c *Client) Notify(notification string, data any) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.events <- &Event{Kind: EventNotification, Notification: notification, Data: data}:
	default:
		// Drop if slow consumer.
	}
}

// Send queues ev, waiting for room in the queue. It reports false when
// the client is already closed; that is not an error for callers.
func (c *Client) Send(ev *Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.events <- ev:
		return true
	case <-c.done:
		return false
	}
}

// Close ends the connection. A silent close skips the close-phase handler.
func (c *Client) Close(silent bool) {
	c.closeOnce.Do(func() {
		c.silent.Store(silent)
		close(c.done)
	})
}

// Silent reports whether the client was closed silently by the server.
func (c *Client) Silent() bool {
	return c.silent.Load()
}
