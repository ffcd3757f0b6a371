// Package chat delivers live chat-room events to websocket
// subscribers. Message events travel over a redis pub/sub channel so
// every instance sees them; countdown ticks come from one shared
// ticker instead of a timer per connection, started when the first
// observer attaches and stopped when the last one detaches.
package chat

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"flashmeet/internal/logger"
	"flashmeet/internal/models"
)

// eventsChannel is the redis pub/sub channel shared by all instances.
const eventsChannel = "flashmeet:chat:events"

// Event kinds delivered to subscribers.
const (
	EventMessage = "message"
	EventTick    = "tick"
	EventClosed  = "closed"
)

// Event is one frame pushed to a room's subscribers.
type Event struct {
	MeetupID         string              `json:"meetupId"`
	Kind             string              `json:"kind"`
	Message          *models.ChatMessage `json:"message,omitempty"`
	RemainingSeconds int                 `json:"remainingSeconds,omitempty"`
}

type room struct {
	closeTime time.Time
	clients   map[*Client]bool
}

// Hub routes events into rooms keyed by meetup id.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]*room

	register   chan *Client
	unregister chan *Client
	local      chan Event
	done       chan struct{}

	rdb *redis.Client

	// shared countdown ticker; nil channel while no rooms exist
	tick  *time.Ticker
	tickC <-chan time.Time

	nowFunc func() time.Time
}

// NewHub creates a hub. rdb may be nil, in which case events are
// delivered to local subscribers only.
func NewHub(rdb *redis.Client) *Hub {
	return &Hub{
		rooms:      make(map[string]*room),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		local:      make(chan Event, 16),
		done:       make(chan struct{}),
		rdb:        rdb,
		nowFunc:    time.Now,
	}
}

// Run processes attach/detach requests, published events and shared
// ticks until the context is canceled.
func (h *Hub) Run(ctx context.Context) {
	var remote <-chan *redis.Message
	if h.rdb != nil {
		pubsub := h.rdb.Subscribe(ctx, eventsChannel)
		defer pubsub.Close()
		remote = pubsub.Channel()
	}

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			close(h.done)
			return

		case client := <-h.register:
			h.attach(client)

		case client := <-h.unregister:
			h.detach(client)

		case msg := <-remote:
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				logger.Warningf("Malformed chat event: %v", err)
				continue
			}
			h.broadcast(ev)

		case ev := <-h.local:
			h.broadcast(ev)

		case <-h.tickC:
			h.onTick(h.nowFunc())
		}
	}
}

// PublishMessage fans a persisted chat message out to subscribers on
// every instance.
func (h *Hub) PublishMessage(ctx context.Context, msg *models.ChatMessage) {
	ev := Event{MeetupID: msg.MeetupID, Kind: EventMessage, Message: msg}
	if h.rdb == nil {
		h.local <- ev
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		logger.Warningf("Failed to encode chat event: %v", err)
		return
	}
	if err := h.rdb.Publish(ctx, eventsChannel, payload).Err(); err != nil {
		logger.Warningf("Failed to publish chat event: %v", err)
	}
}

// Attach registers a subscriber for a meetup's room. After shutdown it
// is a no-op; connections still detaching must not block on a loop
// that no longer receives.
func (h *Hub) Attach(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
	}
}

// Detach removes a subscriber; the client's send channel is closed.
func (h *Hub) Detach(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) attach(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, ok := h.rooms[c.meetupID]
	if !ok {
		r = &room{closeTime: c.closeTime, clients: make(map[*Client]bool)}
		h.rooms[c.meetupID] = r
	}
	r.clients[c] = true

	// first observer anywhere: start the shared ticker
	if h.tick == nil {
		h.tick = time.NewTicker(time.Second)
		h.tickC = h.tick.C
	}
}

func (h *Hub) detach(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, ok := h.rooms[c.meetupID]
	if !ok {
		return
	}
	if _, present := r.clients[c]; !present {
		return
	}
	delete(r.clients, c)
	close(c.send)
	if len(r.clients) == 0 {
		delete(h.rooms, c.meetupID)
	}
	h.stopTickerIfIdle()
}

func (h *Hub) broadcast(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	r, ok := h.rooms[ev.MeetupID]
	if !ok {
		return
	}
	for c := range r.clients {
		select {
		case c.send <- data:
		default:
			// slow consumer, drop the frame
		}
	}
}

// onTick broadcasts the remaining lifetime of every room and tears
// down rooms whose close time has passed.
func (h *Hub) onTick(now time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for meetupID, r := range h.rooms {
		remaining := int(r.closeTime.Sub(now).Seconds())
		if remaining <= 0 {
			ev := Event{MeetupID: meetupID, Kind: EventClosed}
			data, _ := json.Marshal(ev)
			for c := range r.clients {
				select {
				case c.send <- data:
				default:
				}
				close(c.send)
			}
			delete(h.rooms, meetupID)
			continue
		}

		ev := Event{MeetupID: meetupID, Kind: EventTick, RemainingSeconds: remaining}
		data, _ := json.Marshal(ev)
		for c := range r.clients {
			select {
			case c.send <- data:
			default:
			}
		}
	}

	h.stopTickerIfIdle()
}

// stopTickerIfIdle stops the shared ticker once no rooms remain.
// Callers must hold h.mu.
func (h *Hub) stopTickerIfIdle() {
	if len(h.rooms) == 0 && h.tick != nil {
		h.tick.Stop()
		h.tick = nil
		h.tickC = nil
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for meetupID, r := range h.rooms {
		for c := range r.clients {
			close(c.send)
		}
		delete(h.rooms, meetupID)
	}
	h.stopTickerIfIdle()
}
