// Package eventbus is a reference outbound Event Bus collaborator: it
// fans out published trade/exit events to every connected websocket
// subscriber. Delivery is best-effort and non-blocking; the
// orchestrator never waits on Publish.
package eventbus

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Envelope is the JSON frame every subscriber receives.
type Envelope struct {
	Topic   string      `json:"topic"`
	Payload interface{} `json:"payload"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Bus fans out Publish calls to every subscriber connected over
// websocket. Each subscriber has its own bounded send queue; a slow
// subscriber is dropped rather than allowed to block the bus.
type Bus struct {
	log *logrus.Logger

	mu          sync.Mutex
	subscribers map[*subscriber]struct{}
}

type subscriber struct {
	conn *websocket.Conn
	send chan Envelope
}

const subscriberQueueDepth = 64

// New wires an event bus. log may be nil, in which case a default
// logrus.Logger is used.
func New(log *logrus.Logger) *Bus {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Bus{log: log, subscribers: make(map[*subscriber]struct{})}
}

// Publish implements scheduler.EventPublisher.
func (b *Bus) Publish(topic string, payload interface{}) {
	env := Envelope{Topic: topic, Payload: payload}

	b.mu.Lock()
	targets := make([]*subscriber, 0, len(b.subscribers))
	for s := range b.subscribers {
		targets = append(targets, s)
	}
	b.mu.Unlock()

	for _, s := range targets {
		select {
		case s.send <- env:
		default:
			b.log.WithField("component", "eventbus").Warn("subscriber queue full, dropping connection")
			b.drop(s)
		}
	}
}

// ServeHTTP upgrades an incoming request to a websocket subscriber.
func (b *Bus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.log.WithError(err).Warn("eventbus: websocket upgrade failed")
		return
	}

	s := &subscriber{conn: conn, send: make(chan Envelope, subscriberQueueDepth)}
	b.mu.Lock()
	b.subscribers[s] = struct{}{}
	b.mu.Unlock()

	go b.writeLoop(s)
}

func (b *Bus) writeLoop(s *subscriber) {
	defer b.drop(s)
	for env := range s.send {
		data, err := json.Marshal(env)
		if err != nil {
			continue
		}
		if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}

func (b *Bus) drop(s *subscriber) {
	b.mu.Lock()
	if _, ok := b.subscribers[s]; ok {
		delete(b.subscribers, s)
		close(s.send)
	}
	b.mu.Unlock()
	s.conn.Close()
}

// SubscriberCount reports how many websocket clients are currently
// attached, for health/metrics endpoints.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}
