// Package notification provides the notification manager for broadcasting
// shell messages to connected kiosk pages.
package notification

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/19screen/internal/infra/metrics"
)

const sendTimeout = 500 * time.Millisecond

// Type is the kind of a shell message.
type Type string

const (
	// Server to page
	TypeShow         Type = "show"
	TypeTransition   Type = "transition"
	TypeEmpty        Type = "empty"
	TypeStatus       Type = "status"
	TypeDisplay      Type = "display"
	TypeWidget       Type = "widget"
	TypeWidgetRemove Type = "widget_remove"
	TypeInfo         Type = "info"
	TypeKiosk        Type = "kiosk"

	// Page to server
	TypeMediaEnded Type = "media_ended"
	TypeMediaError Type = "media_error"
	TypeKey        Type = "key"
	TypePointer    Type = "pointer"
)

// Message is one shell message.
type Message struct {
	Type       Type   `json:"type"`
	SequenceNo uint64 `json:"seq"`
	Payload    any    `json:"payload,omitempty"`
}

// Stream represents a notification stream for a subscriber.
type Stream interface {
	Send(*Message) error
}

// subscription represents a subscriber's subscription.
type subscription struct {
	id     string
	stream Stream
}

// Manager manages notification subscriptions and broadcasting.
type Manager struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription
	sequenceNo    uint64
	sequenceNoMu  sync.Mutex
	metrics       *metrics.Metrics
}

// NewManager creates a new notification manager.
func NewManager(m *metrics.Metrics) *Manager {
	return &Manager{
		subscriptions: make(map[string]*subscription),
		metrics:       m,
	}
}

// Subscribe adds a new subscription and returns the subscription ID.
func (m *Manager) Subscribe(stream Stream) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.New().String()
	m.subscriptions[id] = &subscription{
		id:     id,
		stream: stream,
	}
	m.metrics.SetShellClients(len(m.subscriptions))
	zlog.Debug().Msgf("notification: subscribed: id=%s, subscribers=%d", id, len(m.subscriptions))
	return id
}

// NextSequenceNo returns the next sequence number and increments the counter.
func (m *Manager) NextSequenceNo() uint64 {
	m.sequenceNoMu.Lock()
	defer m.sequenceNoMu.Unlock()
	m.sequenceNo++
	return m.sequenceNo
}

// Unsubscribe removes a subscription.
func (m *Manager) Unsubscribe(subscriptionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.subscriptions[subscriptionID]; !ok {
		return
	}
	delete(m.subscriptions, subscriptionID)
	m.metrics.SetShellClients(len(m.subscriptions))
	zlog.Debug().Msgf("notification: unsubscribed: id=%s, subscribers=%d", subscriptionID, len(m.subscriptions))
}

// Broadcast sends a message to all subscribers.
// Each stream send is done in a goroutine with a timeout to prevent blocking.
// Subscribers whose send fails are removed.
func (m *Manager) Broadcast(msg *Message) {
	msg.SequenceNo = m.NextSequenceNo()

	m.mu.RLock()
	// Copy subscriptions to avoid holding lock during sends
	subs := make([]*subscription, 0, len(m.subscriptions))
	for _, sub := range m.subscriptions {
		subs = append(subs, sub)
	}
	m.mu.RUnlock()

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(s *subscription) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
			defer cancel()

			done := make(chan error, 1)
			go func() {
				done <- s.stream.Send(msg)
			}()

			select {
			case err := <-done:
				if err != nil {
					zlog.Debug().Err(err).Msgf("notification: send failed, dropping subscriber: id=%s", s.id)
					m.Unsubscribe(s.id)
				}
			case <-ctx.Done():
				zlog.Debug().Msgf("notification: send timed out: id=%s, type=%s", s.id, msg.Type)
			}
		}(sub)
	}

	// Wait for all sends to complete or timeout
	wg.Wait()
}

// Send sends a message to a specific subscriber.
func (m *Manager) Send(subscriptionID string, msg *Message) error {
	m.mu.RLock()
	sub, ok := m.subscriptions[subscriptionID]
	m.mu.RUnlock()
	if !ok {
		return nil
	}

	msg.SequenceNo = m.NextSequenceNo()
	return sub.stream.Send(msg)
}

// SubscriberCount returns the number of active subscribers.
func (m *Manager) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// Close closes the manager and removes all subscriptions.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions = make(map[string]*subscription)
	m.metrics.SetShellClients(0)
}
