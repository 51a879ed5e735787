// Package notification provides the notification manager for broadcasting user-visible notices.
package notification

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"
)

// Level represents the severity of a notice.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Notice is a user-visible message (toast).
type Notice struct {
	SequenceNo uint64    `json:"sequenceNo"`
	Level      Level     `json:"level"`
	Title      string    `json:"title"`
	Message    string    `json:"message,omitempty"`
	Time       time.Time `json:"time"`
}

// Stream represents a notification stream for a subscriber.
type Stream interface {
	Send(*Notice) error
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
	sendTimeout   time.Duration
}

// NewManager creates a new notification manager.
func NewManager() *Manager {
	return &Manager{
		subscriptions: make(map[string]*subscription),
		sendTimeout:   500 * time.Millisecond,
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
	return id
}

// Unsubscribe removes a subscription.
func (m *Manager) Unsubscribe(subscriptionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subscriptions, subscriptionID)
}

// Notify broadcasts a notice in the background so callers never wait on subscribers.
func (m *Manager) Notify(level Level, title, message string) {
	switch level {
	case LevelError:
		zlog.Error().Msgf("notice: %s: %s", title, message)
	case LevelWarn:
		zlog.Warn().Msgf("notice: %s: %s", title, message)
	default:
		zlog.Info().Msgf("notice: %s: %s", title, message)
	}

	n := &Notice{Level: level, Title: title, Message: message, Time: time.Now()}
	go func() {
		_ = m.Broadcast(n)
	}()
}

// Broadcast sends a notice to all subscribers.
// Each stream send is done in a goroutine with a timeout to prevent blocking.
func (m *Manager) Broadcast(notice *Notice) error {
	m.sequenceNoMu.Lock()
	m.sequenceNo++
	notice.SequenceNo = m.sequenceNo
	m.sequenceNoMu.Unlock()

	m.mu.RLock()
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
			ctx, cancel := context.WithTimeout(context.Background(), m.sendTimeout)
			defer cancel()

			done := make(chan error, 1)
			go func() {
				done <- s.stream.Send(notice)
			}()

			select {
			case err := <-done:
				if err != nil {
					zlog.Debug().Msgf("notification: send failed: subscription=%s error=%v", s.id, err)
				}
			case <-ctx.Done():
				zlog.Debug().Msgf("notification: send timed out: subscription=%s", s.id)
			}
		}(sub)
	}

	wg.Wait()
	return nil
}

// Send sends a notice to a specific subscriber.
func (m *Manager) Send(subscriptionID string, notice *Notice) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sub, ok := m.subscriptions[subscriptionID]
	if !ok {
		return nil
	}
	return sub.stream.Send(notice)
}

// SubscriberCount returns the number of active subscribers.
func (m *Manager) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// Close removes all subscriptions.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions = make(map[string]*subscription)
}
