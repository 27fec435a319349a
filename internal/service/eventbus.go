package service

import (
	"sync"

	"github.com/bnema/mediasrv/internal/domain"
)

const (
	EventPrepared   = "prepared"
	EventComplete   = "complete"
	EventTerminated = "terminated"
	EventClosed     = "session_closed"
)

type Event struct {
	Type    string        `json:"type"`
	Handle  domain.Handle `json:"handle"`
	Message string        `json:"message,omitempty"`
}

type EventPublisher interface {
	Publish(sessionID string, event Event)
	// CloseSession delivers a final event and closes every subscription of
	// the session.
	CloseSession(sessionID string, final Event)
}

type EventBus struct {
	subscribers map[string][]chan Event
	mu          sync.RWMutex
}

func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[string][]chan Event),
	}
}

func (eb *EventBus) Subscribe(sessionID string) chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	ch := make(chan Event, 16)
	eb.subscribers[sessionID] = append(eb.subscribers[sessionID], ch)
	return ch
}

func (eb *EventBus) Unsubscribe(sessionID string, ch chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	subs := eb.subscribers[sessionID]
	for i, sub := range subs {
		if sub == ch {
			eb.subscribers[sessionID] = append(subs[:i], subs[i+1:]...)
			close(ch)
			break
		}
	}

	if len(eb.subscribers[sessionID]) == 0 {
		delete(eb.subscribers, sessionID)
	}
}

func (eb *EventBus) Publish(sessionID string, event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	for _, ch := range eb.subscribers[sessionID] {
		select {
		case ch <- event:
		default:
			// Drop event if subscriber is slow
		}
	}
}

// CloseSession never drops final: when a subscriber's buffer is full its
// oldest pending event makes room. Each channel is closed afterwards, so
// readers stop even if they miss the event.
func (eb *EventBus) CloseSession(sessionID string, final Event) {
	eb.mu.Lock()
	subs := eb.subscribers[sessionID]
	delete(eb.subscribers, sessionID)
	eb.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- final:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- final:
			default:
			}
		}
		close(ch)
	}
}

func (eb *EventBus) SubscriberCount(sessionID string) int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.subscribers[sessionID])
}
