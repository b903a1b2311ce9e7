package notify

import (
	"fmt"

	"github.com/snehjoshi/bakery/internal/container/list"
)

// Dead letters are events whose retries ran out. Each subscription keeps at
// most its buffer size of them, oldest dropped first, so they can be
// inspected and replayed once the endpoint is healthy again.

func newDeadLetters() *list.List[Event] {
	return list.New(func(a, b Event) bool { return a.ID == b.ID })
}

func (m *Manager) deadLetter(sub *Subscription, ev Event) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.dead.Len() >= m.buffer {
		_, _ = sub.dead.RemoveFirst()
	}
	sub.dead.AddLast(ev)
}

// DeadLetters returns the undeliverable events of subscription id, oldest
// first. They stay stored until replayed.
func (m *Manager) DeadLetters(id string) ([]Event, error) {
	sub, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	sub.mu.Lock()
	defer sub.mu.Unlock()
	return sub.dead.Values(), nil
}

// Replay moves up to limit dead letters of subscription id back onto its
// delivery queue, oldest first, and returns how many were moved. limit <= 0
// means all. Events that do not fit in the delivery buffer stay dead.
func (m *Manager) Replay(id string, limit int) (int, error) {
	sub, err := m.lookup(id)
	if err != nil {
		return 0, err
	}
	sub.mu.Lock()
	defer sub.mu.Unlock()

	replayed := 0
	for !sub.dead.IsEmpty() && (limit <= 0 || replayed < limit) {
		ev, _ := sub.dead.First()
		select {
		case sub.events <- ev:
		default:
			return replayed, nil
		}
		_, _ = sub.dead.RemoveFirst()
		replayed++
	}
	if replayed > 0 {
		m.log.Info("dead letters replayed", "sub", id, "count", replayed)
	}
	return replayed, nil
}

func (m *Manager) lookup(id string) (*Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sub, ok := m.subs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSubscriptionNotFound, id)
	}
	return sub, nil
}
