// Package live fans attendee changes out to open watch streams.
package live

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const AttendeeUpdated = "attendee.updated"

type Event struct {
	Type       string    `json:"type"`
	AttendeeID string    `json:"attendee_id"`
	Day        int       `json:"day,omitempty"`
	At         time.Time `json:"at"`
}

// Broker publishes events and delivers them to per-attendee subscribers.
// The returned cancel func releases the subscription and closes the channel.
type Broker interface {
	Publish(ctx context.Context, evt Event) error
	Subscribe(ctx context.Context, attendeeID string) (<-chan Event, func(), error)
}

type Memory struct {
	mu   sync.Mutex
	subs map[string]map[chan Event]struct{}
}

func NewMemory() *Memory {
	return &Memory{subs: make(map[string]map[chan Event]struct{})}
}

// Publish never blocks; a subscriber that is not keeping up misses the event
// and catches up on its next poll.
func (m *Memory) Publish(_ context.Context, evt Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for ch := range m.subs[evt.AttendeeID] {
		select {
		case ch <- evt:
		default:
		}
	}
	return nil
}

func (m *Memory) Subscribe(_ context.Context, attendeeID string) (<-chan Event, func(), error) {
	ch := make(chan Event, 8)
	m.mu.Lock()
	if m.subs[attendeeID] == nil {
		m.subs[attendeeID] = make(map[chan Event]struct{})
	}
	m.subs[attendeeID][ch] = struct{}{}
	m.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs[attendeeID], ch)
			if len(m.subs[attendeeID]) == 0 {
				delete(m.subs, attendeeID)
			}
			m.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel, nil
}

// Redis uses one pub/sub channel per attendee.
type Redis struct {
	client *redis.Client
	prefix string
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client, prefix: "confattend:live:"}
}

func (r *Redis) channel(attendeeID string) string { return r.prefix + attendeeID }

func (r *Redis) Publish(ctx context.Context, evt Event) error {
	b, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel(evt.AttendeeID), b).Err()
}

func (r *Redis) Subscribe(ctx context.Context, attendeeID string) (<-chan Event, func(), error) {
	ps := r.client.Subscribe(ctx, r.channel(attendeeID))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, err
	}
	out := make(chan Event, 8)
	done := make(chan struct{})
	go func() {
		defer close(out)
		in := ps.Channel()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case m, ok := <-in:
				if !ok {
					return
				}
				var evt Event
				if err := json.Unmarshal([]byte(m.Payload), &evt); err != nil {
					slog.Warn("dropping undecodable live event", "channel", m.Channel, "error", err)
					continue
				}
				select {
				case out <- evt:
				default:
				}
			}
		}
	}()
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			_ = ps.Close()
		})
	}
	return out, cancel, nil
}
