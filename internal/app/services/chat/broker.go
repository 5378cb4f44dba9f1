package chat

import (
	"context"
	"sync"

	"github.com/pawmate/pawmate/internal/app/domain/chat"
)

// Handler receives messages published to a room. It must not block.
type Handler func(chat.Message)

// Broker fans messages out to every subscriber of a room.
type Broker interface {
	Publish(ctx context.Context, msg chat.Message) error
	Subscribe(room string, h Handler) (unsubscribe func(), err error)
	Close() error
}

// LocalBroker delivers messages within the process.
type LocalBroker struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]Handler
}

// NewLocalBroker returns an in-process broker.
func NewLocalBroker() *LocalBroker {
	return &LocalBroker{subs: make(map[string]map[int]Handler)}
}

func (b *LocalBroker) Publish(_ context.Context, msg chat.Message) error {
	b.dispatch(msg)
	return nil
}

func (b *LocalBroker) dispatch(msg chat.Message) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[msg.RoomID]))
	for _, h := range b.subs[msg.RoomID] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(msg)
	}
}

func (b *LocalBroker) Subscribe(room string, h Handler) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	if b.subs[room] == nil {
		b.subs[room] = make(map[int]Handler)
	}
	b.subs[room][id] = h

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[room], id)
			if len(b.subs[room]) == 0 {
				delete(b.subs, room)
			}
		})
	}, nil
}

func (b *LocalBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = make(map[string]map[int]Handler)
	return nil
}
