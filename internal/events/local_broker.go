package events

import (
	"context"
	"path"
	"sync"
)

// LocalBroker delivers events to subscribers in the same process.
type LocalBroker struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]localSub
}

type localSub struct {
	pattern string
	handler Handler
}

func NewLocalBroker() *LocalBroker {
	return &LocalBroker{subs: make(map[int]localSub)}
}

func (b *LocalBroker) Publish(ctx context.Context, event Event) error {
	channel := UserChannel(event.UserID)

	b.mu.RLock()
	matched := make([]Handler, 0, len(b.subs))
	for _, s := range b.subs {
		if ok, _ := path.Match(s.pattern, channel); ok {
			matched = append(matched, s.handler)
		}
	}
	b.mu.RUnlock()

	for _, h := range matched {
		h(ctx, channel, event)
	}
	return nil
}

func (b *LocalBroker) Subscribe(ctx context.Context, pattern string, h Handler) error {
	if _, err := path.Match(pattern, ""); err != nil {
		return err
	}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = localSub{pattern: pattern, handler: h}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}()
	return nil
}

func (b *LocalBroker) Close() error {
	b.mu.Lock()
	b.subs = make(map[int]localSub)
	b.mu.Unlock()
	return nil
}
