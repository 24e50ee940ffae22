// Package eventbus is a small in-process dispatcher for typed events. The
// engine publishes through the process-global bus; disabling the bus turns
// publishing into a no-op, so instrumented and uninstrumented use cost the
// same on the hot path.
package eventbus

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"
)

// Handler processes events of type T.
type Handler[T any] func(context.Context, T)

type subscription struct {
	id int
	fn func(context.Context, any)
}

// Bus dispatches events to handlers registered for their dynamic type.
type Bus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[reflect.Type][]subscription
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{handlers: make(map[reflect.Type][]subscription)}
}

func (b *Bus) subscribe(t reflect.Type, fn func(context.Context, any)) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.handlers[t] = append(b.handlers[t], subscription{id: id, fn: fn})
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.handlers[t]
		for i, s := range subs {
			if s.id == id {
				subs = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		if len(subs) == 0 {
			delete(b.handlers, t)
		} else {
			b.handlers[t] = subs
		}
	}
}

func (b *Bus) emit(ctx context.Context, e any) {
	t := reflect.TypeOf(e)
	b.mu.RLock()
	subs := append([]subscription(nil), b.handlers[t]...)
	b.mu.RUnlock()
	for _, s := range subs {
		s.fn(ctx, e)
	}
}

var global atomic.Pointer[Bus]

// Use sets the global bus. Passing nil disables event publishing.
func Use(b *Bus) { global.Store(b) }

// Subscribe registers h with the global bus and returns its unsubscribe
// function. Without a global bus it registers nothing.
func Subscribe[T any](h Handler[T]) (unsubscribe func()) {
	b := global.Load()
	if b == nil {
		return func() {}
	}
	t := reflect.TypeOf((*T)(nil)).Elem()
	return b.subscribe(t, func(ctx context.Context, v any) { h(ctx, v.(T)) })
}

// Publish sends e through the global bus.
func Publish[T any](ctx context.Context, e T) {
	if b := global.Load(); b != nil {
		b.emit(ctx, e)
	}
}
