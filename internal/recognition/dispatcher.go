package recognition

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"wordcast/internal/domain"
)

// Dispatcher is the listener registry shared by engine adapters. Listeners are
// called serially in subscription order from the goroutine that calls Emit.
type Dispatcher struct {
	log *zap.Logger

	mu        sync.Mutex
	nextID    uint64
	listeners []listener
}

type listener struct {
	id      uint64
	handler func(domain.RecognitionEvent)
}

func NewDispatcher(log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{log: log}
}

// Subscribe registers handler and returns a func that removes it again.
func (d *Dispatcher) Subscribe(handler func(domain.RecognitionEvent)) func() {
	if handler == nil {
		return func() {}
	}

	d.mu.Lock()
	d.nextID++
	id := d.nextID
	d.listeners = append(d.listeners, listener{id: id, handler: handler})
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { d.remove(id) })
	}
}

// RemoveAllListeners drops every registered handler.
func (d *Dispatcher) RemoveAllListeners() {
	d.mu.Lock()
	d.listeners = nil
	d.mu.Unlock()
}

// Len reports the number of registered handlers.
func (d *Dispatcher) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.listeners)
}

// Emit delivers event to a snapshot of the current listeners.
func (d *Dispatcher) Emit(event domain.RecognitionEvent) {
	d.mu.Lock()
	snapshot := make([]listener, len(d.listeners))
	copy(snapshot, d.listeners)
	d.mu.Unlock()

	for _, l := range snapshot {
		d.deliver(l, event)
	}
}

func (d *Dispatcher) deliver(l listener, event domain.RecognitionEvent) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Warn("recognition listener failed; event dropped",
				zap.String("kind", string(event.Kind)),
				zap.String("panic", fmt.Sprint(r)),
			)
		}
	}()
	l.handler(event)
}

func (d *Dispatcher) remove(id uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, l := range d.listeners {
		if l.id == id {
			d.listeners = append(d.listeners[:i:i], d.listeners[i+1:]...)
			return
		}
	}
}
