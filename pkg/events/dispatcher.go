package events

import (
	"context"
	"errors"
	"sync"

	"liyu1981.xyz/plant-care-service/pkg/models"
)

// Handler handles a published event.
type Handler func(ctx context.Context, ev models.Event) error

// ErrNilEvent is returned when a nil event is published.
var ErrNilEvent = errors.New("events: nil event")

type subscription struct {
	id int
	h  Handler
}

// Dispatcher is the in-process fan out of engine events. Handlers subscribe
// to one entity, one event type, or everything.
type Dispatcher struct {
	mu       sync.RWMutex
	nextID   int
	byEntity map[string][]subscription
	byType   map[models.EventType][]subscription
	global   []subscription
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		byEntity: make(map[string][]subscription),
		byType:   make(map[models.EventType][]subscription),
	}
}

func remove(subs []subscription, id int) []subscription {
	out := subs[:0]
	for _, s := range subs {
		if s.id != id {
			out = append(out, s)
		}
	}
	return out
}

// Subscribe registers h for events of one plant, location, zone or sensor.
// The returned func removes the subscription.
func (d *Dispatcher) Subscribe(entityID string, h Handler) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	id := d.nextID
	d.byEntity[entityID] = append(d.byEntity[entityID], subscription{id: id, h: h})
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.byEntity[entityID] = remove(d.byEntity[entityID], id)
		if len(d.byEntity[entityID]) == 0 {
			delete(d.byEntity, entityID)
		}
	}
}

func (d *Dispatcher) SubscribeType(t models.EventType, h Handler) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	id := d.nextID
	d.byType[t] = append(d.byType[t], subscription{id: id, h: h})
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.byType[t] = remove(d.byType[t], id)
	}
}

func (d *Dispatcher) SubscribeAll(h Handler) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	id := d.nextID
	d.global = append(d.global, subscription{id: id, h: h})
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.global = remove(d.global, id)
	}
}

// Publish runs every matching handler in subscription order and returns the
// first handler error. Handlers must not block; slow sinks go through AsyncSink.
func (d *Dispatcher) Publish(ctx context.Context, ev models.Event) error {
	if ev == nil {
		return ErrNilEvent
	}

	d.mu.RLock()
	var handlers []Handler
	for _, s := range d.global {
		handlers = append(handlers, s.h)
	}
	for _, s := range d.byType[ev.EventType()] {
		handlers = append(handlers, s.h)
	}
	for _, s := range d.byEntity[ev.Entity()] {
		handlers = append(handlers, s.h)
	}
	d.mu.RUnlock()

	var firstErr error
	for _, h := range handlers {
		if err := h(ctx, ev); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (d *Dispatcher) PublishAll(ctx context.Context, evs []models.Event) error {
	var firstErr error
	for _, ev := range evs {
		if err := d.Publish(ctx, ev); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
