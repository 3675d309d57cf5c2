// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package event

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// DefaultChannelBuffer is the buffer of channels returned by Subscribe
	DefaultChannelBuffer = 32
	asyncQueueSize       = 1024
	asyncWorkers         = 2
)

type EventType string

type EventSubscriberId uint64

type EventHandlerFunc func(Event)

type Event struct {
	Timestamp time.Time
	Data      any
	Type      EventType
}

func NewEvent(eventType EventType, eventData any) Event {
	return NewEventAt(eventType, time.Now(), eventData)
}

// NewEventAt creates an event stamped with the given time
func NewEventAt(eventType EventType, ts time.Time, eventData any) Event {
	return Event{
		Type:      eventType,
		Timestamp: ts,
		Data:      eventData,
	}
}

// Subscriber receives published events. Deliver returning an error drops
// the subscriber from the bus. Close must be idempotent.
type Subscriber interface {
	Deliver(Event) error
	Close()
}

// subscription binds a subscriber to the event types it follows. An empty
// type list follows every type.
type subscription struct {
	sub   Subscriber
	types []EventType
	kind  string
}

func (s *subscription) follows(eventType EventType) bool {
	return len(s.types) == 0 || slices.Contains(s.types, eventType)
}

// EventBus fans published events out to subscribers
type EventBus struct {
	logger   *slog.Logger
	metrics  *eventMetrics
	subs     map[EventSubscriberId]*subscription
	queue    chan Event
	stopped  chan struct{}
	workers  sync.WaitGroup
	mu       sync.RWMutex
	stopOnce sync.Once
	lastId   EventSubscriberId
}

// NewEventBus creates an EventBus and starts the workers behind PublishAsync
func NewEventBus(
	promRegistry prometheus.Registerer,
	logger *slog.Logger,
) *EventBus {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	e := &EventBus{
		logger:  logger.With("component", "event"),
		subs:    make(map[EventSubscriberId]*subscription),
		queue:   make(chan Event, asyncQueueSize),
		stopped: make(chan struct{}),
	}
	if promRegistry != nil {
		e.metrics = initMetrics(promRegistry)
	}
	e.workers.Add(asyncWorkers)
	for range asyncWorkers {
		go func() {
			defer e.workers.Done()
			for {
				select {
				case <-e.stopped:
					return
				case evt := <-e.queue:
					e.Publish(evt.Type, evt)
				}
			}
		}()
	}
	return e
}

// chanSubscriber feeds a buffered channel and blocks the publisher while it
// is full
type chanSubscriber struct {
	ch     chan Event
	mu     sync.RWMutex
	closed bool
}

func (c *chanSubscriber) Deliver(evt Event) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.closed {
		c.ch <- evt
	}
	return nil
}

func (c *chanSubscriber) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.ch)
	}
}

// Subscribe returns a channel receiving events of the given types, or of
// every type when none are given. The channel closes on Unsubscribe or Stop.
func (e *EventBus) Subscribe(
	types ...EventType,
) (EventSubscriberId, <-chan Event) {
	sub := &chanSubscriber{ch: make(chan Event, DefaultChannelBuffer)}
	return e.register(sub, "channel", types), sub.ch
}

// SubscribeFunc runs handlerFunc on its own goroutine for each event of the
// given type. Once the handler falls DefaultChannelBuffer events behind,
// Publish blocks until it catches up. Domain events are published from
// commit hooks while the vault is still locked, so a slow handler on those
// types holds up further operations on the vault.
func (e *EventBus) SubscribeFunc(
	eventType EventType,
	handlerFunc EventHandlerFunc,
) EventSubscriberId {
	subId, evtCh := e.Subscribe(eventType)
	go func() {
		for evt := range evtCh {
			handlerFunc(evt)
		}
	}()
	return subId
}

// RegisterSubscriber adds a caller-provided Subscriber for the given types,
// or for every type when none are given
func (e *EventBus) RegisterSubscriber(
	sub Subscriber,
	types ...EventType,
) EventSubscriberId {
	return e.register(sub, "external", types)
}

func (e *EventBus) register(
	sub Subscriber,
	kind string,
	types []EventType,
) EventSubscriberId {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastId++
	e.subs[e.lastId] = &subscription{
		sub:   sub,
		types: slices.Clone(types),
		kind:  kind,
	}
	if e.metrics != nil {
		e.metrics.subscribers.WithLabelValues(kind).Inc()
	}
	return e.lastId
}

// Unsubscribe removes a subscriber and closes it. Unknown ids are ignored.
func (e *EventBus) Unsubscribe(subId EventSubscriberId) {
	e.mu.Lock()
	s, ok := e.subs[subId]
	if ok {
		delete(e.subs, subId)
		if e.metrics != nil {
			e.metrics.subscribers.WithLabelValues(s.kind).Dec()
		}
	}
	e.mu.Unlock()
	if ok {
		s.sub.Close()
	}
}

// Publish delivers an event to every subscriber following its type, in the
// calling goroutine
func (e *EventBus) Publish(eventType EventType, evt Event) {
	type target struct {
		id EventSubscriberId
		s  *subscription
	}
	e.mu.RLock()
	targets := make([]target, 0, len(e.subs))
	for id, s := range e.subs {
		if s.follows(eventType) {
			targets = append(targets, target{id: id, s: s})
		}
	}
	e.mu.RUnlock()
	for _, t := range targets {
		if err := deliver(t.s.sub, evt); err != nil {
			e.Unsubscribe(t.id)
			if e.metrics != nil {
				e.metrics.deliveryErrors.WithLabelValues(string(eventType), t.s.kind).Inc()
			}
			e.logger.Debug(
				"dropped subscriber after failed delivery",
				"type", eventType,
				"subscriber", t.id,
				"error", err,
			)
		}
	}
	if e.metrics != nil {
		e.metrics.eventsTotal.WithLabelValues(string(eventType)).Inc()
	}
}

func deliver(sub Subscriber, evt Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("subscriber panicked: %v", r)
		}
	}()
	return sub.Deliver(evt)
}

// PublishAsync queues an event for the bus workers. It reports false when
// the bus is stopped or the queue is full.
func (e *EventBus) PublishAsync(eventType EventType, evt Event) bool {
	evt.Type = eventType
	select {
	case <-e.stopped:
		return false
	default:
	}
	select {
	case e.queue <- evt:
		return true
	default:
		e.logger.Warn("async event queue full, dropping event", "type", eventType)
		if e.metrics != nil {
			e.metrics.deliveryErrors.WithLabelValues(string(eventType), "async").Inc()
		}
		return false
	}
}

// Stop halts the workers and closes every subscriber, which also ends the
// goroutines started by SubscribeFunc
func (e *EventBus) Stop() {
	e.stopOnce.Do(func() {
		close(e.stopped)
		e.workers.Wait()
		e.mu.Lock()
		subs := e.subs
		e.subs = make(map[EventSubscriberId]*subscription)
		e.mu.Unlock()
		for _, s := range subs {
			s.sub.Close()
		}
		if e.metrics != nil {
			e.metrics.subscribers.Reset()
		}
	})
}
