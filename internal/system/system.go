// Package system implements the constraint system (spec.md §4.H): the
// top-level object a host embeds. It aggregates named components,
// dispatches set_variable/subscribe calls by component name, and runs
// batch update/solve across all of them in insertion order. It also
// carries the host bridge (spec.md §5, §9 "listen"/"notify") that lets
// an external runtime marshal events across a thread or worker
// boundary and reinject them on the owning component.
package system

import (
	"context"
	"fmt"
	"sync"

	"github.com/corewave/dataflow/internal/component"
	"github.com/corewave/dataflow/internal/events"
	"github.com/corewave/dataflow/internal/graph"
	"github.com/corewave/dataflow/internal/value"
)

// ErrUnknownComponent is returned by any dispatch naming a component
// that was never registered.
type ErrUnknownComponent string

func (e ErrUnknownComponent) Error() string {
	return fmt.Sprintf("system: unknown component %q", string(e))
}

// BridgeEvent is the serializable shape the host bridge moves across a
// thread or worker boundary (spec.md §9: "{component, variable,
// generation, kind, payload}").
type BridgeEvent struct {
	Component string
	Payload   []byte
}

// System aggregates components keyed by name, preserving the order
// they were added so batch update/solve runs deterministically.
type System struct {
	mu         sync.Mutex
	order      []string
	components map[string]*component.Component

	sinksMu sync.Mutex
}

// New returns an empty constraint system.
func New() *System {
	return &System{components: make(map[string]*component.Component)}
}

// AddComponent registers a component under a name. Re-registering an
// existing name replaces it and keeps its original position in the
// insertion order.
func (s *System) AddComponent(name string, c *component.Component) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.components[name]; !exists {
		s.order = append(s.order, name)
	}
	s.components[name] = c
}

// Component returns the named component.
func (s *System) Component(name string) (*component.Component, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.components[name]
	if !ok {
		return nil, ErrUnknownComponent(name)
	}
	return c, nil
}

// Names returns the registered component names in insertion order.
func (s *System) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// SetVariable dispatches set_variable(component, name, v) to the named
// component (spec.md §4.H).
func (s *System) SetVariable(componentName string, id graph.VarID, v value.Value) error {
	c, err := s.Component(componentName)
	if err != nil {
		return err
	}
	return c.SetVariable(id, v)
}

// Pin dispatches pin(component, name) to the named component.
func (s *System) Pin(componentName string, id graph.VarID) error {
	c, err := s.Component(componentName)
	if err != nil {
		return err
	}
	return c.Pin(id)
}

// Unpin dispatches unpin(component, name) to the named component.
func (s *System) Unpin(componentName string, id graph.VarID) error {
	c, err := s.Component(componentName)
	if err != nil {
		return err
	}
	return c.Unpin(id)
}

// Subscribe dispatches subscribe(component, name, ...) to the named
// component (spec.md §4.H).
func (s *System) Subscribe(componentName, topic string) (events.Subscriber, func(), error) {
	c, err := s.Component(componentName)
	if err != nil {
		return nil, nil, err
	}
	sub, unsub := c.Subscribe(topic)
	return sub, unsub, nil
}

// Update solves every registered component in insertion order. Each
// component is independent: one component's overconstrained or cyclic
// failure does not stop the rest from being solved, but its error is
// returned (joined, if more than one component failed) once the whole
// batch has run. A component configured with ThreadPoolSize > 0
// dispatches and returns immediately (spec.md §5) — for such a
// component, Update reports only whether dispatch itself failed
// (planning errors), not the activations' eventual outcome, which
// arrives later as events.
func (s *System) Update(ctx context.Context) error {
	var errs []error
	for _, name := range s.Names() {
		c, err := s.Component(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := c.Update(ctx); err != nil {
			errs = append(errs, fmt.Errorf("component %q: %w", name, err))
		}
	}
	return joinErrors(errs)
}

// Solve is a synonym for Update (spec.md §4.H).
func (s *System) Solve(ctx context.Context) error { return s.Update(ctx) }

// Listen registers an outbound sink that receives a marshalled copy of
// every event published by every currently-registered component
// (spec.md §9 host bridge). It returns a function that stops
// forwarding to this sink. Components added after Listen is called are
// not retroactively wired; call Listen again (or call it after all
// components are registered) to cover them.
func (s *System) Listen(sink func(BridgeEvent)) func() {
	s.sinksMu.Lock()
	defer s.sinksMu.Unlock()

	var stopFns []func()
	for _, name := range s.Names() {
		c, err := s.Component(name)
		if err != nil {
			continue
		}
		sub, unsub := c.Subscribe(events.Wildcard)
		stopFns = append(stopFns, unsub)

		stop := make(chan struct{})
		stopFns = append(stopFns, func() { close(stop) })
		go forward(name, sub, stop, sink)
	}

	stopped := false
	return func() {
		s.sinksMu.Lock()
		defer s.sinksMu.Unlock()
		if stopped {
			return
		}
		stopped = true
		for _, fn := range stopFns {
			fn()
		}
	}
}

func forward(componentName string, sub events.Subscriber, stop chan struct{}, sink func(BridgeEvent)) {
	for {
		select {
		case ev, ok := <-sub:
			if !ok {
				return
			}
			payload, err := events.MarshalEvent(ev)
			if err != nil {
				continue
			}
			sink(BridgeEvent{Component: componentName, Payload: payload})
		case <-stop:
			return
		}
	}
}

// Notify reinjects a serialized event back onto its owning component
// so that a worker-side completion reaches the subscribers that
// originated it (spec.md §9 host bridge). It does not re-run any
// activation or touch the variable store — it is a pure notification
// replay.
func (s *System) Notify(be BridgeEvent) error {
	c, err := s.Component(be.Component)
	if err != nil {
		return err
	}
	ev, err := events.UnmarshalEvent(be.Payload)
	if err != nil {
		return err
	}
	c.Rebroadcast(ev)
	return nil
}

func joinErrors(errs []error) error {
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		msg := fmt.Sprintf("%d components failed: %v", len(errs), errs[0])
		return fmt.Errorf("%s (and %d more)", msg, len(errs)-1)
	}
}
