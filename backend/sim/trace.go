// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package sim

import (
	"fmt"
	"sync"
)

// EventKind names a traced device event.
type EventKind string

// Traced events.
const (
	EventDeviceCreate      EventKind = "device-create"
	EventDeviceClose       EventKind = "device-close"
	EventDeviceLost        EventKind = "device-lost"
	EventExecute           EventKind = "execute"
	EventSignal            EventKind = "signal"
	EventWait              EventKind = "wait"
	EventPresent           EventKind = "present"
	EventResize            EventKind = "resize"
	EventDraw              EventKind = "draw"
	EventClear             EventKind = "clear"
	EventRelease           EventKind = "release"
	EventReleaseBackBuffer EventKind = "release-back-buffer"
	EventValidation        EventKind = "validation"
)

// Event is one entry of a Trace.
type Event struct {
	Kind   EventKind
	Device uint64
	// Object names the object involved, such as "fence", "swapchain" or a
	// resource label.
	Object string
	Value  uint64
	Width  uint32
	Height uint32
}

// String formats the event for test failure output.
func (e Event) String() string {
	s := fmt.Sprintf("%s dev=%d", e.Kind, e.Device)
	if e.Object != "" {
		s += " obj=" + e.Object
	}
	if e.Value != 0 {
		s += fmt.Sprintf(" value=%d", e.Value)
	}
	if e.Width != 0 || e.Height != 0 {
		s += fmt.Sprintf(" size=%dx%d", e.Width, e.Height)
	}
	return s
}

// Trace records device events in order. It is safe for concurrent use.
// A nil *Trace records nothing.
type Trace struct {
	mu     sync.Mutex
	events []Event
}

// NewTrace returns an empty trace.
func NewTrace() *Trace { return &Trace{} }

func (t *Trace) add(e Event) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.events = append(t.events, e)
	t.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (t *Trace) Events() []Event {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Event, len(t.events))
	copy(out, t.events)
	return out
}

// Filter returns the recorded events of the given kinds.
func (t *Trace) Filter(kinds ...EventKind) []Event {
	var out []Event
	for _, e := range t.Events() {
		for _, k := range kinds {
			if e.Kind == k {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

// Index returns the position of the first event at or after from that
// matches fn, or -1.
func (t *Trace) Index(from int, fn func(Event) bool) int {
	events := t.Events()
	for i := from; i < len(events); i++ {
		if fn(events[i]) {
			return i
		}
	}
	return -1
}

// Reset drops all recorded events.
func (t *Trace) Reset() {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.events = nil
	t.mu.Unlock()
}
