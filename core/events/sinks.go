package events

import (
	"log/slog"
	"sync"

	"lendledger/core/types"
)

// renderer is implemented by payloads that can produce the broadcastable wire
// form.
type renderer interface {
	Event() *types.Event
}

func render(evt Event) *types.Event {
	if r, ok := evt.(renderer); ok {
		if rendered := r.Event(); rendered != nil {
			return rendered
		}
	}
	return &types.Event{Type: evt.EventType(), Attributes: map[string]string{}}
}

// LogEmitter writes every event to the structured logger so off-ledger
// observers can tail the notification stream.
type LogEmitter struct {
	logger *slog.Logger
}

// NewLogEmitter wraps the logger in an emitter. A nil logger uses the default.
func NewLogEmitter(logger *slog.Logger) *LogEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogEmitter{logger: logger}
}

// Emit implements the Emitter interface.
func (e *LogEmitter) Emit(evt Event) {
	rendered := render(evt)
	e.logger.Info("ledger event", "type", rendered.Type, "attributes", rendered.Attributes)
}

// Buffer retains the most recent events in operation order for query surfaces.
// It is append-only from the emitting side; old entries fall off the front
// once the capacity is reached.
type Buffer struct {
	mu       sync.RWMutex
	capacity int
	entries  []*types.Event
}

// NewBuffer creates a ring buffer retaining up to capacity events.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = 256
	}
	return &Buffer{capacity: capacity}
}

// Emit implements the Emitter interface.
func (b *Buffer) Emit(evt Event) {
	rendered := render(evt)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = append(b.entries, rendered)
	if len(b.entries) > b.capacity {
		b.entries = b.entries[len(b.entries)-b.capacity:]
	}
}

// Events returns the retained events in emission order.
func (b *Buffer) Events() []*types.Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*types.Event, len(b.entries))
	copy(out, b.entries)
	return out
}

// MultiEmitter fans events out to several sinks in order.
type MultiEmitter []Emitter

// Emit implements the Emitter interface.
func (m MultiEmitter) Emit(evt Event) {
	for _, emitter := range m {
		if emitter != nil {
			emitter.Emit(evt)
		}
	}
}
