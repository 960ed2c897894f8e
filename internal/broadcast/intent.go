package broadcast

import (
	"context"
	"time"
)

// Extras is the loosely typed payload attached to an intent. Receivers must
// decode the values they need; nothing guarantees their presence or type.
type Extras map[string]any

// Intent is one event published on the bus.
type Intent struct {
	ID     string
	Action string
	Extras Extras
	SentAt time.Time
}

// Get returns the extra stored under key, if any.
func (in Intent) Get(key string) (any, bool) {
	if in.Extras == nil {
		return nil, false
	}
	v, ok := in.Extras[key]
	return v, ok
}

// Filter restricts delivery to intents whose action is in the set.
// The zero Filter matches nothing.
type Filter struct {
	actions map[string]struct{}
}

// NewFilter returns a filter accepting the given actions.
func NewFilter(actions ...string) Filter {
	f := Filter{actions: make(map[string]struct{}, len(actions))}
	for _, a := range actions {
		f.actions[a] = struct{}{}
	}
	return f
}

// Matches reports whether action is accepted by the filter.
func (f Filter) Matches(action string) bool {
	_, ok := f.actions[action]
	return ok
}

// Actions returns the accepted actions in no particular order.
func (f Filter) Actions() []string {
	out := make([]string, 0, len(f.actions))
	for a := range f.actions {
		out = append(out, a)
	}
	return out
}

// Receiver is invoked by the bus for every matching intent, on the goroutine
// that called Send. Implementations must be comparable (typically pointers)
// because the bus uses them as registration handles.
type Receiver interface {
	OnReceive(ctx context.Context, in Intent)
}

// ReceiverFunc adapts a plain function to Receiver. A ReceiverFunc value is not
// comparable, so register a pointer to it.
type ReceiverFunc func(ctx context.Context, in Intent)

func (f *ReceiverFunc) OnReceive(ctx context.Context, in Intent) { (*f)(ctx, in) }
