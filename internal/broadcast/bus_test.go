package broadcast

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type recorder struct {
	mu  sync.Mutex
	got []Intent
}

func (r *recorder) OnReceive(_ context.Context, in Intent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, in)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.got)
}

func TestSendMatchesFilter(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t), nil)
	a, b := &recorder{}, &recorder{}
	require.NoError(t, bus.Register(a, NewFilter("x")))
	require.NoError(t, bus.Register(b, NewFilter("y", "z")))

	n := bus.Send(context.Background(), Intent{Action: "z"})
	assert.Equal(t, 1, n)
	assert.Equal(t, 0, a.count())
	require.Equal(t, 1, b.count())
	assert.NotEmpty(t, b.got[0].ID, "bus assigns an ID")
	assert.False(t, b.got[0].SentAt.IsZero())
}

func TestZeroFilterMatchesNothing(t *testing.T) {
	bus := NewBus(nil, nil)
	r := &recorder{}
	require.NoError(t, bus.Register(r, Filter{}))
	assert.Equal(t, 0, bus.Send(context.Background(), Intent{Action: ""}))
}

func TestRegisterTwice(t *testing.T) {
	bus := NewBus(nil, nil)
	r := &recorder{}
	require.NoError(t, bus.Register(r, NewFilter("x")))
	assert.ErrorIs(t, bus.Register(r, NewFilter("x")), ErrAlreadyRegistered)
	assert.ErrorIs(t, bus.Register(nil, NewFilter("x")), ErrNilReceiver)
}

func TestUnregister(t *testing.T) {
	bus := NewBus(nil, nil)
	r := &recorder{}
	require.NoError(t, bus.Register(r, NewFilter("x")))
	require.NoError(t, bus.Unregister(r))
	assert.ErrorIs(t, bus.Unregister(r), ErrNotRegistered)

	assert.Equal(t, 0, bus.Send(context.Background(), Intent{Action: "x"}))
	assert.Equal(t, 0, r.count())
	assert.Equal(t, 0, bus.Len())
}

func TestReceiverMayUnregisterItself(t *testing.T) {
	bus := NewBus(nil, nil)
	calls := 0
	var fn ReceiverFunc
	fn = func(context.Context, Intent) {
		calls++
		bus.Unregister(&fn)
	}
	require.NoError(t, bus.Register(&fn, NewFilter("x")))

	bus.Send(context.Background(), Intent{Action: "x"})
	bus.Send(context.Background(), Intent{Action: "x"})
	assert.Equal(t, 1, calls)
}

func TestIntentGet(t *testing.T) {
	in := Intent{Extras: Extras{"k": 1}}
	v, ok := in.Get("k")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = Intent{}.Get("k")
	assert.False(t, ok)
}
