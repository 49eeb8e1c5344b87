package dispatch

import (
	"errors"
	"log"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestDispatcher_OrderingTopicThenGlobal(t *testing.T) {
	d := New(testLogger(), 0)
	var mu sync.Mutex
	var order []string

	record := func(name string) Listener {
		return func(Event) {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
		}
	}

	d.SubscribeTopic("p1", record("topic-sync"))
	d.SubscribeTopicAsync("p1", record("topic-async"))
	d.SubscribeGlobal(record("global-sync"))
	d.SubscribeGlobalAsync(record("global-async"))

	d.Dispatch(Event{Type: "x", Project: "p1", Timestamp: time.Now()})

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, order, 4)
	assert.Equal(t, "topic-sync", order[0])
	assert.Equal(t, "topic-async", order[1])
	assert.Equal(t, "global-sync", order[2])
	assert.Equal(t, "global-async", order[3])
}

func TestDispatcher_FailingListenerDoesNotBlockOthers(t *testing.T) {
	d := New(testLogger(), 0)
	called := false

	d.SubscribeGlobal(func(Event) { panic("boom") })
	d.SubscribeGlobal(func(Event) { called = true })

	assert.NotPanics(t, func() {
		d.Dispatch(Event{Type: "x", Project: "p", Timestamp: time.Now()})
	})
	assert.True(t, called)
}

func TestDispatcher_UnsubscribeIsIdempotentAndStopsDelivery(t *testing.T) {
	d := New(testLogger(), 0)
	count := 0
	unsub := d.SubscribeTopic("p1", func(Event) { count++ })

	d.Dispatch(Event{Type: "x", Project: "p1", Timestamp: time.Now()})
	assert.Equal(t, 1, count)

	unsub()
	unsub() // idempotent, must not panic or double-remove anything else

	d.Dispatch(Event{Type: "x", Project: "p1", Timestamp: time.Now()})
	assert.Equal(t, 1, count, "no event delivered after unsubscribe")
}

func TestDispatcher_CoalescesGestureDataWithinInterval(t *testing.T) {
	d := New(testLogger(), 100*time.Millisecond)
	var mu sync.Mutex
	received := 0
	d.SubscribeTopic("p1", func(Event) {
		mu.Lock()
		received++
		mu.Unlock()
	})

	base := time.Now()
	d.Dispatch(Event{Type: "gesture_data", Project: "p1", Timestamp: base})
	d.Dispatch(Event{Type: "gesture_data", Project: "p1", Timestamp: base.Add(10 * time.Millisecond)})
	d.Dispatch(Event{Type: "gesture_data", Project: "p1", Timestamp: base.Add(150 * time.Millisecond)})

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, received, "second event within interval should be dropped")
}

type erroringActuator struct{ name string }

func (e erroringActuator) Name() string          { return e.name }
func (e erroringActuator) Execute(Event) error { return errors.New("actuator exploded") }

func TestActuatorSet_IsolatesFailures(t *testing.T) {
	set := NewActuatorSet(testLogger())
	ran := false
	set.Register(erroringActuator{name: "volume"})
	set.Register(actuatorFunc{name: "cursor", fn: func(Event) error { ran = true; return nil }})

	assert.NotPanics(t, func() {
		set.Run(Event{Type: "gesture_data", Project: "p1", Timestamp: time.Now()})
	})
	assert.True(t, ran)
}

type actuatorFunc struct {
	name string
	fn   func(Event) error
}

func (a actuatorFunc) Name() string        { return a.name }
func (a actuatorFunc) Execute(ev Event) error { return a.fn(ev) }
