package events

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBus(t *testing.T) {
	bus := NewBus()
	require.NotNil(t, bus)
	assert.NotNil(t, bus.subscribers)
}

func TestSubscribeAndPublish(t *testing.T) {
	bus := NewBus()
	ch, unsubscribe := bus.Subscribe("c")
	defer unsubscribe()

	bus.Publish("c", Event{Variable: 1, VarName: "c", Generation: 1, Kind: KindReady})

	select {
	case received := <-ch:
		assert.Equal(t, KindReady, received.Kind)
		assert.Equal(t, int64(1), received.Generation)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for event")
	}
}

func TestWildcardSubscriberReceivesEveryTopic(t *testing.T) {
	bus := NewBus()
	ch, unsubscribe := bus.Subscribe(Wildcard)
	defer unsubscribe()

	bus.Publish("a", Event{Variable: 1, Generation: 1, Kind: KindReady})
	bus.Publish("b", Event{Variable: 2, Generation: 1, Kind: KindReady})

	for i := 0; i < 2; i++ {
		select {
		case <-ch:
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("timeout waiting for event %d", i)
		}
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	ch, unsubscribe := bus.Subscribe("a")

	bus.Publish("a", Event{Variable: 1, Generation: 1, Kind: KindReady})
	select {
	case <-ch:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("should have received event before unsubscribe")
	}

	unsubscribe()

	_, ok := <-ch
	assert.False(t, ok, "channel should be closed after unsubscribe")

	assert.NotPanics(t, func() { bus.Publish("a", Event{Variable: 1, Generation: 2, Kind: KindReady}) })
}

func TestMultipleSubscribersAllReceive(t *testing.T) {
	bus := NewBus()
	ch1, unsub1 := bus.Subscribe("a")
	defer unsub1()
	ch2, unsub2 := bus.Subscribe("a")
	defer unsub2()

	bus.Publish("a", Event{Variable: 1, Generation: 1, Kind: KindReady})

	for i, ch := range []Subscriber{ch1, ch2} {
		select {
		case <-ch:
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("subscriber %d did not receive event", i+1)
		}
	}
}

func TestNoSubscribersDoesNotPanic(t *testing.T) {
	bus := NewBus()
	assert.NotPanics(t, func() { bus.Publish("a", Event{Variable: 1, Generation: 1, Kind: KindReady}) })
}

func TestConsecutiveDuplicateIsSuppressed(t *testing.T) {
	bus := NewBus()
	ch, unsubscribe := bus.Subscribe("a")
	defer unsubscribe()

	e := Event{Variable: 1, Generation: 5, Kind: KindReady}
	bus.Publish("a", e)
	bus.Publish("a", e) // same (variable, generation, kind): must be suppressed

	select {
	case <-ch:
	case <-time.After(50 * time.Millisecond):
		t.Fatal("expected the first publish to be delivered")
	}
	select {
	case got := <-ch:
		t.Fatalf("expected no second delivery, got %+v", got)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestDifferentGenerationIsNotSuppressed(t *testing.T) {
	bus := NewBus()
	ch, unsubscribe := bus.Subscribe("a")
	defer unsubscribe()

	bus.Publish("a", Event{Variable: 1, Generation: 1, Kind: KindReady})
	bus.Publish("a", Event{Variable: 1, Generation: 2, Kind: KindReady})

	for i := 0; i < 2; i++ {
		select {
		case <-ch:
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("expected delivery %d", i)
		}
	}
}

func TestNonBlockingPublishDropsOnSustainedCongestion(t *testing.T) {
	bus := NewBus()
	ch, unsubscribe := bus.Subscribe("a")
	defer unsubscribe()

	for i := 0; i < bufferSize; i++ {
		bus.Publish("a", Event{Variable: 1, Generation: int64(i + 1), Kind: KindReady})
	}

	done := make(chan struct{})
	go func() {
		bus.Publish("a", Event{Variable: 1, Generation: int64(bufferSize + 1), Kind: KindReady})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("publish blocked instead of dropping")
	}
	assert.Equal(t, int64(1), bus.GetDroppedCount())

	for i := 0; i < bufferSize; i++ {
		<-ch
	}
}

func TestResetDroppedCount(t *testing.T) {
	bus := NewBus()
	ch, unsubscribe := bus.Subscribe("a")
	defer unsubscribe()

	for i := 0; i < bufferSize+5; i++ {
		bus.Publish("a", Event{Variable: 1, Generation: int64(i + 1), Kind: KindReady})
	}
	require.Greater(t, bus.GetDroppedCount(), int64(0))

	bus.ResetDroppedCount()
	assert.Equal(t, int64(0), bus.GetDroppedCount())

	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

func TestConcurrentPublishSubscribe(t *testing.T) {
	bus := NewBus()

	const numSubscribers = 5
	const numPublishers = 10

	subs := make([]Subscriber, numSubscribers)
	unsubs := make([]func(), numSubscribers)
	for i := 0; i < numSubscribers; i++ {
		subs[i], unsubs[i] = bus.Subscribe("concurrent")
	}

	var receiveWg sync.WaitGroup
	counts := make([]int, numSubscribers)
	var countMu sync.Mutex
	for i := 0; i < numSubscribers; i++ {
		receiveWg.Add(1)
		go func(idx int, ch Subscriber) {
			defer receiveWg.Done()
			n := 0
			for {
				select {
				case _, ok := <-ch:
					if !ok {
						countMu.Lock()
						counts[idx] = n
						countMu.Unlock()
						return
					}
					n++
				case <-time.After(200 * time.Millisecond):
					countMu.Lock()
					counts[idx] = n
					countMu.Unlock()
					return
				}
			}
		}(i, subs[i])
	}

	var publishWg sync.WaitGroup
	for i := 0; i < numPublishers; i++ {
		publishWg.Add(1)
		go func(n int) {
			defer publishWg.Done()
			bus.Publish("concurrent", Event{Variable: 1, Generation: int64(n + 1), Kind: KindReady})
		}(i)
	}
	publishWg.Wait()
	time.Sleep(50 * time.Millisecond)

	for _, unsub := range unsubs {
		unsub()
	}
	receiveWg.Wait()

	for i, n := range counts {
		assert.Greater(t, n, 0, "subscriber %d received no events", i)
	}
}

func TestMarshalEvent(t *testing.T) {
	data, err := MarshalEvent(Event{Variable: 1, VarName: "c", Generation: 3, Kind: KindReady})
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	assert.Equal(t, byte('{'), data[0])
}

func TestKindStringRoundTrip(t *testing.T) {
	for k, want := range map[Kind]string{
		KindPending: "Pending",
		KindReady:   "Ready",
		KindError:   "Error",
		KindOk:      "Ok",
	} {
		assert.Equal(t, want, k.String())
	}
}
