package system

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/corewave/dataflow/internal/component"
	"github.com/corewave/dataflow/internal/events"
	"github.com/corewave/dataflow/internal/graph"
	"github.com/corewave/dataflow/internal/model"
	"github.com/corewave/dataflow/internal/testutil"
	"github.com/corewave/dataflow/internal/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	varA graph.VarID = iota + 1
	varB
	varC
)

func sumSpec(name string) model.ComponentSpec {
	return testutil.SumSpec(name, varA, varB, varC)
}

func TestAddComponentPreservesInsertionOrder(t *testing.T) {
	s := New()
	s.AddComponent("third", component.New(sumSpec("third"), component.Options{}))
	s.AddComponent("first", component.New(sumSpec("first"), component.Options{}))
	s.AddComponent("second", component.New(sumSpec("second"), component.Options{}))

	assert.Equal(t, []string{"third", "first", "second"}, s.Names())
}

func TestAddComponentReplaceKeepsOriginalPosition(t *testing.T) {
	s := New()
	s.AddComponent("a", component.New(sumSpec("a"), component.Options{}))
	s.AddComponent("b", component.New(sumSpec("b"), component.Options{}))
	s.AddComponent("a", component.New(sumSpec("a-v2"), component.Options{}))

	assert.Equal(t, []string{"a", "b"}, s.Names())
	c, err := s.Component("a")
	require.NoError(t, err)
	assert.Equal(t, "a-v2", c.Name())
}

func TestComponentUnknownNameReturnsError(t *testing.T) {
	s := New()
	_, err := s.Component("nope")
	assert.ErrorIs(t, err, ErrUnknownComponent("nope"))
}

func TestSetVariableDispatchesByName(t *testing.T) {
	s := New()
	s.AddComponent("sum", component.New(sumSpec("sum"), component.Options{}))

	require.NoError(t, s.SetVariable("sum", varA, value.Float64(3)))

	err := s.SetVariable("missing", varA, value.Float64(1))
	assert.ErrorIs(t, err, ErrUnknownComponent("missing"))
}

func TestUpdateSolvesEveryComponent(t *testing.T) {
	s := New()
	s.AddComponent("one", component.New(sumSpec("one"), component.Options{}))
	s.AddComponent("two", component.New(sumSpec("two"), component.Options{}))

	require.NoError(t, s.SetVariable("one", varA, value.Float64(2)))
	require.NoError(t, s.SetVariable("one", varB, value.Float64(5)))
	require.NoError(t, s.SetVariable("two", varA, value.Float64(10)))
	require.NoError(t, s.SetVariable("two", varB, value.Float64(1)))

	require.NoError(t, s.Update(context.Background()))

	one, err := s.Component("one")
	require.NoError(t, err)
	cv, _ := cGet(t, one, varC)
	assert.Equal(t, 7.0, cv)

	two, err := s.Component("two")
	require.NoError(t, err)
	cv, _ = cGet(t, two, varC)
	assert.Equal(t, 11.0, cv)
}

func TestUpdateOneComponentFailingDoesNotStopTheOthers(t *testing.T) {
	s := New()
	failing := model.ComponentSpec{
		Name: "failing",
		Variables: []model.VarSpec{
			{ID: varA, Name: "a", Initial: value.Float64(0)},
			{ID: varB, Name: "b", Initial: value.Float64(0)},
		},
		Constraints: []model.ConstraintSpec{{
			ID:   1,
			Name: "pinned-both",
			Methods: []model.MethodSpec{
				{ID: 1, Name: "m", Inputs: []graph.VarID{varA}, Outputs: []graph.VarID{varB},
					Body: func(ctx context.Context, in []value.Value) ([]value.Value, error) { return in, nil }},
			},
		}},
	}

	failingComp := component.New(failing, component.Options{})
	require.NoError(t, failingComp.Pin(varB))

	s.AddComponent("failing", failingComp)
	s.AddComponent("ok", component.New(sumSpec("ok"), component.Options{}))

	require.NoError(t, failingComp.SetVariable(varA, value.Float64(1)))
	require.NoError(t, s.SetVariable("ok", varA, value.Float64(4)))
	require.NoError(t, s.SetVariable("ok", varB, value.Float64(6)))

	err := s.Update(context.Background())
	assert.Error(t, err, "failing's sole method writes a pinned output, which is overconstrained")

	ok, _ := s.Component("ok")
	cv, _ := cGet(t, ok, varC)
	assert.Equal(t, 10.0, cv, "ok must still solve even though failing errored")
}

func TestUpdateInParallelModeReturnsBeforeActivationCompletes(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	slow := model.ComponentSpec{
		Name: "slow",
		Variables: []model.VarSpec{
			{ID: varA, Name: "a", Initial: value.Float64(0)},
			{ID: varB, Name: "b", Initial: value.Float64(0)},
		},
		Constraints: []model.ConstraintSpec{{
			ID:   1,
			Name: "copy",
			Methods: []model.MethodSpec{
				{ID: 1, Name: "m", Inputs: []graph.VarID{varA}, Outputs: []graph.VarID{varB},
					Body: func(ctx context.Context, in []value.Value) ([]value.Value, error) {
						close(started)
						<-release
						return in, nil
					}},
			},
		}},
	}

	s := New()
	s.AddComponent("slow", component.New(slow, component.Options{ThreadPoolSize: 2}))

	require.NoError(t, s.SetVariable("slow", varA, value.Float64(1)))

	done := make(chan error, 1)
	go func() { done <- s.Update(context.Background()) }()

	select {
	case err := <-done:
		require.NoError(t, err)
		<-started // confirm the activation did at least start
	case <-time.After(2 * time.Second):
		t.Fatal("System.Update never returned from a parallel-mode dispatch")
	}
	close(release)
}

func TestSubscribeUnknownComponentReturnsError(t *testing.T) {
	s := New()
	_, _, err := s.Subscribe("nope", events.Wildcard)
	assert.ErrorIs(t, err, ErrUnknownComponent("nope"))
}

func TestListenForwardsEventsAcrossEveryComponent(t *testing.T) {
	s := New()
	s.AddComponent("one", component.New(sumSpec("one"), component.Options{}))
	s.AddComponent("two", component.New(sumSpec("two"), component.Options{}))

	var mu sync.Mutex
	seen := make(map[string]int)
	stop := s.Listen(func(be BridgeEvent) {
		mu.Lock()
		defer mu.Unlock()
		seen[be.Component]++
	})
	defer stop()

	require.NoError(t, s.SetVariable("one", varA, value.Float64(1)))
	require.NoError(t, s.SetVariable("one", varB, value.Float64(2)))
	require.NoError(t, s.SetVariable("two", varA, value.Float64(3)))
	require.NoError(t, s.SetVariable("two", varB, value.Float64(4)))
	require.NoError(t, s.Update(context.Background()))

	waitForSink(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return seen["one"] > 0 && seen["two"] > 0
	})
}

func TestNotifyReplaysEventToOwningComponentSubscribers(t *testing.T) {
	s := New()
	s.AddComponent("one", component.New(sumSpec("one"), component.Options{}))

	one, err := s.Component("one")
	require.NoError(t, err)
	sub, unsub := one.Subscribe(events.Wildcard)
	defer unsub()

	ev := events.Event{Variable: varC, VarName: "c", Generation: 1, Kind: events.KindReady}
	payload, err := events.MarshalEvent(ev)
	require.NoError(t, err)

	require.NoError(t, s.Notify(BridgeEvent{Component: "one", Payload: payload}))

	select {
	case got := <-sub:
		assert.Equal(t, events.KindReady, got.Kind)
		assert.Equal(t, "c", got.VarName)
	default:
		t.Fatal("expected notify to deliver an event to the owning component's subscribers")
	}
}

func TestNotifyUnknownComponentReturnsError(t *testing.T) {
	s := New()
	err := s.Notify(BridgeEvent{Component: "nope"})
	assert.ErrorIs(t, err, ErrUnknownComponent("nope"))
}

func cGet(t *testing.T, c *component.Component, id graph.VarID) (float64, bool) {
	t.Helper()
	v, err := c.Value(id)
	require.NoError(t, err)
	f, ok := v.Float64()
	return f, ok
}

func waitForSink(t *testing.T, ready func() bool) {
	t.Helper()
	for i := 0; i < 1000; i++ {
		if ready() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("timed out waiting for listen sink to observe forwarded events")
}
