package clock

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hayabusa-engine/hayabusa/core"
)

func TestGuardCeiling(t *testing.T) {
	cases := []struct {
		name    string
		control Control
		want    time.Duration
	}{
		{"fixed time triples", FixedTime(2 * time.Second), 6 * time.Second},
		{"fixed time floor", FixedTime(100 * time.Millisecond), time.Second},
		{"fischer 90% of larger clock", Fischer(10*time.Second, 8*time.Second, 0), 9 * time.Second},
		{"byoyomi main plus period", Byoyomi(time.Minute, 10*time.Second, 3), 70 * time.Second},
		{"byoyomi overtime", Byoyomi(0, 2*time.Second, 3), 1700 * time.Millisecond},
		{"byoyomi overtime floor", Byoyomi(0, 300*time.Millisecond, 1), 100 * time.Millisecond},
		{"infinite", Infinite(), time.Hour},
		{"fixed nodes", FixedNodes(1 << 20), time.Hour},
		{"ponder before hit", Ponder(FixedTime(time.Second)), time.Hour},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := NewGuard(tc.control, core.Black, nil)
			assert.Equal(t, tc.want, g.Ceiling())
		})
	}
}

func TestGuardPonderHit(t *testing.T) {
	g := NewGuard(Ponder(FixedTime(2*time.Second)), core.Black, nil)
	g.Start()
	require.Equal(t, time.Hour, g.Ceiling())

	g.PonderHit()
	first := g.Ceiling()
	assert.Less(t, first, time.Hour)

	time.Sleep(5 * time.Millisecond)
	g.PonderHit()
	assert.Equal(t, first, g.Ceiling(), "only the first hit recomputes")
}

// watchedStub fakes the shared state for guard tests. It drains a
// configurable number of grace rounds after the stop request.
type watchedStub struct {
	stopped atomic.Bool
	active  atomic.Int64
	info    atomic.Pointer[core.StopInfo]
	wins    atomic.Int64
}

func (w *watchedStub) ShouldStop() bool { return w.stopped.Load() }

func (w *watchedStub) Nodes() uint64 { return 12345 }

func (w *watchedStub) BestDepth() int { return 7 }

func (w *watchedStub) ActiveWorkers() int { return int(w.active.Load()) }

func (w *watchedStub) StopWithInfo(info core.StopInfo) bool {
	w.stopped.Store(true)
	w.active.Store(0)
	if w.info.CompareAndSwap(nil, &info) {
		w.wins.Add(1)
		return true
	}
	return false
}

func TestGuardFiresAtCeiling(t *testing.T) {
	g := NewGuard(Infinite(), core.Black, nil)
	g.Start()
	g.ceiling.Store(int64(10 * time.Millisecond))

	s := &watchedStub{}
	s.active.Store(2)

	done := make(chan struct{})
	go func() {
		g.Run(s)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("guard did not fire")
	}

	info := s.info.Load()
	require.NotNil(t, info)
	assert.Equal(t, core.StopFailSafe, info.Reason)
	assert.True(t, info.HardTimeout)
	assert.Equal(t, uint64(12345), info.Nodes)
	assert.Equal(t, int64(1), s.wins.Load())
}

func TestGuardExitsWhenSearchStops(t *testing.T) {
	g := NewGuard(Infinite(), core.Black, nil)
	g.Start()

	s := &watchedStub{}
	s.stopped.Store(true)

	done := make(chan struct{})
	go func() {
		g.Run(s)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("guard did not exit after the search stopped")
	}
	assert.Nil(t, s.info.Load(), "a stopped search must not be force-stopped")
}
