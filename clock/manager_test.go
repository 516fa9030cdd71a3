package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hayabusa-engine/hayabusa/core"
)

func newTestManager(c Control, overhead time.Duration) *Manager {
	m := NewManager(c, core.Black, overhead, nil)
	m.Start()
	return m
}

func TestManagerStates(t *testing.T) {
	m := NewManager(FixedTime(10*time.Second), core.Black, 0, nil)
	assert.Equal(t, StateIdle, m.State())

	m.Start()
	assert.Equal(t, StatePolling, m.State())

	m.Stop()
	assert.Equal(t, StateStopped, m.State())
	assert.Equal(t, FinalizeManagerStop, m.Cause())
	assert.True(t, m.ShouldStop(0))
}

func TestManagerNoEarlyStop(t *testing.T) {
	m := newTestManager(FixedTime(10*time.Second), 0)

	assert.False(t, m.ShouldStop(1_000_000))
	assert.True(t, m.ContinueIteration())
}

func TestManagerHardStop(t *testing.T) {
	m := newTestManager(FixedTime(120*time.Millisecond), 0)

	time.Sleep(150 * time.Millisecond)

	// Too few nodes: the clock reading is not trusted yet.
	assert.False(t, m.ShouldStop(50))

	require.True(t, m.ShouldStop(10_000))
	assert.Equal(t, FinalizeHard, m.Cause())
	assert.Equal(t, StateStopped, m.State())
}

func TestManagerNodeLimit(t *testing.T) {
	m := newTestManager(FixedNodes(5000), 0)

	assert.False(t, m.ShouldStop(4999))
	require.True(t, m.ShouldStop(5000))
	assert.Equal(t, FinalizeNodes, m.Cause())
}

func TestManagerInfinite(t *testing.T) {
	m := newTestManager(Infinite(), 0)

	assert.False(t, m.ShouldStop(1<<40))
	assert.True(t, m.ContinueIteration())
}

func TestScheduleStopRounding(t *testing.T) {
	overhead := 30 * time.Millisecond
	m := newTestManager(FixedTime(10*time.Second), overhead)

	// Past the optimal threshold at 1.234s the stop lands on the next
	// whole second minus the overhead.
	m.scheduleStop(1234*time.Millisecond, m.HardLimit())
	assert.Equal(t, 2*time.Second-overhead, m.PlannedEnd())
	assert.Equal(t, StateNearLimit, m.State())

	// Earlier advice tightens the plan.
	m.scheduleStop(500*time.Millisecond, m.HardLimit())
	assert.Equal(t, time.Second-overhead, m.PlannedEnd())

	// Later advice never loosens it.
	m.scheduleStop(2500*time.Millisecond, m.HardLimit())
	assert.Equal(t, time.Second-overhead, m.PlannedEnd())
}

func TestScheduleStopCappedByMargin(t *testing.T) {
	m := newTestManager(FixedTime(10*time.Second), 0)
	hard := m.HardLimit()

	// Near the wall the whole-second rounding would overshoot; the
	// plan is clamped to the hard limit minus the safety margin.
	m.scheduleStop(hard-1500*time.Millisecond, hard)
	assert.Equal(t, hard-safetyMargin(hard), m.PlannedEnd())
}

func TestAdviseAfterIteration(t *testing.T) {
	t.Run("plenty of budget", func(t *testing.T) {
		m := newTestManager(FixedTime(10*time.Second), 0)
		m.AdviseAfterIteration(time.Millisecond)
		assert.Equal(t, noLimit, m.PlannedEnd())
	})

	t.Run("next iteration will not fit", func(t *testing.T) {
		m := newTestManager(FixedTime(10*time.Second), 0)
		m.AdviseAfterIteration(5 * time.Second)
		assert.Less(t, m.PlannedEnd(), noLimit)
	})

	t.Run("unbounded control ignores advice", func(t *testing.T) {
		m := newTestManager(Infinite(), 0)
		m.AdviseAfterIteration(time.Hour)
		assert.Equal(t, noLimit, m.PlannedEnd())
	})
}

func TestPonderHit(t *testing.T) {
	m := newTestManager(Ponder(FixedTime(time.Second)), 0)

	assert.False(t, m.ShouldStop(1<<30), "pondering has no clock")
	require.Equal(t, noLimit, m.HardLimit())

	m.PonderHit()
	first := m.HardLimit()
	assert.Less(t, first, noLimit)

	// Only the first hit converts.
	time.Sleep(5 * time.Millisecond)
	m.PonderHit()
	assert.Equal(t, first, m.HardLimit())
}

func TestByoyomiFinishMove(t *testing.T) {
	m := newTestManager(Byoyomi(0, time.Second, 3), 0)

	// Finishing inside the period resets it without consuming one.
	m.FinishMove(500 * time.Millisecond)
	periods, current := m.PeriodsLeft()
	assert.Equal(t, 3, periods)
	assert.Equal(t, time.Second, current)

	// Spending exactly one period consumes one and resets the clock.
	m.FinishMove(time.Second)
	periods, current = m.PeriodsLeft()
	assert.Equal(t, 2, periods)
	assert.Equal(t, time.Second, current)

	// Overrunning every remaining period forfeits the clock.
	m.FinishMove(3500 * time.Millisecond)
	periods, current = m.PeriodsLeft()
	assert.Equal(t, 0, periods)
	assert.Equal(t, time.Duration(0), current)
	assert.True(t, m.ShouldStop(10_000))
	assert.Equal(t, FinalizeByoyomi, m.Cause())
}

func TestPollInterval(t *testing.T) {
	cases := []struct {
		soft time.Duration
		want time.Duration
	}{
		{50 * time.Millisecond, 2 * time.Millisecond},
		{300 * time.Millisecond, 5 * time.Millisecond},
		{time.Second, 10 * time.Millisecond},
		{time.Minute, 20 * time.Millisecond},
	}
	for _, tc := range cases {
		m := &Manager{}
		m.soft.Store(int64(tc.soft))
		assert.Equal(t, tc.want, m.pollInterval(), "soft=%v", tc.soft)
	}

	// An explicit granularity overrides the adaptive tiers.
	m := &Manager{}
	m.soft.Store(int64(time.Minute))
	m.SetPollInterval(3 * time.Millisecond)
	assert.Equal(t, 3*time.Millisecond, m.pollInterval())
	m.SetPollInterval(0)
	assert.Equal(t, 20*time.Millisecond, m.pollInterval())
}
