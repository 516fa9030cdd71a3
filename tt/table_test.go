package tt_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hayabusa-engine/hayabusa/core"
	"github.com/hayabusa-engine/hayabusa/testutil"
	"github.com/hayabusa-engine/hayabusa/tt"
)

func TestNew(t *testing.T) {
	t.Run("valid size", func(t *testing.T) {
		table, err := tt.New(1)
		require.NoError(t, err)
		require.NotNil(t, table)
	})

	t.Run("invalid size", func(t *testing.T) {
		_, err := tt.New(0)
		require.Error(t, err)

		_, err = tt.New(-4)
		require.Error(t, err)
	})
}

func TestProbeWriteRoundtrip(t *testing.T) {
	table, err := tt.New(1)
	require.NoError(t, err)

	board := testutil.NewBoard(0xDEADBEEFCAFE1234)
	key := board.Hash()

	probe := table.Probe(key, board)
	require.False(t, probe.Found)

	mv := core.Move(0x1A2B)
	probe.Write(123, true, core.BoundExact, 14, mv, -45)

	probe = table.Probe(key, board)
	require.True(t, probe.Found)
	assert.Equal(t, mv, probe.Data.Move)
	assert.Equal(t, core.Value(123), probe.Data.Value)
	assert.Equal(t, core.Value(-45), probe.Data.Eval)
	assert.Equal(t, 14, probe.Data.Depth)
	assert.Equal(t, core.BoundExact, probe.Data.Bound)
	assert.True(t, probe.Data.IsPV)
}

func TestSideToMoveSeparation(t *testing.T) {
	table, err := tt.New(1)
	require.NoError(t, err)

	key := uint64(0x0123456789ABCDEF)
	black := &testutil.Board{Key: key, Side: core.Black}
	white := &testutil.Board{Key: key, Side: core.White}

	probe := table.Probe(key, black)
	require.False(t, probe.Found)
	probe.Write(77, false, core.BoundLower, 9, core.Move(42), 77)

	// Same key for the other side lands in a different cluster.
	probe = table.Probe(key, white)
	assert.False(t, probe.Found)

	probe = table.Probe(key, black)
	assert.True(t, probe.Found)
}

func TestStaleMoveFiltered(t *testing.T) {
	table, err := tt.New(1)
	require.NoError(t, err)

	board := testutil.NewBoard(0x55AA55AA55AA55AA)
	probe := table.Probe(board.Hash(), board)
	probe.Write(10, false, core.BoundExact, 5, core.Move(99), 10)

	board.Valid = func(core.Move) bool { return false }
	probe = table.Probe(board.Hash(), board)
	require.True(t, probe.Found)
	assert.True(t, probe.Data.Move.IsNone())
}

func TestClear(t *testing.T) {
	table, err := tt.New(1)
	require.NoError(t, err)

	for i := uint64(1); i <= 2048; i++ {
		board := testutil.NewBoard(i * 0x9E3779B97F4A7C15)
		probe := table.Probe(board.Hash(), board)
		probe.Write(core.Value(i), false, core.BoundExact, 3, core.Move(i), 0)
	}
	require.Greater(t, table.Hashfull(0), 0)

	table.Clear()

	assert.Equal(t, 0, table.Hashfull(0))
	board := testutil.NewBoard(0x9E3779B97F4A7C15)
	assert.False(t, table.Probe(board.Hash(), board).Found)
}

func TestGenerationAdvances(t *testing.T) {
	table, err := tt.New(1)
	require.NoError(t, err)

	initial := table.Generation()
	for i := 1; i <= 40; i++ {
		table.NewSearch()
		want := uint8(int(initial)+i*tt.GenerationDelta) &^ (tt.GenerationDelta - 1)
		assert.Equal(t, want, table.Generation())
	}
}

func TestGenerationAging(t *testing.T) {
	table, err := tt.New(1)
	require.NoError(t, err)

	// Keys of the form i<<50 land in distinct clusters inside the
	// sampled prefix, so the occupancy estimate sees every entry.
	for i := uint64(1); i <= 256; i++ {
		board := testutil.NewBoard(i << 50)
		probe := table.Probe(board.Hash(), board)
		probe.Write(1, false, core.BoundExact, 3, core.Move(1), 1)
	}

	require.Greater(t, table.Hashfull(0), 0)

	table.NewSearch()
	assert.Equal(t, 0, table.Hashfull(0), "aged entry must not count as current")
	assert.Greater(t, table.Hashfull(1), 0, "aged entry counts within one generation")

	// The generation counter wraps after 32 searches; the entry reads
	// as current again.
	for i := 0; i < 31; i++ {
		table.NewSearch()
	}
	assert.Greater(t, table.Hashfull(0), 0)
}

func TestShallowWriteKeepsDeepEntry(t *testing.T) {
	table, err := tt.New(1)
	require.NoError(t, err)

	board := testutil.NewBoard(0xABCDEF0123456789)
	key := board.Hash()

	probe := table.Probe(key, board)
	probe.Write(100, false, core.BoundLower, 20, core.Move(7), 100)

	// A much shallower non-exact write for the same key must not
	// replace the deep entry.
	probe = table.Probe(key, board)
	probe.Write(5, false, core.BoundUpper, 2, core.Move(8), 5)

	probe = table.Probe(key, board)
	require.True(t, probe.Found)
	// The incumbent survives but decays one ply so it cannot squat
	// forever.
	assert.Equal(t, 19, probe.Data.Depth)
	assert.Equal(t, core.Move(7), probe.Data.Move)
	assert.Equal(t, core.Value(100), probe.Data.Value)
}

func TestExactAlwaysReplaces(t *testing.T) {
	table, err := tt.New(1)
	require.NoError(t, err)

	board := testutil.NewBoard(0x1111222233334444)
	key := board.Hash()

	probe := table.Probe(key, board)
	probe.Write(100, false, core.BoundLower, 20, core.Move(7), 100)

	probe = table.Probe(key, board)
	probe.Write(5, false, core.BoundExact, 2, core.Move(8), 5)

	probe = table.Probe(key, board)
	require.True(t, probe.Found)
	assert.Equal(t, 2, probe.Data.Depth)
	assert.Equal(t, core.Move(8), probe.Data.Move)
}

func TestResize(t *testing.T) {
	table, err := tt.New(1)
	require.NoError(t, err)

	board := testutil.NewBoard(0x2468ACE13579BDF0)
	probe := table.Probe(board.Hash(), board)
	probe.Write(1, false, core.BoundExact, 1, core.Move(1), 1)

	require.NoError(t, table.Resize(2))
	assert.Equal(t, 0, table.Hashfull(0))

	require.Error(t, table.Resize(0))
}

func TestConcurrentAccess(t *testing.T) {
	table, err := tt.New(4)
	require.NoError(t, err)

	const (
		goroutines = 8
		keysEach   = 2048
	)

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			base := uint64(g)<<32 | 1
			for i := uint64(0); i < keysEach; i++ {
				key := (base + i) * 0x9E3779B97F4A7C15
				board := testutil.NewBoard(key)
				probe := table.Probe(key, board)
				probe.Write(core.Value(g), false, core.BoundExact, 8, core.Move(g+1), core.Value(i&0x7FFF))
				table.Prefetch(key, board.SideToMove())
			}
			// Re-probe: hits must carry exactly what this goroutine
			// wrote, even with seven other writers hammering the
			// same clusters. Evicted keys simply miss.
			for i := uint64(0); i < keysEach; i++ {
				key := (base + i) * 0x9E3779B97F4A7C15
				board := testutil.NewBoard(key)
				probe := table.Probe(key, board)
				if !probe.Found {
					continue
				}
				if probe.Data.Value != core.Value(g) || probe.Data.Move != core.Move(g+1) {
					t.Errorf("goroutine %d: foreign data under own key: %+v", g, probe.Data)
					return
				}
			}
		}(g)
	}
	wg.Wait()
}
