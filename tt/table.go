package tt

import (
	"fmt"
	"math/bits"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/hayabusa-engine/hayabusa/core"
)

const (
	// clusterSize is the number of entries sharing one hash index. Four
	// 16-byte entries fill exactly one 64-byte cache line.
	clusterSize = 4

	clusterBytes = clusterSize * 16

	// parallelClearBytes is the table size above which Clear partitions
	// the zeroing across hardware threads. Below it a single pass is
	// cheaper than the fan-out.
	parallelClearBytes = 16 << 20

	// hashfullSampleClusters bounds the prefix Hashfull scans so its
	// latency is independent of the table size.
	hashfullSampleClusters = 1000
)

// cluster groups the entries competing for one index. The low bit of
// the index is forked by side-to-move, so positions differing only in
// the player to move never fight over slots.
type cluster struct {
	entries [clusterSize]entry
}

// Table is the shared transposition table. It persists across searches
// and is mutated concurrently by every worker; only Resize and Clear
// require external quiescence (no search running), matching how the
// surrounding engine sequences commands.
type Table struct {
	clusters     []cluster
	clusterCount uint64
	generation   atomic.Uint32 // low 8 bits are the live generation
}

// New allocates a table of the given size in mebibytes. Allocation
// failure is fatal: there is no fallback size.
func New(mb int) (*Table, error) {
	if mb <= 0 {
		return nil, fmt.Errorf("tt: invalid size %dMB", mb)
	}
	t := &Table{}
	t.allocate(mb)
	return t, nil
}

func (t *Table) allocate(mb int) {
	count := uint64(mb) << 20 / clusterBytes
	count &^= 1 // even, so the side-to-move bit never indexes past the end
	if count < 2 {
		count = 2
	}
	t.clusters = make([]cluster, count)
	t.clusterCount = count
}

// Resize reallocates the backing array, discarding all entries. A
// no-op when the resulting cluster count is unchanged.
func (t *Table) Resize(mb int) error {
	if mb <= 0 {
		return fmt.Errorf("tt: invalid size %dMB", mb)
	}
	count := uint64(mb) << 20 / clusterBytes
	count &^= 1
	if count < 2 {
		count = 2
	}
	if count == t.clusterCount {
		return nil
	}
	t.clusters = make([]cluster, count)
	t.clusterCount = count
	t.generation.Store(0)
	return nil
}

// Clear zeroes every entry and resets the generation. Large tables are
// partitioned across hardware threads; a sequential wipe of a
// multi-gigabyte table would dominate the engine's ready latency.
func (t *Table) Clear() {
	t.generation.Store(0)

	if t.clusterCount*clusterBytes < parallelClearBytes {
		clearRange(t.clusters)
		return
	}

	workers := runtime.GOMAXPROCS(0)
	if workers < 1 {
		workers = 1
	}
	chunk := (int(t.clusterCount) + workers - 1) / workers

	var g errgroup.Group
	for lo := 0; lo < int(t.clusterCount); lo += chunk {
		hi := lo + chunk
		if hi > int(t.clusterCount) {
			hi = int(t.clusterCount)
		}
		part := t.clusters[lo:hi]
		g.Go(func() error {
			clearRange(part)
			return nil
		})
	}
	_ = g.Wait() // workers never return an error
}

func clearRange(cs []cluster) {
	for i := range cs {
		for j := range cs[i].entries {
			cs[i].entries[j].key.Store(0)
			cs[i].entries[j].data.Store(0)
		}
	}
}

// NewSearch advances the generation once per top-level search. Older
// entries become progressively cheaper to evict.
func (t *Table) NewSearch() {
	t.generation.Add(GenerationDelta)
}

// Generation returns the live 8-bit generation value.
func (t *Table) Generation() uint8 {
	return uint8(t.generation.Load()) & generationMask
}

// EntryCount returns the total number of entry slots.
func (t *Table) EntryCount() int {
	return int(t.clusterCount) * clusterSize
}

func (t *Table) clusterIndex(key uint64, stm core.Color) uint64 {
	// Multiply-high maps the full key range uniformly onto the cluster
	// count without requiring a power-of-two size.
	hi, _ := bits.Mul64(key, t.clusterCount)
	return (hi &^ 1) | uint64(stm)
}

// ProbeResult couples the outcome of a lookup with the slot a
// subsequent Write will target. It is valid only until the next probe
// of the same cluster and must not be retained.
type ProbeResult struct {
	// Found reports an exact key match.
	Found bool
	// Data is the decoded entry on a hit, with any stale move already
	// filtered out. Zero-valued on a miss.
	Data Data

	writer *entry
	key    uint64
	table  *Table
}

// Probe looks the position up and, hit or miss, resolves where a write
// for this key would land: on a miss the least valuable slot in the
// cluster (minimizing depth minus relative age) is designated for
// replacement, so lookup and write-slot selection are one pass.
//
// A stored move is revalidated against pos before being surfaced; a
// stale move is reported as MoveNone while the rest of the entry still
// counts as a hit.
func (t *Table) Probe(key uint64, pos core.Position) ProbeResult {
	c := &t.clusters[t.clusterIndex(key, pos.SideToMove())]

	for i := range c.entries {
		e := &c.entries[i]
		if e.key.Load() != key {
			continue
		}
		d := e.data.Load()
		if !dataOccupied(d) {
			continue
		}
		data := decodeData(d)
		if !data.Move.IsNone() && !pos.ValidateMove(data.Move) {
			data.Move = core.MoveNone
		}
		return ProbeResult{Found: true, Data: data, writer: e, key: key, table: t}
	}

	gen := t.Generation()
	replace := &c.entries[0]
	minValue := int(^uint(0) >> 1)
	for i := range c.entries {
		d := c.entries[i].data.Load()
		v := int(dataDepth8(d)) - int(relativeAge(dataGenBound(d), gen))
		if v < minValue {
			minValue = v
			replace = &c.entries[i]
		}
	}
	return ProbeResult{Data: emptyData, writer: replace, key: key, table: t}
}

// Write stores the search result into the slot resolved by the probe.
// Concurrent writers may clobber each other; that is accepted rather
// than paying for compare-and-swap on the hottest path in the engine.
func (p ProbeResult) Write(value core.Value, isPV bool, bound core.Bound, depth int, mv core.Move, eval core.Value) {
	if p.writer == nil {
		return
	}
	if depth < 0 {
		depth = 0
	} else if depth > 253 {
		depth = 253
	}
	p.writer.save(p.key, value, isPV, bound, depth, mv, eval, p.table.Generation())
}

// Hashfull estimates table occupancy in permille, counting only entries
// whose relative age is at most maxAge generations. It samples a
// bounded prefix of clusters so the cost does not grow with the table.
func (t *Table) Hashfull(maxAge uint8) int {
	maxAgeInternal := maxAge << generationBits
	gen := t.Generation()

	sample := uint64(hashfullSampleClusters)
	if sample > t.clusterCount {
		sample = t.clusterCount
	}
	count := 0
	for i := uint64(0); i < sample; i++ {
		for j := range t.clusters[i].entries {
			d := t.clusters[i].entries[j].data.Load()
			if dataOccupied(d) && relativeAge(dataGenBound(d), gen) <= maxAgeInternal {
				count++
			}
		}
	}
	return count * 1000 / (int(sample) * clusterSize)
}

// Prefetch warms the cluster a future probe of key will touch. Issued
// one ply ahead of making a move, it hides the cache miss behind move
// generation. Go exposes no portable prefetch instruction, so this is
// a benign read of the cluster's first word.
func (t *Table) Prefetch(key uint64, stm core.Color) {
	c := &t.clusters[t.clusterIndex(key, stm)]
	_ = c.entries[0].key.Load()
}
