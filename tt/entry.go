// Package tt implements the shared transposition table: a fixed-size,
// cache-line-clustered map from position hash to the best known search
// result. All workers probe and write it concurrently without a table
// lock; lost updates between racing writers are tolerated by design of
// the search, which treats the table as a best-effort cache.
package tt

import (
	"sync/atomic"

	"github.com/hayabusa-engine/hayabusa/core"
)

const (
	// generationBits is the number of low bits of genBound8 occupied by
	// the pv flag and the bound, leaving 5 bits of generation.
	generationBits = 3
	// GenerationDelta is the amount the generation counter advances per
	// top-level search. It must be 1 << generationBits so bound and pv
	// bits never bleed into the age arithmetic.
	GenerationDelta = 1 << generationBits

	generationCycle = 255 + GenerationDelta
	generationMask  = (0xFF << generationBits) & 0xFF
)

// entry is a single table slot: two 8-byte words read and written
// atomically but independently. A racing writer pair can interleave a
// key from one write with data from another; probes detect only key
// mismatches, so such a torn pair surfaces as a miss or a clobbered
// entry, both of which the search tolerates.
//
// data word layout:
//
//	[63:48] move16
//	[47:32] value16
//	[31:16] eval16
//	[15:8]  depth8 (stored depth+1; 0 means empty)
//	[7:0]   generation(5) | pv(1) | bound(2)
type entry struct {
	key  atomic.Uint64
	data atomic.Uint64
}

func packData(mv core.Move, value, eval core.Value, depth int, genBound uint8) uint64 {
	return uint64(uint16(mv))<<48 |
		uint64(uint16(int16(value)))<<32 |
		uint64(uint16(int16(eval)))<<16 |
		uint64(uint8(depth+1))<<8 |
		uint64(genBound)
}

func dataMove(d uint64) core.Move   { return core.Move(d >> 48) }
func dataValue(d uint64) core.Value { return core.Value(int16(d >> 32)) }
func dataEval(d uint64) core.Value  { return core.Value(int16(d >> 16)) }
func dataDepth8(d uint64) uint8     { return uint8(d >> 8) }
func dataDepth(d uint64) int        { return int(uint8(d>>8)) - 1 }
func dataGenBound(d uint64) uint8   { return uint8(d) }
func dataBound(d uint64) core.Bound { return core.Bound(d & 0x3) }
func dataIsPV(d uint64) bool        { return d&0x4 != 0 }
func dataOccupied(d uint64) bool    { return uint8(d>>8) != 0 }

// relativeAge is the distance, in generation steps, from the current
// generation back to the one recorded in genBound. 0 means current.
func relativeAge(genBound, generation uint8) uint8 {
	return uint8((uint16(generationCycle) + uint16(generation) - uint16(genBound)) & generationMask)
}

// Data is a decoded table entry as seen by a probe.
type Data struct {
	Move  core.Move
	Value core.Value
	Eval  core.Value
	Depth int
	Bound core.Bound
	IsPV  bool
}

// emptyData is what misses report.
var emptyData = Data{
	Move:  core.MoveNone,
	Value: core.ValueNone,
	Eval:  core.ValueNone,
	Depth: -1,
	Bound: core.BoundNone,
}

func decodeData(d uint64) Data {
	return Data{
		Move:  dataMove(d),
		Value: dataValue(d),
		Eval:  dataEval(d),
		Depth: dataDepth(d),
		Bound: dataBound(d),
		IsPV:  dataIsPV(d),
	}
}

// save overwrites the slot, following the replacement policy: exact
// bounds, new keys, clearly deeper results and stale generations win;
// otherwise the incumbent survives, decaying slightly if it is a deep
// non-exact entry so it cannot squat forever.
func (e *entry) save(key uint64, value core.Value, isPV bool, bound core.Bound, depth int, mv core.Move, eval core.Value, generation uint8) {
	oldKey := e.key.Load()
	oldData := e.data.Load()
	sameKey := dataOccupied(oldData) && oldKey == key

	keep := mv
	if mv.IsNone() && sameKey {
		// Don't erase a known-good move with nothing.
		keep = dataMove(oldData)
	}

	pvBonus := 0
	if isPV {
		pvBonus = 2
	}

	if bound == core.BoundExact ||
		!sameKey ||
		depth+pvBonus > dataDepth(oldData)-4 ||
		relativeAge(dataGenBound(oldData), generation) != 0 {
		genBound := generation | uint8(bound)
		if isPV {
			genBound |= 0x4
		}
		e.data.Store(packData(keep, value, eval, depth, genBound))
		e.key.Store(key)
		return
	}

	if dataDepth(oldData) >= 5 && dataBound(oldData) != core.BoundExact {
		decayed := oldData - (1 << 8)
		e.data.Store(decayed)
	}
}
