// Package hayabusa coordinates concurrent move search for two-player
// perfect-information board games.
//
// The package does not implement a game: callers supply a position
// (core.Position) and a per-worker search routine (search.Searcher),
// and hayabusa supplies everything around them. A shared transposition
// table (tt), a Lazy SMP worker pool with per-worker heuristics and
// jitter (search), a time manager that turns a time control into soft,
// optimal and hard thresholds (clock), and an independent fail-safe
// watchdog that guarantees the session ends even if the time manager
// misbehaves.
//
// The Engine ties the pieces together: one Search call runs one
// session and emits exactly one final result, no matter how many
// triggers (clock, node budget, external stop, watchdog) race to end
// it.
package hayabusa
