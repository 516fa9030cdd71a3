package core

import "time"

// StopReason records which trigger ended a search.
type StopReason uint8

const (
	// StopCompleted means every requested iteration finished.
	StopCompleted StopReason = iota
	// StopTimeLimit means a time threshold (soft, planned or hard) fired.
	StopTimeLimit
	// StopNodeLimit means the shared node budget was exhausted.
	StopNodeLimit
	// StopDepthLimit means the configured depth cap was reached.
	StopDepthLimit
	// StopExternal means the caller requested the stop.
	StopExternal
	// StopFailSafe means the independent watchdog forced the stop.
	StopFailSafe
	// StopMate means a forced mate was found and deeper search is moot.
	StopMate
)

func (r StopReason) String() string {
	switch r {
	case StopCompleted:
		return "completed"
	case StopTimeLimit:
		return "time_limit"
	case StopNodeLimit:
		return "node_limit"
	case StopDepthLimit:
		return "depth_limit"
	case StopExternal:
		return "external"
	case StopFailSafe:
		return "fail_safe"
	case StopMate:
		return "mate"
	default:
		return "unknown"
	}
}

// StopInfo captures why and when a search stopped. It is written at
// most once per search, by whichever trigger wins the race, and read
// once by the emitter.
type StopInfo struct {
	Reason       StopReason
	Elapsed      time.Duration
	Nodes        uint64
	DepthReached int

	// HardTimeout is true only when the hard limit itself was crossed,
	// not merely a planned or near-hard stop.
	HardTimeout bool

	SoftLimit  time.Duration
	HardLimit  time.Duration
	PlannedEnd time.Duration
}
