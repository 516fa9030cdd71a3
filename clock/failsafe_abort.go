//go:build failsafeabort

package clock

import "os"

// abort terminates the process after the guard's final escalation. A
// lost game on time is worse than a crash that an operator can restart.
func (g *Guard) abort() {
	g.logger.Error("aborting process")
	os.Exit(1)
}
