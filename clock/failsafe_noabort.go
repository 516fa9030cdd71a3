//go:build !failsafeabort

package clock

// abort is a no-op unless the failsafeabort build tag is set; the
// default build only logs when a search refuses to stop.
func (g *Guard) abort() {}
