// Package debug holds the build-tag controlled debug switch shared by the
// solver packages. Build with -tags debug to turn detected consistency
// violations into panics instead of degraded (skip-and-continue) behavior.
package debug

// Assert panics with message if condition is false and the debug build tag
// is set. It does nothing in release builds.
func Assert(condition bool, message ...string) {
	if !Debug {
		return
	}
	if !condition {
		if len(message) > 0 {
			panic(message[0])
		}
		panic("assertion failed")
	}
}
