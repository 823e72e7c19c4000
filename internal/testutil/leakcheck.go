// Package testutil provides testing utilities for the signalscope client.
package testutil

import (
	"slices"
	"testing"

	"go.uber.org/goleak"
)

// libraryGoroutines are owned by dependencies and outlive the code under test.
var libraryGoroutines = []goleak.Option{
	// go-cache stops its janitor from a finalizer, not on demand.
	goleak.IgnoreAnyFunction("github.com/patrickmn/go-cache.(*janitor).Run"),
}

// VerifyNoLeaks should be deferred at the start of tests that spawn goroutines.
// It verifies that no goroutines were leaked during the test.
func VerifyNoLeaks(t *testing.T, opts ...goleak.Option) {
	t.Helper()
	goleak.VerifyNone(t, slices.Concat(libraryGoroutines, opts)...)
}

// IgnoreCurrent ignores goroutines already running, e.g. servers started by
// test helpers before the code under test runs.
func IgnoreCurrent() goleak.Option {
	return goleak.IgnoreCurrent()
}
