// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

// Eventually polls cond until it holds or a second of real time passes.
func Eventually(t testing.TB, cond func() bool, msg string) {
	t.Helper()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}

	t.Fatalf("condition not met: %s", msg)
}

// AdvanceUntil moves mock time forward by step until cond holds. Timers on
// a mock clock fire on their own goroutines, so each step yields briefly.
func AdvanceUntil(t testing.TB, mock *clock.Mock, step time.Duration, cond func() bool, msg string) {
	t.Helper()

	for range 2000 {
		if cond() {
			return
		}
		mock.Add(step)
		time.Sleep(time.Millisecond)
	}

	t.Fatalf("condition not met after advancing mock clock: %s", msg)
}
