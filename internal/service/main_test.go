package service

import (
	"testing"

	"go.uber.org/goleak"
)

// Asserts every invocation goroutine spawned by Start has exited by the time
// a test's Wait returns: the package's whole contract is "no leaked
// goroutines after cancellation".
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
