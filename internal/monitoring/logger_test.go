package monitoring

import (
	"fmt"
	"testing"
)

func TestSetLoggerRedirects(t *testing.T) {
	defer SetLogger(nil)

	var got string
	SetLogger(func(format string, v ...interface{}) {
		got = fmt.Sprintf(format, v...)
	})

	Logf("run %s: %d pixels", "abc", 42)
	if got != "run abc: 42 pixels" {
		t.Errorf("Logf output = %q, want %q", got, "run abc: 42 pixels")
	}
}

func TestSetLoggerNilIsNoop(t *testing.T) {
	defer SetLogger(func(format string, v ...interface{}) {})

	SetLogger(nil)
	// Must not panic.
	Logf("discarded %d", 1)
}
