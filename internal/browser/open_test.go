package browser

import (
	"runtime"
	"testing"
)

func TestOpenUnsupported(t *testing.T) {
	switch runtime.GOOS {
	case "darwin", "windows", "linux", "freebsd", "openbsd":
		t.Skipf("browser launch not exercised on %s", runtime.GOOS)
	}
	if err := Open("http://127.0.0.1:8888/callback"); err == nil {
		t.Error("Open() = nil, want unsupported platform error")
	}
}
