package timeouts

import (
	"testing"
	"time"
)

func TestConfigure_IgnoresZero(t *testing.T) {
	t.Cleanup(Reset)

	Configure(Config{Short: 7 * time.Second})

	if Short() != 7*time.Second {
		t.Errorf("Short() = %v, want 7s", Short())
	}
	if Medium() != DefaultMedium {
		t.Errorf("Medium() = %v, want default", Medium())
	}
}

func TestReset(t *testing.T) {
	Configure(Config{Long: time.Minute, Ping: time.Second})
	Reset()
	if Long() != DefaultLong || Ping() != DefaultPing {
		t.Errorf("expected defaults after Reset, got long=%v ping=%v", Long(), Ping())
	}
}
