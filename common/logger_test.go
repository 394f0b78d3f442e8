package common

import (
	"fmt"
	"os"
	"testing"
)

func TestNewEnvLogger(t *testing.T) {
	const envName = "__test_d2c_env_logger"

	if err := os.Setenv(envName, "debug"); err != nil {
		t.Fatal(err)
	}
	defer os.Unsetenv(envName)

	l := NewLoggerFromEnv("test", envName)
	if l.lvl != LevelDebug {
		t.Errorf("logger level = %d, want %d", l.lvl, LevelDebug)
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	for s, want := range map[string]LogLevel{
		"e":       LevelError,
		"ERROR":   LevelError,
		"warn":    LevelWarn,
		"i":       LevelInfo,
		"debug":   LevelDebug,
		"":        LevelWarn,
		"unknown": LevelWarn,
	} {
		if have := ParseLevel(s); have != want {
			t.Errorf("ParseLevel(%q) = %s, want %s", s, have, want)
		}
	}
}

func TestLevelLoggerFiltersBySeverity(t *testing.T) {
	t.Parallel()

	var lines []string
	l := NewLogger("test", LevelWarn, func(v ...interface{}) {
		lines = append(lines, fmt.Sprint(v...))
	})
	l.Errorf("error %d", 1)
	l.Warnf("warn")
	l.Infof("info")
	l.Debugf("debug")

	want := []string{"test: ERROR error 1", "test: WARN warn"}
	if len(lines) != len(want) {
		t.Fatalf("lines = %q, want %q", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("lines[%d] = %q, want %q", i, lines[i], want[i])
		}
	}
}
