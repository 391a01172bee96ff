package shared

import (
	"bytes"
	"testing"

	"github.com/charmbracelet/log"
)

func TestGenerateID(t *testing.T) {
	a := GenerateID()
	b := GenerateID()

	if a == "" || b == "" {
		t.Fatal("expected non-empty ids")
	}
	if a == b {
		t.Errorf("expected unique ids, got %s twice", a)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf)
	logger.Info("hello", "key", "value")

	if buf.Len() == 0 {
		t.Error("expected log output to be written")
	}

	t.Run("Child Logger", func(t *testing.T) {
		child := WithLogger(logger, "session", "s1")
		if child == nil {
			t.Fatal("expected child logger")
		}
	})

	t.Run("Level", func(t *testing.T) {
		SetLogLevel(logger, log.DebugLevel)
		if logger.GetLevel() != log.DebugLevel {
			t.Errorf("expected debug level, got %v", logger.GetLevel())
		}
	})
}
