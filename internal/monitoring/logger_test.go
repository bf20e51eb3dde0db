package monitoring

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSetLogger(t *testing.T) {
	// Save original logger
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) {
		called = true
	})
	Logf("test message")
	if !called {
		t.Error("Custom logger was not called")
	}

	// Now set to nil and verify it doesn't call our logger
	called = false
	SetLogger(nil)
	Logf("test")
	if called {
		t.Error("No-op logger should not have triggered callback")
	}
}

func TestDebugf_MutedByDefault(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("Debugf panicked: %v", r)
		}
	}()
	Debugf("frame %d", 1)
}

func TestUseZap(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	restore := UseZap(zap.New(core))

	Logf("opened %s", "input.mp4")
	Debugf("frame %d", 7)
	restore()
	Logf("after restore")

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Message != "opened input.mp4" {
		t.Errorf("unexpected message %q", entries[0].Message)
	}
	if entries[1].Level != zap.DebugLevel || entries[1].Message != "frame 7" {
		t.Errorf("unexpected debug entry %+v", entries[1].Entry)
	}
}

func TestUseZap_InfoLevelMutesDebug(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	restore := UseZap(zap.New(core))
	defer restore()

	Debugf("hidden")
	Logf("shown")
	if logs.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", logs.Len())
	}
}
