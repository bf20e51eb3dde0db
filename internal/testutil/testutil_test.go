package testutil

import (
	"errors"
	"os"
	"testing"
)

func TestWriteFile(t *testing.T) {
	path := WriteFile(t, t.TempDir(), "a.txt", "hello")
	data, err := os.ReadFile(path)
	AssertNoError(t, err)
	if string(data) != "hello" {
		t.Errorf("content = %q, want hello", data)
	}
}

func TestAssertError(t *testing.T) {
	AssertError(t, errors.New("boom"))
}
