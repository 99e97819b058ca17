package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewVersionCmd(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	cmd := NewVersionCmd()
	cmd.SetOut(&buf)
	cmd.SetArgs(nil)

	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	for _, want := range []string{"docmirror version ", "commit: ", "built: "} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got %q", want, output)
		}
	}
}

func TestVersionFallbacks(t *testing.T) {
	t.Parallel()

	// Test binaries carry no ldflags and usually no VCS stamp.
	if getVersion() == "" {
		t.Error("getVersion should never be empty")
	}
	if getCommit() == "" {
		t.Error("getCommit should never be empty")
	}
	if getDate() == "" {
		t.Error("getDate should never be empty")
	}
}
