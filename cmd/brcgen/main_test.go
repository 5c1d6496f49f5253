package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRun_Stdout(t *testing.T) {
	var stdout bytes.Buffer
	args := []string{"-rows", "100", "-stations", "5", "-seed", "9", "-out", "-"}
	if err := run(context.Background(), args, &stdout, io.Discard); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if got := strings.Count(stdout.String(), "\n"); got != 100 {
		t.Errorf("lines = %d, want 100", got)
	}
}

func TestRun_File(t *testing.T) {
	out := filepath.Join(t.TempDir(), "measurements.txt")
	args := []string{"-rows", "250", "-stations", "10", "-out", out}
	if err := run(context.Background(), args, io.Discard, io.Discard); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if got := bytes.Count(data, []byte{'\n'}); got != 250 {
		t.Errorf("lines = %d, want 250", got)
	}
}

func TestRun_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"zero stations", []string{"-stations", "0", "-out", "-"}},
		{"unwritable output", []string{"-rows", "1", "-out", filepath.Join(t.TempDir(), "missing", "m.txt")}},
		{"unknown flag", []string{"-bogus"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := run(context.Background(), tt.args, io.Discard, io.Discard); err == nil {
				t.Error("run() should fail")
			}
		})
	}
}
