package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/andres10976/certcheck/internal/model"
)

func TestReadDomains(t *testing.T) {
	in := strings.NewReader("example.com\n\n# comment\n  https://example.org  \n")

	got, err := readDomains(in)
	if err != nil {
		t.Fatalf("readDomains() error = %v", err)
	}
	if len(got) != 2 || got[0] != "example.com" || got[1] != "https://example.org" {
		t.Errorf("readDomains() = %q", got)
	}
}

func TestAllOK(t *testing.T) {
	if !allOK(nil) {
		t.Error("allOK(nil) = false, want true")
	}
	if allOK([]model.ProbeResult{model.Failed("a.com", "x")}) {
		t.Error("allOK with an error result = true")
	}
}

func TestRun_NoDomains(t *testing.T) {
	var out, errOut bytes.Buffer
	err := run(context.Background(), &options{concurrency: 1}, nil, &out, &errOut)
	if err == nil || errors.Is(err, errUnhealthy) {
		t.Errorf("run() error = %v, want usage error", err)
	}
}

func TestRun_MissingFile(t *testing.T) {
	var out, errOut bytes.Buffer
	opts := &options{file: filepath.Join(t.TempDir(), "missing.txt"), concurrency: 1}
	if err := run(context.Background(), opts, nil, &out, &errOut); err == nil {
		t.Error("run() error = nil, want open error")
	}
}

func TestRun_InvalidEntriesNeverProbed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "domains.txt")
	if err := os.WriteFile(path, []byte("https://\n"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	var out, errOut bytes.Buffer
	opts := &options{file: path, concurrency: 1}
	err := run(context.Background(), opts, []string{"http://"}, &out, &errOut)
	if !errors.Is(err, errUnhealthy) {
		t.Fatalf("run() error = %v, want errUnhealthy", err)
	}

	var results []map[string]any
	if err := json.Unmarshal(out.Bytes(), &results); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0]["domain"] != "http://" || results[1]["domain"] != "https://" {
		t.Errorf("results out of order: %v", results)
	}
	for _, r := range results {
		if r["reason"] != model.ReasonInvalidDomain {
			t.Errorf("reason = %v, want %q", r["reason"], model.ReasonInvalidDomain)
		}
	}
}

func TestRootCmd_Flags(t *testing.T) {
	cmd := newRootCmd()
	for _, name := range []string{"file", "concurrency", "connect-timeout", "handshake-timeout", "verbose"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("flag --%s not registered", name)
		}
	}
}
