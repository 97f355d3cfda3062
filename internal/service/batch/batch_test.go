package batch

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/andres10976/certcheck/internal/model"
)

type mockProber struct {
	probeFn func(ctx context.Context, hostname string) model.ProbeResult
}

func (m *mockProber) Probe(ctx context.Context, hostname string) model.ProbeResult {
	return m.probeFn(ctx, hostname)
}

type recordingObserver struct {
	mu       sync.Mutex
	statuses []model.Status
}

func (o *recordingObserver) ObserveProbe(res model.ProbeResult, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.statuses = append(o.statuses, res.Status)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func echoProber(seen *[]string) *mockProber {
	var mu sync.Mutex
	return &mockProber{probeFn: func(ctx context.Context, hostname string) model.ProbeResult {
		mu.Lock()
		*seen = append(*seen, hostname)
		mu.Unlock()
		return model.Failed(hostname, "probed")
	}}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in     any
		want   string
		wantOK bool
	}{
		{"example.com", "example.com", true},
		{"  https://example.com  ", "example.com", true},
		{"http://example.com", "example.com", true},
		{"https://http://example.com", "example.com", true},
		{"http://https://example.com", "https://example.com", true},
		{"HTTPS://example.com", "HTTPS://example.com", true},
		{"example.com/https://", "example.com/https://", true},
		{"", "", false},
		{"   \t\n", "", false},
		{"https://", "", false},
		{nil, "", false},
		{json.Number("42"), "", false},
		{[]any{"example.com"}, "", false},
		{map[string]any{"d": "example.com"}, "", false},
	}
	for _, tt := range tests {
		got, ok := Normalize(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("Normalize(%#v) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestCheck_PositionalWithPlaceholders(t *testing.T) {
	var seen []string
	c := New(echoProber(&seen), 1, nil, quietLogger())

	in := []any{"  https://a.com  ", json.Number("5"), "", "b.com", nil, "   "}
	got := c.Check(context.Background(), in)

	want := []model.ProbeResult{
		model.Failed("a.com", "probed"),
		model.Invalid(json.Number("5")),
		model.Invalid(""),
		model.Failed("b.com", "probed"),
		model.Invalid(nil),
		model.Invalid("   "),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Check() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a.com", "b.com"}, seen); diff != "" {
		t.Errorf("probed hosts mismatch (-want +got):\n%s", diff)
	}
}

func TestCheck_SequentialByDefault(t *testing.T) {
	var inFlight, peak atomic.Int32
	p := &mockProber{probeFn: func(ctx context.Context, hostname string) model.ProbeResult {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		return model.Failed(hostname, "x")
	}}

	c := New(p, 0, nil, quietLogger())
	c.Check(context.Background(), []any{"a", "b", "c", "d"})

	if got := peak.Load(); got != 1 {
		t.Errorf("peak concurrency = %d, want 1", got)
	}
}

func TestCheck_ConcurrentKeepsOrder(t *testing.T) {
	delays := map[string]time.Duration{
		"slow.com":   40 * time.Millisecond,
		"medium.com": 20 * time.Millisecond,
		"fast.com":   0,
	}
	p := &mockProber{probeFn: func(ctx context.Context, hostname string) model.ProbeResult {
		time.Sleep(delays[hostname])
		return model.SSLError(hostname, hostname)
	}}

	c := New(p, 3, nil, quietLogger())
	got := c.Check(context.Background(), []any{"slow.com", "medium.com", "fast.com"})

	want := []model.ProbeResult{
		model.SSLError("slow.com", "slow.com"),
		model.SSLError("medium.com", "medium.com"),
		model.SSLError("fast.com", "fast.com"),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Check() mismatch (-want +got):\n%s", diff)
	}
}

func TestCheck_ObserverSkipsInvalid(t *testing.T) {
	var seen []string
	obs := &recordingObserver{}
	c := New(echoProber(&seen), 2, obs, quietLogger())

	c.Check(context.Background(), []any{"a.com", 12, "b.com"})

	if len(obs.statuses) != 2 {
		t.Errorf("observed %d probes, want 2", len(obs.statuses))
	}
}

func TestCheck_Empty(t *testing.T) {
	c := New(&mockProber{}, 1, nil, quietLogger())
	got := c.Check(context.Background(), nil)
	if len(got) != 0 {
		t.Errorf("got %d results, want 0", len(got))
	}
}
