package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/andres10976/certcheck/internal/model"
)

var (
	ErrAlreadyRunning = errors.New("watcher already running")
	ErrNotRunning     = errors.New("watcher not running")
	ErrNoDomains      = errors.New("no domains configured for watching")
)

type checker interface {
	Check(ctx context.Context, raw []any) []model.ProbeResult
}

type recorder interface {
	SetWatched(res model.ProbeResult)
}

// State is a snapshot of the watcher. It carries counts only; individual
// results go to metrics and logs.
type State struct {
	IsRunning bool                 `json:"is_running"`
	Domains   []string             `json:"domains"`
	Interval  string               `json:"interval"`
	Cycles    int64                `json:"cycles"`
	LastRunAt *time.Time           `json:"last_run_at"`
	LastCycle map[model.Status]int `json:"last_cycle"`
	LastError string               `json:"last_error,omitempty"`
}

// Watcher re-checks a fixed set of domains on an interval and publishes
// the outcome to a recorder.
type Watcher struct {
	checker  checker
	recorder recorder
	domains  []string
	interval time.Duration
	logger   *slog.Logger

	mu        sync.Mutex
	cancel    context.CancelFunc
	cycles    int64
	lastRunAt *time.Time
	lastCycle map[model.Status]int
	lastError string
}

func New(c checker, rec recorder, domains []string, interval time.Duration, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		checker:  c,
		recorder: rec,
		domains:  domains,
		interval: interval,
		logger:   logger,
	}
}

// Start launches the background loop. The loop runs on its own context
// so it outlives the request that started it.
func (w *Watcher) Start(_ context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel != nil {
		return ErrAlreadyRunning
	}
	if len(w.domains) == 0 {
		return ErrNoDomains
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	go w.run(ctx)
	return nil
}

func (w *Watcher) Stop(_ context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel == nil {
		return ErrNotRunning
	}
	w.cancel()
	w.cancel = nil
	w.logger.Info("watcher stopped")
	return nil
}

func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cancel != nil
}

func (w *Watcher) Status() State {
	w.mu.Lock()
	defer w.mu.Unlock()

	counts := make(map[model.Status]int, len(w.lastCycle))
	for k, v := range w.lastCycle {
		counts[k] = v
	}
	var lastRun *time.Time
	if w.lastRunAt != nil {
		t := *w.lastRunAt
		lastRun = &t
	}
	return State{
		IsRunning: w.cancel != nil,
		Domains:   append([]string(nil), w.domains...),
		Interval:  w.interval.String(),
		Cycles:    w.cycles,
		LastRunAt: lastRun,
		LastCycle: counts,
		LastError: w.lastError,
	}
}

func (w *Watcher) run(ctx context.Context) {
	w.logger.Info("watcher started", "domains", len(w.domains), "interval", w.interval)

	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("watcher panicked", "error", r, "stack", string(debug.Stack()))
			w.mu.Lock()
			w.cancel = nil
			w.lastError = fmt.Sprintf("panic: %v", r)
			w.mu.Unlock()
		}
	}()

	w.checkOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.checkOnce(ctx)
		}
	}
}

func (w *Watcher) checkOnce(ctx context.Context) {
	raw := make([]any, len(w.domains))
	for i, d := range w.domains {
		raw[i] = d
	}

	results := w.checker.Check(ctx, raw)
	if ctx.Err() != nil {
		// Stopped mid-cycle; these results are cancellation noise.
		return
	}

	counts := make(map[model.Status]int)
	for _, res := range results {
		counts[res.Status]++
		if w.recorder != nil {
			w.recorder.SetWatched(res)
		}
		if res.Status != model.StatusOK {
			w.logger.Warn("watched domain unhealthy",
				"domain", res.Domain, "status", res.Status, "reason", res.Reason)
		}
	}

	now := time.Now().UTC()
	w.mu.Lock()
	w.cycles++
	w.lastRunAt = &now
	w.lastCycle = counts
	w.lastError = ""
	w.mu.Unlock()

	w.logger.Info("watch cycle complete", "domains", len(results), "ok", counts[model.StatusOK])
}
