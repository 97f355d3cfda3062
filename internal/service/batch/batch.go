package batch

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/andres10976/certcheck/internal/model"
)

type prober interface {
	Probe(ctx context.Context, hostname string) model.ProbeResult
}

// Observer is notified once per probed domain. Invalid inputs are not
// reported since no probe runs for them.
type Observer interface {
	ObserveProbe(res model.ProbeResult, elapsed time.Duration)
}

type Checker struct {
	prober      prober
	concurrency int
	observer    Observer
	logger      *slog.Logger
}

// New returns a Checker running at most concurrency probes at once. A
// concurrency of 1 probes domains strictly one after another.
func New(p prober, concurrency int, observer Observer, logger *slog.Logger) *Checker {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{
		prober:      p,
		concurrency: concurrency,
		observer:    observer,
		logger:      logger,
	}
}

// Normalize trims raw and strips one leading "https://" and then one
// leading "http://". It reports false for anything that is not a string
// or leaves nothing to probe.
func Normalize(raw any) (string, bool) {
	s, ok := raw.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	if s == "" {
		return "", false
	}
	return s, true
}

// Check probes every input and returns one result per input, in input
// order, whatever order the probes finish in.
func (c *Checker) Check(ctx context.Context, raw []any) []model.ProbeResult {
	results := make([]model.ProbeResult, len(raw))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for i, in := range raw {
		host, ok := Normalize(in)
		if !ok {
			results[i] = model.Invalid(in)
			continue
		}
		g.Go(func() error {
			start := time.Now()
			res := c.prober.Probe(gctx, host)
			if c.observer != nil {
				c.observer.ObserveProbe(res, time.Since(start))
			}
			results[i] = res
			return nil
		})
	}
	g.Wait()

	c.logger.Info("batch checked", "domains", len(raw), "concurrency", c.concurrency)
	return results
}
