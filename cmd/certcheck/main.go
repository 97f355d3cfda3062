package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/andres10976/certcheck/internal/model"
	"github.com/andres10976/certcheck/internal/service/batch"
	"github.com/andres10976/certcheck/internal/service/probe"
)

var errUnhealthy = errors.New("one or more certificates are not ok")

type options struct {
	file             string
	concurrency      int
	connectTimeout   time.Duration
	handshakeTimeout time.Duration
	verbose          bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "certcheck [domain ...]",
		Short: "Check TLS certificate expiry for a list of domains",
		Long: `certcheck connects to each domain on port 443, completes a verified TLS
handshake and prints one JSON result per domain, in input order.
It exits non-zero if any domain is not ok.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, args, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "read domains from a file, one per line")
	cmd.Flags().IntVarP(&opts.concurrency, "concurrency", "c", 1, "number of probes to run at once")
	cmd.Flags().DurationVar(&opts.connectTimeout, "connect-timeout", probe.DefaultTimeout, "TCP connect timeout")
	cmd.Flags().DurationVar(&opts.handshakeTimeout, "handshake-timeout", probe.DefaultTimeout, "TLS handshake timeout")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log each probe to stderr")
	return cmd
}

func run(ctx context.Context, opts *options, args []string, stdout, stderr io.Writer) error {
	domains := append([]string(nil), args...)
	if opts.file != "" {
		f, err := os.Open(opts.file)
		if err != nil {
			return fmt.Errorf("open domains file: %w", err)
		}
		defer f.Close()

		fromFile, err := readDomains(f)
		if err != nil {
			return fmt.Errorf("read domains file: %w", err)
		}
		domains = append(domains, fromFile...)
	}
	if len(domains) == 0 {
		return errors.New("no domains given; pass them as arguments or with --file")
	}

	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	prober := probe.New(probe.Options{
		ConnectTimeout:   opts.connectTimeout,
		HandshakeTimeout: opts.handshakeTimeout,
	}, logger)
	checker := batch.New(prober, opts.concurrency, nil, logger)

	raw := make([]any, len(domains))
	for i, d := range domains {
		raw[i] = d
	}
	results := checker.Check(ctx, raw)

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return fmt.Errorf("write results: %w", err)
	}

	if !allOK(results) {
		return errUnhealthy
	}
	return nil
}

// readDomains returns one domain per line, skipping blank lines and
// # comments.
func readDomains(r io.Reader) ([]string, error) {
	var domains []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		domains = append(domains, line)
	}
	return domains, scanner.Err()
}

func allOK(results []model.ProbeResult) bool {
	for _, r := range results {
		if r.Status != model.StatusOK {
			return false
		}
	}
	return true
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errUnhealthy) {
			fmt.Fprintln(os.Stderr, "certcheck:", err)
		}
		os.Exit(1)
	}
}
