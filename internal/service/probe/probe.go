package probe

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"log/slog"
	"net"
	"time"

	"github.com/andres10976/certcheck/internal/model"
)

const (
	DefaultPort    = "443"
	DefaultTimeout = 15 * time.Second
)

var ErrNoPeerCertificate = errors.New("no peer certificate presented")

// Options configures a Prober. Zero values fall back to the defaults above
// and to the system trust store.
type Options struct {
	Port             string
	ConnectTimeout   time.Duration
	HandshakeTimeout time.Duration
	RootCAs          *x509.CertPool
	Now              func() time.Time
}

// Prober dials a host, completes a verified TLS handshake and reports the
// leaf certificate's expiry and issuer.
type Prober struct {
	port             string
	connectTimeout   time.Duration
	handshakeTimeout time.Duration
	rootCAs          *x509.CertPool
	now              func() time.Time
	logger           *slog.Logger
}

func New(opts Options, logger *slog.Logger) *Prober {
	p := &Prober{
		port:             opts.Port,
		connectTimeout:   opts.ConnectTimeout,
		handshakeTimeout: opts.HandshakeTimeout,
		rootCAs:          opts.RootCAs,
		now:              opts.Now,
		logger:           logger,
	}
	if p.port == "" {
		p.port = DefaultPort
	}
	if p.connectTimeout <= 0 {
		p.connectTimeout = DefaultTimeout
	}
	if p.handshakeTimeout <= 0 {
		p.handshakeTimeout = DefaultTimeout
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// Probe checks a single hostname. It never fails: every error is folded
// into the returned result.
func (p *Prober) Probe(ctx context.Context, hostname string) model.ProbeResult {
	start := time.Now()
	res := p.probe(ctx, hostname)
	p.logger.Debug("probe finished",
		"domain", hostname,
		"status", res.Status,
		"reason", res.Reason,
		"duration", time.Since(start),
	)
	return res
}

func (p *Prober) probe(ctx context.Context, hostname string) model.ProbeResult {
	dialer := &net.Dialer{Timeout: p.connectTimeout}
	raw, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(hostname, p.port))
	if err != nil {
		return classify(hostname, err, phaseConnect, p.connectTimeout)
	}
	defer raw.Close()

	if err := raw.SetDeadline(time.Now().Add(p.handshakeTimeout)); err != nil {
		return classify(hostname, err, phaseConnect, p.connectTimeout)
	}

	conn := tls.Client(raw, &tls.Config{
		ServerName: hostname,
		RootCAs:    p.rootCAs,
	})
	if err := conn.HandshakeContext(ctx); err != nil {
		return classify(hostname, err, phaseHandshake, p.handshakeTimeout)
	}
	defer conn.Close()

	certs := conn.ConnectionState().PeerCertificates
	if len(certs) == 0 {
		return model.Failed(hostname, ErrNoPeerCertificate.Error())
	}

	// Index 0 is the leaf.
	leaf := certs[0]
	return model.OK(
		hostname,
		leaf.NotAfter,
		DaysUntil(p.now(), leaf.NotAfter),
		FormatIssuer(leaf.Issuer),
	)
}

// DaysUntil returns the whole days from now until t, rounded down, so an
// expiry 36 hours out is 1 and one 12 hours past is -1.
func DaysUntil(now, t time.Time) int {
	const day = 24 * time.Hour
	d := t.Sub(now)
	days := int(d / day)
	if d < 0 && d%day != 0 {
		days--
	}
	return days
}
