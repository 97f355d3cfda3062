package probe

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/andres10976/certcheck/internal/model"
)

type phase int

const (
	phaseConnect phase = iota
	phaseHandshake
)

// expiredMarkers are matched case-insensitively against TLS error text.
// Stacks without a structured expiry error only surface it this way.
var expiredMarkers = []string{
	"certificate has expired",
	"certificate verify failed",
}

// classify maps a probe failure onto a result. Precedence: expired, other
// TLS failure, timeout, DNS failure, anything else.
func classify(domain string, err error, ph phase, budget time.Duration) model.ProbeResult {
	if ph == phaseHandshake && isTLSFailure(err) {
		if isExpired(err) {
			return model.Expired(domain, err.Error())
		}
		return model.SSLError(domain, err.Error())
	}

	if isTimeout(err) {
		return model.Failed(domain, TimeoutReason(budget))
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return model.Failed(domain, "DNS resolution failed: "+dnsErr.Error())
	}

	return model.Failed(domain, err.Error())
}

func TimeoutReason(budget time.Duration) string {
	secs := strconv.FormatFloat(budget.Seconds(), 'f', -1, 64)
	return fmt.Sprintf("Connection timeout after %s seconds", secs)
}

// isTLSFailure reports whether a handshake error came from the TLS layer
// rather than the socket underneath it. crypto/tls reports alerts as
// *net.OpError with op "local error" or "remote error"; any other OpError
// is a transport failure such as a reset.
func isTLSFailure(err error) bool {
	if isTimeout(err) || errors.Is(err, context.Canceled) {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "local error" || opErr.Op == "remote error"
	}
	return true
}

func isExpired(err error) bool {
	var invalid x509.CertificateInvalidError
	if errors.As(err, &invalid) && invalid.Reason == x509.Expired {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, m := range expiredMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
