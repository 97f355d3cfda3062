package model

import (
	"encoding/json"
	"time"
)

type Status string

const (
	StatusOK       Status = "ok"
	StatusExpired  Status = "expired"
	StatusSSLError Status = "ssl_error"
	StatusError    Status = "error"
)

const ReasonInvalidDomain = "Invalid domain name"

// ProbeResult is the outcome of checking a single domain. Expiry,
// DaysRemaining and Issuer are only set for StatusOK; Reason is only set
// otherwise. Use the constructors below rather than building one by hand.
type ProbeResult struct {
	// Domain is the normalized hostname, or the raw input value when the
	// input was rejected before probing.
	Domain        any        `json:"domain"`
	Status        Status     `json:"status"`
	Expiry        *time.Time `json:"expiry,omitempty"`
	DaysRemaining *int       `json:"days_remaining,omitempty"`
	Issuer        string     `json:"issuer,omitempty"`
	Reason        string     `json:"reason,omitempty"`
}

func OK(domain string, expiry time.Time, daysRemaining int, issuer string) ProbeResult {
	exp := expiry.UTC().Truncate(time.Second)
	days := daysRemaining
	return ProbeResult{
		Domain:        domain,
		Status:        StatusOK,
		Expiry:        &exp,
		DaysRemaining: &days,
		Issuer:        issuer,
	}
}

func Expired(domain, reason string) ProbeResult {
	return ProbeResult{Domain: domain, Status: StatusExpired, Reason: reason}
}

func SSLError(domain, reason string) ProbeResult {
	return ProbeResult{Domain: domain, Status: StatusSSLError, Reason: reason}
}

func Failed(domain, reason string) ProbeResult {
	return ProbeResult{Domain: domain, Status: StatusError, Reason: reason}
}

// Invalid is the placeholder for inputs that were never probed. raw is
// echoed back unchanged.
func Invalid(raw any) ProbeResult {
	return ProbeResult{Domain: raw, Status: StatusError, Reason: ReasonInvalidDomain}
}

// DomainString returns Domain as a string, formatting non-string
// placeholders the way they were submitted.
func (r ProbeResult) DomainString() string {
	if d, ok := r.Domain.(string); ok {
		return d
	}
	b, err := json.Marshal(r.Domain)
	if err != nil {
		return ""
	}
	return string(b)
}
