package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/andres10976/certcheck/internal/model"
)

func TestObserveProbe_CountsByStatus(t *testing.T) {
	c := New()
	c.ObserveProbe(model.Failed("a.com", "x"), time.Second)
	c.ObserveProbe(model.Failed("b.com", "x"), time.Second)
	c.ObserveProbe(model.Expired("c.com", "x"), time.Second)

	if got := testutil.ToFloat64(c.probes.WithLabelValues("error")); got != 2 {
		t.Errorf("error count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.probes.WithLabelValues("expired")); got != 1 {
		t.Errorf("expired count = %v, want 1", got)
	}
}

func TestSetWatched_OKThenFailure(t *testing.T) {
	c := New()
	exp := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)

	c.SetWatched(model.OK("a.com", exp, 42, "commonName=R3"))
	if got := testutil.ToFloat64(c.daysRemaining.WithLabelValues("a.com")); got != 42 {
		t.Errorf("days_remaining = %v, want 42", got)
	}
	if got := testutil.ToFloat64(c.expiry.WithLabelValues("a.com")); got != float64(exp.Unix()) {
		t.Errorf("expiry = %v, want %d", got, exp.Unix())
	}
	if got := testutil.ToFloat64(c.watchUp.WithLabelValues("a.com")); got != 1 {
		t.Errorf("ok = %v, want 1", got)
	}

	c.SetWatched(model.SSLError("a.com", "bad"))
	if got := testutil.CollectAndCount(c.daysRemaining); got != 0 {
		t.Errorf("days_remaining series = %d, want 0 after failure", got)
	}
	if got := testutil.ToFloat64(c.watchUp.WithLabelValues("a.com")); got != 0 {
		t.Errorf("ok = %v, want 0", got)
	}
}

func TestHandler_Exposition(t *testing.T) {
	c := New()
	c.ObserveProbe(model.Failed("a.com", "x"), 10*time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `certcheck_probes_total{status="error"} 1`) {
		t.Errorf("exposition missing probe counter:\n%s", body)
	}
}
