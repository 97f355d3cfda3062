package handler

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/andres10976/certcheck/internal/model"
)

type batchChecker interface {
	Check(ctx context.Context, raw []any) []model.ProbeResult
}

type CheckHandler struct {
	checker      batchChecker
	maxDomains   int
	maxBodyBytes int64
	logger       *slog.Logger
}

func NewCheckHandler(checker batchChecker, maxDomains int, maxBodyBytes int64, logger *slog.Logger) *CheckHandler {
	return &CheckHandler{
		checker:      checker,
		maxDomains:   maxDomains,
		maxBodyBytes: maxBodyBytes,
		logger:       logger,
	}
}

func (h *CheckHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Usage)
	r.Post("/", h.Check)
	r.Get("/healthz", h.Health)
}

var usage = map[string]any{
	"message": "SSL Certificate Checker API",
	"usage":   `Send POST request to / with JSON: {"domains": ["example.com", "google.com"]}`,
	"response_fields": map[string]string{
		"domain":         "The checked domain name",
		"status":         "ok | expired | ssl_error | error",
		"expiry":         "RFC 3339 UTC expiry date (when status is 'ok')",
		"days_remaining": "Whole days until expiry (when status is 'ok')",
		"issuer":         "Certificate issuer as attr=value pairs (when status is 'ok')",
		"reason":         "Error description (when status is not 'ok')",
	},
}

func (h *CheckHandler) Usage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, usage)
}

func (h *CheckHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *CheckHandler) Check(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.UseNumber()

	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		h.logger.Debug("rejected request body", "error", err)
		writeError(w, http.StatusBadRequest, "No JSON data provided")
		return
	}
	if len(body) == 0 {
		writeError(w, http.StatusBadRequest, "No JSON data provided")
		return
	}

	raw, ok := body["domains"]
	if !ok {
		writeError(w, http.StatusBadRequest, "domains field is required")
		return
	}
	domains, ok := raw.([]any)
	if !ok {
		writeError(w, http.StatusBadRequest, "domains must be an array")
		return
	}
	if len(domains) == 0 {
		writeError(w, http.StatusBadRequest, "domains array cannot be empty")
		return
	}
	if len(domains) > h.maxDomains {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("domains array cannot contain more than %d entries", h.maxDomains))
		return
	}

	results := h.checker.Check(r.Context(), domains)

	if r.URL.Query().Get("format") == "csv" {
		writeCSV(w, results)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func writeCSV(w http.ResponseWriter, results []model.ProbeResult) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="certificates.csv"`)

	writer := csv.NewWriter(w)
	defer writer.Flush()

	writer.Write([]string{"domain", "status", "expiry", "days_remaining", "issuer", "reason"})

	for _, res := range results {
		var expiry, days string
		if res.Expiry != nil {
			expiry = res.Expiry.Format(time.RFC3339)
		}
		if res.DaysRemaining != nil {
			days = strconv.Itoa(*res.DaysRemaining)
		}
		writer.Write([]string{
			res.DomainString(),
			string(res.Status),
			expiry,
			days,
			res.Issuer,
			res.Reason,
		})
	}
}
