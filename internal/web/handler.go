package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iconwatch/iconwatch/internal/config"
	"github.com/iconwatch/iconwatch/internal/models"
	"github.com/iconwatch/iconwatch/internal/reporter"
	"github.com/iconwatch/iconwatch/internal/status"
)

const (
	defaultScanLimit  = 20
	maxScanLimit      = 500
	defaultErrorLimit = 20
)

// StatusSource exposes the current status surface
type StatusSource interface {
	Snapshot() status.Snapshot
}

// Journal is the read side of the scan journal
type Journal interface {
	reporter.Store
	ListRecent(limit int) ([]*models.ScanRecord, error)
	GetScansSince(since time.Time) ([]*models.ScanRecord, error)
	GetByScanID(scanID string) (*models.ScanRecord, error)
	ListErrors(limit int) ([]*models.ErrorLog, error)
}

type Handler struct {
	config   *config.Config
	board    StatusSource
	journal  Journal
	reporter *reporter.Reporter
	backend  string
	started  time.Time
	log      zerolog.Logger
}

// NewHandler builds the API handler. journal may be nil when the scan
// journal is disabled.
func NewHandler(cfg *config.Config, board StatusSource, journal Journal, backend string, logger zerolog.Logger) *Handler {
	h := &Handler{
		config:  cfg,
		board:   board,
		journal: journal,
		backend: backend,
		started: time.Now(),
		log:     logger,
	}
	if journal != nil {
		h.reporter = reporter.New(cfg, journal)
	}
	return h
}

func (h *Handler) SetupRoutes(r chi.Router) {
	r.Get("/api/status", h.handleStatus)
	r.Get("/api/scans", h.handleScans)
	r.Get("/api/scans/{scanID}", h.handleScan)
	r.Get("/api/report", h.handleReport)
	r.Get("/api/errors", h.handleErrors)

	r.Get("/health", h.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/", h.handleIndex)
}

type statusResponse struct {
	State     status.State `json:"state"`
	Count     string       `json:"count"`
	Names     []string     `json:"names"`
	Error     string       `json:"error,omitempty"`
	UpdatedAt *time.Time   `json:"updated_at,omitempty"`
	Backend   string       `json:"backend"`
	Uptime    string       `json:"uptime"`
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := h.board.Snapshot()

	resp := statusResponse{
		State:   snap.State,
		Count:   snap.CountText,
		Names:   snap.Names(),
		Error:   snap.Error,
		Backend: h.backend,
		Uptime:  time.Since(h.started).Round(time.Second).String(),
	}
	if resp.Names == nil {
		resp.Names = []string{}
	}
	if !snap.UpdatedAt.IsZero() {
		at := snap.UpdatedAt
		resp.UpdatedAt = &at
	}

	h.respondJSON(w, resp)
}

func (h *Handler) handleScans(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		http.Error(w, "Scan journal disabled", http.StatusServiceUnavailable)
		return
	}

	limit, ok := parseLimit(w, r, defaultScanLimit, maxScanLimit)
	if !ok {
		return
	}

	var records []*models.ScanRecord
	var err error
	if sinceStr := r.URL.Query().Get("since"); sinceStr != "" {
		since, perr := time.Parse(time.RFC3339, sinceStr)
		if perr != nil {
			http.Error(w, fmt.Sprintf("invalid since (want RFC 3339): %q", sinceStr), http.StatusBadRequest)
			return
		}
		records, err = h.journal.GetScansSince(since)
		if len(records) > limit {
			records = records[len(records)-limit:]
		}
	} else {
		records, err = h.journal.ListRecent(limit)
	}
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to fetch scans: %v", err), http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []*models.ScanRecord{}
	}

	h.respondJSON(w, records)
}

func (h *Handler) handleScan(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		http.Error(w, "Scan journal disabled", http.StatusServiceUnavailable)
		return
	}

	scanID := chi.URLParam(r, "scanID")
	record, err := h.journal.GetByScanID(scanID)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to fetch scan: %v", err), http.StatusInternalServerError)
		return
	}
	if record == nil {
		http.Error(w, fmt.Sprintf("scan %s not found", scanID), http.StatusNotFound)
		return
	}

	h.respondJSON(w, record)
}

func (h *Handler) handleErrors(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		http.Error(w, "Scan journal disabled", http.StatusServiceUnavailable)
		return
	}

	limit, ok := parseLimit(w, r, defaultErrorLimit, maxScanLimit)
	if !ok {
		return
	}

	logs, err := h.journal.ListErrors(limit)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to fetch errors: %v", err), http.StatusInternalServerError)
		return
	}
	if logs == nil {
		logs = []*models.ErrorLog{}
	}

	h.respondJSON(w, logs)
}

// parseLimit reads ?limit=, capped at maxLimit. It writes a 400 and returns
// false when the value is not a positive integer.
func parseLimit(w http.ResponseWriter, r *http.Request, def, maxLimit int) (int, bool) {
	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		return def, true
	}
	l, err := strconv.Atoi(limitStr)
	if err != nil || l <= 0 {
		http.Error(w, fmt.Sprintf("invalid limit: %q", limitStr), http.StatusBadRequest)
		return 0, false
	}
	return min(l, maxLimit), true
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	if h.reporter == nil {
		http.Error(w, "Scan journal disabled", http.StatusServiceUnavailable)
		return
	}

	periodType := r.URL.Query().Get("period")
	if periodType == "" {
		periodType = "day"
	}

	switch periodType {
	case "day", "today", "week", "month":
	default:
		http.Error(w, fmt.Sprintf("invalid period type: %s (valid: day, week, month)", periodType), http.StatusBadRequest)
		return
	}

	report, err := h.reporter.GenerateReport(periodType)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to generate report: %v", err), http.StatusInternalServerError)
		return
	}

	h.respondJSON(w, report)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(indexHTML))
}

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>Desktop Icon Finder</title>
    <style>
        body { font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; background: #f5f5f5; padding: 20px; color: #333; }
        .box { background: white; border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); padding: 24px; max-width: 480px; }
        h1 { font-size: 1.5rem; margin-top: 0; }
        #count { font-weight: 600; color: #3498db; }
        pre { white-space: pre-wrap; }
    </style>
</head>
<body>
    <div class="box">
        <h1>Desktop Icons: <span id="count">-</span></h1>
        <pre id="names">Waiting for the desktop...</pre>
    </div>
    <script>
        async function refresh() {
            const res = await fetch('/api/status');
            const s = await res.json();
            document.getElementById('count').textContent = s.count || '-';
            document.getElementById('names').textContent =
                s.state === 'failed' ? s.error : (s.names.length ? s.names.join('\n') : 'Waiting for the desktop...');
        }
        refresh();
        setInterval(refresh, 5000);
    </script>
</body>
</html>`

func (h *Handler) respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Error encoding JSON")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
