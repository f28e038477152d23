package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Artem7898/ai-decision-simulator/internal/config"
	"github.com/Artem7898/ai-decision-simulator/internal/decision"
	"github.com/Artem7898/ai-decision-simulator/internal/observability"
	"github.com/Artem7898/ai-decision-simulator/internal/runner"
	"github.com/Artem7898/ai-decision-simulator/internal/store"
	"github.com/Artem7898/ai-decision-simulator/pkg/adapters"
	"github.com/Artem7898/ai-decision-simulator/pkg/constants"
	"github.com/Artem7898/ai-decision-simulator/pkg/output"
	"go.uber.org/zap"
)

// Simulator runs simulation requests. *runner.Service implements it.
type Simulator interface {
	Execute(ctx context.Context, req runner.Request) (runner.Result, error)
	ExecuteBatch(ctx context.Context, reqs []runner.Request) ([]runner.Result, error)
}

// RunReader reads persisted runs. *store.Store implements it.
type RunReader interface {
	GetRun(ctx context.Context, id string) (store.Run, error)
	ListRuns(ctx context.Context, filter store.RunFilter) ([]store.Run, error)
}

// Options configures the HTTP handler. Runs and Metrics are optional.
type Options struct {
	Runs          RunReader
	Metrics       *observability.Metrics
	MaxUploadSize int64
	Version       string
}

type handler struct {
	logger        *zap.Logger
	simulator     Simulator
	runs          RunReader
	metrics       *observability.Metrics
	maxUploadSize int64
	version       string
}

// NewHandler constructs the HTTP handler that serves the simulation API.
func NewHandler(logger *zap.Logger, simulator Simulator, opts Options) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	maxUploadSize := opts.MaxUploadSize
	if maxUploadSize <= 0 {
		maxUploadSize = constants.DefaultMaxUploadSizeBytes
	}

	trimmedVersion := strings.TrimSpace(opts.Version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	h := &handler{
		logger:        logger,
		simulator:     simulator,
		runs:          opts.Runs,
		metrics:       opts.Metrics,
		maxUploadSize: maxUploadSize,
		version:       trimmedVersion,
	}

	mux := http.NewServeMux()

	// Single simulation from a JSON request
	mux.Handle("/api/simulate", h.instrument("/api/simulate", h.handleSimulate))

	// Independent simulations in parallel
	mux.Handle("/api/simulate/batch", h.instrument("/api/simulate/batch", h.handleBatch))

	// Every active decision of an uploaded YAML configuration
	mux.Handle("/api/simulate/upload", h.instrument("/api/simulate/upload", h.handleUpload))

	// Run records
	mux.Handle("/api/runs", h.instrument("/api/runs", h.handleListRuns))
	mux.Handle("/api/runs/{id}", h.instrument("/api/runs/{id}", h.handleGetRun))

	// Version endpoint for clients
	mux.Handle("/api/version", h.instrument("/api/version", h.handleVersion))

	mux.Handle("/metrics", opts.Metrics.Handler())

	return mux
}

type batchRequest struct {
	Requests []runner.Request `json:"requests"`
}

type batchResponse struct {
	Results  []runner.Result `json:"results"`
	Warnings []string        `json:"warnings,omitempty"`
	CSV      string          `json:"csv,omitempty"`
	Duration string          `json:"duration"`
}

func (h *handler) handleSimulate(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleSimulate"
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	var req runner.Request
	if !h.decodeJSON(w, r, &req, op) {
		return
	}

	result, err := h.simulator.Execute(r.Context(), req)
	if err != nil {
		status := statusForError(err)
		h.logFailure(op, status, err.Error())
		if result.RunID == "" {
			h.writeJSON(w, status, map[string]string{"error": err.Error()})
			return
		}
		h.writeJSON(w, status, result)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

func (h *handler) handleBatch(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleBatch"
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	var payload batchRequest
	if !h.decodeJSON(w, r, &payload, op) {
		return
	}
	if len(payload.Requests) == 0 {
		h.respondError(w, http.StatusBadRequest, "batch contains no requests", op)
		return
	}

	h.runBatch(r.Context(), w, payload.Requests, nil, start, op)
}

func (h *handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleUpload"
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds limit of %d bytes", h.maxUploadSize), op)
			return
		}
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse upload: %v", err), op)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "missing configuration file", op)
		return
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			h.logger.Warn("failed to close uploaded file",
				zap.String("op", op),
				zap.Error(closeErr),
			)
		}
	}()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file); err != nil {
		h.respondError(w, http.StatusInternalServerError, fmt.Sprintf("failed to read configuration: %v", err), op)
		return
	}

	cfg, err := config.LoadConfigurationFromReader(&buf)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error(), op)
		return
	}
	warnings := cfg.ValidateConfiguration()

	requests, err := adapters.ConfigurationToRequests(h.logger, *cfg)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error(), op)
		return
	}
	if len(requests) == 0 {
		h.writeJSON(w, http.StatusOK, batchResponse{
			Results:  []runner.Result{},
			Warnings: warnings,
			Duration: time.Since(start).String(),
		})
		return
	}

	h.runBatch(r.Context(), w, requests, warnings, start, op)
}

func (h *handler) runBatch(ctx context.Context, w http.ResponseWriter, requests []runner.Request, warnings []string, start time.Time, op string) {
	results, err := h.simulator.ExecuteBatch(ctx, requests)
	if err != nil {
		// Per-request failures are reported inside the results.
		h.logger.Warn("batch finished with failures",
			zap.String("op", op),
			zap.Error(err),
		)
	}

	var csv bytes.Buffer
	output.CsvFormat(&csv, results)

	elapsed := time.Since(start)
	h.logger.Info("batch simulated",
		zap.String("op", op),
		zap.Int("requests", len(requests)),
		zap.Duration("duration", elapsed),
	)

	h.writeJSON(w, http.StatusOK, batchResponse{
		Results:  results,
		Warnings: warnings,
		CSV:      csv.String(),
		Duration: elapsed.String(),
	})
}

func (h *handler) handleListRuns(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleListRuns"
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	if h.runs == nil {
		h.respondError(w, http.StatusNotImplemented, "run storage is disabled", op)
		return
	}

	query := r.URL.Query()
	filter := store.RunFilter{Status: store.Status(strings.ToLower(query.Get("status")))}
	if raw := query.Get("decision_type"); raw != "" {
		kind, err := decision.ParseKind(raw)
		if err != nil {
			h.respondError(w, http.StatusBadRequest, err.Error(), op)
			return
		}
		filter.DecisionType = kind
	}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			h.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", raw), op)
			return
		}
		filter.Limit = limit
	}

	runs, err := h.runs.ListRuns(r.Context(), filter)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err.Error(), op)
		return
	}
	if runs == nil {
		runs = []store.Run{}
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"runs": runs})
}

func (h *handler) handleGetRun(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleGetRun"
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	if h.runs == nil {
		h.respondError(w, http.StatusNotImplemented, "run storage is disabled", op)
		return
	}

	run, err := h.runs.GetRun(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrRunNotFound) {
		h.respondError(w, http.StatusNotFound, err.Error(), op)
		return
	}
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err.Error(), op)
		return
	}
	h.writeJSON(w, http.StatusOK, run)
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

// statusForError maps a simulation error to an HTTP status.
func statusForError(err error) int {
	switch {
	case errors.Is(err, decision.ErrUnsupportedDecisionKind):
		return http.StatusBadRequest
	case errors.Is(err, decision.ErrMalformedFactors),
		errors.Is(err, decision.ErrInvalidRunConfig):
		return http.StatusUnprocessableEntity
	case errors.Is(err, runner.ErrRunTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (h *handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}, op string) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request exceeds limit of %d bytes", h.maxUploadSize), op)
			return false
		}
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("failed to decode request: %v", err), op)
		return false
	}
	return true
}

func (h *handler) respondError(w http.ResponseWriter, status int, msg string, op string) {
	h.logFailure(op, status, msg)
	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *handler) logFailure(op string, status int, msg string) {
	h.logger.Error("simulation request failed",
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("error", msg),
	)
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (h *handler) instrument(route string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		h.metrics.RecordHTTPRequest(route, rec.status)
	})
}
