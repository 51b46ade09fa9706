package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/skarn-data/alteration.report/internal/analysis"
	"github.com/skarn-data/alteration.report/internal/db"
	"github.com/skarn-data/alteration.report/internal/monitoring"
	"github.com/skarn-data/alteration.report/internal/report"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	store    *db.RunStore
	registry *analysis.Registry
}

func NewServer(store *db.RunStore, registry *analysis.Registry) *Server {
	return &Server{
		store:    store,
		registry: registry,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400 && statusCode < 500:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 500:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/runs", s.handleRuns)
	mux.HandleFunc("/api/runs/", s.handleRunByID)
	mux.HandleFunc("/api/operations", s.listOperations)
	return mux
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// handleRuns lists runs on GET and submits a new run on POST.
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch r.Method {
	case http.MethodGet:
		s.listRuns(w, r)
	case http.MethodPost:
		s.submitRun(w, r)
	default:
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			s.writeJSONError(w, http.StatusBadRequest, "Invalid 'limit' parameter")
			return
		}
		limit = parsed
	}

	runs, err := s.store.ListRuns(r.Context(), r.URL.Query().Get("status"), limit)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to list runs: %v", err))
		return
	}

	// Strip result documents from the listing; they can be large and
	// are served per run.
	for _, run := range runs {
		run.Result = nil
	}

	if runs == nil {
		runs = []*db.AnalysisRun{}
	}
	if err := json.NewEncoder(w).Encode(runs); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write runs")
		return
	}
}

// submitRequest is the POST /api/runs body.
type submitRequest struct {
	Operation    string          `json:"operation"`
	SourcePath   string          `json:"source_path"`
	SourceFormat string          `json:"source_format"`
	Rows         int             `json:"rows"`
	Cols         int             `json:"cols"`
	Bands        int             `json:"bands"`
	Options      json.RawMessage `json:"options"`
}

func (s *Server) submitRun(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	known := false
	for _, name := range s.registry.Names() {
		if name == strings.ToLower(req.Operation) {
			known = true
			break
		}
	}
	if !known {
		s.writeJSONError(w, http.StatusBadRequest,
			fmt.Sprintf("Unknown operation %q (valid: %s)", req.Operation, strings.Join(s.registry.Names(), ", ")))
		return
	}
	if req.SourcePath == "" {
		s.writeJSONError(w, http.StatusBadRequest, "Missing 'source_path'")
		return
	}
	if req.Rows < 1 || req.Cols < 1 || req.Bands < 1 {
		s.writeJSONError(w, http.StatusBadRequest, "Raster shape requires positive rows, cols, and bands")
		return
	}

	run := &db.AnalysisRun{
		Operation:    strings.ToLower(req.Operation),
		SourcePath:   req.SourcePath,
		SourceFormat: req.SourceFormat,
		Rows:         req.Rows,
		Cols:         req.Cols,
		Bands:        req.Bands,
		Options:      req.Options,
	}
	if err := s.store.InsertRun(r.Context(), run); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to submit run: %v", err))
		return
	}

	w.WriteHeader(http.StatusAccepted)
	if err := json.NewEncoder(w).Encode(run); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write run")
		return
	}
}

// handleRunByID serves /api/runs/{id}, /api/runs/{id}/result,
// /api/runs/{id}/report, and /api/runs/{id}/heatmap.png.
func (s *Server) handleRunByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Content-Type", "application/json")
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/runs/")
	runID, sub, _ := strings.Cut(rest, "/")
	if runID == "" {
		w.Header().Set("Content-Type", "application/json")
		s.writeJSONError(w, http.StatusBadRequest, "Missing run ID")
		return
	}

	run, err := s.store.GetRun(r.Context(), runID)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		s.writeJSONError(w, http.StatusNotFound, fmt.Sprintf("Run not found: %v", err))
		return
	}

	switch sub {
	case "":
		s.showRun(w, run)
	case "result":
		s.showResult(w, run)
	case "report":
		s.showReport(w, run)
	case "heatmap.png":
		s.showHeatmap(w, run)
	default:
		w.Header().Set("Content-Type", "application/json")
		s.writeJSONError(w, http.StatusNotFound, fmt.Sprintf("Unknown resource %q", sub))
	}
}

func (s *Server) showRun(w http.ResponseWriter, run *db.AnalysisRun) {
	w.Header().Set("Content-Type", "application/json")

	// The status view omits the result document.
	run.Result = nil
	if err := json.NewEncoder(w).Encode(run); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write run")
	}
}

func (s *Server) showResult(w http.ResponseWriter, run *db.AnalysisRun) {
	w.Header().Set("Content-Type", "application/json")

	if run.Status != db.StatusCompleted {
		s.writeJSONError(w, http.StatusConflict,
			fmt.Sprintf("Run %s is %s, not %s", run.RunID, run.Status, db.StatusCompleted))
		return
	}
	w.Write(run.Result)
}

func (s *Server) showReport(w http.ResponseWriter, run *db.AnalysisRun) {
	if run.Status != db.StatusCompleted {
		w.Header().Set("Content-Type", "application/json")
		s.writeJSONError(w, http.StatusConflict,
			fmt.Sprintf("Run %s is %s, not %s", run.RunID, run.Status, db.StatusCompleted))
		return
	}

	res, err := analysis.UnmarshalDocument(run.Result)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to decode result: %v", err))
		return
	}

	var buf bytes.Buffer
	if err := report.RenderHTML(res, &buf); err != nil {
		w.Header().Set("Content-Type", "application/json")
		s.writeJSONError(w, http.StatusUnprocessableEntity,
			fmt.Sprintf("Failed to render report: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

func (s *Server) showHeatmap(w http.ResponseWriter, run *db.AnalysisRun) {
	if run.Status != db.StatusCompleted {
		w.Header().Set("Content-Type", "application/json")
		s.writeJSONError(w, http.StatusConflict,
			fmt.Sprintf("Run %s is %s, not %s", run.RunID, run.Status, db.StatusCompleted))
		return
	}

	res, err := analysis.UnmarshalDocument(run.Result)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to decode result: %v", err))
		return
	}

	grid := res.Grids[res.PrimaryGrid]
	if grid == nil {
		w.Header().Set("Content-Type", "application/json")
		s.writeJSONError(w, http.StatusUnprocessableEntity,
			fmt.Sprintf("Run %s has no %q grid to plot", run.RunID, res.PrimaryGrid))
		return
	}

	title := fmt.Sprintf("%s %s", run.Operation, res.PrimaryGrid)
	var buf bytes.Buffer
	if err := report.WriteGridPNG(grid, title, &buf); err != nil {
		w.Header().Set("Content-Type", "application/json")
		s.writeJSONError(w, http.StatusUnprocessableEntity,
			fmt.Sprintf("Failed to render heatmap: %v", err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(buf.Bytes())
}

func (s *Server) listOperations(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if err := json.NewEncoder(w).Encode(map[string][]string{"operations": s.registry.Names()}); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write operations")
		return
	}
}
