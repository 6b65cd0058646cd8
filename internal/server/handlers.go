package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/wetlandtools/hydroperiod/internal/catalog"
	"github.com/wetlandtools/hydroperiod/internal/constants"
	"github.com/wetlandtools/hydroperiod/pkg/responseformat"
)

// Handlers contains the HTTP handlers for the hydroperiod API
type Handlers struct {
	controller *Controller
	formatter  *responseformat.Formatter
}

// NewHandlers creates a new Handlers instance
func NewHandlers(ctrl *Controller) *Handlers {
	return &Handlers{
		controller: ctrl,
		formatter:  responseformat.NewFormatter(),
	}
}

// sendJSON sends a JSON response with optional status code
func (h *Handlers) sendJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response in JSON format
func (h *Handlers) sendError(w http.ResponseWriter, statusCode int, message string, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorResponse := map[string]interface{}{
		"error":     message,
		"status":    statusCode,
		"timestamp": time.Now().Unix(),
	}

	if err != nil {
		errorResponse["details"] = err.Error()
	}

	json.NewEncoder(w).Encode(errorResponse)
}

// requireCatalog returns the run catalog or replies 503 when none is
// configured.
func (h *Handlers) requireCatalog(w http.ResponseWriter) *catalog.Catalog {
	if h.controller.catalog == nil {
		h.sendError(w, http.StatusServiceUnavailable, "No run catalog configured", nil)
		return nil
	}
	return h.controller.catalog
}

// GetStatus returns the status of the API
func (h *Handlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":    "ok",
		"version":   constants.Version,
		"timestamp": time.Now().Unix(),
	}

	if h.controller.rescanEvery > 0 {
		status["rescan_interval"] = h.controller.rescanEvery.String()
	}
	if cat := h.controller.catalog; cat != nil {
		if run, err := cat.LatestRun(); err == nil {
			status["latest_run_id"] = run.ID
			status["latest_run_at"] = run.CreatedAt.Format(time.RFC3339)
		}
	}

	h.sendJSON(w, status)
}

// GetRuns returns recorded runs, newest first
func (h *Handlers) GetRuns(w http.ResponseWriter, r *http.Request) {
	cat := h.requireCatalog(w)
	if cat == nil {
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			h.sendError(w, http.StatusBadRequest, "Invalid limit parameter", err)
			return
		}
		limit = n
	}

	runs, err := cat.ListRuns(limit)
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, "Failed to list runs", err)
		return
	}

	response := map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	}
	if err := h.formatter.WriteResponse(w, r, response); err != nil {
		h.controller.logger.Errorf("failed to write runs response: %v", err)
	}
}

// GetLatestRun returns the most recently recorded run
func (h *Handlers) GetLatestRun(w http.ResponseWriter, r *http.Request) {
	cat := h.requireCatalog(w)
	if cat == nil {
		return
	}

	run, err := cat.LatestRun()
	if errors.Is(err, catalog.ErrNotFound) {
		h.sendError(w, http.StatusNotFound, "No runs recorded yet", nil)
		return
	}
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, "Failed to load run", err)
		return
	}

	if err := h.formatter.WriteResponse(w, r, run); err != nil {
		h.controller.logger.Errorf("failed to write run response: %v", err)
	}
}

// GetRun returns a single run by ID
func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	cat := h.requireCatalog(w)
	if cat == nil {
		return
	}

	id := mux.Vars(r)["id"]
	run, err := cat.GetRun(id)
	if errors.Is(err, catalog.ErrNotFound) {
		h.sendError(w, http.StatusNotFound, "Run not found", err)
		return
	}
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, "Failed to load run", err)
		return
	}

	if err := h.formatter.WriteResponse(w, r, run); err != nil {
		h.controller.logger.Errorf("failed to write run response: %v", err)
	}
}

// GetVisualization serves the rendered PNG recorded for a run
func (h *Handlers) GetVisualization(w http.ResponseWriter, r *http.Request) {
	cat := h.requireCatalog(w)
	if cat == nil {
		return
	}

	id := mux.Vars(r)["id"]
	run, err := cat.GetRun(id)
	if errors.Is(err, catalog.ErrNotFound) {
		h.sendError(w, http.StatusNotFound, "Run not found", err)
		return
	}
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, "Failed to load run", err)
		return
	}

	if run.VisualizationPath == "" {
		h.sendError(w, http.StatusNotFound, "Run has no visualization", nil)
		return
	}
	if _, err := os.Stat(run.VisualizationPath); err != nil {
		h.sendError(w, http.StatusNotFound, "Visualization file missing", err)
		return
	}

	http.ServeFile(w, r, run.VisualizationPath)
}

// Recompute runs the pipeline once and returns the outcome. Concurrent
// requests are rejected while a run is in progress.
func (h *Handlers) Recompute(w http.ResponseWriter, r *http.Request) {
	c := h.controller
	if !c.runMu.TryLock() {
		h.sendError(w, http.StatusConflict, "A recompute is already in progress", nil)
		return
	}
	defer c.runMu.Unlock()

	// Runs are tied to the server lifetime, not the request, so a
	// dropped client does not abandon a half-written product.
	result, err := c.runner.RunOnce(c.ctx)
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, "Recompute failed", err)
		return
	}

	response := map[string]interface{}{
		"run_id":         result.RunID,
		"sample_count":   result.SampleCount,
		"start_date":     result.StartDate.Format("2006-01-02"),
		"end_date":       result.EndDate.Format("2006-01-02"),
		"span_days":      result.SpanDays,
		"shape":          result.Shape.String(),
		"policy":         result.Policy.String(),
		"wet_pixels":     result.Summary.WetPixels,
		"invalid_pixels": result.Summary.InvalidPixels,
		"mean_days":      result.Summary.MeanDays,
		"max_days":       result.Summary.MaxDays,
		"raster_path":    result.RasterPath,
		"elapsed":        result.Elapsed.String(),
	}
	if result.VisualizationPath != "" {
		response["visualization_path"] = result.VisualizationPath
	}

	h.sendJSON(w, response)
}
