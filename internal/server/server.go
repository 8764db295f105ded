// Package server exposes persisted runs, reports, and artifacts over a small
// read-only HTTP API. It never computes predictions itself.
package server

import (
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yannmerakeb/nlp-financial-reports/internal/models"
	"github.com/yannmerakeb/nlp-financial-reports/internal/store"
)

// Handler handles HTTP requests against the artifact store.
type Handler struct {
	store  *store.Store
	logger *zap.Logger
}

// NewHandler creates a new API handler.
func NewHandler(st *store.Store, logger *zap.Logger) *Handler {
	return &Handler{
		store:  st,
		logger: logger,
	}
}

// NewRouter builds a gin engine with all routes registered.
func NewRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()
	h.RegisterRoutes(router)
	return router
}

// RegisterRoutes registers all API routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		api.GET("/runs", h.ListRuns)
		api.GET("/runs/:id", h.GetRun)
		api.GET("/runs/:id/report", h.GetReport)
		api.GET("/runs/:id/passages", h.ListPassages)
		api.GET("/runs/:id/predictions", h.ExportPredictions)
		api.GET("/runs/:id/labels", h.ExportLabels)
	}

	r.GET("/health", h.HealthCheck)
}

// ListRuns returns all recorded runs, newest first.
// GET /api/v1/runs
func (h *Handler) ListRuns(c *gin.Context) {
	runs, err := h.store.Runs.List(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list runs", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list runs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"runs":  runs,
		"total": len(runs),
	})
}

// GetRun returns a single run row.
// GET /api/v1/runs/:id
func (h *Handler) GetRun(c *gin.Context) {
	run, err := h.store.Runs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
			return
		}
		h.logger.Error("failed to get run", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get run"})
		return
	}

	c.JSON(http.StatusOK, run)
}

// GetReport returns the evaluation report of a run.
// GET /api/v1/runs/:id/report
func (h *Handler) GetReport(c *gin.Context) {
	report, err := h.store.Reports.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
			return
		}
		h.logger.Error("failed to get report", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get report"})
		return
	}

	c.JSON(http.StatusOK, report)
}

// ListPassages returns the segmented passages of a run.
// GET /api/v1/runs/:id/passages
func (h *Handler) ListPassages(c *gin.Context) {
	runID := c.Param("id")
	passages, err := h.store.Passages.List(c.Request.Context(), runID)
	if err != nil {
		h.logger.Error("failed to list passages", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list passages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"run_id":   runID,
		"passages": passages,
		"total":    len(passages),
	})
}

// ExportPredictions returns the predictions of a run as JSON or CSV.
// GET /api/v1/runs/:id/predictions?model=baseline&format=csv
func (h *Handler) ExportPredictions(c *gin.Context) {
	runID := c.Param("id")
	model := c.Query("model")
	if model != "" && model != models.ModelBaseline && model != models.ModelAdvanced {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown model %q", model)})
		return
	}

	preds, err := h.store.Predictions.List(c.Request.Context(), runID, model)
	if err != nil {
		h.logger.Error("failed to list predictions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list predictions"})
		return
	}

	if c.Query("format") == "csv" {
		writePredictionsCSV(c, runID, preds)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"run_id":      runID,
		"predictions": preds,
		"total":       len(preds),
	})
}

// ExportLabels returns the labels of a run as JSON or CSV.
// GET /api/v1/runs/:id/labels?format=csv
func (h *Handler) ExportLabels(c *gin.Context) {
	runID := c.Param("id")
	labels, err := h.store.Labels.List(c.Request.Context(), runID)
	if err != nil {
		h.logger.Error("failed to list labels", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list labels"})
		return
	}

	if c.Query("format") == "csv" {
		writeLabelsCSV(c, runID, labels)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"run_id": runID,
		"labels": labels,
		"total":  len(labels),
	})
}

// HealthCheck returns service health.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "finreports",
	})
}

func writePredictionsCSV(c *gin.Context, runID string, preds []models.PredictionRecord) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s_predictions.csv", runID))

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	writer.Write([]string{"document_id", "passage_index", "model", "probability", "predicted"})
	for _, p := range preds {
		writer.Write([]string{
			p.DocumentID,
			strconv.Itoa(p.PassageIndex),
			p.Model,
			strconv.FormatFloat(p.Probability, 'f', 6, 64),
			strconv.Itoa(p.Predicted),
		})
	}
}

func writeLabelsCSV(c *gin.Context, runID string, labels []models.Label) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s_labels.csv", runID))

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	writer.Write([]string{
		"document_id", "passage_index", "evasive", "label_source",
		"ambiguity_score", "market_adverse", "forward_return", "window_days",
	})
	for _, l := range labels {
		evasive := ""
		if l.Evasive != nil {
			evasive = strconv.Itoa(*l.Evasive)
		}
		adverse := ""
		if l.MarketAdverse != nil {
			adverse = strconv.FormatBool(*l.MarketAdverse)
		}
		ret := ""
		if l.ForwardReturn != nil {
			ret = strconv.FormatFloat(*l.ForwardReturn, 'f', 6, 64)
		}
		writer.Write([]string{
			l.DocumentID,
			strconv.Itoa(l.PassageIndex),
			evasive,
			string(l.Source),
			strconv.FormatFloat(l.AmbiguityScore, 'f', 4, 64),
			adverse,
			ret,
			strconv.Itoa(l.WindowDays),
		})
	}
}
