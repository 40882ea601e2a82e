package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ppiankov/distortia/internal/apperr"
	"github.com/ppiankov/distortia/internal/catalog"
	"github.com/ppiankov/distortia/internal/model"
	"github.com/ppiankov/distortia/internal/pipeline"
)

type analyzeRequest struct {
	Text string     `json:"text"`
	Mode model.Mode `json:"mode"`
}

type labelsResponse struct {
	Version           int             `json:"version"`
	Labels            []catalog.Entry `json:"labels"`
	Sentinel          catalog.Entry   `json:"sentinel"`
	CorrectionOptions []model.Label   `json:"correction_options"`
}

func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	classifier := s.pipeline.Classifier()
	if err := classifier.Ping(ctx); err != nil {
		s.logger.Warn("Classifier unreachable", zap.String("provider", classifier.Name()), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "degraded",
			"provider": classifier.Name(),
			"error":    "classifier unreachable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "provider": classifier.Name()})
}

func (s *Server) handleLabels(c *gin.Context) {
	cat := s.pipeline.Catalog()
	c.JSON(http.StatusOK, labelsResponse{
		Version:           cat.Version(),
		Labels:            cat.Entries(),
		Sentinel:          cat.Sentinel(),
		CorrectionOptions: cat.CorrectionOptions(),
	})
}

func (s *Server) handleAnalyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, apperr.Validation("Request body must be JSON with a \"text\" field."))
		return
	}

	var (
		result *model.AnalysisResult
		err    error
	)
	switch req.Mode {
	case "":
		result, err = s.pipeline.Analyze(c.Request.Context(), req.Text)
	case model.ModeBatch, model.ModeSingle:
		result, err = s.pipeline.AnalyzeMode(c.Request.Context(), req.Text, req.Mode)
	default:
		abortWithError(c, apperr.Validation("Unknown mode "+strconv.Quote(string(req.Mode))+"."))
		return
	}
	if err != nil {
		abortWithError(c, err)
		return
	}

	report := pipeline.BuildReport(s.pipeline.Reconcile(result), s.disclaimer)
	c.JSON(http.StatusOK, report)
}

// handleFeedback relays one record to the feedback collector
func (s *Server) handleFeedback(c *gin.Context) {
	record, ok := s.bindFeedback(c)
	if !ok {
		return
	}

	if err := s.submitter.Submit(c.Request.Context(), record); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// handleCollect stores one record locally
func (s *Server) handleCollect(c *gin.Context) {
	record, ok := s.bindFeedback(c)
	if !ok {
		return
	}

	id, err := s.store.Save(c.Request.Context(), record)
	if err != nil {
		s.logger.Error("Failed to store feedback", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store feedback"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "success", "id": id})
}

func (s *Server) handleListFeedback(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = n
	}

	records, err := s.store.List(c.Request.Context(), limit)
	if err != nil {
		s.logger.Error("Failed to list feedback", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list feedback"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"feedback": records})
}

func (s *Server) handleStats(c *gin.Context) {
	stats, err := s.store.Stats(c.Request.Context())
	if err != nil {
		s.logger.Error("Failed to compute feedback stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// bindFeedback decodes a record and checks it against the catalog
func (s *Server) bindFeedback(c *gin.Context) (model.FeedbackRecord, bool) {
	var record model.FeedbackRecord
	if err := c.ShouldBindJSON(&record); err != nil {
		abortWithError(c, apperr.Validation("Request body must be a JSON feedback record."))
		return record, false
	}

	if err := s.submitter.Check(record); err != nil {
		abortWithError(c, err)
		return record, false
	}

	return record, true
}
