package api

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"anomalyexplain/domain/core"
	"anomalyexplain/domain/dataset"
	"anomalyexplain/domain/explanation"
	"anomalyexplain/internal/errors"
	"anomalyexplain/internal/explain"
	"anomalyexplain/internal/metrics"
	"anomalyexplain/internal/profiling"
	"anomalyexplain/internal/report"

	"github.com/gin-gonic/gin"
)

const defaultListLimit = 20

func (s *Server) handleHealth(c *gin.Context) {
	status := gin.H{
		"status":      "ok",
		"persistence": s.repo != nil,
		"reference":   s.reference != nil,
	}
	if s.reference != nil {
		status["reference_rows"] = s.reference.NumRows()
		status["reference_columns"] = len(s.reference.Columns())
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) handleExplain(c *gin.Context) {
	var req ExplainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, errors.WithCode(errors.CodeInvalidInput, err))
		return
	}
	if req.Sample == nil {
		s.respondError(c, errors.InvalidInput("sample is required"))
		return
	}
	ref, err := s.resolveReference(req.Reference)
	if err != nil {
		s.respondError(c, err)
		return
	}

	start := time.Now()
	exp := s.engine.ExplainAnomaly(*req.Sample, ref)
	s.metrics.ObserveExplanations(metrics.ModeSingle, []*explanation.Explanation{exp}, time.Since(start))

	resp := ExplainResponse{Explanation: exp}
	if s.repo != nil {
		resp.ID = s.persist(c.Request.Context(), exp, ref.Fingerprint())
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleExplainBatch(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, errors.WithCode(errors.CodeInvalidInput, err))
		return
	}
	if len(req.Samples) > s.maxBatchSize {
		s.respondError(c, errors.Wrapf(core.ErrBatchLimitExceeded, "batch of %d samples exceeds limit of %d", len(req.Samples), s.maxBatchSize))
		return
	}
	ref, err := s.resolveReference(req.Reference)
	if err != nil {
		s.respondError(c, err)
		return
	}

	start := time.Now()
	exps := s.engine.ExplainBatch(req.Samples, ref)
	s.metrics.ObserveExplanations(metrics.ModeBatch, exps, time.Since(start))

	resp := BatchResponse{
		Explanations: exps,
		Summary:      explain.FeatureImportanceSummary(exps),
	}
	if s.repo != nil {
		fingerprint := ref.Fingerprint()
		resp.IDs = make([]core.ExplanationID, len(exps))
		for i, exp := range exps {
			resp.IDs[i] = s.persist(c.Request.Context(), exp, fingerprint)
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleImportance(c *gin.Context) {
	var req ImportanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, errors.WithCode(errors.CodeInvalidInput, err))
		return
	}
	c.JSON(http.StatusOK, ImportanceResponse{Summary: explain.FeatureImportanceSummary(req.Explanations)})
}

func (s *Server) handleReference(c *gin.Context) {
	if s.reference == nil {
		s.respondError(c, errors.WithCode(errors.CodeNotFound, core.ErrNoReference))
		return
	}

	profiles := profiling.NewDataProfiler().ProfileReference(s.reference)
	resp := ReferenceResponse{
		Fingerprint: s.reference.Fingerprint().String(),
		Rows:        s.reference.NumRows(),
		Columns:     make([]ReferenceColumn, 0, len(profiles)),
	}
	for _, name := range s.reference.Columns() {
		p, ok := profiles[name]
		if !ok {
			resp.Columns = append(resp.Columns, ReferenceColumn{Name: name})
			continue
		}
		col := ReferenceColumn{Name: name, Count: p.Count, Mean: p.Mean, Min: p.Min, Max: p.Max, Median: p.Median}
		if !math.IsNaN(p.StdDev) {
			std := p.StdDev
			col.StdDev = &std
		}
		resp.Columns = append(resp.Columns, col)
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleGetExplanation(c *gin.Context) {
	record, ok := s.loadRecord(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, record)
}

func (s *Server) handleExplanationReport(c *gin.Context) {
	record, ok := s.loadRecord(c)
	if !ok {
		return
	}
	if c.Query("format") == "markdown" {
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(report.Markdown(record.Explanation)))
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", report.HTML(record.Explanation))
}

func (s *Server) handleListExplanations(c *gin.Context) {
	if s.repo == nil {
		s.respondError(c, errors.Unavailable("explanation storage is not configured"))
		return
	}

	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.respondError(c, errors.InvalidInput(fmt.Sprintf("invalid limit %q", raw)))
			return
		}
		limit = n
	}

	var (
		records []*explanation.Record
		err     error
	)
	if sampleID := c.Query("sample_id"); sampleID != "" {
		records, err = s.repo.ListBySample(c.Request.Context(), sampleID, limit)
	} else {
		records, err = s.repo.ListRecent(c.Request.Context(), limit)
	}
	if err != nil {
		s.respondError(c, errors.DatabaseError("failed to list explanations", err))
		return
	}
	if records == nil {
		records = []*explanation.Record{}
	}
	c.JSON(http.StatusOK, gin.H{"explanations": records})
}

// loadRecord resolves the :id parameter, writing the error response itself
func (s *Server) loadRecord(c *gin.Context) (*explanation.Record, bool) {
	if s.repo == nil {
		s.respondError(c, errors.Unavailable("explanation storage is not configured"))
		return nil, false
	}
	id, err := core.ParseExplanationID(c.Param("id"))
	if err != nil {
		s.respondError(c, errors.WithCode(errors.CodeInvalidInput, err))
		return nil, false
	}
	record, err := s.repo.Get(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, errors.Wrap(err, "failed to load explanation"))
		return nil, false
	}
	return record, true
}

func (s *Server) resolveReference(inline *dataset.Reference) (*dataset.Reference, error) {
	if inline != nil {
		return inline, nil
	}
	if s.reference != nil {
		return s.reference, nil
	}
	return nil, errors.WithCode(errors.CodeInvalidInput, core.ErrNoReference)
}

// persist stores exp best-effort; failures are logged and yield an empty id
func (s *Server) persist(ctx context.Context, exp *explanation.Explanation, fingerprint core.Hash) core.ExplanationID {
	if s.repo == nil || exp == nil {
		return ""
	}
	record := explanation.NewRecord(exp, fingerprint)
	if err := s.repo.Save(ctx, record); err != nil {
		s.logger.Warn("Failed to store explanation for sample %s: %v", exp.SampleID, err)
		return ""
	}
	return record.ID
}

func (s *Server) respondError(c *gin.Context, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("%s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Error: err.Error(), Code: errors.GetCode(err)})
}
