package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tresfinos/treasury/common/apierr"
	"github.com/tresfinos/treasury/internal/reconciliation"
	"github.com/tresfinos/treasury/internal/reporting"
)

type createReconciliationRequest struct {
	OrganizationID string    `json:"organizationId" binding:"required"`
	PeriodStart    time.Time `json:"periodStart" binding:"required"`
	PeriodEnd      time.Time `json:"periodEnd" binding:"required"`
	Status         string    `json:"status"`
	Notes          string    `json:"notes"`
}

type updateReconciliationRequest struct {
	Status           *string `json:"status"`
	Notes            *string `json:"notes"`
	MatchedCount     *int64  `json:"matchedCount"`
	UnmatchedCount   *int64  `json:"unmatchedCount"`
	DiscrepancyCount *int64  `json:"discrepancyCount"`
}

type autoRunRequest struct {
	OrganizationID string     `json:"organizationId" binding:"required"`
	PeriodStart    *time.Time `json:"periodStart"`
	PeriodEnd      *time.Time `json:"periodEnd"`
}

type createReportRequest struct {
	OrganizationID string `json:"organizationId" binding:"required"`
	ReportType     string `json:"reportType" binding:"required"`
	Title          string `json:"title" binding:"required"`
	Parameters     string `json:"parameters"`
}

func (s *Server) listReconciliations(c *gin.Context) {
	organizationID := c.Query("organizationId")
	if organizationID == "" {
		respondError(c, apierr.InvalidInput("organizationId is required"))
		return
	}

	items, err := s.services.Reconciliation.List(c.Request.Context(), organizationID, queryInt(c, "limit", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) createReconciliation(c *gin.Context) {
	var req createReconciliationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	run, err := s.services.Reconciliation.Create(c.Request.Context(), reconciliation.RunInput{
		OrganizationID: req.OrganizationID,
		PeriodStart:    req.PeriodStart,
		PeriodEnd:      req.PeriodEnd,
		Status:         req.Status,
		Notes:          req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"reconciliation": run})
}

func (s *Server) updateReconciliation(c *gin.Context) {
	organizationID := c.Query("organizationId")
	if organizationID == "" {
		respondError(c, apierr.InvalidInput("organizationId is required"))
		return
	}

	var req updateReconciliationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	run, err := s.services.Reconciliation.Update(c.Request.Context(), organizationID, c.Param("id"), reconciliation.RunUpdate{
		Status:           req.Status,
		Notes:            req.Notes,
		MatchedCount:     req.MatchedCount,
		UnmatchedCount:   req.UnmatchedCount,
		DiscrepancyCount: req.DiscrepancyCount,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reconciliation": run})
}

func (s *Server) autoRunReconciliation(c *gin.Context) {
	var req autoRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	run, err := s.services.Reconciliation.AutoRun(c.Request.Context(), req.OrganizationID, req.PeriodStart, req.PeriodEnd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"reconciliation": run})
}

func (s *Server) listReports(c *gin.Context) {
	organizationID := c.Query("organizationId")
	if organizationID == "" {
		respondError(c, apierr.InvalidInput("organizationId is required"))
		return
	}

	items, err := s.services.Reporting.ListReports(c.Request.Context(), organizationID, queryInt(c, "limit", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) createReport(c *gin.Context) {
	var req createReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	report, err := s.services.Reporting.CreateReport(c.Request.Context(), reporting.ReportInput{
		OrganizationID: req.OrganizationID,
		ReportType:     req.ReportType,
		Title:          req.Title,
		Parameters:     req.Parameters,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"report": report})
}

func (s *Server) getReport(c *gin.Context) {
	report, err := s.services.Reporting.GetReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": report})
}

func (s *Server) runReport(c *gin.Context) {
	result, err := s.services.Reporting.RunReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
