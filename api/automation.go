package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tresfinos/treasury/common/apierr"
	"github.com/tresfinos/treasury/internal/automation"
)

type createRuleRequest struct {
	OrganizationID string `json:"organizationId" binding:"required"`
	Name           string `json:"name" binding:"required"`
	RuleType       string `json:"ruleType" binding:"required"`
	Conditions     string `json:"conditions"`
	Actions        string `json:"actions"`
	Priority       *int   `json:"priority"`
	IsActive       *bool  `json:"isActive"`
}

type updateRuleRequest struct {
	Name       *string `json:"name"`
	Conditions *string `json:"conditions"`
	Actions    *string `json:"actions"`
	Priority   *int    `json:"priority"`
	IsActive   *bool   `json:"isActive"`
}

type createAlertRequest struct {
	OrganizationID    string   `json:"organizationId" binding:"required"`
	Name              string   `json:"name" binding:"required"`
	AlertType         string   `json:"alertType" binding:"required"`
	ThresholdOperator string   `json:"thresholdOperator"`
	ThresholdValue    *float64 `json:"thresholdValue"`
	Channel           string   `json:"channel"`
	Severity          string   `json:"severity"`
	IsActive          *bool    `json:"isActive"`
}

type updateAlertRequest struct {
	Name              *string    `json:"name"`
	ThresholdOperator *string    `json:"thresholdOperator"`
	ThresholdValue    *float64   `json:"thresholdValue"`
	Channel           *string    `json:"channel"`
	Severity          *string    `json:"severity"`
	IsActive          *bool      `json:"isActive"`
	LastTriggeredAt   *time.Time `json:"lastTriggeredAt"`
}

type createWebhookRequest struct {
	OrganizationID string `json:"organizationId" binding:"required"`
	Name           string `json:"name" binding:"required"`
	EndpointURL    string `json:"endpointUrl" binding:"required"`
	SecretHint     string `json:"secretHint"`
	EventTypes     string `json:"eventTypes"`
	Status         string `json:"status"`
}

type updateWebhookRequest struct {
	Name        *string `json:"name"`
	EndpointURL *string `json:"endpointUrl"`
	SecretHint  *string `json:"secretHint"`
	EventTypes  *string `json:"eventTypes"`
	Status      *string `json:"status"`
}

type testWebhookRequest struct {
	EventType string `json:"eventType"`
	Payload   string `json:"payload"`
}

type createErpRequest struct {
	OrganizationID string `json:"organizationId" binding:"required"`
	SystemName     string `json:"systemName" binding:"required"`
	Config         string `json:"config"`
	Status         string `json:"status"`
}

func (s *Server) listRules(c *gin.Context) {
	organizationID := c.Query("organizationId")
	if organizationID == "" {
		respondError(c, apierr.InvalidInput("organizationId is required"))
		return
	}

	items, err := s.services.Automation.ListRules(c.Request.Context(), organizationID, queryInt(c, "limit", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) createRule(c *gin.Context) {
	var req createRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	rule, err := s.services.Automation.CreateRule(c.Request.Context(), automation.RuleInput{
		OrganizationID: req.OrganizationID,
		Name:           req.Name,
		RuleType:       req.RuleType,
		Conditions:     req.Conditions,
		Actions:        req.Actions,
		Priority:       req.Priority,
		IsActive:       req.IsActive,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"rule": rule})
}

func (s *Server) updateRule(c *gin.Context) {
	var req updateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	rule, err := s.services.Automation.UpdateRule(c.Request.Context(), c.Param("id"), automation.RuleUpdate{
		Name:       req.Name,
		Conditions: req.Conditions,
		Actions:    req.Actions,
		Priority:   req.Priority,
		IsActive:   req.IsActive,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rule": rule})
}

func (s *Server) listAlerts(c *gin.Context) {
	organizationID := c.Query("organizationId")
	if organizationID == "" {
		respondError(c, apierr.InvalidInput("organizationId is required"))
		return
	}

	items, err := s.services.Automation.ListAlerts(c.Request.Context(), organizationID, queryInt(c, "limit", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) createAlert(c *gin.Context) {
	var req createAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	alert, err := s.services.Automation.CreateAlert(c.Request.Context(), automation.AlertInput{
		OrganizationID:    req.OrganizationID,
		Name:              req.Name,
		AlertType:         req.AlertType,
		ThresholdOperator: req.ThresholdOperator,
		ThresholdValue:    req.ThresholdValue,
		Channel:           req.Channel,
		Severity:          req.Severity,
		IsActive:          req.IsActive,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"alert": alert})
}

func (s *Server) updateAlert(c *gin.Context) {
	var req updateAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	alert, err := s.services.Automation.UpdateAlert(c.Request.Context(), c.Param("id"), automation.AlertUpdate{
		Name:              req.Name,
		ThresholdOperator: req.ThresholdOperator,
		ThresholdValue:    req.ThresholdValue,
		Channel:           req.Channel,
		Severity:          req.Severity,
		IsActive:          req.IsActive,
		LastTriggeredAt:   req.LastTriggeredAt,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"alert": alert})
}

func (s *Server) listWebhooks(c *gin.Context) {
	organizationID := c.Query("organizationId")
	if organizationID == "" {
		respondError(c, apierr.InvalidInput("organizationId is required"))
		return
	}

	items, err := s.services.Automation.ListWebhooks(c.Request.Context(), organizationID, queryInt(c, "limit", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) createWebhook(c *gin.Context) {
	var req createWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	webhook, err := s.services.Automation.CreateWebhook(c.Request.Context(), automation.WebhookInput{
		OrganizationID: req.OrganizationID,
		Name:           req.Name,
		EndpointURL:    req.EndpointURL,
		SecretHint:     req.SecretHint,
		EventTypes:     req.EventTypes,
		Status:         req.Status,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"webhook": webhook})
}

func (s *Server) updateWebhook(c *gin.Context) {
	var req updateWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	webhook, err := s.services.Automation.UpdateWebhook(c.Request.Context(), c.Param("id"), automation.WebhookUpdate{
		Name:        req.Name,
		EndpointURL: req.EndpointURL,
		SecretHint:  req.SecretHint,
		EventTypes:  req.EventTypes,
		Status:      req.Status,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"webhook": webhook})
}

func (s *Server) listWebhookEvents(c *gin.Context) {
	items, err := s.services.Automation.ListWebhookEvents(c.Request.Context(), c.Param("id"), queryInt(c, "limit", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) testWebhook(c *gin.Context) {
	var req testWebhookRequest
	// body is optional for a test fire
	_ = c.ShouldBindJSON(&req)

	event, err := s.services.Automation.TestWebhook(c.Request.Context(), c.Param("id"), req.EventType, req.Payload)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"webhookId": event.WebhookID,
		"eventId":   event.ID,
		"simulated": true,
	})
}

func (s *Server) listErpConnections(c *gin.Context) {
	organizationID := c.Query("organizationId")
	if organizationID == "" {
		respondError(c, apierr.InvalidInput("organizationId is required"))
		return
	}

	items, err := s.services.Automation.ListErpConnections(c.Request.Context(), organizationID, queryInt(c, "limit", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) createErpConnection(c *gin.Context) {
	var req createErpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	conn, err := s.services.Automation.CreateErpConnection(c.Request.Context(), automation.ErpInput{
		OrganizationID: req.OrganizationID,
		SystemName:     req.SystemName,
		Config:         req.Config,
		Status:         req.Status,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"connection": conn})
}

func (s *Server) syncErpConnection(c *gin.Context) {
	conn, err := s.services.Automation.SyncErpConnection(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"synced": true,
		"id":     conn.ID,
		"at":     conn.LastSyncAt,
	})
}
