package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tresfinos/treasury/common/apierr"
	"github.com/tresfinos/treasury/internal/organization"
)

type createOrganizationRequest struct {
	Name         string `json:"name" binding:"required"`
	BaseCurrency string `json:"baseCurrency"`
}

type updateOrganizationRequest struct {
	Name         *string `json:"name"`
	Status       *string `json:"status"`
	BaseCurrency *string `json:"baseCurrency"`
}

type createTeamMemberRequest struct {
	OrganizationID string `json:"organizationId" binding:"required"`
	Email          string `json:"email" binding:"required"`
	DisplayName    string `json:"displayName" binding:"required"`
	Role           string `json:"role"`
	Permissions    string `json:"permissions"`
}

type updateTeamMemberRequest struct {
	DisplayName *string `json:"displayName"`
	Role        *string `json:"role"`
	Status      *string `json:"status"`
	Permissions *string `json:"permissions"`
}

func (s *Server) listOrganizations(c *gin.Context) {
	items, err := s.services.Organizations.ListOrganizations(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) createOrganization(c *gin.Context) {
	var req createOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	org, err := s.services.Organizations.CreateOrganization(c.Request.Context(), req.Name, req.BaseCurrency)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"organization": org})
}

func (s *Server) getOrganization(c *gin.Context) {
	org, err := s.services.Organizations.GetOrganization(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"organization": org})
}

func (s *Server) updateOrganization(c *gin.Context) {
	var req updateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	org, err := s.services.Organizations.UpdateOrganization(c.Request.Context(), c.Param("id"), organization.OrganizationUpdate{
		Name:         req.Name,
		Status:       req.Status,
		BaseCurrency: req.BaseCurrency,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"organization": org})
}

func (s *Server) listTeamMembers(c *gin.Context) {
	organizationID := c.Query("organizationId")
	if organizationID == "" {
		respondError(c, apierr.InvalidInput("organizationId is required"))
		return
	}

	items, err := s.services.Organizations.ListTeamMembers(c.Request.Context(), organizationID, queryInt(c, "limit", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) createTeamMember(c *gin.Context) {
	var req createTeamMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	member, err := s.services.Organizations.CreateTeamMember(c.Request.Context(), organization.TeamMemberInput{
		OrganizationID: req.OrganizationID,
		Email:          req.Email,
		DisplayName:    req.DisplayName,
		Role:           req.Role,
		Permissions:    req.Permissions,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"member": member})
}

func (s *Server) updateTeamMember(c *gin.Context) {
	var req updateTeamMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	member, err := s.services.Organizations.UpdateTeamMember(c.Request.Context(), c.Param("id"), organization.TeamMemberUpdate{
		DisplayName: req.DisplayName,
		Role:        req.Role,
		Status:      req.Status,
		Permissions: req.Permissions,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"member": member})
}

func (s *Server) dashboardSummary(c *gin.Context) {
	organizationID := c.Query("organizationId")
	if organizationID == "" {
		respondError(c, apierr.InvalidInput("organizationId is required"))
		return
	}
	if _, err := s.services.Organizations.GetOrganization(c.Request.Context(), organizationID); err != nil {
		respondError(c, err)
		return
	}

	summary, err := s.services.Reporting.DashboardSummary(c.Request.Context(), organizationID, queryInt(c, "periodDays", 30))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

func (s *Server) dashboardTopAssets(c *gin.Context) {
	organizationID := c.Query("organizationId")
	if organizationID == "" {
		respondError(c, apierr.InvalidInput("organizationId is required"))
		return
	}
	if _, err := s.services.Organizations.GetOrganization(c.Request.Context(), organizationID); err != nil {
		respondError(c, err)
		return
	}

	assets, err := s.services.Reporting.TopAssets(c.Request.Context(), organizationID, queryInt(c, "limit", 10))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": assets})
}
