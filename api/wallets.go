package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tresfinos/treasury/common/apierr"
	"github.com/tresfinos/treasury/internal/wallet"
)

type createWalletRequest struct {
	OrganizationID string `json:"organizationId" binding:"required"`
	Chain          string `json:"chain" binding:"required"`
	Address        string `json:"address" binding:"required"`
	Label          string `json:"label"`
	SourceType     string `json:"sourceType"`
}

type updateWalletRequest struct {
	Label      *string `json:"label"`
	SourceType *string `json:"sourceType"`
	IsActive   *bool   `json:"isActive"`
}

func (s *Server) listWallets(c *gin.Context) {
	organizationID := c.Query("organizationId")
	if organizationID == "" {
		respondError(c, apierr.InvalidInput("organizationId is required"))
		return
	}

	items, err := s.services.Wallets.ListWallets(c.Request.Context(), organizationID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) createWallet(c *gin.Context) {
	var req createWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	w, err := s.services.Wallets.CreateWallet(c.Request.Context(), wallet.WalletInput{
		OrganizationID: req.OrganizationID,
		Chain:          req.Chain,
		Address:        req.Address,
		Label:          req.Label,
		SourceType:     req.SourceType,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"wallet": w})
}

func (s *Server) getWallet(c *gin.Context) {
	w, err := s.services.Wallets.GetWallet(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"wallet": w})
}

func (s *Server) updateWallet(c *gin.Context) {
	var req updateWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	w, err := s.services.Wallets.UpdateWallet(c.Request.Context(), c.Param("id"), wallet.WalletUpdate{
		Label:      req.Label,
		SourceType: req.SourceType,
		IsActive:   req.IsActive,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"wallet": w})
}
