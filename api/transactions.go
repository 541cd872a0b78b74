package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tresfinos/treasury/common/apierr"
	"github.com/tresfinos/treasury/internal/accounting"
	"github.com/tresfinos/treasury/internal/ledger"
)

type transactionRequest struct {
	OrganizationID string    `json:"organizationId"`
	WalletID       string    `json:"walletId"`
	TxHash         string    `json:"txHash"`
	Chain          string    `json:"chain"`
	AmountDecimal  string    `json:"amountDecimal"`
	Direction      string    `json:"direction"`
	Status         string    `json:"status"`
	OccurredAt     time.Time `json:"occurredAt"`
	TokenSymbol    string    `json:"tokenSymbol"`
	TokenAddress   string    `json:"tokenAddress"`
	FiatValueUsd   string    `json:"fiatValueUsd"`
	CostBasisUsd   string    `json:"costBasisUsd"`
	Classification string    `json:"classification"`
	Counterparty   string    `json:"counterparty"`
	Metadata       string    `json:"metadata"`
}

type bulkTransactionsRequest struct {
	OrganizationID string               `json:"organizationId" binding:"required"`
	WalletID       string               `json:"walletId" binding:"required"`
	Items          []transactionRequest `json:"items" binding:"required"`
}

type noteRequest struct {
	OrganizationID string `json:"organizationId" binding:"required"`
	AuthorMemberID string `json:"authorMemberId"`
	NoteText       string `json:"noteText" binding:"required"`
	Mentions       string `json:"mentions"`
}

type splitRequest struct {
	OrganizationID    string `json:"organizationId" binding:"required"`
	SplitRef          string `json:"splitRef"`
	AmountDecimal     string `json:"amountDecimal" binding:"required"`
	CostBasisUsd      string `json:"costBasisUsd"`
	Department        string `json:"department"`
	ObligationRef     string `json:"obligationRef"`
	CreatedByMemberID string `json:"createdByMemberId"`
}

type groupRequest struct {
	OrganizationID    string   `json:"organizationId" binding:"required"`
	Name              string   `json:"name" binding:"required"`
	Purpose           string   `json:"purpose"`
	CreatedByMemberID string   `json:"createdByMemberId"`
	TransactionIDs    []string `json:"transactionIds"`
}

type costBasisRequest struct {
	OrganizationID string `json:"organizationId" binding:"required"`
	TokenSymbol    string `json:"tokenSymbol" binding:"required"`
	Method         string `json:"method"`
}

func toTransactionInput(req transactionRequest) ledger.TransactionInput {
	return ledger.TransactionInput{
		OrganizationID: req.OrganizationID,
		WalletID:       req.WalletID,
		TxHash:         req.TxHash,
		Chain:          req.Chain,
		AmountDecimal:  req.AmountDecimal,
		Direction:      req.Direction,
		Status:         req.Status,
		OccurredAt:     req.OccurredAt,
		TokenSymbol:    req.TokenSymbol,
		TokenAddress:   req.TokenAddress,
		FiatValueUsd:   req.FiatValueUsd,
		CostBasisUsd:   req.CostBasisUsd,
		Classification: req.Classification,
		Counterparty:   req.Counterparty,
		Metadata:       req.Metadata,
	}
}

func (s *Server) listTransactions(c *gin.Context) {
	organizationID := c.Query("organizationId")
	if organizationID == "" {
		respondError(c, apierr.InvalidInput("organizationId is required"))
		return
	}

	filter := ledger.TransactionFilter{
		WalletID:    c.Query("walletId"),
		Chain:       c.Query("chain"),
		TokenSymbol: c.Query("tokenSymbol"),
		Direction:   c.Query("direction"),
		Status:      c.Query("status"),
		Search:      c.Query("search"),
		From:        queryTime(c, "from"),
		To:          queryTime(c, "to"),
		MinUsd:      queryFloat(c, "minUsd"),
		MaxUsd:      queryFloat(c, "maxUsd"),
		Limit:       queryInt(c, "limit", 0),
	}

	items, err := s.services.Ledger.List(c.Request.Context(), organizationID, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) createTransaction(c *gin.Context) {
	var req transactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	row, err := s.services.Ledger.Ingest(c.Request.Context(), toTransactionInput(req))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"transaction": row})
}

func (s *Server) bulkCreateTransactions(c *gin.Context) {
	var req bulkTransactionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	items := make([]ledger.TransactionInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, toTransactionInput(item))
	}

	result, err := s.services.Ledger.IngestBulk(c.Request.Context(), req.OrganizationID, req.WalletID, items)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (s *Server) exportTransactions(c *gin.Context) {
	organizationID := c.Query("organizationId")
	if organizationID == "" {
		respondError(c, apierr.InvalidInput("organizationId is required"))
		return
	}

	rows, err := s.services.Ledger.ExportRows(c.Request.Context(), organizationID, queryInt(c, "limit", 0))
	if err != nil {
		respondError(c, err)
		return
	}

	if strings.EqualFold(c.DefaultQuery("format", "csv"), "json") {
		c.JSON(http.StatusOK, gin.H{"items": rows})
		return
	}

	data, err := ledger.RenderCSV(rows)
	if err != nil {
		respondError(c, err)
		return
	}
	filename := ledger.ExportFilename(organizationID, time.Now())
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

func (s *Server) listTransactionNotes(c *gin.Context) {
	items, err := s.services.Ledger.ListNotes(c.Request.Context(), c.Param("id"), queryInt(c, "limit", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) createTransactionNote(c *gin.Context) {
	var req noteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	note, err := s.services.Ledger.CreateNote(c.Request.Context(), c.Param("id"), ledger.NoteInput{
		OrganizationID: req.OrganizationID,
		AuthorMemberID: req.AuthorMemberID,
		NoteText:       req.NoteText,
		Mentions:       req.Mentions,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"note": note})
}

func (s *Server) listTransactionSplits(c *gin.Context) {
	items, err := s.services.Ledger.ListSplits(c.Request.Context(), c.Param("id"), queryInt(c, "limit", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) createTransactionSplit(c *gin.Context) {
	var req splitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	split, err := s.services.Ledger.CreateSplit(c.Request.Context(), c.Param("id"), ledger.SplitInput{
		OrganizationID:    req.OrganizationID,
		SplitRef:          req.SplitRef,
		AmountDecimal:     req.AmountDecimal,
		CostBasisUsd:      req.CostBasisUsd,
		Department:        req.Department,
		ObligationRef:     req.ObligationRef,
		CreatedByMemberID: req.CreatedByMemberID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"split": split})
}

func (s *Server) listTransactionGroups(c *gin.Context) {
	organizationID := c.Query("organizationId")
	if organizationID == "" {
		respondError(c, apierr.InvalidInput("organizationId is required"))
		return
	}

	items, err := s.services.Ledger.ListGroups(c.Request.Context(), organizationID, queryInt(c, "limit", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) createTransactionGroup(c *gin.Context) {
	var req groupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := s.services.Ledger.CreateGroup(c.Request.Context(), ledger.GroupInput{
		OrganizationID:    req.OrganizationID,
		Name:              req.Name,
		Purpose:           req.Purpose,
		CreatedByMemberID: req.CreatedByMemberID,
		TransactionIDs:    req.TransactionIDs,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (s *Server) calculateCostBasis(c *gin.Context) {
	var req costBasisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if _, err := s.services.Organizations.GetOrganization(c.Request.Context(), req.OrganizationID); err != nil {
		respondError(c, err)
		return
	}

	summary, err := s.services.Accounting.ComputeCostBasis(
		c.Request.Context(),
		req.OrganizationID,
		req.TokenSymbol,
		accounting.NormalizeMethod(req.Method),
	)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}
