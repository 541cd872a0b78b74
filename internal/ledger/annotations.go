package ledger

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tresfinos/treasury/common/apierr"
	"github.com/tresfinos/treasury/pkg/models"
)

// NoteInput is the creation payload for a transaction note
type NoteInput struct {
	OrganizationID string
	AuthorMemberID string
	NoteText       string
	Mentions       string // JSON text
}

// NoteView is a note joined with its author's display fields
type NoteView struct {
	models.TransactionNote
	AuthorDisplayName *string `json:"author_display_name"`
	AuthorEmail       *string `json:"author_email"`
}

// SplitInput is the creation payload for a transaction split
type SplitInput struct {
	OrganizationID    string
	SplitRef          string
	AmountDecimal     string
	CostBasisUsd      string
	Department        string
	ObligationRef     string
	CreatedByMemberID string
}

// GroupInput is the creation payload for a transaction group
type GroupInput struct {
	OrganizationID    string
	Name              string
	Purpose           string
	CreatedByMemberID string
	TransactionIDs    []string
}

// GroupResult reports a group creation with the linked transactions
type GroupResult struct {
	ID          string   `json:"id"`
	LinkedCount int      `json:"linkedCount"`
	Linked      []string `json:"linked"`
}

// GroupView is a group with its member count
type GroupView struct {
	models.TransactionGroup
	TransactionCount int64 `json:"transaction_count"`
}

// CreateNote attaches a note to a transaction of the organization
func (s *Service) CreateNote(ctx context.Context, transactionID string, input NoteInput) (*models.TransactionNote, error) {
	if input.OrganizationID == "" || strings.TrimSpace(input.NoteText) == "" {
		return nil, apierr.InvalidInput("organizationId and noteText are required")
	}
	if err := s.transactionInOrganization(ctx, transactionID, input.OrganizationID); err != nil {
		return nil, err
	}

	note := &models.TransactionNote{
		ID:             models.NewID("nte"),
		OrganizationID: input.OrganizationID,
		TransactionID:  transactionID,
		NoteText:       strings.TrimSpace(input.NoteText),
		MentionsJSON:   input.Mentions,
	}
	if note.MentionsJSON == "" {
		note.MentionsJSON = "[]"
	}
	if input.AuthorMemberID != "" {
		note.AuthorMemberID = &input.AuthorMemberID
	}

	if err := s.db.WithContext(ctx).Create(note).Error; err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}
	return note, nil
}

// ListNotes lists a transaction's notes newest first with author details
func (s *Service) ListNotes(ctx context.Context, transactionID string, limit int) ([]NoteView, error) {
	limit = clampLimit(limit, 100, 500)

	var notes []NoteView
	err := s.db.WithContext(ctx).
		Table("transaction_notes AS n").
		Select("n.*, tm.display_name AS author_display_name, tm.email AS author_email").
		Joins("LEFT JOIN team_members tm ON tm.id = n.author_member_id").
		Where("n.transaction_id = ?", transactionID).
		Order("n.created_at DESC").
		Limit(limit).
		Scan(&notes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	return notes, nil
}

// CreateSplit allocates part of a transaction to a department or obligation
func (s *Service) CreateSplit(ctx context.Context, transactionID string, input SplitInput) (*models.TransactionSplit, error) {
	if input.OrganizationID == "" || input.AmountDecimal == "" {
		return nil, apierr.InvalidInput("organizationId and amountDecimal are required")
	}
	if err := s.transactionInOrganization(ctx, transactionID, input.OrganizationID); err != nil {
		return nil, err
	}

	split := &models.TransactionSplit{
		ID:             models.NewID("spl"),
		OrganizationID: input.OrganizationID,
		TransactionID:  transactionID,
		AmountDecimal:  input.AmountDecimal,
	}
	if v := strings.TrimSpace(input.SplitRef); v != "" {
		split.SplitRef = &v
	}
	if input.CostBasisUsd != "" {
		v := input.CostBasisUsd
		split.CostBasisUsd = &v
	}
	if v := strings.TrimSpace(input.Department); v != "" {
		split.Department = &v
	}
	if v := strings.TrimSpace(input.ObligationRef); v != "" {
		split.ObligationRef = &v
	}
	if input.CreatedByMemberID != "" {
		split.CreatedByMemberID = &input.CreatedByMemberID
	}

	if err := s.db.WithContext(ctx).Create(split).Error; err != nil {
		return nil, fmt.Errorf("failed to create split: %w", err)
	}
	return split, nil
}

// ListSplits lists a transaction's splits newest first
func (s *Service) ListSplits(ctx context.Context, transactionID string, limit int) ([]models.TransactionSplit, error) {
	limit = clampLimit(limit, 100, 500)

	var splits []models.TransactionSplit
	err := s.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Order("created_at DESC").
		Limit(limit).
		Find(&splits).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list splits: %w", err)
	}
	return splits, nil
}

// CreateGroup creates a transaction group and links the given transactions.
// Invalid or duplicate references are skipped without failing the creation.
func (s *Service) CreateGroup(ctx context.Context, input GroupInput) (*GroupResult, error) {
	if input.OrganizationID == "" || strings.TrimSpace(input.Name) == "" {
		return nil, apierr.InvalidInput("organizationId and name are required")
	}

	group := &models.TransactionGroup{
		ID:             models.NewID("grp"),
		OrganizationID: input.OrganizationID,
		Name:           strings.TrimSpace(input.Name),
	}
	if v := strings.TrimSpace(input.Purpose); v != "" {
		group.Purpose = &v
	}
	if input.CreatedByMemberID != "" {
		group.CreatedByMemberID = &input.CreatedByMemberID
	}

	if err := s.db.WithContext(ctx).Create(group).Error; err != nil {
		return nil, fmt.Errorf("failed to create group: %w", err)
	}

	linked := []string{}
	for _, transactionID := range input.TransactionIDs {
		if err := s.transactionInOrganization(ctx, transactionID, input.OrganizationID); err != nil {
			continue
		}
		member := &models.TransactionGroupMember{
			ID:            models.NewID("grm"),
			GroupID:       group.ID,
			TransactionID: transactionID,
		}
		if err := s.db.WithContext(ctx).Create(member).Error; err != nil {
			s.logger.Debug("group member link skipped",
				zap.String("group_id", group.ID),
				zap.String("transaction_id", transactionID))
			continue
		}
		linked = append(linked, transactionID)
	}

	return &GroupResult{ID: group.ID, LinkedCount: len(linked), Linked: linked}, nil
}

// ListGroups lists an organization's groups with member counts
func (s *Service) ListGroups(ctx context.Context, organizationID string, limit int) ([]GroupView, error) {
	if organizationID == "" {
		return nil, apierr.InvalidInput("organizationId is required")
	}
	limit = clampLimit(limit, 100, 500)

	var groups []GroupView
	err := s.db.WithContext(ctx).
		Table("transaction_groups AS g").
		Select("g.*, COUNT(m.id) AS transaction_count").
		Joins("LEFT JOIN transaction_group_members m ON m.group_id = g.id").
		Where("g.organization_id = ?", organizationID).
		Group("g.id").
		Order("g.created_at DESC").
		Limit(limit).
		Scan(&groups).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	return groups, nil
}
