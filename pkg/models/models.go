package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewID generates a prefixed external identifier, e.g. "org_6f1a...".
func NewID(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Transaction directions
const (
	DirectionIn       = "IN"
	DirectionOut      = "OUT"
	DirectionInternal = "INTERNAL"
)

// Transaction statuses
const (
	StatusPending   = "PENDING"
	StatusConfirmed = "CONFIRMED"
	StatusFailed    = "FAILED"
)

// Rule types recognized by the classification matcher
const (
	RuleTypeClassification     = "CLASSIFICATION"
	RuleTypeAutoClassification = "AUTO_CLASSIFICATION"
)

// Organization represents a treasury tenant
type Organization struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	Name         string    `json:"name" validate:"required,min=1,max=200"`
	BaseCurrency string    `json:"base_currency" gorm:"default:USD" validate:"omitempty,len=3"`
	Status       string    `json:"status" gorm:"default:ACTIVE"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TeamMember represents a member of an organization
type TeamMember struct {
	ID              string    `json:"id" gorm:"primaryKey"`
	OrganizationID  string    `json:"organization_id" gorm:"index;uniqueIndex:idx_member_org_email" validate:"required"`
	Email           string    `json:"email" gorm:"uniqueIndex:idx_member_org_email" validate:"required,email"`
	DisplayName     string    `json:"display_name" validate:"required,min=1,max=100"`
	Role            string    `json:"role" gorm:"default:ACCOUNTANT"`
	Status          string    `json:"status" gorm:"default:ACTIVE"`
	PermissionsJSON string    `json:"permissions_json" gorm:"type:text"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Wallet represents a tracked treasury wallet on a chain
type Wallet struct {
	ID             string    `json:"id" gorm:"primaryKey"`
	OrganizationID string    `json:"organization_id" gorm:"index;uniqueIndex:idx_wallet_org_chain_addr" validate:"required"`
	Chain          string    `json:"chain" gorm:"uniqueIndex:idx_wallet_org_chain_addr" validate:"required"`
	Address        string    `json:"address" gorm:"uniqueIndex:idx_wallet_org_chain_addr" validate:"required"`
	Label          *string   `json:"label"`
	SourceType     string    `json:"source_type" gorm:"default:ONCHAIN"`
	IsActive       bool      `json:"is_active" gorm:"default:true"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// LedgerTransaction is an immutable ledger fact. AmountDecimal is always a
// non-negative magnitude; Direction carries the sign. OccurredAt is the sole
// ordering key for every accounting computation.
type LedgerTransaction struct {
	ID             string    `json:"id" gorm:"primaryKey"`
	OrganizationID string    `json:"organization_id" gorm:"index;uniqueIndex:idx_tx_org_hash" validate:"required"`
	WalletID       string    `json:"wallet_id" gorm:"index" validate:"required"`
	TxHash         string    `json:"tx_hash" gorm:"uniqueIndex:idx_tx_org_hash" validate:"required"`
	Chain          string    `json:"chain" validate:"required"`
	TokenSymbol    *string   `json:"token_symbol" gorm:"index"`
	TokenAddress   *string   `json:"token_address"`
	AmountDecimal  string    `json:"amount_decimal" validate:"required"`
	FiatValueUsd   *string   `json:"fiat_value_usd"`
	CostBasisUsd   *string   `json:"cost_basis_usd"`
	Direction      string    `json:"direction" validate:"required,oneof=IN OUT INTERNAL"`
	Status         string    `json:"status" gorm:"default:CONFIRMED" validate:"omitempty,oneof=PENDING CONFIRMED FAILED"`
	Classification *string   `json:"classification"`
	Counterparty   *string   `json:"counterparty"`
	MetadataJSON   string    `json:"metadata_json" gorm:"type:text"`
	OccurredAt     time.Time `json:"occurred_at" gorm:"index" validate:"required"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TransactionNote is a free-form annotation on a transaction
type TransactionNote struct {
	ID             string    `json:"id" gorm:"primaryKey"`
	OrganizationID string    `json:"organization_id" gorm:"index"`
	TransactionID  string    `json:"transaction_id" gorm:"index"`
	AuthorMemberID *string   `json:"author_member_id"`
	NoteText       string    `json:"note_text" gorm:"type:text"`
	MentionsJSON   string    `json:"mentions_json" gorm:"type:text"`
	CreatedAt      time.Time `json:"created_at"`
}

// TransactionSplit allocates a portion of a transaction to a department or
// obligation for internal accounting.
type TransactionSplit struct {
	ID                string    `json:"id" gorm:"primaryKey"`
	OrganizationID    string    `json:"organization_id" gorm:"index"`
	TransactionID     string    `json:"transaction_id" gorm:"index"`
	SplitRef          *string   `json:"split_ref"`
	AmountDecimal     string    `json:"amount_decimal"`
	CostBasisUsd      *string   `json:"cost_basis_usd"`
	Department        *string   `json:"department"`
	ObligationRef     *string   `json:"obligation_ref"`
	CreatedByMemberID *string   `json:"created_by_member_id"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// TransactionGroup is a named set of transactions sharing a purpose
type TransactionGroup struct {
	ID                string    `json:"id" gorm:"primaryKey"`
	OrganizationID    string    `json:"organization_id" gorm:"index"`
	Name              string    `json:"name"`
	Purpose           *string   `json:"purpose"`
	CreatedByMemberID *string   `json:"created_by_member_id"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// TransactionGroupMember links a transaction into a group
type TransactionGroupMember struct {
	ID            string    `json:"id" gorm:"primaryKey"`
	GroupID       string    `json:"group_id" gorm:"index;uniqueIndex:idx_group_tx"`
	TransactionID string    `json:"transaction_id" gorm:"uniqueIndex:idx_group_tx"`
	CreatedAt     time.Time `json:"created_at"`
}

// AutomationRule is an ordered classification rule. Conditions and actions
// are stored as JSON text; the accounting matcher decodes them permissively.
type AutomationRule struct {
	ID             string    `json:"id" gorm:"primaryKey"`
	OrganizationID string    `json:"organization_id" gorm:"index" validate:"required"`
	Name           string    `json:"name" validate:"required"`
	RuleType       string    `json:"rule_type" validate:"required"`
	ConditionsJSON string    `json:"conditions_json" gorm:"type:text"`
	ActionsJSON    string    `json:"actions_json" gorm:"type:text"`
	Priority       int       `json:"priority" gorm:"default:100"`
	IsActive       bool      `json:"is_active" gorm:"default:true"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ReconciliationRun records one reconciliation over a period
type ReconciliationRun struct {
	ID               string    `json:"id" gorm:"primaryKey"`
	OrganizationID   string    `json:"organization_id" gorm:"index"`
	PeriodStart      time.Time `json:"period_start" gorm:"index"`
	PeriodEnd        time.Time `json:"period_end"`
	Status           string    `json:"status" gorm:"default:DRAFT"`
	DiscrepancyCount int64     `json:"discrepancy_count"`
	MatchedCount     int64     `json:"matched_count"`
	UnmatchedCount   int64     `json:"unmatched_count"`
	Notes            *string   `json:"notes"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Report is a stored report definition with its last generated result
type Report struct {
	ID             string     `json:"id" gorm:"primaryKey"`
	OrganizationID string     `json:"organization_id" gorm:"index"`
	ReportType     string     `json:"report_type"`
	Title          string     `json:"title"`
	ParametersJSON string     `json:"parameters_json" gorm:"type:text"`
	Status         string     `json:"status" gorm:"default:DRAFT"`
	GeneratedAt    *time.Time `json:"generated_at"`
	ResultJSON     string     `json:"result_json" gorm:"type:text"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Alert is a threshold alert definition
type Alert struct {
	ID                string     `json:"id" gorm:"primaryKey"`
	OrganizationID    string     `json:"organization_id" gorm:"index"`
	Name              string     `json:"name"`
	AlertType         string     `json:"alert_type"`
	ThresholdOperator *string    `json:"threshold_operator"`
	ThresholdValue    *float64   `json:"threshold_value"`
	Channel           string     `json:"channel" gorm:"default:EMAIL"`
	Severity          string     `json:"severity" gorm:"default:MEDIUM"`
	IsActive          bool       `json:"is_active" gorm:"default:true"`
	LastTriggeredAt   *time.Time `json:"last_triggered_at"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// WebhookSubscription registers an outbound event endpoint
type WebhookSubscription struct {
	ID             string    `json:"id" gorm:"primaryKey"`
	OrganizationID string    `json:"organization_id" gorm:"index"`
	Name           string    `json:"name"`
	EndpointURL    string    `json:"endpoint_url"`
	SecretHint     *string   `json:"secret_hint"`
	EventTypesJSON string    `json:"event_types_json" gorm:"type:text"`
	Status         string    `json:"status" gorm:"default:ACTIVE"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// WebhookEvent is one delivery record for a subscription
type WebhookEvent struct {
	ID             string     `json:"id" gorm:"primaryKey"`
	OrganizationID string     `json:"organization_id" gorm:"index"`
	WebhookID      string     `json:"webhook_id" gorm:"index"`
	EventType      string     `json:"event_type"`
	PayloadJSON    string     `json:"payload_json" gorm:"type:text"`
	DeliveryStatus string     `json:"delivery_status"`
	DeliveredAt    *time.Time `json:"delivered_at"`
	CreatedAt      time.Time  `json:"created_at"`
}

// ErpConnection is a configured ERP integration
type ErpConnection struct {
	ID             string     `json:"id" gorm:"primaryKey"`
	OrganizationID string     `json:"organization_id" gorm:"index"`
	SystemName     string     `json:"system_name"`
	Status         string     `json:"status" gorm:"default:CONNECTED"`
	ConfigJSON     string     `json:"config_json" gorm:"type:text"`
	LastSyncAt     *time.Time `json:"last_sync_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
