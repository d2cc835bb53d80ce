// Package domain defines the canonical entities shared by the ingestion
// pipeline, the budget engine, and the read-side services.
package domain

import (
	"fmt"
	"regexp"
	"time"

	"github.com/shopspring/decimal"
)

// Direction indicates whether a transaction moves money out of or into an
// account. Use ValidateDirection to ensure validity before use.
type Direction string

const (
	DirectionDebit  Direction = "debit"
	DirectionCredit Direction = "credit"
)

// ValidateDirection checks if a direction is valid
func ValidateDirection(d Direction) bool {
	return d == DirectionDebit || d == DirectionCredit
}

// ExclusionTagName is the reserved tag name removing a transaction from
// every spend aggregation: budget alerts, pacing, dashboard and analytics.
// The tagging subsystem and all aggregate queries share this contract.
const ExclusionTagName = "Exclude from Analytics"

// AlertThresholds are the budget percentage tiers, scanned in this fixed
// descending order so a single evaluation surfaces at most one new alert.
var AlertThresholds = []int{100, 90, 75}

var monthPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// Month is a calendar month in "YYYY-MM" form.
type Month string

// NewMonth creates a validated month
func NewMonth(s string) (Month, error) {
	if !monthPattern.MatchString(s) {
		return "", fmt.Errorf("invalid month %q (expected YYYY-MM)", s)
	}
	return Month(s), nil
}

// MonthOf returns the month containing t.
func MonthOf(t time.Time) Month {
	return Month(t.Format("2006-01"))
}

// Start returns midnight on the first day of the month.
func (m Month) Start() time.Time {
	t, _ := time.Parse("2006-01", string(m))
	return t
}

// Next returns the following month.
func (m Month) Next() Month {
	return MonthOf(m.Start().AddDate(0, 1, 0))
}

// Prev returns the preceding month.
func (m Month) Prev() Month {
	return MonthOf(m.Start().AddDate(0, -1, 0))
}

// Days returns the number of days in the month.
func (m Month) Days() int {
	return m.Start().AddDate(0, 1, -1).Day()
}

func (m Month) String() string { return string(m) }

// DraftTransaction is an unpersisted, parsed statement row awaiting
// deduplication and categorization. Produced by the statement parsers,
// consumed by the ingestion coordinator, never stored directly.
type DraftTransaction struct {
	TxnDate     time.Time
	Description string
	// Amount is always positive; Direction carries the sign.
	Amount    decimal.Decimal
	Direction Direction
	AccountID string
	Source    string
	// UPIReference is the 12-digit reference extracted from UPI rows,
	// empty when the row carries none.
	UPIReference string
	// DedupKey is the synthesized re-upload detection key. Empty for
	// wallet-shaped rows, which rely solely on UPIReference.
	DedupKey string
	// RawPayload preserves the original row columns for audit.
	RawPayload map[string]string
}

// Validate checks the draft invariants: positive amount, valid direction,
// non-empty description and date.
func (d *DraftTransaction) Validate() error {
	if d.TxnDate.IsZero() {
		return fmt.Errorf("transaction date cannot be zero")
	}
	if d.Description == "" {
		return fmt.Errorf("description cannot be empty")
	}
	if !d.Amount.IsPositive() {
		return fmt.Errorf("amount must be positive, got %s", d.Amount)
	}
	if !ValidateDirection(d.Direction) {
		return fmt.Errorf("invalid direction %q", d.Direction)
	}
	if d.AccountID == "" {
		return fmt.Errorf("account id cannot be empty")
	}
	return nil
}

// Transaction is a persisted ledger row owned by exactly one user.
// (UserID, UPIReference) and (UserID, DedupKey) are each soft-unique,
// enforced by the dedup resolver before insert rather than by a storage
// constraint.
type Transaction struct {
	ID           string            `json:"id"`
	UserID       string            `json:"userId"`
	TxnDate      time.Time         `json:"txnDate"`
	Description  string            `json:"description"`
	Amount       decimal.Decimal   `json:"amount"`
	Direction    Direction         `json:"direction"`
	AccountID    string            `json:"accountId"`
	Source       string            `json:"source"`
	CategoryID   string            `json:"categoryId,omitempty"`
	MerchantID   string            `json:"merchantId,omitempty"`
	UPIReference string            `json:"upiReference,omitempty"`
	DedupKey     string            `json:"dedupKey,omitempty"`
	RawPayload   map[string]string `json:"rawPayload,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
	// Tags is a derived read through the transaction_tags join table;
	// the join rows themselves never leave the store layer.
	Tags []Tag `json:"tags"`
}

// Account is a bank or wallet account configured by the user. Statement
// rows resolve to accounts by provider-name containment match.
type Account struct {
	ID            string `json:"id"`
	UserID        string `json:"userId"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	Provider      string `json:"provider"`
	AccountNumber string `json:"accountNumber,omitempty"`
}

// Category groups transactions for budgeting. IsIncome categories are
// excluded from the budget plan view.
type Category struct {
	ID       string `json:"id"`
	UserID   string `json:"userId"`
	Name     string `json:"name"`
	IsIncome bool   `json:"isIncome"`
	IconName string `json:"iconName,omitempty"`
}

// Merchant is a recognized counterparty, optionally carrying a default
// category.
type Merchant struct {
	ID         string `json:"id"`
	UserID     string `json:"userId"`
	Name       string `json:"name"`
	CategoryID string `json:"categoryId,omitempty"`
}

// Tag is a free-form label, unique per user by name.
type Tag struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
	Name   string `json:"name"`
}

// Goal is a per-category, per-month spending limit. Unique per
// (user, category, month) through upsert semantics: saving a zero limit
// deletes the goal, saving a positive limit creates or updates it.
type Goal struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId"`
	CategoryID  string          `json:"categoryId"`
	Month       Month           `json:"month"`
	LimitAmount decimal.Decimal `json:"limitAmount"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Alert records a budget threshold crossing. At most one alert ever
// exists per (goal, threshold); the evaluator enforces this with an
// existence check before creation. Alerts are never auto-deleted.
type Alert struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	GoalID         string    `json:"goalId"`
	Threshold      int       `json:"thresholdPercentage"`
	TriggeredAt    time.Time `json:"triggeredAt"`
	IsAcknowledged bool      `json:"isAcknowledged"`
}

// ValidateThreshold checks that a threshold is one of the fixed tiers.
func ValidateThreshold(t int) bool {
	for _, v := range AlertThresholds {
		if t == v {
			return true
		}
	}
	return false
}

// TransactionPatch carries only-present optional fields for a partial
// transaction update. Nil fields are left untouched; TagIDs, when
// present, replaces the full tag set.
type TransactionPatch struct {
	TxnDate     *time.Time       `json:"txnDate,omitempty"`
	Description *string          `json:"description,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Direction   *Direction       `json:"direction,omitempty"`
	AccountID   *string          `json:"accountId,omitempty"`
	CategoryID  *string          `json:"categoryId,omitempty"`
	MerchantID  *string          `json:"merchantId,omitempty"`
	TagIDs      *[]string        `json:"tagIds,omitempty"`
}

// Apply copies the present patch fields onto t. TagIDs is handled by the
// store since it touches the join table.
func (p *TransactionPatch) Apply(t *Transaction) error {
	if p.TxnDate != nil {
		if p.TxnDate.IsZero() {
			return fmt.Errorf("transaction date cannot be zero")
		}
		t.TxnDate = *p.TxnDate
	}
	if p.Description != nil {
		if *p.Description == "" {
			return fmt.Errorf("description cannot be empty")
		}
		t.Description = *p.Description
	}
	if p.Amount != nil {
		if !p.Amount.IsPositive() {
			return fmt.Errorf("amount must be positive, got %s", p.Amount)
		}
		t.Amount = *p.Amount
	}
	if p.Direction != nil {
		if !ValidateDirection(*p.Direction) {
			return fmt.Errorf("invalid direction %q", *p.Direction)
		}
		t.Direction = *p.Direction
	}
	if p.AccountID != nil {
		t.AccountID = *p.AccountID
	}
	if p.CategoryID != nil {
		t.CategoryID = *p.CategoryID
	}
	if p.MerchantID != nil {
		t.MerchantID = *p.MerchantID
	}
	return nil
}
