// Package validate holds the request-level validation helpers shared by
// the HTTP handlers and the CLI. Domain invariants stay on the domain
// types; this package fronts them with input parsing and bounds.
package validate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rumor-ml/expensetrack/internal/domain"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
	maxNameLength   = 120
)

// Month parses and validates a YYYY-MM month parameter.
func Month(s string) (domain.Month, error) {
	return domain.NewMonth(strings.TrimSpace(s))
}

// Threshold checks an alert threshold against the fixed tiers.
func Threshold(t int) error {
	if !domain.ValidateThreshold(t) {
		return fmt.Errorf("invalid threshold %d (expected one of %v)", t, domain.AlertThresholds)
	}
	return nil
}

// Direction parses a transaction direction parameter.
func Direction(s string) (domain.Direction, error) {
	d := domain.Direction(strings.ToLower(strings.TrimSpace(s)))
	if !domain.ValidateDirection(d) {
		return "", fmt.Errorf("invalid direction %q (expected debit or credit)", s)
	}
	return d, nil
}

// Amount parses a positive decimal amount.
func Amount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("amount must be positive, got %s", d)
	}
	return d, nil
}

// Name checks a user-supplied entity name (account, category, tag,
// merchant).
func Name(field, s string) error {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return fmt.Errorf("%s cannot be empty", field)
	}
	if len(trimmed) > maxNameLength {
		return fmt.Errorf("%s exceeds %d characters", field, maxNameLength)
	}
	return nil
}

// Pagination parses limit/offset query parameters, applying the default
// page size and clamping nothing: out-of-range values are rejected, not
// silently adjusted.
func Pagination(limitStr, offsetStr string) (limit, offset int, err error) {
	limit = defaultPageSize
	if limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil || limit < 1 || limit > maxPageSize {
			return 0, 0, fmt.Errorf("invalid limit %q (expected 1-%d)", limitStr, maxPageSize)
		}
	}
	if offsetStr != "" {
		offset, err = strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			return 0, 0, fmt.Errorf("invalid offset %q", offsetStr)
		}
	}
	return limit, offset, nil
}

// Patch checks the present fields of a transaction patch before it is
// applied to a loaded entity.
func Patch(p *domain.TransactionPatch) error {
	if p == nil {
		return fmt.Errorf("patch cannot be nil")
	}
	if p.Description != nil {
		if err := Name("description", *p.Description); err != nil {
			return err
		}
	}
	if p.Amount != nil && !p.Amount.IsPositive() {
		return fmt.Errorf("amount must be positive, got %s", p.Amount)
	}
	if p.Direction != nil && !domain.ValidateDirection(*p.Direction) {
		return fmt.Errorf("invalid direction %q", *p.Direction)
	}
	if p.TxnDate != nil && p.TxnDate.IsZero() {
		return fmt.Errorf("transaction date cannot be zero")
	}
	return nil
}
