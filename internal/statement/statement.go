// Package statement defines the parser strategy interface for uploaded
// statement files and the row-level helpers shared by every file shape.
package statement

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rumor-ml/expensetrack/internal/domain"
	"github.com/rumor-ml/expensetrack/internal/ids"
)

// ErrAccountNotConfigured is returned when a file's shape is recognized
// but the caller has not configured the account it belongs to. The
// coordinator skips such files with a logged notice.
var ErrAccountNotConfigured = errors.New("account not configured for statement source")

// AccountMap maps a provider display name (e.g. "HDFC Bank") to the
// caller's account id. Scoped to one user, supplied per parse call.
type AccountMap map[string]string

// Parser is the strategy interface for all statement file shapes.
// Parse is best-effort per row: malformed rows are skipped with a local
// warning and never fail the file.
type Parser interface {
	// Name returns the parser identifier (e.g. "csv-hdfc", "wallet-paytm")
	Name() string

	// CanParse checks whether this parser handles the file, using only
	// the file name (case-insensitive provider substring sniffing).
	CanParse(filename string) bool

	// Parse extracts draft transactions from the file content.
	Parse(ctx context.Context, r io.Reader, accounts AccountMap) ([]domain.DraftTransaction, error)
}

var upiRefPattern = regexp.MustCompile(`(\d{12})`)

// ExtractUPIReference pulls the 12-digit UPI reference out of a
// description. Returns empty unless the description contains the literal
// token "UPI" and a 12-digit run.
func ExtractUPIReference(description string) string {
	if !strings.Contains(description, "UPI") {
		return ""
	}
	m := upiRefPattern.FindString(description)
	return m
}

// DedupKey synthesizes the re-upload detection key for a row:
// "{source}-{ref}-{YYYYMMDD}-{amount with 2 decimals}".
func DedupKey(source, ref string, date time.Time, amount decimal.Decimal) string {
	return fmt.Sprintf("%s-%s-%s-%s", source, ids.SanitizeRef(ref), date.Format("20060102"), amount.StringFixed(2))
}

// dayFirstLayouts are tried in order for the generic bank statements,
// which carry ambiguous day-first dates in a handful of spellings.
var dayFirstLayouts = []string{
	"02/01/2006",
	"02-01-2006",
	"2/1/2006",
	"2/1/06",
	"02/01/06",
	"02 Jan 2006",
	"02-Jan-2006",
	"02/01/2006 15:04:05",
}

// ParseDayFirstDate parses a day-first statement date.
func ParseDayFirstDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("date cannot be empty")
	}
	for _, layout := range dayFirstLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// ParseAmount coerces a statement cell to a decimal. Empty cells and
// noise ("", "-", "NA") coerce to zero rather than erroring, matching
// best-effort row handling. Thousands separators are stripped.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" || strings.EqualFold(s, "na") {
		return decimal.Zero, nil
	}
	s = strings.ReplaceAll(s, ",", "")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d, nil
}

// RowPayload captures the original cells of a row keyed by header name,
// preserved on the draft for audit.
func RowPayload(header, row []string) map[string]string {
	payload := make(map[string]string, len(header))
	for i, col := range header {
		if i < len(row) {
			payload[col] = row[i]
		}
	}
	return payload
}
