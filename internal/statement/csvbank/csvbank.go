// Package csvbank parses generic columnar bank statement CSVs. One
// parser instance covers one provider; the column spec carries the
// provider-specific header names.
package csvbank

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"

	"github.com/rumor-ml/expensetrack/internal/domain"
	"github.com/rumor-ml/expensetrack/internal/statement"
)

// Spec describes one provider's statement shape. Date, Description,
// Debit and Credit columns are required; Reference and UniqueID are
// optional and feed the dedup key.
type Spec struct {
	// Source is the provider code stamped on drafts and dedup keys.
	Source string
	// FilenameHint selects this parser by case-insensitive substring
	// match on the uploaded file name.
	FilenameHint string
	// AccountName is the provider display name resolved against the
	// caller's account map.
	AccountName string

	DateColumn        string
	DescriptionColumn string
	DebitColumn       string
	CreditColumn      string
	ReferenceColumn   string
	UniqueIDColumn    string
}

// Parser implements the generic columnar statement shape. Stateless
// beyond its immutable spec, so safe for concurrent use.
type Parser struct {
	spec Spec
}

// New creates a parser for the given column spec.
func New(spec Spec) (*Parser, error) {
	if spec.Source == "" {
		return nil, fmt.Errorf("source cannot be empty")
	}
	if spec.FilenameHint == "" {
		return nil, fmt.Errorf("filename hint cannot be empty")
	}
	if spec.AccountName == "" {
		return nil, fmt.Errorf("account name cannot be empty")
	}
	if spec.DateColumn == "" || spec.DescriptionColumn == "" || spec.DebitColumn == "" || spec.CreditColumn == "" {
		return nil, fmt.Errorf("date, description, debit and credit columns are required")
	}
	return &Parser{spec: spec}, nil
}

// NewHDFC returns the parser for HDFC bank exports.
func NewHDFC() *Parser {
	p, _ := New(Spec{
		Source:            "HDFC",
		FilenameHint:      "hdfc",
		AccountName:       "HDFC Bank",
		DateColumn:        "Date",
		DescriptionColumn: "Narration",
		DebitColumn:       "Withdrawal Amt",
		CreditColumn:      "Deposit Amt",
		ReferenceColumn:   "Chq/Ref No",
	})
	return p
}

// NewICICI returns the parser for ICICI bank exports.
func NewICICI() *Parser {
	p, _ := New(Spec{
		Source:            "ICICI",
		FilenameHint:      "icici",
		AccountName:       "ICICI Bank",
		DateColumn:        "Value Date",
		DescriptionColumn: "Transaction Remarks",
		DebitColumn:       "Withdrawal Amount (INR )",
		CreditColumn:      "Deposit Amount (INR )",
		ReferenceColumn:   "Cheque Number",
		UniqueIDColumn:    "S No",
	})
	return p
}

// Name returns the parser identifier
func (p *Parser) Name() string {
	return "csv-" + strings.ToLower(p.spec.Source)
}

// CanParse checks the file name for this provider's hint.
func (p *Parser) CanParse(filename string) bool {
	lower := strings.ToLower(filepath.Base(filename))
	if !strings.HasSuffix(lower, ".csv") {
		return false
	}
	return strings.Contains(lower, strings.ToLower(p.spec.FilenameHint))
}

// normalizeHeader trims cells and strips periods, so "Withdrawal Amt."
// and "Withdrawal Amt" address the same column.
func normalizeHeader(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.TrimSpace(strings.ReplaceAll(c, ".", ""))
	}
	return out
}

// Parse extracts drafts from a columnar statement. Parsing is
// best-effort per row: rows missing a date, rows where neither debit nor
// credit is positive, and rows failing coercion are skipped with a
// warning and never fail the file.
func (p *Parser) Parse(ctx context.Context, r io.Reader, accounts statement.AccountMap) ([]domain.DraftTransaction, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	accountID, ok := accounts[p.spec.AccountName]
	if !ok {
		return nil, fmt.Errorf("%q: %w", p.spec.AccountName, statement.ErrAccountNotConfigured)
	}

	csvReader := csv.NewReader(r)
	csvReader.LazyQuotes = true
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV content: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("statement has no data rows")
	}

	header := normalizeHeader(records[0])
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, required := range []string{p.spec.DateColumn, p.spec.DescriptionColumn, p.spec.DebitColumn, p.spec.CreditColumn} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("statement missing required column %q", required)
		}
	}

	cell := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	drafts := make([]domain.DraftTransaction, 0, len(records)-1)
	for idx, row := range records[1:] {
		dateStr := cell(row, p.spec.DateColumn)
		if dateStr == "" {
			continue
		}
		txnDate, err := statement.ParseDayFirstDate(dateStr)
		if err != nil {
			log.Printf("WARNING: skipping %s row %d: %v", p.spec.Source, idx+2, err)
			continue
		}

		debit, err := statement.ParseAmount(cell(row, p.spec.DebitColumn))
		if err != nil {
			log.Printf("WARNING: skipping %s row %d: %v", p.spec.Source, idx+2, err)
			continue
		}
		credit, err := statement.ParseAmount(cell(row, p.spec.CreditColumn))
		if err != nil {
			log.Printf("WARNING: skipping %s row %d: %v", p.spec.Source, idx+2, err)
			continue
		}

		// Exactly one of withdrawal/deposit must be positive; debit wins
		// when both are (malformed exports occasionally fill both).
		var amount = debit
		var direction = domain.DirectionDebit
		switch {
		case debit.IsPositive():
		case credit.IsPositive():
			amount, direction = credit, domain.DirectionCredit
		default:
			continue
		}

		description := cell(row, p.spec.DescriptionColumn)
		if description == "" {
			log.Printf("WARNING: skipping %s row %d: empty description", p.spec.Source, idx+2)
			continue
		}

		ref := p.dedupRef(cell, row, description, idx)

		drafts = append(drafts, domain.DraftTransaction{
			TxnDate:      txnDate,
			Description:  description,
			Amount:       amount,
			Direction:    direction,
			AccountID:    accountID,
			Source:       p.spec.Source,
			UPIReference: statement.ExtractUPIReference(description),
			DedupKey:     statement.DedupKey(p.spec.Source, ref, txnDate, amount),
			RawPayload:   statement.RowPayload(header, row),
		})
	}

	return drafts, nil
}

// dedupRef picks the reference part of the dedup key: the unique-id
// column when configured and present, else the reference column, else
// the first 10 description characters plus the row's positional index.
// The positional fallback is weak for files with repeated identical rows
// and no reference data; that ambiguity is deliberate and documented.
func (p *Parser) dedupRef(cell func([]string, string) string, row []string, description string, idx int) string {
	if p.spec.UniqueIDColumn != "" {
		if v := cell(row, p.spec.UniqueIDColumn); v != "" {
			return v
		}
	}
	if p.spec.ReferenceColumn != "" {
		if v := cell(row, p.spec.ReferenceColumn); v != "" {
			return v
		}
	}
	prefix := description
	if len(prefix) > 10 {
		prefix = prefix[:10]
	}
	return fmt.Sprintf("%s-%d", prefix, idx)
}
