// Package wallet parses Paytm wallet exports. Unlike bank statements a
// wallet export mixes rows from several funding accounts, so the account
// is resolved per row from the "Your Account" cell instead of once per
// file.
package wallet

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rumor-ml/expensetrack/internal/domain"
	"github.com/rumor-ml/expensetrack/internal/statement"
)

const (
	dateColumn        = "Date"
	timeColumn        = "Time"
	descriptionColumn = "Transaction Details"
	amountColumn      = "Amount"
	accountColumn     = "Your Account"
	upiRefColumn      = "UPI Ref No."
	remarksColumn     = "Remarks"

	timestampLayout = "02/01/2006 15:04:05"

	// Rows Paytm itself excludes from the statement total (failed and
	// reversed payments) carry this phrase in the remarks column.
	excludedRemark = "This is not included"
)

// Parser implements the Paytm wallet export shape.
type Parser struct{}

// New creates a Paytm wallet parser.
func New() *Parser {
	return &Parser{}
}

// Name returns the parser identifier
func (p *Parser) Name() string {
	return "wallet-paytm"
}

// CanParse checks the file name for the Paytm hint.
func (p *Parser) CanParse(filename string) bool {
	lower := strings.ToLower(filepath.Base(filename))
	return strings.HasSuffix(lower, ".csv") && strings.Contains(lower, "paytm")
}

// resolveAccount matches the row's funding account text against the
// configured account names by containment ("HDFC Bank" matches
// "HDFC Bank - xx1234"). Names are tried in sorted order so resolution
// is deterministic when several names match.
func resolveAccount(accountText string, accounts statement.AccountMap) (name, id string, ok bool) {
	names := make([]string, 0, len(accounts))
	for n := range accounts {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		if strings.Contains(accountText, n) {
			return n, accounts[n], true
		}
	}
	return "", "", false
}

// normalizeUPIRef strips the float artifact some exports carry
// ("404912345678.0" for a numeric cell).
func normalizeUPIRef(raw string) string {
	return strings.TrimSuffix(strings.TrimSpace(raw), ".0")
}

// Parse extracts drafts from a wallet export. The amount column is
// signed: negative values are debits, positive values credits. Rows
// whose funding account is not configured are skipped rather than
// failing the file, since one export routinely mixes accounts the user
// tracks with ones they do not. Wallet rows carry no dedup key; the
// UPI reference is the only re-upload guard.
func (p *Parser) Parse(ctx context.Context, r io.Reader, accounts statement.AccountMap) ([]domain.DraftTransaction, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
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

	header := make([]string, len(records[0]))
	for i, c := range records[0] {
		header[i] = strings.TrimSpace(c)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, required := range []string{dateColumn, timeColumn, descriptionColumn, amountColumn, accountColumn} {
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
		if cell(row, dateColumn) == "" {
			continue
		}
		if strings.Contains(cell(row, remarksColumn), excludedRemark) {
			continue
		}

		accountName, accountID, ok := resolveAccount(cell(row, accountColumn), accounts)
		if !ok {
			continue
		}

		amount, err := statement.ParseAmount(cell(row, amountColumn))
		if err != nil {
			log.Printf("WARNING: skipping Paytm row %d: %v", idx+2, err)
			continue
		}
		if amount.IsZero() {
			continue
		}
		direction := domain.DirectionCredit
		if amount.IsNegative() {
			direction = domain.DirectionDebit
		}

		txnDate, err := time.Parse(timestampLayout, cell(row, dateColumn)+" "+cell(row, timeColumn))
		if err != nil {
			log.Printf("WARNING: skipping Paytm row %d: %v", idx+2, err)
			continue
		}

		description := cell(row, descriptionColumn)
		if description == "" {
			log.Printf("WARNING: skipping Paytm row %d: empty description", idx+2)
			continue
		}

		drafts = append(drafts, domain.DraftTransaction{
			TxnDate:      txnDate,
			Description:  description,
			Amount:       amount.Abs(),
			Direction:    direction,
			AccountID:    accountID,
			Source:       accountName,
			UPIReference: normalizeUPIRef(cell(row, upiRefColumn)),
			RawPayload:   statement.RowPayload(header, row),
		})
	}

	return drafts, nil
}
