// Package ofx parses OFX/QFX statement downloads.
package ofx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"

	"github.com/rumor-ml/expensetrack/internal/domain"
	"github.com/rumor-ml/expensetrack/internal/statement"
)

// Parser implements OFX/QFX parsing with a stateless design. The struct
// has no fields because OFX parsing requires no configuration state, so
// the parser is safe for concurrent use without locking.
type Parser struct{}

var parserInstance = &Parser{}

// NewParser returns the shared OFX parser instance.
func NewParser() *Parser {
	return parserInstance
}

// Name returns the parser identifier
func (p *Parser) Name() string {
	return "ofx"
}

// CanParse checks the file extension (.ofx or .qfx, case-insensitive).
func (p *Parser) CanParse(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return ext == ".ofx" || ext == ".qfx"
}

// Parse extracts drafts from an OFX/QFX download. The issuing
// institution (SIGNON ORG) is resolved against the account map by
// containment, so "HDFC" in the map matches an ORG of "HDFC Bank Ltd".
// OFX amounts are signed: negative values are debits.
func (p *Parser) Parse(ctx context.Context, r io.Reader, accounts statement.AccountMap) ([]domain.DraftTransaction, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX content: %w", err)
	}

	// ofxgo.ParseResponse does not support context cancellation, so this
	// check only catches cancellation between read and parse.
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	response, err := ofxgo.ParseResponse(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file (%d bytes): %w", len(content), err)
	}

	institution := response.Signon.Org.String()
	if institution == "" {
		return nil, fmt.Errorf("missing institution in OFX response")
	}
	accountName, accountID, ok := resolveAccount(institution, accounts)
	if !ok {
		return nil, fmt.Errorf("%q: %w", institution, statement.ErrAccountNotConfigured)
	}

	if len(response.CreditCard) > 0 {
		ccStmt, ok := response.CreditCard[0].(*ofxgo.CCStatementResponse)
		if !ok {
			return nil, fmt.Errorf("failed to type assert credit card statement: expected *ofxgo.CCStatementResponse, got %T", response.CreditCard[0])
		}
		if ccStmt.BankTranList == nil {
			return nil, fmt.Errorf("missing transaction list in credit card statement")
		}
		return p.parseTransactions(ccStmt.BankTranList, accountName, accountID)
	}

	if len(response.Bank) > 0 {
		bankStmt, ok := response.Bank[0].(*ofxgo.StatementResponse)
		if !ok {
			return nil, fmt.Errorf("failed to type assert bank statement: expected *ofxgo.StatementResponse, got %T", response.Bank[0])
		}
		if bankStmt.BankTranList == nil {
			return nil, fmt.Errorf("missing transaction list in bank statement")
		}
		return p.parseTransactions(bankStmt.BankTranList, accountName, accountID)
	}

	return nil, fmt.Errorf("no supported statement type found in OFX file: expected a credit card (CREDITCARDMSGSRSV1) or bank (BANKMSGSRSV1) statement")
}

// resolveAccount matches the institution text against the configured
// account names by containment, in sorted order for determinism.
func resolveAccount(institution string, accounts statement.AccountMap) (name, id string, ok bool) {
	lower := strings.ToLower(institution)
	best := ""
	for n := range accounts {
		if strings.Contains(lower, strings.ToLower(n)) || strings.Contains(strings.ToLower(n), lower) {
			if best == "" || n < best {
				best = n
			}
		}
	}
	if best == "" {
		return "", "", false
	}
	return best, accounts[best], true
}

// parseTransactions converts an OFX transaction list to drafts. Rows
// missing a usable date, description or amount are skipped with a
// warning rather than failing the file, matching the other statement
// parsers.
func (p *Parser) parseTransactions(tranList *ofxgo.TransactionList, accountName, accountID string) ([]domain.DraftTransaction, error) {
	drafts := make([]domain.DraftTransaction, 0, len(tranList.Transactions))

	for i, txn := range tranList.Transactions {
		fitID := txn.FiTID.String()
		if fitID == "" {
			log.Printf("WARNING: skipping OFX transaction %d: missing FITID", i)
			continue
		}

		date := txn.DtPosted.Time
		if date.IsZero() {
			date = txn.DtUser.Time
		}
		if date.IsZero() {
			log.Printf("WARNING: skipping OFX transaction %s: missing posted and user date", fitID)
			continue
		}

		description := strings.TrimSpace(txn.Name.String())
		if description == "" {
			description = strings.TrimSpace(txn.Memo.String())
		}
		if description == "" {
			log.Printf("WARNING: skipping OFX transaction %s: missing name and memo", fitID)
			continue
		}

		amount, err := decimal.NewFromString(txn.TrnAmt.String())
		if err != nil {
			log.Printf("WARNING: skipping OFX transaction %s: bad amount %q: %v", fitID, txn.TrnAmt.String(), err)
			continue
		}
		if amount.IsZero() {
			continue
		}
		direction := domain.DirectionCredit
		if amount.IsNegative() {
			direction = domain.DirectionDebit
		}
		amount = amount.Abs()

		drafts = append(drafts, domain.DraftTransaction{
			TxnDate:      date,
			Description:  description,
			Amount:       amount,
			Direction:    direction,
			AccountID:    accountID,
			Source:       accountName,
			UPIReference: statement.ExtractUPIReference(description),
			DedupKey:     statement.DedupKey(accountName, fitID, date, amount),
			RawPayload: map[string]string{
				"FITID": fitID,
				"Type":  txn.TrnType.String(),
				"Name":  txn.Name.String(),
				"Memo":  txn.Memo.String(),
			},
		})
	}

	return drafts, nil
}
