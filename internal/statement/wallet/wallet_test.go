package wallet

import (
	"context"
	"strings"
	"testing"

	"github.com/rumor-ml/expensetrack/internal/domain"
	"github.com/rumor-ml/expensetrack/internal/statement"
)

var testAccounts = statement.AccountMap{
	"HDFC Bank":    "acc-hdfc-bank",
	"Paytm Wallet": "acc-paytm-wallet",
}

const walletHeader = "Date,Time,Transaction Details,Amount,Your Account,UPI Ref No.,Remarks\n"

func TestCanParse(t *testing.T) {
	p := New()

	tests := []struct {
		filename string
		expected bool
	}{
		{"Paytm_UPI_Statement_March.csv", true},
		{"paytm.csv", true},
		{"hdfc_statement.csv", false},
		{"paytm_statement.pdf", false},
	}

	for _, tt := range tests {
		if got := p.CanParse(tt.filename); got != tt.expected {
			t.Errorf("CanParse(%q) = %v, want %v", tt.filename, got, tt.expected)
		}
	}
}

func TestParse_SignedAmounts(t *testing.T) {
	csv := walletHeader +
		`01/03/2024,10:30:00,Paid to Zomato,-250.00,HDFC Bank - xx1234,404912345678,
02/03/2024,09:15:00,Received from Rahul,500.00,Paytm Wallet,404987654321,
`
	drafts, err := New().Parse(context.Background(), strings.NewReader(csv), testAccounts)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(drafts) != 2 {
		t.Fatalf("Parse() yielded %d drafts, want 2", len(drafts))
	}

	debit := drafts[0]
	if debit.Direction != domain.DirectionDebit {
		t.Errorf("negative amount direction = %s, want debit", debit.Direction)
	}
	if debit.Amount.StringFixed(2) != "250.00" {
		t.Errorf("debit amount = %s, want 250.00 (absolute value)", debit.Amount)
	}
	if debit.AccountID != "acc-hdfc-bank" {
		t.Errorf("account id = %s, want acc-hdfc-bank", debit.AccountID)
	}
	if debit.Source != "HDFC Bank" {
		t.Errorf("source = %s, want matched account name HDFC Bank", debit.Source)
	}
	if debit.UPIReference != "404912345678" {
		t.Errorf("UPI reference = %s, want 404912345678", debit.UPIReference)
	}
	if debit.DedupKey != "" {
		t.Errorf("dedup key = %q, want empty for wallet rows", debit.DedupKey)
	}
	if got := debit.TxnDate.Format("2006-01-02 15:04:05"); got != "2024-03-01 10:30:00" {
		t.Errorf("txn date = %s, want 2024-03-01 10:30:00", got)
	}

	credit := drafts[1]
	if credit.Direction != domain.DirectionCredit {
		t.Errorf("positive amount direction = %s, want credit", credit.Direction)
	}
	if credit.AccountID != "acc-paytm-wallet" {
		t.Errorf("wallet account id = %s, want acc-paytm-wallet", credit.AccountID)
	}
}

func TestParse_SkipsExcludedAndUnresolvedRows(t *testing.T) {
	csv := walletHeader +
		`01/03/2024,10:00:00,Failed payment,-100.00,HDFC Bank,404911111111,This is not included in your total
02/03/2024,11:00:00,Unknown funding,-100.00,SBI Bank - xx9999,404922222222,
03/03/2024,12:00:00,Zero amount,0.00,HDFC Bank,404933333333,
,13:00:00,No date,-100.00,HDFC Bank,404944444444,
04/03/2024,14:00:00,Kept,-100.00,HDFC Bank,404955555555,
`
	drafts, err := New().Parse(context.Background(), strings.NewReader(csv), testAccounts)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(drafts) != 1 {
		t.Fatalf("Parse() yielded %d drafts, want 1", len(drafts))
	}
	if drafts[0].Description != "Kept" {
		t.Errorf("surviving row = %q, want Kept", drafts[0].Description)
	}
}

func TestParse_NormalizesNumericUPIRef(t *testing.T) {
	csv := walletHeader +
		`01/03/2024,10:00:00,Paid to Swiggy,-180.00,HDFC Bank,404912345678.0,
`
	drafts, err := New().Parse(context.Background(), strings.NewReader(csv), testAccounts)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(drafts) != 1 {
		t.Fatalf("Parse() yielded %d drafts, want 1", len(drafts))
	}
	if drafts[0].UPIReference != "404912345678" {
		t.Errorf("UPI reference = %q, want float artifact stripped", drafts[0].UPIReference)
	}
}

func TestParse_MissingRequiredColumn(t *testing.T) {
	csv := "Date,Time,Amount,Your Account\n01/03/2024,10:00:00,-50.00,HDFC Bank\n"
	if _, err := New().Parse(context.Background(), strings.NewReader(csv), testAccounts); err == nil {
		t.Fatal("Parse() expected error for missing details column")
	}
}
