package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestNewMonth(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid month", "2024-03", false},
		{"valid december", "2024-12", false},
		{"month zero", "2024-00", true},
		{"month thirteen", "2024-13", true},
		{"missing month", "2024", true},
		{"full date", "2024-03-01", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMonth(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewMonth(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestMonthArithmetic(t *testing.T) {
	m := Month("2024-01")

	if got := m.Next(); got != Month("2024-02") {
		t.Errorf("Next() = %s, want 2024-02", got)
	}
	if got := m.Prev(); got != Month("2023-12") {
		t.Errorf("Prev() = %s, want 2023-12", got)
	}
	if got := m.Days(); got != 31 {
		t.Errorf("Days() = %d, want 31", got)
	}
	// 2024 is a leap year
	if got := Month("2024-02").Days(); got != 29 {
		t.Errorf("Days() for 2024-02 = %d, want 29", got)
	}
}

func TestMonthOf(t *testing.T) {
	d := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	if got := MonthOf(d); got != Month("2024-03") {
		t.Errorf("MonthOf() = %s, want 2024-03", got)
	}
}

func TestDraftValidate(t *testing.T) {
	valid := DraftTransaction{
		TxnDate:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Description: "SWIGGY ORDER",
		Amount:      decimal.NewFromInt(200),
		Direction:   DirectionDebit,
		AccountID:   "acc-hdfc-bank",
		Source:      "HDFC",
	}

	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(d *DraftTransaction)
	}{
		{"zero date", func(d *DraftTransaction) { d.TxnDate = time.Time{} }},
		{"empty description", func(d *DraftTransaction) { d.Description = "" }},
		{"zero amount", func(d *DraftTransaction) { d.Amount = decimal.Zero }},
		{"negative amount", func(d *DraftTransaction) { d.Amount = decimal.NewFromInt(-5) }},
		{"bad direction", func(d *DraftTransaction) { d.Direction = "transfer" }},
		{"empty account", func(d *DraftTransaction) { d.AccountID = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := valid
			tt.mutate(&d)
			if err := d.Validate(); err == nil {
				t.Errorf("Validate() expected error for %s", tt.name)
			}
		})
	}
}

func TestValidateThreshold(t *testing.T) {
	for _, v := range []int{75, 90, 100} {
		if !ValidateThreshold(v) {
			t.Errorf("ValidateThreshold(%d) = false, want true", v)
		}
	}
	for _, v := range []int{0, 50, 80, 110} {
		if ValidateThreshold(v) {
			t.Errorf("ValidateThreshold(%d) = true, want false", v)
		}
	}
}

func TestTransactionPatchApply(t *testing.T) {
	base := Transaction{
		ID:          "txn-1",
		UserID:      "user-1",
		TxnDate:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Description: "original",
		Amount:      decimal.NewFromInt(100),
		Direction:   DirectionDebit,
		AccountID:   "acc-1",
	}

	newDesc := "updated"
	newAmount := decimal.NewFromInt(250)
	patch := TransactionPatch{
		Description: &newDesc,
		Amount:      &newAmount,
	}

	txn := base
	if err := patch.Apply(&txn); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if txn.Description != "updated" {
		t.Errorf("Description = %s, want updated", txn.Description)
	}
	if !txn.Amount.Equal(newAmount) {
		t.Errorf("Amount = %s, want 250", txn.Amount)
	}
	// Untouched fields survive
	if txn.Direction != DirectionDebit {
		t.Errorf("Direction = %s, want debit (unchanged)", txn.Direction)
	}
	if !txn.TxnDate.Equal(base.TxnDate) {
		t.Errorf("TxnDate changed unexpectedly")
	}
}

func TestTransactionPatchApply_Invalid(t *testing.T) {
	txn := Transaction{
		Description: "original",
		Amount:      decimal.NewFromInt(100),
		Direction:   DirectionDebit,
	}

	empty := ""
	if err := (&TransactionPatch{Description: &empty}).Apply(&txn); err == nil {
		t.Error("Apply() expected error for empty description")
	}

	neg := decimal.NewFromInt(-1)
	if err := (&TransactionPatch{Amount: &neg}).Apply(&txn); err == nil {
		t.Error("Apply() expected error for negative amount")
	}

	bad := Direction("sideways")
	if err := (&TransactionPatch{Direction: &bad}).Apply(&txn); err == nil {
		t.Error("Apply() expected error for invalid direction")
	}

	// Failed patch must not have mutated prior valid fields it rejected
	if txn.Description != "original" {
		t.Errorf("Description mutated to %q after failed patch", txn.Description)
	}
}
