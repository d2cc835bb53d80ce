package dedup

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rumor-ml/expensetrack/internal/domain"
)

func draft(date string, desc, upiRef, dedupKey string) domain.DraftTransaction {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	return domain.DraftTransaction{
		TxnDate:      d,
		Description:  desc,
		Amount:       decimal.NewFromInt(100),
		Direction:    domain.DirectionDebit,
		AccountID:    "acc-1",
		Source:       "HDFC",
		UPIReference: upiRef,
		DedupKey:     dedupKey,
	}
}

func TestFilterNew_KnownIdentifiersSkipped(t *testing.T) {
	known := NewKnown([]string{"404912345678"}, []string{"HDFC-REF1-20240301-100.00"})

	drafts := []domain.DraftTransaction{
		draft("2024-03-01", "known upi", "404912345678", ""),
		draft("2024-03-02", "known key", "", "HDFC-REF1-20240301-100.00"),
		draft("2024-03-03", "fresh", "404999999999", "HDFC-REF2-20240303-100.00"),
	}

	fresh := FilterNew(drafts, known)
	if len(fresh) != 1 {
		t.Fatalf("FilterNew() = %d drafts, want 1", len(fresh))
	}
	if fresh[0].Description != "fresh" {
		t.Errorf("surviving draft = %q, want fresh", fresh[0].Description)
	}
}

func TestFilterNew_InBatchDuplicates(t *testing.T) {
	known := NewKnown(nil, nil)

	drafts := []domain.DraftTransaction{
		draft("2024-03-02", "later copy", "404912345678", ""),
		draft("2024-03-01", "earlier copy", "404912345678", ""),
	}

	fresh := FilterNew(drafts, known)
	if len(fresh) != 1 {
		t.Fatalf("FilterNew() = %d drafts, want 1", len(fresh))
	}
	// Earliest occurrence wins after the date sort.
	if fresh[0].Description != "earlier copy" {
		t.Errorf("surviving draft = %q, want earlier copy", fresh[0].Description)
	}
}

func TestFilterNew_SortsByDate(t *testing.T) {
	known := NewKnown(nil, nil)

	drafts := []domain.DraftTransaction{
		draft("2024-03-05", "third", "", "k3"),
		draft("2024-03-01", "first", "", "k1"),
		draft("2024-03-03", "second", "", "k2"),
	}

	fresh := FilterNew(drafts, known)
	if len(fresh) != 3 {
		t.Fatalf("FilterNew() = %d drafts, want 3", len(fresh))
	}
	for i, want := range []string{"first", "second", "third"} {
		if fresh[i].Description != want {
			t.Errorf("fresh[%d] = %q, want %q", i, fresh[i].Description, want)
		}
	}
}

func TestFilterNew_KnownMutatedAcrossCalls(t *testing.T) {
	known := NewKnown(nil, nil)

	first := FilterNew([]domain.DraftTransaction{draft("2024-03-01", "file one", "", "shared-key")}, known)
	second := FilterNew([]domain.DraftTransaction{draft("2024-03-01", "file two", "", "shared-key")}, known)

	if len(first) != 1 || len(second) != 0 {
		t.Errorf("cross-file duplicate not collapsed: first=%d second=%d", len(first), len(second))
	}
}

func TestFilterNew_EmptyIdentifiersNeverCollide(t *testing.T) {
	known := NewKnown(nil, nil)

	drafts := []domain.DraftTransaction{
		draft("2024-03-01", "wallet row one", "", ""),
		draft("2024-03-02", "wallet row two", "", ""),
	}

	fresh := FilterNew(drafts, known)
	if len(fresh) != 2 {
		t.Fatalf("FilterNew() = %d drafts, want 2 (empty ids are not duplicates)", len(fresh))
	}
}
