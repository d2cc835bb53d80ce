// Package dedup filters statement drafts that were already ingested in
// an earlier upload. A draft is a duplicate when its UPI reference or
// its dedup key is already known for the user.
package dedup

import (
	"sort"

	"github.com/rumor-ml/expensetrack/internal/domain"
)

// Known holds the user's previously ingested identifiers. Both sets are
// mutated as drafts are accepted, so a duplicate appearing twice within
// one upload batch is also caught.
type Known struct {
	UPIRefs   map[string]struct{}
	DedupKeys map[string]struct{}
}

// NewKnown builds the mutable identifier sets from stored values.
func NewKnown(upiRefs, dedupKeys []string) *Known {
	k := &Known{
		UPIRefs:   make(map[string]struct{}, len(upiRefs)),
		DedupKeys: make(map[string]struct{}, len(dedupKeys)),
	}
	for _, r := range upiRefs {
		if r != "" {
			k.UPIRefs[r] = struct{}{}
		}
	}
	for _, key := range dedupKeys {
		if key != "" {
			k.DedupKeys[key] = struct{}{}
		}
	}
	return k
}

// FilterNew returns the drafts not yet ingested, sorted by transaction
// date ascending. Sorting happens before filtering so the earliest
// occurrence of an in-batch duplicate is the one that survives. Accepted
// drafts register their identifiers in the known sets immediately;
// callers reuse the same Known across the files of one upload so
// cross-file duplicates collapse too.
func FilterNew(drafts []domain.DraftTransaction, known *Known) []domain.DraftTransaction {
	sorted := make([]domain.DraftTransaction, len(drafts))
	copy(sorted, drafts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TxnDate.Before(sorted[j].TxnDate)
	})

	fresh := make([]domain.DraftTransaction, 0, len(sorted))
	for _, d := range sorted {
		if d.UPIReference != "" {
			if _, dup := known.UPIRefs[d.UPIReference]; dup {
				continue
			}
		}
		if d.DedupKey != "" {
			if _, dup := known.DedupKeys[d.DedupKey]; dup {
				continue
			}
		}

		if d.UPIReference != "" {
			known.UPIRefs[d.UPIReference] = struct{}{}
		}
		if d.DedupKey != "" {
			known.DedupKeys[d.DedupKey] = struct{}{}
		}
		fresh = append(fresh, d)
	}
	return fresh
}
