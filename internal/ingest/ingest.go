// Package ingest orchestrates the statement upload pipeline: parse each
// file, merge the drafts, drop duplicates against prior history,
// classify, persist, and evaluate budget alerts per inserted row.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/rumor-ml/expensetrack/internal/budget"
	"github.com/rumor-ml/expensetrack/internal/dedup"
	"github.com/rumor-ml/expensetrack/internal/domain"
	"github.com/rumor-ml/expensetrack/internal/registry"
	"github.com/rumor-ml/expensetrack/internal/rules"
	"github.com/rumor-ml/expensetrack/internal/statement"
	"github.com/rumor-ml/expensetrack/internal/store"
	"github.com/rumor-ml/expensetrack/internal/streaming"
)

// fallbackCategory is assigned when no rule matches a description.
const fallbackCategory = "Miscellaneous"

var (
	// ErrNoAccounts aborts ingestion before any write: statement rows
	// cannot be resolved without at least one configured account.
	ErrNoAccounts = errors.New("no accounts configured for user")

	// ErrNoValidTransactions means every uploaded file was unusable:
	// unrecognized type, unconfigured account, or zero parseable rows.
	// A fully duplicated re-upload is NOT this error; it succeeds with
	// zero inserted.
	ErrNoValidTransactions = errors.New("no valid transactions found in uploaded files")
)

// File is one uploaded statement. The name drives parser selection.
type File struct {
	Name    string
	Content io.Reader
}

// Result summarizes one ingestion call.
type Result struct {
	Inserted     int      `json:"inserted"`
	Duplicates   int      `json:"duplicates"`
	SkippedFiles []string `json:"skippedFiles,omitempty"`
}

// EventSink receives pipeline progress events. The HTTP layer binds one
// to an upload session's SSE stream; the CLI and tests pass nil.
type EventSink interface {
	Publish(event streaming.SSEEvent)
}

// SinkFunc adapts a function to EventSink.
type SinkFunc func(event streaming.SSEEvent)

func (f SinkFunc) Publish(event streaming.SSEEvent) { f(event) }

// Coordinator wires the parser registry, rule engine, store, and alert
// evaluator into the ingestion flow. Safe for concurrent use across
// users; per-call state (the dedup sets) is never shared.
type Coordinator struct {
	store     *store.Store
	registry  *registry.Registry
	rules     *rules.Engine
	evaluator *budget.Evaluator
	sink      EventSink
}

// NewCoordinator builds a Coordinator. sink may be nil.
func NewCoordinator(st *store.Store, reg *registry.Registry, eng *rules.Engine, sink EventSink) *Coordinator {
	return &Coordinator{
		store:     st,
		registry:  reg,
		rules:     eng,
		evaluator: budget.NewEvaluator(st),
		sink:      sink,
	}
}

// WithSink returns a copy of the coordinator publishing to sink. Used
// by the HTTP layer to bind a per-upload session stream.
func (c *Coordinator) WithSink(sink EventSink) *Coordinator {
	clone := *c
	clone.sink = sink
	return &clone
}

func (c *Coordinator) publish(event streaming.SSEEvent) {
	if c.sink != nil {
		c.sink.Publish(event)
	}
}

// Ingest runs the full pipeline for one upload. Files that cannot be
// routed or parsed are skipped with a logged notice; the call fails
// only when no file yields any draft at all. Alert evaluation errors
// after the batch insert are logged, never fatal: alerts are additive
// and idempotent by existence check, so a later re-evaluation is safe.
func (c *Coordinator) Ingest(ctx context.Context, userID string, files []File) (*Result, error) {
	accounts, err := c.store.AccountMap(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading accounts: %w", err)
	}
	if len(accounts) == 0 {
		return nil, ErrNoAccounts
	}

	drafts, skipped, err := c.parseFiles(ctx, userID, accounts, files)
	if err != nil {
		return nil, err
	}
	if len(drafts) == 0 {
		return nil, ErrNoValidTransactions
	}

	known, err := c.knownIdentifiers(ctx, userID)
	if err != nil {
		return nil, err
	}
	fresh := dedup.FilterNew(drafts, known)
	result := &Result{
		Duplicates:   len(drafts) - len(fresh),
		SkippedFiles: skipped,
	}
	if len(fresh) == 0 {
		// Re-upload of already captured files succeeds with nothing
		// inserted.
		return result, nil
	}

	txns, categoryNames, err := c.classify(ctx, userID, fresh)
	if err != nil {
		return nil, err
	}

	inserted, err := c.store.InsertTransactions(ctx, txns)
	if err != nil {
		return nil, fmt.Errorf("inserting transactions: %w", err)
	}
	result.Inserted = inserted

	// Alert evaluation commits independently per transaction. A failure
	// here leaves earlier alerts in place; the plan reconciler fills
	// any gap on the next read.
	for _, txn := range txns {
		if _, err := c.evaluator.Evaluate(ctx, userID, txn); err != nil {
			log.Printf("WARNING: alert evaluation failed for transaction %s: %v", txn.ID, err)
		}
		c.publish(streaming.NewTransactionEvent(streaming.TransactionEvent{
			ID:          txn.ID,
			Date:        txn.TxnDate.Format("2006-01-02"),
			Description: txn.Description,
			Amount:      txn.Amount.String(),
			Direction:   string(txn.Direction),
			Category:    categoryNames[txn.CategoryID],
		}))
	}

	return result, nil
}

// parseFiles runs the matching parser over each file, collecting drafts
// and the names of files that had to be skipped.
func (c *Coordinator) parseFiles(ctx context.Context, userID string, accounts statement.AccountMap, files []File) ([]domain.DraftTransaction, []string, error) {
	var drafts []domain.DraftTransaction
	var skipped []string

	for i, f := range files {
		parser, err := c.registry.FindParser(f.Name)
		if err != nil {
			log.Printf("WARNING: skipping %s for user %s: %v", f.Name, userID, err)
			skipped = append(skipped, f.Name)
			c.publishFileSkip(f.Name, "", err)
			continue
		}

		fileDrafts, err := parser.Parse(ctx, f.Content, accounts)
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			log.Printf("WARNING: skipping %s for user %s: %v", f.Name, userID, err)
			skipped = append(skipped, f.Name)
			c.publishFileSkip(f.Name, parser.Name(), err)
			continue
		}

		drafts = append(drafts, fileDrafts...)
		c.publish(streaming.NewFileEvent(streaming.FileEvent{
			FileName: f.Name,
			Parser:   parser.Name(),
			Status:   "parsed",
			Drafts:   len(fileDrafts),
		}))
		c.publish(streaming.NewProgressEvent(streaming.ProgressEvent{
			FileName:   f.Name,
			Processed:  i + 1,
			Total:      len(files),
			Percentage: float64(i+1) / float64(len(files)) * 100,
			Status:     "parsed",
		}))
	}
	return drafts, skipped, nil
}

func (c *Coordinator) publishFileSkip(name, parser string, err error) {
	c.publish(streaming.NewFileEvent(streaming.FileEvent{
		FileName: name,
		Parser:   parser,
		Status:   "skipped",
		Error:    err.Error(),
	}))
}

// knownIdentifiers loads the user's existing dedup identity index.
func (c *Coordinator) knownIdentifiers(ctx context.Context, userID string) (*dedup.Known, error) {
	upiRefs, err := c.store.KnownUPIRefs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading known UPI references: %w", err)
	}
	dedupKeys, err := c.store.KnownDedupKeys(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading known dedup keys: %w", err)
	}
	return dedup.NewKnown(upiRefs, dedupKeys), nil
}

// classify resolves each draft's category and merchant. Rule matches
// auto-create the named category and merchant for the user; unmatched
// descriptions fall back to the catch-all category with no merchant.
// The returned map translates category ids back to display names for
// progress events.
func (c *Coordinator) classify(ctx context.Context, userID string, drafts []domain.DraftTransaction) ([]domain.Transaction, map[string]string, error) {
	txns := make([]domain.Transaction, 0, len(drafts))
	names := make(map[string]string)
	for _, d := range drafts {
		categoryName := fallbackCategory
		merchantName := ""
		if match, ok := c.rules.Match(d.Description); ok {
			categoryName = match.Category
			merchantName = match.Merchant
		}

		categoryID, err := c.store.EnsureCategory(ctx, userID, categoryName, false)
		if err != nil {
			return nil, nil, fmt.Errorf("resolving category %q: %w", categoryName, err)
		}
		names[categoryID] = categoryName
		merchantID := ""
		if merchantName != "" {
			merchantID, err = c.store.EnsureMerchant(ctx, userID, merchantName, categoryID)
			if err != nil {
				return nil, nil, fmt.Errorf("resolving merchant %q: %w", merchantName, err)
			}
		}

		txns = append(txns, domain.Transaction{
			UserID:       userID,
			TxnDate:      d.TxnDate,
			Description:  d.Description,
			Amount:       d.Amount,
			Direction:    d.Direction,
			AccountID:    d.AccountID,
			Source:       d.Source,
			CategoryID:   categoryID,
			MerchantID:   merchantID,
			UPIReference: d.UPIReference,
			DedupKey:     d.DedupKey,
			RawPayload:   d.RawPayload,
		})
	}
	return txns, names, nil
}
