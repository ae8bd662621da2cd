package commercial

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ledgerbook/internal/core/apperror"
	"ledgerbook/internal/core/id"
	"ledgerbook/internal/core/lock"
	"ledgerbook/internal/core/types"
	"ledgerbook/internal/domain"
	"ledgerbook/internal/domain/registers/settlement"
	"ledgerbook/internal/domain/registers/stock"
	"ledgerbook/pkg/logger"
)

// CreateInput is everything needed to persist a new document.
type CreateInput struct {
	Header     Header
	Lines      []LineInput
	Settlement *SettlementProposal
}

// UpdateInput replaces a document's header and line items.
type UpdateInput struct {
	Header Header
	Lines  []LineInput

	// ExpectedVersion rejects the edit if the stored document moved on. Zero skips the check.
	ExpectedVersion int
}

// PaymentInput records money against an existing document.
type PaymentInput struct {
	Amount      types.Money
	Mode        string
	Date        time.Time
	Description string
}

// Result is returned by every mutating operation.
type Result struct {
	Document    *Document               `json:"document"`
	Totals      *Totals                 `json:"totals,omitempty"`
	Transaction *settlement.Transaction `json:"transaction,omitempty"`
	Reversed    *stock.Result           `json:"reversed,omitempty"`
	Applied     *stock.Result           `json:"applied,omitempty"`
	Operation   *OperationLog           `json:"operation"`
}

// Preview is the outcome of a dry run.
type Preview struct {
	Totals        Totals      `json:"totals"`
	Status        Status      `json:"status"`
	BalanceAmount types.Money `json:"balanceAmount"`
	Settled       types.Money `json:"settled"`
	LineItems     []LineItem  `json:"lineItems"`
}

// Service orchestrates document writes across documents, line items,
// transactions and item stock. The store offers no cross-entity
// transaction, so every operation is a saga of single-entity calls.
type Service struct {
	repo       Repository
	ledger     *settlement.Ledger
	reconciler *stock.Reconciler
	intents    IntentStore
	locker     lock.Locker
	numberer   Numberer
}

// NewService creates a document service. numberer may be nil, in which
// case documents keep the number supplied by the caller.
func NewService(
	repo Repository,
	ledger *settlement.Ledger,
	reconciler *stock.Reconciler,
	intents IntentStore,
	locker lock.Locker,
	numberer Numberer,
) *Service {
	return &Service{
		repo:       repo,
		ledger:     ledger,
		reconciler: reconciler,
		intents:    intents,
		locker:     locker,
		numberer:   numberer,
	}
}

// withBusinessLock serializes every mutation of one business.
func (s *Service) withBusinessLock(ctx context.Context, businessID string, fn func(ctx context.Context) error) error {
	release, err := s.locker.Lock(ctx, lock.BusinessKey(businessID))
	if err != nil {
		if apperror.IsAppError(err) {
			return err
		}
		return apperror.NewBusinessBusy(businessID).WithCause(err)
	}
	defer release()
	return fn(ctx)
}

func requireBusiness(businessID string) error {
	if businessID == "" {
		return apperror.NewValidation("business is required").WithDetail("field", "businessId")
	}
	return nil
}

// capSettlement returns the amount a proposal may record against total.
func capSettlement(p *SettlementProposal, total types.Money) types.Money {
	if p == nil || !p.Amount.IsPositive() {
		return types.Zero()
	}
	if p.Amount.GreaterThan(total) {
		return total
	}
	return p.Amount
}

// Preview runs totals and status for a draft without writing anything.
func (s *Service) Preview(ctx context.Context, businessID string, in CreateInput) (*Preview, error) {
	if err := in.Header.Validate(ctx); err != nil {
		return nil, err
	}
	if err := ValidateLines(in.Lines); err != nil {
		return nil, err
	}

	lines := buildLines(businessID, id.Nil(), in.Lines)
	totals := CalculateTotals(in.Header.Kind, lines, in.Header.Discount, in.Header.InvoiceTaxPercent)
	settled := capSettlement(in.Settlement, totals.TotalAmount)
	status, balance := ResolveStatus(totals.TotalAmount, settled)

	return &Preview{
		Totals:        totals,
		Status:        status,
		BalanceAmount: balance,
		Settled:       settled,
		LineItems:     lines,
	}, nil
}

// Create persists a new document.
//
// Steps: 3 header, 4 line items, 5 settlement transaction, 6 forward stock.
// Steps 1 and 2 (totals, status) are pure. A failure after step 3 leaves the
// header in place and is reported, not retried.
func (s *Service) Create(ctx context.Context, businessID string, in CreateInput) (*Result, error) {
	if err := requireBusiness(businessID); err != nil {
		return nil, err
	}
	if err := in.Header.Validate(ctx); err != nil {
		return nil, err
	}
	if err := ValidateLines(in.Lines); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "document.create",
		trace.WithAttributes(
			attribute.String("business.id", businessID),
			attribute.String("document.kind", string(in.Header.Kind)),
		))
	defer span.End()

	var res *Result
	err := s.withBusinessLock(ctx, businessID, func(ctx context.Context) error {
		var err error
		res, err = s.create(ctx, businessID, in)
		return err
	})
	if err != nil {
		span.RecordError(err)
	}
	return res, err
}

func (s *Service) create(ctx context.Context, businessID string, in CreateInput) (*Result, error) {
	doc := newDocument(businessID, in.Header)
	if doc.Number == "" && s.numberer != nil {
		number, err := s.numberer.Next(ctx, businessID, doc.Kind.NumberPrefix(), doc.Date)
		if err != nil {
			return nil, fmt.Errorf("generate document number: %w", err)
		}
		doc.Number = number
	}

	// 1. totals
	doc.LineItems = buildLines(businessID, doc.ID, in.Lines)
	totals := CalculateTotals(doc.Kind, doc.LineItems, doc.Discount(), doc.InvoiceTaxPercent)

	// 2. status from the amount that will actually be recorded
	settled := capSettlement(in.Settlement, totals.TotalAmount)
	status, balance := ResolveStatus(totals.TotalAmount, settled)
	doc.applyTotals(totals, status, balance)

	sg, err := beginSaga(ctx, s.intents, OpCreate, businessID, &doc.ID)
	if err != nil {
		return nil, err
	}
	res := &Result{Document: doc, Totals: &totals, Operation: sg.log}

	err = s.runCreate(ctx, sg, doc, in.Settlement, settled, res)
	sg.finish(ctx, err)
	return res, err
}

func (s *Service) runCreate(ctx context.Context, sg *saga, doc *Document, proposal *SettlementProposal, settled types.Money, res *Result) error {
	if err := sg.step(ctx, 3, "insert_header", "document", func(ctx context.Context, _ *Step) error {
		return s.repo.InsertHeader(ctx, doc)
	}); err != nil {
		return err
	}

	if err := sg.step(ctx, 4, "insert_lines", "line_item", func(ctx context.Context, _ *Step) error {
		return s.repo.InsertLines(ctx, doc.BusinessID, doc.ID, doc.LineItems)
	}); err != nil {
		return err
	}

	if settled.IsPositive() {
		txn := settlementFor(doc, settled, proposal.Mode, proposal.Date, proposal.Description)
		if err := sg.step(ctx, 5, "insert_settlement", "transaction", func(ctx context.Context, st *Step) error {
			st.Detail = map[string]any{"transaction_id": txn.ID.String(), "amount": settled.String()}
			return s.ledger.Insert(ctx, txn)
		}); err != nil {
			return err
		}
		res.Transaction = txn
	}

	applied, err := s.stockStep(ctx, sg, 6, "apply_stock", doc.Kind.Direction(), doc.LineItems)
	res.Applied = applied
	return err
}

// Update replaces a document's header and line items.
//
// Steps: 1 reverse stock from stored lines, 2 delete stored lines,
// 4 read settlement, 5 update header, 6 insert new lines, 7 forward stock.
// Step 3 (totals) is pure. Existing transactions are never touched.
func (s *Service) Update(ctx context.Context, businessID string, docID id.ID, in UpdateInput) (*Result, error) {
	if err := requireBusiness(businessID); err != nil {
		return nil, err
	}
	if err := ValidateLines(in.Lines); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "document.update",
		trace.WithAttributes(
			attribute.String("business.id", businessID),
			attribute.String("document.id", docID.String()),
		))
	defer span.End()

	var res *Result
	err := s.withBusinessLock(ctx, businessID, func(ctx context.Context) error {
		var err error
		res, err = s.update(ctx, businessID, docID, in)
		return err
	})
	if err != nil {
		span.RecordError(err)
	}
	return res, err
}

func (s *Service) update(ctx context.Context, businessID string, docID id.ID, in UpdateInput) (*Result, error) {
	doc, err := s.load(ctx, businessID, docID)
	if err != nil {
		return nil, err
	}

	if in.Header.Kind == "" {
		in.Header.Kind = doc.Kind
	}
	if in.Header.Kind != doc.Kind {
		return nil, apperror.NewValidation("document kind cannot change").
			WithDetail("field", "kind").
			WithDetail("stored", string(doc.Kind))
	}
	if err := in.Header.Validate(ctx); err != nil {
		return nil, err
	}
	if in.ExpectedVersion > 0 && in.ExpectedVersion != doc.Version {
		return nil, apperror.NewConcurrentModification("document", docID.String()).
			WithDetail("expected_version", in.ExpectedVersion).
			WithDetail("actual_version", doc.Version)
	}

	storedLines := doc.LineItems
	newLines := buildLines(businessID, doc.ID, in.Lines)

	sg, err := beginSaga(ctx, s.intents, OpUpdate, businessID, &doc.ID)
	if err != nil {
		return nil, err
	}
	res := &Result{Document: doc, Operation: sg.log}

	err = s.runUpdate(ctx, sg, doc, in.Header, storedLines, newLines, res)
	sg.finish(ctx, err)
	return res, err
}

func (s *Service) runUpdate(ctx context.Context, sg *saga, doc *Document, h Header, storedLines, newLines []LineItem, res *Result) error {
	reversed, err := s.stockStep(ctx, sg, 1, "reverse_stock", doc.Kind.Direction().Reverse(), storedLines)
	res.Reversed = reversed
	if err != nil {
		return err
	}

	if err := sg.step(ctx, 2, "delete_lines", "line_item", func(ctx context.Context, _ *Step) error {
		return s.repo.DeleteLines(ctx, doc.BusinessID, doc.ID)
	}); err != nil {
		return err
	}

	// 3. totals from the new header and lines
	doc.applyHeader(h)
	totals := CalculateTotals(doc.Kind, newLines, doc.Discount(), doc.InvoiceTaxPercent)
	res.Totals = &totals

	var settled types.Money
	if err := sg.step(ctx, 4, "read_settlement", "transaction", func(ctx context.Context, st *Step) error {
		var err error
		settled, err = s.ledger.NetSettled(ctx, doc.BusinessID, doc.ID, doc.Kind.SettlingType())
		st.Detail = map[string]any{"net_settled": settled.String()}
		return err
	}); err != nil {
		return err
	}

	status, balance := ResolveStatus(totals.TotalAmount, settled)
	doc.applyTotals(totals, status, balance)

	if err := sg.step(ctx, 5, "update_header", "document", func(ctx context.Context, _ *Step) error {
		return s.repo.UpdateHeader(ctx, doc)
	}); err != nil {
		return err
	}

	if err := sg.step(ctx, 6, "insert_lines", "line_item", func(ctx context.Context, _ *Step) error {
		return s.repo.InsertLines(ctx, doc.BusinessID, doc.ID, newLines)
	}); err != nil {
		return err
	}
	doc.LineItems = newLines

	applied, err := s.stockStep(ctx, sg, 7, "apply_stock", doc.Kind.Direction(), newLines)
	res.Applied = applied
	return err
}

// Delete removes a document and undoes its stock effect.
//
// Steps: 1 reverse stock, 2 delete transactions, 3 delete lines, 4 delete
// header. The header goes last so a partial failure leaves the document visible.
func (s *Service) Delete(ctx context.Context, businessID string, docID id.ID) (*Result, error) {
	if err := requireBusiness(businessID); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "document.delete",
		trace.WithAttributes(
			attribute.String("business.id", businessID),
			attribute.String("document.id", docID.String()),
		))
	defer span.End()

	var res *Result
	err := s.withBusinessLock(ctx, businessID, func(ctx context.Context) error {
		doc, err := s.load(ctx, businessID, docID)
		if err != nil {
			return err
		}

		sg, err := beginSaga(ctx, s.intents, OpDelete, businessID, &doc.ID)
		if err != nil {
			return err
		}
		res = &Result{Document: doc, Operation: sg.log}

		err = s.runDelete(ctx, sg, doc, res)
		sg.finish(ctx, err)
		return err
	})
	if err != nil {
		span.RecordError(err)
	}
	return res, err
}

func (s *Service) runDelete(ctx context.Context, sg *saga, doc *Document, res *Result) error {
	reversed, err := s.stockStep(ctx, sg, 1, "reverse_stock", doc.Kind.Direction().Reverse(), doc.LineItems)
	res.Reversed = reversed
	if err != nil {
		return err
	}

	if err := sg.step(ctx, 2, "delete_transactions", "transaction", func(ctx context.Context, st *Step) error {
		n, err := s.ledger.RemoveForDocument(ctx, doc.BusinessID, doc.ID)
		st.Detail = map[string]any{"deleted": n}
		return err
	}); err != nil {
		return err
	}

	if err := sg.step(ctx, 3, "delete_lines", "line_item", func(ctx context.Context, _ *Step) error {
		return s.repo.DeleteLines(ctx, doc.BusinessID, doc.ID)
	}); err != nil {
		return err
	}

	return sg.step(ctx, 4, "delete_header", "document", func(ctx context.Context, _ *Step) error {
		return s.repo.DeleteHeader(ctx, doc.BusinessID, doc.ID)
	})
}

// RecordPayment writes one transaction against a document and re-derives
// its status from the full transaction set.
//
// Steps: 1 insert transaction, 2 read settlement, 3 update header.
func (s *Service) RecordPayment(ctx context.Context, businessID string, docID id.ID, in PaymentInput) (*Result, error) {
	if err := requireBusiness(businessID); err != nil {
		return nil, err
	}
	if !in.Amount.IsPositive() {
		return nil, apperror.NewValidation("amount must be positive").WithDetail("field", "amount")
	}

	var res *Result
	err := s.withBusinessLock(ctx, businessID, func(ctx context.Context) error {
		doc, err := s.load(ctx, businessID, docID)
		if err != nil {
			return err
		}

		sg, err := beginSaga(ctx, s.intents, OpRecordPayment, businessID, &doc.ID)
		if err != nil {
			return err
		}
		res = &Result{Document: doc, Operation: sg.log}

		txn := settlementFor(doc, in.Amount, in.Mode, in.Date, in.Description)
		err = sg.step(ctx, 1, "insert_settlement", "transaction", func(ctx context.Context, st *Step) error {
			st.Detail = map[string]any{"transaction_id": txn.ID.String(), "amount": in.Amount.String()}
			return s.ledger.Insert(ctx, txn)
		})
		if err == nil {
			res.Transaction = txn
			err = s.resettle(ctx, sg, doc, 2)
		}
		sg.finish(ctx, err)
		return err
	})
	return res, err
}

// DeletePayment removes one of a document's transactions and re-derives its status.
//
// Steps: 1 delete transaction, 2 read settlement, 3 update header.
func (s *Service) DeletePayment(ctx context.Context, businessID string, docID, txnID id.ID) (*Result, error) {
	if err := requireBusiness(businessID); err != nil {
		return nil, err
	}

	var res *Result
	err := s.withBusinessLock(ctx, businessID, func(ctx context.Context) error {
		doc, err := s.load(ctx, businessID, docID)
		if err != nil {
			return err
		}
		txn, err := s.ledger.Get(ctx, businessID, txnID)
		if err != nil {
			return err
		}
		if txn.DocumentID == nil || *txn.DocumentID != doc.ID {
			return apperror.NewNotFound("transaction", txnID.String()).
				WithDetail("document_id", doc.ID.String())
		}

		sg, err := beginSaga(ctx, s.intents, OpDeletePayment, businessID, &doc.ID)
		if err != nil {
			return err
		}
		res = &Result{Document: doc, Transaction: txn, Operation: sg.log}

		err = sg.step(ctx, 1, "delete_settlement", "transaction", func(ctx context.Context, st *Step) error {
			st.Detail = map[string]any{"transaction_id": txn.ID.String()}
			return s.ledger.Remove(ctx, businessID, txn.ID)
		})
		if err == nil {
			err = s.resettle(ctx, sg, doc, 2)
		}
		sg.finish(ctx, err)
		return err
	})
	return res, err
}

// resettle re-reads the settled amount and rewrites the header status
// as steps first and first+1.
func (s *Service) resettle(ctx context.Context, sg *saga, doc *Document, first int) error {
	var settled types.Money
	if err := sg.step(ctx, first, "read_settlement", "transaction", func(ctx context.Context, st *Step) error {
		var err error
		settled, err = s.ledger.NetSettled(ctx, doc.BusinessID, doc.ID, doc.Kind.SettlingType())
		st.Detail = map[string]any{"net_settled": settled.String()}
		return err
	}); err != nil {
		return err
	}

	previous := doc.Status
	doc.Status, doc.BalanceAmount = ResolveStatus(doc.TotalAmount, settled)

	if err := sg.step(ctx, first+1, "update_header", "document", func(ctx context.Context, _ *Step) error {
		return s.repo.UpdateHeader(ctx, doc)
	}); err != nil {
		return err
	}

	if previous != doc.Status {
		logger.Info(ctx, "document status changed",
			"document_id", doc.ID.String(),
			"from", previous,
			"to", doc.Status,
		)
	}
	return nil
}

// stockStep runs the reconciler as one saga step. On failure the items
// already written and skipped are attached to the error.
func (s *Service) stockStep(ctx context.Context, sg *saga, index int, name string, dir stock.Direction, lines []LineItem) (*stock.Result, error) {
	var result stock.Result
	err := sg.step(ctx, index, name, "item", func(ctx context.Context, st *Step) error {
		var err error
		result, err = s.reconciler.ApplyDelta(ctx, sg.log.BusinessID, stockLines(lines), dir)
		st.Detail = map[string]any{"direction": dir.String()}
		if len(result.Applied) > 0 {
			st.Detail["applied_items"] = result.AppliedIDs()
		}
		if len(result.Skipped) > 0 {
			skipped := make([]string, len(result.Skipped))
			for i, itemID := range result.Skipped {
				skipped[i] = itemID.String()
			}
			st.Detail["skipped_items"] = skipped
		}
		return err
	})
	return &result, err
}

// settlementFor builds a transaction that settles doc.
func settlementFor(doc *Document, amount types.Money, mode string, date time.Time, description string) *settlement.Transaction {
	if date.IsZero() {
		date = doc.Date
	}
	txn := settlement.NewTransaction(doc.BusinessID, doc.Kind.SettlingType(), amount, mode, date)
	txn.DocumentID = &doc.ID
	txn.PartyID = doc.PartyID
	txn.Description = description
	if txn.Description == "" && doc.Number != "" {
		txn.Description = doc.Number
	}
	return txn
}

// load reads a header with its stored line items.
func (s *Service) load(ctx context.Context, businessID string, docID id.ID) (*Document, error) {
	doc, err := s.repo.GetHeader(ctx, businessID, docID)
	if err != nil {
		return nil, err
	}
	lines, err := s.repo.GetLines(ctx, businessID, docID)
	if err != nil {
		return nil, fmt.Errorf("load line items: %w", err)
	}
	doc.LineItems = lines
	return doc, nil
}

// Get retrieves a document with its line items.
func (s *Service) Get(ctx context.Context, businessID string, docID id.ID) (*Document, error) {
	if err := requireBusiness(businessID); err != nil {
		return nil, err
	}
	return s.load(ctx, businessID, docID)
}

// Transactions lists the transactions settling a document.
func (s *Service) Transactions(ctx context.Context, businessID string, docID id.ID) ([]*settlement.Transaction, error) {
	if _, err := s.repo.GetHeader(ctx, businessID, docID); err != nil {
		return nil, err
	}
	return s.ledger.ForDocument(ctx, businessID, docID)
}

// List retrieves document headers.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Document], error) {
	if err := requireBusiness(filter.BusinessID); err != nil {
		return domain.ListResult[*Document]{}, err
	}
	return s.repo.List(ctx, filter)
}
