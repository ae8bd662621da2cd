package commercial_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerbook/internal/core/apperror"
	"ledgerbook/internal/core/id"
	"ledgerbook/internal/core/lock"
	"ledgerbook/internal/core/types"
	"ledgerbook/internal/domain"
	"ledgerbook/internal/domain/catalogs/item"
	"ledgerbook/internal/domain/documents/commercial"
	"ledgerbook/internal/domain/registers/settlement"
	"ledgerbook/internal/domain/registers/stock"
	"ledgerbook/internal/infrastructure/storage/memstore"
)

const biz = "biz-1"

var (
	docDate = time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC)
	errBoom = errors.New("store unavailable")
)

// faultyDocs fails the named document repository call.
type faultyDocs struct {
	*memstore.DocumentRepo
	failOn string
}

func (f *faultyDocs) InsertLines(ctx context.Context, businessID string, docID id.ID, lines []commercial.LineItem) error {
	if f.failOn == "InsertLines" {
		return errBoom
	}
	return f.DocumentRepo.InsertLines(ctx, businessID, docID, lines)
}

func (f *faultyDocs) DeleteLines(ctx context.Context, businessID string, docID id.ID) error {
	if f.failOn == "DeleteLines" {
		return errBoom
	}
	return f.DocumentRepo.DeleteLines(ctx, businessID, docID)
}

func (f *faultyDocs) UpdateHeader(ctx context.Context, doc *commercial.Document) error {
	if f.failOn == "UpdateHeader" {
		return errBoom
	}
	return f.DocumentRepo.UpdateHeader(ctx, doc)
}

// faultyItems fails stock writes for one item.
type faultyItems struct {
	*memstore.ItemRepo
	failItem *id.ID
}

func (f *faultyItems) WriteStock(ctx context.Context, businessID string, itemID id.ID, q types.Quantity, v int) error {
	if f.failItem != nil && *f.failItem == itemID {
		return errBoom
	}
	return f.ItemRepo.WriteStock(ctx, businessID, itemID, q, v)
}

type faultyIntents struct {
	*memstore.IntentRepo
	failBegin bool
}

func (f *faultyIntents) Begin(ctx context.Context, log *commercial.OperationLog) error {
	if f.failBegin {
		return errBoom
	}
	return f.IntentRepo.Begin(ctx, log)
}

type busyLocker struct{}

func (busyLocker) Lock(context.Context, string) (func(), error) {
	return nil, context.DeadlineExceeded
}

type fixture struct {
	store   *memstore.Store
	docs    *faultyDocs
	items   *faultyItems
	intents *faultyIntents
	ledger  *settlement.Ledger
	svc     *commercial.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()
	f := &fixture{
		store:   store,
		docs:    &faultyDocs{DocumentRepo: store.Documents()},
		items:   &faultyItems{ItemRepo: store.Items()},
		intents: &faultyIntents{IntentRepo: store.Intents()},
		ledger:  settlement.NewLedger(store.Transactions()),
	}
	f.svc = commercial.NewService(
		f.docs,
		f.ledger,
		stock.NewReconciler(f.items),
		f.intents,
		lock.NewKeyedMutex(),
		store.Sequences(),
	)
	return f
}

func (f *fixture) newItem(t *testing.T, name string, qty int64) *item.Item {
	t.Helper()
	it := item.NewItem(biz, name, types.NewQuantityFromInt(qty))
	require.NoError(t, f.store.Items().Create(context.Background(), it))
	return it
}

func (f *fixture) stockOf(t *testing.T, it *item.Item) types.Quantity {
	t.Helper()
	got, err := f.store.Items().GetByID(context.Background(), biz, it.ID)
	require.NoError(t, err)
	return got.StockQuantity
}

func (f *fixture) transactions(t *testing.T, docID id.ID) []*settlement.Transaction {
	t.Helper()
	txns, err := f.ledger.ForDocument(context.Background(), biz, docID)
	require.NoError(t, err)
	return txns
}

func saleInput(it *item.Item, qty int64, settle string) commercial.CreateInput {
	in := commercial.CreateInput{
		Header: commercial.Header{Kind: commercial.KindSale, Date: docDate},
		Lines: []commercial.LineInput{{
			ItemID:     &it.ID,
			Quantity:   types.NewQuantityFromInt(qty),
			Rate:       types.MustMoney("50"),
			TaxPercent: types.MustMoney("10"),
		}},
	}
	if settle != "" {
		in.Settlement = &commercial.SettlementProposal{Amount: types.MustMoney(settle), Mode: "cash"}
	}
	return in
}

func editInput(it *item.Item, qty int64) commercial.UpdateInput {
	return commercial.UpdateInput{
		Header: commercial.Header{Kind: commercial.KindSale, Date: docDate},
		Lines: []commercial.LineInput{{
			ItemID:     &it.ID,
			Quantity:   types.NewQuantityFromInt(qty),
			Rate:       types.MustMoney("50"),
			TaxPercent: types.MustMoney("10"),
		}},
	}
}

func requireMoney(t *testing.T, want string, got types.Money) {
	t.Helper()
	require.Truef(t, types.MustMoney(want).Equal(got), "want %s, got %s", want, got.String())
}

func stepIndexes(log *commercial.OperationLog) []int {
	out := make([]int, 0, len(log.Steps))
	for _, s := range log.Steps {
		out = append(out, s.Index)
	}
	return out
}

func TestCreate_PaidSale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	widget := f.newItem(t, "Widget", 10)

	res, err := f.svc.Create(ctx, biz, saleInput(widget, 2, "110"))
	require.NoError(t, err)

	doc := res.Document
	requireMoney(t, "100", doc.Subtotal)
	requireMoney(t, "10", doc.TaxAmount)
	requireMoney(t, "110", doc.TotalAmount)
	requireMoney(t, "0", doc.BalanceAmount)
	assert.Equal(t, commercial.StatusPaid, doc.Status)
	assert.Equal(t, "INV-2026-00001", doc.Number)

	assert.Equal(t, types.NewQuantityFromInt(8), f.stockOf(t, widget))

	txns := f.transactions(t, doc.ID)
	require.Len(t, txns, 1)
	assert.Equal(t, settlement.Receipt, txns[0].Type)
	assert.Equal(t, settlement.ModeCash, txns[0].Mode)
	requireMoney(t, "110", txns[0].Amount)

	assert.Equal(t, []int{3, 4, 5, 6}, stepIndexes(res.Operation))
	stored, err := f.store.Intents().Get(ctx, res.Operation.ID)
	require.NoError(t, err)
	assert.Equal(t, commercial.IntentCompleted, stored.Status)
	assert.NotNil(t, stored.FinishedAt)
}

func TestCreate_PartialSettlement(t *testing.T) {
	f := newFixture(t)
	widget := f.newItem(t, "Widget", 10)

	res, err := f.svc.Create(context.Background(), biz, saleInput(widget, 2, "50"))
	require.NoError(t, err)

	assert.Equal(t, commercial.StatusPartial, res.Document.Status)
	requireMoney(t, "60", res.Document.BalanceAmount)
}

func TestCreate_SettlementCappedAtTotal(t *testing.T) {
	f := newFixture(t)
	widget := f.newItem(t, "Widget", 10)

	res, err := f.svc.Create(context.Background(), biz, saleInput(widget, 2, "500"))
	require.NoError(t, err)

	assert.Equal(t, commercial.StatusPaid, res.Document.Status)
	require.NotNil(t, res.Transaction)
	requireMoney(t, "110", res.Transaction.Amount)
}

func TestCreate_NoSettlementSkipsStep(t *testing.T) {
	f := newFixture(t)
	widget := f.newItem(t, "Widget", 10)

	res, err := f.svc.Create(context.Background(), biz, saleInput(widget, 2, "0"))
	require.NoError(t, err)

	assert.Equal(t, commercial.StatusUnpaid, res.Document.Status)
	assert.Nil(t, res.Transaction)
	assert.Equal(t, []int{3, 4, 6}, stepIndexes(res.Operation))
	assert.Empty(t, f.transactions(t, res.Document.ID))
}

func TestCreate_Purchase(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bolt := f.newItem(t, "Bolt", 5)
	supplier := id.New()

	res, err := f.svc.Create(ctx, biz, commercial.CreateInput{
		Header: commercial.Header{Kind: commercial.KindPurchase, PartyID: &supplier, Date: docDate},
		Lines: []commercial.LineInput{
			{ItemID: &bolt.ID, Quantity: types.NewQuantityFromInt(20), Rate: types.MustMoney("2")},
			{Description: "Freight", Quantity: types.NewQuantityFromInt(1), Rate: types.MustMoney("15")},
		},
		Settlement: &commercial.SettlementProposal{Amount: types.MustMoney("30"), Mode: "bank"},
	})
	require.NoError(t, err)

	assert.Equal(t, "BILL-2026-00001", res.Document.Number)
	requireMoney(t, "55", res.Document.TotalAmount)
	assert.Equal(t, commercial.StatusPartial, res.Document.Status)
	assert.Equal(t, types.NewQuantityFromInt(25), f.stockOf(t, bolt))
	assert.Len(t, res.Applied.Applied, 1, "free-text line has no stock effect")

	require.NotNil(t, res.Transaction)
	assert.Equal(t, settlement.Payment, res.Transaction.Type)
	assert.Equal(t, settlement.ModeBank, res.Transaction.Mode)
	assert.Equal(t, &supplier, res.Transaction.PartyID)
}

func TestCreate_ValidationFailsBeforeAnyWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	widget := f.newItem(t, "Widget", 10)

	tests := []struct {
		name string
		in   commercial.CreateInput
	}{
		{"no lines", commercial.CreateInput{Header: commercial.Header{Kind: commercial.KindSale, Date: docDate}}},
		{"purchase without supplier", func() commercial.CreateInput {
			in := saleInput(widget, 1, "")
			in.Header.Kind = commercial.KindPurchase
			return in
		}()},
		{"zero quantity", saleInput(widget, 0, "")},
		{"unknown kind", func() commercial.CreateInput {
			in := saleInput(widget, 1, "")
			in.Header.Kind = "REFUND"
			return in
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, biz, tt.in)
			require.Error(t, err)
			assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
		})
	}

	list, err := f.svc.List(ctx, commercial.ListFilter{ListFilter: listAll()})
	require.NoError(t, err)
	assert.Empty(t, list.Items)
	assert.Equal(t, types.NewQuantityFromInt(10), f.stockOf(t, widget))
}

func TestCreate_MissingItemIsSkipped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	widget := f.newItem(t, "Widget", 10)
	require.NoError(t, f.store.Items().Delete(ctx, biz, widget.ID))

	res, err := f.svc.Create(ctx, biz, saleInput(widget, 2, ""))
	require.NoError(t, err)
	assert.Equal(t, []id.ID{widget.ID}, res.Applied.Skipped)
	assert.Empty(t, res.Applied.Applied)
}

func TestCreate_LineWriteFailureLeavesHeader(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	widget := f.newItem(t, "Widget", 10)
	f.docs.failOn = "InsertLines"

	res, err := f.svc.Create(ctx, biz, saleInput(widget, 2, "110"))
	require.Error(t, err)
	require.True(t, apperror.IsStoreWriteFailure(err))
	assert.ErrorIs(t, err, errBoom)

	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, 4, appErr.Details["step"])
	assert.Equal(t, "line_item", appErr.Details["entity"])
	assert.Equal(t, []string{"insert_header"}, appErr.Details["committed_steps"])

	// orphaned header is visible, nothing after step 3 happened
	_, err = f.docs.GetHeader(ctx, biz, res.Document.ID)
	assert.NoError(t, err)
	assert.Empty(t, f.transactions(t, res.Document.ID))
	assert.Equal(t, types.NewQuantityFromInt(10), f.stockOf(t, widget))

	stored, err := f.store.Intents().Get(ctx, res.Operation.ID)
	require.NoError(t, err)
	assert.Equal(t, commercial.IntentFailed, stored.Status)
	require.NotNil(t, stored.FailedStep())
	assert.Equal(t, 4, stored.FailedStep().Index)
}

func TestCreate_StockFailureReportsAppliedItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.newItem(t, "First", 10)
	second := f.newItem(t, "Second", 10)
	f.items.failItem = &second.ID

	in := saleInput(first, 1, "")
	in.Lines = append(in.Lines, commercial.LineInput{
		ItemID: &second.ID, Quantity: types.NewQuantityFromInt(1), Rate: types.MustMoney("5"),
	})

	_, err := f.svc.Create(ctx, biz, in)
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeStoreWrite, appErr.Code)
	assert.Equal(t, 6, appErr.Details["step"])
	assert.Equal(t, []string{first.ID.String()}, appErr.Details["applied_items"])

	// applied writes are not rolled back
	assert.Equal(t, types.NewQuantityFromInt(9), f.stockOf(t, first))
	assert.Equal(t, types.NewQuantityFromInt(10), f.stockOf(t, second))
}

func TestCreate_IntentFailureWritesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	widget := f.newItem(t, "Widget", 10)
	f.intents.failBegin = true

	_, err := f.svc.Create(ctx, biz, saleInput(widget, 2, "110"))
	require.Error(t, err)
	assert.True(t, apperror.IsStoreWriteFailure(err))

	list, err := f.svc.List(ctx, commercial.ListFilter{ListFilter: listAll()})
	require.NoError(t, err)
	assert.Empty(t, list.Items)
	assert.Equal(t, types.NewQuantityFromInt(10), f.stockOf(t, widget))
}

func TestCreate_BusinessBusy(t *testing.T) {
	store := memstore.New()
	svc := commercial.NewService(
		store.Documents(),
		settlement.NewLedger(store.Transactions()),
		stock.NewReconciler(store.Items()),
		store.Intents(),
		busyLocker{},
		nil,
	)
	it := item.NewItem(biz, "Widget", types.NewQuantityFromInt(1))

	_, err := svc.Create(context.Background(), biz, saleInput(it, 1, ""))
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeBusinessBusy))
}

func TestCreate_BusinessBusyAfterLockWait(t *testing.T) {
	store := memstore.New()
	locker := lock.NewKeyedMutex(lock.WithWait(20 * time.Millisecond))
	svc := commercial.NewService(
		store.Documents(),
		settlement.NewLedger(store.Transactions()),
		stock.NewReconciler(store.Items()),
		store.Intents(),
		locker,
		store.Sequences(),
	)
	it := item.NewItem(biz, "Widget", types.NewQuantityFromInt(5))
	require.NoError(t, store.Items().Create(context.Background(), it))

	release, err := locker.Lock(context.Background(), lock.BusinessKey(biz))
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), biz, saleInput(it, 1, ""))
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeBusinessBusy))

	release()
	_, err = svc.Create(context.Background(), biz, saleInput(it, 1, ""))
	require.NoError(t, err)
}

func TestUpdate_EditQuantity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	widget := f.newItem(t, "Widget", 10)

	created, err := f.svc.Create(ctx, biz, saleInput(widget, 2, "110"))
	require.NoError(t, err)
	docID := created.Document.ID

	before, err := f.ledger.NetSettled(ctx, biz, docID, settlement.Receipt)
	require.NoError(t, err)

	res, err := f.svc.Update(ctx, biz, docID, editInput(widget, 4))
	require.NoError(t, err)

	doc := res.Document
	requireMoney(t, "220", doc.TotalAmount)
	assert.Equal(t, commercial.StatusPartial, doc.Status)
	requireMoney(t, "110", doc.BalanceAmount)
	assert.Equal(t, created.Document.Number, doc.Number)
	assert.Equal(t, 2, doc.Version)

	require.Len(t, res.Reversed.Applied, 1)
	assert.Equal(t, types.NewQuantityFromInt(2), res.Reversed.Applied[0].Delta)
	assert.Equal(t, types.NewQuantityFromInt(6), f.stockOf(t, widget))

	after, err := f.ledger.NetSettled(ctx, biz, docID, settlement.Receipt)
	require.NoError(t, err)
	assert.True(t, before.Equal(after), "editing lines never changes settlement")
	assert.Len(t, f.transactions(t, docID), 1)

	assert.Equal(t, []int{1, 2, 4, 5, 6, 7}, stepIndexes(res.Operation))

	got, err := f.svc.Get(ctx, biz, docID)
	require.NoError(t, err)
	require.Len(t, got.LineItems, 1)
	assert.Equal(t, types.NewQuantityFromInt(4), got.LineItems[0].Quantity)
}

func TestUpdate_SwapItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.newItem(t, "A", 10)
	b := f.newItem(t, "B", 10)

	created, err := f.svc.Create(ctx, biz, saleInput(a, 3, ""))
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, biz, created.Document.ID, editInput(b, 5))
	require.NoError(t, err)

	assert.Equal(t, types.NewQuantityFromInt(10), f.stockOf(t, a))
	assert.Equal(t, types.NewQuantityFromInt(5), f.stockOf(t, b))
}

func TestCreate_DuplicateNumberAllowed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	widget := f.newItem(t, "Widget", 10)

	in := saleInput(widget, 1, "")
	in.Header.Number = "A-1"

	first, err := f.svc.Create(ctx, biz, in)
	require.NoError(t, err)
	second, err := f.svc.Create(ctx, biz, in)
	require.NoError(t, err)

	assert.NotEqual(t, first.Document.ID, second.Document.ID)
	assert.Equal(t, "A-1", first.Document.Number)
	assert.Equal(t, "A-1", second.Document.Number)
	assert.Equal(t, commercial.IntentCompleted, second.Operation.Status)
	assert.Equal(t, types.NewQuantityFromInt(8), f.stockOf(t, widget))
}

func TestUpdate_NumberOfAnotherDocument(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	widget := f.newItem(t, "Widget", 10)

	in := saleInput(widget, 1, "")
	in.Header.Number = "A-1"
	_, err := f.svc.Create(ctx, biz, in)
	require.NoError(t, err)

	other, err := f.svc.Create(ctx, biz, saleInput(widget, 2, ""))
	require.NoError(t, err)

	edit := editInput(widget, 3)
	edit.Header.Number = "A-1"
	res, err := f.svc.Update(ctx, biz, other.Document.ID, edit)
	require.NoError(t, err)
	assert.Equal(t, "A-1", res.Document.Number)

	got, err := f.svc.Get(ctx, biz, other.Document.ID)
	require.NoError(t, err)
	require.Len(t, got.LineItems, 1)
	assert.Equal(t, types.NewQuantityFromInt(3), got.LineItems[0].Quantity)
	assert.Equal(t, types.NewQuantityFromInt(6), f.stockOf(t, widget))
}

func TestUpdate_RejectedBeforeWrites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	widget := f.newItem(t, "Widget", 10)

	created, err := f.svc.Create(ctx, biz, saleInput(widget, 2, ""))
	require.NoError(t, err)
	docID := created.Document.ID

	t.Run("kind change", func(t *testing.T) {
		in := editInput(widget, 4)
		in.Header.Kind = commercial.KindPurchase
		_, err := f.svc.Update(ctx, biz, docID, in)
		assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	})

	t.Run("stale version", func(t *testing.T) {
		in := editInput(widget, 4)
		in.ExpectedVersion = 7
		_, err := f.svc.Update(ctx, biz, docID, in)
		assert.True(t, apperror.IsConcurrentModification(err))
	})

	t.Run("unknown document", func(t *testing.T) {
		_, err := f.svc.Update(ctx, biz, id.New(), editInput(widget, 4))
		assert.True(t, apperror.IsNotFound(err))
	})

	assert.Equal(t, types.NewQuantityFromInt(8), f.stockOf(t, widget))
}

func TestUpdate_LineDeleteFailureAfterReverse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	widget := f.newItem(t, "Widget", 10)

	created, err := f.svc.Create(ctx, biz, saleInput(widget, 2, ""))
	require.NoError(t, err)
	f.docs.failOn = "DeleteLines"

	res, err := f.svc.Update(ctx, biz, created.Document.ID, editInput(widget, 4))
	require.Error(t, err)

	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, 2, appErr.Details["step"])
	assert.Equal(t, []string{"reverse_stock"}, res.Operation.CommittedSteps())
	assert.Equal(t, types.NewQuantityFromInt(10), f.stockOf(t, widget))
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	widget := f.newItem(t, "Widget", 10)

	created, err := f.svc.Create(ctx, biz, saleInput(widget, 2, "110"))
	require.NoError(t, err)
	docID := created.Document.ID
	_, err = f.svc.Update(ctx, biz, docID, editInput(widget, 4))
	require.NoError(t, err)
	require.Equal(t, types.NewQuantityFromInt(6), f.stockOf(t, widget))

	res, err := f.svc.Delete(ctx, biz, docID)
	require.NoError(t, err)

	assert.Equal(t, types.NewQuantityFromInt(10), f.stockOf(t, widget))
	assert.Empty(t, f.transactions(t, docID))
	assert.Equal(t, []int{1, 2, 3, 4}, stepIndexes(res.Operation))

	_, err = f.svc.Get(ctx, biz, docID)
	assert.True(t, apperror.IsNotFound(err))

	balances, err := f.ledger.Balances(ctx, biz)
	require.NoError(t, err)
	assert.Empty(t, balances)
}

func TestDelete_FailureLeavesHeaderVisible(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	widget := f.newItem(t, "Widget", 10)

	created, err := f.svc.Create(ctx, biz, saleInput(widget, 2, "110"))
	require.NoError(t, err)
	docID := created.Document.ID
	f.docs.failOn = "DeleteLines"

	_, err = f.svc.Delete(ctx, biz, docID)
	require.Error(t, err)
	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, 3, appErr.Details["step"])
	assert.Equal(t, []string{"reverse_stock", "delete_transactions"}, appErr.Details["committed_steps"])

	got, err := f.svc.Get(ctx, biz, docID)
	require.NoError(t, err, "header is deleted last")
	assert.Len(t, got.LineItems, 1)
	assert.Empty(t, f.transactions(t, docID))
}

func TestRecordAndDeletePayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	widget := f.newItem(t, "Widget", 10)

	created, err := f.svc.Create(ctx, biz, saleInput(widget, 2, "50"))
	require.NoError(t, err)
	docID := created.Document.ID

	paid, err := f.svc.RecordPayment(ctx, biz, docID, commercial.PaymentInput{
		Amount: types.MustMoney("60"),
		Mode:   "BANK",
	})
	require.NoError(t, err)
	assert.Equal(t, commercial.StatusPaid, paid.Document.Status)
	requireMoney(t, "0", paid.Document.BalanceAmount)
	assert.Equal(t, []int{1, 2, 3}, stepIndexes(paid.Operation))

	cash, err := f.ledger.Balance(ctx, biz, "cash")
	require.NoError(t, err)
	requireMoney(t, "50", cash)
	bank, err := f.ledger.Balance(ctx, biz, "bank")
	require.NoError(t, err)
	requireMoney(t, "60", bank)

	res, err := f.svc.DeletePayment(ctx, biz, docID, paid.Transaction.ID)
	require.NoError(t, err)
	assert.Equal(t, commercial.StatusPartial, res.Document.Status)
	requireMoney(t, "60", res.Document.BalanceAmount)

	stored, err := f.svc.Get(ctx, biz, docID)
	require.NoError(t, err)
	assert.Equal(t, commercial.StatusPartial, stored.Status)
}

func TestRecordPayment_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	widget := f.newItem(t, "Widget", 10)
	created, err := f.svc.Create(ctx, biz, saleInput(widget, 2, ""))
	require.NoError(t, err)

	_, err = f.svc.RecordPayment(ctx, biz, created.Document.ID, commercial.PaymentInput{Amount: types.MustMoney("0")})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = f.svc.DeletePayment(ctx, biz, created.Document.ID, id.New())
	assert.True(t, apperror.IsNotFound(err))
}

func TestPreview_WritesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	widget := f.newItem(t, "Widget", 10)

	p, err := f.svc.Preview(ctx, biz, saleInput(widget, 2, "50"))
	require.NoError(t, err)

	requireMoney(t, "110", p.Totals.TotalAmount)
	assert.Equal(t, commercial.StatusPartial, p.Status)
	requireMoney(t, "60", p.BalanceAmount)

	assert.Equal(t, types.NewQuantityFromInt(10), f.stockOf(t, widget))
	list, err := f.svc.List(ctx, commercial.ListFilter{ListFilter: listAll()})
	require.NoError(t, err)
	assert.Empty(t, list.Items)
}

func TestList_Filters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	widget := f.newItem(t, "Widget", 100)

	_, err := f.svc.Create(ctx, biz, saleInput(widget, 1, "55"))
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, biz, saleInput(widget, 1, ""))
	require.NoError(t, err)

	paid := commercial.StatusPaid
	list, err := f.svc.List(ctx, commercial.ListFilter{ListFilter: listAll(), Status: &paid})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "INV-2026-00001", list.Items[0].Number)

	list, err = f.svc.List(ctx, commercial.ListFilter{ListFilter: listAll()})
	require.NoError(t, err)
	assert.Equal(t, int64(2), list.TotalCount)

	_, err = f.svc.List(ctx, commercial.ListFilter{})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func listAll() domain.ListFilter {
	return domain.DefaultListFilter(biz)
}
