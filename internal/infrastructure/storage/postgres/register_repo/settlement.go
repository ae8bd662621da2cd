// Package register_repo stores the settlement ledger.
package register_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"ledgerbook/internal/core/apperror"
	"ledgerbook/internal/core/id"
	"ledgerbook/internal/domain"
	"ledgerbook/internal/domain/registers/settlement"
	"ledgerbook/internal/infrastructure/storage/postgres"
)

const transactionsTable = "reg_transactions"

// TransactionRepo implements settlement.Repository.
type TransactionRepo struct {
	table *postgres.Table[*settlement.Transaction]
}

var _ settlement.Repository = (*TransactionRepo)(nil)

// NewTransactionRepo creates the transaction repository.
func NewTransactionRepo(txm *postgres.TxManager) *TransactionRepo {
	return &TransactionRepo{table: &postgres.Table[*settlement.Transaction]{
		TxManager:    txm,
		Name:         transactionsTable,
		Cols:         postgres.ExtractDBColumns[settlement.Transaction](),
		Entity:       "transaction",
		DefaultOrder: "date DESC",
	}}
}

// Insert implements settlement.Repository.
func (r *TransactionRepo) Insert(ctx context.Context, txn *settlement.Transaction) error {
	return r.table.Insert(ctx, txn)
}

// GetByID implements settlement.Repository.
func (r *TransactionRepo) GetByID(ctx context.Context, businessID string, txnID id.ID) (*settlement.Transaction, error) {
	txn := &settlement.Transaction{}
	q := r.table.Select(businessID).Where(squirrel.Eq{"id": txnID})
	if err := r.table.GetOne(ctx, txn, q, txnID.String()); err != nil {
		return nil, err
	}
	return txn, nil
}

// Delete implements settlement.Repository.
func (r *TransactionRepo) Delete(ctx context.Context, businessID string, txnID id.ID) error {
	n, err := r.table.DeleteWhere(ctx, businessID, squirrel.Eq{"id": txnID})
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NewNotFound("transaction", txnID.String())
	}
	return nil
}

// DeleteByDocument implements settlement.Repository.
func (r *TransactionRepo) DeleteByDocument(ctx context.Context, businessID string, documentID id.ID) (int64, error) {
	return r.table.DeleteWhere(ctx, businessID, squirrel.Eq{"document_id": documentID})
}

// ListByDocument implements settlement.Repository.
func (r *TransactionRepo) ListByDocument(ctx context.Context, businessID string, documentID id.ID) ([]*settlement.Transaction, error) {
	q := r.table.Select(businessID).
		Where(squirrel.Eq{"document_id": documentID}).
		OrderBy("date", "created_at")
	return r.table.SelectAll(ctx, q)
}

// ListByMode implements settlement.Repository.
func (r *TransactionRepo) ListByMode(ctx context.Context, businessID string, mode *string) ([]*settlement.Transaction, error) {
	q := r.table.Select(businessID)
	if mode != nil {
		q = q.Where(squirrel.Eq{"mode": settlement.NormalizeMode(*mode)})
	}
	return r.table.SelectAll(ctx, q.OrderBy("date", "created_at"))
}

// List implements settlement.Repository.
func (r *TransactionRepo) List(ctx context.Context, filter settlement.ListFilter) (domain.ListResult[*settlement.Transaction], error) {
	return r.table.Page(ctx, buildTransactionQuery(r.table.Select(filter.BusinessID), filter), filter.ListFilter)
}

func buildTransactionQuery(q squirrel.SelectBuilder, filter settlement.ListFilter) squirrel.SelectBuilder {
	if filter.DocumentID != nil {
		q = q.Where(squirrel.Eq{"document_id": *filter.DocumentID})
	}
	if filter.Unlinked {
		q = q.Where(squirrel.Eq{"document_id": nil})
	}
	if filter.PartyID != nil {
		q = q.Where(squirrel.Eq{"party_id": *filter.PartyID})
	}
	if filter.Mode != nil {
		q = q.Where(squirrel.Eq{"mode": settlement.NormalizeMode(*filter.Mode)})
	}
	if filter.Type != nil {
		q = q.Where(squirrel.Eq{"type": *filter.Type})
	}
	if filter.Search != "" {
		q = q.Where(squirrel.ILike{"description": "%" + filter.Search + "%"})
	}
	return postgres.DateRange(q, "date", filter.ListFilter)
}
