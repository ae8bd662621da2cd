package postgres

import (
	"context"
	"fmt"
)

// maxParams is PostgreSQL's bind parameter limit per statement.
const maxParams = 65535

// BatchInserter writes many rows with multi-row INSERT statements.
type BatchInserter struct {
	txManager *TxManager
}

// NewBatchInserter creates a batch inserter.
func NewBatchInserter(txManager *TxManager) *BatchInserter {
	return &BatchInserter{txManager: txManager}
}

// InsertRows inserts rows into table, splitting them so no statement
// exceeds the parameter limit. Each row matches columns.
func (b *BatchInserter) InsertRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 || len(columns) == 0 {
		return 0, nil
	}

	chunk := maxParams / len(columns)
	var written int64
	for start := 0; start < len(rows); start += chunk {
		end := min(start+chunk, len(rows))

		q := Builder().Insert(table).Columns(columns...)
		for _, row := range rows[start:end] {
			if len(row) != len(columns) {
				return written, fmt.Errorf("insert into %s: row has %d values for %d columns", table, len(row), len(columns))
			}
			q = q.Values(row...)
		}

		sql, args, err := q.ToSql()
		if err != nil {
			return written, fmt.Errorf("build insert: %w", err)
		}
		tag, err := b.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
		if err != nil {
			return written, fmt.Errorf("insert into %s: %w", table, err)
		}
		written += tag.RowsAffected()
	}
	return written, nil
}

// StructRows projects structs onto columns using their db tags.
func StructRows[T any](items []T, columns []string) [][]any {
	rows := make([][]any, len(items))
	for i := range items {
		data := StructToMap(&items[i])
		row := make([]any, len(columns))
		for j, col := range columns {
			row[j] = data[col]
		}
		rows[i] = row
	}
	return rows
}
