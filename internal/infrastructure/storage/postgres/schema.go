package postgres

import (
	"context"
	_ "embed"
	"fmt"

	"ledgerbook/pkg/logger"
)

//go:embed schema.sql
var schemaSQL string

// EnsureSchema creates missing tables and indexes. Safe to run repeatedly.
func EnsureSchema(ctx context.Context, txm *TxManager) error {
	err := txm.RunInTransaction(ctx, func(ctx context.Context) error {
		_, err := txm.GetQuerier(ctx).Exec(ctx, schemaSQL)
		return err
	})
	if err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	logger.Info(ctx, "database schema is up to date")
	return nil
}
