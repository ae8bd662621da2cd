package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/klauspost/compress/zstd"

	"ledgerbook/internal/core/apperror"
	"ledgerbook/internal/core/id"
	"ledgerbook/internal/domain/documents/commercial"
)

// CompressionAlgo records how a journal row's steps are encoded.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// defaultCompressThreshold is the step-log size above which rows are zstd-compressed.
const defaultCompressThreshold = 4 * 1024

type journalRow struct {
	ID              id.ID           `db:"id"`
	Operation       string          `db:"operation"`
	BusinessID      string          `db:"business_id"`
	DocumentID      *id.ID          `db:"document_id"`
	Status          string          `db:"status"`
	Steps           []byte          `db:"steps"`
	StepsCompressed []byte          `db:"steps_compressed"`
	CompressionAlgo CompressionAlgo `db:"compression_algo"`
	StartedAt       time.Time       `db:"started_at"`
	FinishedAt      *time.Time      `db:"finished_at"`
}

const journalColumns = `id, operation, business_id, document_id, status,
	steps, steps_compressed, compression_algo, started_at, finished_at`

// Journal stores operation intents in sys_operation_journal.
type Journal struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

var _ commercial.IntentStore = (*Journal)(nil)

// NewJournal creates the intent journal.
func NewJournal(txManager *TxManager) (*Journal, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &Journal{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: defaultCompressThreshold,
	}, nil
}

func (j *Journal) encode(log *commercial.OperationLog) (journalRow, error) {
	steps, err := json.Marshal(log.Steps)
	if err != nil {
		return journalRow{}, fmt.Errorf("marshal steps: %w", err)
	}
	row := journalRow{
		ID:              log.ID,
		Operation:       log.Operation,
		BusinessID:      log.BusinessID,
		DocumentID:      log.DocumentID,
		Status:          string(log.Status),
		CompressionAlgo: CompressionNone,
		StartedAt:       log.StartedAt,
		FinishedAt:      log.FinishedAt,
	}
	if len(steps) > j.compressThreshold {
		row.StepsCompressed = j.encoder.EncodeAll(steps, nil)
		row.CompressionAlgo = CompressionZstd
	} else {
		row.Steps = steps
	}
	return row, nil
}

func (j *Journal) decode(row journalRow) (*commercial.OperationLog, error) {
	raw := row.Steps
	if row.CompressionAlgo == CompressionZstd {
		var err error
		raw, err = j.decoder.DecodeAll(row.StepsCompressed, nil)
		if err != nil {
			return nil, fmt.Errorf("decompress steps of %s: %w", row.ID, err)
		}
	}
	log := &commercial.OperationLog{
		ID:         row.ID,
		Operation:  row.Operation,
		BusinessID: row.BusinessID,
		DocumentID: row.DocumentID,
		Status:     commercial.IntentStatus(row.Status),
		StartedAt:  row.StartedAt,
		FinishedAt: row.FinishedAt,
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &log.Steps); err != nil {
			return nil, fmt.Errorf("unmarshal steps of %s: %w", row.ID, err)
		}
	}
	return log, nil
}

// Begin implements commercial.IntentStore.
func (j *Journal) Begin(ctx context.Context, log *commercial.OperationLog) error {
	row, err := j.encode(log)
	if err != nil {
		return err
	}
	_, err = j.txManager.GetQuerier(ctx).Exec(ctx, `
		INSERT INTO sys_operation_journal (`+journalColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, row.ID, row.Operation, row.BusinessID, row.DocumentID, row.Status,
		row.Steps, row.StepsCompressed, row.CompressionAlgo, row.StartedAt, row.FinishedAt)
	if err != nil {
		return fmt.Errorf("begin intent: %w", err)
	}
	return nil
}

// Save implements commercial.IntentStore.
func (j *Journal) Save(ctx context.Context, log *commercial.OperationLog) error {
	row, err := j.encode(log)
	if err != nil {
		return err
	}
	tag, err := j.txManager.GetQuerier(ctx).Exec(ctx, `
		UPDATE sys_operation_journal
		SET document_id = $2, status = $3, steps = $4, steps_compressed = $5,
		    compression_algo = $6, finished_at = $7
		WHERE id = $1
	`, row.ID, row.DocumentID, row.Status, row.Steps, row.StepsCompressed, row.CompressionAlgo, row.FinishedAt)
	if err != nil {
		return fmt.Errorf("save intent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("intent", log.ID.String())
	}
	return nil
}

// Get implements commercial.IntentStore.
func (j *Journal) Get(ctx context.Context, intentID id.ID) (*commercial.OperationLog, error) {
	var row journalRow
	err := pgxscan.Get(ctx, j.txManager.GetQuerier(ctx), &row,
		`SELECT `+journalColumns+` FROM sys_operation_journal WHERE id = $1`, intentID)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("intent", intentID.String())
		}
		return nil, fmt.Errorf("get intent: %w", err)
	}
	return j.decode(row)
}

// ListStale implements commercial.IntentStore.
func (j *Journal) ListStale(ctx context.Context, olderThan time.Time, limit int) ([]*commercial.OperationLog, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []journalRow
	err := pgxscan.Select(ctx, j.txManager.GetQuerier(ctx), &rows, `
		SELECT `+journalColumns+`
		FROM sys_operation_journal
		WHERE status = $1 AND started_at < $2
		ORDER BY started_at
		LIMIT $3
	`, string(commercial.IntentOpen), olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("list stale intents: %w", err)
	}

	out := make([]*commercial.OperationLog, 0, len(rows))
	for _, row := range rows {
		log, err := j.decode(row)
		if err != nil {
			return nil, err
		}
		out = append(out, log)
	}
	return out, nil
}
