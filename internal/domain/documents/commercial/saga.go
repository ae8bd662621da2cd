package commercial

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ledgerbook/internal/core/apperror"
	"ledgerbook/internal/core/id"
	"ledgerbook/pkg/logger"
)

var tracer = otel.Tracer("ledgerbook/commercial")

// Operation names recorded in the step log.
const (
	OpCreate        = "document.create"
	OpUpdate        = "document.update"
	OpDelete        = "document.delete"
	OpRecordPayment = "document.record_payment"
	OpDeletePayment = "document.delete_payment"
)

// IntentStatus is the lifecycle of an operation intent.
type IntentStatus string

const (
	IntentOpen      IntentStatus = "open"
	IntentCompleted IntentStatus = "completed"
	IntentFailed    IntentStatus = "failed"
)

// StepStatus is the outcome of one store call.
type StepStatus string

const (
	StepCommitted StepStatus = "committed"
	StepFailed    StepStatus = "failed"
)

// Step is one numbered store call of an operation.
type Step struct {
	Index  int            `json:"index"`
	Name   string         `json:"name"`
	Entity string         `json:"entity"`
	Status StepStatus     `json:"status"`
	Error  string         `json:"error,omitempty"`
	Detail map[string]any `json:"detail,omitempty"`
	At     time.Time      `json:"at"`
}

// OperationLog is the step log of one Create/Update/Delete invocation.
// Written as a durable intent before the first store call so an
// interrupted operation shows which steps committed.
type OperationLog struct {
	ID         id.ID        `json:"id"`
	Operation  string       `json:"operation"`
	BusinessID string       `json:"businessId"`
	DocumentID *id.ID       `json:"documentId,omitempty"`
	Status     IntentStatus `json:"status"`
	StartedAt  time.Time    `json:"startedAt"`
	FinishedAt *time.Time   `json:"finishedAt,omitempty"`
	Steps      []Step       `json:"steps"`
}

func newOperationLog(operation, businessID string, documentID *id.ID) *OperationLog {
	return &OperationLog{
		ID:         id.New(),
		Operation:  operation,
		BusinessID: businessID,
		DocumentID: documentID,
		Status:     IntentOpen,
		StartedAt:  time.Now().UTC(),
		Steps:      make([]Step, 0, 8),
	}
}

// CommittedSteps lists the names of committed steps in order.
func (l *OperationLog) CommittedSteps() []string {
	names := make([]string, 0, len(l.Steps))
	for _, s := range l.Steps {
		if s.Status == StepCommitted {
			names = append(names, s.Name)
		}
	}
	return names
}

// FailedStep returns the failed step, if any.
func (l *OperationLog) FailedStep() *Step {
	for i := range l.Steps {
		if l.Steps[i].Status == StepFailed {
			return &l.Steps[i]
		}
	}
	return nil
}

// IntentStore persists operation logs.
type IntentStore interface {
	// Begin stores a new open intent. Nothing is written if this fails.
	Begin(ctx context.Context, log *OperationLog) error

	// Save overwrites the stored log with its current steps and status.
	Save(ctx context.Context, log *OperationLog) error

	Get(ctx context.Context, intentID id.ID) (*OperationLog, error)

	// ListStale returns open intents started before olderThan.
	ListStale(ctx context.Context, olderThan time.Time, limit int) ([]*OperationLog, error)
}

// storeWriteFailure converts a failed step into the error returned to callers.
func storeWriteFailure(log *OperationLog, step Step, cause error) *apperror.AppError {
	appErr := apperror.NewStoreWriteFailure(log.Operation, step.Index, step.Name, step.Entity, cause).
		WithDetail("operation_id", log.ID.String()).
		WithDetail("committed_steps", log.CommittedSteps())
	if log.DocumentID != nil {
		appErr = appErr.WithDetail("document_id", log.DocumentID.String())
	}
	for k, v := range step.Detail {
		appErr = appErr.WithDetail(k, v)
	}
	return appErr
}

// saga runs the numbered store calls of one operation and keeps its log.
type saga struct {
	log     *OperationLog
	intents IntentStore
}

// beginSaga persists the intent. If that fails nothing else is attempted.
func beginSaga(ctx context.Context, intents IntentStore, operation, businessID string, documentID *id.ID) (*saga, error) {
	s := &saga{
		log:     newOperationLog(operation, businessID, documentID),
		intents: intents,
	}
	if err := intents.Begin(ctx, s.log); err != nil {
		return nil, apperror.NewStoreWriteFailure(operation, 0, "begin_intent", "intent", err).
			WithDetail("operation_id", s.log.ID.String())
	}
	logger.Info(ctx, "operation started",
		"operation", operation,
		"operation_id", s.log.ID.String(),
	)
	return s, nil
}

// step runs fn as the numbered store call index. fn may attach detail to
// the step, which is copied into the error when it fails.
func (s *saga) step(ctx context.Context, index int, name, entity string, fn func(ctx context.Context, st *Step) error) error {
	ctx, span := tracer.Start(ctx, "saga."+name,
		trace.WithAttributes(
			attribute.String("saga.operation", s.log.Operation),
			attribute.String("saga.operation_id", s.log.ID.String()),
			attribute.Int("saga.step", index),
			attribute.String("saga.entity", entity),
		))
	defer span.End()

	st := Step{Index: index, Name: name, Entity: entity}
	err := fn(ctx, &st)
	st.At = time.Now().UTC()

	if err != nil {
		st.Status = StepFailed
		st.Error = err.Error()
		s.log.Steps = append(s.log.Steps, st)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return storeWriteFailure(s.log, st, err)
	}

	st.Status = StepCommitted
	s.log.Steps = append(s.log.Steps, st)
	s.save(ctx)
	return nil
}

// finish closes the intent as completed or failed.
func (s *saga) finish(ctx context.Context, opErr error) {
	now := time.Now().UTC()
	s.log.FinishedAt = &now
	if opErr != nil {
		s.log.Status = IntentFailed
		logger.Error(ctx, "operation failed",
			"operation", s.log.Operation,
			"operation_id", s.log.ID.String(),
			"committed_steps", s.log.CommittedSteps(),
			"error", opErr,
		)
	} else {
		s.log.Status = IntentCompleted
		logger.Info(ctx, "operation completed",
			"operation", s.log.Operation,
			"operation_id", s.log.ID.String(),
			"steps", len(s.log.Steps),
		)
	}
	s.save(ctx)
}

// save writes the log. A failed journal write does not fail the operation;
// the intent simply stays open and is picked up by the stale sweep.
func (s *saga) save(ctx context.Context) {
	if err := s.intents.Save(ctx, s.log); err != nil {
		logger.Warn(ctx, "operation journal write failed",
			"operation_id", s.log.ID.String(),
			"error", err,
		)
	}
}
