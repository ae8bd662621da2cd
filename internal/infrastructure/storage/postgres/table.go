package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"ledgerbook/internal/core/apperror"
	"ledgerbook/internal/domain"
)

// Builder returns a squirrel builder with PostgreSQL placeholders.
func Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// Table is the CRUD shared by business-scoped tables. T is a pointer to a
// struct with db tags embedding entity.BaseEntity.
type Table[T any] struct {
	TxManager *TxManager
	Name      string
	Cols      []string
	// Entity names the table in errors, e.g. "document".
	Entity string
	// DefaultOrder is used when a list filter does not set OrderBy.
	DefaultOrder string
}

// Querier returns the transaction in ctx or the pool.
func (t *Table[T]) Querier(ctx context.Context) Querier {
	return t.TxManager.GetQuerier(ctx)
}

// Insert writes every column of row.
func (t *Table[T]) Insert(ctx context.Context, row T) error {
	data := FilterColumns(StructToMap(row), t.Cols)
	if len(data) == 0 {
		return fmt.Errorf("insert %s: no db columns", t.Name)
	}

	sql, args, err := Builder().Insert(t.Name).SetMap(data).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := t.Querier(ctx).Exec(ctx, sql, args...); err != nil {
		if IsUniqueViolation(err) {
			return apperror.NewConflict(t.Entity + " already exists").WithCause(err)
		}
		return fmt.Errorf("insert %s: %w", t.Name, err)
	}
	return nil
}

// UpdateCAS stores row if its version is unchanged and returns the new version.
// skip lists columns that must not be written in addition to the immutable ones.
func (t *Table[T]) UpdateCAS(ctx context.Context, row T, skip ...string) (int, error) {
	data := StructToMap(row)
	rowID := data["id"]
	businessID := data["business_id"]
	version, ok := data["version"].(int)
	if !ok {
		return 0, fmt.Errorf("update %s: entity has no int version", t.Name)
	}

	skip = append(skip, "id", "business_id", "created_at", "version", "updated_at")
	sql, args, err := Builder().
		Update(t.Name).
		SetMap(FilterColumns(data, t.Cols, skip...)).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": rowID, "business_id": businessID, "version": version}).
		Suffix("RETURNING version").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build update: %w", err)
	}

	var next int
	if err := t.Querier(ctx).QueryRow(ctx, sql, args...).Scan(&next); err != nil {
		if pgxscan.NotFound(err) {
			return 0, apperror.NewConcurrentModification(t.Entity, rowID)
		}
		if IsUniqueViolation(err) {
			return 0, apperror.NewConflict(t.Entity + " already exists").WithCause(err)
		}
		return 0, fmt.Errorf("update %s: %w", t.Name, err)
	}
	return next, nil
}

// DeleteWhere removes rows of a business matching where and reports how many.
func (t *Table[T]) DeleteWhere(ctx context.Context, businessID string, where squirrel.Sqlizer) (int64, error) {
	q := Builder().Delete(t.Name).Where(squirrel.Eq{"business_id": businessID})
	if where != nil {
		q = q.Where(where)
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete: %w", err)
	}
	tag, err := t.Querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", t.Name, err)
	}
	return tag.RowsAffected(), nil
}

// Select starts a business-scoped SELECT of all columns.
func (t *Table[T]) Select(businessID string) squirrel.SelectBuilder {
	return Builder().Select(t.Cols...).From(t.Name).Where(squirrel.Eq{"business_id": businessID})
}

// GetOne scans the single row matched by q into dst.
func (t *Table[T]) GetOne(ctx context.Context, dst T, q squirrel.SelectBuilder, key any) error {
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Get(ctx, t.Querier(ctx), dst, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return apperror.NewNotFound(t.Entity, key)
		}
		return fmt.Errorf("get %s: %w", t.Entity, err)
	}
	return nil
}

// SelectAll scans every row matched by q.
func (t *Table[T]) SelectAll(ctx context.Context, q squirrel.SelectBuilder) ([]T, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var rows []T
	if err := pgxscan.Select(ctx, t.Querier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select %s: %w", t.Name, err)
	}
	return rows, nil
}

// Page counts the rows of q, then returns the requested page in filter order.
func (t *Table[T]) Page(ctx context.Context, q squirrel.SelectBuilder, filter domain.ListFilter) (domain.ListResult[T], error) {
	result := domain.ListResult[T]{Limit: filter.Limit, Offset: filter.Offset, Items: []T{}}

	countSQL, countArgs, err := Builder().Select("COUNT(*)").FromSelect(q, "sub").ToSql()
	if err != nil {
		return result, fmt.Errorf("build count: %w", err)
	}
	if err := t.Querier(ctx).QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count %s: %w", t.Name, err)
	}

	orderBy, err := t.ParseOrderBy(filter.OrderBy)
	if err != nil {
		return result, err
	}
	q = q.OrderBy(orderBy, "id DESC")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	items, err := t.SelectAll(ctx, q)
	if err != nil {
		return result, err
	}
	if items != nil {
		result.Items = items
	}
	return result, nil
}

// ParseOrderBy turns "field", "+field" or "-field" into an ORDER BY term,
// accepting only the table's own columns.
func (t *Table[T]) ParseOrderBy(orderBy string) (string, error) {
	orderBy = strings.TrimSpace(orderBy)
	if orderBy == "" {
		if t.DefaultOrder != "" {
			return t.DefaultOrder, nil
		}
		return "created_at DESC", nil
	}

	direction := "ASC"
	field := orderBy
	switch {
	case strings.HasPrefix(orderBy, "-"):
		direction = "DESC"
		field = orderBy[1:]
	case strings.HasPrefix(orderBy, "+"):
		field = orderBy[1:]
	}
	field = strings.TrimSpace(field)

	for _, col := range t.Cols {
		if col == field {
			return field + " " + direction, nil
		}
	}
	return "", apperror.NewValidation("invalid orderBy").
		WithDetail("orderBy", orderBy).
		WithDetail("field", field)
}

// DateRange adds inclusive bounds on column from filter.
func DateRange(q squirrel.SelectBuilder, column string, filter domain.ListFilter) squirrel.SelectBuilder {
	if filter.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{column: *filter.DateFrom})
	}
	if filter.DateTo != nil {
		q = q.Where(squirrel.LtOrEq{column: *filter.DateTo})
	}
	return q
}
