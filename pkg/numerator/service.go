// Package numerator provides per-business document auto-numbering.
package numerator

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
)

// Strategy defines the numbering generation strategy.
type Strategy int

const (
	// StrategyStrict issues one UPSERT ... RETURNING per number.
	// Numbers are gapless. Used for invoices and bills.
	StrategyStrict Strategy = iota

	// StrategyCached reserves ranges of numbers in memory.
	// Gaps appear when the process restarts.
	StrategyCached
)

// Options configuration for number generation.
type Options struct {
	// Strategy to use for number generation
	Strategy Strategy
	// RangeSize is the number of values reserved at once in Cached strategy.
	// Default is 50.
	RangeSize int64
}

// DefaultOptions returns standard options (Strict).
func DefaultOptions() *Options {
	return &Options{
		Strategy: StrategyStrict,
	}
}

// Querier interface for database operations.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type cachedRange struct {
	current int64
	max     int64
}

// Service hands out document numbers from sys_sequences.
type Service struct {
	querier Querier
	opts    *Options

	cacheMu sync.Mutex
	// ranges is keyed by business and sequence key
	ranges map[string]*cachedRange
}

// New creates a numerator over querier. opts may be nil.
func New(querier Querier, opts *Options) *Service {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &Service{
		querier: querier,
		opts:    opts,
		ranges:  make(map[string]*cachedRange),
	}
}

// Config holds numbering configuration.
type Config struct {
	// Prefix added to all numbers (e.g., "INV", "BILL")
	Prefix string

	// IncludeYear adds year to the number
	IncludeYear bool

	// PadWidth is the minimum number width (default 5)
	PadWidth int

	// ResetPeriod: "year", "month", "never"
	ResetPeriod string
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(prefix string) Config {
	return Config{
		Prefix:      prefix,
		IncludeYear: true,
		PadWidth:    5,
		ResetPeriod: "year",
	}
}

// GetNextNumber generates the next number for a business.
// Pattern: PREFIX-YEAR-XXXXX (e.g., INV-2026-00001)
func (s *Service) GetNextNumber(ctx context.Context, businessID string, cfg Config, period time.Time) (string, error) {
	if s == nil {
		return "", fmt.Errorf("numerator service is not initialized")
	}
	if businessID == "" {
		return "", fmt.Errorf("numerator: business is required")
	}

	key := BuildKey(cfg, period)

	var (
		num int64
		err error
	)
	switch s.opts.Strategy {
	case StrategyCached:
		num, err = s.getNextCached(ctx, businessID, key)
	default:
		num, err = s.getNextStrict(ctx, businessID, key)
	}
	if err != nil {
		return "", err
	}

	return Format(cfg, period, num), nil
}

// Next implements the document service's numberer with the default config.
func (s *Service) Next(ctx context.Context, businessID, prefix string, date time.Time) (string, error) {
	return s.GetNextNumber(ctx, businessID, DefaultConfig(prefix), date)
}

func (s *Service) getNextStrict(ctx context.Context, businessID, key string) (int64, error) {
	var num int64
	err := s.querier.QueryRow(ctx, `
		INSERT INTO sys_sequences (business_id, key, current_val)
		VALUES ($1, $2, 1)
		ON CONFLICT (business_id, key) DO UPDATE SET current_val = sys_sequences.current_val + 1
		RETURNING current_val
	`, businessID, key).Scan(&num)
	if err != nil {
		return 0, fmt.Errorf("strict next: %w", err)
	}
	return num, nil
}

// getNextCached serves from the in-memory range, reserving a new one from
// the database when it is used up.
func (s *Service) getNextCached(ctx context.Context, businessID, key string) (int64, error) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	cacheKey := businessID + ":" + key
	rng, ok := s.ranges[cacheKey]
	if !ok {
		rng = &cachedRange{}
		s.ranges[cacheKey] = rng
	}

	if rng.current >= rng.max {
		size := s.opts.RangeSize
		if size <= 0 {
			size = 50
		}

		// current_val is the last reserved value, so the new range is
		// (newMax-size, newMax].
		var newMax int64
		err := s.querier.QueryRow(ctx, `
			INSERT INTO sys_sequences (business_id, key, current_val)
			VALUES ($1, $2, $3)
			ON CONFLICT (business_id, key) DO UPDATE SET current_val = sys_sequences.current_val + $3
			RETURNING current_val
		`, businessID, key, size).Scan(&newMax)
		if err != nil {
			return 0, fmt.Errorf("reserve range: %w", err)
		}

		rng.current = newMax - size
		rng.max = newMax
	}

	rng.current++
	return rng.current, nil
}

// SetNextNumber sets the last issued value (for migrations and imports).
func (s *Service) SetNextNumber(ctx context.Context, businessID string, cfg Config, period time.Time, value int64) error {
	key := BuildKey(cfg, period)

	var result int64
	err := s.querier.QueryRow(ctx, `
		INSERT INTO sys_sequences (business_id, key, current_val)
		VALUES ($1, $2, $3)
		ON CONFLICT (business_id, key) DO UPDATE SET current_val = $3
		RETURNING current_val
	`, businessID, key, value).Scan(&result)

	s.cacheMu.Lock()
	delete(s.ranges, businessID+":"+key)
	s.cacheMu.Unlock()

	if err != nil {
		return fmt.Errorf("set next number: %w", err)
	}
	return nil
}

// BuildKey creates the sequence key based on config and period.
func BuildKey(cfg Config, period time.Time) string {
	switch cfg.ResetPeriod {
	case "month":
		return fmt.Sprintf("%s_%s", cfg.Prefix, period.Format("2006_01"))
	case "year":
		return fmt.Sprintf("%s_%s", cfg.Prefix, period.Format("2006"))
	default:
		return cfg.Prefix
	}
}

// Format renders num according to cfg.
func Format(cfg Config, period time.Time, num int64) string {
	padWidth := cfg.PadWidth
	if padWidth == 0 {
		padWidth = 5
	}

	if cfg.IncludeYear {
		return fmt.Sprintf("%s-%s-%0*d", cfg.Prefix, period.Format("2006"), padWidth, num)
	}
	return fmt.Sprintf("%s-%0*d", cfg.Prefix, padWidth, num)
}

// ParseNumber extracts numeric part from formatted number.
// Returns -1 if parsing fails.
func ParseNumber(formatted string) int64 {
	i := strings.LastIndex(formatted, "-")
	if i < 0 {
		return -1
	}
	num, err := strconv.ParseInt(formatted[i+1:], 10, 64)
	if err != nil || num < 0 {
		return -1
	}
	return num
}
