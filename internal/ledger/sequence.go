package ledger

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-bms/atlas-bms/internal/shared"
)

var identPattern = regexp.MustCompile(`^([A-Z]+)-(\d{4})-(\d+)$`)

// FormatIdentifier renders a sequenced code, padding the counter to at least
// three digits: EXP-2024-003.
func FormatIdentifier(prefix string, year, n int) string {
	return fmt.Sprintf("%s-%d-%03d", prefix, year, n)
}

// ParseIdentifier splits PREFIX-YYYY-NNN into its parts.
func ParseIdentifier(code string) (prefix string, year, n int, ok bool) {
	m := identPattern.FindStringSubmatch(strings.TrimSpace(code))
	if m == nil {
		return "", 0, 0, false
	}
	year, _ = strconv.Atoi(m[2])
	n, _ = strconv.Atoi(m[3])
	return m[1], year, n, true
}

// NextIdentifier derives the next code from a snapshot of existing
// identifiers: highest counter for the prefix+year, plus one. Identifiers
// from other prefixes or years are ignored; an empty year starts at 1.
// Pure function over the snapshot; the SequenceAllocator is the race-safe
// path for concurrent creators.
func NextIdentifier(prefix string, year int, existing []string) string {
	max := 0
	for _, code := range existing {
		p, y, n, ok := ParseIdentifier(code)
		if !ok || p != prefix || y != year {
			continue
		}
		if n > max {
			max = n
		}
	}
	return FormatIdentifier(prefix, year, max+1)
}

// SequenceAllocator hands out identifiers from a (prefix, year) counter row.
// The upsert increments atomically, so concurrent creators cannot observe the
// same value, and counters are never reused after deletes.
type SequenceAllocator struct {
	pool *pgxpool.Pool
}

// NewSequenceAllocator constructs an allocator.
func NewSequenceAllocator(pool *pgxpool.Pool) *SequenceAllocator {
	return &SequenceAllocator{pool: pool}
}

// Next reserves and returns the next identifier for prefix within year.
func (a *SequenceAllocator) Next(ctx context.Context, prefix string, year int) (string, error) {
	const query = `
		INSERT INTO sequences (prefix, year, last_value)
		VALUES ($1, $2, 1)
		ON CONFLICT (prefix, year)
		DO UPDATE SET last_value = sequences.last_value + 1
		RETURNING last_value`

	var n int
	if err := a.pool.QueryRow(ctx, query, prefix, year).Scan(&n); err != nil {
		return "", shared.Remote("allocate sequence", err)
	}
	return FormatIdentifier(prefix, year, n), nil
}

// IsUniqueViolation reports whether err is a PostgreSQL duplicate-key error,
// used by repositories to map number collisions to validation errors.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
