// Package samples reads labelled addresses: the expected fields of an
// address, from which evaluation and batch runs compose free text.
package samples

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	"github.com/lib/pq"

	"github.com/address-predictor/internal/address"
)

// Source yields labelled addresses.
type Source interface {
	Samples(ctx context.Context, limit int) ([]address.Address, error)
}

// Static is an in-memory Source.
type Static []address.Address

// Samples returns up to limit samples; limit <= 0 returns all of them.
func (s Static) Samples(ctx context.Context, limit int) ([]address.Address, error) {
	if limit <= 0 || limit > len(s) {
		limit = len(s)
	}
	out := make([]address.Address, limit)
	copy(out, s[:limit])
	return out, nil
}

// Reference holds the hand-checked addresses used to accept a model build.
var Reference = Static{
	{Street: "16 colville crescent", City: "keysborough", Postcode: "3173", State: "vic"},
	{Building: "Plumbing John", Street: "32 queen road", City: "Roxburg Park", Postcode: "4552", State: "vic"},
	{Street: "PO BOX 32", City: "Tanah Merah", Postcode: "3311", State: "QLD"},
	{Street: "44 South Road", City: "Green Hill", Postcode: "3311", State: "NSW"},
	{Building: "Dockland shopping centre", Street: "777 Hill Road", City: "Dockland", Postcode: "3311", State: "Vic"},
	{Street: "777 Mining Road", City: "Sovereign Hill", Postcode: "3345", State: "NT"},
}

var reIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Store reads samples from a Postgres table with the columns
// building, street, city, state and postcode (NULLs read as "").
type Store struct {
	db    *sql.DB
	table string
}

// NewStore returns a Store over table, which may be schema-qualified.
func NewStore(db *sql.DB, table string) (*Store, error) {
	if !reIdent.MatchString(table) {
		return nil, fmt.Errorf("invalid sample table name %q", table)
	}
	return &Store{db: db, table: table}, nil
}

func (s *Store) query() string {
	return fmt.Sprintf(`
		SELECT COALESCE(building, ''), COALESCE(street, ''), COALESCE(city, ''),
		       COALESCE(state, ''), COALESCE(postcode, '')
		FROM %s
		ORDER BY 1, 2, 3
		LIMIT $1`, quoteTable(s.table))
}

func quoteTable(table string) string {
	for i, r := range table {
		if r == '.' {
			return pq.QuoteIdentifier(table[:i]) + "." + pq.QuoteIdentifier(table[i+1:])
		}
	}
	return pq.QuoteIdentifier(table)
}

// Samples reads up to limit rows; limit <= 0 reads all rows.
func (s *Store) Samples(ctx context.Context, limit int) ([]address.Address, error) {
	var lim interface{}
	if limit > 0 {
		lim = limit
	}

	rows, err := s.db.QueryContext(ctx, s.query(), lim)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	var out []address.Address
	for rows.Next() {
		var a address.Address
		if err := rows.Scan(&a.Building, &a.Street, &a.City, &a.State, &a.Postcode); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read samples: %w", err)
	}
	return out, nil
}

// Count returns the number of rows in the sample table.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteTable(s.table))
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("count samples: %w", err)
	}
	return n, nil
}
