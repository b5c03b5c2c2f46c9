package store

import (
	"context"
	"errors"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrUnknownTable     = errors.New("unknown table")
	ErrInvalidOperation = errors.New("invalid operation")
)

// Record is a single row of a table, keyed by column name. Values follow
// JSON conventions (string, float64, bool, nil) plus time.Time where the
// implementation keeps native timestamps.
type Record = map[string]any

// Filter matches records by equality on each key.
type Filter = map[string]any

const (
	TableProducts = "products"
	TableVariants = "product_variants"
	TableSales    = "sales"
	TableItems    = "sale_items"
	TableAudit    = "audit_logs"
	TableUsers    = "users"
)

var allowedTables = map[string]bool{
	TableProducts: true,
	TableVariants: true,
	TableSales:    true,
	TableItems:    true,
	TableAudit:    true,
	TableUsers:    true,
}

// AllowedTable reports whether the table name is part of the POS schema.
// Everything that builds SQL from a table name must check this first.
func AllowedTable(name string) bool {
	return allowedTables[name]
}

// RecordStore is the generic table store the POS core runs against. All
// methods are context-aware and may fail with transport or constraint
// errors; Get returns ErrNotFound when no record matches.
type RecordStore interface {
	Get(ctx context.Context, table string, filter Filter) (Record, error)
	List(ctx context.Context, table string, filter Filter) ([]Record, error)

	// Insert writes a record, upserting by its "id" key so that replayed
	// offline inserts stay idempotent.
	Insert(ctx context.Context, table string, rec Record) error
	Update(ctx context.Context, table string, id string, patch Record) error
	Delete(ctx context.Context, table string, filter Filter) error

	// Adjust applies delta to a numeric field as one atomic conditional
	// write and returns the resulting value. With clampZero the result
	// never goes below zero.
	Adjust(ctx context.Context, table string, id string, field string, delta float64, clampZero bool) (float64, error)

	Ping(ctx context.Context) error
}
