package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"dukapos/backend/internal/store"
)

// Store is the postgres-backed record store. Queries are generated from the
// whitelisted table name and validated column identifiers; all values travel
// through placeholders.
type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Get(ctx context.Context, table string, filter store.Filter) (store.Record, error) {
	if !store.AllowedTable(table) {
		return nil, store.ErrUnknownTable
	}
	where, args, err := buildWhere(filter, 1)
	if err != nil {
		return nil, err
	}

	var raw []byte
	query := fmt.Sprintf(`SELECT row_to_json(t) FROM %s t%s LIMIT 1`, table, where)
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	var rec store.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Store) List(ctx context.Context, table string, filter store.Filter) ([]store.Record, error) {
	if !store.AllowedTable(table) {
		return nil, store.ErrUnknownTable
	}
	where, args, err := buildWhere(filter, 1)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT row_to_json(t) FROM %s t%s`, table, where)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]store.Record, 0, 16)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var rec store.Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *Store) Insert(ctx context.Context, table string, rec store.Record) error {
	if !store.AllowedTable(table) {
		return store.ErrUnknownTable
	}
	if id, _ := rec["id"].(string); id == "" {
		return store.ErrInvalidOperation
	}

	cols := sortedColumns(rec)
	placeholders := make([]string, 0, len(cols))
	updates := make([]string, 0, len(cols))
	args := make([]any, 0, len(cols))
	for i, col := range cols {
		if !validIdent(col) {
			return fmt.Errorf("%w: column %q", store.ErrInvalidOperation, col)
		}
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+1))
		if col != "id" {
			updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
		}
		value, err := argValue(rec[col])
		if err != nil {
			return err
		}
		args = append(args, value)
	}

	conflict := "DO NOTHING"
	if len(updates) > 0 {
		conflict = "DO UPDATE SET " + strings.Join(updates, ", ")
	}
	query := fmt.Sprintf(
		`INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (id) %s`,
		table, strings.Join(cols, ", "), strings.Join(placeholders, ", "), conflict,
	)
	_, err := s.db.ExecContext(ctx, query, args...)
	return err
}

func (s *Store) Update(ctx context.Context, table string, id string, patch store.Record) error {
	if !store.AllowedTable(table) {
		return store.ErrUnknownTable
	}
	if len(patch) == 0 {
		return nil
	}

	sets := make([]string, 0, len(patch))
	args := make([]any, 0, len(patch)+1)
	for _, col := range sortedColumns(patch) {
		if col == "id" {
			continue
		}
		if !validIdent(col) {
			return fmt.Errorf("%w: column %q", store.ErrInvalidOperation, col)
		}
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)+1))
		value, err := argValue(patch[col])
		if err != nil {
			return err
		}
		args = append(args, value)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id = $%d`, table, strings.Join(sets, ", "), len(args))
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, table string, filter store.Filter) error {
	if !store.AllowedTable(table) {
		return store.ErrUnknownTable
	}
	if len(filter) == 0 {
		return store.ErrInvalidOperation
	}
	where, args, err := buildWhere(filter, 1)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`DELETE FROM %s%s`, table, where)
	_, err = s.db.ExecContext(ctx, query, args...)
	return err
}

func (s *Store) Adjust(ctx context.Context, table string, id string, field string, delta float64, clampZero bool) (float64, error) {
	if !store.AllowedTable(table) {
		return 0, store.ErrUnknownTable
	}
	if !validIdent(field) {
		return 0, fmt.Errorf("%w: column %q", store.ErrInvalidOperation, field)
	}

	expr := fmt.Sprintf("%s + $1", field)
	if clampZero {
		expr = fmt.Sprintf("GREATEST(%s + $1, 0)", field)
	}
	query := fmt.Sprintf(`UPDATE %s SET %s = %s WHERE id = $2 RETURNING %s`, table, field, expr, field)

	var next float64
	if err := s.db.QueryRowContext(ctx, query, delta, id).Scan(&next); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, store.ErrNotFound
		}
		return 0, err
	}
	return next, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

var identRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

func validIdent(name string) bool {
	return identRe.MatchString(name)
}

func sortedColumns(rec store.Record) []string {
	cols := make([]string, 0, len(rec))
	for col := range rec {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols
}

func buildWhere(filter store.Filter, firstArg int) (string, []any, error) {
	if len(filter) == 0 {
		return "", nil, nil
	}
	conditions := make([]string, 0, len(filter))
	args := make([]any, 0, len(filter))
	for _, col := range sortedColumns(filter) {
		if !validIdent(col) {
			return "", nil, fmt.Errorf("%w: column %q", store.ErrInvalidOperation, col)
		}
		if filter[col] == nil {
			conditions = append(conditions, fmt.Sprintf("%s IS NULL", col))
			continue
		}
		conditions = append(conditions, fmt.Sprintf("%s = $%d", col, firstArg+len(args)))
		value, err := argValue(filter[col])
		if err != nil {
			return "", nil, err
		}
		args = append(args, value)
	}
	return " WHERE " + strings.Join(conditions, " AND "), args, nil
}

// argValue converts record values into driver-friendly arguments. Nested
// maps and slices are stored as JSON.
func argValue(v any) (any, error) {
	switch v.(type) {
	case nil, string, bool, int, int32, int64, float32, float64, time.Time:
		return v, nil
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return raw, nil
	}
}
