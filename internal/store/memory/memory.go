package memory

import (
	"context"
	"log"
	"math"
	"os"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"dukapos/backend/internal/store"
)

// Store is an in-memory record store used for dev mode and tests. It keeps
// per-table insertion order so listings replay in the order records were
// written, matching how the remote table store returns them.
type Store struct {
	mu     sync.RWMutex
	tables map[string]map[string]store.Record
	order  map[string][]string
}

func New() *Store {
	return &Store{
		tables: make(map[string]map[string]store.Record),
		order:  make(map[string][]string),
	}
}

// seedUsers builds the initial user accounts for dev/demo mode. Credentials
// are read from SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD environment
// variables; hardcoded dev defaults are used with a warning when unset.
func seedUsers() []store.Record {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := make([]store.Record, 0, 2)
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"cashier", cashierPwd, "cashier"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users = append(users, store.Record{
			"id":         u.username,
			"username":   u.username,
			"password":   string(hash),
			"role":       u.role,
			"active":     true,
			"created_at": now,
		})
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// NewSeeded returns a store preloaded with a small multi-department catalog:
// unit-tracked retail goods, a perfume department with its shared master
// volume product, and one variant-carrying product.
func NewSeeded() *Store {
	s := New()
	ctx := context.Background()

	products := []store.Record{
		{"id": "prod-soap-01", "name": "Bar Soap", "tracking_mode": "unit", "unit_stock": 120, "volume_stock_ml": 0.0, "department_id": "dept-retail", "is_master_volume": false, "price_cents": 5500, "active": true},
		{"id": "prod-sugar-01", "name": "Sugar 1kg", "tracking_mode": "unit", "unit_stock": 80, "volume_stock_ml": 0.0, "department_id": "dept-retail", "is_master_volume": false, "price_cents": 16500, "active": true},
		{"id": "prod-airtime-01", "name": "Airtime Voucher", "tracking_mode": "unit", "unit_stock": 200, "volume_stock_ml": 0.0, "department_id": "dept-mobile-money", "is_master_volume": false, "price_cents": 10000, "active": true},
		{"id": "prod-body-spray-01", "name": "Body Spray", "tracking_mode": "unit", "unit_stock": 45, "volume_stock_ml": 0.0, "department_id": "dept-perfume", "is_master_volume": false, "price_cents": 32000, "active": true},
		{"id": "prod-oud-50ml", "name": "Oud Blend 50ml", "tracking_mode": "volume", "unit_stock": 0, "volume_stock_ml": 750.0, "department_id": "dept-perfume", "is_master_volume": false, "price_cents": 48000, "active": true},
		{"id": "prod-master-oil", "name": "Master Perfume Oil", "tracking_mode": "volume", "unit_stock": 0, "volume_stock_ml": 5000.0, "department_id": "dept-perfume", "is_master_volume": true, "price_cents": 0, "active": true},
	}
	for _, p := range products {
		_ = s.Insert(ctx, store.TableProducts, p)
	}

	variants := []store.Record{
		{"id": "var-spray-100ml", "product_id": "prod-body-spray-01", "name": "100ml", "stock": 30},
		{"id": "var-spray-200ml", "product_id": "prod-body-spray-01", "name": "200ml", "stock": 15},
	}
	for _, v := range variants {
		_ = s.Insert(ctx, store.TableVariants, v)
	}

	for _, u := range seedUsers() {
		_ = s.Insert(ctx, store.TableUsers, u)
	}

	return s
}

func (s *Store) Get(_ context.Context, table string, filter store.Filter) (store.Record, error) {
	if !store.AllowedTable(table) {
		return nil, store.ErrUnknownTable
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range s.order[table] {
		rec := s.tables[table][id]
		if matches(rec, filter) {
			return copyRecord(rec), nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) List(_ context.Context, table string, filter store.Filter) ([]store.Record, error) {
	if !store.AllowedTable(table) {
		return nil, store.ErrUnknownTable
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.Record, 0, 16)
	for _, id := range s.order[table] {
		rec := s.tables[table][id]
		if matches(rec, filter) {
			out = append(out, copyRecord(rec))
		}
	}
	return out, nil
}

func (s *Store) Insert(_ context.Context, table string, rec store.Record) error {
	if !store.AllowedTable(table) {
		return store.ErrUnknownTable
	}
	id, ok := rec["id"].(string)
	if !ok || id == "" {
		return store.ErrInvalidOperation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tables[table] == nil {
		s.tables[table] = make(map[string]store.Record)
	}
	if _, exists := s.tables[table][id]; !exists {
		s.order[table] = append(s.order[table], id)
	}
	s.tables[table][id] = copyRecord(rec)
	return nil
}

func (s *Store) Update(_ context.Context, table string, id string, patch store.Record) error {
	if !store.AllowedTable(table) {
		return store.ErrUnknownTable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.tables[table][id]
	if !exists {
		return store.ErrNotFound
	}
	for k, v := range patch {
		if k == "id" {
			continue
		}
		rec[k] = v
	}
	return nil
}

func (s *Store) Delete(_ context.Context, table string, filter store.Filter) error {
	if !store.AllowedTable(table) {
		return store.ErrUnknownTable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]string, 0, len(s.order[table]))
	for _, id := range s.order[table] {
		if matches(s.tables[table][id], filter) {
			delete(s.tables[table], id)
			continue
		}
		kept = append(kept, id)
	}
	s.order[table] = kept
	return nil
}

func (s *Store) Adjust(_ context.Context, table string, id string, field string, delta float64, clampZero bool) (float64, error) {
	if !store.AllowedTable(table) {
		return 0, store.ErrUnknownTable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.tables[table][id]
	if !exists {
		return 0, store.ErrNotFound
	}
	next := toFloat(rec[field]) + delta
	if clampZero {
		next = math.Max(next, 0)
	}
	rec[field] = next
	return next, nil
}

func (s *Store) Ping(_ context.Context) error {
	return nil
}

func matches(rec store.Record, filter store.Filter) bool {
	for k, want := range filter {
		if !looseEqual(rec[k], want) {
			return false
		}
	}
	return true
}

// looseEqual compares values across the numeric representations a record can
// pick up on a JSON round trip (int seeds vs float64 decodes).
func looseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if fa, aNum := numeric(a); aNum {
		if fb, bNum := numeric(b); bNum {
			return fa == fb
		}
		return false
	}
	return a == b
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func toFloat(v any) float64 {
	f, _ := numeric(v)
	return f
}

func copyRecord(rec store.Record) store.Record {
	dup := make(store.Record, len(rec))
	for k, v := range rec {
		dup[k] = v
	}
	return dup
}
