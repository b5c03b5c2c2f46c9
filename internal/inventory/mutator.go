package inventory

import (
	"context"
	"fmt"
	"log"

	"dukapos/backend/internal/domain"
	"dukapos/backend/internal/store"
)

// appliedDelta is one entry of the compensation log: a stock adjustment
// that already landed and must be undone if a later line in the same batch
// fails.
type appliedDelta struct {
	table string
	id    string
	field string
	delta float64
}

// ReduceStock decrements stock for every line of a committed sale. Each
// decrement is a single atomic adjust clamped at zero, so concurrent sales
// cannot drive stock negative. When a line fails mid-batch, the deltas
// already applied are replayed in reverse before the error is returned.
//
// In demo mode nothing is written; the sale is recorded by the caller but
// inventory stays untouched.
func (e *Engine) ReduceStock(ctx context.Context, items []domain.SaleLineItem, departmentID string, demoMode bool) error {
	if demoMode {
		return nil
	}

	applied := make([]appliedDelta, 0, len(items))
	for _, item := range items {
		delta, err := e.reduceLine(ctx, item, departmentID)
		if err != nil {
			e.compensate(ctx, applied)
			return fmt.Errorf("reduce stock for line %s: %w", item.ID, err)
		}
		if delta != nil {
			applied = append(applied, *delta)
		}
	}
	return nil
}

func (e *Engine) reduceLine(ctx context.Context, item domain.SaleLineItem, departmentID string) (*appliedDelta, error) {
	// Blended mixtures have no stock record of their own; their component
	// accounting happens outside this ledger, so neither the reduction
	// here nor the restorer touches them.
	if item.IsScentMixture {
		return nil, nil
	}

	if item.VariantID != "" {
		qty := float64(item.Quantity)
		if _, err := e.store.Adjust(ctx, store.TableVariants, item.VariantID, "stock", -qty, true); err != nil {
			return nil, err
		}
		return &appliedDelta{table: store.TableVariants, id: item.VariantID, field: "stock", delta: -qty}, nil
	}

	// Refill lines without a product of their own draw from the
	// department's shared master pool.
	if item.IsPerfumeRefill && item.ProductID == "" {
		if item.MlAmount == nil || *item.MlAmount <= 0 {
			return nil, fmt.Errorf("%w: refill line %s has no volume", store.ErrInvalidOperation, item.ID)
		}
		pool, err := e.masterPool(ctx, departmentID)
		if err != nil {
			return nil, err
		}
		if _, err := e.store.Adjust(ctx, store.TableProducts, pool.ID, "volume_stock_ml", -*item.MlAmount, true); err != nil {
			return nil, err
		}
		return &appliedDelta{table: store.TableProducts, id: pool.ID, field: "volume_stock_ml", delta: -*item.MlAmount}, nil
	}

	if item.ProductID == "" {
		// Nothing to decrement: a service line such as a mobile-money fee.
		return nil, nil
	}

	rec, err := e.store.Get(ctx, store.TableProducts, store.Filter{"id": item.ProductID})
	if err != nil {
		return nil, err
	}
	product := domain.ProductFromRecord(rec)

	if product.TrackingMode == domain.TrackingVolume && item.MlAmount != nil {
		if _, err := e.store.Adjust(ctx, store.TableProducts, product.ID, "volume_stock_ml", -*item.MlAmount, true); err != nil {
			return nil, err
		}
		return &appliedDelta{table: store.TableProducts, id: product.ID, field: "volume_stock_ml", delta: -*item.MlAmount}, nil
	}

	qty := float64(item.Quantity)
	if _, err := e.store.Adjust(ctx, store.TableProducts, product.ID, "unit_stock", -qty, true); err != nil {
		return nil, err
	}
	return &appliedDelta{table: store.TableProducts, id: product.ID, field: "unit_stock", delta: -qty}, nil
}

// compensate replays the inverse of each applied delta, newest first.
// Failures are logged and skipped; a half-rolled-back batch still beats a
// silently inconsistent one.
func (e *Engine) compensate(ctx context.Context, applied []appliedDelta) {
	for i := len(applied) - 1; i >= 0; i-- {
		d := applied[i]
		if _, err := e.store.Adjust(ctx, d.table, d.id, d.field, -d.delta, false); err != nil {
			log.Printf("[stock-ledger] WARN: compensation failed table=%s id=%s field=%s delta=%+.2f: %v",
				d.table, d.id, d.field, -d.delta, err)
		}
	}
}

// masterPool finds the department's shared perfume oil pool.
func (e *Engine) masterPool(ctx context.Context, departmentID string) (domain.Product, error) {
	rec, err := e.store.Get(ctx, store.TableProducts, store.Filter{
		"department_id":    departmentID,
		"is_master_volume": true,
	})
	if err != nil {
		return domain.Product{}, fmt.Errorf("department %s has no master volume pool: %w", departmentID, err)
	}
	return domain.ProductFromRecord(rec), nil
}
