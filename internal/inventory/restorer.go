package inventory

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"dukapos/backend/internal/domain"
	"dukapos/backend/internal/store"
)

// RestoreSale puts back the stock a sale consumed, line by line. Lines are
// restored concurrently and all awaited; the first failure is returned but
// the remaining restorations still run to completion.
//
// Scent-mixture lines are skipped: the ledger never decremented them, so
// restoring one would fabricate inventory. Refill lines drawn from the
// master pool carry no product reference and are skipped too; the pool is
// only ever drawn down, never topped back up by a void.
func (e *Engine) RestoreSale(ctx context.Context, saleID string) error {
	records, err := e.store.List(ctx, store.TableItems, store.Filter{"sale_id": saleID})
	if err != nil {
		return fmt.Errorf("load sale items for %s: %w", saleID, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, rec := range records {
		item := domain.LineItemFromRecord(rec)
		if item.IsScentMixture {
			continue
		}
		if item.ProductID == "" && item.VariantID == "" {
			continue
		}
		g.Go(func() error {
			return e.restoreLine(gctx, item)
		})
	}
	return g.Wait()
}

func (e *Engine) restoreLine(ctx context.Context, item domain.SaleLineItem) error {
	if item.VariantID != "" {
		_, err := e.store.Adjust(ctx, store.TableVariants, item.VariantID, "stock", float64(item.Quantity), false)
		return err
	}

	rec, err := e.store.Get(ctx, store.TableProducts, store.Filter{"id": item.ProductID})
	if err != nil {
		return fmt.Errorf("restore line %s: %w", item.ID, err)
	}
	product := domain.ProductFromRecord(rec)

	if product.TrackingMode == domain.TrackingVolume {
		amount := float64(item.Quantity)
		if item.MlAmount != nil {
			amount = *item.MlAmount
		}
		_, err := e.store.Adjust(ctx, store.TableProducts, product.ID, "volume_stock_ml", amount, false)
		return err
	}

	_, err = e.store.Adjust(ctx, store.TableProducts, product.ID, "unit_stock", float64(item.Quantity), false)
	return err
}
