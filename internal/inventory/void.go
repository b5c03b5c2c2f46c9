package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dukapos/backend/internal/domain"
	"dukapos/backend/internal/store"
)

// ErrAlreadyVoided means the sale was voided before; stock has been
// restored exactly once and the request is a duplicate.
var ErrAlreadyVoided = errors.New("sale already voided")

type VoidRequest struct {
	SaleID  string
	Reason  string
	ActorID string
}

// VoidSale reverses a completed sale: stock goes back first, then the sale
// record flips to voided with the actor and reason stamped on it. A demo
// sale never touched stock, so its restore pass is skipped. Restoration
// failures abort the void and leave the sale completed, so a retry starts
// from a known state.
func (e *Engine) VoidSale(ctx context.Context, req VoidRequest) (domain.Sale, error) {
	rec, err := e.store.Get(ctx, store.TableSales, store.Filter{"id": req.SaleID})
	if err != nil {
		return domain.Sale{}, fmt.Errorf("load sale %s: %w", req.SaleID, err)
	}
	sale := domain.SaleFromRecord(rec)

	if sale.Status == domain.SaleStatusVoided {
		return sale, ErrAlreadyVoided
	}

	if !sale.IsDemo {
		if err := e.RestoreSale(ctx, sale.ID); err != nil {
			return domain.Sale{}, fmt.Errorf("restore stock for sale %s: %w", sale.ID, err)
		}
	}

	now := time.Now().UTC()
	patch := store.Record{
		"status":      domain.SaleStatusVoided,
		"voided_at":   now,
		"voided_by":   req.ActorID,
		"void_reason": req.Reason,
	}
	if err := e.store.Update(ctx, store.TableSales, sale.ID, patch); err != nil {
		return domain.Sale{}, fmt.Errorf("mark sale %s voided: %w", sale.ID, err)
	}

	sale.Status = domain.SaleStatusVoided
	sale.VoidedAt = &now
	sale.VoidedBy = req.ActorID
	sale.VoidReason = req.Reason
	return sale, nil
}
