package inventory

import (
	"context"
	"fmt"
	"log"

	"dukapos/backend/internal/domain"
	"dukapos/backend/internal/store"
)

// Availability is the answer to "can this line be added to the cart".
// Lookup failures deliberately collapse into an unavailable answer with a
// message instead of an error: the till must keep working, and a cashier
// cannot act on a stack trace.
type Availability struct {
	Available    bool    `json:"available"`
	CurrentStock float64 `json:"current_stock"`
	Message      string  `json:"message,omitempty"`
}

// CheckProduct reports whether the requested quantity of a product can be
// sold right now. For volume-tracked products the requested amount is
// mlAmount when given, otherwise the quantity is read as millilitres.
func (e *Engine) CheckProduct(ctx context.Context, productID string, quantity int, trackingHint string, mlAmount *float64) Availability {
	if quantity <= 0 && mlAmount == nil {
		return Availability{Message: "requested quantity must be positive"}
	}

	rec, err := e.store.Get(ctx, store.TableProducts, store.Filter{"id": productID})
	if err != nil {
		log.Printf("[availability] product lookup failed id=%s: %v", productID, err)
		return Availability{Message: "product not found"}
	}
	product := domain.ProductFromRecord(rec)

	mode := product.TrackingMode
	if mode == "" {
		mode = trackingHint
	}

	if mode == domain.TrackingVolume {
		needed := float64(quantity)
		if mlAmount != nil {
			needed = *mlAmount
		}
		if needed <= 0 {
			return Availability{CurrentStock: product.VolumeStockMl, Message: "requested volume must be positive"}
		}
		if product.VolumeStockMl < needed {
			return Availability{
				CurrentStock: product.VolumeStockMl,
				Message:      fmt.Sprintf("only %.1f ml left of %s", product.VolumeStockMl, product.Name),
			}
		}
		return Availability{Available: true, CurrentStock: product.VolumeStockMl}
	}

	if product.UnitStock < quantity {
		return Availability{
			CurrentStock: float64(product.UnitStock),
			Message:      fmt.Sprintf("only %d left of %s", product.UnitStock, product.Name),
		}
	}
	return Availability{Available: true, CurrentStock: float64(product.UnitStock)}
}

// CheckVariant reports whether the requested quantity of a product variant
// is in stock. Variants are always unit tracked.
func (e *Engine) CheckVariant(ctx context.Context, variantID string, quantity int) Availability {
	if quantity <= 0 {
		return Availability{Message: "requested quantity must be positive"}
	}

	rec, err := e.store.Get(ctx, store.TableVariants, store.Filter{"id": variantID})
	if err != nil {
		log.Printf("[availability] variant lookup failed id=%s: %v", variantID, err)
		return Availability{Message: "variant not found"}
	}
	variant := domain.VariantFromRecord(rec)

	if variant.Stock < quantity {
		return Availability{
			CurrentStock: float64(variant.Stock),
			Message:      fmt.Sprintf("only %d left of %s", variant.Stock, variant.Name),
		}
	}
	return Availability{Available: true, CurrentStock: float64(variant.Stock)}
}
