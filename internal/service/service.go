// Package service is the application layer between the HTTP handlers and
// the inventory engine: request validation, sale assembly, audit logging.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"dukapos/backend/internal/domain"
	"dukapos/backend/internal/inventory"
	"dukapos/backend/internal/store"
	"dukapos/backend/internal/xid"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrSaleNotFound = errors.New("sale not found")
)

type actorKey struct{}

// WithActor stamps the authenticated actor onto the context so audit
// entries can name who did what.
func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func ActorFromContext(ctx context.Context) domain.Actor {
	actor, _ := ctx.Value(actorKey{}).(domain.Actor)
	return actor
}

type Service struct {
	store               store.RecordStore
	engine              *inventory.Engine
	defaultDepartmentID string
}

func New(st store.RecordStore, engine *inventory.Engine, defaultDepartmentID string) *Service {
	return &Service{
		store:               st,
		engine:              engine,
		defaultDepartmentID: defaultDepartmentID,
	}
}

func (s *Service) ListProducts(ctx context.Context, departmentID string) ([]domain.Product, error) {
	filter := store.Filter{"active": true}
	if departmentID != "" {
		filter["department_id"] = departmentID
	}
	records, err := s.store.List(ctx, store.TableProducts, filter)
	if err != nil {
		return nil, err
	}

	products := make([]domain.Product, 0, len(records))
	for _, rec := range records {
		products = append(products, domain.ProductFromRecord(rec))
	}
	return products, nil
}

func (s *Service) CheckStockAvailability(ctx context.Context, req domain.AvailabilityRequest) (inventory.Availability, error) {
	if req.VariantID != "" {
		return s.engine.CheckVariant(ctx, req.VariantID, req.Quantity), nil
	}
	if req.ProductID == "" {
		return inventory.Availability{}, fmt.Errorf("%w: product_id or variant_id required", ErrValidation)
	}
	return s.engine.CheckProduct(ctx, req.ProductID, req.Quantity, req.TrackingHint, req.MlAmount), nil
}

// Checkout commits a sale: the sale header and its line items are written
// first, then stock is reduced through the engine. In demo mode the sale
// is flagged and stock is left alone.
func (s *Service) Checkout(ctx context.Context, req domain.CheckoutRequest) (domain.CheckoutResponse, error) {
	if len(req.Items) == 0 {
		return domain.CheckoutResponse{}, fmt.Errorf("%w: checkout needs at least one item", ErrValidation)
	}
	departmentID := req.DepartmentID
	if departmentID == "" {
		departmentID = s.defaultDepartmentID
	}

	items := make([]domain.SaleLineItem, 0, len(req.Items))
	var total int64
	saleID := xid.New("sale")

	for i, in := range req.Items {
		if in.Quantity <= 0 && in.MlAmount == nil {
			return domain.CheckoutResponse{}, fmt.Errorf("%w: item %d has no quantity", ErrValidation, i)
		}
		if in.ProductID == "" && in.VariantID == "" && !in.IsPerfumeRefill {
			return domain.CheckoutResponse{}, fmt.Errorf("%w: item %d references nothing sellable", ErrValidation, i)
		}

		unitPrice, err := s.unitPrice(ctx, in)
		if err != nil {
			return domain.CheckoutResponse{}, err
		}

		qty := in.Quantity
		if qty <= 0 {
			qty = 1
		}
		items = append(items, domain.SaleLineItem{
			ID:              xid.New("item"),
			SaleID:          saleID,
			ProductID:       in.ProductID,
			VariantID:       in.VariantID,
			Quantity:        qty,
			MlAmount:        in.MlAmount,
			IsScentMixture:  in.IsScentMixture,
			IsPerfumeRefill: in.IsPerfumeRefill,
			UnitPriceCents:  unitPrice,
		})
		total += unitPrice * int64(qty)
	}

	sale := domain.Sale{
		ID:           saleID,
		DepartmentID: departmentID,
		Status:       domain.SaleStatusCompleted,
		TotalCents:   total,
		IsDemo:       req.DemoMode,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.Insert(ctx, store.TableSales, sale.Record()); err != nil {
		return domain.CheckoutResponse{}, fmt.Errorf("persist sale: %w", err)
	}
	for _, item := range items {
		if err := s.store.Insert(ctx, store.TableItems, item.Record()); err != nil {
			return domain.CheckoutResponse{}, fmt.Errorf("persist sale item: %w", err)
		}
	}

	if err := s.engine.ReduceStock(ctx, items, departmentID, req.DemoMode); err != nil {
		// Stock was already rolled back by the mutator's compensation
		// pass, so only the sale record needs to be marked dead — a
		// restore here would fabricate inventory.
		now := time.Now().UTC()
		if updErr := s.store.Update(ctx, store.TableSales, saleID, store.Record{
			"status":      domain.SaleStatusVoided,
			"voided_at":   now,
			"voided_by":   "system",
			"void_reason": "automatic: stock reduction failed",
		}); updErr != nil {
			log.Printf("[service] WARN: auto-void of sale %s failed: %v", saleID, updErr)
		}
		return domain.CheckoutResponse{}, fmt.Errorf("reduce stock: %w", err)
	}

	s.logAudit(ctx, departmentID, "checkout", "sale", saleID,
		fmt.Sprintf("%d item(s), total %d cents, demo=%t", len(items), total, req.DemoMode))

	return domain.CheckoutResponse{
		SaleID:     saleID,
		Status:     sale.Status,
		TotalCents: total,
		ItemCount:  len(items),
		DemoMode:   req.DemoMode,
		CreatedAt:  sale.CreatedAt.Format(time.RFC3339),
	}, nil
}

// VoidSale reverses a sale through the engine and records who asked.
func (s *Service) VoidSale(ctx context.Context, saleID string, reason string) (domain.VoidSaleResponse, error) {
	if saleID == "" {
		return domain.VoidSaleResponse{}, fmt.Errorf("%w: sale_id required", ErrValidation)
	}
	if reason == "" {
		return domain.VoidSaleResponse{}, fmt.Errorf("%w: a void needs a reason", ErrValidation)
	}
	actor := ActorFromContext(ctx)
	actorID := actor.Username
	if actorID == "" {
		actorID = "unknown"
	}

	sale, err := s.engine.VoidSale(ctx, inventory.VoidRequest{
		SaleID:  saleID,
		Reason:  reason,
		ActorID: actorID,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.VoidSaleResponse{}, ErrSaleNotFound
		}
		return domain.VoidSaleResponse{}, err
	}

	s.logAudit(ctx, sale.DepartmentID, "void_sale", "sale", sale.ID, reason)

	voidedAt := ""
	if sale.VoidedAt != nil {
		voidedAt = sale.VoidedAt.Format(time.RFC3339)
	}
	return domain.VoidSaleResponse{
		SaleID:   sale.ID,
		Status:   sale.Status,
		VoidedAt: voidedAt,
	}, nil
}

// logAudit is best effort: a failed audit write is logged, never surfaced.
func (s *Service) logAudit(ctx context.Context, departmentID, action, entityType, entityID, detail string) {
	actor := ActorFromContext(ctx)
	entry := store.Record{
		"id":             xid.New("audit"),
		"department_id":  departmentID,
		"actor_username": actor.Username,
		"action":         action,
		"entity_type":    entityType,
		"entity_id":      entityID,
		"detail":         detail,
		"created_at":     time.Now().UTC(),
	}
	if err := s.store.Insert(ctx, store.TableAudit, entry); err != nil {
		log.Printf("[service] WARN: audit write failed action=%s entity=%s: %v", action, entityID, err)
	}
}

func (s *Service) unitPrice(ctx context.Context, item domain.CheckoutItem) (int64, error) {
	if item.VariantID != "" {
		rec, err := s.store.Get(ctx, store.TableVariants, store.Filter{"id": item.VariantID})
		if err != nil {
			return 0, fmt.Errorf("%w: variant %s not found", ErrValidation, item.VariantID)
		}
		variant := domain.VariantFromRecord(rec)
		prodRec, err := s.store.Get(ctx, store.TableProducts, store.Filter{"id": variant.ProductID})
		if err != nil {
			return 0, fmt.Errorf("%w: product %s not found", ErrValidation, variant.ProductID)
		}
		return domain.ProductFromRecord(prodRec).PriceCents, nil
	}
	if item.ProductID != "" {
		rec, err := s.store.Get(ctx, store.TableProducts, store.Filter{"id": item.ProductID})
		if err != nil {
			return 0, fmt.Errorf("%w: product %s not found", ErrValidation, item.ProductID)
		}
		return domain.ProductFromRecord(rec).PriceCents, nil
	}
	// Pool-drawn refill lines are priced per millilitre by the till;
	// without a product reference the server has no price of record.
	return 0, nil
}
