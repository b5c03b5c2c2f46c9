package service

import (
	"context"
	"errors"
	"testing"

	"dukapos/backend/internal/domain"
	"dukapos/backend/internal/inventory"
	"dukapos/backend/internal/store"
	"dukapos/backend/internal/store/memory"
)

func newTestService() (*Service, *memory.Store) {
	st := memory.NewSeeded()
	engine := inventory.NewEngine(st)
	return New(st, engine, "dept-retail"), st
}

func unitStock(t *testing.T, st store.RecordStore, id string) int {
	t.Helper()
	rec, err := st.Get(context.Background(), store.TableProducts, store.Filter{"id": id})
	if err != nil {
		t.Fatalf("product lookup failed: %v", err)
	}
	return domain.ProductFromRecord(rec).UnitStock
}

func TestListProducts(t *testing.T) {
	svc, _ := newTestService()

	products, err := svc.ListProducts(context.Background(), "dept-perfume")
	if err != nil {
		t.Fatalf("list products failed: %v", err)
	}
	if len(products) != 3 {
		t.Fatalf("expected 3 perfume products, got %d", len(products))
	}
	for _, p := range products {
		if p.DepartmentID != "dept-perfume" {
			t.Fatalf("expected only perfume department products, got %s", p.DepartmentID)
		}
	}
}

func TestCheckoutReducesStock(t *testing.T) {
	svc, st := newTestService()
	ctx := WithActor(context.Background(), domain.Actor{Username: "kasi", Role: "cashier"})

	resp, err := svc.Checkout(ctx, domain.CheckoutRequest{
		DepartmentID: "dept-retail",
		Items: []domain.CheckoutItem{
			{ProductID: "prod-soap-01", Quantity: 2},
			{ProductID: "prod-sugar-01", Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if resp.SaleID == "" || resp.Status != domain.SaleStatusCompleted {
		t.Fatalf("unexpected checkout response %+v", resp)
	}
	if resp.TotalCents != 2*5500+16500 {
		t.Fatalf("unexpected total %d", resp.TotalCents)
	}

	if got := unitStock(t, st, "prod-soap-01"); got != 118 {
		t.Fatalf("expected soap stock 118, got %d", got)
	}
	if got := unitStock(t, st, "prod-sugar-01"); got != 79 {
		t.Fatalf("expected sugar stock 79, got %d", got)
	}

	// The sale and its lines landed.
	items, err := st.List(ctx, store.TableItems, store.Filter{"sale_id": resp.SaleID})
	if err != nil {
		t.Fatalf("list sale items failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 sale items, got %d", len(items))
	}
}

func TestCheckoutDemoModeLeavesStockAlone(t *testing.T) {
	svc, st := newTestService()
	ctx := WithActor(context.Background(), domain.Actor{Username: "kasi", Role: "cashier"})

	resp, err := svc.Checkout(ctx, domain.CheckoutRequest{
		DepartmentID: "dept-retail",
		DemoMode:     true,
		Items: []domain.CheckoutItem{
			{ProductID: "prod-soap-01", Quantity: 10},
		},
	})
	if err != nil {
		t.Fatalf("demo checkout failed: %v", err)
	}
	if !resp.DemoMode {
		t.Fatalf("expected demo flag in response")
	}
	if got := unitStock(t, st, "prod-soap-01"); got != 120 {
		t.Fatalf("expected stock untouched at 120, got %d", got)
	}

	rec, err := st.Get(ctx, store.TableSales, store.Filter{"id": resp.SaleID})
	if err != nil {
		t.Fatalf("sale lookup failed: %v", err)
	}
	if !domain.SaleFromRecord(rec).IsDemo {
		t.Fatalf("expected sale flagged as demo")
	}
}

func TestCheckoutValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Checkout(ctx, domain.CheckoutRequest{}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for empty cart, got %v", err)
	}

	_, err := svc.Checkout(ctx, domain.CheckoutRequest{
		Items: []domain.CheckoutItem{{ProductID: "prod-soap-01"}},
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for zero quantity, got %v", err)
	}

	_, err = svc.Checkout(ctx, domain.CheckoutRequest{
		Items: []domain.CheckoutItem{{ProductID: "prod-ghost", Quantity: 1}},
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown product, got %v", err)
	}
}

func TestVoidSaleRestoresStockAndWritesAudit(t *testing.T) {
	svc, st := newTestService()
	ctx := WithActor(context.Background(), domain.Actor{Username: "admin", Role: "admin"})

	resp, err := svc.Checkout(ctx, domain.CheckoutRequest{
		DepartmentID: "dept-retail",
		Items: []domain.CheckoutItem{
			{ProductID: "prod-soap-01", Quantity: 5},
		},
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if got := unitStock(t, st, "prod-soap-01"); got != 115 {
		t.Fatalf("expected stock 115 after checkout, got %d", got)
	}

	voidResp, err := svc.VoidSale(ctx, resp.SaleID, "customer changed mind")
	if err != nil {
		t.Fatalf("void failed: %v", err)
	}
	if voidResp.Status != domain.SaleStatusVoided || voidResp.VoidedAt == "" {
		t.Fatalf("unexpected void response %+v", voidResp)
	}
	if got := unitStock(t, st, "prod-soap-01"); got != 120 {
		t.Fatalf("expected stock restored to 120, got %d", got)
	}

	logs, err := st.List(ctx, store.TableAudit, store.Filter{"action": "void_sale"})
	if err != nil {
		t.Fatalf("audit list failed: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected 1 void audit entry, got %d", len(logs))
	}
	if logs[0]["actor_username"] != "admin" || logs[0]["entity_id"] != resp.SaleID {
		t.Fatalf("unexpected audit entry %v", logs[0])
	}
}

// brokenAdjustStore fails every stock adjustment.
type brokenAdjustStore struct {
	store.RecordStore
}

func (b *brokenAdjustStore) Adjust(context.Context, string, string, string, float64, bool) (float64, error) {
	return 0, errors.New("simulated adjust failure")
}

func TestCheckoutFailureVoidsSaleWithoutRestoring(t *testing.T) {
	inner := memory.NewSeeded()
	st := &brokenAdjustStore{RecordStore: inner}
	svc := New(st, inventory.NewEngine(st), "dept-retail")
	ctx := context.Background()

	_, err := svc.Checkout(ctx, domain.CheckoutRequest{
		DepartmentID: "dept-retail",
		Items: []domain.CheckoutItem{
			{ProductID: "prod-soap-01", Quantity: 2},
		},
	})
	if err == nil {
		t.Fatalf("expected checkout to fail when stock cannot be reduced")
	}

	if got := unitStock(t, inner, "prod-soap-01"); got != 120 {
		t.Fatalf("expected stock untouched at 120, got %d", got)
	}

	sales, err := inner.List(ctx, store.TableSales, store.Filter{"status": domain.SaleStatusVoided})
	if err != nil {
		t.Fatalf("list sales failed: %v", err)
	}
	if len(sales) != 1 {
		t.Fatalf("expected the dead sale marked voided, got %d", len(sales))
	}
	if sales[0]["voided_by"] != "system" {
		t.Fatalf("expected system auto-void, got %v", sales[0]["voided_by"])
	}
}

func TestVoidSaleValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.VoidSale(ctx, "", "reason"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for empty sale id, got %v", err)
	}
	if _, err := svc.VoidSale(ctx, "sale-1", ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for empty reason, got %v", err)
	}
	if _, err := svc.VoidSale(ctx, "sale-ghost", "reason"); !errors.Is(err, ErrSaleNotFound) {
		t.Fatalf("expected ErrSaleNotFound, got %v", err)
	}
}

func TestCheckStockAvailability(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	result, err := svc.CheckStockAvailability(ctx, domain.AvailabilityRequest{ProductID: "prod-soap-01", Quantity: 2})
	if err != nil {
		t.Fatalf("availability failed: %v", err)
	}
	if !result.Available {
		t.Fatalf("expected available, got %+v", result)
	}

	result, err = svc.CheckStockAvailability(ctx, domain.AvailabilityRequest{VariantID: "var-spray-200ml", Quantity: 20})
	if err != nil {
		t.Fatalf("availability failed: %v", err)
	}
	if result.Available {
		t.Fatalf("expected variant unavailable, got %+v", result)
	}

	if _, err := svc.CheckStockAvailability(ctx, domain.AvailabilityRequest{Quantity: 1}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation without a reference, got %v", err)
	}
}
