package domain

import (
	"time"

	"dukapos/backend/internal/store"
)

// Record codecs. The record store hands back JSON-shaped maps (numbers as
// float64, timestamps as RFC 3339 strings from postgres, native time.Time
// from the in-memory store), so every accessor coerces defensively.

func ProductFromRecord(r store.Record) Product {
	return Product{
		ID:             asString(r["id"]),
		Name:           asString(r["name"]),
		TrackingMode:   asString(r["tracking_mode"]),
		UnitStock:      asInt(r["unit_stock"]),
		VolumeStockMl:  asFloat(r["volume_stock_ml"]),
		DepartmentID:   asString(r["department_id"]),
		IsMasterVolume: asBool(r["is_master_volume"]),
		PriceCents:     int64(asFloat(r["price_cents"])),
		Active:         asBool(r["active"]),
	}
}

func (p Product) Record() store.Record {
	return store.Record{
		"id":               p.ID,
		"name":             p.Name,
		"tracking_mode":    p.TrackingMode,
		"unit_stock":       p.UnitStock,
		"volume_stock_ml":  p.VolumeStockMl,
		"department_id":    p.DepartmentID,
		"is_master_volume": p.IsMasterVolume,
		"price_cents":      p.PriceCents,
		"active":           p.Active,
	}
}

func VariantFromRecord(r store.Record) ProductVariant {
	return ProductVariant{
		ID:        asString(r["id"]),
		ProductID: asString(r["product_id"]),
		Name:      asString(r["name"]),
		Stock:     asInt(r["stock"]),
	}
}

func (v ProductVariant) Record() store.Record {
	return store.Record{
		"id":         v.ID,
		"product_id": v.ProductID,
		"name":       v.Name,
		"stock":      v.Stock,
	}
}

func LineItemFromRecord(r store.Record) SaleLineItem {
	item := SaleLineItem{
		ID:              asString(r["id"]),
		SaleID:          asString(r["sale_id"]),
		ProductID:       asString(r["product_id"]),
		VariantID:       asString(r["variant_id"]),
		Quantity:        asInt(r["quantity"]),
		IsScentMixture:  asBool(r["is_scent_mixture"]),
		IsPerfumeRefill: asBool(r["is_perfume_refill"]),
		UnitPriceCents:  int64(asFloat(r["unit_price_cents"])),
	}
	if r["ml_amount"] != nil {
		ml := asFloat(r["ml_amount"])
		item.MlAmount = &ml
	}
	return item
}

func (i SaleLineItem) Record() store.Record {
	rec := store.Record{
		"id":                i.ID,
		"sale_id":           i.SaleID,
		"quantity":          i.Quantity,
		"is_scent_mixture":  i.IsScentMixture,
		"is_perfume_refill": i.IsPerfumeRefill,
		"unit_price_cents":  i.UnitPriceCents,
	}
	if i.ProductID != "" {
		rec["product_id"] = i.ProductID
	}
	if i.VariantID != "" {
		rec["variant_id"] = i.VariantID
	}
	if i.MlAmount != nil {
		rec["ml_amount"] = *i.MlAmount
	}
	return rec
}

func SaleFromRecord(r store.Record) Sale {
	sale := Sale{
		ID:           asString(r["id"]),
		DepartmentID: asString(r["department_id"]),
		Status:       asString(r["status"]),
		TotalCents:   int64(asFloat(r["total_cents"])),
		IsDemo:       asBool(r["is_demo"]),
		CreatedAt:    asTime(r["created_at"]),
		VoidedBy:     asString(r["voided_by"]),
		VoidReason:   asString(r["void_reason"]),
	}
	if r["voided_at"] != nil {
		at := asTime(r["voided_at"])
		if !at.IsZero() {
			sale.VoidedAt = &at
		}
	}
	return sale
}

func (s Sale) Record() store.Record {
	rec := store.Record{
		"id":            s.ID,
		"department_id": s.DepartmentID,
		"status":        s.Status,
		"total_cents":   s.TotalCents,
		"is_demo":       s.IsDemo,
		"created_at":    s.CreatedAt,
	}
	if s.VoidedAt != nil {
		rec["voided_at"] = *s.VoidedAt
		rec["voided_by"] = s.VoidedBy
		rec["void_reason"] = s.VoidReason
	}
	return rec
}

func UserFromRecord(r store.Record) UserAccount {
	return UserAccount{
		Username:  asString(r["username"]),
		Password:  asString(r["password"]),
		Role:      asString(r["role"]),
		Active:    asBool(r["active"]),
		CreatedAt: asTime(r["created_at"]),
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}

func asInt(v any) int {
	return int(asFloat(v))
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}

func asTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed
		}
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed
		}
	}
	return time.Time{}
}
