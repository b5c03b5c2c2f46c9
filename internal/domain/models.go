package domain

import "time"

const (
	TrackingUnit   = "unit"
	TrackingVolume = "volume"
)

const (
	SaleStatusCompleted = "completed"
	SaleStatusVoided    = "voided"
)

type Product struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	TrackingMode   string  `json:"tracking_mode"`
	UnitStock      int     `json:"unit_stock"`
	VolumeStockMl  float64 `json:"volume_stock_ml"`
	DepartmentID   string  `json:"department_id"`
	IsMasterVolume bool    `json:"is_master_volume"`
	PriceCents     int64   `json:"price_cents"`
	Active         bool    `json:"active"`
}

type ProductVariant struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Stock     int    `json:"stock"`
}

// SaleLineItem is one entry of a committed sale. ProductID and VariantID are
// empty when the line carries no such reference; perfume-refill lines drawn
// from the shared master pool have no product reference of their own.
type SaleLineItem struct {
	ID              string   `json:"id"`
	SaleID          string   `json:"sale_id"`
	ProductID       string   `json:"product_id,omitempty"`
	VariantID       string   `json:"variant_id,omitempty"`
	Quantity        int      `json:"quantity"`
	MlAmount        *float64 `json:"ml_amount,omitempty"`
	IsScentMixture  bool     `json:"is_scent_mixture"`
	IsPerfumeRefill bool     `json:"is_perfume_refill"`
	UnitPriceCents  int64    `json:"unit_price_cents"`
}

type Sale struct {
	ID           string     `json:"id"`
	DepartmentID string     `json:"department_id"`
	Status       string     `json:"status"`
	TotalCents   int64      `json:"total_cents"`
	IsDemo       bool       `json:"is_demo"`
	CreatedAt    time.Time  `json:"created_at"`
	VoidedAt     *time.Time `json:"voided_at,omitempty"`
	VoidedBy     string     `json:"voided_by,omitempty"`
	VoidReason   string     `json:"void_reason,omitempty"`
}

type Actor struct {
	Username string
	Role     string
}

type UserAccount struct {
	Username  string    `json:"username"`
	Password  string    `json:"password"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type CheckoutItem struct {
	ProductID       string   `json:"product_id,omitempty"`
	VariantID       string   `json:"variant_id,omitempty"`
	Quantity        int      `json:"quantity"`
	MlAmount        *float64 `json:"ml_amount,omitempty"`
	IsScentMixture  bool     `json:"is_scent_mixture"`
	IsPerfumeRefill bool     `json:"is_perfume_refill"`
}

type CheckoutRequest struct {
	DepartmentID string         `json:"department_id"`
	DemoMode     bool           `json:"demo_mode"`
	Items        []CheckoutItem `json:"items"`
}

type CheckoutResponse struct {
	SaleID     string `json:"sale_id"`
	Status     string `json:"status"`
	TotalCents int64  `json:"total_cents"`
	ItemCount  int    `json:"item_count"`
	DemoMode   bool   `json:"demo_mode"`
	CreatedAt  string `json:"created_at"`
}

type VoidSaleRequest struct {
	SaleID     string `json:"sale_id"`
	Reason     string `json:"reason"`
	ManagerPIN string `json:"manager_pin"`
}

type VoidSaleResponse struct {
	SaleID   string `json:"sale_id"`
	Status   string `json:"status"`
	VoidedAt string `json:"voided_at"`
}

type AvailabilityRequest struct {
	ProductID    string   `json:"product_id,omitempty"`
	VariantID    string   `json:"variant_id,omitempty"`
	Quantity     int      `json:"quantity"`
	TrackingHint string   `json:"tracking_hint,omitempty"`
	MlAmount     *float64 `json:"ml_amount,omitempty"`
}

type AuditLog struct {
	ID            string    `json:"id"`
	DepartmentID  string    `json:"department_id"`
	ActorUsername string    `json:"actor_username"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}
