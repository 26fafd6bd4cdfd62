// Package products manages tenant products and their stock rows (SKUs).
package products

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/enstockapp/mono-stock/internal/variants"
)

// Kind distinguishes single-SKU products from variant-bearing ones.
type Kind string

// Product kinds.
const (
	KindUnique Kind = "UNIQUE"
	KindParent Kind = "PARENT"
)

// Status is the lifecycle state of a product or SKU. Inactive is terminal and
// filtered out of listings and new transactions by default.
type Status string

// Lifecycle states.
const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
)

// ErrNotParent is returned when a variant operation targets a unique product.
var ErrNotParent = errors.New("product has no variant dimensions")

// Product is a sellable item owned by one tenant. The cost triad (BaseCost,
// AverageCost, TotalForAverageCost) is maintained exclusively by purchase
// lines; Price is the sale price and independent of cost.
type Product struct {
	ID          int64
	ClientID    uuid.UUID
	Name        string
	Description string
	Kind        Kind
	Price       float64
	BaseCost    float64
	// AverageCost is meaningless while TotalForAverageCost is zero.
	AverageCost         float64
	TotalForAverageCost float64
	Status              Status
	Stocks              []ProductStock
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// ProductStock is one stockable unit. Unique products own exactly one row with
// an empty combination; parent products own one row per option combination of
// their dimensions, never a subset.
type ProductStock struct {
	ID                int64
	ProductID         int64
	OptionCombination variants.Combination
	Quantity          float64
	// InitialQuantity is an immutable snapshot taken at creation.
	InitialQuantity float64
	Cost            float64
	Status          Status
}
