// Package adjustments implements manual stock corrections. An adjustment goes
// through the same quantity ledger as purchase and sale lines but never
// touches product cost fields.
package adjustments

import (
	"time"

	"github.com/google/uuid"

	"github.com/enstockapp/mono-stock/internal/stock"
)

// Adjustment is one recorded manual stock correction.
type Adjustment struct {
	ID        int64
	ClientID  uuid.UUID
	StockID   int64
	Direction stock.Direction
	Quantity  float64
	Reason    string
	// ResultingQuantity is the SKU's on-hand quantity right after the
	// adjustment applied.
	ResultingQuantity float64
	CreatedBy         int64
	CreatedAt         time.Time
}
