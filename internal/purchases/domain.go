// Package purchases implements inbound stock documents: creation applies
// every line to the quantity ledger and the moving-average cost accountant,
// deletion soft-deletes the document and reverses both exactly.
package purchases

import (
	"time"

	"github.com/google/uuid"

	"github.com/enstockapp/mono-stock/internal/currency"
)

// Purchase is an inbound stock document.
type Purchase struct {
	ID            int64
	ClientID      uuid.UUID
	SupplierID    int64
	DocumentType  string
	InvoiceNumber string
	ControlNumber string
	Date          time.Time
	Currency      currency.Code
	// Exchange is the normalized exchange context recorded at creation and
	// replayed verbatim on reversal.
	Exchange  currency.Exchange
	Total     float64
	Comment   string
	IsActive  bool
	Lines     []Line
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Line is one purchased SKU position. Amount is the unit cost in the
// document's currency.
type Line struct {
	ID         int64
	PurchaseID int64
	StockID    int64
	ProductID  int64
	Quantity   float64
	Amount     float64
	// UpdateProductBaseCost opts the line into overwriting the product's
	// base-cost anchor with this line's converted unit cost.
	UpdateProductBaseCost bool
	IsActive              bool
}
