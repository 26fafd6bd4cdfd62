// Package sales implements outbound stock documents. Sales touch only on-hand
// quantity and are priced at the product's current sale price; the cost triad
// is a purchase-side concept and never mutated here.
package sales

import (
	"time"

	"github.com/google/uuid"

	"github.com/enstockapp/mono-stock/internal/currency"
)

// Sale is an outbound stock document.
type Sale struct {
	ID            int64
	ClientID      uuid.UUID
	CustomerID    int64
	DocumentType  string
	InvoiceNumber string
	ControlNumber string
	Date          time.Time
	Currency      currency.Code
	Exchange      currency.Exchange
	Total         float64
	Comment       string
	IsActive      bool
	Lines         []Line
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Line is one sold SKU position. Amount is the unit price captured from the
// product at creation time, not supplied by the client.
type Line struct {
	ID       int64
	SaleID   int64
	StockID  int64
	Quantity float64
	Amount   float64
	IsActive bool
}
