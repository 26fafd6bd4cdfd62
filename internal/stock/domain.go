// Package stock implements the two primitives every stock-affecting operation
// goes through: the quantity ledger mutating ProductStock rows and the
// moving-average cost accountant mutating Product cost fields. Purchases,
// sales and manual adjustments all share this single mutation path.
package stock

import (
	"errors"
	"math"
)

// Direction tells the ledger which way a quantity delta applies.
type Direction int

const (
	// Increment adds the delta to the on-hand quantity.
	Increment Direction = iota
	// Decrement subtracts it.
	Decrement
)

// Action distinguishes applying a purchase line from reversing it.
type Action int

const (
	// ActionCreate applies the line's effect.
	ActionCreate Action = iota
	// ActionDelete reverses it exactly.
	ActionDelete
)

// StockLevel is the ledger's view of a ProductStock row after a mutation.
type StockLevel struct {
	StockID   int64
	ProductID int64
	Quantity  float64
}

// CostState is the cost triad persisted on a product. AverageCost is
// meaningless while TotalForAverageCost is zero; NextCostState keeps the
// invariant by resetting the average to BaseCost when the basis is depleted.
type CostState struct {
	BaseCost            float64
	AverageCost         float64
	TotalForAverageCost float64
}

// ErrStockNotFound indicates the referenced ProductStock row is missing.
var ErrStockNotFound = errors.New("stock: product stock not found")

// ErrProductNotFound indicates the referenced product row is missing.
var ErrProductNotFound = errors.New("stock: product not found")

// SignedDelta converts a positive quantity and a direction into the signed
// delta the ledger applies. Quantities are never clamped at zero here; the
// negative-stock policy is enforced by callers.
func SignedDelta(quantity float64, dir Direction) float64 {
	if dir == Decrement {
		return -quantity
	}
	return quantity
}

// Round2 rounds to two decimal places. Rounding happens only at the point of
// persistence, never during intermediate arithmetic.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// NextCostState recomputes the moving-average cost triad for one purchase
// line. The cumulative cost basis is reconstructed from the stored average
// and quantity divisor rather than stored directly, so create and delete are
// exact mirrors of each other.
func NextCostState(cur CostState, quantity, unitCostMain float64, updateBaseCost bool, action Action) CostState {
	currentTotalCost := cur.TotalForAverageCost * cur.AverageCost
	delta := quantity * unitCostMain

	next := cur
	if action == ActionDelete {
		next.TotalForAverageCost = cur.TotalForAverageCost - quantity
		currentTotalCost -= delta
	} else {
		next.TotalForAverageCost = cur.TotalForAverageCost + quantity
		currentTotalCost += delta
	}

	if updateBaseCost {
		next.BaseCost = Round2(unitCostMain)
	}

	// Depleted basis: the average has no weight left. Fall back to the base
	// cost anchor, matching how averageCost is seeded at product creation.
	if next.TotalForAverageCost == 0 {
		next.AverageCost = next.BaseCost
		return next
	}

	next.AverageCost = Round2(currentTotalCost / next.TotalForAverageCost)
	return next
}

// DocumentTotal computes a stock transaction's total from its lines,
// rounded once to two decimals.
func DocumentTotal(lines []Line) float64 {
	var total float64
	for _, line := range lines {
		total += line.Quantity * line.Amount
	}
	return Round2(total)
}

// Line is the quantity/amount pair every stock-transaction item carries.
type Line struct {
	Quantity float64
	Amount   float64
}
