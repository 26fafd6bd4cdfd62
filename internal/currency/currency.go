// Package currency holds the currency codes supported per tenant and the
// conversion rules applied to stock-transaction amounts.
package currency

import (
	"fmt"
	"math"

	"github.com/enstockapp/mono-stock/internal/platform/httpx"
)

// Code identifies a supported currency.
type Code string

// Supported currencies. A tenant's main currency is one of these.
const (
	USD Code = "USD"
	EUR Code = "EUR"
	VES Code = "VES"
	COP Code = "COP"
)

// Valid reports whether the code belongs to the supported set.
func (c Code) Valid() bool {
	switch c {
	case USD, EUR, VES, COP:
		return true
	}
	return false
}

// Exchange groups the cross-currency fields carried by a stock transaction.
// For same-currency documents From == To == the document currency and Rate is 1.
type Exchange struct {
	From Code
	To   Code
	Rate float64
}

// AmountInMain converts an amount from the transaction currency into the
// tenant's main currency. The rate is anchored on exchangeFrom: when the rate
// is expressed from the main currency it multiplies, otherwise it divides.
// No rounding happens here; callers round once at the point of persistence.
// Pure on purpose: the create and reversal paths must convert identically.
func AmountInMain(main, transaction, exchangeFrom Code, rate, amount float64) float64 {
	if transaction == main {
		return amount
	}
	if exchangeFrom == main {
		return amount * rate
	}
	return amount / rate
}

// NormalizeExchange validates the exchange fields of a stock transaction
// against the tenant's main currency and returns the values to persist.
// It must run before any database mutation.
func NormalizeExchange(transaction, main Code, ex Exchange) (Exchange, error) {
	if transaction == main {
		return Exchange{From: transaction, To: transaction, Rate: 1}, nil
	}

	if ex.From == "" || ex.To == "" || ex.Rate == 0 {
		return Exchange{}, fmt.Errorf("%w: currencyExchangeFrom, currencyExchangeTo and exchangeRate are required", httpx.ErrValidation)
	}
	if ex.Rate < 0 || math.IsNaN(ex.Rate) || math.IsInf(ex.Rate, 0) {
		return Exchange{}, fmt.Errorf("%w: exchangeRate must be a positive finite number", httpx.ErrValidation)
	}
	if ex.From == ex.To {
		return Exchange{}, fmt.Errorf("%w: currencyExchangeFrom and currencyExchangeTo must be different", httpx.ErrValidation)
	}
	if !inPair(ex.From, transaction, main) || !inPair(ex.To, transaction, main) {
		return Exchange{}, fmt.Errorf("%w: currencyExchangeFrom and currencyExchangeTo must be %s or %s", httpx.ErrValidation, transaction, main)
	}
	return ex, nil
}

func inPair(c, a, b Code) bool {
	return c == a || c == b
}
