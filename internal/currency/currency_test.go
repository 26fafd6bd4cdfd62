package currency

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/enstockapp/mono-stock/internal/platform/httpx"
)

func TestAmountInMainIdentity(t *testing.T) {
	for _, amount := range []float64{0, 1, 99.99, 123456.78} {
		require.Equal(t, amount, AmountInMain(USD, USD, EUR, 42.5, amount))
	}
}

func TestAmountInMainAnchoredOnMain(t *testing.T) {
	// Rate 36.5 expressed from USD: 10 units convert by multiplication.
	got := AmountInMain(USD, VES, USD, 36.5, 10)
	require.InDelta(t, 365.0, got, 1e-9)
}

func TestAmountInMainAnchoredOnTransaction(t *testing.T) {
	// Rate expressed from the transaction currency divides instead.
	got := AmountInMain(USD, VES, VES, 36.5, 365)
	require.InDelta(t, 10.0, got, 1e-9)
}

func TestAmountInMainRoundTrip(t *testing.T) {
	const rate = 1.0843
	for _, amount := range []float64{1, 7.77, 2500.50} {
		converted := AmountInMain(USD, EUR, EUR, rate, amount)
		back := AmountInMain(USD, EUR, USD, rate, converted)
		require.InDelta(t, amount, back, 1e-9)
	}
}

func TestNormalizeExchangeSameCurrency(t *testing.T) {
	// Client-supplied exchange fields are ignored for same-currency documents.
	ex, err := NormalizeExchange(USD, USD, Exchange{From: EUR, To: VES, Rate: 99})
	require.NoError(t, err)
	require.Equal(t, Exchange{From: USD, To: USD, Rate: 1}, ex)
}

func TestNormalizeExchangeMissingFields(t *testing.T) {
	_, err := NormalizeExchange(EUR, USD, Exchange{From: EUR, To: USD})
	require.ErrorIs(t, err, httpx.ErrValidation)

	_, err = NormalizeExchange(EUR, USD, Exchange{Rate: 1.1})
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestNormalizeExchangeRejectsNonPositiveRates(t *testing.T) {
	for _, rate := range []float64{-1.5, math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := NormalizeExchange(EUR, USD, Exchange{From: EUR, To: USD, Rate: rate})
		require.ErrorIs(t, err, httpx.ErrValidation, "rate %v", rate)
	}
}

func TestNormalizeExchangeSameFromTo(t *testing.T) {
	_, err := NormalizeExchange(EUR, USD, Exchange{From: EUR, To: EUR, Rate: 1.1})
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestNormalizeExchangeThirdCurrency(t *testing.T) {
	_, err := NormalizeExchange(EUR, USD, Exchange{From: EUR, To: VES, Rate: 1.1})
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestNormalizeExchangeValid(t *testing.T) {
	ex, err := NormalizeExchange(EUR, USD, Exchange{From: USD, To: EUR, Rate: 1.1})
	require.NoError(t, err)
	require.Equal(t, Exchange{From: USD, To: EUR, Rate: 1.1}, ex)
}
