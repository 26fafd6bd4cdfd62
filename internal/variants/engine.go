package variants

import (
	"fmt"

	"github.com/enstockapp/mono-stock/internal/platform/httpx"
)

// Enumerate produces the full cartesian product of one option per dimension.
// Order is deterministic (dimension order, then option order within each
// dimension) but carries no meaning: every combination is canonicalised
// before comparison. Zero dimensions yield no combinations.
func Enumerate(dims []Variant) []Combination {
	if len(dims) == 0 {
		return nil
	}

	combos := [][]int64{nil}
	for _, dim := range dims {
		next := make([][]int64, 0, len(combos)*len(dim.Options))
		for _, prefix := range combos {
			for _, opt := range dim.Options {
				extended := make([]int64, len(prefix), len(prefix)+1)
				copy(extended, prefix)
				next = append(next, append(extended, opt.ID))
			}
		}
		combos = next
	}

	result := make([]Combination, len(combos))
	for i, ids := range combos {
		result[i] = Canonical(ids)
	}
	return result
}

// CheckCombinations validates client-supplied combinations against all of the
// tenant's configured dimensions and returns those dimensions for enumeration.
// Every combination must pick exactly one option from every dimension, so a
// tenant with N dimensions only accepts combinations of length N. The checks
// run in a fixed order so error kinds are stable:
//
//  1. every referenced option id must exist on some dimension,
//  2. each combination must reference exactly one option per configured
//     dimension (short, long and empty combinations all fail here),
//  3. no combination may reference two options of the same dimension,
//  4. no two combinations may normalise to the same sorted set.
func CheckCombinations(dims []Variant, combinations [][]int64) ([]Variant, error) {
	optionDim := make(map[int64]int64)
	for _, dim := range dims {
		for _, opt := range dim.Options {
			optionDim[opt.ID] = dim.ID
		}
	}

	for _, combination := range combinations {
		for _, optionID := range combination {
			if _, ok := optionDim[optionID]; !ok {
				return nil, fmt.Errorf("%w: option id %d does not exist", httpx.ErrNotFound, optionID)
			}
		}
	}

	for _, combination := range combinations {
		if len(combination) != len(dims) {
			return nil, fmt.Errorf("%w: every optionCombination must have length %d, got length %d in %v",
				httpx.ErrValidation, len(dims), len(combination), combination)
		}
		seenDims := make(map[int64]bool, len(combination))
		for _, optionID := range combination {
			dimID := optionDim[optionID]
			if seenDims[dimID] {
				return nil, fmt.Errorf("%w: more than one option belongs to the same dimension in combination %v",
					httpx.ErrValidation, combination)
			}
			seenDims[dimID] = true
		}
	}

	seen := make(map[string]bool, len(combinations))
	for _, combination := range combinations {
		key := Canonical(combination).Key()
		if seen[key] {
			return nil, fmt.Errorf("%w: one or more optionCombinations are identical", httpx.ErrValidation)
		}
		seen[key] = true
	}

	return dims, nil
}
