// Package variants manages a tenant's variant dimensions (e.g. Size, Color)
// and the option-combination algebra that identifies SKUs of parent products.
package variants

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Variant is one dimension of product variation.
type Variant struct {
	ID          int64
	ClientID    uuid.UUID
	Name        string
	Description string
	// CanEdit flips to false once any product binds the dimension into a
	// combination; from then on its option set is frozen to preserve the
	// identity of existing SKUs.
	CanEdit   bool
	Options   []Option
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Option is a discrete value along a dimension.
type Option struct {
	ID        int64
	VariantID int64
	Name      string
}

// Combination is a set of option ids, one per dimension, held in canonical
// ascending order. Combinations compare as sorted sets, never as ordered lists.
type Combination []int64

// Canonical copies and sorts the ids into combination form.
func Canonical(ids []int64) Combination {
	comb := make(Combination, len(ids))
	copy(comb, ids)
	sort.Slice(comb, func(i, j int) bool { return comb[i] < comb[j] })
	return comb
}

// Key renders the canonical combination as a comparable string.
func (c Combination) Key() string {
	parts := make([]string, len(c))
	for i, id := range c {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

// Equal reports set equality of two canonical combinations.
func (c Combination) Equal(other Combination) bool {
	if len(c) != len(other) {
		return false
	}
	for i := range c {
		if c[i] != other[i] {
			return false
		}
	}
	return true
}
