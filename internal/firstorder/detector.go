// Package firstorder decides whether an order is the first one placed under
// a billing email.
package firstorder

import (
	"context"
	"fmt"
)

// lookupLimit caps the lookup; two matches are enough to know the customer
// has ordered before.
const lookupLimit = 2

type OrderFinder interface {
	FindOrderIDsByBillingEmail(ctx context.Context, email string, limit int) ([]int64, error)
}

type Detector struct {
	finder OrderFinder
}

func NewDetector(finder OrderFinder) *Detector {
	return &Detector{finder: finder}
}

// IsFirstOrder reports whether at most one order matches email. Matching is
// on billing email only; the current order id is accepted for callers but
// does not change the count.
func (d *Detector) IsFirstOrder(ctx context.Context, email string, orderID int64) (bool, error) {
	ids, err := d.finder.FindOrderIDsByBillingEmail(ctx, email, lookupLimit)
	if err != nil {
		return false, fmt.Errorf("find orders for order %d: %w", orderID, err)
	}

	return len(ids) <= 1, nil
}
