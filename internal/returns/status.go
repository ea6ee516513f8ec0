package returns

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pabloeorellana/orpos-backend/pkg/db/models"
	"github.com/pabloeorellana/orpos-backend/pkg/enums"
)

// ComputeStatus derives a sale's return status from its original line
// items and the cumulative returned quantity per product across every
// return ever issued against the sale. Multiple partial returns can
// accumulate to full, so the whole history matters, never just the
// latest return.
func ComputeStatus(original []models.SaleItem, returned map[uuid.UUID]decimal.Decimal) enums.ReturnStatus {
	if len(returned) == 0 {
		return enums.ReturnStatusNone
	}

	// A sale may carry several lines for the same product, so the
	// comparison has to be per-product total, not per-line.
	sold := make(map[uuid.UUID]decimal.Decimal, len(original))
	for _, item := range original {
		sold[item.ProductID] = sold[item.ProductID].Add(item.Quantity)
	}

	any := false
	full := true
	for productID, soldQty := range sold {
		qty := returned[productID]
		if qty.IsPositive() {
			any = true
		}
		if qty.LessThan(soldQty) {
			full = false
		}
	}
	if !any {
		return enums.ReturnStatusNone
	}
	if full {
		return enums.ReturnStatusFull
	}
	return enums.ReturnStatusPartial
}
