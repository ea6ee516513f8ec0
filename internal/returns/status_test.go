package returns

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pabloeorellana/orpos-backend/pkg/db/models"
	"github.com/pabloeorellana/orpos-backend/pkg/enums"
)

func TestComputeStatus(t *testing.T) {
	t.Parallel()

	productA := uuid.New()
	productB := uuid.New()
	original := []models.SaleItem{
		{ProductID: productA, Quantity: decimal.RequireFromString("2")},
		{ProductID: productB, Quantity: decimal.RequireFromString("1.5")},
	}

	cases := []struct {
		name     string
		returned map[uuid.UUID]decimal.Decimal
		want     enums.ReturnStatus
	}{
		{
			name:     "no returns",
			returned: nil,
			want:     enums.ReturnStatusNone,
		},
		{
			name: "one line partially returned",
			returned: map[uuid.UUID]decimal.Decimal{
				productA: decimal.RequireFromString("1"),
			},
			want: enums.ReturnStatusPartial,
		},
		{
			name: "one line fully returned",
			returned: map[uuid.UUID]decimal.Decimal{
				productA: decimal.RequireFromString("2"),
			},
			want: enums.ReturnStatusPartial,
		},
		{
			name: "every line fully returned",
			returned: map[uuid.UUID]decimal.Decimal{
				productA: decimal.RequireFromString("2"),
				productB: decimal.RequireFromString("1.5"),
			},
			want: enums.ReturnStatusFull,
		},
		{
			name: "fractional quantities accumulate to full",
			returned: map[uuid.UUID]decimal.Decimal{
				productA: decimal.RequireFromString("2.0"),
				productB: decimal.RequireFromString("1.50"),
			},
			want: enums.ReturnStatusFull,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ComputeStatus(original, tc.returned); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestComputeStatusDuplicateLines(t *testing.T) {
	t.Parallel()

	productA := uuid.New()
	// The same product rung up twice: 2 + 3 = 5 units sold.
	original := []models.SaleItem{
		{ProductID: productA, Quantity: decimal.RequireFromString("2")},
		{ProductID: productA, Quantity: decimal.RequireFromString("3")},
	}

	partial := map[uuid.UUID]decimal.Decimal{
		productA: decimal.RequireFromString("3"),
	}
	if got := ComputeStatus(original, partial); got != enums.ReturnStatusPartial {
		t.Fatalf("3 of 5 units returned, expected partial, got %s", got)
	}

	all := map[uuid.UUID]decimal.Decimal{
		productA: decimal.RequireFromString("5"),
	}
	if got := ComputeStatus(original, all); got != enums.ReturnStatusFull {
		t.Fatalf("5 of 5 units returned, expected full, got %s", got)
	}
}
