package billing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/matthewbaird/propmanage/internal/types"
)

// Rates holds the utility unit prices applied to meter usage.
type Rates struct {
	WaterUnitPrice decimal.Decimal
	ElecUnitPrice  decimal.Decimal
}

// DefaultRates returns 5.0 per unit of water and 1.0 per unit of electricity.
func DefaultRates() Rates {
	return Rates{
		WaterUnitPrice: decimal.NewFromInt(5),
		ElecUnitPrice:  decimal.NewFromInt(1),
	}
}

// Reading is a pair of cumulative meter values taken at one time.
type Reading struct {
	Water decimal.Decimal
	Elec  decimal.Decimal
}

// ApplyReading prices the usage between the room's last readings and the
// current ones. It returns the bill with recomputed utility fees and total,
// and the room with its last readings advanced. On a regressing reading it
// returns a *ValidationError and both inputs are left as they were.
func ApplyReading(bill types.Bill, room types.Room, current Reading, rates Rates) (types.Bill, types.Room, error) {
	if current.Water.LessThan(room.LastWaterReading) {
		return bill, room, &ValidationError{
			Field: "current_water",
			Message: fmt.Sprintf("current water reading %s is below the last reading %s",
				current.Water, room.LastWaterReading),
		}
	}
	if current.Elec.LessThan(room.LastElecReading) {
		return bill, room, &ValidationError{
			Field: "current_elec",
			Message: fmt.Sprintf("current electricity reading %s is below the last reading %s",
				current.Elec, room.LastElecReading),
		}
	}

	waterUsage := current.Water.Sub(room.LastWaterReading)
	elecUsage := current.Elec.Sub(room.LastElecReading)

	bill.WaterFee = waterUsage.Mul(rates.WaterUnitPrice)
	bill.ElecFee = elecUsage.Mul(rates.ElecUnitPrice)
	bill.TotalAmount = Total(bill)

	room.LastWaterReading = current.Water
	room.LastElecReading = current.Elec
	return bill, room, nil
}

// Total returns rent + water + electricity for a bill.
func Total(b types.Bill) decimal.Decimal {
	return b.RentFee.Add(b.WaterFee).Add(b.ElecFee)
}
