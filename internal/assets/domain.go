package assets

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/siamledger/siamledger/internal/ledger"
)

// DepreciationMethod selects the schedule shape.
type DepreciationMethod string

const (
	MethodStraightLine     DepreciationMethod = "STRAIGHT_LINE"
	MethodDecliningBalance DepreciationMethod = "DECLINING_BALANCE"
)

// AssetStatus enumerates the asset lifecycle.
type AssetStatus string

const (
	StatusActive   AssetStatus = "ACTIVE"
	StatusDisposed AssetStatus = "DISPOSED"
)

// Period is one depreciation month.
type Period struct {
	Year  int
	Month time.Month
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// Next returns the following month.
func (p Period) Next() Period {
	if p.Month == time.December {
		return Period{Year: p.Year + 1, Month: time.January}
	}
	return Period{Year: p.Year, Month: p.Month + 1}
}

// ScheduleEntry is one month of planned depreciation. Posted flips when the
// period run writes the entry to the ledger.
type ScheduleEntry struct {
	Period Period
	Amount ledger.Money
	Posted bool
}

// Asset is a fixed asset register record. The depreciation schedule is
// computed once at registration and consumed month by month.
type Asset struct {
	ID           string
	Name         string
	Department   string
	PurchaseDate time.Time
	Cost         ledger.Money
	SalvageValue ledger.Money
	Method       DepreciationMethod
	LifeYears    int
	Status       AssetStatus
	Accumulated  ledger.Money
	VoucherID    uuid.UUID
	Schedule     []ScheduleEntry
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// BookValue is cost less depreciation posted so far.
func (a Asset) BookValue() ledger.Money {
	return a.Cost - a.Accumulated
}

// buildSchedule lays the depreciable base out over LifeYears*12 months
// starting at the purchase month. Each year's charge is split as annual/12
// with the 12th month absorbing the year's rounding remainder, and the very
// last month absorbs whatever is left so accumulated lands exactly on the
// base.
func (a Asset) buildSchedule() []ScheduleEntry {
	base := a.Cost - a.SalvageValue
	if base <= 0 || a.LifeYears <= 0 {
		return nil
	}
	annuals := make([]ledger.Money, a.LifeYears)
	switch a.Method {
	case MethodDecliningBalance:
		book := a.Cost
		for y := 0; y < a.LifeYears; y++ {
			if y == a.LifeYears-1 {
				annuals[y] = book - a.SalvageValue
				break
			}
			annual := book * 2 / ledger.Money(a.LifeYears)
			if book-annual < a.SalvageValue {
				annual = book - a.SalvageValue
			}
			annuals[y] = annual
			book -= annual
		}
	default:
		annual := base / ledger.Money(a.LifeYears)
		for y := range annuals {
			annuals[y] = annual
		}
		annuals[a.LifeYears-1] += base - annual*ledger.Money(a.LifeYears)
	}

	entries := make([]ScheduleEntry, 0, a.LifeYears*12)
	period := Period{Year: a.PurchaseDate.Year(), Month: a.PurchaseDate.Month()}
	var allocated ledger.Money
	for y, annual := range annuals {
		monthly := annual / 12
		for m := 0; m < 12; m++ {
			amount := monthly
			if m == 11 {
				amount = annual - monthly*11
			}
			if y == a.LifeYears-1 && m == 11 {
				amount = base - allocated
			}
			allocated += amount
			entries = append(entries, ScheduleEntry{Period: period, Amount: amount})
			period = period.Next()
		}
	}
	return entries
}
