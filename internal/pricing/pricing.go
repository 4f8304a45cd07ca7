package pricing

import (
	"time"

	"rentbook/internal/domain"
	"rentbook/internal/models"
)

const (
	daysPerWeek  = 7
	daysPerMonth = 30
)

// Rates are an item's price tiers in minor currency units.
// A nil or non-positive weekly or monthly rate means the tier is not offered.
type Rates struct {
	Daily   int64
	Weekly  *int64
	Monthly *int64
}

func RatesFromItem(item *models.Item) Rates {
	return Rates{Daily: item.DailyRate, Weekly: item.WeeklyRate, Monthly: item.MonthlyRate}
}

// Breakdown shows how a total was assembled.
type Breakdown struct {
	Tier      string
	Units     int
	UnitRate  int64
	ExtraDays int
	DailyRate int64
	TotalCost int64
}

// Calculate returns the amount owed for totalDays at the given rates.
func Calculate(rates Rates, totalDays int) (int64, error) {
	b, err := Explain(rates, totalDays)
	if err != nil {
		return 0, err
	}
	return b.TotalCost, nil
}

// Explain applies the highest tier that fits: monthly from 30 days, weekly
// from 7, daily otherwise. Leftover days are billed at the daily rate.
func Explain(rates Rates, totalDays int) (Breakdown, error) {
	if rates.Daily <= 0 {
		return Breakdown{}, domain.Validationf("daily rate must be positive")
	}
	if totalDays < 1 {
		return Breakdown{}, domain.Validationf("booking must cover at least one day")
	}

	b := Breakdown{Tier: "daily", DailyRate: rates.Daily}

	switch {
	case totalDays >= daysPerMonth && isSet(rates.Monthly):
		b.Tier = "monthly"
		b.Units = totalDays / daysPerMonth
		b.UnitRate = *rates.Monthly
		b.ExtraDays = totalDays % daysPerMonth
	case totalDays >= daysPerWeek && isSet(rates.Weekly):
		b.Tier = "weekly"
		b.Units = totalDays / daysPerWeek
		b.UnitRate = *rates.Weekly
		b.ExtraDays = totalDays % daysPerWeek
	default:
		b.Units = totalDays
		b.UnitRate = rates.Daily
	}

	b.TotalCost = int64(b.Units)*b.UnitRate + int64(b.ExtraDays)*rates.Daily
	return b, nil
}

// DayCount is the number of billable days in a range: the distance between
// start and end in whole days, never less than one.
func DayCount(start, end time.Time) int {
	s := models.TruncateDay(start)
	e := models.TruncateDay(end)
	days := int(e.Sub(s).Hours() / 24)
	if days < 1 {
		return 1
	}
	return days
}

// Quote prices an item for a range and shows the tier that was applied.
func Quote(item *models.Item, r models.DateRange) (*models.Quote, error) {
	days := DayCount(r.Start, r.End)
	b, err := Explain(RatesFromItem(item), days)
	if err != nil {
		return nil, err
	}
	return &models.Quote{
		ItemID:      item.ID,
		StartDate:   r.Start,
		EndDate:     r.End,
		TotalDays:   days,
		TotalAmount: b.TotalCost,
		Tier:        b.Tier,
		TierUnits:   b.Units,
		TierRate:    b.UnitRate,
		ExtraDays:   b.ExtraDays,
		DailyRate:   b.DailyRate,
	}, nil
}

func isSet(rate *int64) bool {
	return rate != nil && *rate > 0
}
