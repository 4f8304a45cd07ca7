package pricing

import (
	"testing"
	"time"

	"rentbook/internal/domain"
	"rentbook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rate(v int64) *int64 { return &v }

func TestCalculate(t *testing.T) {
	full := Rates{Daily: 25, Weekly: rate(150), Monthly: rate(500)}

	tests := []struct {
		name  string
		rates Rates
		days  int
		want  int64
	}{
		{"single day", full, 1, 25},
		{"six days stays daily", full, 6, 150},
		{"exactly a week", full, 7, 150},
		{"week plus three days", full, 10, 225},
		{"no tiers", Rates{Daily: 25}, 10, 250},
		{"monthly with remainder", full, 45, 500 + 15*25},
		{"two months", full, 60, 1000},
		{"monthly missing falls to weekly", Rates{Daily: 25, Weekly: rate(150)}, 30, 4*150 + 2*25},
		{"zero weekly is absent", Rates{Daily: 25, Weekly: rate(0)}, 7, 175},
		{"weekly missing month present under 30", Rates{Daily: 25, Monthly: rate(500)}, 29, 29 * 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Calculate(tt.rates, tt.days)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCalculate_Invalid(t *testing.T) {
	_, err := Calculate(Rates{Daily: 0}, 3)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = Calculate(Rates{Daily: 10}, 0)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestExplain(t *testing.T) {
	b, err := Explain(Rates{Daily: 25, Weekly: rate(150), Monthly: rate(500)}, 10)
	require.NoError(t, err)
	assert.Equal(t, "weekly", b.Tier)
	assert.Equal(t, 1, b.Units)
	assert.Equal(t, 3, b.ExtraDays)
	assert.Equal(t, int64(225), b.TotalCost)
}

func TestDayCount(t *testing.T) {
	d := func(s string) time.Time {
		v, err := time.Parse(models.DateLayout, s)
		require.NoError(t, err)
		return v
	}

	assert.Equal(t, 1, DayCount(d("2024-02-01"), d("2024-02-01")))
	assert.Equal(t, 1, DayCount(d("2024-02-01"), d("2024-02-02")))
	assert.Equal(t, 3, DayCount(d("2024-02-01"), d("2024-02-04")))
	assert.Equal(t, 29, DayCount(d("2024-02-01"), d("2024-03-01")), "leap year february")

	// Time of day is ignored.
	assert.Equal(t, 3, DayCount(d("2024-02-01").Add(20*time.Hour), d("2024-02-04").Add(time.Hour)))
}

func TestQuote(t *testing.T) {
	item := &models.Item{ID: "cam-1", DailyRate: 25, WeeklyRate: rate(150)}
	r, err := models.ParseDateRange("2024-03-01", "2024-03-11")
	require.NoError(t, err)

	q, err := Quote(item, r)
	require.NoError(t, err)
	assert.Equal(t, "cam-1", q.ItemID)
	assert.Equal(t, 10, q.TotalDays)
	assert.Equal(t, int64(225), q.TotalAmount)
	assert.Equal(t, "weekly", q.Tier)
	assert.Equal(t, 1, q.TierUnits)
	assert.Equal(t, int64(150), q.TierRate)
	assert.Equal(t, 3, q.ExtraDays)
	assert.Equal(t, int64(25), q.DailyRate)
	assert.Equal(t, q.TotalAmount, int64(q.TierUnits)*q.TierRate+int64(q.ExtraDays)*q.DailyRate)
}
