package export

import (
	"bytes"
	"testing"
	"time"

	"rentbook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteBookings(t *testing.T) {
	deposit := int64(50)
	rating := 5
	bookings := []*models.Booking{
		{
			ID: "b-1", ItemID: "cam-1", RenterID: "u1", OwnerID: "owner-1",
			StartDate: time.Date(2030, 5, 1, 0, 0, 0, 0, time.UTC), EndDate: time.Date(2030, 5, 3, 0, 0, 0, 0, time.UTC),
			TotalDays: 2, TotalAmount: 200, DepositAmount: &deposit, Status: models.StatusCompleted, Rating: &rating,
		},
		{
			ID: "b-2", ItemID: "tent-1", RenterID: "renter-9", OwnerID: "u1",
			StartDate: time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC), EndDate: time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC),
			TotalDays: 1, TotalAmount: 80, Status: models.StatusCompleted,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteBookings(&buf, "u1", bookings, time.Date(2030, 7, 1, 9, 0, 0, 0, time.UTC)))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{bookingsSheet, summarySheet}, f.GetSheetList())

	rows, err := f.GetRows(bookingsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, headers, rows[0])

	assert.Equal(t, "b-1", rows[1][0])
	assert.Equal(t, "renter", rows[1][2])
	assert.Equal(t, "owner-1", rows[1][3])
	assert.Equal(t, "50", rows[1][8])
	assert.Equal(t, "5", rows[1][10])

	assert.Equal(t, "owner", rows[2][2])
	assert.Equal(t, "renter-9", rows[2][3])

	completed, err := f.GetCellValue(summarySheet, "B8")
	require.NoError(t, err)
	assert.Equal(t, "2", completed)

	revenue, err := f.GetCellValue(summarySheet, "B12")
	require.NoError(t, err)
	assert.Equal(t, "80", revenue)
}

func TestWriteBookings_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteBookings(&buf, "u1", nil, time.Now()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(bookingsSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
