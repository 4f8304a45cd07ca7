package export

import (
	"fmt"
	"io"
	"time"

	"rentbook/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	bookingsSheet = "Bookings"
	summarySheet  = "Summary"
	timeLayout    = "2006-01-02 15:04"
)

var headers = []string{
	"ID", "Item", "Role", "Counterparty", "Start", "End", "Days",
	"Total", "Deposit", "Status", "Rating", "Notes", "Created", "Updated",
}

var statusFill = map[models.BookingStatus]string{
	models.StatusPending:   "#FFEB9C",
	models.StatusConfirmed: "#DDEBF7",
	models.StatusActive:    "#C6EFCE",
	models.StatusCompleted: "#E2EFDA",
	models.StatusDisputed:  "#FFC7CE",
	models.StatusCancelled: "#EDEDED",
}

// WriteBookings renders a user's bookings as an xlsx workbook into w.
// The Role column is relative to userID.
func WriteBookings(w io.Writer, userID string, bookings []*models.Booking, generatedAt time.Time) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", bookingsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return err
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(bookingsSheet, cell, h)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	_ = f.SetCellStyle(bookingsSheet, "A1", lastCol+"1", headerStyle)
	_ = f.SetPanes(bookingsSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	styles := make(map[models.BookingStatus]int, len(statusFill))
	for status, color := range statusFill {
		id, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		})
		if err != nil {
			return err
		}
		styles[status] = id
	}

	counts := make(map[models.BookingStatus]int)
	var revenue int64
	for i, b := range bookings {
		row := i + 2
		values := bookingRow(userID, b)
		if err := f.SetSheetRow(bookingsSheet, fmt.Sprintf("A%d", row), &values); err != nil {
			return fmt.Errorf("write row %d: %w", row, err)
		}
		statusCell := fmt.Sprintf("J%d", row)
		if id, ok := styles[b.Status]; ok {
			_ = f.SetCellStyle(bookingsSheet, statusCell, statusCell, id)
		}
		counts[b.Status]++
		if b.OwnerID == userID && b.Status == models.StatusCompleted {
			revenue += b.TotalAmount
		}
	}

	_ = f.SetColWidth(bookingsSheet, "A", "A", 38)
	_ = f.SetColWidth(bookingsSheet, "B", "D", 16)
	_ = f.SetColWidth(bookingsSheet, "E", "F", 12)
	_ = f.SetColWidth(bookingsSheet, "L", "L", 40)
	_ = f.SetColWidth(bookingsSheet, "M", "N", 18)

	if err := writeSummary(f, userID, counts, revenue, len(bookings), generatedAt, headerStyle); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	return f.Write(w)
}

func writeSummary(f *excelize.File, userID string, counts map[models.BookingStatus]int, revenue int64, total int, generatedAt time.Time, headerStyle int) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}

	_ = f.SetCellValue(summarySheet, "A1", "User")
	_ = f.SetCellValue(summarySheet, "B1", userID)
	_ = f.SetCellValue(summarySheet, "A2", "Generated")
	_ = f.SetCellValue(summarySheet, "B2", generatedAt.UTC().Format(timeLayout))
	_ = f.SetCellValue(summarySheet, "A4", "Status")
	_ = f.SetCellValue(summarySheet, "B4", "Bookings")
	_ = f.SetCellStyle(summarySheet, "A4", "B4", headerStyle)

	row := 5
	for _, st := range models.AllStatuses {
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), string(st))
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), counts[st])
		row++
	}
	_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), "total")
	_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), total)
	_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row+1), "completed revenue as owner")
	_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row+1), revenue)
	_ = f.SetColWidth(summarySheet, "A", "A", 28)
	return nil
}

func bookingRow(userID string, b *models.Booking) []interface{} {
	role, counterparty := models.RoleRenter, b.OwnerID
	if b.OwnerID == userID {
		role, counterparty = models.RoleOwner, b.RenterID
	}

	var deposit, rating interface{} = "", ""
	if b.DepositAmount != nil {
		deposit = *b.DepositAmount
	}
	if b.Rating != nil {
		rating = *b.Rating
	}

	return []interface{}{
		b.ID,
		b.ItemID,
		string(role),
		counterparty,
		b.StartDate.Format(models.DateLayout),
		b.EndDate.Format(models.DateLayout),
		b.TotalDays,
		b.TotalAmount,
		deposit,
		string(b.Status),
		rating,
		b.Notes,
		b.CreatedAt.UTC().Format(timeLayout),
		b.UpdatedAt.UTC().Format(timeLayout),
	}
}
