package excel

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/nurpe/lensbook/internal/model"
)

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Generate builds the admin bookings report: one summary sheet with per-state
// counts, one detail sheet with every booking.
func (g *Generator) Generate(bookings []model.Booking) ([]byte, error) {
	file := excelize.NewFile()

	summarySheet := "Summary"
	file.SetSheetName("Sheet1", summarySheet)
	if err := g.writeSummary(file, summarySheet, bookings); err != nil {
		return nil, err
	}

	detailSheet := "Bookings"
	file.NewSheet(detailSheet)
	if err := g.writeDetail(file, detailSheet, bookings); err != nil {
		return nil, err
	}

	file.SetActiveSheet(0)
	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *Generator) writeSummary(file *excelize.File, sheet string, bookings []model.Booking) error {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	set("A1", "Generated")
	set("B1", time.Now().UTC().Format(time.RFC3339))
	set("A2", "Total bookings")
	set("B2", len(bookings))

	counts := map[model.BookingState]int{}
	var totalCents int64
	for _, booking := range bookings {
		counts[booking.State]++
		totalCents += booking.PriceCents
	}
	set("A3", "Total value")
	set("B3", formatMoney(totalCents))

	states := []model.BookingState{
		model.BookingRequested,
		model.BookingConfirmed,
		model.BookingInProgress,
		model.BookingCompleted,
		model.BookingCancelledByClient,
		model.BookingCancelledByPhotographer,
	}

	tableRow := 5
	set(fmt.Sprintf("A%d", tableRow), "State")
	set(fmt.Sprintf("B%d", tableRow), "Count")
	for i, state := range states {
		row := tableRow + 1 + i
		set(fmt.Sprintf("A%d", row), string(state))
		set(fmt.Sprintf("B%d", row), counts[state])
	}
	return nil
}

func (g *Generator) writeDetail(file *excelize.File, sheet string, bookings []model.Booking) error {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	headers := []string{"ID", "Client", "Photographer", "Start", "End", "Price", "Location", "State", "Created"}
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		set(cell, header)
	}

	for rowIdx, booking := range bookings {
		endAt := ""
		if booking.EndAt != nil {
			endAt = booking.EndAt.Format(time.RFC3339)
		}
		values := []interface{}{
			booking.ID.String(),
			booking.ClientID.String(),
			booking.PhotographerID.String(),
			booking.StartAt.Format(time.RFC3339),
			endAt,
			formatMoney(booking.PriceCents),
			booking.Location,
			string(booking.State),
			booking.CreatedAt.Format(time.RFC3339),
		}
		for colIdx, value := range values {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				return err
			}
			set(cell, value)
		}
	}
	return nil
}

func formatMoney(cents int64) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}
