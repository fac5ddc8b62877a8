// Package export renders customer data as spreadsheets.
package export

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/spec-kit/crm-service/internal/domain"
)

// CustomerSheet is the worksheet holding exported customers.
const CustomerSheet = "Customers"

// ContentTypeXLSX is the MIME type of the rendered workbook.
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var customerHeaders = []string{
	"ID", "First Name", "Last Name", "Email", "Phone", "Company", "Status",
	"Rating", "Average Rating", "Created At", "Updated At",
}

// CustomerWorkbook writes one header row and one row per customer. The caller must
// close the returned file.
func CustomerWorkbook(items []domain.CustomerWithRatings) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", CustomerSheet); err != nil {
		_ = f.Close()
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	header := make([]any, len(customerHeaders))
	for i, h := range customerHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(CustomerSheet, "A1", &header); err != nil {
		_ = f.Close()
		return nil, err
	}
	lastCol, _ := excelize.ColumnNumberToName(len(customerHeaders))
	_ = f.SetCellStyle(CustomerSheet, "A1", lastCol+"1", headerStyle)

	for i, item := range items {
		c := item.Customer
		row := []any{
			c.ID, c.FirstName, c.LastName, c.Email, c.Phone, c.Company, c.Status,
			item.LatestRating, item.AverageRating,
			c.CreatedAt.UTC().Format(time.RFC3339), c.UpdatedAt.UTC().Format(time.RFC3339),
		}
		if err := f.SetSheetRow(CustomerSheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			_ = f.Close()
			return nil, err
		}
	}

	widths := []float64{8, 16, 16, 28, 16, 22, 12, 8, 14, 22, 22}
	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(CustomerSheet, col, col, w)
	}
	return f, nil
}

// CustomerFilename names an export taken at t.
func CustomerFilename(t time.Time) string {
	return fmt.Sprintf("customers_%s.xlsx", t.UTC().Format("20060102_150405"))
}
