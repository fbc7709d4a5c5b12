package pdf

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/nurpe/waste-dispatch/internal/model"
)

// Generator renders collection sheets with the core Helvetica font.
type Generator struct {
	fontName string
}

func NewGenerator() *Generator {
	return &Generator{fontName: "Helvetica"}
}

// CollectionSheet is the one-page brief a crew takes to the pickup point.
func (g *Generator) CollectionSheet(sheet model.CollectionSheet) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	d := sheet.Detail

	pdf.SetFont(g.fontName, "B", 16)
	pdf.CellFormat(0, 10, "Collection sheet", "", 1, "C", false, 0, "")
	pdf.SetFont(g.fontName, "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Dispatch %s", d.ID), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	section(pdf, g.fontName, "Assignment")
	drawPairs(pdf, g.fontName, tr, [][2]string{
		{"Team", safeValue(d.TeamName)},
		{"Truck", safeValue(d.RegistrationNumber)},
		{"Status", string(d.Status)},
		{"Priority", string(d.Priority)},
		{"Scheduled", formatDateTime(d.ScheduledDate)},
		{"Estimated arrival", formatTimePtr(d.EstimatedArrival)},
	})
	pdf.Ln(3)

	section(pdf, g.fontName, "Pickup")
	drawPairs(pdf, g.fontName, tr, [][2]string{
		{"Address", safeValue(d.PickupAddress)},
		{"Coordinates", fmt.Sprintf("%.6f, %.6f", d.PickupLatitude, d.PickupLongitude)},
		{"Waste type", safeValue(d.DominantWasteType)},
		{"Estimated volume", formatVolume(d.VolumeValue, d.VolumeUnit)},
		{"Possible source", safeValue(sheet.Report.PossibleSource)},
	})
	pdf.Ln(3)

	if len(sheet.Report.WasteCategories) > 0 {
		section(pdf, g.fontName, "Composition")
		widths := []float64{120, 60}
		drawTableRow(pdf, g.fontName, tr, []string{"Material", "Share, %"}, widths, true)
		for _, c := range sheet.Report.WasteCategories {
			drawTableRow(pdf, g.fontName, tr, []string{c.Type, fmt.Sprintf("%.0f", c.EstimatedPercentage)}, widths, false)
		}
		pdf.Ln(3)
	}

	section(pdf, g.fontName, "Crew")
	widths := []float64{90, 90}
	drawTableRow(pdf, g.fontName, tr, []string{"Name", "Email"}, widths, true)
	if len(sheet.Members) == 0 {
		drawTableRow(pdf, g.fontName, tr, []string{"-", "-"}, widths, false)
	}
	for _, m := range sheet.Members {
		drawTableRow(pdf, g.fontName, tr, []string{m.Name, m.Email}, widths, false)
	}
	pdf.Ln(6)

	section(pdf, g.fontName, "Collection record")
	pdf.SetFont(g.fontName, "", 11)
	pdf.CellFormat(0, 8, "Collected at: ______________________   Verified: [ ] yes  [ ] no", "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 8, "Notes:", "", 1, "L", false, 0, "")
	pdf.Rect(pdf.GetX(), pdf.GetY(), 180, 30, "D")
	pdf.Ln(34)
	pdf.CellFormat(0, 8, "Crew lead signature: ______________________", "", 1, "L", false, 0, "")

	if pdf.Err() {
		return nil, pdf.Error()
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func section(pdf *gofpdf.Fpdf, fontName, title string) {
	pdf.SetFont(fontName, "B", 12)
	pdf.CellFormat(0, 8, title, "", 1, "L", false, 0, "")
}

func drawPairs(pdf *gofpdf.Fpdf, fontName string, tr func(string) string, pairs [][2]string) {
	for _, p := range pairs {
		pdf.SetFont(fontName, "B", 10)
		pdf.CellFormat(45, 6, p[0], "", 0, "L", false, 0, "")
		pdf.SetFont(fontName, "", 10)
		pdf.MultiCell(0, 6, tr(p[1]), "", "L", false)
	}
}

func drawTableRow(pdf *gofpdf.Fpdf, fontName string, tr func(string) string, cols []string, widths []float64, header bool) {
	style := ""
	if header {
		style = "B"
	}
	pdf.SetFont(fontName, style, 10)
	for i, col := range cols {
		align := "L"
		if i > 0 && !header {
			align = "R"
		}
		pdf.CellFormat(widths[i], 8, tr(col), "1", 0, align, false, 0, "")
	}
	pdf.Ln(-1)
}

func safeValue(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func formatVolume(value float64, unit string) string {
	if value == 0 {
		return "-"
	}
	return fmt.Sprintf("%.2f %s", value, unit)
}

func formatDateTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("02.01.2006 15:04")
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return formatDateTime(*t)
}
