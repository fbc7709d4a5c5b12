package excel

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/nurpe/waste-dispatch/internal/model"
)

const unassignedTeam = "Unassigned"

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

type teamGroup struct {
	ID   uuid.UUID
	Name string
	Rows []model.DispatchDetail
}

// DispatchRegister renders a summary sheet followed by one sheet per team.
func (g *Generator) DispatchRegister(register model.DispatchRegister) ([]byte, error) {
	file := excelize.NewFile()
	defer file.Close()

	summarySheet := "Summary"
	if err := file.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	groups := groupByTeam(register.Rows)
	if err := g.writeSummary(file, summarySheet, register, groups); err != nil {
		return nil, err
	}

	usedNames := map[string]struct{}{summarySheet: {}}
	for _, group := range groups {
		sheetName := buildSheetName(group.Name, group.ID, usedNames)
		usedNames[sheetName] = struct{}{}

		if _, err := file.NewSheet(sheetName); err != nil {
			return nil, err
		}
		if err := g.writeDetail(file, sheetName, register, group); err != nil {
			return nil, err
		}
	}

	file.SetActiveSheet(0)
	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *Generator) writeSummary(file *excelize.File, sheet string, register model.DispatchRegister, groups []teamGroup) error {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	set("A1", "Report")
	set("B1", "Dispatch register")
	set("A2", "Period start")
	set("B2", formatDate(register.PeriodStart))
	set("A3", "Period end")
	set("B3", formatDate(register.PeriodEnd))
	set("A4", "Dispatches")
	set("B4", len(register.Rows))
	set("A5", "Completed")
	set("B5", countStatus(register.Rows, model.DispatchStatusCompleted))
	set("A6", "Cancelled")
	set("B6", countStatus(register.Rows, model.DispatchStatusCancelled))

	tableRow := 8
	headers := []string{"Team", "Dispatches", "Completed", "Cancelled", "Points awarded"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, tableRow)
		set(cell, header)
	}

	for i, group := range groups {
		row := tableRow + 1 + i
		set(fmt.Sprintf("A%d", row), group.Name)
		set(fmt.Sprintf("B%d", row), len(group.Rows))
		set(fmt.Sprintf("C%d", row), countStatus(group.Rows, model.DispatchStatusCompleted))
		set(fmt.Sprintf("D%d", row), countStatus(group.Rows, model.DispatchStatusCancelled))
		set(fmt.Sprintf("E%d", row), sumPoints(group.Rows))
	}

	_ = file.SetColWidth(sheet, "A", "A", 36)
	_ = file.SetColWidth(sheet, "B", "E", 16)
	return nil
}

func (g *Generator) writeDetail(file *excelize.File, sheet string, register model.DispatchRegister, group teamGroup) error {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	set("A1", "Team")
	set("B1", group.Name)
	set("A2", "Period start")
	set("B2", formatDate(register.PeriodStart))
	set("A3", "Period end")
	set("B3", formatDate(register.PeriodEnd))
	set("A4", "Dispatches")
	set("B4", len(group.Rows))

	tableRow := 6
	headers := []string{
		"Scheduled",
		"Status",
		"Priority",
		"Truck",
		"Waste type",
		"Volume",
		"Pickup address",
		"Collected at",
		"Verified",
	}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, tableRow)
		set(cell, header)
	}

	for i, d := range group.Rows {
		row := tableRow + 1 + i
		set(fmt.Sprintf("A%d", row), formatDateTime(d.ScheduledDate))
		set(fmt.Sprintf("B%d", row), string(d.Status))
		set(fmt.Sprintf("C%d", row), string(d.Priority))
		set(fmt.Sprintf("D%d", row), d.RegistrationNumber)
		set(fmt.Sprintf("E%d", row), d.DominantWasteType)
		set(fmt.Sprintf("F%d", row), formatVolume(d.VolumeValue, d.VolumeUnit))
		set(fmt.Sprintf("G%d", row), pickupAddress(d))
		set(fmt.Sprintf("H%d", row), formatTimePtr(d.ActualCollectionDate))
		set(fmt.Sprintf("I%d", row), yesNo(d.CollectionVerified))
	}

	_ = file.SetColWidth(sheet, "A", "A", 20)
	_ = file.SetColWidth(sheet, "B", "D", 14)
	_ = file.SetColWidth(sheet, "E", "F", 16)
	_ = file.SetColWidth(sheet, "G", "G", 40)
	_ = file.SetColWidth(sheet, "H", "H", 20)
	_ = file.SetColWidth(sheet, "I", "I", 10)
	return nil
}

// groupByTeam keeps the incoming row order; rows whose team was deleted share one group.
func groupByTeam(rows []model.DispatchDetail) []teamGroup {
	index := make(map[uuid.UUID]int)
	var groups []teamGroup
	for _, row := range rows {
		key := uuid.Nil
		name := unassignedTeam
		if row.TeamID != nil {
			key = *row.TeamID
			if strings.TrimSpace(row.TeamName) != "" {
				name = row.TeamName
			}
		}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, teamGroup{ID: key, Name: name})
		}
		groups[i].Rows = append(groups[i].Rows, row)
	}
	return groups
}

func buildSheetName(name string, id uuid.UUID, used map[string]struct{}) string {
	base := strings.TrimSpace(name)
	if base == "" {
		base = id.String()
	}
	base = sanitizeSheetName(base)

	if len(base) > 31 {
		base = base[:31]
	}

	nameCandidate := base
	counter := 2
	for {
		if _, exists := used[nameCandidate]; !exists {
			return nameCandidate
		}
		suffix := fmt.Sprintf("-%d", counter)
		trimmed := base
		if len(trimmed)+len(suffix) > 31 {
			trimmed = trimmed[:31-len(suffix)]
		}
		nameCandidate = trimmed + suffix
		counter++
	}
}

func sanitizeSheetName(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "Sheet"
	}

	replacer := strings.NewReplacer(
		"[", "-",
		"]", "-",
		":", "-",
		"*", "-",
		"?", "-",
		"/", "-",
		"\\", "-",
	)
	value = replacer.Replace(value)
	value = strings.TrimSpace(value)
	if value == "" {
		return "Sheet"
	}
	return value
}

func countStatus(rows []model.DispatchDetail, status model.DispatchStatus) int {
	n := 0
	for _, row := range rows {
		if row.Status == status {
			n++
		}
	}
	return n
}

func sumPoints(rows []model.DispatchDetail) int64 {
	var total int64
	for _, row := range rows {
		total += row.PointsAwarded
	}
	return total
}

func pickupAddress(d model.DispatchDetail) string {
	if strings.TrimSpace(d.PickupAddress) != "" {
		return d.PickupAddress
	}
	return fmt.Sprintf("%.5f, %.5f", d.PickupLatitude, d.PickupLongitude)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func formatDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04")
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatDateTime(*t)
}

func formatVolume(value float64, unit string) string {
	if value == 0 {
		return ""
	}
	return fmt.Sprintf("%.2f %s", value, unit)
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
