package exportcsv

import (
	"testing"
	"time"

	"telefonia-inventory-api/internal/models"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestFilterDevicesWindow(t *testing.T) {
	devices := []models.Device{
		{ID: 1, Asset: "closed-early", ValidFrom: date(2023, 1, 1), ValidTo: date(2023, 6, 30)},
		{ID: 2, Asset: "closed-inside", ValidFrom: date(2024, 2, 1), ValidTo: date(2024, 5, 31)},
		{ID: 3, Asset: "open-ended", ValidFrom: date(2024, 3, 1)},
		{ID: 4, Asset: "starts-late", ValidFrom: date(2025, 1, 1)},
	}

	window := models.ExportFilter{
		DateFrom: date(2024, 1, 1),
		DateTo:   date(2024, 12, 31),
	}
	got := FilterDevices(devices, window)
	assert.Equal(t, []string{"closed-inside", "open-ended"}, assetNames(got))

	closed := false
	window.IncludeOpenEnded = &closed
	got = FilterDevices(devices, window)
	assert.Equal(t, []string{"closed-inside"}, assetNames(got))

	// No dates at all keeps everything.
	got = FilterDevices(devices, models.ExportFilter{})
	assert.Len(t, got, 4)
}

func assetNames(devices []models.Device) []string {
	out := make([]string, len(devices))
	for i, d := range devices {
		out[i] = d.Asset
	}
	return out
}

func TestFilterAssignmentsWindow(t *testing.T) {
	one := int64(1)
	assignments := []models.Assignment{
		{ID: 1, Asset: "ended-before", AssigneeID: &one, StartDate: date(2023, 1, 1), EndDate: date(2023, 3, 1)},
		{ID: 2, Asset: "inside", AssigneeID: &one, StartDate: date(2024, 2, 1), EndDate: date(2024, 4, 1)},
		{ID: 3, Asset: "running", AssigneeID: &one, StartDate: date(2024, 2, 1)},
	}

	window := models.ExportFilter{DateFrom: date(2024, 1, 1), DateTo: date(2024, 12, 31)}
	got := FilterAssignments(assignments, window)
	assert.Len(t, got, 2)

	closed := false
	window.IncludeOpenEnded = &closed
	got = FilterAssignments(assignments, window)
	assert.Len(t, got, 1)
	assert.Equal(t, "inside", got[0].Asset)
}

func TestAssignmentDocumentCells(t *testing.T) {
	one := int64(7)
	doc := AssignmentDocument([]models.Assignment{{
		ID: 1, Asset: "A-001", Model: "iPhone 13", CarrierLine: "TIM 3451234567",
		Status: "Assigned", StartDate: date(2024, 2, 1), AssigneeID: &one,
	}})

	assert.Equal(t, AssignmentCSVColumns, doc.Columns)
	assert.Len(t, doc.Rows, 1)
	assert.Equal(t, "7", doc.Rows[0][0], "assignee cell holds the id")
	assert.Equal(t, "TIM 3451234567", doc.Rows[0][4])
	assert.Equal(t, "2024-02-01", doc.Rows[0][8])
	assert.Equal(t, "", doc.Rows[0][9], "open assignment has no end date")
}
