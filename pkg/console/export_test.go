package console_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"telefonia-inventory-api/internal/models"
	"telefonia-inventory-api/internal/testutil"
	"telefonia-inventory-api/pkg/console"
	"telefonia-inventory-api/pkg/exportcsv"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exportFixtureDevices() []models.Device {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	return []models.Device{
		{ID: 1, Asset: "A-001", Model: "iPhone 13", ValidFrom: &from, ValidTo: &to},
		{ID: 2, Asset: "A-002", Model: "iPad", ValidFrom: &from},
	}
}

func TestExportDevicesFromServer(t *testing.T) {
	fake, client := newTestBackend(t)
	fake.Devices = exportFixtureDevices()

	exporter := console.NewExporter(client)
	res, err := exporter.ExportDevices(context.Background(), models.ExportFilter{}, nil)
	require.NoError(t, err)

	assert.False(t, res.Fallback)
	assert.Equal(t, exportcsv.Filename("devices", time.Now()), res.Filename,
		"filename comes from the Content-Disposition header")
	assert.True(t, bytes.HasPrefix(res.Data, []byte{0xEF, 0xBB, 0xBF}))
	assert.Equal(t, 3, bytes.Count(res.Data, []byte("\r\n")), "header plus two rows")
}

func TestExportDevicesEmptyResult(t *testing.T) {
	fake, client := newTestBackend(t)
	fake.ExportMode = testutil.ExportEmpty

	exporter := console.NewExporter(client)
	_, err := exporter.ExportDevices(context.Background(), models.ExportFilter{}, exportFixtureDevices())
	assert.ErrorIs(t, err, console.ErrEmptyResult, "an empty server result must not fall back")
}

func TestExportDevicesFallback(t *testing.T) {
	fake, client := newTestBackend(t)
	fake.ExportMode = testutil.ExportFail

	exporter := console.NewExporter(client)
	cached := exportFixtureDevices()
	res, err := exporter.ExportDevices(context.Background(), models.ExportFilter{}, cached)
	require.NoError(t, err)

	assert.True(t, res.Fallback)
	assert.Equal(t, exportcsv.Filename("devices", time.Now()), res.Filename)
	assert.Equal(t, exportcsv.DeviceDocument(cached).Bytes(), res.Data,
		"local generation matches the shared document format")
}

func TestExportDevicesFallbackFilters(t *testing.T) {
	fake, client := newTestBackend(t)
	fake.ExportMode = testutil.ExportFail

	exporter := console.NewExporter(client)
	closed := false
	filter := models.ExportFilter{IncludeOpenEnded: &closed}
	res, err := exporter.ExportDevices(context.Background(), filter, exportFixtureDevices())
	require.NoError(t, err)

	assert.Equal(t, 2, bytes.Count(res.Data, []byte("\r\n")), "open-ended device excluded")
	assert.Contains(t, string(res.Data), "A-001")
	assert.NotContains(t, string(res.Data), "A-002")
}

func TestExportFallbackEmptyCache(t *testing.T) {
	fake, client := newTestBackend(t)
	fake.ExportMode = testutil.ExportFail

	exporter := console.NewExporter(client)
	_, err := exporter.ExportDevices(context.Background(), models.ExportFilter{}, nil)
	assert.ErrorIs(t, err, console.ErrEmptyResult)
}

func TestExportAssignmentsReferenceDate(t *testing.T) {
	fake, client := newTestBackend(t)
	assignee := int64(1)
	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	fake.Assignments = []models.Assignment{
		{ID: 1, Asset: "A-001", AssigneeID: &assignee, StartDate: &start, Status: models.StatusAssigned},
	}

	ref := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	exporter := console.NewExporter(client)
	res, err := exporter.ExportAssignments(context.Background(), models.ExportFilter{ReferenceDate: &ref}, nil)
	require.NoError(t, err)

	assert.Equal(t, "assignments_export_2024-12-31.csv", res.Filename)
	assert.Contains(t, string(res.Data), "A-001")
}

func TestExportAssignmentsFallbackReferenceDate(t *testing.T) {
	fake, client := newTestBackend(t)
	fake.ExportMode = testutil.ExportFail

	assignee := int64(1)
	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	cached := []models.Assignment{
		{ID: 1, Asset: "A-001", AssigneeID: &assignee, StartDate: &start},
	}

	ref := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	exporter := console.NewExporter(client)
	res, err := exporter.ExportAssignments(context.Background(), models.ExportFilter{ReferenceDate: &ref}, cached)
	require.NoError(t, err)

	assert.True(t, res.Fallback)
	assert.Equal(t, "assignments_export_2024-12-31.csv", res.Filename)
}
