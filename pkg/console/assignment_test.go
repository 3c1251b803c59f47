package console_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"telefonia-inventory-api/internal/models"
	"telefonia-inventory-api/internal/testutil"
	"telefonia-inventory-api/pkg/console"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedAssignmentFixture(fake *testutil.Fake) {
	fake.Assignees = []models.Assignee{
		{ID: 1, FirstName: "Mario", LastName: "Rossi", OrganizationalUnit: "IT"},
		{ID: 2, FirstName: "Anna", LastName: "Bianchi", OrganizationalUnit: "HR"},
	}
	fake.Devices = []models.Device{
		{ID: 1, Asset: "A-001", DeviceKind: "Smartphone", Model: "iPhone 13",
			Carrier: "TIM", PhoneNumber: "3451234567", IMEI: "350000000000001",
			SerialNumber: "SN-001", Status: "Disponibile"},
		{ID: 2, Asset: "A-002", DeviceKind: "Tablet", Model: "iPad",
			Carrier: "Vodafone", Status: "Disponibile"},
	}
}

func loadedAssignmentController(t *testing.T, fake *testutil.Fake, client *console.Client, notes console.Notifier) *console.AssignmentController {
	t.Helper()
	ctrl := console.NewAssignmentController(client, notes)
	require.NoError(t, ctrl.LoadRoster(context.Background()))
	require.NoError(t, ctrl.LoadInventory(context.Background()))
	return ctrl
}

func TestSearchAssignees(t *testing.T) {
	fake, client := newTestBackend(t)
	for i := 1; i <= 60; i++ {
		fake.Assignees = append(fake.Assignees, models.Assignee{
			ID: int64(i), FirstName: "Nome", LastName: fmt.Sprintf("Cognome%02d", i),
		})
	}
	fake.Assignees[0] = models.Assignee{ID: 1, FirstName: "Mario", LastName: "Rossi"}

	ctrl := loadedAssignmentController(t, fake, client, nil)

	assert.Len(t, ctrl.SearchAssignees(""), console.AssigneeSearchLimit)
	assert.Len(t, ctrl.SearchAssignees("cognome"), console.AssigneeSearchLimit)

	// Both name orders match.
	byFirstLast := ctrl.SearchAssignees("mario ros")
	require.Len(t, byFirstLast, 1)
	assert.Equal(t, int64(1), byFirstLast[0].ID)
	byLastFirst := ctrl.SearchAssignees("rossi mario")
	require.Len(t, byLastFirst, 1)
	assert.Equal(t, int64(1), byLastFirst[0].ID)

	// Numeric terms also match the id.
	byID := ctrl.SearchAssignees("59")
	require.NotEmpty(t, byID)
	assert.Equal(t, int64(59), byID[0].ID)

	// Row 59 sits past the server's default page of 50, so a hit proves
	// the roster was loaded in full.
	byName := ctrl.SearchAssignees("cognome59")
	require.Len(t, byName, 1)
	assert.Equal(t, int64(59), byName[0].ID)

	assert.Empty(t, ctrl.SearchAssignees("verdi"))
}

func TestSelectAssigneeLoadsHistory(t *testing.T) {
	fake, client := newTestBackend(t)
	seedAssignmentFixture(fake)
	assigneeOne, assigneeTwo := int64(1), int64(2)
	start := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	fake.Assignments = []models.Assignment{
		{ID: 1, Asset: "A-001", AssigneeID: &assigneeOne, StartDate: &start, Status: models.StatusAssigned},
		{ID: 2, Asset: "A-002", AssigneeID: &assigneeTwo, StartDate: &start, Status: models.StatusAssigned},
	}

	ctrl := loadedAssignmentController(t, fake, client, nil)

	mario := ctrl.SearchAssignees("Rossi")[0]
	require.NoError(t, ctrl.SelectAssignee(context.Background(), &mario))
	require.Len(t, ctrl.History(), 1, "history is scoped to the selected person")
	assert.Equal(t, "A-001", ctrl.History()[0].Asset)

	require.NoError(t, ctrl.SelectAssignee(context.Background(), nil))
	assert.Nil(t, ctrl.Selected())
	assert.Empty(t, ctrl.History())
}

func TestOpenCreateRequiresAssignee(t *testing.T) {
	fake, client := newTestBackend(t)
	seedAssignmentFixture(fake)
	notes := &recorder{}
	ctrl := loadedAssignmentController(t, fake, client, notes)

	assert.ErrorIs(t, ctrl.OpenCreate(), console.ErrNoAssignee)
	assert.False(t, ctrl.DialogOpen())
	assert.Len(t, notes.errors, 1)
}

func TestSelectDeviceBindsDerivedFields(t *testing.T) {
	fake, client := newTestBackend(t)
	seedAssignmentFixture(fake)
	ctrl := loadedAssignmentController(t, fake, client, nil)

	mario := ctrl.SearchAssignees("Rossi")[0]
	require.NoError(t, ctrl.SelectAssignee(context.Background(), &mario))
	require.NoError(t, ctrl.OpenCreate())

	ctrl.SelectDevice(fake.Devices[0])
	form := ctrl.Form()
	assert.Equal(t, "A-001", form.Asset)
	assert.Equal(t, "Smartphone", form.DeviceKind)
	assert.Equal(t, "iPhone 13", form.Model)
	assert.Equal(t, "TIM 3451234567", form.CarrierLine)
	assert.Equal(t, "350000000000001", form.IMEI)
	assert.Equal(t, "SN-001", form.SerialNumber)
	require.NotNil(t, form.InventoryDeviceID)
	assert.Equal(t, int64(1), *form.InventoryDeviceID)

	// Switching the selection rebinds.
	ctrl.SelectDevice(fake.Devices[1])
	assert.Equal(t, "A-002", ctrl.Form().Asset)
	assert.Equal(t, "Vodafone", ctrl.Form().CarrierLine, "missing number leaves no trailing space")
}

func TestCarrierLine(t *testing.T) {
	assert.Equal(t, "TIM 3451234567", console.CarrierLine("TIM", "3451234567"))
	assert.Equal(t, "TIM", console.CarrierLine("TIM", ""))
	assert.Equal(t, "3451234567", console.CarrierLine("", "3451234567"))
	assert.Equal(t, "", console.CarrierLine("", ""))
}

func TestAssignmentSaveValidation(t *testing.T) {
	fake, client := newTestBackend(t)
	seedAssignmentFixture(fake)
	notes := &recorder{}
	ctrl := loadedAssignmentController(t, fake, client, notes)

	mario := ctrl.SearchAssignees("Rossi")[0]
	require.NoError(t, ctrl.SelectAssignee(context.Background(), &mario))
	require.NoError(t, ctrl.OpenCreate())

	_, err := ctrl.Save(context.Background())
	var vErr *console.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "La data di inizio è obbligatoria.", vErr.Message)

	start := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	ctrl.Form().StartDate = &start
	_, err = ctrl.Save(context.Background())
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "Selezionare un dispositivo.", vErr.Message)
	assert.True(t, ctrl.DialogOpen())
	assert.Empty(t, fake.Assignments)
}

func TestAssignmentCreateFlipsDeviceStatus(t *testing.T) {
	fake, client := newTestBackend(t)
	seedAssignmentFixture(fake)
	notes := &recorder{}
	ctrl := loadedAssignmentController(t, fake, client, notes)

	mario := ctrl.SearchAssignees("Rossi")[0]
	require.NoError(t, ctrl.SelectAssignee(context.Background(), &mario))
	require.NoError(t, ctrl.OpenCreate())

	results := ctrl.SearchInventory(console.DeviceCriteria{Carrier: "TIM"})
	require.Len(t, results, 1)
	ctrl.SelectDevice(results[0])

	start := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	ctrl.Form().StartDate = &start

	res, err := ctrl.Save(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.True(t, res.DeviceStatusUpdated)
	assert.Equal(t, int64(1), res.Assignment.ID, "first id starts at 1")
	assert.Equal(t, models.StatusAssigned, res.Assignment.Status)
	assert.Equal(t, "TIM 3451234567", res.Assignment.CarrierLine)

	assert.Equal(t, models.StatusAssigned, fake.Devices[0].Status)
	assert.Equal(t, "Disponibile", fake.Devices[1].Status, "only the bound device flips")

	require.Len(t, ctrl.History(), 1, "history reloads after save")
	assert.False(t, ctrl.DialogOpen())
	assert.Equal(t, []string{"Assegnazione aggiunta correttamente"}, notes.successes)

	// A second assignment continues the id sequence.
	require.NoError(t, ctrl.OpenCreate())
	ctrl.SelectDevice(fake.Devices[1])
	ctrl.Form().StartDate = &start
	res, err = ctrl.Save(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Assignment.ID)
}

func TestEditAssignmentReturnFlow(t *testing.T) {
	fake, client := newTestBackend(t)
	seedAssignmentFixture(fake)
	assigneeOne := int64(1)
	deviceOne := int64(1)
	start := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	fake.Assignments = []models.Assignment{{
		ID: 1, Asset: "A-001", Model: "iPhone 13", CarrierLine: "TIM 3451234567",
		Status: models.StatusAssigned, StartDate: &start,
		AssigneeID: &assigneeOne, InventoryDeviceID: &deviceOne,
	}}

	notes := &recorder{}
	ctrl := loadedAssignmentController(t, fake, client, notes)
	mario := ctrl.SearchAssignees("Rossi")[0]
	require.NoError(t, ctrl.SelectAssignee(context.Background(), &mario))

	ctrl.EditAssignment(ctrl.History()[0])
	assert.True(t, ctrl.EditMode())
	require.NotNil(t, ctrl.BoundDevice())
	assert.Equal(t, int64(1), ctrl.BoundDevice().ID, "device resolved by inventory id")

	// Selecting during edit must not overwrite the recorded snapshot.
	ctrl.SelectDevice(fake.Devices[1])
	assert.Equal(t, "A-001", ctrl.Form().Asset)

	end := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	ctrl.Form().Status = "Riconsegnato"
	ctrl.Form().EndDate = &end

	res, err := ctrl.Save(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.False(t, res.DeviceStatusUpdated, "edits never touch the device")

	assert.Equal(t, "Riconsegnato", fake.Assignments[0].Status)
	require.NotNil(t, fake.Assignments[0].EndDate)
	assert.Equal(t, "Disponibile", fake.Devices[0].Status)
	assert.Equal(t, []string{"Assegnazione modificata correttamente"}, notes.successes)
}

func TestEditAssignmentAssetFallback(t *testing.T) {
	fake, client := newTestBackend(t)
	seedAssignmentFixture(fake)
	assigneeOne := int64(1)
	start := time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC)
	legacy := models.Assignment{
		ID: 7, Asset: "A-002", StartDate: &start, AssigneeID: &assigneeOne,
	}
	fake.Assignments = []models.Assignment{legacy}

	ctrl := loadedAssignmentController(t, fake, client, nil)
	ctrl.EditAssignment(legacy)

	require.NotNil(t, ctrl.BoundDevice(), "legacy rows resolve by asset string")
	assert.Equal(t, int64(2), ctrl.BoundDevice().ID)
}

func TestDeviceSubTablePaging(t *testing.T) {
	fake, client := newTestBackend(t)
	for i := 1; i <= 12; i++ {
		fake.Devices = append(fake.Devices, models.Device{
			ID: int64(i), Asset: fmt.Sprintf("A-%03d", i), Carrier: "TIM",
		})
	}

	ctrl := loadedAssignmentController(t, fake, client, nil)

	results := ctrl.SearchInventory(console.DeviceCriteria{Carrier: "TIM"})
	require.Len(t, results, 12)
	assert.Len(t, ctrl.DeviceResultsPage(), console.DevicePageSize)

	ctrl.SetDevicePage(3)
	assert.Len(t, ctrl.DeviceResultsPage(), 2)

	// A new search snaps back to the first page.
	ctrl.SearchInventory(console.DeviceCriteria{Asset: "A-00"})
	assert.Equal(t, "A-001", ctrl.DeviceResultsPage()[0].Asset)
}
