package console

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"

	"telefonia-inventory-api/internal/models"

	"github.com/sirupsen/logrus"
)

const (
	// AssigneeSearchLimit caps name-search results for display
	// responsiveness.
	AssigneeSearchLimit = 50
	// DevicePageSize is the fixed page size of the device search
	// sub-table, independent of the outer history pagination.
	DevicePageSize = 5
)

// ErrNoAssignee rejects opening the assignment dialog before a person has
// been selected.
var ErrNoAssignee = errors.New("selezionare prima un assegnatario")

// SaveResult reports what an assignment save did. DeviceStatusUpdated is
// false either when the save was an edit (no status push happens) or when
// the follow-up device update failed.
type SaveResult struct {
	Assignment          models.Assignment
	Created             bool
	DeviceStatusUpdated bool
}

// AssignmentController orchestrates the two-step assignment flow: pick an
// assignee, then manage that person's assignment history, creating new
// assignments by binding an available inventory device.
type AssignmentController struct {
	assignees   *Store[models.Assignee]
	assignments *Store[models.Assignment]
	devices     *Store[models.Device]
	notifier    Notifier
	log         logrus.FieldLogger

	roster    []models.Assignee
	inventory []models.Device

	selected *models.Assignee
	history  []models.Assignment
	page     int
	pageSize int

	dialogOpen    bool
	editMode      bool
	saving        bool
	form          models.Assignment
	boundDevice   *models.Device
	deviceResults []models.Device
	devicePage    int
}

// NewAssignmentController wires the three stores behind the screen.
func NewAssignmentController(client *Client, notifier Notifier) *AssignmentController {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &AssignmentController{
		assignees:   NewStore[models.Assignee](client, ReferenceEndpoints("assignees")),
		assignments: NewStore[models.Assignment](client, ReferenceEndpoints("assignments")),
		devices:     NewStore[models.Device](client, ReferenceEndpoints("devices")),
		notifier:    notifier,
		log:         logrus.StandardLogger(),
		page:        1,
		pageSize:    DefaultPageSize,
		devicePage:  1,
	}
}

// LoadRoster fetches the assignee roster searched by SearchAssignees.
func (c *AssignmentController) LoadRoster(ctx context.Context) error {
	roster, err := c.assignees.ListAll(ctx, nil)
	if err != nil {
		c.roster = nil
		c.log.WithError(err).Warn("loading assignee roster failed")
		return err
	}
	c.roster = roster
	return nil
}

// LoadInventory fetches the device list searched by SearchInventory.
func (c *AssignmentController) LoadInventory(ctx context.Context) error {
	inventory, err := c.devices.ListAll(ctx, nil)
	if err != nil {
		c.inventory = nil
		c.log.WithError(err).Warn("loading device inventory failed")
		return err
	}
	c.inventory = inventory
	return nil
}

// SearchAssignees matches the term case-insensitively against the full name
// in either order, or against the numeric id. Results are capped to the
// first 50; an empty term returns the first 50 of the roster unfiltered.
func (c *AssignmentController) SearchAssignees(term string) []models.Assignee {
	term = strings.ToLower(strings.TrimSpace(term))

	out := make([]models.Assignee, 0, AssigneeSearchLimit)
	for _, a := range c.roster {
		if term != "" && !assigneeMatches(a, term) {
			continue
		}
		out = append(out, a)
		if len(out) == AssigneeSearchLimit {
			break
		}
	}
	return out
}

func assigneeMatches(a models.Assignee, term string) bool {
	firstLast := strings.ToLower(a.FirstName + " " + a.LastName)
	lastFirst := strings.ToLower(a.LastName + " " + a.FirstName)
	if strings.Contains(firstLast, term) || strings.Contains(lastFirst, term) {
		return true
	}
	return strings.Contains(strconv.FormatInt(a.ID, 10), term)
}

// SelectAssignee sets the current person. A non-nil assignee triggers a
// load of their assignment history; nil clears the history view and resets
// pagination.
func (c *AssignmentController) SelectAssignee(ctx context.Context, a *models.Assignee) error {
	c.selected = a
	c.page = 1
	if a == nil {
		c.history = nil
		return nil
	}
	return c.reloadHistory(ctx)
}

func (c *AssignmentController) reloadHistory(ctx context.Context) error {
	query := url.Values{"assigneeId": {strconv.FormatInt(c.selected.ID, 10)}}
	history, err := c.assignments.ListAll(ctx, query)
	if err != nil {
		c.history = nil
		c.log.WithError(err).Warn("loading assignment history failed")
		return err
	}
	c.history = history
	return nil
}

// Selected returns the current assignee, nil when none is picked.
func (c *AssignmentController) Selected() *models.Assignee { return c.selected }

// History returns the selected assignee's assignment rows.
func (c *AssignmentController) History() []models.Assignment { return c.history }

// HistoryPage returns the rows of the current history page.
func (c *AssignmentController) HistoryPage() []models.Assignment {
	start := (c.page - 1) * c.pageSize
	if start >= len(c.history) {
		return nil
	}
	end := start + c.pageSize
	if end > len(c.history) {
		end = len(c.history)
	}
	return c.history[start:end]
}

// SetPage moves the history pager.
func (c *AssignmentController) SetPage(page int) {
	if page < 1 {
		page = 1
	}
	c.page = page
}

// SearchInventory filters the loaded inventory with the AND-ed criteria and
// resets the device sub-table to its first page.
func (c *AssignmentController) SearchInventory(criteria DeviceCriteria) []models.Device {
	c.deviceResults = FilterDevices(c.inventory, criteria)
	c.devicePage = 1
	return c.deviceResults
}

// DeviceResultsPage returns the current page of the device search
// sub-table, which pages with its own fixed size.
func (c *AssignmentController) DeviceResultsPage() []models.Device {
	start := (c.devicePage - 1) * DevicePageSize
	if start >= len(c.deviceResults) {
		return nil
	}
	end := start + DevicePageSize
	if end > len(c.deviceResults) {
		end = len(c.deviceResults)
	}
	return c.deviceResults[start:end]
}

// SetDevicePage moves the device sub-table pager.
func (c *AssignmentController) SetDevicePage(page int) {
	if page < 1 {
		page = 1
	}
	c.devicePage = page
}

// OpenCreate opens the dialog in create mode. It requires a selected
// assignee, seeds the device filter to show everything and clears any
// previous device selection.
func (c *AssignmentController) OpenCreate() error {
	if c.selected == nil {
		c.notifier.Error(ErrNoAssignee.Error())
		return ErrNoAssignee
	}
	c.editMode = false
	c.boundDevice = nil
	c.deviceResults = c.inventory
	c.devicePage = 1
	assigneeID := c.selected.ID
	c.form = models.Assignment{
		Status:     models.StatusAssigned,
		AssigneeID: &assigneeID,
	}
	c.dialogOpen = true
	return nil
}

// SelectDevice binds the chosen device. While not in edit mode the derived
// assignment fields are recomputed from the device on every selection
// change.
func (c *AssignmentController) SelectDevice(d models.Device) {
	device := d
	c.boundDevice = &device
	if c.editMode {
		return
	}
	c.bindDeviceFields(device)
}

func (c *AssignmentController) bindDeviceFields(d models.Device) {
	c.form.Asset = d.Asset
	c.form.DeviceKind = d.DeviceKind
	c.form.Model = d.Model
	c.form.CarrierLine = CarrierLine(d.Carrier, d.PhoneNumber)
	c.form.IMEI = d.IMEI
	c.form.SerialNumber = d.SerialNumber
	deviceID := d.ID
	c.form.InventoryDeviceID = &deviceID
}

// CarrierLine joins carrier and phone number, trimmed so a missing number
// leaves no trailing space.
func CarrierLine(carrier, phoneNumber string) string {
	return strings.TrimSpace(carrier + " " + phoneNumber)
}

// BoundDevice returns the device currently bound in the dialog.
func (c *AssignmentController) BoundDevice() *models.Device { return c.boundDevice }

// Form returns the dialog's working copy for input binding.
func (c *AssignmentController) Form() *models.Assignment { return &c.form }

// DialogOpen reports the dialog state.
func (c *AssignmentController) DialogOpen() bool { return c.dialogOpen }

// EditMode reports whether the dialog is editing an existing assignment.
func (c *AssignmentController) EditMode() bool { return c.editMode }

// CloseDialog abandons the form.
func (c *AssignmentController) CloseDialog() {
	c.dialogOpen = false
}

// EditAssignment opens the dialog on an existing assignment. The bound
// device is resolved by inventory-device id when recorded; older records
// fall back to the first device whose asset string matches.
func (c *AssignmentController) EditAssignment(a models.Assignment) {
	c.editMode = true
	c.form = a
	c.boundDevice = nil
	if a.InventoryDeviceID != nil {
		for i := range c.inventory {
			if c.inventory[i].ID == *a.InventoryDeviceID {
				device := c.inventory[i]
				c.boundDevice = &device
				break
			}
		}
	}
	if c.boundDevice == nil {
		for i := range c.inventory {
			if c.inventory[i].Asset == a.Asset {
				device := c.inventory[i]
				c.boundDevice = &device
				break
			}
		}
	}
	c.dialogOpen = true
}

// Save persists the dialog. Create mode requires a bound device and a start
// date; edit mode requires a start date. The derived device fields are
// re-taken from the currently bound device at save time, never from stale
// form state. On a successful create the bound device's status is pushed to
// "Assigned" best-effort: its failure is logged and reported on the result
// but never rolls back the assignment.
func (c *AssignmentController) Save(ctx context.Context) (SaveResult, error) {
	if c.saving {
		return SaveResult{}, ErrBusy
	}

	if c.form.StartDate == nil {
		msg := "La data di inizio è obbligatoria."
		c.notifier.Error(msg)
		return SaveResult{}, &ValidationError{Message: msg}
	}
	if !c.editMode && c.boundDevice == nil {
		msg := "Selezionare un dispositivo."
		c.notifier.Error(msg)
		return SaveResult{}, &ValidationError{Message: msg}
	}

	c.saving = true
	defer func() { c.saving = false }()

	payload := c.form
	if !c.editMode && c.boundDevice != nil {
		// Re-derive from the current selection.
		d := *c.boundDevice
		payload.Asset = d.Asset
		payload.DeviceKind = d.DeviceKind
		payload.Model = d.Model
		payload.CarrierLine = CarrierLine(d.Carrier, d.PhoneNumber)
		payload.IMEI = d.IMEI
		payload.SerialNumber = d.SerialNumber
		deviceID := d.ID
		payload.InventoryDeviceID = &deviceID
	}
	if payload.Status == "" {
		payload.Status = models.StatusAssigned
	}

	result := SaveResult{Created: !c.editMode}
	var saved models.Assignment
	var err error
	if c.editMode {
		saved, err = c.assignments.Update(ctx, c.form.ID, payload)
	} else {
		saved, err = c.assignments.Create(ctx, payload)
	}
	if err != nil {
		c.log.WithError(err).Warn("saving assignment failed")
		c.notifier.Error("Operazione non riuscita. Riprovare.")
		return SaveResult{}, err
	}
	result.Assignment = saved

	if result.Created && c.boundDevice != nil {
		device := *c.boundDevice
		device.Status = models.StatusAssigned
		if _, err := c.devices.Update(ctx, device.ID, device); err != nil {
			// Accepted consistency gap: the assignment exists even when
			// the device status push fails.
			c.log.WithError(err).WithField("device_id", device.ID).
				Warn("device status update after assignment create failed")
		} else {
			result.DeviceStatusUpdated = true
		}
	}

	if c.selected != nil {
		if err := c.reloadHistory(ctx); err != nil {
			c.log.WithError(err).Warn("post-save history refresh failed")
		}
	}
	if result.Created {
		c.notifier.Success("Assegnazione aggiunta correttamente")
	} else {
		c.notifier.Success("Assegnazione modificata correttamente")
	}
	c.dialogOpen = false
	return result, nil
}
