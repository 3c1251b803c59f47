package console

import (
	"strings"

	"telefonia-inventory-api/internal/models"
)

// The six reference-data screens share the generic controller; only the
// endpoint segment and the display noun differ.
var referenceScreens = []struct {
	entity   string
	itemName string
}{
	{"device-types", "Tipo dispositivo"},
	{"device-models", "Modello"},
	{"mobile-providers", "Operatore"},
	{"device-statuses", "Stato dispositivo"},
	{"service-types", "Tipo servizio"},
	{"conventions", "Convenzione"},
}

// NewReferenceController builds the controller behind one reference-data
// screen. Every screen enforces the same rule: the description is required.
func NewReferenceController(client *Client, entity, itemName string, notifier Notifier) *Controller[models.ReferenceItem] {
	return NewController(Config[models.ReferenceItem]{
		Store:    NewStore[models.ReferenceItem](client, ReferenceEndpoints(entity)),
		ItemName: itemName,
		Empty:    func() models.ReferenceItem { return models.ReferenceItem{} },
		ID:       func(it models.ReferenceItem) int64 { return it.ID },
		Validate: func(it models.ReferenceItem, _ bool) string {
			if strings.TrimSpace(it.Description) == "" {
				return "La descrizione è obbligatoria."
			}
			return ""
		},
		Notifier: notifier,
	})
}

// ReferenceControllers builds the controllers for all six catalog screens,
// keyed by entity segment.
func ReferenceControllers(client *Client, notifier Notifier) map[string]*Controller[models.ReferenceItem] {
	out := make(map[string]*Controller[models.ReferenceItem], len(referenceScreens))
	for _, s := range referenceScreens {
		out[s.entity] = NewReferenceController(client, s.entity, s.itemName, notifier)
	}
	return out
}

// NewDeviceController builds the inventory-management screen controller.
func NewDeviceController(client *Client, notifier Notifier) *Controller[models.Device] {
	return NewController(Config[models.Device]{
		Store:    NewStore[models.Device](client, ReferenceEndpoints("devices")),
		ItemName: "Dispositivo",
		Empty:    func() models.Device { return models.Device{} },
		ID:       func(d models.Device) int64 { return d.ID },
		Validate: func(d models.Device, _ bool) string {
			if strings.TrimSpace(d.Asset) == "" {
				return "Il codice asset è obbligatorio."
			}
			return ""
		},
		Notifier: notifier,
	})
}

// DeviceCriteria is the inventory search form. All supplied criteria are
// AND-ed; an empty field is not applied.
type DeviceCriteria struct {
	Asset    string
	Kind     string
	Model    string
	Carrier  string
	Phone    string
	Site     string
	Supplier string
	Status   string
}

// Match reports whether the device satisfies every supplied criterion with
// case-insensitive substring semantics.
func (c DeviceCriteria) Match(d models.Device) bool {
	checks := []struct{ needle, hay string }{
		{c.Asset, d.Asset},
		{c.Kind, d.DeviceKind},
		{c.Model, d.Model},
		{c.Carrier, d.Carrier},
		{c.Phone, d.PhoneNumber},
		{c.Site, d.Site},
		{c.Supplier, d.Supplier},
		{c.Status, d.Status},
	}
	for _, ch := range checks {
		needle := strings.TrimSpace(ch.needle)
		if needle == "" {
			continue
		}
		if !strings.Contains(strings.ToLower(ch.hay), strings.ToLower(needle)) {
			return false
		}
	}
	return true
}

// FilterDevices applies the criteria over a device list.
func FilterDevices(devices []models.Device, c DeviceCriteria) []models.Device {
	out := make([]models.Device, 0, len(devices))
	for _, d := range devices {
		if c.Match(d) {
			out = append(out, d)
		}
	}
	return out
}
