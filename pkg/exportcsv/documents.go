package exportcsv

import (
	"strconv"

	"telefonia-inventory-api/internal/models"
)

// DeviceCSVColumns is the fixed header of the device export, in order.
var DeviceCSVColumns = []string{
	"Asset", "Tipo dispositivo", "Modello", "IMEI", "Seriale", "Inventario",
	"Numero", "Sede", "Fornitore", "Operatore", "Servizio", "Convenzione",
	"Valido dal", "Valido al", "Stato", "Note",
}

// AssignmentCSVColumns is the fixed header of the assignment export, in order.
var AssignmentCSVColumns = []string{
	"Assegnatario", "Asset", "Tipo dispositivo", "Modello", "Linea", "IMEI",
	"Seriale", "Stato", "Data inizio", "Data fine", "Note",
}

// DeviceDocument builds the device export from already-filtered rows.
func DeviceDocument(devices []models.Device) *Document {
	doc := &Document{Columns: DeviceCSVColumns}
	for _, d := range devices {
		doc.Append([]string{
			d.Asset, d.DeviceKind, d.Model, d.IMEI, d.SerialNumber, d.InventoryID,
			d.PhoneNumber, d.Site, d.Supplier, d.Carrier, d.Service, d.Convention,
			FormatDate(d.ValidFrom), FormatDate(d.ValidTo), d.Status, d.Note,
		})
	}
	return doc
}

// AssignmentDocument builds the assignment export from already-filtered rows.
// The assignee cell holds the numeric id; display names live in a different
// store and are resolved by the consumer when needed.
func AssignmentDocument(assignments []models.Assignment) *Document {
	doc := &Document{Columns: AssignmentCSVColumns}
	for _, a := range assignments {
		assignee := ""
		if a.AssigneeID != nil {
			assignee = strconv.FormatInt(*a.AssigneeID, 10)
		}
		doc.Append([]string{
			assignee, a.Asset, a.DeviceKind, a.Model, a.CarrierLine, a.IMEI,
			a.SerialNumber, a.Status, FormatDate(a.StartDate), FormatDate(a.EndDate), a.Note,
		})
	}
	return doc
}

// FilterDevices applies the export filter's validity-window semantics
// client-side: a device matches when its window overlaps [DateFrom, DateTo];
// an open-ended window passes only while IncludeOpenEnded holds.
func FilterDevices(devices []models.Device, f models.ExportFilter) []models.Device {
	out := make([]models.Device, 0, len(devices))
	for _, d := range devices {
		if d.ValidTo == nil && !f.OpenEnded() {
			continue
		}
		if f.DateFrom != nil && d.ValidTo != nil && d.ValidTo.Before(*f.DateFrom) {
			continue
		}
		if f.DateTo != nil && d.ValidFrom != nil && d.ValidFrom.After(*f.DateTo) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// FilterAssignments mirrors FilterDevices over assignment date ranges.
func FilterAssignments(assignments []models.Assignment, f models.ExportFilter) []models.Assignment {
	out := make([]models.Assignment, 0, len(assignments))
	for _, a := range assignments {
		if a.EndDate == nil && !f.OpenEnded() {
			continue
		}
		if f.DateFrom != nil && a.EndDate != nil && a.EndDate.Before(*f.DateFrom) {
			continue
		}
		if f.DateTo != nil && a.StartDate != nil && a.StartDate.After(*f.DateTo) {
			continue
		}
		out = append(out, a)
	}
	return out
}
