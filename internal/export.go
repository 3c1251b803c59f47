package internal

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"telefonia-inventory-api/internal/models"
	"telefonia-inventory-api/pkg/exportcsv"

	"github.com/tealeg/xlsx/v3"
)

// exportQuery accumulates WHERE clauses for the export queries. Lookup ids
// resolve to the description stored on the row, because rows reference
// lookups by value.
type exportQuery struct {
	clauses []string
	args    []interface{}
}

// clause appends one condition; format must contain a single $%d verb for
// the placeholder index.
func (q *exportQuery) clause(format string, arg interface{}) {
	q.args = append(q.args, arg)
	q.clauses = append(q.clauses, fmt.Sprintf(format, len(q.args)))
}

func (q *exportQuery) lookup(table, column string, id *int64) {
	if id == nil {
		return
	}
	q.clause(column+" = (SELECT description FROM "+table+" WHERE id = $%d)", *id)
}

func (q *exportQuery) where() string {
	if len(q.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(q.clauses, " AND ")
}

// exportDevices builds the device CSV for the posted filter. Lookup ids in
// the filter are resolved to their descriptions, because devices reference
// lookups by value. Date-window semantics are applied with the same helper
// the console fallback uses, so both paths agree on what a filter matches.
func (s *Server) exportDevices(w http.ResponseWriter, r *http.Request) {
	var filter models.ExportFilter
	if err := json.NewDecoder(r.Body).Decode(&filter); err != nil {
		writeValidationError(w, "invalid JSON", nil)
		return
	}

	var q exportQuery
	q.lookup("device_types", "device_kind", filter.DeviceTypeID)
	q.lookup("device_models", "model", filter.ModelID)
	q.lookup("mobile_providers", "carrier", filter.CarrierID)
	q.lookup("device_statuses", "status", filter.StatusID)
	q.lookup("conventions", "convention", filter.ConventionID)
	if filter.ServiceTypeCode != "" {
		q.clause("service = (SELECT description FROM service_types WHERE code = $%d)", filter.ServiceTypeCode)
	}
	if filter.SiteCode != "" {
		q.clause("site = $%d", filter.SiteCode)
	}

	rows, err := s.DB.QueryContext(r.Context(), fmt.Sprintf(
		`SELECT %s FROM devices%s ORDER BY asset ASC`, deviceColumns, q.where()), q.args...)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	defer rows.Close()

	devices := []models.Device{}
	for rows.Next() {
		var d models.Device
		if err := scanDevice(rows, &d); err != nil {
			writeInternalError(w, err)
			return
		}
		devices = append(devices, d)
	}
	devices = exportcsv.FilterDevices(devices, filter)

	doc := exportcsv.DeviceDocument(devices)
	s.sendExport(w, r, doc, exportcsv.Filename("devices", time.Now()), len(devices))
}

// exportAssignments builds the assignment CSV. Assignments only carry the
// model and status lookups, so those are the filter ids that apply here.
// When the filter carries a reference date it stamps the filename instead
// of the generation date.
func (s *Server) exportAssignments(w http.ResponseWriter, r *http.Request) {
	var filter models.ExportFilter
	if err := json.NewDecoder(r.Body).Decode(&filter); err != nil {
		writeValidationError(w, "invalid JSON", nil)
		return
	}

	var q exportQuery
	q.lookup("device_models", "model", filter.ModelID)
	q.lookup("device_statuses", "status", filter.StatusID)

	rows, err := s.DB.QueryContext(r.Context(), fmt.Sprintf(
		`SELECT %s FROM assignments%s ORDER BY start_date ASC, id ASC`, assignmentColumns, q.where()), q.args...)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	defer rows.Close()

	assignments := []models.Assignment{}
	for rows.Next() {
		var a models.Assignment
		if err := scanAssignment(rows, &a); err != nil {
			writeInternalError(w, err)
			return
		}
		assignments = append(assignments, a)
	}
	assignments = exportcsv.FilterAssignments(assignments, filter)

	stamp := time.Now()
	if filter.ReferenceDate != nil {
		stamp = *filter.ReferenceDate
	}
	doc := exportcsv.AssignmentDocument(assignments)
	s.sendExport(w, r, doc, exportcsv.Filename("assignments", stamp), len(assignments))
}

// sendExport writes the document as an attachment, or 204 when the filter
// matched nothing. ?format=xlsx responds with a workbook instead of CSV.
func (s *Server) sendExport(w http.ResponseWriter, r *http.Request, doc *exportcsv.Document, filename string, rowCount int) {
	if rowCount == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if r.URL.Query().Get("format") == "xlsx" {
		wb := xlsx.NewFile()
		sheet, err := wb.AddSheet("Export")
		if err != nil {
			writeInternalError(w, err)
			return
		}
		header := sheet.AddRow()
		for _, col := range doc.Columns {
			header.AddCell().SetString(col)
		}
		for _, row := range doc.Rows {
			xr := sheet.AddRow()
			for _, cell := range row {
				xr.AddCell().SetString(cell)
			}
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", strings.TrimSuffix(filename, ".csv")+".xlsx"))
		if err := wb.Write(w); err != nil {
			s.Log.WithError(err).Error("xlsx export write failed")
		}
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if _, err := w.Write(doc.Bytes()); err != nil {
		s.Log.WithError(err).Error("csv export write failed")
	}
}
