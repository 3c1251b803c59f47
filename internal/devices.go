package internal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"telefonia-inventory-api/internal/models"

	"github.com/go-chi/chi/v5"
)

const deviceColumns = `id, asset, device_kind, model, imei, serial_number, inventory_id,
	       phone_number, site, supplier, carrier, service, convention, note,
	       valid_from, valid_to, status, created_at, updated_at`

func scanDevice(row interface{ Scan(...interface{}) error }, d *models.Device, extra ...interface{}) error {
	dest := []interface{}{
		&d.ID, &d.Asset, &d.DeviceKind, &d.Model, &d.IMEI, &d.SerialNumber, &d.InventoryID,
		&d.PhoneNumber, &d.Site, &d.Supplier, &d.Carrier, &d.Service, &d.Convention, &d.Note,
		&d.ValidFrom, &d.ValidTo, &d.Status, &d.CreatedAt, &d.UpdatedAt,
	}
	dest = append(dest, extra...)
	return row.Scan(dest...)
}

// deviceSearchFilters maps the inventory search criteria onto columns. Every
// supplied criterion is AND-ed; an omitted one is not applied.
var deviceSearchFilters = []struct {
	param  string
	column string
}{
	{"asset", "asset"},
	{"kind", "device_kind"},
	{"model", "model"},
	{"carrier", "carrier"},
	{"phone", "phone_number"},
	{"site", "site"},
	{"supplier", "supplier"},
	{"status", "status"},
}

// LIST with search criteria & pagination
func (s *Server) listDevices(w http.ResponseWriter, r *http.Request) {
	params := parseListParams(r)

	clauses := []string{}
	args := []interface{}{}
	arg := 1

	for _, f := range deviceSearchFilters {
		v := strings.TrimSpace(r.URL.Query().Get(f.param))
		if v == "" {
			continue
		}
		clauses = append(clauses, fmt.Sprintf("%s ILIKE $%d", f.column, arg))
		args = append(args, "%"+v+"%")
		arg++
	}

	// free-text search across the columns shown in the inventory table
	if params.q != "" {
		clauses = append(clauses, fmt.Sprintf("(asset ILIKE $%d OR model ILIKE $%d OR imei ILIKE $%d OR serial_number ILIKE $%d)", arg, arg, arg, arg))
		args = append(args, "%"+params.q+"%")
		arg++
	}

	whereClause := ""
	if len(clauses) > 0 {
		whereClause = " WHERE " + strings.Join(clauses, " AND ")
	}

	sqlStr := fmt.Sprintf(`
		SELECT %s, COUNT(*) OVER() as total_count
		FROM devices%s`, deviceColumns, whereClause)

	allowedSort := map[string]string{
		"id":         "id",
		"asset":      "asset",
		"model":      "model",
		"status":     "status",
		"created_at": "created_at",
		"updated_at": "updated_at",
	}
	sqlStr += buildOrderBy(params.sort, allowedSort)
	sqlStr += fmt.Sprintf(" LIMIT %d OFFSET %d", params.limit, params.offset)

	rows, err := s.DB.QueryContext(r.Context(), sqlStr, args...)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	defer rows.Close()

	devices := []models.Device{}
	var totalCount int
	for rows.Next() {
		var d models.Device
		if err := scanDevice(rows, &d, &totalCount); err != nil {
			writeInternalError(w, err)
			return
		}
		devices = append(devices, d)
	}

	sendListResponse(w, devices, totalCount)
}

func (s *Server) getDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var d models.Device
	row := s.DB.QueryRowContext(r.Context(),
		fmt.Sprintf(`SELECT %s FROM devices WHERE id = $1`, deviceColumns), id)
	err := scanDevice(row, &d)
	if err == sql.ErrNoRows {
		writeNotFound(w)
		return
	}
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) createDevice(w http.ResponseWriter, r *http.Request) {
	var in models.CreateDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeValidationError(w, "invalid JSON", nil)
		return
	}
	if !checkRequest(w, &in) {
		return
	}

	var out models.Device
	row := s.DB.QueryRowContext(r.Context(), fmt.Sprintf(`
		INSERT INTO devices (id, asset, device_kind, model, imei, serial_number, inventory_id,
		                     phone_number, site, supplier, carrier, service, convention, note,
		                     valid_from, valid_to, status)
		SELECT COALESCE(MAX(id), 0) + 1, $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16 FROM devices
		RETURNING %s`, deviceColumns),
		in.Asset, in.DeviceKind, in.Model, in.IMEI, in.SerialNumber, in.InventoryID,
		in.PhoneNumber, in.Site, in.Supplier, in.Carrier, in.Service, in.Convention, in.Note,
		in.ValidFrom, in.ValidTo, in.Status)
	if err := scanDevice(row, &out); err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, CodeConflict, "asset already exists", nil)
			return
		}
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) updateDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var in models.Device
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeValidationError(w, "invalid JSON", nil)
		return
	}

	type set struct {
		sql string
		val interface{}
	}
	sets := make([]set, 0, 16)
	if strings.TrimSpace(in.Asset) != "" {
		sets = append(sets, set{"asset = $%d", in.Asset})
	}
	if in.DeviceKind != "" {
		sets = append(sets, set{"device_kind = $%d", in.DeviceKind})
	}
	if in.Model != "" {
		sets = append(sets, set{"model = $%d", in.Model})
	}
	if in.IMEI != "" {
		sets = append(sets, set{"imei = $%d", in.IMEI})
	}
	if in.SerialNumber != "" {
		sets = append(sets, set{"serial_number = $%d", in.SerialNumber})
	}
	if in.InventoryID != "" {
		sets = append(sets, set{"inventory_id = $%d", in.InventoryID})
	}
	if in.PhoneNumber != "" {
		sets = append(sets, set{"phone_number = $%d", in.PhoneNumber})
	}
	if in.Site != "" {
		sets = append(sets, set{"site = $%d", in.Site})
	}
	if in.Supplier != "" {
		sets = append(sets, set{"supplier = $%d", in.Supplier})
	}
	if in.Carrier != "" {
		sets = append(sets, set{"carrier = $%d", in.Carrier})
	}
	if in.Service != "" {
		sets = append(sets, set{"service = $%d", in.Service})
	}
	if in.Convention != "" {
		sets = append(sets, set{"convention = $%d", in.Convention})
	}
	if in.Note != "" {
		sets = append(sets, set{"note = $%d", in.Note})
	}
	if in.ValidFrom != nil {
		sets = append(sets, set{"valid_from = $%d", in.ValidFrom})
	}
	if in.ValidTo != nil {
		sets = append(sets, set{"valid_to = $%d", in.ValidTo})
	}
	if in.Status != "" {
		sets = append(sets, set{"status = $%d", in.Status})
	}
	if len(sets) == 0 {
		writeValidationError(w, "no fields to update", nil)
		return
	}

	args := make([]interface{}, 0, len(sets)+1)
	sqlStr := "UPDATE devices SET updated_at = now()"
	for _, sset := range sets {
		sqlStr += ", " + fmt.Sprintf(sset.sql, len(args)+1)
		args = append(args, sset.val)
	}
	sqlStr += fmt.Sprintf(" WHERE id = $%d RETURNING %s", len(args)+1, deviceColumns)
	args = append(args, id)

	var out models.Device
	if err := scanDevice(s.DB.QueryRowContext(r.Context(), sqlStr, args...), &out); err != nil {
		if err == sql.ErrNoRows {
			writeNotFound(w)
			return
		}
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, CodeConflict, "asset already exists", nil)
			return
		}
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// No referential guard here: an assignment that still names a deleted
// device's asset keeps the snapshot string (accepted data-quality gap of
// the value-based reference).
func (s *Server) deleteDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	res, err := s.DB.ExecContext(r.Context(), `DELETE FROM devices WHERE id = $1`, id)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		writeNotFound(w)
		return
	}
	writeDeleteSuccess(w)
}
