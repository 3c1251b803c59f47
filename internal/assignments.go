package internal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"telefonia-inventory-api/internal/models"

	"github.com/go-chi/chi/v5"
)

const assignmentColumns = `id, asset, device_kind, carrier_line, imei, serial_number, model,
	       status, start_date, end_date, note, assignee_id, inventory_device_id,
	       created_at, updated_at`

func scanAssignment(row interface{ Scan(...interface{}) error }, a *models.Assignment, extra ...interface{}) error {
	dest := []interface{}{
		&a.ID, &a.Asset, &a.DeviceKind, &a.CarrierLine, &a.IMEI, &a.SerialNumber, &a.Model,
		&a.Status, &a.StartDate, &a.EndDate, &a.Note, &a.AssigneeID, &a.InventoryDeviceID,
		&a.CreatedAt, &a.UpdatedAt,
	}
	dest = append(dest, extra...)
	return row.Scan(dest...)
}

// LIST, optionally narrowed to one assignee (the contract guarantees the
// server honors assigneeId when present).
func (s *Server) listAssignments(w http.ResponseWriter, r *http.Request) {
	params := parseListParams(r)

	clauses := []string{}
	args := []interface{}{}
	arg := 1

	if v := strings.TrimSpace(r.URL.Query().Get("assigneeId")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeValidationError(w, "assigneeId must be an integer", nil)
			return
		}
		clauses = append(clauses, fmt.Sprintf("assignee_id = $%d", arg))
		args = append(args, id)
		arg++
	}

	if params.q != "" {
		clauses = append(clauses, fmt.Sprintf("(asset ILIKE $%d OR model ILIKE $%d OR status ILIKE $%d)", arg, arg, arg))
		args = append(args, "%"+params.q+"%")
		arg++
	}

	whereClause := ""
	if len(clauses) > 0 {
		whereClause = " WHERE " + strings.Join(clauses, " AND ")
	}

	sqlStr := fmt.Sprintf(`
		SELECT %s, COUNT(*) OVER() as total_count
		FROM assignments%s`, assignmentColumns, whereClause)

	allowedSort := map[string]string{
		"id":         "id",
		"asset":      "asset",
		"start_date": "start_date",
		"created_at": "created_at",
	}
	sqlStr += buildOrderBy(params.sort, allowedSort)
	sqlStr += fmt.Sprintf(" LIMIT %d OFFSET %d", params.limit, params.offset)

	rows, err := s.DB.QueryContext(r.Context(), sqlStr, args...)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	defer rows.Close()

	assignments := []models.Assignment{}
	var totalCount int
	for rows.Next() {
		var a models.Assignment
		if err := scanAssignment(rows, &a, &totalCount); err != nil {
			writeInternalError(w, err)
			return
		}
		assignments = append(assignments, a)
	}

	sendListResponse(w, assignments, totalCount)
}

func (s *Server) getAssignment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var a models.Assignment
	row := s.DB.QueryRowContext(r.Context(),
		fmt.Sprintf(`SELECT %s FROM assignments WHERE id = $1`, assignmentColumns), id)
	err := scanAssignment(row, &a)
	if err == sql.ErrNoRows {
		writeNotFound(w)
		return
	}
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) createAssignment(w http.ResponseWriter, r *http.Request) {
	var in models.CreateAssignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeValidationError(w, "invalid JSON", nil)
		return
	}
	// Every persisted assignment carries a start date and an assignee.
	if !checkRequest(w, &in) {
		return
	}
	if in.Status == "" {
		in.Status = models.StatusAssigned
	}

	var out models.Assignment
	row := s.DB.QueryRowContext(r.Context(), fmt.Sprintf(`
		INSERT INTO assignments (id, asset, device_kind, carrier_line, imei, serial_number, model,
		                         status, start_date, end_date, note, assignee_id, inventory_device_id)
		SELECT COALESCE(MAX(id), 0) + 1, $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12 FROM assignments
		RETURNING %s`, assignmentColumns),
		in.Asset, in.DeviceKind, in.CarrierLine, in.IMEI, in.SerialNumber, in.Model,
		in.Status, in.StartDate, in.EndDate, in.Note, in.AssigneeID, in.InventoryDeviceID)
	if err := scanAssignment(row, &out); err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) updateAssignment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var in models.Assignment
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeValidationError(w, "invalid JSON", nil)
		return
	}

	type set struct {
		sql string
		val interface{}
	}
	sets := make([]set, 0, 12)
	if in.Asset != "" {
		sets = append(sets, set{"asset = $%d", in.Asset})
	}
	if in.DeviceKind != "" {
		sets = append(sets, set{"device_kind = $%d", in.DeviceKind})
	}
	if in.CarrierLine != "" {
		sets = append(sets, set{"carrier_line = $%d", in.CarrierLine})
	}
	if in.IMEI != "" {
		sets = append(sets, set{"imei = $%d", in.IMEI})
	}
	if in.SerialNumber != "" {
		sets = append(sets, set{"serial_number = $%d", in.SerialNumber})
	}
	if in.Model != "" {
		sets = append(sets, set{"model = $%d", in.Model})
	}
	if in.Status != "" {
		sets = append(sets, set{"status = $%d", in.Status})
	}
	if in.StartDate != nil {
		sets = append(sets, set{"start_date = $%d", in.StartDate})
	}
	if in.EndDate != nil {
		sets = append(sets, set{"end_date = $%d", in.EndDate})
	}
	if in.Note != "" {
		sets = append(sets, set{"note = $%d", in.Note})
	}
	if in.AssigneeID != nil {
		sets = append(sets, set{"assignee_id = $%d", in.AssigneeID})
	}
	if in.InventoryDeviceID != nil {
		sets = append(sets, set{"inventory_device_id = $%d", in.InventoryDeviceID})
	}
	if len(sets) == 0 {
		writeValidationError(w, "no fields to update", nil)
		return
	}

	args := make([]interface{}, 0, len(sets)+1)
	sqlStr := "UPDATE assignments SET updated_at = now()"
	for _, sset := range sets {
		sqlStr += ", " + fmt.Sprintf(sset.sql, len(args)+1)
		args = append(args, sset.val)
	}
	sqlStr += fmt.Sprintf(" WHERE id = $%d RETURNING %s", len(args)+1, assignmentColumns)
	args = append(args, id)

	var out models.Assignment
	if err := scanAssignment(s.DB.QueryRowContext(r.Context(), sqlStr, args...), &out); err != nil {
		if err == sql.ErrNoRows {
			writeNotFound(w)
			return
		}
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// deleteAssignment exists for the uniform verb mapping; the console never
// wires it into a screen.
func (s *Server) deleteAssignment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	res, err := s.DB.ExecContext(r.Context(), `DELETE FROM assignments WHERE id = $1`, id)
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
