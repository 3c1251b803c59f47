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

const assigneeColumns = "id, first_name, last_name, user_type, organizational_unit, note, created_at, updated_at"

func scanAssignee(row interface{ Scan(...interface{}) error }, a *models.Assignee, extra ...interface{}) error {
	dest := []interface{}{&a.ID, &a.FirstName, &a.LastName, &a.UserType, &a.OrganizationalUnit, &a.Note, &a.CreatedAt, &a.UpdatedAt}
	dest = append(dest, extra...)
	return row.Scan(dest...)
}

// LIST with name/id search & pagination. The q parameter matches the
// concatenated name in either order, or the numeric id.
func (s *Server) listAssignees(w http.ResponseWriter, r *http.Request) {
	params := parseListParams(r)

	clauses := []string{}
	args := []interface{}{}
	arg := 1

	if params.q != "" {
		clause := fmt.Sprintf("(first_name || ' ' || last_name ILIKE $%d OR last_name || ' ' || first_name ILIKE $%d", arg, arg)
		args = append(args, "%"+params.q+"%")
		arg++
		if id, err := strconv.ParseInt(params.q, 10, 64); err == nil {
			clause += fmt.Sprintf(" OR id = $%d", arg)
			args = append(args, id)
			arg++
		}
		clause += ")"
		clauses = append(clauses, clause)
	}

	whereClause := ""
	if len(clauses) > 0 {
		whereClause = " WHERE " + strings.Join(clauses, " AND ")
	}

	sqlStr := fmt.Sprintf(`
		SELECT %s, COUNT(*) OVER() as total_count
		FROM assignees%s`, assigneeColumns, whereClause)

	allowedSort := map[string]string{
		"id":         "id",
		"last_name":  "last_name",
		"first_name": "first_name",
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

	assignees := []models.Assignee{}
	var totalCount int
	for rows.Next() {
		var a models.Assignee
		if err := scanAssignee(rows, &a, &totalCount); err != nil {
			writeInternalError(w, err)
			return
		}
		assignees = append(assignees, a)
	}

	sendListResponse(w, assignees, totalCount)
}

func (s *Server) getAssignee(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var a models.Assignee
	row := s.DB.QueryRowContext(r.Context(),
		fmt.Sprintf(`SELECT %s FROM assignees WHERE id = $1`, assigneeColumns), id)
	err := scanAssignee(row, &a)
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

func (s *Server) createAssignee(w http.ResponseWriter, r *http.Request) {
	var in models.Assignee
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeValidationError(w, "invalid JSON", nil)
		return
	}
	if strings.TrimSpace(in.FirstName) == "" || strings.TrimSpace(in.LastName) == "" {
		writeValidationError(w, "first_name and last_name are required", nil)
		return
	}

	var out models.Assignee
	row := s.DB.QueryRowContext(r.Context(), fmt.Sprintf(`
		INSERT INTO assignees (id, first_name, last_name, user_type, organizational_unit, note)
		SELECT COALESCE(MAX(id), 0) + 1, $1,$2,$3,$4,$5 FROM assignees
		RETURNING %s`, assigneeColumns),
		in.FirstName, in.LastName, in.UserType, in.OrganizationalUnit, in.Note)
	if err := scanAssignee(row, &out); err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) updateAssignee(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var in models.Assignee
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeValidationError(w, "invalid JSON", nil)
		return
	}

	type set struct {
		sql string
		val interface{}
	}
	sets := make([]set, 0, 5)
	if strings.TrimSpace(in.FirstName) != "" {
		sets = append(sets, set{"first_name = $%d", in.FirstName})
	}
	if strings.TrimSpace(in.LastName) != "" {
		sets = append(sets, set{"last_name = $%d", in.LastName})
	}
	if in.UserType != "" {
		sets = append(sets, set{"user_type = $%d", in.UserType})
	}
	if in.OrganizationalUnit != "" {
		sets = append(sets, set{"organizational_unit = $%d", in.OrganizationalUnit})
	}
	if in.Note != "" {
		sets = append(sets, set{"note = $%d", in.Note})
	}
	if len(sets) == 0 {
		writeValidationError(w, "no fields to update", nil)
		return
	}

	args := make([]interface{}, 0, len(sets)+1)
	sqlStr := "UPDATE assignees SET updated_at = now()"
	for _, sset := range sets {
		sqlStr += ", " + fmt.Sprintf(sset.sql, len(args)+1)
		args = append(args, sset.val)
	}
	sqlStr += fmt.Sprintf(" WHERE id = $%d RETURNING %s", len(args)+1, assigneeColumns)
	args = append(args, id)

	var out models.Assignee
	if err := scanAssignee(s.DB.QueryRowContext(r.Context(), sqlStr, args...), &out); err != nil {
		if err == sql.ErrNoRows {
			writeNotFound(w)
			return
		}
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) deleteAssignee(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var n int
	if err := s.DB.QueryRowContext(r.Context(),
		`SELECT COUNT(*) FROM assignments WHERE assignee_id = $1`, id).Scan(&n); err != nil {
		writeInternalError(w, err)
		return
	}
	if n > 0 {
		writeReferenceError(w, "l'assegnatario ha assegnazioni registrate e non può essere eliminato",
			map[string]interface{}{"table": "assignments", "count": n})
		return
	}

	res, err := s.DB.ExecContext(r.Context(), `DELETE FROM assignees WHERE id = $1`, id)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		writeNotFound(w)
		return
	}
	writeDeleteSuccess(w)
}
