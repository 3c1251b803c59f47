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

// refGuard names a column that references a lookup entity's description by
// value. A lookup row with live references cannot be deleted.
type refGuard struct {
	table  string
	column string
}

// refEntity describes one lookup table. All six share the same column set
// and handler logic; only naming, search fields and delete guards differ.
type refEntity struct {
	path     string // URL segment, e.g. "device-types"
	table    string
	itemName string // user-facing noun for messages
	guards   []refGuard
}

var refEntities = []refEntity{
	{
		path:     "device-types",
		table:    "device_types",
		itemName: "Tipo dispositivo",
		guards:   []refGuard{{"devices", "device_kind"}},
	},
	{
		path:     "device-models",
		table:    "device_models",
		itemName: "Modello",
		guards:   []refGuard{{"devices", "model"}, {"assignments", "model"}},
	},
	{
		path:     "mobile-providers",
		table:    "mobile_providers",
		itemName: "Operatore",
		guards:   []refGuard{{"devices", "carrier"}},
	},
	{
		path:     "device-statuses",
		table:    "device_statuses",
		itemName: "Stato dispositivo",
		guards:   []refGuard{{"devices", "status"}},
	},
	{
		path:     "service-types",
		table:    "service_types",
		itemName: "Tipo servizio",
		guards:   []refGuard{{"devices", "service"}},
	},
	{
		path:     "conventions",
		table:    "conventions",
		itemName: "Convenzione",
		guards:   []refGuard{{"devices", "convention"}},
	},
}

const refColumns = "id, code, description, alias, created_at, updated_at"

func scanReferenceItem(rows interface{ Scan(...interface{}) error }, it *models.ReferenceItem, extra ...interface{}) error {
	dest := []interface{}{&it.ID, &it.Code, &it.Description, &it.Alias, &it.CreatedAt, &it.UpdatedAt}
	dest = append(dest, extra...)
	return rows.Scan(dest...)
}

// LIST with optional text search & pagination
func (s *Server) listReference(e refEntity) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := parseListParams(r)

		clauses := []string{}
		args := []interface{}{}
		arg := 1

		if params.q != "" {
			clauses = append(clauses, fmt.Sprintf("(description ILIKE $%d OR code ILIKE $%d)", arg, arg))
			args = append(args, "%"+params.q+"%")
			arg++
		}

		whereClause := ""
		if len(clauses) > 0 {
			whereClause = " WHERE " + strings.Join(clauses, " AND ")
		}

		sqlStr := fmt.Sprintf(`
			SELECT %s, COUNT(*) OVER() as total_count
			FROM %s%s`, refColumns, e.table, whereClause)

		allowedSort := map[string]string{
			"id":          "id",
			"code":        "code",
			"description": "description",
			"created_at":  "created_at",
		}
		sqlStr += buildOrderBy(params.sort, allowedSort)
		sqlStr += fmt.Sprintf(" LIMIT %d OFFSET %d", params.limit, params.offset)

		rows, err := s.DB.QueryContext(r.Context(), sqlStr, args...)
		if err != nil {
			writeInternalError(w, err)
			return
		}
		defer rows.Close()

		items := []models.ReferenceItem{}
		var totalCount int
		for rows.Next() {
			var it models.ReferenceItem
			if err := scanReferenceItem(rows, &it, &totalCount); err != nil {
				writeInternalError(w, err)
				return
			}
			items = append(items, it)
		}

		sendListResponse(w, items, totalCount)
	}
}

func (s *Server) getReference(e refEntity) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var it models.ReferenceItem
		row := s.DB.QueryRowContext(r.Context(),
			fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, refColumns, e.table), id)
		err := scanReferenceItem(row, &it)
		if err == sql.ErrNoRows {
			writeNotFound(w)
			return
		}
		if err != nil {
			writeInternalError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, it)
	}
}

func (s *Server) createReference(e refEntity) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in models.CreateReferenceItemRequest
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeValidationError(w, "invalid JSON", nil)
			return
		}
		if strings.TrimSpace(in.Description) == "" {
			writeValidationError(w, "La descrizione è obbligatoria.", map[string]string{"field": "description"})
			return
		}

		// New ids continue from the highest assigned one; an empty table
		// starts at 1.
		var out models.ReferenceItem
		row := s.DB.QueryRowContext(r.Context(), fmt.Sprintf(`
			INSERT INTO %s (id, code, description, alias)
			SELECT COALESCE(MAX(id), 0) + 1, $1, $2, $3 FROM %s
			RETURNING %s`, e.table, e.table, refColumns),
			in.Code, in.Description, in.Alias)
		if err := scanReferenceItem(row, &out); err != nil {
			if isUniqueViolation(err) {
				writeError(w, http.StatusConflict, CodeConflict, e.itemName+" already exists", nil)
				return
			}
			writeInternalError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, out)
	}
}

func (s *Server) updateReference(e refEntity) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var in models.CreateReferenceItemRequest
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeValidationError(w, "invalid JSON", nil)
			return
		}
		if strings.TrimSpace(in.Description) == "" {
			writeValidationError(w, "La descrizione è obbligatoria.", map[string]string{"field": "description"})
			return
		}

		var out models.ReferenceItem
		row := s.DB.QueryRowContext(r.Context(), fmt.Sprintf(`
			UPDATE %s SET code = $1, description = $2, alias = $3, updated_at = now()
			WHERE id = $4
			RETURNING %s`, e.table, refColumns),
			in.Code, in.Description, in.Alias, id)
		if err := scanReferenceItem(row, &out); err != nil {
			if err == sql.ErrNoRows {
				writeNotFound(w)
				return
			}
			writeInternalError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func (s *Server) deleteReference(e refEntity) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var description string
		err := s.DB.QueryRowContext(r.Context(),
			fmt.Sprintf(`SELECT description FROM %s WHERE id = $1`, e.table), id).Scan(&description)
		if err == sql.ErrNoRows {
			writeNotFound(w)
			return
		}
		if err != nil {
			writeInternalError(w, err)
			return
		}

		// The lookup value is referenced by description, not id, so every
		// guard column has to be counted before the row may go away.
		for _, g := range e.guards {
			var n int
			err := s.DB.QueryRowContext(r.Context(),
				fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s = $1`, g.table, g.column),
				description).Scan(&n)
			if err != nil {
				writeInternalError(w, err)
				return
			}
			if n > 0 {
				writeReferenceError(w,
					fmt.Sprintf("%s %q è ancora in uso e non può essere eliminato", e.itemName, description),
					map[string]interface{}{"table": g.table, "count": n})
				return
			}
		}

		res, err := s.DB.ExecContext(r.Context(),
			fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, e.table), id)
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
}

// isUniqueViolation matches unique-constraint failures from the pgx stdlib
// driver without tying handler code to a driver error type.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate key")
}
