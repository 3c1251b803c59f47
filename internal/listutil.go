package internal

import (
	"net/http"
	"strconv"
	"strings"
)

// listParams holds common query parameters for list endpoints
type listParams struct {
	limit  int
	offset int
	q      string
	sort   string
}

// parseListParams parses limit, offset, q, and sort from the request.
// Defaults: limit=50 (max 500), offset=0.
func parseListParams(r *http.Request) listParams {
	values := r.URL.Query()

	limit := 50
	if s := strings.TrimSpace(values.Get("limit")); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			if v > 500 {
				v = 500
			}
			limit = v
		}
	}

	offset := 0
	if s := strings.TrimSpace(values.Get("offset")); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}

	return listParams{
		limit:  limit,
		offset: offset,
		q:      strings.TrimSpace(values.Get("q")),
		sort:   strings.TrimSpace(values.Get("sort")),
	}
}

// buildOrderBy builds a safe ORDER BY clause using a whitelist of allowed keys.
// allowed maps incoming sort keys (e.g., "asset") to actual column identifiers.
// Input sort is comma-separated; prefix with '-' for DESC.
// Returns a string starting with " ORDER BY ...". Defaults to " ORDER BY id ASC".
func buildOrderBy(sortParam string, allowed map[string]string) string {
	if sortParam == "" {
		if col, ok := allowed["id"]; ok {
			return " ORDER BY " + col + " ASC"
		}
		return " ORDER BY id ASC"
	}

	parts := strings.Split(sortParam, ",")
	clauses := make([]string, 0, len(parts))
	for _, raw := range parts {
		s := strings.TrimSpace(raw)
		if s == "" {
			continue
		}
		desc := false
		if strings.HasPrefix(s, "-") {
			desc = true
			s = strings.TrimPrefix(s, "-")
		}
		col, ok := allowed[s]
		if !ok {
			continue
		}
		if desc {
			clauses = append(clauses, col+" DESC")
		} else {
			clauses = append(clauses, col+" ASC")
		}
	}
	if len(clauses) == 0 {
		if col, ok := allowed["id"]; ok {
			return " ORDER BY " + col + " ASC"
		}
		return " ORDER BY id ASC"
	}
	return " ORDER BY " + strings.Join(clauses, ", ")
}

// sendListResponse writes the items as a bare JSON array, which is what the
// console client expects from every <entity>/list route. The unpaged total
// travels in a header so table UIs can size their pagers without changing
// the body contract.
func sendListResponse(w http.ResponseWriter, items interface{}, totalCount int) {
	w.Header().Set("X-Total-Count", strconv.Itoa(totalCount))
	writeJSON(w, http.StatusOK, items)
}

// nullIfEmpty maps empty or whitespace-only strings to SQL NULL.
func nullIfEmpty(s string) interface{} {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
