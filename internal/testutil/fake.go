// Package testutil provides an in-memory stand-in for the API so the
// console packages can be tested against the real HTTP contract without a
// database.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"telefonia-inventory-api/internal/models"
	"telefonia-inventory-api/pkg/exportcsv"

	"github.com/go-chi/chi/v5"
)

// Export behaviors scriptable per test.
const (
	ExportOK    = "ok"
	ExportFail  = "fail"
	ExportEmpty = "empty"
)

// ReferencePaths lists the six lookup entities the fake serves.
var ReferencePaths = []string{
	"device-types", "device-models", "mobile-providers",
	"device-statuses", "service-types", "conventions",
}

// Fake is an in-memory backend mounted on a chi router. All exported maps
// and slices may be seeded directly before serving; the mutex only guards
// handler access.
type Fake struct {
	mu sync.Mutex

	Router *chi.Mux

	References  map[string][]models.ReferenceItem
	Devices     []models.Device
	Assignees   []models.Assignee
	Assignments []models.Assignment

	// ListCalls counts GET list requests per entity path, letting tests
	// assert the refresh-after-mutate behavior.
	ListCalls map[string]int

	// ExportMode selects the export response: ExportOK serves a CSV,
	// ExportFail a 500, ExportEmpty a 204.
	ExportMode string
}

// NewFake builds a fake with empty tables and all routes mounted.
func NewFake() *Fake {
	f := &Fake{
		Router:     chi.NewRouter(),
		References: make(map[string][]models.ReferenceItem),
		ListCalls:  make(map[string]int),
		ExportMode: ExportOK,
	}
	for _, path := range ReferencePaths {
		f.mountReference(path)
	}
	f.mountDevices()
	f.mountAssignees()
	f.mountAssignments()
	f.Router.Post("/export/devices", f.exportDevices)
	f.Router.Post("/export/assignments", f.exportAssignments)
	return f
}

// Calls returns the list-call count for an entity path.
func (f *Fake) Calls(entity string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ListCalls[entity]
}

func (f *Fake) countList(entity string) {
	f.mu.Lock()
	f.ListCalls[entity]++
	f.mu.Unlock()
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"code": code, "message": message})
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

// listWindow truncates the list with the server's paging rules (limit
// defaults to 50, capped at 500) and returns the pre-truncation total, so
// clients see the same partial responses a real backend would send.
func listWindow[T any](r *http.Request, items []T) ([]T, int) {
	total := len(items)

	limit := 50
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
		if limit > 500 {
			limit = 500
		}
	}
	offset := 0
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v >= 0 {
		offset = v
	}

	if offset >= total {
		return []T{}, total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return items[offset:end], total
}

func writeList[T any](w http.ResponseWriter, r *http.Request, items []T) {
	page, total := listWindow(r, items)
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	writeJSON(w, http.StatusOK, page)
}

func nextID[T any](items []T, id func(T) int64) int64 {
	var max int64
	for _, it := range items {
		if v := id(it); v > max {
			max = v
		}
	}
	return max + 1
}

func (f *Fake) mountReference(entity string) {
	f.Router.Get("/"+entity+"/list", func(w http.ResponseWriter, r *http.Request) {
		f.countList(entity)
		f.mu.Lock()
		items := append([]models.ReferenceItem(nil), f.References[entity]...)
		f.mu.Unlock()
		writeList(w, r, items)
	})
	f.Router.Post("/"+entity+"/create", func(w http.ResponseWriter, r *http.Request) {
		var item models.ReferenceItem
		if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid payload")
			return
		}
		if strings.TrimSpace(item.Description) == "" {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "La descrizione è obbligatoria.")
			return
		}
		f.mu.Lock()
		item.ID = nextID(f.References[entity], func(i models.ReferenceItem) int64 { return i.ID })
		item.CreatedAt = time.Now()
		item.UpdatedAt = item.CreatedAt
		f.References[entity] = append(f.References[entity], item)
		f.mu.Unlock()
		writeJSON(w, http.StatusCreated, item)
	})
	f.Router.Put("/"+entity+"/update/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid id")
			return
		}
		var item models.ReferenceItem
		if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid payload")
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		for i := range f.References[entity] {
			if f.References[entity][i].ID == id {
				item.ID = id
				item.UpdatedAt = time.Now()
				f.References[entity][i] = item
				writeJSON(w, http.StatusOK, item)
				return
			}
		}
		writeError(w, http.StatusNotFound, "NOT_FOUND", "elemento non trovato")
	})
	f.Router.Delete("/"+entity+"/delete/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid id")
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		for i := range f.References[entity] {
			if f.References[entity][i].ID != id {
				continue
			}
			if entity == "device-models" && f.modelReferenced(f.References[entity][i].Description) {
				writeError(w, http.StatusConflict, "REFERENCE_ERROR",
					fmt.Sprintf("Modello %q è ancora in uso e non può essere eliminato", f.References[entity][i].Description))
				return
			}
			f.References[entity] = append(f.References[entity][:i], f.References[entity][i+1:]...)
			writeJSON(w, http.StatusOK, map[string]bool{"success": true})
			return
		}
		writeError(w, http.StatusNotFound, "NOT_FOUND", "elemento non trovato")
	})
}

// modelReferenced mirrors the server-side delete guard on device models.
// Caller holds the lock.
func (f *Fake) modelReferenced(description string) bool {
	for _, d := range f.Devices {
		if d.Model == description {
			return true
		}
	}
	for _, a := range f.Assignments {
		if a.Model == description {
			return true
		}
	}
	return false
}

func (f *Fake) mountDevices() {
	f.Router.Get("/devices/list", func(w http.ResponseWriter, r *http.Request) {
		f.countList("devices")
		f.mu.Lock()
		items := append([]models.Device(nil), f.Devices...)
		f.mu.Unlock()
		writeList(w, r, items)
	})
	f.Router.Post("/devices/create", func(w http.ResponseWriter, r *http.Request) {
		var d models.Device
		if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid payload")
			return
		}
		if strings.TrimSpace(d.Asset) == "" {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Il codice asset è obbligatorio.")
			return
		}
		f.mu.Lock()
		d.ID = nextID(f.Devices, func(d models.Device) int64 { return d.ID })
		d.CreatedAt = time.Now()
		d.UpdatedAt = d.CreatedAt
		f.Devices = append(f.Devices, d)
		f.mu.Unlock()
		writeJSON(w, http.StatusCreated, d)
	})
	f.Router.Put("/devices/update/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid id")
			return
		}
		var d models.Device
		if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid payload")
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		for i := range f.Devices {
			if f.Devices[i].ID == id {
				d.ID = id
				d.UpdatedAt = time.Now()
				f.Devices[i] = d
				writeJSON(w, http.StatusOK, d)
				return
			}
		}
		writeError(w, http.StatusNotFound, "NOT_FOUND", "dispositivo non trovato")
	})
	f.Router.Delete("/devices/delete/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid id")
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		for i := range f.Devices {
			if f.Devices[i].ID == id {
				f.Devices = append(f.Devices[:i], f.Devices[i+1:]...)
				writeJSON(w, http.StatusOK, map[string]bool{"success": true})
				return
			}
		}
		writeError(w, http.StatusNotFound, "NOT_FOUND", "dispositivo non trovato")
	})
}

func (f *Fake) mountAssignees() {
	f.Router.Get("/assignees/list", func(w http.ResponseWriter, r *http.Request) {
		f.countList("assignees")
		f.mu.Lock()
		items := append([]models.Assignee(nil), f.Assignees...)
		f.mu.Unlock()
		writeList(w, r, items)
	})
	f.Router.Post("/assignees/create", func(w http.ResponseWriter, r *http.Request) {
		var a models.Assignee
		if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid payload")
			return
		}
		f.mu.Lock()
		a.ID = nextID(f.Assignees, func(a models.Assignee) int64 { return a.ID })
		a.CreatedAt = time.Now()
		a.UpdatedAt = a.CreatedAt
		f.Assignees = append(f.Assignees, a)
		f.mu.Unlock()
		writeJSON(w, http.StatusCreated, a)
	})
	f.Router.Put("/assignees/update/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid id")
			return
		}
		var a models.Assignee
		if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid payload")
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		for i := range f.Assignees {
			if f.Assignees[i].ID == id {
				a.ID = id
				a.UpdatedAt = time.Now()
				f.Assignees[i] = a
				writeJSON(w, http.StatusOK, a)
				return
			}
		}
		writeError(w, http.StatusNotFound, "NOT_FOUND", "assegnatario non trovato")
	})
	f.Router.Delete("/assignees/delete/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid id")
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		for _, asg := range f.Assignments {
			if asg.AssigneeID != nil && *asg.AssigneeID == id {
				writeError(w, http.StatusConflict, "REFERENCE_ERROR",
					"l'assegnatario ha assegnazioni registrate e non può essere eliminato")
				return
			}
		}
		for i := range f.Assignees {
			if f.Assignees[i].ID == id {
				f.Assignees = append(f.Assignees[:i], f.Assignees[i+1:]...)
				writeJSON(w, http.StatusOK, map[string]bool{"success": true})
				return
			}
		}
		writeError(w, http.StatusNotFound, "NOT_FOUND", "assegnatario non trovato")
	})
}

func (f *Fake) mountAssignments() {
	f.Router.Get("/assignments/list", func(w http.ResponseWriter, r *http.Request) {
		f.countList("assignments")
		filtered := r.URL.Query().Get("assigneeId")
		var assigneeID *int64
		if filtered != "" {
			id, err := strconv.ParseInt(filtered, 10, 64)
			if err != nil {
				writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "assigneeId non valido")
				return
			}
			assigneeID = &id
		}
		f.mu.Lock()
		items := make([]models.Assignment, 0, len(f.Assignments))
		for _, a := range f.Assignments {
			if assigneeID != nil && (a.AssigneeID == nil || *a.AssigneeID != *assigneeID) {
				continue
			}
			items = append(items, a)
		}
		f.mu.Unlock()
		writeList(w, r, items)
	})
	f.Router.Post("/assignments/create", func(w http.ResponseWriter, r *http.Request) {
		var a models.Assignment
		if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid payload")
			return
		}
		if a.StartDate == nil || a.AssigneeID == nil {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "start_date e assignee_id sono obbligatori")
			return
		}
		f.mu.Lock()
		a.ID = nextID(f.Assignments, func(a models.Assignment) int64 { return a.ID })
		if a.Status == "" {
			a.Status = models.StatusAssigned
		}
		a.CreatedAt = time.Now()
		a.UpdatedAt = a.CreatedAt
		f.Assignments = append(f.Assignments, a)
		f.mu.Unlock()
		writeJSON(w, http.StatusCreated, a)
	})
	f.Router.Put("/assignments/update/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid id")
			return
		}
		var a models.Assignment
		if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid payload")
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		for i := range f.Assignments {
			if f.Assignments[i].ID == id {
				a.ID = id
				a.UpdatedAt = time.Now()
				f.Assignments[i] = a
				writeJSON(w, http.StatusOK, a)
				return
			}
		}
		writeError(w, http.StatusNotFound, "NOT_FOUND", "assegnazione non trovata")
	})
	f.Router.Delete("/assignments/delete/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid id")
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		for i := range f.Assignments {
			if f.Assignments[i].ID == id {
				f.Assignments = append(f.Assignments[:i], f.Assignments[i+1:]...)
				writeJSON(w, http.StatusOK, map[string]bool{"success": true})
				return
			}
		}
		writeError(w, http.StatusNotFound, "NOT_FOUND", "assegnazione non trovata")
	})
}

func (f *Fake) exportDevices(w http.ResponseWriter, r *http.Request) {
	var filter models.ExportFilter
	_ = json.NewDecoder(r.Body).Decode(&filter)
	switch f.ExportMode {
	case ExportFail:
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "export failed")
		return
	case ExportEmpty:
		w.WriteHeader(http.StatusNoContent)
		return
	}
	f.mu.Lock()
	rows := exportcsv.FilterDevices(f.Devices, filter)
	f.mu.Unlock()
	if len(rows) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	sendCSV(w, exportcsv.Filename("devices", time.Now()), exportcsv.DeviceDocument(rows).Bytes())
}

func (f *Fake) exportAssignments(w http.ResponseWriter, r *http.Request) {
	var filter models.ExportFilter
	_ = json.NewDecoder(r.Body).Decode(&filter)
	switch f.ExportMode {
	case ExportFail:
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "export failed")
		return
	case ExportEmpty:
		w.WriteHeader(http.StatusNoContent)
		return
	}
	f.mu.Lock()
	rows := exportcsv.FilterAssignments(f.Assignments, filter)
	f.mu.Unlock()
	if len(rows) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	stamp := time.Now()
	if filter.ReferenceDate != nil {
		stamp = *filter.ReferenceDate
	}
	sendCSV(w, exportcsv.Filename("assignments", stamp), exportcsv.AssignmentDocument(rows).Bytes())
}

func sendCSV(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
