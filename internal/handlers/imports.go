package handlers

import (
	"encoding/json"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"telefonia-inventory-api/pkg/importer"
)

// ImportsHandler handles Excel import operations
type ImportsHandler struct {
	DB       *pgxpool.Pool
	Log      *logrus.Logger
	MaxBytes int64
}

// NewImportsHandler creates a new imports handler
func NewImportsHandler(db *pgxpool.Pool, log *logrus.Logger) *ImportsHandler {
	return &ImportsHandler{
		DB:       db,
		Log:      log,
		MaxBytes: 20 << 20, // 20 MB
	}
}

// UploadExcel handles Excel file uploads for device import
func (h *ImportsHandler) UploadExcel(w http.ResponseWriter, r *http.Request) {
	// Limit body size
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxBytes)

	// Require multipart
	if !strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data") {
		http.Error(w, "content-type must be multipart/form-data", http.StatusBadRequest)
		return
	}

	if err := r.ParseMultipartForm(h.MaxBytes); err != nil {
		http.Error(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}

	dryRun := r.FormValue("dry_run") == "true"
	mapping := r.FormValue("mapping")
	maxErrors := 50
	if v := r.FormValue("max_errors"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			maxErrors = n
		}
	}

	// File
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	if !isXLSX(header) {
		http.Error(w, "only .xlsx files are accepted", http.StatusBadRequest)
		return
	}

	sum, impErr := importer.ImportExcel(r.Context(), h.DB, file, importer.ImportOptions{
		MappingPath: mapping,
		DryRun:      dryRun,
		MaxErrors:   maxErrors,
	})
	if impErr != nil {
		h.Log.WithError(impErr).Warn("excel import failed")
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":   "IMPORT_FAILED",
			"details": impErr.Error(),
			"data":    sum, // might include partial counts
		})
		return
	}

	writeJSON(w, http.StatusOK, sum)
}

func isXLSX(header *multipart.FileHeader) bool {
	if header == nil {
		return false
	}
	name := strings.ToLower(header.Filename)
	return strings.HasSuffix(name, ".xlsx")
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
