package internal

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestErrorEnvelope(t *testing.T) {
	tests := []struct {
		name       string
		write      func(w http.ResponseWriter)
		wantStatus int
		wantCode   string
	}{
		{
			"validation",
			func(w http.ResponseWriter) { writeValidationError(w, "La descrizione è obbligatoria.", nil) },
			http.StatusBadRequest, CodeValidation,
		},
		{
			"not found",
			func(w http.ResponseWriter) { writeNotFound(w) },
			http.StatusNotFound, CodeNotFound,
		},
		{
			"reference",
			func(w http.ResponseWriter) { writeReferenceError(w, "referenziato", nil) },
			http.StatusConflict, CodeReference,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.write(w)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}

			var body APIError
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid envelope: %v", err)
			}
			if body.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", body.Code, tt.wantCode)
			}
			if body.Message == "" {
				t.Error("message must not be empty")
			}
		})
	}
}

func TestWriteDeleteSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	writeDeleteSuccess(w)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var body map[string]bool
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if !body["success"] {
		t.Error(`body must be {"success":true}`)
	}
}
