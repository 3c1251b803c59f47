package internal

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"telefonia-inventory-api/internal/auth"

	"github.com/sirupsen/logrus"
)

func testRouter() *Server {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	jwtManager := auth.NewJWTManager("test-secret-key-that-is-long-enough", "test", "test", time.Hour)
	return newServer(nil, nil, jwtManager, log)
}

func TestHealthEndpoint(t *testing.T) {
	srv := testRouter()

	w := httptest.NewRecorder()
	srv.Router.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if w.Body.String() != "ok" {
		t.Errorf("body = %q", w.Body.String())
	}
	if w.Header().Get(RequestIDHeader) == "" {
		t.Error("every response must carry a request id")
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	srv := testRouter()

	routes := []struct {
		method string
		path   string
	}{
		{"GET", "/device-types/list"},
		{"GET", "/device-models/list"},
		{"GET", "/mobile-providers/list"},
		{"GET", "/device-statuses/list"},
		{"GET", "/service-types/list"},
		{"GET", "/conventions/list"},
		{"GET", "/devices/list"},
		{"GET", "/assignees/list"},
		{"GET", "/assignments/list"},
		{"POST", "/devices/create"},
		{"PUT", "/devices/update/1"},
		{"DELETE", "/devices/delete/1"},
		{"POST", "/export/devices"},
		{"POST", "/export/assignments"},
		{"GET", "/users"},
	}

	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			srv.Router.ServeHTTP(w, httptest.NewRequest(rt.method, rt.path, nil))

			if w.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401 (route must exist and be guarded)", w.Code)
			}

			var body auth.ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid error body: %v", err)
			}
			if body.Code == "" {
				t.Error("auth errors must carry a code")
			}
		})
	}
}

func TestWritesRequireAdminRole(t *testing.T) {
	srv := testRouter()
	token, err := srv.JWTManager.GenerateToken(7, []string{"user"})
	if err != nil {
		t.Fatal(err)
	}

	writes := []struct {
		method string
		path   string
	}{
		{"POST", "/device-types/create"},
		{"PUT", "/device-types/update/1"},
		{"DELETE", "/device-types/delete/1"},
		{"POST", "/devices/create"},
		{"DELETE", "/assignees/delete/1"},
	}

	for _, rt := range writes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			req := httptest.NewRequest(rt.method, rt.path, nil)
			req.Header.Set("Authorization", "Bearer "+token)
			w := httptest.NewRecorder()
			srv.Router.ServeHTTP(w, req)

			if w.Code != http.StatusForbidden {
				t.Fatalf("status = %d, want 403 for non-admin write", w.Code)
			}
		})
	}
}

func TestUnknownRouteIs404(t *testing.T) {
	srv := testRouter()
	w := httptest.NewRecorder()
	srv.Router.ServeHTTP(w, httptest.NewRequest("GET", "/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
}
