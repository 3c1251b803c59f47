package console

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferenceEndpoints(t *testing.T) {
	e := ReferenceEndpoints("device-types")
	assert.Equal(t, "/device-types/list", e.List)
	assert.Equal(t, "/device-types/create", e.Create)
	assert.Equal(t, "/device-types/update/:id", e.Update)
	assert.Equal(t, "/device-types/delete/:id", e.Delete)
}

func TestExpandID(t *testing.T) {
	assert.Equal(t, "/devices/update/42", expandID("/devices/update/:id", 42))
	assert.Equal(t, "/plain", expandID("/plain", 42))
}

func TestDoDecodesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"code":"REFERENCE_ERROR","message":"referenziato"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	defer client.HTTPClient.CloseIdleConnections()

	err := client.do(context.Background(), http.MethodGet, "/x", nil, nil, nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "REFERENCE_ERROR", apiErr.Code)
	assert.Equal(t, "referenziato", apiErr.Message)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
}

func TestDoFallsBackToHTTPCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gateway exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	defer client.HTTPClient.CloseIdleConnections()

	err := client.do(context.Background(), http.MethodGet, "/x", nil, nil, nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "HTTP_502", apiErr.Code)
}

func TestDoSendsBearerToken(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	defer client.HTTPClient.CloseIdleConnections()
	client.Token = "abc123"

	var out []struct{}
	require.NoError(t, client.do(context.Background(), http.MethodGet, "/x", nil, nil, &out))
	assert.Equal(t, "Bearer abc123", got)
}
