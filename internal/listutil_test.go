package internal

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
)

func TestParseListParams(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		wantLimit  int
		wantOffset int
		wantQ      string
		wantSort   string
	}{
		{"defaults", "/devices/list", 50, 0, "", ""},
		{"explicit", "/devices/list?limit=10&offset=20&q=tim&sort=-asset", 10, 20, "tim", "-asset"},
		{"limit capped", "/devices/list?limit=9999", 500, 0, "", ""},
		{"negative limit ignored", "/devices/list?limit=-5", 50, 0, "", ""},
		{"negative offset ignored", "/devices/list?offset=-5", 50, 0, "", ""},
		{"garbage ignored", "/devices/list?limit=abc&offset=xyz", 50, 0, "", ""},
		{"q trimmed", "/devices/list?q=%20tim%20", 50, 0, "tim", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := parseListParams(httptest.NewRequest("GET", tt.url, nil))
			if p.limit != tt.wantLimit {
				t.Errorf("limit = %d, want %d", p.limit, tt.wantLimit)
			}
			if p.offset != tt.wantOffset {
				t.Errorf("offset = %d, want %d", p.offset, tt.wantOffset)
			}
			if p.q != tt.wantQ {
				t.Errorf("q = %q, want %q", p.q, tt.wantQ)
			}
			if p.sort != tt.wantSort {
				t.Errorf("sort = %q, want %q", p.sort, tt.wantSort)
			}
		})
	}
}

func TestBuildOrderBy(t *testing.T) {
	allowed := map[string]string{"id": "id", "asset": "asset", "model": "model"}

	tests := []struct {
		name string
		sort string
		want string
	}{
		{"empty defaults to id", "", " ORDER BY id ASC"},
		{"single asc", "asset", " ORDER BY asset ASC"},
		{"single desc", "-asset", " ORDER BY asset DESC"},
		{"multiple", "asset,-model", " ORDER BY asset ASC, model DESC"},
		{"unknown key dropped", "asset,password", " ORDER BY asset ASC"},
		{"all unknown falls back", "password;drop", " ORDER BY id ASC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildOrderBy(tt.sort, allowed); got != tt.want {
				t.Errorf("buildOrderBy(%q) = %q, want %q", tt.sort, got, tt.want)
			}
		})
	}
}

func TestSendListResponse(t *testing.T) {
	w := httptest.NewRecorder()
	sendListResponse(w, []string{"a", "b"}, 42)

	if w.Code != 200 {
		t.Fatalf("status = %d", w.Code)
	}
	if got := w.Header().Get("X-Total-Count"); got != "42" {
		t.Errorf("X-Total-Count = %q", got)
	}

	var items []string
	if err := json.Unmarshal(w.Body.Bytes(), &items); err != nil {
		t.Fatalf("body is not a bare array: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("got %d items", len(items))
	}
}

func TestNullIfEmpty(t *testing.T) {
	if nullIfEmpty("") != nil {
		t.Error("empty string must map to nil")
	}
	if nullIfEmpty("   ") != nil {
		t.Error("whitespace must map to nil")
	}
	if got := nullIfEmpty("x"); got != "x" {
		t.Errorf("got %v", got)
	}
}
