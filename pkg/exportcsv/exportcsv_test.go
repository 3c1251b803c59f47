package exportcsv

import (
	"strings"
	"testing"
	"time"
)

func TestDocumentBytes(t *testing.T) {
	doc := &Document{Columns: []string{"Asset", "Note"}}
	doc.Append([]string{"A-001", "ok"})
	doc.Append([]string{"A-002"})

	out := doc.Bytes()

	if out[0] != 0xEF || out[1] != 0xBB || out[2] != 0xBF {
		t.Fatal("output must start with the UTF-8 BOM")
	}

	body := string(out[3:])
	want := "Asset;Note\r\nA-001;ok\r\nA-002;\r\n"
	if body != want {
		t.Errorf("got %q, want %q", body, want)
	}
}

func TestEscapeField(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Smartphone", "Smartphone"},
		{"separator", "a;b", `"a;b"`},
		{"quotes doubled", `say "hi"`, `"say ""hi"""`},
		{"newline", "a\nb", "\"a\nb\""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := escapeField(tt.in); got != tt.want {
				t.Errorf("escapeField(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFilename(t *testing.T) {
	date := time.Date(2024, 3, 5, 15, 4, 5, 0, time.UTC)
	if got := Filename("devices", date); got != "devices_export_2024-03-05.csv" {
		t.Errorf("unexpected filename %q", got)
	}
}

func TestParseAttachmentFilename(t *testing.T) {
	name, ok := ParseAttachmentFilename(`attachment; filename="devices_export_2024-03-05.csv"`)
	if !ok || name != "devices_export_2024-03-05.csv" {
		t.Errorf("got %q, ok=%v", name, ok)
	}

	if _, ok := ParseAttachmentFilename(""); ok {
		t.Error("missing header must not parse")
	}
	if _, ok := ParseAttachmentFilename("attachment"); ok {
		t.Error("header without filename must not parse")
	}
}

func TestFormatDate(t *testing.T) {
	if got := FormatDate(nil); got != "" {
		t.Errorf("nil date must render empty, got %q", got)
	}
	d := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	if got := FormatDate(&d); got != "2024-07-01" {
		t.Errorf("got %q", got)
	}
}

func TestDocumentPadsShortRows(t *testing.T) {
	doc := &Document{Columns: []string{"a", "b", "c"}}
	doc.Append([]string{"only"})
	line := strings.Split(string(doc.Bytes()), "\r\n")[1]
	if line != "only;;" {
		t.Errorf("short row not padded: %q", line)
	}
}
