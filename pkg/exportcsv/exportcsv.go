// Package exportcsv renders the semicolon-delimited CSV documents produced
// by the export endpoints and by the console's local fallback. The format is
// a contract with downstream spreadsheets: UTF-8 with a byte-order mark,
// CRLF line endings, a fixed header row, double quotes escaped by doubling.
package exportcsv

import (
	"bytes"
	"fmt"
	"mime"
	"strings"
	"time"
)

const (
	separator = ";"
	crlf      = "\r\n"
)

// utf8BOM keeps Excel from guessing the wrong encoding.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Document is one exportable table: a fixed column list and its rows.
type Document struct {
	Columns []string
	Rows    [][]string
}

// Append adds one data row. Short rows are padded with empty cells so the
// record always matches the header width.
func (d *Document) Append(row []string) {
	if len(row) < len(d.Columns) {
		padded := make([]string, len(d.Columns))
		copy(padded, row)
		row = padded
	}
	d.Rows = append(d.Rows, row)
}

// Bytes renders the document.
func (d *Document) Bytes() []byte {
	var buf bytes.Buffer
	buf.Write(utf8BOM)
	writeRecord(&buf, d.Columns)
	for _, row := range d.Rows {
		writeRecord(&buf, row)
	}
	return buf.Bytes()
}

func writeRecord(buf *bytes.Buffer, fields []string) {
	for i, f := range fields {
		if i > 0 {
			buf.WriteString(separator)
		}
		buf.WriteString(escapeField(f))
	}
	buf.WriteString(crlf)
}

func escapeField(s string) string {
	if !strings.ContainsAny(s, separator+`"`+"\r\n") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// Filename builds the date-stamped download name for an entity export.
func Filename(entity string, date time.Time) string {
	return fmt.Sprintf("%s_export_%s.csv", entity, date.Format("2006-01-02"))
}

// ParseAttachmentFilename extracts the suggested filename from a
// Content-Disposition header. ok is false when the header is absent or
// unparseable, in which case callers fall back to a default name.
func ParseAttachmentFilename(header string) (filename string, ok bool) {
	if header == "" {
		return "", false
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return "", false
	}
	name := params["filename"]
	if name == "" {
		return "", false
	}
	return name, true
}

// FormatDate renders an optional date cell; nil becomes the empty string.
func FormatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
