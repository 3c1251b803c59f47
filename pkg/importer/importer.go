// Package importer loads inventory devices from Excel workbooks. Column
// headers are matched to device fields through a YAML mapping so suppliers
// can deliver their own spreadsheet layouts.
package importer

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tealeg/xlsx/v3"
	"gopkg.in/yaml.v3"
)

// ImportOptions defines the configuration for Excel import operations
type ImportOptions struct {
	MappingPath string // optional; built-in mapping when empty
	DryRun      bool
	MaxErrors   int // default 50
}

// RowError represents an error that occurred during row processing
type RowError struct {
	Sheet   string `json:"sheet"`
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// SheetSummary contains the import statistics for a single sheet
type SheetSummary struct {
	Name     string     `json:"name"`
	Inserted int        `json:"inserted"`
	Updated  int        `json:"updated"`
	Skipped  int        `json:"skipped"`
	Errors   int        `json:"errors"`
	Samples  []RowError `json:"error_samples,omitempty"`
}

// ImportSummary contains the overall import statistics
type ImportSummary struct {
	Inserted int            `json:"inserted"`
	Updated  int            `json:"updated"`
	Skipped  int            `json:"skipped"`
	Errors   int            `json:"errors"`
	Sheets   []SheetSummary `json:"sheets"`
	DryRun   bool           `json:"dry_run"`
}

// MappingConfig maps spreadsheet column headers onto device fields.
type MappingConfig struct {
	Version int `yaml:"version"`
	// Columns maps a device field name to the header(s) that may carry it.
	Columns map[string][]string `yaml:"columns"`
	// DateFormats tried in order when parsing validity dates.
	DateFormats []string `yaml:"date_formats"`
}

// deviceFields are the importable columns of the devices table. asset is
// the natural key; rows without one are skipped.
var deviceFields = []string{
	"asset", "device_kind", "model", "imei", "serial_number", "inventory_id",
	"phone_number", "site", "supplier", "carrier", "service", "convention",
	"note", "valid_from", "valid_to", "status",
}

// defaultMapping handles the in-house spreadsheet layout.
var defaultMapping = MappingConfig{
	Version: 1,
	Columns: map[string][]string{
		"asset":         {"asset", "cespite"},
		"device_kind":   {"tipo", "tipo dispositivo", "device type"},
		"model":         {"modello", "model"},
		"imei":          {"imei"},
		"serial_number": {"seriale", "serial", "serial number", "s/n"},
		"inventory_id":  {"inventario", "inventory"},
		"phone_number":  {"numero", "numero di telefono", "phone"},
		"site":          {"sede", "site"},
		"supplier":      {"fornitore", "supplier"},
		"carrier":       {"operatore", "carrier"},
		"service":       {"servizio", "service"},
		"convention":    {"convenzione", "convention"},
		"note":          {"note", "notes"},
		"valid_from":    {"valido dal", "valid from"},
		"valid_to":      {"valido al", "valid to"},
		"status":        {"stato", "status"},
	},
	DateFormats: []string{"2006-01-02", "02/01/2006", "01-02-06"},
}

// LoadMapping reads a YAML mapping, falling back to the built-in one when
// path is empty.
func LoadMapping(path string) (MappingConfig, error) {
	if path == "" {
		return defaultMapping, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return MappingConfig{}, fmt.Errorf("read mapping: %w", err)
	}
	var cfg MappingConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return MappingConfig{}, fmt.Errorf("parse mapping: %w", err)
	}
	if len(cfg.DateFormats) == 0 {
		cfg.DateFormats = defaultMapping.DateFormats
	}
	return cfg, nil
}

// headerIndex resolves which spreadsheet column holds each device field.
func (m MappingConfig) headerIndex(headers []string) map[string]int {
	idx := map[string]int{}
	for i, h := range headers {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "" {
			continue
		}
		for field, aliases := range m.Columns {
			for _, alias := range aliases {
				if h == strings.ToLower(alias) {
					if _, taken := idx[field]; !taken {
						idx[field] = i
					}
				}
			}
		}
	}
	return idx
}

// ImportExcel processes an Excel workbook and upserts devices keyed on
// their asset tag. With DryRun the transaction is rolled back after
// counting what would have changed.
func ImportExcel(ctx context.Context, db *pgxpool.Pool, r io.Reader, opts ImportOptions) (ImportSummary, error) {
	summary := ImportSummary{
		DryRun: opts.DryRun,
		Sheets: []SheetSummary{},
	}
	if opts.MaxErrors <= 0 {
		opts.MaxErrors = 50
	}

	mapping, err := LoadMapping(opts.MappingPath)
	if err != nil {
		return summary, err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return summary, fmt.Errorf("read workbook: %w", err)
	}
	wb, err := xlsx.OpenBinary(data)
	if err != nil {
		return summary, fmt.Errorf("open workbook: %w", err)
	}

	tx, err := db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return summary, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, sheet := range wb.Sheets {
		ss, err := importSheet(ctx, tx, sheet, mapping, opts)
		if err != nil {
			return summary, err
		}
		summary.Sheets = append(summary.Sheets, ss)
		summary.Inserted += ss.Inserted
		summary.Updated += ss.Updated
		summary.Skipped += ss.Skipped
		summary.Errors += ss.Errors
		if summary.Errors > opts.MaxErrors {
			return summary, fmt.Errorf("aborted after %d row errors", summary.Errors)
		}
	}

	if opts.DryRun {
		return summary, nil
	}
	if err := tx.Commit(ctx); err != nil {
		return summary, fmt.Errorf("commit: %w", err)
	}
	return summary, nil
}

func importSheet(ctx context.Context, tx pgx.Tx, sheet *xlsx.Sheet, mapping MappingConfig, opts ImportOptions) (SheetSummary, error) {
	ss := SheetSummary{Name: sheet.Name}

	if sheet.MaxRow < 1 {
		return ss, nil
	}

	headerRow, err := sheet.Row(0)
	if err != nil {
		return ss, fmt.Errorf("sheet %s: %w", sheet.Name, err)
	}
	headers := make([]string, sheet.MaxCol)
	for c := 0; c < sheet.MaxCol; c++ {
		headers[c] = headerRow.GetCell(c).Value
	}
	idx := mapping.headerIndex(headers)
	if _, ok := idx["asset"]; !ok {
		ss.Errors++
		ss.Samples = append(ss.Samples, RowError{Sheet: sheet.Name, Row: 1, Message: "no asset column recognized"})
		return ss, nil
	}

	for rn := 1; rn < sheet.MaxRow; rn++ {
		row, err := sheet.Row(rn)
		if err != nil {
			return ss, fmt.Errorf("sheet %s row %d: %w", sheet.Name, rn+1, err)
		}

		values := map[string]string{}
		for field, col := range idx {
			values[field] = strings.TrimSpace(row.GetCell(col).Value)
		}
		if values["asset"] == "" {
			ss.Skipped++
			continue
		}

		args := make([]interface{}, 0, len(deviceFields))
		for _, field := range deviceFields {
			v := values[field]
			if field == "valid_from" || field == "valid_to" {
				args = append(args, parseDate(v, mapping.DateFormats))
				continue
			}
			args = append(args, v)
		}

		tag, err := tx.Exec(ctx, upsertDeviceSQL, args...)
		if err != nil {
			ss.Errors++
			if len(ss.Samples) < 10 {
				ss.Samples = append(ss.Samples, RowError{Sheet: sheet.Name, Row: rn + 1, Message: err.Error()})
			}
			continue
		}
		if tag.RowsAffected() > 0 {
			// Fresh inserts keep created_at == updated_at; the upsert
			// bumps updated_at, so the comparison tells the two apart.
			var existed bool
			if err := tx.QueryRow(ctx,
				`SELECT created_at < updated_at FROM devices WHERE asset = $1`,
				values["asset"]).Scan(&existed); err == nil && existed {
				ss.Updated++
			} else {
				ss.Inserted++
			}
		}
	}
	return ss, nil
}

const upsertDeviceSQL = `
	INSERT INTO devices (id, asset, device_kind, model, imei, serial_number, inventory_id,
	                     phone_number, site, supplier, carrier, service, convention, note,
	                     valid_from, valid_to, status)
	SELECT COALESCE(MAX(id), 0) + 1, $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16 FROM devices
	ON CONFLICT (asset) DO UPDATE SET
		device_kind = EXCLUDED.device_kind,
		model = EXCLUDED.model,
		imei = EXCLUDED.imei,
		serial_number = EXCLUDED.serial_number,
		inventory_id = EXCLUDED.inventory_id,
		phone_number = EXCLUDED.phone_number,
		site = EXCLUDED.site,
		supplier = EXCLUDED.supplier,
		carrier = EXCLUDED.carrier,
		service = EXCLUDED.service,
		convention = EXCLUDED.convention,
		note = EXCLUDED.note,
		valid_from = EXCLUDED.valid_from,
		valid_to = EXCLUDED.valid_to,
		status = EXCLUDED.status,
		updated_at = now()`

func parseDate(s string, formats []string) interface{} {
	if s == "" {
		return nil
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t
		}
	}
	return nil
}
