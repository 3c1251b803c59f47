package console

import (
	"context"
	"errors"
	"time"

	"telefonia-inventory-api/internal/models"
	"telefonia-inventory-api/pkg/exportcsv"

	"github.com/sirupsen/logrus"
)

// DefaultExportTimeout bounds the server-side export request before the
// exporter falls back to generating the file locally.
const DefaultExportTimeout = 15 * time.Second

// ErrEmptyResult signals that the filter matched no rows, server-side or
// locally. No file is produced.
var ErrEmptyResult = errors.New("nessun dato da esportare")

// ExportResult is a generated download. Fallback is true when the bytes
// were produced locally from cached rows instead of by the backend.
type ExportResult struct {
	Filename string
	Data     []byte
	Fallback bool
}

// Exporter produces CSV downloads, preferring the backend and falling back
// to local generation from the caller's cached rows when the backend fails.
type Exporter struct {
	client  *Client
	log     logrus.FieldLogger
	Timeout time.Duration
}

// NewExporter builds an exporter over the shared API client.
func NewExporter(client *Client) *Exporter {
	return &Exporter{
		client:  client,
		log:     logrus.StandardLogger(),
		Timeout: DefaultExportTimeout,
	}
}

// ExportDevices downloads the device export. cached holds the rows already
// loaded in the inventory screen, used only when the backend call fails.
func (e *Exporter) ExportDevices(ctx context.Context, filter models.ExportFilter, cached []models.Device) (ExportResult, error) {
	res, err := e.fromServer(ctx, "/export/devices", filter, "devices")
	if err == nil || errors.Is(err, ErrEmptyResult) {
		return res, err
	}
	e.log.WithError(err).Warn("server export failed, generating locally")

	rows := exportcsv.FilterDevices(cached, filter)
	if len(rows) == 0 {
		return ExportResult{}, ErrEmptyResult
	}
	return ExportResult{
		Filename: exportcsv.Filename("devices", time.Now()),
		Data:     exportcsv.DeviceDocument(rows).Bytes(),
		Fallback: true,
	}, nil
}

// ExportAssignments downloads the assignment export. A ReferenceDate on the
// filter stamps the filename in place of the generation date, matching the
// server's behavior.
func (e *Exporter) ExportAssignments(ctx context.Context, filter models.ExportFilter, cached []models.Assignment) (ExportResult, error) {
	res, err := e.fromServer(ctx, "/export/assignments", filter, "assignments")
	if err == nil || errors.Is(err, ErrEmptyResult) {
		return res, err
	}
	e.log.WithError(err).Warn("server export failed, generating locally")

	rows := exportcsv.FilterAssignments(cached, filter)
	if len(rows) == 0 {
		return ExportResult{}, ErrEmptyResult
	}
	stamp := time.Now()
	if filter.ReferenceDate != nil {
		stamp = *filter.ReferenceDate
	}
	return ExportResult{
		Filename: exportcsv.Filename("assignments", stamp),
		Data:     exportcsv.AssignmentDocument(rows).Bytes(),
		Fallback: true,
	}, nil
}

func (e *Exporter) fromServer(ctx context.Context, path string, filter models.ExportFilter, entity string) (ExportResult, error) {
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultExportTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	data, header, err := e.client.postRaw(ctx, path, filter)
	if err != nil {
		return ExportResult{}, err
	}
	if len(data) == 0 {
		return ExportResult{}, ErrEmptyResult
	}

	filename, ok := exportcsv.ParseAttachmentFilename(header.Get("Content-Disposition"))
	if !ok {
		filename = exportcsv.Filename(entity, time.Now())
	}
	return ExportResult{Filename: filename, Data: data}, nil
}
