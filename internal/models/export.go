package models

import "time"

// ExportFilter parameterizes CSV generation. It is transient: never
// persisted, only posted to the export endpoint or evaluated client-side
// when the backend is unreachable.
type ExportFilter struct {
	DateFrom        *time.Time `json:"date_from,omitempty"`
	DateTo          *time.Time `json:"date_to,omitempty"`
	DeviceTypeID    *int64     `json:"device_type_id,omitempty"`
	ModelID         *int64     `json:"model_id,omitempty"`
	CarrierID       *int64     `json:"carrier_id,omitempty"`
	StatusID        *int64     `json:"status_id,omitempty"`
	ConventionID    *int64     `json:"convention_id,omitempty"`
	ServiceTypeCode string     `json:"service_type_code,omitempty"`
	SiteCode        string     `json:"site_code,omitempty"`
	// IncludeOpenEnded defaults to true when absent from the payload.
	IncludeOpenEnded *bool `json:"include_open_ended,omitempty"`
	// ReferenceDate, when set, stamps the assignment export filename
	// instead of the generation date.
	ReferenceDate *time.Time `json:"reference_date,omitempty"`
}

// OpenEnded reports the include-open-ended flag with its default applied.
func (f ExportFilter) OpenEnded() bool {
	if f.IncludeOpenEnded == nil {
		return true
	}
	return *f.IncludeOpenEnded
}
