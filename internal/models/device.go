package models

import "time"

// Device represents a physical inventory device tracked independently of
// any person assignment. DeviceKind, Model, Carrier, Service, Convention and
// Status hold the descriptions of the matching lookup entries.
type Device struct {
	ID           int64      `json:"id"`
	Asset        string     `json:"asset"`
	DeviceKind   string     `json:"device_kind,omitempty"`
	Model        string     `json:"model,omitempty"`
	IMEI         string     `json:"imei,omitempty"`
	SerialNumber string     `json:"serial_number,omitempty"`
	InventoryID  string     `json:"inventory_id,omitempty"`
	PhoneNumber  string     `json:"phone_number,omitempty"`
	Site         string     `json:"site,omitempty"`
	Supplier     string     `json:"supplier,omitempty"`
	Carrier      string     `json:"carrier,omitempty"`
	Service      string     `json:"service,omitempty"`
	Convention   string     `json:"convention,omitempty"`
	Note         string     `json:"note,omitempty"`
	ValidFrom    *time.Time `json:"valid_from,omitempty"`
	ValidTo      *time.Time `json:"valid_to,omitempty"`
	Status       string     `json:"status,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// CreateDeviceRequest represents the request body for creating a device.
type CreateDeviceRequest struct {
	Asset        string     `json:"asset" validate:"required"`
	DeviceKind   string     `json:"device_kind,omitempty"`
	Model        string     `json:"model,omitempty"`
	IMEI         string     `json:"imei,omitempty"`
	SerialNumber string     `json:"serial_number,omitempty"`
	InventoryID  string     `json:"inventory_id,omitempty"`
	PhoneNumber  string     `json:"phone_number,omitempty"`
	Site         string     `json:"site,omitempty"`
	Supplier     string     `json:"supplier,omitempty"`
	Carrier      string     `json:"carrier,omitempty"`
	Service      string     `json:"service,omitempty"`
	Convention   string     `json:"convention,omitempty"`
	Note         string     `json:"note,omitempty"`
	ValidFrom    *time.Time `json:"valid_from,omitempty"`
	ValidTo      *time.Time `json:"valid_to,omitempty"`
	Status       string     `json:"status,omitempty"`
}
