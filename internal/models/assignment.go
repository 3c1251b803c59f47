package models

import "time"

// StatusAssigned is the status pushed onto a device (and defaulted onto a
// new assignment) when the assignment is created.
const StatusAssigned = "Assigned"

// Assignment is a time-bounded binding of one inventory device to one
// assignee. Asset, DeviceKind, CarrierLine, IMEI, SerialNumber and Model are
// denormalized from the bound device at save time; InventoryDeviceID keeps
// the authoritative link so renames and duplicate asset tags cannot break
// resolution.
type Assignment struct {
	ID                int64      `json:"id"`
	Asset             string     `json:"asset"`
	DeviceKind        string     `json:"device_kind,omitempty"`
	CarrierLine       string     `json:"carrier_line,omitempty"`
	IMEI              string     `json:"imei,omitempty"`
	SerialNumber      string     `json:"serial_number,omitempty"`
	Model             string     `json:"model,omitempty"`
	Status            string     `json:"status,omitempty"`
	StartDate         *time.Time `json:"start_date"`
	EndDate           *time.Time `json:"end_date,omitempty"`
	Note              string     `json:"note,omitempty"`
	AssigneeID        *int64     `json:"assignee_id"`
	InventoryDeviceID *int64     `json:"inventory_device_id,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// CreateAssignmentRequest represents the request body for creating an
// assignment. StartDate and AssigneeID are the only hard requirements; the
// device snapshot fields travel as-is.
type CreateAssignmentRequest struct {
	Asset             string     `json:"asset"`
	DeviceKind        string     `json:"device_kind,omitempty"`
	CarrierLine       string     `json:"carrier_line,omitempty"`
	IMEI              string     `json:"imei,omitempty"`
	SerialNumber      string     `json:"serial_number,omitempty"`
	Model             string     `json:"model,omitempty"`
	Status            string     `json:"status,omitempty"`
	StartDate         *time.Time `json:"start_date" validate:"required"`
	EndDate           *time.Time `json:"end_date,omitempty"`
	Note              string     `json:"note,omitempty"`
	AssigneeID        *int64     `json:"assignee_id" validate:"required"`
	InventoryDeviceID *int64     `json:"inventory_device_id,omitempty"`
}
