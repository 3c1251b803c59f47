package models

import "time"

// ReferenceItem is the shared shape of every lookup entity: device types,
// device models, mobile providers, device statuses, service types and
// conventions. Device models carry only a description; device statuses also
// carry an alias shown in compact table views.
type ReferenceItem struct {
	ID          int64     `json:"id"`
	Code        string    `json:"code,omitempty"`
	Description string    `json:"description"`
	Alias       *string   `json:"alias,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateReferenceItemRequest represents the request body for creating a
// lookup entry.
type CreateReferenceItemRequest struct {
	Code        string  `json:"code,omitempty"`
	Description string  `json:"description" validate:"required"`
	Alias       *string `json:"alias,omitempty"`
}
