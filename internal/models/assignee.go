package models

import "time"

// Assignee is the person side of an assignment. The assignment screen only
// reads this roster; administration happens through the dedicated routes.
type Assignee struct {
	ID                 int64     `json:"id"`
	FirstName          string    `json:"first_name"`
	LastName           string    `json:"last_name"`
	UserType           string    `json:"user_type,omitempty"`
	OrganizationalUnit string    `json:"organizational_unit,omitempty"`
	Note               string    `json:"note,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// FullName returns "first last" for display and search.
func (a Assignee) FullName() string {
	return a.FirstName + " " + a.LastName
}
