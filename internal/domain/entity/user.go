package entity

import "time"

// Role is an actor role carried by an authenticated identity
type Role string

const (
	RoleEmployee Role = "employee"
	RoleHR       Role = "hr"
	RoleFinance  Role = "finance"
)

var validRoles = map[Role]bool{
	RoleEmployee: true,
	RoleHR:       true,
	RoleFinance:  true,
}

// IsValid returns true if the role is one of the known roles
func (r Role) IsValid() bool {
	return validRoles[r]
}

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// User is an entry of the service's user directory
type User struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Role       Role      `json:"role"`
	LarkOpenID string    `json:"lark_open_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
