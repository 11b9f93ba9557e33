package entity

import "time"

// User is a company member as seen by the approver resolver
type User struct {
	ID        int64     `json:"id"`
	CompanyID int64     `json:"company_id"`
	RoleID    int64     `json:"role_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}
