package models

import (
	"time"
)

// UserRole is the job role of a CRM user
type UserRole string

const (
	UserRoleAgent     UserRole = "Agent"
	UserRoleBroker    UserRole = "Broker"
	UserRoleAssistant UserRole = "Assistant"
	UserRoleManager   UserRole = "Manager"
)

// UserStatus is the employment status of a CRM user
type UserStatus string

const (
	UserStatusActive   UserStatus = "Active"
	UserStatusInactive UserStatus = "Inactive"
	UserStatusOnLeave  UserStatus = "On Leave"
)

// User is an agent, broker or staff member of the brokerage.
type User struct {
	ID            int64      `json:"id" db:"id"`
	FirstName     string     `json:"first_name" db:"first_name"`
	LastName      string     `json:"last_name" db:"last_name"`
	Email         string     `json:"email" db:"email"`
	Phone         string     `json:"phone,omitempty" db:"phone"`
	Role          UserRole   `json:"role" db:"role"`
	Status        UserStatus `json:"status" db:"status"`
	BrokerageName string     `json:"brokerage_name,omitempty" db:"brokerage_name"`
	CreatedAt     time.Time  `json:"created_date" db:"created_date"`
}

// FullName returns "First Last".
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}
