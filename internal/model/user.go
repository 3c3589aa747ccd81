package model

import (
	"time"

	"github.com/google/uuid"
)

// Role is the access class of a user.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RolePatient, RoleDoctor, RoleAdmin:
		return true
	}
	return false
}

// User represents a system user
type User struct {
	Base
	Name             string  `json:"name" db:"name"`
	Email            string  `json:"email" db:"email"`
	PasswordHash     string  `json:"-" db:"password_hash"`
	Role             Role    `json:"role" db:"role"`
	City             *string `json:"city" db:"city"`
	Country          *string `json:"country" db:"country"`
	IsDoctorVerified bool    `json:"is_doctor_verified" db:"is_doctor_verified"`
}

// IsVerifiedDoctor reports whether u can be searched for and booked.
func (u *User) IsVerifiedDoctor() bool {
	return u != nil && u.Role == RoleDoctor && u.IsDoctorVerified
}

// Identity is the acting user attached to an authenticated request.
type Identity struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	Role             Role      `json:"role"`
	City             *string   `json:"city"`
	Country          *string   `json:"country"`
	IsDoctorVerified bool      `json:"is_doctor_verified"`
}

func (u *User) Identity() *Identity {
	return &Identity{
		ID:               u.ID,
		Name:             u.Name,
		Email:            u.Email,
		Role:             u.Role,
		City:             u.City,
		Country:          u.Country,
		IsDoctorVerified: u.IsDoctorVerified,
	}
}

// DoctorSummary is the public projection returned by doctor search.
type DoctorSummary struct {
	ID      uuid.UUID `json:"id" db:"id"`
	Name    string    `json:"name" db:"name"`
	City    *string   `json:"city" db:"city"`
	Country *string   `json:"country" db:"country"`
}

// UserSummary is the admin dashboard projection of a user.
type UserSummary struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	City      *string   `json:"city" db:"city"`
	Country   *string   `json:"country" db:"country"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Dashboard groups the three admin lists.
type Dashboard struct {
	VerificationList []*UserSummary `json:"verificationList"`
	VerifiedDoctors  []*UserSummary `json:"verifiedDoctors"`
	AllPatients      []*UserSummary `json:"allPatients"`
}

// DoctorSearch filters the doctor directory.
type DoctorSearch struct {
	City    string `form:"city" binding:"required,notblank"`
	Country string `form:"country" binding:"required,notblank"`
}
