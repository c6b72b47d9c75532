package models

import "time"

// Guardian is a parent or other responsible adult linked to students.
type Guardian struct {
	ID           string    `db:"id" json:"id"`
	SchoolID     string    `db:"school_id" json:"school_id"`
	FullName     string    `db:"full_name" json:"full_name"`
	Phone        string    `db:"phone" json:"phone"`
	Email        string    `db:"email" json:"email"`
	Relationship string    `db:"relationship" json:"relationship"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// GuardianLink is a guardian with its link flags for one student.
type GuardianLink struct {
	Guardian
	IsPrimaryContact   bool `db:"is_primary_contact" json:"is_primary_contact"`
	IsEmergencyContact bool `db:"is_emergency_contact" json:"is_emergency_contact"`
}
