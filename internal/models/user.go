package models

import "time"

type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

// User mirrors the identity provider's profile; ID is the provider's
// user id, not a locally generated one.
type User struct {
	ID              string    `json:"_id"`
	Email           string    `json:"email"`
	Name            string    `json:"name"`
	ImageURL        string    `json:"imageUrl"`
	Role            Role      `json:"role"`
	EnrolledCourses []string  `json:"enrolledCourses"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}
