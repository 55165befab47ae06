package models

import "time"

type PurchaseStatus string

const (
	StatusPending   PurchaseStatus = "pending"
	StatusCompleted PurchaseStatus = "completed"
	StatusFailed    PurchaseStatus = "failed"
)

// Purchase is one checkout attempt for one course by one user. Amount is
// snapshotted at creation time and never recomputed. Status only moves
// forward: completed is permanent, failed yields to a late success.
type Purchase struct {
	ID        string         `json:"_id"`
	CourseID  string         `json:"courseId"`
	UserID    string         `json:"userId"`
	Amount    float64        `json:"amount"`
	Status    PurchaseStatus `json:"status"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// PurchaseDetail is the audit listing row with joined display fields.
type PurchaseDetail struct {
	Purchase
	CourseTitle  string `json:"courseTitle"`
	UserName     string `json:"userName"`
	UserEmail    string `json:"userEmail"`
	UserImage    string `json:"userImage"`
	InstructorID string `json:"instructorId"`
}
