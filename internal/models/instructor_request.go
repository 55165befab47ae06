package models

import "time"

type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

type RequestSource string

const (
	RequestSourceUser  RequestSource = "user"
	RequestSourceAdmin RequestSource = "admin"
)

// InstructorRequest keeps history: a user may have several records over
// time, at most one of them pending.
type InstructorRequest struct {
	ID           string        `json:"_id"`
	UserID       string        `json:"userId"`
	Status       RequestStatus `json:"status"`
	Source       RequestSource `json:"source"`
	Message      string        `json:"message"`
	ReviewedBy   string        `json:"reviewedBy"`
	ReviewedAt   *time.Time    `json:"reviewedAt,omitempty"`
	DecisionNote string        `json:"decisionNote"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`

	// Filled only for admin listings.
	User *User `json:"user,omitempty"`
}

// RequestQuota reports the per-day submission allowance.
type RequestQuota struct {
	DailyMax       int   `json:"dailyMax"`
	RequestsToday  int64 `json:"requestsToday"`
	RemainingToday int64 `json:"remainingToday"`
}
