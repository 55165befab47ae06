package models

import "time"

type StudentInfo struct {
	ID       string `json:"_id"`
	Name     string `json:"name"`
	ImageURL string `json:"imageUrl"`
}

type EnrolledStudent struct {
	CourseTitle  string      `json:"courseTitle"`
	Student      StudentInfo `json:"student"`
	PurchaseDate time.Time   `json:"purchaseDate"`
}

type InstructorDashboard struct {
	TotalEarnings        float64           `json:"totalEarnings"`
	EnrolledStudentsData []EnrolledStudent `json:"enrolledStudentsData"`
	TotalCourses         int               `json:"totalCourses"`
}

type AdminDashboard struct {
	TotalUsers         int64   `json:"totalUsers"`
	TotalCourses       int64   `json:"totalCourses"`
	PublishedCourses   int64   `json:"publishedCourses"`
	UnpublishedCourses int64   `json:"unpublishedCourses"`
	PendingPurchases   int64   `json:"pendingPurchases"`
	CompletedPurchases int64   `json:"completedPurchases"`
	TotalRevenue       float64 `json:"totalRevenue"`
	ProgressRecords    int64   `json:"totalCourseProgressDocs"`
}
