package models

type CourseProgress struct {
	UserID           string   `json:"userId"`
	CourseID         string   `json:"courseId"`
	LectureCompleted []string `json:"lectureCompleted"`
}
