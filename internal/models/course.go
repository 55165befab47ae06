package models

import "time"

type Lecture struct {
	LectureID       string  `json:"lectureId"`
	LectureTitle    string  `json:"lectureTitle"`
	LectureDuration float64 `json:"lectureDuration"`
	LectureURL      string  `json:"lectureUrl"`
	IsPreviewFree   bool    `json:"isPreviewFree"`
	LectureOrder    int     `json:"lectureOrder"`
}

type Chapter struct {
	ChapterID      string    `json:"chapterId"`
	ChapterTitle   string    `json:"chapterTitle"`
	ChapterOrder   int       `json:"chapterOrder"`
	ChapterContent []Lecture `json:"chapterContent"`
}

type CourseRating struct {
	UserID string `json:"userId"`
	Rating int32  `json:"rating"`
}

// Course content (chapters and lectures) is stored as one JSONB column;
// the editor always submits the whole tree.
type Course struct {
	ID               string         `json:"_id"`
	InstructorID     string         `json:"instructor"`
	Title            string         `json:"courseTitle"`
	Description      string         `json:"courseDescription"`
	Thumbnail        string         `json:"courseThumbnail"`
	Price            float64        `json:"coursePrice"`
	Discount         float64        `json:"discount"`
	IsPublished      bool           `json:"isPublished"`
	Content          []Chapter      `json:"courseContent"`
	Ratings          []CourseRating `json:"courseRatings"`
	EnrolledStudents []string       `json:"enrolledStudents"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
}

// DiscountedPrice is the amount snapshotted onto a Purchase at checkout.
func (c *Course) DiscountedPrice() float64 {
	return c.Price - c.Discount*c.Price/100
}

// CourseSummary is the admin listing row, with instructor info attached.
type CourseSummary struct {
	Course
	Instructor *User `json:"instructorInfo,omitempty"`
}
