//go:generate mockgen -source=repository.go -destination=mocks/repository_mocks.go -package=mocks

package repository

import (
	"context"
	"time"

	"github.com/skillsync/skillsync-backend/internal/models"
)

type UserRepository interface {
	Upsert(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	SetRole(ctx context.Context, id string, role models.Role) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
}

type CourseRepository interface {
	Create(ctx context.Context, course *models.Course) error
	GetByID(ctx context.Context, id string) (*models.Course, error)
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id string) error
	ListPublished(ctx context.Context) ([]models.Course, error)
	ListByInstructor(ctx context.Context, instructorID string) ([]models.Course, error)
	ListAll(ctx context.Context) ([]models.CourseSummary, error)
	SetPublished(ctx context.Context, id string, published bool) error
	UpsertRating(ctx context.Context, courseID, userID string, rating int32) error
	Count(ctx context.Context) (total, published int64, err error)
}

type PurchaseRepository interface {
	Create(ctx context.Context, purchase *models.Purchase) error
	GetByID(ctx context.Context, id string) (*models.Purchase, error)
	UpdateStatus(ctx context.Context, id string, status models.PurchaseStatus) error
	ListDetailed(ctx context.Context) ([]models.PurchaseDetail, error)
	ListCompletedByInstructor(ctx context.Context, instructorID string) ([]models.PurchaseDetail, error)
	CountByStatus(ctx context.Context, status models.PurchaseStatus) (int64, error)
	SumCompleted(ctx context.Context) (float64, error)
	ExistsByCourse(ctx context.Context, courseID string) (bool, error)
}

type EnrollmentRepository interface {
	// Add is a single idempotent upsert; re-adding an existing pair is a no-op.
	Add(ctx context.Context, userID, courseID string) error
	IsEnrolled(ctx context.Context, userID, courseID string) (bool, error)
	CoursesByUser(ctx context.Context, userID string) ([]models.Course, error)
	CourseIDsByUser(ctx context.Context, userID string) ([]string, error)
	StudentsByCourse(ctx context.Context, courseID string) ([]string, error)
	CountByCourse(ctx context.Context, courseID string) (int64, error)
	DeleteByCourse(ctx context.Context, courseID string) error
}

type ProgressRepository interface {
	// MarkLecture reports false when the lecture was already completed.
	MarkLecture(ctx context.Context, userID, courseID, lectureID string) (bool, error)
	Lectures(ctx context.Context, userID, courseID string) ([]string, error)
	DeleteByCourse(ctx context.Context, courseID string) error
	Count(ctx context.Context) (int64, error)
}

type InstructorRequestRepository interface {
	Create(ctx context.Context, req *models.InstructorRequest) error
	GetByID(ctx context.Context, id string) (*models.InstructorRequest, error)
	Update(ctx context.Context, req *models.InstructorRequest) error
	LatestByUser(ctx context.Context, userID string) (*models.InstructorRequest, error)
	LatestByUserAndStatus(ctx context.Context, userID string, status models.RequestStatus) (*models.InstructorRequest, error)
	CountInWindow(ctx context.Context, userID string, from, to time.Time) (int64, error)
	List(ctx context.Context, status models.RequestStatus) ([]models.InstructorRequest, error)
}
