package service

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/skillsync/skillsync-backend/internal/infrastructure/redis"
	"github.com/skillsync/skillsync-backend/internal/models"
	"github.com/skillsync/skillsync-backend/internal/repository"
	pkgerrors "github.com/skillsync/skillsync-backend/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

const (
	instructorDashboardKeyFmt = "instructor:%s:dashboard"
	dashboardCacheTTL         = 5 * time.Minute
)

// CourseUpdate carries a partial edit; nil fields are left unchanged.
// Content and Thumbnail replace wholesale when present.
type CourseUpdate struct {
	Title       *string          `json:"courseTitle"`
	Description *string          `json:"courseDescription"`
	Thumbnail   *string          `json:"courseThumbnail"`
	Price       *float64         `json:"coursePrice"`
	Discount    *float64         `json:"discount"`
	IsPublished *bool            `json:"isPublished"`
	Content     []models.Chapter `json:"courseContent"`
}

type InstructorService interface {
	AddCourse(ctx context.Context, instructorID string, course *models.Course) error
	UpdateCourse(ctx context.Context, instructorID, courseID string, update *CourseUpdate) (*models.Course, error)
	DeleteCourse(ctx context.Context, instructorID, courseID string) error
	Courses(ctx context.Context, instructorID string) ([]models.Course, error)
	CourseForEdit(ctx context.Context, instructorID, courseID string) (*models.Course, error)
	Dashboard(ctx context.Context, instructorID string) (*models.InstructorDashboard, error)
	EnrolledStudents(ctx context.Context, instructorID string) ([]models.EnrolledStudent, error)
}

type instructorService struct {
	courses     repository.CourseRepository
	purchases   repository.PurchaseRepository
	enrollments repository.EnrollmentRepository
	progress    repository.ProgressRepository
	redisClient redis.RedisClient
}

func NewInstructorService(
	courses repository.CourseRepository,
	purchases repository.PurchaseRepository,
	enrollments repository.EnrollmentRepository,
	progress repository.ProgressRepository,
	redisClient redis.RedisClient,
) *instructorService {
	return &instructorService{
		courses:     courses,
		purchases:   purchases,
		enrollments: enrollments,
		progress:    progress,
		redisClient: redisClient,
	}
}

func (s *instructorService) AddCourse(ctx context.Context, instructorID string, course *models.Course) error {
	tracer := otel.Tracer("instructor-service")
	ctx, span := tracer.Start(ctx, "AddCourse")
	defer span.End()

	if course.Title == "" || course.Price < 0 {
		return pkgerrors.ErrInvalidInput
	}
	if course.Discount < 0 || course.Discount > 100 {
		return pkgerrors.ErrInvalidInput
	}
	if len(course.Content) == 0 {
		return pkgerrors.ErrInvalidInput
	}
	if err := validateLectureURLs(course.Content); err != nil {
		return err
	}

	course.ID = uuid.NewString()
	course.InstructorID = instructorID
	assignContentIDs(course.Content)

	if err := s.courses.Create(ctx, course); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "course creation failed")
		slog.Error("failed to create course", "instructor_id", instructorID, "error", err)
		return err
	}

	s.invalidateCatalog(ctx, instructorID, course.IsPublished)
	slog.Info("course created", "course_id", course.ID, "instructor_id", instructorID)
	return nil
}

func (s *instructorService) UpdateCourse(ctx context.Context, instructorID, courseID string, update *CourseUpdate) (*models.Course, error) {
	course, err := s.ownedCourse(ctx, instructorID, courseID)
	if err != nil {
		return nil, err
	}

	if update.Title != nil {
		course.Title = *update.Title
	}
	if update.Description != nil {
		if *update.Description == "" {
			return nil, pkgerrors.ErrInvalidInput
		}
		course.Description = *update.Description
	}
	if update.Thumbnail != nil {
		course.Thumbnail = *update.Thumbnail
	}
	if update.Price != nil {
		if *update.Price < 0 {
			return nil, pkgerrors.ErrInvalidInput
		}
		course.Price = *update.Price
	}
	if update.Discount != nil {
		if *update.Discount < 0 || *update.Discount > 100 {
			return nil, pkgerrors.ErrInvalidInput
		}
		course.Discount = *update.Discount
	}
	if update.IsPublished != nil {
		course.IsPublished = *update.IsPublished
	}
	if update.Content != nil {
		if err := validateLectureURLs(update.Content); err != nil {
			return nil, err
		}
		course.Content = update.Content
		assignContentIDs(course.Content)
	}

	if err := s.courses.Update(ctx, course); err != nil {
		slog.Error("failed to update course", "course_id", courseID, "error", err)
		return nil, err
	}

	s.invalidateCatalog(ctx, instructorID, true)
	return course, nil
}

// DeleteCourse refuses to delete a course anyone has enrolled in or
// paid for; admins use the moderation path for that.
func (s *instructorService) DeleteCourse(ctx context.Context, instructorID, courseID string) error {
	tracer := otel.Tracer("instructor-service")
	ctx, span := tracer.Start(ctx, "DeleteCourse")
	defer span.End()

	course, err := s.ownedCourse(ctx, instructorID, courseID)
	if err != nil {
		return err
	}

	enrolled, err := s.enrollments.CountByCourse(ctx, courseID)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if enrolled > 0 {
		return pkgerrors.ErrCourseHasStudents
	}

	hasPurchases, err := s.purchases.ExistsByCourse(ctx, courseID)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if hasPurchases {
		return pkgerrors.ErrCourseHasPurchases
	}

	if err := s.courses.Delete(ctx, courseID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "course deletion failed")
		return err
	}

	s.invalidateCatalog(ctx, instructorID, course.IsPublished)
	slog.Info("course deleted", "course_id", courseID, "instructor_id", instructorID)
	return nil
}

func (s *instructorService) Courses(ctx context.Context, instructorID string) ([]models.Course, error) {
	return s.courses.ListByInstructor(ctx, instructorID)
}

// CourseForEdit returns the full course, lecture URLs included, after an
// ownership check.
func (s *instructorService) CourseForEdit(ctx context.Context, instructorID, courseID string) (*models.Course, error) {
	return s.ownedCourse(ctx, instructorID, courseID)
}

func (s *instructorService) Dashboard(ctx context.Context, instructorID string) (*models.InstructorDashboard, error) {
	tracer := otel.Tracer("instructor-service")
	ctx, span := tracer.Start(ctx, "InstructorDashboard")
	defer span.End()

	cacheKey := fmt.Sprintf(instructorDashboardKeyFmt, instructorID)
	if cached, err := s.redisClient.Get(ctx, cacheKey); err == nil {
		var dashboard models.InstructorDashboard
		if err := json.Unmarshal([]byte(cached), &dashboard); err == nil {
			return &dashboard, nil
		}
	} else if !stderrors.Is(err, redis.ErrKeyNotFound) {
		slog.Warn("dashboard cache read failed", "instructor_id", instructorID, "error", err)
	}

	courses, err := s.courses.ListByInstructor(ctx, instructorID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	sales, err := s.purchases.ListCompletedByInstructor(ctx, instructorID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	dashboard := &models.InstructorDashboard{
		TotalCourses:         len(courses),
		EnrolledStudentsData: make([]models.EnrolledStudent, 0, len(sales)),
	}
	for _, sale := range sales {
		dashboard.TotalEarnings += sale.Amount
		dashboard.EnrolledStudentsData = append(dashboard.EnrolledStudentsData, models.EnrolledStudent{
			CourseTitle: sale.CourseTitle,
			Student: models.StudentInfo{
				ID:       sale.UserID,
				Name:     sale.UserName,
				ImageURL: sale.UserImage,
			},
			PurchaseDate: sale.CreatedAt,
		})
	}

	if data, err := json.Marshal(dashboard); err == nil {
		if err := s.redisClient.Set(ctx, cacheKey, data, dashboardCacheTTL); err != nil {
			slog.Warn("failed to cache dashboard", "instructor_id", instructorID, "error", err)
		}
	}
	return dashboard, nil
}

func (s *instructorService) EnrolledStudents(ctx context.Context, instructorID string) ([]models.EnrolledStudent, error) {
	sales, err := s.purchases.ListCompletedByInstructor(ctx, instructorID)
	if err != nil {
		return nil, err
	}

	students := make([]models.EnrolledStudent, 0, len(sales))
	for _, sale := range sales {
		students = append(students, models.EnrolledStudent{
			CourseTitle: sale.CourseTitle,
			Student: models.StudentInfo{
				ID:       sale.UserID,
				Name:     sale.UserName,
				ImageURL: sale.UserImage,
			},
			PurchaseDate: sale.CreatedAt,
		})
	}
	return students, nil
}

func (s *instructorService) ownedCourse(ctx context.Context, instructorID, courseID string) (*models.Course, error) {
	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if course.InstructorID != instructorID {
		return nil, pkgerrors.ErrNotCourseOwner
	}
	return course, nil
}

// invalidateCatalog drops the caches a course change can go stale in.
// Best effort; the TTL bounds staleness anyway.
func (s *instructorService) invalidateCatalog(ctx context.Context, instructorID string, touchesCatalog bool) {
	keys := []string{fmt.Sprintf(instructorDashboardKeyFmt, instructorID)}
	if touchesCatalog {
		keys = append(keys, catalogCacheKey)
	}
	if err := s.redisClient.Del(ctx, keys...); err != nil {
		slog.Warn("cache invalidation failed", "keys", keys, "error", err)
	}
}

// validateLectureURLs rejects content where any lecture is missing its
// video URL.
func validateLectureURLs(chapters []models.Chapter) error {
	for _, chapter := range chapters {
		for _, lecture := range chapter.ChapterContent {
			if lecture.LectureURL == "" {
				return pkgerrors.ErrInvalidInput
			}
		}
	}
	return nil
}

// assignContentIDs fills in ids the editor left blank for new chapters
// and lectures.
func assignContentIDs(chapters []models.Chapter) {
	for ci := range chapters {
		if chapters[ci].ChapterID == "" {
			chapters[ci].ChapterID = uuid.NewString()
		}
		for li := range chapters[ci].ChapterContent {
			if chapters[ci].ChapterContent[li].LectureID == "" {
				chapters[ci].ChapterContent[li].LectureID = uuid.NewString()
			}
		}
	}
}
