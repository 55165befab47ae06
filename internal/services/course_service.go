package service

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/skillsync/skillsync-backend/internal/infrastructure/redis"
	"github.com/skillsync/skillsync-backend/internal/models"
	"github.com/skillsync/skillsync-backend/internal/repository"
	"go.opentelemetry.io/otel"
)

const (
	catalogCacheKey = "courses:published"
	catalogCacheTTL = 5 * time.Minute
)

type CourseService interface {
	ListPublished(ctx context.Context) ([]models.Course, error)
	GetCourse(ctx context.Context, id string) (*models.Course, error)
}

type courseService struct {
	courses     repository.CourseRepository
	enrollments repository.EnrollmentRepository
	redisClient redis.RedisClient
}

func NewCourseService(
	courses repository.CourseRepository,
	enrollments repository.EnrollmentRepository,
	redisClient redis.RedisClient,
) *courseService {
	return &courseService{
		courses:     courses,
		enrollments: enrollments,
		redisClient: redisClient,
	}
}

// ListPublished serves the public catalog. Lecture URLs are stripped
// before the result ever reaches the cache, so a cache hit is safe to
// return verbatim.
func (s *courseService) ListPublished(ctx context.Context) ([]models.Course, error) {
	tracer := otel.Tracer("course-service")
	ctx, span := tracer.Start(ctx, "ListPublished")
	defer span.End()

	if cached, err := s.redisClient.Get(ctx, catalogCacheKey); err == nil {
		var courses []models.Course
		if err := json.Unmarshal([]byte(cached), &courses); err == nil {
			slog.Debug("catalog served from cache")
			return courses, nil
		}
		slog.Warn("failed to decode cached catalog, falling back to database", "error", err)
	} else if !stderrors.Is(err, redis.ErrKeyNotFound) {
		slog.Warn("catalog cache read failed", "error", err)
	}

	courses, err := s.courses.ListPublished(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	for i := range courses {
		stripProtectedContent(&courses[i])
	}

	if data, err := json.Marshal(courses); err == nil {
		if err := s.redisClient.Set(ctx, catalogCacheKey, data, catalogCacheTTL); err != nil {
			slog.Warn("failed to cache catalog", "error", err)
		}
	}
	return courses, nil
}

// GetCourse is the public course page: full structure and ratings, with
// non-preview lecture URLs blanked.
func (s *courseService) GetCourse(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.courses.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	students, err := s.enrollments.StudentsByCourse(ctx, id)
	if err != nil {
		return nil, err
	}
	course.EnrolledStudents = students

	stripProtectedContent(course)
	return course, nil
}

// stripProtectedContent blanks lecture URLs that are not free previews.
// Enrolled students fetch content through the enrollment endpoints, not
// the public catalog.
func stripProtectedContent(course *models.Course) {
	for ci := range course.Content {
		for li := range course.Content[ci].ChapterContent {
			lecture := &course.Content[ci].ChapterContent[li]
			if !lecture.IsPreviewFree {
				lecture.LectureURL = ""
			}
		}
	}
}
