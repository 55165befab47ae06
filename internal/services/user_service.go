package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/skillsync/skillsync-backend/internal/infrastructure/identity"
	"github.com/skillsync/skillsync-backend/internal/models"
	"github.com/skillsync/skillsync-backend/internal/repository"
	pkgerrors "github.com/skillsync/skillsync-backend/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

const dailyRequestLimit = 2

type UserService interface {
	EnsureUser(ctx context.Context, userID string) (*models.User, error)
	SyncUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, userID string) error
	EnrolledCourses(ctx context.Context, userID string) ([]models.Course, error)
	UpdateProgress(ctx context.Context, userID, courseID, lectureID string) error
	GetProgress(ctx context.Context, userID, courseID string) (*models.CourseProgress, error)
	AddRating(ctx context.Context, userID, courseID string, rating int32) error
	RequestInstructorRole(ctx context.Context, userID, message string) error
	MyInstructorRequest(ctx context.Context, userID string) (*models.InstructorRequest, models.Role, *models.RequestQuota, error)
}

type userService struct {
	users       repository.UserRepository
	enrollments repository.EnrollmentRepository
	progress    repository.ProgressRepository
	courses     repository.CourseRepository
	requests    repository.InstructorRequestRepository
	identity    identity.Client
}

func NewUserService(
	users repository.UserRepository,
	enrollments repository.EnrollmentRepository,
	progress repository.ProgressRepository,
	courses repository.CourseRepository,
	requests repository.InstructorRequestRepository,
	identityClient identity.Client,
) *userService {
	return &userService{
		users:       users,
		enrollments: enrollments,
		progress:    progress,
		courses:     courses,
		requests:    requests,
		identity:    identityClient,
	}
}

// EnsureUser returns the local user, creating it from the identity
// provider's profile when the identity webhook has not landed yet
// (first-login race). The write is an upsert; losing the race to the
// webhook is fine.
func (s *userService) EnsureUser(ctx context.Context, userID string) (*models.User, error) {
	tracer := otel.Tracer("user-service")
	ctx, span := tracer.Start(ctx, "EnsureUser")
	defer span.End()

	user, err := s.users.GetByID(ctx, userID)
	if err == nil {
		return s.withEnrollments(ctx, user)
	}
	if !stderrors.Is(err, pkgerrors.ErrUserNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "user lookup failed")
		return nil, err
	}

	profile, err := s.identity.GetUser(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "identity lookup failed")
		slog.Error("failed to fetch identity profile", "user_id", userID, "error", err)
		return nil, err
	}
	if profile.Email == "" {
		return nil, fmt.Errorf("%w: identity profile has no email", pkgerrors.ErrInvalidInput)
	}

	user = &models.User{
		ID:       userID,
		Email:    profile.Email,
		Name:     profile.Name,
		ImageURL: profile.ImageURL,
		Role:     models.Role(profile.Role),
	}
	if err := s.users.Upsert(ctx, user); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "user upsert failed")
		return nil, err
	}

	slog.Info("user backfilled from identity provider", "user_id", userID)
	return s.withEnrollments(ctx, user)
}

// SyncUser applies an identity webhook upsert.
func (s *userService) SyncUser(ctx context.Context, user *models.User) error {
	return s.users.Upsert(ctx, user)
}

func (s *userService) DeleteUser(ctx context.Context, userID string) error {
	return s.users.Delete(ctx, userID)
}

func (s *userService) EnrolledCourses(ctx context.Context, userID string) ([]models.Course, error) {
	if _, err := s.EnsureUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.enrollments.CoursesByUser(ctx, userID)
}

func (s *userService) UpdateProgress(ctx context.Context, userID, courseID, lectureID string) error {
	added, err := s.progress.MarkLecture(ctx, userID, courseID, lectureID)
	if err != nil {
		slog.Error("failed to update progress",
			"user_id", userID, "course_id", courseID, "lecture_id", lectureID, "error", err)
		return err
	}
	if !added {
		slog.Info("lecture already completed",
			"user_id", userID, "course_id", courseID, "lecture_id", lectureID)
	}
	return nil
}

func (s *userService) GetProgress(ctx context.Context, userID, courseID string) (*models.CourseProgress, error) {
	lectures, err := s.progress.Lectures(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	return &models.CourseProgress{
		UserID:           userID,
		CourseID:         courseID,
		LectureCompleted: lectures,
	}, nil
}

func (s *userService) AddRating(ctx context.Context, userID, courseID string, rating int32) error {
	if courseID == "" || rating < 1 || rating > 5 {
		return pkgerrors.ErrInvalidRating
	}

	if _, err := s.courses.GetByID(ctx, courseID); err != nil {
		return err
	}

	enrolled, err := s.enrollments.IsEnrolled(ctx, userID, courseID)
	if err != nil {
		return err
	}
	if !enrolled {
		return pkgerrors.ErrNotEnrolled
	}

	if err := s.courses.UpsertRating(ctx, courseID, userID, rating); err != nil {
		slog.Error("failed to add rating", "user_id", userID, "course_id", courseID, "error", err)
		return err
	}
	slog.Info("rating added", "user_id", userID, "course_id", courseID, "rating", rating)
	return nil
}

func (s *userService) RequestInstructorRole(ctx context.Context, userID, message string) error {
	tracer := otel.Tracer("user-service")
	ctx, span := tracer.Start(ctx, "RequestInstructorRole")
	defer span.End()

	user, err := s.EnsureUser(ctx, userID)
	if err != nil {
		return err
	}
	switch user.Role {
	case models.RoleInstructor:
		return pkgerrors.ErrAlreadyInstructor
	case models.RoleAdmin:
		return pkgerrors.ErrAdminCannotRequest
	}

	_, err = s.requests.LatestByUserAndStatus(ctx, userID, models.RequestPending)
	if err == nil {
		return pkgerrors.ErrPendingRequest
	}
	if !stderrors.Is(err, pkgerrors.ErrRequestNotFound) {
		span.RecordError(err)
		return err
	}

	from, to := dayWindow(time.Now().UTC())
	count, err := s.requests.CountInWindow(ctx, userID, from, to)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if count >= dailyRequestLimit {
		return pkgerrors.ErrDailyLimitReached
	}

	req := &models.InstructorRequest{
		UserID:  userID,
		Status:  models.RequestPending,
		Source:  models.RequestSourceUser,
		Message: message,
	}
	if err := s.requests.Create(ctx, req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request creation failed")
		return err
	}

	slog.Info("instructor request submitted", "user_id", userID, "request_id", req.ID)
	return nil
}

// MyInstructorRequest reports the request a student should see: the
// pending one if any, else the latest rejected one so they can
// resubmit. A stale approved record is never shown to a current student
// (an admin may have demoted them since). Instructors and admins get
// their latest request as history.
func (s *userService) MyInstructorRequest(ctx context.Context, userID string) (*models.InstructorRequest, models.Role, *models.RequestQuota, error) {
	user, err := s.EnsureUser(ctx, userID)
	if err != nil {
		return nil, "", nil, err
	}

	var request *models.InstructorRequest
	if user.Role == models.RoleStudent {
		request, err = s.requests.LatestByUserAndStatus(ctx, userID, models.RequestPending)
		if stderrors.Is(err, pkgerrors.ErrRequestNotFound) {
			request, err = s.requests.LatestByUserAndStatus(ctx, userID, models.RequestRejected)
		}
	} else {
		request, err = s.requests.LatestByUser(ctx, userID)
	}
	if err != nil && !stderrors.Is(err, pkgerrors.ErrRequestNotFound) {
		return nil, "", nil, err
	}

	from, to := dayWindow(time.Now().UTC())
	count, err := s.requests.CountInWindow(ctx, userID, from, to)
	if err != nil {
		return nil, "", nil, err
	}

	quota := &models.RequestQuota{
		DailyMax:      dailyRequestLimit,
		RequestsToday: count,
	}
	if remaining := dailyRequestLimit - count; remaining > 0 {
		quota.RemainingToday = remaining
	}
	return request, user.Role, quota, nil
}

func (s *userService) withEnrollments(ctx context.Context, user *models.User) (*models.User, error) {
	ids, err := s.enrollments.CourseIDsByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	user.EnrolledCourses = ids
	return user, nil
}

func dayWindow(now time.Time) (from, to time.Time) {
	from = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return from, from.Add(24 * time.Hour)
}
