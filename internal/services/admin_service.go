package service

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/skillsync/skillsync-backend/internal/infrastructure/identity"
	"github.com/skillsync/skillsync-backend/internal/infrastructure/redis"
	"github.com/skillsync/skillsync-backend/internal/models"
	"github.com/skillsync/skillsync-backend/internal/repository"
	pkgerrors "github.com/skillsync/skillsync-backend/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

const adminDashboardKey = "admin:dashboard"

type AdminService interface {
	BootstrapAdmin(ctx context.Context, userID string) error
	Dashboard(ctx context.Context) (*models.AdminDashboard, error)
	Users(ctx context.Context) ([]models.User, error)
	SetUserRole(ctx context.Context, userID string, role models.Role) error
	Courses(ctx context.Context) ([]models.CourseSummary, error)
	SetCoursePublished(ctx context.Context, courseID string, published bool) error
	DeleteCourse(ctx context.Context, courseID string) error
	Purchases(ctx context.Context) ([]models.PurchaseDetail, error)
	InstructorRequests(ctx context.Context, status string) ([]models.InstructorRequest, error)
	ApproveRequest(ctx context.Context, adminID, requestID, note string) error
	RejectRequest(ctx context.Context, adminID, requestID, note string) error
}

type adminService struct {
	users       repository.UserRepository
	courses     repository.CourseRepository
	purchases   repository.PurchaseRepository
	enrollments repository.EnrollmentRepository
	progress    repository.ProgressRepository
	requests    repository.InstructorRequestRepository
	profiles    UserService
	identity    identity.Client
	redisClient redis.RedisClient
	adminUserID string
}

func NewAdminService(
	users repository.UserRepository,
	courses repository.CourseRepository,
	purchases repository.PurchaseRepository,
	enrollments repository.EnrollmentRepository,
	progress repository.ProgressRepository,
	requests repository.InstructorRequestRepository,
	profiles UserService,
	identityClient identity.Client,
	redisClient redis.RedisClient,
	adminUserID string,
) *adminService {
	return &adminService{
		users:       users,
		courses:     courses,
		purchases:   purchases,
		enrollments: enrollments,
		progress:    progress,
		requests:    requests,
		profiles:    profiles,
		identity:    identityClient,
		redisClient: redisClient,
		adminUserID: adminUserID,
	}
}

// BootstrapAdmin lets the configured user promote themselves so a fresh
// deployment ends up with a working admin. Anyone else gets
// ErrUnauthorized; promoting an existing admin again is a no-op.
// EnsureUser backfills the profile when the bootstrap call arrives
// before the identity sync webhook does.
func (s *adminService) BootstrapAdmin(ctx context.Context, userID string) error {
	if s.adminUserID == "" || userID != s.adminUserID {
		return pkgerrors.ErrUnauthorized
	}

	user, err := s.profiles.EnsureUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.Role == models.RoleAdmin {
		return nil
	}

	if err := s.identity.SetUserRole(ctx, userID, models.RoleAdmin); err != nil {
		slog.Error("identity role update failed", "user_id", userID, "error", err)
		return err
	}
	if err := s.users.SetRole(ctx, userID, models.RoleAdmin); err != nil {
		return err
	}
	slog.Info("bootstrap admin promoted", "user_id", userID)
	return nil
}

func (s *adminService) Dashboard(ctx context.Context) (*models.AdminDashboard, error) {
	tracer := otel.Tracer("admin-service")
	ctx, span := tracer.Start(ctx, "AdminDashboard")
	defer span.End()

	if cached, err := s.redisClient.Get(ctx, adminDashboardKey); err == nil {
		var dashboard models.AdminDashboard
		if err := json.Unmarshal([]byte(cached), &dashboard); err == nil {
			return &dashboard, nil
		}
	} else if !stderrors.Is(err, redis.ErrKeyNotFound) {
		slog.Warn("dashboard cache read failed", "error", err)
	}

	dashboard := &models.AdminDashboard{}
	var err error

	if dashboard.TotalUsers, err = s.users.Count(ctx); err != nil {
		span.RecordError(err)
		return nil, err
	}
	if dashboard.TotalCourses, dashboard.PublishedCourses, err = s.courses.Count(ctx); err != nil {
		span.RecordError(err)
		return nil, err
	}
	dashboard.UnpublishedCourses = dashboard.TotalCourses - dashboard.PublishedCourses

	if dashboard.PendingPurchases, err = s.purchases.CountByStatus(ctx, models.StatusPending); err != nil {
		span.RecordError(err)
		return nil, err
	}
	if dashboard.CompletedPurchases, err = s.purchases.CountByStatus(ctx, models.StatusCompleted); err != nil {
		span.RecordError(err)
		return nil, err
	}
	if dashboard.TotalRevenue, err = s.purchases.SumCompleted(ctx); err != nil {
		span.RecordError(err)
		return nil, err
	}
	if dashboard.ProgressRecords, err = s.progress.Count(ctx); err != nil {
		span.RecordError(err)
		return nil, err
	}

	if data, err := json.Marshal(dashboard); err == nil {
		if err := s.redisClient.Set(ctx, adminDashboardKey, data, dashboardCacheTTL); err != nil {
			slog.Warn("failed to cache admin dashboard", "error", err)
		}
	}
	return dashboard, nil
}

func (s *adminService) Users(ctx context.Context) ([]models.User, error) {
	return s.users.List(ctx)
}

// SetUserRole writes the identity provider first: if that fails the
// local row is untouched and the two stores stay consistent.
func (s *adminService) SetUserRole(ctx context.Context, userID string, role models.Role) error {
	tracer := otel.Tracer("admin-service")
	ctx, span := tracer.Start(ctx, "SetUserRole")
	defer span.End()

	if role != models.RoleStudent && role != models.RoleInstructor {
		return pkgerrors.ErrInvalidRole
	}

	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return err
	}

	if err := s.identity.SetUserRole(ctx, userID, role); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "identity role update failed")
		slog.Error("failed to update role at identity provider", "user_id", userID, "role", role, "error", err)
		return err
	}

	if err := s.users.SetRole(ctx, userID, role); err != nil {
		span.RecordError(err)
		return err
	}

	slog.Info("user role updated", "user_id", userID, "role", role)
	return nil
}

func (s *adminService) Courses(ctx context.Context) ([]models.CourseSummary, error) {
	return s.courses.ListAll(ctx)
}

func (s *adminService) SetCoursePublished(ctx context.Context, courseID string, published bool) error {
	if _, err := s.courses.GetByID(ctx, courseID); err != nil {
		return err
	}
	if err := s.courses.SetPublished(ctx, courseID, published); err != nil {
		slog.Error("failed to toggle course publication", "course_id", courseID, "error", err)
		return err
	}

	if err := s.redisClient.Del(ctx, catalogCacheKey, adminDashboardKey); err != nil {
		slog.Warn("cache invalidation failed", "error", err)
	}
	slog.Info("course publication toggled", "course_id", courseID, "published", published)
	return nil
}

// DeleteCourse is the moderation hard delete: enrollments and progress
// go with the course, purchase records stay for the financial audit
// trail.
func (s *adminService) DeleteCourse(ctx context.Context, courseID string) error {
	tracer := otel.Tracer("admin-service")
	ctx, span := tracer.Start(ctx, "AdminDeleteCourse")
	defer span.End()

	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		return err
	}

	if err := s.progress.DeleteByCourse(ctx, courseID); err != nil {
		span.RecordError(err)
		return err
	}
	if err := s.enrollments.DeleteByCourse(ctx, courseID); err != nil {
		span.RecordError(err)
		return err
	}
	if err := s.courses.Delete(ctx, courseID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "course deletion failed")
		return err
	}

	keys := []string{
		catalogCacheKey,
		adminDashboardKey,
		fmt.Sprintf(instructorDashboardKeyFmt, course.InstructorID),
	}
	if err := s.redisClient.Del(ctx, keys...); err != nil {
		slog.Warn("cache invalidation failed", "error", err)
	}

	slog.Info("course hard deleted", "course_id", courseID, "instructor_id", course.InstructorID)
	return nil
}

func (s *adminService) Purchases(ctx context.Context) ([]models.PurchaseDetail, error) {
	return s.purchases.ListDetailed(ctx)
}

func (s *adminService) InstructorRequests(ctx context.Context, status string) ([]models.InstructorRequest, error) {
	switch status {
	case "", "all":
		return s.requests.List(ctx, "")
	case string(models.RequestPending), string(models.RequestApproved), string(models.RequestRejected):
		return s.requests.List(ctx, models.RequestStatus(status))
	default:
		return nil, pkgerrors.ErrInvalidInput
	}
}

// ApproveRequest promotes the requester. Re-approving an already
// approved request is a no-op so retried admin clicks stay safe.
func (s *adminService) ApproveRequest(ctx context.Context, adminID, requestID, note string) error {
	tracer := otel.Tracer("admin-service")
	ctx, span := tracer.Start(ctx, "ApproveRequest")
	defer span.End()

	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return err
	}
	if req.Status == models.RequestApproved {
		return nil
	}

	if err := s.identity.SetUserRole(ctx, req.UserID, models.RoleInstructor); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "identity role update failed")
		return err
	}
	if err := s.users.SetRole(ctx, req.UserID, models.RoleInstructor); err != nil {
		span.RecordError(err)
		return err
	}

	now := time.Now().UTC()
	req.Status = models.RequestApproved
	req.ReviewedBy = adminID
	req.ReviewedAt = &now
	req.DecisionNote = note
	if err := s.requests.Update(ctx, req); err != nil {
		span.RecordError(err)
		return err
	}

	slog.Info("instructor request approved", "request_id", requestID, "user_id", req.UserID, "admin_id", adminID)
	return nil
}

// RejectRequest records the decision without touching roles. Rejecting
// an already rejected request is a no-op.
func (s *adminService) RejectRequest(ctx context.Context, adminID, requestID, note string) error {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return err
	}
	switch req.Status {
	case models.RequestRejected:
		return nil
	case models.RequestApproved:
		return pkgerrors.ErrInvalidInput
	}

	now := time.Now().UTC()
	req.Status = models.RequestRejected
	req.ReviewedBy = adminID
	req.ReviewedAt = &now
	req.DecisionNote = note
	if err := s.requests.Update(ctx, req); err != nil {
		return err
	}

	slog.Info("instructor request rejected", "request_id", requestID, "user_id", req.UserID, "admin_id", adminID)
	return nil
}
