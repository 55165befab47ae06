package service

import (
	"context"
	"errors"
	"testing"

	"github.com/skillsync/skillsync-backend/internal/infrastructure/identity"
	identitymocks "github.com/skillsync/skillsync-backend/internal/infrastructure/identity/mocks"
	redismocks "github.com/skillsync/skillsync-backend/internal/infrastructure/redis/mocks"
	"github.com/skillsync/skillsync-backend/internal/models"
	repositorymocks "github.com/skillsync/skillsync-backend/internal/repository/mocks"
	pkgerrors "github.com/skillsync/skillsync-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

type adminFixture struct {
	users       *repositorymocks.MockUserRepository
	courses     *repositorymocks.MockCourseRepository
	purchases   *repositorymocks.MockPurchaseRepository
	enrollments *repositorymocks.MockEnrollmentRepository
	progress    *repositorymocks.MockProgressRepository
	requests    *repositorymocks.MockInstructorRequestRepository
	identity    *identitymocks.MockClient
	redisClient *redismocks.MockRedisClient
	svc         *adminService
}

func newAdminFixture(ctrl *gomock.Controller, adminUserID string) *adminFixture {
	f := &adminFixture{
		users:       repositorymocks.NewMockUserRepository(ctrl),
		courses:     repositorymocks.NewMockCourseRepository(ctrl),
		purchases:   repositorymocks.NewMockPurchaseRepository(ctrl),
		enrollments: repositorymocks.NewMockEnrollmentRepository(ctrl),
		progress:    repositorymocks.NewMockProgressRepository(ctrl),
		requests:    repositorymocks.NewMockInstructorRequestRepository(ctrl),
		identity:    identitymocks.NewMockClient(ctrl),
		redisClient: redismocks.NewMockRedisClient(ctrl),
	}
	profiles := NewUserService(f.users, f.enrollments, f.progress, f.courses, f.requests, f.identity)
	f.svc = NewAdminService(f.users, f.courses, f.purchases, f.enrollments, f.progress, f.requests, profiles, f.identity, f.redisClient, adminUserID)
	return f
}

func TestAdminService_BootstrapAdmin(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()

	t.Run("configured user self-promotes", func(t *testing.T) {
		f := newAdminFixture(ctrl, "boss")
		f.users.EXPECT().GetByID(gomock.Any(), "boss").
			Return(&models.User{ID: "boss", Role: models.RoleStudent}, nil)
		f.enrollments.EXPECT().CourseIDsByUser(gomock.Any(), "boss").Return(nil, nil)
		gomock.InOrder(
			f.identity.EXPECT().SetUserRole(gomock.Any(), "boss", models.RoleAdmin).Return(nil),
			f.users.EXPECT().SetRole(gomock.Any(), "boss", models.RoleAdmin).Return(nil),
		)

		assert.NoError(t, f.svc.BootstrapAdmin(ctx, "boss"))
	})

	t.Run("bootstrap before the sync webhook backfills the profile", func(t *testing.T) {
		f := newAdminFixture(ctrl, "boss")
		f.users.EXPECT().GetByID(gomock.Any(), "boss").Return(nil, pkgerrors.ErrUserNotFound)
		f.identity.EXPECT().GetUser(gomock.Any(), "boss").
			Return(&identity.Profile{Email: "boss@example.com", Name: "Boss", Role: "student"}, nil)
		f.users.EXPECT().Upsert(gomock.Any(), gomock.Any()).Return(nil)
		f.enrollments.EXPECT().CourseIDsByUser(gomock.Any(), "boss").Return(nil, nil)
		gomock.InOrder(
			f.identity.EXPECT().SetUserRole(gomock.Any(), "boss", models.RoleAdmin).Return(nil),
			f.users.EXPECT().SetRole(gomock.Any(), "boss", models.RoleAdmin).Return(nil),
		)

		assert.NoError(t, f.svc.BootstrapAdmin(ctx, "boss"))
	})

	t.Run("already admin is a no-op", func(t *testing.T) {
		f := newAdminFixture(ctrl, "boss")
		f.users.EXPECT().GetByID(gomock.Any(), "boss").
			Return(&models.User{ID: "boss", Role: models.RoleAdmin}, nil)
		f.enrollments.EXPECT().CourseIDsByUser(gomock.Any(), "boss").Return(nil, nil)

		assert.NoError(t, f.svc.BootstrapAdmin(ctx, "boss"))
	})

	t.Run("anyone else is refused", func(t *testing.T) {
		f := newAdminFixture(ctrl, "boss")
		assert.ErrorIs(t, f.svc.BootstrapAdmin(ctx, "intruder"), pkgerrors.ErrUnauthorized)
	})

	t.Run("unconfigured refuses everyone", func(t *testing.T) {
		f := newAdminFixture(ctrl, "")
		assert.ErrorIs(t, f.svc.BootstrapAdmin(ctx, "boss"), pkgerrors.ErrUnauthorized)
	})
}

func TestAdminService_SetUserRole(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()

	t.Run("identity provider is written before the local row", func(t *testing.T) {
		f := newAdminFixture(ctrl, "")
		f.users.EXPECT().GetByID(gomock.Any(), "user-1").
			Return(&models.User{ID: "user-1", Role: models.RoleStudent}, nil)
		gomock.InOrder(
			f.identity.EXPECT().SetUserRole(gomock.Any(), "user-1", models.RoleInstructor).Return(nil),
			f.users.EXPECT().SetRole(gomock.Any(), "user-1", models.RoleInstructor).Return(nil),
		)

		assert.NoError(t, f.svc.SetUserRole(ctx, "user-1", models.RoleInstructor))
	})

	t.Run("identity failure leaves the local row untouched", func(t *testing.T) {
		f := newAdminFixture(ctrl, "")
		f.users.EXPECT().GetByID(gomock.Any(), "user-1").
			Return(&models.User{ID: "user-1", Role: models.RoleStudent}, nil)
		f.identity.EXPECT().SetUserRole(gomock.Any(), "user-1", models.RoleInstructor).
			Return(errors.New("provider down"))

		assert.Error(t, f.svc.SetUserRole(ctx, "user-1", models.RoleInstructor))
	})

	t.Run("admin role cannot be granted here", func(t *testing.T) {
		f := newAdminFixture(ctrl, "")
		assert.ErrorIs(t, f.svc.SetUserRole(ctx, "user-1", models.RoleAdmin), pkgerrors.ErrInvalidRole)
	})
}

func TestAdminService_ApproveRequest(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()

	t.Run("approval promotes the requester and records the decision", func(t *testing.T) {
		f := newAdminFixture(ctrl, "")
		f.requests.EXPECT().GetByID(gomock.Any(), "r-1").
			Return(&models.InstructorRequest{ID: "r-1", UserID: "user-1", Status: models.RequestPending}, nil)
		f.identity.EXPECT().SetUserRole(gomock.Any(), "user-1", models.RoleInstructor).Return(nil)
		f.users.EXPECT().SetRole(gomock.Any(), "user-1", models.RoleInstructor).Return(nil)
		f.requests.EXPECT().Update(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, req *models.InstructorRequest) error {
				assert.Equal(t, models.RequestApproved, req.Status)
				assert.Equal(t, "admin-1", req.ReviewedBy)
				assert.NotNil(t, req.ReviewedAt)
				assert.Equal(t, "welcome aboard", req.DecisionNote)
				return nil
			})

		assert.NoError(t, f.svc.ApproveRequest(ctx, "admin-1", "r-1", "welcome aboard"))
	})

	t.Run("re-approving is a no-op", func(t *testing.T) {
		f := newAdminFixture(ctrl, "")
		f.requests.EXPECT().GetByID(gomock.Any(), "r-1").
			Return(&models.InstructorRequest{ID: "r-1", Status: models.RequestApproved}, nil)

		assert.NoError(t, f.svc.ApproveRequest(ctx, "admin-1", "r-1", ""))
	})

	t.Run("unknown request", func(t *testing.T) {
		f := newAdminFixture(ctrl, "")
		f.requests.EXPECT().GetByID(gomock.Any(), "nope").Return(nil, pkgerrors.ErrRequestNotFound)

		assert.ErrorIs(t, f.svc.ApproveRequest(ctx, "admin-1", "nope", ""), pkgerrors.ErrRequestNotFound)
	})
}

func TestAdminService_RejectRequest(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()

	t.Run("rejection records the decision without touching roles", func(t *testing.T) {
		f := newAdminFixture(ctrl, "")
		f.requests.EXPECT().GetByID(gomock.Any(), "r-1").
			Return(&models.InstructorRequest{ID: "r-1", UserID: "user-1", Status: models.RequestPending}, nil)
		f.requests.EXPECT().Update(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, req *models.InstructorRequest) error {
				assert.Equal(t, models.RequestRejected, req.Status)
				return nil
			})

		assert.NoError(t, f.svc.RejectRequest(ctx, "admin-1", "r-1", "not yet"))
	})

	t.Run("re-rejecting is a no-op", func(t *testing.T) {
		f := newAdminFixture(ctrl, "")
		f.requests.EXPECT().GetByID(gomock.Any(), "r-1").
			Return(&models.InstructorRequest{ID: "r-1", Status: models.RequestRejected}, nil)

		assert.NoError(t, f.svc.RejectRequest(ctx, "admin-1", "r-1", ""))
	})

	t.Run("approved request cannot be rejected", func(t *testing.T) {
		f := newAdminFixture(ctrl, "")
		f.requests.EXPECT().GetByID(gomock.Any(), "r-1").
			Return(&models.InstructorRequest{ID: "r-1", Status: models.RequestApproved}, nil)

		assert.ErrorIs(t, f.svc.RejectRequest(ctx, "admin-1", "r-1", ""), pkgerrors.ErrInvalidInput)
	})
}

func TestAdminService_DeleteCourse(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()

	t.Run("hard delete removes enrollments and progress but not purchases", func(t *testing.T) {
		f := newAdminFixture(ctrl, "")
		f.courses.EXPECT().GetByID(gomock.Any(), "course-1").
			Return(&models.Course{ID: "course-1", InstructorID: "instructor-1"}, nil)
		f.progress.EXPECT().DeleteByCourse(gomock.Any(), "course-1").Return(nil)
		f.enrollments.EXPECT().DeleteByCourse(gomock.Any(), "course-1").Return(nil)
		f.courses.EXPECT().Delete(gomock.Any(), "course-1").Return(nil)
		f.redisClient.EXPECT().Del(gomock.Any(), "courses:published", "admin:dashboard", "instructor:instructor-1:dashboard").Return(nil)

		assert.NoError(t, f.svc.DeleteCourse(ctx, "course-1"))
	})

	t.Run("unknown course", func(t *testing.T) {
		f := newAdminFixture(ctrl, "")
		f.courses.EXPECT().GetByID(gomock.Any(), "nope").Return(nil, pkgerrors.ErrCourseNotFound)

		assert.ErrorIs(t, f.svc.DeleteCourse(ctx, "nope"), pkgerrors.ErrCourseNotFound)
	})
}

func TestAdminService_Dashboard(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()

	t.Run("cache miss aggregates and caches", func(t *testing.T) {
		f := newAdminFixture(ctrl, "")
		f.redisClient.EXPECT().Get(gomock.Any(), "admin:dashboard").Return("", errors.New("key not found"))
		f.users.EXPECT().Count(gomock.Any()).Return(int64(10), nil)
		f.courses.EXPECT().Count(gomock.Any()).Return(int64(4), int64(3), nil)
		f.purchases.EXPECT().CountByStatus(gomock.Any(), models.StatusPending).Return(int64(2), nil)
		f.purchases.EXPECT().CountByStatus(gomock.Any(), models.StatusCompleted).Return(int64(5), nil)
		f.purchases.EXPECT().SumCompleted(gomock.Any()).Return(450.0, nil)
		f.progress.EXPECT().Count(gomock.Any()).Return(int64(20), nil)
		f.redisClient.EXPECT().Set(gomock.Any(), "admin:dashboard", gomock.Any(), gomock.Any()).Return(nil)

		dashboard, err := f.svc.Dashboard(ctx)
		assert.NoError(t, err)
		assert.Equal(t, int64(10), dashboard.TotalUsers)
		assert.Equal(t, int64(1), dashboard.UnpublishedCourses)
		assert.Equal(t, 450.0, dashboard.TotalRevenue)
	})

	t.Run("cache hit skips the repositories", func(t *testing.T) {
		f := newAdminFixture(ctrl, "")
		f.redisClient.EXPECT().Get(gomock.Any(), "admin:dashboard").
			Return(`{"totalUsers":7}`, nil)

		dashboard, err := f.svc.Dashboard(ctx)
		assert.NoError(t, err)
		assert.Equal(t, int64(7), dashboard.TotalUsers)
	})
}
