package service

import (
	"context"
	"testing"
	"time"

	"github.com/skillsync/skillsync-backend/internal/infrastructure/redis"
	redismocks "github.com/skillsync/skillsync-backend/internal/infrastructure/redis/mocks"
	"github.com/skillsync/skillsync-backend/internal/models"
	repositorymocks "github.com/skillsync/skillsync-backend/internal/repository/mocks"
	pkgerrors "github.com/skillsync/skillsync-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

type instructorFixture struct {
	courses     *repositorymocks.MockCourseRepository
	purchases   *repositorymocks.MockPurchaseRepository
	enrollments *repositorymocks.MockEnrollmentRepository
	progress    *repositorymocks.MockProgressRepository
	redisClient *redismocks.MockRedisClient
	svc         *instructorService
}

func newInstructorFixture(ctrl *gomock.Controller) *instructorFixture {
	f := &instructorFixture{
		courses:     repositorymocks.NewMockCourseRepository(ctrl),
		purchases:   repositorymocks.NewMockPurchaseRepository(ctrl),
		enrollments: repositorymocks.NewMockEnrollmentRepository(ctrl),
		progress:    repositorymocks.NewMockProgressRepository(ctrl),
		redisClient: redismocks.NewMockRedisClient(ctrl),
	}
	f.svc = NewInstructorService(f.courses, f.purchases, f.enrollments, f.progress, f.redisClient)
	return f
}

func draftContent() []models.Chapter {
	return []models.Chapter{{
		ChapterTitle: "Intro",
		ChapterContent: []models.Lecture{
			{LectureTitle: "Welcome", LectureURL: "https://cdn.example.com/welcome.mp4"},
		},
	}}
}

func TestInstructorService_AddCourse(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()

	t.Run("valid course is created", func(t *testing.T) {
		f := newInstructorFixture(ctrl)
		course := &models.Course{Title: "Go Basics", Price: 100, Content: draftContent()}
		f.courses.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, c *models.Course) error {
				assert.NotEmpty(t, c.ID)
				assert.Equal(t, "instructor-1", c.InstructorID)
				assert.NotEmpty(t, c.Content[0].ChapterID)
				assert.NotEmpty(t, c.Content[0].ChapterContent[0].LectureID)
				return nil
			})
		f.redisClient.EXPECT().Del(gomock.Any(), gomock.Any()).Return(nil)

		assert.NoError(t, f.svc.AddCourse(ctx, "instructor-1", course))
	})

	t.Run("empty content is rejected", func(t *testing.T) {
		f := newInstructorFixture(ctrl)
		course := &models.Course{Title: "Go Basics", Price: 100}

		assert.ErrorIs(t, f.svc.AddCourse(ctx, "instructor-1", course), pkgerrors.ErrInvalidInput)
	})

	t.Run("lecture without a URL is rejected", func(t *testing.T) {
		f := newInstructorFixture(ctrl)
		content := draftContent()
		content[0].ChapterContent = append(content[0].ChapterContent, models.Lecture{LectureTitle: "Broken"})
		course := &models.Course{Title: "Go Basics", Price: 100, Content: content}

		assert.ErrorIs(t, f.svc.AddCourse(ctx, "instructor-1", course), pkgerrors.ErrInvalidInput)
	})
}

func TestInstructorService_DeleteCourse(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	owned := &models.Course{ID: "course-1", InstructorID: "instructor-1"}

	t.Run("unpurchased empty course is deleted", func(t *testing.T) {
		f := newInstructorFixture(ctrl)
		f.courses.EXPECT().GetByID(gomock.Any(), "course-1").Return(owned, nil)
		f.enrollments.EXPECT().CountByCourse(gomock.Any(), "course-1").Return(int64(0), nil)
		f.purchases.EXPECT().ExistsByCourse(gomock.Any(), "course-1").Return(false, nil)
		// The fixture course is unpublished, so only the dashboard key
		// is dropped.
		f.courses.EXPECT().Delete(gomock.Any(), "course-1").Return(nil)
		f.redisClient.EXPECT().Del(gomock.Any(), "instructor:instructor-1:dashboard").Return(nil)

		assert.NoError(t, f.svc.DeleteCourse(ctx, "instructor-1", "course-1"))
	})

	t.Run("enrolled students block deletion", func(t *testing.T) {
		f := newInstructorFixture(ctrl)
		f.courses.EXPECT().GetByID(gomock.Any(), "course-1").Return(owned, nil)
		f.enrollments.EXPECT().CountByCourse(gomock.Any(), "course-1").Return(int64(3), nil)

		assert.ErrorIs(t, f.svc.DeleteCourse(ctx, "instructor-1", "course-1"), pkgerrors.ErrCourseHasStudents)
	})

	t.Run("purchase history blocks deletion", func(t *testing.T) {
		f := newInstructorFixture(ctrl)
		f.courses.EXPECT().GetByID(gomock.Any(), "course-1").Return(owned, nil)
		f.enrollments.EXPECT().CountByCourse(gomock.Any(), "course-1").Return(int64(0), nil)
		f.purchases.EXPECT().ExistsByCourse(gomock.Any(), "course-1").Return(true, nil)

		assert.ErrorIs(t, f.svc.DeleteCourse(ctx, "instructor-1", "course-1"), pkgerrors.ErrCourseHasPurchases)
	})

	t.Run("someone else's course", func(t *testing.T) {
		f := newInstructorFixture(ctrl)
		f.courses.EXPECT().GetByID(gomock.Any(), "course-1").Return(owned, nil)

		assert.ErrorIs(t, f.svc.DeleteCourse(ctx, "instructor-2", "course-1"), pkgerrors.ErrNotCourseOwner)
	})
}

func TestInstructorService_UpdateCourse(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()

	t.Run("nil fields are left unchanged", func(t *testing.T) {
		f := newInstructorFixture(ctrl)
		existing := &models.Course{ID: "course-1", InstructorID: "instructor-1", Title: "Old", Price: 100, Discount: 10}
		f.courses.EXPECT().GetByID(gomock.Any(), "course-1").Return(existing, nil)

		newTitle := "New"
		f.courses.EXPECT().Update(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, c *models.Course) error {
				assert.Equal(t, "New", c.Title)
				assert.Equal(t, 100.0, c.Price)
				assert.Equal(t, 10.0, c.Discount)
				return nil
			})
		f.redisClient.EXPECT().Del(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

		course, err := f.svc.UpdateCourse(ctx, "instructor-1", "course-1", &CourseUpdate{Title: &newTitle})
		assert.NoError(t, err)
		assert.Equal(t, "New", course.Title)
	})

	t.Run("description cannot be blanked", func(t *testing.T) {
		f := newInstructorFixture(ctrl)
		existing := &models.Course{ID: "course-1", InstructorID: "instructor-1", Description: "Learn Go"}
		f.courses.EXPECT().GetByID(gomock.Any(), "course-1").Return(existing, nil)

		blank := ""
		_, err := f.svc.UpdateCourse(ctx, "instructor-1", "course-1", &CourseUpdate{Description: &blank})
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidInput)
	})

	t.Run("replacement content must keep lecture URLs", func(t *testing.T) {
		f := newInstructorFixture(ctrl)
		existing := &models.Course{ID: "course-1", InstructorID: "instructor-1", Content: draftContent()}
		f.courses.EXPECT().GetByID(gomock.Any(), "course-1").Return(existing, nil)

		content := draftContent()
		content[0].ChapterContent[0].LectureURL = ""
		_, err := f.svc.UpdateCourse(ctx, "instructor-1", "course-1", &CourseUpdate{Content: content})
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidInput)
	})

	t.Run("discount out of range", func(t *testing.T) {
		f := newInstructorFixture(ctrl)
		existing := &models.Course{ID: "course-1", InstructorID: "instructor-1"}
		f.courses.EXPECT().GetByID(gomock.Any(), "course-1").Return(existing, nil)

		bad := 120.0
		_, err := f.svc.UpdateCourse(ctx, "instructor-1", "course-1", &CourseUpdate{Discount: &bad})
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidInput)
	})
}

func TestInstructorService_Dashboard(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()

	t.Run("cache miss aggregates sales", func(t *testing.T) {
		f := newInstructorFixture(ctrl)
		f.redisClient.EXPECT().Get(gomock.Any(), "instructor:instructor-1:dashboard").
			Return("", redis.ErrKeyNotFound)
		f.courses.EXPECT().ListByInstructor(gomock.Any(), "instructor-1").
			Return([]models.Course{{ID: "course-1"}, {ID: "course-2"}}, nil)
		f.purchases.EXPECT().ListCompletedByInstructor(gomock.Any(), "instructor-1").
			Return([]models.PurchaseDetail{
				{Purchase: models.Purchase{UserID: "user-1", Amount: 90, CreatedAt: time.Now()}, CourseTitle: "Go Basics", UserName: "Ada"},
				{Purchase: models.Purchase{UserID: "user-2", Amount: 45, CreatedAt: time.Now()}, CourseTitle: "Go Basics", UserName: "Alan"},
			}, nil)
		f.redisClient.EXPECT().Set(gomock.Any(), "instructor:instructor-1:dashboard", gomock.Any(), dashboardCacheTTL).Return(nil)

		dashboard, err := f.svc.Dashboard(ctx, "instructor-1")
		assert.NoError(t, err)
		assert.Equal(t, 135.0, dashboard.TotalEarnings)
		assert.Equal(t, 2, dashboard.TotalCourses)
		assert.Len(t, dashboard.EnrolledStudentsData, 2)
	})
}
