package repository_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/skillsync/skillsync-backend/internal/models"
	repository "github.com/skillsync/skillsync-backend/internal/repository/postgres"
	pkgerrors "github.com/skillsync/skillsync-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestPostgresPurchaseRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	repo := repository.NewPostgresPurchaseRepository(db)
	ctx := context.Background()

	t.Run("InvalidPurchase", func(t *testing.T) {
		err := repo.Create(ctx, &models.Purchase{})
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidInput)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Success", func(t *testing.T) {
		purchase := &models.Purchase{
			UserID:   "user-1",
			CourseID: "course-1",
			Amount:   90,
		}
		now := time.Now()
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO purchases (id, course_id, user_id, amount, status)`)).
			WithArgs(sqlmock.AnyArg(), purchase.CourseID, purchase.UserID, purchase.Amount, models.StatusPending).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

		err := repo.Create(ctx, purchase)
		assert.NoError(t, err)
		assert.NotEmpty(t, purchase.ID)
		assert.Equal(t, models.StatusPending, purchase.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresPurchaseRepository_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	repo := repository.NewPostgresPurchaseRepository(db)
	ctx := context.Background()

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, course_id, user_id, amount, status, created_at, updated_at`)).
			WithArgs("nope").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := repo.GetByID(ctx, "nope")
		assert.ErrorIs(t, err, pkgerrors.ErrPurchaseNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Success", func(t *testing.T) {
		now := time.Now()
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, course_id, user_id, amount, status, created_at, updated_at`)).
			WithArgs("p-1").
			WillReturnRows(sqlmock.NewRows(
				[]string{"id", "course_id", "user_id", "amount", "status", "created_at", "updated_at"}).
				AddRow("p-1", "course-1", "user-1", 90.0, "pending", now, now))

		purchase, err := repo.GetByID(ctx, "p-1")
		assert.NoError(t, err)
		assert.Equal(t, models.StatusPending, purchase.Status)
		assert.Equal(t, 90.0, purchase.Amount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresPurchaseRepository_UpdateStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	repo := repository.NewPostgresPurchaseRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE purchases SET status = $1, updated_at = now() WHERE id = $2`)).
			WithArgs(models.StatusCompleted, "p-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.UpdateStatus(ctx, "p-1", models.StatusCompleted))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE purchases SET status = $1, updated_at = now() WHERE id = $2`)).
			WithArgs(models.StatusFailed, "nope").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdateStatus(ctx, "nope", models.StatusFailed)
		assert.ErrorIs(t, err, pkgerrors.ErrPurchaseNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("QueryError", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE purchases SET status = $1, updated_at = now() WHERE id = $2`)).
			WithArgs(models.StatusCompleted, "p-1").
			WillReturnError(errors.New("connection reset"))

		assert.Error(t, repo.UpdateStatus(ctx, "p-1", models.StatusCompleted))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresPurchaseRepository_Aggregates(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	repo := repository.NewPostgresPurchaseRepository(db)
	ctx := context.Background()

	t.Run("CountByStatus", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM purchases WHERE status = $1`)).
			WithArgs(models.StatusCompleted).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))

		count, err := repo.CountByStatus(ctx, models.StatusCompleted)
		assert.NoError(t, err)
		assert.Equal(t, int64(5), count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("SumCompleted", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT COALESCE(sum(amount), 0) FROM purchases WHERE status = 'completed'`)).
			WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(450.5))

		total, err := repo.SumCompleted(ctx)
		assert.NoError(t, err)
		assert.Equal(t, 450.5, total)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ExistsByCourse", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS (SELECT 1 FROM purchases WHERE course_id = $1)`)).
			WithArgs("course-1").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		exists, err := repo.ExistsByCourse(ctx, "course-1")
		assert.NoError(t, err)
		assert.True(t, exists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresPurchaseRepository_ListCompletedByInstructor(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	repo := repository.NewPostgresPurchaseRepository(db)
	ctx := context.Background()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM purchases p`)).
		WithArgs("instructor-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "course_id", "user_id", "amount", "status", "created_at", "updated_at",
			"title", "instructor_id", "name", "email", "image_url",
		}).AddRow("p-1", "course-1", "user-1", 90.0, "completed", now, now,
			"Go Basics", "instructor-1", "Ada", "ada@example.com", ""))

	sales, err := repo.ListCompletedByInstructor(ctx, "instructor-1")
	assert.NoError(t, err)
	if assert.Len(t, sales, 1) {
		assert.Equal(t, "Go Basics", sales[0].CourseTitle)
		assert.Equal(t, "Ada", sales[0].UserName)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}
