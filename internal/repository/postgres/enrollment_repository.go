package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/skillsync/skillsync-backend/internal/infrastructure/observability"
	"github.com/skillsync/skillsync-backend/internal/models"
	pkgerrors "github.com/skillsync/skillsync-backend/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Enrollment is one row keyed by (user_id, course_id). Both read
// directions derive from this table, so the user/course link can never
// be one-sided.
type PostgresEnrollmentRepository struct {
	db *sql.DB
}

func NewPostgresEnrollmentRepository(db *sql.DB) *PostgresEnrollmentRepository {
	return &PostgresEnrollmentRepository{db: db}
}

func (r *PostgresEnrollmentRepository) Add(ctx context.Context, userID, courseID string) error {
	var err error
	tracer := otel.Tracer("enrollment-repository")
	ctx, span := tracer.Start(ctx, "AddEnrollment")
	defer span.End()

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.RepositoryCalls.WithLabelValues("AddEnrollment", status).Inc()
		observability.RepositoryDuration.WithLabelValues("AddEnrollment").Observe(time.Since(start).Seconds())
	}()

	if userID == "" || courseID == "" {
		err = pkgerrors.ErrInvalidInput
		return err
	}

	span.SetAttributes(
		attribute.String("user_id", userID),
		attribute.String("course_id", courseID),
	)

	query := `
	INSERT INTO enrollments (user_id, course_id)
	VALUES ($1, $2)
	ON CONFLICT (user_id, course_id) DO NOTHING
	`
	if _, err = r.db.ExecContext(ctx, query, userID, courseID); err != nil {
		err = fmt.Errorf("failed to add enrollment: %w", err)
		return err
	}
	return nil
}

func (r *PostgresEnrollmentRepository) IsEnrolled(ctx context.Context, userID, courseID string) (bool, error) {
	var enrolled bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM enrollments WHERE user_id = $1 AND course_id = $2)`,
		userID, courseID).Scan(&enrolled)
	if err != nil {
		return false, fmt.Errorf("failed to check enrollment: %w", err)
	}
	return enrolled, nil
}

func (r *PostgresEnrollmentRepository) CoursesByUser(ctx context.Context, userID string) ([]models.Course, error) {
	query := `
	SELECT c.id, c.instructor_id, c.title, c.description, c.thumbnail, c.price,
	       c.discount, c.is_published, c.content, c.created_at, c.updated_at
	FROM enrollments e
	JOIN courses c ON c.id = e.course_id
	WHERE e.user_id = $1
	ORDER BY e.created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query enrolled courses: %w", err)
	}
	defer rows.Close()

	var courses []models.Course
	for rows.Next() {
		var (
			course  models.Course
			content []byte
		)
		if err := rows.Scan(
			&course.ID, &course.InstructorID, &course.Title, &course.Description,
			&course.Thumbnail, &course.Price, &course.Discount, &course.IsPublished,
			&content, &course.CreatedAt, &course.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan enrolled course: %w", err)
		}
		if err := json.Unmarshal(content, &course.Content); err != nil {
			return nil, fmt.Errorf("failed to unmarshal course content: %w", err)
		}
		courses = append(courses, course)
	}
	return courses, rows.Err()
}

func (r *PostgresEnrollmentRepository) CourseIDsByUser(ctx context.Context, userID string) ([]string, error) {
	return r.queryIDs(ctx,
		`SELECT course_id FROM enrollments WHERE user_id = $1 ORDER BY created_at`, userID)
}

func (r *PostgresEnrollmentRepository) StudentsByCourse(ctx context.Context, courseID string) ([]string, error) {
	return r.queryIDs(ctx,
		`SELECT user_id FROM enrollments WHERE course_id = $1 ORDER BY created_at`, courseID)
}

func (r *PostgresEnrollmentRepository) CountByCourse(ctx context.Context, courseID string) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM enrollments WHERE course_id = $1`, courseID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count enrollments: %w", err)
	}
	return count, nil
}

func (r *PostgresEnrollmentRepository) DeleteByCourse(ctx context.Context, courseID string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM enrollments WHERE course_id = $1`, courseID); err != nil {
		return fmt.Errorf("failed to delete enrollments: %w", err)
	}
	return nil
}

func (r *PostgresEnrollmentRepository) queryIDs(ctx context.Context, query string, arg string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query enrollments: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan enrollment: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
