package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/skillsync/skillsync-backend/internal/models"
	pkgerrors "github.com/skillsync/skillsync-backend/pkg/errors"
)

type PostgresCourseRepository struct {
	db *sql.DB
}

func NewPostgresCourseRepository(db *sql.DB) *PostgresCourseRepository {
	return &PostgresCourseRepository{db: db}
}

const courseColumns = `id, instructor_id, title, description, thumbnail, price, discount, is_published, content, created_at, updated_at`

func (r *PostgresCourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course == nil || course.InstructorID == "" || course.Title == "" {
		return pkgerrors.ErrInvalidInput
	}
	if course.ID == "" {
		course.ID = uuid.NewString()
	}

	content, err := json.Marshal(course.Content)
	if err != nil {
		return fmt.Errorf("failed to marshal course content: %w", err)
	}

	query := `
	INSERT INTO courses (id, instructor_id, title, description, thumbnail, price, discount, is_published, content)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	RETURNING created_at, updated_at
	`
	err = r.db.QueryRowContext(ctx, query,
		course.ID, course.InstructorID, course.Title, course.Description,
		course.Thumbnail, course.Price, course.Discount, course.IsPublished, content,
	).Scan(&course.CreatedAt, &course.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create course: %w", err)
	}
	return nil
}

func (r *PostgresCourseRepository) GetByID(ctx context.Context, id string) (*models.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE id = $1`

	course, err := r.scanCourse(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}
	if err := r.attachRatings(ctx, course); err != nil {
		return nil, err
	}
	return course, nil
}

func (r *PostgresCourseRepository) Update(ctx context.Context, course *models.Course) error {
	if course == nil || course.ID == "" {
		return pkgerrors.ErrInvalidInput
	}

	content, err := json.Marshal(course.Content)
	if err != nil {
		return fmt.Errorf("failed to marshal course content: %w", err)
	}

	query := `
	UPDATE courses
	SET title = $1, description = $2, thumbnail = $3, price = $4,
	    discount = $5, is_published = $6, content = $7, updated_at = now()
	WHERE id = $8
	`
	res, err := r.db.ExecContext(ctx, query,
		course.Title, course.Description, course.Thumbnail, course.Price,
		course.Discount, course.IsPublished, content, course.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update course: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return pkgerrors.ErrCourseNotFound
	}
	return nil
}

func (r *PostgresCourseRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete course: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return pkgerrors.ErrCourseNotFound
	}
	return nil
}

func (r *PostgresCourseRepository) ListPublished(ctx context.Context) ([]models.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE is_published = true ORDER BY created_at DESC`
	return r.listCourses(ctx, query)
}

func (r *PostgresCourseRepository) ListByInstructor(ctx context.Context, instructorID string) ([]models.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE instructor_id = $1 ORDER BY created_at DESC`
	return r.listCourses(ctx, query, instructorID)
}

func (r *PostgresCourseRepository) ListAll(ctx context.Context) ([]models.CourseSummary, error) {
	query := `
	SELECT c.id, c.instructor_id, c.title, c.description, c.thumbnail, c.price,
	       c.discount, c.is_published, c.content, c.created_at, c.updated_at,
	       u.name, u.email, u.image_url, u.role
	FROM courses c
	LEFT JOIN users u ON u.id = c.instructor_id
	ORDER BY c.created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	defer rows.Close()

	var summaries []models.CourseSummary
	for rows.Next() {
		var (
			s       models.CourseSummary
			content []byte
			name    sql.NullString
			email   sql.NullString
			image   sql.NullString
			role    sql.NullString
		)
		if err := rows.Scan(
			&s.ID, &s.InstructorID, &s.Title, &s.Description, &s.Thumbnail,
			&s.Price, &s.Discount, &s.IsPublished, &content, &s.CreatedAt, &s.UpdatedAt,
			&name, &email, &image, &role,
		); err != nil {
			return nil, fmt.Errorf("failed to scan course: %w", err)
		}
		if err := json.Unmarshal(content, &s.Content); err != nil {
			return nil, fmt.Errorf("failed to unmarshal course content: %w", err)
		}
		if name.Valid {
			s.Instructor = &models.User{
				ID:       s.InstructorID,
				Name:     name.String,
				Email:    email.String,
				ImageURL: image.String,
				Role:     models.Role(role.String),
			}
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

func (r *PostgresCourseRepository) SetPublished(ctx context.Context, id string, published bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE courses SET is_published = $1, updated_at = now() WHERE id = $2`, published, id)
	if err != nil {
		return fmt.Errorf("failed to set publish status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return pkgerrors.ErrCourseNotFound
	}
	return nil
}

func (r *PostgresCourseRepository) UpsertRating(ctx context.Context, courseID, userID string, rating int32) error {
	query := `
	INSERT INTO course_ratings (course_id, user_id, rating)
	VALUES ($1, $2, $3)
	ON CONFLICT (course_id, user_id) DO UPDATE SET rating = EXCLUDED.rating
	`
	if _, err := r.db.ExecContext(ctx, query, courseID, userID, rating); err != nil {
		return fmt.Errorf("failed to upsert rating: %w", err)
	}
	return nil
}

func (r *PostgresCourseRepository) Count(ctx context.Context) (total, published int64, err error) {
	query := `SELECT count(*), count(*) FILTER (WHERE is_published) FROM courses`
	if err = r.db.QueryRowContext(ctx, query).Scan(&total, &published); err != nil {
		return 0, 0, fmt.Errorf("failed to count courses: %w", err)
	}
	return total, published, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PostgresCourseRepository) scanCourse(row rowScanner) (*models.Course, error) {
	var (
		course  models.Course
		content []byte
	)
	err := row.Scan(
		&course.ID, &course.InstructorID, &course.Title, &course.Description,
		&course.Thumbnail, &course.Price, &course.Discount, &course.IsPublished,
		&content, &course.CreatedAt, &course.UpdatedAt,
	)
	switch {
	case stderrors.Is(err, sql.ErrNoRows):
		return nil, pkgerrors.ErrCourseNotFound
	case err != nil:
		return nil, fmt.Errorf("failed to scan course: %w", err)
	}
	if err := json.Unmarshal(content, &course.Content); err != nil {
		return nil, fmt.Errorf("failed to unmarshal course content: %w", err)
	}
	return &course, nil
}

func (r *PostgresCourseRepository) listCourses(ctx context.Context, query string, args ...any) ([]models.Course, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query courses: %w", err)
	}
	defer rows.Close()

	var courses []models.Course
	for rows.Next() {
		course, err := r.scanCourse(rows)
		if err != nil {
			return nil, err
		}
		courses = append(courses, *course)
	}
	return courses, rows.Err()
}

func (r *PostgresCourseRepository) attachRatings(ctx context.Context, course *models.Course) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, rating FROM course_ratings WHERE course_id = $1`, course.ID)
	if err != nil {
		return fmt.Errorf("failed to query ratings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rating models.CourseRating
		if err := rows.Scan(&rating.UserID, &rating.Rating); err != nil {
			return fmt.Errorf("failed to scan rating: %w", err)
		}
		course.Ratings = append(course.Ratings, rating)
	}
	return rows.Err()
}
