package repository

import (
	"context"
	"database/sql"
	"fmt"

	pkgerrors "github.com/skillsync/skillsync-backend/pkg/errors"
)

type PostgresProgressRepository struct {
	db *sql.DB
}

func NewPostgresProgressRepository(db *sql.DB) *PostgresProgressRepository {
	return &PostgresProgressRepository{db: db}
}

func (r *PostgresProgressRepository) MarkLecture(ctx context.Context, userID, courseID, lectureID string) (bool, error) {
	if userID == "" || courseID == "" || lectureID == "" {
		return false, pkgerrors.ErrInvalidInput
	}

	query := `
	INSERT INTO course_progress (user_id, course_id, lecture_id)
	VALUES ($1, $2, $3)
	ON CONFLICT (user_id, course_id, lecture_id) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, query, userID, courseID, lectureID)
	if err != nil {
		return false, fmt.Errorf("failed to mark lecture: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *PostgresProgressRepository) Lectures(ctx context.Context, userID, courseID string) ([]string, error) {
	query := `
	SELECT lecture_id FROM course_progress
	WHERE user_id = $1 AND course_id = $2
	ORDER BY completed_at
	`
	rows, err := r.db.QueryContext(ctx, query, userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query progress: %w", err)
	}
	defer rows.Close()

	var lectures []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan progress: %w", err)
		}
		lectures = append(lectures, id)
	}
	return lectures, rows.Err()
}

func (r *PostgresProgressRepository) DeleteByCourse(ctx context.Context, courseID string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM course_progress WHERE course_id = $1`, courseID); err != nil {
		return fmt.Errorf("failed to delete progress: %w", err)
	}
	return nil
}

func (r *PostgresProgressRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM course_progress`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count progress: %w", err)
	}
	return count, nil
}
