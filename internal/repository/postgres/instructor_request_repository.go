package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/skillsync/skillsync-backend/internal/models"
	pkgerrors "github.com/skillsync/skillsync-backend/pkg/errors"
)

type PostgresInstructorRequestRepository struct {
	db *sql.DB
}

func NewPostgresInstructorRequestRepository(db *sql.DB) *PostgresInstructorRequestRepository {
	return &PostgresInstructorRequestRepository{db: db}
}

func (r *PostgresInstructorRequestRepository) Create(ctx context.Context, req *models.InstructorRequest) error {
	if req == nil || req.UserID == "" {
		return pkgerrors.ErrInvalidInput
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Status == "" {
		req.Status = models.RequestPending
	}
	if req.Source == "" {
		req.Source = models.RequestSourceUser
	}

	query := `
	INSERT INTO instructor_requests (id, user_id, status, source, message)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		req.ID, req.UserID, req.Status, req.Source, req.Message,
	).Scan(&req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create instructor request: %w", err)
	}
	return nil
}

const requestColumns = `id, user_id, status, source, message, reviewed_by, reviewed_at, decision_note, created_at, updated_at`

func (r *PostgresInstructorRequestRepository) GetByID(ctx context.Context, id string) (*models.InstructorRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM instructor_requests WHERE id = $1`
	return r.scanRequest(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresInstructorRequestRepository) Update(ctx context.Context, req *models.InstructorRequest) error {
	if req == nil || req.ID == "" {
		return pkgerrors.ErrInvalidInput
	}

	query := `
	UPDATE instructor_requests
	SET status = $1, reviewed_by = $2, reviewed_at = $3, decision_note = $4, updated_at = now()
	WHERE id = $5
	`
	res, err := r.db.ExecContext(ctx, query,
		req.Status, req.ReviewedBy, req.ReviewedAt, req.DecisionNote, req.ID)
	if err != nil {
		return fmt.Errorf("failed to update instructor request: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return pkgerrors.ErrRequestNotFound
	}
	return nil
}

func (r *PostgresInstructorRequestRepository) LatestByUser(ctx context.Context, userID string) (*models.InstructorRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM instructor_requests WHERE user_id = $1 ORDER BY created_at DESC LIMIT 1`
	return r.scanRequest(r.db.QueryRowContext(ctx, query, userID))
}

func (r *PostgresInstructorRequestRepository) LatestByUserAndStatus(ctx context.Context, userID string, status models.RequestStatus) (*models.InstructorRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM instructor_requests WHERE user_id = $1 AND status = $2 ORDER BY created_at DESC LIMIT 1`
	return r.scanRequest(r.db.QueryRowContext(ctx, query, userID, status))
}

func (r *PostgresInstructorRequestRepository) CountInWindow(ctx context.Context, userID string, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM instructor_requests WHERE user_id = $1 AND created_at >= $2 AND created_at < $3`,
		userID, from, to).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count instructor requests: %w", err)
	}
	return count, nil
}

// List returns requests newest first, with basic user info attached for
// display. An empty status means no filter.
func (r *PostgresInstructorRequestRepository) List(ctx context.Context, status models.RequestStatus) ([]models.InstructorRequest, error) {
	query := `
	SELECT r.id, r.user_id, r.status, r.source, r.message, r.reviewed_by,
	       r.reviewed_at, r.decision_note, r.created_at, r.updated_at,
	       u.name, u.email, u.image_url, u.role
	FROM instructor_requests r
	LEFT JOIN users u ON u.id = r.user_id
	`
	args := []any{}
	if status != "" {
		query += ` WHERE r.status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY r.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list instructor requests: %w", err)
	}
	defer rows.Close()

	var requests []models.InstructorRequest
	for rows.Next() {
		var (
			req        models.InstructorRequest
			reviewedAt sql.NullTime
			name       sql.NullString
			email      sql.NullString
			image      sql.NullString
			role       sql.NullString
		)
		if err := rows.Scan(
			&req.ID, &req.UserID, &req.Status, &req.Source, &req.Message,
			&req.ReviewedBy, &reviewedAt, &req.DecisionNote, &req.CreatedAt, &req.UpdatedAt,
			&name, &email, &image, &role,
		); err != nil {
			return nil, fmt.Errorf("failed to scan instructor request: %w", err)
		}
		if reviewedAt.Valid {
			req.ReviewedAt = &reviewedAt.Time
		}
		if name.Valid {
			req.User = &models.User{
				ID:       req.UserID,
				Name:     name.String,
				Email:    email.String,
				ImageURL: image.String,
				Role:     models.Role(role.String),
			}
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

func (r *PostgresInstructorRequestRepository) scanRequest(row rowScanner) (*models.InstructorRequest, error) {
	var (
		req        models.InstructorRequest
		reviewedAt sql.NullTime
	)
	err := row.Scan(
		&req.ID, &req.UserID, &req.Status, &req.Source, &req.Message,
		&req.ReviewedBy, &reviewedAt, &req.DecisionNote, &req.CreatedAt, &req.UpdatedAt,
	)
	switch {
	case stderrors.Is(err, sql.ErrNoRows):
		return nil, pkgerrors.ErrRequestNotFound
	case err != nil:
		return nil, fmt.Errorf("failed to scan instructor request: %w", err)
	}
	if reviewedAt.Valid {
		req.ReviewedAt = &reviewedAt.Time
	}
	return &req, nil
}
