package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/skillsync/skillsync-backend/internal/infrastructure/observability"
	"github.com/skillsync/skillsync-backend/internal/models"
	pkgerrors "github.com/skillsync/skillsync-backend/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type PostgresPurchaseRepository struct {
	db *sql.DB
}

func NewPostgresPurchaseRepository(db *sql.DB) *PostgresPurchaseRepository {
	return &PostgresPurchaseRepository{db: db}
}

func (r *PostgresPurchaseRepository) Create(ctx context.Context, purchase *models.Purchase) error {
	var err error
	tracer := otel.Tracer("purchase-repository")
	ctx, span := tracer.Start(ctx, "CreatePurchase")
	defer span.End()

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.RepositoryCalls.WithLabelValues("CreatePurchase", status).Inc()
		observability.RepositoryDuration.WithLabelValues("CreatePurchase").Observe(time.Since(start).Seconds())
	}()

	if purchase == nil || purchase.UserID == "" || purchase.CourseID == "" {
		err = pkgerrors.ErrInvalidInput
		slog.Error("invalid purchase", "method", "Create", "error", err)
		return err
	}
	if purchase.ID == "" {
		purchase.ID = uuid.NewString()
	}
	if purchase.Status == "" {
		purchase.Status = models.StatusPending
	}

	span.SetAttributes(
		attribute.String("purchase_id", purchase.ID),
		attribute.String("course_id", purchase.CourseID),
		attribute.String("user_id", purchase.UserID),
		attribute.Float64("amount", purchase.Amount),
	)

	query := `
	INSERT INTO purchases (id, course_id, user_id, amount, status)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING created_at, updated_at
	`
	err = r.db.QueryRowContext(ctx, query,
		purchase.ID, purchase.CourseID, purchase.UserID, purchase.Amount, purchase.Status,
	).Scan(&purchase.CreatedAt, &purchase.UpdatedAt)
	if err != nil {
		err = fmt.Errorf("failed to create purchase: %w", err)
		return err
	}
	return nil
}

func (r *PostgresPurchaseRepository) GetByID(ctx context.Context, id string) (*models.Purchase, error) {
	query := `
	SELECT id, course_id, user_id, amount, status, created_at, updated_at
	FROM purchases WHERE id = $1
	`
	var purchase models.Purchase
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&purchase.ID, &purchase.CourseID, &purchase.UserID, &purchase.Amount,
		&purchase.Status, &purchase.CreatedAt, &purchase.UpdatedAt,
	)
	switch {
	case stderrors.Is(err, sql.ErrNoRows):
		return nil, pkgerrors.ErrPurchaseNotFound
	case err != nil:
		return nil, fmt.Errorf("failed to get purchase: %w", err)
	}
	return &purchase, nil
}

func (r *PostgresPurchaseRepository) UpdateStatus(ctx context.Context, id string, status models.PurchaseStatus) error {
	var err error
	tracer := otel.Tracer("purchase-repository")
	ctx, span := tracer.Start(ctx, "UpdatePurchaseStatus")
	defer span.End()

	start := time.Now()
	defer func() {
		state := "success"
		if err != nil {
			state = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.RepositoryCalls.WithLabelValues("UpdatePurchaseStatus", state).Inc()
		observability.RepositoryDuration.WithLabelValues("UpdatePurchaseStatus").Observe(time.Since(start).Seconds())
	}()

	span.SetAttributes(
		attribute.String("purchase_id", id),
		attribute.String("status", string(status)),
	)

	res, err := r.db.ExecContext(ctx,
		`UPDATE purchases SET status = $1, updated_at = now() WHERE id = $2`, status, id)
	if err != nil {
		err = fmt.Errorf("failed to update purchase status: %w", err)
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		err = pkgerrors.ErrPurchaseNotFound
		return err
	}
	return nil
}

const purchaseDetailQuery = `
SELECT p.id, p.course_id, p.user_id, p.amount, p.status, p.created_at, p.updated_at,
       COALESCE(c.title, ''), COALESCE(c.instructor_id, ''),
       COALESCE(u.name, ''), COALESCE(u.email, ''), COALESCE(u.image_url, '')
FROM purchases p
LEFT JOIN courses c ON c.id = p.course_id
LEFT JOIN users u ON u.id = p.user_id
`

func (r *PostgresPurchaseRepository) ListDetailed(ctx context.Context) ([]models.PurchaseDetail, error) {
	return r.queryDetailed(ctx, purchaseDetailQuery+` ORDER BY p.created_at DESC`)
}

func (r *PostgresPurchaseRepository) ListCompletedByInstructor(ctx context.Context, instructorID string) ([]models.PurchaseDetail, error) {
	query := purchaseDetailQuery + ` WHERE c.instructor_id = $1 AND p.status = 'completed' ORDER BY p.created_at DESC`
	return r.queryDetailed(ctx, query, instructorID)
}

func (r *PostgresPurchaseRepository) queryDetailed(ctx context.Context, query string, args ...any) ([]models.PurchaseDetail, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query purchases: %w", err)
	}
	defer rows.Close()

	var details []models.PurchaseDetail
	for rows.Next() {
		var d models.PurchaseDetail
		if err := rows.Scan(
			&d.ID, &d.CourseID, &d.UserID, &d.Amount, &d.Status, &d.CreatedAt, &d.UpdatedAt,
			&d.CourseTitle, &d.InstructorID, &d.UserName, &d.UserEmail, &d.UserImage,
		); err != nil {
			return nil, fmt.Errorf("failed to scan purchase: %w", err)
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

func (r *PostgresPurchaseRepository) CountByStatus(ctx context.Context, status models.PurchaseStatus) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM purchases WHERE status = $1`, status).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count purchases: %w", err)
	}
	return count, nil
}

func (r *PostgresPurchaseRepository) SumCompleted(ctx context.Context) (float64, error) {
	var total float64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(sum(amount), 0) FROM purchases WHERE status = 'completed'`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum purchases: %w", err)
	}
	return total, nil
}

func (r *PostgresPurchaseRepository) ExistsByCourse(ctx context.Context, courseID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM purchases WHERE course_id = $1)`, courseID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check purchase history: %w", err)
	}
	return exists, nil
}
