package service

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/skillsync/skillsync-backend/internal/infrastructure/kafka"
	"github.com/skillsync/skillsync-backend/internal/infrastructure/payments"
	"github.com/skillsync/skillsync-backend/internal/models"
	"github.com/skillsync/skillsync-backend/internal/repository"
	pkgerrors "github.com/skillsync/skillsync-backend/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// PurchaseService owns the purchase lifecycle: opening a checkout
// session and reconciling the gateway's asynchronous outcome back onto
// the purchase and the enrollment link.
type PurchaseService interface {
	Checkout(ctx context.Context, userID, courseID, origin string) (string, error)
	Finalize(ctx context.Context, purchaseID string) error
	Fail(ctx context.Context, purchaseID string) error
}

type purchaseService struct {
	purchases   repository.PurchaseRepository
	courses     repository.CourseRepository
	enrollments repository.EnrollmentRepository
	users       UserService
	gateway     payments.Gateway
	producer    kafka.KafkaProducer
	currency    string
}

func NewPurchaseService(
	purchases repository.PurchaseRepository,
	courses repository.CourseRepository,
	enrollments repository.EnrollmentRepository,
	users UserService,
	gateway payments.Gateway,
	producer kafka.KafkaProducer,
	currency string,
) *purchaseService {
	return &purchaseService{
		purchases:   purchases,
		courses:     courses,
		enrollments: enrollments,
		users:       users,
		gateway:     gateway,
		producer:    producer,
		currency:    currency,
	}
}

func (s *purchaseService) Checkout(ctx context.Context, userID, courseID, origin string) (string, error) {
	tracer := otel.Tracer("purchase-service")
	ctx, span := tracer.Start(ctx, "Checkout")
	defer span.End()

	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "course lookup failed")
		slog.Error("checkout failed: course lookup", "course_id", courseID, "error", err)
		return "", err
	}

	user, err := s.users.EnsureUser(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "user lookup failed")
		slog.Error("checkout failed: user lookup", "user_id", userID, "error", err)
		return "", err
	}

	// Amount is snapshotted here and never recomputed, even if the
	// course price or discount changes before the webhook lands.
	purchase := &models.Purchase{
		CourseID: course.ID,
		UserID:   user.ID,
		Amount:   course.DiscountedPrice(),
		Status:   models.StatusPending,
	}
	if err := s.purchases.Create(ctx, purchase); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "purchase creation failed")
		slog.Error("checkout failed: create purchase", "user_id", userID, "course_id", courseID, "error", err)
		return "", fmt.Errorf("%w: failed to create purchase", pkgerrors.ErrInternal)
	}

	span.SetAttributes(
		attribute.String("purchase_id", purchase.ID),
		attribute.Float64("amount", purchase.Amount),
	)

	session, err := s.gateway.CreateCheckoutSession(ctx, payments.CheckoutInput{
		PurchaseID:  purchase.ID,
		CourseTitle: course.Title,
		Amount:      purchase.Amount,
		Currency:    s.currency,
		SuccessURL:  origin + "/my-enrollments",
		CancelURL:   origin + "/course/" + course.ID,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "checkout session failed")
		slog.Error("checkout failed: gateway session", "purchase_id", purchase.ID, "error", err)
		return "", fmt.Errorf("%w: failed to open checkout session", pkgerrors.ErrInternal)
	}

	slog.Info("checkout session opened",
		"purchase_id", purchase.ID,
		"user_id", user.ID,
		"course_id", course.ID,
		"amount", purchase.Amount,
		"session_id", session.ID)
	return session.URL, nil
}

// Finalize marks the purchase completed and grants course access. The
// gateway redelivers events at-least-once, so every step is idempotent:
// the status write is skipped when already completed and the enrollment
// upsert is applied regardless, converging on the same end state. An
// empty or unknown id is swallowed on purpose (redelivery of unrelated
// or test events must not fail the webhook).
func (s *purchaseService) Finalize(ctx context.Context, purchaseID string) error {
	tracer := otel.Tracer("purchase-service")
	ctx, span := tracer.Start(ctx, "FinalizePurchase")
	defer span.End()

	if purchaseID == "" {
		return nil
	}
	span.SetAttributes(attribute.String("purchase_id", purchaseID))

	purchase, err := s.purchases.GetByID(ctx, purchaseID)
	if stderrors.Is(err, pkgerrors.ErrPurchaseNotFound) {
		slog.Warn("finalize skipped: purchase not found", "purchase_id", purchaseID)
		return nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "purchase lookup failed")
		return err
	}

	transitioned := purchase.Status != models.StatusCompleted
	if transitioned {
		if err := s.purchases.UpdateStatus(ctx, purchase.ID, models.StatusCompleted); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "status update failed")
			return err
		}
	}

	// Applied unconditionally: a crash after the status write on a
	// previous delivery must still converge on the enrollment.
	if err := s.enrollments.Add(ctx, purchase.UserID, purchase.CourseID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "enrollment failed")
		return err
	}

	if transitioned {
		s.publishEvent(ctx, "purchase.completed", purchase)
		slog.Info("purchase completed",
			"purchase_id", purchase.ID,
			"user_id", purchase.UserID,
			"course_id", purchase.CourseID)
	}
	return nil
}

// Fail marks the purchase failed unless it already completed: a success
// event followed by a stale expiry delivered out of order must not
// regress the purchase. The reverse does not hold; a late success after
// a failure still completes (see Finalize).
func (s *purchaseService) Fail(ctx context.Context, purchaseID string) error {
	tracer := otel.Tracer("purchase-service")
	ctx, span := tracer.Start(ctx, "FailPurchase")
	defer span.End()

	if purchaseID == "" {
		return nil
	}
	span.SetAttributes(attribute.String("purchase_id", purchaseID))

	purchase, err := s.purchases.GetByID(ctx, purchaseID)
	if stderrors.Is(err, pkgerrors.ErrPurchaseNotFound) {
		slog.Warn("fail skipped: purchase not found", "purchase_id", purchaseID)
		return nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "purchase lookup failed")
		return err
	}

	if purchase.Status == models.StatusCompleted {
		slog.Info("fail skipped: purchase already completed", "purchase_id", purchase.ID)
		return nil
	}
	if purchase.Status == models.StatusFailed {
		return nil
	}

	if err := s.purchases.UpdateStatus(ctx, purchase.ID, models.StatusFailed); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "status update failed")
		return err
	}

	s.publishEvent(ctx, "purchase.failed", purchase)
	slog.Info("purchase failed",
		"purchase_id", purchase.ID,
		"user_id", purchase.UserID,
		"course_id", purchase.CourseID)
	return nil
}

// publishEvent is best effort: a broker outage must not fail the
// webhook and trigger a gateway retry of an already-applied transition.
func (s *purchaseService) publishEvent(ctx context.Context, eventType string, purchase *models.Purchase) {
	instructorID := ""
	if course, err := s.courses.GetByID(ctx, purchase.CourseID); err == nil {
		instructorID = course.InstructorID
	}

	event := map[string]interface{}{
		"event_type":    eventType,
		"purchase_id":   purchase.ID,
		"user_id":       purchase.UserID,
		"course_id":     purchase.CourseID,
		"instructor_id": instructorID,
		"amount":        purchase.Amount,
		"created_at":    time.Now().UTC().Format(time.RFC3339),
	}
	eventBytes, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to marshal purchase event", "purchase_id", purchase.ID, "error", err)
		return
	}
	if err := s.producer.Send(ctx, kafka.TopicPurchases, purchase.ID, eventBytes); err != nil {
		slog.Error("failed to send purchase event", "purchase_id", purchase.ID, "error", err)
	}
}
