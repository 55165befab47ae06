package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	service "github.com/skillsync/skillsync-backend/internal/services"
	pkgerrors "github.com/skillsync/skillsync-backend/pkg/errors"
)

type Handler struct {
	purchases   service.PurchaseService
	users       service.UserService
	courses     service.CourseService
	instructors service.InstructorService
	admin       service.AdminService
}

func NewHandler(
	purchases service.PurchaseService,
	users service.UserService,
	courses service.CourseService,
	instructors service.InstructorService,
	admin service.AdminService,
) *Handler {
	return &Handler{
		purchases:   purchases,
		users:       users,
		courses:     courses,
		instructors: instructors,
		admin:       admin,
	}
}

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Message: err.Error()})
}

// writeServiceError maps sentinel errors onto HTTP statuses; anything
// unrecognized is a 500.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pkgerrors.ErrUserNotFound),
		errors.Is(err, pkgerrors.ErrCourseNotFound),
		errors.Is(err, pkgerrors.ErrPurchaseNotFound),
		errors.Is(err, pkgerrors.ErrRequestNotFound):
		h.writeError(w, http.StatusNotFound, err)
	case errors.Is(err, pkgerrors.ErrNotCourseOwner),
		errors.Is(err, pkgerrors.ErrUnauthorized):
		h.writeError(w, http.StatusForbidden, err)
	case errors.Is(err, pkgerrors.ErrNotEnrolled),
		errors.Is(err, pkgerrors.ErrInvalidRating),
		errors.Is(err, pkgerrors.ErrInvalidRole),
		errors.Is(err, pkgerrors.ErrInvalidInput):
		h.writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, pkgerrors.ErrAlreadyInstructor),
		errors.Is(err, pkgerrors.ErrAdminCannotRequest),
		errors.Is(err, pkgerrors.ErrPendingRequest),
		errors.Is(err, pkgerrors.ErrCourseHasStudents),
		errors.Is(err, pkgerrors.ErrCourseHasPurchases):
		h.writeError(w, http.StatusConflict, err)
	case errors.Is(err, pkgerrors.ErrDailyLimitReached):
		h.writeError(w, http.StatusTooManyRequests, err)
	default:
		h.writeError(w, http.StatusInternalServerError, err)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

type dataResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

func (h *Handler) writeData(w http.ResponseWriter, payload interface{}) {
	h.writeJSON(w, http.StatusOK, dataResponse{Success: true, Data: payload})
}
