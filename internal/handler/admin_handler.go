package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/skillsync/skillsync-backend/internal/infrastructure/auth"
	"github.com/skillsync/skillsync-backend/internal/models"
)

func (h *Handler) RegisterAdminRoutes(r *mux.Router) {
	r.HandleFunc("/dashboard", h.GetAdminDashboard).Methods("GET")
	r.HandleFunc("/users", h.GetUsers).Methods("GET")
	r.HandleFunc("/set-role", h.SetUserRole).Methods("POST")
	r.HandleFunc("/courses", h.GetAllCourses).Methods("GET")
	r.HandleFunc("/toggle-publish", h.ToggleCoursePublish).Methods("POST")
	r.HandleFunc("/purchases", h.GetPurchases).Methods("GET")
	r.HandleFunc("/course/{id}", h.AdminDeleteCourse).Methods("DELETE")
	r.HandleFunc("/instructor-requests", h.GetInstructorRequests).Methods("GET")
	r.HandleFunc("/instructor-requests/{id}/approve", h.ApproveInstructorRequest).Methods("POST")
	r.HandleFunc("/instructor-requests/{id}/reject", h.RejectInstructorRequest).Methods("POST")
}

// BootstrapAdmin is registered outside the admin role guard; the caller
// does not hold the role yet when a fresh deployment is bootstrapped.
func (h *Handler) BootstrapAdmin(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, errors.New("user not authenticated"))
		return
	}

	if err := h.admin.BootstrapAdmin(r.Context(), userID); err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, dataResponse{Success: true, Message: "admin role granted"})
}

func (h *Handler) GetAdminDashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.admin.Dashboard(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeData(w, dashboard)
}

func (h *Handler) GetUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.admin.Users(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeData(w, users)
}

func (h *Handler) SetUserRole(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId"`
		Role   string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.UserID == "" {
		h.writeError(w, http.StatusBadRequest, errors.New("userId is required"))
		return
	}

	if err := h.admin.SetUserRole(r.Context(), req.UserID, models.Role(req.Role)); err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, dataResponse{Success: true, Message: "role updated"})
}

func (h *Handler) GetAllCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := h.admin.Courses(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeData(w, courses)
}

func (h *Handler) ToggleCoursePublish(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CourseID    string `json:"courseId"`
		IsPublished bool   `json:"isPublished"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.CourseID == "" {
		h.writeError(w, http.StatusBadRequest, errors.New("courseId is required"))
		return
	}

	if err := h.admin.SetCoursePublished(r.Context(), req.CourseID, req.IsPublished); err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, dataResponse{Success: true, Message: "course updated"})
}

func (h *Handler) GetPurchases(w http.ResponseWriter, r *http.Request) {
	purchases, err := h.admin.Purchases(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeData(w, purchases)
}

func (h *Handler) AdminDeleteCourse(w http.ResponseWriter, r *http.Request) {
	if err := h.admin.DeleteCourse(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, dataResponse{Success: true, Message: "course deleted"})
}

func (h *Handler) GetInstructorRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.admin.InstructorRequests(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeData(w, requests)
}

func (h *Handler) ApproveInstructorRequest(w http.ResponseWriter, r *http.Request) {
	h.reviewInstructorRequest(w, r, h.admin.ApproveRequest, "request approved")
}

func (h *Handler) RejectInstructorRequest(w http.ResponseWriter, r *http.Request) {
	h.reviewInstructorRequest(w, r, h.admin.RejectRequest, "request rejected")
}

func (h *Handler) reviewInstructorRequest(
	w http.ResponseWriter,
	r *http.Request,
	decide func(ctx context.Context, adminID, requestID, note string) error,
	message string,
) {
	adminID, ok := auth.UserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, errors.New("user not authenticated"))
		return
	}

	var req struct {
		Note string `json:"note"`
	}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	if err := decide(r.Context(), adminID, mux.Vars(r)["id"], req.Note); err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, dataResponse{Success: true, Message: message})
}
