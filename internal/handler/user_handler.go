package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/skillsync/skillsync-backend/internal/infrastructure/auth"
)

func (h *Handler) RegisterUserRoutes(r *mux.Router) {
	r.HandleFunc("/data", h.GetUserData).Methods("GET")
	r.HandleFunc("/purchase", h.PurchaseCourse).Methods("POST")
	r.HandleFunc("/enrolled-courses", h.GetEnrolledCourses).Methods("GET")
	r.HandleFunc("/update-course-progress", h.UpdateCourseProgress).Methods("POST")
	r.HandleFunc("/get-course-progress", h.GetCourseProgress).Methods("POST")
	r.HandleFunc("/add-rating", h.AddRating).Methods("POST")
	r.HandleFunc("/instructor-request", h.RequestInstructorRole).Methods("POST")
	r.HandleFunc("/instructor-request", h.GetInstructorRequest).Methods("GET")
}

func (h *Handler) GetUserData(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, errors.New("user not authenticated"))
		return
	}

	user, err := h.users.EnsureUser(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeData(w, user)
}

func (h *Handler) PurchaseCourse(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, errors.New("user not authenticated"))
		return
	}

	var req struct {
		CourseID string `json:"courseId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.CourseID == "" {
		h.writeError(w, http.StatusBadRequest, errors.New("courseId is required"))
		return
	}

	origin := r.Header.Get("Origin")
	if origin == "" {
		origin = r.Header.Get("Referer")
	}

	sessionURL, err := h.purchases.Checkout(r.Context(), userID, req.CourseID, origin)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"session_url": sessionURL,
	})
}

func (h *Handler) GetEnrolledCourses(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, errors.New("user not authenticated"))
		return
	}

	courses, err := h.users.EnrolledCourses(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeData(w, courses)
}

func (h *Handler) UpdateCourseProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, errors.New("user not authenticated"))
		return
	}

	var req struct {
		CourseID  string `json:"courseId"`
		LectureID string `json:"lectureId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.CourseID == "" || req.LectureID == "" {
		h.writeError(w, http.StatusBadRequest, errors.New("courseId and lectureId are required"))
		return
	}

	if err := h.users.UpdateProgress(r.Context(), userID, req.CourseID, req.LectureID); err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, dataResponse{Success: true, Message: "progress updated"})
}

func (h *Handler) GetCourseProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, errors.New("user not authenticated"))
		return
	}

	var req struct {
		CourseID string `json:"courseId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	progress, err := h.users.GetProgress(r.Context(), userID, req.CourseID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeData(w, progress)
}

func (h *Handler) AddRating(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, errors.New("user not authenticated"))
		return
	}

	var req struct {
		CourseID string `json:"courseId"`
		Rating   int32  `json:"rating"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := h.users.AddRating(r.Context(), userID, req.CourseID, req.Rating); err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, dataResponse{Success: true, Message: "rating added"})
}

func (h *Handler) RequestInstructorRole(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, errors.New("user not authenticated"))
		return
	}

	var req struct {
		Message string `json:"message"`
	}
	if r.Body != nil {
		// Body is optional for this endpoint.
		json.NewDecoder(r.Body).Decode(&req)
	}

	if err := h.users.RequestInstructorRole(r.Context(), userID, req.Message); err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, dataResponse{Success: true, Message: "request submitted"})
}

func (h *Handler) GetInstructorRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, errors.New("user not authenticated"))
		return
	}

	request, role, quota, err := h.users.MyInstructorRequest(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeData(w, map[string]interface{}{
		"request": request,
		"role":    role,
		"quota":   quota,
	})
}

// GetCourseByID and ListCourses are public, no auth context needed.
func (h *Handler) RegisterCourseRoutes(r *mux.Router) {
	r.HandleFunc("/all", h.ListCourses).Methods("GET")
	r.HandleFunc("/{id}", h.GetCourseByID).Methods("GET")
}

func (h *Handler) ListCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := h.courses.ListPublished(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeData(w, courses)
}

func (h *Handler) GetCourseByID(w http.ResponseWriter, r *http.Request) {
	courseID := mux.Vars(r)["id"]

	course, err := h.courses.GetCourse(r.Context(), courseID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeData(w, course)
}
