package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/skillsync/skillsync-backend/internal/infrastructure/auth"
	"github.com/skillsync/skillsync-backend/internal/models"
	service "github.com/skillsync/skillsync-backend/internal/services"
)

func (h *Handler) RegisterInstructorRoutes(r *mux.Router) {
	r.HandleFunc("/add-course", h.AddCourse).Methods("POST")
	r.HandleFunc("/courses", h.GetInstructorCourses).Methods("GET")
	r.HandleFunc("/course/{id}", h.GetCourseForEdit).Methods("GET")
	r.HandleFunc("/course/{id}", h.UpdateCourse).Methods("PUT")
	r.HandleFunc("/course/{id}", h.DeleteCourse).Methods("DELETE")
	r.HandleFunc("/dashboard", h.GetInstructorDashboard).Methods("GET")
	r.HandleFunc("/enrolled-students", h.GetEnrolledStudents).Methods("GET")
}

func (h *Handler) AddCourse(w http.ResponseWriter, r *http.Request) {
	instructorID, ok := auth.UserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, errors.New("user not authenticated"))
		return
	}

	var course models.Course
	if err := json.NewDecoder(r.Body).Decode(&course); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := h.instructors.AddCourse(r.Context(), instructorID, &course); err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, dataResponse{Success: true, Data: course})
}

func (h *Handler) GetInstructorCourses(w http.ResponseWriter, r *http.Request) {
	instructorID, ok := auth.UserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, errors.New("user not authenticated"))
		return
	}

	courses, err := h.instructors.Courses(r.Context(), instructorID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeData(w, courses)
}

func (h *Handler) GetCourseForEdit(w http.ResponseWriter, r *http.Request) {
	instructorID, ok := auth.UserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, errors.New("user not authenticated"))
		return
	}

	course, err := h.instructors.CourseForEdit(r.Context(), instructorID, mux.Vars(r)["id"])
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeData(w, course)
}

func (h *Handler) UpdateCourse(w http.ResponseWriter, r *http.Request) {
	instructorID, ok := auth.UserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, errors.New("user not authenticated"))
		return
	}

	var update service.CourseUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	course, err := h.instructors.UpdateCourse(r.Context(), instructorID, mux.Vars(r)["id"], &update)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeData(w, course)
}

func (h *Handler) DeleteCourse(w http.ResponseWriter, r *http.Request) {
	instructorID, ok := auth.UserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, errors.New("user not authenticated"))
		return
	}

	if err := h.instructors.DeleteCourse(r.Context(), instructorID, mux.Vars(r)["id"]); err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, dataResponse{Success: true, Message: "course deleted"})
}

func (h *Handler) GetInstructorDashboard(w http.ResponseWriter, r *http.Request) {
	instructorID, ok := auth.UserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, errors.New("user not authenticated"))
		return
	}

	dashboard, err := h.instructors.Dashboard(r.Context(), instructorID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeData(w, dashboard)
}

func (h *Handler) GetEnrolledStudents(w http.ResponseWriter, r *http.Request) {
	instructorID, ok := auth.UserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, errors.New("user not authenticated"))
		return
	}

	students, err := h.instructors.EnrolledStudents(r.Context(), instructorID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeData(w, students)
}
