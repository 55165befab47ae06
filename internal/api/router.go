package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/skillsync/skillsync-backend/internal/handler"
	"github.com/skillsync/skillsync-backend/internal/infrastructure/auth"
	"github.com/skillsync/skillsync-backend/internal/models"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
)

func init() {
	prometheus.MustRegister(RequestCounter, RequestDuration)
}

func SetupRouter(h *handler.Handler, wh *handler.WebhookHandler, metricsHandler http.Handler, jwtSecret string) *mux.Router {
	r := mux.NewRouter()
	r.Use(metricsMiddleware)

	// Webhooks sit outside JWT auth; they carry their own signatures.
	wh.RegisterRoutes(r.PathPrefix("/webhooks").Subrouter())

	api := r.PathPrefix("/api").Subrouter()

	h.RegisterCourseRoutes(api.PathPrefix("/course").Subrouter())

	authenticate := auth.Middleware(jwtSecret)

	user := api.PathPrefix("/user").Subrouter()
	user.Use(authenticate)
	h.RegisterUserRoutes(user)

	instructor := api.PathPrefix("/instructor").Subrouter()
	instructor.Use(authenticate, auth.RequireRole(models.RoleInstructor))
	h.RegisterInstructorRoutes(instructor)

	// Bootstrap must stay reachable before the caller holds the admin
	// role; the service checks the caller against the configured admin.
	api.Handle("/admin/bootstrap", authenticate(http.HandlerFunc(h.BootstrapAdmin))).Methods("POST")

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(authenticate, auth.RequireRole(models.RoleAdmin))
	h.RegisterAdminRoutes(admin)

	r.Handle("/metrics", metricsHandler)
	return r
}

func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		endpoint := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tmpl, err := route.GetPathTemplate(); err == nil {
				endpoint = tmpl
			}
		}

		recorder := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(recorder, r)

		status := fmt.Sprintf("%d", recorder.status)
		RequestCounter.WithLabelValues(r.Method, endpoint, status).Inc()
		RequestDuration.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}
