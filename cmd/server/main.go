package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/skillsync/skillsync-backend/internal/api"
	"github.com/skillsync/skillsync-backend/internal/config"
	"github.com/skillsync/skillsync-backend/internal/db"
	"github.com/skillsync/skillsync-backend/internal/handler"
	"github.com/skillsync/skillsync-backend/internal/infrastructure/identity"
	"github.com/skillsync/skillsync-backend/internal/infrastructure/kafka"
	"github.com/skillsync/skillsync-backend/internal/infrastructure/payments"
	"github.com/skillsync/skillsync-backend/internal/infrastructure/redis"
	"github.com/skillsync/skillsync-backend/internal/observability"
	core "github.com/skillsync/skillsync-backend/internal/repository/postgres"
	service "github.com/skillsync/skillsync-backend/internal/services"
)

func main() {
	cfg := config.Load()

	shutdown, metricsHandler := observability.Setup("skillsync-backend", cfg.OTLPEndpoint)
	defer shutdown(context.Background())

	database, err := db.Open(cfg.PostgresDSN, cfg.MigrationsURL)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer database.Close()

	userRepo := core.NewPostgresUserRepository(database)
	courseRepo := core.NewPostgresCourseRepository(database)
	purchaseRepo := core.NewPostgresPurchaseRepository(database)
	enrollmentRepo := core.NewPostgresEnrollmentRepository(database)
	progressRepo := core.NewPostgresProgressRepository(database)
	requestRepo := core.NewPostgresInstructorRequestRepository(database)

	redisClient := redis.NewClient(cfg.RedisAddr)
	defer redisClient.Close()

	producer := kafka.NewProducer(cfg.KafkaBrokers)
	defer producer.Close()

	gateway := payments.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	identityClient := identity.NewClient(cfg.IdentityAPIURL, cfg.IdentityAPIKey)

	userSvc := service.NewUserService(userRepo, enrollmentRepo, progressRepo, courseRepo, requestRepo, identityClient)
	purchaseSvc := service.NewPurchaseService(purchaseRepo, courseRepo, enrollmentRepo, userSvc, gateway, producer, cfg.Currency)
	courseSvc := service.NewCourseService(courseRepo, enrollmentRepo, redisClient)
	instructorSvc := service.NewInstructorService(courseRepo, purchaseRepo, enrollmentRepo, progressRepo, redisClient)
	adminSvc := service.NewAdminService(userRepo, courseRepo, purchaseRepo, enrollmentRepo, progressRepo, requestRepo, userSvc, identityClient, redisClient, cfg.AdminUserID)

	consumer := kafka.NewConsumer(cfg.KafkaBrokers, kafka.TopicPurchases, "skillsync-backend-group", redisClient)
	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	go consumer.Consume(consumerCtx)
	defer consumer.Close()
	defer stopConsumer()

	h := handler.NewHandler(purchaseSvc, userSvc, courseSvc, instructorSvc, adminSvc)
	wh, err := handler.NewWebhookHandler(gateway, purchaseSvc, userSvc, cfg.IdentityWebhookSecret)
	if err != nil {
		log.Fatalf("Failed to init webhook handler: %v", err)
	}

	router := api.SetupRouter(h, wh, metricsHandler, cfg.JWTSecret)

	server := &http.Server{
		Addr:    cfg.Addr,
		Handler: router,
	}
	go func() {
		log.Printf("Starting server on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}
	log.Println("Server stopped")
}
