package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/mshiraki/trainlog/internal/adapters/cache"
	adapterHTTP "github.com/mshiraki/trainlog/internal/adapters/handler/http"
	"github.com/mshiraki/trainlog/internal/adapters/repository"
	"github.com/mshiraki/trainlog/internal/adapters/scheduler"
	"github.com/mshiraki/trainlog/internal/core/domain"
	"github.com/mshiraki/trainlog/internal/core/services"
	"github.com/mshiraki/trainlog/internal/core/workers"
)

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	startTime := time.Now()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment")
	}

	dbUser := os.Getenv("DB_USER")
	dbPass := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")
	dbHost := getEnv("DB_HOST", "localhost")
	dbPort := getEnv("DB_PORT", "5432")

	serverPort := getEnv("PORT", "8080")
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("Critical: JWT_SECRET must be set")
	}

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		dbUser, dbPass, dbHost, dbPort, dbName)

	log.Println("Connecting to database...")

	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		log.Fatalf("Critical: Failed to connect to database: %v", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	log.Println("Database connected successfully.")

	redisClient, err := cache.NewRedisClient(
		getEnv("REDIS_HOST", "localhost"),
		getEnv("REDIS_PORT", "6379"),
		os.Getenv("REDIS_PASSWORD"),
		0,
	)
	if err != nil {
		log.Printf("Redis unavailable, running without cache and rate limiting: %v", err)
		redisClient = nil
	}

	userRepo := repository.NewPostgresUserRepository(db)
	sessionRepo := repository.NewPostgresSessionRepository(db)
	taskRepo := repository.NewPostgresTaskRepository(db)
	reminderRepo := repository.NewPostgresReminderRepository(db)

	var ruleRepo domain.RuleRepository = repository.NewPostgresRuleRepository(db)
	if redisClient != nil {
		ruleRepo = repository.NewCachedRuleRepository(ruleRepo, redisClient)
	}

	scheduleService := services.NewScheduleService(ruleRepo, taskRepo)

	resyncWorker := workers.NewResyncWorker(scheduleService)

	authService := services.NewAuthService(userRepo)
	tokenService := services.NewTokenService(jwtSecret, "trainlog", 24*time.Hour, userRepo)
	sessionService := services.NewSessionService(sessionRepo, ruleRepo, resyncWorker)
	ruleService := services.NewRuleService(ruleRepo, sessionRepo, resyncWorker)
	taskService := services.NewTaskService(taskRepo, sessionRepo)
	reminderService := services.NewReminderService(reminderRepo, sessionRepo)

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	resyncWorker.Start(workerCtx)

	cron := scheduler.NewCronScheduler(domain.DisplayLocation)
	if _, err := cron.ScheduleDaily(getEnv("BATCH_TIME", "03:00"), func() {
		summary, err := scheduleService.RunDailyBatch(workerCtx)
		if err != nil {
			log.Printf("daily batch aborted: %v", err)
			return
		}
		log.Printf("daily batch done: %+v", summary)
	}); err != nil {
		log.Fatalf("Critical: invalid BATCH_TIME: %v", err)
	}
	if _, err := cron.ScheduleInterval(time.Minute, func() {
		if _, err := reminderService.Sweep(workerCtx); err != nil {
			log.Printf("reminder sweep failed: %v", err)
		}
	}); err != nil {
		log.Fatalf("Critical: could not schedule reminder sweep: %v", err)
	}
	cron.Start()

	router := adapterHTTP.NewRouter(adapterHTTP.RouterDependencies{
		AuthHandler:     adapterHTTP.NewAuthHandler(authService, tokenService),
		SessionHandler:  adapterHTTP.NewSessionHandler(sessionService),
		RuleHandler:     adapterHTTP.NewRuleHandler(ruleService),
		TaskHandler:     adapterHTTP.NewTaskHandler(taskService),
		ReminderHandler: adapterHTTP.NewReminderHandler(reminderService),
		BatchHandler:    adapterHTTP.NewBatchHandler(scheduleService),
		TokenService:    tokenService,
		DB:              db,
		Redis:           redisClient,
		StartTime:       startTime,
	})

	srv := &http.Server{
		Addr:         ":" + serverPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Trainlog API running on http://localhost:%s", serverPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Critical server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Stop signal received. Shutting down...")

	cron.Stop()
	stopWorkers()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Forced shutdown error:", err)
	}

	log.Println("Server stopped gracefully.")
}
