package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	nats "github.com/nats-io/nats.go"

	"onec-api/internal/repository"
	"onec-api/internal/service"
	externalHttp "onec-api/internal/transport/http"
	"onec-api/pkg/cache"
	"onec-api/pkg/logger"
)

// getenv возвращает значение переменной окружения или значение по умолчанию
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	// читаем переменные окружения
	host := getenv("APP_HOST", "127.0.0.1")
	port := getenv("APP_PORT", "8000")
	apiKey := os.Getenv("API_KEY")
	if apiKey == "" {
		log.Printf("API_KEY не задан, используем ключ по умолчанию 'default_api_key'")
		apiKey = "default_api_key"
	}
	logLevel := getenv("LOG_LEVEL", "INFO")
	publicURL := getenv("PUBLIC_URL", fmt.Sprintf("http://%s:%s", host, port))
	natsURL := os.Getenv("NATS_URL")
	natsSubject := getenv("NATS_SUBJECT", "tasks.events")
	redisAddr := os.Getenv("REDIS_ADDR")

	// строка подключения к Postgres: DATABASE_URL либо сборка из DB_*
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dbHost := getenv("DB_HOST", "localhost")
		dbPort := getenv("DB_PORT", "5432")
		dbName := getenv("DB_NAME", "default_db")
		dbUser := getenv("DB_USER", "default_user")
		dbPassword := getenv("DB_PASSWORD", "default_password")
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", dbUser, dbPassword, dbHost, dbPort, dbName)
	}

	// подключаем Postgres
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("failed to connect to Postgres: %v", err)
	}
	defer func() { _ = db.Close() }()
	if err := db.Ping(); err != nil {
		log.Fatalf("failed to ping Postgres: %v", err)
	}

	// Применяем миграции Postgres с помощью golang-migrate:
	// все DDL идемпотентны (IF NOT EXISTS), повторный запуск безопасен
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		log.Fatalf("failed to create migrate driver: %v", err)
	}
	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations/postgres", "postgres", driver,
	)
	if err != nil {
		log.Fatalf("failed to create migrate instance: %v", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		log.Fatalf("failed to apply migrations: %v", err)
	}

	// подключаем Redis
	cacheClient := cache.NewRedisClient(redisAddr)
	// подключаем NATS
	nc, err := nats.Connect(natsURL)
	if err != nil {
		log.Fatalf("failed to connect to NATS: %v", err)
	}
	loggerClient := logger.NewClient(nc, natsSubject)

	// создаем репозитории и сервисы
	taskRepo := repository.NewTaskRepository(db)
	shipmentRepo := repository.NewShipmentRepository(db)
	tasksSrv := service.NewTasksService(taskRepo, cacheClient, loggerClient)
	shipmentsSrv := service.NewShipmentsService(shipmentRepo)

	// настраиваем HTTP маршруты:
	// логирование всех запросов, bearer-авторизация на всех эндпоинтах API
	r := mux.NewRouter()
	r.Use(externalHttp.LoggingMiddleware())
	h := externalHttp.NewHandler(tasksSrv, shipmentsSrv)
	h.RegisterRoutes(r, externalHttp.AuthMiddleware(apiKey))

	// запускаем HTTP сервер с поддержкой graceful shutdown
	addr := host + ":" + port
	srvHttp := &http.Server{Addr: addr, Handler: r}
	// запуск сервера в горутине
	go func() {
		log.Printf("starting server at %s (public url %s, log level %s)", addr, publicURL, logLevel)
		if err := srvHttp.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()
	// ожидаем сигнал для graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Printf("shutting down server...")
	// контекст с таймаутом для остановки
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srvHttp.Shutdown(ctx); err != nil {
		log.Fatalf("server shutdown failed: %v", err)
	}
	log.Printf("server exited properly")
	// закрываем Redis-клиент
	if err := cacheClient.Close(); err != nil {
		log.Printf("failed to close Redis client: %v", err)
	}
	// корректно дренируем и закрываем NATS-соединение
	if err := nc.Drain(); err != nil {
		log.Printf("failed to drain NATS connection: %v", err)
	}
	nc.Close()
}
