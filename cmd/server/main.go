package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nilpay/payment-service/internal/api"
	"github.com/nilpay/payment-service/internal/config"
	"github.com/nilpay/payment-service/internal/handler"
	"github.com/nilpay/payment-service/internal/infrastructure/auth"
	"github.com/nilpay/payment-service/internal/infrastructure/kafka"
	"github.com/nilpay/payment-service/internal/infrastructure/processor"
	"github.com/nilpay/payment-service/internal/infrastructure/redis"
	"github.com/nilpay/payment-service/internal/infrastructure/webhook"
	"github.com/nilpay/payment-service/internal/observability"
	"github.com/nilpay/payment-service/internal/repository/memory"
	core "github.com/nilpay/payment-service/internal/repository/postgres"
	service "github.com/nilpay/payment-service/internal/services"

	_ "github.com/lib/pq"
)

func main() {
	// Инициализируем логи, метрики, трейсы
	shutdown, metricsHandler := observability.Setup("payment-service")
	defer shutdown(context.Background())

	cfg := config.Load()

	// Подключаемся к Postgres
	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer db.Close()

	// Инициализируем зависимости
	userRepo := core.NewPostgresUserRepository(db)
	transactionRepo := core.NewPostgresTransactionRepository(db)
	notificationRepo := memory.NewNotificationRepository()
	redisClient := redis.NewClient(cfg.RedisAddr)
	defer redisClient.Close()

	kafkaProducer := kafka.NewProducer(cfg.KafkaBrokers)
	defer kafkaProducer.Close()

	notifier := webhook.NewNotifier(cfg.WebhookURL, cfg.WebhookTimeout)
	paymentProcessor := processor.NewSimulator(cfg.ProcessorDelay, cfg.ProcessorSuccessRate)
	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)

	// Инициализируем сервисы
	authSvc := service.NewAuthService(userRepo, tokens, redisClient, kafkaProducer, cfg.BcryptCost, cfg.TokenTTL)
	paymentSvc := service.NewPaymentService(transactionRepo, paymentProcessor, notifier, kafkaProducer)

	// Консьюмер платёжных событий кладёт уведомления для пользователя
	consumerCtx, cancelConsumer := context.WithCancel(context.Background())
	paymentConsumer := kafka.NewConsumer(cfg.KafkaBrokers, kafka.TopicPayments, "payment-service-notifications", notificationRepo)
	go paymentConsumer.Consume(consumerCtx)
	defer paymentConsumer.Close()
	defer cancelConsumer()

	healthHandler := handler.NewHealthHandler(map[string]handler.HealthChecker{
		"database": db.PingContext,
		"redis":    redisClient.Ping,
		"webhook":  notifier.CheckHealth,
	})

	h := handler.NewHandler(authSvc, paymentSvc, notificationRepo)
	router := api.SetupRouter(h, healthHandler, metricsHandler, tokens, redisClient)

	// Запускаем сервер
	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}
	go func() {
		log.Printf("Starting server on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Graceful shutdown
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
