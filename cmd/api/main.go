package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/athebyme/shopify-bulk-sync/config"
	"github.com/athebyme/shopify-bulk-sync/internal/adapters/cache"
	"github.com/athebyme/shopify-bulk-sync/internal/adapters/csvsource"
	"github.com/athebyme/shopify-bulk-sync/internal/adapters/logger"
	"github.com/athebyme/shopify-bulk-sync/internal/adapters/messaging"
	"github.com/athebyme/shopify-bulk-sync/internal/adapters/shopify"
	"github.com/athebyme/shopify-bulk-sync/internal/adapters/storage"
	"github.com/athebyme/shopify-bulk-sync/internal/api"
	"github.com/athebyme/shopify-bulk-sync/internal/api/handlers"
	"github.com/athebyme/shopify-bulk-sync/internal/domain/services"
	"github.com/athebyme/shopify-bulk-sync/internal/utils"
	"github.com/athebyme/shopify-bulk-sync/pkg/interfaces"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Printf("Ошибка загрузки конфигурации: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Некорректная конфигурация: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log, err := logger.NewZapLogger(cfg.LogLevel, cfg.ENV == "production")
	if err != nil {
		fmt.Printf("Ошибка инициализации логгера: %v\n", err)
		os.Exit(1)
	}
	log.Info("Инициализация сервиса",
		interfaces.LogField{Key: "app_name", Value: cfg.AppName},
		interfaces.LogField{Key: "version", Value: cfg.Version},
		interfaces.LogField{Key: "env", Value: cfg.ENV},
	)

	if cfg.Metrics.Enabled {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())

			addr := fmt.Sprintf(":%d", cfg.Metrics.Port)
			log.Info("Запуск HTTP сервера для метрик",
				interfaces.LogField{Key: "addr", Value: addr})

			if err := http.ListenAndServe(addr, mux); err != nil {
				log.Error("Ошибка запуска HTTP сервера для метрик",
					interfaces.LogField{Key: "error", Value: err.Error()})
			}
		}()
	}

	connectionStr, err := utils.GenerateConnectionString(
		cfg.Postgres.Host,
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.DBName,
		cfg.Postgres.SSLMode,
		cfg.Postgres.Port,
		cfg.Postgres.PoolSize,
		cfg.Postgres.Timeout,
	)
	if err != nil {
		log.Fatal("Ошибка генерации строки подключения к PostgreSQL",
			interfaces.LogField{Key: "error", Value: err.Error()})
	}

	repo, err := postgres.NewPostgresStorage(ctx, connectionStr)
	if err != nil {
		log.Fatal("Ошибка инициализации хранилища",
			interfaces.LogField{Key: "error", Value: err.Error()})
	}
	defer repo.Close()
	log.Info("Хранилище инициализировано")

	testCtx, testCancel := context.WithTimeout(ctx, 5*time.Second)
	defer testCancel()

	if err := checkPostgresConnection(testCtx, repo); err != nil {
		log.Fatal("Ошибка подключения к PostgreSQL",
			interfaces.LogField{Key: "error", Value: err.Error()})
	}
	log.Info("Соединение с PostgreSQL проверено")

	cacheClient, err := cache.NewRedisCache(
		ctx,
		cfg.Redis.Host,
		cfg.Redis.Port,
		cfg.Redis.Password,
		cfg.Redis.DB,
	)
	if err != nil {
		log.Fatal("Ошибка инициализации кэша",
			interfaces.LogField{Key: "error", Value: err.Error()})
	}
	defer cacheClient.Close()
	log.Info("Кэш инициализирован")

	if err := checkRedisConnection(testCtx, cacheClient); err != nil {
		log.Fatal("Ошибка подключения к Redis",
			interfaces.LogField{Key: "error", Value: err.Error()})
	}
	log.Info("Соединение с Redis проверено")

	messagingClient, err := messaging.NewKafkaMessaging(cfg.Kafka.Brokers)
	if err != nil {
		log.Fatal("Ошибка инициализации системы обмена сообщениями",
			interfaces.LogField{Key: "error", Value: err.Error()})
	}
	defer messagingClient.Close()
	log.Info("Система обмена сообщениями инициализирована")

	session, err := shopify.NewSession(cfg.Shopify.StoreName, cfg.Shopify.AccessToken, cfg.Shopify.APIVersion)
	if err != nil {
		log.Fatal("Ошибка создания сессии Shopify",
			interfaces.LogField{Key: "error", Value: err.Error()})
	}
	gateway := shopify.NewClient(session, log, cfg.Shopify.Timeout, cfg.Shopify.MaxRetries, cfg.Shopify.BackoffBase)
	log.Info("Клиент Shopify инициализирован",
		interfaces.LogField{Key: "endpoint", Value: session.Endpoint()})

	projector := services.NewProjectorService(log)
	resolver := services.NewResolverService(gateway, cacheClient, log, cfg.Sync.CacheTTL)
	syncService := services.NewSyncService(gateway, projector, resolver, repo, messagingClient, log, services.SyncOptions{
		StoreName:    cfg.Shopify.StoreName,
		WorkDir:      cfg.Sync.WorkDir,
		PollInterval: cfg.Sync.PollInterval,
		PollBudget:   cfg.Sync.PollBudget,
		FailFast:     cfg.Sync.FailFast,
		Topic:        cfg.Kafka.Topic,
	})
	reconciler := services.NewReconcilerService(gateway, resolver, syncService, log, cfg.Sync.ChunkSize)
	log.Info("Сервисы синхронизации инициализированы")

	reader := csvsource.NewReader(log)
	syncHandler := handlers.NewSyncHandler(syncService, reconciler, gateway, reader, log, cfg.Sync.SourceFile)

	router := api.SetupRouter(syncHandler, log, cfg.Security.CORSAllowOrigins)
	log.Info("Маршрутизатор настроен")

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	done := make(chan bool, 1)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info("Сервер запущен", interfaces.LogField{Key: "address", Value: server.Addr})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Ошибка запуска сервера", interfaces.LogField{Key: "error", Value: err.Error()})
		}
	}()

	go func() {
		<-quit
		log.Info("Получен сигнал завершения, выполняется graceful shutdown...")

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Fatal("Ошибка при graceful shutdown", interfaces.LogField{Key: "error", Value: err.Error()})
		}

		log.Info("HTTP сервер остановлен")

		if err := messagingClient.Close(); err != nil {
			log.Error("Ошибка при закрытии Kafka",
				interfaces.LogField{Key: "error", Value: err.Error()})
		}

		if err := cacheClient.Close(); err != nil {
			log.Error("Ошибка при закрытии Redis",
				interfaces.LogField{Key: "error", Value: err.Error()})
		}

		if err := repo.Close(); err != nil {
			log.Error("Ошибка при закрытии БД",
				interfaces.LogField{Key: "error", Value: err.Error()})
		}

		close(done)
	}()

	<-done
	log.Info("Сервер корректно завершил работу")
}

// Проверка соединения с PostgreSQL
func checkPostgresConnection(ctx context.Context, db interfaces.StoragePort) error {
	txCtx, err := db.BeginTx(ctx)
	if err != nil {
		return err
	}
	return db.RollbackTx(txCtx)
}

// Проверка соединения с Redis
func checkRedisConnection(ctx context.Context, cacheClient interfaces.CachePort) error {
	testKey := "test:connection"
	testValue := []byte("test-value")

	if err := cacheClient.Set(ctx, testKey, testValue, 10*time.Second); err != nil {
		return fmt.Errorf("ошибка записи в Redis: %w", err)
	}

	value, err := cacheClient.Get(ctx, testKey)
	if err != nil {
		return fmt.Errorf("ошибка чтения из Redis: %w", err)
	}

	if string(value) != string(testValue) {
		return fmt.Errorf("некорректное значение из Redis: получено %s, ожидалось %s",
			string(value), string(testValue))
	}

	return cacheClient.Delete(ctx, testKey)
}
