package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/athebyme/shopify-bulk-sync/config"
	"github.com/athebyme/shopify-bulk-sync/internal/adapters/cache"
	"github.com/athebyme/shopify-bulk-sync/internal/adapters/csvsource"
	"github.com/athebyme/shopify-bulk-sync/internal/adapters/logger"
	"github.com/athebyme/shopify-bulk-sync/internal/adapters/messaging"
	"github.com/athebyme/shopify-bulk-sync/internal/adapters/shopify"
	"github.com/athebyme/shopify-bulk-sync/internal/adapters/storage"
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
	log.Info("Инициализация синхронизатора",
		interfaces.LogField{Key: "app_name", Value: cfg.AppName + "-sync"},
		interfaces.LogField{Key: "version", Value: cfg.Version},
		interfaces.LogField{Key: "env", Value: cfg.ENV},
		interfaces.LogField{Key: "store", Value: cfg.Shopify.StoreName},
	)

	// Запускаем HTTP сервер для метрик если они включены
	if cfg.Metrics.Enabled {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("OK"))
			})

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

	reader := csvsource.NewReader(log)
	products, err := reader.Read(cfg.Sync.SourceFile)
	if err != nil {
		log.Fatal("Ошибка чтения выгрузки каталога",
			interfaces.LogField{Key: "file", Value: cfg.Sync.SourceFile},
			interfaces.LogField{Key: "error", Value: err.Error()})
	}
	log.Info("Выгрузка каталога прочитана",
		interfaces.LogField{Key: "file", Value: cfg.Sync.SourceFile},
		interfaces.LogField{Key: "products", Value: len(products)})

	// Прерываем конвейер по сигналу завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-quit
		log.Warn("Получен сигнал завершения, конвейер будет остановлен",
			interfaces.LogField{Key: "signal", Value: sig.String()})
		cancel()
	}()

	run, err := syncService.Run(ctx, cfg.Sync.SourceFile, products)
	if err != nil {
		log.Error("Синхронизация завершилась с ошибкой",
			interfaces.LogField{Key: "error", Value: err.Error()})
		os.Exit(1)
	}

	log.Info("Синхронизация завершена",
		interfaces.LogField{Key: "run_id", Value: run.ID},
		interfaces.LogField{Key: "status", Value: run.Status})
	_ = log.Sync()
}
