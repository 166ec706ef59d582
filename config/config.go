package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config содержит все настройки сервиса синхронизации каталога
type Config struct {
	AppName  string
	Version  string
	LogLevel string
	ENV      string

	Server struct {
		Host            string
		Port            int
		ReadTimeout     time.Duration
		WriteTimeout    time.Duration
		ShutdownTimeout time.Duration
	}

	// Shopify описывает сессию Admin GraphQL API
	Shopify struct {
		StoreName   string        // имя магазина ({store}.myshopify.com)
		AccessToken string        // токен доступа Admin API
		APIVersion  string        // версия API, например 2025-07
		Timeout     time.Duration // таймаут одного HTTP запроса
		MaxRetries  int           // потолок повторов транспорта
		BackoffBase time.Duration // база экспоненциальной задержки (2^attempt * base)
	}

	// Sync описывает поведение конвейера массовых операций
	Sync struct {
		SourceFile    string        // путь к выгрузке каталога (CSV)
		WorkDir       string        // каталог для сериализованных JSONL файлов
		PollInterval  time.Duration // интервал опроса статуса bulk-операции
		PollBudget    time.Duration // максимальное время ожидания завершения операции
		FailFast      bool          // прерывать конвейер после первой неуспешной фазы
		ChunkSize     int           // размер пакета для обновления файлов
		BulkReconcile bool          // гнать обновления файлов через bulk-конвейер
		CacheTTL      time.Duration // срок жизни кэша handle -> GID
	}

	Postgres struct {
		Host     string
		Port     int
		User     string
		Password string
		DBName   string
		SSLMode  string
		Timeout  time.Duration
		PoolSize int
	}

	Redis struct {
		Host     string
		Port     int
		Password string
		DB       int
	}

	Kafka struct {
		Brokers []string `mapstructure:"brokers"`
		Topic   string   `mapstructure:"topic"`
	}

	Security struct {
		CORSAllowOrigins []string `mapstructure:"corsAllowOrigins"`
	}

	Metrics struct {
		Enabled bool
		Port    int `mapstructure:"port"`
	}
}

// Load загружает конфигурацию из файла и переменных окружения
func Load(configPath string) (*Config, error) {
	configFile := "config"
	if configPath != "" {
		configFile = configPath
	}

	var cfg Config

	// Настройка Viper
	viper.SetConfigName(configFile)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("../config")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Чтение конфигурационного файла
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("ошибка чтения файла конфигурации: %w", err)
		}
		// Продолжаем, если файл не найден, будем использовать только переменные окружения
	}

	setDefaults()
	bindEnvVariables()

	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("ошибка десериализации конфигурации: %w", err)
	}

	cfg.ENV = viper.GetString("env")
	if cfg.ENV == "" {
		cfg.ENV = "development"
		if envVar := os.Getenv("APP_ENV"); envVar != "" {
			cfg.ENV = envVar
		}
	}

	return &cfg, nil
}

// Validate проверяет обязательные параметры сессии Shopify
func (c *Config) Validate() error {
	if c.Shopify.StoreName == "" {
		return fmt.Errorf("shopify.storeName не задан")
	}
	if c.Shopify.AccessToken == "" {
		return fmt.Errorf("shopify.accessToken не задан")
	}
	return nil
}

// setDefaults устанавливает значения по умолчанию
func setDefaults() {
	// Основные настройки
	viper.SetDefault("appName", "catalog-sync")
	viper.SetDefault("version", "1.0.0")
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("env", "development")

	// Настройки сервера
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", "10s")
	viper.SetDefault("server.writeTimeout", "10s")
	viper.SetDefault("server.shutdownTimeout", "5s")

	// Настройки Shopify
	viper.SetDefault("shopify.apiVersion", "2025-07")
	viper.SetDefault("shopify.timeout", "60s")
	viper.SetDefault("shopify.maxRetries", 3)
	viper.SetDefault("shopify.backoffBase", "1s")

	// Настройки конвейера
	viper.SetDefault("sync.sourceFile", "catalog.csv")
	viper.SetDefault("sync.workDir", os.TempDir())
	viper.SetDefault("sync.pollInterval", "3s")
	viper.SetDefault("sync.pollBudget", "30m")
	viper.SetDefault("sync.failFast", true)
	viper.SetDefault("sync.chunkSize", 50)
	viper.SetDefault("sync.bulkReconcile", false)
	viper.SetDefault("sync.cacheTTL", "10m")

	// Настройки Postgres
	viper.SetDefault("postgres.host", "localhost")
	viper.SetDefault("postgres.port", 5432)
	viper.SetDefault("postgres.user", "postgres")
	viper.SetDefault("postgres.password", "postgres")
	viper.SetDefault("postgres.dbname", "postgres")
	viper.SetDefault("postgres.sslmode", "disable")
	viper.SetDefault("postgres.timeout", "5s")
	viper.SetDefault("postgres.poolSize", 10)

	// Настройки Redis
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Настройки Kafka
	viper.SetDefault("kafka.brokers", []string{"localhost:9092"})
	viper.SetDefault("kafka.topic", "catalog-sync-events")

	// Настройки безопасности
	viper.SetDefault("security.corsAllowOrigins", []string{"*"})

	// Настройки метрик
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.port", 9091)
}

// bindEnvVariables привязывает переменные окружения к конфигурации
func bindEnvVariables() {
	// Основные настройки
	viper.BindEnv("appName", "APP_NAME")
	viper.BindEnv("version", "APP_VERSION")
	viper.BindEnv("logLevel", "LOG_LEVEL")
	viper.BindEnv("env", "APP_ENV")

	// Настройки сервера
	viper.BindEnv("server.host", "SERVER_HOST")
	viper.BindEnv("server.port", "SERVER_PORT")

	// Настройки Shopify
	viper.BindEnv("shopify.storeName", "SHOPIFY_STORE_NAME")
	viper.BindEnv("shopify.accessToken", "SHOPIFY_ACCESS_TOKEN")
	viper.BindEnv("shopify.apiVersion", "SHOPIFY_API_VERSION")
	viper.BindEnv("shopify.maxRetries", "SHOPIFY_MAX_RETRIES")
	viper.BindEnv("shopify.backoffBase", "SHOPIFY_BACKOFF_BASE")

	// Настройки конвейера
	viper.BindEnv("sync.sourceFile", "SYNC_SOURCE_FILE")
	viper.BindEnv("sync.workDir", "SYNC_WORK_DIR")
	viper.BindEnv("sync.pollInterval", "SYNC_POLL_INTERVAL")
	viper.BindEnv("sync.pollBudget", "SYNC_POLL_BUDGET")
	viper.BindEnv("sync.failFast", "SYNC_FAIL_FAST")
	viper.BindEnv("sync.chunkSize", "SYNC_CHUNK_SIZE")
	viper.BindEnv("sync.bulkReconcile", "SYNC_BULK_RECONCILE")

	// Настройки Postgres
	viper.BindEnv("postgres.host", "POSTGRES_HOST")
	viper.BindEnv("postgres.port", "POSTGRES_PORT")
	viper.BindEnv("postgres.user", "POSTGRES_USER")
	viper.BindEnv("postgres.password", "POSTGRES_PASSWORD")
	viper.BindEnv("postgres.dbname", "POSTGRES_DBNAME")
	viper.BindEnv("postgres.sslmode", "POSTGRES_SSLMODE")

	// Настройки Redis
	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	// Настройки Kafka
	viper.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	viper.BindEnv("kafka.topic", "KAFKA_TOPIC")

	// Настройки безопасности
	viper.BindEnv("security.corsAllowOrigins", "CORS_ALLOW_ORIGINS")

	// Настройки метрик
	viper.BindEnv("metrics.enabled", "METRICS_ENABLED")
	viper.BindEnv("metrics.port", "METRICS_PORT")
}
