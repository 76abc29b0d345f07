package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roadsense/iri-engine/internal/models"
)

// Config содержит конфигурацию приложения
type Config struct {
	Environment string              `yaml:"environment"`
	Engine      models.FilterConfig `yaml:"engine"`
	Cache       CacheConfig         `yaml:"cache"`
	Logging     LoggingConfig       `yaml:"logging"`
	Monitoring  MonitoringConfig    `yaml:"monitoring"`
}

// CacheConfig конфигурация кеша результатов
type CacheConfig struct {
	Capacity int           `yaml:"capacity"`
	TTL      time.Duration `yaml:"ttl"`

	// Опциональный второй уровень кеша в Redis, пустой URL отключает его
	RedisURL      string        `yaml:"redis_url"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	RedisTTL      time.Duration `yaml:"redis_ttl"`

	// Ограничение числа стартов вычислений в секунду, 0 отключает лимитер
	MaxComputeRate float64 `yaml:"max_compute_rate"`
	ComputeBurst   int     `yaml:"compute_burst"`
}

// LoggingConfig конфигурация логирования
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MonitoringConfig конфигурация мониторинга
type MonitoringConfig struct {
	MetricsEnabled bool   `yaml:"metrics_enabled"`
	MetricsPort    string `yaml:"metrics_port"`
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Engine: models.FilterConfig{
			SegmentLengthM:     getFloat("IRI_SEGMENT_LENGTH_M", 100),
			CutoffFreqHz:       getFloat("IRI_CUTOFF_FREQ_HZ", 10.0),
			ReferenceSpeedKmh:  getFloat("IRI_REFERENCE_SPEED_KMH", 80),
			HighpassFreqHz:     getFloat("IRI_HIGHPASS_FREQ_HZ", 0.1),
			VerticalChannel:    getEnv("IRI_VERTICAL_CHANNEL", "az"),
			GapFactor:          getFloat("IRI_GAP_FACTOR", 8),
			MaxOutlierFraction: getFloat("IRI_MAX_OUTLIER_FRACTION", 0.05),
			MaxPlausibleAccel:  getFloat("IRI_MAX_PLAUSIBLE_ACCEL", 50),
		},
		Cache: CacheConfig{
			Capacity:       getInt("CACHE_CAPACITY", 256),
			TTL:            getDuration("CACHE_TTL", 24*time.Hour),
			RedisURL:       getEnv("CACHE_REDIS_URL", ""),
			RedisPassword:  getEnv("CACHE_REDIS_PASSWORD", ""),
			RedisDB:        getInt("CACHE_REDIS_DB", 0),
			RedisTTL:       getDuration("CACHE_REDIS_TTL", 7*24*time.Hour),
			MaxComputeRate: getFloat("CACHE_MAX_COMPUTE_RATE", 0),
			ComputeBurst:   getInt("CACHE_COMPUTE_BURST", 1),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Monitoring: MonitoringConfig{
			MetricsEnabled: getBool("METRICS_ENABLED", true),
			MetricsPort:    getEnv("METRICS_PORT", "9090"),
		},
	}

	// Валидация
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadFile загружает конфигурацию из YAML файла поверх значений окружения
func LoadFile(path string) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate проверяет корректность конфигурации
func (c *Config) Validate() error {
	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}

	if c.Cache.Capacity <= 0 {
		return fmt.Errorf("CACHE_CAPACITY must be positive")
	}

	if c.Cache.TTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive")
	}

	if c.Cache.MaxComputeRate < 0 {
		return fmt.Errorf("CACHE_MAX_COMPUTE_RATE must not be negative")
	}

	if c.Cache.MaxComputeRate > 0 && c.Cache.ComputeBurst <= 0 {
		return fmt.Errorf("CACHE_COMPUTE_BURST must be positive when rate limiting is enabled")
	}

	return nil
}

// Helper функции для чтения переменных окружения

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
