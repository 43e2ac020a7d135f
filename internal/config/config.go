package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

type Config struct {
	Environment   string
	LogLevel      string
	HTTPAddr      string
	StorageDriver string
	DBDSN         string
	MigrationsDir string // пусто - встроенные миграции
	SeedFile      string // только для STORAGE_DRIVER=memory

	RedisAddr     string // пусто - без межпроцессной аренды фоновых задач
	RedisPassword string
	RedisDB       int

	TelegramToken string
	JWTSecret     string

	ClubTimezone   string
	Courts         []string
	ExpirationDays int
	AutoConfirm    time.Duration
	ManualHorizon  time.Duration

	ExpirationSweepInterval  time.Duration
	AutoConfirmSweepInterval time.Duration
	NotificationQueueSize    int
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	} else {
		log.Println("✅ Loaded configuration from .env file")
	}

	return FromEnv(os.Getenv)
}

// FromEnv собирает конфигурацию из getenv и проставляет значения по умолчанию
func FromEnv(getenv func(string) string) (*Config, error) {
	p := parser{getenv: getenv}

	cfg := &Config{
		Environment:   p.str("ENV", "development"),
		LogLevel:      p.str("LOG_LEVEL", ""),
		HTTPAddr:      p.str("HTTP_ADDR", ":8080"),
		StorageDriver: p.str("STORAGE_DRIVER", StoragePostgres),
		DBDSN:         p.str("DB_DSN", ""),
		MigrationsDir: p.str("MIGRATIONS_DIR", ""),
		SeedFile:      p.str("SEED_FILE", ""),

		RedisAddr:     p.str("REDIS_ADDR", ""),
		RedisPassword: p.str("REDIS_PASSWORD", ""),
		RedisDB:       p.int("REDIS_DB", 0),

		TelegramToken: p.str("TELEGRAM_TOKEN", ""),
		JWTSecret:     p.str("JWT_SECRET", ""),

		ClubTimezone:   p.str("CLUB_TIMEZONE", "Europe/Madrid"),
		Courts:         p.list("COURTS", []string{"1", "2", "3", "4"}),
		ExpirationDays: p.int("EXPIRATION_DAYS", 15),
		AutoConfirm:    time.Duration(p.int("AUTO_CONFIRM_MINUTES", 48*60)) * time.Minute,
		ManualHorizon:  time.Duration(p.int("MANUAL_BOOKING_HORIZON_HOURS", 48)) * time.Hour,

		ExpirationSweepInterval:  p.duration("EXPIRATION_SWEEP_INTERVAL", 6*time.Hour),
		AutoConfirmSweepInterval: p.duration("AUTO_CONFIRM_SWEEP_INTERVAL", 15*time.Minute),
		NotificationQueueSize:    p.int("NOTIFICATION_QUEUE_SIZE", 256),
	}
	if p.err != nil {
		return nil, p.err
	}

	// Проверяем обязательные поля
	switch cfg.StorageDriver {
	case StoragePostgres:
		if cfg.DBDSN == "" {
			return nil, fmt.Errorf("DB_DSN is required but not set")
		}
	case StorageMemory:
	default:
		return nil, fmt.Errorf("STORAGE_DRIVER must be %q or %q, got %q", StoragePostgres, StorageMemory, cfg.StorageDriver)
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required but not set")
	}
	if len(cfg.Courts) == 0 {
		return nil, fmt.Errorf("COURTS must list at least one court")
	}
	if _, err := time.LoadLocation(cfg.ClubTimezone); err != nil {
		return nil, fmt.Errorf("CLUB_TIMEZONE: %w", err)
	}

	return cfg, nil
}

// Location часовой пояс клуба; Load уже проверил, что он существует
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.ClubTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// parser запоминает первую ошибку разбора
type parser struct {
	getenv func(string) string
	err    error
}

func (p *parser) str(key, def string) string {
	if v := strings.TrimSpace(p.getenv(key)); v != "" {
		return v
	}
	return def
}

func (p *parser) int(key string, def int) int {
	v := p.str(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		p.fail(fmt.Errorf("%s must be a non-negative integer, got %q", key, v))
		return def
	}
	return n
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v := p.str(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		p.fail(fmt.Errorf("%s must be a positive duration like 15m, got %q", key, v))
		return def
	}
	return d
}

func (p *parser) list(key string, def []string) []string {
	v := p.str(key, "")
	if v == "" {
		return def
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func (p *parser) fail(err error) {
	if p.err == nil {
		p.err = err
	}
}
