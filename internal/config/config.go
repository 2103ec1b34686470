package config

import (
	"os"
	"strconv"
	"time"
)

// Config собирает все настройки приложения в один явный объект,
// который передаётся компонентам при создании.
type Config struct {
	DB    DBConfig
	Redis RedisConfig
	JWT   JWTConfig
	Queue QueueConfig
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

type QueueConfig struct {
	// SubjectsOpenByDefault задаёт значение is_open для новых предметов.
	SubjectsOpenByDefault bool
	// EntryTTL — возраст записи, после которого ночная задача её удаляет.
	EntryTTL time.Duration
}

// Load читает настройки из переменных окружения.
func Load() Config {
	return Config{
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     getEnv("DB_NAME", "group_assist"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			AccessSecret:  []byte(os.Getenv("JWT_ACCESS_SECRET")),
			RefreshSecret: []byte(os.Getenv("JWT_REFRESH_SECRET")),
			AccessTTL:     getEnvDuration("JWT_ACCESS_TTL", 15*time.Minute),
			RefreshTTL:    getEnvDuration("JWT_REFRESH_TTL", 7*24*time.Hour),
		},
		Queue: QueueConfig{
			SubjectsOpenByDefault: getEnvBool("SUBJECTS_OPEN_BY_DEFAULT", true),
			EntryTTL:              getEnvDuration("QUEUE_ENTRY_TTL", 24*time.Hour),
		},
	}
}

// LoadTesting читает настройки тестовой базы (TEST_DB_*), остальное как Load.
func LoadTesting() Config {
	cfg := Load()
	cfg.DB = DBConfig{
		Host:     getEnv("TEST_DB_HOST", "localhost"),
		Port:     getEnv("TEST_DB_PORT", "5432"),
		User:     getEnv("TEST_DB_USER", "postgres"),
		Password: os.Getenv("TEST_DB_PASSWORD"),
		Name:     getEnv("TEST_DB_NAME", "group_assist_test"),
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
