package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	DatabaseURL    string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	BusinessName   string
	LogLevel       string
	WorkerInterval time.Duration
}

func Load() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))

	intervalMinutes, err := strconv.Atoi(getEnv("WORKER_INTERVAL_MINUTES", "60"))
	if err != nil || intervalMinutes < 1 {
		intervalMinutes = 60
	}
	cfg := Config{
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisDB:        redisDB,
		BusinessName:   getEnv("BUSINESS_NAME", "Recoup"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		WorkerInterval: time.Duration(intervalMinutes) * time.Minute,
	}

	return cfg
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}
