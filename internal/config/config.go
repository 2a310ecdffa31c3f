package config

import (
	"os"
	"strconv"
)

type Config struct {
	DBHost         string
	DBPort         string
	DBUser         string
	DBPassword     string
	DBName         string
	RedisHost      string
	RedisPort      string
	RedisPassword  string
	SyncQueue      string
	SyncWorkers    int
	MemoryAPIKey   string
	MemoryBaseURL  string
	GinMode        string
}

func Load() *Config {
	return &Config{
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBPort:        getEnv("DB_PORT", "3306"),
		DBUser:        getEnv("DB_USER", "memuser"),
		DBPassword:    getEnv("DB_PASSWORD", "mempassword"),
		DBName:        getEnv("DB_NAME", "memory_api"),
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		SyncQueue:     getEnv("SYNC_QUEUE", "memory_sync"),
		SyncWorkers:   getEnvInt("SYNC_WORKERS", 4),
		MemoryAPIKey:  getEnv("MEMORY_SERVICE_API_KEY", ""),
		MemoryBaseURL: getEnv("MEMORY_SERVICE_URL", "https://api.mem0.ai"),
		GinMode:       getEnv("GIN_MODE", "debug"),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}
