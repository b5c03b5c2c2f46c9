package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port                  string
	AllowedOrigin         string
	DatabaseURL           string
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	DepartmentID          string
	AuthSecret            string
	AccessTokenTTLMinutes int
	ManagerPIN            string
	SyncPollSeconds       int
	ProbeSeconds          int
}

func Load() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	tokenTTL, err := strconv.Atoi(getEnv("ACCESS_TOKEN_TTL_MINUTES", "480"))
	if err != nil || tokenTTL < 1 {
		tokenTTL = 480
	}
	syncPoll, err := strconv.Atoi(getEnv("SYNC_POLL_SECONDS", "15"))
	if err != nil || syncPoll < 1 {
		syncPoll = 15
	}
	probe, err := strconv.Atoi(getEnv("CONNECTIVITY_PROBE_SECONDS", "10"))
	if err != nil || probe < 1 {
		probe = 10
	}

	cfg := Config{
		Port:                  getEnv("PORT", "8080"),
		AllowedOrigin:         getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		RedisPassword:         os.Getenv("REDIS_PASSWORD"),
		RedisDB:               redisDB,
		DepartmentID:          getEnv("DEFAULT_DEPARTMENT_ID", "dept-retail"),
		AuthSecret:            strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AccessTokenTTLMinutes: tokenTTL,
		ManagerPIN:            strings.TrimSpace(os.Getenv("MANAGER_PIN")),
		SyncPollSeconds:       syncPoll,
		ProbeSeconds:          probe,
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}
