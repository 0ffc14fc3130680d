package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port                     string
	AllowedOrigin            string
	DatabaseURL              string
	LedgerMySQLDSN           string
	RedisAddr                string
	RedisPassword            string
	RedisDB                  int
	ReportTTLMinutes         int
	AuthSecret               string
	AccessTokenTTLMinutes    int
	BranchesFile             string
	LedgerReadTimeoutSeconds int
	LogLevel                 string
	LogFormat                string
	PeriodFrom               string
	PeriodTo                 string
}

func Load() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))

	cfg := Config{
		Port:                     getEnv("PORT", "8080"),
		AllowedOrigin:            getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		DatabaseURL:              os.Getenv("DATABASE_URL"),
		LedgerMySQLDSN:           os.Getenv("LEDGER_MYSQL_DSN"),
		RedisAddr:                os.Getenv("REDIS_ADDR"),
		RedisPassword:            os.Getenv("REDIS_PASSWORD"),
		RedisDB:                  redisDB,
		ReportTTLMinutes:         getPositiveInt("REPORT_TTL_MINUTES", 30),
		AuthSecret:               strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AccessTokenTTLMinutes:    getPositiveInt("ACCESS_TOKEN_TTL_MINUTES", 480),
		BranchesFile:             strings.TrimSpace(os.Getenv("BRANCHES_FILE")),
		LedgerReadTimeoutSeconds: getPositiveInt("LEDGER_READ_TIMEOUT_SECONDS", 15),
		LogLevel:                 strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:                strings.ToLower(getEnv("LOG_FORMAT", "text")),
		PeriodFrom:               strings.TrimSpace(os.Getenv("PERIOD_FROM")),
		PeriodTo:                 strings.TrimSpace(os.Getenv("PERIOD_TO")),
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func (c Config) ReportTTL() time.Duration {
	return time.Duration(c.ReportTTLMinutes) * time.Minute
}

func (c Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenTTLMinutes) * time.Minute
}

func (c Config) LedgerReadTimeout() time.Duration {
	return time.Duration(c.LedgerReadTimeoutSeconds) * time.Second
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func getPositiveInt(key string, fallback int) int {
	n, err := strconv.Atoi(getEnv(key, strconv.Itoa(fallback)))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
