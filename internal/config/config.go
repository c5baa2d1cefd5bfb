package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the process configuration, read from the environment with an
// optional .env overlay. An empty PostgresURL, RedisAddr or NATSURL
// disables that collaborator.
type Config struct {
	HTTPAddr string
	GRPCAddr string

	PostgresURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	NATSURL       string

	Symbols     []string
	SnapshotTTL time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: load .env: %v", err)
	}
	return &Config{
		HTTPAddr:      getEnv("HTTP_ADDR", ":8080"),
		GRPCAddr:      getEnv("GRPC_ADDR", ":9090"),
		PostgresURL:   os.Getenv("POSTGRES_URL"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		NATSURL:       os.Getenv("NATS_URL"),
		Symbols:       splitList(getEnv("SYMBOLS", "BTC/USDT,ETH/USDT")),
		SnapshotTTL:   getEnvDuration("SNAPSHOT_CACHE_TTL", time.Second),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("config: invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("config: invalid %s=%q, using %s", key, v, fallback)
		return fallback
	}
	return d
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	res := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			res = append(res, s)
		}
	}
	return res
}
