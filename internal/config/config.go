package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the runtime settings of the auction engine.
type Config struct {
	Addr           string        // HTTP listen address
	GinMode        string        // gin mode: debug, release or test
	LogLevel       string        // logrus level
	LockTimeout    time.Duration // per-auction critical section acquire bound
	SchedulerSlack time.Duration // max idle between scheduler checks
	AMQPURL        string        // RabbitMQ URL; empty disables the broker
	AMQPExchange   string        // settlement topic exchange
}

// Load reads configuration from the environment, with a best-effort .env file.
func Load() Config {
	godotenv.Load()

	return Config{
		Addr:           addr(),
		GinMode:        getEnv("GIN_MODE", "release"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LockTimeout:    getDuration("LOCK_TIMEOUT", 2*time.Second),
		SchedulerSlack: getDuration("SCHEDULER_SLACK", 3*time.Second),
		AMQPURL:        getEnv("AMQP_URL", ""),
		AMQPExchange:   getEnv("AMQP_EXCHANGE", "auction_events"),
	}
}

func addr() string {
	if p := os.Getenv("PORT"); p != "" {
		return fmt.Sprintf(":%s", p)
	}
	return ":8080"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
