package config

import (
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type Config struct {
	// DBDriver selects the gorm driver: postgres or sqlite.
	DBDriver string
	// DBDSN is the postgres DSN or the sqlite file path.
	DBDSN string

	RedisAddr    string
	KafkaBrokers string
	KafkaTopic   string

	// Compression names the codec for change-log payload snapshots.
	Compression string

	// ChangeLogRetention bounds how long audit entries are kept.
	ChangeLogRetention time.Duration
	// ReaperRetention bounds how long discarded revisions linger before erasure.
	ReaperRetention time.Duration
}

func LoadConfig() *Config {
	return &Config{
		DBDriver:           env("DB_DRIVER", "sqlite"),
		DBDSN:              env("DB_DSN", ".db/revisable.db"),
		RedisAddr:          env("REDIS_ADDR", "localhost:6379"),
		KafkaBrokers:       env("KAFKA_BROKERS", "localhost:9092"),
		KafkaTopic:         env("KAFKA_TOPIC", ""),
		Compression:        env("CHANGE_LOG_COMPRESSION", "gzip"),
		ChangeLogRetention: duration("CHANGE_LOG_RETENTION", 90*24*time.Hour),
		ReaperRetention:    duration("REAPER_RETENTION", 7*24*time.Hour),
	}
}

func GetDb(cnf *Config) *gorm.DB {
	var dialector gorm.Dialector
	switch cnf.DBDriver {
	case "postgres":
		dialector = postgres.Open(cnf.DBDSN)
	default:
		dialector = sqlite.Open(cnf.DBDSN)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		logrus.Fatalf("failed to connect to database: %v", err)
	}

	return db
}

func env(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func duration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		logrus.Warnf("invalid duration for %s: %v, using default", key, err)
		return fallback
	}

	return d
}
