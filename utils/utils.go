package utils

import (
	"crypto/rand"
	"database/sql"
	"fmt"
	"os"
	"strconv"

	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var db *sql.DB

func Config(key string) string {
	if os.Getenv("USE_DOTENV") != "off" {
		_ = godotenv.Load(".env")
	}
	return os.Getenv(key)
}

// InitLogger configures logrus from LOG_DESTINATIONS. "file" appends to
// billing.log, anything else logs to stdout.
func InitLogger(destination string) {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if destination == "file" {
		f, err := os.OpenFile("billing.log", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			logrus.Warn("could not open log file, falling back to stdout: " + err.Error())
			return
		}
		logrus.SetOutput(f)
	}
	if level, err := logrus.ParseLevel(Config("LOG_LEVEL")); err == nil {
		logrus.SetLevel(level)
	}
}

func GetDBConnection() (*sql.DB, error) {
	if db != nil {
		return db, nil
	}
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		Config("DB_USER"), Config("DB_PASS"), Config("DB_HOST"), Config("DB_PORT"), Config("DB_NAME"))
	var err error
	db, err = sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	return db, nil
}

func NewRedisClient() (*redis.Client, error) {
	opt, err := redis.ParseURL(Config("REDIS_URL"))
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opt), nil
}

// NegativeBalanceCeiling reads how far below zero a prepaid balance may
// go before calls are blocked. Defaults to 0 (hard floor at zero).
func NegativeBalanceCeiling() int64 {
	raw := Config("NEGATIVE_BALANCE_CEILING_CENTS")
	if raw == "" {
		return 0
	}
	ceiling, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || ceiling < 0 {
		logrus.Warn(fmt.Sprintf("NEGATIVE_BALANCE_CEILING_CENTS is set incorrectly (%q), using 0", raw))
		return 0
	}
	return ceiling
}

func CreateRunConfirmationNumber() (string, error) {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return fmt.Sprintf("RUN-%08X", b[:4]), nil
}
