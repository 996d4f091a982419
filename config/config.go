package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Config holds the application's configuration values.
type Config struct {
	AppName string `json:"appname"`
	AppEnv  string `json:"appenv"`
	AppPort uint16 `json:"appport"`
	GinMode string `json:"ginmode"`

	DBDriver string `json:"dbdriver"`
	DBHost   string `json:"dbhost"`
	DBPort   uint16 `json:"dbport"`
	DBName   string `json:"dbname"`
	DBUSER   string `json:"dbuser"`
	DBPass   string `json:"dbpass"`

	SMTPHost     string `json:"smtp_host"`
	SMTPPort     int    `json:"smtp_port"`
	SMTPUser     string `json:"smtp_user"`
	SMTPPassword string `json:"-"`
	SMTPFrom     string `json:"smtp_from"`
	MailWorkers  int    `json:"mail_workers"`

	// Redis is optional. Sessions, captchas and rate limits fall back to the
	// database or process memory without it.
	RedisEnabled  bool   `json:"redis_enabled"`
	RedisAddr     string `json:"redis_addr"`
	RedisPassword string `json:"-"`
	RedisDB       int    `json:"redis_db"`

	CaptchaTTL time.Duration `json:"captcha_ttl"`
	// StaffPasswordlessLogin lets doctors and staff who finished their first
	// login sign in with username and captcha only.
	StaffPasswordlessLogin bool `json:"staff_passwordless_login"`
}

var config *Config
var once sync.Once

// LoadConfig loads the environment variables from a .env file, and returns a singleton Config instance.
func LoadConfig() *Config {
	once.Do(func() {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Msg("could not load .env file")
		}

		appPort, _ := strconv.ParseUint(os.Getenv("APPPORT"), 10, 16)
		dbPort, _ := strconv.ParseUint(os.Getenv("DBPORT"), 10, 16)

		config = &Config{
			AppName: getEnv("APPNAME", "Hospital Management System"),
			AppEnv:  os.Getenv("APPENV"),
			AppPort: uint16(appPort),
			GinMode: getEnv("GINMODE", "debug"),

			DBDriver: strings.ToLower(getEnv("DBDRIVER", "mysql")),
			DBHost:   os.Getenv("DBHOST"),
			DBPort:   uint16(dbPort),
			DBName:   os.Getenv("DBNAME"),
			DBUSER:   os.Getenv("DBUSER"),
			DBPass:   os.Getenv("DBPASS"),

			SMTPHost:     os.Getenv("SMTP_HOST"),
			SMTPPort:     getEnvInt("SMTP_PORT", 587),
			SMTPUser:     os.Getenv("SMTP_USER"),
			SMTPPassword: os.Getenv("SMTP_PASSWORD"),
			SMTPFrom:     getEnv("SMTP_FROM", os.Getenv("SMTP_USER")),
			MailWorkers:  getEnvInt("MAIL_WORKERS", 2),

			RedisEnabled:  getEnvBool("REDIS_ENABLED", false),
			RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: os.Getenv("REDIS_PASSWORD"),
			RedisDB:       getEnvInt("REDIS_DB", 0),

			CaptchaTTL:             getEnvDuration("CAPTCHA_TTL", 5*time.Minute),
			StaffPasswordlessLogin: getEnvBool("STAFF_PASSWORDLESS_LOGIN", false),
		}
		if config.AppPort == 0 {
			config.AppPort = 8080
		}
	})
	return config
}

// gormConfig turns driver errors such as unique violations into gorm's
// sentinel errors.
func gormConfig() *gorm.Config {
	return &gorm.Config{TranslateError: true}
}

// ConnectDatabase opens the database selected by DBDRIVER. In the test
// environment it always returns a fresh in-memory SQLite database.
func ConnectDatabase() (*gorm.DB, error) {
	cfg := LoadConfig()
	if os.Getenv("APPENV") == "test" || cfg.AppEnv == "test" {
		dsn := fmt.Sprintf("file:hospital_%d?mode=memory&cache=shared", time.Now().UnixNano())
		return gorm.Open(sqlite.Open(dsn), gormConfig())
	}

	switch cfg.DBDriver {
	case "postgres", "postgresql":
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
			cfg.DBHost, cfg.DBPort, cfg.DBUSER, cfg.DBPass, cfg.DBName)
		return gorm.Open(postgres.Open(dsn), gormConfig())
	case "mysql", "":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true", cfg.DBUSER, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		return gorm.Open(mysql.Open(dsn), gormConfig())
	default:
		return nil, fmt.Errorf("unsupported DBDRIVER %q", cfg.DBDriver)
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return fallback
}

// ResetConfigForTest drops the cached singleton so the next LoadConfig call
// re-reads the environment.
func ResetConfigForTest() {
	config = nil
	once = sync.Once{}
}
