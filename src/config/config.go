package config

import (
	"fmt"
	"log"
	"sync"

	"github.com/kelseyhightower/envconfig"
)

const TIME_PARSE_FORMAT = "2006-01-02 15:04:05 -07:00"

type Config struct {
	APIEnv string `envconfig:"API_ENV" default:"local"`
	Port   string `envconfig:"PORT" default:"9090"`

	AppHost string `envconfig:"APP_HOST" default:"http://localhost:3000"`

	DatabaseHost     string `envconfig:"DATABASE_HOST" default:"localhost"`
	DatabasePort     string `envconfig:"DATABASE_PORT" default:"5432"`
	DatabaseUser     string `envconfig:"DATABASE_USER" default:"postgres"`
	DatabasePassword string `envconfig:"DATABASE_PASSWORD"`
	DatabaseName     string `envconfig:"DATABASE_NAME" default:"cwsdb"`
	DatabaseSSLMode  string `envconfig:"DATABASE_SSLMODE" default:"disable"`
	DatabaseTimezone string `envconfig:"DATABASE_TIMEZONE" default:"Asia/Kolkata"`

	// Required; there is no fallback for the signing secret.
	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`

	RedisHost string `envconfig:"REDIS_HOST" default:"redis://localhost:6379"`

	StripeSecretKey     string `envconfig:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `envconfig:"STRIPE_WEBHOOK_SECRET"`

	SMTPHost     string `envconfig:"SMTP_HOST"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername string `envconfig:"SMTP_USERNAME"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
	MailFrom     string `envconfig:"MAIL_FROM" default:"no-reply@cws.local"`
	MailFromName string `envconfig:"MAIL_FROM_NAME" default:"CWS Bookings"`

	Currency      string `envconfig:"CURRENCY" default:"inr"`
	MetricsPrefix string `envconfig:"METRICS_PREFIX" default:"cws"`
	TempDir       string `envconfig:"TEMP_DIR" default:"/tmp"`
}

var (
	cfg  *Config
	once sync.Once
)

// Load populates the process configuration from the environment. Missing
// required values abort startup.
func Load() *Config {
	once.Do(func() {
		c := &Config{}
		if err := envconfig.Process("", c); err != nil {
			log.Fatalf("Error loading configuration: %s\n", err.Error())
		}
		cfg = c
	})
	return cfg
}

// Get returns the loaded configuration; it panics when Load was never called.
func Get() *Config {
	if cfg == nil {
		return Load()
	}
	return cfg
}

// NewConfig replaces the configuration, for tests.
func NewConfig(c *Config) {
	cfg = c
}

func GetDSN() string {
	c := Get()
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		c.DatabaseHost, c.DatabaseUser, c.DatabasePassword, c.DatabaseName,
		c.DatabasePort, c.DatabaseSSLMode, c.DatabaseTimezone,
	)
}
