package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env        string `yaml:"env" env:"ENV" env-default:"local"`
	HTTPServer `yaml:"http_server"`
	Database   `yaml:"database"`
	Redis      `yaml:"redis"`
	Payment    `yaml:"payment"`
	Mail       `yaml:"mail"`
	Scheduler  `yaml:"scheduler"`
	Retry      `yaml:"retry"`
}

type HTTPServer struct {
	Address     string        `yaml:"address" env-default:"localhost:8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

type Database struct {
	Host     string `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"DB_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"DB_USER" env-default:"postgres"`
	Password string `yaml:"password" env:"DB_PASSWORD"`
	DBName   string `yaml:"dbname" env:"DB_NAME" env-default:"event_ticketing"`
	SSLMode  string `yaml:"sslmode" env:"DB_SSLMODE" env-default:"disable"`
	Migrate  bool   `yaml:"migrate" env-default:"true"`
}

type Redis struct {
	Address   string `yaml:"address" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password  string `yaml:"password" env:"REDIS_PASSWORD"`
	DB        int    `yaml:"db" env-default:"0"`
	KeyPrefix string `yaml:"key_prefix" env-default:"tickets:"`
}

type Payment struct {
	APIKey             string        `yaml:"api_key" env:"PAYMENT_API_KEY"`
	BaseURL            string        `yaml:"base_url" env-default:"https://api.stripe.com"`
	WebhookSecret      string        `yaml:"webhook_secret" env:"PAYMENT_WEBHOOK_SECRET" env-required:"true"`
	SignatureHeader    string        `yaml:"signature_header" env-default:"Stripe-Signature"`
	SignatureTolerance time.Duration `yaml:"signature_tolerance" env-default:"5m"`
	RequestTimeout     time.Duration `yaml:"request_timeout" env-default:"10s"`
	SuccessURL         string        `yaml:"success_url" env-default:"/registration/success"`
	ServerErrorURL     string        `yaml:"server_error_url" env-default:"/registration/server-error"`
	EmailErrorURL      string        `yaml:"email_error_url" env-default:"/registration/email-error"`
	SoldOutURL         string        `yaml:"sold_out_url" env-default:"/registration/sold-out"`
}

type Mail struct {
	// Driver is "smtp", or "log" to write messages to the log.
	Driver   string `yaml:"driver" env:"MAIL_DRIVER" env-default:"smtp"`
	Host     string `yaml:"host" env:"SMTP_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	Username string `yaml:"username" env:"SMTP_USERNAME"`
	Password string `yaml:"password" env:"SMTP_PASSWORD"`
	From     string `yaml:"from" env-default:"no-reply@example.com"`
	FromName string `yaml:"from_name" env-default:"Events"`
	// Timeout bounds a single delivery, dial included.
	Timeout time.Duration `yaml:"timeout" env-default:"30s"`
}

type Scheduler struct {
	ReminderLead   time.Duration `yaml:"reminder_lead" env-default:"24h"`
	WindowStart    time.Duration `yaml:"window_start" env-default:"23h"`
	WindowEnd      time.Duration `yaml:"window_end" env-default:"25h"`
	ScanInterval   time.Duration `yaml:"scan_interval" env-default:"1h"`
	ScanTimeout    time.Duration `yaml:"scan_timeout" env-default:"5m"`
	EventTimeout   time.Duration `yaml:"event_timeout" env-default:"30s"`
	Concurrency    int           `yaml:"concurrency" env-default:"4"`
	WorkerInterval time.Duration `yaml:"worker_interval" env-default:"15s"`
	WorkerBatch    int           `yaml:"worker_batch" env-default:"50"`
	MaxAttempts    int           `yaml:"max_attempts" env-default:"3"`
	RetryBackoff   time.Duration `yaml:"retry_backoff" env-default:"5m"`
	CronSecret     string        `yaml:"cron_secret" env:"CRON_SECRET" env-required:"true"`
}

type Retry struct {
	Attempts int           `yaml:"attempts" env-default:"3"`
	Delay    time.Duration `yaml:"delay" env-default:"1s"`
}

func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("config file does not exist: %s", configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}

	return &cfg
}
