package config

import (
	"flag"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"

	NotifierRabbitMQ = "rabbitmq"
	NotifierSMTP     = "smtp"
	NotifierLog      = "log"

	StateStoreRedis  = "redis"
	StateStoreMemory = "memory"
)

type Config struct {
	Env        string `yaml:"env" env:"ENV" env-default:"local"`
	HTTPServer `yaml:"http_server"`
	Storage    `yaml:"storage"`
	Postgres   `yaml:"postgres"`
	Redis      `yaml:"redis"`
	Tokens     `yaml:"tokens"`
	OTP        `yaml:"otp"`
	Signup     `yaml:"signup"`
	Notifier   `yaml:"notifier"`
	RabbitMQ   `yaml:"rabbitmq"`
	SMTP       `yaml:"smtp"`
	Google     `yaml:"google"`
	OAuth      `yaml:"oauth"`
	CORS       `yaml:"cors"`
}

type HTTPServer struct {
	Address     string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"localhost:5000"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

type Storage struct {
	Driver string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"postgres"`
}

type Postgres struct {
	Host     string `yaml:"host" env:"POSTGRES_HOST" env-default:"postgres"`
	Port     int    `yaml:"port" env:"POSTGRES_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"POSTGRES_USER"`
	Password string `yaml:"password" env:"POSTGRES_PASSWORD"`
	DBName   string `yaml:"dbname" env:"POSTGRES_DB"`
	SSLMode  string `yaml:"sslmode" env:"POSTGRES_SSLMODE" env-default:"disable"`
}

type Redis struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR" env-default:"redis:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

type Tokens struct {
	SessionSecret string        `yaml:"session_secret" env:"JWT_SECRET" env-required:"true"`
	SessionTTL    time.Duration `yaml:"session_ttl" env-default:"72h"`
}

type OTP struct {
	TTL time.Duration `yaml:"ttl" env-default:"10m"`
}

type Signup struct {
	PurgeInterval time.Duration `yaml:"purge_interval" env:"SIGNUP_PURGE_INTERVAL" env-default:"0s"`
	PurgeGrace    time.Duration `yaml:"purge_grace" env-default:"24h"`
}

type Notifier struct {
	Driver      string `yaml:"driver" env:"NOTIFIER_DRIVER" env-default:"rabbitmq"`
	SenderName  string `yaml:"sender_name" env:"SENDER_NAME" env-default:"NoteHD"`
	SenderEmail string `yaml:"sender_email" env:"SENDER_EMAIL"`
}

type RabbitMQ struct {
	URL       string `yaml:"url" env:"RABBITMQ_URL"`
	QueueName string `yaml:"queue_name" env:"RABBITMQ_QUEUE" env-default:"otp_emails"`
}

type SMTP struct {
	Host     string `yaml:"host" env:"EMAIL_HOST"`
	Port     int    `yaml:"port" env:"EMAIL_PORT" env-default:"587"`
	Username string `yaml:"username" env:"EMAIL_USER"`
	Password string `yaml:"password" env:"EMAIL_PASS"`
}

type Google struct {
	ClientID     string `yaml:"client_id" env:"GOOGLE_CLIENT_ID"`
	ClientSecret string `yaml:"client_secret" env:"GOOGLE_CLIENT_SECRET"`
	RedirectURL  string `yaml:"redirect_url" env:"GOOGLE_REDIRECT_URL"`
	Issuer       string `yaml:"issuer" env-default:"https://accounts.google.com"`
}

type OAuth struct {
	StateStore string        `yaml:"state_store" env:"OAUTH_STATE_STORE" env-default:"redis"`
	StateTTL   time.Duration `yaml:"state_ttl" env-default:"5m"`
	SuccessURL string        `yaml:"success_url" env:"OAUTH_SUCCESS_URL" env-default:"http://localhost:5173/dashboard"`
	FailureURL string        `yaml:"failure_url" env:"OAUTH_FAILURE_URL" env-default:"http://localhost:5173/signin"`
}

type CORS struct {
	AllowedOrigins []string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-separator:"," env-default:"*"`
}

// GoogleEnabled reports whether enough credentials are present to register the Google routes.
func (c *Config) GoogleEnabled() bool {
	return c.Google.ClientID != "" && c.Google.ClientSecret != "" && c.Google.RedirectURL != ""
}

// * MustLoad reads the YAML file and overlays environment variables, panicking on any error
func MustLoad(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("Config file does not exist: " + configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("Failed to read config: " + err.Error())
	}

	return &cfg
}

// * FetchConfigPath resolves the config location: -config flag first, CONFIG_PATH env second
func FetchConfigPath() string {
	var res string

	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}

	if res == "" {
		res = "./config/config.yaml"
	}

	return res
}

type MailSender struct {
	Env         string `env:"ENV" env-default:"local"`
	RabbitMQURL string `env:"RABBITMQ_URL" env-required:"true"`
	QueueName   string `env:"RABBITMQ_QUEUE" env-default:"otp_emails"`
	Prefetch    int    `env:"RABBITMQ_PREFETCH" env-default:"10"`
	SMTP
}

// * MustLoadMailSender reads the worker settings from the environment only
func MustLoadMailSender() *MailSender {
	var cfg MailSender

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		panic("Failed to read mail sender config: " + err.Error())
	}

	return &cfg
}
