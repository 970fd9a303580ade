// Package config предоставялет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string `yaml:"migrations_path" env-default:"./migrations"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	RabbitMQ                `yaml:"rabbitmq"`
	SMTP                    `yaml:"smtp"`
	Payment                 `yaml:"payment"`
	Push                    `yaml:"push"`
	Scheduler               `yaml:"scheduler"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"15s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
	// PublicRPS ограничение запросов в секунду с одного IP для открытых ручек.
	PublicRPS   float64 `yaml:"public_rps" env-default:"1"`
	PublicBurst int     `yaml:"public_burst" env-default:"5"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env:"REDIS_ADDRESS"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries" env-default:"3"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env-default:"5s"`
	TimeoutRedis time.Duration `yaml:"timeoutredis" env-default:"3s"`
}

// JWTToken структура для работы с jwt-токеном
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"24h"`
}

// RabbitMQ настройки подключения к брокеру сообщений.
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"url" env:"RABBITMQ_URL"`
	RabbitMQMaxRetries int           `yaml:"max_retries" env-default:"5"`
	RabbitMQRetryDelay time.Duration `yaml:"retry_delay" env-default:"3s"`
}

// SMTP настройки почтового сервера для исходящих писем.
type SMTP struct {
	SMTPHost string `yaml:"host" env:"SMTP_HOST"`
	SMTPPort string `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	SMTPUser string `yaml:"user" env:"SMTP_USER"`
	SMTPPass string `yaml:"pass" env:"SMTP_PASS"`
}

// Payment настройки платёжного шлюза NOWPayments.
type Payment struct {
	PaymentAPIURL    string        `yaml:"api_url" env-default:"https://api.nowpayments.io/v1"`
	PaymentAPIKey    string        `yaml:"api_key" env:"NOWPAYMENTS_API_KEY"`
	IPNSecret        string        `yaml:"ipn_secret" env:"NOWPAYMENTS_IPN_SECRET"`
	CallbackURL      string        `yaml:"callback_url"`
	SuccessURL       string        `yaml:"success_url"`
	CancelURL        string        `yaml:"cancel_url"`
	OrderPrefix      string        `yaml:"order_prefix" env-default:"golden_pips"`
	PayCurrency      string        `yaml:"pay_currency" env-default:"usdtbsc"`
	PaymentTimeout   time.Duration `yaml:"timeout" env-default:"10s"`
	PaymentAttempts  int           `yaml:"attempts_per_window" env-default:"3"`
	RateLimitWindow  time.Duration `yaml:"rate_limit_window" env-default:"10m"`
	SubscriptionDays int           `yaml:"subscription_days" env-default:"30"`
}

// Push настройки транспорта push-уведомлений (FCM).
type Push struct {
	PushAPIURL      string        `yaml:"api_url" env-default:"https://fcm.googleapis.com/fcm/send"`
	PushServerKey   string        `yaml:"server_key" env:"FCM_SERVER_KEY"`
	PushIcon        string        `yaml:"icon" env-default:"/icons/icon-192x192.png"`
	PushBadge       string        `yaml:"badge" env-default:"/icons/badge-72x72.png"`
	PushClickAction string        `yaml:"click_action" env-default:"/"`
	PushTimeout     time.Duration `yaml:"timeout" env-default:"10s"`
}

// Scheduler настройки периодических задач.
type Scheduler struct {
	ExpirySpec        string        `yaml:"expiry_spec" env-default:"@every 1h"`
	PendingPaymentTTL time.Duration `yaml:"pending_payment_ttl" env-default:"24h"`
}

// MustLoad функция для загрузки конфига, возвращает конфиг, сгенерированный из config/config.go
func MustLoad() *Config {
	// .env необязателен, переменные окружения могут прийти из оркестратора
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

// Load читает конфиг по указанному пути и накладывает переменные окружения.
func Load(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("file: %s - does not exist", configPath)
	}
	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validateOrderPrefix(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validateOrderPrefix требует ровно два непустых сегмента через "_":
// UID пользователя в order_id читается из третьего сегмента.
func (c *Config) validateOrderPrefix() error {
	parts := strings.Split(c.OrderPrefix, "_")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return fmt.Errorf("payment.order_prefix %q: want exactly two segments joined by \"_\"", c.OrderPrefix)
	}
	return nil
}

// PaymentConfigured сообщает, заданы ли ключи платёжного шлюза.
func (c *Config) PaymentConfigured() bool {
	return c.PaymentAPIKey != ""
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  DB: %d\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"Payment:\n"+
			"  APIURL: %s\n"+
			"  Configured: %t\n"+
			"Push:\n"+
			"  APIURL: %s\n",
		c.Env,
		c.AddressRedis,
		c.DB,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.PaymentAPIURL,
		c.PaymentConfigured(),
		c.PushAPIURL,
	)
}
