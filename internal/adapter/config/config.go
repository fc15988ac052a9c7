package config

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	App      *App
	Database *Database
	HTTP     *HTTP
	Auth     *Auth
	Gateway  *Gateway
	Orders   *Orders
	Notify   *Notify
	Redis    *Redis
	Tracing  *Tracing
}

const AppModeProduction = "PROD"
const AppModeDevelop = "DEV"

type App struct {
	LogLevel string `env:"LOG_LEVEL"`
	LogFile  string `env:"LOG_FILE"`
	Mode     string `env:"APP_MODE"`
}

type Database struct {
	DSN string `env:"DATABASE_URI"`
}

type HTTP struct {
	HostString string `env:"RUN_ADDRESS"`
}

const (
	TokenFormatJWT    = "jwt"
	TokenFormatPaseto = "paseto"
)

type Auth struct {
	TokenFormat string `env:"TOKEN_FORMAT"`
	TokenSecret string `env:"TOKEN_SECRET"`
}

type Gateway struct {
	SecretKey     string `env:"STRIPE_SECRET_KEY"`
	WebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`
	APIURL        string `env:"STRIPE_API_URL"`
	SuccessURL    string `env:"CHECKOUT_SUCCESS_URL"`
	CancelURL     string `env:"CHECKOUT_CANCEL_URL"`
	Currency      string `env:"GATEWAY_CURRENCY"`
}

type Orders struct {
	PricingPolicy       string `env:"PRICING_POLICY"`
	ShippingTransitions string `env:"SHIPPING_TRANSITIONS"`
	AdminEmail          string `env:"ADMIN_EMAIL"`
}

const (
	NotifyTransportLog   = "log"
	NotifyTransportSMTP  = "smtp"
	NotifyTransportAMQP  = "amqp"
	NotifyTransportKafka = "kafka"
	NotifyTransportTalks = "talks"
)

type Notify struct {
	Transport    string   `env:"NOTIFY_TRANSPORT"`
	Workers      int      `env:"NOTIFY_WORKERS"`
	Buffer       int      `env:"NOTIFY_BUFFER"`
	SMTPHost     string   `env:"SMTP_HOST"`
	SMTPPort     int      `env:"SMTP_PORT"`
	SMTPUser     string   `env:"SMTP_USER"`
	SMTPPassword string   `env:"SMTP_PASSWORD"`
	SMTPFrom     string   `env:"SMTP_FROM"`
	AMQPURL      string   `env:"AMQP_URL"`
	TalksURL     string   `env:"TALKS_URL"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
}

type Tracing struct {
	Endpoint    string `env:"OTEL_ENDPOINT"`
	ServiceName string `env:"OTEL_SERVICE_NAME"`
}

type Redis struct {
	Addr           string        `env:"REDIS_ADDR"`
	Password       string        `env:"REDIS_PASSWORD"`
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL"`
}

// NewConfig reads flags, then lets the environment (and an optional .env
// file) override them.
func NewConfig() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	app := App{}
	db := Database{}
	http := HTTP{}
	auth := Auth{}
	gateway := Gateway{}
	orders := Orders{}
	notify := Notify{}
	redis := Redis{}
	tracing := Tracing{}

	flag.StringVar(&db.DSN, "d", "", "Database string")
	flag.StringVar(&http.HostString, "a", `localhost:8080`, "HTTP server endpoint")
	flag.StringVar(&app.LogLevel, "l", `error`, "Log level")
	flag.StringVar(&app.LogFile, "log-file", "", "Log file, stderr when empty")
	flag.StringVar(&app.Mode, "m", AppModeDevelop, "PROD / DEV")
	flag.StringVar(&auth.TokenFormat, "token-format", TokenFormatJWT, "jwt / paseto")
	flag.StringVar(&gateway.APIURL, "stripe-url", "", "Payment gateway API base URL override")
	flag.StringVar(&gateway.SuccessURL, "success-url", "http://localhost:3000/checkout/success", "Checkout success redirect")
	flag.StringVar(&gateway.CancelURL, "cancel-url", "http://localhost:3000/checkout/cancel", "Checkout cancel redirect")
	flag.StringVar(&gateway.Currency, "currency", "USD", "Gateway currency, ISO 4217")
	flag.StringVar(&orders.PricingPolicy, "pricing", "client", "client / catalog")
	flag.StringVar(&orders.ShippingTransitions, "shipping", "permissive", "permissive / strict")
	flag.StringVar(&notify.Transport, "notify", NotifyTransportLog, "log / smtp / amqp / kafka / talks")
	flag.IntVar(&notify.Workers, "notify-workers", 2, "Notification workers")
	flag.IntVar(&notify.Buffer, "notify-buffer", 100, "Notification queue size")
	flag.IntVar(&notify.SMTPPort, "smtp-port", 587, "SMTP port")
	flag.StringVar(&redis.Addr, "redis", "", "Redis address, event dedup is off when empty")
	flag.DurationVar(&redis.IdempotencyTTL, "idempotency-ttl", 72*time.Hour, "How long handled webhook ids are kept")
	flag.StringVar(&tracing.Endpoint, "otel", "", "OTLP/HTTP collector host:port, spans are not exported when empty")
	flag.StringVar(&tracing.ServiceName, "service-name", "artisanmart", "Service name reported in traces")
	flag.Parse()

	for name, target := range map[string]any{
		"app":      &app,
		"database": &db,
		"http":     &http,
		"auth":     &auth,
		"gateway":  &gateway,
		"orders":   &orders,
		"notify":   &notify,
		"redis":    &redis,
		"tracing":  &tracing,
	} {
		if err := env.Parse(target); err != nil {
			return nil, fmt.Errorf("error parsing env %s config: %w", name, err)
		}
	}

	config := Config{
		App:      &app,
		Database: &db,
		HTTP:     &http,
		Auth:     &auth,
		Gateway:  &gateway,
		Orders:   &orders,
		Notify:   &notify,
		Redis:    &redis,
		Tracing:  &tracing,
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database DSN is required"))
	}
	if c.Gateway.SecretKey == "" {
		errs = append(errs, errors.New("STRIPE_SECRET_KEY is required"))
	}
	if c.Gateway.WebhookSecret == "" {
		errs = append(errs, errors.New("STRIPE_WEBHOOK_SECRET is required"))
	}
	switch c.Auth.TokenFormat {
	case TokenFormatJWT:
		if c.Auth.TokenSecret == "" {
			errs = append(errs, errors.New("TOKEN_SECRET is required for jwt tokens"))
		}
	case TokenFormatPaseto:
	default:
		errs = append(errs, fmt.Errorf("unknown token format %q", c.Auth.TokenFormat))
	}
	switch c.Notify.Transport {
	case NotifyTransportLog:
	case NotifyTransportSMTP:
		if c.Notify.SMTPHost == "" || c.Notify.SMTPFrom == "" {
			errs = append(errs, errors.New("SMTP_HOST and SMTP_FROM are required for smtp notifications"))
		}
	case NotifyTransportAMQP:
		if c.Notify.AMQPURL == "" {
			errs = append(errs, errors.New("AMQP_URL is required for amqp notifications"))
		}
	case NotifyTransportKafka:
		if len(c.Notify.KafkaBrokers) == 0 {
			errs = append(errs, errors.New("KAFKA_BROKERS is required for kafka notifications"))
		}
	case NotifyTransportTalks:
		if c.Notify.TalksURL == "" {
			errs = append(errs, errors.New("TALKS_URL is required for talks notifications"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown notification transport %q", c.Notify.Transport))
	}
	if c.Notify.Workers < 1 {
		errs = append(errs, errors.New("at least one notification worker is required"))
	}

	return errors.Join(errs...)
}
