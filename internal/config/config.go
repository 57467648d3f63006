package config

import (
	"errors"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Timezone    string `env:"APP_TIMEZONE" envDefault:"America/New_York"`
	Server      struct {
		Port                  string   `env:"PORT" envDefault:"3000"`
		ReadTimeout           int      `env:"READ_TIMEOUT" envDefault:"10"`
		WriteTimeout          int      `env:"WRITE_TIMEOUT" envDefault:"30"`
		IdleTimeout           int      `env:"IDLE_TIMEOUT" envDefault:"60"`
		ShutdownTimeout       int      `env:"SHUTDOWN_TIMEOUT" envDefault:"10"`
		ReadinessCacheSeconds int      `env:"READINESS_CACHE_SECONDS" envDefault:"60"`
		CORSAllowedOrigins    []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	} `envPrefix:"SERVER_"`
	Roster struct {
		BaseURL         string  `env:"BASE_URL" envDefault:"https://api.rosterhub.com"`
		APIToken        string  `env:"API_TOKEN,required"`
		CalendarID      string  `env:"CALENDAR_ID,required"`
		ManagerUserID   string  `env:"MANAGER_USER_ID,required"`
		RequestTimeout  int     `env:"REQUEST_TIMEOUT" envDefault:"12"`
		RetryAttempts   int     `env:"RETRY_ATTEMPTS" envDefault:"2"`
		RateLimit       float64 `env:"RATE_LIMIT" envDefault:"5"` // 每秒最多向上游发出的请求数
		FlatConcurrency int     `env:"FLAT_CONCURRENCY" envDefault:"1"`
	} `envPrefix:"ROSTER_"`
	Registry struct {
		BaseURL         string `env:"BASE_URL,required"`
		TokenWebhookURL string `env:"TOKEN_WEBHOOK_URL"`
		AccessToken     string `env:"ACCESS_TOKEN"`
		RequestTimeout  int    `env:"REQUEST_TIMEOUT" envDefault:"12"`
	} `envPrefix:"REGISTRY_"`
	Database struct {
		DSN            string `env:"DSN,required"`
		ConnectTimeout int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		QueryTimeout   int    `env:"QUERY_TIMEOUT" envDefault:"10"`
		MaxOpenConns   int    `env:"MAX_OPEN_CONNS" envDefault:"10"`
		MaxIdleConns   int    `env:"MAX_IDLE_CONNS" envDefault:"10"`
		MaxIdleTime    int    `env:"MAX_IDLE_TIME" envDefault:"60"`
	} `envPrefix:"DATABASE_"`
	Idempotency struct {
		Backend             string `env:"BACKEND" envDefault:"memory"` // memory 或 redis
		PendingTTLSeconds   int    `env:"PENDING_TTL_SECONDS" envDefault:"120"`
		CompletedTTLSeconds int    `env:"COMPLETED_TTL_SECONDS" envDefault:"600"`
	} `envPrefix:"IDEMPOTENCY_"`
	Audit struct {
		Backend       string `env:"BACKEND" envDefault:"memory"` // memory 或 postgres
		RecordTimeout int    `env:"RECORD_TIMEOUT" envDefault:"5"`
	} `envPrefix:"AUDIT_"`
	Redis struct {
		Host           string `env:"HOST" envDefault:"localhost"`
		Port           int    `env:"PORT" envDefault:"6379"`
		Password       string `env:"PASSWORD"`
		ConnectTimeout int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
	} `envPrefix:"REDIS_"`
	RabbitMQ struct {
		DSN            string `env:"DSN,required"`
		PublishTimeout int    `env:"PUBLISH_TIMEOUT" envDefault:"10"`
	} `envPrefix:"RABBITMQ_"`
	Email struct {
		OpsAddress string `env:"OPS_ADDRESS,required"`
		SMTP       struct {
			Username    string `env:"USERNAME,required"`
			Password    string `env:"PASSWORD,required"`
			Host        string `env:"HOST,required"`
			Port        int    `env:"PORT" envDefault:"465"`
			DialTimeout int    `env:"DIAL_TIMEOUT" envDefault:"10"`
		} `envPrefix:"SMTP_"`
	} `envPrefix:"EMAIL_"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		aggErr := env.AggregateError{}
		if ok := errors.As(err, &aggErr); ok {
			// 只返回第一个错误使得日志更清晰
			return nil, aggErr.Errors[0]
		}
	}

	return cfg, nil
}
