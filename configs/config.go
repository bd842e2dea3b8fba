package config

import (
	"log"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type R2 struct {
	AccountID  string `env:"R2_ACCOUNT_ID"`
	AccessKey  string `env:"R2_ACCESS_KEY"`
	SecretKey  string `env:"R2_SECRET_KEY"`
	BucketName string `env:"R2_BUCKET_NAME"`
	PublicURL  string `env:"R2_PUBLIC_URL"`
}

type Graph struct {
	BaseURL    string `env:"GRAPH_BASE_URL" env-default:"https://graph.facebook.com"`
	APIVersion string `env:"GRAPH_API_VERSION" env-default:"v21.0"`
}

// Publish bounds the container polling loop.
type Publish struct {
	PollInterval       time.Duration `env:"PUBLISH_POLL_INTERVAL" env-default:"2s"`
	ImageAttempts      int           `env:"PUBLISH_IMAGE_ATTEMPTS" env-default:"20"`
	VideoAttempts      int           `env:"PUBLISH_VIDEO_ATTEMPTS" env-default:"60"`
	VideoGraceAttempts int           `env:"PUBLISH_VIDEO_GRACE_ATTEMPTS" env-default:"3"`
	VideoGraceBackoff  time.Duration `env:"PUBLISH_VIDEO_GRACE_BACKOFF" env-default:"10s"`
}

type Queue struct {
	ProbeTimeout  time.Duration `env:"QUEUE_PROBE_TIMEOUT" env-default:"5s"`
	Concurrency   int           `env:"WORKER_CONCURRENCY" env-default:"10"`
	WorkerEnabled bool          `env:"WORKER_ENABLED" env-default:"true"`
}

type Recurrence struct {
	Interval time.Duration `env:"RECURRENCE_INTERVAL" env-default:"10m"`
	Timezone string        `env:"RECURRENCE_TIMEZONE" env-default:"UTC"`
}

type Cron struct {
	Secret string `env:"CRON_SECRET"`
	// Zero disables the in-process sweep; the HTTP endpoint stays available.
	FallbackInterval time.Duration `env:"CRON_FALLBACK_INTERVAL"`
	// JobTimeout bounds one in-process sweep or recurrence run, independent of how often they tick.
	JobTimeout time.Duration `env:"JOB_TIMEOUT" env-default:"15m"`
}

type Config struct {
	HTTPAddr           string `env:"HTTP_ADDR" env-default:":3000"`
	LogLevel           string `env:"LOG_LEVEL" env-default:"info"`
	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	PostgresURI        string `env:"POSTGRES_URI"`
	RedisURI           string `env:"REDIS_URI"`
	FrontendURL        string `env:"FRONTEND_URL" env-default:"http://localhost:5173"`
	SecretKey          string `env:"SECRET_KEY"`
	CookieName         string `env:"COOKIE_NAME" env-default:"postflow_session"`

	R2         R2
	Graph      Graph
	Publish    Publish
	Queue      Queue
	Recurrence Recurrence
	Cron       Cron
}

func LoadConfig() *Config {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		log.Fatalf("Failed to read configuration: %v", err)
	}
	return &cfg
}

// Location resolves the recurrence timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Recurrence.Timezone)
	if err != nil {
		log.Printf("Unknown RECURRENCE_TIMEZONE %q, using UTC", c.Recurrence.Timezone)
		return time.UTC
	}
	return loc
}
