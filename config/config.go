package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App        AppConfig
	DB         DBConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Queue      QueueConfig
	Monitor    MonitorConfig
	Realtime   RealtimeConfig
	Dispatcher DispatcherConfig
	RateLimit  RateLimitConfig
	FCM        FCMConfig
}

type AppConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	TimeZone string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
}

type QueueConfig struct {
	PollInterval time.Duration
	BatchSize    int
}

// MonitorConfig holds the wait-time SLA for every monitored stage
type MonitorConfig struct {
	BedAssignmentDelay time.Duration
	BedDelay           time.Duration
	AcupunctureDelay   time.Duration
	NeedleRemovalDelay time.Duration
	GetMedicineDelay   time.Duration
}

type RealtimeConfig struct {
	PageSize int
}

type DispatcherConfig struct {
	MaxGoroutines int
	TaskTimeout   time.Duration
}

type RateLimitConfig struct {
	RPS   float64
	Burst int
}

type FCMConfig struct {
	Enabled         bool
	CredentialsFile string
}

func (c *Config) IsDev() bool {
	return c.App.Env == "development"
}

func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("DB_TIMEZONE", "Asia/Taipei")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("QUEUE_POLL_INTERVAL", "1s")
	v.SetDefault("QUEUE_BATCH_SIZE", 100)
	v.SetDefault("MONITOR_BED_ASSIGNMENT_DELAY", "60m")
	v.SetDefault("MONITOR_BED_DELAY", "30m")
	v.SetDefault("MONITOR_ACUPUNCTURE_DELAY", "30m")
	v.SetDefault("MONITOR_NEEDLE_REMOVAL_DELAY", "30m")
	v.SetDefault("MONITOR_GET_MEDICINE_DELAY", "60m")
	v.SetDefault("REALTIME_PAGE_SIZE", 20)
	v.SetDefault("DISPATCHER_MAX_GOROUTINES", 32)
	v.SetDefault("DISPATCHER_TASK_TIMEOUT", "10s")
	v.SetDefault("RATE_LIMIT_RPS", 20)
	v.SetDefault("RATE_LIMIT_BURST", 40)
	v.SetDefault("FCM_ENABLED", false)

	// .env is optional; environment variables alone are enough
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	config := &Config{
		App: AppConfig{
			Port:           v.GetString("APP_PORT"),
			Env:            v.GetString("APP_ENV"),
			LogLevel:       v.GetString("LOG_LEVEL"),
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		DB: DBConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			Name:     v.GetString("DB_NAME"),
			TimeZone: v.GetString("DB_TIMEZONE"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("JWT_SECRET"),
		},
		Queue: QueueConfig{
			PollInterval: v.GetDuration("QUEUE_POLL_INTERVAL"),
			BatchSize:    v.GetInt("QUEUE_BATCH_SIZE"),
		},
		Monitor: MonitorConfig{
			BedAssignmentDelay: v.GetDuration("MONITOR_BED_ASSIGNMENT_DELAY"),
			BedDelay:           v.GetDuration("MONITOR_BED_DELAY"),
			AcupunctureDelay:   v.GetDuration("MONITOR_ACUPUNCTURE_DELAY"),
			NeedleRemovalDelay: v.GetDuration("MONITOR_NEEDLE_REMOVAL_DELAY"),
			GetMedicineDelay:   v.GetDuration("MONITOR_GET_MEDICINE_DELAY"),
		},
		Realtime: RealtimeConfig{
			PageSize: v.GetInt("REALTIME_PAGE_SIZE"),
		},
		Dispatcher: DispatcherConfig{
			MaxGoroutines: v.GetInt("DISPATCHER_MAX_GOROUTINES"),
			TaskTimeout:   v.GetDuration("DISPATCHER_TASK_TIMEOUT"),
		},
		RateLimit: RateLimitConfig{
			RPS:   v.GetFloat64("RATE_LIMIT_RPS"),
			Burst: v.GetInt("RATE_LIMIT_BURST"),
		},
		FCM: FCMConfig{
			Enabled:         v.GetBool("FCM_ENABLED"),
			CredentialsFile: v.GetString("FCM_CREDENTIALS_FILE"),
		},
	}

	return config, nil
}

// splitList reads a comma separated env value
func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
