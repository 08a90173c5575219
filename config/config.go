package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Env    string       `mapstructure:"env" validate:"oneof=development production staging test"`
	Port   string       `mapstructure:"port" validate:"required,numeric"`
	DB     DBConfig     `mapstructure:"db"`
	Auth   AuthConfig   `mapstructure:"auth"`
	CORS   CORSConfig   `mapstructure:"cors"`
	Redis  RedisConfig  `mapstructure:"redis"`
	Study  StudyConfig  `mapstructure:"study"`
	Notify NotifyConfig `mapstructure:"notify"`

	// DotenvLoaded is set when a .env file was read.
	DotenvLoaded bool `mapstructure:"-"`
}

type DBConfig struct {
	Driver string `mapstructure:"driver" validate:"oneof=postgres sqlite"`
	URL    string `mapstructure:"url" validate:"required"`
}

type AuthConfig struct {
	Secret     string        `mapstructure:"secret" validate:"required"`
	Issuer     string        `mapstructure:"issuer" validate:"required"`
	Audience   string        `mapstructure:"audience" validate:"required"`
	CookieName string        `mapstructure:"cookie_name" validate:"required"`
	ClockSkew  time.Duration `mapstructure:"clock_skew" validate:"min=0"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins" validate:"min=1,dive,required"`
}

type RedisConfig struct {
	Addr string        `mapstructure:"addr"`
	TTL  time.Duration `mapstructure:"ttl" validate:"min=0"`
}

type StudyConfig struct {
	WriteTimeout       time.Duration `mapstructure:"write_timeout" validate:"min=1"`
	MatchFeedbackDelay time.Duration `mapstructure:"match_feedback_delay" validate:"min=0"`
	IdleTTL            time.Duration `mapstructure:"idle_ttl" validate:"min=1"`
	SweepInterval      time.Duration `mapstructure:"sweep_interval" validate:"min=1"`
	QueueSize          int           `mapstructure:"queue_size" validate:"min=1,max=100000"`
	PersistTimeout     time.Duration `mapstructure:"persist_timeout" validate:"min=1"`
}

type NotifyConfig struct {
	WebhookURL      string        `mapstructure:"webhook_url" validate:"omitempty,url"`
	PushPermission  string        `mapstructure:"push_permission" validate:"oneof=granted denied default"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" validate:"min=1"`
	DefaultTTL      time.Duration `mapstructure:"default_ttl" validate:"min=0"`
	StreamBuffer    int           `mapstructure:"stream_buffer" validate:"min=1,max=1024"`
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

var envBindings = map[string]string{
	"env":                        "ENV",
	"port":                       "PORT",
	"db.driver":                  "DB_DRIVER",
	"db.url":                     "DB_URL",
	"auth.secret":                "JWT_SECRET_KEY",
	"auth.issuer":                "AUTH_ISSUER",
	"auth.audience":              "AUTH_AUDIENCE",
	"auth.cookie_name":           "AUTH_COOKIE_NAME",
	"auth.clock_skew":            "AUTH_CLOCK_SKEW",
	"cors.allowed_origins":       "ALLOWED_ORIGINS",
	"redis.addr":                 "REDIS_ADDR",
	"redis.ttl":                  "REDIS_TTL",
	"study.write_timeout":        "STUDY_WRITE_TIMEOUT",
	"study.match_feedback_delay": "STUDY_MATCH_FEEDBACK_DELAY",
	"study.idle_ttl":             "STUDY_IDLE_TTL",
	"study.sweep_interval":       "STUDY_SWEEP_INTERVAL",
	"study.queue_size":           "STUDY_QUEUE_SIZE",
	"study.persist_timeout":      "STUDY_PERSIST_TIMEOUT",
	"notify.webhook_url":         "NOTIFY_WEBHOOK_URL",
	"notify.cleanup_interval":    "NOTIFY_CLEANUP_INTERVAL",
	"notify.default_ttl":         "NOTIFY_DEFAULT_TTL",
	"notify.push_permission":     "NOTIFY_PUSH_PERMISSION",
	"notify.stream_buffer":       "NOTIFY_STREAM_BUFFER",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")
	v.SetDefault("port", "8080")
	v.SetDefault("db.driver", "postgres")
	v.SetDefault("auth.issuer", "nodebook")
	v.SetDefault("auth.audience", "nodebook-api")
	v.SetDefault("auth.cookie_name", "auth_token")
	v.SetDefault("auth.clock_skew", time.Minute)
	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("redis.ttl", 10*time.Minute)
	v.SetDefault("study.write_timeout", 30*time.Second)
	v.SetDefault("study.match_feedback_delay", 600*time.Millisecond)
	v.SetDefault("study.idle_ttl", 2*time.Hour)
	v.SetDefault("study.sweep_interval", 5*time.Minute)
	v.SetDefault("study.queue_size", 1024)
	v.SetDefault("study.persist_timeout", 5*time.Second)
	v.SetDefault("notify.push_permission", "default")
	v.SetDefault("notify.cleanup_interval", time.Hour)
	v.SetDefault("notify.default_ttl", 7*24*time.Hour)
	v.SetDefault("notify.stream_buffer", 16)
}

// Load reads configuration from the environment. Outside production a .env
// file in the working directory is loaded first.
func Load() (*Config, error) {
	loaded := false
	if os.Getenv("RAILWAY_ENVIRONMENT_NAME") == "" {
		loaded = godotenv.Load() == nil
	}

	v := viper.New()
	setDefaults(v)
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	cfg := Config{}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.DotenvLoaded = loaded

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New()

// Validate checks struct tags and flattens the failures into one error.
func Validate(s interface{}) error {
	if err := validate.Struct(s); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		var errMsgs []string
		for _, fe := range verrs {
			errMsgs = append(errMsgs, fmt.Sprintf(
				"Field: %s, Tag: %s, Param: %s", fe.Namespace(), fe.Tag(), fe.Param(),
			))
		}
		return fmt.Errorf("validation failed: %s", strings.Join(errMsgs, "; "))
	}
	return nil
}
