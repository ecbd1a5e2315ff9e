package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Scheduler SchedulerConfig
	Reminder  ReminderConfig
	Listener  ListenerConfig
	Firebase  FirebaseConfig
	Telemetry TelemetryConfig
}

type ServerConfig struct {
	Port            string
	Host            string
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds the postgres DSN parts and pool sizing.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type JWTConfig struct {
	Secret string
}

// SchedulerConfig drives the daily ProcessDue runs. ScheduleTimes are HH:MM
// in the server's local time.
type SchedulerConfig struct {
	Enabled       bool
	ScheduleTimes []string
	WorkerCount   int
	JobDelay      time.Duration
	QueueSize     int
	RunOnStartup  bool
}

// ReminderConfig controls the upcoming-charges push.
type ReminderConfig struct {
	Enabled    bool
	Time       string
	WindowDays int
}

type ListenerConfig struct {
	Enabled bool
}

type FirebaseConfig struct {
	CredentialsFile string
}

type TelemetryConfig struct {
	Enabled      bool
	ServiceName  string
	Environment  string
	OTLPEndpoint string
	MetricsPort  string
	SampleRatio  float64
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
// Every malformed or invalid setting is reported, not only the first.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: failed to load .env file: %v", err)
	}

	var env envReader
	cfg := &Config{
		Server: ServerConfig{
			Port:            env.str("PORT", "8080"),
			Host:            env.str("HOST", "0.0.0.0"),
			ShutdownTimeout: env.duration("SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:            env.str("DB_HOST", "localhost"),
			Port:            env.integer("DB_PORT", 5432),
			User:            env.str("DB_USER", "trackify"),
			Password:        env.str("DB_PASSWORD", ""),
			DBName:          env.str("DB_NAME", "trackify"),
			SSLMode:         env.str("DB_SSLMODE", "disable"),
			MaxOpenConns:    env.integer("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    env.integer("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: env.duration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		JWT: JWTConfig{
			Secret: env.str("JWT_SECRET", ""),
		},
		Scheduler: SchedulerConfig{
			Enabled:       env.boolean("SCHEDULER_ENABLED", true),
			ScheduleTimes: splitList(env.str("SCHEDULER_TIMES", "00:05,06:00")),
			WorkerCount:   env.integer("SCHEDULER_WORKERS", 5),
			JobDelay:      env.duration("SCHEDULER_JOB_DELAY", time.Second),
			QueueSize:     env.integer("SCHEDULER_QUEUE_SIZE", 100),
			RunOnStartup:  env.boolean("SCHEDULER_RUN_ON_STARTUP", false),
		},
		Reminder: ReminderConfig{
			Enabled:    env.boolean("REMINDER_ENABLED", true),
			Time:       env.str("REMINDER_TIME", "09:00"),
			WindowDays: env.integer("REMINDER_WINDOW_DAYS", 3),
		},
		Listener: ListenerConfig{
			Enabled: env.boolean("LISTENER_ENABLED", true),
		},
		Firebase: FirebaseConfig{
			CredentialsFile: env.str("FIREBASE_CREDENTIALS_FILE", ""),
		},
		Telemetry: TelemetryConfig{
			Enabled:      env.boolean("OTEL_ENABLED", false),
			ServiceName:  env.str("OTEL_SERVICE_NAME", "trackify-api"),
			Environment:  env.str("ENVIRONMENT", "development"),
			OTLPEndpoint: env.str("OTEL_EXPORTER_ENDPOINT", "localhost:4317"),
			MetricsPort:  env.str("METRICS_PORT", "9090"),
			SampleRatio:  env.float("OTEL_TRACES_SAMPLE_RATIO", 1),
		},
	}

	if err := errors.Join(append(env.errs, cfg.validate()...)...); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() []error {
	var errs []error
	check := func(ok bool, msg string) {
		if !ok {
			errs = append(errs, errors.New(msg))
		}
	}

	check(c.JWT.Secret != "", "JWT_SECRET is required")
	check(c.Database.MaxOpenConns > 0, "DB_MAX_OPEN_CONNS must be positive")
	check(c.Database.MaxIdleConns >= 0, "DB_MAX_IDLE_CONNS must not be negative")
	check(c.Scheduler.WorkerCount >= 1, "SCHEDULER_WORKERS must be at least 1")
	check(c.Scheduler.QueueSize >= 1, "SCHEDULER_QUEUE_SIZE must be at least 1")
	check(c.Reminder.WindowDays >= 0, "REMINDER_WINDOW_DAYS must not be negative")
	check(c.Telemetry.SampleRatio >= 0 && c.Telemetry.SampleRatio <= 1, "OTEL_TRACES_SAMPLE_RATIO must be between 0 and 1")
	return errs
}

func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// envReader reads typed variables, falling back to a default when a variable
// is unset and remembering every value that fails to parse.
type envReader struct {
	errs []error
}

func (r *envReader) str(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func (r *envReader) parse(key string, parse func(string) error) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if err := parse(v); err != nil {
		r.errs = append(r.errs, fmt.Errorf("invalid %s %q: %w", key, v, err))
	}
}

func (r *envReader) integer(key string, def int) int {
	n := def
	r.parse(key, func(v string) (err error) {
		n, err = strconv.Atoi(v)
		return err
	})
	return n
}

func (r *envReader) float(key string, def float64) float64 {
	f := def
	r.parse(key, func(v string) (err error) {
		f, err = strconv.ParseFloat(v, 64)
		return err
	})
	return f
}

func (r *envReader) duration(key string, def time.Duration) time.Duration {
	d := def
	r.parse(key, func(v string) (err error) {
		d, err = time.ParseDuration(v)
		return err
	})
	return d
}

// boolean accepts true/false, 1/0 and yes/no in any case. Anything else
// keeps the default.
func (r *envReader) boolean(key string, def bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return def
	}
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
