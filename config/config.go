package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds every setting the server reads at start-up
type Config struct {
	Server    Server
	Database  Database
	JWT       JWT
	Log       Log
	Messaging Messaging
	CallTimer CallTimer
}

type Server struct {
	Port        string
	Environment string
	CORSOrigins string
}

type Database struct {
	URL             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

type JWT struct {
	Secret string
}

type Log struct {
	Level  string
	Format string
}

type Messaging struct {
	// EligibleRoles lists the user roles that may send and receive messages
	EligibleRoles []string
	MaxBodyLength int
}

type CallTimer struct {
	RefreshInterval time.Duration
}

// IsProduction reports whether the server runs with production defaults
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// Load reads the optional .env file and then the process environment.
// DATABASE_URL and JWT_SECRET are required.
func Load() (*Config, error) {
	// .env is optional; production injects the environment directly
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		Server: Server{
			Port:        v.GetString("PORT"),
			Environment: v.GetString("APP_ENV"),
			CORSOrigins: v.GetString("CORS_ORIGINS"),
		},
		Database: Database{
			URL:             v.GetString("DATABASE_URL"),
			MaxConns:        v.GetInt32("DB_MAX_CONNS"),
			MinConns:        v.GetInt32("DB_MIN_CONNS"),
			MaxConnLifetime: v.GetDuration("DB_MAX_CONN_LIFETIME"),
			MaxConnIdleTime: v.GetDuration("DB_MAX_CONN_IDLE_TIME"),
		},
		JWT: JWT{
			Secret: v.GetString("JWT_SECRET"),
		},
		Log: Log{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Messaging: Messaging{
			EligibleRoles: splitList(v.GetString("MESSAGING_ROLES")),
			MaxBodyLength: v.GetInt("MESSAGE_MAX_LENGTH"),
		},
		CallTimer: CallTimer{
			RefreshInterval: v.GetDuration("CALL_TIMER_REFRESH"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadCallTimer reads only the call timer settings, for tools that run
// without a database.
func LoadCallTimer() (CallTimer, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	ct := CallTimer{RefreshInterval: v.GetDuration("CALL_TIMER_REFRESH")}
	if ct.RefreshInterval <= 0 {
		return CallTimer{}, errors.New("CALL_TIMER_REFRESH must be positive")
	}
	return ct, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("DB_MAX_CONN_LIFETIME", time.Hour)
	v.SetDefault("DB_MAX_CONN_IDLE_TIME", 30*time.Minute)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "")
	v.SetDefault("MESSAGING_ROLES", "admin,registrar,caller")
	v.SetDefault("MESSAGE_MAX_LENGTH", 5000)
	v.SetDefault("CALL_TIMER_REFRESH", time.Second)
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is not set")
	}
	if c.JWT.Secret == "" {
		return errors.New("JWT_SECRET environment variable is not set")
	}
	if len(c.Messaging.EligibleRoles) == 0 {
		return errors.New("MESSAGING_ROLES must name at least one role")
	}
	if c.Messaging.MaxBodyLength <= 0 {
		return errors.New("MESSAGE_MAX_LENGTH must be positive")
	}
	if c.CallTimer.RefreshInterval <= 0 {
		return errors.New("CALL_TIMER_REFRESH must be positive")
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
