package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port                string   `mapstructure:"PORT"`
	Env                 string   `mapstructure:"ENV"`
	DatabaseURL         string   `mapstructure:"DATABASE_URL"`
	DBMaxConns          int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns          int32    `mapstructure:"DB_MIN_CONNS"`
	AuthSigningKey      string   `mapstructure:"AUTH_SIGNING_KEY"`
	AuthIssuer          string   `mapstructure:"AUTH_ISSUER"`
	AuthAudience        string   `mapstructure:"AUTH_AUDIENCE"`
	CORSOrigins         []string `mapstructure:"CORS_ORIGINS"`
	ExportPacingMS      int      `mapstructure:"EXPORT_PACING_MS"`
	SignedURLTTLSeconds int      `mapstructure:"SIGNED_URL_TTL_SECONDS"`
	MaxUploadBytes      int64    `mapstructure:"MAX_UPLOAD_BYTES"`
	RateLimitRPS        float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst      int      `mapstructure:"RATE_LIMIT_BURST"`
	ReportDoctorName    string   `mapstructure:"REPORT_DOCTOR_NAME"`
	ReportDoctorLicense string   `mapstructure:"REPORT_DOCTOR_LICENSE"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("EXPORT_PACING_MS", 500)
	v.SetDefault("SIGNED_URL_TTL_SECONDS", 3600)
	v.SetDefault("MAX_UPLOAD_BYTES", 20*1024*1024)
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("AUTH_SIGNING_KEY")
	v.BindEnv("AUTH_ISSUER")
	v.BindEnv("AUTH_AUDIENCE")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("EXPORT_PACING_MS")
	v.BindEnv("SIGNED_URL_TTL_SECONDS")
	v.BindEnv("MAX_UPLOAD_BYTES")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")
	v.BindEnv("REPORT_DOCTOR_NAME")
	v.BindEnv("REPORT_DOCTOR_LICENSE")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: DevAuthMiddleware is active — all requests get admin access.")
		log.Println("WARNING: Set ENV=production and AUTH_SIGNING_KEY for production.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// ExportPacing returns the minimum delay enforced between successive
// deliveries during a batch PDF export. Zero disables pacing.
func (c *Config) ExportPacing() time.Duration {
	if c.ExportPacingMS < 0 {
		return 0
	}
	return time.Duration(c.ExportPacingMS) * time.Millisecond
}

// SignedURLTTL returns the lifetime of signed blob download URLs.
func (c *Config) SignedURLTTL() time.Duration {
	if c.SignedURLTTLSeconds <= 0 {
		return time.Hour
	}
	return time.Duration(c.SignedURLTTLSeconds) * time.Second
}

// Validate checks that the configuration is safe to run. Outside development
// a signing key or external issuer must be configured so that real JWT
// authentication is enforced.
func (c *Config) Validate() error {
	if !c.IsDev() && c.AuthSigningKey == "" && c.AuthIssuer == "" {
		return fmt.Errorf(
			"AUTH_SIGNING_KEY or AUTH_ISSUER must be set when ENV=%q. "+
				"Refusing to start without authentication configuration", c.Env)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.MaxUploadBytes)
	}
	if c.ExportPacingMS < 0 {
		return fmt.Errorf("EXPORT_PACING_MS must not be negative, got %d", c.ExportPacingMS)
	}
	return nil
}
