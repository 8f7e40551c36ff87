package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr          string
		AllowedOrigin string
	}
	Log struct {
		Level string
	}
	Database struct {
		Path string
	}
	Uploads struct {
		Dir       string
		URLPrefix string
		MaxBytes  int64
	}
	Storage struct {
		Driver        string
		Bucket        string
		KeyPrefix     string
		Region        string
		Endpoint      string
		// PublicBaseURL is where clients fetch images from. The bucket policy
		// must allow public reads under KeyPrefix; objects are uploaded without an ACL.
		PublicBaseURL string
	}
	AWS struct {
		Profile string
	}
	Auth struct {
		BcryptCost int
		RateLimit  float64
		RateBurst  int
	}
	Inventory struct {
		AllowNegative bool
	}
	Billing struct {
		Currency    string
		MaxSessions int
		// SessionTTL is how long an untouched bill session survives once the registry is full.
		SessionTTL time.Duration
	}
	Metrics struct {
		Enabled   bool
		Namespace string
	}
}

// Load reads configuration from environment variables and optional config files.
func Load() (Config, error) {
	// existing environment wins over .env
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("BILLING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	v.SetConfigName("config")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// legacy PORT, honoured unless the address is set explicitly
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		if _, explicit := os.LookupEnv("BILLING_SERVER_ADDR"); !explicit {
			cfg.Server.Addr = "0.0.0.0:" + port
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", "0.0.0.0:8080")
	v.SetDefault("server.allowedorigin", "*")
	v.SetDefault("log.level", "info")
	v.SetDefault("database.path", "data/billing.db")
	v.SetDefault("uploads.dir", "uploads")
	v.SetDefault("uploads.urlprefix", "uploads")
	v.SetDefault("uploads.maxbytes", 8<<20)
	v.SetDefault("storage.driver", "local")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.keyprefix", "products")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.publicbaseurl", "")
	v.SetDefault("aws.profile", "")
	v.SetDefault("auth.bcryptcost", 10)
	v.SetDefault("auth.ratelimit", 5)
	v.SetDefault("auth.rateburst", 10)
	v.SetDefault("inventory.allownegative", true)
	v.SetDefault("billing.currency", "₹")
	v.SetDefault("billing.maxsessions", 1024)
	v.SetDefault("billing.sessionttl", "2h")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", "billing")
}

// Validate checks settings that would otherwise fail late at request time.
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case "local":
	case "s3":
		if strings.TrimSpace(c.Storage.Bucket) == "" {
			return fmt.Errorf("storage bucket is required for the s3 driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Uploads.MaxBytes <= 0 {
		return fmt.Errorf("uploads max bytes must be positive")
	}
	return nil
}
