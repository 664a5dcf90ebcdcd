package config

import (
	"fmt"
	"os"

	"github.com/JaimeStill/cerebra/pkg/formatting"
	"github.com/JaimeStill/cerebra/pkg/middleware"
)

const (
	EnvWebSecretKey     = "CEREBRA_WEB_SECRET_KEY"
	EnvWebMaxUploadSize = "CEREBRA_WEB_MAX_UPLOAD_SIZE"
	EnvWebSessionName   = "CEREBRA_WEB_SESSION_NAME"

	EnvSecretKey      = "SECRET_KEY"
	EnvFlaskSecretKey = "FLASK_SECRET_KEY"

	defaultSecretKey     = "dev-secret"
	defaultMaxUploadSize = 16 * 1024 * 1024
)

var corsEnv = &middleware.CORSEnv{
	Enabled:          "CEREBRA_CORS_ENABLED",
	Origins:          "CEREBRA_CORS_ORIGINS",
	AllowedMethods:   "CEREBRA_CORS_ALLOWED_METHODS",
	AllowedHeaders:   "CEREBRA_CORS_ALLOWED_HEADERS",
	AllowCredentials: "CEREBRA_CORS_ALLOW_CREDENTIALS",
	MaxAge:           "CEREBRA_CORS_MAX_AGE",
}

// WebConfig holds settings for the upload UI and the JSON API surface.
type WebConfig struct {
	SecretKey     string                `toml:"secret_key"`
	SessionName   string                `toml:"session_name"`
	MaxUploadSize string                `toml:"max_upload_size"`
	CORS          middleware.CORSConfig `toml:"cors"`
}

// MaxUploadSizeBytes returns the request body limit for uploads.
func (c *WebConfig) MaxUploadSizeBytes() int64 {
	return formatting.ParseBytesOr(c.MaxUploadSize, defaultMaxUploadSize)
}

// InsecureSecret reports whether the session secret is still the development default.
func (c *WebConfig) InsecureSecret() bool {
	return c.SecretKey == defaultSecretKey
}

// Finalize applies defaults, environment variable overrides, and validation
// for the web config and its nested CORS config.
func (c *WebConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.CORS.Finalize(corsEnv); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *WebConfig) Merge(overlay *WebConfig) {
	if overlay.SecretKey != "" {
		c.SecretKey = overlay.SecretKey
	}
	if overlay.SessionName != "" {
		c.SessionName = overlay.SessionName
	}
	if overlay.MaxUploadSize != "" {
		c.MaxUploadSize = overlay.MaxUploadSize
	}
	c.CORS.Merge(&overlay.CORS)
}

func (c *WebConfig) loadDefaults() {
	if c.SecretKey == "" {
		c.SecretKey = defaultSecretKey
	}
	if c.SessionName == "" {
		c.SessionName = "cerebra"
	}
	if c.MaxUploadSize == "" {
		c.MaxUploadSize = "16MB"
	}
}

func (c *WebConfig) loadEnv() {
	for _, name := range []string{EnvFlaskSecretKey, EnvSecretKey, EnvWebSecretKey} {
		if v := os.Getenv(name); v != "" {
			c.SecretKey = v
		}
	}
	if v := os.Getenv(EnvWebSessionName); v != "" {
		c.SessionName = v
	}
	if v := os.Getenv(EnvWebMaxUploadSize); v != "" {
		c.MaxUploadSize = v
	}
}

func (c *WebConfig) validate() error {
	if _, err := formatting.ParseBytes(c.MaxUploadSize); err != nil {
		return fmt.Errorf("invalid max_upload_size: %w", err)
	}
	return nil
}
