// Package config loads application configuration from a YAML file with
// environment variable overrides for secrets.
package config

import (
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   Server
	DB       DB
	JWT      JWT
	Realtime Realtime
	Media    Media
}

type Server struct {
	Port        string
	Environment string
}

type DB struct {
	URL string
}

type JWT struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Realtime configures the websocket handshake.
//
// Handshake selects the trust model for resolving a connection's user
// id: "declared" trusts a userId query parameter (origin allow-list is
// the only gate), "token" verifies a JWT before accepting the upgrade.
type Realtime struct {
	Handshake      string
	AllowedOrigins []string
}

type Media struct {
	Backend   string // "disk" or "s3"
	UploadDir string
	BaseURL   string
	S3        S3
}

type S3 struct {
	Bucket          string
	Region          string
	Endpoint        string
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// LoadConfig reads the named YAML file from the config directory.
func LoadConfig(filename string) (*viper.Viper, error) {
	v := viper.New()

	v.SetConfigName(filename)
	v.SetConfigType("yaml")
	v.AddConfigPath("config")
	v.AddConfigPath(".")

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("jwt.accessttl", 15*time.Minute)
	v.SetDefault("jwt.refreshttl", 7*24*time.Hour)
	v.SetDefault("realtime.handshake", "token")
	v.SetDefault("realtime.allowedorigins", []string{"localhost:*"})
	v.SetDefault("media.backend", "disk")
	v.SetDefault("media.uploaddir", "uploads")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil, errors.New("config file not found")
		}
		return nil, err
	}
	return v, nil
}

// ParseConfig unmarshals the loaded file and applies env overrides.
// Secrets are never kept in the YAML file.
func ParseConfig(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		slog.Error("unable to unmarshal config", "err", err)
		return nil, err
	}

	if url := os.Getenv("DB_URL"); url != "" {
		c.DB.URL = url
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		c.JWT.Secret = secret
	}
	if port := os.Getenv("PORT"); port != "" {
		c.Server.Port = port
	}
	if key := os.Getenv("S3_ACCESS_KEY_ID"); key != "" {
		c.Media.S3.AccessKeyID = key
	}
	if secret := os.Getenv("S3_SECRET_ACCESS_KEY"); secret != "" {
		c.Media.S3.SecretAccessKey = secret
	}

	if c.DB.URL == "" {
		return nil, errors.New("DB_URL is not set")
	}
	if c.JWT.Secret == "" {
		return nil, errors.New("JWT_SECRET is not set")
	}

	return &c, nil
}
