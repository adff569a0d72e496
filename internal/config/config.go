package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"outreach-server/pkg/logger"

	"go.uber.org/zap"
)

// Config holds all configuration settings
type Config struct {
	Server struct {
		Port int    `json:"port"`
		Host string `json:"host"`
	} `json:"server"`
	Database struct {
		DSN string `json:"dsn"`
	} `json:"database"`
	JWT struct {
		Secret      string        `json:"secret"`
		TokenExpiry time.Duration `json:"token_expiry"`
	} `json:"jwt"`
	OAuth struct {
		ClientID     string `json:"client_id"`
		ClientSecret string `json:"client_secret"`
		TokenURL     string `json:"token_url"`
		UserInfoURL  string `json:"user_info_url"`
	} `json:"oauth"`
	Generator struct {
		APIKey  string `json:"api_key"`
		BaseURL string `json:"base_url"`
		Model   string `json:"model"`
	} `json:"generator"`
	Mailer struct {
		Mode    string `json:"mode"` // "gmail" or "smtp"
		SendURL string `json:"send_url"`
		SMTP    struct {
			Host     string `json:"host"`
			Port     int    `json:"port"`
			Username string `json:"username"`
			Password string `json:"password"`
			From     string `json:"from"`
		} `json:"smtp"`
	} `json:"mailer"`
	Scheduler struct {
		PollInterval    time.Duration `json:"poll_interval"`
		SendDelay       time.Duration `json:"send_delay"`
		InitialDelay    time.Duration `json:"initial_delay"`
		TrackingBaseURL string        `json:"tracking_base_url"`
	} `json:"scheduler"`
	Encryption struct {
		Key string `json:"key"` // 32 bytes for AES-256; empty disables token encryption at rest
	} `json:"encryption"`
	Logging struct {
		Level string `json:"level"`
		Path  string `json:"path"`
	} `json:"logging"`
}

// LoadConfig loads configuration from a JSON file
func LoadConfig(path string) (*Config, error) {
	// Validate path to prevent directory traversal
	cleanPath := filepath.Clean(path)
	if !filepath.IsAbs(cleanPath) {
		return nil, fmt.Errorf("config path must be absolute")
	}

	// Check if file exists and is a regular file
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("config file error: %w", err)
	}
	if !fileInfo.Mode().IsRegular() {
		return nil, fmt.Errorf("config path is not a regular file")
	}

	file, err := os.Open(cleanPath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			logger.Warn("Failed to close config file", zap.Error(closeErr))
		}
	}()

	// Decode over defaults so omitted sections keep working values; a
	// partial file must not zero out the scheduler's durations
	config := *DefaultConfig()
	if err := json.NewDecoder(file).Decode(&config); err != nil {
		return nil, err
	}

	config.ApplyEnvOverrides()
	return &config, nil
}

// ApplyEnvOverrides overrides secret-bearing settings from the environment.
// A .env file loaded at startup feeds these same variables.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("GOOGLE_CLIENT_ID"); v != "" {
		c.OAuth.ClientID = v
	}
	if v := os.Getenv("GOOGLE_CLIENT_SECRET"); v != "" {
		c.OAuth.ClientSecret = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.Generator.APIKey = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		c.Mailer.SMTP.Password = v
	}
	if v := os.Getenv("TOKEN_ENCRYPTION_KEY"); v != "" {
		c.Encryption.Key = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.JWT.Secret = v
	}
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	config := &Config{}
	config.Server.Port = 8080
	config.Server.Host = "localhost"
	config.Database.DSN = "file:outreach.db?cache=shared&mode=rwc"
	config.JWT.Secret = "your-secret-key" // This should be changed in production
	config.JWT.TokenExpiry = 24 * time.Hour
	config.OAuth.TokenURL = "https://oauth2.googleapis.com/token"
	config.OAuth.UserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	config.Generator.BaseURL = "https://generativelanguage.googleapis.com"
	config.Generator.Model = "gemini-2.0-flash"
	config.Mailer.Mode = "gmail"
	config.Mailer.SendURL = "https://gmail.googleapis.com/gmail/v1/users/me/messages/send"
	config.Mailer.SMTP.Port = 587
	config.Scheduler.PollInterval = 5 * time.Minute
	config.Scheduler.SendDelay = 2 * time.Second
	config.Scheduler.InitialDelay = 5 * time.Second
	config.Scheduler.TrackingBaseURL = "http://localhost:8080"
	config.Logging.Level = "info"
	config.Logging.Path = "server.log"
	config.ApplyEnvOverrides()
	return config
}
