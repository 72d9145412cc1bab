package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"example.com/stream_viewer/pkg/retry"
)

// Display modes
const (
	DisplayTUI   = "tui"
	DisplayPlain = "plain"
)

type Config struct {
	PageURL          string
	StreamURL        string
	StatusAddr       string
	DisplayMode      string
	HistoryLimit     int
	HandshakeTimeout time.Duration
	Retry            retry.Policy
	MQTTBrokerURL    string
	MQTTClientID     string
	MQTTUsername     string
	MQTTPassword     string
	MQTTTopicPrefix  string
	LogLevel         string
	LogFormat        string
	LogFile          string
}

// Load reads .env files (if present) and the environment
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	cfg := Config{
		PageURL:          getenvDefault("STREAM_PAGE_URL", "http://localhost:8000"),
		StreamURL:        os.Getenv("STREAM_URL"),
		StatusAddr:       getenvDefault("STATUS_ADDR", ":8501"),
		DisplayMode:      strings.ToLower(getenvDefault("DISPLAY_MODE", DisplayTUI)),
		HistoryLimit:     getenvIntDefault("HISTORY_LIMIT", 100),
		HandshakeTimeout: time.Duration(getenvIntDefault("HANDSHAKE_TIMEOUT_SECONDS", 10)) * time.Second,
		Retry: retry.Policy{
			MaxAttempts:    getenvIntDefault("RECONNECT_MAX_ATTEMPTS", 0),
			InitialBackoff: time.Duration(getenvIntDefault("RECONNECT_INITIAL_BACKOFF_MS", 500)) * time.Millisecond,
			MaxBackoff:     time.Duration(getenvIntDefault("RECONNECT_MAX_BACKOFF_MS", 10000)) * time.Millisecond,
			Multiplier:     retry.DefaultMultiplier,
		},
		MQTTBrokerURL:   os.Getenv("MQTT_BROKER_URL"),
		MQTTClientID:    getenvDefault("MQTT_CLIENT_ID", "stream-viewer"),
		MQTTUsername:    os.Getenv("MQTT_USERNAME"),
		MQTTPassword:    os.Getenv("MQTT_PASSWORD"),
		MQTTTopicPrefix: getenvDefault("MQTT_TOPIC_PREFIX", "whisperchain"),
		LogLevel:        getenvDefault("LOG_LEVEL", "info"),
		LogFormat:       getenvDefault("LOG_FORMAT", "text"),
		LogFile:         os.Getenv("LOG_FILE"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that can also be changed by flags after loading
func (c Config) Validate() error {
	if c.PageURL == "" && c.StreamURL == "" {
		return fmt.Errorf("STREAM_PAGE_URL or STREAM_URL is required")
	}
	if c.StreamURL != "" && !strings.HasPrefix(c.StreamURL, "ws://") && !strings.HasPrefix(c.StreamURL, "wss://") {
		return fmt.Errorf("STREAM_URL must use ws:// or wss://, got %q", c.StreamURL)
	}
	if c.DisplayMode != DisplayTUI && c.DisplayMode != DisplayPlain {
		return fmt.Errorf("DISPLAY_MODE must be %q or %q, got %q", DisplayTUI, DisplayPlain, c.DisplayMode)
	}
	if c.HistoryLimit <= 0 {
		return fmt.Errorf("HISTORY_LIMIT must be positive, got %d", c.HistoryLimit)
	}
	if c.HandshakeTimeout <= 0 {
		return fmt.Errorf("HANDSHAKE_TIMEOUT_SECONDS must be positive")
	}
	if c.Retry.MaxAttempts < 0 {
		return fmt.Errorf("RECONNECT_MAX_ATTEMPTS must not be negative, got %d", c.Retry.MaxAttempts)
	}
	return nil
}

func getenvDefault(key, val string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return val
}

func getenvIntDefault(key string, val int) int {
	v := os.Getenv(key)
	if v == "" {
		return val
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return val
	}
	return n
}
