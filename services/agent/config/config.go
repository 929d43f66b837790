package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds typed configuration for the agent service.
type Config struct {
	LogLevel         string
	ListenAddr       string
	RedisAddr        string
	InventoryBackend string
	InventoryURL     string
	PostgresDSN      string
	OCRURL           string
	OCRThreshold     float64
	PageWebhookURL   string
	SMTPHost         string
	SMTPPort         int
	SMTPFrom         string
	SMTPTo           string
	SMTPUsername     string
	SMTPPassword     string
	RateLimitWindow  time.Duration
	SuppressWindow   time.Duration
	Schedule         string
	MetricsAddr      string
	OTelEndpoint     string
}

// Load reads all values from the given viper instance.
func Load(v *viper.Viper) Config {
	return Config{
		LogLevel:         v.GetString("log_level"),
		ListenAddr:       v.GetString("listen_addr"),
		RedisAddr:        v.GetString("redis_addr"),
		InventoryBackend: v.GetString("inventory_backend"),
		InventoryURL:     v.GetString("inventory_url"),
		PostgresDSN:      v.GetString("postgres_dsn"),
		OCRURL:           v.GetString("ocr_url"),
		OCRThreshold:     v.GetFloat64("ocr_confidence_threshold"),
		PageWebhookURL:   v.GetString("page_webhook_url"),
		SMTPHost:         v.GetString("smtp_host"),
		SMTPPort:         v.GetInt("smtp_port"),
		SMTPFrom:         v.GetString("smtp_from"),
		SMTPTo:           v.GetString("smtp_to"),
		SMTPUsername:     v.GetString("smtp_username"),
		SMTPPassword:     v.GetString("smtp_password"),
		RateLimitWindow:  v.GetDuration("rate_limit_window"),
		SuppressWindow:   v.GetDuration("install_suppress_window"),
		Schedule:         v.GetString("schedule"),
		MetricsAddr:      v.GetString("metrics_addr"),
		OTelEndpoint:     v.GetString("otel_endpoint"),
	}
}
