package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds typed configuration for the worker service.
type Config struct {
	LogLevel     string
	ListenAddr   string
	RedisAddr    string
	UpstreamURL  string
	APIPrefixes  []string
	CacheVersion int
	Assets       []string
	MaxRetries   int
	FetchTimeout time.Duration
	WebhookURL   string
	MetricsAddr  string
	OTelEndpoint string
}

// Load reads all values from the given viper instance.
func Load(v *viper.Viper) Config {
	return Config{
		LogLevel:     v.GetString("log_level"),
		ListenAddr:   v.GetString("listen_addr"),
		RedisAddr:    v.GetString("redis_addr"),
		UpstreamURL:  v.GetString("upstream_url"),
		APIPrefixes:  splitList(v.GetString("api_prefixes")),
		CacheVersion: v.GetInt("cache_version"),
		Assets:       splitList(v.GetString("assets")),
		MaxRetries:   v.GetInt("max_retries"),
		FetchTimeout: v.GetDuration("fetch_timeout"),
		WebhookURL:   v.GetString("notify_webhook_url"),
		MetricsAddr:  v.GetString("metrics_addr"),
		OTelEndpoint: v.GetString("otel_endpoint"),
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
