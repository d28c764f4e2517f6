package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`
	OpsJWTSecret      string `mapstructure:"OPS_JWT_SECRET"`

	// Mongo configuration.
	MongoURI string `mapstructure:"MONGO_URI"`
	MongoDB  string `mapstructure:"MONGO_DB"`

	// Redis configuration. The cache DB holds flight status snapshots and
	// route statistics; the queue DB backs the alert dispatch worker.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB  int    `mapstructure:"REDIS_CACHE_DB"`
	RedisQueueDB  int    `mapstructure:"REDIS_QUEUE_DB"`

	// Status provider credentials. An empty key excludes that provider at
	// startup; it never participates in fallback.
	AeroAPIKey          string `mapstructure:"AERO_API_KEY"`
	AeroAPIURL          string `mapstructure:"AERO_API_URL"`
	BackupAPIKey        string `mapstructure:"BACKUP_API_KEY"`
	BackupAPIURL        string `mapstructure:"BACKUP_API_URL"`
	MockProviderEnabled bool   `mapstructure:"MOCK_PROVIDER_ENABLED"`

	// Alternative flight search (Amadeus flight offers). Optional; without
	// credentials disrupted bookings simply carry no alternatives.
	AmadeusClientID     string `mapstructure:"AMADEUS_CLIENT_ID"`
	AmadeusClientSecret string `mapstructure:"AMADEUS_CLIENT_SECRET"`
	AmadeusAPIURL       string `mapstructure:"AMADEUS_API_URL"`

	// Scheduler cadences.
	CheckIntervalSeconds     int `mapstructure:"CHECK_INTERVAL_SECONDS"`
	FrequencyIntervalSeconds int `mapstructure:"FREQUENCY_INTERVAL_SECONDS"`
	MaxConcurrentChecks      int `mapstructure:"MAX_CONCURRENT_CHECKS"`

	// Status cache windows. Freshness decides whether a hit short-circuits
	// provider calls; TTL decides how long a stale entry survives as a
	// fallback.
	CacheTTLSeconds       int `mapstructure:"CACHE_TTL_SECONDS"`
	CacheFreshnessSeconds int `mapstructure:"CACHE_FRESHNESS_SECONDS"`
	RouteStatsTTLHours    int `mapstructure:"ROUTE_STATS_TTL_HOURS"`

	// Hand-tuned risk thresholds, overridable per deployment.
	RiskAlertThreshold       float64 `mapstructure:"RISK_ALERT_THRESHOLD"`
	RouteHighRiskThreshold   float64 `mapstructure:"ROUTE_HIGH_RISK_THRESHOLD"`
	RouteMediumRiskThreshold float64 `mapstructure:"ROUTE_MEDIUM_RISK_THRESHOLD"`

	// Monitoring gap detection.
	InterruptionThresholdMinutes int `mapstructure:"INTERRUPTION_THRESHOLD_MINUTES"`

	// Provider call policy.
	ProviderTimeoutSeconds int `mapstructure:"PROVIDER_TIMEOUT_SECONDS"`
	ProviderMaxRetries     int `mapstructure:"PROVIDER_MAX_RETRIES"`

	// Alert delivery. Empty means alerts are delivered to the log only.
	NotifyWebhookURL string `mapstructure:"NOTIFY_WEBHOOK_URL"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	viper.SetDefault("OPS_JWT_SECRET", "")
	viper.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	viper.SetDefault("MONGO_DB", "skywatch")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_CACHE_DB", 0)
	viper.SetDefault("REDIS_QUEUE_DB", 1)
	viper.SetDefault("AERO_API_KEY", "")
	viper.SetDefault("AERO_API_URL", "https://aeroapi.flightaware.com/aeroapi")
	viper.SetDefault("BACKUP_API_KEY", "")
	viper.SetDefault("BACKUP_API_URL", "https://api.flightstatus.example.com/v2")
	viper.SetDefault("MOCK_PROVIDER_ENABLED", false)
	viper.SetDefault("AMADEUS_CLIENT_ID", "")
	viper.SetDefault("AMADEUS_CLIENT_SECRET", "")
	viper.SetDefault("AMADEUS_API_URL", "https://test.api.amadeus.com")
	viper.SetDefault("CHECK_INTERVAL_SECONDS", 60)
	viper.SetDefault("FREQUENCY_INTERVAL_SECONDS", 900)
	viper.SetDefault("MAX_CONCURRENT_CHECKS", 5)
	viper.SetDefault("CACHE_TTL_SECONDS", 300)
	viper.SetDefault("CACHE_FRESHNESS_SECONDS", 120)
	viper.SetDefault("ROUTE_STATS_TTL_HOURS", 24)
	viper.SetDefault("RISK_ALERT_THRESHOLD", 0.3)
	viper.SetDefault("ROUTE_HIGH_RISK_THRESHOLD", 0.40)
	viper.SetDefault("ROUTE_MEDIUM_RISK_THRESHOLD", 0.20)
	viper.SetDefault("INTERRUPTION_THRESHOLD_MINUTES", 30)
	viper.SetDefault("PROVIDER_TIMEOUT_SECONDS", 10)
	viper.SetDefault("PROVIDER_MAX_RETRIES", 2)
	viper.SetDefault("NOTIFY_WEBHOOK_URL", "")

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
