package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	dashboardSourceLive = "live"
	dashboardSourceMock = "mock"

	defaultMaxMultipartMemory = 32 << 20
)

type Config struct {
	Addr                string
	Env                 string
	StoreDriver         string
	MongoURI            string
	MongoDB             string
	DatabaseURL         string
	DataRoot            string
	MaxMultipartMemory  int64
	CORSAllowedOrigins  []string
	DashboardSource     string
	MockSeed            int64
	ReconcileInterval   time.Duration
	OrphanGracePeriod   time.Duration
	CatalogCacheTTL     time.Duration
	NominatimBaseURL    string
	GeocoderUserAgent   string
	ResendAPIKey        string
	MailerFromAddresses map[string]string
	AlertEmailTo        string
}

func setConfigDefaults(v *viper.Viper) {
	v.SetDefault("GIN_ADDR", ":5191")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("STORE_DRIVER", storeDriverMongo)
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DB", "PassengerReportDB")
	v.SetDefault("DATA_ROOT", "./data")
	v.SetDefault("MAX_MULTIPART_MEMORY", strconv.Itoa(defaultMaxMultipartMemory))
	v.SetDefault("DASHBOARD_SOURCE", dashboardSourceLive)
	v.SetDefault("MOCK_SEED", "0")
	v.SetDefault("RECONCILE_INTERVAL", "1h")
	v.SetDefault("ORPHAN_GRACE_PERIOD", "24h")
	v.SetDefault("CATALOG_CACHE_TTL", "5m")
	v.SetDefault("NOMINATIM_BASE_URL", defaultNominatimBaseURL)
	v.SetDefault("GEOCODER_USER_AGENT", "TransitGuard-API/1.0")
	v.SetDefault("MAILER_FROM_ADDRESS_RESEND", "noreply@transitguard.lk")
	v.SetDefault("MAILER_FROM_ADDRESS_LOG", "noreply@transitguard.local")
}

// loadDotEnv exports the variables of path that are not already set.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func loadConfig() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	setConfigDefaults(v)

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	cfg := &Config{
		Addr:              stringValue(v, "GIN_ADDR"),
		Env:               stringValue(v, "APP_ENV"),
		StoreDriver:       strings.ToLower(stringValue(v, "STORE_DRIVER")),
		MongoURI:          stringValue(v, "MONGO_URI"),
		MongoDB:           stringValue(v, "MONGO_DB"),
		DataRoot:          stringValue(v, "DATA_ROOT"),
		DashboardSource:   strings.ToLower(stringValue(v, "DASHBOARD_SOURCE")),
		NominatimBaseURL:  strings.TrimRight(stringValue(v, "NOMINATIM_BASE_URL"), "/"),
		GeocoderUserAgent: stringValue(v, "GEOCODER_USER_AGENT"),
		ResendAPIKey:      stringValue(v, "RESEND_API_KEY"),
		AlertEmailTo:      stringValue(v, "ALERT_EMAIL_TO"),
	}
	cfg.MailerFromAddresses = map[string]string{
		"resend": stringValue(v, "MAILER_FROM_ADDRESS_RESEND"),
		"log":    stringValue(v, "MAILER_FROM_ADDRESS_LOG"),
	}

	switch cfg.StoreDriver {
	case storeDriverMongo:
		if cfg.MongoURI == "" || cfg.MongoDB == "" {
			return nil, fmt.Errorf("MONGO_URI and MONGO_DB must be configured for the mongo store")
		}
	case storeDriverPostgres:
		cfg.DatabaseURL = postgresURL(v)
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL or PG*/POSTGRES_* variables must be configured for the postgres store")
		}
	default:
		return nil, fmt.Errorf("STORE_DRIVER must be %q or %q", storeDriverMongo, storeDriverPostgres)
	}

	if cfg.DashboardSource != dashboardSourceLive && cfg.DashboardSource != dashboardSourceMock {
		return nil, fmt.Errorf("DASHBOARD_SOURCE must be %q or %q", dashboardSourceLive, dashboardSourceMock)
	}

	if cfg.DataRoot == "" {
		return nil, fmt.Errorf("DATA_ROOT must not be empty")
	}

	maxMemory, err := strconv.ParseInt(stringValue(v, "MAX_MULTIPART_MEMORY"), 10, 64)
	if err != nil || maxMemory <= 0 {
		return nil, fmt.Errorf("MAX_MULTIPART_MEMORY must be a positive number of bytes")
	}
	cfg.MaxMultipartMemory = maxMemory

	cfg.MockSeed, err = strconv.ParseInt(stringValue(v, "MOCK_SEED"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("MOCK_SEED must be an integer")
	}

	if cfg.ReconcileInterval, err = durationValue(v, "RECONCILE_INTERVAL"); err != nil {
		return nil, err
	}
	if cfg.OrphanGracePeriod, err = durationValue(v, "ORPHAN_GRACE_PERIOD"); err != nil {
		return nil, err
	}
	if cfg.CatalogCacheTTL, err = durationValue(v, "CATALOG_CACHE_TTL"); err != nil {
		return nil, err
	}

	for _, origin := range strings.Split(stringValue(v, "CORS_ALLOWED_ORIGINS"), ",") {
		if origin = strings.TrimRight(strings.TrimSpace(origin), "/"); origin != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, origin)
		}
	}

	return cfg, nil
}

func stringValue(v *viper.Viper, key string) string {
	return strings.TrimSpace(v.GetString(key))
}

func durationValue(v *viper.Viper, key string) (time.Duration, error) {
	d, err := time.ParseDuration(stringValue(v, key))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration like 30m or 24h", key)
	}
	return d, nil
}

func valueFromKeys(v *viper.Viper, keys ...string) string {
	for _, key := range keys {
		if value := stringValue(v, key); value != "" {
			return value
		}
	}
	return ""
}

func postgresURL(v *viper.Viper) string {
	if databaseURL := stringValue(v, "DATABASE_URL"); databaseURL != "" {
		return databaseURL
	}
	host := valueFromKeys(v, "PGHOST", "POSTGRES_HOST")
	if host == "" {
		host = "127.0.0.1"
	}
	port := valueFromKeys(v, "PGPORT", "POSTGRES_PORT")
	if port == "" {
		port = "5432"
	}
	dbname := valueFromKeys(v, "PGDATABASE", "POSTGRES_DB")
	user := valueFromKeys(v, "PGUSER", "POSTGRES_USER")
	password := valueFromKeys(v, "PGPASSWORD", "POSTGRES_PASSWORD")
	sslmode := valueFromKeys(v, "PGSSLMODE", "POSTGRES_SSLMODE")
	if sslmode == "" {
		sslmode = "disable"
	}
	if dbname == "" || user == "" {
		return ""
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, password, host, port, dbname, sslmode)
}
