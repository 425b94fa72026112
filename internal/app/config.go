package app

import (
	"os"
	"strings"
	"time"

	"github.com/yungbote/prism-backend/internal/data/db"
	"github.com/yungbote/prism-backend/internal/platform/docstore"
	"github.com/yungbote/prism-backend/internal/platform/envutil"
	"github.com/yungbote/prism-backend/internal/platform/logger"
	"github.com/yungbote/prism-backend/internal/realtime/bus"
)

type Config struct {
	Port    string
	LogMode string

	DB db.Config

	PolicyCatalogPath string

	AnalysisBaseURL    string
	AnalysisAPIKey     string
	AnalysisTimeout    time.Duration
	AnalysisMaxRetries int

	DefaultSLAHours float64
	SLATick         time.Duration

	Documents docstore.Config

	RFIFallbackEmail string

	RedisAddr    string
	RedisChannel string

	JWTSecretKey string
	CORSOrigins  []string


	MetricsAddr    string
}

func LoadConfig(log *logger.Logger) (Config, error) {
	mode, err := docstore.ParseMode(getEnv("DOCUMENT_STORAGE_MODE", "local", log))
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		Port:    getEnv("PORT", "8080", log),
		LogMode: getEnv("LOG_MODE", "development", log),
		DB: db.Config{
			Driver:     getEnv("DB_DRIVER", db.DriverSQLite, log),
			Host:       getEnv("POSTGRES_HOST", "localhost", log),
			Port:       getEnv("POSTGRES_PORT", "5432", log),
			User:       getEnv("POSTGRES_USER", "postgres", log),
			Password:   getSecret("POSTGRES_PASSWORD", log),
			Name:       getEnv("POSTGRES_NAME", "prism", log),
			SQLitePath: getEnv("SQLITE_PATH", "prism.db", log),
		},
		PolicyCatalogPath:  getEnv("POLICY_CATALOG_PATH", "data/policies.yaml", log),
		AnalysisBaseURL:    getEnv("ANALYSIS_BASE_URL", "", log),
		AnalysisAPIKey:     getSecret("ANALYSIS_API_KEY", log),
		AnalysisTimeout:    envutil.Seconds("ANALYSIS_TIMEOUT_SECONDS", 120*time.Second),
		AnalysisMaxRetries: envutil.Int("ANALYSIS_MAX_RETRIES", 2),
		DefaultSLAHours:    envutil.Float("SLA_DEFAULT_HOURS", 72),
		SLATick:            envutil.Seconds("SLA_TICK_SECONDS", 60*time.Second),
		Documents: docstore.Config{
			Mode:         mode,
			LocalDir:     getEnv("DOCUMENT_LOCAL_DIR", "uploads", log),
			Bucket:       getEnv("DOCUMENT_GCS_BUCKET", "", log),
			EmulatorHost: getEnv("STORAGE_EMULATOR_HOST", "", log),
		},
		RFIFallbackEmail: getEnv("RFI_FALLBACK_EMAIL", "", log),
		RedisAddr:        getEnv("REDIS_ADDR", "", log),
		RedisChannel:     getEnv("REDIS_CHANNEL", bus.DefaultChannel, log),
		JWTSecretKey:     getSecret("JWT_SECRET_KEY", log),
		CORSOrigins:      splitList(getEnv("CORS_ALLOWED_ORIGINS", "", log)),
		MetricsAddr:      getEnv("METRICS_ADDR", "", log),
	}
	log.Debug("timing config", "analysis_timeout", cfg.AnalysisTimeout.String(), "sla_tick", cfg.SLATick.String(), "default_sla_hours", cfg.DefaultSLAHours)
	return cfg, nil
}

func getEnv(key, defaultVal string, log *logger.Logger) string {
	log = log.With("env_var", key)
	val, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(val) == "" {
		log.Debug("Environment variable not found, using default", "default", defaultVal)
		return defaultVal
	}
	log.Debug("Environment variable found, using environment", "environment", strings.TrimSpace(val))
	return strings.TrimSpace(val)
}

// getSecret never logs the value.
func getSecret(key string, log *logger.Logger) string {
	val := envutil.String(key, "")
	log.Debug("Secret environment variable", "env_var", key, "set", val != "")
	return val
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
