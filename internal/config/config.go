package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const defaultMaxUploadBytes = 16 << 20

type Config struct {
	Port           string
	ModelDir       string
	ModelFile      string
	MetadataFile   string
	LabelsFile     string
	OrtLibPath     string
	UploadDir      string
	MaxUploadBytes int64
	CORSOrigins    []string
	LogLevel       slog.Level
	TelegramToken  string
}

// Load reads .env (if present) and then the process environment.
func Load() (*Config, error) {
	// a missing .env is fine, the environment alone is enough
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnv("PORT", "5000"),
		ModelDir:       getEnv("MODEL_DIR", "models"),
		ModelFile:      getEnv("MODEL_FILE", "paddy_disease_model.onnx"),
		MetadataFile:   getEnv("METADATA_FILE", "model_metadata.json"),
		LabelsFile:     getEnv("LABELS_FILE", "label_encoder.json"),
		OrtLibPath:     os.Getenv("ORT_LIB_PATH"),
		UploadDir:      getEnv("UPLOAD_DIR", "temp_uploads"),
		MaxUploadBytes: getEnvInt64("MAX_UPLOAD_BYTES", defaultMaxUploadBytes),
		CORSOrigins:    splitList(getEnv("CORS_ORIGINS", "*")),
		LogLevel:       parseLevel(os.Getenv("LOG_LEVEL")),
		TelegramToken:  os.Getenv("TELEGRAM_TOKEN"),
	}

	return cfg, nil
}

func (c *Config) ModelPath() string {
	return filepath.Join(c.ModelDir, c.ModelFile)
}

func (c *Config) MetadataPath() string {
	return filepath.Join(c.ModelDir, c.MetadataFile)
}

func (c *Config) LabelsPath() string {
	return filepath.Join(c.ModelDir, c.LabelsFile)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil || value <= 0 {
		return defaultValue
	}

	return value
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
