package config

import (
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "MODEL_DIR", "MODEL_FILE", "LABELS_FILE", "UPLOAD_DIR", "MAX_UPLOAD_BYTES", "CORS_ORIGINS", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "5000", cfg.Port)
	require.Equal(t, int64(16<<20), cfg.MaxUploadBytes)
	require.Equal(t, []string{"*"}, cfg.CORSOrigins)
	require.Equal(t, slog.LevelInfo, cfg.LogLevel)
	require.Equal(t, filepath.Join("models", "paddy_disease_model.onnx"), cfg.ModelPath())
	require.Equal(t, filepath.Join("models", "label_encoder.json"), cfg.LabelsPath())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("MODEL_DIR", "/srv/models")
	t.Setenv("MAX_UPLOAD_BYTES", "1024")
	t.Setenv("CORS_ORIGINS", "http://localhost:5173, http://127.0.0.1:5173")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "9000", cfg.Port)
	require.Equal(t, int64(1024), cfg.MaxUploadBytes)
	require.Equal(t, []string{"http://localhost:5173", "http://127.0.0.1:5173"}, cfg.CORSOrigins)
	require.Equal(t, slog.LevelDebug, cfg.LogLevel)
	require.Equal(t, filepath.Join("/srv/models", "model_metadata.json"), cfg.MetadataPath())
}

func TestLoad_InvalidSizeFallsBack(t *testing.T) {
	t.Setenv("MAX_UPLOAD_BYTES", "lots")
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, int64(defaultMaxUploadBytes), cfg.MaxUploadBytes)
}
