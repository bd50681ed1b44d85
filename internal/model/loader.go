package model

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	ort "github.com/yalue/onnxruntime_go"
)

type Options struct {
	ModelPath    string
	MetadataPath string
	LabelsPath   string
	OrtLibPath   string
	// Seed for the mock predictor; zero picks a time-based seed.
	Seed uint64
}

// Load builds the process-wide predictor. It never fails: any problem with the
// artifacts or the runtime is logged and the service falls back to test mode.
func Load(opts Options, logger *slog.Logger) Predictor {
	metadata, err := LoadMetadata(opts.MetadataPath)
	if err != nil {
		logger.Warn("ignoring model metadata", "path", opts.MetadataPath, "error", err)
	}

	classes := resolveClasses(opts.LabelsPath, metadata, logger)
	metadata.Classes = classes

	if _, err := os.Stat(opts.ModelPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("model not found, running in test mode with mock predictions", "path", opts.ModelPath)
		} else {
			logger.Error("cannot stat model, running in test mode", "path", opts.ModelPath, "error", err)
		}
		return newMock(metadata, classes, opts.Seed)
	}

	server, err := loadONNX(opts, metadata, classes)
	if err != nil {
		logger.Error("error loading model, running in test mode", "path", opts.ModelPath, "error", err)
		return newMock(metadata, classes, opts.Seed)
	}

	if n := server.OutputClasses(); n != len(classes) {
		logger.Warn("class list does not match model output", "model_classes", n, "known_classes", len(classes))
	}
	logger.Info("model loaded", "path", opts.ModelPath, "classes", len(classes), "layout", metadata.Layout)
	return server
}

func loadONNX(opts Options, metadata Metadata, classes []string) (*Server, error) {
	if opts.OrtLibPath != "" {
		ort.SetSharedLibraryPath(opts.OrtLibPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}

	server, err := NewServer(opts.ModelPath, metadata, classes)
	if err != nil {
		ort.DestroyEnvironment()
		return nil, err
	}
	server.ownsEnv = true
	return server, nil
}

func resolveClasses(labelsPath string, metadata Metadata, logger *slog.Logger) []string {
	classes, err := LoadLabels(labelsPath)
	if err == nil {
		logger.Info("loaded class names", "count", len(classes), "path", labelsPath)
		return classes
	}

	if len(metadata.Classes) > 0 {
		logger.Info("using class names from model metadata", "count", len(metadata.Classes))
		return metadata.Classes
	}

	logger.Warn("using default class names", "path", labelsPath, "error", err)
	return append([]string(nil), DefaultClasses...)
}

func newMock(metadata Metadata, classes []string, seed uint64) *Mock {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return NewMock(metadata, classes, seed)
}
