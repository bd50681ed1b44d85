package diagnosis

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/Brownie44l1/paddy-api/internal/metrics"
	"github.com/Brownie44l1/paddy-api/internal/model"
	"github.com/Brownie44l1/paddy-api/internal/preprocess"
	"github.com/Brownie44l1/paddy-api/internal/severity"
)

type Result struct {
	Disease  string         `json:"disease"`
	Severity float64        `json:"severity"`
	Mode     model.Mode     `json:"mode"`
	Level    severity.Level `json:"-"`
}

type Service struct {
	predictor model.Predictor
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewService wires the predictor; m may be nil.
func NewService(predictor model.Predictor, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		predictor: predictor,
		metrics:   m,
		logger:    logger,
	}
}

func (s *Service) Mode() model.Mode { return s.predictor.Mode() }

func (s *Service) Classes() []string { return s.predictor.Classes() }

// Diagnose runs one image through the model. Undecodable input yields an error
// wrapping preprocess.ErrDecode.
func (s *Service) Diagnose(ctx context.Context, r io.Reader) (*Result, error) {
	start := time.Now()

	input, err := preprocess.Image(r, s.predictor.Metadata())
	if err != nil {
		return nil, err
	}

	pred, err := s.predictor.Predict(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}

	mode := s.predictor.Mode()
	if mode == model.ModeReal {
		for i, c := range pred.Top {
			s.logger.Debug("top class", "rank", i+1, "class", c.Class, "probability", fmt.Sprintf("%.2f%%", c.Probability*100))
		}
	}

	pct := clampPercent(float64(pred.Severity))
	s.metrics.ObservePrediction(string(mode), pred.Disease, time.Since(start))

	return &Result{
		Disease:  pred.Disease,
		Severity: pct,
		Mode:     mode,
		Level:    severity.Classify(pct),
	}, nil
}

func (s *Service) DiagnoseFile(ctx context.Context, path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	return s.Diagnose(ctx, f)
}

// clampPercent keeps the regression head's output within [0,100].
func clampPercent(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
