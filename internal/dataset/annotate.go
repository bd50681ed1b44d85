package dataset

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/Brownie44l1/paddy-api/internal/severity"
)

// EstimateFunc computes the severity of one image file.
type EstimateFunc func(path string) (severity.Result, error)

type Annotator struct {
	ImageRoot string
	Workers   int
	Estimate  EstimateFunc
	Logger    *slog.Logger
}

func NewAnnotator(imageRoot string, workers int, logger *slog.Logger) *Annotator {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Annotator{
		ImageRoot: imageRoot,
		Workers:   workers,
		Estimate:  severity.EstimateFile,
		Logger:    logger,
	}
}

// ImagePath is where the image for a row lives: root/label/image_id.
func ImagePath(root, label, imageID string) string {
	return filepath.Join(root, label, imageID)
}

// Annotate fills severity_level and severity_pct for every row whose image exists.
// Existing values are discarded; rows without an image, or whose image cannot be
// read, get low/0.
func (a *Annotator) Annotate(ctx context.Context, t *Table) (int, error) {
	levelIdx := t.resetColumn(ColSeverityLevel, string(severity.Low))
	pctIdx := t.resetColumn(ColSeverityPct, "0.0")
	idIdx, labelIdx := t.Index(ColImageID), t.Index(ColLabel)

	results := make([]*severity.Result, len(t.Rows))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.Workers)

	for i, row := range t.Rows {
		path := ImagePath(a.ImageRoot, row[labelIdx], row[idIdx])
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
				return nil
			}
			res, err := a.Estimate(path)
			if err != nil {
				a.Logger.Warn("skipping unreadable image", "path", path, "error", err)
				return nil
			}
			results[i] = &res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	annotated := 0
	for i, res := range results {
		if res == nil {
			continue
		}
		t.Rows[i][levelIdx] = string(res.Level)
		t.Rows[i][pctIdx] = strconv.FormatFloat(res.Percent, 'f', -1, 64)
		annotated++
	}
	return annotated, nil
}
