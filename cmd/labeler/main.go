// Command labeler prepares a labeled paddy image set for training: it adds HSV
// severity labels to the CSV, encodes the class list and writes train/val manifests.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/Brownie44l1/paddy-api/internal/dataset"
)

type options struct {
	csvPath     string
	imageRoot   string
	outCSV      string
	labelsPath  string
	manifestDir string
	workers     int
	trainSplit  float64
	batchSize   int
	verbose     bool
}

func main() {
	var opts options
	flag.StringVar(&opts.csvPath, "csv", "train.csv", "input CSV with image_id and label columns")
	flag.StringVar(&opts.imageRoot, "images", "train_images", "image root laid out as <root>/<label>/<image_id>")
	flag.StringVar(&opts.outCSV, "out", "train_with_severity.csv", "annotated CSV output")
	flag.StringVar(&opts.labelsPath, "labels", filepath.Join("models", "label_encoder.json"), "class list output")
	flag.StringVar(&opts.manifestDir, "manifests", "manifests", "directory for train.csv and val.csv manifests")
	flag.IntVar(&opts.workers, "workers", 0, "parallel severity workers (0 = NumCPU)")
	flag.Float64Var(&opts.trainSplit, "split", 0.8, "fraction of rows used for training")
	flag.IntVar(&opts.batchSize, "batch", 32, "batch size used to report batch counts")
	flag.BoolVar(&opts.verbose, "v", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, opts, logger); err != nil {
		logger.Error("labeling failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, logger *slog.Logger) error {
	in, err := os.Open(opts.csvPath)
	if err != nil {
		return err
	}
	table, err := dataset.ReadTable(in)
	in.Close()
	if err != nil {
		return err
	}
	logger.Info("loaded data", "rows", len(table.Rows), "columns", table.Header)

	annotated, err := dataset.NewAnnotator(opts.imageRoot, opts.workers, logger).Annotate(ctx, table)
	if err != nil {
		return err
	}
	logger.Info("estimated severity", "images", annotated, "missing", len(table.Rows)-annotated)

	if err := writeFile(opts.outCSV, table.Write); err != nil {
		return err
	}

	enc := dataset.FitLabels(table.Column(dataset.ColLabel))
	if err := writeFile(opts.labelsPath, enc.WriteJSON); err != nil {
		return err
	}
	logger.Info("saved class names", "path", opts.labelsPath, "classes", enc.Len())

	samples, err := dataset.Samples(table, opts.imageRoot, enc)
	if err != nil {
		return err
	}
	train, val := dataset.Split(samples, opts.trainSplit)

	for name, part := range map[string][]dataset.Sample{"train.csv": train, "val.csv": val} {
		path := filepath.Join(opts.manifestDir, name)
		if err := writeFile(path, func(w io.Writer) error { return dataset.WriteManifest(w, part) }); err != nil {
			return err
		}
	}
	logger.Info("wrote manifests",
		"train", len(train), "train_batches", len(dataset.Batch(train, opts.batchSize)),
		"val", len(val), "val_batches", len(dataset.Batch(val, opts.batchSize)),
	)

	summary, err := dataset.Summarize(table)
	if err != nil {
		return err
	}
	fmt.Println()
	return summary.Print(os.Stdout)
}

func writeFile(path string, write func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
