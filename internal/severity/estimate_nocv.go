//go:build !gocv

package severity

import (
	"fmt"
	"os"

	"github.com/Brownie44l1/paddy-api/internal/preprocess"
)

// EstimateFile decodes the image at path and computes its lesion coverage.
func EstimateFile(path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()

	img, err := preprocess.Decode(f)
	if err != nil {
		return Result{}, fmt.Errorf("decode %s: %w", path, err)
	}

	return EstimateImage(img), nil
}
