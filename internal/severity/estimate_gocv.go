//go:build gocv

package severity

import (
	"fmt"
	"os"

	"gocv.io/x/gocv"

	"github.com/Brownie44l1/paddy-api/internal/preprocess"
)

// EstimateFile computes lesion coverage with OpenCV's own color conversion and
// range masks.
func EstimateFile(path string) (Result, error) {
	if err := checkSize(path); err != nil {
		return Result{}, err
	}

	img := gocv.IMRead(path, gocv.IMReadColor)
	if img.Empty() {
		img.Close()
		return Result{}, fmt.Errorf("failed to read image %s", path)
	}
	defer img.Close()

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(img, &hsv, gocv.ColorBGRToHSV)

	yellow := lesionMask(hsv, yellowLesion)
	defer yellow.Close()
	brown := lesionMask(hsv, brownLesion)
	defer brown.Close()

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.BitwiseOr(yellow, brown, &mask)

	return newResult(gocv.CountNonZero(mask), mask.Cols()*mask.Rows()), nil
}

func lesionMask(hsv gocv.Mat, r hsvRange) gocv.Mat {
	mask := gocv.NewMat()
	lower := gocv.NewScalar(float64(r.lower[0]), float64(r.lower[1]), float64(r.lower[2]), 0)
	upper := gocv.NewScalar(float64(r.upper[0]), float64(r.upper[1]), float64(r.upper[2]), 0)
	gocv.InRangeWithScalar(hsv, lower, upper, &mask)
	return mask
}

func checkSize(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := preprocess.CheckSize(f); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
