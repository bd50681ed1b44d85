// Package severity estimates how much of a leaf image looks diseased, using fixed
// HSV thresholds for yellow and brown lesions.
package severity

import (
	"image"
)

type Level string

const (
	Low    Level = "low"
	Medium Level = "medium"
	High   Level = "high"
)

// Levels in ascending order.
var Levels = []Level{Low, Medium, High}

const (
	mediumThreshold = 15.0
	highThreshold   = 40.0
)

// Result is the covered-pixel percentage and its bucket.
type Result struct {
	Level   Level
	Percent float64
}

// hsvRange bounds are inclusive, in OpenCV's 8-bit convention:
// H in [0,180), S and V in [0,255].
type hsvRange struct {
	lower, upper [3]uint8
}

func (r hsvRange) contains(h, s, v uint8) bool {
	return h >= r.lower[0] && h <= r.upper[0] &&
		s >= r.lower[1] && s <= r.upper[1] &&
		v >= r.lower[2] && v <= r.upper[2]
}

var (
	yellowLesion = hsvRange{lower: [3]uint8{20, 50, 50}, upper: [3]uint8{40, 255, 255}}
	brownLesion  = hsvRange{lower: [3]uint8{10, 50, 50}, upper: [3]uint8{20, 255, 255}}
)

func Classify(percent float64) Level {
	switch {
	case percent < mediumThreshold:
		return Low
	case percent < highThreshold:
		return Medium
	default:
		return High
	}
}

func newResult(covered, total int) Result {
	if total == 0 {
		return Result{Level: Low}
	}
	pct := float64(covered) / float64(total) * 100
	return Result{Level: Classify(pct), Percent: pct}
}

// EstimateImage computes the lesion coverage of img.
func EstimateImage(img image.Image) Result {
	b := img.Bounds()
	covered := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			h, s, v := toHSV(uint8(r>>8), uint8(g>>8), uint8(bl>>8))
			if yellowLesion.contains(h, s, v) || brownLesion.contains(h, s, v) {
				covered++
			}
		}
	}
	return newResult(covered, b.Dx()*b.Dy())
}

// toHSV follows cv::cvtColor(COLOR_RGB2HSV) for 8-bit images.
func toHSV(r, g, b uint8) (h, s, v uint8) {
	rf, gf, bf := float64(r), float64(g), float64(b)
	maxV := max(rf, gf, bf)
	minV := min(rf, gf, bf)
	diff := maxV - minV

	v = r
	if g > v {
		v = g
	}
	if b > v {
		v = b
	}

	if maxV == 0 {
		return 0, 0, v
	}
	s = uint8(diff*255/maxV + 0.5)
	if diff == 0 {
		return 0, s, v
	}

	var hue float64
	switch maxV {
	case rf:
		hue = 60 * (gf - bf) / diff
	case gf:
		hue = 120 + 60*(bf-rf)/diff
	default:
		hue = 240 + 60*(rf-gf)/diff
	}
	if hue < 0 {
		hue += 360
	}

	hh := int(hue/2 + 0.5)
	if hh >= 180 {
		hh -= 180
	}
	return uint8(hh), s, v
}
