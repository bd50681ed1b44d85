package model

import (
	"context"
	"fmt"
)

type Mode string

const (
	ModeReal Mode = "real"
	ModeTest Mode = "test"
)

const (
	LayoutNHWC = "NHWC"
	LayoutNCHW = "NCHW"
)

// Metadata describes the exported network's I/O. Every field has a default so the
// file itself is optional.
type Metadata struct {
	InputName      string   `json:"input_name"`
	DiseaseOutput  string   `json:"disease_output"`
	SeverityOutput string   `json:"severity_output"`
	ImageSize      int      `json:"image_size"`
	Layout         string   `json:"layout"`
	Rescale        bool     `json:"rescale"`
	Classes        []string `json:"classes,omitempty"`
}

func DefaultMetadata() Metadata {
	return Metadata{
		InputName:      "input",
		DiseaseOutput:  "disease",
		SeverityOutput: "severity",
		ImageSize:      224,
		Layout:         LayoutNHWC,
	}
}

// InputShape is the single-image tensor shape the network expects.
func (m Metadata) InputShape() []int64 {
	size := int64(m.ImageSize)
	if m.Layout == LayoutNCHW {
		return []int64{1, 3, size, size}
	}
	return []int64{1, size, size, 3}
}

func (m Metadata) InputSize() int {
	return 3 * m.ImageSize * m.ImageSize
}

type ClassScore struct {
	Class       string  `json:"class"`
	Probability float32 `json:"probability"`
}

type Prediction struct {
	ClassIndex int
	Disease    string
	Severity   float32
	Top        []ClassScore
}

// Predictor is the process-wide, read-only model handle shared by all requests.
type Predictor interface {
	Predict(ctx context.Context, input []float32) (*Prediction, error)
	Mode() Mode
	Classes() []string
	Metadata() Metadata
	Close()
}

// ClassName maps an output index to its label.
func ClassName(classes []string, idx int) string {
	if idx < 0 || idx >= len(classes) {
		return fmt.Sprintf("Unknown Disease (Class %d)", idx)
	}
	return classes[idx]
}
