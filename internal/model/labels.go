package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// DefaultClasses is the paddy class list in label-encoder order, used when no
// label file ships with the model.
var DefaultClasses = []string{
	"bacterial_leaf_blight",
	"bacterial_leaf_streak",
	"bacterial_panicle_blight",
	"blast",
	"brown_spot",
	"dead_heart",
	"downy_mildew",
	"hispa",
	"normal",
	"tungro",
}

// LoadLabels reads a JSON array of class names. Index i is output index i.
func LoadLabels(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read labels: %w", err)
	}

	var classes []string
	if err := json.Unmarshal(data, &classes); err != nil {
		return nil, fmt.Errorf("failed to parse labels: %w", err)
	}
	if len(classes) == 0 {
		return nil, errors.New("label file is empty")
	}

	return classes, nil
}

// LoadMetadata reads the metadata file over the defaults. A missing file is not an error.
func LoadMetadata(path string) (Metadata, error) {
	metadata := DefaultMetadata()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return metadata, nil
	}
	if err != nil {
		return metadata, fmt.Errorf("failed to read metadata: %w", err)
	}

	if err := json.Unmarshal(data, &metadata); err != nil {
		return DefaultMetadata(), fmt.Errorf("failed to parse metadata: %w", err)
	}

	if metadata.ImageSize <= 0 {
		return DefaultMetadata(), fmt.Errorf("invalid image_size %d", metadata.ImageSize)
	}
	switch metadata.Layout {
	case "":
		metadata.Layout = LayoutNHWC
	case LayoutNHWC, LayoutNCHW:
	default:
		return DefaultMetadata(), fmt.Errorf("unsupported layout %q", metadata.Layout)
	}

	return metadata, nil
}
