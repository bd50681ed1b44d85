package dataset

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// LabelEncoder maps class names to dense indices in sorted order. The serving side
// relies on Classes() order matching the network's output order.
type LabelEncoder struct {
	classes []string
	index   map[string]int
}

func FitLabels(labels []string) *LabelEncoder {
	seen := make(map[string]struct{}, len(labels))
	classes := make([]string, 0)
	for _, l := range labels {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		classes = append(classes, l)
	}
	sort.Strings(classes)

	index := make(map[string]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}
	return &LabelEncoder{classes: classes, index: index}
}

func (e *LabelEncoder) Encode(label string) (int, error) {
	i, ok := e.index[label]
	if !ok {
		return 0, fmt.Errorf("unknown label %q", label)
	}
	return i, nil
}

func (e *LabelEncoder) Classes() []string {
	return append([]string(nil), e.classes...)
}

func (e *LabelEncoder) Len() int { return len(e.classes) }

// WriteJSON persists the class list in the format the server loads.
func (e *LabelEncoder) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(e.classes)
}
