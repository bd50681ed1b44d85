package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

type Sample struct {
	Path     string
	Label    int
	Severity float64
}

// Samples builds path/label/severity tuples from an annotated table.
func Samples(t *Table, imageRoot string, enc *LabelEncoder) ([]Sample, error) {
	idIdx, labelIdx, pctIdx := t.Index(ColImageID), t.Index(ColLabel), t.Index(ColSeverityPct)
	if pctIdx < 0 {
		return nil, fmt.Errorf("table is not annotated: missing %q", ColSeverityPct)
	}

	out := make([]Sample, 0, len(t.Rows))
	for i, row := range t.Rows {
		label, err := enc.Encode(row[labelIdx])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		pct, err := strconv.ParseFloat(row[pctIdx], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: bad severity %q: %w", i+1, row[pctIdx], err)
		}
		out = append(out, Sample{
			Path:     ImagePath(imageRoot, row[labelIdx], row[idIdx]),
			Label:    label,
			Severity: pct,
		})
	}
	return out, nil
}

// Split takes the first int(fraction*len) samples for training and the rest for
// validation, in input order.
func Split(samples []Sample, fraction float64) (train, val []Sample) {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	n := int(fraction * float64(len(samples)))
	return samples[:n], samples[n:]
}

// Batch groups samples into consecutive batches of size; the last may be short.
func Batch(samples []Sample, size int) [][]Sample {
	if size <= 0 {
		size = 1
	}
	batches := make([][]Sample, 0, (len(samples)+size-1)/size)
	for start := 0; start < len(samples); start += size {
		end := min(start+size, len(samples))
		batches = append(batches, samples[start:end])
	}
	return batches
}

// WriteManifest writes path,label,severity rows for the trainer.
func WriteManifest(w io.Writer, samples []Sample) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"path", "label", "severity"}); err != nil {
		return err
	}
	for _, s := range samples {
		rec := []string{s.Path, strconv.Itoa(s.Label), strconv.FormatFloat(s.Severity, 'f', -1, 64)}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
