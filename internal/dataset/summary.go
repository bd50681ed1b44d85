package dataset

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"text/tabwriter"

	"github.com/Brownie44l1/paddy-api/internal/severity"
)

type LabelStats struct {
	Label string
	Count int
	Mean  float64
	Min   float64
	Max   float64
}

type Summary struct {
	Levels map[severity.Level]int
	Labels []LabelStats
}

// Summarize counts severity levels and aggregates severity per disease label.
func Summarize(t *Table) (*Summary, error) {
	levelIdx, pctIdx, labelIdx := t.Index(ColSeverityLevel), t.Index(ColSeverityPct), t.Index(ColLabel)
	if levelIdx < 0 || pctIdx < 0 {
		return nil, fmt.Errorf("table is not annotated")
	}

	s := &Summary{Levels: make(map[severity.Level]int, len(severity.Levels))}
	byLabel := map[string]*LabelStats{}

	for _, row := range t.Rows {
		s.Levels[severity.Level(row[levelIdx])]++

		pct, err := strconv.ParseFloat(row[pctIdx], 64)
		if err != nil {
			return nil, fmt.Errorf("bad severity %q: %w", row[pctIdx], err)
		}
		st, ok := byLabel[row[labelIdx]]
		if !ok {
			st = &LabelStats{Label: row[labelIdx], Min: math.Inf(1), Max: math.Inf(-1)}
			byLabel[row[labelIdx]] = st
		}
		st.Count++
		st.Mean += pct
		st.Min = math.Min(st.Min, pct)
		st.Max = math.Max(st.Max, pct)
	}

	for _, st := range byLabel {
		st.Mean /= float64(st.Count)
		s.Labels = append(s.Labels, *st)
	}
	sort.Slice(s.Labels, func(i, j int) bool { return s.Labels[i].Label < s.Labels[j].Label })
	return s, nil
}

func (s *Summary) Print(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "severity\timages")
	for _, lvl := range severity.Levels {
		fmt.Fprintf(tw, "%s\t%d\n", lvl, s.Levels[lvl])
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "label\timages\tmean %\tmin %\tmax %")
	for _, st := range s.Labels {
		fmt.Fprintf(tw, "%s\t%d\t%.2f\t%.2f\t%.2f\n", st.Label, st.Count, st.Mean, st.Min, st.Max)
	}
	return tw.Flush()
}
