package model

import (
	"context"
	"math/rand/v2"
	"sync"
)

const (
	mockSeverityMin = 10.0
	mockSeverityMax = 90.0
)

// Mock stands in for the network when no model artifact is available.
type Mock struct {
	mu       sync.Mutex
	rng      *rand.Rand
	metadata Metadata
	classes  []string
}

func NewMock(metadata Metadata, classes []string, seed uint64) *Mock {
	return &Mock{
		rng:      rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		metadata: metadata,
		classes:  classes,
	}
}

func (m *Mock) Predict(ctx context.Context, _ []float32) (*Prediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	idx := m.rng.IntN(len(m.classes))
	severity := mockSeverityMin + m.rng.Float64()*(mockSeverityMax-mockSeverityMin)
	m.mu.Unlock()

	disease := ClassName(m.classes, idx)
	return &Prediction{
		ClassIndex: idx,
		Disease:    disease,
		Severity:   float32(severity),
		Top:        []ClassScore{{Class: disease, Probability: 1}},
	}, nil
}

func (m *Mock) Mode() Mode { return ModeTest }

func (m *Mock) Classes() []string { return m.classes }

func (m *Mock) Metadata() Metadata { return m.metadata }

func (m *Mock) Close() {}
