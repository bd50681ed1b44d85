package model

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

const topK = 3

// Server runs the two-head network through onnxruntime. Tensors are bound to the
// session once, so runs are serialized.
type Server struct {
	mu             sync.Mutex
	session        *ort.AdvancedSession
	metadata       Metadata
	classes        []string
	inputTensor    *ort.Tensor[float32]
	diseaseTensor  *ort.Tensor[float32]
	severityTensor *ort.Tensor[float32]
	outputClasses  int
	ownsEnv        bool
}

// NewServer expects the onnxruntime environment to be initialized already. Output
// tensors are sized from the model; class indexes past the end of classes are
// reported as unknown diseases.
func NewServer(modelPath string, metadata Metadata, classes []string) (*Server, error) {
	if len(classes) == 0 {
		return nil, fmt.Errorf("no classes for model %s", modelPath)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read model inputs and outputs: %w", err)
	}
	shapes, err := resolveShapes(metadata, len(classes), inputs, outputs)
	if err != nil {
		return nil, err
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(metadata.InputShape()...))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	diseaseTensor, err := ort.NewEmptyTensor[float32](shapes.disease)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create disease output tensor: %w", err)
	}

	severityTensor, err := ort.NewEmptyTensor[float32](shapes.severity)
	if err != nil {
		inputTensor.Destroy()
		diseaseTensor.Destroy()
		return nil, fmt.Errorf("failed to create severity output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{metadata.InputName},
		[]string{metadata.DiseaseOutput, metadata.SeverityOutput},
		[]ort.Value{inputTensor},
		[]ort.Value{diseaseTensor, severityTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		diseaseTensor.Destroy()
		severityTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &Server{
		session:        session,
		metadata:       metadata,
		classes:        classes,
		inputTensor:    inputTensor,
		diseaseTensor:  diseaseTensor,
		severityTensor: severityTensor,
		outputClasses:  int(shapes.disease.FlattenedSize()),
	}, nil
}

func (s *Server) Predict(ctx context.Context, inputData []float32) (*Prediction, error) {
	if len(inputData) != s.metadata.InputSize() {
		return nil, fmt.Errorf("expected %d input values, got %d", s.metadata.InputSize(), len(inputData))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return nil, errors.New("model session is closed")
	}

	copy(s.inputTensor.GetData(), inputData)

	if err := s.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	probs := s.diseaseTensor.GetData()
	idx := argMax(probs)

	return &Prediction{
		ClassIndex: idx,
		Disease:    ClassName(s.classes, idx),
		Severity:   s.severityTensor.GetData()[0],
		Top:        topClasses(probs, s.classes, topK),
	}, nil
}

func (s *Server) Mode() Mode { return ModeReal }

func (s *Server) Classes() []string { return s.classes }

func (s *Server) Metadata() Metadata { return s.metadata }

// OutputClasses is the width of the model's disease head.
func (s *Server) OutputClasses() int { return s.outputClasses }

func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session != nil {
		s.session.Destroy()
		s.session = nil
	}
	if s.inputTensor != nil {
		s.inputTensor.Destroy()
		s.inputTensor = nil
	}
	if s.diseaseTensor != nil {
		s.diseaseTensor.Destroy()
		s.diseaseTensor = nil
	}
	if s.severityTensor != nil {
		s.severityTensor.Destroy()
		s.severityTensor = nil
	}
	if s.ownsEnv {
		ort.DestroyEnvironment()
		s.ownsEnv = false
	}
}

func argMax(values []float32) int {
	if len(values) == 0 {
		return -1
	}
	maxIdx := 0
	for i, v := range values {
		if v > values[maxIdx] {
			maxIdx = i
		}
	}
	return maxIdx
}

// topClasses returns the k highest-scoring classes, highest first.
func topClasses(probs []float32, classes []string, k int) []ClassScore {
	idx := make([]int, len(probs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return probs[idx[a]] > probs[idx[b]] })

	if k > len(idx) {
		k = len(idx)
	}
	out := make([]ClassScore, 0, k)
	for _, i := range idx[:k] {
		out = append(out, ClassScore{Class: ClassName(classes, i), Probability: probs[i]})
	}
	return out
}
