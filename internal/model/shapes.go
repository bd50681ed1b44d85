package model

import (
	"fmt"
	"strings"

	ort "github.com/yalue/onnxruntime_go"
)

// ioShapes are the concrete output tensor shapes for one image.
type ioShapes struct {
	disease  ort.Shape
	severity ort.Shape
}

// resolveShapes checks the metadata names against the model's declared inputs
// and outputs and sizes the output tensors from the model, not the class list.
// A dynamic batch dimension becomes 1; a dynamic class dimension falls back to
// the number of known classes.
func resolveShapes(metadata Metadata, classes int, inputs, outputs []ort.InputOutputInfo) (ioShapes, error) {
	input, err := findInfo(inputs, metadata.InputName, "input")
	if err != nil {
		return ioShapes{}, err
	}
	want := ort.NewShape(metadata.InputShape()...)
	if !compatible(input.Dimensions, want) {
		return ioShapes{}, fmt.Errorf("input %q has shape %v, metadata expects %v", input.Name, input.Dimensions, want)
	}

	disease, err := findInfo(outputs, metadata.DiseaseOutput, "output")
	if err != nil {
		return ioShapes{}, err
	}
	if len(disease.Dimensions) < 2 {
		return ioShapes{}, fmt.Errorf("output %q has shape %v, want [batch, classes]", disease.Name, disease.Dimensions)
	}

	severity, err := findInfo(outputs, metadata.SeverityOutput, "output")
	if err != nil {
		return ioShapes{}, err
	}

	shapes := ioShapes{
		disease:  concrete(disease.Dimensions, int64(classes)),
		severity: concrete(severity.Dimensions, 1),
	}
	if shapes.disease.FlattenedSize() < 1 {
		return ioShapes{}, fmt.Errorf("output %q has no classes", disease.Name)
	}
	if n := shapes.severity.FlattenedSize(); n != 1 {
		return ioShapes{}, fmt.Errorf("output %q has %d values per image, want 1", severity.Name, n)
	}
	return shapes, nil
}

func findInfo(infos []ort.InputOutputInfo, name, kind string) (ort.InputOutputInfo, error) {
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		if info.Name == name {
			if info.DataType != ort.TensorElementDataTypeFloat {
				return info, fmt.Errorf("%s %q is %v, want float32", kind, name, info.DataType)
			}
			return info, nil
		}
		names = append(names, info.Name)
	}
	return ort.InputOutputInfo{}, fmt.Errorf("model has no %s %q (have %s)", kind, name, strings.Join(names, ", "))
}

// compatible reports whether got matches want, treating non-positive dims as dynamic.
func compatible(got, want ort.Shape) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] > 0 && got[i] != want[i] {
			return false
		}
	}
	return true
}

func concrete(dims ort.Shape, dynamic int64) ort.Shape {
	out := make(ort.Shape, len(dims))
	for i, d := range dims {
		switch {
		case d > 0:
			out[i] = d
		case i == 0:
			out[i] = 1
		default:
			out[i] = dynamic
		}
	}
	return out
}
