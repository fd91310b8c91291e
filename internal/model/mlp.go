package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// NotFittedError mirrors the wording users of scikit-learn estimators know.
type NotFittedError struct {
	Estimator string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("This %s instance is not fitted yet. Call 'fit' with appropriate arguments before using this estimator.", e.Estimator)
}

// Activation functions supported for hidden layers.
const (
	ActivationReLU     = "relu"
	ActivationTanh     = "tanh"
	ActivationLogistic = "logistic"
	ActivationIdentity = "identity"
)

// Layer is one dense layer. Weights is indexed [output][input].
type Layer struct {
	Weights [][]float64 `json:"weights"`
	Biases  []float64   `json:"biases"`
}

func (l Layer) inputs() int {
	if len(l.Weights) == 0 {
		return 0
	}
	return len(l.Weights[0])
}

func (l Layer) outputs() int {
	return len(l.Weights)
}

// MLPClassifier is a feed-forward neural network classifier.
//
// The output layer has one unit per class, or a single logistic unit when
// there are exactly two classes.
type MLPClassifier struct {
	FeatureNames []string `json:"feature_names,omitempty"`
	Classes      []string `json:"classes"`
	Activation   string   `json:"activation"`
	Layers       []Layer  `json:"layers"`
}

// DecodeMLP decodes a JSON artifact and checks that its layer shapes line up.
//
// An artifact without classes or layers decodes fine; it is reported as not
// fitted by CheckFitted instead.
func DecodeMLP(data []byte) (*MLPClassifier, error) {
	var clf MLPClassifier
	if err := json.Unmarshal(data, &clf); err != nil {
		return nil, err
	}

	if clf.Activation == "" {
		clf.Activation = ActivationReLU
	}
	if _, err := activation(clf.Activation); err != nil {
		return nil, err
	}

	if err := clf.checkShapes(); err != nil {
		return nil, err
	}

	return &clf, nil
}

func (m *MLPClassifier) checkShapes() error {
	for i, layer := range m.Layers {
		for j, weights := range layer.Weights {
			if len(weights) != layer.inputs() {
				return fmt.Errorf("layer %d unit %d has %d weights, want %d", i, j, len(weights), layer.inputs())
			}
		}
		if len(layer.Biases) != layer.outputs() {
			return fmt.Errorf("layer %d has %d biases for %d units", i, len(layer.Biases), layer.outputs())
		}
		if i > 0 && layer.inputs() != m.Layers[i-1].outputs() {
			return fmt.Errorf("layer %d expects %d inputs, layer %d produces %d", i, layer.inputs(), i-1, m.Layers[i-1].outputs())
		}
	}

	if len(m.Layers) > 0 && len(m.FeatureNames) > 0 && m.Layers[0].inputs() != len(m.FeatureNames) {
		return fmt.Errorf("first layer expects %d inputs for %d feature names", m.Layers[0].inputs(), len(m.FeatureNames))
	}

	if len(m.Classes) == 1 {
		return fmt.Errorf("a classifier needs at least 2 classes, got %q", m.Classes[0])
	}

	if len(m.Layers) > 0 && len(m.Classes) > 0 {
		out := m.Layers[len(m.Layers)-1].outputs()
		if out != len(m.Classes) && !(len(m.Classes) == 2 && out == 1) {
			return fmt.Errorf("output layer has %d units for %d classes", out, len(m.Classes))
		}
	}

	return nil
}

// CheckFitted reports a NotFittedError when classes or layers are missing.
func (m *MLPClassifier) CheckFitted() error {
	if len(m.Classes) == 0 || len(m.Layers) == 0 {
		return &NotFittedError{Estimator: "MLPClassifier"}
	}
	return nil
}

// Predict runs a forward pass and returns the most likely class.
//
// When the model carries feature names the row is matched by name,
// otherwise by position.
func (m *MLPClassifier) Predict(row Row) (string, error) {
	if err := m.CheckFitted(); err != nil {
		return "", err
	}

	x, err := m.arrange(row)
	if err != nil {
		return "", err
	}

	hidden, _ := activation(m.Activation)
	last := len(m.Layers) - 1

	for i, layer := range m.Layers {
		x = layer.forward(x)
		if i < last {
			for j := range x {
				x[j] = hidden(x[j])
			}
		}
	}

	if len(x) == 1 && len(m.Classes) == 2 {
		if logistic(x[0]) > 0.5 {
			return m.Classes[1], nil
		}
		return m.Classes[0], nil
	}

	best := 0
	for j := range x {
		if x[j] > x[best] {
			best = j
		}
	}
	return m.Classes[best], nil
}

// arrange returns the input vector in the order the first layer expects.
func (m *MLPClassifier) arrange(row Row) ([]float64, error) {
	if len(row.Names) != len(row.Values) {
		return nil, errors.New("row names and values differ in length")
	}

	if len(m.FeatureNames) == 0 {
		if len(row.Values) != m.Layers[0].inputs() {
			return nil, fmt.Errorf("model expects %d features, row has %d", m.Layers[0].inputs(), len(row.Values))
		}
		return append([]float64(nil), row.Values...), nil
	}

	index := make(map[string]float64, len(row.Names))
	for i, name := range row.Names {
		index[name] = row.Values[i]
	}

	x := make([]float64, len(m.FeatureNames))
	for i, name := range m.FeatureNames {
		value, ok := index[name]
		if !ok {
			return nil, fmt.Errorf("model feature %q is not in the row", name)
		}
		x[i] = value
	}
	return x, nil
}

func (l Layer) forward(x []float64) []float64 {
	out := make([]float64, l.outputs())
	for j, weights := range l.Weights {
		sum := l.Biases[j]
		for i, w := range weights {
			sum += w * x[i]
		}
		out[j] = sum
	}
	return out
}

func activation(name string) (func(float64) float64, error) {
	switch name {
	case ActivationReLU:
		return func(v float64) float64 { return math.Max(0, v) }, nil
	case ActivationTanh:
		return math.Tanh, nil
	case ActivationLogistic:
		return logistic, nil
	case ActivationIdentity:
		return func(v float64) float64 { return v }, nil
	default:
		return nil, fmt.Errorf("unknown activation %q", name)
	}
}

func logistic(v float64) float64 {
	return 1 / (1 + math.Exp(-v))
}
