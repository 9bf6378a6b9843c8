package captcha

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// ModelError is returned when the weights artifact cannot be read or does not
// have the shape the classifier expects.
type ModelError struct {
	Path string
	Err  error
}

func (e *ModelError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("captcha model: %s", e.Err)
	}
	return fmt.Sprintf("captcha model %s: %s", e.Path, e.Err)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

var ErrModelShape = errors.New("unexpected model shape")

// Model is a single-layer linear classifier over one binarized character
// window. It is never mutated after loading and can be shared freely.
type Model struct {
	// Weights has one row per window pixel and one column per alphabet letter.
	Weights [][]float64 `json:"weights"`
	Biases  []float64   `json:"biases"`
}

// LoadModel reads a weights artifact from disk.
func LoadModel(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ModelError{Path: path, Err: err}
	}
	defer f.Close()

	model, err := DecodeModel(f)
	if err != nil {
		var modelErr *ModelError
		if errors.As(err, &modelErr) {
			modelErr.Path = path
		}
		return nil, err
	}
	return model, nil
}

// DecodeModel parses a `{"weights": [[...]], "biases": [...]}` document.
func DecodeModel(r io.Reader) (*Model, error) {
	var model Model
	err := json.NewDecoder(r).Decode(&model)
	if err != nil {
		return nil, &ModelError{Err: fmt.Errorf("decode: %w", err)}
	}
	err = model.Validate()
	if err != nil {
		return nil, &ModelError{Err: err}
	}
	return &model, nil
}

// Validate checks that weights are WindowSize x len(Alphabet) and that
// there is one bias per letter.
func (m *Model) Validate() error {
	if len(m.Weights) != WindowSize {
		return fmt.Errorf("%w: %d weight rows, expected %d", ErrModelShape, len(m.Weights), WindowSize)
	}
	for i, row := range m.Weights {
		if len(row) != len(Alphabet) {
			return fmt.Errorf("%w: weight row %d has %d columns, expected %d", ErrModelShape, i, len(row), len(Alphabet))
		}
	}
	if len(m.Biases) != len(Alphabet) {
		return fmt.Errorf("%w: %d biases, expected %d", ErrModelShape, len(m.Biases), len(Alphabet))
	}
	return nil
}
