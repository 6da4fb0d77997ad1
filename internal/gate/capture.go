// Package gate certifies the streaming pressure pipeline against an
// independently coded batch reference and reduces the divergence to named,
// thresholded metrics and semantic invariants.
package gate

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/okian/dabline/internal/domain/model"
)

// Capture is one recorded stroke.
type Capture struct {
	Name    string                 `json:"name" yaml:"name"`
	Samples []model.RawInputSample `json:"samples" yaml:"samples"`
}

// LoadCapture reads a capture file. YAML and JSON are both accepted.
func LoadCapture(path string) (Capture, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator config
	if err != nil {
		return Capture{}, fmt.Errorf("%w: %s: %w", ErrCaptureLoad, path, err)
	}
	c, err := ParseCapture(data)
	if err != nil {
		return Capture{}, err
	}
	if c.Name == "" {
		c.Name = path
	}
	return c, nil
}

// ParseCapture decodes a capture document. A bare list of samples is accepted
// as an unnamed capture.
func ParseCapture(data []byte) (Capture, error) {
	var c Capture
	if err := yaml.Unmarshal(data, &c); err != nil {
		var samples []model.RawInputSample
		if errList := yaml.Unmarshal(data, &samples); errList != nil {
			return Capture{}, fmt.Errorf("%w: %w", ErrCaptureLoad, err)
		}
		c.Samples = samples
	}
	if len(c.Samples) == 0 {
		return Capture{}, ErrEmptyCapture
	}
	return c, nil
}
