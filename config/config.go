// Package config defines the framegraph session configuration and reads it from disk.
package config

import (
	"fmt"
	"path/filepath"

	"github.com/pkg/errors"

	"go.viam.com/framegraph/framesystem"
	"go.viam.com/framegraph/logging"
	"go.viam.com/framegraph/referenceframe"
)

// Consumer kinds.
const (
	KindPoller   = "poller"
	KindFollower = "follower"
)

// Renderer types.
const (
	RendererLog  = "log"
	RendererAxes = "axes"
)

// A Config describes one visualization session: the fixed frame, where the frame graph comes from,
// how updates are checked for changes and which consumers draw frames.
type Config struct {
	ConfigFilePath string `json:"-"`

	FixedFrame      string                               `json:"fixed_frame"`
	GraphFile       string                               `json:"graph_file,omitempty"`
	Frames          map[string]referenceframe.EdgeConfig `json:"frames,omitempty"`
	ChangeDetection ChangeDetection                      `json:"change_detection"`
	Consumers       []ConsumerConfig                     `json:"consumers,omitempty"`
	LogConfig       []logging.LoggerPatternConfig        `json:"log,omitempty"`
	Debug           bool                                 `json:"debug,omitempty"`
}

// ChangeDetection selects how a graph update decides which subscriptions to renotify.
type ChangeDetection struct {
	Mode       string `json:"mode,omitempty"`
	Threshold  int    `json:"threshold,omitempty"`
	SampleSize int    `json:"sample_size,omitempty"`
}

// Detector builds the configured change detector.
func (cd ChangeDetection) Detector() (framesystem.ChangeDetector, error) {
	return framesystem.NewChangeDetector(cd.Mode, cd.Threshold, cd.SampleSize)
}

// ConsumerConfig describes one visual consumer of a frame.
type ConsumerConfig struct {
	Name                 string         `json:"name"`
	Kind                 string         `json:"kind"`
	Frame                string         `json:"frame"`
	Renderer             string         `json:"renderer,omitempty"`
	RateHz               float64        `json:"rate_hz,omitempty"`
	TranslationThreshold float64        `json:"translation_threshold,omitempty"`
	RotationThreshold    float64        `json:"rotation_threshold,omitempty"`
	Attributes           map[string]any `json:"attributes,omitempty"`
}

// Validate ensures all parts of the config are valid and fills in defaults.
func (c *Config) Validate() error {
	if c.FixedFrame == "" {
		return NewConfigValidationFieldRequiredError("", "fixed_frame")
	}
	c.FixedFrame = referenceframe.NormalizeName(c.FixedFrame)
	if _, err := c.ChangeDetection.Detector(); err != nil {
		return NewConfigValidationError("change_detection", err)
	}
	if c.GraphFile != "" && !filepath.IsAbs(c.GraphFile) && c.ConfigFilePath != "" {
		c.GraphFile = filepath.Join(filepath.Dir(c.ConfigFilePath), c.GraphFile)
	}
	for child, edge := range c.Frames {
		if _, err := edge.ParseConfig(); err != nil {
			return NewConfigValidationError(fmt.Sprintf("frames.%s", child), err)
		}
	}

	seen := make(map[string]struct{}, len(c.Consumers))
	for idx := range c.Consumers {
		path := fmt.Sprintf("%s.%d", "consumers", idx)
		if err := c.Consumers[idx].Validate(path); err != nil {
			return err
		}
		name := c.Consumers[idx].Name
		if _, dup := seen[name]; dup {
			return NewConfigValidationError(path, errors.Errorf("duplicate consumer name %q", name))
		}
		seen[name] = struct{}{}
	}

	for idx, pattern := range c.LogConfig {
		if err := pattern.Validate(); err != nil {
			return NewConfigValidationError(fmt.Sprintf("%s.%d", "log", idx), err)
		}
	}
	return nil
}

// Graph returns the frames configured inline.
func (c *Config) Graph() (*referenceframe.Graph, error) {
	return referenceframe.NewGraphFromConfig(c.Frames)
}

// Validate ensures the consumer is usable and fills in its default renderer.
func (cc *ConsumerConfig) Validate(path string) error {
	if cc.Name == "" {
		return NewConfigValidationFieldRequiredError(path, "name")
	}
	if cc.Frame == "" {
		return NewConfigValidationFieldRequiredError(path, "frame")
	}
	switch cc.Kind {
	case KindPoller, KindFollower:
	case "":
		return NewConfigValidationFieldRequiredError(path, "kind")
	default:
		return NewConfigValidationError(path, errors.Errorf("unknown consumer kind %q", cc.Kind))
	}
	if cc.Kind == KindFollower && cc.RateHz != 0 {
		return NewConfigValidationError(path, errors.New("rate_hz only applies to pollers"))
	}
	if cc.RateHz < 0 {
		return NewConfigValidationError(path, errors.Errorf("rate_hz must not be negative, got %v", cc.RateHz))
	}
	if cc.TranslationThreshold < 0 || cc.RotationThreshold < 0 {
		return NewConfigValidationError(path, errors.New("thresholds must not be negative"))
	}
	if cc.Renderer == "" {
		cc.Renderer = RendererLog
	}
	var err error
	switch cc.Renderer {
	case RendererLog:
		_, err = DecodeAttributes[LogAttributes](cc.Attributes)
	case RendererAxes:
		_, err = DecodeAttributes[AxesAttributes](cc.Attributes)
	default:
		err = errors.Errorf("unknown renderer %q", cc.Renderer)
	}
	if err != nil {
		return NewConfigValidationError(path, err)
	}
	return nil
}
