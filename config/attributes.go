package config

import (
	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"

	"go.viam.com/framegraph/logging"
)

// LogAttributes configure a log renderer.
type LogAttributes struct {
	// Level is the level of the consumer's logger. Empty keeps the session level.
	Level string `json:"level"`
}

// AxesAttributes configure an axes renderer.
type AxesAttributes struct {
	// Length of each drawn axis. Zero draws unit axes.
	Length float64 `json:"length"`
}

// DecodeAttributes decodes a consumer's attributes into T using the json field names. Unknown
// attributes are an error.
func DecodeAttributes[T any](attributes map[string]any) (T, error) {
	var out T
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &out,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return out, err
	}
	if err := decoder.Decode(attributes); err != nil {
		return out, errors.Wrap(err, "cannot decode attributes")
	}
	if v, ok := any(&out).(interface{ validate() error }); ok {
		if err := v.validate(); err != nil {
			return out, err
		}
	}
	return out, nil
}

func (attrs *LogAttributes) validate() error {
	if attrs.Level == "" {
		return nil
	}
	_, err := logging.LevelFromString(attrs.Level)
	return err
}

func (attrs *AxesAttributes) validate() error {
	if attrs.Length < 0 {
		return errors.Errorf("axis length must not be negative, got %v", attrs.Length)
	}
	return nil
}
