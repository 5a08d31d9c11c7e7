package config

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/a8m/envsubst"
	"github.com/pkg/errors"

	"go.viam.com/framegraph/logging"
)

// Read reads a config from the given file after substituting environment variables.
func Read(filePath string, logger logging.Logger) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read config file %q", filePath)
	}
	return FromReader(filePath, bytes.NewReader(buf), logger)
}

// FromReader reads a config from the given reader and specifies
// where, if applicable, the file the reader originated from.
func FromReader(originalPath string, r io.Reader, logger logging.Logger) (*Config, error) {
	cfg := Config{
		ConfigFilePath: originalPath,
	}
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		return nil, errors.Wrap(err, "cannot parse config as json")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger.Debugw("read config",
		"path", originalPath,
		"fixed_frame", cfg.FixedFrame,
		"frames", len(cfg.Frames),
		"consumers", len(cfg.Consumers),
	)
	return &cfg, nil
}
