package config

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/a8m/envsubst"
	"github.com/edaniels/golog"
	"github.com/pkg/errors"
)

// Read reads parameters from the given JSON file. Values of the form
// ${VAR} are substituted from the environment before decoding, and any
// option absent from the file keeps its default.
func Read(filePath string, logger golog.Logger) (*Parameters, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return FromReader(filePath, bytes.NewReader(buf), logger)
}

// FromReader reads parameters from the given reader; originalPath is used
// only for error reporting.
func FromReader(originalPath string, r io.Reader, logger golog.Logger) (*Parameters, error) {
	params := DefaultParameters()
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(params); err != nil {
		return nil, errors.Wrapf(err, "cannot parse config %q", originalPath)
	}
	if err := params.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config %q", originalPath)
	}
	logger.Debugw("read servo config", "path", originalPath, "move_group", params.MoveGroupName)
	return params, nil
}
