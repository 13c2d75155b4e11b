package modules

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/bcl/mac-ctrl/endpoint"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog"
)

const (
	DefaultHwmonRoot   = "/sys/class/hwmon"
	DefaultCoretempDir = "/sys/devices/platform/coretemp.0/hwmon/hwmon1"
	DefaultModelPath   = "/sys/class/dmi/id/product_name"
)

type Result[T any] struct {
	Value T
	Err   error
}

func (r Result[T]) MarshalJSON() ([]byte, error) {
	if r.Err != nil {
		return json.Marshal(struct {
			Error string `json:"error"`
		}{r.Err.Error()})
	}
	return json.Marshal(struct {
		Value T `json:"value"`
	}{r.Value})
}

// Validate decodes the free-form module configuration into output, which
// holds the defaults, and validates the result. Unknown keys are rejected.
func Validate[T any](input map[string]interface{}, output *T) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      output,
	})
	if err != nil {
		return fmt.Errorf("error creating decoder: %w", err)
	}
	err = decoder.Decode(input)
	if err != nil {
		return fmt.Errorf("input decoding error: %w", err)
	}
	validate := validator.New()
	err = validate.Struct(output)
	if err != nil {
		return fmt.Errorf("error validating structure fields: %w", err)
	}
	return nil
}

// DetectModel reads the DMI product name, e.g. "MacBookPro11,1".
func DetectModel(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("error reading hardware model: %w", err)
	}
	model := strings.TrimSpace(strings.Trim(string(b), "\x00"))
	if model == "" {
		return "", fmt.Errorf("error reading hardware model: %q is empty", path)
	}
	return model, nil
}

// CoretempDir returns dir when configured, otherwise the hwmon directory of
// the coretemp driver under root, otherwise DefaultCoretempDir.
func CoretempDir(dir string, root string, logger zerolog.Logger) string {
	if dir != "" {
		return dir
	}
	found, err := endpoint.FindHwmon(root, "coretemp")
	if err != nil {
		logger.Debug().Err(err).Str("fallback", DefaultCoretempDir).Msg("Cannot locate coretemp hwmon")
		return DefaultCoretempDir
	}
	return found
}
