package generic

import (
	"fmt"

	"github.com/bcl/mac-ctrl/endpoint"
	"github.com/bcl/mac-ctrl/modules"
	"github.com/rs/zerolog"
)

const DefaultDisplayDir = "/sys/class/backlight/acpi_video0"

// GenericModule covers machines without an SMC: only temperatures and the
// display backlight are available.
type GenericModule struct {
	modules.DefaultModule
	Config GenericConfig

	sensors *endpoint.Sensors
	display endpoint.Endpoint
}

type GenericConfig struct {
	HwmonRoot   string `mapstructure:"hwmon-root" validate:"required"`
	CoretempDir string `mapstructure:"coretemp-dir"`
	DisplayDir  string `mapstructure:"display-dir" validate:"required"`
	DisplayClip bool   `mapstructure:"display-clip"`
}

func New() modules.Module {
	return &GenericModule{}
}

func (m *GenericModule) Init(config map[string]interface{}, logger zerolog.Logger) error {
	m.Config = GenericConfig{
		HwmonRoot:   modules.DefaultHwmonRoot,
		DisplayDir:  DefaultDisplayDir,
		DisplayClip: true,
	}
	err := modules.Validate(config, &m.Config)
	if err != nil {
		return fmt.Errorf("error validating %q module configuration: %w", "generic", err)
	}
	logger = logger.With().Str("scope", "generic").Logger()

	m.sensors = endpoint.NewSensors(modules.CoretempDir(m.Config.CoretempDir, m.Config.HwmonRoot, logger))
	m.display = endpoint.NewDisplay(m.Config.DisplayDir, m.Config.DisplayClip, logger)
	return nil
}

func (m *GenericModule) Temperatures() *endpoint.Sensors {
	return m.sensors
}

func (m *GenericModule) Display() endpoint.Endpoint {
	return m.display
}
