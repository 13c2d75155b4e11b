package applesmc

import (
	"fmt"
	"path/filepath"

	"github.com/bcl/mac-ctrl/endpoint"
	"github.com/bcl/mac-ctrl/modules"
	"github.com/rs/zerolog"
)

const (
	DefaultSMCDir = "/sys/devices/platform/applesmc.768"
	ledsDir       = "/sys/class/leds"
	backlightDir  = "/sys/class/backlight"
)

// Profile holds what differs between Apple models using the applesmc driver.
type Profile struct {
	// FanFloor is the lowest fan speed accepted, in RPM.
	FanFloor int
	// KeyboardLED is the LED class name of the keyboard backlight, empty when
	// the model has no controllable one.
	KeyboardLED string
	Backlight   string
}

var (
	MacBookPro11 = Profile{FanFloor: 2000, KeyboardLED: "smc::kbd_backlight", Backlight: "intel_backlight"}
	MacBookAir6  = Profile{FanFloor: 1200, KeyboardLED: "smc::kbd_backlight", Backlight: "intel_backlight"}
	MacBookPro5  = Profile{FanFloor: 2000, Backlight: "nvidia_backlight"}
)

type AppleSMCModule struct {
	modules.DefaultModule
	Config  AppleSMCConfig
	profile Profile

	sensors  *endpoint.Sensors
	fans     *endpoint.Fans
	keyboard endpoint.Endpoint
	display  endpoint.Endpoint
}

type AppleSMCConfig struct {
	SMCDir       string `mapstructure:"smc-dir" validate:"required"`
	HwmonRoot    string `mapstructure:"hwmon-root" validate:"required"`
	CoretempDir  string `mapstructure:"coretemp-dir"`
	KeyboardDir  string `mapstructure:"keyboard-dir"`
	DisplayDir   string `mapstructure:"display-dir" validate:"required"`
	FanFloor     int    `mapstructure:"fan-floor" validate:"gte=0"`
	FanClip      bool   `mapstructure:"fan-clip"`
	KeyboardClip bool   `mapstructure:"keyboard-clip"`
	DisplayClip  bool   `mapstructure:"display-clip"`
}

func New(profile Profile) modules.Module {
	return &AppleSMCModule{profile: profile}
}

func (m *AppleSMCModule) defaults() AppleSMCConfig {
	config := AppleSMCConfig{
		SMCDir:       DefaultSMCDir,
		HwmonRoot:    modules.DefaultHwmonRoot,
		DisplayDir:   filepath.Join(backlightDir, m.profile.Backlight),
		FanFloor:     m.profile.FanFloor,
		KeyboardClip: true,
		DisplayClip:  true,
	}
	if m.profile.KeyboardLED != "" {
		config.KeyboardDir = filepath.Join(ledsDir, m.profile.KeyboardLED)
	}
	return config
}

func (m *AppleSMCModule) Init(config map[string]interface{}, logger zerolog.Logger) error {
	m.Config = m.defaults()
	err := modules.Validate(config, &m.Config)
	if err != nil {
		return fmt.Errorf("error validating %q module configuration: %w", "applesmc", err)
	}
	logger = logger.With().Str("scope", "applesmc").Logger()

	m.sensors = endpoint.NewSensors(modules.CoretempDir(m.Config.CoretempDir, m.Config.HwmonRoot, logger))
	m.fans = endpoint.NewFans(m.Config.SMCDir, m.Config.FanFloor, m.Config.FanClip, logger)
	m.display = endpoint.NewDisplay(m.Config.DisplayDir, m.Config.DisplayClip, logger)
	if m.Config.KeyboardDir != "" {
		m.keyboard = endpoint.NewKeyboard(m.Config.KeyboardDir, m.Config.KeyboardClip, logger)
	} else {
		m.keyboard = m.DefaultModule.Keyboard()
	}

	logger.Debug().
		Str("smc", m.Config.SMCDir).
		Str("keyboard", m.Config.KeyboardDir).
		Str("display", m.Config.DisplayDir).
		Int("fan_floor", m.Config.FanFloor).
		Msg("Module initialized")
	return nil
}

func (m *AppleSMCModule) Temperatures() *endpoint.Sensors {
	return m.sensors
}

func (m *AppleSMCModule) Fans() *endpoint.Fans {
	return m.fans
}

func (m *AppleSMCModule) Keyboard() endpoint.Endpoint {
	return m.keyboard
}

func (m *AppleSMCModule) Display() endpoint.Endpoint {
	return m.display
}
