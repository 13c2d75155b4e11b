package modules

import (
	"github.com/bcl/mac-ctrl/endpoint"
	"github.com/rs/zerolog"
)

// Module provides the endpoints of one hardware model.
type Module interface {
	Init(config map[string]interface{}, logger zerolog.Logger) error
	Temperatures() *endpoint.Sensors
	Fans() *endpoint.Fans
	Keyboard() endpoint.Endpoint
	Display() endpoint.Endpoint
}

// DefaultModule reports every control as unsupported. Modules embed it and
// override what their hardware has.
type DefaultModule struct{}

func (*DefaultModule) Init(config map[string]interface{}, logger zerolog.Logger) error {
	return nil
}

func (*DefaultModule) Temperatures() *endpoint.Sensors {
	return endpoint.NoSensors()
}

func (*DefaultModule) Fans() *endpoint.Fans {
	return endpoint.NoFans()
}

func (*DefaultModule) Keyboard() endpoint.Endpoint {
	return endpoint.Unsupported(endpoint.KindKeyboard)
}

func (*DefaultModule) Display() endpoint.Endpoint {
	return endpoint.Unsupported(endpoint.KindDisplay)
}

type State struct {
	Temperatures Result[[]endpoint.Reading]  `json:"temperatures"`
	Fans         Result[[]endpoint.FanState] `json:"fans"`
	Keyboard     Result[int]                 `json:"keyboard"`
	Display      Result[int]                 `json:"display"`
}

// ReadState reads every endpoint of the module once.
func ReadState(m Module) State {
	var state State

	sensors := m.Temperatures()
	if sensors.Supported() {
		state.Temperatures.Value, state.Temperatures.Err = sensors.Readings()
	} else {
		state.Temperatures.Err = endpoint.ErrUnsupported
	}

	fans := m.Fans()
	if fans.Supported() {
		state.Fans.Value, state.Fans.Err = fans.States()
	} else {
		state.Fans.Err = endpoint.ErrUnsupported
	}

	state.Keyboard.Value, state.Keyboard.Err = m.Keyboard().Get()
	state.Display.Value, state.Display.Err = m.Display().Get()
	return state
}
