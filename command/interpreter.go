package command

import (
	"math"

	"github.com/bcl/mac-ctrl/endpoint"
	"github.com/rs/zerolog"
)

type Status string

const (
	StatusApplied     Status = "applied"
	StatusClipped     Status = "clipped"
	StatusRejected    Status = "rejected"
	StatusReadOnly    Status = "read-only"
	StatusUnsupported Status = "unsupported"
)

// Accepted is true when the value should be written to the endpoint.
func (s Status) Accepted() bool {
	return s == StatusApplied || s == StatusClipped
}

type Resolution struct {
	Command Command
	// Target is the value computed before bound checks and truncation.
	Target float64
	// Value is the absolute value to write, or the untouched current value
	// when the command was rejected.
	Value int
	// Current is the last value read from the endpoint. After Apply it holds
	// the value read back once the write completed.
	Current int
	Status  Status
}

type Interpreter struct {
	logger zerolog.Logger
}

func New(logger zerolog.Logger) *Interpreter {
	return &Interpreter{logger: logger}
}

// Resolve turns a command into an absolute value within the endpoint bounds.
// It never writes. A rejected, read-only or unsupported outcome is not an
// error; only a malformed command or a failed read is.
func (in *Interpreter) Resolve(input string, ep endpoint.Endpoint) (Resolution, error) {
	cmd, err := Parse(input)
	if err != nil {
		return Resolution{}, err
	}
	res := Resolution{Command: cmd}
	logger := in.logger.With().Str("command", input).Str("endpoint", string(ep.Kind())).Logger()

	if !ep.Supported() {
		res.Status = StatusUnsupported
		logger.Debug().Msg("Endpoint not supported, nothing to do")
		return res, nil
	}
	if !ep.Writable() {
		current, err := ep.Get()
		if err != nil {
			return res, err
		}
		res.Value, res.Current, res.Status = current, current, StatusReadOnly
		logger.Debug().Int("current", current).Msg("Endpoint is read-only, nothing to do")
		return res, nil
	}

	max, err := ep.Max()
	if err != nil {
		return res, err
	}
	min, err := ep.Min()
	if err != nil {
		return res, err
	}

	haveCurrent := false
	readCurrent := func() error {
		if haveCurrent {
			return nil
		}
		current, err := ep.Get()
		if err != nil {
			return err
		}
		res.Current, haveCurrent = current, true
		return nil
	}

	amount := float64(cmd.N)
	if cmd.Percent {
		amount = float64(cmd.N) * float64(max) / 100
	}
	res.Target = amount
	if cmd.Relative() {
		if err := readCurrent(); err != nil {
			return res, err
		}
		res.Target = float64(res.Current) + float64(cmd.Sign)*amount
	}

	// a fraction above max still truncates to max, so compare what would be written
	value := math.Trunc(res.Target)
	var bound int
	outOfRange := true
	switch {
	case value > float64(max):
		bound = max
	case value < float64(min):
		bound = min
	default:
		outOfRange = false
	}

	switch {
	case !outOfRange:
		res.Value, res.Status = int(value), StatusApplied
	case ep.Clip():
		res.Value, res.Status = bound, StatusClipped
	default:
		if err := readCurrent(); err != nil {
			return res, err
		}
		res.Value, res.Status = res.Current, StatusRejected
	}

	logger.Debug().
		Int("min", min).
		Int("max", max).
		Float64("target", res.Target).
		Int("value", res.Value).
		Str("status", string(res.Status)).
		Msg("Resolved command")
	return res, nil
}

// Apply resolves the command and writes the result. Current holds the value
// read back from the hardware, which may differ from Value.
func (in *Interpreter) Apply(input string, ep endpoint.Endpoint) (Resolution, error) {
	res, err := in.Resolve(input, ep)
	if err != nil || !res.Status.Accepted() {
		return res, err
	}
	current, err := ep.Set(res.Value)
	if err != nil {
		return res, err
	}
	res.Current = current
	return res, nil
}

// ApplyFans resolves the command against the speed range every fan accepts
// and writes the same value to every fan. Relative commands start from the
// lowest-id fan. Fans are written independently: one failure does not undo
// the others, and the states of the fans written successfully are returned
// along with the joined errors.
func (in *Interpreter) ApplyFans(input string, fans *endpoint.Fans) (Resolution, []endpoint.FanState, error) {
	group, err := fans.Group()
	if err != nil {
		return Resolution{}, nil, err
	}

	res, err := in.Resolve(input, group)
	if err != nil || !res.Status.Accepted() {
		return res, nil, err
	}
	states, err := fans.SetAll(res.Value)
	if len(states) > 0 {
		res.Current = states[0].Current
	}
	return res, states, err
}
