package endpoint

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

type Kind string

const (
	KindTemperature Kind = "temperature"
	KindFan         Kind = "fan"
	KindKeyboard    Kind = "keyboard"
	KindDisplay     Kind = "display"
)

var (
	ErrUnsupported = errors.New("not supported on this hardware")
	ErrReadOnly    = errors.New("endpoint is read-only")
	ErrNoBound     = errors.New("endpoint has no bounds")
)

// IsUnsupported reports whether err means the hardware lacks the control.
func IsUnsupported(err error) bool {
	return errors.Is(err, ErrUnsupported)
}

// Endpoint is one numeric hardware attribute. Every call reads the hardware
// again; nothing is cached between calls.
type Endpoint interface {
	Kind() Kind
	// Supported is false for the stub returned on hardware lacking the control.
	Supported() bool
	Writable() bool
	// Clip tells whether out-of-range values saturate (true) or are rejected.
	Clip() bool
	Get() (int, error)
	Min() (int, error)
	Max() (int, error)
	// Set writes value and returns the current value read back afterwards,
	// which may differ from the requested one.
	Set(value int) (int, error)
}

// MinPolicy computes the lowest accepted value given the current maximum.
type MinPolicy func(max int) (int, error)

func FixedMin(n int) MinPolicy {
	return func(int) (int, error) { return n, nil }
}

func PercentOfMax(percent int) MinPolicy {
	return func(max int) (int, error) { return max * percent / 100, nil }
}

// Bounded is an endpoint backed by a current and a max attribute.
type Bounded struct {
	kind    Kind
	current Attribute
	max     Attribute
	min     MinPolicy
	write   *Attribute
	clip    bool
	logger  zerolog.Logger
}

// NewBounded builds an endpoint; a nil write attribute makes it read-only.
func NewBounded(kind Kind, current, max Attribute, min MinPolicy, write *Attribute, clip bool, logger zerolog.Logger) *Bounded {
	return &Bounded{
		kind:    kind,
		current: current,
		max:     max,
		min:     min,
		write:   write,
		clip:    clip,
		logger:  logger.With().Str("endpoint", string(kind)).Logger(),
	}
}

// NewKeyboard returns a keyboard backlight under an LED class directory.
// Brightness 0 does not switch the backlight off on this hardware, so 1 is the floor.
func NewKeyboard(dir string, clip bool, logger zerolog.Logger) *Bounded {
	brightness := Attr(dir, "brightness")
	return NewBounded(KindKeyboard, brightness, Attr(dir, "max_brightness"), FixedMin(1), &brightness, clip, logger)
}

// NewDisplay returns a display backlight under a backlight class directory.
// Anything under 5% of max leaves the panel unreadable.
func NewDisplay(dir string, clip bool, logger zerolog.Logger) *Bounded {
	brightness := Attr(dir, "brightness")
	return NewBounded(KindDisplay, brightness, Attr(dir, "max_brightness"), PercentOfMax(5), &brightness, clip, logger)
}

func (b *Bounded) Kind() Kind      { return b.kind }
func (b *Bounded) Supported() bool { return true }
func (b *Bounded) Writable() bool  { return b.write != nil }
func (b *Bounded) Clip() bool      { return b.clip }

func (b *Bounded) Get() (int, error) {
	return b.current.Read()
}

func (b *Bounded) Max() (int, error) {
	return b.max.Read()
}

func (b *Bounded) Min() (int, error) {
	max, err := b.Max()
	if err != nil {
		return 0, err
	}
	return checkMin(b.min, max)
}

func (b *Bounded) Set(value int) (int, error) {
	if b.write == nil {
		return 0, fmt.Errorf("error setting %s: %w", b.kind, ErrReadOnly)
	}
	if err := writeChecked(*b.write, value, b.logger); err != nil {
		return 0, err
	}
	return b.Get()
}

func checkMin(policy MinPolicy, max int) (int, error) {
	if policy == nil {
		return 0, nil
	}
	min, err := policy(max)
	if err != nil {
		return 0, err
	}
	if min < 0 {
		min = 0
	}
	if min > max {
		return 0, fmt.Errorf("minimum %d is above maximum %d", min, max)
	}
	return min, nil
}

func writeChecked(attr Attribute, value int, logger zerolog.Logger) error {
	if !attr.Writable() {
		return fmt.Errorf("error writing %q: %w", attr.Path, os.ErrPermission)
	}
	logger.Debug().Str("path", attr.Path).Int("value", value).Msg("Writing attribute")
	return attr.Write(value)
}

type unsupported struct {
	kind Kind
}

// Unsupported returns the stub used for hardware that lacks a control.
func Unsupported(kind Kind) Endpoint {
	return unsupported{kind}
}

func (u unsupported) Kind() Kind         { return u.kind }
func (unsupported) Supported() bool      { return false }
func (unsupported) Writable() bool       { return false }
func (unsupported) Clip() bool           { return false }
func (unsupported) Get() (int, error)    { return 0, ErrUnsupported }
func (unsupported) Min() (int, error)    { return 0, ErrUnsupported }
func (unsupported) Max() (int, error)    { return 0, ErrUnsupported }
func (unsupported) Set(int) (int, error) { return 0, ErrUnsupported }
