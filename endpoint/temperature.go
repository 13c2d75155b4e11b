package endpoint

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

var tempPattern = regexp.MustCompile(`^temp(\d+)_input$`)

// Sensor is one hwmon temperature input, read in whole degrees Celsius.
type Sensor struct {
	id    int
	input Attribute
	label Attribute
}

func (s *Sensor) ID() int              { return s.id }
func (s *Sensor) Kind() Kind           { return KindTemperature }
func (s *Sensor) Supported() bool      { return true }
func (s *Sensor) Writable() bool       { return false }
func (s *Sensor) Clip() bool           { return false }
func (s *Sensor) Min() (int, error)    { return 0, ErrNoBound }
func (s *Sensor) Max() (int, error)    { return 0, ErrNoBound }
func (s *Sensor) Set(int) (int, error) { return 0, ErrReadOnly }

// Get converts the milli-degree reading, truncating the fraction.
func (s *Sensor) Get() (int, error) {
	milli, err := s.input.Read()
	if err != nil {
		return 0, err
	}
	return milli / 1000, nil
}

// Label returns the hwmon label (e.g. "Core 0"), or an empty string when the
// driver does not provide one.
func (s *Sensor) Label() string {
	label, err := s.label.ReadString()
	if err != nil {
		return ""
	}
	return label
}

type Reading struct {
	ID      int    `json:"id"`
	Label   string `json:"label,omitempty"`
	Celsius int    `json:"celsius"`
}

// Sensors is the set of temperature inputs of one hwmon directory, discovered
// on first use.
type Sensors struct {
	dir string

	ids        []int
	discovered bool
}

func NewSensors(dir string) *Sensors {
	return &Sensors{dir: dir}
}

func NoSensors() *Sensors {
	return &Sensors{discovered: true}
}

func (ss *Sensors) Supported() bool {
	return ss.dir != ""
}

func (ss *Sensors) IDs() ([]int, error) {
	if ss.discovered {
		return ss.ids, nil
	}
	ids, err := Enumerate(ss.dir, tempPattern)
	if err != nil {
		return nil, fmt.Errorf("error discovering temperature sensors: %w", err)
	}
	ss.ids, ss.discovered = ids, true
	return ids, nil
}

func (ss *Sensors) Sensor(id int) *Sensor {
	return &Sensor{
		id:    id,
		input: Attr(ss.dir, fmt.Sprintf("temp%d_input", id)),
		label: Attr(ss.dir, fmt.Sprintf("temp%d_label", id)),
	}
}

func (ss *Sensors) Readings() ([]Reading, error) {
	ids, err := ss.IDs()
	if err != nil {
		return nil, err
	}
	readings := make([]Reading, 0, len(ids))
	for _, id := range ids {
		s := ss.Sensor(id)
		celsius, err := s.Get()
		if err != nil {
			return nil, err
		}
		readings = append(readings, Reading{ID: id, Label: s.Label(), Celsius: celsius})
	}
	return readings, nil
}

// Max returns the hottest current reading.
func (ss *Sensors) Max() (int, error) {
	readings, err := ss.Readings()
	if err != nil {
		return 0, err
	}
	if len(readings) == 0 {
		return 0, ErrUnsupported
	}
	hottest := readings[0].Celsius
	for _, r := range readings[1:] {
		hottest = max(hottest, r.Celsius)
	}
	return hottest, nil
}

// FindHwmon returns the hwmon directory under root whose name attribute
// equals name.
func FindHwmon(root string, name string) (string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return "", fmt.Errorf("error listing %q: %w", root, err)
	}
	for _, e := range entries {
		dir := filepath.Join(root, e.Name())
		got, err := Attr(dir, "name").ReadString()
		if err != nil {
			continue
		}
		if got == name {
			return dir, nil
		}
	}
	return "", fmt.Errorf("no hwmon named %q under %q: %w", name, root, os.ErrNotExist)
}
