package endpoint

import (
	"errors"
	"fmt"
	"regexp"
	"sort"

	"github.com/rs/zerolog"
)

var fanPattern = regexp.MustCompile(`^fan(\d+)_input$`)

// FanState is what the SMC reports for one fan after the last read.
type FanState struct {
	ID      int `json:"id"`
	Current int `json:"current"`
	Min     int `json:"min"`
	Max     int `json:"max"`
}

// Fan is one SMC fan. Writes go to fanN_min, a lower speed limit: the SMC
// keeps driving the fan itself and may run it faster than requested.
type Fan struct {
	id       int
	current  Attribute
	minSpeed Attribute
	max      Attribute
	floor    int
	clip     bool
	logger   zerolog.Logger
}

func (f *Fan) ID() int         { return f.id }
func (f *Fan) Kind() Kind      { return KindFan }
func (f *Fan) Supported() bool { return true }
func (f *Fan) Writable() bool  { return true }
func (f *Fan) Clip() bool      { return f.clip }

func (f *Fan) Get() (int, error) {
	return f.current.Read()
}

func (f *Fan) Max() (int, error) {
	return f.max.Read()
}

// Min is the model floor, not the fanN_min value reported by the SMC.
func (f *Fan) Min() (int, error) {
	max, err := f.Max()
	if err != nil {
		return 0, err
	}
	return checkMin(FixedMin(f.floor), max)
}

// State reads current, reported min and max again.
func (f *Fan) State() (FanState, error) {
	state := FanState{ID: f.id}
	var err error
	if state.Current, err = f.current.Read(); err != nil {
		return state, err
	}
	if state.Min, err = f.minSpeed.Read(); err != nil {
		return state, err
	}
	if state.Max, err = f.max.Read(); err != nil {
		return state, err
	}
	return state, nil
}

// Apply writes the minimum speed hint and returns the refreshed state.
func (f *Fan) Apply(value int) (FanState, error) {
	if err := writeChecked(f.minSpeed, value, f.logger); err != nil {
		return FanState{ID: f.id}, err
	}
	return f.State()
}

func (f *Fan) Set(value int) (int, error) {
	state, err := f.Apply(value)
	return state.Current, err
}

// Fans is the set of fans found under an SMC directory. Ids are discovered on
// first use and kept for the life of the process.
type Fans struct {
	dir    string
	floor  int
	clip   bool
	logger zerolog.Logger

	ids        []int
	discovered bool
}

func NewFans(dir string, floor int, clip bool, logger zerolog.Logger) *Fans {
	return &Fans{
		dir:    dir,
		floor:  floor,
		clip:   clip,
		logger: logger.With().Str("endpoint", string(KindFan)).Logger(),
	}
}

// NoFans is the collection of a model without controllable fans.
func NoFans() *Fans {
	return &Fans{discovered: true}
}

func (fs *Fans) Supported() bool {
	return fs.dir != ""
}

func (fs *Fans) IDs() ([]int, error) {
	if fs.discovered {
		return fs.ids, nil
	}
	ids, err := Enumerate(fs.dir, fanPattern)
	if err != nil {
		return nil, fmt.Errorf("error discovering fans: %w", err)
	}
	fs.ids, fs.discovered = ids, true
	fs.logger.Debug().Ints("ids", ids).Msg("Discovered fans")
	return ids, nil
}

func (fs *Fans) Fan(id int) *Fan {
	return &Fan{
		id:       id,
		current:  Attr(fs.dir, fmt.Sprintf("fan%d_input", id)),
		minSpeed: Attr(fs.dir, fmt.Sprintf("fan%d_min", id)),
		max:      Attr(fs.dir, fmt.Sprintf("fan%d_max", id)),
		floor:    fs.floor,
		clip:     fs.clip,
		logger:   fs.logger.With().Int("fan", id).Logger(),
	}
}

// Lookup returns the fan with the given id if it was discovered.
func (fs *Fans) Lookup(id int) (*Fan, error) {
	ids, err := fs.IDs()
	if err != nil {
		return nil, err
	}
	for _, known := range ids {
		if known == id {
			return fs.Fan(id), nil
		}
	}
	if !fs.Supported() {
		return nil, ErrUnsupported
	}
	return nil, fmt.Errorf("no fan with id %d (available: %v)", id, ids)
}

func (fs *Fans) All() ([]*Fan, error) {
	ids, err := fs.IDs()
	if err != nil {
		return nil, err
	}
	fans := make([]*Fan, 0, len(ids))
	for _, id := range ids {
		fans = append(fans, fs.Fan(id))
	}
	return fans, nil
}

func (fs *Fans) States() ([]FanState, error) {
	fans, err := fs.All()
	if err != nil {
		return nil, err
	}
	states := make([]FanState, 0, len(fans))
	for _, f := range fans {
		state, err := f.State()
		if err != nil {
			return nil, err
		}
		states = append(states, state)
	}
	return states, nil
}

// Speeds returns the distinct current speeds of all fans in ascending order.
func (fs *Fans) Speeds() ([]int, error) {
	fans, err := fs.All()
	if err != nil {
		return nil, err
	}
	seen := make(map[int]bool, len(fans))
	speeds := make([]int, 0, len(fans))
	for _, f := range fans {
		speed, err := f.Get()
		if err != nil {
			return nil, err
		}
		if !seen[speed] {
			seen[speed] = true
			speeds = append(speeds, speed)
		}
	}
	sort.Ints(speeds)
	return speeds, nil
}

// Group returns an endpoint standing for every fan at once. Its bounds are
// the range all fans accept, the highest floor up to the lowest maximum, and
// its current value is the lowest-id fan's.
func (fs *Fans) Group() (Endpoint, error) {
	fans, err := fs.All()
	if err != nil {
		return nil, err
	}
	if len(fans) == 0 {
		return Unsupported(KindFan), nil
	}
	return fanGroup(fans), nil
}

// SetAll writes value to every fan. A failing fan does not stop the others
// and nothing is rolled back; the returned states only cover the fans that
// were written successfully.
func (fs *Fans) SetAll(value int) ([]FanState, error) {
	fans, err := fs.All()
	if err != nil {
		return nil, err
	}
	if len(fans) == 0 {
		return nil, ErrUnsupported
	}
	return fanGroup(fans).apply(value)
}

type fanGroup []*Fan

func (g fanGroup) Kind() Kind      { return KindFan }
func (g fanGroup) Supported() bool { return true }
func (g fanGroup) Writable() bool  { return true }
func (g fanGroup) Clip() bool      { return g[0].Clip() }

func (g fanGroup) Get() (int, error) {
	return g[0].Get()
}

func (g fanGroup) Max() (int, error) {
	lowest := 0
	for i, f := range g {
		max, err := f.Max()
		if err != nil {
			return 0, fmt.Errorf("fan %d: %w", f.id, err)
		}
		if i == 0 || max < lowest {
			lowest = max
		}
	}
	return lowest, nil
}

func (g fanGroup) Min() (int, error) {
	upper, err := g.Max()
	if err != nil {
		return 0, err
	}
	highest := 0
	for _, f := range g {
		min, err := f.Min()
		if err != nil {
			return 0, fmt.Errorf("fan %d: %w", f.id, err)
		}
		highest = max(highest, min)
	}
	if highest > upper {
		return 0, fmt.Errorf("fans share no speed range: floor %d above maximum %d", highest, upper)
	}
	return highest, nil
}

func (g fanGroup) Set(value int) (int, error) {
	states, err := g.apply(value)
	if len(states) == 0 {
		return 0, err
	}
	return states[0].Current, err
}

func (g fanGroup) apply(value int) ([]FanState, error) {
	var errs []error
	states := make([]FanState, 0, len(g))
	for _, f := range g {
		state, err := f.Apply(value)
		if err != nil {
			errs = append(errs, fmt.Errorf("fan %d: %w", f.id, err))
			continue
		}
		states = append(states, state)
	}
	return states, errors.Join(errs...)
}
