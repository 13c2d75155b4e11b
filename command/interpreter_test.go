package command_test

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/bcl/mac-ctrl/command"
	"github.com/bcl/mac-ctrl/endpoint"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEndpoint keeps its value in memory. react, when set, plays the
// hardware controller and decides what is read back after a write.
type fakeEndpoint struct {
	kind      endpoint.Kind
	current   int
	min       int
	max       int
	clip      bool
	readOnly  bool
	unsupport bool
	getErr    error
	react     func(written int) int

	writes []int
}

func (f *fakeEndpoint) Kind() endpoint.Kind {
	if f.kind == "" {
		return endpoint.KindDisplay
	}
	return f.kind
}
func (f *fakeEndpoint) Supported() bool { return !f.unsupport }
func (f *fakeEndpoint) Writable() bool  { return !f.readOnly }
func (f *fakeEndpoint) Clip() bool      { return f.clip }
func (f *fakeEndpoint) Min() (int, error) {
	return f.min, nil
}
func (f *fakeEndpoint) Max() (int, error) {
	return f.max, nil
}
func (f *fakeEndpoint) Get() (int, error) {
	return f.current, f.getErr
}
func (f *fakeEndpoint) Set(v int) (int, error) {
	f.writes = append(f.writes, v)
	f.current = v
	if f.react != nil {
		f.current = f.react(v)
	}
	return f.current, nil
}

func newInterpreter() *command.Interpreter {
	return command.New(zerolog.Nop())
}

func TestResolve(t *testing.T) {
	tests := []struct {
		input      string
		clip       bool
		wantValue  int
		wantStatus command.Status
	}{
		{input: "100", clip: true, wantValue: 100, wantStatus: command.StatusApplied},
		{input: "200", clip: true, wantValue: 200, wantStatus: command.StatusApplied},
		{input: "10", clip: true, wantValue: 10, wantStatus: command.StatusApplied},
		{input: "50%", clip: true, wantValue: 100, wantStatus: command.StatusApplied},
		{input: "33%", clip: true, wantValue: 66, wantStatus: command.StatusApplied},
		{input: "10+", clip: true, wantValue: 60, wantStatus: command.StatusApplied},
		{input: "10-", clip: true, wantValue: 40, wantStatus: command.StatusApplied},
		{input: "10%+", clip: true, wantValue: 70, wantStatus: command.StatusApplied},
		{input: "10%-", clip: true, wantValue: 30, wantStatus: command.StatusApplied},
		{input: "250", clip: true, wantValue: 200, wantStatus: command.StatusClipped},
		{input: "101%", clip: true, wantValue: 200, wantStatus: command.StatusClipped},
		{input: "5", clip: true, wantValue: 10, wantStatus: command.StatusClipped},
		{input: "0%", clip: true, wantValue: 10, wantStatus: command.StatusClipped},
		{input: "60-", clip: true, wantValue: 10, wantStatus: command.StatusClipped},
		{input: "200+", clip: true, wantValue: 200, wantStatus: command.StatusClipped},
		{input: "250", clip: false, wantValue: 50, wantStatus: command.StatusRejected},
		{input: "5", clip: false, wantValue: 50, wantStatus: command.StatusRejected},
		{input: "90%+", clip: false, wantValue: 50, wantStatus: command.StatusRejected},
		{input: "45-", clip: false, wantValue: 50, wantStatus: command.StatusRejected},
		{input: "40-", clip: false, wantValue: 10, wantStatus: command.StatusApplied},
	}
	for _, tt := range tests {
		t.Run(tt.input+"/clip="+strconv.FormatBool(tt.clip), func(t *testing.T) {
			ep := &fakeEndpoint{current: 50, min: 10, max: 200, clip: tt.clip}

			res, err := newInterpreter().Resolve(tt.input, ep)
			require.NoError(t, err)
			assert.Equal(t, tt.wantValue, res.Value)
			assert.Equal(t, tt.wantStatus, res.Status)
			assert.Empty(t, ep.writes, "resolve never writes")
		})
	}
}

func TestResolveClipsToBoundsForAnyOvershoot(t *testing.T) {
	for _, k := range []int{1, 2, 17, 1000} {
		ep := &fakeEndpoint{current: 50, min: 10, max: 200, clip: true}

		res, err := newInterpreter().Resolve(strconv.Itoa(200+k), ep)
		require.NoError(t, err)
		assert.Equal(t, 200, res.Value)

		if 10-k >= 0 {
			res, err = newInterpreter().Resolve(strconv.Itoa(10-k), ep)
			require.NoError(t, err)
			assert.Equal(t, 10, res.Value)
		}

		res, err = newInterpreter().Resolve(strconv.Itoa(40+k)+"-", ep)
		require.NoError(t, err)
		assert.Equal(t, 10, res.Value)
	}
}

func TestResolveTruncatesOnceAtTheEnd(t *testing.T) {
	ep := &fakeEndpoint{current: 10, min: 1, max: 255, clip: true}

	res, err := newInterpreter().Resolve("50%", ep)
	require.NoError(t, err)
	assert.Equal(t, 127.5, res.Target)
	assert.Equal(t, 127, res.Value)

	// 10 + 127.5, not 10 + 127
	res, err = newInterpreter().Resolve("50%+", ep)
	require.NoError(t, err)
	assert.Equal(t, 137.5, res.Target)
	assert.Equal(t, 137, res.Value)

	res, err = newInterpreter().Resolve("1%", ep)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Value)
}

func TestApplyRejectedLeavesEndpointUntouched(t *testing.T) {
	ep := &fakeEndpoint{current: 50, min: 10, max: 200}

	for _, input := range []string{"201", "9", "151+", "41-", "200%"} {
		res, err := newInterpreter().Apply(input, ep)
		require.NoError(t, err)
		assert.Equal(t, command.StatusRejected, res.Status)
		assert.Equal(t, 50, res.Current)

		current, err := ep.Get()
		require.NoError(t, err)
		assert.Equal(t, 50, current)
	}
	assert.Empty(t, ep.writes)
}

func TestApplyRelativeRoundTrip(t *testing.T) {
	ep := &fakeEndpoint{current: 50, min: 10, max: 200}
	interp := newInterpreter()

	res, err := interp.Apply("10+", ep)
	require.NoError(t, err)
	assert.Equal(t, 60, res.Current)

	res, err = interp.Apply("10-", ep)
	require.NoError(t, err)
	assert.Equal(t, 50, res.Current)
	assert.Equal(t, []int{60, 50}, ep.writes)
}

func TestApplyRelativeRoundTripBrokenByBound(t *testing.T) {
	ep := &fakeEndpoint{current: 195, min: 10, max: 200, clip: true}
	interp := newInterpreter()

	_, err := interp.Apply("10+", ep)
	require.NoError(t, err)
	res, err := interp.Apply("10-", ep)
	require.NoError(t, err)
	assert.Equal(t, 190, res.Current)
}

func TestApplyReturnsReadBackValue(t *testing.T) {
	// the controller never lets the value drop under 80
	ep := &fakeEndpoint{current: 100, min: 10, max: 200, react: func(v int) int { return max(v, 80) }}

	res, err := newInterpreter().Apply("40", ep)
	require.NoError(t, err)
	assert.Equal(t, command.StatusApplied, res.Status)
	assert.Equal(t, 40, res.Value)
	assert.Equal(t, 80, res.Current)
}

func TestApplyMalformedCommand(t *testing.T) {
	ep := &fakeEndpoint{current: 50, min: 10, max: 200, clip: true}

	_, err := newInterpreter().Apply("abc", ep)
	assert.ErrorIs(t, err, command.ErrParse)
	assert.Empty(t, ep.writes)
	assert.Equal(t, 50, ep.current)
}

func TestApplyReadOnlyAndUnsupported(t *testing.T) {
	readOnly := &fakeEndpoint{kind: endpoint.KindTemperature, current: 45, readOnly: true}
	res, err := newInterpreter().Apply("50", readOnly)
	require.NoError(t, err)
	assert.Equal(t, command.StatusReadOnly, res.Status)
	assert.Equal(t, 45, res.Current)
	assert.Empty(t, readOnly.writes)

	res, err = newInterpreter().Apply("50", endpoint.Unsupported(endpoint.KindKeyboard))
	require.NoError(t, err)
	assert.Equal(t, command.StatusUnsupported, res.Status)

	// a malformed command is still an error on an unsupported endpoint
	_, err = newInterpreter().Apply("x", endpoint.Unsupported(endpoint.KindKeyboard))
	assert.ErrorIs(t, err, command.ErrParse)
}

func TestApplyReadFailure(t *testing.T) {
	ioErr := errors.New("no such device")
	ep := &fakeEndpoint{min: 10, max: 200, getErr: ioErr}

	_, err := newInterpreter().Apply("10+", ep)
	assert.ErrorIs(t, err, ioErr)
	assert.Empty(t, ep.writes)
}

func writeAttr(t *testing.T, dir, name string, value int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(strconv.Itoa(value)+"\n"), 0o644))
}

func TestKeyboardPercentAdjust(t *testing.T) {
	dir := t.TempDir()
	writeAttr(t, dir, "brightness", 10)
	writeAttr(t, dir, "max_brightness", 255)
	kbd := endpoint.NewKeyboard(dir, true, zerolog.Nop())

	res, err := newInterpreter().Apply("50%+", kbd)
	require.NoError(t, err)
	assert.Equal(t, command.StatusApplied, res.Status)
	assert.Equal(t, 137, res.Current)
}

func TestDisplayClipsToFivePercent(t *testing.T) {
	dir := t.TempDir()
	writeAttr(t, dir, "brightness", 60)
	writeAttr(t, dir, "max_brightness", 100)
	display := endpoint.NewDisplay(dir, true, zerolog.Nop())

	res, err := newInterpreter().Apply("2", display)
	require.NoError(t, err)
	assert.Equal(t, command.StatusClipped, res.Status)
	assert.Equal(t, 5, res.Value)
	assert.Equal(t, 5, res.Current)
}

func TestPercentOfEvenMax(t *testing.T) {
	dir := t.TempDir()
	writeAttr(t, dir, "brightness", 60)
	writeAttr(t, dir, "max_brightness", 200)
	display := endpoint.NewDisplay(dir, true, zerolog.Nop())

	res, err := newInterpreter().Resolve("50%", display)
	require.NoError(t, err)
	assert.Equal(t, 100, res.Value)

	res, err = newInterpreter().Resolve("33%", display)
	require.NoError(t, err)
	assert.Equal(t, 66, res.Value)
}

func smcDir(t *testing.T, speeds ...int) string {
	t.Helper()
	dir := t.TempDir()
	for i, speed := range speeds {
		id := strconv.Itoa(i + 1)
		writeAttr(t, dir, "fan"+id+"_input", speed)
		writeAttr(t, dir, "fan"+id+"_min", 2000)
		writeAttr(t, dir, "fan"+id+"_max", 6000)
	}
	return dir
}

func TestApplyFans(t *testing.T) {
	dir := smcDir(t, 2500, 2700, 2900)
	fans := endpoint.NewFans(dir, 2000, false, zerolog.Nop())

	// relative commands are resolved against the first fan
	res, states, err := newInterpreter().ApplyFans("500+", fans)
	require.NoError(t, err)
	assert.Equal(t, command.StatusApplied, res.Status)
	assert.Equal(t, 3000, res.Value)
	require.Len(t, states, 3)
	for _, state := range states {
		assert.Equal(t, 3000, state.Min)
	}
	// read back, not the requested value
	assert.Equal(t, 2500, res.Current)
}

func TestApplyFansRejected(t *testing.T) {
	dir := smcDir(t, 2500, 2500)
	fans := endpoint.NewFans(dir, 2000, false, zerolog.Nop())

	res, states, err := newInterpreter().ApplyFans("1000", fans)
	require.NoError(t, err)
	assert.Equal(t, command.StatusRejected, res.Status)
	assert.Empty(t, states)

	got, err := os.ReadFile(filepath.Join(dir, "fan1_min"))
	require.NoError(t, err)
	assert.Equal(t, "2000\n", string(got))
}

func TestApplyFansWithoutFans(t *testing.T) {
	res, states, err := newInterpreter().ApplyFans("3000", endpoint.NoFans())
	require.NoError(t, err)
	assert.Equal(t, command.StatusUnsupported, res.Status)
	assert.Empty(t, states)
}

func TestResolveFractionAboveMaxIsNotClipped(t *testing.T) {
	ep := &fakeEndpoint{current: 128, min: 1, max: 255, clip: false}

	res, err := newInterpreter().Resolve("50%+", ep)
	require.NoError(t, err)
	assert.Equal(t, 255.5, res.Target)
	assert.Equal(t, 255, res.Value)
	assert.Equal(t, command.StatusApplied, res.Status)
}

func TestApplyFansWithDifferentMaximums(t *testing.T) {
	readMin := func(t *testing.T, dir string, id int) string {
		t.Helper()
		b, err := os.ReadFile(filepath.Join(dir, "fan"+strconv.Itoa(id)+"_min"))
		require.NoError(t, err)
		return string(b)
	}
	newDir := func(t *testing.T) string {
		t.Helper()
		dir := smcDir(t, 2500, 2500)
		writeAttr(t, dir, "fan2_max", 5800)
		return dir
	}

	t.Run("reject", func(t *testing.T) {
		dir := newDir(t)
		res, states, err := newInterpreter().ApplyFans("5900", endpoint.NewFans(dir, 2000, false, zerolog.Nop()))
		require.NoError(t, err)
		assert.Equal(t, command.StatusRejected, res.Status)
		assert.Empty(t, states)
		assert.Equal(t, "2000\n", readMin(t, dir, 1))
		assert.Equal(t, "2000\n", readMin(t, dir, 2))
	})

	t.Run("clip", func(t *testing.T) {
		dir := newDir(t)
		res, states, err := newInterpreter().ApplyFans("5900", endpoint.NewFans(dir, 2000, true, zerolog.Nop()))
		require.NoError(t, err)
		assert.Equal(t, command.StatusClipped, res.Status)
		assert.Equal(t, 5800, res.Value)
		assert.Len(t, states, 2)
		assert.Equal(t, "5800\n", readMin(t, dir, 1))
		assert.Equal(t, "5800\n", readMin(t, dir, 2))
	})

	t.Run("percent of the lowest maximum", func(t *testing.T) {
		dir := newDir(t)
		res, _, err := newInterpreter().ApplyFans("100%", endpoint.NewFans(dir, 2000, false, zerolog.Nop()))
		require.NoError(t, err)
		assert.Equal(t, command.StatusApplied, res.Status)
		assert.Equal(t, 5800, res.Value)
		assert.Equal(t, "5800\n", readMin(t, dir, 1))
	})
}
