package endpoint_test

import (
	"path/filepath"
	"testing"

	"github.com/bcl/mac-ctrl/endpoint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSensorsReadings(t *testing.T) {
	dir := t.TempDir()
	writeAttr(t, dir, "name", "coretemp")
	writeAttr(t, dir, "temp1_input", "45999")
	writeAttr(t, dir, "temp1_label", "Package id 0")
	writeAttr(t, dir, "temp2_input", "52000")
	writeAttr(t, dir, "temp3_input", "38000")
	writeAttr(t, dir, "temp3_crit", "100000")

	sensors := endpoint.NewSensors(dir)
	readings, err := sensors.Readings()
	require.NoError(t, err)
	assert.Equal(t, []endpoint.Reading{
		{ID: 1, Label: "Package id 0", Celsius: 45},
		{ID: 2, Celsius: 52},
		{ID: 3, Celsius: 38},
	}, readings)

	hottest, err := sensors.Max()
	require.NoError(t, err)
	assert.Equal(t, 52, hottest)
}

func TestSensorIsReadOnly(t *testing.T) {
	dir := t.TempDir()
	writeAttr(t, dir, "temp1_input", "61000")
	sensor := endpoint.NewSensors(dir).Sensor(1)

	assert.Equal(t, endpoint.KindTemperature, sensor.Kind())
	assert.False(t, sensor.Writable())

	v, err := sensor.Get()
	require.NoError(t, err)
	assert.Equal(t, 61, v)

	_, err = sensor.Max()
	assert.ErrorIs(t, err, endpoint.ErrNoBound)
	_, err = sensor.Set(10)
	assert.ErrorIs(t, err, endpoint.ErrReadOnly)
}

func TestNoSensors(t *testing.T) {
	sensors := endpoint.NoSensors()
	assert.False(t, sensors.Supported())

	readings, err := sensors.Readings()
	require.NoError(t, err)
	assert.Empty(t, readings)

	_, err = sensors.Max()
	assert.ErrorIs(t, err, endpoint.ErrUnsupported)
}

func TestFindHwmon(t *testing.T) {
	root := t.TempDir()
	writeAttr(t, filepath.Join(root, "hwmon0"), "name", "acpitz")
	writeAttr(t, filepath.Join(root, "hwmon1"), "name", "applesmc")
	writeAttr(t, filepath.Join(root, "hwmon2"), "name", "coretemp")

	dir, err := endpoint.FindHwmon(root, "coretemp")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "hwmon2"), dir)

	_, err = endpoint.FindHwmon(root, "k10temp")
	assert.Error(t, err)
}
