package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegisterMapSplitsReadAndWrite(t *testing.T) {
	assert := assert.New(t)

	m := DefaultRegisterMap()

	ch := m.Entry(SignalCHSetpoint)
	assert.EqualValues(REG_READ_CH_SETPOINT, *ch.Read)
	assert.EqualValues(REG_WRITE_CH_SETPOINT, *ch.Write)
	assert.NotEqual(*ch.Read, *ch.Write)

	assert.EqualValues(87, *m.Entry(SignalFlowRate).Read)
	assert.EqualValues(52, *m.Entry(SignalModeStatus).Read)

	enable := m.Entry(SignalCHModeEnable)
	assert.False(enable.Readable())
	assert.True(enable.WritableAddr())

	assert.Equal([]Signal{
		SignalIndoorTemp, SignalOutdoorTemp, SignalFlowTemp, SignalReturnTemp, SignalHotWaterTemp,
		SignalFlowRate, SignalThreeWayValve, SignalModeStatus,
		SignalCHSetpoint, SignalHotWaterSetpoint, SignalFlowSetpoint,
	}, m.ReadSet())
	assert.Equal([]Signal{
		SignalCHSetpoint, SignalHotWaterSetpoint, SignalFlowSetpoint,
		SignalCHModeEnable, SignalHotWaterModeEnable,
	}, m.WriteSet())
	assert.Equal(GroupAll.Signals(), m.ReadSet())
}

func TestRegisterMapOverrides(t *testing.T) {
	require := require.New(t)

	base := DefaultRegisterMap()
	read := uint16(140)
	write := uint16(159)

	m, err := base.WithOverrides(map[string]AddressOverride{
		SIGNAL_ID_INDOOR_TEMP: {Read: &read},
		SIGNAL_ID_CH_SETPOINT: {Write: &write},
	})
	require.NoError(err)
	require.EqualValues(140, *m.Entry(SignalIndoorTemp).Read)
	require.EqualValues(159, *m.Entry(SignalCHSetpoint).Write)
	require.EqualValues(REG_READ_CH_SETPOINT, *m.Entry(SignalCHSetpoint).Read)

	// base is untouched
	require.EqualValues(REG_READ_INDOOR_TEMP, *base.Entry(SignalIndoorTemp).Read)

	// pointers are not shared with the caller
	read = 1
	require.EqualValues(140, *m.Entry(SignalIndoorTemp).Read)
}

func TestRegisterMapOverridesRejected(t *testing.T) {
	assert := assert.New(t)

	a := uint16(1)
	_, err := DefaultRegisterMap().WithOverrides(map[string]AddressOverride{"boiler_pressure": {Read: &a}})
	assert.Error(err)

	_, err = DefaultRegisterMap().WithOverrides(map[string]AddressOverride{SIGNAL_ID_CH_MODE_ENABLE: {Read: &a}})
	assert.Error(err)

	_, err = DefaultRegisterMap().WithOverrides(map[string]AddressOverride{SIGNAL_ID_OUTDOOR_TEMP: {Write: &a}})
	assert.Error(err)
}

func TestSignalNames(t *testing.T) {
	assert := assert.New(t)
	for _, s := range AllSignals() {
		got, ok := SignalByName(s.String())
		assert.True(ok)
		assert.Equal(s, got)
	}
	_, ok := SignalByName("nope")
	assert.False(ok)
	assert.False(signalCount.Valid())
}

func TestScaleEncodeDecode(t *testing.T) {
	assert := assert.New(t)

	assert.EqualValues(0xFFFF, ScaleDeciCelsius.Encode(-1))
	assert.EqualValues(-1, ScaleDeciCelsius.Decode(ScaleDeciCelsius.Encode(-1)))
	assert.EqualValues(1, ScaleBool.Encode(5))
	assert.EqualValues(0, ScaleBool.Encode(0))
	assert.InDelta(-0.5, ScaleDeciCelsius.Float(-5), 0.0001)
	assert.InDelta(45.0, ScaleCelsius.Float(45), 0.0001)
	assert.EqualValues(1, ScaleLitresPerMin.Decimals())
	assert.EqualValues(40000, ScaleLitresPerMin.Decode(40000))
	assert.EqualValues(40000, ScaleLitresPerMin.Encode(ScaleLitresPerMin.Decode(40000)))
}

func TestScaleBounds(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(Range{Min: -32768, Max: 32767}, ScaleDeciCelsius.Bounds())
	assert.Equal(Range{Min: -32768, Max: 32767}, ScaleCelsius.Bounds())
	assert.Equal(Range{Min: 0, Max: 65535}, ScaleLitresPerMin.Bounds())
	assert.Equal(Range{Min: 0, Max: 1}, ScaleBool.Bounds())
	assert.False(ScaleDeciCelsius.Bounds().Contains(32768))
}
