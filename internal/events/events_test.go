package events

import (
	"testing"

	"heatpump2mqtt/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotToUpdateEvents(t *testing.T) {
	require := require.New(t)

	registers := domain.DefaultRegisterMap()
	st := domain.NewDeviceState(registers)
	st.ApplyRead(domain.SignalIndoorTemp, 215)
	st.ApplyRead(domain.SignalThreeWayValve, 1)
	st.SetMode(domain.ModeDomesticHotWater)

	evs := SnapshotToUpdateEvents(st.Snapshot(), registers)
	require.Len(evs, 4)

	temp, ok := evs[0].(SensorUpdateEvent)
	require.True(ok)
	require.Equal(domain.SIGNAL_ID_INDOOR_TEMP, temp.Id)
	require.InDelta(21.5, temp.Value, 0.001)
	require.EqualValues(1, temp.Decimals)

	valve, ok := evs[1].(BinarySensorUpdateEvent)
	require.True(ok)
	require.True(valve.Value)

	mode, ok := evs[2].(TextSensorUpdateEvent)
	require.True(ok)
	require.Equal(OPERATING_MODE_DHW_TEXT, mode.Value)

	sw, ok := evs[3].(SwitchSensorUpdateEvent)
	require.True(ok)
	require.Equal(SWITCH_ID_HOT_WATER_MODE, sw.Id)
	require.True(sw.Value)
}

func TestHeatPumpEntities(t *testing.T) {
	assert := assert.New(t)

	bridge := BridgeDevice("heatpump2mqtt")
	dev := HeatPumpDevice("/dev/ttyUSB0", 1, bridge)
	assert.Equal(bridge.Id, dev.ViaDevice)
	assert.NotEqual(dev.Id, HeatPumpDevice("/dev/ttyUSB1", 1, bridge).Id)

	sensors := HeatPumpSensors(dev, domain.DefaultRegisterMap())
	assert.Len(sensors, len(domain.DefaultRegisterMap().ReadSet())+1)
	for _, s := range sensors {
		assert.NotEmpty(s.Name, s.Id)
		if s.Id == domain.SIGNAL_ID_MODE_STATUS {
			assert.Equal(SENSOR_TYPE_BINARY, s.SensorType)
		}
		if s.Id == domain.SIGNAL_ID_FLOW_RATE {
			assert.Equal(UNIT_LITRES_PER_MINUTE, s.UnitOfMeasurement)
		}
	}

	buttons := HeatPumpButtons(dev)
	assert.Len(buttons, 7)
	for _, b := range buttons {
		_, ok := domain.ParseCommandName(b.Id)
		assert.True(ok, b.Id)
	}
}
