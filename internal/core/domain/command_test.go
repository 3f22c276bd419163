package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCommandName(t *testing.T) {
	assert := assert.New(t)

	c, ok := ParseCommandName("get_temperatures")
	assert.True(ok)
	assert.Equal(Get(GroupTemperatures), c)

	c, ok = ParseCommandName("ch_setpoint_down")
	assert.True(ok)
	assert.Equal(Set(InstructionCHDown), c)

	c, ok = ParseCommandName("mode_hot_water")
	assert.True(ok)
	assert.Equal(Set(InstructionModeHotWater), c)

	_, ok = ParseCommandName("explode")
	assert.False(ok)
}

func TestInstructionClassification(t *testing.T) {
	assert := assert.New(t)

	kind, dir, ok := InstructionFlowDown.Adjustment()
	assert.True(ok)
	assert.Equal(SetpointFlow, kind)
	assert.EqualValues(-1, dir)

	_, _, ok = InstructionModeHotWater.Adjustment()
	assert.False(ok)

	mode, ok := InstructionModeHotWater.TargetMode()
	assert.True(ok)
	assert.Equal(ModeDomesticHotWater, mode)

	_, ok = InstructionCHUp.TargetMode()
	assert.False(ok)
}

func TestGroupSignalsAreReadable(t *testing.T) {
	m := DefaultRegisterMap()
	for _, g := range []SignalGroup{GroupTemperatures, GroupStatus, GroupSetpoints, GroupAll} {
		for _, s := range g.Signals() {
			assert.True(t, m.Entry(s).Readable(), "%s/%s", g, s)
		}
	}
}

func TestTransportFaultUnwraps(t *testing.T) {
	inner := assert.AnError
	err := error(&TransportFault{Op: TransportRead, Signal: SignalFlowRate, Address: 87, Err: inner})
	assert.ErrorIs(t, err, inner)
	assert.True(t, IsTransportFault(err))
	assert.Contains(t, err.Error(), "flow_rate")
}
