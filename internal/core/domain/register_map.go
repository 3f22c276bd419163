package domain

import (
	"fmt"
	"sort"
	"strings"
)

// Default holding register layout of the unit. Read and write addresses of
// the same datapoint differ on this device.
const (
	REG_READ_INDOOR_TEMP        uint16 = 40
	REG_READ_OUTDOOR_TEMP       uint16 = 41
	REG_READ_FLOW_TEMP          uint16 = 42
	REG_READ_RETURN_TEMP        uint16 = 43
	REG_READ_HOT_WATER_TEMP     uint16 = 44
	REG_READ_MODE_STATUS        uint16 = 52
	REG_READ_CH_SETPOINT        uint16 = 58
	REG_READ_HOT_WATER_SETPOINT uint16 = 60
	REG_READ_FLOW_SETPOINT      uint16 = 62
	REG_READ_FLOW_RATE          uint16 = 87
	REG_READ_THREE_WAY_VALVE    uint16 = 89

	REG_WRITE_CH_SETPOINT           uint16 = 59
	REG_WRITE_HOT_WATER_SETPOINT    uint16 = 61
	REG_WRITE_FLOW_SETPOINT         uint16 = 63
	REG_WRITE_CH_MODE_ENABLE        uint16 = 70
	REG_WRITE_HOT_WATER_MODE_ENABLE uint16 = 71
)

// Range is an inclusive interval in mirror units.
type Range struct {
	Min int32
	Max int32
}

func (r Range) Contains(v int32) bool {
	return v >= r.Min && v <= r.Max
}

// RegisterEntry describes where a signal lives on the bus.
type RegisterEntry struct {
	Signal Signal
	Read   *uint16
	Write  *uint16
	Scale  Scale
}

func (e RegisterEntry) Readable() bool {
	return e.Read != nil
}

func (e RegisterEntry) WritableAddr() bool {
	return e.Write != nil
}

// AddressOverride replaces the default addresses of one signal. Nil fields
// keep the default.
type AddressOverride struct {
	Read  *uint16
	Write *uint16
}

// RegisterMap is the static association between signals and registers.
// It is immutable after construction.
type RegisterMap struct {
	entries [signalCount]RegisterEntry
}

func addr(a uint16) *uint16 {
	return &a
}

// DefaultRegisterMap returns the built-in register layout.
func DefaultRegisterMap() RegisterMap {
	var m RegisterMap
	set := func(e RegisterEntry) {
		m.entries[e.Signal] = e
	}

	set(RegisterEntry{Signal: SignalIndoorTemp, Read: addr(REG_READ_INDOOR_TEMP), Scale: ScaleDeciCelsius})
	set(RegisterEntry{Signal: SignalOutdoorTemp, Read: addr(REG_READ_OUTDOOR_TEMP), Scale: ScaleDeciCelsius})
	set(RegisterEntry{Signal: SignalFlowTemp, Read: addr(REG_READ_FLOW_TEMP), Scale: ScaleCelsius})
	set(RegisterEntry{Signal: SignalReturnTemp, Read: addr(REG_READ_RETURN_TEMP), Scale: ScaleCelsius})
	set(RegisterEntry{Signal: SignalHotWaterTemp, Read: addr(REG_READ_HOT_WATER_TEMP), Scale: ScaleCelsius})
	set(RegisterEntry{Signal: SignalFlowRate, Read: addr(REG_READ_FLOW_RATE), Scale: ScaleLitresPerMin})
	set(RegisterEntry{Signal: SignalThreeWayValve, Read: addr(REG_READ_THREE_WAY_VALVE), Scale: ScaleBool})
	set(RegisterEntry{Signal: SignalModeStatus, Read: addr(REG_READ_MODE_STATUS), Scale: ScaleBool})

	set(RegisterEntry{Signal: SignalCHSetpoint, Read: addr(REG_READ_CH_SETPOINT), Write: addr(REG_WRITE_CH_SETPOINT), Scale: ScaleDeciCelsius})
	set(RegisterEntry{Signal: SignalHotWaterSetpoint, Read: addr(REG_READ_HOT_WATER_SETPOINT), Write: addr(REG_WRITE_HOT_WATER_SETPOINT), Scale: ScaleCelsius})
	set(RegisterEntry{Signal: SignalFlowSetpoint, Read: addr(REG_READ_FLOW_SETPOINT), Write: addr(REG_WRITE_FLOW_SETPOINT), Scale: ScaleCelsius})
	set(RegisterEntry{Signal: SignalCHModeEnable, Write: addr(REG_WRITE_CH_MODE_ENABLE), Scale: ScaleBool})
	set(RegisterEntry{Signal: SignalHotWaterModeEnable, Write: addr(REG_WRITE_HOT_WATER_MODE_ENABLE), Scale: ScaleBool})

	return m
}

// Entry returns the register entry of a signal.
func (m RegisterMap) Entry(s Signal) RegisterEntry {
	return m.entries[s]
}

// ReadSet returns the readable signals in the fixed refresh order.
func (m RegisterMap) ReadSet() []Signal {
	var out []Signal
	for _, e := range m.entries {
		if e.Readable() {
			out = append(out, e.Signal)
		}
	}
	return out
}

// WriteSet returns the writable signals in declaration order.
func (m RegisterMap) WriteSet() []Signal {
	var out []Signal
	for _, e := range m.entries {
		if e.WritableAddr() {
			out = append(out, e.Signal)
		}
	}
	return out
}

// WithOverrides returns a copy of m with addresses replaced. Keys are signal
// identifiers; an unknown identifier, or a read override on a write-only
// signal (and vice versa), is rejected.
func (m RegisterMap) WithOverrides(overrides map[string]AddressOverride) (RegisterMap, error) {
	out := m

	names := make([]string, 0, len(overrides))
	for name := range overrides {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		o := overrides[name]
		s, ok := SignalByName(strings.ToLower(name))
		if !ok {
			return m, fmt.Errorf("register map: unknown signal %q", name)
		}
		e := out.entries[s]
		if o.Read != nil {
			if e.Read == nil {
				return m, fmt.Errorf("register map: signal %q has no read address", name)
			}
			e.Read = addr(*o.Read)
		}
		if o.Write != nil {
			if e.Write == nil {
				return m, fmt.Errorf("register map: signal %q has no write address", name)
			}
			e.Write = addr(*o.Write)
		}
		out.entries[s] = e
	}
	return out, nil
}
