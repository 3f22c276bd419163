package domain

import (
	"fmt"
	"math"
)

// Signal is a named physical quantity of the heat pump. It is a closed
// enumeration: register addresses live in the RegisterMap, never here.
type Signal uint8

const (
	SignalIndoorTemp Signal = iota
	SignalOutdoorTemp
	SignalFlowTemp
	SignalReturnTemp
	SignalHotWaterTemp
	SignalFlowRate
	SignalThreeWayValve
	SignalModeStatus
	SignalCHSetpoint
	SignalHotWaterSetpoint
	SignalFlowSetpoint
	SignalCHModeEnable
	SignalHotWaterModeEnable

	signalCount
)

// signal names, used for config keys, MQTT topics and logs
const (
	SIGNAL_ID_INDOOR_TEMP           = "indoor_temperature"
	SIGNAL_ID_OUTDOOR_TEMP          = "outdoor_temperature"
	SIGNAL_ID_FLOW_TEMP             = "flow_temperature"
	SIGNAL_ID_RETURN_TEMP           = "return_temperature"
	SIGNAL_ID_HOT_WATER_TEMP        = "hot_water_temperature"
	SIGNAL_ID_FLOW_RATE             = "flow_rate"
	SIGNAL_ID_THREE_WAY_VALVE       = "three_way_valve"
	SIGNAL_ID_MODE_STATUS           = "mode_status"
	SIGNAL_ID_CH_SETPOINT           = "ch_setpoint"
	SIGNAL_ID_HOT_WATER_SETPOINT    = "hot_water_setpoint"
	SIGNAL_ID_FLOW_SETPOINT         = "flow_setpoint"
	SIGNAL_ID_CH_MODE_ENABLE        = "ch_mode_enable"
	SIGNAL_ID_HOT_WATER_MODE_ENABLE = "hot_water_mode_enable"
)

var signalNames = [signalCount]string{
	SignalIndoorTemp:         SIGNAL_ID_INDOOR_TEMP,
	SignalOutdoorTemp:        SIGNAL_ID_OUTDOOR_TEMP,
	SignalFlowTemp:           SIGNAL_ID_FLOW_TEMP,
	SignalReturnTemp:         SIGNAL_ID_RETURN_TEMP,
	SignalHotWaterTemp:       SIGNAL_ID_HOT_WATER_TEMP,
	SignalFlowRate:           SIGNAL_ID_FLOW_RATE,
	SignalThreeWayValve:      SIGNAL_ID_THREE_WAY_VALVE,
	SignalModeStatus:         SIGNAL_ID_MODE_STATUS,
	SignalCHSetpoint:         SIGNAL_ID_CH_SETPOINT,
	SignalHotWaterSetpoint:   SIGNAL_ID_HOT_WATER_SETPOINT,
	SignalFlowSetpoint:       SIGNAL_ID_FLOW_SETPOINT,
	SignalCHModeEnable:       SIGNAL_ID_CH_MODE_ENABLE,
	SignalHotWaterModeEnable: SIGNAL_ID_HOT_WATER_MODE_ENABLE,
}

func (s Signal) String() string {
	if s >= signalCount {
		return fmt.Sprintf("signal(%d)", uint8(s))
	}
	return signalNames[s]
}

// Valid reports whether s is a member of the enumeration.
func (s Signal) Valid() bool {
	return s < signalCount
}

// SignalByName resolves a signal from its identifier.
func SignalByName(name string) (Signal, bool) {
	for i, n := range signalNames {
		if n == name {
			return Signal(i), true
		}
	}
	return 0, false
}

// AllSignals returns every signal in declaration order.
func AllSignals() []Signal {
	out := make([]Signal, 0, signalCount)
	for s := Signal(0); s < signalCount; s++ {
		out = append(out, s)
	}
	return out
}

// Scale is the raw encoding of a register value.
type Scale uint8

const (
	ScaleCelsius      Scale = iota // whole degrees, signed 16 bit
	ScaleDeciCelsius               // tenths of a degree, signed 16 bit
	ScaleLitresPerMin              // unsigned flow, tenths of l/min
	ScaleBool                      // 0 = false, anything else = true
)

func (s Scale) String() string {
	switch s {
	case ScaleCelsius:
		return "celsius"
	case ScaleDeciCelsius:
		return "deci_celsius"
	case ScaleLitresPerMin:
		return "deci_litres_per_min"
	case ScaleBool:
		return "bool"
	default:
		return fmt.Sprintf("scale(%d)", uint8(s))
	}
}

// Decode converts a raw register word into the mirror representation.
// Temperatures are sign extended so that 0xFFFF reads as -1. Flow rate is
// unsigned and keeps the whole word.
func (s Scale) Decode(raw uint16) int32 {
	switch s {
	case ScaleBool:
		if raw != 0 {
			return 1
		}
		return 0
	case ScaleLitresPerMin:
		return int32(raw)
	default:
		return int32(int16(raw))
	}
}

// Bounds is the interval of mirror values a register word can carry.
func (s Scale) Bounds() Range {
	switch s {
	case ScaleBool:
		return Range{Min: 0, Max: 1}
	case ScaleLitresPerMin:
		return Range{Min: 0, Max: math.MaxUint16}
	default:
		return Range{Min: math.MinInt16, Max: math.MaxInt16}
	}
}

// Encode converts a mirror value into a raw register word. Values outside
// Bounds are truncated to 16 bits.
func (s Scale) Encode(value int32) uint16 {
	if s == ScaleBool {
		if value != 0 {
			return 1
		}
		return 0
	}
	return uint16(value)
}

// Float returns the value in engineering units (°C, l/min, 0/1).
func (s Scale) Float(value int32) float64 {
	switch s {
	case ScaleDeciCelsius, ScaleLitresPerMin:
		return float64(value) / 10
	default:
		return float64(value)
	}
}

// Decimals is the number of decimals worth printing for this scale.
func (s Scale) Decimals() uint {
	switch s {
	case ScaleDeciCelsius, ScaleLitresPerMin:
		return 1
	default:
		return 0
	}
}
