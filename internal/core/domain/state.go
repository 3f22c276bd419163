package domain

import "fmt"

// OperatingMode is the mutually exclusive operating state of the unit.
type OperatingMode uint8

const (
	ModeCentralHeating OperatingMode = iota
	ModeDomesticHotWater
)

func (m OperatingMode) String() string {
	switch m {
	case ModeCentralHeating:
		return "central_heating"
	case ModeDomesticHotWater:
		return "domestic_hot_water"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// EnableSignal is the register that turns this mode on.
func (m OperatingMode) EnableSignal() Signal {
	if m == ModeDomesticHotWater {
		return SignalHotWaterModeEnable
	}
	return SignalCHModeEnable
}

// Other returns the opposite mode.
func (m OperatingMode) Other() OperatingMode {
	if m == ModeDomesticHotWater {
		return ModeCentralHeating
	}
	return ModeDomesticHotWater
}

// SetpointKind identifies a user adjustable setpoint.
type SetpointKind uint8

const (
	SetpointCentralHeating SetpointKind = iota
	SetpointHotWater
	SetpointFlow

	setpointKindCount
)

func (k SetpointKind) String() string {
	switch k {
	case SetpointCentralHeating:
		return "central_heating"
	case SetpointHotWater:
		return "hot_water"
	case SetpointFlow:
		return "flow"
	default:
		return fmt.Sprintf("setpoint(%d)", uint8(k))
	}
}

// SetpointSpec binds a setpoint to the sensor it tracks. Adjustments are
// accepted only while the Reference reading lies within Valid.
type SetpointSpec struct {
	Kind      SetpointKind
	Setpoint  Signal
	Reference Signal
	Valid     Range
	Step      int32
}

var setpointSpecs = [setpointKindCount]SetpointSpec{
	SetpointCentralHeating: {
		Kind:      SetpointCentralHeating,
		Setpoint:  SignalCHSetpoint,
		Reference: SignalIndoorTemp,
		Valid:     Range{Min: 0, Max: 400}, // 0.0..40.0 °C
		Step:      5,                       // 0.5 °C
	},
	SetpointHotWater: {
		Kind:      SetpointHotWater,
		Setpoint:  SignalHotWaterSetpoint,
		Reference: SignalHotWaterTemp,
		Valid:     Range{Min: 0, Max: 80},
		Step:      1,
	},
	SetpointFlow: {
		Kind:      SetpointFlow,
		Setpoint:  SignalFlowSetpoint,
		Reference: SignalFlowTemp,
		Valid:     Range{Min: 0, Max: 80},
		Step:      1,
	},
}

// Spec returns the static description of a setpoint kind.
func (k SetpointKind) Spec() SetpointSpec {
	return setpointSpecs[k]
}

func setpointKindFor(s Signal) (SetpointKind, bool) {
	for _, spec := range setpointSpecs {
		if spec.Setpoint == s {
			return spec.Kind, true
		}
	}
	return 0, false
}

// DeviceState is the in-memory mirror of the unit. It is owned by a single
// goroutine; observers receive copies through Snapshot.
type DeviceState struct {
	registers RegisterMap
	values    [signalCount]int32
	seen      [signalCount]bool
	setpoints [setpointKindCount]int32
	mode      OperatingMode
}

// NewDeviceState creates a zeroed mirror decoding with the given map.
func NewDeviceState(registers RegisterMap) *DeviceState {
	return &DeviceState{registers: registers}
}

// ApplyRead decodes raw according to the signal's scale and stores it.
// Decoding the mode status register also updates the operating mode, and a
// setpoint read-back refreshes the intended setpoint.
//
// Applying a signal without a read address is a programming error and
// panics: the readable set is fixed by the register map.
func (st *DeviceState) ApplyRead(s Signal, raw uint16) {
	e := st.registers.Entry(s)
	if !s.Valid() || !e.Readable() {
		panic(fmt.Sprintf("domain: no decode mapping for %s", s))
	}
	v := e.Scale.Decode(raw)
	st.values[s] = v
	st.seen[s] = true

	switch s {
	case SignalModeStatus:
		if v != 0 {
			st.mode = ModeDomesticHotWater
		} else {
			st.mode = ModeCentralHeating
		}
	default:
		if kind, ok := setpointKindFor(s); ok {
			st.setpoints[kind] = v
		}
	}
}

// Value returns the last decoded value of s and whether it was ever read.
func (st *DeviceState) Value(s Signal) (int32, bool) {
	return st.values[s], st.seen[s]
}

// Setpoint returns the intended setpoint of a kind.
func (st *DeviceState) Setpoint(kind SetpointKind) int32 {
	return st.setpoints[kind]
}

// Mode returns the last confirmed operating mode.
func (st *DeviceState) Mode() OperatingMode {
	return st.mode
}

// ProposeSetpoint computes setpoint+delta without touching the mirror. It
// fails with ErrOutOfRange unless the reference sensor has been read and lies
// within its valid range, or when the result does not fit the setpoint
// register.
func (st *DeviceState) ProposeSetpoint(kind SetpointKind, delta int32) (int32, error) {
	sp := kind.Spec()
	ref, seen := st.values[sp.Reference], st.seen[sp.Reference]
	if !seen {
		return 0, fmt.Errorf("%s setpoint: %s not read yet: %w", kind, sp.Reference, ErrOutOfRange)
	}
	if !sp.Valid.Contains(ref) {
		return 0, fmt.Errorf("%s setpoint: %s reads %d, valid %d..%d: %w",
			kind, sp.Reference, ref, sp.Valid.Min, sp.Valid.Max, ErrOutOfRange)
	}
	current := st.setpoints[kind]
	next := current + delta
	if !st.registers.Entry(sp.Setpoint).Scale.Bounds().Contains(next) {
		return 0, fmt.Errorf("%s setpoint: %d%+d does not fit the register: %w", kind, current, delta, ErrOutOfRange)
	}
	return next, nil
}

// CommitSetpoint records a setpoint the unit acknowledged.
func (st *DeviceState) CommitSetpoint(kind SetpointKind, value int32) {
	st.setpoints[kind] = value
}

// AdjustSetpoint proposes and commits in one step. On rejection nothing
// changes.
func (st *DeviceState) AdjustSetpoint(kind SetpointKind, delta int32) (int32, bool) {
	next, err := st.ProposeSetpoint(kind, delta)
	if err != nil {
		return 0, false
	}
	st.CommitSetpoint(kind, next)
	return next, true
}

// SetMode records a confirmed mode.
func (st *DeviceState) SetMode(mode OperatingMode) {
	st.mode = mode
}

// Reading is one decoded value in a Snapshot.
type Reading struct {
	Signal Signal
	Raw    int32
	Scale  Scale
	Valid  bool
}

// Value returns the reading in engineering units.
func (r Reading) Value() float64 {
	return r.Scale.Float(r.Raw)
}

// SetpointReading is one intended setpoint in a Snapshot.
type SetpointReading struct {
	Kind  SetpointKind
	Raw   int32
	Scale Scale
}

func (r SetpointReading) Value() float64 {
	return r.Scale.Float(r.Raw)
}

// Snapshot is an immutable copy of the mirror.
type Snapshot struct {
	Readings  []Reading
	Setpoints []SetpointReading
	Mode      OperatingMode
}

// Snapshot copies the mirror for observers.
func (st *DeviceState) Snapshot() Snapshot {
	var snap Snapshot
	for _, s := range st.registers.ReadSet() {
		snap.Readings = append(snap.Readings, Reading{
			Signal: s,
			Raw:    st.values[s],
			Scale:  st.registers.Entry(s).Scale,
			Valid:  st.seen[s],
		})
	}
	for k := SetpointKind(0); k < setpointKindCount; k++ {
		snap.Setpoints = append(snap.Setpoints, SetpointReading{
			Kind:  k,
			Raw:   st.setpoints[k],
			Scale: st.registers.Entry(k.Spec().Setpoint).Scale,
		})
	}
	snap.Mode = st.mode
	return snap
}

// Reading looks up a signal in the snapshot.
func (s Snapshot) Reading(sig Signal) (Reading, bool) {
	for _, r := range s.Readings {
		if r.Signal == sig {
			return r, true
		}
	}
	return Reading{}, false
}

// AllSetpointKinds returns every setpoint kind.
func AllSetpointKinds() []SetpointKind {
	return []SetpointKind{SetpointCentralHeating, SetpointHotWater, SetpointFlow}
}
