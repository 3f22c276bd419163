package domain

import "fmt"

// SignalGroup is a named subset of readable signals fetched by a Get command.
type SignalGroup uint8

const (
	GroupTemperatures SignalGroup = iota
	GroupStatus
	GroupSetpoints
	GroupAll
)

func (g SignalGroup) String() string {
	switch g {
	case GroupTemperatures:
		return "temperatures"
	case GroupStatus:
		return "status"
	case GroupSetpoints:
		return "setpoints"
	case GroupAll:
		return "all"
	default:
		return fmt.Sprintf("group(%d)", uint8(g))
	}
}

// Signals returns the members of the group in their published read order.
func (g SignalGroup) Signals() []Signal {
	switch g {
	case GroupTemperatures:
		return []Signal{SignalIndoorTemp, SignalOutdoorTemp, SignalFlowTemp, SignalReturnTemp, SignalHotWaterTemp}
	case GroupStatus:
		return []Signal{SignalModeStatus, SignalThreeWayValve, SignalFlowRate}
	case GroupSetpoints:
		return []Signal{SignalCHSetpoint, SignalHotWaterSetpoint, SignalFlowSetpoint}
	case GroupAll:
		return []Signal{
			SignalIndoorTemp, SignalOutdoorTemp, SignalFlowTemp, SignalReturnTemp, SignalHotWaterTemp,
			SignalFlowRate, SignalThreeWayValve, SignalModeStatus,
			SignalCHSetpoint, SignalHotWaterSetpoint, SignalFlowSetpoint,
		}
	default:
		return nil
	}
}

// Instruction is the payload of a Set command.
type Instruction uint8

const (
	InstructionCHUp Instruction = iota
	InstructionCHDown
	InstructionHotWaterUp
	InstructionHotWaterDown
	InstructionFlowUp
	InstructionFlowDown
	InstructionModeCentralHeating
	InstructionModeHotWater
)

func (i Instruction) String() string {
	switch i {
	case InstructionCHUp:
		return "ch_setpoint_up"
	case InstructionCHDown:
		return "ch_setpoint_down"
	case InstructionHotWaterUp:
		return "hot_water_setpoint_up"
	case InstructionHotWaterDown:
		return "hot_water_setpoint_down"
	case InstructionFlowUp:
		return "flow_setpoint_up"
	case InstructionFlowDown:
		return "flow_setpoint_down"
	case InstructionModeCentralHeating:
		return "mode_central_heating"
	case InstructionModeHotWater:
		return "mode_hot_water"
	default:
		return fmt.Sprintf("instruction(%d)", uint8(i))
	}
}

// Adjustment returns the setpoint kind and direction of a setpoint
// instruction. ok is false for mode switches.
func (i Instruction) Adjustment() (kind SetpointKind, direction int16, ok bool) {
	switch i {
	case InstructionCHUp:
		return SetpointCentralHeating, 1, true
	case InstructionCHDown:
		return SetpointCentralHeating, -1, true
	case InstructionHotWaterUp:
		return SetpointHotWater, 1, true
	case InstructionHotWaterDown:
		return SetpointHotWater, -1, true
	case InstructionFlowUp:
		return SetpointFlow, 1, true
	case InstructionFlowDown:
		return SetpointFlow, -1, true
	default:
		return 0, 0, false
	}
}

// TargetMode returns the mode requested by a mode switch instruction.
func (i Instruction) TargetMode() (OperatingMode, bool) {
	switch i {
	case InstructionModeCentralHeating:
		return ModeCentralHeating, true
	case InstructionModeHotWater:
		return ModeDomesticHotWater, true
	default:
		return 0, false
	}
}

// CommandKind discriminates Command.
type CommandKind uint8

const (
	CommandGet CommandKind = iota
	CommandSet
)

// Command is an immutable request delivered to the control loop.
type Command struct {
	Kind        CommandKind
	Group       SignalGroup
	Instruction Instruction
}

func Get(group SignalGroup) Command {
	return Command{Kind: CommandGet, Group: group}
}

func Set(instruction Instruction) Command {
	return Command{Kind: CommandSet, Instruction: instruction}
}

func (c Command) String() string {
	if c.Kind == CommandGet {
		return fmt.Sprintf("get(%s)", c.Group)
	}
	return fmt.Sprintf("set(%s)", c.Instruction)
}

// ParseCommandName resolves commands by their textual identifier, e.g.
// "get_temperatures" or "ch_setpoint_up".
func ParseCommandName(name string) (Command, bool) {
	for g := GroupTemperatures; g <= GroupAll; g++ {
		if name == "get_"+g.String() {
			return Get(g), true
		}
	}
	for i := InstructionCHUp; i <= InstructionModeHotWater; i++ {
		if name == i.String() {
			return Set(i), true
		}
	}
	return Command{}, false
}
