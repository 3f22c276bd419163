package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"heatpump2mqtt/internal/core/domain"
	"heatpump2mqtt/internal/core/port"

	"go.uber.org/zap"
)

const (
	OUTCOME_OK           = "ok"
	OUTCOME_OUT_OF_RANGE = "out_of_range"
	OUTCOME_FAULT        = "fault"
)

// ControlLoopInstrument receives loop level measurements.
type ControlLoopInstrument struct {
	RecordCommand func(cmd domain.Command, outcome string)
	RecordRefresh func(elapsed time.Duration, err error)
}

type ControlLoopConfig struct {
	Registers      domain.RegisterMap
	TransactionGap time.Duration
	Instrument     *ControlLoopInstrument
}

// ControlLoop holds the bus and the mirror. It is not safe for concurrent
// use: a single owner alternates Refresh with at most one Step.
type ControlLoop struct {
	bus        port.Bus
	registers  domain.RegisterMap
	state      *domain.DeviceState
	pacer      *Pacer
	publishers []port.StatePublisher
	instrument *ControlLoopInstrument
	logger     *zap.Logger
}

func NewControlLoop(cfg ControlLoopConfig, bus port.Bus, logger *zap.Logger) *ControlLoop {
	return &ControlLoop{
		bus:        bus,
		registers:  cfg.Registers,
		state:      domain.NewDeviceState(cfg.Registers),
		pacer:      NewPacer(cfg.TransactionGap),
		instrument: cfg.Instrument,
		logger:     logger.With(zap.String("component", "control_loop")),
	}
}

func (l *ControlLoop) AddPublisher(p port.StatePublisher) {
	l.publishers = append(l.publishers, p)
}

func (l *ControlLoop) TransactionGap() time.Duration {
	return l.pacer.Gap()
}

// Snapshot copies the mirror. Only safe from the owner of the loop.
func (l *ControlLoop) Snapshot() domain.Snapshot {
	return l.state.Snapshot()
}

// Refresh reads every readable signal in the fixed order. The first fault
// aborts the refresh.
func (l *ControlLoop) Refresh(ctx context.Context) error {
	start := time.Now()
	err := l.readSignals(ctx, l.registers.ReadSet())
	if l.instrument != nil && l.instrument.RecordRefresh != nil {
		l.instrument.RecordRefresh(time.Since(start), err)
	}
	return err
}

// Step executes one command against the bus and the mirror. Rejected
// setpoint adjustments return an error wrapping domain.ErrOutOfRange; any
// other error is a transport fault or a context error.
func (l *ControlLoop) Step(ctx context.Context, cmd domain.Command) error {
	logger := l.logger.With(zap.Stringer("command", cmd))

	var err error
	switch cmd.Kind {
	case domain.CommandGet:
		err = l.readSignals(ctx, cmd.Group.Signals())
	case domain.CommandSet:
		if kind, dir, ok := cmd.Instruction.Adjustment(); ok {
			err = l.adjustSetpoint(ctx, kind, dir)
		} else if mode, ok := cmd.Instruction.TargetMode(); ok {
			err = l.switchMode(ctx, mode)
		} else {
			err = fmt.Errorf("unknown instruction %s", cmd.Instruction)
		}
	default:
		err = fmt.Errorf("unknown command kind %d", cmd.Kind)
	}

	outcome := OUTCOME_OK
	switch {
	case err == nil:
		logger.Info("command done")
	case errors.Is(err, domain.ErrOutOfRange):
		outcome = OUTCOME_OUT_OF_RANGE
		logger.Warn("command rejected", zap.Error(err))
	default:
		outcome = OUTCOME_FAULT
		logger.Error("command failed", zap.Error(err))
	}
	if l.instrument != nil && l.instrument.RecordCommand != nil {
		l.instrument.RecordCommand(cmd, outcome)
	}
	return err
}

// adjustSetpoint writes the proposed setpoint and commits it to the mirror
// only once the unit acknowledged the write.
func (l *ControlLoop) adjustSetpoint(ctx context.Context, kind domain.SetpointKind, direction int16) error {
	sp := kind.Spec()
	value, err := l.state.ProposeSetpoint(kind, int32(direction)*sp.Step)
	if err != nil {
		return err
	}
	if err := l.write(ctx, sp.Setpoint, value); err != nil {
		return err
	}
	l.state.CommitSetpoint(kind, value)
	return nil
}

// switchMode enables the target mode then disables the other one. Both
// writes are attempted and the mirror is updated regardless; a partial
// failure leaves device and mirror inconsistent and is returned as fatal.
func (l *ControlLoop) switchMode(ctx context.Context, mode domain.OperatingMode) error {
	enableErr := l.write(ctx, mode.EnableSignal(), 1)
	disableErr := l.write(ctx, mode.Other().EnableSignal(), 0)
	l.state.SetMode(mode)
	return errors.Join(enableErr, disableErr)
}

func (l *ControlLoop) readSignals(ctx context.Context, signals []domain.Signal) error {
	for _, s := range signals {
		if err := l.read(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (l *ControlLoop) read(ctx context.Context, s domain.Signal) error {
	entry := l.registers.Entry(s)
	if !entry.Readable() {
		return fmt.Errorf("signal %s has no read address", s)
	}
	address := *entry.Read
	if err := l.pacer.Wait(ctx); err != nil {
		return err
	}
	regs, err := l.bus.ReadRegisters(address, 1)
	if err == nil && len(regs) != 1 {
		err = fmt.Errorf("want 1 register, got %d", len(regs))
	}
	if err != nil {
		return &domain.TransportFault{Op: domain.TransportRead, Signal: s, Address: address, Err: err}
	}
	l.state.ApplyRead(s, regs[0])
	l.logger.Debug("read", zap.Stringer("signal", s), zap.Uint16("address", address), zap.Uint16("raw", regs[0]))
	return nil
}

func (l *ControlLoop) write(ctx context.Context, s domain.Signal, value int32) error {
	entry := l.registers.Entry(s)
	if !entry.WritableAddr() {
		return fmt.Errorf("signal %s has no write address", s)
	}
	address := *entry.Write
	raw := entry.Scale.Encode(value)
	if err := l.pacer.Wait(ctx); err != nil {
		return err
	}
	if err := l.bus.WriteRegister(address, raw); err != nil {
		return &domain.TransportFault{Op: domain.TransportWrite, Signal: s, Address: address, Err: err}
	}
	l.logger.Debug("write", zap.Stringer("signal", s), zap.Uint16("address", address), zap.Uint16("raw", raw))
	return nil
}

// Publish hands a snapshot of the mirror to every publisher.
func (l *ControlLoop) Publish() {
	if len(l.publishers) == 0 {
		return
	}
	snap := l.state.Snapshot()
	for _, p := range l.publishers {
		p.PublishState(snap)
	}
}
