package actor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"heatpump2mqtt/internal/core/domain"
	"heatpump2mqtt/internal/core/service"
	. "heatpump2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

const (
	CONTROL_LOOP_ACTOR_ID = "control_loop"
)

// HealthRequest is answered with a HealthResponse. It does not postpone the
// idle refresh.
type HealthRequest struct{}

func (HealthRequest) NotInfluenceReceiveTimeout() {}

type HealthResponse struct {
	Id      string
	Healthy bool
	State   string
}

// commandsClosed tells the loop that no producer is left.
type commandsClosed struct{}

// ControlLoopActor is the sole owner of the bus. Every message it handles
// ends with a full refresh, so refreshes alternate with at most one
// command. With an empty mailbox the receive timeout triggers a bare
// refresh every refresh interval.
type ControlLoopActor struct {
	loop            *service.ControlLoop
	refreshInterval time.Duration
	ctx             context.Context
	cancel          context.CancelFunc
	onFault         func(error)
	commandsOpen    bool
	healthy         bool
	failed          bool
	logger          *zap.Logger
}

// NewControlLoopActor builds the actor. ctx bounds every bus transaction;
// onFault is called once with the transport fault that stopped the loop.
func NewControlLoopActor(ctx context.Context, loop *service.ControlLoop, refreshInterval time.Duration, onFault func(error), logger *zap.Logger) *ControlLoopActor {
	ctx, cancel := context.WithCancel(ctx)
	return &ControlLoopActor{
		loop:            loop,
		refreshInterval: refreshInterval,
		ctx:             ctx,
		cancel:          cancel,
		onFault:         onFault,
		commandsOpen:    true,
		logger:          ActorLogger(CONTROL_LOOP_ACTOR_ID, logger),
	}
}

// ControlLoopProps spawns producer behind a bounded mailbox. Senders block
// while capacity commands are pending. The mailbox rounds capacity up to a
// power of two.
func ControlLoopProps(capacity int, producer func() *ControlLoopActor) *actor.Props {
	if capacity < 1 {
		capacity = 1
	}
	return actor.PropsFromProducer(func() actor.Actor { return producer() },
		actor.WithMailbox(actor.Bounded(capacity)))
}

func (state *ControlLoopActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Info("control loop started",
			zap.Duration("transactionGap", state.loop.TransactionGap()),
			zap.Duration("refreshInterval", state.refreshInterval))
		state.cycle(ctx, nil)
	case domain.Command:
		if state.failed {
			return
		}
		state.cycle(ctx, &msg)
	case *actor.ReceiveTimeout:
		if state.failed {
			return
		}
		state.cycle(ctx, nil)
	case commandsClosed:
		if state.commandsOpen {
			state.commandsOpen = false
			state.logger.Warn("command producers gone, continuing with periodic refresh only")
		}
	case HealthRequest:
		ctx.Respond(HealthResponse{
			Id:      CONTROL_LOOP_ACTOR_ID,
			Healthy: state.healthy,
			State:   state.stateName(),
		})
	case *actor.Stopping:
		state.cancel()
	case *actor.Stopped:
		state.logger.Info("control loop stopped")
	default:
		state.logger.Debug("control_loop@default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

// cycle executes cmd, if any, then refreshes the mirror and re-arms the idle
// refresh.
func (state *ControlLoopActor) cycle(ctx actor.Context, cmd *domain.Command) {
	if cmd != nil {
		// rejected adjustments leave bus and mirror untouched
		if err := state.loop.Step(state.ctx, *cmd); err != nil && !errors.Is(err, domain.ErrOutOfRange) {
			state.fail(ctx, err)
			return
		}
		state.loop.Publish()
	}
	if err := state.loop.Refresh(state.ctx); err != nil {
		state.fail(ctx, err)
		return
	}
	state.healthy = true
	state.loop.Publish()
	ctx.SetReceiveTimeout(state.refreshInterval)
}

func (state *ControlLoopActor) fail(ctx actor.Context, err error) {
	state.failed = true
	state.healthy = false
	ctx.CancelReceiveTimeout()
	if state.ctx.Err() == nil {
		state.logger.Error("control loop terminated", zap.Error(err))
		if state.onFault != nil {
			state.onFault(err)
		}
	}
	ctx.Stop(ctx.Self())
}

func (state *ControlLoopActor) stateName() string {
	switch {
	case state.failed:
		return "failed"
	case !state.commandsOpen:
		return "refresh_only"
	default:
		return "running"
	}
}
