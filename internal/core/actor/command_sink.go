package actor

import (
	"context"
	"errors"
	"sync/atomic"

	"heatpump2mqtt/internal/core/domain"

	"github.com/asynkron/protoactor-go/actor"
)

var ErrCommandsClosed = errors.New("command queue closed")

// CommandSink delivers commands to the control loop's mailbox. Enqueue
// blocks while the mailbox is full; ctx is only checked before sending.
type CommandSink struct {
	root   *actor.RootContext
	pid    *actor.PID
	closed atomic.Bool
}

func NewCommandSink(root *actor.RootContext, pid *actor.PID) *CommandSink {
	return &CommandSink{root: root, pid: pid}
}

func (s *CommandSink) Enqueue(ctx context.Context, cmd domain.Command) error {
	if s.closed.Load() {
		return ErrCommandsClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.root.Send(s.pid, cmd)
	return nil
}

// Close rejects further commands. Commands already in the mailbox are still
// executed.
func (s *CommandSink) Close() {
	if s.closed.CompareAndSwap(false, true) {
		s.root.Send(s.pid, commandsClosed{})
	}
}
