package port

import (
	"context"

	"heatpump2mqtt/internal/core/domain"
)

// CommandSink accepts commands from a producer. Enqueue blocks while the
// sink is full.
type CommandSink interface {
	Enqueue(ctx context.Context, cmd domain.Command) error
}

// StatePublisher receives a copy of the mirror after every loop phase.
// Implementations must not block the caller for long.
type StatePublisher interface {
	PublishState(snapshot domain.Snapshot)
}

// StateReader exposes the last published snapshot.
type StateReader interface {
	State() (domain.Snapshot, bool)
}
