package actorutil

import (
	"log/slog"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/lmittmann/tint"
	"github.com/primetalk/goio/io"
	"go.uber.org/zap"
)

// NewActorSystemWithZapLogger routes the actor system's slog output through
// the application's zap logger.
func NewActorSystemWithZapLogger(logger *zap.Logger) *actor.ActorSystem {
	stdOutLogger := zap.NewStdLog(logger)

	var slogLevel slog.Level = slog.LevelInfo

	switch logger.Level() {
	case zap.DebugLevel:
		slogLevel = slog.LevelDebug
	case zap.InfoLevel:
		slogLevel = slog.LevelInfo
	case zap.WarnLevel:
		slogLevel = slog.LevelWarn
	case zap.ErrorLevel, zap.PanicLevel, zap.FatalLevel:
		slogLevel = slog.LevelError
	}

	return actor.NewActorSystem(actor.WithLoggerFactory(func(system *actor.ActorSystem) *slog.Logger {
		return slog.New(tint.NewHandler(stdOutLogger.Writer(), &tint.Options{
			Level:      slogLevel,
			TimeFormat: time.DateTime,
		}))
	}))
}

func ActorLogger(actorName string, logger *zap.Logger) *zap.Logger {
	return logger.With(zap.String("actor", actorName))
}

// RunWithTimeout runs fn and stops waiting for it after timeout. fn keeps
// running in the background when it overruns.
func RunWithTimeout[T any](timeout time.Duration, fn func() (T, error)) (T, error) {
	task := io.WithTimeout[T](timeout)(io.Eval(fn))
	result := io.RunSync(task)
	return result.Value, result.Error
}

func RunErrWithTimeout(timeout time.Duration, fn func() error) error {
	_, err := RunWithTimeout(timeout, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}
