package input

import (
	"bufio"
	"context"
	"errors"
	"io"

	"heatpump2mqtt/internal/core/domain"
	"heatpump2mqtt/internal/core/port"

	"go.uber.org/zap"
)

var tokenCommands = map[rune]domain.Command{
	'r': domain.Get(domain.GroupTemperatures),
	's': domain.Get(domain.GroupStatus),
	'a': domain.Get(domain.GroupAll),
	'u': domain.Set(domain.InstructionCHUp),
	'd': domain.Set(domain.InstructionCHDown),
	'p': domain.Set(domain.InstructionHotWaterUp),
	'l': domain.Set(domain.InstructionHotWaterDown),
	'f': domain.Set(domain.InstructionFlowUp),
	'g': domain.Set(domain.InstructionFlowDown),
	'c': domain.Set(domain.InstructionModeCentralHeating),
	'w': domain.Set(domain.InstructionModeHotWater),
}

// ParseToken maps a single character to its command.
func ParseToken(token rune) (domain.Command, bool) {
	cmd, ok := tokenCommands[token]
	return cmd, ok
}

// ReadTokens feeds every recognised character of r into sink until r is
// exhausted, the sink is closed or ctx is done. Unknown characters are
// dropped.
func ReadTokens(ctx context.Context, r io.Reader, sink port.CommandSink, logger *zap.Logger) error {
	reader := bufio.NewReader(r)
	for {
		token, _, err := reader.ReadRune()
		if err != nil {
			if errors.Is(err, io.EOF) {
				logger.Debug("command input exhausted")
				return nil
			}
			return err
		}
		cmd, ok := ParseToken(token)
		if !ok {
			continue
		}
		logger.Debug("command token", zap.String("token", string(token)), zap.Stringer("command", cmd))
		if err := sink.Enqueue(ctx, cmd); err != nil {
			return err
		}
	}
}
