package cli

import (
	"context"
	"log/slog"

	"github.com/aretw0/weft/internal/logging"
	"github.com/aretw0/weft/pkg/domain"
)

// createLogger configures the application logger.
// Debug forces the debug level; Quiet without Debug discards everything.
func createLogger(level string, debug, quiet bool) (*slog.Logger, error) {
	if debug {
		return logging.New(slog.LevelDebug), nil
	}
	if quiet {
		return logging.NewNop(), nil
	}
	lvl, err := logging.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return logging.New(lvl), nil
}

func createDebugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnResolveEnter: func(ctx context.Context, e *domain.ResolveEvent) {
			logger.Debug("Enter Node", "node_id", e.Node, "kind", e.Kind, "depth", e.Depth)
		},
		OnResolveLeave: func(ctx context.Context, e *domain.ResolveEvent) {
			if e.Err != nil {
				logger.Debug("Leave Node (Error)", "node_id", e.Node, "kind", e.Kind, "err", e.Err)
				return
			}
			logger.Debug("Leave Node", "node_id", e.Node, "kind", e.Kind, "value", e.Value.String(), "duration", e.Duration)
		},
		OnCycle: func(ctx context.Context, e *domain.CycleError) {
			logger.Debug("Cycle Broken", "path", e.Error())
		},
	}
}
