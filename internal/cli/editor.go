package cli

import (
	"github.com/aretw0/weft"
	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/observability"
)

// EditorOptions returns the options a standalone editor is built with.
func (e *Env) EditorOptions() []weft.Option {
	return append([]weft.Option{weft.WithLogger(e.Logger)}, e.HookOptions()...)
}

// HookOptions returns the resolver hooks shared by every editor of the
// process: debug logging and metrics, when enabled.
func (e *Env) HookOptions() []weft.Option {
	if hooks, ok := e.hooks(); ok {
		return []weft.Option{weft.WithLifecycleHooks(hooks)}
	}
	return nil
}

func (e *Env) hooks() (domain.LifecycleHooks, bool) {
	var sets []domain.LifecycleHooks
	if e.Debug {
		sets = append(sets, createDebugHooks(e.Logger))
	}
	if e.Metrics != nil {
		sets = append(sets, e.Metrics.Hooks())
	}
	switch len(sets) {
	case 0:
		return domain.LifecycleHooks{}, false
	case 1:
		return sets[0], true
	default:
		return observability.Combine(sets...), true
	}
}
