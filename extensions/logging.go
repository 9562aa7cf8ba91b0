package extensions

import (
	"io"
	"os"

	"github.com/charmbracelet/log"

	store "github.com/store-fn/store-go"
)

// LoggerOption configures the logger plugin.
type LoggerOption func(*loggerConfig)

type loggerConfig struct {
	out       io.Writer
	filter    func(typ string) bool
	transform func(state map[string]any) any
	actions   bool
}

// WithOutput redirects the plugin's output. Defaults to os.Stderr.
func WithOutput(w io.Writer) LoggerOption {
	return func(c *loggerConfig) { c.out = w }
}

// WithFilter limits logging to types the predicate accepts.
func WithFilter(fn func(typ string) bool) LoggerOption {
	return func(c *loggerConfig) { c.filter = fn }
}

// WithStateTransform projects the state tree before it is logged. Use it to
// trim large trees down to the interesting slice.
func WithStateTransform(fn func(state map[string]any) any) LoggerOption {
	return func(c *loggerConfig) { c.transform = fn }
}

// WithActions additionally logs dispatched actions, not just mutations.
func WithActions() LoggerOption {
	return func(c *loggerConfig) { c.actions = true }
}

// Logger returns a plugin that logs every committed mutation (and optionally
// every dispatched action) with the post-change state.
//
// Usage:
//
//	s := store.New(decl, store.WithPlugin(extensions.Logger()))
func Logger(opts ...LoggerOption) store.Plugin {
	cfg := loggerConfig{out: os.Stderr}
	for _, opt := range opts {
		opt(&cfg)
	}

	logger := log.NewWithOptions(cfg.out, log.Options{
		Prefix:          "store",
		ReportTimestamp: true,
	})

	return func(s *store.Store) {
		s.Subscribe(func(m store.MutationInfo, state map[string]any) {
			if cfg.filter != nil && !cfg.filter(m.Type) {
				return
			}
			logger.Info("mutation",
				"type", m.Type,
				"payload", m.Payload,
				"state", cfg.project(state))
		})

		if !cfg.actions {
			return
		}
		s.SubscribeAction(store.ActionSubscriber{
			Before: func(a store.ActionInfo, _ map[string]any) {
				if cfg.filter != nil && !cfg.filter(a.Type) {
					return
				}
				logger.Debug("action dispatched", "type", a.Type, "payload", a.Payload)
			},
			After: func(a store.ActionInfo, _ map[string]any) {
				if cfg.filter != nil && !cfg.filter(a.Type) {
					return
				}
				logger.Debug("action settled", "type", a.Type)
			},
			Error: func(a store.ActionInfo, _ map[string]any, err error) {
				if cfg.filter != nil && !cfg.filter(a.Type) {
					return
				}
				logger.Error("action failed", "type", a.Type, "error", err)
			},
		})
	}
}

func (c *loggerConfig) project(state map[string]any) any {
	if c.transform != nil {
		return c.transform(state)
	}
	return state
}
