package store

import (
	"context"
	"strings"
)

// The Map* helpers project pieces of a module onto plain closures, the way a
// component layer binds store members. Each accepts a namespace ("" for the
// root module; the trailing slash is optional) and the local member names to
// bind. The module is re-resolved on every call, so bindings stay valid
// across hot updates and dynamic registration as long as the namespace
// survives.

// MapState binds state fields of the module at namespace to read closures.
func MapState(s *Store, namespace string, keys ...string) map[string]func() any {
	ns := normalizeNamespace(namespace)
	s.checkHelperNamespace("MapState", ns)
	out := make(map[string]func() any, len(keys))
	for _, key := range keys {
		out[key] = func() any {
			state := s.helperState(ns)
			if state == nil {
				return nil
			}
			return state[key]
		}
	}
	return out
}

// MapGetters binds getters of the module at namespace to read closures.
func MapGetters(s *Store, namespace string, keys ...string) map[string]func() any {
	ns := normalizeNamespace(namespace)
	s.checkHelperNamespace("MapGetters", ns)
	out := make(map[string]func() any, len(keys))
	for _, key := range keys {
		out[key] = func() any {
			return s.localGetters(ns).Get(key)
		}
	}
	return out
}

// MapMutations binds mutation types of the module at namespace to commit
// closures.
func MapMutations(s *Store, namespace string, keys ...string) map[string]func(payload any) {
	ns := normalizeNamespace(namespace)
	s.checkHelperNamespace("MapMutations", ns)
	out := make(map[string]func(payload any), len(keys))
	for _, key := range keys {
		out[key] = func(payload any) {
			s.commit(ns+key, payload, callOptions{})
		}
	}
	return out
}

// MapActions binds action types of the module at namespace to dispatch
// closures.
func MapActions(s *Store, namespace string, keys ...string) map[string]func(ctx context.Context, payload any) (any, error) {
	ns := normalizeNamespace(namespace)
	s.checkHelperNamespace("MapActions", ns)
	out := make(map[string]func(ctx context.Context, payload any) (any, error), len(keys))
	for _, key := range keys {
		out[key] = func(ctx context.Context, payload any) (any, error) {
			return s.Dispatch(ctx, ns+key, payload)
		}
	}
	return out
}

// Helpers bundles all namespace-bound accessors of one module.
type Helpers struct {
	State    func() map[string]any
	Getter   func(name string) any
	Commit   func(typ string, payload any)
	Dispatch func(ctx context.Context, typ string, payload any) (any, error)
}

// NamespacedHelpers binds the full accessor surface of the module at
// namespace.
func NamespacedHelpers(s *Store, namespace string) Helpers {
	ns := normalizeNamespace(namespace)
	s.checkHelperNamespace("NamespacedHelpers", ns)
	return Helpers{
		State: func() map[string]any {
			return s.helperState(ns)
		},
		Getter: func(name string) any {
			return s.localGetters(ns).Get(name)
		},
		Commit: func(typ string, payload any) {
			s.commit(ns+typ, payload, callOptions{})
		},
		Dispatch: func(ctx context.Context, typ string, payload any) (any, error) {
			return s.Dispatch(ctx, ns+typ, payload)
		},
	}
}

func normalizeNamespace(namespace string) string {
	if namespace != "" && !strings.HasSuffix(namespace, "/") {
		namespace += "/"
	}
	return namespace
}

func (s *Store) checkHelperNamespace(helper, namespace string) {
	if !s.devMode || namespace == "" {
		return
	}
	if _, ok := s.registries().namespaces[namespace]; !ok {
		s.logger.Error("module namespace not found for helper",
			"helper", helper, "namespace", namespace)
	}
}

// helperState resolves the state slice behind a namespace. The empty
// namespace is the root state; otherwise the namespaced module's context
// walks the live tree.
func (s *Store) helperState(namespace string) map[string]any {
	if namespace == "" {
		return s.stateRaw()
	}
	m, ok := s.registries().namespaces[namespace]
	if !ok || m.ctx == nil {
		return nil
	}
	return m.ctx.state()
}
