package store

import (
	"context"
	"reflect"
)

// registries are the flat dispatch tables produced by walking the module
// tree. They are rebuilt from scratch on every structural change; there is
// no incremental patching.
type registries struct {
	// mutations and actions hold ordered handler lists: several modules may
	// register under the same fully namespaced type and all of them run.
	mutations map[string][]wrappedMutation
	actions   map[string][]wrappedAction

	// getters allow exactly one definition per type; a duplicate is rejected
	// and the first registration wins.
	getters map[string]wrappedGetter

	// namespaces is the reverse index from a namespaced module's full prefix
	// to its Module, used by runtime lookups and the helper projections.
	namespaces map[string]*Module
}

type (
	wrappedMutation func(payload any)
	wrappedAction   func(ctx context.Context, payload any) (any, error)
	wrappedGetter   func() any
)

func newRegistries() *registries {
	return &registries{
		mutations:  make(map[string][]wrappedMutation),
		actions:    make(map[string][]wrappedAction),
		getters:    make(map[string]wrappedGetter),
		namespaces: make(map[string]*Module),
	}
}

// installModule flattens one module (and recursively its children) into the
// registries and grafts its state onto the parent state object. hot skips
// all state manipulation: a hot reload replaces behavior, never data.
func (s *Store) installModule(reg *registries, rootState map[string]any, path []string, m *Module, hot bool) {
	isRoot := len(path) == 0
	namespace, err := s.tree.Namespace(path)
	if err != nil {
		// Unreachable while walking an attached tree; surfaced for safety.
		s.logger.Error("install: namespace resolution failed", "error", err)
		return
	}

	if m.namespaced() {
		if dup, ok := reg.namespaces[namespace]; ok && dup != m {
			s.logger.Error("duplicate namespace for modules", "namespace", namespace)
		}
		reg.namespaces[namespace] = m
	}

	if !isRoot && !hot {
		parent := nestedState(rootState, path[:len(path)-1])
		key := path[len(path)-1]
		s.scope.Run(func() {
			if existing, ok := parent[key]; ok {
				// Re-grafting a module's own state during a full rebuild is
				// expected; anything else shadows a state field.
				if eq, isMap := existing.(map[string]any); !isMap || !sameMap(eq, m.state) {
					s.logger.Warn("state field is overwritten by a module with the same key",
						"path", pathString(path))
				}
			}
			s.setStateKey(parent, key, m.state)
		})
	}

	local := newModuleContext(s, namespace, path)
	m.ctx = local

	for _, key := range sortedKeys(m.decl.Mutations) {
		handler := m.decl.Mutations[key]
		reg.mutations[namespace+key] = append(reg.mutations[namespace+key], func(payload any) {
			handler(local.state(), payload)
		})
	}

	for _, key := range sortedKeys(m.decl.Actions) {
		handler, root := actionHandler(m.decl.Actions[key])
		if handler == nil {
			// Dev mode already rejected this shape; skip silently otherwise.
			continue
		}
		typ := namespace + key
		if root {
			typ = key
		}
		reg.actions[typ] = append(reg.actions[typ], func(ctx context.Context, payload any) (any, error) {
			return handler(&ActionContext{ctx: ctx, store: s, local: local}, payload)
		})
	}

	for _, key := range sortedKeys(m.decl.Getters) {
		fn := m.decl.Getters[key]
		typ := namespace + key
		if _, dup := reg.getters[typ]; dup {
			s.logger.Error("duplicate getter key", "type", typ)
			continue
		}
		reg.getters[typ] = func() any {
			return fn(local.state(), local.getters(), s.stateRaw(), s.Getters())
		}
	}

	m.forEachChild(func(key string, child *Module) {
		s.installModule(reg, rootState, append(append([]string(nil), path...), key), child, hot)
	})
}

// setStateKey routes a structural write through the reactive view when one
// is attached. During initial construction the view does not exist yet and
// the plain write is enough.
func (s *Store) setStateKey(parent map[string]any, key string, value any) {
	if v := s.view(); v != nil {
		v.SetProperty(parent, key, value)
		return
	}
	parent[key] = value
}

// sameMap reports whether two state maps are the same object.
func sameMap(a, b map[string]any) bool {
	return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
}
