package store

import (
	"sort"
)

// GetterFunc derives a value from module-local state. The two root arguments
// mirror the local ones so that namespaced modules can still reach across the
// tree when they need to.
type GetterFunc func(state map[string]any, getters *GetterView, rootState map[string]any, rootGetters *GetterView) any

// MutationFunc applies a synchronous in-place change to module-local state.
type MutationFunc func(state map[string]any, payload any)

// ActionFunc handles a dispatched action. It may block; multiple handlers
// registered under one type run concurrently.
type ActionFunc func(ctx *ActionContext, payload any) (any, error)

// ActionDecl declares an action handler together with its registration
// options. Root registers the handler under its bare key instead of the
// module namespace.
type ActionDecl struct {
	Root    bool
	Handler ActionFunc
}

// Declaration is one node of the module tree as supplied by the caller.
//
// State is either a map[string]any used directly, a func() map[string]any
// invoked once per registration, or nil for an empty state object. Entries of
// Actions are either ActionFunc values or ActionDecl values; the shape is
// resolved once at install time.
type Declaration struct {
	Namespaced bool
	State      any
	Getters    map[string]GetterFunc
	Mutations  map[string]MutationFunc
	Actions    map[string]any
	Modules    map[string]*Declaration
}

// validate checks that every declared handler is well formed. Only run in dev
// mode; production builds skip it for construction speed.
func (d *Declaration) validate(path []string) {
	switch d.State.(type) {
	case nil, map[string]any, func() map[string]any:
	default:
		assert(false, "state should be a map[string]any or a func() map[string]any in module %q", pathString(path))
	}
	for name, fn := range d.Getters {
		assert(fn != nil, "getters should be function but %q in module %q is nil", "getters."+name, pathString(path))
	}
	for name, fn := range d.Mutations {
		assert(fn != nil, "mutations should be function but %q in module %q is nil", "mutations."+name, pathString(path))
	}
	for name, raw := range d.Actions {
		switch a := raw.(type) {
		case ActionFunc:
			assert(a != nil, "actions should be function or ActionDecl with handler but %q in module %q is nil", "actions."+name, pathString(path))
		case func(ctx *ActionContext, payload any) (any, error):
			assert(a != nil, "actions should be function or ActionDecl with handler but %q in module %q is nil", "actions."+name, pathString(path))
		case ActionDecl:
			assert(a.Handler != nil, "actions should be function or ActionDecl with handler but %q in module %q has no handler", "actions."+name, pathString(path))
		default:
			assert(false, "actions should be function or ActionDecl with handler but %q in module %q is %T", "actions."+name, pathString(path), raw)
		}
	}
	for key, child := range d.Modules {
		child.validate(append(path, key))
	}
}

// actionHandler resolves the tagged declaration variant into a uniform record.
// The shape check happens once here, never per dispatch.
func actionHandler(raw any) (handler ActionFunc, root bool) {
	switch a := raw.(type) {
	case ActionFunc:
		return a, false
	case func(ctx *ActionContext, payload any) (any, error):
		return a, false
	case ActionDecl:
		return a.Handler, a.Root
	default:
		return nil, false
	}
}

// Module is one materialized node of the hierarchy. It owns its children
// exclusively; detaching a module detaches the whole subtree.
type Module struct {
	decl     *Declaration
	state    map[string]any
	children map[string]*Module

	// runtime marks modules registered after construction; only those may be
	// unregistered later.
	runtime bool

	// ctx is the namespace-bound local facade, assigned during install.
	ctx *moduleContext
}

func newModule(decl *Declaration, runtime bool) *Module {
	m := &Module{
		decl:     decl,
		children: make(map[string]*Module),
		runtime:  runtime,
	}
	switch st := decl.State.(type) {
	case map[string]any:
		m.state = st
	case func() map[string]any:
		m.state = st()
	default:
		m.state = map[string]any{}
	}
	if m.state == nil {
		m.state = map[string]any{}
	}
	return m
}

func (m *Module) namespaced() bool { return m.decl.Namespaced }

func (m *Module) addChild(key string, child *Module) { m.children[key] = child }

func (m *Module) child(key string) *Module { return m.children[key] }

func (m *Module) hasChild(key string) bool {
	_, ok := m.children[key]
	return ok
}

func (m *Module) removeChild(key string) { delete(m.children, key) }

// forEachChild visits children in sorted key order so that installation and
// registry construction stay deterministic across runs.
func (m *Module) forEachChild(fn func(key string, child *Module)) {
	keys := make([]string, 0, len(m.children))
	for key := range m.children {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fn(key, m.children[key])
	}
}

// update replaces the behavioral parts of the declaration. State is never
// touched here: replacing handlers must not reset accumulated data.
func (m *Module) update(decl *Declaration) {
	m.decl.Namespaced = decl.Namespaced
	if decl.Getters != nil {
		m.decl.Getters = decl.Getters
	}
	if decl.Mutations != nil {
		m.decl.Mutations = decl.Mutations
	}
	if decl.Actions != nil {
		m.decl.Actions = decl.Actions
	}
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func pathString(path []string) string {
	if len(path) == 0 {
		return "<root>"
	}
	out := path[0]
	for _, p := range path[1:] {
		out += "." + p
	}
	return out
}
