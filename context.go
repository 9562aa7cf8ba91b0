package store

import (
	"context"
	"strings"
)

// moduleContext is the namespace-bound facade handed to a module's own
// handlers. Dispatch, commit and getters are addressed by namespace string
// against the flat registries; state is addressed by tree path against the
// live root state. The two addressing schemes are intentionally separate:
// registries are rebuilt wholesale, while structural state can be replaced
// underneath a retained context.
type moduleContext struct {
	store     *Store
	namespace string
	path      []string
}

func newModuleContext(s *Store, namespace string, path []string) *moduleContext {
	return &moduleContext{
		store:     s,
		namespace: namespace,
		path:      append([]string(nil), path...),
	}
}

func (c *moduleContext) dispatch(ctx context.Context, typ any, payload any, opts ...CallOption) (any, error) {
	t, p := normalizeCall(c.store, typ, payload)
	if c.namespace != "" && !callOptionsOf(opts).root {
		t = c.namespace + t
		if c.store.devMode && !c.store.hasAction(t) {
			c.store.logger.Error("unknown local action type",
				"type", t, "namespace", c.namespace)
			return nil, nil
		}
	}
	return c.store.Dispatch(ctx, t, p)
}

func (c *moduleContext) commit(typ any, payload any, opts ...CallOption) {
	t, p := normalizeCall(c.store, typ, payload)
	o := callOptionsOf(opts)
	if c.namespace != "" && !o.root {
		t = c.namespace + t
		if c.store.devMode && !c.store.hasMutation(t) {
			c.store.logger.Error("unknown local mutation type",
				"type", t, "namespace", c.namespace)
			return
		}
	}
	c.store.commit(t, p, o)
}

// state resolves the module's own slice by walking the live root state on
// every access. It is never cached: register/unregister and hot updates may
// swap whole subtrees.
func (c *moduleContext) state() map[string]any {
	return nestedState(c.store.stateRaw(), c.path)
}

func (c *moduleContext) getters() *GetterView {
	return c.store.localGetters(c.namespace)
}

func nestedState(root map[string]any, path []string) map[string]any {
	cur := root
	for _, key := range path {
		next, _ := cur[key].(map[string]any)
		if next == nil {
			return nil
		}
		cur = next
	}
	return cur
}

// GetterView exposes registered getters under a namespace. The root view
// (empty namespace) addresses the full flat registry; namespaced views map
// un-prefixed suffix keys onto their fully namespaced types. Views are
// memoized per namespace and invalidated whenever the getter registry is
// rebuilt.
type GetterView struct {
	store     *Store
	namespace string

	// suffix -> fully namespaced type; nil for the root view.
	keys map[string]string
}

// Get returns the current value of a getter by its local name. Values are
// computed lazily by the reactive view. Unknown names yield nil, matching
// the registry's non-throwing read semantics.
func (g *GetterView) Get(name string) any {
	full := name
	if g.keys != nil {
		mapped, ok := g.keys[name]
		if !ok {
			return nil
		}
		full = mapped
	}
	val, _ := g.store.derivedValue(full)
	return val
}

// Has reports whether a getter is registered under the local name.
func (g *GetterView) Has(name string) bool {
	if g.keys != nil {
		_, ok := g.keys[name]
		return ok
	}
	return g.store.hasGetter(name)
}

// Keys returns the local getter names in sorted order.
func (g *GetterView) Keys() []string {
	if g.keys != nil {
		return sortedKeys(g.keys)
	}
	return g.store.getterTypes()
}

func buildLocalGetterView(s *Store, namespace string) *GetterView {
	if namespace == "" {
		return &GetterView{store: s}
	}
	keys := make(map[string]string)
	for _, full := range s.getterTypes() {
		if !strings.HasPrefix(full, namespace) {
			continue
		}
		keys[strings.TrimPrefix(full, namespace)] = full
	}
	return &GetterView{store: s, namespace: namespace, keys: keys}
}

// ActionContext is the argument bundle passed to action handlers.
type ActionContext struct {
	ctx   context.Context
	store *Store
	local *moduleContext
}

// Context returns the context the dispatch was started with.
func (a *ActionContext) Context() context.Context { return a.ctx }

// Dispatch routes through the module's namespace unless WithRoot is given.
func (a *ActionContext) Dispatch(typ any, payload any, opts ...CallOption) (any, error) {
	return a.local.dispatch(a.ctx, typ, payload, opts...)
}

// Commit routes through the module's namespace unless WithRoot is given.
func (a *ActionContext) Commit(typ any, payload any, opts ...CallOption) {
	a.local.commit(typ, payload, opts...)
}

// State returns the module-local state slice.
func (a *ActionContext) State() map[string]any { return a.local.state() }

// Getters returns the module-local getter view.
func (a *ActionContext) Getters() *GetterView { return a.local.getters() }

// RootState returns the global state tree.
func (a *ActionContext) RootState() map[string]any { return a.store.stateRaw() }

// RootGetters returns the un-namespaced getter view.
func (a *ActionContext) RootGetters() *GetterView { return a.store.Getters() }
