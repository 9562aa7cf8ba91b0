package store

import (
	"log/slog"
	"sync"
)

// Plugin receives the store once construction is complete. Plugins typically
// subscribe to mutations or actions; the bundled logger plugin lives in the
// extensions package.
type Plugin func(*Store)

// Option configures a store at construction time.
type Option func(*Store)

// WithPlugin registers a plugin applied after install.
func WithPlugin(p Plugin) Option {
	return func(s *Store) { s.plugins = append(s.plugins, p) }
}

// WithStrict enables the invariant watcher that flags any state mutation
// performed outside a committing scope. Deep-compares state on every commit;
// not meant for production use.
func WithStrict() Option {
	return func(s *Store) { s.strict = true }
}

// WithDevMode toggles declaration validation and call-shape assertions.
// Enabled by default; disable for production construction speed.
func WithDevMode(enabled bool) Option {
	return func(s *Store) { s.devMode = enabled }
}

// WithLogger sets the diagnostics logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithReactiveView replaces the default observation layer. The factory is
// invoked once per view generation: at construction and on every registry
// rebuild.
func WithReactiveView(factory func() ReactiveView) Option {
	return func(s *Store) { s.viewFactory = factory }
}

// Store is the state container. All reads and writes route through it: state
// changes happen only via Commit, asynchronous work via Dispatch, derived
// data via getters. The store itself is stateless per call; everything it
// resolves against lives in the rebuildable flat registries.
type Store struct {
	logger      *slog.Logger
	devMode     bool
	strict      bool
	viewFactory func() ReactiveView
	plugins     []Plugin

	tree  *ModuleTree
	scope commitScope

	// writeMu serializes sanctioned write sections. The committing flag
	// itself is deliberately not a lock (see commitScope).
	writeMu sync.Mutex

	regMu sync.RWMutex
	reg   *registries

	stateMu sync.RWMutex
	state   map[string]any

	viewMu  sync.RWMutex
	curView ReactiveView

	// Store-level watchers outlive view generations: they are re-attached
	// to the fresh view on every registry rebuild.
	watchMu  sync.Mutex
	watchers []*storeWatcher

	rootGetters *GetterView
	localViews  *keyedCache[*GetterView]

	subscribers       subscriberList[SubscribeFunc]
	actionSubscribers subscriberList[ActionSubscriber]
}

// New builds a store from the root declaration.
func New(root *Declaration, opts ...Option) *Store {
	s := &Store{
		logger:      slog.Default(),
		devMode:     true,
		viewFactory: newBasicView,
		localViews:  newKeyedCache[*GetterView](),
	}
	s.rootGetters = &GetterView{store: s}
	for _, opt := range opts {
		opt(s)
	}
	assert(root != nil, "store must be created with a root declaration")

	s.tree = newModuleTree(root, s.devMode, s.logger)
	state := s.tree.root.state
	s.state = state

	reg := newRegistries()
	s.installModule(reg, state, nil, s.tree.root, false)
	s.reg = reg

	s.resetViewLayer()

	for _, p := range s.plugins {
		p(s)
	}
	return s
}

func (s *Store) registries() *registries {
	s.regMu.RLock()
	defer s.regMu.RUnlock()
	return s.reg
}

func (s *Store) hasMutation(typ string) bool {
	_, ok := s.registries().mutations[typ]
	return ok
}

func (s *Store) hasAction(typ string) bool {
	_, ok := s.registries().actions[typ]
	return ok
}

func (s *Store) hasGetter(typ string) bool {
	_, ok := s.registries().getters[typ]
	return ok
}

func (s *Store) getterTypes() []string {
	return sortedKeys(s.registries().getters)
}

func (s *Store) derivedValue(typ string) (any, bool) {
	if v := s.view(); v != nil {
		return v.Derived(typ)
	}
	return nil, false
}

func (s *Store) stateRaw() map[string]any {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

// State returns the global state tree. The tree must only be mutated inside
// mutation handlers; strict mode flags everything else.
func (s *Store) State() map[string]any {
	s.strictCheckpoint()
	return s.stateRaw()
}

// Getters returns the un-namespaced getter view.
func (s *Store) Getters() *GetterView { return s.rootGetters }

// Getter is shorthand for Getters().Get.
func (s *Store) Getter(name string) any { return s.rootGetters.Get(name) }

func (s *Store) localGetters(namespace string) *GetterView {
	if namespace == "" {
		return s.rootGetters
	}
	return s.localViews.LoadOrCompute(namespace, func() *GetterView {
		return buildLocalGetterView(s, namespace)
	})
}

func (s *Store) view() ReactiveView {
	s.viewMu.RLock()
	defer s.viewMu.RUnlock()
	return s.curView
}

// strictCheckpoint gives the invariant watcher a chance to observe state
// changed outside any committing scope before the next sanctioned write
// masks it.
func (s *Store) strictCheckpoint() {
	if !s.strict {
		return
	}
	if v := s.view(); v != nil {
		v.Mutated()
	}
}

type storeWatcher struct {
	selector func() any
	cb       func(newVal, oldVal any)
	opts     WatchOptions
	stop     func()
}

// Watch invokes cb whenever the value produced by selector changes. The
// selector receives the live state tree and root getter view. Watchers
// survive registry rebuilds; the returned stop function detaches for good.
func (s *Store) Watch(selector func(state map[string]any, getters *GetterView) any, cb func(newVal, oldVal any), opts WatchOptions) func() {
	if s.devMode {
		assert(selector != nil, "store.Watch expects a selector function")
	}
	w := &storeWatcher{
		selector: func() any {
			return selector(s.stateRaw(), s.Getters())
		},
		cb:   cb,
		opts: opts,
	}

	s.watchMu.Lock()
	w.stop = s.view().Watch(w.selector, w.cb, w.opts)
	s.watchers = append(s.watchers, w)
	s.watchMu.Unlock()

	return func() {
		s.watchMu.Lock()
		defer s.watchMu.Unlock()
		w.stop()
		for i, cur := range s.watchers {
			if cur == w {
				s.watchers = append(s.watchers[:i], s.watchers[i+1:]...)
				return
			}
		}
	}
}

// ReplaceState swaps the whole state tree. Used by state hydration; module
// registration bookkeeping is untouched.
func (s *Store) ReplaceState(newState map[string]any) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.scope.Run(func() {
		s.stateMu.Lock()
		s.state = newState
		s.stateMu.Unlock()
		if v := s.view(); v != nil {
			v.MakeObservable(newState)
		}
	})
}

// RegisterOption adjusts dynamic module registration.
type RegisterOption func(*registerOptions)

type registerOptions struct {
	preserveState bool
}

// WithPreserveState keeps the state already present at the module's path
// (for example from ReplaceState hydration) instead of the declaration's
// initial state.
func WithPreserveState() RegisterOption {
	return func(o *registerOptions) { o.preserveState = true }
}

// RegisterModule attaches a declaration subtree at path as a runtime module
// and rebuilds the flat registries.
func (s *Store) RegisterModule(path []string, decl *Declaration, opts ...RegisterOption) {
	if s.devMode {
		assert(len(path) > 0, "cannot register the root module, use New() instead")
	}
	var o registerOptions
	for _, opt := range opts {
		opt(&o)
	}
	s.tree.Register(path, decl, true)
	if o.preserveState {
		if m := s.tree.Get(path); m != nil {
			if existing := nestedState(s.stateRaw(), path); existing != nil {
				m.state = existing
			}
		}
	}
	s.resetStore(false)
}

// UnregisterModule detaches the runtime module at path, removes its state
// slice from the parent state object and rebuilds the flat registries. It is
// a no-op for modules that were part of the initial declaration.
func (s *Store) UnregisterModule(path []string) {
	if s.devMode {
		assert(len(path) > 0, "cannot unregister the root module")
	}
	if !s.tree.Unregister(path) {
		return
	}
	if parent := nestedState(s.stateRaw(), path[:len(path)-1]); parent != nil {
		s.writeMu.Lock()
		s.scope.Run(func() {
			if v := s.view(); v != nil {
				v.DeleteProperty(parent, path[len(path)-1])
			} else {
				delete(parent, path[len(path)-1])
			}
		})
		s.writeMu.Unlock()
	}
	s.resetStore(false)
}

// HasModule reports whether a module is registered at path.
func (s *Store) HasModule(path []string) bool {
	return s.tree.IsRegistered(path)
}

// HotUpdate swaps handlers and namespacing of the existing tree for those of
// decl and rebuilds the registries. State is preserved. The update is
// all-or-nothing: a declaration naming a module key the tree does not have
// aborts without applying anything.
func (s *Store) HotUpdate(decl *Declaration) error {
	if err := s.tree.Update(decl); err != nil {
		return err
	}
	s.resetStore(true)
	return nil
}

// resetStore rebuilds the flat registries and the derived-view layer from
// the current module tree. hot additionally pins state: nothing is grafted
// or re-materialized.
func (s *Store) resetStore(hot bool) {
	reg := newRegistries()
	s.installModule(reg, s.stateRaw(), nil, s.tree.root, hot)

	s.regMu.Lock()
	s.reg = reg
	s.regMu.Unlock()

	// Per-namespace getter views index the old registry generation.
	s.localViews.Clear()

	s.resetViewLayer()
}

// resetViewLayer builds a fresh reactive view over the current state and
// getter registry and schedules teardown of the superseded one for the next
// idle tick.
func (s *Store) resetViewLayer() {
	reg := s.registries()
	nv := s.viewFactory()
	for _, typ := range sortedKeys(reg.getters) {
		nv.DefineDerived(typ, reg.getters[typ])
	}
	nv.MakeObservable(s.stateRaw())

	s.viewMu.Lock()
	old := s.curView
	s.curView = nv
	s.viewMu.Unlock()

	if s.strict {
		nv.Watch(func() any {
			return s.stateRaw()
		}, func(_, _ any) {
			assert(s.scope.Active(), "do not mutate store state outside mutation handlers")
		}, WatchOptions{Deep: true, Sync: true})
	}

	s.watchMu.Lock()
	for _, w := range s.watchers {
		w.stop = nv.Watch(w.selector, w.cb, w.opts)
	}
	s.watchMu.Unlock()

	if old != nil {
		old.OnNextIdle(old.Teardown)
	}
}

// ModuleNode is a snapshot of one node of the module tree, exported for
// debugging and tooling.
type ModuleNode struct {
	Key       string
	Namespace string
	Runtime   bool
	Children  []ModuleNode
}

// ExportModuleTree returns a snapshot of the registered module hierarchy.
func (s *Store) ExportModuleTree() ModuleNode {
	return s.exportNode("", nil, s.tree.root)
}

func (s *Store) exportNode(key string, path []string, m *Module) ModuleNode {
	ns, _ := s.tree.Namespace(path)
	node := ModuleNode{Key: key, Namespace: ns, Runtime: m.runtime}
	m.forEachChild(func(childKey string, child *Module) {
		childPath := append(append([]string(nil), path...), childKey)
		node.Children = append(node.Children, s.exportNode(childKey, childPath, child))
	})
	return node
}
