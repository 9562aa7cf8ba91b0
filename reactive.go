package store

// ReactiveView is the observation capability the store consumes. The core
// never implements reactivity itself: it routes all structural state changes
// through a view, registers derived values for every getter, and relies on
// the view to recompute them lazily.
//
// Go has no property interception, so the contract carries an explicit change
// notification: the store calls Mutated after every sanctioned write batch
// (commit, state graft, state replacement), inside the committing scope.
// Views built on a tracking primitive may ignore it.
type ReactiveView interface {
	// MakeObservable adopts root as the observed state tree. Called once per
	// view generation and again when the whole tree is replaced.
	MakeObservable(root map[string]any)

	// DefineDerived registers a named derived value recomputed lazily when
	// the observed tree changes.
	DefineDerived(name string, compute func() any)

	// Derived returns the current value of a registered derived value. The
	// second result is false for unknown names.
	Derived(name string) (any, bool)

	// SetProperty and DeleteProperty are the structural mutation primitives.
	// They must participate in change tracking even for keys that did not
	// exist when the tree was adopted.
	SetProperty(parent map[string]any, key string, value any)
	DeleteProperty(parent map[string]any, key string)

	// Watch invokes cb whenever the value produced by selector changes.
	// Sync watchers fire in the same change-notification pass, before any
	// non-sync watcher; the strict-mode invariant check depends on that.
	Watch(selector func() any, cb func(newVal, oldVal any), opts WatchOptions) (stop func())

	// OnNextIdle schedules fn after the current synchronous task completes.
	// The store uses it to tear down a superseded view generation.
	OnNextIdle(fn func())

	// Mutated signals that the observed tree may have changed.
	Mutated()

	// Teardown releases the view. A torn-down view drops its watchers and
	// derived definitions and ignores further calls.
	Teardown()
}

// WatchOptions configures Store.Watch and ReactiveView.Watch.
type WatchOptions struct {
	// Deep compares nested structure, not just top-level identity.
	Deep bool
	// Sync forces same-pass invocation of the callback.
	Sync bool
}
