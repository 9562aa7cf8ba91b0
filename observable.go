package store

import (
	"reflect"
	"sync"
	"sync/atomic"
)

// basicView is the default ReactiveView. It has no property interception:
// change detection is driven entirely by the store's Mutated notifications,
// derived values are memoized against a version stamp and recomputed lazily
// on the first read after a change, and watchers compare selector output
// against the value captured on the previous pass.
//
// The zero granularity is deliberate. Any change invalidates every derived
// value; correctness comes first and a finer-grained tracking primitive can
// be swapped in through WithReactiveView.
type basicView struct {
	mu      sync.Mutex
	version uint64
	root    map[string]any
	derived map[string]*derivedEntry
	watch   []*viewWatcher
	down    bool
}

type derivedEntry struct {
	compute  func() any
	value    any
	at       uint64
	computed bool
}

type viewWatcher struct {
	selector func() any
	cb       func(newVal, oldVal any)
	deep     bool
	syncFire bool
	last     any
	stopped  bool

	// busy makes evaluation reentrancy-safe: a callback that triggers
	// another notification pass skips the watcher it is running under
	// instead of deadlocking or recursing.
	busy atomic.Bool
}

func newBasicView() ReactiveView {
	return &basicView{derived: make(map[string]*derivedEntry)}
}

func (v *basicView) MakeObservable(root map[string]any) {
	v.mu.Lock()
	v.root = root
	v.mu.Unlock()
	v.Mutated()
}

func (v *basicView) DefineDerived(name string, compute func() any) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.down {
		return
	}
	v.derived[name] = &derivedEntry{compute: compute}
}

func (v *basicView) Derived(name string) (any, bool) {
	v.mu.Lock()
	if v.down {
		v.mu.Unlock()
		return nil, false
	}
	e, ok := v.derived[name]
	if !ok {
		v.mu.Unlock()
		return nil, false
	}
	ver := v.version
	if e.computed && e.at == ver {
		val := e.value
		v.mu.Unlock()
		return val, true
	}
	v.mu.Unlock()

	// Compute outside the lock: getters read back through the store and may
	// pull other derived values.
	val := e.compute()

	v.mu.Lock()
	e.value = val
	e.at = ver
	e.computed = true
	v.mu.Unlock()
	return val, true
}

func (v *basicView) SetProperty(parent map[string]any, key string, value any) {
	parent[key] = value
	v.Mutated()
}

func (v *basicView) DeleteProperty(parent map[string]any, key string) {
	delete(parent, key)
	v.Mutated()
}

func (v *basicView) Watch(selector func() any, cb func(newVal, oldVal any), opts WatchOptions) func() {
	w := &viewWatcher{
		selector: selector,
		cb:       cb,
		deep:     opts.Deep,
		syncFire: opts.Sync,
	}
	w.last = w.capture(selector())

	v.mu.Lock()
	v.watch = append(v.watch, w)
	v.mu.Unlock()

	return func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		w.stopped = true
		for i, cur := range v.watch {
			if cur == w {
				v.watch = append(v.watch[:i], v.watch[i+1:]...)
				break
			}
		}
	}
}

func (v *basicView) OnNextIdle(fn func()) {
	go fn()
}

func (v *basicView) Mutated() {
	v.mu.Lock()
	if v.down {
		v.mu.Unlock()
		return
	}
	v.version++
	// Snapshot: a watcher callback may unsubscribe itself or register new
	// watchers while the pass runs.
	snapshot := make([]*viewWatcher, len(v.watch))
	copy(snapshot, v.watch)
	v.mu.Unlock()

	for _, w := range snapshot {
		if w.syncFire {
			v.evaluate(w)
		}
	}
	for _, w := range snapshot {
		if !w.syncFire {
			v.evaluate(w)
		}
	}
}

func (v *basicView) evaluate(w *viewWatcher) {
	if w.stopped || !w.busy.CompareAndSwap(false, true) {
		return
	}
	defer w.busy.Store(false)
	cur := w.selector()
	if reflect.DeepEqual(cur, w.last) {
		return
	}
	old := w.last
	w.last = w.capture(cur)
	w.cb(cur, old)
}

// capture stores the comparison baseline. Deep watchers keep a clone so that
// later in-place mutation of the selected value is still visible as a change;
// shallow watchers keep the reference and only see replacement.
func (w *viewWatcher) capture(val any) any {
	if w.deep {
		return deepClone(val)
	}
	return val
}

func (v *basicView) Teardown() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.down = true
	v.derived = make(map[string]*derivedEntry)
	v.watch = nil
	v.root = nil
}

// deepClone copies the map/slice spine of a state value. Leaf values are
// shared; mutation discipline applies to the tree structure the store owns,
// not to opaque values stored in it.
func deepClone(val any) any {
	switch tv := val.(type) {
	case map[string]any:
		out := make(map[string]any, len(tv))
		for k, item := range tv {
			out[k] = deepClone(item)
		}
		return out
	case []any:
		out := make([]any, len(tv))
		for i, item := range tv {
			out[i] = deepClone(item)
		}
		return out
	default:
		return val
	}
}
