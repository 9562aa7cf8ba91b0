package store

import (
	"context"
	"reflect"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Envelope is the object-style invocation form: the type travels with the
// payload in one value. Commit and Dispatch accept it in place of the type
// string.
type Envelope struct {
	Type    string
	Payload any
}

// CallOption adjusts a single commit or dispatch call.
type CallOption func(*callOptions)

type callOptions struct {
	root   bool
	silent bool
}

// WithRoot addresses the un-prefixed global type from inside a namespaced
// module's local context.
func WithRoot() CallOption {
	return func(o *callOptions) { o.root = true }
}

// WithSilent is accepted for compatibility and has no remaining effect.
//
// Deprecated: subscriber notification can no longer be suppressed.
func WithSilent() CallOption {
	return func(o *callOptions) { o.silent = true }
}

func callOptionsOf(opts []CallOption) callOptions {
	var o callOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func normalizeCall(s *Store, typ any, payload any) (string, any) {
	switch t := typ.(type) {
	case string:
		return t, payload
	case Envelope:
		return t.Type, t.Payload
	case *Envelope:
		return t.Type, t.Payload
	default:
		if s.devMode {
			assert(false, "expects string or Envelope as the type, but found %T", typ)
		}
		return "", payload
	}
}

// MutationInfo describes a committed mutation to subscribers.
type MutationInfo struct {
	Type    string
	Payload any
}

// ActionInfo describes a dispatched action to subscribers.
type ActionInfo struct {
	Type    string
	Payload any
}

// SubscribeFunc observes committed mutations. It is invoked after every
// handler for the type has run, with the post-mutation state tree.
type SubscribeFunc func(m MutationInfo, state map[string]any)

// ActionSubscriber observes dispatched actions. Before runs prior to the
// handlers, After runs once every handler settled successfully, Error runs
// when the dispatch fails. Any nil hook is skipped. Panics inside hooks are
// caught and logged, never surfaced to the dispatching caller.
type ActionSubscriber struct {
	Before func(a ActionInfo, state map[string]any)
	After  func(a ActionInfo, state map[string]any)
	Error  func(a ActionInfo, state map[string]any, err error)
}

// SubscribeOption adjusts subscriber registration.
type SubscribeOption func(*subscribeOptions)

type subscribeOptions struct {
	prepend bool
}

// WithPrepend places the subscriber at the front of the notification order.
func WithPrepend() SubscribeOption {
	return func(o *subscribeOptions) { o.prepend = true }
}

// subscriberList holds an ordered subscriber collection. Notification always
// iterates over a snapshot so that a subscriber unsubscribing (or
// subscribing) mid-fire never perturbs the running pass.
type subscriberList[T any] struct {
	mu    sync.Mutex
	items []*T
}

func (l *subscriberList[T]) add(item *T, prepend bool) func() {
	l.mu.Lock()
	if prepend {
		l.items = append([]*T{item}, l.items...)
	} else {
		l.items = append(l.items, item)
	}
	l.mu.Unlock()

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		for i, cur := range l.items {
			if cur == item {
				l.items = append(l.items[:i], l.items[i+1:]...)
				return
			}
		}
	}
}

func (l *subscriberList[T]) snapshot() []*T {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*T, len(l.items))
	copy(out, l.items)
	return out
}

// Commit resolves typ against the mutation registry and runs every handler
// registered under it, in registration order, synchronously, inside a
// committing scope. Subscribers are then notified in subscription order with
// the post-mutation state. An unknown type is a logged no-op.
func (s *Store) Commit(typ any, payload any, opts ...CallOption) {
	t, p := normalizeCall(s, typ, payload)
	s.commit(t, p, callOptionsOf(opts))
}

func (s *Store) commit(t string, payload any, o callOptions) {
	if o.silent {
		s.logger.Warn("silent option is deprecated and has no effect", "type", t)
	}
	s.strictCheckpoint()

	entries := s.registries().mutations[t]
	if len(entries) == 0 {
		s.logger.Error("unknown mutation type", "type", t)
		return
	}

	s.writeMu.Lock()
	func() {
		defer s.writeMu.Unlock()
		s.scope.Run(func() {
			for _, h := range entries {
				h(payload)
			}
			// Notify the reactive layer inside the scope so that the
			// strict-mode watcher sees a sanctioned change.
			s.view().Mutated()
		})
	}()

	info := MutationInfo{Type: t, Payload: payload}
	for _, sub := range s.subscribers.snapshot() {
		(*sub)(info, s.stateRaw())
	}
}

// Dispatch resolves typ against the action registry and runs the handlers.
// A single handler's result is returned directly; multiple handlers run
// concurrently and their results are combined into an ordered []any once all
// of them settle. The first handler failure unblocks the caller and is
// returned after error subscribers were notified. An unknown type is a
// logged no-op returning (nil, nil).
func (s *Store) Dispatch(ctx context.Context, typ any, payload any) (any, error) {
	t, p := normalizeCall(s, typ, payload)

	entries := s.registries().actions[t]
	if len(entries) == 0 {
		s.logger.Error("unknown action type", "type", t)
		return nil, nil
	}

	info := ActionInfo{Type: t, Payload: p}
	subs := s.actionSubscribers.snapshot()
	for _, sub := range subs {
		if sub.Before != nil {
			s.guardSubscriber("action before subscriber", func() {
				sub.Before(info, s.stateRaw())
			})
		}
	}

	var result any
	var err error
	if len(entries) == 1 {
		result, err = entries[0](ctx, p)
	} else {
		results := make([]any, len(entries))
		g, gctx := errgroup.WithContext(ctx)
		for i, h := range entries {
			i, h := i, h
			g.Go(func() error {
				r, herr := h(gctx, p)
				results[i] = r
				return herr
			})
		}
		if err = g.Wait(); err == nil {
			result = results
		}
	}

	if err != nil {
		for _, sub := range subs {
			if sub.Error != nil {
				s.guardSubscriber("action error subscriber", func() {
					sub.Error(info, s.stateRaw(), err)
				})
			}
		}
		return nil, err
	}

	for _, sub := range subs {
		if sub.After != nil {
			s.guardSubscriber("action after subscriber", func() {
				sub.After(info, s.stateRaw())
			})
		}
	}
	return result, nil
}

// Subscribe registers fn for mutation notifications and returns its
// unsubscribe function. Registering the identical function reference twice
// is rejected with a diagnostic; the returned remover is then a no-op.
func (s *Store) Subscribe(fn SubscribeFunc, opts ...SubscribeOption) func() {
	var o subscribeOptions
	for _, opt := range opts {
		opt(&o)
	}

	ptr := reflect.ValueOf(fn).Pointer()
	s.subscribers.mu.Lock()
	for _, existing := range s.subscribers.items {
		if reflect.ValueOf(*existing).Pointer() == ptr {
			s.subscribers.mu.Unlock()
			s.logger.Warn("duplicate mutation subscriber ignored")
			return func() {}
		}
	}
	s.subscribers.mu.Unlock()

	return s.subscribers.add(&fn, o.prepend)
}

// SubscribeAction registers the subscriber hooks and returns the unsubscribe
// function.
func (s *Store) SubscribeAction(sub ActionSubscriber, opts ...SubscribeOption) func() {
	var o subscribeOptions
	for _, opt := range opts {
		opt(&o)
	}
	return s.actionSubscribers.add(&sub, o.prepend)
}

func (s *Store) guardSubscriber(kind string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("subscriber panicked", "kind", kind, "panic", r)
		}
	}()
	fn()
}
