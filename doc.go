// Package store provides a centralized, module-structured state container
// with a controlled mutation protocol.
//
// # Overview
//
// A store organizes application state around three core concepts:
//
//  1. Modules: a declaration tree carrying state, getters, mutations and actions
//  2. Mutations: the only sanctioned way to change state, committed synchronously
//  3. Actions: asynchronous operations that commit mutations and return results
//
// Module declarations are flattened into registries keyed by namespaced type
// strings. Namespaced modules contribute their path as a prefix
// ("cart/pushItem"); plain modules register under the bare type.
//
// # Basic Usage
//
// Create a store from a root declaration:
//
//	s := store.New(&store.Declaration{
//	    State: map[string]any{"count": 0},
//	    Getters: map[string]store.GetterFunc{
//	        "double": func(state map[string]any, _ *store.GetterView, _ map[string]any, _ *store.GetterView) any {
//	            return state["count"].(int) * 2
//	        },
//	    },
//	    Mutations: map[string]store.MutationFunc{
//	        "increment": func(state map[string]any, payload any) {
//	            state["count"] = state["count"].(int) + payload.(int)
//	        },
//	    },
//	    Actions: map[string]any{
//	        "incrementAsync": func(ctx *store.ActionContext, payload any) (any, error) {
//	            ctx.Commit("increment", payload)
//	            return ctx.State()["count"], nil
//	        },
//	    },
//	})
//
//	s.Commit("increment", 1)
//	result, err := s.Dispatch(context.Background(), "incrementAsync", 2)
//	fmt.Println(s.State()["count"], s.Getter("double"))
//
// Both Commit and Dispatch also accept the object style, where the type
// travels with the payload:
//
//	s.Commit(store.Envelope{Type: "increment", Payload: 1}, nil)
//
// # Modules
//
// Declarations nest. A namespaced module prefixes its getters, mutations and
// actions with its path; its handlers receive the module's own state slice
// and a getter view scoped to its namespace:
//
//	s := store.New(&store.Declaration{
//	    Modules: map[string]*store.Declaration{
//	        "cart": {
//	            Namespaced: true,
//	            State:      map[string]any{"items": []any{}},
//	            Mutations: map[string]store.MutationFunc{
//	                "pushItem": func(state map[string]any, payload any) {
//	                    state["items"] = append(state["items"].([]any), payload)
//	                },
//	            },
//	        },
//	    },
//	})
//
//	s.Commit("cart/pushItem", "apple")
//
// Inside a namespaced module's actions, Commit and Dispatch resolve local
// types first; WithRoot addresses the global namespace instead:
//
//	ctx.Commit("orderPlaced", nil, store.WithRoot())
//
// Modules join and leave at runtime:
//
//	s.RegisterModule([]string{"session"}, sessionDecl)
//	s.UnregisterModule([]string{"session"})
//
// # Strict Mode
//
// With WithStrict, an invariant watcher flags state changed outside a
// mutation handler by panicking at the next checkpoint. Deep-compares state
// on every commit; keep it out of production builds:
//
//	s := store.New(decl, store.WithStrict())
//
// # Subscribers and Watchers
//
// Subscribers observe every committed mutation; action subscribers hook
// before, after and on error:
//
//	unsub := s.Subscribe(func(m store.MutationInfo, state map[string]any) {
//	    log.Println(m.Type, state)
//	})
//
// Watch tracks a derived value:
//
//	stop := s.Watch(func(state map[string]any, g *store.GetterView) any {
//	    return g.Get("double")
//	}, func(newVal, oldVal any) {
//	    fmt.Println("double:", oldVal, "->", newVal)
//	}, store.WatchOptions{})
//
// # Hot Reload
//
// HotUpdate swaps every handler in place while state survives:
//
//	if err := s.HotUpdate(nextDecl); err != nil {
//	    // unknown module key, nothing was applied
//	}
//
// # Plugins
//
// Plugins receive the store after construction, typically to subscribe:
//
//	s := store.New(decl, store.WithPlugin(extensions.Logger()))
//
// # Thread Safety
//
// All store operations are safe for concurrent use. Commits serialize on an
// internal write lock; actions registered more than once under a type run
// concurrently and their results are collected in registration order.
package store
