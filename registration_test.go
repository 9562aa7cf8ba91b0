package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func sessionDecl() *Declaration {
	return &Declaration{
		Namespaced: true,
		State:      map[string]any{"user": "guest"},
		Getters: map[string]GetterFunc{
			"loggedIn": func(state map[string]any, _ *GetterView, _ map[string]any, _ *GetterView) any {
				return state["user"] != "guest"
			},
		},
		Mutations: map[string]MutationFunc{
			"login": func(state map[string]any, payload any) {
				state["user"] = payload
			},
		},
	}
}

func TestRegisterModule_GraftsStateAndHandlers(t *testing.T) {
	s := New(counterDecl(), quiet())

	s.RegisterModule([]string{"session"}, sessionDecl())
	require.True(t, s.HasModule([]string{"session"}))

	sessionState, ok := s.State()["session"].(map[string]any)
	require.True(t, ok, "module state must be grafted onto the parent")
	require.Equal(t, "guest", sessionState["user"])

	s.Commit("session/login", "ada")
	require.Equal(t, "ada", sessionState["user"])
	require.Equal(t, true, s.Getter("session/loggedIn"))

	// Existing registrations survive the rebuild.
	s.Commit("increment", 1)
	require.Equal(t, 1, s.State()["count"])
}

func TestUnregisterModule_RemovesStateAndHandlers(t *testing.T) {
	s := New(counterDecl(), quiet())
	s.RegisterModule([]string{"session"}, sessionDecl())

	s.UnregisterModule([]string{"session"})
	require.False(t, s.HasModule([]string{"session"}))
	require.NotContains(t, s.State(), "session")
	require.Nil(t, s.Getter("session/loggedIn"))

	// The type is gone from the registry; committing it is a no-op.
	s.Commit("session/login", "ada")
	require.NotContains(t, s.State(), "session")
}

func TestUnregisterModule_InitialModulesAreKept(t *testing.T) {
	s := New(&Declaration{
		Modules: map[string]*Declaration{
			"static": {
				Namespaced: true,
				State:      map[string]any{"v": 1},
			},
		},
	}, quiet())

	s.UnregisterModule([]string{"static"})
	require.True(t, s.HasModule([]string{"static"}))
	require.Contains(t, s.State(), "static")
}

func TestRegisterModule_PreserveState(t *testing.T) {
	s := New(counterDecl(), quiet())
	s.ReplaceState(map[string]any{
		"count":   0,
		"session": map[string]any{"user": "restored"},
	})

	s.RegisterModule([]string{"session"}, sessionDecl(), WithPreserveState())
	require.Equal(t, true, s.Getter("session/loggedIn"))

	sessionState := s.State()["session"].(map[string]any)
	require.Equal(t, "restored", sessionState["user"])
}

func TestRegisterModule_NestedPath(t *testing.T) {
	s := New(&Declaration{
		Modules: map[string]*Declaration{
			"outer": {Namespaced: true},
		},
	}, quiet())

	s.RegisterModule([]string{"outer", "inner"}, &Declaration{
		Namespaced: true,
		State:      map[string]any{"v": 1},
		Mutations: map[string]MutationFunc{
			"set": func(state map[string]any, payload any) {
				state["v"] = payload
			},
		},
	})

	s.Commit("outer/inner/set", 2)
	outer := s.State()["outer"].(map[string]any)
	inner := outer["inner"].(map[string]any)
	require.Equal(t, 2, inner["v"])
}

func TestHotUpdate_SwapsBehaviorKeepsState(t *testing.T) {
	s := New(counterDecl(), quiet())
	s.Commit("increment", 3)

	err := s.HotUpdate(&Declaration{
		Mutations: map[string]MutationFunc{
			"increment": func(state map[string]any, _ any) {
				state["count"] = state["count"].(int) * 10
			},
		},
	})
	require.NoError(t, err)

	require.Equal(t, 3, s.State()["count"], "state must survive a hot update")
	s.Commit("increment", nil)
	require.Equal(t, 30, s.State()["count"], "new handler must be live")
}

func TestHotUpdate_UnknownModuleKeyAborts(t *testing.T) {
	s := New(counterDecl(), quiet())

	err := s.HotUpdate(&Declaration{
		Modules: map[string]*Declaration{"ghost": {}},
	})
	require.ErrorIs(t, err, ErrUnknownModuleKey)

	// Nothing was applied; the old handlers still run.
	s.Commit("increment", 2)
	require.Equal(t, 2, s.State()["count"])
}

func TestHotUpdate_NamespaceFlagFlip(t *testing.T) {
	s := New(&Declaration{
		Modules: map[string]*Declaration{
			"m": {
				State: map[string]any{"v": 0},
				Mutations: map[string]MutationFunc{
					"set": func(state map[string]any, payload any) {
						state["v"] = payload
					},
				},
			},
		},
	}, quiet())

	// Plain module registers under the bare type.
	s.Commit("set", 1)

	err := s.HotUpdate(&Declaration{
		Modules: map[string]*Declaration{
			"m": {
				Namespaced: true,
				Mutations: map[string]MutationFunc{
					"set": func(state map[string]any, payload any) {
						state["v"] = payload
					},
				},
			},
		},
	})
	require.NoError(t, err)

	s.Commit("m/set", 2)
	m := s.State()["m"].(map[string]any)
	require.Equal(t, 2, m["v"])
}

func TestRegisterModule_WatchersSurviveRebuild(t *testing.T) {
	s := New(counterDecl(), quiet())

	var seen []any
	s.Watch(func(state map[string]any, _ *GetterView) any {
		return state["count"]
	}, func(newVal, _ any) {
		seen = append(seen, newVal)
	}, WatchOptions{Sync: true})

	s.RegisterModule([]string{"session"}, sessionDecl())
	s.Commit("increment", 1)

	require.Contains(t, seen, 1, "watcher must be re-attached after the rebuild")
}

func TestExportModuleTree(t *testing.T) {
	s := New(&Declaration{
		Modules: map[string]*Declaration{
			"a": {
				Namespaced: true,
				Modules: map[string]*Declaration{
					"b": {},
				},
			},
		},
	}, quiet())
	s.RegisterModule([]string{"dyn"}, &Declaration{Namespaced: true})

	root := s.ExportModuleTree()
	require.Equal(t, "", root.Key)
	require.Len(t, root.Children, 2)

	// Children come back in sorted key order.
	require.Equal(t, "a", root.Children[0].Key)
	require.Equal(t, "a/", root.Children[0].Namespace)
	require.False(t, root.Children[0].Runtime)
	require.Len(t, root.Children[0].Children, 1)
	require.Equal(t, "b", root.Children[0].Children[0].Key)
	require.Equal(t, "a/", root.Children[0].Children[0].Namespace)

	require.Equal(t, "dyn", root.Children[1].Key)
	require.True(t, root.Children[1].Runtime)
}
