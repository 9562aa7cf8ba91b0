package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func scopedStore(t *testing.T) *Store {
	t.Helper()
	return New(&Declaration{
		State: map[string]any{"visits": 0},
		Mutations: map[string]MutationFunc{
			"visit": func(state map[string]any, _ any) {
				state["visits"] = state["visits"].(int) + 1
			},
		},
		Getters: map[string]GetterFunc{
			"visits": func(state map[string]any, _ *GetterView, _ map[string]any, _ *GetterView) any {
				return state["visits"]
			},
		},
		Modules: map[string]*Declaration{
			"profile": {
				Namespaced: true,
				State:      map[string]any{"name": "anonymous"},
				Getters: map[string]GetterFunc{
					"displayName": func(state map[string]any, _ *GetterView, _ map[string]any, _ *GetterView) any {
						return "~" + state["name"].(string)
					},
					"withVisits": func(state map[string]any, _ *GetterView, rootState map[string]any, rootGetters *GetterView) any {
						return rootState["visits"].(int)
					},
				},
				Mutations: map[string]MutationFunc{
					"rename": func(state map[string]any, payload any) {
						state["name"] = payload
					},
				},
				Actions: map[string]any{
					"introduce": func(ctx *ActionContext, payload any) (any, error) {
						ctx.Commit("rename", payload)
						ctx.Commit("visit", nil, WithRoot())
						return ctx.Getters().Get("displayName"), nil
					},
					"whereAmI": func(ctx *ActionContext, _ any) (any, error) {
						return map[string]any{
							"local": ctx.State()["name"],
							"root":  ctx.RootState()["visits"],
							"via":   ctx.RootGetters().Get("visits"),
						}, nil
					},
				},
			},
		},
	}, quiet())
}

func TestContext_LocalCommitAndRootEscape(t *testing.T) {
	s := scopedStore(t)

	result, err := s.Dispatch(context.Background(), "profile/introduce", "ada")
	require.NoError(t, err)
	require.Equal(t, "~ada", result)

	profile := s.State()["profile"].(map[string]any)
	require.Equal(t, "ada", profile["name"])
	require.Equal(t, 1, s.State()["visits"], "WithRoot must commit the un-prefixed type")
}

func TestContext_RootStateAndGettersFromAction(t *testing.T) {
	s := scopedStore(t)
	s.Commit("visit", nil)

	result, err := s.Dispatch(context.Background(), "profile/whereAmI", nil)
	require.NoError(t, err)
	require.Equal(t, map[string]any{
		"local": "anonymous",
		"root":  1,
		"via":   1,
	}, result)
}

func TestGetterView_LocalNamespaceMapping(t *testing.T) {
	s := scopedStore(t)

	local := s.localGetters("profile/")
	require.True(t, local.Has("displayName"))
	require.False(t, local.Has("visits"), "root getters are invisible through a local view")
	require.Equal(t, []string{"displayName", "withVisits"}, local.Keys())
	require.Equal(t, "~anonymous", local.Get("displayName"))
	require.Nil(t, local.Get("unknown"))
}

func TestGetterView_Root(t *testing.T) {
	s := scopedStore(t)

	g := s.Getters()
	require.True(t, g.Has("visits"))
	require.True(t, g.Has("profile/displayName"))
	require.Equal(t, []string{"profile/displayName", "profile/withVisits", "visits"}, g.Keys())
	require.Nil(t, g.Get("unknown"))
}

func TestContext_UnknownLocalTypeIsNoOp(t *testing.T) {
	s := New(&Declaration{
		Modules: map[string]*Declaration{
			"m": {
				Namespaced: true,
				State:      map[string]any{"v": 0},
				Actions: map[string]any{
					"touchMissing": func(ctx *ActionContext, _ any) (any, error) {
						// Resolves to "m/missing", which no module registers.
						ctx.Commit("missing", nil)
						out, err := ctx.Dispatch("missing", nil)
						return out, err
					},
				},
			},
		},
	}, quiet())

	result, err := s.Dispatch(context.Background(), "m/touchMissing", nil)
	require.NoError(t, err)
	require.Nil(t, result)
}

func TestContext_LocalStateTracksStructuralChange(t *testing.T) {
	// The local context walks the live tree on every access, so a state
	// replacement under the module's path is picked up immediately.
	s := scopedStore(t)
	s.ReplaceState(map[string]any{
		"visits":  0,
		"profile": map[string]any{"name": "replaced"},
	})

	result, err := s.Dispatch(context.Background(), "profile/whereAmI", nil)
	require.NoError(t, err)
	require.Equal(t, "replaced", result.(map[string]any)["local"])
}
