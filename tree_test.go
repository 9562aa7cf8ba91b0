package store

import (
	"errors"
	"io"
	"log/slog"
	"testing"
)

func testTree(decl *Declaration) *ModuleTree {
	return newModuleTree(decl, true, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestTree_NamespaceConcatenation(t *testing.T) {
	// Only namespaced nodes contribute a segment; "plain" is transparent.
	tree := testTree(&Declaration{
		Modules: map[string]*Declaration{
			"a": {
				Namespaced: true,
				Modules: map[string]*Declaration{
					"plain": {
						Modules: map[string]*Declaration{
							"c": {Namespaced: true},
						},
					},
				},
			},
		},
	})

	cases := []struct {
		path []string
		want string
	}{
		{nil, ""},
		{[]string{"a"}, "a/"},
		{[]string{"a", "plain"}, "a/"},
		{[]string{"a", "plain", "c"}, "a/c/"},
	}
	for _, tc := range cases {
		ns, err := tree.Namespace(tc.path)
		if err != nil {
			t.Fatalf("Namespace(%v) failed: %v", tc.path, err)
		}
		if ns != tc.want {
			t.Errorf("Namespace(%v): expected %q, got %q", tc.path, tc.want, ns)
		}
	}
}

func TestTree_NamespaceBrokenPath(t *testing.T) {
	tree := testTree(&Declaration{})
	_, err := tree.Namespace([]string{"missing"})
	if !errors.Is(err, ErrPathNotFound) {
		t.Fatalf("Expected ErrPathNotFound, got %v", err)
	}
}

func TestTree_RegisterOverwritesExistingChild(t *testing.T) {
	tree := testTree(&Declaration{
		Modules: map[string]*Declaration{
			"m": {State: map[string]any{"v": 1}},
		},
	})
	tree.Register([]string{"m"}, &Declaration{State: map[string]any{"v": 2}}, true)

	m := tree.Get([]string{"m"})
	if m == nil {
		t.Fatal("Expected module at path m")
	}
	if m.state["v"] != 2 {
		t.Errorf("Expected replacement module state, got %v", m.state["v"])
	}
	if !m.runtime {
		t.Error("Expected replacement module to carry the runtime flag")
	}
}

func TestTree_UnregisterOnlyRuntimeModules(t *testing.T) {
	tree := testTree(&Declaration{
		Modules: map[string]*Declaration{
			"static": {},
		},
	})
	tree.Register([]string{"dynamic"}, &Declaration{}, true)

	if tree.Unregister([]string{"static"}) {
		t.Error("Expected unregistering an initial-declaration module to be refused")
	}
	if !tree.IsRegistered([]string{"static"}) {
		t.Error("Static module must survive the refused unregister")
	}

	if !tree.Unregister([]string{"dynamic"}) {
		t.Error("Expected runtime module to unregister")
	}
	if tree.IsRegistered([]string{"dynamic"}) {
		t.Error("Runtime module must be gone after unregister")
	}

	if tree.Unregister([]string{"never-there"}) {
		t.Error("Expected unregistering an unknown path to report false")
	}
	if tree.Unregister(nil) {
		t.Error("Expected unregistering the root to report false")
	}
}

func TestTree_UpdateSwapsHandlersKeepsState(t *testing.T) {
	tree := testTree(&Declaration{
		State: map[string]any{"n": 7},
		Mutations: map[string]MutationFunc{
			"old": func(map[string]any, any) {},
		},
	})

	err := tree.Update(&Declaration{
		Mutations: map[string]MutationFunc{
			"new": func(map[string]any, any) {},
		},
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	root := tree.Get(nil)
	if _, ok := root.decl.Mutations["new"]; !ok {
		t.Error("Expected updated mutation set")
	}
	if _, ok := root.decl.Mutations["old"]; ok {
		t.Error("Expected old mutation set to be replaced")
	}
	if root.state["n"] != 7 {
		t.Errorf("Expected state to survive the update, got %v", root.state["n"])
	}
}

func TestTree_UpdateUnknownModuleKeyAborts(t *testing.T) {
	tree := testTree(&Declaration{
		Modules: map[string]*Declaration{
			"known": {
				Mutations: map[string]MutationFunc{
					"keep": func(map[string]any, any) {},
				},
			},
		},
	})

	err := tree.Update(&Declaration{
		Modules: map[string]*Declaration{
			"known": {
				Mutations: map[string]MutationFunc{
					"replaced": func(map[string]any, any) {},
				},
			},
			"unknown": {},
		},
	})
	if !errors.Is(err, ErrUnknownModuleKey) {
		t.Fatalf("Expected ErrUnknownModuleKey, got %v", err)
	}

	// All-or-nothing: the matching sibling must be untouched.
	known := tree.Get([]string{"known"})
	if _, ok := known.decl.Mutations["keep"]; !ok {
		t.Error("Expected aborted update to leave existing handlers in place")
	}
}

func TestTree_ValidateRejectsBadShapes(t *testing.T) {
	bad := []*Declaration{
		{State: 42},
		{Getters: map[string]GetterFunc{"g": nil}},
		{Mutations: map[string]MutationFunc{"m": nil}},
		{Actions: map[string]any{"a": "not a function"}},
		{Actions: map[string]any{"a": ActionDecl{}}},
	}
	for i, decl := range bad {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("Declaration %d: expected validation panic", i)
				}
			}()
			testTree(decl)
		}()
	}
}
