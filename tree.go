package store

import (
	"fmt"
	"log/slog"
	"strings"
)

// ModuleTree owns the module hierarchy. Modules are only reachable through
// path segments from the root, so unregistering a subtree is a plain detach
// with nothing left pointing into it.
type ModuleTree struct {
	root    *Module
	devMode bool
	logger  *slog.Logger
}

func newModuleTree(decl *Declaration, devMode bool, logger *slog.Logger) *ModuleTree {
	t := &ModuleTree{devMode: devMode, logger: logger}
	t.Register(nil, decl, false)
	return t
}

// Register constructs a Module from decl and attaches it at path. An empty
// path installs the root. An existing child at the final key is overwritten.
// Nested Modules declarations are registered recursively with the same
// runtime flag.
func (t *ModuleTree) Register(path []string, decl *Declaration, runtime bool) {
	if t.devMode {
		decl.validate(path)
	}
	m := newModule(decl, runtime)
	if len(path) == 0 {
		t.root = m
	} else {
		parent := t.Get(path[:len(path)-1])
		if parent == nil {
			t.logger.Error("cannot register module: parent path does not resolve",
				"path", pathString(path))
			return
		}
		parent.addChild(path[len(path)-1], m)
	}
	for _, key := range sortedKeys(decl.Modules) {
		t.Register(append(append([]string(nil), path...), key), decl.Modules[key], runtime)
	}
}

// Get walks the tree from the root. It returns nil when any segment is
// missing.
func (t *ModuleTree) Get(path []string) *Module {
	m := t.root
	for _, key := range path {
		if m == nil {
			return nil
		}
		m = m.child(key)
	}
	return m
}

// Namespace returns the flat-registry prefix for the module at path. Only
// nodes that declared Namespaced contribute their own key segment; a
// non-namespaced ancestor is transparent. A missing segment fails with
// ErrPathNotFound rather than walking off the tree.
func (t *ModuleTree) Namespace(path []string) (string, error) {
	m := t.root
	var ns strings.Builder
	for _, key := range path {
		m = m.child(key)
		if m == nil {
			return "", fmt.Errorf("%w: %s", ErrPathNotFound, pathString(path))
		}
		if m.namespaced() {
			ns.WriteString(key)
			ns.WriteString("/")
		}
	}
	return ns.String(), nil
}

// Update swaps the namespaced flags, getters, mutations and actions of the
// existing tree for those of decl, matching modules by key. State is never
// replaced. The whole update is validated first: if decl introduces a module
// key the current tree does not have, nothing is applied and the mismatch is
// reported, so the tree is never left half-updated.
func (t *ModuleTree) Update(decl *Declaration) error {
	if t.devMode {
		decl.validate(nil)
	}
	if err := checkUpdateShape(nil, t.root, decl); err != nil {
		t.logger.Error("hot update aborted", "error", err)
		return err
	}
	applyUpdate(t.root, decl)
	return nil
}

func checkUpdateShape(path []string, target *Module, decl *Declaration) error {
	for key, child := range decl.Modules {
		childPath := append(append([]string(nil), path...), key)
		next := target.child(key)
		if next == nil {
			return fmt.Errorf("%w: %s", ErrUnknownModuleKey, pathString(childPath))
		}
		if err := checkUpdateShape(childPath, next, child); err != nil {
			return err
		}
	}
	return nil
}

func applyUpdate(target *Module, decl *Declaration) {
	target.update(decl)
	for key, child := range decl.Modules {
		applyUpdate(target.child(key), child)
	}
}

// Unregister detaches the module at path from its parent and reports whether
// a detach happened. Modules that were part of the initial declaration
// (runtime false) are left alone.
func (t *ModuleTree) Unregister(path []string) bool {
	if len(path) == 0 {
		t.logger.Warn("cannot unregister the root module")
		return false
	}
	parent := t.Get(path[:len(path)-1])
	if parent == nil {
		t.logger.Warn("cannot unregister module: parent path does not resolve",
			"path", pathString(path))
		return false
	}
	key := path[len(path)-1]
	child := parent.child(key)
	if child == nil {
		t.logger.Warn("cannot unregister module: module is not registered",
			"path", pathString(path))
		return false
	}
	if !child.runtime {
		return false
	}
	parent.removeChild(key)
	return true
}

// IsRegistered reports whether a module exists at path.
func (t *ModuleTree) IsRegistered(path []string) bool {
	if len(path) == 0 {
		return t.root != nil
	}
	parent := t.Get(path[:len(path)-1])
	return parent != nil && parent.hasChild(path[len(path)-1])
}
