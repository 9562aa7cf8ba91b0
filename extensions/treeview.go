package extensions

import (
	"github.com/m1gwings/treedrawer/tree"

	store "github.com/store-fn/store-go"
)

// RenderModuleTree draws the registered module hierarchy as ASCII art.
// Namespaced modules are labeled with their full namespace prefix, plain
// modules with their key, runtime modules with a marker.
//
// Usage:
//
//	fmt.Println(extensions.RenderModuleTree(s))
func RenderModuleTree(s *store.Store) string {
	root := tree.NewTree(tree.NodeString("(root)"))
	addChildren(root, s.ExportModuleTree())
	return root.String()
}

func addChildren(t *tree.Tree, node store.ModuleNode) {
	for i, child := range node.Children {
		t.AddChild(tree.NodeString(nodeLabel(child)))
		sub, err := t.Child(i)
		if err != nil {
			continue
		}
		addChildren(sub, child)
	}
}

func nodeLabel(n store.ModuleNode) string {
	label := n.Key
	if n.Namespace != "" {
		label = n.Namespace
	}
	if n.Runtime {
		label += " *"
	}
	return label
}
