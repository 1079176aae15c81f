// Package tree provides helpers for walking nested project file trees.
package tree

import (
	"strings"

	"github.com/codenest/codenest/pkg/models"
)

// CountNodes counts all nodes in a forest.
func CountNodes(nodes []*models.FileNode) int {
	count := 0
	for _, n := range nodes {
		count += 1 + CountNodes(n.Children)
	}
	return count
}

// BuildChildPath constructs a child path from parent + name.
// Root-level nodes have no parent path and their path is their name.
func BuildChildPath(parentPath, name string) string {
	if parentPath == "" {
		return name
	}
	return parentPath + "/" + name
}

// Extension returns the lower-cased text after the last dot of name,
// or the whole name lower-cased when it has no dot.
func Extension(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return strings.ToLower(name[i+1:])
	}
	return strings.ToLower(name)
}

// Clone returns a deep copy of a forest.
func Clone(nodes []*models.FileNode) []*models.FileNode {
	if nodes == nil {
		return nil
	}
	out := make([]*models.FileNode, len(nodes))
	for i, n := range nodes {
		c := *n
		c.Children = Clone(n.Children)
		out[i] = &c
	}
	return out
}
