package access

import (
	"sort"

	"github.com/google/uuid"
)

// TreeNode is the slice of a catalog feature the tree walk needs.
type TreeNode struct {
	Id        uuid.UUID
	Key       ResourceKey
	ParentId  *uuid.UUID
	IsEnabled bool
	SortOrder int
}

// FeatureTree indexes catalog features by id and key.
type FeatureTree struct {
	byId     map[uuid.UUID]TreeNode
	byKey    map[ResourceKey]uuid.UUID
	children map[uuid.UUID][]uuid.UUID
}

func NewFeatureTree(nodes []TreeNode) *FeatureTree {
	t := &FeatureTree{
		byId:     make(map[uuid.UUID]TreeNode, len(nodes)),
		byKey:    make(map[ResourceKey]uuid.UUID, len(nodes)),
		children: make(map[uuid.UUID][]uuid.UUID),
	}
	for _, n := range nodes {
		t.byId[n.Id] = n
		t.byKey[n.Key] = n.Id
	}
	for _, n := range nodes {
		if n.ParentId != nil {
			t.children[*n.ParentId] = append(t.children[*n.ParentId], n.Id)
		}
	}
	for parent := range t.children {
		ids := t.children[parent]
		sort.Slice(ids, func(i, j int) bool {
			a, b := t.byId[ids[i]], t.byId[ids[j]]
			if a.SortOrder != b.SortOrder {
				return a.SortOrder < b.SortOrder
			}
			return a.Key < b.Key
		})
	}
	return t
}

func (t *FeatureTree) Lookup(key ResourceKey) (TreeNode, bool) {
	if t == nil {
		return TreeNode{}, false
	}
	id, ok := t.byKey[key]
	if !ok {
		return TreeNode{}, false
	}
	return t.byId[id], true
}

func (t *FeatureTree) Node(id uuid.UUID) (TreeNode, bool) {
	if t == nil {
		return TreeNode{}, false
	}
	n, ok := t.byId[id]
	return n, ok
}

// Available reports whether key and every ancestor are enabled. A dangling
// parent reference or a cycle makes the feature unavailable.
func (t *FeatureTree) Available(key ResourceKey) bool {
	node, ok := t.Lookup(key)
	if !ok {
		return false
	}
	seen := map[uuid.UUID]struct{}{}
	for {
		if !node.IsEnabled {
			return false
		}
		if node.ParentId == nil {
			return true
		}
		seen[node.Id] = struct{}{}
		if _, loop := seen[*node.ParentId]; loop {
			return false
		}
		parent, ok := t.byId[*node.ParentId]
		if !ok {
			return false
		}
		node = parent
	}
}

// WouldCycle reports whether re-parenting id under parentId creates a loop.
func (t *FeatureTree) WouldCycle(id, parentId uuid.UUID) bool {
	if id == parentId {
		return true
	}
	seen := map[uuid.UUID]struct{}{}
	current := parentId
	for {
		if current == id {
			return true
		}
		if _, loop := seen[current]; loop {
			return true
		}
		seen[current] = struct{}{}
		node, ok := t.Node(current)
		if !ok || node.ParentId == nil {
			return false
		}
		current = *node.ParentId
	}
}

// Children returns direct children of id in display order.
func (t *FeatureTree) Children(id uuid.UUID) []TreeNode {
	if t == nil {
		return nil
	}
	ids := t.children[id]
	out := make([]TreeNode, 0, len(ids))
	for _, childId := range ids {
		out = append(out, t.byId[childId])
	}
	return out
}

// Keys returns every key in the tree.
func (t *FeatureTree) Keys() []ResourceKey {
	if t == nil {
		return nil
	}
	keys := make([]ResourceKey, 0, len(t.byKey))
	for k := range t.byKey {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
