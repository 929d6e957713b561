package tree

// Forest builds the trees described by a parent relation over nodes.
//
// Nodes without a parent, or whose parent is not among nodes, become roots in
// the order they are given. Nodes only reachable through a cycle of parents
// are added as extra roots so that every node appears exactly once.
func Forest[K comparable, T any](nodes []K, parent func(K) (K, bool), payload func(K) T) []*Tree[T] {
	known := make(map[K]bool, len(nodes))
	for _, n := range nodes {
		known[n] = true
	}
	children := map[K][]K{}
	roots := []K{}
	for _, n := range nodes {
		p, ok := parent(n)
		if !ok || !known[p] {
			roots = append(roots, n)
			continue
		}
		children[p] = append(children[p], n)
	}

	visited := make(map[K]bool, len(nodes))
	var grow func(t *Tree[T], k K)
	grow = func(t *Tree[T], k K) {
		for _, c := range children[k] {
			if visited[c] {
				continue
			}
			visited[c] = true
			grow(t.AddChild(payload(c)), c)
		}
	}

	forest := []*Tree[T]{}
	plant := func(k K) {
		visited[k] = true
		t := New(payload(k))
		grow(t, k)
		forest = append(forest, t)
	}
	for _, r := range roots {
		plant(r)
	}
	for _, n := range nodes {
		if !visited[n] {
			plant(n)
		}
	}
	return forest
}
