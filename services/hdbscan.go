package services

import (
	"math"
	"sort"
)

// maxLambda caps 1/distance for coincident points.
const maxLambda = 1e12

type mstEdge struct {
	a, b   int
	weight float64
}

// condensedRow is one edge of the condensed cluster tree. child is a point
// index when below n, otherwise a condensed cluster id.
type condensedRow struct {
	parent int
	child  int
	lambda float64
	size   int
}

// linkage is the single-linkage hierarchy over n points. Internal node n+k
// joins left[k] and right[k] at height[k].
type linkage struct {
	n      int
	left   []int
	right  []int
	height []float64
	size   []int
}

// hdbscan labels points by the most stable clusters of the condensed
// mutual-reachability hierarchy.
func hdbscan(vectors [][]float64, minClusterSize, minSamples int, dist metric) []int {
	n := len(vectors)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = NoiseLabel
	}
	if n < minClusterSize || n < 2 {
		return labels
	}

	core := coreDistances(n, minSamples, dist)
	edges := primMST(n, core, dist)
	sort.SliceStable(edges, func(i, j int) bool { return edges[i].weight < edges[j].weight })
	tree := singleLinkage(n, edges)
	rows, clusterCount := condenseTree(tree, minClusterSize)
	if clusterCount == 1 {
		return labelSingleCluster(n, rows, labels)
	}
	selected := selectClusters(n, rows, clusterCount)

	parentOf := make(map[int]int, len(rows))
	for _, r := range rows {
		parentOf[r.child] = r.parent
	}
	for p := 0; p < n; p++ {
		c, ok := parentOf[p]
		for ok {
			if selected[c] {
				labels[p] = c
				break
			}
			c, ok = parentOf[c]
		}
	}
	return labels
}

// labelSingleCluster handles a tree that never splits: the root is the only
// cluster, and a point belongs to it only if it stays until the root's
// densest level. Points that fall out earlier are noise.
func labelSingleCluster(n int, rows []condensedRow, labels []int) []int {
	var densest float64
	for _, r := range rows {
		if r.lambda > densest {
			densest = r.lambda
		}
	}
	for _, r := range rows {
		if r.child < n && r.lambda >= densest {
			labels[r.child] = n
		}
	}
	return labels
}

// coreDistances returns each point's distance to its minSamples-th nearest
// neighbour, counting the point itself.
func coreDistances(n, minSamples int, dist metric) []float64 {
	k := minSamples
	if k > n {
		k = n
	}
	core := make([]float64, n)
	row := make([]float64, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				row[j] = 0
				continue
			}
			row[j] = dist(i, j)
		}
		sort.Float64s(row)
		core[i] = row[k-1]
	}
	return core
}

func primMST(n int, core []float64, dist metric) []mstEdge {
	inTree := make([]bool, n)
	best := make([]float64, n)
	from := make([]int, n)
	for i := range best {
		best[i] = math.Inf(1)
	}

	edges := make([]mstEdge, 0, n-1)
	current := 0
	inTree[current] = true
	for len(edges) < n-1 {
		for j := 0; j < n; j++ {
			if inTree[j] {
				continue
			}
			d := math.Max(dist(current, j), math.Max(core[current], core[j]))
			if d < best[j] {
				best[j] = d
				from[j] = current
			}
		}
		next := -1
		for j := 0; j < n; j++ {
			if inTree[j] {
				continue
			}
			if next < 0 || best[j] < best[next] {
				next = j
			}
		}
		edges = append(edges, mstEdge{a: from[next], b: next, weight: best[next]})
		inTree[next] = true
		current = next
	}
	return edges
}

func singleLinkage(n int, edges []mstEdge) *linkage {
	total := 2*n - 1
	t := &linkage{
		n:      n,
		left:   make([]int, n-1),
		right:  make([]int, n-1),
		height: make([]float64, n-1),
		size:   make([]int, total),
	}
	uf := make([]int, total)
	for i := range uf {
		uf[i] = i
		if i < n {
			t.size[i] = 1
		}
	}
	find := func(x int) int {
		root := x
		for uf[root] != root {
			root = uf[root]
		}
		for uf[x] != root {
			uf[x], x = root, uf[x]
		}
		return root
	}

	for k, e := range edges {
		a, b := find(e.a), find(e.b)
		node := n + k
		uf[a], uf[b] = node, node
		t.left[k], t.right[k], t.height[k] = a, b, e.weight
		t.size[node] = t.size[a] + t.size[b]
	}
	return t
}

func (t *linkage) leaves(node int) []int {
	var out []int
	stack := []int{node}
	for len(stack) > 0 {
		x := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if x < t.n {
			out = append(out, x)
			continue
		}
		stack = append(stack, t.right[x-t.n], t.left[x-t.n])
	}
	return out
}

func lambdaOf(d float64) float64 {
	if d <= 1/maxLambda {
		return maxLambda
	}
	return 1 / d
}

// condenseTree walks the hierarchy top-down. A split where both sides reach
// minClusterSize births two clusters; otherwise the undersized side falls out
// as points and the parent cluster persists. Condensed ids start at n and a
// child always gets a larger id than its parent.
func condenseTree(t *linkage, minClusterSize int) ([]condensedRow, int) {
	n := t.n
	root := 2*n - 2
	relabel := map[int]int{root: n}
	next := n + 1

	var rows []condensedRow
	fallOut := func(parent, node int, lambda float64) {
		for _, p := range t.leaves(node) {
			rows = append(rows, condensedRow{parent: parent, child: p, lambda: lambda, size: 1})
		}
	}

	stack := []int{root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		k := node - n
		left, right := t.left[k], t.right[k]
		lambda := lambdaOf(t.height[k])
		ls, rs := t.size[left], t.size[right]
		parent := relabel[node]

		switch {
		case ls >= minClusterSize && rs >= minClusterSize:
			for _, child := range []int{left, right} {
				relabel[child] = next
				rows = append(rows, condensedRow{parent: parent, child: next, lambda: lambda, size: t.size[child]})
				next++
			}
			stack = append(stack, right, left)
		case ls < minClusterSize && rs < minClusterSize:
			fallOut(parent, left, lambda)
			fallOut(parent, right, lambda)
		case ls < minClusterSize:
			relabel[right] = parent
			fallOut(parent, left, lambda)
			stack = append(stack, right)
		default:
			relabel[left] = parent
			fallOut(parent, right, lambda)
			stack = append(stack, left)
		}
	}
	return rows, next - n
}

// selectClusters applies excess-of-mass selection: a cluster is kept when its
// stability is at least the summed stability of its selected descendants.
// The root is never a candidate here.
func selectClusters(n int, rows []condensedRow, count int) map[int]bool {
	birth := make([]float64, count)
	stability := make([]float64, count)
	children := make([][]int, count)
	for _, r := range rows {
		if r.child >= n {
			birth[r.child-n] = r.lambda
			children[r.parent-n] = append(children[r.parent-n], r.child)
		}
	}
	for _, r := range rows {
		c := r.parent - n
		stability[c] += (r.lambda - birth[c]) * float64(r.size)
	}

	selected := make(map[int]bool, count)
	var deselect func(c int)
	deselect = func(c int) {
		for _, child := range children[c-n] {
			selected[child] = false
			deselect(child)
		}
	}

	best := make([]float64, count)
	for c := n + count - 1; c > n; c-- {
		var subtree float64
		for _, child := range children[c-n] {
			subtree += best[child-n]
		}
		if stability[c-n] >= subtree {
			selected[c] = true
			best[c-n] = stability[c-n]
			deselect(c)
		} else {
			best[c-n] = subtree
		}
	}
	return selected
}
