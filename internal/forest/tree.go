package forest

import (
	"math/rand"
	"sort"
)

// leaf marks a terminal node in node.Feature.
const leaf = -1

// node is one CART node. Left and Right index into Tree.Nodes.
type node struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t,omitempty"`
	Left      int32   `json:"l,omitempty"`
	Right     int32   `json:"r,omitempty"`
	Value     float64 `json:"v"`
}

// Tree is a regression tree stored as a flat node array; Nodes[0] is the root.
type Tree struct {
	Nodes []node `json:"nodes"`
}

func (t *Tree) predict(x []float64) float64 {
	i := 0
	for {
		n := &t.Nodes[i]
		if n.Feature == leaf {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = int(n.Left)
		} else {
			i = int(n.Right)
		}
	}
}

type treeBuilder struct {
	x        [][]float64
	y        []float64
	mtry     int
	minLeaf  int
	maxDepth int
	rng      *rand.Rand
	nodes    []node
	order    []int
}

// growTree fits one regression tree on the rows listed in idx (a bootstrap
// sample, duplicates allowed). At every node mtry candidate features are
// drawn without replacement and the split minimizing the summed squared
// error of the children is taken.
func growTree(x [][]float64, y []float64, idx []int, mtry, minLeaf, maxDepth int, rng *rand.Rand) Tree {
	b := &treeBuilder{x: x, y: y, mtry: mtry, minLeaf: minLeaf, maxDepth: maxDepth, rng: rng}
	b.grow(idx, 0)
	return Tree{Nodes: b.nodes}
}

func (b *treeBuilder) grow(idx []int, depth int) int32 {
	id := int32(len(b.nodes))
	sum, sumSq := 0.0, 0.0
	for _, i := range idx {
		sum += b.y[i]
		sumSq += b.y[i] * b.y[i]
	}
	n := float64(len(idx))
	b.nodes = append(b.nodes, node{Feature: leaf, Value: sum / n})

	if len(idx) < 2*b.minLeaf || (b.maxDepth > 0 && depth >= b.maxDepth) {
		return id
	}
	parentSSE := sumSq - sum*sum/n
	if parentSSE <= 1e-12 {
		return id
	}

	feature, threshold, ok := b.bestSplit(idx, parentSSE)
	if !ok {
		return id
	}
	var left, right []int
	for _, i := range idx {
		if b.x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return id
	}
	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[id] = node{Feature: feature, Threshold: threshold, Left: l, Right: r, Value: sum / n}
	return id
}

func (b *treeBuilder) bestSplit(idx []int, parentSSE float64) (feature int, threshold float64, ok bool) {
	p := len(b.x[0])
	feats := b.rng.Perm(p)[:b.mtry]
	bestSSE := parentSSE
	if cap(b.order) < len(idx) {
		b.order = make([]int, len(idx))
	}
	order := b.order[:len(idx)]
	for _, f := range feats {
		copy(order, idx)
		sort.SliceStable(order, func(i, j int) bool { return b.x[order[i]][f] < b.x[order[j]][f] })

		total, totalSq := 0.0, 0.0
		for _, i := range order {
			total += b.y[i]
			totalSq += b.y[i] * b.y[i]
		}
		lSum, lSq := 0.0, 0.0
		n := len(order)
		for k := 1; k < n; k++ {
			yi := b.y[order[k-1]]
			lSum += yi
			lSq += yi * yi
			if k < b.minLeaf || n-k < b.minLeaf {
				continue
			}
			lo, hi := b.x[order[k-1]][f], b.x[order[k]][f]
			if lo == hi {
				continue
			}
			nl, nr := float64(k), float64(n-k)
			rSum, rSq := total-lSum, totalSq-lSq
			sse := (lSq - lSum*lSum/nl) + (rSq - rSum*rSum/nr)
			if sse < bestSSE-1e-12 {
				bestSSE = sse
				feature = f
				threshold = lo + (hi-lo)/2
				ok = true
			}
		}
	}
	return feature, threshold, ok
}
