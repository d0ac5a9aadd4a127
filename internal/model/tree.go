package model

import (
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Node is one split or leaf of a regression tree. Children are indexes into
// the owning tree's node slice.
type Node struct {
	Leaf      bool    `json:"leaf,omitempty"`
	Feature   int     `json:"feature,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
	Left      int     `json:"left,omitempty"`
	Right     int     `json:"right,omitempty"`
	Value     float64 `json:"value"`
}

// Tree is a CART regression tree grown on squared error
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Predict walks x down to a leaf
func (t *Tree) Predict(x []float64) float64 {
	i := 0
	for {
		n := &t.Nodes[i]
		if n.Leaf {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// featureColumns copies each column of x into its own slice. Split search
// sorts one feature at a time, so column-major access keeps it contiguous.
func featureColumns(x *mat.Dense) [][]float64 {
	_, c := x.Dims()
	cols := make([][]float64, c)
	for j := range cols {
		cols[j] = mat.Col(nil, j, x)
	}
	return cols
}

// treeBuilder grows one tree over a (possibly repeated) sample of row indexes
type treeBuilder struct {
	cols     [][]float64
	y        []float64
	maxDepth int
	minLeaf  int
	nodes    []Node
	// gain accumulates the squared-error decrease attributed to each feature
	gain []float64
}

// growTree fits a tree on the rows in sample; cols holds the features
// column by column
func growTree(cols [][]float64, y []float64, sample []int, maxDepth, minLeaf int) (*Tree, []float64) {
	if minLeaf < 1 {
		minLeaf = 1
	}
	b := &treeBuilder{
		cols:     cols,
		y:        y,
		maxDepth: maxDepth,
		minLeaf:  minLeaf,
		gain:     make([]float64, len(cols)),
	}
	b.build(sample, 0)
	return &Tree{Nodes: b.nodes}, b.gain
}

// build appends the subtree for idx and returns its root index
func (b *treeBuilder) build(idx []int, depth int) int {
	sum, sumSq := b.moments(idx)
	n := float64(len(idx))
	mean := sum / n
	sse := sumSq - sum*sum/n

	self := len(b.nodes)
	b.nodes = append(b.nodes, Node{Leaf: true, Value: mean})

	if len(idx) < 2*b.minLeaf || sse <= 1e-12 {
		return self
	}
	if b.maxDepth > 0 && depth >= b.maxDepth {
		return self
	}

	s, ok := b.bestSplit(idx, sse)
	if !ok {
		return self
	}

	var left, right []int
	for _, i := range idx {
		if b.cols[s.feature][i] <= s.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	if len(left) == 0 || len(right) == 0 {
		return self
	}

	b.gain[s.feature] += s.decrease
	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	b.nodes[self] = Node{
		Feature:   s.feature,
		Threshold: s.threshold,
		Left:      l,
		Right:     r,
		Value:     mean,
	}
	return self
}

func (b *treeBuilder) moments(idx []int) (sum, sumSq float64) {
	for _, i := range idx {
		sum += b.y[i]
		sumSq += b.y[i] * b.y[i]
	}
	return sum, sumSq
}

type split struct {
	feature   int
	threshold float64
	decrease  float64
}

// bestSplit scans every feature and every cut between distinct values,
// keeping the first cut with the largest squared-error decrease
func (b *treeBuilder) bestSplit(idx []int, parentSSE float64) (split, bool) {
	best := split{decrease: 1e-12}
	found := false

	order := make([]int, len(idx))
	totalSum, totalSq := b.moments(idx)
	n := len(idx)

	for f, col := range b.cols {
		copy(order, idx)
		sort.SliceStable(order, func(a, c int) bool {
			return col[order[a]] < col[order[c]]
		})

		var leftSum, leftSq float64
		for k := 0; k < n-1; k++ {
			yi := b.y[order[k]]
			leftSum += yi
			leftSq += yi * yi

			nl := k + 1
			nr := n - nl
			if nl < b.minLeaf || nr < b.minLeaf {
				continue
			}
			lo, hi := col[order[k]], col[order[k+1]]
			if lo == hi {
				continue
			}

			rightSum := totalSum - leftSum
			rightSq := totalSq - leftSq
			sse := (leftSq - leftSum*leftSum/float64(nl)) + (rightSq - rightSum*rightSum/float64(nr))
			if dec := parentSSE - sse; dec > best.decrease {
				thr := (lo + hi) / 2
				if thr >= hi {
					thr = lo
				}
				best = split{feature: f, threshold: thr, decrease: dec}
				found = true
			}
		}
	}

	return best, found
}
