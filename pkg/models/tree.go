package models

import (
	"sort"

	"github.com/HatiCode/motoblu/pkg/features"
)

// minSplitGain is the smallest squared-error reduction worth a new leaf.
const minSplitGain = 1e-9

// node is one entry of a flattened regression tree.
// Leaves have Left == Right == -1 and carry Value.
type node struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Value     float64
}

func (n node) isLeaf() bool { return n.Left < 0 }

// regressionTree is a binary tree over feature vectors. Rows with
// x[Feature] <= Threshold go left.
type regressionTree struct {
	nodes []node
}

func (t *regressionTree) predict(x features.Vector) float64 {
	i := 0
	for {
		n := t.nodes[i]
		if n.isLeaf() {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

func (t *regressionTree) leaves() int {
	count := 0
	for _, n := range t.nodes {
		if n.isLeaf() {
			count++
		}
	}
	return count
}

// split describes the best partition found for a set of rows.
type split struct {
	feature   int
	threshold float64
	gain      float64
	left      []int
	right     []int
}

// openLeaf is a leaf that may still be split.
type openLeaf struct {
	node  int
	split split
	ok    bool
}

// growTree fits a least-squares regression tree to target over rows.
//
// Growth is leaf-wise: at each step the open leaf whose best split reduces
// squared error the most is split, until maxLeaves is reached or no leaf has
// a split leaving at least minLeaf rows on each side. Ties keep the first
// candidate found, so the result depends only on the data.
func growTree(x []features.Vector, target []float64, rows []int, maxLeaves, minLeaf int) *regressionTree {
	t := &regressionTree{
		nodes: []node{{Left: -1, Right: -1, Value: meanOf(target, rows)}},
	}

	root := openLeaf{node: 0}
	root.split, root.ok = bestSplit(x, target, rows, minLeaf)
	open := []openLeaf{root}

	for leaves := 1; leaves < maxLeaves; leaves++ {
		best := -1
		for i, l := range open {
			if l.ok && (best < 0 || l.split.gain > open[best].split.gain) {
				best = i
			}
		}
		if best < 0 {
			break
		}

		leaf := open[best]
		open = append(open[:best], open[best+1:]...)

		left := len(t.nodes)
		right := left + 1
		t.nodes = append(t.nodes,
			node{Left: -1, Right: -1, Value: meanOf(target, leaf.split.left)},
			node{Left: -1, Right: -1, Value: meanOf(target, leaf.split.right)},
		)
		parent := &t.nodes[leaf.node]
		parent.Feature = leaf.split.feature
		parent.Threshold = leaf.split.threshold
		parent.Left = left
		parent.Right = right

		for _, child := range []struct {
			node int
			rows []int
		}{{left, leaf.split.left}, {right, leaf.split.right}} {
			l := openLeaf{node: child.node}
			l.split, l.ok = bestSplit(x, target, child.rows, minLeaf)
			open = append(open, l)
		}
	}

	return t
}

// bestSplit scans every feature in index order and every threshold between
// consecutive distinct values in ascending order.
func bestSplit(x []features.Vector, target []float64, rows []int, minLeaf int) (split, bool) {
	if len(rows) < 2*minLeaf || len(rows) < 2 {
		return split{}, false
	}

	total := 0.0
	for _, r := range rows {
		total += target[r]
	}
	parentScore := total * total / float64(len(rows))

	best := split{gain: minSplitGain}
	found := false

	sorted := make([]int, len(rows))
	width := len(x[rows[0]])

	for f := 0; f < width; f++ {
		copy(sorted, rows)
		sort.SliceStable(sorted, func(a, b int) bool {
			return x[sorted[a]][f] < x[sorted[b]][f]
		})

		leftSum := 0.0
		for i := 0; i < len(sorted)-1; i++ {
			leftSum += target[sorted[i]]

			lo, hi := x[sorted[i]][f], x[sorted[i+1]][f]
			if lo == hi {
				continue
			}

			nLeft := i + 1
			nRight := len(sorted) - nLeft
			if nLeft < minLeaf || nRight < minLeaf {
				continue
			}

			rightSum := total - leftSum
			gain := leftSum*leftSum/float64(nLeft) + rightSum*rightSum/float64(nRight) - parentScore
			if gain > best.gain {
				best = split{feature: f, threshold: lo + (hi-lo)/2, gain: gain}
				found = true
			}
		}
	}

	if !found {
		return split{}, false
	}

	for _, r := range rows {
		if x[r][best.feature] <= best.threshold {
			best.left = append(best.left, r)
		} else {
			best.right = append(best.right, r)
		}
	}

	return best, true
}

func meanOf(values []float64, rows []int) float64 {
	if len(rows) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range rows {
		sum += values[r]
	}
	return sum / float64(len(rows))
}
