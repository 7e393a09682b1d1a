package gbm

import (
	"math"
	"sort"
	"sync"

	"github.com/YuminosukeSato/gboost/core/parallel"
	"github.com/YuminosukeSato/gboost/data"
)

// rtEps is the smallest loss change accepted as a split.
const rtEps = 1e-6

type colEntry struct {
	row   uint32
	value float32
}

// splitInfo holds the best split found for a node.
type splitInfo struct {
	feature     uint32
	cond        float32
	defaultLeft bool
	gain        float64
	valid       bool
}

// better orders candidates by gain, breaking ties by feature index so the
// result does not depend on worker scheduling.
func (s splitInfo) better(o splitInfo) bool {
	if !o.valid {
		return s.valid
	}
	if !s.valid {
		return false
	}
	if s.gain != o.gain {
		return s.gain > o.gain
	}
	return s.feature < o.feature
}

// treeGrower builds one tree with exact greedy split enumeration over
// pre-sorted feature columns.
type treeGrower struct {
	param  TrainParam
	gpair  []data.GradPair
	d      *data.DMatrix
	cols   [][]colEntry
	nodeOf []int32
	tree   *Tree
}

func growTree(param TrainParam, gpair []data.GradPair, d *data.DMatrix, rootIndex []uint32, numRoots int) *Tree {
	g := &treeGrower{
		param:  param,
		gpair:  gpair,
		d:      d,
		nodeOf: make([]int32, d.NumRow()),
		tree:   newTree(numRoots),
	}
	g.buildColumns()

	roots := make([][]int, numRoots)
	for i := range gpair {
		g.nodeOf[i] = -1
		// negative hessian marks a row excluded from this round
		if gpair[i].Hess < 0 {
			continue
		}
		r := 0
		if len(rootIndex) != 0 {
			r = int(rootIndex[i])
		}
		roots[r] = append(roots[r], i)
	}
	for r, indices := range roots {
		g.buildNode(r, indices, 0)
	}
	return g.tree
}

func (g *treeGrower) buildColumns() {
	g.cols = make([][]colEntry, g.d.NumCol())
	for i := 0; i < g.d.NumRow(); i++ {
		if g.gpair[i].Hess < 0 {
			continue
		}
		for _, e := range g.d.Row(i) {
			g.cols[e.Index] = append(g.cols[e.Index], colEntry{row: uint32(i), value: e.Value})
		}
	}
	parallel.Parallelize(len(g.cols), func(start, end int) {
		for f := start; f < end; f++ {
			col := g.cols[f]
			sort.SliceStable(col, func(a, b int) bool { return col[a].value < col[b].value })
		}
	})
}

// buildNode recursively builds tree nodes
func (g *treeGrower) buildNode(nid int, indices []int, depth int) {
	var sumGrad, sumHess float64
	for _, i := range indices {
		g.nodeOf[i] = int32(nid)
		sumGrad += float64(g.gpair[i].Grad)
		sumHess += float64(g.gpair[i].Hess)
	}
	node := &g.tree.Nodes[nid]
	node.SumHess = float32(sumHess)

	if depth >= g.param.MaxDepth || sumHess < 2*g.param.MinChildWeight || len(indices) < 2 {
		g.makeLeaf(nid, sumGrad, sumHess)
		return
	}

	best := g.findBestSplit(nid, sumGrad, sumHess)
	if !best.valid || best.gain <= rtEps || best.gain < g.param.Gamma {
		g.makeLeaf(nid, sumGrad, sumHess)
		return
	}

	node.Feature = best.feature
	node.Cond = best.cond
	node.Gain = float32(best.gain)
	if best.defaultLeft {
		node.DefaultLeft = 1
	}
	left, right := g.tree.addChildren(nid)

	leftIndices, rightIndices := g.splitData(indices, best)
	g.buildNode(left, leftIndices, depth+1)
	g.buildNode(right, rightIndices, depth+1)
}

func (g *treeGrower) makeLeaf(nid int, sumGrad, sumHess float64) {
	g.tree.Nodes[nid].LeafValue = float32(g.param.Eta * g.param.CalcWeight(sumGrad, sumHess))
}

// findBestSplit searches all features in parallel.
func (g *treeGrower) findBestSplit(nid int, sumGrad, sumHess float64) splitInfo {
	var mu sync.Mutex
	var best splitInfo
	parallel.ParallelizeWithThreshold(len(g.cols), 8, func(start, end int) {
		var local splitInfo
		for f := start; f < end; f++ {
			if s := g.findBestSplitForFeature(nid, f, sumGrad, sumHess); s.better(local) {
				local = s
			}
		}
		mu.Lock()
		if local.better(best) {
			best = local
		}
		mu.Unlock()
	})
	return best
}

// findBestSplitForFeature scans the sorted column once, trying every
// boundary between distinct values with missing rows sent either way.
func (g *treeGrower) findBestSplitForFeature(nid int, feature int, sumGrad, sumHess float64) splitInfo {
	col := g.cols[feature]
	var presGrad, presHess float64
	n := 0
	for _, e := range col {
		if g.nodeOf[e.row] == int32(nid) {
			presGrad += float64(g.gpair[e.row].Grad)
			presHess += float64(g.gpair[e.row].Hess)
			n++
		}
	}
	best := splitInfo{feature: uint32(feature)}
	if n == 0 {
		return best
	}
	missGrad, missHess := sumGrad-presGrad, sumHess-presHess
	hasMissing := missHess > 0
	rootGain := g.param.CalcGain(sumGrad, sumHess)

	try := func(lg, lh float64, cond float32, defaultLeft bool) {
		rg, rh := sumGrad-lg, sumHess-lh
		if lh < g.param.MinChildWeight || rh < g.param.MinChildWeight {
			return
		}
		gain := 0.5 * (g.param.CalcGain(lg, lh) + g.param.CalcGain(rg, rh) - rootGain)
		if !best.valid || gain > best.gain {
			best = splitInfo{feature: uint32(feature), cond: cond, defaultLeft: defaultLeft, gain: gain, valid: true}
		}
	}

	var leftGrad, leftHess float64
	var prev float32
	first := true
	for _, e := range col {
		if g.nodeOf[e.row] != int32(nid) {
			continue
		}
		if first {
			// every present row right, missing left
			if hasMissing {
				try(missGrad, missHess, e.value, true)
			}
			first = false
		} else if e.value != prev {
			cond := prev + (e.value-prev)/2
			if cond <= prev {
				cond = e.value
			}
			try(leftGrad, leftHess, cond, false)
			if hasMissing {
				try(leftGrad+missGrad, leftHess+missHess, cond, true)
			}
		}
		leftGrad += float64(g.gpair[e.row].Grad)
		leftHess += float64(g.gpair[e.row].Hess)
		prev = e.value
	}
	// every present row left, missing right
	if hasMissing {
		try(presGrad, presHess, math.Nextafter32(prev, float32(math.Inf(1))), false)
	}
	return best
}

// splitData splits indices based on a split decision
func (g *treeGrower) splitData(indices []int, split splitInfo) ([]int, []int) {
	var leftIndices, rightIndices []int
	for _, idx := range indices {
		v, ok := lookup(g.d.Row(idx), split.feature)
		if (!ok && split.defaultLeft) || (ok && v < split.cond) {
			leftIndices = append(leftIndices, idx)
		} else {
			rightIndices = append(rightIndices, idx)
		}
	}
	return leftIndices, rightIndices
}

func lookup(row []data.Entry, feature uint32) (float32, bool) {
	k := sort.Search(len(row), func(i int) bool { return row[i].Index >= feature })
	if k < len(row) && row[k].Index == feature {
		return row[k].Value, true
	}
	return 0, false
}
