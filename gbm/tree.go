package gbm

import (
	"fmt"
	"strings"

	"github.com/YuminosukeSato/gboost/core/model"
	gberrors "github.com/YuminosukeSato/gboost/pkg/errors"
)

// Node is one node of a regression tree. Leaves have Left == -1.
// The binary layout of Node is part of the model format.
type Node struct {
	Parent      int32
	Left        int32
	Right       int32
	Feature     uint32
	Cond        float32 // rows with value < Cond go left
	DefaultLeft uint8   // direction taken when the feature is missing
	LeafValue   float32 // shrunk weight, valid for leaves
	Gain        float32 // loss reduction of the split, stats only
	SumHess     float32 // hessian sum of training rows, stats only
}

// IsLeaf returns true if the node is a leaf node
func (n *Node) IsLeaf() bool { return n.Left == -1 }

// Tree is a regression tree with NumRoots roots stored at node ids
// 0..NumRoots-1.
type Tree struct {
	NumRoots int
	Nodes    []Node
}

func newTree(numRoots int) *Tree {
	t := &Tree{NumRoots: numRoots, Nodes: make([]Node, numRoots)}
	for i := range t.Nodes {
		t.Nodes[i] = Node{Parent: -1, Left: -1, Right: -1}
	}
	return t
}

func (t *Tree) addChildren(nid int) (int, int) {
	left := len(t.Nodes)
	t.Nodes = append(t.Nodes,
		Node{Parent: int32(nid), Left: -1, Right: -1},
		Node{Parent: int32(nid), Left: -1, Right: -1},
	)
	t.Nodes[nid].Left = int32(left)
	t.Nodes[nid].Right = int32(left + 1)
	return left, left + 1
}

// GetLeafIndex walks from root to a leaf for the given feature vector.
func (t *Tree) GetLeafIndex(feat *FVec, root uint32) int {
	nid := int(root)
	for {
		n := &t.Nodes[nid]
		if n.IsLeaf() {
			return nid
		}
		v, ok := feat.Get(n.Feature)
		switch {
		case !ok:
			if n.DefaultLeft != 0 {
				nid = int(n.Left)
			} else {
				nid = int(n.Right)
			}
		case v < n.Cond:
			nid = int(n.Left)
		default:
			nid = int(n.Right)
		}
	}
}

// Predict returns the leaf value reached by feat.
func (t *Tree) Predict(feat *FVec, root uint32) float32 {
	return t.Nodes[t.GetLeafIndex(feat, root)].LeafValue
}

// MaxDepth returns the depth of the deepest leaf.
func (t *Tree) MaxDepth() int {
	var walk func(nid, depth int) int
	walk = func(nid, depth int) int {
		n := &t.Nodes[nid]
		if n.IsLeaf() {
			return depth
		}
		return max(walk(int(n.Left), depth+1), walk(int(n.Right), depth+1))
	}
	d := 0
	for r := 0; r < t.NumRoots; r++ {
		d = max(d, walk(r, 0))
	}
	return d
}

// Dump renders the tree in the indented text format:
//
//	0:[f0<1.5] yes=1,no=2,missing=1
//		1:leaf=-0.15
//		2:leaf=0.3
func (t *Tree) Dump(withStats bool) string {
	var sb strings.Builder
	var walk func(nid, depth int)
	walk = func(nid, depth int) {
		n := &t.Nodes[nid]
		sb.WriteString(strings.Repeat("\t", depth))
		if n.IsLeaf() {
			fmt.Fprintf(&sb, "%d:leaf=%g", nid, n.LeafValue)
			if withStats {
				fmt.Fprintf(&sb, ",cover=%g", n.SumHess)
			}
			sb.WriteByte('\n')
			return
		}
		missing := n.Right
		if n.DefaultLeft != 0 {
			missing = n.Left
		}
		fmt.Fprintf(&sb, "%d:[f%d<%g] yes=%d,no=%d,missing=%d", nid, n.Feature, n.Cond, n.Left, n.Right, missing)
		if withStats {
			fmt.Fprintf(&sb, ",gain=%g,cover=%g", n.Gain, n.SumHess)
		}
		sb.WriteByte('\n')
		walk(int(n.Left), depth+1)
		walk(int(n.Right), depth+1)
	}
	for r := 0; r < t.NumRoots; r++ {
		walk(r, 0)
	}
	return sb.String()
}

const maxTreeNodes = 1 << 24

func (t *Tree) save(sw *model.StreamWriter) {
	sw.WriteInt32(int32(t.NumRoots))
	sw.WriteUint64(uint64(len(t.Nodes)))
	sw.WriteStruct(t.Nodes)
}

func (t *Tree) load(sr *model.StreamReader) {
	t.NumRoots = int(sr.ReadInt32("tree roots"))
	n := sr.ReadUint64("tree nodes")
	if sr.Err() != nil {
		return
	}
	if n > maxTreeNodes || t.NumRoots <= 0 || uint64(t.NumRoots) > n {
		sr.Fail("tree nodes", gberrors.Newf("invalid tree shape: %d roots, %d nodes", t.NumRoots, n))
		return
	}
	t.Nodes = make([]Node, n)
	sr.ReadStruct("tree nodes", t.Nodes)
}

// validate checks child links so a corrupted model cannot loop or index
// out of range during prediction.
func (t *Tree) validate() error {
	for i, n := range t.Nodes {
		if n.IsLeaf() {
			continue
		}
		if int(n.Left) <= i || int(n.Right) <= i || int(n.Left) >= len(t.Nodes) || int(n.Right) >= len(t.Nodes) {
			return gberrors.Newf("node %d has invalid children %d,%d", i, n.Left, n.Right)
		}
	}
	return nil
}
