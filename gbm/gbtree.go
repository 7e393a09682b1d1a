package gbm

import (
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/YuminosukeSato/gboost/core/model"
	"github.com/YuminosukeSato/gboost/core/parallel"
	"github.com/YuminosukeSato/gboost/data"
	gberrors "github.com/YuminosukeSato/gboost/pkg/errors"
	"github.com/YuminosukeSato/gboost/pkg/log"
)

// treeModelParam is the fixed-size header of a gbtree blob. Reserved slots
// keep the record size stable when fields are added.
type treeModelParam struct {
	NumTrees       int32
	NumRoots       int32
	NumFeature     int32
	NumOutputGroup int32
	NumPbuffer     int64
	Reserved       [30]int32
}

// GBTree is an additive ensemble of regression trees, one tree per group
// per boosting round.
type GBTree struct {
	mparam treeModelParam
	tparam TrainParam

	trees    []*Tree
	treeInfo []int32 // output group of each tree

	// predBuffer[bid] caches the sum of the first predCounter[bid] trees'
	// contributions for that slot and group.
	predBuffer  []float32
	predCounter []int32

	initialized bool
	fvecPool    sync.Pool
	logger      log.Logger
}

// NewGBTree returns an uninitialized gbtree with default parameters.
func NewGBTree() *GBTree {
	g := &GBTree{
		mparam: treeModelParam{NumRoots: 1, NumOutputGroup: 1},
		tparam: DefaultTrainParam(),
		logger: log.GetLoggerWithName("gbm.gbtree"),
	}
	g.fvecPool.New = func() any { return NewFVec(int(g.mparam.NumFeature)) }
	return g
}

func (g *GBTree) Name() string { return "gbtree" }

// SetParam applies a parameter. Model shape keys (num_roots, num_feature,
// num_pbuffer, num_class / num_output_group) only take effect before
// InitModel or LoadModel.
func (g *GBTree) SetParam(name, value string) {
	name = stripPrefix(name)
	if g.tparam.SetParam(name, value) {
		return
	}
	if g.initialized {
		return
	}
	v, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return
	}
	switch name {
	case "num_roots":
		g.mparam.NumRoots = int32(v)
	case "num_feature":
		g.mparam.NumFeature = int32(v)
	case "num_pbuffer":
		g.mparam.NumPbuffer = v
	case "num_class", "num_output_group":
		g.mparam.NumOutputGroup = int32(max(v, 1))
	}
}

func (g *GBTree) InitModel() error {
	if g.mparam.NumRoots < 1 {
		return gberrors.NewValueError("gbtree.InitModel", "num_roots must be at least 1")
	}
	if g.mparam.NumPbuffer < 0 {
		return gberrors.NewValueError("gbtree.InitModel", "num_pbuffer must not be negative")
	}
	g.trees = nil
	g.treeInfo = nil
	g.mparam.NumTrees = 0
	n := g.mparam.NumPbuffer * int64(g.mparam.NumOutputGroup)
	g.predBuffer = make([]float32, n)
	g.predCounter = make([]int32, n)
	g.initialized = true

	g.logger.Debug("model initialized",
		log.NumGroupKey, g.mparam.NumOutputGroup,
		log.BufferSizeKey, n,
		log.FeaturesKey, g.mparam.NumFeature)
	return nil
}

func (g *GBTree) NumGroup() int { return int(g.mparam.NumOutputGroup) }

func (g *GBTree) NumUnits() int { return len(g.trees) }

// NumRounds returns the largest number of trees grown for any one group.
func (g *GBTree) NumRounds() int {
	counts := make([]int, g.NumGroup())
	rounds := 0
	for _, grp := range g.treeInfo {
		counts[grp]++
		rounds = max(rounds, counts[grp])
	}
	return rounds
}

// Trees returns the trees in training order.
func (g *GBTree) Trees() []*Tree { return g.trees }

// bufferIndex returns the buffer slot of row in group, or -1 when the row
// has no slot.
func (g *GBTree) bufferIndex(offset int64, row int, group int) int64 {
	if offset < 0 {
		return -1
	}
	slot := offset + int64(row)
	if slot >= g.mparam.NumPbuffer {
		return -1
	}
	return slot + int64(group)*g.mparam.NumPbuffer
}

func (g *GBTree) DoBoost(gpair []data.GradPair, d *data.DMatrix, rootIndex []uint32, group int, bufferOffset int64) error {
	const op = "gbtree.DoBoost"
	if !g.initialized {
		return gberrors.NewNotFittedError("gbtree", "DoBoost")
	}
	if len(gpair) != d.NumRow() {
		return gberrors.NewStateErrorf(op, "got %d gradient pairs for %d rows", len(gpair), d.NumRow())
	}
	if group < 0 || group >= g.NumGroup() {
		return gberrors.NewStateErrorf(op, "group %d out of range [0,%d)", group, g.NumGroup())
	}
	if err := g.checkRoots(op, rootIndex, d.NumRow()); err != nil {
		return err
	}
	if d.NumCol() > int(g.mparam.NumFeature) {
		g.mparam.NumFeature = int32(d.NumCol())
	}

	tree := growTree(g.tparam, gpair, d, rootIndex, int(g.mparam.NumRoots))
	before := int32(len(g.trees))
	g.trees = append(g.trees, tree)
	g.treeInfo = append(g.treeInfo, int32(group))
	g.mparam.NumTrees = int32(len(g.trees))

	g.updateBuffer(tree, d, rootIndex, group, bufferOffset, before)

	g.logger.Debug("tree added",
		log.GroupKey, group,
		log.TreesKey, len(g.trees),
		"tree.nodes", len(tree.Nodes),
		"tree.depth", tree.MaxDepth())
	return nil
}

// updateBuffer adds the new tree to buffer slots that were up to date
// before it was added.
func (g *GBTree) updateBuffer(tree *Tree, d *data.DMatrix, rootIndex []uint32, group int, offset int64, before int32) {
	if offset < 0 {
		return
	}
	parallel.ParallelizeWithThreshold(d.NumRow(), 256, func(start, end int) {
		feat := g.fvecPool.Get().(*FVec)
		defer g.fvecPool.Put(feat)
		for i := start; i < end; i++ {
			bid := g.bufferIndex(offset, i, group)
			if bid < 0 || g.predCounter[bid] != before {
				continue
			}
			var root uint32
			if len(rootIndex) != 0 {
				root = rootIndex[i]
			}
			row := d.Row(i)
			feat.Fill(row)
			g.predBuffer[bid] += tree.Predict(feat, root)
			feat.Drop(row)
			g.predCounter[bid] = before + 1
		}
	})
}

// CheckRoots validates a per-row root index against num_roots. An empty
// index means root 0 for every row.
func (g *GBTree) CheckRoots(rootIndex []uint32, nrow int) error {
	return g.checkRoots("gbtree.CheckRoots", rootIndex, nrow)
}

func (g *GBTree) checkRoots(op string, rootIndex []uint32, nrow int) error {
	if len(rootIndex) == 0 {
		return nil
	}
	if len(rootIndex) != nrow {
		return gberrors.NewDimensionError(op, nrow, len(rootIndex), 0)
	}
	for _, r := range rootIndex {
		if int64(r) >= int64(g.mparam.NumRoots) {
			return gberrors.NewStateErrorf(op, "root index %d exceeds num_roots %d", r, g.mparam.NumRoots)
		}
	}
	return nil
}

// Predict expects root below num_roots; see CheckRoots.
func (g *GBTree) Predict(d *data.DMatrix, row int, bufferOffset int64, root uint32, group int) float32 {
	bid := g.bufferIndex(bufferOffset, row, group)
	var sum float32
	start := 0
	if bid >= 0 {
		sum = g.predBuffer[bid]
		start = int(g.predCounter[bid])
	}
	if start < len(g.trees) {
		feat := g.fvecPool.Get().(*FVec)
		r := d.Row(row)
		feat.Fill(r)
		for j := start; j < len(g.trees); j++ {
			if int(g.treeInfo[j]) == group {
				sum += g.trees[j].Predict(feat, root)
			}
		}
		feat.Drop(r)
		g.fvecPool.Put(feat)
	}
	if bid >= 0 {
		g.predBuffer[bid] = sum
		g.predCounter[bid] = int32(len(g.trees))
	}
	return sum
}

func (g *GBTree) ClearBuffer(offset int64, rows int) {
	if offset < 0 {
		return
	}
	for grp := 0; grp < g.NumGroup(); grp++ {
		for i := 0; i < rows; i++ {
			if bid := g.bufferIndex(offset, i, grp); bid >= 0 {
				g.predBuffer[bid] = 0
				g.predCounter[bid] = 0
			}
		}
	}
}

// DeleteLast drops the most recent tree. Buffer slots that already include
// it are reset and recomputed on the next Predict.
func (g *GBTree) DeleteLast() error {
	if len(g.trees) == 0 {
		return gberrors.NewStateError("gbtree.DeleteLast", "no tree to remove")
	}
	g.trees = g.trees[:len(g.trees)-1]
	g.treeInfo = g.treeInfo[:len(g.treeInfo)-1]
	g.mparam.NumTrees = int32(len(g.trees))
	for bid, c := range g.predCounter {
		if c > g.mparam.NumTrees {
			g.predCounter[bid] = 0
			g.predBuffer[bid] = 0
		}
	}
	g.logger.Debug("tree removed", log.TreesKey, len(g.trees))
	return nil
}

func (g *GBTree) SaveModel(w io.Writer) error {
	sw := model.NewStreamWriter(w)
	sw.WriteStruct(&g.mparam)
	for _, t := range g.trees {
		t.save(sw)
	}
	sw.WriteInt32s(g.treeInfo)
	if g.mparam.NumPbuffer != 0 {
		sw.WriteFloat32s(g.predBuffer)
		sw.WriteInt32s(g.predCounter)
	}
	return sw.Err()
}

func (g *GBTree) LoadModel(r io.Reader) error {
	const op = "gbtree.LoadModel"
	sr := model.NewStreamReader(r, op)
	var mp treeModelParam
	sr.ReadStruct("gbtree model param", &mp)
	if err := sr.Err(); err != nil {
		return err
	}
	if mp.NumTrees < 0 || mp.NumRoots < 1 || mp.NumOutputGroup < 1 || mp.NumPbuffer < 0 {
		return gberrors.NewFormatError(op, "gbtree model param",
			gberrors.Newf("invalid shape: trees=%d roots=%d groups=%d pbuffer=%d",
				mp.NumTrees, mp.NumRoots, mp.NumOutputGroup, mp.NumPbuffer))
	}

	trees := make([]*Tree, 0, min(int(mp.NumTrees), 1<<16))
	for i := int32(0); i < mp.NumTrees && sr.Err() == nil; i++ {
		t := &Tree{}
		t.load(sr)
		if sr.Err() == nil {
			if err := t.validate(); err != nil {
				return gberrors.NewFormatError(op, fmt.Sprintf("tree %d", i), err)
			}
		}
		trees = append(trees, t)
	}
	treeInfo := sr.ReadInt32s("tree info")
	var buffer []float32
	var counter []int32
	if mp.NumPbuffer != 0 {
		buffer = sr.ReadFloat32s("prediction buffer")
		counter = sr.ReadInt32s("prediction counter")
	}
	if err := sr.Err(); err != nil {
		return err
	}
	if len(treeInfo) != int(mp.NumTrees) {
		return gberrors.NewFormatError(op, "tree info",
			gberrors.Newf("%d entries for %d trees", len(treeInfo), mp.NumTrees))
	}
	for _, grp := range treeInfo {
		if grp < 0 || grp >= mp.NumOutputGroup {
			return gberrors.NewFormatError(op, "tree info", gberrors.Newf("group %d out of range", grp))
		}
	}
	n := mp.NumPbuffer * int64(mp.NumOutputGroup)
	if int64(len(buffer)) != n || int64(len(counter)) != n {
		return gberrors.NewFormatError(op, "prediction buffer",
			gberrors.Newf("expected %d slots, got %d/%d", n, len(buffer), len(counter)))
	}
	if n == 0 {
		buffer, counter = []float32{}, []int32{}
	}

	g.mparam = mp
	g.trees = trees
	g.treeInfo = treeInfo
	g.predBuffer = buffer
	g.predCounter = counter
	g.initialized = true
	return nil
}

func (g *GBTree) Dump(withStats bool) []string {
	out := make([]string, len(g.trees))
	for i, t := range g.trees {
		out[i] = t.Dump(withStats)
	}
	return out
}
