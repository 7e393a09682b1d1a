package gbm

import (
	"fmt"
	"io"
	"strings"

	"github.com/YuminosukeSato/gboost/core/model"
	"github.com/YuminosukeSato/gboost/data"
	gberrors "github.com/YuminosukeSato/gboost/pkg/errors"
	"github.com/YuminosukeSato/gboost/pkg/log"
)

type linearModelParam struct {
	NumFeature     int32
	NumOutputGroup int32
	NumRounds      int32
	Reserved       [31]int32
}

type linearTrainParam struct {
	LearningRate float64
	Lambda       float64
	Alpha        float64
	LambdaBias   float64
}

// GBLinear is a linear model per output group fitted by coordinate descent
// on the second order loss approximation. It keeps no prediction buffer.
type GBLinear struct {
	mparam linearModelParam
	tparam linearTrainParam

	// weights[g*(NumFeature+1)+f], bias at f == NumFeature
	weights []float32

	initialized bool
	logger      log.Logger
}

// NewGBLinear returns an uninitialized gblinear.
func NewGBLinear() *GBLinear {
	return &GBLinear{
		mparam: linearModelParam{NumOutputGroup: 1},
		tparam: linearTrainParam{LearningRate: 1},
		logger: log.GetLoggerWithName("gbm.gblinear"),
	}
}

func (g *GBLinear) Name() string { return "gblinear" }

func (g *GBLinear) SetParam(name, value string) {
	name = stripPrefix(name)
	switch name {
	case "eta", "learning_rate":
		setFloat(&g.tparam.LearningRate, value)
	case "lambda", "reg_lambda":
		setFloat(&g.tparam.Lambda, value)
	case "alpha", "reg_alpha":
		setFloat(&g.tparam.Alpha, value)
	case "lambda_bias", "reg_lambda_bias":
		setFloat(&g.tparam.LambdaBias, value)
	}
	if g.initialized {
		return
	}
	var v int
	if !setInt(&v, value) {
		return
	}
	switch name {
	case "num_feature":
		g.mparam.NumFeature = int32(v)
	case "num_class", "num_output_group":
		g.mparam.NumOutputGroup = int32(max(v, 1))
	}
}

func (g *GBLinear) InitModel() error {
	g.weights = make([]float32, int(g.mparam.NumOutputGroup)*(int(g.mparam.NumFeature)+1))
	g.mparam.NumRounds = 0
	g.initialized = true
	return nil
}

func (g *GBLinear) NumGroup() int { return int(g.mparam.NumOutputGroup) }

func (g *GBLinear) NumUnits() int { return int(g.mparam.NumRounds) }

func (g *GBLinear) NumRounds() int { return int(g.mparam.NumRounds) }

func (g *GBLinear) stride() int { return int(g.mparam.NumFeature) + 1 }

func (g *GBLinear) bias(group int) *float32 {
	return &g.weights[group*g.stride()+int(g.mparam.NumFeature)]
}

func (g *GBLinear) weight(group int, f uint32) *float32 {
	return &g.weights[group*g.stride()+int(f)]
}

// resize widens the model when a dataset has more columns than expected.
func (g *GBLinear) resize(numFeature int) {
	old, oldStride := g.weights, g.stride()
	oldNF := int(g.mparam.NumFeature)
	g.mparam.NumFeature = int32(numFeature)
	g.weights = make([]float32, g.NumGroup()*g.stride())
	for grp := 0; grp < g.NumGroup(); grp++ {
		copy(g.weights[grp*g.stride():], old[grp*oldStride:grp*oldStride+oldNF])
		*g.bias(grp) = old[grp*oldStride+oldNF]
	}
}

// calcDelta returns the coordinate step for weight w with elastic net
// regularization, never crossing zero in one step.
func (g *GBLinear) calcDelta(sumGrad, sumHess, w float64) float64 {
	if sumHess < 1e-5 {
		return 0
	}
	lambda, alpha := g.tparam.Lambda, g.tparam.Alpha
	tmp := w - (sumGrad+lambda*w)/(sumHess+lambda)
	if tmp >= 0 {
		return max(-(sumGrad+lambda*w+alpha)/(sumHess+lambda), -w)
	}
	return min(-(sumGrad+lambda*w-alpha)/(sumHess+lambda), -w)
}

func (g *GBLinear) DoBoost(gpair []data.GradPair, d *data.DMatrix, rootIndex []uint32, group int, bufferOffset int64) error {
	const op = "gblinear.DoBoost"
	if !g.initialized {
		return gberrors.NewNotFittedError("gblinear", "DoBoost")
	}
	if len(gpair) != d.NumRow() {
		return gberrors.NewStateErrorf(op, "got %d gradient pairs for %d rows", len(gpair), d.NumRow())
	}
	if group < 0 || group >= g.NumGroup() {
		return gberrors.NewStateErrorf(op, "group %d out of range [0,%d)", group, g.NumGroup())
	}
	if d.NumCol() > int(g.mparam.NumFeature) {
		g.resize(d.NumCol())
	}

	grad := make([]float64, len(gpair))
	for i, p := range gpair {
		grad[i] = float64(p.Grad)
	}
	eta := g.tparam.LearningRate

	// bias first
	var sumGrad, sumHess float64
	for i, p := range gpair {
		if p.Hess >= 0 {
			sumGrad += grad[i]
			sumHess += float64(p.Hess)
		}
	}
	if sumHess > 0 {
		dw := eta * -sumGrad / (sumHess + g.tparam.LambdaBias)
		*g.bias(group) += float32(dw)
		for i, p := range gpair {
			if p.Hess >= 0 {
				grad[i] += float64(p.Hess) * dw
			}
		}
	}

	// then each feature, updating the residual gradient as we go
	cols := make([][]colEntry, g.mparam.NumFeature)
	for i := 0; i < d.NumRow(); i++ {
		if gpair[i].Hess < 0 {
			continue
		}
		for _, e := range d.Row(i) {
			cols[e.Index] = append(cols[e.Index], colEntry{row: uint32(i), value: e.Value})
		}
	}
	for f, col := range cols {
		var sg, sh float64
		for _, e := range col {
			v := float64(e.value)
			sg += grad[e.row] * v
			sh += float64(gpair[e.row].Hess) * v * v
		}
		w := g.weight(group, uint32(f))
		dw := eta * g.calcDelta(sg, sh, float64(*w))
		if dw == 0 {
			continue
		}
		*w += float32(dw)
		for _, e := range col {
			grad[e.row] += float64(gpair[e.row].Hess) * float64(e.value) * dw
		}
	}
	if group == g.NumGroup()-1 {
		g.mparam.NumRounds++
	}
	g.logger.Debug("linear round", log.GroupKey, group, log.IterationKey, g.mparam.NumRounds)
	return nil
}

func (g *GBLinear) Predict(d *data.DMatrix, row int, bufferOffset int64, root uint32, group int) float32 {
	sum := *g.bias(group)
	for _, e := range d.Row(row) {
		if int(e.Index) < int(g.mparam.NumFeature) {
			sum += *g.weight(group, e.Index) * e.Value
		}
	}
	return sum
}

func (g *GBLinear) ClearBuffer(offset int64, rows int) {}

func (g *GBLinear) DeleteLast() error {
	return gberrors.Wrap(gberrors.ErrNotImplemented, "gblinear does not support removing a round")
}

func (g *GBLinear) SaveModel(w io.Writer) error {
	sw := model.NewStreamWriter(w)
	sw.WriteStruct(&g.mparam)
	sw.WriteFloat32s(g.weights)
	return sw.Err()
}

func (g *GBLinear) LoadModel(r io.Reader) error {
	const op = "gblinear.LoadModel"
	sr := model.NewStreamReader(r, op)
	var mp linearModelParam
	sr.ReadStruct("gblinear model param", &mp)
	weights := sr.ReadFloat32s("weights")
	if err := sr.Err(); err != nil {
		return err
	}
	if mp.NumFeature < 0 || mp.NumOutputGroup < 1 || mp.NumRounds < 0 {
		return gberrors.NewFormatError(op, "gblinear model param",
			gberrors.Newf("invalid shape: features=%d groups=%d", mp.NumFeature, mp.NumOutputGroup))
	}
	if want := int(mp.NumOutputGroup) * (int(mp.NumFeature) + 1); len(weights) != want {
		return gberrors.NewFormatError(op, "weights", gberrors.Newf("expected %d weights, got %d", want, len(weights)))
	}
	g.mparam = mp
	g.weights = weights
	g.initialized = true
	return nil
}

func (g *GBLinear) Dump(withStats bool) []string {
	var sb strings.Builder
	sb.WriteString("bias:\n")
	for grp := 0; grp < g.NumGroup(); grp++ {
		fmt.Fprintf(&sb, "%g\n", *g.bias(grp))
	}
	sb.WriteString("weight:\n")
	for f := 0; f < int(g.mparam.NumFeature); f++ {
		for grp := 0; grp < g.NumGroup(); grp++ {
			fmt.Fprintf(&sb, "%g\n", *g.weight(grp, uint32(f)))
		}
	}
	return []string{sb.String()}
}
