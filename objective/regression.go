package objective

import (
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/YuminosukeSato/gboost/core/parallel"
	"github.com/YuminosukeSato/gboost/data"
	gberrors "github.com/YuminosukeSato/gboost/pkg/errors"
)

type lossType int

const (
	lossLinearSquare lossType = iota
	lossLogisticNeglik
	lossLogisticClassify
	lossLogisticRaw
)

const hessEps = 1e-16

func (l lossType) logistic() bool { return l != lossLinearSquare }

// regLoss covers squared error and the logistic family, which share the
// first order gradient (pred - label) in output space.
type regLoss struct {
	name           string
	loss           lossType
	scalePosWeight float32
}

func newRegLoss(name string, loss lossType) *regLoss {
	return &regLoss{name: name, loss: loss, scalePosWeight: 1}
}

func (o *regLoss) Name() string { return o.name }

func (o *regLoss) SetParam(name, value string) {
	if name == "scale_pos_weight" {
		if v, err := strconv.ParseFloat(value, 32); err == nil {
			o.scalePosWeight = float32(v)
		}
	}
}

func (o *regLoss) transform(x float32) float32 {
	switch o.loss {
	case lossLogisticNeglik, lossLogisticClassify:
		return gberrors.Sigmoid(x)
	default:
		return x
	}
}

func (o *regLoss) GetGradient(preds []float32, info *data.Info, iter int) ([]data.GradPair, error) {
	nrow, err := checkPredSize("objective.GetGradient", preds, info, 1)
	if err != nil {
		return nil, err
	}
	gpair := make([]data.GradPair, nrow)
	var badLabel atomic.Int64
	badLabel.Store(-1)

	parallel.ParallelizeWithThreshold(nrow, 1024, func(start, end int) {
		for i := start; i < end; i++ {
			y := info.Labels[i]
			w := info.GetWeight(i)
			if o.loss.logistic() {
				if y < 0 || y > 1 {
					badLabel.CompareAndSwap(-1, int64(i))
					continue
				}
				if y == 1 {
					w *= o.scalePosWeight
				}
				p := gberrors.Sigmoid(preds[i])
				h := p * (1 - p)
				if h < hessEps {
					h = hessEps
				}
				gpair[i] = data.GradPair{Grad: (p - y) * w, Hess: h * w}
				continue
			}
			gpair[i] = data.GradPair{Grad: (preds[i] - y) * w, Hess: w}
		}
	})
	if i := badLabel.Load(); i >= 0 {
		return nil, gberrors.NewValueError("objective.GetGradient",
			fmt.Sprintf("%s requires labels in [0,1], row %d has %g", o.name, i, info.Labels[i]))
	}
	return gpair, nil
}

func (o *regLoss) PredTransform(preds []float32, nrow int) []float32 {
	if o.loss == lossLinearSquare || o.loss == lossLogisticRaw {
		return preds
	}
	for i, p := range preds {
		preds[i] = o.transform(p)
	}
	return preds
}

func (o *regLoss) EvalTransform(preds []float32, nrow int) []float32 {
	return o.PredTransform(preds, nrow)
}

func (o *regLoss) DefaultEvalMetric() string {
	switch o.loss {
	case lossLogisticClassify:
		return "error"
	case lossLogisticRaw:
		return "auc"
	default:
		return "rmse"
	}
}

func (o *regLoss) ProbToMargin(base float32) (float32, error) {
	if !o.loss.logistic() {
		return base, nil
	}
	if base <= 0 || base >= 1 {
		return 0, gberrors.NewStateErrorf("objective.ProbToMargin",
			"base_score must be in (0,1) for logistic loss, got %g", base)
	}
	return gberrors.Logit(base), nil
}
