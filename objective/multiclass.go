package objective

import (
	"fmt"
	"math"
	"strconv"
	"sync/atomic"

	"github.com/YuminosukeSato/gboost/core/parallel"
	"github.com/YuminosukeSato/gboost/data"
	gberrors "github.com/YuminosukeSato/gboost/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// softmax implements multi:softmax and multi:softprob. Labels are class
// indices in [0, num_class).
type softmax struct {
	name     string
	numClass int
	outProb  bool
}

func newSoftmax(name string, outProb bool) *softmax {
	return &softmax{name: name, outProb: outProb}
}

func (o *softmax) Name() string { return o.name }

func (o *softmax) SetParam(name, value string) {
	if name == "num_class" {
		if v, err := strconv.Atoi(value); err == nil {
			o.numClass = v
		}
	}
}

// row gathers the K group scores of row i into rec and applies softmax.
func row(preds []float32, nrow, i int, rec []float64) {
	for k := range rec {
		rec[k] = float64(preds[k*nrow+i])
	}
	floats.AddConst(-floats.Max(rec), rec)
	for k, v := range rec {
		rec[k] = math.Exp(v)
	}
	floats.Scale(1/floats.Sum(rec), rec)
}

func (o *softmax) GetGradient(preds []float32, info *data.Info, iter int) ([]data.GradPair, error) {
	const op = "objective.GetGradient"
	if o.numClass <= 0 {
		return nil, gberrors.NewStateError(op, "num_class must be set for "+o.name)
	}
	nrow, err := checkPredSize(op, preds, info, o.numClass)
	if err != nil {
		return nil, err
	}
	K := o.numClass
	gpair := make([]data.GradPair, len(preds))
	var badLabel atomic.Int64
	badLabel.Store(-1)

	parallel.ParallelizeWithThreshold(nrow, 256, func(start, end int) {
		rec := make([]float64, K)
		for i := start; i < end; i++ {
			label := int(info.Labels[i])
			if label < 0 || label >= K {
				badLabel.CompareAndSwap(-1, int64(i))
				continue
			}
			row(preds, nrow, i, rec)
			w := float64(info.GetWeight(i))
			for k, p := range rec {
				h := 2 * p * (1 - p)
				if h < hessEps {
					h = hessEps
				}
				g := p
				if k == label {
					g -= 1
				}
				gpair[k*nrow+i] = data.GradPair{Grad: float32(g * w), Hess: float32(h * w)}
			}
		}
	})
	if i := badLabel.Load(); i >= 0 {
		return nil, gberrors.NewValueError(op,
			fmt.Sprintf("%s requires labels in [0,%d), row %d has %g", o.name, K, i, info.Labels[i]))
	}
	return gpair, nil
}

// transform returns class indices (one per row) or probabilities in the
// group-contiguous layout. Single-group input, as produced when only one
// group is requested, is returned unchanged.
func (o *softmax) transform(preds []float32, nrow int, prob bool) []float32 {
	if nrow == 0 || len(preds) <= nrow {
		return preds
	}
	K := len(preds) / nrow
	var out []float32
	if prob {
		out = make([]float32, len(preds))
	} else {
		out = make([]float32, nrow)
	}
	parallel.ParallelizeWithThreshold(nrow, 256, func(start, end int) {
		rec := make([]float64, K)
		for i := start; i < end; i++ {
			if !prob {
				for k := range rec {
					rec[k] = float64(preds[k*nrow+i])
				}
				out[i] = float32(floats.MaxIdx(rec))
				continue
			}
			row(preds, nrow, i, rec)
			for k, p := range rec {
				out[k*nrow+i] = float32(p)
			}
		}
	})
	return out
}

func (o *softmax) PredTransform(preds []float32, nrow int) []float32 {
	return o.transform(preds, nrow, o.outProb)
}

func (o *softmax) EvalTransform(preds []float32, nrow int) []float32 {
	return o.transform(preds, nrow, o.outProb)
}

func (o *softmax) DefaultEvalMetric() string {
	if o.outProb {
		return "mlogloss"
	}
	return "merror"
}

func (o *softmax) ProbToMargin(base float32) (float32, error) { return base, nil }
