package objective

import (
	"strconv"

	"github.com/YuminosukeSato/gboost/core/parallel"
	"github.com/YuminosukeSato/gboost/data"
	gberrors "github.com/YuminosukeSato/gboost/pkg/errors"
)

// pairwise implements rank:pairwise: logistic loss over every pair of rows
// in the same query group whose labels differ.
type pairwise struct {
	fixWeight float32
}

func newPairwise() *pairwise { return &pairwise{fixWeight: 1} }

func (o *pairwise) Name() string { return "rank:pairwise" }

func (o *pairwise) SetParam(name, value string) {
	if name == "fix_list_weight" {
		if v, err := strconv.ParseFloat(value, 32); err == nil && v > 0 {
			o.fixWeight = float32(v)
		}
	}
}

func (o *pairwise) GetGradient(preds []float32, info *data.Info, iter int) ([]data.GradPair, error) {
	const op = "objective.GetGradient"
	nrow, err := checkPredSize(op, preds, info, 1)
	if err != nil {
		return nil, err
	}
	gptr := info.Groups()
	if int(gptr[len(gptr)-1]) != nrow {
		return nil, gberrors.NewStateErrorf(op, "group boundaries cover %d rows, have %d",
			gptr[len(gptr)-1], nrow)
	}

	gpair := make([]data.GradPair, nrow)
	ngroup := len(gptr) - 1
	// Groups are disjoint row ranges, so workers never write the same slot.
	parallel.ParallelizeWithThreshold(ngroup, 4, func(start, end int) {
		for q := start; q < end; q++ {
			lo, hi := int(gptr[q]), int(gptr[q+1])
			for a := lo; a < hi; a++ {
				for b := lo; b < hi; b++ {
					if info.Labels[a] <= info.Labels[b] {
						continue
					}
					p := gberrors.Sigmoid(preds[a] - preds[b])
					g := p - 1
					h := p * (1 - p)
					if h < hessEps {
						h = hessEps
					}
					w := o.fixWeight * (info.GetWeight(a) + info.GetWeight(b)) / 2
					gpair[a].Grad += g * w
					gpair[a].Hess += 2 * w * h
					gpair[b].Grad -= g * w
					gpair[b].Hess += 2 * w * h
				}
			}
		}
	})
	return gpair, nil
}

func (o *pairwise) PredTransform(preds []float32, nrow int) []float32 { return preds }

func (o *pairwise) EvalTransform(preds []float32, nrow int) []float32 { return preds }

func (o *pairwise) DefaultEvalMetric() string { return "map" }

func (o *pairwise) ProbToMargin(base float32) (float32, error) { return base, nil }
