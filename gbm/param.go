package gbm

import (
	"math"
	"strconv"
)

// TrainParam holds the tree growing parameters. They may change between
// rounds.
type TrainParam struct {
	Eta            float64 // learning rate
	Lambda         float64 // L2 regularization on leaf weights
	Alpha          float64 // L1 regularization on leaf weights
	Gamma          float64 // minimum loss reduction to split
	MaxDepth       int
	MinChildWeight float64 // minimum hessian sum in a child
}

// DefaultTrainParam returns the defaults: eta 0.3, lambda 1, max_depth 6,
// min_child_weight 1.
func DefaultTrainParam() TrainParam {
	return TrainParam{
		Eta:            0.3,
		Lambda:         1,
		MaxDepth:       6,
		MinChildWeight: 1,
	}
}

// SetParam applies a training parameter. Names are already stripped of
// the "bst:" prefix. It reports whether the key was recognized.
func (p *TrainParam) SetParam(name, value string) bool {
	switch name {
	case "eta", "learning_rate":
		return setFloat(&p.Eta, value)
	case "lambda", "reg_lambda":
		return setFloat(&p.Lambda, value)
	case "alpha", "reg_alpha":
		return setFloat(&p.Alpha, value)
	case "gamma", "min_split_loss":
		return setFloat(&p.Gamma, value)
	case "min_child_weight":
		return setFloat(&p.MinChildWeight, value)
	case "max_depth":
		return setInt(&p.MaxDepth, value)
	}
	return false
}

// CalcWeight returns the optimal leaf weight -G/(H+lambda) with L1
// soft-thresholding, before shrinkage.
func (p *TrainParam) CalcWeight(sumGrad, sumHess float64) float64 {
	if sumHess < p.MinChildWeight || sumHess <= 0 {
		return 0
	}
	return -thresholdL1(sumGrad, p.Alpha) / (sumHess + p.Lambda)
}

// CalcGain returns the structure score G^2/(H+lambda) with L1 thresholding.
func (p *TrainParam) CalcGain(sumGrad, sumHess float64) float64 {
	if sumHess < p.MinChildWeight {
		return 0
	}
	g := thresholdL1(sumGrad, p.Alpha)
	return g * g / (sumHess + p.Lambda)
}

func thresholdL1(g, alpha float64) float64 {
	switch {
	case g > alpha:
		return g - alpha
	case g < -alpha:
		return g + alpha
	default:
		return 0
	}
}

func setFloat(dst *float64, value string) bool {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(v) {
		return false
	}
	*dst = v
	return true
}

func setInt(dst *int, value string) bool {
	v, err := strconv.Atoi(value)
	if err != nil {
		return false
	}
	*dst = v
	return true
}
