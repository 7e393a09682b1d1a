package metrics

import (
	"math"

	"github.com/YuminosukeSato/gboost/data"
	gberrors "github.com/YuminosukeSato/gboost/pkg/errors"
	"gonum.org/v1/gonum/stat"
)

// pointwise は行ごとの損失 loss(pred, label) の重み付き平均を計算する
func pointwise(name string, preds []float32, info *data.Info, loss func(p, y float64) float64) (float64, error) {
	if err := checkSize(name, preds, info); err != nil {
		return 0, err
	}
	vals := make([]float64, len(preds))
	for i, p := range preds {
		vals[i] = loss(float64(p), float64(info.Labels[i]))
	}
	return stat.Mean(vals, weightsOf(info)), nil
}

// rmse は平方根平均二乗誤差（Root Mean Squared Error）
type rmse struct{}

func (rmse) Name() string { return "rmse" }

func (rmse) Eval(preds []float32, info *data.Info) (float32, error) {
	mse, err := pointwise("rmse", preds, info, func(p, y float64) float64 {
		d := p - y
		return d * d
	})
	return float32(math.Sqrt(mse)), err
}

// mae は平均絶対誤差（Mean Absolute Error）
type mae struct{}

func (mae) Name() string { return "mae" }

func (mae) Eval(preds []float32, info *data.Info) (float32, error) {
	v, err := pointwise("mae", preds, info, func(p, y float64) float64 {
		return math.Abs(p - y)
	})
	return float32(v), err
}

// logloss は二値交差エントロピー。予測値は確率である必要がある。
type logloss struct{}

func (logloss) Name() string { return "logloss" }

func (logloss) Eval(preds []float32, info *data.Info) (float32, error) {
	v, err := pointwise("logloss", preds, info, func(p, y float64) float64 {
		return -y*gberrors.StabilizeLog(p) - (1-y)*gberrors.StabilizeLog(1-p)
	})
	return float32(v), err
}
