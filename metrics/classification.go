package metrics

import (
	"github.com/YuminosukeSato/gboost/data"
	gberrors "github.com/YuminosukeSato/gboost/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// binaryError は二値分類の誤り率。確率 > 0.5 を正例と判定する。
type binaryError struct{}

func (binaryError) Name() string { return "error" }

func (binaryError) Eval(preds []float32, info *data.Info) (float32, error) {
	v, err := pointwise("error", preds, info, func(p, y float64) float64 {
		var cls float64
		if p > 0.5 {
			cls = 1
		}
		if cls != y {
			return 1
		}
		return 0
	})
	return float32(v), err
}

// classes は多クラス予測の形状を判定する。行ごとのクラス番号なら 1、
// グループ連続の K クラススコアなら K を返す。
func classes(name string, preds []float32, info *data.Info) (int, error) {
	nrow := info.NumRow()
	if nrow == 0 {
		return 0, gberrors.NewValueError(name, "empty label vector")
	}
	if len(preds)%nrow != 0 {
		return 0, gberrors.NewDimensionError(name, nrow, len(preds), 0)
	}
	return len(preds) / nrow, nil
}

// multiError は多クラス分類の誤り率。
type multiError struct{}

func (multiError) Name() string { return "merror" }

func (multiError) Eval(preds []float32, info *data.Info) (float32, error) {
	k, err := classes("merror", preds, info)
	if err != nil {
		return 0, err
	}
	nrow := info.NumRow()
	mis := make([]float64, nrow)
	rec := make([]float64, k)
	for i := 0; i < nrow; i++ {
		var cls int
		if k == 1 {
			cls = int(preds[i])
		} else {
			for j := range rec {
				rec[j] = float64(preds[j*nrow+i])
			}
			cls = floats.MaxIdx(rec)
		}
		if cls != int(info.Labels[i]) {
			mis[i] = 1
		}
	}
	return float32(stat.Mean(mis, weightsOf(info))), nil
}

// multiLogLoss は多クラス交差エントロピー。予測値はグループ連続の確率。
type multiLogLoss struct{}

func (multiLogLoss) Name() string { return "mlogloss" }

func (multiLogLoss) Eval(preds []float32, info *data.Info) (float32, error) {
	k, err := classes("mlogloss", preds, info)
	if err != nil {
		return 0, err
	}
	if k < 2 {
		return 0, gberrors.NewValueError("mlogloss", "requires per-class probabilities")
	}
	nrow := info.NumRow()
	loss := make([]float64, nrow)
	for i := 0; i < nrow; i++ {
		label := int(info.Labels[i])
		if label < 0 || label >= k {
			return 0, gberrors.NewValueError("mlogloss", "label out of range")
		}
		loss[i] = -gberrors.StabilizeLog(float64(preds[label*nrow+i]))
	}
	return float32(stat.Mean(loss, weightsOf(info))), nil
}

// auc は ROC 曲線下面積。クエリグループがあればグループごとに計算して平均する。
// ラベルは正例である確率として扱われる。
type auc struct{}

func (auc) Name() string { return "auc" }

func (auc) Eval(preds []float32, info *data.Info) (float32, error) {
	if err := checkSize("auc", preds, info); err != nil {
		return 0, err
	}
	gptr := info.Groups()
	var sum float64
	for q := 0; q+1 < len(gptr); q++ {
		sum += groupAUC(preds, info, int(gptr[q]), int(gptr[q+1]))
	}
	return float32(sum / float64(len(gptr)-1)), nil
}

func groupAUC(preds []float32, info *data.Info, lo, hi int) float64 {
	n := hi - lo
	scores := make([]float64, n)
	for i := range scores {
		scores[i] = float64(preds[lo+i])
	}
	order := make([]int, n)
	floats.Argsort(scores, order)

	// walk from the highest score down, pooling ties
	var area, sumPos, sumNeg float64
	for i := n - 1; i >= 0; {
		var tp, tn float64
		j := i
		for ; j >= 0 && scores[j] == scores[i]; j-- {
			row := lo + order[j]
			w := float64(info.GetWeight(row))
			y := float64(info.Labels[row])
			tp += w * y
			tn += w * (1 - y)
		}
		area += tn * (sumPos + tp/2)
		sumPos += tp
		sumNeg += tn
		i = j
	}
	if sumPos == 0 || sumNeg == 0 {
		return 0.5
	}
	return area / (sumPos * sumNeg)
}
