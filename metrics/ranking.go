package metrics

import (
	"math"

	"github.com/YuminosukeSato/gboost/data"
	"gonum.org/v1/gonum/floats"
)

// rankMetric は map と ndcg。クエリグループごとに計算して平均する。
// topN が 0 の場合はグループ全体を対象にする。
type rankMetric struct {
	kind string
	name string
	topN int
}

func newRankMetric(kind, param string) (Evaluator, error) {
	n, err := parseTopN(kind, param)
	if err != nil {
		return nil, err
	}
	name := kind
	if param != "" {
		name += "@" + param
	}
	return &rankMetric{kind: kind, name: name, topN: n}, nil
}

func (m *rankMetric) Name() string { return m.name }

func (m *rankMetric) Eval(preds []float32, info *data.Info) (float32, error) {
	if err := checkSize(m.name, preds, info); err != nil {
		return 0, err
	}
	gptr := info.Groups()
	var sum float64
	for q := 0; q+1 < len(gptr); q++ {
		lo, hi := int(gptr[q]), int(gptr[q+1])
		labels := rankedLabels(preds, info, lo, hi)
		if m.kind == "map" {
			sum += m.averagePrecision(labels)
		} else {
			sum += m.ndcg(labels)
		}
	}
	return float32(sum / float64(len(gptr)-1)), nil
}

// rankedLabels returns the labels of rows lo..hi ordered by descending score.
func rankedLabels(preds []float32, info *data.Info, lo, hi int) []float64 {
	n := hi - lo
	scores := make([]float64, n)
	for i := range scores {
		scores[i] = -float64(preds[lo+i])
	}
	order := make([]int, n)
	floats.Argsort(scores, order)
	labels := make([]float64, n)
	for i, o := range order {
		labels[i] = float64(info.Labels[lo+o])
	}
	return labels
}

func (m *rankMetric) cutoff(n int) int {
	if m.topN > 0 && m.topN < n {
		return m.topN
	}
	return n
}

func (m *rankMetric) averagePrecision(labels []float64) float64 {
	var hits, sumap float64
	for i := 0; i < m.cutoff(len(labels)); i++ {
		if labels[i] > 0 {
			hits++
			sumap += hits / float64(i+1)
		}
	}
	if hits == 0 {
		return 1
	}
	return sumap / hits
}

func (m *rankMetric) ndcg(labels []float64) float64 {
	dcg := discounted(labels, m.cutoff(len(labels)))
	ideal := append([]float64(nil), labels...)
	floats.Argsort(ideal, make([]int, len(ideal)))
	floats.Reverse(ideal)
	idcg := discounted(ideal, m.cutoff(len(ideal)))
	if idcg == 0 {
		return 1
	}
	return dcg / idcg
}

func discounted(labels []float64, n int) float64 {
	var s float64
	for i := 0; i < n; i++ {
		s += (math.Exp2(labels[i]) - 1) / math.Log2(float64(i+2))
	}
	return s
}
