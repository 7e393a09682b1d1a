package metrics

import (
	"fmt"
	"strings"

	"github.com/YuminosukeSato/gboost/data"
)

// Result は一つのデータセットに対する一つの指標の値です。
type Result struct {
	Dataset string
	Metric  string
	Value   float32
}

// String は " train-rmse:0.123456" 形式の評価エントリを返す
func (r Result) String() string {
	return fmt.Sprintf(" %s-%s:%f", r.Dataset, r.Metric, r.Value)
}

// EvalSet は登録順を保った名前付き評価指標の集合です。同じ名前は一度だけ登録される。
type EvalSet struct {
	evals []Evaluator
}

// AddEval は名前で指標を追加する。既に登録済みの名前は無視される。
func (s *EvalSet) AddEval(name string) error {
	for _, e := range s.evals {
		if e.Name() == name {
			return nil
		}
	}
	ev, err := Create(name)
	if err != nil {
		return err
	}
	s.evals = append(s.evals, ev)
	return nil
}

// Names は登録順の指標名を返す
func (s *EvalSet) Names() []string {
	names := make([]string, len(s.evals))
	for i, e := range s.evals {
		names[i] = e.Name()
	}
	return names
}

// Len は登録済みの指標数を返す
func (s *EvalSet) Len() int { return len(s.evals) }

// Results は登録順にすべての指標を評価する
func (s *EvalSet) Results(dsName string, preds []float32, info *data.Info) ([]Result, error) {
	out := make([]Result, 0, len(s.evals))
	for _, e := range s.evals {
		v, err := e.Eval(preds, info)
		if err != nil {
			return nil, err
		}
		out = append(out, Result{Dataset: dsName, Metric: e.Name(), Value: v})
	}
	return out, nil
}

// Eval は Results を連結した評価文字列を返す
func (s *EvalSet) Eval(dsName string, preds []float32, info *data.Info) (string, error) {
	results, err := s.Results(dsName, preds, info)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, r := range results {
		sb.WriteString(r.String())
	}
	return sb.String(), nil
}
