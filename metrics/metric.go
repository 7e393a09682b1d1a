// Package metrics は予測値を評価する指標と、その名前付き集合 EvalSet を提供します。
//
// すべての指標は info.Weights による重み付けを考慮します（未設定なら各行の重みは1）。
package metrics

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/YuminosukeSato/gboost/data"
	gberrors "github.com/YuminosukeSato/gboost/pkg/errors"
)

// Evaluator は一つの評価指標です。
type Evaluator interface {
	// Name は出力に使われる指標名を返す（例: "rmse", "map@5"）
	Name() string

	// Eval は変換済み予測値を評価する
	Eval(preds []float32, info *data.Info) (float32, error)
}

// Factory は評価指標を生成する関数です。param は "map@5" の "5" のような
// '@' 以降の部分で、指定がなければ空文字列です。
type Factory func(param string) (Evaluator, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{
		"rmse":     simple(rmse{}),
		"mae":      simple(mae{}),
		"logloss":  simple(logloss{}),
		"error":    simple(binaryError{}),
		"merror":   simple(multiError{}),
		"mlogloss": simple(multiLogLoss{}),
		"auc":      simple(auc{}),
		"map":      func(p string) (Evaluator, error) { return newRankMetric("map", p) },
		"ndcg":     func(p string) (Evaluator, error) { return newRankMetric("ndcg", p) },
	}
)

func simple(e Evaluator) Factory {
	return func(param string) (Evaluator, error) {
		if param != "" {
			return nil, gberrors.NewConfigurationError("metric", e.Name()+"@"+param)
		}
		return e, nil
	}
}

// Create は名前から評価指標を生成する。未知の名前は ConfigurationError を返す。
//
// 使用例:
//
//	ev, err := metrics.Create("map@10")
func Create(name string) (Evaluator, error) {
	base, param, _ := strings.Cut(name, "@")
	registryMu.RLock()
	f, ok := registry[base]
	registryMu.RUnlock()
	if !ok {
		return nil, gberrors.NewConfigurationError("metric", name)
	}
	return f(param)
}

// Register は評価指標を登録する。同名の既存指標は置き換えられる。
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = f
}

// Names は登録済みの指標名をソートして返す
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// weightsOf は重みを gonum/stat 用に float64 へ変換する。未設定なら nil。
func weightsOf(info *data.Info) []float64 {
	if len(info.Weights) == 0 {
		return nil
	}
	w := make([]float64, len(info.Weights))
	for i, v := range info.Weights {
		w[i] = float64(v)
	}
	return w
}

func checkSize(name string, preds []float32, info *data.Info) error {
	if info.NumRow() == 0 {
		return gberrors.NewValueError(name, "empty label vector")
	}
	if len(preds) != info.NumRow() {
		return gberrors.NewDimensionError(name, info.NumRow(), len(preds), 0)
	}
	return nil
}

func parseTopN(name, param string) (int, error) {
	if param == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(param)
	if err != nil || n <= 0 {
		return 0, gberrors.NewConfigurationError("metric", name+"@"+param)
	}
	return n, nil
}
