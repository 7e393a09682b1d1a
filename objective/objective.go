// Package objective provides the loss functions driving boosting: each one
// turns margin-space predictions into gradient pairs and knows how to map
// margins to the final output space.
package objective

import (
	"sort"
	"strings"
	"sync"

	"github.com/YuminosukeSato/gboost/data"
	gberrors "github.com/YuminosukeSato/gboost/pkg/errors"
)

// Objective defines the interface for loss functions.
//
// Predictions passed in are always margin-space and group-contiguous: for K
// output groups over n rows, preds[g*n+i] is the score of row i in group g.
type Objective interface {
	// SetParam applies one configuration pair. Unknown keys are ignored.
	SetParam(name, value string)

	// GetGradient returns one gradient pair per prediction, in the same
	// group-contiguous layout as preds.
	GetGradient(preds []float32, info *data.Info, iter int) ([]data.GradPair, error)

	// PredTransform maps margins to the final output, e.g. probabilities.
	// nrow is the number of rows the predictions cover.
	PredTransform(preds []float32, nrow int) []float32

	// EvalTransform maps margins to what the default metric expects.
	EvalTransform(preds []float32, nrow int) []float32

	// DefaultEvalMetric returns the metric registered for this objective.
	DefaultEvalMetric() string

	// ProbToMargin converts a user-supplied base score into margin space.
	ProbToMargin(base float32) (float32, error)

	// Name returns the registry name of the objective.
	Name() string
}

// Factory constructs a fresh objective instance.
type Factory func() Objective

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{
		"reg:linear":      func() Objective { return newRegLoss("reg:linear", lossLinearSquare) },
		"reg:logistic":    func() Objective { return newRegLoss("reg:logistic", lossLogisticNeglik) },
		"binary:logistic": func() Objective { return newRegLoss("binary:logistic", lossLogisticClassify) },
		"binary:logitraw": func() Objective { return newRegLoss("binary:logitraw", lossLogisticRaw) },
		"multi:softmax":   func() Objective { return newSoftmax("multi:softmax", false) },
		"multi:softprob":  func() Objective { return newSoftmax("multi:softprob", true) },
		"rank:pairwise":   func() Objective { return newPairwise() },
	}
)

// DefaultName is the objective used when none is configured.
const DefaultName = "reg:linear"

// Create creates an objective function based on the objective name.
func Create(name string) (Objective, error) {
	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, gberrors.NewConfigurationError("objective", name)
	}
	return f(), nil
}

// Register adds or replaces a named objective.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = f
}

// Names returns the registered objective names in sorted order.
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

// IsMultiClass reports whether name selects a multi-class objective.
func IsMultiClass(name string) bool {
	return strings.HasPrefix(name, "multi:")
}

func checkPredSize(op string, preds []float32, info *data.Info, ngroup int) (int, error) {
	nrow := info.NumRow()
	if len(preds) != nrow*ngroup {
		return 0, gberrors.NewStateErrorf(op, "prediction size %d does not match %d rows x %d groups",
			len(preds), nrow, ngroup)
	}
	return nrow, nil
}
