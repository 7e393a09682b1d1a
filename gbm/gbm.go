// Package gbm implements the boosted ensembles driven by the learner:
// gbtree (additive regression trees) and gblinear (a linear model updated by
// coordinate descent).
//
// An ensemble owns its prediction buffer. Callers address it through buffer
// offsets: a non-negative offset names the slot of row 0 of a dataset and
// row i uses slot offset+i. An offset of -1 disables buffering.
package gbm

import (
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/YuminosukeSato/gboost/data"
	gberrors "github.com/YuminosukeSato/gboost/pkg/errors"
)

// NoBuffer is the offset passed when a dataset has no prediction buffer slots.
const NoBuffer int64 = -1

// Booster is an incrementally trained ensemble.
type Booster interface {
	// SetParam applies one configuration pair. Keys may carry a "bst:"
	// prefix. Unknown keys are ignored.
	SetParam(name, value string)

	// InitModel allocates an empty model from the current parameters.
	InitModel() error

	// DoBoost adds one boosting round for group using one gradient pair per
	// row of d. rootIndex may be empty.
	DoBoost(gpair []data.GradPair, d *data.DMatrix, rootIndex []uint32, group int, bufferOffset int64) error

	// Predict returns the margin contribution of the ensemble for one row,
	// excluding the base score. It is safe to call concurrently for
	// distinct rows.
	Predict(d *data.DMatrix, row int, bufferOffset int64, root uint32, group int) float32

	// NumGroup returns the number of output groups.
	NumGroup() int

	// NumUnits returns the number of incremental units (trees or rounds).
	NumUnits() int

	// ClearBuffer resets the buffer slots [offset, offset+rows) in all groups.
	ClearBuffer(offset int64, rows int)

	// DeleteLast removes the most recently added unit.
	DeleteLast() error

	// SaveModel and LoadModel use the ensemble's binary format.
	SaveModel(w io.Writer) error
	LoadModel(r io.Reader) error

	// Dump returns a text rendering of each unit.
	Dump(withStats bool) []string

	// Name returns the registry name.
	Name() string
}

// Factory constructs a fresh booster.
type Factory func() Booster

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{
		"gbtree":   func() Booster { return NewGBTree() },
		"gblinear": func() Booster { return NewGBLinear() },
	}
)

// DefaultName is the booster used when none is configured.
const DefaultName = "gbtree"

// Create returns a new booster by name.
func Create(name string) (Booster, error) {
	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, gberrors.NewConfigurationError("booster", name)
	}
	return f(), nil
}

// Register adds or replaces a named booster.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = f
}

// RoundCounter is implemented by boosters that can tell how many boosting
// rounds produced their units.
type RoundCounter interface {
	NumRounds() int
}

// Rounds returns the number of completed boosting rounds of b, falling
// back to NumUnits for boosters without a RoundCounter.
func Rounds(b Booster) int {
	if rc, ok := b.(RoundCounter); ok {
		return rc.NumRounds()
	}
	return b.NumUnits()
}

// Names returns the registered booster names in sorted order.
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

func stripPrefix(name string) string {
	return strings.TrimPrefix(name, "bst:")
}
