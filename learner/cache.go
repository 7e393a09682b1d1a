package learner

import (
	"sync"
	"sync/atomic"

	"github.com/YuminosukeSato/gboost/data"
	"github.com/YuminosukeSato/gboost/gbm"
	gberrors "github.com/YuminosukeSato/gboost/pkg/errors"
)

var (
	// owners maps a registered *data.DMatrix to the id of the cache that
	// owns its buffer slots. A dataset belongs to at most one cache.
	owners      sync.Map
	nextCacheID atomic.Uint64
)

// Handle is the registration record of one dataset.
type Handle struct {
	Dataset *data.DMatrix
	// Offset is the first buffer slot of the dataset.
	Offset int64
	// Rows is the row count at registration.
	Rows int

	owner uint64
}

// PredictionCache hands out disjoint ranges of the booster's prediction
// buffer, one per distinct dataset. It stores no prediction values.
type PredictionCache struct {
	id         uint64
	entries    []Handle
	size       int64
	registered bool
}

// NewPredictionCache returns an empty cache with a fresh owner id.
func NewPredictionCache() *PredictionCache {
	return &PredictionCache{id: nextCacheID.Add(1)}
}

// Register assigns buffer ranges in first-seen order. Duplicate pointers
// share one entry and nil datasets are skipped. A cache accepts exactly one
// Register call. Registering a dataset already owned by another cache moves
// ownership here.
func (c *PredictionCache) Register(datasets []*data.DMatrix) ([]Handle, error) {
	if c.registered {
		return nil, gberrors.NewStateError("PredictionCache.Register", "cache data already registered")
	}
	c.registered = true

	seen := make(map[*data.DMatrix]struct{}, len(datasets))
	for _, d := range datasets {
		if d == nil {
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		h := Handle{Dataset: d, Offset: c.size, Rows: d.NumRow(), owner: c.id}
		c.entries = append(c.entries, h)
		c.size += int64(h.Rows)
		owners.Store(d, c.id)
	}
	return c.Entries(), nil
}

// Registered reports whether Register has been called.
func (c *PredictionCache) Registered() bool { return c.registered }

// BufferSize returns the total number of slots handed out.
func (c *PredictionCache) BufferSize() int64 { return c.size }

// Entries returns the registration records in offset order.
func (c *PredictionCache) Entries() []Handle {
	out := make([]Handle, len(c.entries))
	copy(out, c.entries)
	return out
}

// Valid reports whether h can still be used for buffered prediction.
func (c *PredictionCache) Valid(h Handle) bool {
	return h.owner == c.id && c.owns(h.Dataset) && h.Dataset.NumRow() == h.Rows
}

// Lookup returns the buffer offset of d, or gbm.NoBuffer when d was never
// registered here. A registered dataset whose row count changed, or that
// another cache took over, also yields gbm.NoBuffer and emits a
// CacheMissWarning.
func (c *PredictionCache) Lookup(d *data.DMatrix) int64 {
	for _, e := range c.entries {
		if e.Dataset != d {
			continue
		}
		if !c.owns(d) {
			gberrors.Warn(gberrors.NewCacheMissWarning("dataset registered with another learner", e.Rows, d.NumRow()))
			return gbm.NoBuffer
		}
		if d.NumRow() != e.Rows {
			gberrors.Warn(gberrors.NewCacheMissWarning("row count changed", e.Rows, d.NumRow()))
			return gbm.NoBuffer
		}
		return e.Offset
	}
	return gbm.NoBuffer
}

// Release drops ownership of every dataset this cache still owns.
func (c *PredictionCache) Release() {
	for _, e := range c.entries {
		owners.CompareAndDelete(e.Dataset, c.id)
	}
}

func (c *PredictionCache) owns(d *data.DMatrix) bool {
	id, ok := owners.Load(d)
	return ok && id.(uint64) == c.id
}
