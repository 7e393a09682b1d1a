// Package data holds the feature matrix consumed by the learner: sparse CSR
// rows plus per-row labels, weights, query groups and tree-root indices.
package data

import (
	"math"
	"sort"

	gberrors "github.com/YuminosukeSato/gboost/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Entry is one present feature value in a sparse row.
type Entry struct {
	Index uint32
	Value float32
}

// GradPair is the first and second order gradient of the loss for one example.
type GradPair struct {
	Grad float32
	Hess float32
}

// Info is the per-row metadata of a DMatrix.
//
// Weights and RootIndex may be empty, in which case every row has weight 1
// and root 0. GroupPtr holds query group boundaries for ranking objectives:
// group i spans rows [GroupPtr[i], GroupPtr[i+1]).
type Info struct {
	Labels    []float32
	Weights   []float32
	GroupPtr  []uint32
	RootIndex []uint32
}

// NumRow returns the number of labelled rows.
func (info *Info) NumRow() int { return len(info.Labels) }

// GetWeight returns the weight of row i, 1 when no weights are set.
func (info *Info) GetWeight(i int) float32 {
	if len(info.Weights) == 0 {
		return 1
	}
	return info.Weights[i]
}

// GetRoot returns the tree root assigned to row i, 0 when unset.
func (info *Info) GetRoot(i int) uint32 {
	if len(info.RootIndex) == 0 {
		return 0
	}
	return info.RootIndex[i]
}

// Groups returns the query group boundaries. Without explicit groups the
// whole matrix is a single group.
func (info *Info) Groups() []uint32 {
	if len(info.GroupPtr) != 0 {
		return info.GroupPtr
	}
	return []uint32{0, uint32(len(info.Labels))}
}

// DMatrix is a sparse row-major feature matrix. Identity matters: the
// learner keys its prediction cache on the *DMatrix pointer, so a matrix
// must not be copied by value once registered.
type DMatrix struct {
	rowPtr []int
	data   []Entry
	numCol int

	Info Info
}

// New returns an empty matrix.
func New() *DMatrix {
	return &DMatrix{rowPtr: []int{0}}
}

// NumRow returns the number of rows.
func (d *DMatrix) NumRow() int { return len(d.rowPtr) - 1 }

// NumCol returns one past the largest feature index seen.
func (d *DMatrix) NumCol() int { return d.numCol }

// NumEntry returns the number of stored (non-missing) values.
func (d *DMatrix) NumEntry() int { return len(d.data) }

// Row returns the entries of row i sorted by feature index. The slice
// aliases internal storage and must not be modified.
func (d *DMatrix) Row(i int) []Entry {
	return d.data[d.rowPtr[i]:d.rowPtr[i+1]]
}

// AddRow appends a row with the given label. Entries are copied and sorted
// by feature index.
func (d *DMatrix) AddRow(entries []Entry, label float32) {
	start := len(d.data)
	d.data = append(d.data, entries...)
	row := d.data[start:]
	sort.Slice(row, func(i, j int) bool { return row[i].Index < row[j].Index })
	for _, e := range row {
		if int(e.Index) >= d.numCol {
			d.numCol = int(e.Index) + 1
		}
	}
	d.rowPtr = append(d.rowPtr, len(d.data))
	d.Info.Labels = append(d.Info.Labels, label)
}

// SetNumCol raises the column count, e.g. when trailing features are all
// missing in this particular matrix.
func (d *DMatrix) SetNumCol(n int) {
	if n > d.numCol {
		d.numCol = n
	}
}

// Validate checks that metadata lengths agree with the row count.
func (d *DMatrix) Validate() error {
	rows := d.NumRow()
	if len(d.Info.Labels) != rows {
		return gberrors.NewDimensionError("data.Validate", rows, len(d.Info.Labels), 0)
	}
	if n := len(d.Info.Weights); n != 0 && n != rows {
		return gberrors.NewDimensionError("data.Validate", rows, n, 0)
	}
	if n := len(d.Info.RootIndex); n != 0 && n != rows {
		return gberrors.NewDimensionError("data.Validate", rows, n, 0)
	}
	if gp := d.Info.GroupPtr; len(gp) != 0 {
		if gp[0] != 0 || int(gp[len(gp)-1]) != rows {
			return gberrors.NewValueError("data.Validate", "group boundaries must span all rows")
		}
		for i := 1; i < len(gp); i++ {
			if gp[i] < gp[i-1] {
				return gberrors.NewValueError("data.Validate", "group boundaries must be non-decreasing")
			}
		}
	}
	return nil
}

// FromDense builds a matrix from a dense gonum matrix. NaN cells are
// treated as missing. labels may be nil.
func FromDense(x mat.Matrix, labels []float64) (*DMatrix, error) {
	rows, cols := x.Dims()
	if labels != nil && len(labels) != rows {
		return nil, gberrors.NewDimensionError("data.FromDense", rows, len(labels), 0)
	}
	d := New()
	d.numCol = cols
	row := make([]Entry, 0, cols)
	for i := 0; i < rows; i++ {
		row = row[:0]
		for j := 0; j < cols; j++ {
			v := x.At(i, j)
			if math.IsNaN(v) {
				continue
			}
			row = append(row, Entry{Index: uint32(j), Value: float32(v)})
		}
		var label float32
		if labels != nil {
			label = float32(labels[i])
		}
		d.AddRow(row, label)
	}
	return d, nil
}

// Dense expands the matrix into a gonum matrix with NaN for missing cells.
func (d *DMatrix) Dense() *mat.Dense {
	rows, cols := d.NumRow(), d.NumCol()
	if rows == 0 || cols == 0 {
		return &mat.Dense{}
	}
	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out.Set(i, j, math.NaN())
		}
		for _, e := range d.Row(i) {
			out.Set(i, int(e.Index), float64(e.Value))
		}
	}
	return out
}
