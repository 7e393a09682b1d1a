package gbm

import "github.com/YuminosukeSato/gboost/data"

// FVec is a dense view of one sparse row used during tree traversal.
// Fill and Drop touch only the row's own entries, so a vector can be
// reused across rows without clearing it.
type FVec struct {
	vals    []float32
	present []bool
}

// NewFVec returns a vector sized for n features. It grows on demand.
func NewFVec(n int) *FVec {
	return &FVec{vals: make([]float32, n), present: make([]bool, n)}
}

// Fill loads row into the vector.
func (f *FVec) Fill(row []data.Entry) {
	if n := len(row); n > 0 {
		if need := int(row[n-1].Index) + 1; need > len(f.vals) {
			f.vals = append(f.vals, make([]float32, need-len(f.vals))...)
			f.present = append(f.present, make([]bool, need-len(f.present))...)
		}
	}
	for _, e := range row {
		f.vals[e.Index] = e.Value
		f.present[e.Index] = true
	}
}

// Drop undoes Fill for the same row.
func (f *FVec) Drop(row []data.Entry) {
	for _, e := range row {
		f.present[e.Index] = false
	}
}

// Get returns feature i and whether it is present.
func (f *FVec) Get(i uint32) (float32, bool) {
	if int(i) >= len(f.present) || !f.present[i] {
		return 0, false
	}
	return f.vals[i], true
}
