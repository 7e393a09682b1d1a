package data

import (
	"math"
	"testing"

	gberrors "github.com/YuminosukeSato/gboost/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestAddRow(t *testing.T) {
	d := New()
	d.AddRow([]Entry{{Index: 3, Value: 1}, {Index: 0, Value: 2}}, 1)
	d.AddRow(nil, 0)

	assert.Equal(t, 2, d.NumRow())
	assert.Equal(t, 4, d.NumCol())
	assert.Equal(t, 2, d.NumEntry())
	assert.Equal(t, []Entry{{Index: 0, Value: 2}, {Index: 3, Value: 1}}, d.Row(0))
	assert.Empty(t, d.Row(1))
	assert.Equal(t, []float32{1, 0}, d.Info.Labels)
	require.NoError(t, d.Validate())
}

func TestInfoDefaults(t *testing.T) {
	info := Info{Labels: []float32{0, 1, 0}}
	assert.Equal(t, float32(1), info.GetWeight(2))
	assert.Equal(t, uint32(0), info.GetRoot(1))
	assert.Equal(t, []uint32{0, 3}, info.Groups())

	info.Weights = []float32{0.5, 2, 1}
	info.RootIndex = []uint32{0, 1, 1}
	assert.Equal(t, float32(2), info.GetWeight(1))
	assert.Equal(t, uint32(1), info.GetRoot(2))
}

func TestValidate(t *testing.T) {
	d := New()
	d.AddRow([]Entry{{Index: 0, Value: 1}}, 1)
	d.AddRow([]Entry{{Index: 0, Value: 2}}, 0)

	d.Info.Weights = []float32{1}
	var de *gberrors.DimensionError
	assert.True(t, gberrors.As(d.Validate(), &de))

	d.Info.Weights = nil
	d.Info.GroupPtr = []uint32{0, 1}
	var ve *gberrors.ValueError
	assert.True(t, gberrors.As(d.Validate(), &ve))

	d.Info.GroupPtr = []uint32{0, 1, 2}
	assert.NoError(t, d.Validate())
}

func TestFromDenseRoundTrip(t *testing.T) {
	nan := math.NaN()
	x := mat.NewDense(3, 2, []float64{
		1, nan,
		0, 2,
		nan, nan,
	})
	d, err := FromDense(x, []float64{1, 0, 1})
	require.NoError(t, err)

	assert.Equal(t, 3, d.NumRow())
	assert.Equal(t, 2, d.NumCol())
	assert.Equal(t, 3, d.NumEntry(), "zeros are values, NaN is missing")
	assert.Equal(t, []Entry{{Index: 0, Value: 0}, {Index: 1, Value: 2}}, d.Row(1))

	back := d.Dense()
	r, c := back.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 2, c)
	assert.Equal(t, 1.0, back.At(0, 0))
	assert.True(t, math.IsNaN(back.At(0, 1)))
	assert.True(t, math.IsNaN(back.At(2, 0)))
}

func TestFromDenseLabelMismatch(t *testing.T) {
	_, err := FromDense(mat.NewDense(2, 1, []float64{1, 2}), []float64{1})
	var de *gberrors.DimensionError
	assert.True(t, gberrors.As(err, &de))
}
